package analyzer

import (
	"testing"

	"github.com/trubylang/truby/internal/diagnostics"
)

// ---------------------------------------------------------------------------
// is_a? guards
// ---------------------------------------------------------------------------

func TestNarrow_IsAGuardInThenBranch(t *testing.T) {
	expectNoAnalyzerErrors(t, `
def double_if_int(x: Integer | String): Integer
  if x.is_a?(Integer)
    return x * 2
  end
  return 0
end
`)
}

func TestNarrow_WithoutGuardUnionDispatchFails(t *testing.T) {
	input := `
def shout(x: Integer | String): String
  return x.upcase
end
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT002, "undefined method 'upcase' for Integer")
}

func TestNarrow_GuardFactsSurviveEarlyReturn(t *testing.T) {
	// the then arm returns, so the rest of the method keeps the
	// negation: x can only be a String there
	expectNoAnalyzerErrors(t, `
def describe(x: Integer | String): String
  if x.is_a?(Integer)
    return "number"
  end
  return x.upcase
end
`)
}

func TestNarrow_ElseBranchSubtracts(t *testing.T) {
	expectNoAnalyzerErrors(t, `
def label(x: Integer | String): String
  if x.is_a?(Integer)
    return "int"
  else
    return x.upcase
  end
end
`)
}

func TestNarrow_AndChainsGuardIntoRightOperand(t *testing.T) {
	expectNoAnalyzerErrors(t, `
def big?(x: Integer | String): Bool
  if x.is_a?(Integer) && x > 100
    return true
  end
  return false
end
`)
}

// ---------------------------------------------------------------------------
// nil checks
// ---------------------------------------------------------------------------

func TestNarrow_NilCheckModifierGuard(t *testing.T) {
	expectNoAnalyzerErrors(t, `
def shout(s: String | Nil): String
  return "" if s.nil?
  return s.upcase
end
`)
}

func TestNarrow_UnlessInvertsTheGuard(t *testing.T) {
	expectNoAnalyzerErrors(t, `
def tidy(s: String | Nil): String
  unless s.nil?
    return s.strip
  end
  return ""
end
`)
}

func TestNarrow_TruthinessDropsNil(t *testing.T) {
	expectNoAnalyzerErrors(t, `
def greet(name: String | Nil): String
  if name
    return "hi " + name
  end
  return "hi"
end
`)
}

func TestNarrow_NotNilComparison(t *testing.T) {
	expectNoAnalyzerErrors(t, `
def bump(n: Integer | Nil): Integer
  if n != nil
    return n + 1
  end
  return 0
end
`)
}

func TestNarrow_NilableStaysWideWithoutGuard(t *testing.T) {
	input := `
def bump(n: Integer | Nil): Integer
  return n + 1
end
`
	expectAnalyzerError(t, input, diagnostics.ErrT001)
}

// ---------------------------------------------------------------------------
// Joining branch effects
// ---------------------------------------------------------------------------

func TestNarrow_AssignmentInBranchJoins(t *testing.T) {
	// the then arm assigns Integer, the implicit else refutes nil, so
	// both paths agree on Integer afterwards
	expectNoAnalyzerErrors(t, `
def reset(n: Integer | Nil): Integer
  if n.nil?
    n = 0
  end
  return n
end
`)
}

func TestNarrow_ReassignmentWidensOldFacts(t *testing.T) {
	input := `
def flip(n: Integer | Nil): Integer
  if n.nil?
    n = 0
  end
  n = nil
  return n
end
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT001, "cannot return Nil from a method declared Integer")
}

func TestNarrow_BranchDeclaredLocalsJoin(t *testing.T) {
	input := `
ok = true
if ok
  y = 1
else
  y = "s"
end
y
`
	if got := inferredType(t, input); got != "Integer | String" {
		t.Errorf("expected Integer | String, got %s", got)
	}
}

func TestNarrow_PartialDeclarationAddsNil(t *testing.T) {
	input := `
ok = true
if ok
  y = 1
end
y
`
	if got := inferredType(t, input); got != "Integer | Nil" {
		t.Errorf("expected Integer | Nil, got %s", got)
	}
}

// ---------------------------------------------------------------------------
// case/when
// ---------------------------------------------------------------------------

func TestNarrow_CaseClassGuards(t *testing.T) {
	expectNoAnalyzerErrors(t, `
def describe(v: Integer | String | Bool): String
  case v
  when Integer
    return "int"
  when String
    return v.upcase
  else
    return "bool"
  end
end
`)
}

func TestNarrow_CaseWithoutElseRefutes(t *testing.T) {
	expectNoAnalyzerErrors(t, `
def shout(v: Integer | String): String
  case v
  when Integer
    return "num"
  end
  return v.upcase
end
`)
}

func TestNarrow_CaseNilArmSubtracts(t *testing.T) {
	expectNoAnalyzerErrors(t, `
def len_or_zero(s: String | Nil): Integer
  case s
  when nil
    return 0
  else
    return s.length
  end
end
`)
}

func TestNarrow_CaseLiteralArmsDoNotExhaust(t *testing.T) {
	// matching 1 does not rule Integer out, and it says nothing about
	// the Nil member either
	input := `
def come_back(n: Integer | Nil): Integer
  case n
  when 1
    puts("one")
  end
  return n
end
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT001, "cannot return Integer | Nil from a method declared Integer")
}

func TestNarrow_CaseAsExpression(t *testing.T) {
	input := `
status = "active"
msg = case status
when "active", "trial"
  "on"
else
  "off"
end
msg
`
	if got := inferredType(t, input); got != "String" {
		t.Errorf("expected String, got %s", got)
	}
}

// ---------------------------------------------------------------------------
// Literal equality
// ---------------------------------------------------------------------------

func TestNarrow_LiteralEqualityOnLiteralUnion(t *testing.T) {
	expectNoAnalyzerErrors(t, `
def speed(m: "fast" | "slow"): Integer
  if m == "fast"
    return 1
  end
  return 2
end
`)
}

func TestNarrow_LiteralInequalitySubtracts(t *testing.T) {
	// after ruling out "fast" only "slow" remains, and a string
	// literal still fits a String return
	expectNoAnalyzerErrors(t, `
def other(m: "fast" | "slow"): String
  if m == "fast"
    return "f"
  end
  return m
end
`)
}

func TestNarrow_SymbolEquality(t *testing.T) {
	expectNoAnalyzerErrors(t, `
def step(d: :asc | :desc): Integer
  if d == :asc
    return 1
  end
  return -1
end
`)
}

// ---------------------------------------------------------------------------
// Loops
// ---------------------------------------------------------------------------

func TestNarrow_WhileExitRefutesCondition(t *testing.T) {
	expectNoAnalyzerErrors(t, `
def first_num(n: Integer | Nil): Integer
  while n.nil?
    n = 0
  end
  return n
end
`)
}

func TestNarrow_BreakSuppressesExitRefutation(t *testing.T) {
	// a break can leave the loop while the condition still holds, so
	// nothing is known about n afterwards
	input := `
def hunt(n: Integer | Nil): Integer
  while n.nil?
    break
  end
  return n
end
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT001, "cannot return Integer | Nil from a method declared Integer")
}

func TestNarrow_LoopBodyWidensAssignedLocals(t *testing.T) {
	// the loop may run again after the assignment, so inside and after
	// the loop the binding is back to its declared type
	input := `
def churn(n: Integer | Nil): Integer
  count = 0
  while count < 3
    n = nil
    count = count + 1
  end
  return n
end
`
	expectAnalyzerError(t, input, diagnostics.ErrT001)
}
