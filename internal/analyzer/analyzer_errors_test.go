package analyzer

import (
	"testing"

	"github.com/trubylang/truby/internal/diagnostics"
)

// analyzeSource and the expect helpers live in analyzer_test.go.

// ---------------------------------------------------------------------------
// T001: Type mismatch
// ---------------------------------------------------------------------------

func TestT001_AnnotatedAssignmentMismatch(t *testing.T) {
	expectAnalyzerErrorContains(t, `x: String = 5`,
		diagnostics.ErrT001, "cannot use Integer where String is expected")
}

func TestT001_LiteralOutsideDeclaredUnion(t *testing.T) {
	expectAnalyzerErrorContains(t, `status: "active" | "inactive" = "paused"`,
		diagnostics.ErrT001, "cannot use String")
}

func TestT001_ReturnMismatch(t *testing.T) {
	input := `
def f(): Integer
  return "no"
end
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT001, "cannot return String from a method declared Integer")
}

func TestT001_TailExpressionMismatch(t *testing.T) {
	input := `
def f(): Integer
  "no"
end
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT001, "cannot return String from a method declared Integer")
}

func TestT001_OperatorOperandMismatch(t *testing.T) {
	expectAnalyzerErrorContains(t, `1 + "a"`,
		diagnostics.ErrT001, "operator '+' is not defined for Integer and String")
}

func TestT001_WrongArgumentCount(t *testing.T) {
	input := `
def pair(a: Integer, b: Integer): Integer
  return a
end

pair(1)
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT001, "wrong number of arguments for 'pair' (given 1, expected 2)")
}

func TestT001_ArgumentTypeMismatch(t *testing.T) {
	input := `
def shout(s: String): String
  return s.upcase
end

shout(42)
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT001, "argument 1 of 'shout': cannot use Integer where String is expected")
}

func TestT001_VoidValueAssignment(t *testing.T) {
	input := `
def log_it(msg: String): Void
  puts(msg)
end

x = log_it("hi")
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT001, "cannot assign a Void value to 'x'")
}

func TestT001_BreakOutsideLoop(t *testing.T) {
	expectAnalyzerErrorContains(t, `break`,
		diagnostics.ErrT001, "break outside of a loop")
}

func TestT001_InterfaceInstantiation(t *testing.T) {
	input := `
interface Greeter
  def greet(): String
end

g = Greeter.new
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT001, "cannot instantiate interface 'Greeter'")
}

func TestT001_CircularInheritance(t *testing.T) {
	input := `
class A < B
end

class B < A
end
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT001, "circular superclass chain")
}

func TestT001_BlockPassedToPlainMethod(t *testing.T) {
	expectAnalyzerErrorContains(t, `"hi".length { |x| x }`,
		diagnostics.ErrT001, "'length' does not take a block")
}

func TestT001_MissingRequiredBlock(t *testing.T) {
	expectAnalyzerErrorContains(t, `[1, 2].each`,
		diagnostics.ErrT001, "'each' expects a block")
}

// ---------------------------------------------------------------------------
// T002: Unknown identifier
// ---------------------------------------------------------------------------

func TestT002_UndefinedIdentifier(t *testing.T) {
	expectAnalyzerErrorContains(t, `y = x + 1`,
		diagnostics.ErrT002, "undefined identifier 'x'")
}

func TestT002_UnknownAnnotationType(t *testing.T) {
	expectAnalyzerErrorContains(t, `x: Wat = 1`,
		diagnostics.ErrT002, "unknown type 'Wat'")
}

func TestT002_UndefinedMethod(t *testing.T) {
	expectAnalyzerErrorContains(t, `"s".frobnicate`,
		diagnostics.ErrT002, "undefined method 'frobnicate' for String")
}

func TestT002_MethodMissingOnUnionMember(t *testing.T) {
	input := `
def f(x: Integer | String): Integer
  return x.length
end
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT002, "receiver is Integer | String")
}

func TestT002_UnknownSuperclass(t *testing.T) {
	input := `
class A < Missing
end
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT002, "unknown superclass 'Missing'")
}

func TestT002_InstanceVariableOutsideClass(t *testing.T) {
	expectAnalyzerErrorContains(t, `@x = 1`,
		diagnostics.ErrT002, "outside of a class")
}

func TestT002_UnknownConstant(t *testing.T) {
	expectAnalyzerErrorContains(t, `x = Missing`,
		diagnostics.ErrT002, "unknown constant 'Missing'")
}

// ---------------------------------------------------------------------------
// T003: Duplicate declaration
// ---------------------------------------------------------------------------

func TestT003_DuplicateMethod(t *testing.T) {
	input := `
class Shape
  def area(): Float
    return 1.0
  end

  def area(): Float
    return 2.0
  end
end
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT003, "method 'area' is already defined in class 'Shape'")
}

func TestT003_DuplicateClass(t *testing.T) {
	input := `
class A
end

class A
end
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT003, "'A' is already declared")
}

func TestT003_RedeclaringBuiltin(t *testing.T) {
	input := `
class String
end
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT003, "redeclares a built-in type")
}

func TestT003_DuplicateParameter(t *testing.T) {
	input := `
def f(a: Integer, a: String): Integer
  return 1
end
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT003, "duplicate parameter 'a'")
}

func TestT003_DuplicateTypeParameter(t *testing.T) {
	input := `
def f<T, T>(x: T): T
  return x
end
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT003, "type parameter 'T' is already declared")
}

func TestT003_AnnotatedRedeclaration(t *testing.T) {
	input := `
x: Integer = 1
x: String = "s"
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT003, "'x' is already declared in this scope")
}

func TestT003_DuplicateInstanceVariable(t *testing.T) {
	input := `
class C
  def initialize()
    @x: Integer = 0
    @x: Integer = 1
  end
end
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT003, "instance variable '@x' is already declared")
}

func TestT003_PlainReassignmentIsNotADuplicate(t *testing.T) {
	expectNoAnalyzerErrors(t, `
x = 1
x = 2
`)
}

// ---------------------------------------------------------------------------
// T004: Unresolved generic constraint
// ---------------------------------------------------------------------------

func TestT004_InferredArgumentViolatesConstraint(t *testing.T) {
	input := `
interface Sized
  def size(): Integer
end

def measure<T: Sized>(x: T): Integer
  return x.size
end

measure(5)
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT004, "does not satisfy the constraint Sized")
}

func TestT004_SatisfiedConstraintIsAccepted(t *testing.T) {
	expectNoAnalyzerErrors(t, `
interface Sized
  def size(): Integer
end

class Bag implements Sized
  def size(): Integer
    return 0
  end
end

def measure<T: Sized>(x: T): Integer
  return x.size
end

measure(Bag.new)
`)
}

func TestT004_ExplicitTypeArgumentViolatesConstraint(t *testing.T) {
	input := `
interface Sized
  def size(): Integer
end

def measure<T: Sized>(x: T): Integer
  return x.size
end

measure<Integer>(5)
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT004, "type argument Integer for T does not satisfy constraint Sized")
}

func TestT004_UninferrableClassTypeArguments(t *testing.T) {
	input := `
class Stack<T>
end

s = Stack.new
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT004, "write Stack<...>.new")
}

func TestT004_ClassTypeArgumentViolatesConstraint(t *testing.T) {
	input := `
interface Sized
  def size(): Integer
end

class Sorted<T: Sized>
end

s = Sorted<Integer>.new
`
	expectAnalyzerErrorContains(t, input,
		diagnostics.ErrT004, "does not satisfy constraint")
}

// ---------------------------------------------------------------------------
// T005: Interface conformance
// ---------------------------------------------------------------------------

func TestT005_MissingInterfaceMethod(t *testing.T) {
	input := `
interface Greeter
  def greet(): String
end

class Silent implements Greeter
end
`
	expectAnalyzerErrorContains(t, input, diagnostics.ErrT005,
		"class 'Silent' does not implement 'greet' required by interface 'Greeter'")
}

func TestT005_AbstractClassInstantiation(t *testing.T) {
	input := `
class Shape
  def area(): Float
    raise NotImplementedError
  end
end

s = Shape.new
`
	expectAnalyzerErrorContains(t, input, diagnostics.ErrT005,
		"cannot instantiate 'Shape': abstract method 'area' not implemented")
}

// ---------------------------------------------------------------------------
// T006: Recursive inference
// ---------------------------------------------------------------------------

func TestT006_RecursiveMethodNeedsAnnotation(t *testing.T) {
	input := `
def loop_forever(n: Integer)
  return loop_forever(n)
end
`
	expectAnalyzerErrorContains(t, input, diagnostics.ErrT006,
		"cannot infer the return type of recursive method 'loop_forever'")
}

func TestT006_MutualRecursionNeedsAnnotation(t *testing.T) {
	input := `
def ping(n: Integer)
  return pong(n)
end

def pong(n: Integer)
  return ping(n)
end
`
	errs := analyzeSource(input)
	count := 0
	for _, e := range errs {
		if e.Code == diagnostics.ErrT006 {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one T006 for the cycle, got %d: %v", count, errs)
	}
}

func TestT006_AnnotatedRecursionIsFine(t *testing.T) {
	expectNoAnalyzerErrors(t, `
def fact(n: Integer): Integer
  return 1 if n < 2
  return n * fact(n - 1)
end
`)
}

// ---------------------------------------------------------------------------
// Error recovery
// ---------------------------------------------------------------------------

func TestRecovery_ReportsIndependentErrorsInOrder(t *testing.T) {
	errs := analyzeSource(`a: String = 5
b = unknown_name
c = "x" + 1
`)
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %d: %v", len(errs), errs)
	}
	wantCodes := []diagnostics.ErrorCode{
		diagnostics.ErrT001, diagnostics.ErrT002, diagnostics.ErrT001,
	}
	for i, want := range wantCodes {
		if errs[i].Code != want {
			t.Errorf("error %d: expected %s, got %s (%s)", i, want, errs[i].Code, errs[i])
		}
	}
	for i := 1; i < len(errs); i++ {
		if errs[i-1].Line > errs[i].Line {
			t.Errorf("errors out of order: line %d before line %d", errs[i-1].Line, errs[i].Line)
		}
	}
}

func TestRecovery_PoisonedValueDoesNotCascade(t *testing.T) {
	errs := analyzeSource(`y = missing_fn(1)
z = y + 2
z.length
`)
	if len(errs) != 1 {
		t.Fatalf("expected a single root-cause error, got %d: %v", len(errs), errs)
	}
	if errs[0].Code != diagnostics.ErrT002 {
		t.Errorf("expected T002, got %s", errs[0].Code)
	}
}

// ---------------------------------------------------------------------------
// Well-typed programs
// ---------------------------------------------------------------------------

func TestNoErrors_LiteralTypesAndUnions(t *testing.T) {
	expectNoAnalyzerErrors(t, `
flag: true = true
status: "active" | "inactive" = "active"
n: Integer | Nil = 5
`)
}

func TestNoErrors_CompleteProgram(t *testing.T) {
	expectNoAnalyzerErrors(t, `
interface Shape
  def area(): Float
end

class Circle implements Shape
  def initialize(radius: Float)
    @radius: Float = radius
  end

  def area(): Float
    return @radius * @radius * 3.14159
  end
end

def total_area(shapes: Array<Shape>): Float
  total = 0.0
  shapes.each do |s|
    total = total + s.area
  end
  return total
end

circles = [Circle.new(1.0), Circle.new(2.0)]
total_area(circles)
`)
}
