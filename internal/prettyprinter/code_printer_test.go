package prettyprinter

import (
	"strings"
	"testing"

	"github.com/trubylang/truby/internal/lexer"
	"github.com/trubylang/truby/internal/parser"
	"github.com/trubylang/truby/internal/pipeline"
)

// printSource parses the input and renders it back as Ruby.
func printSource(t *testing.T, input string) string {
	t.Helper()
	ctx := pipeline.NewPipelineContext(input)
	ctx = lexer.NewLexerProcessor().Process(ctx)
	program := parser.New(ctx.TokenStream, ctx).ParseProgram()
	if len(ctx.Errors) > 0 {
		var msgs []string
		for _, e := range ctx.Errors {
			msgs = append(msgs, e.Error())
		}
		t.Fatalf("parsing failed:\n%s\ninput:\n%s", strings.Join(msgs, "\n"), input)
	}
	return Print(program)
}

func expectRuby(t *testing.T, input, want string) {
	t.Helper()
	got := printSource(t, input)
	if got != want {
		t.Errorf("ruby output mismatch\n--- want ---\n%s\n--- got ---\n%s", want, got)
	}
}

func TestPrint_LiteralsAndAssignments(t *testing.T) {
	input := `x: Integer = 1 + 2
pi = 3.14
whole = 2.0
name = "truby"
mode = :asc
flag = true
nothing = nil
neg = -5
`
	want := `x = 1 + 2
pi = 3.14
whole = 2.0
name = "truby"
mode = :asc
flag = true
nothing = nil
neg = -5
`
	expectRuby(t, input, want)
}

func TestPrint_StringEscapes(t *testing.T) {
	input := `msg = "line one\nsays \"hi\""`
	want := "msg = \"line one\\nsays \\\"hi\\\"\"\n"
	expectRuby(t, input, want)
}

func TestPrint_DefDropsAnnotations(t *testing.T) {
	input := `def add(a: Integer, b: Integer): Integer
  return a + b
end`
	want := `def add(a, b)
  return a + b
end
`
	expectRuby(t, input, want)
}

func TestPrint_ZeroParamDefHasNoParens(t *testing.T) {
	input := `def ping
  "pong"
end`
	want := `def ping
  "pong"
end
`
	expectRuby(t, input, want)
}

func TestPrint_InterfaceVanishesAndImplementsIsErased(t *testing.T) {
	input := `interface Shape
  def area(): Float
end

class Circle < Base implements Shape
  def initialize(r: Float)
    @r = r
  end

  def area(): Float
    return 3.14 * @r * @r
  end
end`
	want := `class Circle < Base
  def initialize(r)
    @r = r
  end

  def area
    return 3.14 * @r * @r
  end
end
`
	expectRuby(t, input, want)
}

func TestPrint_GenericsAreErased(t *testing.T) {
	input := `def pair<T>(a: T, b: T): Array<T>
  return [a, b]
end

pair<String>("x", "y")
Stack<Integer>.new`
	want := `def pair(a, b)
  return [a, b]
end

pair("x", "y")
Stack.new
`
	expectRuby(t, input, want)
}

func TestPrint_BraceAndDoBlocks(t *testing.T) {
	input := `words.map { |w| w.length }
total = 0
[1, 2, 3].each do |n|
  total = total + n
end`
	want := `words.map { |w| w.length }
total = 0
[1, 2, 3].each do |n|
  total = total + n
end
`
	expectRuby(t, input, want)
}

func TestPrint_IfElsifElseChain(t *testing.T) {
	input := `def describe(n: Integer): String
  if n < 0
    return "negative"
  elsif n == 0
    return "zero"
  else
    return "positive"
  end
end`
	want := `def describe(n)
  if n < 0
    return "negative"
  elsif n == 0
    return "zero"
  else
    return "positive"
  end
end
`
	expectRuby(t, input, want)
}

func TestPrint_UnlessAndModifiers(t *testing.T) {
	input := `def guard(s: String | Nil): String
  return "" if s.nil?
  unless s.empty?
    return s
  end
  return "?"
end`
	want := `def guard(s)
  return "" if s.nil?
  unless s.empty?
    return s
  end
  return "?"
end
`
	expectRuby(t, input, want)
}

func TestPrint_CaseWhenElse(t *testing.T) {
	input := `case value
when Integer, Float
  puts("number")
when nil
  puts("nothing")
else
  puts("other")
end`
	want := `case value
when Integer, Float
  puts("number")
when nil
  puts("nothing")
else
  puts("other")
end
`
	expectRuby(t, input, want)
}

func TestPrint_CaseAsAssignedValue(t *testing.T) {
	input := `def label(flag: Bool): String
  msg = case flag
  when true
    "on"
  else
    "off"
  end
  return msg
end`
	want := `def label(flag)
  msg = case flag
  when true
    "on"
  else
    "off"
  end
  return msg
end
`
	expectRuby(t, input, want)
}

func TestPrint_OperatorParentheses(t *testing.T) {
	input := `result = (1 + 2) * 3 - 4 * (5 - 6)
rest = 10 - (3 - 1)
pow = 2 ** 3 ** 2
ok = a && b || !c
`
	want := `result = (1 + 2) * 3 - 4 * (5 - 6)
rest = 10 - (3 - 1)
pow = 2 ** 3 ** 2
ok = a && b || !c
`
	expectRuby(t, input, want)
}

func TestPrint_HashAndRange(t *testing.T) {
	input := `ages = { "amy" => 31, "ben" => 28 }
empty = {}
span = 1..10
(1..3).each do |i|
  puts(i)
end`
	want := `ages = { "amy" => 31, "ben" => 28 }
empty = {}
span = 1..10
(1..3).each do |i|
  puts(i)
end
`
	expectRuby(t, input, want)
}

func TestPrint_WhileWithBreakAndNext(t *testing.T) {
	input := `i = 0
while i < 10
  i = i + 1
  if i == 3
    next
  end
  if i > 5
    break
  end
end`
	want := `i = 0
while i < 10
  i = i + 1
  if i == 3
    next
  end
  if i > 5
    break
  end
end
`
	expectRuby(t, input, want)
}

func TestPrint_ModuleAndInclude(t *testing.T) {
	input := `module Greeting
  def hello(): String
    return "hi"
  end
end

class Host
  include Greeting
end`
	want := `module Greeting
  def hello
    return "hi"
  end
end

class Host
  include Greeting
end
`
	expectRuby(t, input, want)
}

func TestPrint_InstanceClassAndIndexTargets(t *testing.T) {
	input := `class Counter
  def initialize
    @count = 0
    @@total = 0
  end

  def bump(ns: Array<Integer>): Integer
    @count = @count + 1
    ns[0] = @count
    return ns[0]
  end
end`
	want := `class Counter
  def initialize
    @count = 0
    @@total = 0
  end

  def bump(ns)
    @count = @count + 1
    ns[0] = @count
    return ns[0]
  end
end
`
	expectRuby(t, input, want)
}

func TestPrint_RaiseWithModifier(t *testing.T) {
	input := `def divide(a: Integer, b: Integer): Integer
  raise "division by zero" if b == 0
  return a / b
end`
	want := `def divide(a, b)
  raise "division by zero" if b == 0
  return a / b
end
`
	expectRuby(t, input, want)
}
