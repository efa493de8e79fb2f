package parser

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/deepnoodle-ai/pyreg/ast"
	"github.com/deepnoodle-ai/pyreg/errz"
	"github.com/deepnoodle-ai/pyreg/op"
	"github.com/stretchr/testify/require"
)

func TestStatements(t *testing.T) {
	program, err := Parse(context.Background(), "x = 10\nprint(x)\nx + 1\n")
	require.Nil(t, err)
	require.Len(t, program.Stmts, 3)

	assign, ok := program.Stmts[0].(*ast.Assign)
	require.True(t, ok)
	require.Equal(t, "x", assign.Name.Name)
	require.Equal(t, int64(10), assign.Value.(*ast.Int).Value)

	print, ok := program.Stmts[1].(*ast.Print)
	require.True(t, ok)
	require.Equal(t, "x", print.Value.(*ast.Ident).Name)

	expr, ok := program.Stmts[2].(*ast.ExprStmt)
	require.True(t, ok)
	infix := expr.X.(*ast.Infix)
	require.Equal(t, op.Add, infix.Op)
}

func TestPrecedence(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"1 * 2 + 3", "((1 * 2) + 3)"},
		{"10 - 3 - 2", "((10 - 3) - 2)"},
		{"100 / 10 / 5", "((100 / 10) / 5)"},
		{"7 // 2 % 3", "((7 // 2) % 3)"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"-2 * 3", "((-2) * 3)"},
		{"--x", "(-(-x))"},
		{"+x - -y", "((+x) - (-y))"},
		{"f(1, 2 + 3) * g()", "(f(1, (2 + 3)) * g())"},
		{"-f(x)", "(-f(x))"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			program, err := Parse(context.Background(), tt.input)
			require.Nil(t, err)
			require.Len(t, program.Stmts, 1)
			require.Equal(t, tt.expected, program.Stmts[0].String())
		})
	}
}

func TestFunctionDefinition(t *testing.T) {
	input := `
def add(a, b):
    c = a + b
    return c

result = add(1, 2)
`
	program, err := Parse(context.Background(), input)
	require.Nil(t, err)
	require.Len(t, program.Stmts, 2)

	fn, ok := program.Stmts[0].(*ast.FuncDef)
	require.True(t, ok)
	require.Equal(t, "add", fn.Name.Name)
	require.Equal(t, []string{"a", "b"}, fn.ParamNames())
	require.Len(t, fn.Body, 2)
	require.Equal(t, "return c", fn.Body[1].String())

	assign := program.Stmts[1].(*ast.Assign)
	require.Equal(t, "add(1, 2)", assign.Value.String())
}

func TestSingleLineFunction(t *testing.T) {
	program, err := Parse(context.Background(), "def add(a,b): return a+b\nadd(10,20)")
	require.Nil(t, err)
	require.Len(t, program.Stmts, 2)
	fn := program.Stmts[0].(*ast.FuncDef)
	require.Len(t, fn.Body, 1)
	require.Equal(t, "return (a + b)", fn.Body[0].String())
	require.Equal(t, "add(10, 20)", program.Stmts[1].String())
}

func TestBareReturn(t *testing.T) {
	program, err := Parse(context.Background(), "def f():\n  return\nf()")
	require.Nil(t, err)
	fn := program.Stmts[0].(*ast.FuncDef)
	ret := fn.Body[0].(*ast.Return)
	require.Nil(t, ret.Value)
}

func TestNestedFunctionParses(t *testing.T) {
	input := "def outer():\n  def inner():\n    return 1\n  return inner()\nouter()"
	program, err := Parse(context.Background(), input)
	require.Nil(t, err)
	require.Len(t, program.Stmts, 2)
	outer := program.Stmts[0].(*ast.FuncDef)
	require.Len(t, outer.Body, 2)
	inner := outer.Body[0].(*ast.FuncDef)
	require.Equal(t, "inner", inner.Name.Name)
	require.Len(t, inner.Body, 1)
}

func TestBlankLinesInBody(t *testing.T) {
	input := "def f(x):\n\n    y = x\n\n    return y\nf(1)"
	program, err := Parse(context.Background(), input)
	require.Nil(t, err)
	require.Len(t, program.Stmts, 2)
	require.Len(t, program.Stmts[0].(*ast.FuncDef).Body, 2)
}

func TestEmptyProgram(t *testing.T) {
	program, err := Parse(context.Background(), "\n\n  \n")
	require.Nil(t, err)
	require.Len(t, program.Stmts, 0)
}

func TestErrors(t *testing.T) {
	testCase := []struct {
		name   string
		input  string
		errMsg string
	}{
		{"missing expression", "x = ", "ParseError at 1:5: Expected expression"},
		{"unclosed paren", "(1 + 2", "ParseError at 1:7: Expected ')' in parenthesized expression"},
		{"print without paren", "print 1", "ParseError at 1:7: Expected '(' in print statement"},
		{"print unclosed", "print(1", "ParseError at 1:8: Expected ')' in print statement"},
		{"call unclosed", "f(1, 2", "ParseError at 1:7: Expected ')' in function call"},
		{"def missing name", "def (x):\n  return x", "ParseError at 1:5: Expected identifier in function definition"},
		{"def missing colon", "def f(x)\n  return x", "ParseError at 1:9: Expected ':' in function definition"},
		{"bad parameter", "def f(1):\n  return 1", "ParseError at 1:7: Expected identifier in function parameter list"},
		{"duplicate parameter", "def f(a, a):\n  return a", "ParseError at 1:10: Duplicate parameter 'a' in function definition"},
		{"trailing tokens", "x = 1 2", "ParseError at 1:7: Expected newline after statement"},
		{"operator only", "*", "ParseError at 1:1: Expected expression"},
		{"def at eof", "def f():", "ParseError at 1:9: Expected newline in function definition"},
	}
	for _, tc := range testCase {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(context.Background(), tc.input)
			require.NotNil(t, err)
			require.Equal(t, tc.errMsg, err.Error())
			var parseErr *errz.ParseError
			require.True(t, errors.As(err, &parseErr))
		})
	}
}

func TestLexErrorPassesThrough(t *testing.T) {
	_, err := Parse(context.Background(), "x = 1 @ 2")
	require.NotNil(t, err)
	var lexErr *errz.LexError
	require.True(t, errors.As(err, &lexErr))
	require.Equal(t, "LexError at 1:7: Unexpected character '@'", err.Error())
}

func TestMaxDepth(t *testing.T) {
	input := strings.Repeat("(", 20) + "1" + strings.Repeat(")", 20)
	_, err := Parse(context.Background(), input)
	require.Nil(t, err)

	_, err = Parse(context.Background(), input, WithMaxDepth(10))
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "Maximum nesting depth exceeded")
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Parse(ctx, "1")
	require.ErrorIs(t, err, context.Canceled)
}
