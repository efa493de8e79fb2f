package errz

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorStrings(t *testing.T) {
	lexErr := &LexError{Message: "Unexpected character '$'", Location: SourceLocation{Line: 2, Column: 5}}
	require.Equal(t, "LexError at 2:5: Unexpected character '$'", lexErr.Error())

	parseErr := &ParseError{Message: "Expected expression", Location: SourceLocation{Line: 1, Column: 3}}
	require.Equal(t, "ParseError at 1:3: Expected expression", parseErr.Error())

	compileErr := NewCompileError(NestedFunction, "Nested function definitions are not supported")
	require.Equal(t, "CompileError: Nested function definitions are not supported", compileErr.Error())

	runtimeErr := NewRuntimeError(7, Newf(ErrDivisionByZero, "Division by zero"))
	require.Equal(t, "RuntimeError at instruction 7: Division by zero", runtimeErr.Error())
}

func TestSentinels(t *testing.T) {
	runtimeErr := NewRuntimeError(0, Newf(ErrOverflow, "Integer overflow: %d + %d", 1, 2))
	require.True(t, errors.Is(runtimeErr, ErrOverflow))
	require.False(t, errors.Is(runtimeErr, ErrDivisionByZero))

	compileErr := NewCompileError(UndefinedFunctionForwardReference, "Call to undefined function 'f'")
	require.True(t, errors.Is(compileErr, ErrForwardReference))
	require.Equal(t, "UndefinedFunctionForwardReference", compileErr.Kind.String())

	parseErr := &ParseError{Message: "x"}
	require.True(t, errors.Is(parseErr, ErrSyntax))
}

func TestKindOf(t *testing.T) {
	testCase := []struct {
		name string
		err  error
		kind ErrorKind
		ok   bool
	}{
		{"lex", &LexError{}, ErrLex, true},
		{"parse", &ParseError{}, ErrParse, true},
		{"compile", &CompileError{}, ErrCompile, true},
		{"runtime", &RuntimeError{}, ErrRuntime, true},
		{"other", errors.New("boom"), 0, false},
	}
	for _, tc := range testCase {
		t.Run(tc.name, func(t *testing.T) {
			kind, ok := KindOf(tc.err)
			require.Equal(t, tc.ok, ok)
			if ok {
				require.Equal(t, tc.kind, kind)
			}
		})
	}
}

func TestFriendlyErrorMessage(t *testing.T) {
	source := "x = 1\ny = $\n"
	err := &LexError{Message: "Unexpected character '$'", Location: SourceLocation{Line: 2, Column: 5}}
	require.Equal(t, "LexError at 2:5: Unexpected character '$'\n | y = $\n |     ^\n",
		FriendlyErrorMessage(err, source))

	runtimeErr := &RuntimeError{
		Message:          "Division by zero",
		InstructionIndex: 9,
		Stack:            []StackFrame{{Function: "div", CallSite: 4}},
	}
	require.Equal(t,
		"RuntimeError at instruction 9: Division by zero\nStack trace:\n  in div (called at instruction 4)\n",
		FriendlyErrorMessage(runtimeErr, ""))

	require.Equal(t, "boom\n", FriendlyErrorMessage(errors.New("boom"), ""))
}
