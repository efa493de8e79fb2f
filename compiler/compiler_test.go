package compiler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/deepnoodle-ai/pyreg/ast"
	"github.com/deepnoodle-ai/pyreg/bytecode"
	"github.com/deepnoodle-ai/pyreg/errz"
	"github.com/deepnoodle-ai/pyreg/op"
	"github.com/deepnoodle-ai/pyreg/parser"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	program, err := parser.Parse(context.Background(), input)
	require.Nil(t, err)
	return program
}

func compile(t *testing.T, input string) *bytecode.Code {
	t.Helper()
	code, err := Compile(parse(t, input))
	require.Nil(t, err)
	return code
}

func instructions(code *bytecode.Code) []bytecode.Instruction {
	result := make([]bytecode.Instruction, code.InstructionCount())
	for i := range result {
		result[i] = code.InstructionAt(i)
	}
	return result
}

func countOp(code *bytecode.Code, opcode op.Code) int {
	count := 0
	for _, instr := range instructions(code) {
		if instr.Op == opcode {
			count++
		}
	}
	return count
}

func TestCompileStatements(t *testing.T) {
	code := compile(t, "x = 10\ny = 20\nz = x + y\nprint(z)\nz")

	// x, y and z are pre-interned single letter names.
	x, y, z := uint32(23), uint32(24), uint32(25)
	require.Equal(t, []bytecode.Instruction{
		bytecode.LoadConst(0, 0),
		bytecode.StoreVar(0, x, 0),
		bytecode.LoadConst(1, 1),
		bytecode.StoreVar(1, y, 1),
		bytecode.LoadVar(2, 0, x),
		bytecode.LoadVar(3, 1, y),
		bytecode.BinaryOp(4, 2, op.Add, 3),
		bytecode.StoreVar(2, z, 4),
		bytecode.LoadVar(5, 2, z),
		bytecode.Print(5),
		bytecode.LoadVar(6, 2, z),
		bytecode.SetResult(6),
		bytecode.Halt(),
	}, instructions(code))
	require.Equal(t, uint8(6), code.MaxRegisterUsed())
	require.Equal(t, 2, code.ConstantCount())
	require.Equal(t, 3, code.VarNameCount())
}

func TestSetResultEmission(t *testing.T) {
	tests := []struct {
		input      string
		setResults int
	}{
		{"x = 1", 0},
		{"print(1)", 0},
		{"1", 1},
		{"x = 1\nprint(x)\nx\nx + 1", 2},
		{"def f(): return 1\nf()\ny = f()", 1},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			code := compile(t, tt.input)
			require.Equal(t, tt.setResults, countOp(code, op.SetResult))
		})
	}
}

func TestConstantPoolDeduplication(t *testing.T) {
	code := compile(t, "7\n7\n7\n7")
	require.Equal(t, 1, code.ConstantCount())
	require.Equal(t, int64(7), code.ConstantAt(0))
	require.Equal(t, 4, countOp(code, op.LoadConst))
	for _, instr := range instructions(code) {
		if instr.Op == op.LoadConst {
			require.Equal(t, 0, instr.ConstIndex)
		}
	}
}

func TestUnaryAndBinary(t *testing.T) {
	code := compile(t, "-x // +2")
	require.Equal(t, []bytecode.Instruction{
		bytecode.LoadVar(0, 0, 23),
		bytecode.UnaryOp(1, op.Negate, 0),
		bytecode.LoadConst(2, 0),
		bytecode.UnaryOp(3, op.Identity, 2),
		bytecode.BinaryOp(4, 1, op.FloorDivide, 3),
		bytecode.SetResult(4),
		bytecode.Halt(),
	}, instructions(code))
}

func TestFunctionLayout(t *testing.T) {
	code := compile(t, "def add(a, b):\n    return a + b\nadd(10, 20)")

	c := New()
	addID := c.Interner().Intern("add")
	param0 := c.Interner().Intern("param_0")
	param1 := c.Interner().Intern("param_1")

	require.Equal(t, []bytecode.Instruction{
		bytecode.DefineFunction(0, 2, 6, 4, 4),
		bytecode.LoadConst(0, 0),
		bytecode.LoadConst(1, 1),
		bytecode.Call(0, 2, 0, 2),
		bytecode.SetResult(2),
		bytecode.Halt(),
		bytecode.LoadVar(2, 1, param0),
		bytecode.LoadVar(3, 2, param1),
		bytecode.BinaryOp(4, 2, op.Add, 3),
		bytecode.Return(true, 4),
	}, instructions(code))

	require.Equal(t, "add", code.VarNameAt(0))
	require.Equal(t, addID, code.VarIDAt(0))
	require.Equal(t, uint8(2), code.MaxRegisterUsed())
	require.Equal(t, 1, code.FunctionCount())
	require.Equal(t, 5, code.MainEnd())
	require.Nil(t, bytecode.Validate(code))
}

func TestMultipleFunctionBodies(t *testing.T) {
	input := `
def one():
    return 1

def two(x):
    y = one()
    return x + y

print(two(5))
`
	code := compile(t, input)
	require.Equal(t, 2, code.FunctionCount())

	one := code.InstructionAt(0)
	two := code.InstructionAt(1)
	require.Equal(t, op.DefineFunction, one.Op)
	require.Equal(t, op.DefineFunction, two.Op)
	require.Equal(t, "one", code.VarNameAt(one.NameIndex))
	require.Equal(t, "two", code.VarNameAt(two.NameIndex))

	haltIndex := code.MainEnd()
	require.Equal(t, haltIndex+1, one.BodyStart)
	require.Equal(t, one.BodyStart+one.BodyLen, two.BodyStart)
	require.Equal(t, code.InstructionCount(), two.BodyStart+two.BodyLen)

	// Each body ends in RETURN.
	require.Equal(t, op.Return, code.InstructionAt(two.BodyStart-1).Op)
	require.Equal(t, op.Return, code.InstructionAt(code.InstructionCount()-1).Op)
	require.Equal(t, uint8(0), one.ParamCount)
	require.Equal(t, uint8(1), two.ParamCount)
}

func TestArgumentConsolidation(t *testing.T) {
	code := compile(t, "def f(a, b): return a\nf(1, 2 + 3)")

	// Main code follows the single DEFINE_FUNCTION.
	require.Equal(t, []bytecode.Instruction{
		bytecode.LoadConst(0, 0),
		bytecode.LoadConst(1, 1),
		bytecode.LoadConst(2, 2),
		bytecode.BinaryOp(3, 1, op.Add, 2),
		bytecode.UnaryOp(4, op.Identity, 0),
		bytecode.UnaryOp(5, op.Identity, 3),
		bytecode.Call(0, 2, 4, 6),
		bytecode.SetResult(6),
		bytecode.Halt(),
	}, instructions(code)[1:code.MainEnd()+1])
}

func TestConsecutiveArgumentsNotMoved(t *testing.T) {
	code := compile(t, "def f(a, b, c): return a\nf(1, x, 3)")
	call := code.InstructionAt(4)
	require.Equal(t, op.Call, call.Op)
	require.Equal(t, uint8(3), call.ArgCount)
	require.Equal(t, uint8(0), call.FirstArgReg)
	require.Equal(t, uint8(3), call.Dest)
	require.Equal(t, 0, countOp(code, op.UnaryOp))
}

func TestCallWithoutArguments(t *testing.T) {
	code := compile(t, "def f(): return 1\nx = 5\nf()")
	call := code.InstructionAt(3)
	require.Equal(t, op.Call, call.Op)
	require.Equal(t, uint8(0), call.ArgCount)
	require.Equal(t, uint8(0), call.FirstArgReg)
	require.Equal(t, uint8(1), call.Dest)
}

func TestFunctionRegisters(t *testing.T) {
	code := compile(t, "def f(a, b, c):\n    return 1\nf(1, 2, 3)")
	def := code.InstructionAt(0)
	// Registers start after the parameters.
	require.Equal(t, bytecode.LoadConst(3, 0), code.InstructionAt(def.BodyStart))
	require.Equal(t, uint8(3), def.MaxRegisterUsed)

	// Unused parameters are still in the name pool.
	for i := 0; i < 3; i++ {
		_, ok := code.LookupVar(fmt.Sprintf("param_%d", i))
		require.True(t, ok)
	}
	_, ok := code.LookupVar("a")
	require.False(t, ok)
}

func TestParameterAssignment(t *testing.T) {
	code := compile(t, "def inc(a):\n    a = a + 1\n    return a\ninc(1)")
	def := code.InstructionAt(0)
	store := code.InstructionAt(def.BodyStart + 3)
	require.Equal(t, op.StoreVar, store.Op)
	require.Equal(t, "param_0", code.VarNameAt(store.NameIndex))
}

func TestParameterNamesOnlyMappedInsideFunction(t *testing.T) {
	code := compile(t, "def f(a): return a\na = 1\nf(a)")
	_, ok := code.LookupVar("a")
	require.True(t, ok)
	_, ok = code.LookupVar("param_0")
	require.True(t, ok)
}

func TestImplicitReturn(t *testing.T) {
	code := compile(t, "def show(x):\n    print(x)\nshow(1)")
	last := code.InstructionAt(code.InstructionCount() - 1)
	require.Equal(t, bytecode.Return(false, 0), last)

	code = compile(t, "def nothing(): return\nnothing()")
	require.Equal(t, 1, countOp(code, op.Return))
}

func TestEmptyFunctionBody(t *testing.T) {
	program := &ast.Program{Stmts: []ast.Stmt{
		&ast.FuncDef{Name: &ast.Ident{Name: "f"}},
	}}
	code, err := Compile(program)
	require.Nil(t, err)
	def := code.InstructionAt(0)
	require.Equal(t, 1, def.BodyLen)
	require.Equal(t, bytecode.Return(false, 0), code.InstructionAt(def.BodyStart))
}

func TestRecursionAllowed(t *testing.T) {
	_, err := Compile(parse(t, "def f(n): return f(n - 1)\nf(3)"))
	require.Nil(t, err)
}

func TestCallEarlierFunction(t *testing.T) {
	_, err := Compile(parse(t, "def a1(): return 1\ndef b1(): return a1()\nb1()"))
	require.Nil(t, err)
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		kind   errz.CompileErrorKind
		errMsg string
	}{
		{
			"forward reference from main",
			"f()\ndef f(): return 1",
			errz.UndefinedFunctionForwardReference,
			"CompileError: Call to undefined function 'f' (function defined later in program)",
		},
		{
			"forward reference from function",
			"def g(): return h()\ndef h(): return 1\ng()",
			errz.UndefinedFunctionForwardReference,
			"CompileError: Call to undefined function 'h' (function defined later in program)",
		},
		{
			"forward reference in argument",
			"print(1 + -f())\ndef f(): return 1",
			errz.UndefinedFunctionForwardReference,
			"CompileError: Call to undefined function 'f' (function defined later in program)",
		},
		{
			"nested function",
			"def outer():\n    def inner():\n        return 1\n    return 2\nouter()",
			errz.NestedFunction,
			"CompileError: Nested function definitions are not supported",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := Compile(parse(t, tt.input))
			require.Nil(t, code)
			require.NotNil(t, err)
			require.Equal(t, tt.errMsg, err.Error())
			var compileErr *errz.CompileError
			require.True(t, errors.As(err, &compileErr))
			require.Equal(t, tt.kind, compileErr.Kind)
		})
	}
}

func TestRedefinedFunctionKeepsEveryDefinition(t *testing.T) {
	code := compile(t, "def foo(): return 1\ndef foo(): return 2\ndef foo(): return 3\nfoo()")
	require.Equal(t, 3, code.FunctionCount())

	var starts []int
	for _, instr := range instructions(code)[:3] {
		require.Equal(t, op.DefineFunction, instr.Op)
		require.Equal(t, 0, instr.NameIndex)
		starts = append(starts, instr.BodyStart)
	}
	require.Less(t, starts[0], starts[1])
	require.Less(t, starts[1], starts[2])
	require.Nil(t, bytecode.Validate(code))
}

func TestUndeclaredFunctionCompiles(t *testing.T) {
	// Calls to names that are never defined fail at runtime instead.
	_, err := Compile(parse(t, "missing(1)"))
	require.Nil(t, err)
}

func TestRegisterLimit(t *testing.T) {
	// A chain of n literals joined by "+" uses 2n-1 registers.
	chain := func(n int) string {
		return strings.TrimSuffix(strings.Repeat("1 + ", n), " + ")
	}

	code, err := Compile(parse(t, chain(128)))
	require.Nil(t, err)
	require.Equal(t, uint8(254), code.MaxRegisterUsed())

	_, err = Compile(parse(t, chain(129)))
	require.NotNil(t, err)
	require.True(t, errors.Is(err, errz.ErrRegisterLimit))
	require.Equal(t, "CompileError: Register limit exceeded (max 256 registers)", err.Error())
}

func TestRegisterLimitIsPerFunction(t *testing.T) {
	body := strings.TrimSuffix(strings.Repeat("1 + ", 100), " + ")
	input := fmt.Sprintf("def f(): return %s\nx = %s\nf()", body, body)
	code, err := Compile(parse(t, input))
	require.Nil(t, err)
	require.Equal(t, uint8(198), code.InstructionAt(0).MaxRegisterUsed)
	require.Equal(t, uint8(199), code.MaxRegisterUsed())
}

func TestWithSource(t *testing.T) {
	source := "x = 1"
	code, err := Compile(parse(t, source), WithSource(source, "prog.py"))
	require.Nil(t, err)
	require.Equal(t, source, code.Source())
	require.Equal(t, "prog.py", code.Filename())
}

func TestSharedInterner(t *testing.T) {
	interner := NewInterner()
	_, err := Compile(parse(t, "foo = 1"), WithInterner(interner))
	require.Nil(t, err)
	code, err := Compile(parse(t, "bar = 1\nfoo = 2"), WithInterner(interner))
	require.Nil(t, err)

	fooID, ok := interner.Lookup("foo")
	require.True(t, ok)
	require.Equal(t, uint32(32), fooID)
	require.Equal(t, uint32(33), code.VarIDAt(0))
	require.Equal(t, fooID, code.VarIDAt(1))
}

func TestNilProgram(t *testing.T) {
	_, err := Compile(nil)
	require.NotNil(t, err)
}
