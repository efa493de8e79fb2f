package bytecode

import (
	"github.com/deepnoodle-ai/pyreg/op"
)

// Code is a compiled program. It is immutable after creation and safe for
// concurrent use.
type Code struct {
	instructions []Instruction
	constants    []int64
	varNames     []string
	varIDs       []uint32

	// varIndex maps each pooled name to its position in varNames.
	varIndex map[string]int

	maxRegisterUsed uint8
	source          string
	filename        string
}

// CodeParams contains parameters for creating a new Code.
type CodeParams struct {
	Instructions    []Instruction
	Constants       []int64
	VarNames        []string
	VarIDs          []uint32
	MaxRegisterUsed uint8
	Source          string
	Filename        string
}

// NewCode creates a new immutable Code from the given parameters.
// Input slices are copied to ensure immutability.
func NewCode(params CodeParams) *Code {
	code := &Code{
		instructions:    copySlice(params.Instructions),
		constants:       copySlice(params.Constants),
		varNames:        copySlice(params.VarNames),
		varIDs:          copySlice(params.VarIDs),
		varIndex:        make(map[string]int, len(params.VarNames)),
		maxRegisterUsed: params.MaxRegisterUsed,
		source:          params.Source,
		filename:        params.Filename,
	}
	for i, name := range code.varNames {
		if _, ok := code.varIndex[name]; !ok {
			code.varIndex[name] = i
		}
	}
	return code
}

// InstructionCount returns the number of instructions.
func (c *Code) InstructionCount() int {
	return len(c.instructions)
}

// InstructionAt returns the instruction at the given index.
func (c *Code) InstructionAt(index int) Instruction {
	return c.instructions[index]
}

// ConstantCount returns the number of constants.
func (c *Code) ConstantCount() int {
	return len(c.constants)
}

// ConstantAt returns the constant at the given index.
func (c *Code) ConstantAt(index int) int64 {
	return c.constants[index]
}

// VarNameCount returns the number of pooled variable names.
func (c *Code) VarNameCount() int {
	return len(c.varNames)
}

// VarNameAt returns the variable name at the given index.
func (c *Code) VarNameAt(index int) string {
	return c.varNames[index]
}

// VarIDAt returns the interned id paired with the variable name at the
// given index.
func (c *Code) VarIDAt(index int) uint32 {
	return c.varIDs[index]
}

// LookupVar returns the interned id of the named variable. The second
// result is false if the name is not pooled.
func (c *Code) LookupVar(name string) (uint32, bool) {
	index, ok := c.varIndex[name]
	if !ok || index >= len(c.varIDs) {
		return 0, false
	}
	return c.varIDs[index], true
}

// MaxRegisterUsed returns the highest register written by the main code.
func (c *Code) MaxRegisterUsed() uint8 {
	return c.maxRegisterUsed
}

// Source returns the program source, if it was recorded.
func (c *Code) Source() string {
	return c.source
}

// Filename returns the source filename, if it was recorded.
func (c *Code) Filename() string {
	return c.filename
}

// WithSource returns a copy of the code that records the given source and
// filename. The instruction stream is shared.
func (c *Code) WithSource(source, filename string) *Code {
	clone := *c
	clone.source = source
	clone.filename = filename
	return &clone
}

// FunctionCount returns the number of DEFINE_FUNCTION instructions.
func (c *Code) FunctionCount() int {
	count := 0
	for _, instr := range c.instructions {
		if instr.Op == op.DefineFunction {
			count++
		}
	}
	return count
}

// MainEnd returns the index of the HALT that terminates the main code, or
// -1 if there is none.
func (c *Code) MainEnd() int {
	for i, instr := range c.instructions {
		if instr.Op == op.Halt {
			return i
		}
	}
	return -1
}

func copySlice[T any](src []T) []T {
	if src == nil {
		return nil
	}
	dst := make([]T, len(src))
	copy(dst, src)
	return dst
}
