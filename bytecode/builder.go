package bytecode

import (
	"github.com/deepnoodle-ai/pyreg/op"
)

// Builder assembles a Code. Constants and variable names are deduplicated
// as they are added. A Builder is not safe for concurrent use.
type Builder struct {
	instructions    []Instruction
	trailer         []Instruction
	constants       []int64
	varNames        []string
	varIDs          []uint32
	maxRegisterUsed uint8
	source          string
	filename        string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// NewBuilderWithPools returns a Builder whose pools start with the given
// contents. varNames and varIDs must be parallel.
func NewBuilderWithPools(constants []int64, varNames []string, varIDs []uint32) *Builder {
	return &Builder{
		constants: copySlice(constants),
		varNames:  copySlice(varNames),
		varIDs:    copySlice(varIDs),
	}
}

// AddConstant returns the pool index of value, appending it if it is not
// already present.
func (b *Builder) AddConstant(value int64) int {
	for i, c := range b.constants {
		if c == value {
			return i
		}
	}
	b.constants = append(b.constants, value)
	return len(b.constants) - 1
}

// AddVarName returns the pool index of name, appending it with the given
// interned id if it is not already present.
func (b *Builder) AddVarName(name string, id uint32) int {
	for i, n := range b.varNames {
		if n == name {
			return i
		}
	}
	b.varNames = append(b.varNames, name)
	b.varIDs = append(b.varIDs, id)
	return len(b.varNames) - 1
}

// EnsureVarName adds name to the pool without emitting an instruction.
func (b *Builder) EnsureVarName(name string, id uint32) {
	b.AddVarName(name, id)
}

// Emit appends an instruction and returns its index in the stream.
func (b *Builder) Emit(instr Instruction) int {
	b.instructions = append(b.instructions, instr)
	return len(b.instructions) - 1
}

// EmitLoadConst pools value and loads it into dest.
func (b *Builder) EmitLoadConst(dest uint8, value int64) int {
	return b.Emit(LoadConst(dest, b.AddConstant(value)))
}

// EmitLoadVar pools name and loads the variable into dest.
func (b *Builder) EmitLoadVar(dest uint8, name string, id uint32) int {
	return b.Emit(LoadVar(dest, b.AddVarName(name, id), id))
}

// EmitStoreVar pools name and stores src into the variable.
func (b *Builder) EmitStoreVar(name string, id uint32, src uint8) int {
	return b.Emit(StoreVar(b.AddVarName(name, id), id, src))
}

// EmitBinaryOp emits a binary operation.
func (b *Builder) EmitBinaryOp(dest, left uint8, binop op.BinaryOpType, right uint8) int {
	return b.Emit(BinaryOp(dest, left, binop, right))
}

// EmitUnaryOp emits a unary operation.
func (b *Builder) EmitUnaryOp(dest uint8, unop op.UnaryOpType, operand uint8) int {
	return b.Emit(UnaryOp(dest, unop, operand))
}

// EmitPrint emits a print of src.
func (b *Builder) EmitPrint(src uint8) int {
	return b.Emit(Print(src))
}

// EmitSetResult emits a result update from src.
func (b *Builder) EmitSetResult(src uint8) int {
	return b.Emit(SetResult(src))
}

// EmitDefineFunction pools the function name and emits its definition.
func (b *Builder) EmitDefineFunction(name string, id uint32, paramCount uint8, bodyStart, bodyLen int, maxRegisterUsed uint8) int {
	return b.Emit(DefineFunction(b.AddVarName(name, id), paramCount, bodyStart, bodyLen, maxRegisterUsed))
}

// EmitCall pools the function name and emits a call.
func (b *Builder) EmitCall(name string, id uint32, argCount, firstArgReg, dest uint8) int {
	return b.Emit(Call(b.AddVarName(name, id), argCount, firstArgReg, dest))
}

// EmitReturn emits a function return.
func (b *Builder) EmitReturn(hasValue bool, src uint8) int {
	return b.Emit(Return(hasValue, src))
}

// Len returns the number of instructions emitted so far.
func (b *Builder) Len() int {
	return len(b.instructions)
}

// Instructions returns a copy of the instructions emitted so far.
func (b *Builder) Instructions() []Instruction {
	return copySlice(b.instructions)
}

// Take returns the instructions emitted so far and clears the stream. The
// pools are kept.
func (b *Builder) Take() []Instruction {
	instrs := b.instructions
	b.instructions = nil
	return instrs
}

// Append adds already-built instructions to the stream.
func (b *Builder) Append(instrs ...Instruction) {
	b.instructions = append(b.instructions, instrs...)
}

// AppendAfterHalt queues instructions to be placed after the HALT that
// Build appends. Function bodies live here.
func (b *Builder) AppendAfterHalt(instrs ...Instruction) {
	b.trailer = append(b.trailer, instrs...)
}

// Pools returns copies of the constant pool and the parallel variable name
// and id pools.
func (b *Builder) Pools() ([]int64, []string, []uint32) {
	return copySlice(b.constants), copySlice(b.varNames), copySlice(b.varIDs)
}

// SetMaxRegisterUsed records the highest register used by the main code.
func (b *Builder) SetMaxRegisterUsed(reg uint8) {
	b.maxRegisterUsed = reg
}

// SetSource records the program source and filename on the built Code.
func (b *Builder) SetSource(source, filename string) {
	b.source = source
	b.filename = filename
}

// Build appends HALT, then any instructions queued with AppendAfterHalt,
// and returns the immutable result. The Builder should not be reused.
func (b *Builder) Build() *Code {
	instrs := make([]Instruction, 0, len(b.instructions)+1+len(b.trailer))
	instrs = append(instrs, b.instructions...)
	instrs = append(instrs, Halt())
	instrs = append(instrs, b.trailer...)
	return NewCode(CodeParams{
		Instructions:    instrs,
		Constants:       b.constants,
		VarNames:        b.varNames,
		VarIDs:          b.varIDs,
		MaxRegisterUsed: b.maxRegisterUsed,
		Source:          b.source,
		Filename:        b.filename,
	})
}
