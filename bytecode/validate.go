package bytecode

import (
	"github.com/deepnoodle-ai/pyreg/errz"
	"github.com/deepnoodle-ai/pyreg/op"
)

// Validate checks the structural invariants of code: a HALT terminates the
// main stream, the name pools are parallel, every opcode and operator is
// known, every pool index is in range and every function body lies within
// the instruction stream. Code produced by the compiler always validates;
// this is intended for code loaded from disk.
func Validate(code *Code) error {
	if code.MainEnd() < 0 {
		return errz.Newf(errz.ErrInvalidInstruction, "bytecode has no HALT instruction")
	}
	if len(code.varNames) != len(code.varIDs) {
		return errz.Newf(errz.ErrInvalidInstruction,
			"variable name pool has %d entries but id pool has %d", len(code.varNames), len(code.varIDs))
	}
	count := code.InstructionCount()
	for ip, instr := range code.instructions {
		if op.GetInfo(instr.Op).Name == "" {
			return errz.Newf(errz.ErrInvalidInstruction, "instruction %d: unknown opcode %d", ip, instr.Op)
		}
		switch instr.Op {
		case op.LoadConst:
			if instr.ConstIndex < 0 || instr.ConstIndex >= len(code.constants) {
				return errz.Newf(errz.ErrOutOfBounds, "instruction %d: constant index %d out of bounds", ip, instr.ConstIndex)
			}
		case op.LoadVar, op.StoreVar, op.Call, op.DefineFunction:
			if instr.NameIndex < 0 || instr.NameIndex >= len(code.varNames) {
				return errz.Newf(errz.ErrOutOfBounds, "instruction %d: name index %d out of bounds", ip, instr.NameIndex)
			}
		case op.BinaryOp:
			if !instr.BinaryOp.Valid() {
				return errz.Newf(errz.ErrInvalidInstruction, "instruction %d: unknown binary operator %d", ip, instr.BinaryOp)
			}
		case op.UnaryOp:
			if !instr.UnaryOp.Valid() {
				return errz.Newf(errz.ErrInvalidInstruction, "instruction %d: unknown unary operator %d", ip, instr.UnaryOp)
			}
		}
		if instr.Op == op.DefineFunction {
			if instr.BodyStart < 0 || instr.BodyLen < 0 || instr.BodyStart+instr.BodyLen > count {
				return errz.Newf(errz.ErrOutOfBounds, "instruction %d: function body %d+%d out of bounds", ip, instr.BodyStart, instr.BodyLen)
			}
		}
	}
	return nil
}
