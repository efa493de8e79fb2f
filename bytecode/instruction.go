package bytecode

import (
	"fmt"

	"github.com/deepnoodle-ai/pyreg/op"
)

// Instruction is a single register machine instruction. Which fields are
// meaningful depends on Op; use the constructor functions to build them.
type Instruction struct {
	Op op.Code `cbor:"1,keyasint"`

	// Dest is the destination register for LoadConst, LoadVar, BinaryOp,
	// UnaryOp and Call.
	Dest uint8 `cbor:"2,keyasint,omitempty"`
	// Src is the source register for StoreVar, Print, SetResult and Return,
	// and the operand register for UnaryOp.
	Src uint8 `cbor:"3,keyasint,omitempty"`
	// Left and Right are the operand registers for BinaryOp.
	Left  uint8 `cbor:"4,keyasint,omitempty"`
	Right uint8 `cbor:"5,keyasint,omitempty"`

	BinaryOp op.BinaryOpType `cbor:"6,keyasint,omitempty"`
	UnaryOp  op.UnaryOpType  `cbor:"7,keyasint,omitempty"`

	// ConstIndex indexes the constant pool.
	ConstIndex int `cbor:"8,keyasint,omitempty"`
	// NameIndex indexes the variable name pool. For DefineFunction and Call
	// it names the function.
	NameIndex int `cbor:"9,keyasint,omitempty"`
	// VarID is the interned id of the variable named by NameIndex.
	VarID uint32 `cbor:"10,keyasint,omitempty"`

	ParamCount      uint8 `cbor:"11,keyasint,omitempty"`
	BodyStart       int   `cbor:"12,keyasint,omitempty"`
	BodyLen         int   `cbor:"13,keyasint,omitempty"`
	MaxRegisterUsed uint8 `cbor:"14,keyasint,omitempty"`

	ArgCount    uint8 `cbor:"15,keyasint,omitempty"`
	FirstArgReg uint8 `cbor:"16,keyasint,omitempty"`

	HasValue bool `cbor:"17,keyasint,omitempty"`
}

// LoadConst loads constants[constIndex] into dest.
func LoadConst(dest uint8, constIndex int) Instruction {
	return Instruction{Op: op.LoadConst, Dest: dest, ConstIndex: constIndex}
}

// LoadVar loads the variable with the given id into dest.
func LoadVar(dest uint8, nameIndex int, varID uint32) Instruction {
	return Instruction{Op: op.LoadVar, Dest: dest, NameIndex: nameIndex, VarID: varID}
}

// StoreVar stores src into the variable with the given id.
func StoreVar(nameIndex int, varID uint32, src uint8) Instruction {
	return Instruction{Op: op.StoreVar, NameIndex: nameIndex, VarID: varID, Src: src}
}

// BinaryOp computes left <binop> right into dest.
func BinaryOp(dest, left uint8, binop op.BinaryOpType, right uint8) Instruction {
	return Instruction{Op: op.BinaryOp, Dest: dest, Left: left, BinaryOp: binop, Right: right}
}

// UnaryOp computes <unop> operand into dest.
func UnaryOp(dest uint8, unop op.UnaryOpType, operand uint8) Instruction {
	return Instruction{Op: op.UnaryOp, Dest: dest, UnaryOp: unop, Src: operand}
}

// Print appends the value of src and a newline to the output buffer.
func Print(src uint8) Instruction {
	return Instruction{Op: op.Print, Src: src}
}

// SetResult records the value of src as the program result.
func SetResult(src uint8) Instruction {
	return Instruction{Op: op.SetResult, Src: src}
}

// Halt stops execution.
func Halt() Instruction {
	return Instruction{Op: op.Halt}
}

// DefineFunction registers a function whose body begins at the absolute
// instruction index bodyStart.
func DefineFunction(nameIndex int, paramCount uint8, bodyStart, bodyLen int, maxRegisterUsed uint8) Instruction {
	return Instruction{
		Op:              op.DefineFunction,
		NameIndex:       nameIndex,
		ParamCount:      paramCount,
		BodyStart:       bodyStart,
		BodyLen:         bodyLen,
		MaxRegisterUsed: maxRegisterUsed,
	}
}

// Call invokes the named function with argCount arguments held in the
// contiguous registers starting at firstArgReg, writing the result to dest.
func Call(nameIndex int, argCount, firstArgReg, dest uint8) Instruction {
	return Instruction{
		Op:          op.Call,
		NameIndex:   nameIndex,
		ArgCount:    argCount,
		FirstArgReg: firstArgReg,
		Dest:        dest,
	}
}

// Return leaves the current function. When hasValue is false the caller
// receives None and src is ignored.
func Return(hasValue bool, src uint8) Instruction {
	return Instruction{Op: op.Return, HasValue: hasValue, Src: src}
}

// String returns a compact assembly-like rendering of the instruction.
func (i Instruction) String() string {
	switch i.Op {
	case op.LoadConst:
		return fmt.Sprintf("%s r%d, const[%d]", i.Op, i.Dest, i.ConstIndex)
	case op.LoadVar:
		return fmt.Sprintf("%s r%d, name[%d] (id %d)", i.Op, i.Dest, i.NameIndex, i.VarID)
	case op.StoreVar:
		return fmt.Sprintf("%s name[%d] (id %d), r%d", i.Op, i.NameIndex, i.VarID, i.Src)
	case op.BinaryOp:
		return fmt.Sprintf("%s r%d, r%d %s r%d", i.Op, i.Dest, i.Left, i.BinaryOp, i.Right)
	case op.UnaryOp:
		return fmt.Sprintf("%s r%d, %sr%d", i.Op, i.Dest, i.UnaryOp, i.Src)
	case op.Print, op.SetResult:
		return fmt.Sprintf("%s r%d", i.Op, i.Src)
	case op.DefineFunction:
		return fmt.Sprintf("%s name[%d], params=%d, body=%d+%d, max_reg=%d",
			i.Op, i.NameIndex, i.ParamCount, i.BodyStart, i.BodyLen, i.MaxRegisterUsed)
	case op.Call:
		return fmt.Sprintf("%s r%d, name[%d], args=%d@r%d", i.Op, i.Dest, i.NameIndex, i.ArgCount, i.FirstArgReg)
	case op.Return:
		if i.HasValue {
			return fmt.Sprintf("%s r%d", i.Op, i.Src)
		}
		return i.Op.String()
	default:
		return i.Op.String()
	}
}
