// Package op defines the opcodes and operator types shared by the pyreg
// compiler and register virtual machine.
package op

import "fmt"

// Code is an integer opcode that indicates an operation to execute.
type Code uint8

const (
	Invalid Code = 0

	// Load and store
	LoadConst Code = 1
	LoadVar   Code = 2
	StoreVar  Code = 3

	// Arithmetic
	BinaryOp Code = 10
	UnaryOp  Code = 11

	// Output
	Print     Code = 20
	SetResult Code = 21

	// Functions
	DefineFunction Code = 30
	Call           Code = 31
	Return         Code = 32

	// Execution
	Halt Code = 40
)

// String returns the opcode name, for example "LOAD_CONST".
func (c Code) String() string {
	if info := GetInfo(c); info.Name != "" {
		return info.Name
	}
	return fmt.Sprintf("UNKNOWN(%d)", uint8(c))
}

// BinaryOpType describes a type of binary operation, as in an operation that
// takes two operands. For example, addition, subtraction, multiplication, etc.
type BinaryOpType uint8

const (
	Add         BinaryOpType = 1
	Subtract    BinaryOpType = 2
	Multiply    BinaryOpType = 3
	Divide      BinaryOpType = 4
	FloorDivide BinaryOpType = 5
	Modulo      BinaryOpType = 6
)

// String returns a string representation of the binary operation.
// For example "+" for addition.
func (bop BinaryOpType) String() string {
	switch bop {
	case Add:
		return "+"
	case Subtract:
		return "-"
	case Multiply:
		return "*"
	case Divide:
		return "/"
	case FloorDivide:
		return "//"
	case Modulo:
		return "%"
	default:
		return ""
	}
}

// Valid reports whether bop is one of the defined binary operations.
func (bop BinaryOpType) Valid() bool {
	return bop >= Add && bop <= Modulo
}

// UnaryOpType describes an operation on a single operand.
type UnaryOpType uint8

const (
	Negate   UnaryOpType = 1
	Identity UnaryOpType = 2
)

// String returns "-" for negation and "+" for identity.
func (uop UnaryOpType) String() string {
	switch uop {
	case Negate:
		return "-"
	case Identity:
		return "+"
	default:
		return ""
	}
}

// Valid reports whether uop is one of the defined unary operations.
func (uop UnaryOpType) Valid() bool {
	return uop == Negate || uop == Identity
}

// Info contains information about an opcode.
type Info struct {
	Code Code
	Name string
	// OperandCount is the number of fields the instruction carries.
	OperandCount int
	// WritesRegister is true when the instruction writes a destination
	// register.
	WritesRegister bool
}

var infos = make([]Info, 256)

func init() {
	type opInfo struct {
		op     Code
		name   string
		count  int
		writes bool
	}
	ops := []opInfo{
		{BinaryOp, "BINARY_OP", 4, true},
		{Call, "CALL", 4, true},
		{DefineFunction, "DEFINE_FUNCTION", 5, false},
		{Halt, "HALT", 0, false},
		{LoadConst, "LOAD_CONST", 2, true},
		{LoadVar, "LOAD_VAR", 3, true},
		{Print, "PRINT", 1, false},
		{Return, "RETURN", 2, false},
		{SetResult, "SET_RESULT", 1, false},
		{StoreVar, "STORE_VAR", 3, false},
		{UnaryOp, "UNARY_OP", 3, true},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Name:           o.name,
			Code:           o.op,
			OperandCount:   o.count,
			WritesRegister: o.writes,
		}
	}
}

// GetInfo returns information about the given opcode.
func GetInfo(op Code) Info {
	return infos[op]
}

// Codes returns every defined opcode in ascending order.
func Codes() []Code {
	var codes []Code
	for _, info := range infos {
		if info.Name != "" {
			codes = append(codes, info.Code)
		}
	}
	return codes
}
