package object

import (
	"math"

	"github.com/deepnoodle-ai/pyreg/errz"
	"github.com/deepnoodle-ai/pyreg/op"
)

// BinaryOp performs a binary operation on two values, given an operator.
// Arithmetic is checked: results that do not fit in an int64 are errors
// rather than wrapping.
func BinaryOp(opType op.BinaryOpType, a, b Value) (Value, error) {
	return a.RunOperation(opType, b)
}

// UnaryOp applies a unary operator to a value.
func UnaryOp(opType op.UnaryOpType, a Value) (Value, error) {
	return a.RunUnaryOperation(opType)
}

// RunOperation applies opType with v as the left operand.
func (v Value) RunOperation(opType op.BinaryOpType, right Value) (Value, error) {
	if v.IsNone() || right.IsNone() {
		return None, errz.Newf(errz.ErrNoneOperand, "Cannot perform binary operation on None")
	}
	a, b := v.i, right.i
	switch opType {
	case op.Add:
		r := a + b
		if (a > 0 && b > 0 && r < 0) || (a < 0 && b < 0 && r >= 0) {
			return None, overflowf(a, opType, b)
		}
		return NewInt(r), nil
	case op.Subtract:
		r := a - b
		if (a >= 0 && b < 0 && r < 0) || (a < 0 && b > 0 && r >= 0) {
			return None, overflowf(a, opType, b)
		}
		return NewInt(r), nil
	case op.Multiply:
		if a == 0 || b == 0 {
			return NewInt(0), nil
		}
		r := a * b
		if r/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return None, overflowf(a, opType, b)
		}
		return NewInt(r), nil
	case op.Divide:
		if b == 0 {
			return None, divisionByZero()
		}
		if a == math.MinInt64 && b == -1 {
			return None, overflowf(a, opType, b)
		}
		return NewInt(a / b), nil
	case op.FloorDivide:
		if b == 0 {
			return None, divisionByZero()
		}
		if a == math.MinInt64 && b == -1 {
			return None, overflowf(a, opType, b)
		}
		q, r := a/b, a%b
		if r != 0 && (a < 0) != (b < 0) {
			q--
		}
		return NewInt(q), nil
	case op.Modulo:
		if b == 0 {
			return None, divisionByZero()
		}
		r := a % b
		if r != 0 && (a < 0) != (b < 0) {
			r += b
		}
		return NewInt(r), nil
	default:
		return None, errz.Newf(errz.ErrInvalidInstruction, "Unknown binary operator %d", opType)
	}
}

// RunUnaryOperation applies opType to v.
func (v Value) RunUnaryOperation(opType op.UnaryOpType) (Value, error) {
	if v.IsNone() {
		return None, errz.Newf(errz.ErrNoneOperand, "Cannot perform unary operation on None")
	}
	switch opType {
	case op.Identity:
		return v, nil
	case op.Negate:
		if v.i == math.MinInt64 {
			return None, errz.Newf(errz.ErrOverflow, "Integer overflow: -%d", v.i)
		}
		return NewInt(-v.i), nil
	default:
		return None, errz.Newf(errz.ErrInvalidInstruction, "Unknown unary operator %d", opType)
	}
}

func overflowf(a int64, opType op.BinaryOpType, b int64) error {
	return errz.Newf(errz.ErrOverflow, "Integer overflow: %d %s %d", a, opType, b)
}

func divisionByZero() error {
	return errz.Newf(errz.ErrDivisionByZero, "Division by zero")
}
