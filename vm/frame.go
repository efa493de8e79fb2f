package vm

import (
	"github.com/deepnoodle-ai/pyreg/object"
)

// function is the metadata recorded by a DEFINE_FUNCTION instruction.
type function struct {
	name            string
	paramCount      uint8
	bodyStart       int
	bodyLen         int
	maxRegisterUsed uint8
}

// frame is an active function call.
type frame struct {
	fn *function

	// returnAddr is the instruction after the CALL.
	returnAddr int

	// callSiteIP is the index of the CALL instruction (for stack traces).
	callSiteIP int

	// dest is the caller register that receives the return value.
	dest uint8

	// locals maps interned variable ids to this call's local values.
	// Parameters are stored here as param_<i>.
	locals map[uint32]object.Value

	// saved holds the caller's registers 0..fn.maxRegisterUsed and its
	// validity bitmap.
	saved savedRegisters
}

func (f *frame) lookup(id uint32) (object.Value, bool) {
	value, ok := f.locals[id]
	return value, ok
}

func (f *frame) store(id uint32, value object.Value) {
	f.locals[id] = value
}
