package vm

import (
	"github.com/deepnoodle-ai/pyreg/errz"
	"github.com/deepnoodle-ai/pyreg/object"
)

// NumRegisters is the size of the register file.
const NumRegisters = 256

// validity is a 256-bit set recording which registers hold a value.
type validity [NumRegisters / 64]uint64

func (v *validity) has(reg uint8) bool {
	return v[reg/64]&(1<<(reg%64)) != 0
}

func (v *validity) add(reg uint8) {
	v[reg/64] |= 1 << (reg % 64)
}

// registerFile holds register values alongside a validity bitmap. The zero
// value of a slot is never returned as data: reading a register that has not
// been written is an error.
type registerFile struct {
	values [NumRegisters]object.Value
	valid  validity
}

func (r *registerFile) get(reg uint8) (object.Value, error) {
	if !r.valid.has(reg) {
		return object.None, errz.Newf(errz.ErrEmptyRegister, "Register %d is empty", reg)
	}
	return r.values[reg], nil
}

func (r *registerFile) set(reg uint8, value object.Value) {
	r.values[reg] = value
	r.valid.add(reg)
}

// save copies registers 0 through maxReg along with the whole bitmap.
func (r *registerFile) save(maxReg uint8) savedRegisters {
	values := make([]object.Value, int(maxReg)+1)
	copy(values, r.values[:len(values)])
	return savedRegisters{values: values, valid: r.valid}
}

// restore writes back the saved registers and replaces the bitmap verbatim.
func (r *registerFile) restore(saved savedRegisters) {
	copy(r.values[:len(saved.values)], saved.values)
	r.valid = saved.valid
}

func (r *registerFile) reset() {
	*r = registerFile{}
}

type savedRegisters struct {
	values []object.Value
	valid  validity
}
