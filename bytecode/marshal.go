package bytecode

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// FormatVersion is the version of the serialized bytecode format.
const FormatVersion = 1

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type codeState struct {
	Version         int           `cbor:"1,keyasint"`
	Instructions    []Instruction `cbor:"2,keyasint"`
	Constants       []int64       `cbor:"3,keyasint,omitempty"`
	VarNames        []string      `cbor:"4,keyasint,omitempty"`
	VarIDs          []uint32      `cbor:"5,keyasint,omitempty"`
	MaxRegisterUsed uint8         `cbor:"6,keyasint,omitempty"`
	Source          string        `cbor:"7,keyasint,omitempty"`
	Filename        string        `cbor:"8,keyasint,omitempty"`
}

// Marshal serializes code to canonical CBOR. Equal programs produce
// identical bytes.
func Marshal(code *Code) ([]byte, error) {
	state := codeState{
		Version:         FormatVersion,
		Instructions:    code.instructions,
		Constants:       code.constants,
		VarNames:        code.varNames,
		VarIDs:          code.varIDs,
		MaxRegisterUsed: code.maxRegisterUsed,
		Source:          code.source,
		Filename:        code.filename,
	}
	data, err := cborEncMode.Marshal(&state)
	if err != nil {
		return nil, fmt.Errorf("bytecode: marshal: %w", err)
	}
	return data, nil
}

// Unmarshal deserializes code produced by Marshal and validates it.
func Unmarshal(data []byte) (*Code, error) {
	var state codeState
	if err := cbor.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("bytecode: unmarshal: %w", err)
	}
	if state.Version != FormatVersion {
		return nil, fmt.Errorf("bytecode: unsupported format version %d", state.Version)
	}
	code := NewCode(CodeParams{
		Instructions:    state.Instructions,
		Constants:       state.Constants,
		VarNames:        state.VarNames,
		VarIDs:          state.VarIDs,
		MaxRegisterUsed: state.MaxRegisterUsed,
		Source:          state.Source,
		Filename:        state.Filename,
	})
	if err := Validate(code); err != nil {
		return nil, fmt.Errorf("bytecode: invalid program: %w", err)
	}
	return code, nil
}
