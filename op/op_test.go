package op

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo(DefineFunction)
	require.Equal(t, "DEFINE_FUNCTION", info.Name)
	require.Equal(t, 5, info.OperandCount)
	require.Equal(t, DefineFunction, info.Code)
	require.False(t, info.WritesRegister)
}

func TestGetInfoAllOpcodes(t *testing.T) {
	tests := []struct {
		code     Code
		name     string
		operands int
		writes   bool
	}{
		{LoadConst, "LOAD_CONST", 2, true},
		{LoadVar, "LOAD_VAR", 3, true},
		{StoreVar, "STORE_VAR", 3, false},
		{BinaryOp, "BINARY_OP", 4, true},
		{UnaryOp, "UNARY_OP", 3, true},
		{Print, "PRINT", 1, false},
		{SetResult, "SET_RESULT", 1, false},
		{Halt, "HALT", 0, false},
		{DefineFunction, "DEFINE_FUNCTION", 5, false},
		{Call, "CALL", 4, true},
		{Return, "RETURN", 2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := GetInfo(tt.code)
			require.Equal(t, tt.name, info.Name)
			require.Equal(t, tt.operands, info.OperandCount)
			require.Equal(t, tt.writes, info.WritesRegister)
			require.Equal(t, tt.name, tt.code.String())
		})
	}
	require.Len(t, Codes(), len(tests))
}

func TestUnknownCode(t *testing.T) {
	require.Equal(t, "UNKNOWN(200)", Code(200).String())
	require.Equal(t, "", GetInfo(Invalid).Name)
}

func TestOperatorStrings(t *testing.T) {
	require.Equal(t, "+", Add.String())
	require.Equal(t, "-", Subtract.String())
	require.Equal(t, "*", Multiply.String())
	require.Equal(t, "/", Divide.String())
	require.Equal(t, "//", FloorDivide.String())
	require.Equal(t, "%", Modulo.String())
	require.Equal(t, "", BinaryOpType(99).String())
	require.Equal(t, "-", Negate.String())
	require.Equal(t, "+", Identity.String())
	require.True(t, Modulo.Valid())
	require.False(t, BinaryOpType(0).Valid())
	require.False(t, UnaryOpType(3).Valid())
}
