// Package dis supports analysis of pyreg bytecode by disassembling it.
package dis

import (
	"fmt"
	"io"
	"strings"

	"github.com/deepnoodle-ai/pyreg/bytecode"
	"github.com/deepnoodle-ai/pyreg/internal/table"
	"github.com/deepnoodle-ai/pyreg/op"
	"github.com/fatih/color"
)

// Instruction is a single bytecode instruction annotated for display.
type Instruction struct {
	Offset   int     `json:"offset"`
	Name     string  `json:"opcode"`
	Opcode   op.Code `json:"-"`
	Operands string  `json:"operands"`
	// Annotation resolves pool indices: constant values, variable names,
	// operator symbols and function layouts.
	Annotation string `json:"info,omitempty"`
	// Function names the function whose body contains the instruction. It
	// is empty for main code.
	Function string `json:"function,omitempty"`
	Constant any    `json:"-"`
}

// Disassemble returns an annotated listing of every instruction in code.
func Disassemble(code *bytecode.Code) ([]Instruction, error) {
	owners, err := functionOwners(code)
	if err != nil {
		return nil, err
	}
	instructions := make([]Instruction, 0, code.InstructionCount())
	for offset := 0; offset < code.InstructionCount(); offset++ {
		instr := code.InstructionAt(offset)
		out := Instruction{
			Offset:   offset,
			Name:     instr.Op.String(),
			Opcode:   instr.Op,
			Operands: operands(instr),
			Function: owners[offset],
		}
		switch instr.Op {
		case op.LoadConst:
			if instr.ConstIndex < 0 || instr.ConstIndex >= code.ConstantCount() {
				return nil, fmt.Errorf("constant index out of range: %d", instr.ConstIndex)
			}
			value := code.ConstantAt(instr.ConstIndex)
			out.Constant = value
			out.Annotation = fmt.Sprintf("%d", value)
		case op.LoadVar, op.StoreVar:
			name, err := varName(code, instr.NameIndex)
			if err != nil {
				return nil, err
			}
			out.Annotation = name
		case op.BinaryOp:
			out.Annotation = fmt.Sprintf("r%d %s r%d", instr.Left, instr.BinaryOp, instr.Right)
		case op.UnaryOp:
			if instr.UnaryOp == op.Identity {
				out.Annotation = fmt.Sprintf("r%d", instr.Src)
			} else {
				out.Annotation = fmt.Sprintf("%sr%d", instr.UnaryOp, instr.Src)
			}
		case op.DefineFunction:
			name, err := varName(code, instr.NameIndex)
			if err != nil {
				return nil, err
			}
			out.Annotation = fmt.Sprintf("%s/%d @ %d..%d",
				name, instr.ParamCount, instr.BodyStart, instr.BodyStart+instr.BodyLen)
		case op.Call:
			name, err := varName(code, instr.NameIndex)
			if err != nil {
				return nil, err
			}
			out.Annotation = fmt.Sprintf("%s(%s)", name, argRegisters(instr))
		}
		instructions = append(instructions, out)
	}
	return instructions, nil
}

func functionOwners(code *bytecode.Code) (map[int]string, error) {
	owners := map[int]string{}
	for i := 0; i < code.InstructionCount(); i++ {
		instr := code.InstructionAt(i)
		if instr.Op != op.DefineFunction {
			continue
		}
		name, err := varName(code, instr.NameIndex)
		if err != nil {
			return nil, err
		}
		for offset := instr.BodyStart; offset < instr.BodyStart+instr.BodyLen; offset++ {
			owners[offset] = name
		}
	}
	return owners, nil
}

func varName(code *bytecode.Code, index int) (string, error) {
	if index < 0 || index >= code.VarNameCount() {
		return "", fmt.Errorf("name index out of range: %d", index)
	}
	return code.VarNameAt(index), nil
}

func argRegisters(instr bytecode.Instruction) string {
	regs := make([]string, instr.ArgCount)
	for i := range regs {
		regs[i] = fmt.Sprintf("r%d", int(instr.FirstArgReg)+i)
	}
	return strings.Join(regs, ", ")
}

func operands(instr bytecode.Instruction) string {
	switch instr.Op {
	case op.LoadConst:
		return fmt.Sprintf("%d, %d", instr.Dest, instr.ConstIndex)
	case op.LoadVar:
		return fmt.Sprintf("%d, %d", instr.Dest, instr.NameIndex)
	case op.StoreVar:
		return fmt.Sprintf("%d, %d", instr.NameIndex, instr.Src)
	case op.BinaryOp:
		return fmt.Sprintf("%d, %d, %d", instr.Dest, instr.Left, instr.Right)
	case op.UnaryOp:
		return fmt.Sprintf("%d, %d", instr.Dest, instr.Src)
	case op.Print, op.SetResult:
		return fmt.Sprintf("%d", instr.Src)
	case op.DefineFunction:
		return fmt.Sprintf("%d, %d, %d, %d, %d", instr.NameIndex, instr.ParamCount,
			instr.BodyStart, instr.BodyLen, instr.MaxRegisterUsed)
	case op.Call:
		return fmt.Sprintf("%d, %d, %d, %d", instr.NameIndex, instr.ArgCount, instr.FirstArgReg, instr.Dest)
	case op.Return:
		if instr.HasValue {
			return fmt.Sprintf("%d", instr.Src)
		}
		return ""
	default:
		return ""
	}
}

var (
	bold      = color.New(color.Bold).SprintFunc()
	yellow    = color.New(color.FgYellow).SprintFunc()
	magenta   = color.New(color.FgMagenta).SprintFunc()
	cyan      = color.New(color.FgHiCyan).SprintFunc()
	italicFmt = color.New(color.Italic).SprintFunc()
)

// Print a string representation of the given instructions to the given writer.
func Print(instructions []Instruction, writer io.Writer) error {
	var lines [][]string
	for _, instr := range instructions {
		var info string
		switch {
		case instr.Constant != nil:
			info = yellow(instr.Annotation)
		case instr.Opcode == op.DefineFunction || instr.Opcode == op.Call:
			info = magenta(instr.Annotation)
		case instr.Annotation != "":
			info = cyan(instr.Annotation)
		}
		var fn string
		if instr.Function != "" {
			fn = italicFmt(instr.Function)
		}
		lines = append(lines, []string{
			fmt.Sprintf("%d", instr.Offset),
			bold(instr.Name),
			instr.Operands,
			info,
			fn,
		})
	}
	return table.NewTable(writer).
		WithHeader([]string{"OFFSET", "OPCODE", "OPERANDS", "INFO", "FUNCTION"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignRight,
			table.AlignLeft,
			table.AlignRight,
			table.AlignLeft,
			table.AlignLeft,
		}).
		WithHeaderAlignment([]table.Alignment{
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
		}).
		WithRows(lines).
		Render()
}
