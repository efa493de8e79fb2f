package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/deepnoodle-ai/pyreg"
	"github.com/deepnoodle-ai/pyreg/bytecode"
	"github.com/deepnoodle-ai/pyreg/dis"
	"github.com/spf13/cobra"
)

func newDisCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dis [file]",
		Short: "Disassemble a program",
		Long: `Disassemble a program and print its bytecode.

The input is either source code or a .pyrc file written by "pyreg compile".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := loadCode(cmd, args)
			if err != nil {
				return err
			}
			instructions, err := dis.Disassemble(code)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("output")
			switch strings.ToLower(format) {
			case "", "text":
				return dis.Print(instructions, cmd.OutOrStdout())
			case "json":
				data, err := marshalJSON(instructions)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			default:
				return fmt.Errorf("unknown output format: %s", format)
			}
		},
	}
	cmd.Flags().StringP("code", "c", "", "Code to disassemble")
	cmd.Flags().Bool("stdin", false, "Read code from stdin")
	cmd.Flags().String("output", "text", "Output format: text or json")
	cmd.RegisterFlagCompletionFunc("output", cobra.FixedCompletions(outputFormatsCompletion, cobra.ShellCompDirectiveNoFileComp))
	return cmd
}

// loadCode compiles the input, or decodes it when it is a .pyrc file.
func loadCode(cmd *cobra.Command, args []string) (*bytecode.Code, error) {
	if len(args) == 1 && strings.HasSuffix(args[0], compiledExt) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, err
		}
		return bytecode.Unmarshal(data)
	}
	source, _, err := requireSource(cmd, args)
	if err != nil {
		return nil, err
	}
	code, err := pyreg.Compile(source)
	if err != nil {
		return nil, withSource(err, source)
	}
	return code, nil
}
