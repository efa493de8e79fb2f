package main

import (
	"fmt"
	"os"

	"github.com/deepnoodle-ai/pyreg"
	"github.com/deepnoodle-ai/pyreg/bytecode"
	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <file.pyrc>",
		Short: "Run a program compiled with \"pyreg compile\"",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			code, err := bytecode.Unmarshal(data)
			if err != nil {
				return err
			}
			output, err := pyreg.ExecuteCode(cmd.Context(), code, executeOptions("")...)
			if err != nil {
				return withSource(err, code.Source())
			}
			fmt.Fprint(cmd.OutOrStdout(), output)
			return nil
		},
	}
}
