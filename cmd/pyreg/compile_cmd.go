package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/deepnoodle-ai/pyreg"
	"github.com/deepnoodle-ai/pyreg/bytecode"
	"github.com/spf13/cobra"
)

// compiledExt is the extension given to serialized programs.
const compiledExt = ".pyrc"

func newCompileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile [file]",
		Short: "Compile a program to a bytecode file",
		Example: `  pyreg compile script.py            # writes script.pyrc
  pyreg compile -c "1 + 2" -o sum.pyrc`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, filename, err := requireSource(cmd, args)
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("output")
			if out == "" {
				if filename == "" {
					return errors.New("an output path is required when compiling inline code")
				}
				out = strings.TrimSuffix(filename, filepath.Ext(filename)) + compiledExt
			}
			var opts []pyreg.Option
			if filename != "" {
				opts = append(opts, pyreg.WithFilename(filepath.Base(filename)))
			}
			code, err := pyreg.Compile(source, opts...)
			if err != nil {
				return withSource(err, source)
			}
			data, err := bytecode.Marshal(code)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			if stats, _ := cmd.Flags().GetBool("stats"); stats {
				text, err := marshalJSON(code.Stats())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), string(text))
			}
			return nil
		},
	}
	cmd.Flags().StringP("code", "c", "", "Code to compile")
	cmd.Flags().Bool("stdin", false, "Read code from stdin")
	cmd.Flags().StringP("output", "o", "", "Output path (default is the input path with a .pyrc extension)")
	cmd.Flags().Bool("stats", false, "Print bytecode statistics to stderr")
	return cmd
}
