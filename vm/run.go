package vm

import (
	"context"

	"github.com/deepnoodle-ai/pyreg/bytecode"
)

// Run executes code in a new Virtual Machine and returns the formatted
// output: everything printed followed by the final result, if any.
func Run(ctx context.Context, code *bytecode.Code, options ...Option) (string, error) {
	machine := New(options...)
	result, ok, err := machine.Execute(ctx, code)
	if err != nil {
		return "", err
	}
	return machine.FormatOutput(result, ok), nil
}
