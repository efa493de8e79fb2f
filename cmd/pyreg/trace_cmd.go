package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/deepnoodle-ai/pyreg"
	"github.com/deepnoodle-ai/pyreg/vm"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	dim   = color.New(color.Faint).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
)

// tracer writes one line per observed event, indented by call depth.
type tracer struct {
	w      io.Writer
	config vm.ObserverConfig
}

func (t *tracer) Config() vm.ObserverConfig {
	return t.config
}

func (t *tracer) OnStep(event vm.StepEvent) bool {
	fmt.Fprintf(t.w, "%s%s %s\n", indent(event.FrameDepth), dim(fmt.Sprintf("%4d", event.IP)), event.OpcodeName)
	return true
}

func (t *tracer) OnCall(event vm.CallEvent) bool {
	fmt.Fprintf(t.w, "%s%s %s/%d from %d\n", indent(event.FrameDepth-1), green("call"),
		event.FunctionName, event.ArgCount, event.CallSite)
	return true
}

func (t *tracer) OnReturn(event vm.ReturnEvent) bool {
	fmt.Fprintf(t.w, "%s%s %s\n", indent(event.FrameDepth), green("return"), event.FunctionName)
	return true
}

func indent(depth int) string {
	if depth <= 0 {
		return ""
	}
	return strings.Repeat("  ", depth)
}

func newTraceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace [file]",
		Short: "Run a program and trace instructions, calls and returns to stderr",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, filename, err := requireSource(cmd, args)
			if err != nil {
				return err
			}
			config := vm.NewObserverConfig(vm.StepAll)
			if callsOnly, _ := cmd.Flags().GetBool("calls-only"); callsOnly {
				config = vm.NewObserverConfig(vm.StepNone)
			} else if every, _ := cmd.Flags().GetInt("sample"); every > 1 {
				config = vm.NewObserverConfig(vm.StepSampled)
				config.SampleInterval = every
			}
			opts := append(executeOptions(filename),
				pyreg.WithObserver(&tracer{w: cmd.ErrOrStderr(), config: config}))
			output, err := pyreg.Execute(cmd.Context(), source, opts...)
			if err != nil {
				return withSource(err, source)
			}
			fmt.Fprint(cmd.OutOrStdout(), output)
			return nil
		},
	}
	cmd.Flags().StringP("code", "c", "", "Code to trace")
	cmd.Flags().Bool("stdin", false, "Read code from stdin")
	cmd.Flags().Bool("calls-only", false, "Trace only calls and returns")
	cmd.Flags().Int("sample", 1, "Trace every Nth instruction")
	return cmd
}
