package vm

import (
	"github.com/deepnoodle-ai/pyreg/op"
)

// DefaultSampleInterval is the step interval used by StepSampled when an
// observer does not choose one.
const DefaultSampleInterval = 1000

// StepMode selects which instructions are reported through OnStep.
type StepMode uint8

const (
	// StepAll reports every instruction, HALT included.
	StepAll StepMode = iota

	// StepNone disables step reports. Call and return reports are
	// unaffected.
	StepNone

	// StepSampled reports one instruction out of every SampleInterval.
	StepSampled
)

// ObserverConfig is read once per Execute.
type ObserverConfig struct {
	StepMode StepMode

	// SampleInterval applies to StepSampled only. Non-positive values
	// become 1.
	SampleInterval int

	ObserveCalls   bool
	ObserveReturns bool
}

// NewObserverConfig returns a config for mode with call and return reports
// enabled.
func NewObserverConfig(mode StepMode) ObserverConfig {
	return ObserverConfig{
		StepMode:       mode,
		SampleInterval: DefaultSampleInterval,
		ObserveCalls:   true,
		ObserveReturns: true,
	}
}

// NormalizeConfig clamps a sampled config to an interval of at least 1.
func NormalizeConfig(cfg ObserverConfig) ObserverConfig {
	if cfg.StepMode == StepSampled && cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 1
	}
	return cfg
}

// wantsStep reports whether the step numbered step (1-based) is reported.
func (cfg ObserverConfig) wantsStep(step int64) bool {
	switch cfg.StepMode {
	case StepNone:
		return false
	case StepSampled:
		return step%int64(cfg.SampleInterval) == 0
	default:
		return true
	}
}

// Observer receives execution events from a VirtualMachine. Any callback
// that returns false stops the run with a RuntimeError at the current
// instruction.
type Observer interface {
	Config() ObserverConfig

	// OnStep runs before the instruction at IP executes.
	OnStep(event StepEvent) bool

	// OnCall runs once the callee frame has been pushed and its parameters
	// bound.
	OnCall(event CallEvent) bool

	// OnReturn runs once the callee frame has been popped and the caller's
	// registers restored.
	OnReturn(event ReturnEvent) bool
}

// StepEvent describes the instruction about to execute.
type StepEvent struct {
	IP         int
	Opcode     op.Code
	OpcodeName string
	FrameDepth int
}

// CallEvent describes a CALL that has entered its callee.
type CallEvent struct {
	FunctionName string
	ArgCount     int

	// CallSite is the instruction index of the CALL.
	CallSite int

	// FrameDepth counts the callee frame.
	FrameDepth int
}

// ReturnEvent describes a RETURN that has left its callee.
type ReturnEvent struct {
	FunctionName string
	HasValue     bool

	// FrameDepth no longer counts the callee frame.
	FrameDepth int
}

// NoOpObserver accepts every event. Embed it to implement only the
// callbacks of interest.
type NoOpObserver struct{}

func (NoOpObserver) Config() ObserverConfig {
	return NewObserverConfig(StepAll)
}

func (NoOpObserver) OnStep(StepEvent) bool     { return true }
func (NoOpObserver) OnCall(CallEvent) bool     { return true }
func (NoOpObserver) OnReturn(ReturnEvent) bool { return true }

var _ Observer = NoOpObserver{}
