package vm

import (
	"context"
	"errors"
	"testing"

	"github.com/deepnoodle-ai/pyreg/errz"
	"github.com/stretchr/testify/require"
)

// TestObserver is a test observer that records events.
type TestObserver struct {
	NoOpObserver
	config  *ObserverConfig
	Steps   []StepEvent
	Calls   []CallEvent
	Returns []ReturnEvent
}

func (o *TestObserver) Config() ObserverConfig {
	if o.config != nil {
		return *o.config
	}
	return o.NoOpObserver.Config()
}

func (o *TestObserver) OnStep(event StepEvent) bool {
	o.Steps = append(o.Steps, event)
	return true
}

func (o *TestObserver) OnCall(event CallEvent) bool {
	o.Calls = append(o.Calls, event)
	return true
}

func (o *TestObserver) OnReturn(event ReturnEvent) bool {
	o.Returns = append(o.Returns, event)
	return true
}

func TestObserverOnStep(t *testing.T) {
	observer := &TestObserver{}
	machine := New(WithObserver(observer))
	_, _, err := machine.Execute(context.Background(), compileSource(t, "x = 1 + 2"))
	require.Nil(t, err)

	require.Len(t, observer.Steps, 5)
	require.Equal(t, int64(5), machine.Steps())
	require.Equal(t, "LOAD_CONST", observer.Steps[0].OpcodeName)
	require.Equal(t, "BINARY_OP", observer.Steps[2].OpcodeName)
	require.Equal(t, "HALT", observer.Steps[4].OpcodeName)
	for i, step := range observer.Steps {
		require.Equal(t, i, step.IP)
		require.Equal(t, 0, step.FrameDepth)
	}
}

func TestObserverOnCallAndReturn(t *testing.T) {
	source := "def add(a, b):\n    return a + b\nresult = add(1, 2)\nadd(3, 4)"
	observer := &TestObserver{}
	_, err := Run(context.Background(), compileSource(t, source), WithObserver(observer))
	require.Nil(t, err)

	require.Len(t, observer.Calls, 2)
	require.Equal(t, "add", observer.Calls[0].FunctionName)
	require.Equal(t, 2, observer.Calls[0].ArgCount)
	require.Equal(t, 1, observer.Calls[0].FrameDepth)
	require.Equal(t, 3, observer.Calls[0].CallSite)

	require.Len(t, observer.Returns, 2)
	require.Equal(t, "add", observer.Returns[1].FunctionName)
	require.True(t, observer.Returns[1].HasValue)
	require.Equal(t, 0, observer.Returns[1].FrameDepth)

	// Steps inside the function body run one frame deep.
	var inBody int
	for _, step := range observer.Steps {
		if step.FrameDepth == 1 {
			inBody++
		}
	}
	require.Equal(t, 8, inBody)
}

func TestObserverStepNone(t *testing.T) {
	config := NewObserverConfig(StepNone)
	observer := &TestObserver{config: &config}
	_, err := Run(context.Background(), compileSource(t, "def f(): return 1\nf()"), WithObserver(observer))
	require.Nil(t, err)
	require.Len(t, observer.Steps, 0)
	require.Len(t, observer.Calls, 1)
	require.Len(t, observer.Returns, 1)
}

func TestObserverStepSampled(t *testing.T) {
	config := NewObserverConfig(StepSampled)
	config.SampleInterval = 2
	config.ObserveCalls = false
	config.ObserveReturns = false
	observer := &TestObserver{config: &config}

	// 13 instructions run in total.
	_, err := Run(context.Background(), compileSource(t, "x = 10\ny = 20\nz = x + y\nprint(z)\nz"), WithObserver(observer))
	require.Nil(t, err)
	require.Len(t, observer.Steps, 6)
	require.Equal(t, 1, observer.Steps[0].IP)
	require.Len(t, observer.Calls, 0)
}

func TestNormalizeConfig(t *testing.T) {
	config := NormalizeConfig(ObserverConfig{StepMode: StepSampled, SampleInterval: 0})
	require.Equal(t, 1, config.SampleInterval)

	config = NormalizeConfig(ObserverConfig{StepMode: StepAll, SampleInterval: -5})
	require.Equal(t, -5, config.SampleInterval)
}

type haltingObserver struct {
	NoOpObserver
}

func (haltingObserver) OnCall(CallEvent) bool { return false }

func TestObserverHalts(t *testing.T) {
	_, err := Run(context.Background(), compileSource(t, "def f(): return 1\nf()"), WithObserver(haltingObserver{}))
	require.NotNil(t, err)
	require.True(t, errors.Is(err, ErrHalted))

	var runtimeErr *errz.RuntimeError
	require.True(t, errors.As(err, &runtimeErr))
	require.Equal(t, 1, runtimeErr.InstructionIndex)
	require.Equal(t, "RuntimeError at instruction 1: execution halted by observer", err.Error())
}

func TestWantsStep(t *testing.T) {
	sampled := NormalizeConfig(ObserverConfig{StepMode: StepSampled, SampleInterval: 3})
	var got []int64
	for step := int64(1); step <= 7; step++ {
		if sampled.wantsStep(step) {
			got = append(got, step)
		}
	}
	require.Equal(t, []int64{3, 6}, got)
	require.True(t, NewObserverConfig(StepAll).wantsStep(1))
	require.False(t, NewObserverConfig(StepNone).wantsStep(1000))
}
