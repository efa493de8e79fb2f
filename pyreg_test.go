package pyreg

import (
	"context"
	"testing"

	"github.com/deepnoodle-ai/pyreg/cache"
	"github.com/deepnoodle-ai/pyreg/errz"
	"github.com/deepnoodle-ai/pyreg/vm"
	"github.com/stretchr/testify/require"
)

func TestExecute(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"x = 10\nprint(x * 2)\nx + 1", "20\n11"},
		{"2 + 3", "5"},
		{"print(42)", "42\n"},
		{"x = 10", ""},
		{"def square(n):\n    return n * n\nsquare(7)", "49"},
		{"def add(a, b): return a + b\nprint(add(1, 2))\nadd(3, 4)", "3\n7"},
		{"# comment\n1", "1"},
		{"def foo():\n    return 1\ndef foo():\n    return 2\nfoo()", "2"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			out, err := Execute(context.Background(), tt.input)
			require.Nil(t, err)
			require.Equal(t, tt.expected, out)
		})
	}
}

func TestExecuteErrorKinds(t *testing.T) {
	tests := []struct {
		input string
		kind  errz.ErrorKind
	}{
		{"x = @", errz.ErrLex},
		{"x = +", errz.ErrParse},
		{"f()\ndef f(): return 1", errz.ErrCompile},
		{"10 / 0", errz.ErrRuntime},
		{"y", errz.ErrRuntime},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := Execute(context.Background(), tt.input)
			require.Error(t, err)
			kind, ok := errz.KindOf(err)
			require.True(t, ok)
			require.Equal(t, tt.kind, kind)
		})
	}
}

func TestCompileThenExecuteCode(t *testing.T) {
	code, err := Compile("x = 2\nx * 21", WithFilename("answer.py"))
	require.Nil(t, err)
	require.Equal(t, "answer.py", code.Filename())
	require.Equal(t, "x = 2\nx * 21", code.Source())

	for i := 0; i < 3; i++ {
		out, err := ExecuteCode(context.Background(), code)
		require.Nil(t, err)
		require.Equal(t, "42", out)
	}
}

func TestExecuteCached(t *testing.T) {
	c := cache.NewLRU(4)
	ctx := context.Background()

	out, err := ExecuteCached(ctx, c, "1 + 1")
	require.Nil(t, err)
	require.Equal(t, "2", out)

	out, err = ExecuteCached(ctx, c, "1 + 1")
	require.Nil(t, err)
	require.Equal(t, "2", out)

	stats := c.Stats()
	require.Equal(t, 1, stats.Hits)
	require.Equal(t, 1, stats.Misses)
	require.Equal(t, 1, stats.Size)

	_, err = ExecuteCached(ctx, c, "x = ")
	require.Error(t, err)
	require.Equal(t, 1, c.Stats().Size)
}

func TestExecuteCachedRuntimeErrorStillCaches(t *testing.T) {
	c := cache.NewLRU(4)
	_, err := ExecuteCached(context.Background(), c, "1 // 0")
	require.Error(t, err)
	require.Equal(t, 1, c.Stats().Size)
}

func TestExecuteCachedHonorsParseDepth(t *testing.T) {
	c := cache.NewLRU(4)
	ctx := context.Background()
	source := "((((1))))"

	out, err := ExecuteCached(ctx, c, source)
	require.Nil(t, err)
	require.Equal(t, "1", out)

	_, err = ExecuteCached(ctx, c, source, WithMaxParseDepth(2))
	require.Error(t, err)
	require.Equal(t, errz.ErrParse, mustKind(t, err))
	require.Equal(t, 0, c.Stats().Hits)
}

func TestCachedCodeTakesCallerFilename(t *testing.T) {
	c := cache.NewLRU(4)
	ctx := context.Background()

	first, err := collectOptions(WithFilename("first.py")).compileCached(ctx, c, "x = 1")
	require.Nil(t, err)
	require.Equal(t, "first.py", first.Filename())

	second, err := collectOptions(WithFilename("second.py")).compileCached(ctx, c, "x = 1")
	require.Nil(t, err)
	require.Equal(t, "second.py", second.Filename())
	require.Equal(t, first.InstructionCount(), second.InstructionCount())

	cached, ok := c.Get("x = 1")
	require.True(t, ok)
	require.Equal(t, "first.py", cached.Filename())
}

func TestExecuteProfiled(t *testing.T) {
	out, p, err := ExecuteProfiled(context.Background(), "x = 3\nprint(x)\nx * x")
	require.Nil(t, err)
	require.Equal(t, "3\n9", out)
	require.Equal(t, p.LexNs+p.ParseNs+p.CompileNs+p.ExecuteNs+p.FormatNs, p.TotalNs)
	require.True(t, p.Consistent())

	_, _, err = ExecuteProfiled(context.Background(), "x = @")
	require.Error(t, err)
}

func TestLimits(t *testing.T) {
	source := "def down(n): return down(n - 1)\ndown(3)"
	_, err := Execute(context.Background(), source, WithMaxCallDepth(10))
	require.Error(t, err)
	require.Contains(t, err.Error(), "Maximum call depth exceeded (10)")

	_, err = Execute(context.Background(), "1 + 2 + 3", WithMaxSteps(2))
	require.Error(t, err)
	require.Contains(t, err.Error(), "Step limit exceeded (2 instructions)")

	_, err = Execute(context.Background(), "((((1))))", WithMaxParseDepth(2))
	require.Error(t, err)
}

type countingObserver struct {
	steps int
}

func (o *countingObserver) Config() vm.ObserverConfig {
	return vm.ObserverConfig{StepMode: vm.StepAll}
}
func (o *countingObserver) OnStep(vm.StepEvent) bool     { o.steps++; return true }
func (o *countingObserver) OnCall(vm.CallEvent) bool     { return true }
func (o *countingObserver) OnReturn(vm.ReturnEvent) bool { return true }

func TestWithObserver(t *testing.T) {
	obs := &countingObserver{}
	_, err := Execute(context.Background(), "1 + 2", WithObserver(obs))
	require.Nil(t, err)
	require.Equal(t, 5, obs.steps)
}

func mustKind(t *testing.T, err error) errz.ErrorKind {
	t.Helper()
	kind, ok := errz.KindOf(err)
	require.True(t, ok)
	return kind
}
