// Package pyreg compiles and runs programs written in a small Python-like
// language on a register-based virtual machine.
//
// The pipeline is source, tokens, AST, bytecode and finally execution:
//
//	out, err := pyreg.Execute(ctx, "x = 10\nprint(x * 2)\nx + 1")
//	// out == "20\n11"
//
// Compiled programs are immutable and may be executed concurrently or stored
// in a cache.Cache to skip recompilation of repeated source text.
package pyreg

import (
	"context"

	"github.com/deepnoodle-ai/pyreg/bytecode"
	"github.com/deepnoodle-ai/pyreg/cache"
	"github.com/deepnoodle-ai/pyreg/compiler"
	"github.com/deepnoodle-ai/pyreg/internal/lexer"
	"github.com/deepnoodle-ai/pyreg/parser"
	"github.com/deepnoodle-ai/pyreg/profile"
	"github.com/deepnoodle-ai/pyreg/vm"
)

// Option configures compilation or execution.
type Option func(*options)

type options struct {
	filename      string
	observer      vm.Observer
	maxSteps      int64
	maxCallDepth  int
	maxParseDepth int
	cache         cache.Cache
}

func collectOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) parserOpts() []parser.Option {
	var opts []parser.Option
	if o.maxParseDepth > 0 {
		opts = append(opts, parser.WithMaxDepth(o.maxParseDepth))
	}
	return opts
}

func (o *options) vmOpts() []vm.Option {
	var opts []vm.Option
	if o.observer != nil {
		opts = append(opts, vm.WithObserver(o.observer))
	}
	if o.maxSteps > 0 {
		opts = append(opts, vm.WithMaxSteps(o.maxSteps))
	}
	if o.maxCallDepth > 0 {
		opts = append(opts, vm.WithMaxCallDepth(o.maxCallDepth))
	}
	return opts
}

// WithFilename sets the filename recorded in compiled code.
func WithFilename(filename string) Option {
	return func(o *options) {
		o.filename = filename
	}
}

// WithObserver sets an observer for VM execution events.
func WithObserver(observer vm.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithMaxSteps limits the number of instructions a program may execute.
func WithMaxSteps(steps int64) Option {
	return func(o *options) {
		o.maxSteps = steps
	}
}

// WithMaxCallDepth limits the depth of nested function calls.
func WithMaxCallDepth(depth int) Option {
	return func(o *options) {
		o.maxCallDepth = depth
	}
}

// WithMaxParseDepth limits expression nesting accepted by the parser.
func WithMaxParseDepth(depth int) Option {
	return func(o *options) {
		o.maxParseDepth = depth
	}
}

// WithCache sets the cache used by a VM created with NewVM.
func WithCache(c cache.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// Compile parses and compiles source code into executable bytecode.
// The returned Code is immutable and safe for concurrent use.
func Compile(source string, opts ...Option) (*bytecode.Code, error) {
	return compile(context.Background(), source, collectOptions(opts...))
}

func compile(ctx context.Context, source string, o *options) (*bytecode.Code, error) {
	program, err := parser.Parse(ctx, source, o.parserOpts()...)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(program, compiler.WithSource(source, o.filename))
}

// ExecuteCode runs compiled bytecode on a fresh VM and returns the formatted
// output: printed lines followed by the final result, if any.
func ExecuteCode(ctx context.Context, code *bytecode.Code, opts ...Option) (string, error) {
	return vm.Run(ctx, code, collectOptions(opts...).vmOpts()...)
}

// Execute compiles and runs source, returning the formatted output. Errors
// are one of *errz.LexError, *errz.ParseError, *errz.CompileError or
// *errz.RuntimeError.
func Execute(ctx context.Context, source string, opts ...Option) (string, error) {
	o := collectOptions(opts...)
	code, err := compile(ctx, source, o)
	if err != nil {
		return "", err
	}
	return vm.Run(ctx, code, o.vmOpts()...)
}

// ExecuteCached behaves like Execute but looks the compiled program up in c
// first and stores it there after a miss. Programs that fail to compile are
// not cached. A parse depth limit bypasses c, since a cached program may
// have been parsed without that limit.
func ExecuteCached(ctx context.Context, c cache.Cache, source string, opts ...Option) (string, error) {
	o := collectOptions(opts...)
	code, err := o.compileCached(ctx, c, source)
	if err != nil {
		return "", err
	}
	return vm.Run(ctx, code, o.vmOpts()...)
}

// compileCached compiles source through c. A hit compiled under another
// filename is rebound to this caller's filename.
func (o *options) compileCached(ctx context.Context, c cache.Cache, source string) (*bytecode.Code, error) {
	if o.maxParseDepth > 0 {
		return compile(ctx, source, o)
	}
	if code, ok := c.Get(source); ok {
		if code.Filename() != o.filename {
			code = code.WithSource(source, o.filename)
		}
		return code, nil
	}
	code, err := compile(ctx, source, o)
	if err != nil {
		return nil, err
	}
	c.Insert(source, code)
	return code, nil
}

// ExecuteProfiled behaves like Execute and also reports the time spent in
// each pipeline stage.
func ExecuteProfiled(ctx context.Context, source string, opts ...Option) (string, profile.Pipeline, error) {
	o := collectOptions(opts...)
	var p profile.Pipeline
	timer := profile.Start()

	tokens, err := lexer.Tokenize(source)
	if err != nil {
		return "", p, err
	}
	p.LexNs = timer.Lap()

	program, err := parser.New(tokens, o.parserOpts()...).Parse(ctx)
	if err != nil {
		return "", p, err
	}
	p.ParseNs = timer.Lap()

	code, err := compiler.Compile(program, compiler.WithSource(source, o.filename))
	if err != nil {
		return "", p, err
	}
	p.CompileNs = timer.Lap()

	machine := vm.New(o.vmOpts()...)
	result, ok, err := machine.Execute(ctx, code)
	if err != nil {
		return "", p, err
	}
	p.ExecuteNs = timer.Lap()

	output := machine.FormatOutput(result, ok)
	p.FormatNs = timer.Lap()
	p.TotalNs = timer.Total()
	return output, p, nil
}
