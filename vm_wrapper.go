package pyreg

import (
	"context"

	"github.com/deepnoodle-ai/pyreg/bytecode"
	"github.com/deepnoodle-ai/pyreg/cache"
	"github.com/deepnoodle-ai/pyreg/object"
	"github.com/deepnoodle-ai/pyreg/vm"
)

// VM runs many programs on one reusable machine. Every run starts from
// empty state; after a run its globals and output remain readable until
// the next one. Compiled programs are looked up in the VM's cache.
//
// A VM is not safe for concurrent use. Give each goroutine its own VM and
// share a cache.Synchronized between them.
type VM struct {
	machine *vm.VirtualMachine
	cache   cache.Cache
	opts    *options
}

// NewVM creates a VM. Without WithCache it compiles into a private cache
// of the default capacity.
func NewVM(opts ...Option) *VM {
	o := collectOptions(opts...)
	c := o.cache
	if c == nil {
		c = cache.Local()
	}
	return &VM{
		machine: vm.New(o.vmOpts()...),
		cache:   c,
		opts:    o,
	}
}

// Eval compiles source, using the cache under the same rules as
// ExecuteCached, and runs it. It returns the formatted output.
func (v *VM) Eval(ctx context.Context, source string) (string, error) {
	code, err := v.opts.compileCached(ctx, v.cache, source)
	if err != nil {
		return "", err
	}
	return v.Run(ctx, code)
}

// Run executes compiled code and returns the formatted output.
func (v *VM) Run(ctx context.Context, code *bytecode.Code) (string, error) {
	result, ok, err := v.machine.Execute(ctx, code)
	if err != nil {
		return "", err
	}
	return v.machine.FormatOutput(result, ok), nil
}

// Get returns a global variable from the most recent run.
func (v *VM) Get(name string) (object.Value, error) {
	return v.machine.Get(name)
}

// Output returns the text printed by the most recent run.
func (v *VM) Output() string {
	return v.machine.Output()
}

// Steps returns the number of instructions executed by the most recent run.
func (v *VM) Steps() int64 {
	return v.machine.Steps()
}

// CacheStats reports the effectiveness of the VM's cache.
func (v *VM) CacheStats() cache.Stats {
	return v.cache.Stats()
}

// InternalVM returns the underlying vm.VirtualMachine.
func (v *VM) InternalVM() *vm.VirtualMachine {
	return v.machine
}
