package vm

// Option is a configuration function for a Virtual Machine.
type Option func(*VirtualMachine)

// WithContextCheckInterval sets how often the VM checks ctx.Done() during
// execution. The interval is specified in number of instructions. A value
// of 0 disables context checking. The default is
// DefaultContextCheckInterval (1000).
//
// Lower values provide more responsive cancellation but may slightly impact
// performance due to more frequent checks.
func WithContextCheckInterval(interval int) Option {
	return func(vm *VirtualMachine) {
		vm.contextCheckInterval = interval
	}
}

// WithMaxSteps limits the number of instructions a single Execute call may
// run. Exceeding the limit fails with a runtime error. Zero, the default,
// means no limit.
func WithMaxSteps(steps int64) Option {
	return func(vm *VirtualMachine) {
		vm.maxSteps = steps
	}
}

// WithMaxCallDepth limits the number of nested function calls. The default
// is DefaultMaxCallDepth.
func WithMaxCallDepth(depth int) Option {
	return func(vm *VirtualMachine) {
		vm.maxCallDepth = depth
	}
}

// WithObserver sets an observer for VM execution events.
// The observer receives callbacks for instruction steps, function calls,
// and function returns. This enables profilers and execution tracers.
//
// Observer methods are called synchronously during execution, so
// implementations should be fast to avoid impacting performance.
// Returning false from any observer method halts execution immediately.
func WithObserver(observer Observer) Option {
	return func(vm *VirtualMachine) {
		vm.observer = observer
	}
}
