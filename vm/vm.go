// Package vm provides a VirtualMachine that executes compiled pyreg code.
//
// The machine has a fixed file of 256 registers, a map of global variables
// keyed by interned variable id, and a stack of call frames. Function
// parameters and locals live in the active frame's variable map rather than
// in registers. A CALL saves exactly the registers its callee may write,
// and the matching RETURN restores them along with the register validity
// bitmap before writing the return value to the caller's destination.
package vm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/deepnoodle-ai/pyreg/bytecode"
	"github.com/deepnoodle-ai/pyreg/errz"
	"github.com/deepnoodle-ai/pyreg/object"
	"github.com/deepnoodle-ai/pyreg/op"
)

const (
	// DefaultMaxCallDepth is the default limit on nested function calls.
	DefaultMaxCallDepth = 1024

	// DefaultContextCheckInterval is the number of instructions between
	// checks of ctx.Done(). Set to 0 to disable.
	DefaultContextCheckInterval = 1000
)

var (
	// ErrGlobalNotFound is returned by Get for an unknown global.
	ErrGlobalNotFound = errors.New("global not found")

	// ErrHalted is the cause of a runtime error raised when an observer
	// stops execution.
	ErrHalted = errors.New("execution halted by observer")
)

// VirtualMachine executes bytecode. A VirtualMachine may run many programs
// one after another but never more than one at a time; use one
// VirtualMachine per goroutine. Compiled code may be shared freely.
type VirtualMachine struct {
	ip        int
	registers registerFile
	globals   map[uint32]object.Value
	functions map[string]*function
	frames    []frame
	output    strings.Builder
	result    object.Value
	hasResult bool
	steps     int64

	// code is the program most recently executed.
	code *bytecode.Code

	running  bool
	runMutex sync.Mutex

	maxSteps             int64
	maxCallDepth         int
	contextCheckInterval int

	observer       Observer
	observerConfig ObserverConfig
}

// New creates a new Virtual Machine.
func New(options ...Option) *VirtualMachine {
	vm := &VirtualMachine{
		globals:              map[uint32]object.Value{},
		functions:            map[string]*function{},
		maxCallDepth:         DefaultMaxCallDepth,
		contextCheckInterval: DefaultContextCheckInterval,
	}
	for _, opt := range options {
		opt(vm)
	}
	return vm
}

func (vm *VirtualMachine) start() error {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	if vm.running {
		return errz.ErrAlreadyRunning
	}
	vm.running = true
	return nil
}

func (vm *VirtualMachine) stop() {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	vm.running = false
}

// reset clears all state left by a previous execution.
func (vm *VirtualMachine) reset(code *bytecode.Code) {
	vm.ip = 0
	vm.registers.reset()
	vm.globals = map[uint32]object.Value{}
	vm.functions = map[string]*function{}
	vm.frames = vm.frames[:0]
	vm.output.Reset()
	vm.result = object.None
	vm.hasResult = false
	vm.steps = 0
	vm.code = code
	if vm.observer != nil {
		vm.observerConfig = NormalizeConfig(vm.observer.Config())
	}
}

// Execute runs code from instruction 0 until HALT. It returns the value of
// the most recent SET_RESULT, with ok false if no SET_RESULT ran. Text
// written by PRINT is available from Output afterwards. Each call starts
// from an empty machine state.
func (vm *VirtualMachine) Execute(ctx context.Context, code *bytecode.Code) (result object.Value, ok bool, err error) {
	if code == nil {
		return object.None, false, fmt.Errorf("vm: no code to execute")
	}
	if err := vm.start(); err != nil {
		return object.None, false, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		vm.stop()
	}()
	vm.reset(code)
	if err := ctx.Err(); err != nil {
		return object.None, false, err
	}
	if err := vm.eval(ctx, code); err != nil {
		return object.None, false, err
	}
	return vm.result, vm.hasResult, nil
}

// Output returns everything printed by the most recent execution.
func (vm *VirtualMachine) Output() string {
	return vm.output.String()
}

// Result returns the value of the most recent SET_RESULT.
func (vm *VirtualMachine) Result() (object.Value, bool) {
	return vm.result, vm.hasResult
}

// FormatOutput combines this machine's printed output with a result.
func (vm *VirtualMachine) FormatOutput(result object.Value, ok bool) string {
	return FormatOutput(vm.Output(), result, ok)
}

// FormatOutput combines printed output with a program result: the output
// followed directly by the result, the output alone, the result alone, or
// the empty string.
func FormatOutput(output string, result object.Value, ok bool) string {
	if !ok {
		return output
	}
	return output + result.String()
}

// Get returns a global variable by name from the most recent execution.
func (vm *VirtualMachine) Get(name string) (object.Value, error) {
	if vm.code != nil {
		if id, ok := vm.code.LookupVar(name); ok {
			if value, ok := vm.globals[id]; ok {
				return value, nil
			}
		}
	}
	return object.None, fmt.Errorf("%w: %q", ErrGlobalNotFound, name)
}

// Steps returns the number of instructions run by the most recent execution.
func (vm *VirtualMachine) Steps() int64 {
	return vm.steps
}

func (vm *VirtualMachine) eval(ctx context.Context, code *bytecode.Code) error {
	var sinceCheck int
	checkInterval := vm.contextCheckInterval
	doneChan := ctx.Done()
	count := code.InstructionCount()

	for {
		if vm.ip < 0 || vm.ip >= count {
			return vm.runtimeError(errz.Newf(errz.ErrOutOfBounds, "Instruction pointer out of bounds"))
		}

		// Deterministic check of ctx.Done() every N instructions.
		if checkInterval > 0 && doneChan != nil {
			sinceCheck++
			if sinceCheck >= checkInterval {
				sinceCheck = 0
				select {
				case <-doneChan:
					return ctx.Err()
				default:
				}
			}
		}

		vm.steps++
		if vm.maxSteps > 0 && vm.steps > vm.maxSteps {
			return vm.runtimeError(errz.Newf(errz.ErrStepLimit,
				"Step limit exceeded (%d instructions)", vm.maxSteps))
		}

		instr := code.InstructionAt(vm.ip)

		if vm.observer != nil && !vm.observeStep(instr.Op) {
			return vm.runtimeError(ErrHalted)
		}

		switch instr.Op {
		case op.LoadConst:
			if instr.ConstIndex < 0 || instr.ConstIndex >= code.ConstantCount() {
				return vm.runtimeError(errz.Newf(errz.ErrOutOfBounds,
					"Constant index %d out of bounds", instr.ConstIndex))
			}
			vm.registers.set(instr.Dest, object.NewInt(code.ConstantAt(instr.ConstIndex)))

		case op.LoadVar:
			if err := vm.checkVarIndex(code, instr.NameIndex); err != nil {
				return err
			}
			value, ok := vm.loadVar(instr.VarID)
			if !ok {
				return vm.runtimeError(errz.Newf(errz.ErrUndefinedVariable,
					"Undefined variable: %s", code.VarNameAt(instr.NameIndex)))
			}
			vm.registers.set(instr.Dest, value)

		case op.StoreVar:
			if err := vm.checkVarIndex(code, instr.NameIndex); err != nil {
				return err
			}
			value, err := vm.registers.get(instr.Src)
			if err != nil {
				return vm.runtimeError(err)
			}
			vm.storeVar(instr.VarID, value)

		case op.BinaryOp:
			left, err := vm.registers.get(instr.Left)
			if err != nil {
				return vm.runtimeError(err)
			}
			right, err := vm.registers.get(instr.Right)
			if err != nil {
				return vm.runtimeError(err)
			}
			value, err := object.BinaryOp(instr.BinaryOp, left, right)
			if err != nil {
				return vm.runtimeError(err)
			}
			vm.registers.set(instr.Dest, value)

		case op.UnaryOp:
			operand, err := vm.registers.get(instr.Src)
			if err != nil {
				return vm.runtimeError(err)
			}
			value, err := object.UnaryOp(instr.UnaryOp, operand)
			if err != nil {
				return vm.runtimeError(err)
			}
			vm.registers.set(instr.Dest, value)

		case op.Print:
			value, err := vm.registers.get(instr.Src)
			if err != nil {
				return vm.runtimeError(err)
			}
			vm.output.WriteString(value.String())
			vm.output.WriteByte('\n')

		case op.SetResult:
			value, err := vm.registers.get(instr.Src)
			if err != nil {
				return vm.runtimeError(err)
			}
			vm.result = value
			vm.hasResult = true

		case op.Halt:
			return nil

		case op.DefineFunction:
			if instr.NameIndex < 0 || instr.NameIndex >= code.VarNameCount() {
				return vm.runtimeError(errz.Newf(errz.ErrOutOfBounds,
					"Function name index %d out of bounds", instr.NameIndex))
			}
			name := code.VarNameAt(instr.NameIndex)
			vm.functions[name] = &function{
				name:            name,
				paramCount:      instr.ParamCount,
				bodyStart:       instr.BodyStart,
				bodyLen:         instr.BodyLen,
				maxRegisterUsed: instr.MaxRegisterUsed,
			}

		case op.Call:
			if err := vm.call(code, instr); err != nil {
				return err
			}
			continue

		case op.Return:
			if err := vm.ret(instr); err != nil {
				return err
			}
			continue

		default:
			return vm.runtimeError(errz.Newf(errz.ErrInvalidInstruction, "Invalid instruction %s", instr.Op))
		}
		vm.ip++
	}
}

func (vm *VirtualMachine) checkVarIndex(code *bytecode.Code, index int) error {
	if index < 0 || index >= code.VarNameCount() {
		return vm.runtimeError(errz.Newf(errz.ErrOutOfBounds, "Variable name index %d out of bounds", index))
	}
	return nil
}

// loadVar reads from the innermost frame's locals, then from globals.
func (vm *VirtualMachine) loadVar(id uint32) (object.Value, bool) {
	if f := vm.activeFrame(); f != nil {
		if value, ok := f.lookup(id); ok {
			return value, true
		}
	}
	value, ok := vm.globals[id]
	return value, ok
}

// storeVar writes to the innermost frame if one is active. Functions never
// modify globals.
func (vm *VirtualMachine) storeVar(id uint32, value object.Value) {
	if f := vm.activeFrame(); f != nil {
		f.store(id, value)
		return
	}
	vm.globals[id] = value
}

func (vm *VirtualMachine) activeFrame() *frame {
	if len(vm.frames) == 0 {
		return nil
	}
	return &vm.frames[len(vm.frames)-1]
}

func (vm *VirtualMachine) call(code *bytecode.Code, instr bytecode.Instruction) error {
	if instr.NameIndex < 0 || instr.NameIndex >= code.VarNameCount() {
		return vm.runtimeError(errz.Newf(errz.ErrOutOfBounds,
			"Function name index %d out of bounds", instr.NameIndex))
	}
	name := code.VarNameAt(instr.NameIndex)
	fn, ok := vm.functions[name]
	if !ok {
		return vm.runtimeError(errz.Newf(errz.ErrUndefinedFunction, "Undefined function: %s", name))
	}
	if instr.ArgCount != fn.paramCount {
		return vm.runtimeError(errz.Newf(errz.ErrArgumentCount,
			"Function %s expects %d arguments, got %d", name, fn.paramCount, instr.ArgCount))
	}
	if len(vm.frames) >= vm.maxCallDepth {
		return vm.runtimeError(errz.Newf(errz.ErrCallDepth,
			"Maximum call depth exceeded (%d)", vm.maxCallDepth))
	}

	// Arguments are bound to param_<i> locals in the new frame.
	locals := make(map[uint32]object.Value, instr.ArgCount)
	for i := 0; i < int(instr.ArgCount); i++ {
		reg := int(instr.FirstArgReg) + i
		if reg >= NumRegisters {
			return vm.runtimeError(errz.Newf(errz.ErrOutOfBounds, "Register %d out of bounds", reg))
		}
		value, err := vm.registers.get(uint8(reg))
		if err != nil {
			return vm.runtimeError(err)
		}
		paramName := "param_" + strconv.Itoa(i)
		id, ok := code.LookupVar(paramName)
		if !ok {
			return vm.runtimeError(errz.Newf(errz.ErrMissingParameter,
				"Parameter %s not found in bytecode", paramName))
		}
		locals[id] = value
	}

	vm.frames = append(vm.frames, frame{
		fn:         fn,
		returnAddr: vm.ip + 1,
		callSiteIP: vm.ip,
		dest:       instr.Dest,
		locals:     locals,
		saved:      vm.registers.save(fn.maxRegisterUsed),
	})

	if vm.observer != nil && vm.observerConfig.ObserveCalls {
		event := CallEvent{
			FunctionName: name,
			ArgCount:     int(instr.ArgCount),
			CallSite:     vm.ip,
			FrameDepth:   len(vm.frames),
		}
		if !vm.observer.OnCall(event) {
			return vm.runtimeError(ErrHalted)
		}
	}

	vm.ip = fn.bodyStart
	return nil
}

func (vm *VirtualMachine) ret(instr bytecode.Instruction) error {
	// The return value is read before the frame is popped.
	value := object.None
	if instr.HasValue {
		v, err := vm.registers.get(instr.Src)
		if err != nil {
			return vm.runtimeError(err)
		}
		value = v
	}
	f := vm.activeFrame()
	if f == nil {
		return vm.runtimeError(errz.Newf(errz.ErrReturnOutsideFunction, "Return outside of function"))
	}
	popped := *f
	vm.frames[len(vm.frames)-1] = frame{}
	vm.frames = vm.frames[:len(vm.frames)-1]

	vm.registers.restore(popped.saved)
	vm.registers.set(popped.dest, value)
	vm.ip = popped.returnAddr

	if vm.observer != nil && vm.observerConfig.ObserveReturns {
		event := ReturnEvent{
			FunctionName: popped.fn.name,
			HasValue:     instr.HasValue,
			FrameDepth:   len(vm.frames),
		}
		if !vm.observer.OnReturn(event) {
			return vm.runtimeError(ErrHalted)
		}
	}
	return nil
}

func (vm *VirtualMachine) observeStep(opcode op.Code) bool {
	if !vm.observerConfig.wantsStep(vm.steps) {
		return true
	}
	return vm.observer.OnStep(StepEvent{
		IP:         vm.ip,
		Opcode:     opcode,
		OpcodeName: op.GetInfo(opcode).Name,
		FrameDepth: len(vm.frames),
	})
}

// captureStack builds a stack trace from the active call frames, innermost
// first.
func (vm *VirtualMachine) captureStack() []errz.StackFrame {
	if len(vm.frames) == 0 {
		return nil
	}
	stack := make([]errz.StackFrame, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		f := &vm.frames[i]
		stack = append(stack, errz.StackFrame{
			Function: f.fn.name,
			CallSite: f.callSiteIP,
		})
	}
	return stack
}

// runtimeError wraps cause as a *errz.RuntimeError at the current
// instruction, including the call stack.
func (vm *VirtualMachine) runtimeError(cause error) *errz.RuntimeError {
	err := errz.NewRuntimeError(vm.ip, cause)
	err.Stack = vm.captureStack()
	return err
}
