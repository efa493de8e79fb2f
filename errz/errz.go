// Package errz defines the error types produced by each stage of the pyreg
// pipeline.
//
// Every stage returns a distinct concrete type so that callers can tell a
// malformed program (*LexError, *ParseError, *CompileError) apart from a
// failed execution (*RuntimeError) with errors.As. Each type also unwraps to
// a sentinel describing the failure category, for use with errors.Is.
package errz

import (
	"errors"
	"fmt"
)

// ErrorKind represents the pipeline stage an error originated from.
type ErrorKind int

const (
	// ErrLex indicates a tokenization error.
	ErrLex ErrorKind = iota
	// ErrParse indicates a syntax error.
	ErrParse
	// ErrCompile indicates a bytecode generation error.
	ErrCompile
	// ErrRuntime indicates an execution error.
	ErrRuntime
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrLex:
		return "LexError"
	case ErrParse:
		return "ParseError"
	case ErrCompile:
		return "CompileError"
	case ErrRuntime:
		return "RuntimeError"
	default:
		return "Error"
	}
}

// Sentinel categories.
var (
	ErrInvalidCharacter = errors.New("invalid character")
	ErrIntegerLiteral   = errors.New("integer literal out of range")
	ErrSyntax           = errors.New("syntax error")

	ErrRegisterLimit    = errors.New("register limit exceeded")
	ErrNestedFunction   = errors.New("nested function definition")
	ErrForwardReference = errors.New("forward function reference")

	ErrDivisionByZero        = errors.New("division by zero")
	ErrOverflow              = errors.New("integer overflow")
	ErrNoneOperand           = errors.New("operation on none")
	ErrUndefinedVariable     = errors.New("undefined variable")
	ErrUndefinedFunction     = errors.New("undefined function")
	ErrArgumentCount         = errors.New("wrong argument count")
	ErrReturnOutsideFunction = errors.New("return outside of function")
	ErrEmptyRegister         = errors.New("empty register")
	ErrOutOfBounds           = errors.New("index out of bounds")
	ErrInvalidInstruction    = errors.New("invalid instruction")
	ErrStepLimit             = errors.New("step limit exceeded")
	ErrCallDepth             = errors.New("maximum call depth exceeded")
	ErrAlreadyRunning        = errors.New("vm is already running")
	ErrMissingParameter      = errors.New("parameter not found")
)

// Error is a message paired with a sentinel category. Its Error method
// returns only the message.
type Error struct {
	Message string
	Cause   error
}

// Newf returns an *Error in the category of the given sentinel.
func Newf(sentinel error, format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...), Cause: sentinel}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the error category.
func (e *Error) Unwrap() error {
	return e.Cause
}

// SourceLocation is a 1-based position in program source.
type SourceLocation struct {
	Line   int
	Column int
}

// IsZero returns true if the location is unset.
func (l SourceLocation) IsZero() bool {
	return l.Line == 0 && l.Column == 0
}

// LexError reports a character sequence the tokenizer cannot accept.
type LexError struct {
	Message  string
	Location SourceLocation
	Cause    error
}

// Error implements the error interface.
func (e *LexError) Error() string {
	return fmt.Sprintf("%s at %d:%d: %s", ErrLex, e.Location.Line, e.Location.Column, e.Message)
}

// Unwrap returns the error category.
func (e *LexError) Unwrap() error {
	return e.Cause
}

// ParseError reports an unexpected token.
type ParseError struct {
	Message  string
	Location SourceLocation
	// Found is the literal of the offending token.
	Found string
	// Expected describes what the parser was looking for, if known.
	Expected string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at %d:%d: %s", ErrParse, e.Location.Line, e.Location.Column, e.Message)
}

// Unwrap returns ErrSyntax.
func (e *ParseError) Unwrap() error {
	return ErrSyntax
}

// CompileErrorKind categorizes a *CompileError.
type CompileErrorKind int

const (
	RegisterLimitExceeded CompileErrorKind = iota + 1
	NestedFunction
	UndefinedFunctionForwardReference
)

// String returns the name of the kind.
func (k CompileErrorKind) String() string {
	switch k {
	case RegisterLimitExceeded:
		return "RegisterLimitExceeded"
	case NestedFunction:
		return "NestedFunction"
	case UndefinedFunctionForwardReference:
		return "UndefinedFunctionForwardReference"
	default:
		return "Unknown"
	}
}

func (k CompileErrorKind) sentinel() error {
	switch k {
	case RegisterLimitExceeded:
		return ErrRegisterLimit
	case NestedFunction:
		return ErrNestedFunction
	case UndefinedFunctionForwardReference:
		return ErrForwardReference
	default:
		return nil
	}
}

// CompileError is returned when an AST cannot be lowered to bytecode. No
// partial bytecode accompanies it.
type CompileError struct {
	Kind    CompileErrorKind
	Message string
}

// NewCompileError returns a *CompileError with a formatted message.
func NewCompileError(kind CompileErrorKind, format string, args ...any) *CompileError {
	return &CompileError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCompile, e.Message)
}

// Unwrap returns the sentinel for the error's kind.
func (e *CompileError) Unwrap() error {
	return e.Kind.sentinel()
}

// StackFrame identifies an active function call at the time of an error.
type StackFrame struct {
	Function string
	// CallSite is the index of the Call instruction that entered Function.
	CallSite int
}

// RuntimeError is returned when execution of compiled bytecode fails.
type RuntimeError struct {
	Message string
	// InstructionIndex is the index of the instruction that failed.
	InstructionIndex int
	// Stack lists active calls, innermost first. Empty at top level.
	Stack []StackFrame
	Cause error
}

// NewRuntimeError returns a *RuntimeError for the given instruction.
func NewRuntimeError(ip int, cause error) *RuntimeError {
	return &RuntimeError{Message: cause.Error(), InstructionIndex: ip, Cause: cause}
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s at instruction %d: %s", ErrRuntime, e.InstructionIndex, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *RuntimeError) Unwrap() error {
	return e.Cause
}

// KindOf returns the pipeline stage an error came from. The second result
// is false for errors that did not originate in the pipeline.
func KindOf(err error) (ErrorKind, bool) {
	var (
		lexErr     *LexError
		parseErr   *ParseError
		compileErr *CompileError
		runtimeErr *RuntimeError
	)
	switch {
	case errors.As(err, &lexErr):
		return ErrLex, true
	case errors.As(err, &parseErr):
		return ErrParse, true
	case errors.As(err, &compileErr):
		return ErrCompile, true
	case errors.As(err, &runtimeErr):
		return ErrRuntime, true
	}
	return 0, false
}
