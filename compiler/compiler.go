// Package compiler is used to compile a pyreg abstract syntax tree (AST) into
// register machine bytecode.
//
// # Register Allocation
//
// Every expression result gets a fresh register from a monotonically
// increasing counter. Registers are never reused within a function, and the
// highest register written is recorded so that a call only has to save the
// registers its callee may clobber. Main code numbers registers from 0. A
// function body numbers them from its parameter count, since parameters are
// bound to local variables named param_0, param_1 and so on rather than
// held in registers.
//
// # Function Layout
//
// Function bodies are placed after the HALT that ends the main code:
//
//	DEFINE_FUNCTION f ...   one per top-level function
//	main code
//	HALT
//	body of f
//	body of g ...
//
// The main code is compiled first so that its length is known. Each body is
// then compiled with its absolute start index already fixed, and finally
// the DEFINE_FUNCTION block is emitted in front of the main code. Nothing is
// compiled twice.
//
// # Validation
//
// Before any code is generated the compiler collects all top-level function
// names, rejecting duplicates, and walks the program in source order to
// reject calls to functions that are defined further down. A function may
// call itself and any function defined above it.
package compiler

import (
	"fmt"

	"github.com/deepnoodle-ai/pyreg/ast"
	"github.com/deepnoodle-ai/pyreg/bytecode"
	"github.com/deepnoodle-ai/pyreg/errz"
	"github.com/deepnoodle-ai/pyreg/op"
)

// MaxRegisters is the size of the VM register file.
const MaxRegisters = 256

// Compiler lowers a parsed program to bytecode.
type Compiler struct {
	builder  *bytecode.Builder
	interner *Interner

	// Next register to allocate. Kept as an int so that exhausting all
	// 256 registers is detectable.
	nextRegister    int
	maxRegisterUsed uint8

	// Maps a parameter name to its synthetic param_<i> local while a
	// function body is being compiled.
	params map[string]string

	inFunction bool

	source   string
	filename string
}

// Option is a configuration function for a Compiler.
type Option func(*Compiler)

// WithSource records the program source and filename on the compiled code.
func WithSource(source, filename string) Option {
	return func(c *Compiler) {
		c.source = source
		c.filename = filename
	}
}

// WithInterner sets the interner used to assign variable ids. Sharing an
// interner across compilations keeps ids stable between programs.
func WithInterner(interner *Interner) Option {
	return func(c *Compiler) {
		c.interner = interner
	}
}

// Compile compiles the given program and returns immutable bytecode.
func Compile(program *ast.Program, options ...Option) (*bytecode.Code, error) {
	return New(options...).Compile(program)
}

// New creates and returns a new Compiler.
func New(options ...Option) *Compiler {
	c := &Compiler{}
	for _, opt := range options {
		opt(c)
	}
	if c.interner == nil {
		c.interner = NewInterner()
	}
	return c
}

// Interner returns the interner used by the compiler.
func (c *Compiler) Interner() *Interner {
	return c.interner
}

// Compile compiles the given program. On error no bytecode is returned.
func (c *Compiler) Compile(program *ast.Program) (*bytecode.Code, error) {
	if program == nil {
		return nil, fmt.Errorf("compiler: nil program")
	}
	declared := collectFunctionDeclarations(program)
	if err := validateForwardReferences(program, declared); err != nil {
		return nil, err
	}

	c.builder = bytecode.NewBuilder()
	c.builder.SetSource(c.source, c.filename)
	c.params = nil
	c.inFunction = false
	c.nextRegister = 0
	c.maxRegisterUsed = 0

	var (
		functions []*ast.FuncDef
		mainStmts []ast.Stmt
	)
	for _, stmt := range program.Stmts {
		if fn, ok := stmt.(*ast.FuncDef); ok {
			functions = append(functions, fn)
			continue
		}
		mainStmts = append(mainStmts, stmt)
	}

	// Main code
	for _, stmt := range mainStmts {
		if err := c.compileStatement(stmt); err != nil {
			return nil, err
		}
	}
	mainCode := c.builder.Take()
	mainMaxRegister := c.maxRegisterUsed

	// Function bodies, each placed at its final absolute index
	type layout struct {
		fn        *ast.FuncDef
		bodyStart int
		bodyLen   int
		maxReg    uint8
	}
	layouts := make([]layout, 0, len(functions))
	var bodies []bytecode.Instruction
	offset := len(functions) + len(mainCode) + 1
	for _, fn := range functions {
		body, maxReg, err := c.compileFunctionBody(fn)
		if err != nil {
			return nil, err
		}
		layouts = append(layouts, layout{
			fn:        fn,
			bodyStart: offset,
			bodyLen:   len(body),
			maxReg:    maxReg,
		})
		bodies = append(bodies, body...)
		offset += len(body)
	}

	// Final order: definitions, main code, HALT, bodies
	for _, l := range layouts {
		name := l.fn.Name.Name
		c.builder.EmitDefineFunction(name, c.interner.Intern(name), uint8(len(l.fn.Params)),
			l.bodyStart, l.bodyLen, l.maxReg)
	}
	c.builder.Append(mainCode...)
	c.builder.AppendAfterHalt(bodies...)
	c.builder.SetMaxRegisterUsed(mainMaxRegister)
	return c.builder.Build(), nil
}

// compileFunctionBody compiles fn in its own register namespace and returns
// the body instructions along with the highest register it uses. Compiler
// state is restored before returning.
func (c *Compiler) compileFunctionBody(fn *ast.FuncDef) ([]bytecode.Instruction, uint8, error) {
	if len(fn.Params) >= MaxRegisters {
		return nil, 0, c.registerLimitError()
	}
	savedNext, savedMax, savedParams := c.nextRegister, c.maxRegisterUsed, c.params
	defer func() {
		c.nextRegister, c.maxRegisterUsed, c.params = savedNext, savedMax, savedParams
		c.inFunction = false
	}()

	c.inFunction = true
	c.nextRegister = len(fn.Params)
	c.maxRegisterUsed = 0
	if len(fn.Params) > 0 {
		c.maxRegisterUsed = uint8(len(fn.Params) - 1)
	}
	c.params = make(map[string]string, len(fn.Params))
	for i, param := range fn.Params {
		local := fmt.Sprintf("param_%d", i)
		c.params[param.Name] = local
		// Parameters are always present in the name pool, even if unused,
		// so the VM can resolve their ids when binding arguments.
		c.builder.EnsureVarName(local, c.interner.Intern(local))
	}

	for _, stmt := range fn.Body {
		if err := c.compileStatement(stmt); err != nil {
			return nil, 0, err
		}
	}
	if !endsWithReturn(fn.Body) {
		c.builder.EmitReturn(false, 0)
	}
	return c.builder.Take(), c.maxRegisterUsed, nil
}

func endsWithReturn(body []ast.Stmt) bool {
	if len(body) == 0 {
		return false
	}
	_, ok := body[len(body)-1].(*ast.Return)
	return ok
}

func (c *Compiler) compileStatement(stmt ast.Stmt) error {
	switch stmt := stmt.(type) {
	case *ast.Assign:
		return c.compileAssign(stmt)
	case *ast.Print:
		return c.compilePrint(stmt)
	case *ast.ExprStmt:
		return c.compileExprStmt(stmt)
	case *ast.Return:
		return c.compileReturn(stmt)
	case *ast.FuncDef:
		if c.inFunction {
			return errz.NewCompileError(errz.NestedFunction, "Nested function definitions are not supported")
		}
		// Top-level definitions are laid out separately by Compile.
		return nil
	default:
		return fmt.Errorf("compiler: unknown statement type %T", stmt)
	}
}

func (c *Compiler) compileAssign(node *ast.Assign) error {
	src, err := c.compileExpr(node.Value)
	if err != nil {
		return err
	}
	name := c.resolveName(node.Name.Name)
	c.builder.EmitStoreVar(name, c.interner.Intern(name), src)
	return nil
}

func (c *Compiler) compilePrint(node *ast.Print) error {
	src, err := c.compileExpr(node.Value)
	if err != nil {
		return err
	}
	c.builder.EmitPrint(src)
	return nil
}

// compileExprStmt is the only statement that updates the program result.
func (c *Compiler) compileExprStmt(node *ast.ExprStmt) error {
	src, err := c.compileExpr(node.X)
	if err != nil {
		return err
	}
	c.builder.EmitSetResult(src)
	return nil
}

func (c *Compiler) compileReturn(node *ast.Return) error {
	if node.Value == nil {
		c.builder.EmitReturn(false, 0)
		return nil
	}
	src, err := c.compileExpr(node.Value)
	if err != nil {
		return err
	}
	c.builder.EmitReturn(true, src)
	return nil
}

// compileExpr compiles an expression and returns the register holding its
// value.
func (c *Compiler) compileExpr(expr ast.Expr) (uint8, error) {
	switch expr := expr.(type) {
	case *ast.Int:
		return c.compileInt(expr)
	case *ast.Ident:
		return c.compileIdent(expr)
	case *ast.Infix:
		return c.compileInfix(expr)
	case *ast.Prefix:
		return c.compilePrefix(expr)
	case *ast.Call:
		return c.compileCall(expr)
	default:
		return 0, fmt.Errorf("compiler: unknown expression type %T", expr)
	}
}

func (c *Compiler) compileInt(node *ast.Int) (uint8, error) {
	dest, err := c.allocRegister()
	if err != nil {
		return 0, err
	}
	c.builder.EmitLoadConst(dest, node.Value)
	return dest, nil
}

func (c *Compiler) compileIdent(node *ast.Ident) (uint8, error) {
	dest, err := c.allocRegister()
	if err != nil {
		return 0, err
	}
	name := c.resolveName(node.Name)
	c.builder.EmitLoadVar(dest, name, c.interner.Intern(name))
	return dest, nil
}

func (c *Compiler) compileInfix(node *ast.Infix) (uint8, error) {
	left, err := c.compileExpr(node.X)
	if err != nil {
		return 0, err
	}
	right, err := c.compileExpr(node.Y)
	if err != nil {
		return 0, err
	}
	dest, err := c.allocRegister()
	if err != nil {
		return 0, err
	}
	c.builder.EmitBinaryOp(dest, left, node.Op, right)
	return dest, nil
}

func (c *Compiler) compilePrefix(node *ast.Prefix) (uint8, error) {
	operand, err := c.compileExpr(node.X)
	if err != nil {
		return 0, err
	}
	dest, err := c.allocRegister()
	if err != nil {
		return 0, err
	}
	c.builder.EmitUnaryOp(dest, node.Op, operand)
	return dest, nil
}

// compileCall evaluates arguments left to right. The VM expects arguments in
// consecutive registers, so when they are not already consecutive they are
// copied into a fresh block using the identity operator as a move.
func (c *Compiler) compileCall(node *ast.Call) (uint8, error) {
	argRegs := make([]uint8, 0, len(node.Args))
	for _, arg := range node.Args {
		reg, err := c.compileExpr(arg)
		if err != nil {
			return 0, err
		}
		argRegs = append(argRegs, reg)
	}

	var firstArgReg uint8
	if len(argRegs) > 0 {
		firstArgReg = argRegs[0]
		if !consecutive(argRegs) {
			for i, argReg := range argRegs {
				target, err := c.allocRegister()
				if err != nil {
					return 0, err
				}
				if i == 0 {
					firstArgReg = target
				}
				if argReg != target {
					c.builder.EmitUnaryOp(target, op.Identity, argReg)
				}
			}
		}
	}

	dest, err := c.allocRegister()
	if err != nil {
		return 0, err
	}
	name := node.Fun.Name
	c.builder.EmitCall(name, c.interner.Intern(name), uint8(len(argRegs)), firstArgReg, dest)
	return dest, nil
}

func consecutive(regs []uint8) bool {
	for i := 1; i < len(regs); i++ {
		if int(regs[i]) != int(regs[i-1])+1 {
			return false
		}
	}
	return true
}

// resolveName maps a parameter name to its param_<i> local inside a
// function body. Other names are returned unchanged.
func (c *Compiler) resolveName(name string) string {
	if local, ok := c.params[name]; ok {
		return local
	}
	return name
}

func (c *Compiler) allocRegister() (uint8, error) {
	if c.nextRegister >= MaxRegisters {
		return 0, c.registerLimitError()
	}
	reg := uint8(c.nextRegister)
	c.nextRegister++
	if reg > c.maxRegisterUsed {
		c.maxRegisterUsed = reg
	}
	return reg, nil
}

func (c *Compiler) registerLimitError() error {
	return errz.NewCompileError(errz.RegisterLimitExceeded,
		"Register limit exceeded (max %d registers)", MaxRegisters)
}
