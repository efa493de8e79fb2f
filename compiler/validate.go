package compiler

import (
	"github.com/deepnoodle-ai/pyreg/ast"
	"github.com/deepnoodle-ai/pyreg/errz"
)

// collectFunctionDeclarations returns the names of all top-level function
// definitions. A name may be defined more than once; the last definition
// wins at run time.
func collectFunctionDeclarations(program *ast.Program) map[string]bool {
	declared := map[string]bool{}
	for _, fn := range program.Functions() {
		declared[fn.Name.Name] = true
	}
	return declared
}

// validateForwardReferences walks the program in source order and rejects
// any call to a declared function whose definition has not been reached yet.
// A function's own name counts as defined inside its body, so recursion is
// allowed.
func validateForwardReferences(program *ast.Program, declared map[string]bool) error {
	definedSoFar := map[string]bool{}
	for _, stmt := range program.Stmts {
		if fn, ok := stmt.(*ast.FuncDef); ok {
			definedSoFar[fn.Name.Name] = true
			for _, bodyStmt := range fn.Body {
				if err := checkCalls(bodyStmt, definedSoFar, declared); err != nil {
					return err
				}
			}
			continue
		}
		if err := checkCalls(stmt, definedSoFar, declared); err != nil {
			return err
		}
	}
	return nil
}

func checkCalls(stmt ast.Stmt, definedSoFar, declared map[string]bool) error {
	var err error
	ast.Inspect(stmt, func(node ast.Node) bool {
		if err != nil {
			return false
		}
		switch node := node.(type) {
		case *ast.FuncDef:
			// Nested definitions are rejected during compilation.
			return false
		case *ast.Call:
			name := node.Fun.Name
			if declared[name] && !definedSoFar[name] {
				err = errz.NewCompileError(errz.UndefinedFunctionForwardReference,
					"Call to undefined function '%s' (function defined later in program)", name)
				return false
			}
		}
		return true
	})
	return err
}
