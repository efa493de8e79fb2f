// Package ast defines the abstract syntax tree produced by the parser and
// consumed by the compiler.
package ast

import (
	"strings"

	"github.com/deepnoodle-ai/pyreg/internal/token"
)

// Node represents a portion of the syntax tree. All nodes have position
// information indicating where they appear in the source code.
type Node interface {
	// Pos returns the position of the first character belonging to the node.
	Pos() token.Position

	// End returns the position of the first character immediately after the node.
	End() token.Position

	// String returns a human friendly representation of the Node. This should
	// be similar to the original source code, but not necessarily identical.
	String() string
}

// Stmt represents a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Expr represents an expression node. Expressions evaluate to a value
// and may be embedded within other expressions.
type Expr interface {
	Node
	exprNode()
}

// Program is the root node: a sequence of top-level statements.
type Program struct {
	Stmts []Stmt
}

func (p *Program) Pos() token.Position {
	if len(p.Stmts) > 0 {
		return p.Stmts[0].Pos()
	}
	return token.Position{}
}

func (p *Program) End() token.Position {
	if len(p.Stmts) > 0 {
		return p.Stmts[len(p.Stmts)-1].End()
	}
	return token.Position{}
}

func (p *Program) String() string {
	lines := make([]string, 0, len(p.Stmts))
	for _, stmt := range p.Stmts {
		lines = append(lines, stmt.String())
	}
	return strings.Join(lines, "\n")
}

// Functions returns the top-level function definitions in source order.
func (p *Program) Functions() []*FuncDef {
	var funcs []*FuncDef
	for _, stmt := range p.Stmts {
		if fn, ok := stmt.(*FuncDef); ok {
			funcs = append(funcs, fn)
		}
	}
	return funcs
}
