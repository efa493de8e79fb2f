package ast

import (
	"bytes"
	"strings"

	"github.com/deepnoodle-ai/pyreg/internal/token"
)

// Assign is a statement that binds the value of an expression to a name.
type Assign struct {
	Name  *Ident // variable being assigned
	Value Expr   // value to assign
}

func (s *Assign) stmtNode() {}

func (s *Assign) Pos() token.Position { return s.Name.Pos() }
func (s *Assign) End() token.Position { return s.Value.End() }

func (s *Assign) String() string {
	return s.Name.Name + " = " + s.Value.String()
}

// Print is a statement that writes the value of an expression followed by
// a newline to program output.
type Print struct {
	PrintPos token.Position // position of "print" keyword
	Value    Expr           // value to print
	Rparen   token.Position // position of ")"
}

func (s *Print) stmtNode() {}

func (s *Print) Pos() token.Position { return s.PrintPos }
func (s *Print) End() token.Position { return s.Rparen.Advance(1) }

func (s *Print) String() string {
	return "print(" + s.Value.String() + ")"
}

// ExprStmt is a statement consisting of a single expression. Its value
// becomes the program result.
type ExprStmt struct {
	X Expr // expression
}

func (s *ExprStmt) stmtNode() {}

func (s *ExprStmt) Pos() token.Position { return s.X.Pos() }
func (s *ExprStmt) End() token.Position { return s.X.End() }

func (s *ExprStmt) String() string { return s.X.String() }

// Return is a statement that leaves the enclosing function.
type Return struct {
	ReturnPos token.Position // position of "return" keyword
	Value     Expr           // return value; nil for a bare return
}

func (s *Return) stmtNode() {}

func (s *Return) Pos() token.Position { return s.ReturnPos }

func (s *Return) End() token.Position {
	if s.Value != nil {
		return s.Value.End()
	}
	return s.ReturnPos.Advance(len("return"))
}

func (s *Return) String() string {
	if s.Value == nil {
		return "return"
	}
	return "return " + s.Value.String()
}

// FuncDef is a statement that defines a named function.
type FuncDef struct {
	DefPos token.Position // position of "def" keyword
	Name   *Ident         // function name
	Params []*Ident       // parameter names
	Body   []Stmt         // function body
}

func (s *FuncDef) stmtNode() {}

func (s *FuncDef) Pos() token.Position { return s.DefPos }

func (s *FuncDef) End() token.Position {
	if len(s.Body) > 0 {
		return s.Body[len(s.Body)-1].End()
	}
	return s.Name.End()
}

// ParamNames returns the names of the function's parameters.
func (s *FuncDef) ParamNames() []string {
	names := make([]string, 0, len(s.Params))
	for _, p := range s.Params {
		names = append(names, p.Name)
	}
	return names
}

func (s *FuncDef) String() string {
	var out bytes.Buffer
	out.WriteString("def ")
	out.WriteString(s.Name.Name)
	out.WriteString("(")
	out.WriteString(strings.Join(s.ParamNames(), ", "))
	out.WriteString("):")
	for _, stmt := range s.Body {
		out.WriteString("\n    ")
		out.WriteString(stmt.String())
	}
	return out.String()
}
