package ast

import (
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/pyreg/internal/token"
	"github.com/deepnoodle-ai/pyreg/op"
)

// Int is an integer literal. Literal keeps the source spelling.
type Int struct {
	ValuePos token.Position
	Literal  string
	Value    int64
}

func (x *Int) exprNode() {}

func (x *Int) Pos() token.Position { return x.ValuePos }
func (x *Int) End() token.Position { return x.ValuePos.Advance(len(x.Literal)) }

func (x *Int) String() string { return x.Literal }

// Ident names a variable, a parameter or a function.
type Ident struct {
	NamePos token.Position
	Name    string
}

func (x *Ident) exprNode() {}

func (x *Ident) Pos() token.Position { return x.NamePos }
func (x *Ident) End() token.Position { return x.NamePos.Advance(len(x.Name)) }

func (x *Ident) String() string { return x.Name }

// Prefix is a unary "-x" or "+x".
type Prefix struct {
	OpPos token.Position
	Op    op.UnaryOpType
	X     Expr
}

func (x *Prefix) exprNode() {}

func (x *Prefix) Pos() token.Position { return x.OpPos }
func (x *Prefix) End() token.Position { return x.X.End() }

func (x *Prefix) String() string {
	return fmt.Sprintf("(%s%s)", x.Op, x.X)
}

// Infix is a binary arithmetic expression such as "x // y".
type Infix struct {
	X     Expr
	OpPos token.Position
	Op    op.BinaryOpType
	Y     Expr
}

func (x *Infix) exprNode() {}

func (x *Infix) Pos() token.Position { return x.X.Pos() }
func (x *Infix) End() token.Position { return x.Y.End() }

func (x *Infix) String() string {
	return fmt.Sprintf("(%s %s %s)", x.X, x.Op, x.Y)
}

// Call invokes a top-level function by name. Functions are not values, so
// the callee is always an identifier.
type Call struct {
	Fun    *Ident
	Lparen token.Position
	Args   []Expr
	Rparen token.Position
}

func (x *Call) exprNode() {}

func (x *Call) Pos() token.Position { return x.Fun.Pos() }
func (x *Call) End() token.Position { return x.Rparen.Advance(1) }

func (x *Call) String() string {
	var sb strings.Builder
	sb.WriteString(x.Fun.Name)
	sb.WriteByte('(')
	for i, arg := range x.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.String())
	}
	sb.WriteByte(')')
	return sb.String()
}
