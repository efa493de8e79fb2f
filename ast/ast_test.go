package ast

import (
	"testing"

	"github.com/deepnoodle-ai/pyreg/internal/token"
	"github.com/deepnoodle-ai/pyreg/op"
	"github.com/stretchr/testify/require"
)

func ident(name string) *Ident {
	return &Ident{Name: name}
}

func integer(v int64, lit string) *Int {
	return &Int{Literal: lit, Value: v}
}

func sampleProgram() *Program {
	return &Program{Stmts: []Stmt{
		&FuncDef{
			Name:   ident("add"),
			Params: []*Ident{ident("a"), ident("b")},
			Body: []Stmt{
				&Return{Value: &Infix{X: ident("a"), Op: op.Add, Y: ident("b")}},
			},
		},
		&Assign{Name: ident("x"), Value: &Prefix{Op: op.Negate, X: integer(3, "3")}},
		&Print{Value: &Call{Fun: ident("add"), Args: []Expr{ident("x"), integer(10, "10")}}},
		&ExprStmt{X: &Infix{X: ident("x"), Op: op.FloorDivide, Y: integer(2, "2")}},
	}}
}

func TestString(t *testing.T) {
	expected := "def add(a, b):\n    return (a + b)\nx = (-3)\nprint(add(x, 10))\n(x // 2)"
	require.Equal(t, expected, sampleProgram().String())
	require.Equal(t, "return", (&Return{}).String())
}

func TestPositions(t *testing.T) {
	pos := token.Position{Char: 4, Line: 1, Column: 2}
	x := &Int{ValuePos: pos, Literal: "123", Value: 123}
	require.Equal(t, pos, x.Pos())
	require.Equal(t, 5, x.End().Column)

	ret := &Return{ReturnPos: pos}
	require.Equal(t, 8, ret.End().Column)
}

func TestFunctions(t *testing.T) {
	funcs := sampleProgram().Functions()
	require.Len(t, funcs, 1)
	require.Equal(t, "add", funcs[0].Name.Name)
	require.Equal(t, []string{"a", "b"}, funcs[0].ParamNames())
}

func TestInspectCalls(t *testing.T) {
	var calls []string
	Inspect(sampleProgram(), func(n Node) bool {
		if call, ok := n.(*Call); ok {
			calls = append(calls, call.Fun.Name)
		}
		return true
	})
	require.Equal(t, []string{"add"}, calls)
}

func TestInspectPrune(t *testing.T) {
	var idents []string
	Inspect(sampleProgram(), func(n Node) bool {
		if _, ok := n.(*FuncDef); ok {
			return false
		}
		if id, ok := n.(*Ident); ok {
			idents = append(idents, id.Name)
		}
		return true
	})
	require.Equal(t, []string{"x", "add", "x", "x"}, idents)
}

func TestPreorder(t *testing.T) {
	count := 0
	for n := range Preorder(sampleProgram()) {
		if _, ok := n.(*Int); ok {
			count++
		}
	}
	require.Equal(t, 3, count)

	var first Node
	for n := range Preorder(sampleProgram()) {
		first = n
		break
	}
	_, ok := first.(*Program)
	require.True(t, ok)
}
