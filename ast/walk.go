package ast

import "iter"

// Inspect visits node and its descendants depth-first. Descendants of a
// node are skipped when f returns false for it.
func Inspect(node Node, f func(Node) bool) {
	if node == nil || !f(node) {
		return
	}
	for _, child := range children(node) {
		Inspect(child, f)
	}
}

// Preorder yields node and all of its descendants in depth-first preorder.
func Preorder(root Node) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		stack := []Node{root}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(n) {
				return
			}
			kids := children(n)
			for i := len(kids) - 1; i >= 0; i-- {
				stack = append(stack, kids[i])
			}
		}
	}
}

// children lists the direct descendants of node in source order.
func children(node Node) []Node {
	switch n := node.(type) {
	case *Program:
		return stmtNodes(n.Stmts)
	case *Assign:
		return []Node{n.Name, n.Value}
	case *Print:
		return []Node{n.Value}
	case *ExprStmt:
		return []Node{n.X}
	case *Return:
		if n.Value == nil {
			return nil
		}
		return []Node{n.Value}
	case *FuncDef:
		nodes := make([]Node, 0, 1+len(n.Params)+len(n.Body))
		nodes = append(nodes, n.Name)
		for _, p := range n.Params {
			nodes = append(nodes, p)
		}
		return append(nodes, stmtNodes(n.Body)...)
	case *Prefix:
		return []Node{n.X}
	case *Infix:
		return []Node{n.X, n.Y}
	case *Call:
		nodes := make([]Node, 0, 1+len(n.Args))
		nodes = append(nodes, n.Fun)
		for _, arg := range n.Args {
			nodes = append(nodes, arg)
		}
		return nodes
	}
	return nil
}

func stmtNodes(stmts []Stmt) []Node {
	nodes := make([]Node, len(stmts))
	for i, s := range stmts {
		nodes[i] = s
	}
	return nodes
}
