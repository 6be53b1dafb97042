package ast

import "strconv"

// ToSExpr converts a node to its s-expression form: (name "value" children...).
// Leaves without a value collapse to (name).
func ToSExpr(node *Node) string {
	if node == nil {
		return "()"
	}
	result := "(" + node.Name
	if node.Value != "" {
		result += " " + strconv.Quote(node.Value)
	}
	for _, child := range node.Children {
		result += " " + ToSExpr(child)
	}
	result += ")"
	return result
}

// SExpr renders the whole tree with ToSExpr.
func (t *Tree) SExpr() string {
	if t == nil {
		return "()"
	}
	return ToSExpr(t.Root)
}
