// Package ast holds the syntax tree produced by the table-driven parser and
// consumed by the code generator.
package ast

import (
	"slices"
	"strings"
)

// NodeID identifies a node within one tree. IDs are assigned in creation
// order starting at 1; 0 is never a valid node.
type NodeID int

// Node is one labeled tree node. Name is the grammar symbol or construct tag.
// Value carries literal or identifier text for payload leaves and is empty
// for interior nodes.
type Node struct {
	ID       NodeID
	Name     string
	Value    string
	Line     int // 0 if synthesized
	Children []*Node
}

// AddChild appends child after the existing children.
func (n *Node) AddChild(child *Node) {
	n.Children = append(n.Children, child)
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Child returns the i-th child or nil when out of range.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Size counts n and all its descendants.
func (n *Node) Size() int {
	size := 1
	for _, child := range n.Children {
		size += child.Size()
	}
	return size
}

// String renders the subtree rooted at n as an indented box-drawing listing.
func (n *Node) String() string {
	var sb strings.Builder
	n.print(&sb, "", "")
	return sb.String()
}

func (n *Node) print(sb *strings.Builder, prefix, childPrefix string) {
	sb.WriteString(prefix)
	sb.WriteString(n.Name)
	if strings.TrimSpace(n.Value) != "" {
		sb.WriteString(": ")
		sb.WriteString(n.Value)
	}
	sb.WriteByte('\n')

	for i, child := range n.Children {
		if i < len(n.Children)-1 {
			child.print(sb, childPrefix+"├── ", childPrefix+"│   ")
		} else {
			child.print(sb, childPrefix+"└── ", childPrefix+"    ")
		}
	}
}

// Tree wraps a root node and hands out node IDs.
type Tree struct {
	Root   *Node
	nextID NodeID
}

// NewTree creates a tree whose root is a fresh node named rootName.
func NewTree(rootName string, line int) *Tree {
	t := &Tree{}
	t.Root = t.NewNode(rootName, line)
	return t
}

// NewNode creates a detached node carrying the next ID of t.
func (t *Tree) NewNode(name string, line int) *Node {
	t.nextID++
	return &Node{ID: t.nextID, Name: name, Line: line}
}

// IsEmpty reports whether the tree has nothing to compile: no root, or a
// root without children.
func (t *Tree) IsEmpty() bool {
	return t == nil || t.Root == nil || t.Root.IsLeaf()
}

// Size counts all nodes in the tree.
func (t *Tree) Size() int {
	if t == nil || t.Root == nil {
		return 0
	}
	return t.Root.Size()
}

// NodeCount returns the number of IDs handed out so far, an upper bound for
// every NodeID in t.
func (t *Tree) NodeCount() int {
	return int(t.nextID)
}

// Walk visits every node in pre-order. Returning false from fn skips the
// children of that node.
func (t *Tree) Walk(fn func(*Node) bool) {
	if t == nil || t.Root == nil {
		return
	}
	walk(t.Root, fn)
}

func walk(n *Node, fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		walk(child, fn)
	}
}

// Leaves returns the leaves of t from left to right. Leaves named skip are
// left out, which lets callers drop epsilon placeholders.
func (t *Tree) Leaves(skip ...string) []*Node {
	var leaves []*Node
	t.Walk(func(n *Node) bool {
		if n.IsLeaf() && !slices.Contains(skip, n.Name) {
			leaves = append(leaves, n)
		}
		return true
	})
	return leaves
}

// Find returns the node with the given id, or nil.
func (t *Tree) Find(id NodeID) *Node {
	var found *Node
	t.Walk(func(n *Node) bool {
		if n.ID == id {
			found = n
		}
		return found == nil
	})
	return found
}

// String renders the whole tree; see Node.String.
func (t *Tree) String() string {
	if t == nil || t.Root == nil {
		return ""
	}
	return t.Root.String()
}
