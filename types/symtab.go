package types

import (
	"fmt"
	"slices"

	"github.com/strager/stups/ast"
)

// DeclarationNode is the tree tag of a variable declaration. Its first child
// is the IDENTIFIER being declared and its Value names the declared type.
const DeclarationNode = "declaration"

// SymbolError reports a duplicate or undeclared name.
type SymbolError struct {
	Name string
	Line int
	Msg  string
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("line %d: symbol error: [%s] %s", e.Line, e.Name, e.Msg)
}

// Symbol is one declared variable.
type Symbol struct {
	Name string
	Type Type
	Line int
}

// Table maps declared names to their types. Unlike the code generator's slot
// pre-pass it rejects redeclaration.
type Table struct {
	symbols []Symbol
	index   map[string]int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{index: make(map[string]int)}
}

// Declare adds name with type t. Declaring a name twice is an error.
func (st *Table) Declare(name string, t Type, line int) error {
	if _, ok := st.index[name]; ok {
		return &SymbolError{Name: name, Line: line, Msg: "already defined"}
	}
	st.index[name] = len(st.symbols)
	st.symbols = append(st.symbols, Symbol{Name: name, Type: t, Line: line})
	return nil
}

// Lookup returns the symbol declared under name, or nil.
func (st *Table) Lookup(name string) *Symbol {
	i, ok := st.index[name]
	if !ok {
		return nil
	}
	return &st.symbols[i]
}

// Len returns the number of declared symbols.
func (st *Table) Len() int {
	return len(st.symbols)
}

// Symbols returns the declarations in declaration order.
func (st *Table) Symbols() []Symbol {
	return append([]Symbol(nil), st.symbols...)
}

// BuildTable collects every declaration node of tree in pre-order.
func BuildTable(tree *ast.Tree) (*Table, error) {
	st := NewTable()
	var err error
	tree.Walk(func(n *ast.Node) bool {
		if err != nil {
			return false
		}
		if n.Name != DeclarationNode {
			return true
		}
		ident := n.Child(0)
		if ident == nil || ident.Value == "" {
			err = &SymbolError{Line: n.Line, Msg: "declaration without a name"}
			return false
		}
		t, typeErr := ParseType(n.Value)
		if typeErr != nil {
			err = &SymbolError{Name: ident.Value, Line: n.Line, Msg: typeErr.Error()}
			return false
		}
		err = st.Declare(ident.Value, t, n.Line)
		return true
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// CheckReferences reports the first IDENTIFIER leaf or assignment target
// that is not declared in st. The declared name of a declaration and the names
// listed in ignore (program and argument names) are not references.
func (st *Table) CheckReferences(tree *ast.Tree, ignore ...string) error {
	if tree == nil || tree.Root == nil {
		return nil
	}
	return st.checkNode(tree.Root, ignore)
}

func (st *Table) checkNode(n *ast.Node, ignore []string) error {
	children := n.Children
	switch n.Name {
	case DeclarationNode:
		if len(children) > 0 {
			children = children[1:]
		}
	case "IDENTIFIER":
		if st.Lookup(n.Value) == nil && !slices.Contains(ignore, n.Value) {
			return &SymbolError{Name: n.Value, Line: n.Line, Msg: "not declared"}
		}
	case "assignment":
		if n.Value != "" && st.Lookup(n.Value) == nil {
			return &SymbolError{Name: n.Value, Line: n.Line, Msg: "not declared"}
		}
	}
	for _, child := range children {
		if err := st.checkNode(child, ignore); err != nil {
			return err
		}
	}
	return nil
}
