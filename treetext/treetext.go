// Package treetext reads and writes type-annotated syntax trees as
// s-expressions:
//
//	(assignment "x" ^{line: 3}
//	  (expr "ADD" ^{type: INTEGER, line: 3}
//	    (INTEGER_LIT "1" ^{type: INTEGER})
//	    (IDENTIFIER "y" ^{type: INTEGER})))
//
// A node is a list of its name, an optional value (string or integer) and
// its children. A childless node without value may be written as a bare
// name. The metadata keys are type and line.
package treetext

import (
	"fmt"
	"strconv"

	"github.com/strager/stups/ast"
	"github.com/strager/stups/sexy"
	"github.com/strager/stups/types"
)

// Decode parses src into a tree and the type map of its annotated nodes.
func Decode(src string) (*ast.Tree, types.Map, error) {
	sx, err := sexy.Parse(src)
	if err != nil {
		return nil, nil, fmt.Errorf("reading tree: %w", err)
	}
	return DecodeNode(sx)
}

// DecodeNode converts an already parsed s-expression.
func DecodeNode(sx *sexy.Node) (*ast.Tree, types.Map, error) {
	name, err := nodeName(sx)
	if err != nil {
		return nil, nil, err
	}

	d := &decoder{typeMap: types.Map{}}
	d.tree = ast.NewTree(name, 0)
	if err := d.fill(d.tree.Root, sx); err != nil {
		return nil, nil, err
	}
	return d.tree, d.typeMap, nil
}

type decoder struct {
	tree    *ast.Tree
	typeMap types.Map
}

func (d *decoder) node(sx *sexy.Node) (*ast.Node, error) {
	name, err := nodeName(sx)
	if err != nil {
		return nil, err
	}
	n := d.tree.NewNode(name, 0)
	return n, d.fill(n, sx)
}

func nodeName(sx *sexy.Node) (string, error) {
	switch {
	case sx.Type == sexy.NodeSymbol:
		return sx.Text, nil
	case sx.Type == sexy.NodeList && len(sx.Items) > 0 && sx.Items[0].Type == sexy.NodeSymbol:
		return sx.Items[0].Text, nil
	}
	return "", fmt.Errorf("offset %d: expected node, got %s", sx.Position, sx)
}

func (d *decoder) fill(n *ast.Node, sx *sexy.Node) error {
	if sx.Type == sexy.NodeSymbol {
		return nil
	}

	items := sx.Items[1:]
	if len(items) > 0 && (items[0].Type == sexy.NodeString || items[0].Type == sexy.NodeInteger) {
		n.Value = items[0].Text
		items = items[1:]
	}

	for _, key := range sx.MetaKeys {
		if key != "type" && key != "line" {
			return fmt.Errorf("offset %d: %s: unknown annotation %q", sx.Position, n.Name, key)
		}
	}
	if value := sx.Meta("type"); value != nil {
		t, err := types.ParseType(value.Text)
		if err != nil || value.Type != sexy.NodeSymbol {
			return fmt.Errorf("offset %d: %s: bad type %s", value.Position, n.Name, value)
		}
		d.typeMap.Set(n, t)
	}
	if value := sx.Meta("line"); value != nil {
		line, err := strconv.Atoi(value.Text)
		if err != nil || value.Type != sexy.NodeInteger || line < 0 {
			return fmt.Errorf("offset %d: %s: bad line %s", value.Position, n.Name, value)
		}
		n.Line = line
	}

	for _, item := range items {
		child, err := d.node(item)
		if err != nil {
			return err
		}
		n.AddChild(child)
	}
	return nil
}

// Encode writes tree in the form Decode reads. Types come from typeMap,
// which may be nil.
func Encode(tree *ast.Tree, typeMap types.Map) string {
	if tree == nil || tree.Root == nil {
		return "()"
	}
	return EncodeNode(tree.Root, typeMap).String()
}

// EncodeNode converts the subtree at n into an s-expression.
func EncodeNode(n *ast.Node, typeMap types.Map) *sexy.Node {
	items := []*sexy.Node{sexy.NewSymbol(n.Name)}
	if n.Value != "" {
		items = append(items, sexy.NewString(n.Value))
	}
	for _, child := range n.Children {
		items = append(items, EncodeNode(child, typeMap))
	}

	list := sexy.NewList(items...)
	if t, ok := typeMap.Of(n); ok {
		list.SetMeta("type", sexy.NewSymbol(t.String()))
	}
	if n.Line != 0 {
		list.SetMeta("line", sexy.NewInteger(strconv.Itoa(n.Line)))
	}
	return list
}
