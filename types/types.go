// Package types holds the semantic types of the teaching language, the
// node-to-type map consumed by the code generator, and the declaration
// symbol table.
package types

import (
	"fmt"
	"strings"

	"github.com/strager/stups/ast"
)

// Type is a resolved semantic type.
type Type int

const (
	Invalid Type = iota
	Integer
	Boolean
	String
)

func (t Type) String() string {
	switch t {
	case Integer:
		return "INTEGER"
	case Boolean:
		return "BOOLEAN"
	case String:
		return "STRING"
	default:
		return "INVALID"
	}
}

// ParseType accepts the bare type name (INTEGER) or the grammar's type token
// name (INTEGER_TYPE), case-insensitively.
func ParseType(name string) (Type, error) {
	switch strings.TrimSuffix(strings.ToUpper(name), "_TYPE") {
	case "INTEGER", "INT":
		return Integer, nil
	case "BOOLEAN", "BOOL":
		return Boolean, nil
	case "STRING":
		return String, nil
	default:
		return Invalid, fmt.Errorf("unknown type %q", name)
	}
}

// IsReference reports whether values of t live on the evaluation stack as
// object references rather than scalars.
func (t Type) IsReference() bool {
	return t == String
}

// Map resolves nodes to their semantic type. It is produced by the type
// checker and is read-only during code generation.
type Map map[ast.NodeID]Type

// Of returns the type recorded for n.
func (m Map) Of(n *ast.Node) (Type, bool) {
	if n == nil {
		return Invalid, false
	}
	t, ok := m[n.ID]
	return t, ok && t != Invalid
}

// Set records the type of n.
func (m Map) Set(n *ast.Node, t Type) {
	m[n.ID] = t
}
