package codegen

import "fmt"

// Kind is the lowering rule a syntax tree node is dispatched to.
type Kind int

const (
	Transparent Kind = iota // no code of its own, children are lowered in order
	Program
	Declaration
	Cond
	Loop
	Assignment
	Expr
	IntStringLiteral
	BoolLiteral
	Identifier
	Print
)

// kindNames is built once and never written afterwards, so generators in
// different goroutines can share it.
var kindNames = map[string]Kind{
	"program":     Program,
	"declaration": Declaration,
	"cond":        Cond,
	"loop":        Loop,
	"assignment":  Assignment,
	"expr":        Expr,
	"INTEGER_LIT": IntStringLiteral,
	"STRING_LIT":  IntStringLiteral,
	"BOOLEAN_LIT": BoolLiteral,
	"IDENTIFIER":  Identifier,
	"print":       Print,
}

// KindOf returns the kind of a node named name. Unknown names are
// Transparent.
func KindOf(name string) Kind {
	return kindNames[name]
}

func (k Kind) String() string {
	switch k {
	case Transparent:
		return "transparent"
	case Program:
		return "program"
	case Declaration:
		return "declaration"
	case Cond:
		return "cond"
	case Loop:
		return "loop"
	case Assignment:
		return "assignment"
	case Expr:
		return "expr"
	case IntStringLiteral:
		return "int/string literal"
	case BoolLiteral:
		return "bool literal"
	case Identifier:
		return "identifier"
	case Print:
		return "print"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}
