package types

import (
	"fmt"
	"slices"

	"github.com/strager/stups/ast"
)

// ExprNode is the tree tag of an operator expression. Its Value is the
// operator tag and its children are the operands. An expr without a tag
// wraps a single operand.
const ExprNode = "expr"

// operatorResults maps operator tags to the type they produce.
var operatorResults = map[string]Type{
	"ADD":           Integer,
	"SUB":           Integer,
	"MUL":           Integer,
	"DIV":           Integer,
	"MOD":           Integer,
	"NOT":           Boolean,
	"AND":           Boolean,
	"OR":            Boolean,
	"LESS":          Boolean,
	"LESS_EQUAL":    Boolean,
	"GREATER":       Boolean,
	"GREATER_EQUAL": Boolean,
	"EQUAL":         Boolean,
	"NOT_EQUAL":     Boolean,
}

// operatorArgs maps operator tags to the operand types they accept.
var operatorArgs = map[string][]Type{
	"ADD":           {Integer},
	"SUB":           {Integer},
	"MUL":           {Integer},
	"DIV":           {Integer},
	"MOD":           {Integer},
	"AND":           {Boolean},
	"OR":            {Boolean},
	"NOT":           {Boolean},
	"LESS":          {Integer},
	"LESS_EQUAL":    {Integer},
	"GREATER":       {Integer},
	"GREATER_EQUAL": {Integer},
	"EQUAL":         {Integer, Boolean, String},
	"NOT_EQUAL":     {Integer, Boolean, String},
}

// OperatorResult returns the result type of an operator tag.
func OperatorResult(op string) (Type, bool) {
	t, ok := operatorResults[op]
	return t, ok
}

// OperatorArgs returns the operand types an operator tag accepts.
func OperatorArgs(op string) []Type {
	return operatorArgs[op]
}

// OperatorError reports an operator expression whose annotated types
// disagree with the operator tables.
type OperatorError struct {
	Op   string
	Line int
	Msg  string
}

func (e *OperatorError) Error() string {
	return fmt.Sprintf("line %d: type error: [%s] %s", e.Line, e.Op, e.Msg)
}

// CheckOperators reports the first expr node, in pre-order, whose recorded
// type is not its operator's result type or whose operand type is not
// accepted by the operator.
func CheckOperators(tree *ast.Tree, m Map) error {
	var err error
	tree.Walk(func(n *ast.Node) bool {
		if err != nil {
			return false
		}
		if n.Name == ExprNode && n.Value != "" {
			err = checkOperator(n, m)
		}
		return err == nil
	})
	return err
}

func checkOperator(n *ast.Node, m Map) error {
	fail := func(format string, args ...any) error {
		return &OperatorError{Op: n.Value, Line: n.Line, Msg: fmt.Sprintf(format, args...)}
	}

	want, ok := OperatorResult(n.Value)
	if !ok {
		return fail("unknown operator")
	}
	got, ok := m.Of(n)
	if !ok {
		return fail("missing type")
	}
	if got != want {
		return fail("has type %s, want %s", got, want)
	}

	accepted := OperatorArgs(n.Value)
	for i, operand := range n.Children {
		t, ok := operandType(operand, m)
		if !ok {
			return fail("operand %d has no type", i+1)
		}
		if !slices.Contains(accepted, t) {
			return fail("operand %d has type %s", i+1, t)
		}
	}
	return nil
}

// operandType is the type of operand, or of its first typed descendant
// when operand is an untyped wrapper such as a parenthesis.
func operandType(operand *ast.Node, m Map) (Type, bool) {
	if t, ok := m.Of(operand); ok {
		return t, true
	}
	for _, child := range operand.Children {
		if t, ok := operandType(child, m); ok {
			return t, true
		}
	}
	return Invalid, false
}
