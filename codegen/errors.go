package codegen

import (
	"fmt"
	"strconv"

	"github.com/strager/stups/ast"
)

// Error is a code generation failure. It always points at a bug in an
// earlier phase (parser, type checker), never at user input.
type Error struct {
	Node *ast.Node // offending node, nil for whole-tree failures
	Msg  string
}

func (e *Error) Error() string {
	if e.Node == nil {
		return "code generation error: " + e.Msg
	}
	tag := e.Node.Name
	if e.Node.Value != "" {
		tag += " " + strconv.Quote(e.Node.Value)
	}
	return fmt.Sprintf("line %d: code generation error: [%s] %s", e.Node.Line, tag, e.Msg)
}

// fail aborts the current walk. Generate recovers the panic and returns it.
func fail(node *ast.Node, format string, args ...any) {
	panic(&Error{Node: node, Msg: fmt.Sprintf(format, args...)})
}
