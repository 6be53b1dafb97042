package codegen

import (
	"io"
	"log/slog"

	"github.com/strager/stups/ast"
	"github.com/strager/stups/types"
)

// Slots assigns a local variable slot to every declared name. Declarations
// are numbered in pre-order starting at 1; slot 0 holds the program
// arguments. A name declared twice keeps the slot of its last declaration.
func Slots(tree *ast.Tree) map[string]int {
	return allocateSlots(tree, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func allocateSlots(tree *ast.Tree, logger *slog.Logger) map[string]int {
	slots := make(map[string]int)
	next := 0

	tree.Walk(func(n *ast.Node) bool {
		if n.Name != types.DeclarationNode {
			return true
		}
		ident := n.Child(0)
		if ident == nil || ident.Value == "" {
			logger.Debug("skipping declaration without a name", "line", n.Line)
			return true
		}
		next++
		if old, ok := slots[ident.Value]; ok {
			logger.Debug("redeclared local", "name", ident.Value, "old", old, "slot", next)
		}
		slots[ident.Value] = next
		logger.Debug("assigned slot", "name", ident.Value, "type", n.Value, "slot", next)
		return true
	})

	return slots
}
