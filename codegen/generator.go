// Package codegen lowers a type-annotated syntax tree into a flow graph of
// stack machine instructions.
package codegen

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"strconv"

	"github.com/strager/stups/ast"
	"github.com/strager/stups/flowgraph"
	"github.com/strager/stups/types"
)

// DefaultVersion is the class file format the assembler is asked for.
const DefaultVersion = "49.0"

// Options carry the header values the generator cannot derive from the tree.
type Options struct {
	Source   string       // source file name, informational
	Program  string       // overrides the program name found in the tree
	Version  string       // defaults to DefaultVersion
	MaxStack int          // operand stack depth, computed elsewhere
	Logger   *slog.Logger // defaults to a discarding logger
}

// Generator lowers one tree. It is not safe for concurrent use; run one
// Generator per compilation.
type Generator struct {
	tree   *ast.Tree
	types  types.Map
	slots  map[string]int
	opts   Options
	logger *slog.Logger

	graph *flowgraph.Graph

	// Label ids, one counter per construct so that labels of different
	// constructs never share a prefix.
	condLabels int
	loopLabels int
	cmpLabels  int
}

// NewGenerator prepares tree for lowering and computes its slot map.
func NewGenerator(tree *ast.Tree, typeMap types.Map, opts Options) (*Generator, error) {
	if tree.IsEmpty() {
		return nil, &Error{Msg: "empty program can't be compiled"}
	}
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Generator{
		tree:   tree,
		types:  typeMap,
		slots:  allocateSlots(tree, opts.Logger),
		opts:   opts,
		logger: opts.Logger,
	}, nil
}

// Generate lowers tree with a fresh generator.
func Generate(tree *ast.Tree, typeMap types.Map, opts Options) (*flowgraph.Graph, error) {
	g, err := NewGenerator(tree, typeMap, opts)
	if err != nil {
		return nil, err
	}
	return g.Generate()
}

// Slots returns a copy of the variable slot map.
func (g *Generator) Slots() map[string]int {
	return maps.Clone(g.slots)
}

// Generate walks the tree depth-first, left to right, and returns the
// purged flow graph. Each call starts from a new graph and label ids 0.
func (g *Generator) Generate() (graph *flowgraph.Graph, err error) {
	defer func() {
		if r := recover(); r != nil {
			cgErr, ok := r.(*Error)
			if !ok {
				panic(r)
			}
			graph, err = nil, cgErr
		}
	}()

	g.graph = flowgraph.New(flowgraph.Header{
		Version:  g.opts.Version,
		Source:   g.opts.Source,
		Program:  g.programName(),
		MaxStack: g.opts.MaxStack,
		Locals:   len(g.slots) + 1,
	})
	g.condLabels, g.loopLabels, g.cmpLabels = 0, 0, 0

	g.logger.Debug("generating flow graph", "program", g.graph.Header.Program, "locals", g.graph.Header.Locals)
	g.node(g.tree.Root)

	removed := g.graph.PurgeEmptyBlocks()
	g.logger.Debug("purged empty blocks", "removed", removed, "blocks", len(g.graph.Blocks))

	if err := g.graph.Verify(); err != nil {
		return nil, fmt.Errorf("generated flow graph is invalid: %w", err)
	}
	return g.graph, nil
}

// programName is the Program option, or the first identifier directly below
// the program node.
func (g *Generator) programName() string {
	if g.opts.Program != "" {
		return g.opts.Program
	}
	var name string
	g.tree.Walk(func(n *ast.Node) bool {
		if name != "" {
			return false
		}
		if KindOf(n.Name) != Program {
			return true
		}
		for _, child := range n.Children {
			if KindOf(child.Name) == Identifier && child.Value != "" {
				name = child.Value
				break
			}
		}
		return false
	})
	if name == "" {
		fail(g.tree.Root, "no program name")
	}
	return name
}

func (g *Generator) node(n *ast.Node) {
	switch KindOf(n.Name) {
	case Program:
		// The identifiers of the program node name the program and its
		// arguments; they are not loads.
		for _, child := range n.Children {
			if KindOf(child.Name) != Identifier {
				g.node(child)
			}
		}
	case Declaration:
		// Slots are assigned up front.
	case Cond:
		g.cond(n)
	case Loop:
		g.loop(n)
	case Assignment:
		g.assignment(n)
	case Expr:
		g.expr(n)
	case IntStringLiteral:
		g.emit(n, "ldc", n.Value)
	case BoolLiteral:
		if n.Value == "true" {
			g.emit(n, "ldc", "1")
		} else {
			g.emit(n, "ldc", "0")
		}
	case Identifier:
		g.identifier(n)
	case Print:
		g.print(n)
	case Transparent:
		for _, child := range n.Children {
			g.node(child)
		}
	}
}

func (g *Generator) emit(n *ast.Node, mnemonic string, operands ...string) {
	g.logger.Debug("emit", "node", n.Name, "value", n.Value, "inst", mnemonic, "operands", operands)
	g.graph.AddInstruction(mnemonic, operands...)
}

func (g *Generator) typeOf(n *ast.Node) types.Type {
	t, ok := g.types.Of(n)
	if !ok {
		fail(n, "missing type")
	}
	return t
}

func (g *Generator) slotOf(n *ast.Node, name string) string {
	slot, ok := g.slots[name]
	if !ok {
		fail(n, "no slot for variable %s", name)
	}
	return strconv.Itoa(slot)
}

func requireChildren(n *ast.Node, count int) {
	if len(n.Children) < count {
		fail(n, "malformed %s: want %d children, got %d", n.Name, count, len(n.Children))
	}
}

// cond lowers
//
//	cond; ifeq IFfalseL; then; goto IFendL; IFfalseL: else; IFendL:
func (g *Generator) cond(n *ast.Node) {
	requireChildren(n, 2)
	if len(n.Children) > 3 {
		fail(n, "malformed %s: want at most 3 children, got %d", n.Name, len(n.Children))
	}
	id := g.condLabels
	g.condLabels++
	falseLabel := fmt.Sprintf("IFfalse%d", id)
	endLabel := fmt.Sprintf("IFend%d", id)

	g.node(n.Children[0])
	g.graph.AddJump("ifeq", falseLabel)

	g.node(n.Children[1])
	g.graph.AddJump("goto", endLabel)

	g.graph.AddLabel(falseLabel)
	if len(n.Children) == 3 {
		g.node(n.Children[2])
	}
	g.graph.AddLabel(endLabel)
}

// loop lowers
//
//	LOOPstartL: cond; ifeq LOOPendL; body; goto LOOPstartL; LOOPendL:
func (g *Generator) loop(n *ast.Node) {
	requireChildren(n, 2)
	id := g.loopLabels
	g.loopLabels++
	startLabel := fmt.Sprintf("LOOPstart%d", id)
	endLabel := fmt.Sprintf("LOOPend%d", id)

	g.graph.AddLabel(startLabel)
	g.node(n.Children[0])
	g.graph.AddJump("ifeq", endLabel)

	g.node(n.Children[1])
	g.graph.AddJump("goto", startLabel)
	g.graph.AddLabel(endLabel)
}

// assignment stores its first child into the variable named by its value.
func (g *Generator) assignment(n *ast.Node) {
	requireChildren(n, 1)
	value := n.Children[0]
	g.node(value)

	inst := "istore"
	if g.typeOf(value).IsReference() {
		inst = "astore"
	}
	g.emit(n, inst, g.slotOf(n, n.Value))
}

func (g *Generator) expr(n *ast.Node) {
	// An operator-less wrapper only forwards its operand.
	if n.Value == "" && len(n.Children) == 1 {
		g.node(n.Children[0])
		return
	}

	switch t := g.typeOf(n); t {
	case types.Integer:
		g.intExpr(n)
	case types.Boolean:
		g.boolExpr(n)
	default:
		fail(n, "no %s expressions", t)
	}
}

var intBinaryOps = map[string]string{
	"ADD": "iadd",
	"SUB": "isub",
	"MUL": "imul",
	"DIV": "idiv",
	"MOD": "irem",
}

func (g *Generator) intExpr(n *ast.Node) {
	switch len(n.Children) {
	case 1:
		g.node(n.Children[0])
		switch n.Value {
		case "ADD":
		case "SUB":
			g.emit(n, "ineg")
		default:
			fail(n, "unknown unary operator")
		}
	case 2:
		g.node(n.Children[0])
		g.node(n.Children[1])
		inst, ok := intBinaryOps[n.Value]
		if !ok {
			fail(n, "unknown binary operator")
		}
		g.emit(n, inst)
	default:
		fail(n, "malformed expression: %d operands", len(n.Children))
	}
}

// Relational operators lowered through comparison, with their label
// prefixes. EQUAL and NOT_EQUAL pick their branch by operand type.
var comparisons = map[string]struct{ jump, prefix string }{
	"LESS":          {"if_icmplt", "LT"},
	"LESS_EQUAL":    {"if_icmple", "LE"},
	"GREATER":       {"if_icmpgt", "GT"},
	"GREATER_EQUAL": {"if_icmpge", "GE"},
}

func (g *Generator) boolExpr(n *ast.Node) {
	switch len(n.Children) {
	case 1:
		if n.Value != "NOT" {
			fail(n, "unknown unary operator")
		}
		g.node(n.Children[0])
		// 0 xor 1 = 1, 1 xor 1 = 0
		g.emit(n, "ldc", "1")
		g.emit(n, "ixor")
	case 2:
		g.node(n.Children[0])
		g.node(n.Children[1])
		switch n.Value {
		case "AND":
			g.emit(n, "iand")
		case "OR":
			g.emit(n, "ior")
		case "EQUAL":
			g.comparison(n, g.equalityJump(n, "eq"), "EQ")
		case "NOT_EQUAL":
			g.comparison(n, g.equalityJump(n, "ne"), "NE")
		default:
			cmp, ok := comparisons[n.Value]
			if !ok {
				fail(n, "unknown binary operator")
			}
			g.comparison(n, cmp.jump, cmp.prefix)
		}
	default:
		fail(n, "malformed expression: %d operands", len(n.Children))
	}
}

// equalityJump compares strings by reference and everything else by value.
func (g *Generator) equalityJump(n *ast.Node, cond string) string {
	if g.typeOf(n.Children[0]).IsReference() {
		return "if_acmp" + cond
	}
	return "if_icmp" + cond
}

// comparison turns the branch jump into a 0/1 value on the stack:
//
//	jump PtrueL; ldc 0; goto PendL; PtrueL: ldc 1; PendL:
func (g *Generator) comparison(n *ast.Node, jump, prefix string) {
	id := g.cmpLabels
	g.cmpLabels++
	trueLabel := fmt.Sprintf("%strue%d", prefix, id)
	endLabel := fmt.Sprintf("%send%d", prefix, id)

	g.logger.Debug("comparison", "node", n.Name, "value", n.Value, "inst", jump, "label", trueLabel)
	g.graph.AddJump(jump, trueLabel)
	g.graph.AddInstruction("ldc", "0")
	g.graph.AddJump("goto", endLabel)
	g.graph.AddLabel(trueLabel)
	g.graph.AddInstruction("ldc", "1")
	g.graph.AddLabel(endLabel)
}

func (g *Generator) identifier(n *ast.Node) {
	inst := "iload"
	if g.typeOf(n).IsReference() {
		inst = "aload"
	}
	g.emit(n, inst, g.slotOf(n, n.Value))
}

var printDescriptors = map[types.Type]string{
	types.Boolean: "Z",
	types.Integer: "I",
	types.String:  "Ljava/lang/String;",
}

func (g *Generator) print(n *ast.Node) {
	value := g.printedValue(n)
	if value == nil {
		fail(n, "nothing to print")
	}
	t := g.typeOf(value)
	desc, ok := printDescriptors[t]
	if !ok {
		fail(value, "cannot print %s", t)
	}

	g.emit(n, "getstatic", "java/lang/System/out", "Ljava/io/PrintStream;")
	g.node(value)
	g.emit(n, "invokevirtual", "java/io/PrintStream/println("+desc+")V")
}

// printedValue is the first typed node below a print node in pre-order.
// Keywords and parentheses around it carry no type.
func (g *Generator) printedValue(n *ast.Node) *ast.Node {
	for _, child := range n.Children {
		if _, ok := g.types.Of(child); ok {
			return child
		}
		if found := g.printedValue(child); found != nil {
			return found
		}
	}
	return nil
}
