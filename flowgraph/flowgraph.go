// Package flowgraph holds a compiled program as basic blocks of stack
// machine instructions connected by labeled jumps.
package flowgraph

import (
	"errors"
	"fmt"
	"slices"
)

// Kind tells the three instruction forms apart.
type Kind int

const (
	Op Kind = iota
	Label
	Jump
)

func (k Kind) String() string {
	switch k {
	case Op:
		return "op"
	case Label:
		return "label"
	case Jump:
		return "jump"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Instruction is a plain op (mnemonic + operands), a label declaration
// (Target is the label name) or a jump (mnemonic + Target).
type Instruction struct {
	Kind     Kind
	Mnemonic string
	Operands []string
	Target   string
}

// Block is a straight-line run of instructions. Labels only appear at its
// head and a jump only at its tail.
type Block struct {
	Insts []Instruction
}

// IsEmpty reports whether b holds no op and no jump. An empty block may
// still declare labels.
func (b *Block) IsEmpty() bool {
	for _, inst := range b.Insts {
		if inst.Kind != Label {
			return false
		}
	}
	return true
}

// Labels returns the names of the labels b declares.
func (b *Block) Labels() []string {
	var names []string
	for _, inst := range b.Insts {
		if inst.Kind == Label {
			names = append(names, inst.Target)
		}
	}
	return names
}

// Header is the program metadata handed to the assembler.
type Header struct {
	Version  string
	Source   string
	Program  string
	MaxStack int
	Locals   int
}

// Graph is an ordered list of basic blocks. New blocks are opened by
// labels and closed by jumps; the last block is the one being appended to.
// The zero value is an empty graph ready for appending.
type Graph struct {
	Header Header
	Blocks []*Block

	labels map[string]bool
}

// ErrUndeclaredLabel is wrapped by Verify for jumps to unknown labels.
var ErrUndeclaredLabel = errors.New("undeclared label")

// ErrDuplicateLabel is wrapped by Verify and ParseText for labels
// declared more than once.
var ErrDuplicateLabel = errors.New("duplicate label")

// New creates a graph with one open block.
func New(header Header) *Graph {
	return &Graph{
		Header: header,
		Blocks: []*Block{{}},
		labels: make(map[string]bool),
	}
}

func (g *Graph) current() *Block {
	if len(g.Blocks) == 0 {
		g.Blocks = append(g.Blocks, &Block{})
	}
	return g.Blocks[len(g.Blocks)-1]
}

func (g *Graph) startBlock() *Block {
	b := &Block{}
	g.Blocks = append(g.Blocks, b)
	return b
}

// AddInstruction appends a plain op to the current block.
func (g *Graph) AddInstruction(mnemonic string, operands ...string) {
	b := g.current()
	b.Insts = append(b.Insts, Instruction{Kind: Op, Mnemonic: mnemonic, Operands: operands})
}

// AddLabel declares name at the head of a new block. Declaring the same
// label twice is a bug in the caller and panics.
func (g *Graph) AddLabel(name string) {
	if g.labels == nil {
		g.labels = make(map[string]bool)
	}
	if g.labels[name] {
		panic(fmt.Sprintf("flowgraph: label %q declared twice", name))
	}
	g.labels[name] = true

	b := g.current()
	if len(b.Insts) > 0 {
		b = g.startBlock()
	}
	b.Insts = append(b.Insts, Instruction{Kind: Label, Target: name})
}

// AddJump appends a jump to target and closes the current block.
func (g *Graph) AddJump(mnemonic, target string) {
	b := g.current()
	b.Insts = append(b.Insts, Instruction{Kind: Jump, Mnemonic: mnemonic, Target: target})
	g.startBlock()
}

// PurgeEmptyBlocks removes blocks without ops or jumps and returns how many
// were removed. Labels of a removed block move to the head of the next
// surviving block, so a jump to them lands on the same instruction as
// before. Labels left over at the end of the graph are kept in one final
// block.
func (g *Graph) PurgeEmptyBlocks() int {
	before := len(g.Blocks)

	var kept []*Block
	var pending []Instruction
	for _, b := range g.Blocks {
		if b.IsEmpty() {
			pending = append(pending, b.Insts...)
			continue
		}
		if len(pending) > 0 {
			b.Insts = append(pending, b.Insts...)
			pending = nil
		}
		kept = append(kept, b)
	}
	if len(pending) > 0 {
		kept = append(kept, &Block{Insts: pending})
	}

	g.Blocks = kept
	return before - len(g.Blocks)
}

// Verify checks that every jump target is declared by exactly one label.
func (g *Graph) Verify() error {
	labels := g.Labels()
	declared := make(map[string]int)
	for _, name := range labels {
		declared[name]++
	}
	for _, name := range labels {
		if count := declared[name]; count > 1 {
			return fmt.Errorf("label %s declared %d times: %w", name, count, ErrDuplicateLabel)
		}
	}
	for i, b := range g.Blocks {
		for _, inst := range b.Insts {
			if inst.Kind == Jump && declared[inst.Target] == 0 {
				return fmt.Errorf("block %d: %s %s: %w", i, inst.Mnemonic, inst.Target, ErrUndeclaredLabel)
			}
		}
	}
	return nil
}

// Labels returns every declared label in program order.
func (g *Graph) Labels() []string {
	var names []string
	for _, b := range g.Blocks {
		names = append(names, b.Labels()...)
	}
	return names
}

// Instructions flattens the graph into one instruction stream.
func (g *Graph) Instructions() []Instruction {
	var insts []Instruction
	for _, b := range g.Blocks {
		insts = append(insts, b.Insts...)
	}
	return insts
}

// Equal reports whether a and b are the same instruction.
func (a Instruction) Equal(b Instruction) bool {
	return a.Kind == b.Kind && a.Mnemonic == b.Mnemonic && a.Target == b.Target &&
		slices.Equal(a.Operands, b.Operands)
}
