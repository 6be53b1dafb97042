package parser

import (
	"fmt"
	"slices"
	"strings"
)

// Grammar symbols with fixed meaning for every table.
const (
	Epsilon    = "eps"
	EndMarker  = "$"
	Identifier = "IDENTIFIER"
)

// Table is a deterministic LL(1) parsing table. It is built by an external
// grammar analyzer; the parser only asks it for decisions.
type Table interface {
	// Start returns the grammar start symbol.
	Start() string
	// IsTerminal reports whether sym is a terminal of the grammar.
	IsTerminal(sym string) bool
	// Production returns the right-hand side to expand nonterminal with when
	// lookahead is the next input terminal.
	Production(nonterminal, lookahead string) ([]string, bool)
}

// MapTable is a Table backed by nested maps. Adding a second production for
// the same (nonterminal, lookahead) pair is rejected, so a MapTable can never
// encode an ambiguous grammar.
type MapTable struct {
	start     string
	terminals map[string]bool
	rows      map[string]map[string][]string
}

// NewMapTable creates an empty table for the given start symbol and
// terminal set.
func NewMapTable(start string, terminals ...string) *MapTable {
	t := &MapTable{
		start:     start,
		terminals: make(map[string]bool, len(terminals)),
		rows:      make(map[string]map[string][]string),
	}
	for _, term := range terminals {
		t.terminals[term] = true
	}
	return t
}

// Add registers nonterminal -> rhs for the given lookahead. An empty rhs
// stands for the epsilon production.
func (t *MapTable) Add(nonterminal, lookahead string, rhs ...string) error {
	if t.terminals[nonterminal] {
		return fmt.Errorf("cannot add rule for terminal %s", nonterminal)
	}
	if lookahead != EndMarker && !t.terminals[lookahead] {
		return fmt.Errorf("lookahead %s is not a terminal", lookahead)
	}
	row := t.rows[nonterminal]
	if row == nil {
		row = make(map[string][]string)
		t.rows[nonterminal] = row
	}
	if existing, ok := row[lookahead]; ok {
		return fmt.Errorf("conflict for (%s, %s): %s vs %s", nonterminal, lookahead,
			strings.Join(existing, " "), strings.Join(rhs, " "))
	}
	if len(rhs) == 0 {
		rhs = []string{Epsilon}
	}
	row[lookahead] = slices.Clone(rhs)
	return nil
}

// MustAdd is Add for statically known grammars; it panics on conflict.
func (t *MapTable) MustAdd(nonterminal string, lookaheads []string, rhs ...string) {
	for _, la := range lookaheads {
		if err := t.Add(nonterminal, la, rhs...); err != nil {
			panic(err)
		}
	}
}

func (t *MapTable) Start() string {
	return t.start
}

func (t *MapTable) IsTerminal(sym string) bool {
	return t.terminals[sym]
}

func (t *MapTable) Production(nonterminal, lookahead string) ([]string, bool) {
	rhs, ok := t.rows[nonterminal][lookahead]
	return rhs, ok
}

// Terminals returns the terminal set in sorted order.
func (t *MapTable) Terminals() []string {
	terms := make([]string, 0, len(t.terminals))
	for term := range t.terminals {
		terms = append(terms, term)
	}
	slices.Sort(terms)
	return terms
}
