// Package parser turns a classified token stream into a syntax tree by
// predictive, table-driven parsing.
package parser

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/strager/stups/ast"
)

// Token is one classified input token.
type Token struct {
	Type int    // terminal category, named through a Vocabulary
	Text string // source text
	Line int    // 1-based source line
}

// Vocabulary names the terminal category of a token type.
type Vocabulary func(tokenType int) string

// SyntaxError reports a token stream that does not conform to the grammar.
// Tree holds what was built up to the failure.
type SyntaxError struct {
	Line   int
	Source string // the offending line, reconstructed from its tokens
	Msg    string
	Tree   *ast.Tree
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: syntax error: %s\n  :: %s", e.Line, e.Msg, e.Source)
}

// Parser is a stack automaton driven by a Table. A Parser holds no per-run
// state and may be shared between goroutines.
type Parser struct {
	table  Table
	logger *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger routes parser trace records to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = logger
	}
}

// New creates a parser for table.
func New(table Table, opts ...Option) *Parser {
	p := &Parser{
		table:  table,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse derives tokens from the table's start symbol. The returned tree's
// leaves, minus epsilon placeholders, are exactly the input terminals in
// order.
func (p *Parser) Parse(tokens []Token, voc Vocabulary) (*ast.Tree, error) {
	p.logger.Debug("beginning program parse", "tokens", len(tokens))

	tree := ast.NewTree(p.table.Start(), 0)
	stack := []*ast.Node{tree.Root}
	pos := 0

	fail := func(line int, format string, args ...any) error {
		return &SyntaxError{
			Line:   line,
			Source: sourceLine(line, tokens),
			Msg:    fmt.Sprintf(format, args...),
			Tree:   tree,
		}
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		lookahead := EndMarker
		line := lastLine(tokens)
		if pos < len(tokens) {
			lookahead = voc(tokens[pos].Type)
			line = tokens[pos].Line
		}

		switch {
		case top.Name == Epsilon:
			stack = stack[:len(stack)-1]

		case top.Name == lookahead:
			stack = stack[:len(stack)-1]
			pos++

		case p.table.IsTerminal(top.Name) || top.Name == EndMarker:
			return nil, fail(line, "expected %s, found %s", top.Name, lookahead)

		default:
			rhs, ok := p.table.Production(top.Name, lookahead)
			if !ok {
				return nil, fail(line, "no rule for %s with lookahead %s", top.Name, lookahead)
			}
			p.logger.Debug("used rule", "rule", top.Name+" -> "+strings.Join(rhs, " "), "line", line)

			stack = stack[:len(stack)-1]
			children := make([]*ast.Node, len(rhs))
			for i := len(rhs) - 1; i >= 0; i-- {
				child := tree.NewNode(rhs[i], line)
				if carriesPayload(rhs[i]) && pos+i < len(tokens) {
					child.Value = tokens[pos+i].Text
				}
				children[i] = child
				stack = append(stack, child)
			}
			for _, child := range children {
				top.AddChild(child)
			}
		}
	}

	if pos < len(tokens) {
		tok := tokens[pos]
		return nil, fail(tok.Line, "unexpected trailing token %s", voc(tok.Type))
	}

	p.logger.Debug("parsed program", "nodes", tree.Size())
	return tree, nil
}

// carriesPayload reports whether nodes for sym keep their token's text.
func carriesPayload(sym string) bool {
	return sym == Identifier || strings.HasSuffix(sym, "_LIT")
}

func sourceLine(line int, tokens []Token) string {
	var parts []string
	for _, tok := range tokens {
		if tok.Line == line {
			parts = append(parts, tok.Text)
		}
	}
	return strings.Join(parts, " ")
}

func lastLine(tokens []Token) int {
	if len(tokens) == 0 {
		return 0
	}
	return tokens[len(tokens)-1].Line
}
