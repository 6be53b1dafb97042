package flowgraph

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// jumpMnemonics are the branch instructions the code generator emits.
var jumpMnemonics = map[string]bool{
	"goto":      true,
	"ifeq":      true,
	"ifne":      true,
	"iflt":      true,
	"ifle":      true,
	"ifgt":      true,
	"ifge":      true,
	"if_icmpeq": true,
	"if_icmpne": true,
	"if_icmplt": true,
	"if_icmple": true,
	"if_icmpgt": true,
	"if_icmpge": true,
	"if_acmpeq": true,
	"if_acmpne": true,
	"ifnull":    true,
	"ifnonnull": true,
}

// IsJump reports whether mnemonic transfers control to a label.
func IsJump(mnemonic string) bool {
	return jumpMnemonics[mnemonic]
}

func (g *Graph) String() string {
	var buf bytes.Buffer
	g.writeText(&buf)
	return buf.String()
}

// WriteTo writes the text form of g to w.
func (g *Graph) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	g.writeText(&buf)
	return buf.WriteTo(w)
}

func (g *Graph) writeText(buf *bytes.Buffer) {
	fmt.Fprintf(buf, ".bytecode %s\n", g.Header.Version)
	fmt.Fprintf(buf, ".source %s\n", g.Header.Source)
	fmt.Fprintf(buf, ".class %s\n", g.Header.Program)
	fmt.Fprintf(buf, ".limit stack %d\n", g.Header.MaxStack)
	fmt.Fprintf(buf, ".limit locals %d\n", g.Header.Locals)

	for i, b := range g.Blocks {
		fmt.Fprintf(buf, "; block %d\n", i)
		for _, inst := range b.Insts {
			buf.WriteString(inst.String())
			buf.WriteByte('\n')
		}
	}
}

func (inst Instruction) String() string {
	switch inst.Kind {
	case Label:
		return inst.Target + ":"
	case Jump:
		return "\t" + inst.Mnemonic + " " + inst.Target
	default:
		if len(inst.Operands) == 0 {
			return "\t" + inst.Mnemonic
		}
		return "\t" + inst.Mnemonic + " " + strings.Join(inst.Operands, " ")
	}
}

// ParseText reads a graph in the form written by WriteTo.
func ParseText(r io.Reader) (*Graph, error) {
	g := &Graph{labels: make(map[string]bool)}
	var block *Block

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			continue

		case strings.HasPrefix(trimmed, "."):
			if block != nil {
				return nil, fmt.Errorf("line %d: directive after first block", lineNum)
			}
			if err := parseDirective(&g.Header, trimmed); err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}

		case strings.HasPrefix(trimmed, ";"):
			if strings.HasPrefix(trimmed, "; block ") {
				block = &Block{}
				g.Blocks = append(g.Blocks, block)
			}

		case strings.HasSuffix(trimmed, ":") && !strings.ContainsAny(trimmed, " \t"):
			if block == nil {
				return nil, fmt.Errorf("line %d: label outside of block", lineNum)
			}
			name := strings.TrimSuffix(trimmed, ":")
			if g.labels[name] {
				return nil, fmt.Errorf("line %d: label %s: %w", lineNum, name, ErrDuplicateLabel)
			}
			g.labels[name] = true
			block.Insts = append(block.Insts, Instruction{Kind: Label, Target: name})

		default:
			if block == nil {
				return nil, fmt.Errorf("line %d: instruction outside of block", lineNum)
			}
			fields, err := splitOperands(trimmed)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			mnemonic, operands := fields[0], fields[1:]
			if IsJump(mnemonic) {
				if len(operands) != 1 {
					return nil, fmt.Errorf("line %d: %s takes one label, got %d operands", lineNum, mnemonic, len(operands))
				}
				block.Insts = append(block.Insts, Instruction{Kind: Jump, Mnemonic: mnemonic, Target: operands[0]})
				continue
			}
			if len(operands) == 0 {
				operands = nil
			}
			block.Insts = append(block.Insts, Instruction{Kind: Op, Mnemonic: mnemonic, Operands: operands})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading flow graph: %w", err)
	}
	return g, nil
}

func parseDirective(h *Header, line string) error {
	directive, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch directive {
	case ".bytecode":
		h.Version = rest
	case ".source":
		h.Source = rest
	case ".class":
		h.Program = rest
	case ".limit":
		what, value, _ := strings.Cut(rest, " ")
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf(".limit %s: %w", what, err)
		}
		switch what {
		case "stack":
			h.MaxStack = n
		case "locals":
			h.Locals = n
		default:
			return fmt.Errorf("unknown limit %q", what)
		}
	default:
		return fmt.Errorf("unknown directive %q", directive)
	}
	return nil
}

// splitOperands splits an instruction line on blanks. A double-quoted
// operand is kept whole, quotes and escapes included.
func splitOperands(line string) ([]string, error) {
	var fields []string
	i := 0
	for i < len(line) {
		if line[i] == ' ' || line[i] == '\t' {
			i++
			continue
		}

		start := i
		if line[i] == '"' {
			i++
			for i < len(line) && line[i] != '"' {
				if line[i] == '\\' {
					i++
				}
				i++
			}
			if i >= len(line) {
				return nil, fmt.Errorf("unterminated string operand %s", line[start:])
			}
			i++ // closing quote
		} else {
			for i < len(line) && line[i] != ' ' && line[i] != '\t' {
				i++
			}
		}
		fields = append(fields, line[start:i])
	}
	return fields, nil
}
