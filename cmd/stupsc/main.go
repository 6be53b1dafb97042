// Command stupsc compiles type-annotated syntax trees of the stups teaching
// language into flow graph assembly.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/strager/stups/ast"
	"github.com/strager/stups/codegen"
	"github.com/strager/stups/flowgraph"
	"github.com/strager/stups/treetext"
	"github.com/strager/stups/types"
)

// errUsage is returned after the usage text has been printed.
var errUsage = errors.New("invalid usage")

func showUsage(w io.Writer) {
	fmt.Fprintf(w, `stupsc - compiles annotated stups syntax trees to flow graph assembly

Usage:
    stupsc <command> [arguments]

Commands:
    build <file>    Compile a .tree file to flow graph assembly
    check <file>    Decode a .tree file and check its declarations and operators
    tree <file>     Print the syntax tree of a .tree file
    help            Show this help message

Examples:
    stupsc build -o Demo.j demo.tree
    stupsc build -stack 4 -name Demo -v demo.tree
    stupsc check demo.tree

Use "stupsc <command> -h" for more information about a command.
`)
}

// cli holds the output streams of one invocation.
type cli struct {
	stdout io.Writer
	stderr io.Writer
}

func (c *cli) newFlagSet(name, usage, summary string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	fs.Usage = func() {
		fmt.Fprintf(c.stderr, "Usage: stupsc %s %s\n", name, usage)
		fmt.Fprintf(c.stderr, "%s\n\n", summary)
		fmt.Fprintf(c.stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	return fs
}

// fileArg parses args and returns the single file argument.
func fileArg(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", errUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(fs.Output(), "Error: expected exactly one file argument\n")
		fs.Usage()
		return "", errUsage
	}
	return fs.Arg(0), nil
}

func (c *cli) logger(verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(c.stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (c *cli) buildCommand(args []string) error {
	fs := c.newFlagSet("build", "[-o output] [-stack n] [-name program] [-v] <file>",
		"Compile a .tree file to flow graph assembly")
	output := fs.String("o", "", "Output file path, - for stdout (default: <file>.j)")
	verbose := fs.Bool("v", false, "Show verbose compilation details")
	maxStack := fs.Int("stack", 10, "Operand stack depth written to the header")
	name := fs.String("name", "", "Program name (default: taken from the tree)")
	source := fs.String("source", "", "Source file name written to the header (default: <file>)")

	filename, err := fileArg(fs, args)
	if err != nil {
		return err
	}

	outputFile := *output
	if outputFile == "" {
		outputFile = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".j"
	}
	sourceName := *source
	if sourceName == "" {
		sourceName = filepath.Base(filename)
	}

	if *verbose {
		fmt.Fprintf(c.stderr, "Compiling %s to %s...\n", filename, outputFile)
	}

	tree, typeMap, err := loadTree(filename)
	if err != nil {
		return err
	}
	if err := checkTree(tree, typeMap); err != nil {
		return err
	}

	graph, err := codegen.Generate(tree, typeMap, codegen.Options{
		Source:   sourceName,
		Program:  *name,
		MaxStack: *maxStack,
		Logger:   c.logger(*verbose),
	})
	if err != nil {
		return fmt.Errorf("compilation failed: %w", err)
	}

	if outputFile == "-" {
		_, err := graph.WriteTo(c.stdout)
		return err
	}
	if err := writeGraph(outputFile, graph); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Generated %s (%d blocks)\n", outputFile, len(graph.Blocks))
	return nil
}

func writeGraph(path string, graph *flowgraph.Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if _, err := graph.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func (c *cli) checkCommand(args []string) error {
	fs := c.newFlagSet("check", "[-v] <file>", "Decode a .tree file and check its declarations and operators")
	verbose := fs.Bool("v", false, "List declared symbols and slots")

	filename, err := fileArg(fs, args)
	if err != nil {
		return err
	}

	tree, typeMap, err := loadTree(filename)
	if err != nil {
		return err
	}
	if err := checkTree(tree, typeMap); err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "%s: no errors found\n", filename)

	if *verbose {
		table, _ := types.BuildTable(tree)
		slots := codegen.Slots(tree)
		for _, sym := range table.Symbols() {
			fmt.Fprintf(c.stdout, "  %s %s (line %d, slot %d)\n", sym.Name, sym.Type, sym.Line, slots[sym.Name])
		}
	}
	return nil
}

func (c *cli) treeCommand(args []string) error {
	fs := c.newFlagSet("tree", "[-sexpr] <file>", "Print the syntax tree of a .tree file")
	sexpr := fs.Bool("sexpr", false, "Print the tree as one s-expression with annotations")

	filename, err := fileArg(fs, args)
	if err != nil {
		return err
	}

	tree, typeMap, err := loadTree(filename)
	if err != nil {
		return err
	}
	if *sexpr {
		fmt.Fprintln(c.stdout, treetext.Encode(tree, typeMap))
		return nil
	}
	fmt.Fprint(c.stdout, tree.String())
	return nil
}

func loadTree(filename string) (*ast.Tree, types.Map, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("reading file %s: %w", filename, err)
	}
	tree, typeMap, err := treetext.Decode(string(src))
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", filename, err)
	}
	return tree, typeMap, nil
}

// checkTree runs the declaration and operator checks on a decoded tree.
func checkTree(tree *ast.Tree, typeMap types.Map) error {
	if err := checkDeclarations(tree); err != nil {
		return err
	}
	return types.CheckOperators(tree, typeMap)
}

// checkDeclarations rejects redeclared and undeclared names. The
// identifiers directly below the program node name the program and its
// arguments and are not variables.
func checkDeclarations(tree *ast.Tree) error {
	table, err := types.BuildTable(tree)
	if err != nil {
		return err
	}
	var ignore []string
	tree.Walk(func(n *ast.Node) bool {
		if codegen.KindOf(n.Name) != codegen.Program {
			return true
		}
		for _, child := range n.Children {
			if codegen.KindOf(child.Name) == codegen.Identifier {
				ignore = append(ignore, child.Value)
			}
		}
		return false
	})
	return table.CheckReferences(tree, ignore...)
}

func (c *cli) run(args []string) int {
	if len(args) < 1 {
		showUsage(c.stderr)
		return 1
	}

	command, rest := args[0], args[1:]

	var err error
	switch command {
	case "build":
		err = c.buildCommand(rest)
	case "check":
		err = c.checkCommand(rest)
	case "tree":
		err = c.treeCommand(rest)
	case "help", "-h", "--help":
		showUsage(c.stdout)
	default:
		fmt.Fprintf(c.stderr, "Unknown command: %s\n\n", command)
		showUsage(c.stderr)
		return 1
	}

	if err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(c.stderr, "stupsc: %v\n", err)
		}
		return 1
	}
	return 0
}

func main() {
	c := &cli{stdout: os.Stdout, stderr: os.Stderr}
	os.Exit(c.run(os.Args[1:]))
}
