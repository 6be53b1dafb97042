package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/strager/stups/flowgraph"
)

const demoTree = `(program (IDENTIFIER "Demo") (IDENTIFIER "args")
  (declaration "INTEGER_TYPE" (IDENTIFIER "x") ^{line: 2})
  (assignment "x" ^{line: 3}
    (expr "ADD" ^{type: INTEGER, line: 3}
      (INTEGER_LIT "1" ^{type: INTEGER})
      (INTEGER_LIT "2" ^{type: INTEGER})))
  (print (IDENTIFIER "x" ^{type: INTEGER, line: 4})))
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	be.Err(t, os.WriteFile(path, []byte(content), 0644), nil)
	return path
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	c := &cli{stdout: &stdout, stderr: &stderr}
	code := c.run(args)
	return code, stdout.String(), stderr.String()
}

func TestBuildWritesFlowGraph(t *testing.T) {
	input := writeFile(t, "demo.tree", demoTree)

	code, stdout, stderr := runCLI("build", "-stack", "3", input)
	be.Equal(t, code, 0)
	be.Equal(t, stderr, "")

	output := strings.TrimSuffix(input, ".tree") + ".j"
	be.True(t, strings.Contains(stdout, "Generated "+output))

	data, err := os.ReadFile(output)
	be.Err(t, err, nil)
	graph, err := flowgraph.ParseText(bytes.NewReader(data))
	be.Err(t, err, nil)
	be.Equal(t, graph.Header, flowgraph.Header{
		Version: "49.0", Source: "demo.tree", Program: "Demo", MaxStack: 3, Locals: 2,
	})
	be.True(t, strings.Contains(string(data), "\tiadd\n\tistore 1\n\tgetstatic"))
}

func TestBuildToStdout(t *testing.T) {
	input := writeFile(t, "demo.tree", demoTree)

	code, stdout, _ := runCLI("build", "-o", "-", "-name", "Other", "-source", "x.stups", input)
	be.Equal(t, code, 0)
	be.True(t, strings.HasPrefix(stdout, ".bytecode 49.0\n.source x.stups\n.class Other\n"))
	be.True(t, strings.Contains(stdout, "invokevirtual java/io/PrintStream/println(I)V"))
}

func TestBuildVerboseLogs(t *testing.T) {
	input := writeFile(t, "demo.tree", demoTree)

	code, _, stderr := runCLI("build", "-v", "-o", "-", input)
	be.Equal(t, code, 0)
	be.True(t, strings.Contains(stderr, "Compiling "+input))
	be.True(t, strings.Contains(stderr, "level=DEBUG"))
	be.True(t, strings.Contains(stderr, `msg="assigned slot"`))
}

func TestBuildReportsErrors(t *testing.T) {
	tests := []struct {
		name    string
		tree    string
		message string
	}{
		{"syntax", `(program (IDENTIFIER "Demo")`, "stupsc: "},
		{"redeclaration", `(program (IDENTIFIER "Demo")
			(declaration "INTEGER_TYPE" (IDENTIFIER "a") ^{line: 1})
			(declaration "INTEGER_TYPE" (IDENTIFIER "a") ^{line: 2}))`,
			"stupsc: line 2: symbol error: [a] already defined"},
		{"undeclared", `(program (IDENTIFIER "Demo")
			(print (IDENTIFIER "y" ^{type: INTEGER, line: 5})))`,
			"stupsc: line 5: symbol error: [y] not declared"},
		{"codegen", `(program (IDENTIFIER "Demo")
			(declaration "INTEGER_TYPE" (IDENTIFIER "a"))
			(print (IDENTIFIER "a")))`,
			"stupsc: compilation failed: line 0: code generation error: [print] nothing to print"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			input := writeFile(t, "bad.tree", test.tree)
			code, _, stderr := runCLI("build", "-o", "-", input)
			be.Equal(t, code, 1)
			be.True(t, strings.Contains(stderr, test.message))
		})
	}
}

func TestCheck(t *testing.T) {
	input := writeFile(t, "demo.tree", demoTree)

	code, stdout, _ := runCLI("check", "-v", input)
	be.Equal(t, code, 0)
	be.True(t, strings.Contains(stdout, input+": no errors found\n"))
	be.True(t, strings.Contains(stdout, "  x INTEGER (line 2, slot 1)\n"))
}

func TestCheckRejectsOperandTypes(t *testing.T) {
	input := writeFile(t, "bad.tree", `(program (IDENTIFIER "Demo")
  (declaration "BOOLEAN_TYPE" (IDENTIFIER "b") ^{line: 2})
  (assignment "b" ^{line: 3}
    (expr "LESS" ^{type: BOOLEAN, line: 3}
      (IDENTIFIER "b" ^{type: BOOLEAN, line: 3})
      (INTEGER_LIT "2" ^{type: INTEGER}))))`)

	code, stdout, stderr := runCLI("check", input)
	be.Equal(t, code, 1)
	be.Equal(t, stdout, "")
	be.True(t, strings.Contains(stderr, "stupsc: line 3: type error: [LESS] operand 1 has type BOOLEAN"))

	code, _, stderr = runCLI("build", "-o", "-", input)
	be.Equal(t, code, 1)
	be.True(t, strings.Contains(stderr, "[LESS] operand 1 has type BOOLEAN"))
}

func TestTree(t *testing.T) {
	input := writeFile(t, "small.tree", `(program (IDENTIFIER "Demo") (print (INTEGER_LIT "1" ^{type: INTEGER})))`)

	code, stdout, _ := runCLI("tree", input)
	be.Equal(t, code, 0)
	be.Equal(t, stdout, "program\n├── IDENTIFIER: Demo\n└── print\n    └── INTEGER_LIT: 1\n")

	code, stdout, _ = runCLI("tree", "-sexpr", input)
	be.Equal(t, code, 0)
	be.Equal(t, stdout, `(program (IDENTIFIER "Demo") (print (^{type: INTEGER} INTEGER_LIT "1")))`+"\n")
}

func TestUsage(t *testing.T) {
	code, _, stderr := runCLI()
	be.Equal(t, code, 1)
	be.True(t, strings.Contains(stderr, "Usage:"))

	code, stdout, _ := runCLI("help")
	be.Equal(t, code, 0)
	be.True(t, strings.Contains(stdout, "build <file>"))

	code, _, stderr = runCLI("frobnicate")
	be.Equal(t, code, 1)
	be.True(t, strings.Contains(stderr, "Unknown command: frobnicate"))

	code, _, stderr = runCLI("build")
	be.Equal(t, code, 1)
	be.True(t, strings.Contains(stderr, "expected exactly one file argument"))
	be.True(t, !strings.Contains(stderr, "stupsc: invalid usage"))

	code, _, stderr = runCLI("check", "/does/not/exist.tree")
	be.Equal(t, code, 1)
	be.True(t, strings.Contains(stderr, "stupsc: reading file /does/not/exist.tree"))
}
