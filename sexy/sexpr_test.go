package sexy

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

func TestParseSymbol(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello", "hello"},
		{"test_var", "test_var"},
		{"func-name", "func-name"},
		{"java/lang/Object", "java/lang/Object"},
		{"+", "+"},
		{"-", "-"},
	}

	for _, test := range tests {
		result, err := Parse(test.input)
		be.Err(t, err, nil)

		be.Equal(t, result.Type, NodeSymbol)
		be.Equal(t, result.Text, test.expected)
		be.Equal(t, result.String(), test.expected)
	}
}

func TestParseString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		output   string
	}{
		{`"hello"`, "hello", `"hello"`},
		{`"hello world"`, "hello world", `"hello world"`},
		{`""`, "", `""`},
		{`"test\"quote"`, `test"quote`, `"test\"quote"`},
		{`"test\\backslash"`, `test\backslash`, `"test\\backslash"`},
	}

	for _, test := range tests {
		result, err := Parse(test.input)
		be.Err(t, err, nil)

		be.Equal(t, result.Type, NodeString)
		be.Equal(t, result.Text, test.expected)
		be.Equal(t, result.String(), test.output)
	}
}

func TestParseInteger(t *testing.T) {
	for _, input := range []string{"42", "0", "-123", "+456"} {
		result, err := Parse(input)
		be.Err(t, err, nil)

		be.Equal(t, result.Type, NodeInteger)
		be.Equal(t, result.Text, input)
		be.Equal(t, result.String(), input)
	}
}

func TestParseList(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"()", "()"},
		{"(hello)", "(hello)"},
		{"(1 2 3)", "(1 2 3)"},
		{`(binary "+" 1 2)`, `(binary "+" 1 2)`},
		{"(nested (list here))", "(nested (list here))"},
		{"(  spaced\n\t(out)  )", "(spaced (out))"},
	}

	for _, test := range tests {
		result, err := Parse(test.input)
		be.Err(t, err, nil)

		be.Equal(t, result.Type, NodeList)
		be.Equal(t, result.String(), test.expected)
	}
}

func TestParseMap(t *testing.T) {
	result, err := Parse(`{x: 1, y: "two", z: (list)}`)
	be.Err(t, err, nil)

	be.Equal(t, result.Type, NodeMap)
	be.Equal(t, result.Keys, []string{"x", "y", "z"})
	be.Equal(t, result.Items[0].Text, "1")
	be.Equal(t, result.Items[1].Type, NodeString)
	be.Equal(t, result.Items[1].Text, "two")
	be.Equal(t, result.Items[2].Type, NodeList)
	be.Equal(t, result.String(), `{x: 1, y: "two", z: (list)}`)
}

func TestParseEmptyMap(t *testing.T) {
	result, err := Parse("{}")
	be.Err(t, err, nil)
	be.Equal(t, result.Type, NodeMap)
	be.Equal(t, len(result.Keys), 0)
	be.Equal(t, result.String(), "{}")
}

func TestParseMetadata(t *testing.T) {
	result, err := Parse(`(IDENTIFIER "x" ^{type: INTEGER, line: 3})`)
	be.Err(t, err, nil)

	be.Equal(t, len(result.Items), 2)
	be.Equal(t, result.Meta("type").Text, "INTEGER")
	be.Equal(t, result.Meta("line").Type, NodeInteger)
	be.Equal(t, result.Meta("line").Text, "3")
	be.True(t, result.Meta("missing") == nil)
	be.Equal(t, result.String(), `(^{type: INTEGER, line: 3} IDENTIFIER "x")`)
}

func TestParseMetadataLaterValueWins(t *testing.T) {
	result, err := Parse(`(a ^{type: INTEGER} ^{type: BOOLEAN})`)
	be.Err(t, err, nil)
	be.Equal(t, result.Meta("type").Text, "BOOLEAN")
	be.Equal(t, len(result.MetaKeys), 1)
}

func TestSetMeta(t *testing.T) {
	node := NewList(NewSymbol("expr"))
	node.SetMeta("type", NewSymbol("STRING"))
	node.SetMeta("line", NewInteger("7"))
	node.SetMeta("type", NewSymbol("INTEGER"))

	be.Equal(t, node.String(), "(^{type: INTEGER, line: 7} expr)")
}

func TestParseComments(t *testing.T) {
	result, err := Parse("; leading comment\n(a ; trailing\n b)")
	be.Err(t, err, nil)
	be.Equal(t, result.String(), "(a b)")
}

func TestParsePositions(t *testing.T) {
	result, err := Parse(`(a "b" 12)`)
	be.Err(t, err, nil)
	be.Equal(t, result.Position, 0)
	be.Equal(t, result.Items[0].Position, 1)
	be.Equal(t, result.Items[1].Position, 3)
	be.Equal(t, result.Items[2].Position, 7)
}
