package sexy

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"
)

const fence = "```"

func TestExtractTestCases_BasicTest(t *testing.T) {
	markdown := `# Assignments

## Test: sum into slot
` + fence + `tree
(program (assignment "x" (expr (INTEGER_LIT "1"))))
` + fence + `
` + fence + `flowgraph
ldc 1
istore 1
` + fence + `

## Test: empty program
` + fence + `tree
(program)
` + fence + `
` + fence + `compile-error
empty program
` + fence

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 2)

	tc1 := testCases[0]
	be.Equal(t, tc1.Name, "sum into slot")
	be.Equal(t, tc1.InputType, InputTypeTree)
	be.Equal(t, tc1.Input, `(program (assignment "x" (expr (INTEGER_LIT "1"))))`)
	be.Equal(t, tc1.ParsedTree.String(), `(program (assignment "x" (expr (INTEGER_LIT "1"))))`)
	be.Equal(t, tc1.Line, 5)
	be.Equal(t, len(tc1.Assertions), 1)
	be.Equal(t, tc1.Assertions[0].Type, AssertionTypeFlowGraph)
	be.Equal(t, tc1.Assertions[0].Content, "ldc 1\nistore 1")
	be.True(t, tc1.Assertions[0].ParsedSexy == nil)

	tc2 := testCases[1]
	be.Equal(t, tc2.Name, "empty program")
	be.Equal(t, tc2.Assertions[0].Type, AssertionTypeCompileError)
	be.Equal(t, tc2.Assertions[0].Content, "empty program")
}

func TestExtractTestCases_SlotsAssertion(t *testing.T) {
	markdown := `## Test: two slots
` + fence + `tree
(program (declaration (INTEGER_TYPE) (IDENTIFIER "a")))
` + fence + `
` + fence + `slots
{a: 1, b: 2}
` + fence + `
` + fence + `flowgraph
return
` + fence

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)

	tc := testCases[0]
	be.Equal(t, len(tc.Assertions), 2)
	be.Equal(t, tc.Assertions[0].Type, AssertionTypeSlots)
	be.Equal(t, tc.Assertions[0].ParsedSexy.Type, NodeMap)
	be.Equal(t, tc.Assertions[0].ParsedSexy.Keys, []string{"a", "b"})
	be.Equal(t, tc.Assertions[0].ParsedSexy.Items[1].Text, "2")
	be.Equal(t, tc.Assertions[1].Type, AssertionTypeFlowGraph)
}

func TestExtractTestCases_EmptyFile(t *testing.T) {
	testCases, err := ExtractTestCases("")
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 0)
}

func TestExtractTestCases_NoTestCases(t *testing.T) {
	markdown := `# Just a document

Some prose, and an untagged fence:

` + fence + `
anything
` + fence

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 0)
}

func TestExtractTestCases_InvalidInputTree(t *testing.T) {
	markdown := `## Test: broken
` + fence + `tree
(program (unclosed
` + fence + `
` + fence + `flowgraph
return
` + fence

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "failed to parse input of test 'broken'"))
	be.True(t, strings.Contains(err.Error(), "line 3"))
}

func TestExtractTestCases_InvalidSexyAssertion(t *testing.T) {
	markdown := `## Test: bad slots
` + fence + `tree
(program)
` + fence + `
` + fence + `slots
{a 1}
` + fence

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "failed to parse Sexy assertion"))
	be.True(t, strings.Contains(err.Error(), "line 6"))
}

func TestExtractTestCases_FenceOutsideTestCase(t *testing.T) {
	tests := []struct {
		name      string
		fenceType string
	}{
		{"tree fence", "tree"},
		{"flowgraph fence", "flowgraph"},
		{"slots fence", "slots"},
		{"compile-error fence", "compile-error"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			markdown := "# Heading\n\n" + fence + test.fenceType + "\n(program)\n" + fence

			_, err := ExtractTestCases(markdown)
			be.True(t, err != nil)
			be.True(t, strings.Contains(err.Error(), test.fenceType+" fence found outside of test case"))
			be.True(t, strings.Contains(err.Error(), "line 4"))
		})
	}
}

func TestExtractTestCases_UnknownFenceOutsideTest(t *testing.T) {
	markdown := "# Heading\n\n" + fence + "go\nfunc main() {}\n" + fence

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "unknown fence language 'go' found outside of test case"))
}

func TestExtractTestCases_UnknownFenceLanguageInTest(t *testing.T) {
	markdown := `## Test: python
` + fence + `tree
(program)
` + fence + `
` + fence + `python
print("hi")
` + fence

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "unknown fence language 'python'"))
	be.True(t, strings.Contains(err.Error(), "line"))
}

func TestExtractTestCases_TestMissingInputFence(t *testing.T) {
	markdown := `## Test: no input
` + fence + `flowgraph
return
` + fence

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "test 'no input' has no input fence"))
}

func TestExtractTestCases_TestMissingAssertionFence(t *testing.T) {
	markdown := `## Test: no assertions
` + fence + `tree
(program)
` + fence

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "test 'no assertions' has no assertion fences"))
}

func TestExtractTestCases_MultipleInputFences(t *testing.T) {
	markdown := `## Test: two inputs
` + fence + `tree
(program)
` + fence + `
` + fence + `tree
(program)
` + fence + `
` + fence + `flowgraph
return
` + fence

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "multiple input fences found"))
	be.True(t, strings.Contains(err.Error(), "line 6"))
}

func TestExtractTestCases_AllowFencesWithoutLanguage(t *testing.T) {
	markdown := `## Test: commentary
` + fence + `
this fence is prose
` + fence + `
` + fence + `tree
(program)
` + fence + `
` + fence + `compile-error
empty
` + fence

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)
	be.Equal(t, len(testCases[0].Assertions), 1)
}

func TestExtractTestCases_ErrorInSecondTest(t *testing.T) {
	markdown := `## Test: first test
` + fence + `tree
(program)
` + fence + `
` + fence + `compile-error
empty
` + fence + `

## Test: second test missing input
` + fence + `compile-error
empty
` + fence

	_, err := ExtractTestCases(markdown)
	be.True(t, err != nil)
	be.True(t, strings.Contains(err.Error(), "test 'second test missing input' has no input fence"))
}

func TestExtractTestCases_IgnoresOtherHeadings(t *testing.T) {
	markdown := `# Suite

## Notes

Plain prose between tests.

## Test: only
` + fence + `tree
(program)
` + fence + `
` + fence + `compile-error
empty
` + fence + `

### Subheading inside test
`

	testCases, err := ExtractTestCases(markdown)
	be.Err(t, err, nil)
	be.Equal(t, len(testCases), 1)
	be.Equal(t, testCases[0].Name, "only")
}
