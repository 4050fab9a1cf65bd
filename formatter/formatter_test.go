package formatter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/gotoinstr/internal/program"
	tt "github.com/gnolang/gotoinstr/internal/types"
)

func init() {
	color.NoColor = true
}

func TestGenerateFormattedIssue(t *testing.T) {
	t.Parallel()
	code := &SourceCode{
		Lines: []string{
			"int main() {",
			"  int x;",
			"  x = 1;",
			"  return x;",
			"}",
		},
	}

	issues := []tt.Issue{
		{
			Rule:     tt.RuleBlockAnomaly,
			Severity: tt.SeverityWarning,
			Function: "main",
			Block:    1,
			Location: program.Location{File: "main.c", Function: "main", Line: 3},
			Message:  "ignoring block 1 location 2: missing source location",
		},
		{
			Rule:     tt.RuleBasicBlock,
			Severity: tt.SeverityInfo,
			Function: "main",
			Block:    0,
			Location: program.Location{File: "main.c", Function: "main", Line: 3},
			Message:  "block 0: representative 0, lines main.c:main:3-4",
		},
		{
			Rule:     tt.RuleBlockAnomaly,
			Severity: tt.SeverityError,
			Function: "main",
			Block:    2,
			Location: program.Location{File: "main.c", Function: "main", Line: 3, EndLine: 4},
			Message:  "ignoring block 2 location 5: no representative instruction",
			Note:     "the block only holds markers",
		},
	}

	expected := `warning: block-anomaly
 --> main.c:3
  |
3 | x = 1;
  = ignoring block 1 location 2: missing source location
  = function main, block 1

info: basic-block
 --> main.c:3
  = block 0: representative 0, lines main.c:main:3-4

error: block-anomaly
 --> main.c:3
  |
3 | x = 1;
4 | return x;
  = ignoring block 2 location 5: no representative instruction
  = function main, block 2
Note: the block only holds markers

`

	result := GenerateFormattedIssue(issues, map[string]*SourceCode{"main.c": code})
	assert.Equal(t, expected, result)
}

func TestGenerateFormattedIssueWithoutSource(t *testing.T) {
	t.Parallel()
	issues := []tt.Issue{
		{
			Model:    "empty.goto.yaml",
			Rule:     tt.RuleBlockAnomaly,
			Severity: tt.SeverityWarning,
			Function: "empty",
			Block:    -1,
			Message:  "function empty has no blocks",
		},
	}

	expected := `warning: block-anomaly
 --> empty.goto.yaml
  = function empty has no blocks
  = function empty

`
	assert.Equal(t, expected, GenerateFormattedIssue(issues, nil))
}

func TestLoadSources(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	file := filepath.Join(dir, "main.c")
	require.NoError(t, os.WriteFile(file, []byte("int main() {\n  return 0;\n}\n"), 0o644))

	issues := []tt.Issue{
		{Location: program.Location{File: file, Line: 2}},
		{Location: program.Location{File: file, Line: 3}},
		{Location: program.Location{File: filepath.Join(dir, "gone.c"), Line: 1}},
		{Location: program.Location{File: "<builtin-library>", BuiltIn: true}},
	}

	sources := LoadSources(issues)
	require.Len(t, sources, 2)
	require.NotNil(t, sources[file])
	assert.Equal(t, []string{"int main() {", "  return 0;", "}"}, sources[file].Lines)
	assert.Nil(t, sources[filepath.Join(dir, "gone.c")])
}

func TestFindCommonIndent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		lines    []string
		expected string
	}{
		{"empty", nil, ""},
		{"spaces", []string{"    a", "  b"}, "  "},
		{"blank lines ignored", []string{"", "\tx", "\t\ty"}, "\t"},
		{"no indent", []string{"a", "  b"}, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, findCommonIndent(tt.lines), tt.name)
	}
}
