package formatter

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"
	"text/template"
	"unicode"

	"github.com/fatih/color"

	tt "github.com/gnolang/gotoinstr/internal/types"
)

var (
	errorStyle   = color.New(color.FgRed, color.Bold)
	warningStyle = color.New(color.FgHiYellow, color.Bold)
	infoStyle    = color.New(color.FgGreen, color.Bold)
	ruleStyle    = color.New(color.FgYellow, color.Bold)
	fileStyle    = color.New(color.FgCyan, color.Bold)
	lineStyle    = color.New(color.FgHiBlue, color.Bold)
	messageStyle = color.New(color.FgRed, color.Bold)
	noteStyle    = color.New(color.FgGreen, color.Bold)
)

// issueFormatter is the interface that wraps the issueTemplate method.
// Implementations of this interface are responsible for formatting specific types of issues.
type issueFormatter interface {
	IssueTemplate() string
}

// getIssueFormatter returns the formatter for rule, falling back to
// GeneralIssueFormatter.
func getIssueFormatter(rule string) issueFormatter {
	switch rule {
	case tt.RuleBasicBlock:
		return &BlockFormatter{}
	default:
		return &GeneralIssueFormatter{}
	}
}

// SourceCode holds the lines of one source file.
type SourceCode struct {
	Lines []string
}

func ReadSourceCode(path string) (*SourceCode, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return &SourceCode{Lines: lines}, nil
}

// LoadSources reads every source file referenced by issues. Files that
// cannot be read are skipped; their issues are rendered without a snippet.
func LoadSources(issues []tt.Issue) map[string]*SourceCode {
	sources := make(map[string]*SourceCode)
	for _, issue := range issues {
		file := issue.Location.File
		if file == "" || issue.Location.BuiltIn {
			continue
		}
		if _, seen := sources[file]; seen {
			continue
		}
		src, _ := ReadSourceCode(file)
		sources[file] = src
	}
	return sources
}

// GenerateFormattedIssue formats a slice of issues into a human-readable string.
// Source lines are taken from sources, keyed by file name.
func GenerateFormattedIssue(issues []tt.Issue, sources map[string]*SourceCode) string {
	var builder strings.Builder
	for _, issue := range issues {
		formatter := getIssueFormatter(issue.Rule)
		builder.WriteString(buildIssue(issue, sources[issue.Location.File], formatter))
	}
	return builder.String()
}

/***** Issue Formatter Builder *****/

type IssueData struct {
	Severity        string
	Rule            string
	Location        string
	Function        string
	Block           int
	Padding         string
	StartLine       int
	EndLine         int
	MaxLineNumWidth int
	Message         string
	Note            string
	SnippetLines    []string
	CommonIndent    string
}

func buildIssue(issue tt.Issue, snippet *SourceCode, formatter issueFormatter) string {
	startLine := issue.Location.Line
	endLine := issue.Location.LastLine()
	maxLineNumWidth := calculateMaxLineNumWidth(endLine)

	var lines []string
	if snippet != nil {
		lines = snippet.Lines
	}

	var commonIndent string
	if isValidLineRange(startLine, endLine, lines) {
		commonIndent = findCommonIndent(lines[startLine-1 : endLine])
	}

	data := IssueData{
		Severity:        issue.Severity.String(),
		Rule:            issue.Rule,
		Location:        locationString(issue),
		Function:        issue.Function,
		Block:           issue.Block,
		Padding:         strings.Repeat(" ", maxLineNumWidth+1),
		StartLine:       startLine,
		EndLine:         endLine,
		MaxLineNumWidth: maxLineNumWidth,
		Message:         issue.Message,
		Note:            issue.Note,
		SnippetLines:    lines,
		CommonIndent:    commonIndent,
	}

	funcMap := template.FuncMap{
		"header":  header,
		"snippet": codeSnippet,
		"message": message,
		"context": context,
		"note":    note,
	}

	tmpl := template.Must(template.New("issue").Funcs(funcMap).Parse(formatter.IssueTemplate()))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Error formatting issue: %v", err)
	}
	return buf.String()
}

func locationString(issue tt.Issue) string {
	loc := issue.Location
	switch {
	case loc.File != "" && loc.Line > 0:
		return fmt.Sprintf("%s:%d", loc.File, loc.Line)
	case loc.File != "":
		return loc.File
	case issue.Model != "":
		return issue.Model
	}
	return "<no location>"
}

// utils functions used in the text templates

func header(rule string, severity string, maxLineNumWidth int, location string) string {
	var endString string
	switch severity {
	case "error":
		endString = errorStyle.Sprint("error: ")
	case "warning":
		endString = warningStyle.Sprint("warning: ")
	default:
		endString = infoStyle.Sprint("info: ")
	}
	endString += ruleStyle.Sprintf("%s\n", rule)

	padding := strings.Repeat(" ", maxLineNumWidth)
	endString += lineStyle.Sprintf("%s--> ", padding)
	endString += fileStyle.Sprintf("%s\n", location)
	return endString
}

func codeSnippet(snippetLines []string, startLine int, endLine int, maxLineNumWidth int, commonIndent string, padding string) string {
	if !isValidLineRange(startLine, endLine, snippetLines) {
		return ""
	}

	endString := lineStyle.Sprintf("%s|\n", padding)
	for i := startLine; i <= endLine; i++ {
		line := strings.TrimPrefix(snippetLines[i-1], commonIndent)
		lineNum := fmt.Sprintf("%*d", maxLineNumWidth, i)
		endString += lineStyle.Sprintf("%s | ", lineNum) + line + "\n"
	}
	return endString
}

func message(message string, padding string) string {
	return lineStyle.Sprintf("%s= ", padding) + messageStyle.Sprintf("%s\n", message)
}

func context(function string, block int, padding string) string {
	if function == "" {
		return ""
	}
	text := "function " + function
	if block >= 0 {
		text += fmt.Sprintf(", block %d", block)
	}
	return lineStyle.Sprintf("%s= ", padding) + fmt.Sprintf("%s\n", text)
}

func note(note string) string {
	if note == "" {
		return ""
	}
	return noteStyle.Sprint("Note: ") + lineStyle.Sprintf("%s\n", note)
}

func isValidLineRange(startLine int, endLine int, snippetLines []string) bool {
	return startLine > 0 &&
		endLine > 0 &&
		startLine <= endLine &&
		startLine <= len(snippetLines) &&
		endLine <= len(snippetLines)
}

func calculateMaxLineNumWidth(endLine int) int {
	return len(fmt.Sprintf("%d", endLine))
}

// findCommonIndent finds the common indent in the code snippet.
func findCommonIndent(lines []string) string {
	if len(lines) == 0 {
		return ""
	}

	// find first non-empty line's indent
	var firstIndent []rune
	for _, line := range lines {
		trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
		if trimmed != "" {
			firstIndent = []rune(line[:len(line)-len(trimmed)])
			break
		}
	}
	if len(firstIndent) == 0 {
		return ""
	}

	for _, line := range lines {
		trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
		if trimmed == "" {
			continue
		}
		firstIndent = commonPrefix(firstIndent, []rune(line[:len(line)-len(trimmed)]))
		if len(firstIndent) == 0 {
			break
		}
	}
	return string(firstIndent)
}

func commonPrefix(a, b []rune) []rune {
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		if a[i] != b[i] {
			return a[:i]
		}
	}
	return a[:minLen]
}
