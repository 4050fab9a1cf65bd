package formatter

// BlockFormatter renders one basic block on a single line below the header,
// without a source snippet.
type BlockFormatter struct{}

func (f *BlockFormatter) IssueTemplate() string {
	return `{{header .Rule .Severity .MaxLineNumWidth .Location -}}
{{message .Message .Padding}}
`
}
