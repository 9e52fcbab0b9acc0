package formatter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
	"unicode"

	"github.com/fatih/color"

	"github.com/gnolang/tverify/verify"
)

const tabWidth = 8

var (
	errorStyle    = color.New(color.FgRed, color.Bold)
	warningStyle  = color.New(color.FgHiYellow, color.Bold)
	validStyle    = color.New(color.FgGreen, color.Bold)
	ruleStyle     = color.New(color.FgYellow, color.Bold)
	fileStyle     = color.New(color.FgCyan, color.Bold)
	lineStyle     = color.New(color.FgHiBlue, color.Bold)
	messageStyle  = color.New(color.FgRed, color.Bold)
	functionStyle = color.New(color.FgWhite, color.Bold)
)

const diagnosticTemplate = `{{header .Verdict .Provenance .Padding .Filename .Line .Column}}
{{snippet .Source .Line .Width .Indent .Padding -}}
{{caret .Condition .Padding .Source .Line .Column .Indent}}
`

var diagnosticTmpl = template.Must(template.New("diagnostic").Funcs(template.FuncMap{
	"header":  header,
	"snippet": codeSnippet,
	"caret":   caretAndCondition,
}).Parse(diagnosticTemplate))

// TextOptions controls the text output.
type TextOptions struct {
	// Verbose also prints valid and unreachable assertions.
	Verbose bool
}

// Text renders results for a terminal.
type Text struct {
	opts    TextOptions
	sources map[string][]string
}

func NewText(opts TextOptions) *Text {
	return &Text{opts: opts, sources: make(map[string][]string)}
}

// Write renders every package of results and a closing summary.
func (t *Text) Write(w io.Writer, results ...*verify.CheckResults) error {
	var buf bytes.Buffer
	for _, res := range results {
		if res == nil {
			continue
		}
		t.writePackage(&buf, res)
	}
	writeSummary(&buf, Summarize(results...))
	_, err := w.Write(buf.Bytes())
	return err
}

func (t *Text) writePackage(buf *bytes.Buffer, res *verify.CheckResults) {
	for _, msg := range res.Warnings {
		buf.WriteString(warningStyle.Sprint("warning: "))
		buf.WriteString(msg + "\n")
	}
	for _, msg := range res.Errors {
		buf.WriteString(errorStyle.Sprint("error: "))
		buf.WriteString(msg + "\n")
	}
	for _, name := range res.Methods {
		lines := res.Results[name]
		if msg, ok := Exception(lines); ok {
			buf.WriteString(errorStyle.Sprint("exception: "))
			buf.WriteString(functionStyle.Sprint(name))
			buf.WriteString(": " + msg + "\n\n")
			continue
		}
		for _, l := range lines {
			d, ok := ParseDiagnostic(l)
			if !ok || !t.shows(d) {
				continue
			}
			buf.WriteString(t.render(d))
			buf.WriteString("\n")
		}
	}
}

func (t *Text) shows(d Diagnostic) bool {
	return t.opts.Verbose || d.Verdict == Invalid || d.Verdict == Unproven
}

type diagnosticData struct {
	Diagnostic
	Source  []string
	Width   int
	Padding string
	Indent  string
}

func (t *Text) render(d Diagnostic) string {
	source := t.source(d.Filename)
	width := len(fmt.Sprintf("%d", d.Line))
	data := diagnosticData{
		Diagnostic: d,
		Source:     source,
		Width:      width,
		Padding:    strings.Repeat(" ", width+1),
	}
	if isValidLine(d.Line, source) {
		data.Indent = leadingSpace(source[d.Line-1])
	}

	var buf bytes.Buffer
	if err := diagnosticTmpl.Execute(&buf, data); err != nil {
		return fmt.Sprintf("Error formatting diagnostic: %v\n", err)
	}
	return buf.String()
}

// source returns the lines of filename. Unreadable files have no lines.
func (t *Text) source(filename string) []string {
	if lines, ok := t.sources[filename]; ok {
		return lines
	}
	var lines []string
	if content, err := os.ReadFile(filename); err == nil {
		lines = strings.Split(string(content), "\n")
	}
	t.sources[filename] = lines
	return lines
}

func writeSummary(buf *bytes.Buffer, s Summary) {
	fmt.Fprintf(buf, "%d packages, %d functions, %d assertions: ", s.Packages, s.Functions, s.Assertions())
	buf.WriteString(validStyle.Sprintf("%d valid", s.Verdicts[Valid]))
	buf.WriteString(", ")
	buf.WriteString(errorStyle.Sprintf("%d invalid", s.Verdicts[Invalid]))
	buf.WriteString(", ")
	buf.WriteString(warningStyle.Sprintf("%d unproven", s.Verdicts[Unproven]))
	fmt.Fprintf(buf, ", %d unreachable", s.Verdicts[Unreachable])
	if s.Exceptions > 0 {
		buf.WriteString(", ")
		buf.WriteString(errorStyle.Sprintf("%d exceptions", s.Exceptions))
	}
	buf.WriteString("\n")
}

// utils functions used in the text template

func header(verdict, provenance, padding, filename string, line, column int) string {
	var out string
	switch verdict {
	case Invalid:
		out = errorStyle.Sprintf("%s: ", verdict)
	case Unproven:
		out = warningStyle.Sprintf("%s: ", verdict)
	default:
		out = validStyle.Sprintf("%s: ", verdict)
	}
	out += ruleStyle.Sprintf("%s\n", provenance)
	out += lineStyle.Sprintf("%s--> ", padding[1:])
	out += fileStyle.Sprintf("%s:%d:%d", filename, line, column)
	return out
}

func codeSnippet(source []string, line, width int, indent, padding string) string {
	if !isValidLine(line, source) {
		return ""
	}
	out := lineStyle.Sprintf("%s|\n", padding)
	out += lineStyle.Sprintf("%*d | ", width, line)
	out += strings.TrimPrefix(source[line-1], indent) + "\n"
	return out
}

func caretAndCondition(condition, padding string, source []string, line, column int, indent string) string {
	out := lineStyle.Sprintf("%s| ", padding)
	if isValidLine(line, source) {
		start := calculateVisualColumn(source[line-1], column) - calculateVisualColumn(indent, len(indent)+1)
		if start < 0 {
			start = 0
		}
		out += strings.Repeat(" ", start) + messageStyle.Sprint("^") + "\n"
		out += lineStyle.Sprintf("%s= ", padding)
	}
	out += messageStyle.Sprintf("requires %s", condition)
	return out
}

func isValidLine(line int, source []string) bool {
	return line > 0 && line <= len(source)
}

func leadingSpace(line string) string {
	return line[:len(line)-len(strings.TrimLeftFunc(line, unicode.IsSpace))]
}

// calculateVisualColumn calculates the visual column position
// in a string. taking into account tab characters.
func calculateVisualColumn(line string, column int) int {
	if column < 0 {
		return 0
	}
	visualColumn := 0
	for i, ch := range line {
		if i+1 == column {
			break
		}
		if ch == '\t' {
			visualColumn += tabWidth - (visualColumn % tabWidth)
		} else {
			visualColumn++
		}
	}
	return visualColumn
}
