package formatter

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gnolang/tverify/verify"
)

// Verdicts, as they appear in diagnostic lines.
const (
	Valid       = "valid"
	Invalid     = "invalid"
	Unproven    = "unproven"
	Unreachable = "unreachable"
)

const exceptionPrefix = "Exception: "

// Diagnostic is one parsed "file:line:col: verdict: provenance (condition)" line.
type Diagnostic struct {
	Filename   string `json:"file"`
	Line       int    `json:"line"`
	Column     int    `json:"column"`
	Verdict    string `json:"verdict"`
	Provenance string `json:"provenance"`
	Condition  string `json:"condition"`
}

var diagnosticPattern = regexp.MustCompile(`^(.+):(\d+):(\d+): (valid|invalid|unproven|unreachable): (.+)$`)

// ParseDiagnostic parses a diagnostic line. Summary and exception lines
// are not diagnostics.
func ParseDiagnostic(line string) (Diagnostic, bool) {
	if strings.HasPrefix(line, exceptionPrefix) {
		return Diagnostic{}, false
	}
	m := diagnosticPattern.FindStringSubmatch(line)
	if m == nil {
		return Diagnostic{}, false
	}
	provenance, condition, ok := splitCondition(m[5])
	if !ok {
		return Diagnostic{}, false
	}
	lineNum, _ := strconv.Atoi(m[2])
	col, _ := strconv.Atoi(m[3])
	return Diagnostic{
		Filename:   m[1],
		Line:       lineNum,
		Column:     col,
		Verdict:    m[4],
		Provenance: provenance,
		Condition:  condition,
	}, true
}

// splitCondition splits "provenance (condition)" at the parenthesis
// matching the final one.
func splitCondition(s string) (string, string, bool) {
	if !strings.HasSuffix(s, ")") {
		return "", "", false
	}
	depth := 0
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				if i == 0 || s[i-1] != ' ' {
					return "", "", false
				}
				return s[:i-1], s[i+1 : len(s)-1], true
			}
		}
	}
	return "", "", false
}

// Exception returns the message of an exception line.
func Exception(lines []string) (string, bool) {
	if len(lines) != 1 || !strings.HasPrefix(lines[0], exceptionPrefix) {
		return "", false
	}
	return strings.TrimPrefix(lines[0], exceptionPrefix), true
}

// Summary counts the outcome of one or more packages.
type Summary struct {
	Packages   int            `json:"packages"`
	Functions  int            `json:"functions"`
	Exceptions int            `json:"exceptions"`
	Warnings   int            `json:"warnings"`
	Verdicts   map[string]int `json:"verdicts"`
}

// Summarize counts the diagnostics of results.
func Summarize(results ...*verify.CheckResults) Summary {
	s := Summary{Verdicts: make(map[string]int)}
	for _, res := range results {
		if res == nil {
			continue
		}
		s.Packages++
		s.Warnings += len(res.Warnings) + len(res.Errors)
		for _, lines := range res.Results {
			s.Functions++
			if _, ok := Exception(lines); ok {
				s.Exceptions++
				continue
			}
			for _, l := range lines {
				if d, ok := ParseDiagnostic(l); ok {
					s.Verdicts[d.Verdict]++
				}
			}
		}
	}
	return s
}

// Failed reports whether anything was refuted or could not be analyzed.
func (s Summary) Failed() bool {
	return s.Verdicts[Invalid] > 0 || s.Exceptions > 0 || s.Warnings > 0
}

// Assertions is the number of checked assertions.
func (s Summary) Assertions() int {
	n := 0
	for _, c := range s.Verdicts {
		n += c
	}
	return n
}
