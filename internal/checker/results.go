package checker

import "strings"

// Results is the outcome of one Check call. Package-level failures are
// reported in Warnings and Errors; failures of a single function are
// lines of its entry in Results.
type Results struct {
	RunID    string              `json:"run_id,omitempty"`
	Package  string              `json:"package,omitempty"`
	Warnings []string            `json:"warnings,omitempty"`
	Errors   []string            `json:"errors,omitempty"`
	Results  map[string][]string `json:"results,omitempty"`
	// Methods lists the keys of Results in analysis order.
	Methods []string `json:"methods,omitempty"`
}

// ErrorResults returns a result carrying msg as its only warning.
func ErrorResults(msg string) *Results {
	return &Results{Warnings: []string{msg}}
}

func newResults(pkg string) *Results {
	return &Results{Package: pkg, Results: make(map[string][]string)}
}

func (r *Results) AnyWarnings() bool { return len(r.Warnings) > 0 }
func (r *Results) AnyErrors() bool   { return len(r.Errors) > 0 }

func (r *Results) add(fullName string, lines []string) {
	if _, ok := r.Results[fullName]; !ok {
		r.Methods = append(r.Methods, fullName)
	}
	r.Results[fullName] = lines
}

// Exceptions counts the functions whose analysis failed.
func (r *Results) Exceptions() int {
	n := 0
	for _, lines := range r.Results {
		if isException(lines) {
			n++
		}
	}
	return n
}

func isException(lines []string) bool {
	return len(lines) == 1 && strings.HasPrefix(lines[0], exceptionPrefix)
}
