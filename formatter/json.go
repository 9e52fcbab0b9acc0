package formatter

import (
	"encoding/json"
	"io"

	"github.com/gnolang/tverify/verify"
)

type jsonFunction struct {
	Name        string       `json:"name"`
	Exception   string       `json:"exception,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

type jsonPackage struct {
	RunID     string         `json:"run_id,omitempty"`
	Package   string         `json:"package,omitempty"`
	Warnings  []string       `json:"warnings,omitempty"`
	Errors    []string       `json:"errors,omitempty"`
	Functions []jsonFunction `json:"functions"`
}

type jsonReport struct {
	Packages []jsonPackage `json:"packages"`
	Summary  Summary       `json:"summary"`
}

// WriteJSON writes results as one JSON document.
func WriteJSON(w io.Writer, results ...*verify.CheckResults) error {
	report := jsonReport{Packages: []jsonPackage{}, Summary: Summarize(results...)}
	for _, res := range results {
		if res == nil {
			continue
		}
		p := jsonPackage{
			RunID:     res.RunID,
			Package:   res.Package,
			Warnings:  res.Warnings,
			Errors:    res.Errors,
			Functions: []jsonFunction{},
		}
		for _, name := range res.Methods {
			lines := res.Results[name]
			fn := jsonFunction{Name: name, Diagnostics: []Diagnostic{}}
			if msg, ok := Exception(lines); ok {
				fn.Exception = msg
			}
			for _, l := range lines {
				if d, ok := ParseDiagnostic(l); ok {
					fn.Diagnostics = append(fn.Diagnostics, d)
				}
			}
			p.Functions = append(p.Functions, fn)
		}
		report.Packages = append(report.Packages, p)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
