package checker

import "time"

// Options configures one Check call.
type Options struct {
	// Assembly is the directory of the package to check.
	Assembly string
	// MethodFilter restricts the analysis to functions whose full name
	// contains it.
	MethodFilter string
	Debug        bool
	// Timeout is the analysis budget of each function. Zero disables it.
	Timeout time.Duration

	Contracts  []ContractOverlay
	Invariants []InvariantOverlay
}

// ContractOverlay adds clauses to the contract of a function that the
// source does not declare, e.g. for code that cannot be annotated.
type ContractOverlay struct {
	Method   string
	Requires []string
	Ensures  []string
}

// InvariantOverlay adds invariant clauses to a named type.
type InvariantOverlay struct {
	Type      string
	Invariant []string
}
