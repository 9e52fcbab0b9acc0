package checker

import (
	"fmt"
	"go/token"
	"go/types"

	"go.uber.org/zap"

	"github.com/gnolang/tverify/internal/contracts"
	"github.com/gnolang/tverify/internal/metadata"
	"github.com/gnolang/tverify/internal/subroutine"
)

const overlaySource = "overlay"

// applyOverlays installs the configured clauses into the method cache.
// Problems are returned as warnings; they never stop the run.
func (c *Checker) applyOverlays(asm *metadata.Assembly) []string {
	var warnings []string
	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		c.logger.Warn("contract overlay skipped", zap.String("reason", msg))
		warnings = append(warnings, msg)
	}

	for _, o := range c.opts.Contracts {
		m, ok := asm.LookupMethod(o.Method)
		if !ok {
			warn("overlay: unknown function %s", o.Method)
			continue
		}
		recv := metadata.ReceiverName(asm.Decl(m))
		if b, err := overlayBuilder(o.Requires, m, recv); err != nil {
			warn("overlay: %s: %v", o.Method, err)
		} else if b.Len() > 0 && !c.cache.AddPrecondition(m, b) {
			warn("overlay: %s: precondition is inherited", o.Method)
		}
		if b, err := overlayBuilder(o.Ensures, m, recv); err != nil {
			warn("overlay: %s: %v", o.Method, err)
		} else if b.Len() > 0 {
			c.cache.AddPostcondition(m, b)
		}
	}

	for _, o := range c.opts.Invariants {
		t, ok := asm.LookupType(o.Type)
		if !ok {
			warn("overlay: unknown type %s", o.Type)
			continue
		}
		b, err := overlayBuilder(o.Invariant, nil, "")
		if err != nil {
			warn("overlay: %s: %v", o.Type, err)
			continue
		}
		if b.Len() > 0 && !c.cache.AddInvariant(t, b) {
			warn("overlay: %s: invariant is inherited", o.Type)
		}
	}
	return warnings
}

func overlayBuilder(texts []string, m *types.Func, recv string) (*subroutine.Builder, error) {
	clauses := make([]subroutine.Clause, 0, len(texts))
	for i, text := range texts {
		c, err := contracts.ParseClause(text, token.Position{Filename: overlaySource, Line: i + 1})
		if err != nil {
			return nil, err
		}
		c.Func, c.Recv = m, recv
		clauses = append(clauses, c)
	}
	return subroutine.BuilderOf(clauses...), nil
}
