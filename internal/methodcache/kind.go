package methodcache

import (
	"go/types"

	"github.com/gnolang/tverify/internal/subroutine"
)

// ContractKind enumerates the four cached contract kinds.
type ContractKind int

const (
	Requires ContractKind = iota
	Ensures
	ModelEnsures
	Invariant
)

func (k ContractKind) String() string { return k.Subroutine().String() }

// Subroutine returns the subroutine kind built for k.
func (k ContractKind) Subroutine() subroutine.Kind {
	switch k {
	case Requires:
		return subroutine.Requires
	case Ensures:
		return subroutine.Ensures
	case ModelEnsures:
		return subroutine.ModelEnsures
	default:
		return subroutine.Invariant
	}
}

// methodRule is how one method-keyed contract kind is decoded and how it
// composes inherited contracts.
type methodRule struct {
	has     func(c ContractDecoder, m *types.Func) bool
	access  func(c ContractDecoder, m *types.Func, inherited subroutine.Set, consume subroutine.Factory[subroutine.Set]) *subroutine.Subroutine
	inherit func(mc *MethodCache, m *types.Func) subroutine.Set
	// absent builds the result when neither a local nor an inherited
	// contract exists.
	absent func(owner string) *subroutine.Subroutine
}

// rule returns the composition rule of a method-keyed kind.
func (k ContractKind) rule() methodRule {
	switch k {
	case Requires:
		return methodRule{
			has:     ContractDecoder.HasRequires,
			access:  ContractDecoder.AccessRequires,
			inherit: inheritRequires,
			absent:  func(string) *subroutine.Subroutine { return nil },
		}
	case Ensures:
		return methodRule{
			has:     ContractDecoder.HasEnsures,
			access:  ContractDecoder.AccessEnsures,
			inherit: inheritFrom(Ensures),
			absent: func(owner string) *subroutine.Subroutine {
				return subroutine.NewContainer(subroutine.Ensures, owner, subroutine.EmptySet())
			},
		}
	case ModelEnsures:
		return methodRule{
			has:     ContractDecoder.HasModelEnsures,
			access:  ContractDecoder.AccessModelEnsures,
			inherit: inheritFrom(ModelEnsures),
			absent:  func(string) *subroutine.Subroutine { return nil },
		}
	default:
		panic("methodcache: " + k.String() + " is not keyed by method")
	}
}

// inheritRequires unions the precondition of the root method with those of
// every implemented interface method.
func inheritRequires(mc *MethodCache, m *types.Func) subroutine.Set {
	set := subroutine.EmptySet()
	if root, ok := mc.meta.TryGetRootMethod(m); ok {
		set = set.Add(mc.Requires(root))
	}
	for _, im := range mc.meta.ImplementedMethods(m) {
		set = set.Add(mc.Requires(im))
	}
	return set
}

// inheritFrom unions the kind's contract over every overridden and
// implemented method.
func inheritFrom(kind ContractKind) func(mc *MethodCache, m *types.Func) subroutine.Set {
	return func(mc *MethodCache, m *types.Func) subroutine.Set {
		set := subroutine.EmptySet()
		for _, om := range mc.meta.OverriddenAndImplementedMethods(m) {
			set = set.Add(mc.Get(kind, om))
		}
		return set
	}
}
