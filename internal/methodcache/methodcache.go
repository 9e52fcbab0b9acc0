package methodcache

import (
	"go/types"

	"go.uber.org/zap"

	"github.com/gnolang/tverify/internal/subroutine"
)

// MethodCache owns the four contract caches of one analysis run.
type MethodCache struct {
	logger    *zap.Logger
	meta      MetadataDecoder
	contracts ContractDecoder

	requires     *Cache[*types.Func]
	ensures      *Cache[*types.Func]
	modelEnsures *Cache[*types.Func]
	invariants   *Cache[*types.TypeName]

	redundant map[*subroutine.Subroutine]*subroutine.Subroutine
}

func New(logger *zap.Logger, meta MetadataDecoder, contracts ContractDecoder) *MethodCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	mc := &MethodCache{
		logger:    logger,
		meta:      meta,
		contracts: contracts,
		redundant: make(map[*subroutine.Subroutine]*subroutine.Subroutine),
	}
	mc.requires = NewCache(mc.methodBuilder(Requires))
	mc.ensures = NewCache(mc.methodBuilder(Ensures))
	mc.modelEnsures = NewCache(mc.methodBuilder(ModelEnsures))
	mc.invariants = NewCache(mc.buildInvariant)
	return mc
}

func (mc *MethodCache) Requires(m *types.Func) *subroutine.Subroutine {
	return mc.requires.Get(mc.meta.UnspecializedMethod(m))
}

func (mc *MethodCache) Ensures(m *types.Func) *subroutine.Subroutine {
	return mc.ensures.Get(mc.meta.UnspecializedMethod(m))
}

func (mc *MethodCache) ModelEnsures(m *types.Func) *subroutine.Subroutine {
	return mc.modelEnsures.Get(mc.meta.UnspecializedMethod(m))
}

func (mc *MethodCache) Invariant(t *types.TypeName) *subroutine.Subroutine {
	return mc.invariants.Get(mc.meta.UnspecializedType(t))
}

// Get returns the contract of kind k for m. Invariant is not keyed by
// method and always yields nil here.
func (mc *MethodCache) Get(k ContractKind, m *types.Func) *subroutine.Subroutine {
	switch k {
	case Requires:
		return mc.Requires(m)
	case Ensures:
		return mc.Ensures(m)
	case ModelEnsures:
		return mc.ModelEnsures(m)
	default:
		return nil
	}
}

func (mc *MethodCache) methodBuilder(k ContractKind) func(*types.Func) *subroutine.Subroutine {
	return func(m *types.Func) *subroutine.Subroutine {
		return mc.buildMethod(k, m)
	}
}

func (mc *MethodCache) buildMethod(k ContractKind, m *types.Func) *subroutine.Subroutine {
	rule := k.rule()
	owner := mc.meta.FullName(m)

	inherited := subroutine.EmptySet()
	if mc.meta.IsVirtual(m) && mc.contracts.CanInheritContracts(m) {
		inherited = rule.inherit(mc, m)
	}

	if rule.has(mc.contracts, m) {
		mc.logger.Debug("building contract",
			zap.Stringer("kind", k),
			zap.String("method", owner),
			zap.Int("inherited", inherited.Len()))
		return rule.access(mc.contracts, m, inherited, func(b *subroutine.Builder, inh subroutine.Set) *subroutine.Subroutine {
			return subroutine.New(k.Subroutine(), owner, b, inh)
		})
	}

	switch inherited.Len() {
	case 0:
		return rule.absent(owner)
	case 1:
		return inherited.Any()
	default:
		return subroutine.NewContainer(k.Subroutine(), owner, inherited)
	}
}

// buildInvariant inherits from the single base type only. Without a local
// invariant the inherited one is returned as is.
func (mc *MethodCache) buildInvariant(t *types.TypeName) *subroutine.Subroutine {
	var base *subroutine.Subroutine
	if mc.meta.HasBaseClass(t) && mc.contracts.CanInheritTypeContracts(t) {
		base = mc.Invariant(mc.meta.BaseClass(t))
	}
	if !mc.contracts.HasInvariant(t) {
		return base
	}
	owner := mc.meta.TypeName(t)
	return mc.contracts.AccessInvariant(t, base, func(b *subroutine.Builder, base *subroutine.Subroutine) *subroutine.Subroutine {
		return subroutine.NewInvariant(owner, b, base)
	})
}

// AddPrecondition attaches clauses to the precondition of m. It refuses,
// returning false, when m's precondition is inherited from another method.
func (mc *MethodCache) AddPrecondition(m *types.Func, b *subroutine.Builder) bool {
	m = mc.meta.UnspecializedMethod(m)
	owner := mc.meta.FullName(m)
	existing := mc.Requires(m)
	if existing != nil && existing.Owner() != owner {
		return false
	}
	extra := subroutine.New(subroutine.Requires, owner, b, subroutine.EmptySet())
	extra.Initialize()
	if existing == nil {
		mc.requires.Install(m, extra)
		return true
	}
	chainExtra(existing, extra)
	return true
}

// RemovePrecondition drops the cached precondition of m.
func (mc *MethodCache) RemovePrecondition(m *types.Func) bool {
	return mc.requires.Remove(mc.meta.UnspecializedMethod(m))
}

// AddPostcondition attaches clauses to the postcondition of m.
func (mc *MethodCache) AddPostcondition(m *types.Func, b *subroutine.Builder) bool {
	m = mc.meta.UnspecializedMethod(m)
	existing := mc.Ensures(m)
	extra := subroutine.New(subroutine.Ensures, mc.meta.FullName(m), b, subroutine.EmptySet())
	extra.Initialize()
	if existing == nil {
		mc.ensures.Install(m, extra)
		return true
	}
	chainExtra(existing, extra)
	return true
}

// AddInvariant attaches clauses to the invariant of t. It refuses when the
// invariant of t belongs to its base type.
func (mc *MethodCache) AddInvariant(t *types.TypeName, b *subroutine.Builder) bool {
	t = mc.meta.UnspecializedType(t)
	owner := mc.meta.TypeName(t)
	existing := mc.Invariant(t)
	if existing != nil && existing.Owner() != owner {
		return false
	}
	extra := subroutine.NewInvariant(owner, b, nil)
	extra.Initialize()
	if existing == nil {
		mc.invariants.Install(t, extra)
		return true
	}
	chainExtra(existing, extra)
	return true
}

func chainExtra(existing, extra *subroutine.Subroutine) {
	for _, from := range existing.PredecessorBlocks(existing.Exit()) {
		existing.AddEdgeSubroutine(from, existing.Exit(), extra, subroutine.TagExtra)
	}
}

// RemoveContractsFor forgets every cached method contract of m.
func (mc *MethodCache) RemoveContractsFor(m *types.Func) {
	m = mc.meta.UnspecializedMethod(m)
	mc.requires.Remove(m)
	mc.ensures.Remove(m)
	mc.modelEnsures.Remove(m)
}

// RedundantInvariant re-associates an existing invariant with t. The
// result is memoized per existing invariant.
func (mc *MethodCache) RedundantInvariant(existing *subroutine.Subroutine, t *types.TypeName) *subroutine.Subroutine {
	if s, ok := mc.redundant[existing]; ok {
		return s
	}
	s := subroutine.NewInvariant(mc.meta.TypeName(t), nil, existing)
	s.Initialize()
	mc.redundant[existing] = s
	return s
}
