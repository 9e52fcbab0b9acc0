package methodcache

import (
	"go/types"

	"github.com/gnolang/tverify/internal/subroutine"
)

// MetadataDecoder is the part of the metadata decoder the caches consult.
type MetadataDecoder interface {
	FullName(m *types.Func) string
	TypeName(t *types.TypeName) string
	IsVirtual(m *types.Func) bool
	TryGetRootMethod(m *types.Func) (*types.Func, bool)
	OverriddenAndImplementedMethods(m *types.Func) []*types.Func
	ImplementedMethods(m *types.Func) []*types.Func
	HasBaseClass(t *types.TypeName) bool
	BaseClass(t *types.TypeName) *types.TypeName
	UnspecializedMethod(m *types.Func) *types.Func
	UnspecializedType(t *types.TypeName) *types.TypeName
}

// ContractDecoder is the part of the contract decoder the caches consult.
type ContractDecoder interface {
	HasRequires(m *types.Func) bool
	HasEnsures(m *types.Func) bool
	HasModelEnsures(m *types.Func) bool
	HasInvariant(t *types.TypeName) bool
	CanInheritContracts(m *types.Func) bool
	CanInheritTypeContracts(t *types.TypeName) bool
	AccessRequires(m *types.Func, inherited subroutine.Set, consume subroutine.Factory[subroutine.Set]) *subroutine.Subroutine
	AccessEnsures(m *types.Func, inherited subroutine.Set, consume subroutine.Factory[subroutine.Set]) *subroutine.Subroutine
	AccessModelEnsures(m *types.Func, inherited subroutine.Set, consume subroutine.Factory[subroutine.Set]) *subroutine.Subroutine
	AccessInvariant(t *types.TypeName, base *subroutine.Subroutine, consume subroutine.Factory[*subroutine.Subroutine]) *subroutine.Subroutine
}
