package metadata

import (
	"go/ast"
	"go/types"

	"go.uber.org/zap"
)

// Decoder answers metadata queries over the packages it has loaded.
// In Go terms a "virtual" method is one that takes part in dynamic
// dispatch, and the "base class" of a struct is its first embedded struct.
type Decoder struct {
	logger     *zap.Logger
	assemblies map[*types.Package]*Assembly
}

// NewDecoder creates an empty decoder.
func NewDecoder(logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{
		logger:     logger,
		assemblies: make(map[*types.Package]*Assembly),
	}
}

// Load parses and type-checks the package in dir.
func (d *Decoder) Load(dir string) (*Assembly, error) {
	asm, err := load(d.logger, dir)
	if err != nil {
		return nil, err
	}
	d.assemblies[asm.Pkg] = asm
	d.logger.Debug("loaded package",
		zap.String("dir", dir),
		zap.String("package", asm.Pkg.Name()),
		zap.Int("methods", len(asm.methods)))
	return asm, nil
}

// AssemblyOf returns the loaded package declaring m.
func (d *Decoder) AssemblyOf(m *types.Func) *Assembly {
	if m.Pkg() == nil {
		return nil
	}
	return d.assemblies[m.Pkg()]
}

// Methods enumerates the methods of asm.
func (d *Decoder) Methods(asm *Assembly) []*types.Func { return asm.Methods() }

// HasBody reports whether m has a Go body to analyze.
func (d *Decoder) HasBody(m *types.Func) bool {
	asm := d.AssemblyOf(m)
	if asm == nil {
		return false
	}
	decl := asm.Decl(m)
	return decl != nil && decl.Body != nil
}

// Body returns the declaration of m when it has a body.
func (d *Decoder) Body(m *types.Func) *ast.FuncDecl {
	if asm := d.AssemblyOf(m); asm != nil {
		return asm.Decl(m)
	}
	return nil
}

// FullName formats m for reports.
func (d *Decoder) FullName(m *types.Func) string { return FullName(m) }

// TypeName formats t for reports.
func (d *Decoder) TypeName(t *types.TypeName) string {
	if t.Pkg() == nil {
		return t.Name()
	}
	return t.Pkg().Path() + "." + t.Name()
}

// IsInterfaceMethod reports whether m is declared by an interface.
func (d *Decoder) IsInterfaceMethod(m *types.Func) bool {
	recv := m.Type().(*types.Signature).Recv()
	return recv != nil && types.IsInterface(recv.Type())
}

// IsVirtual reports whether m takes part in dynamic dispatch.
func (d *Decoder) IsVirtual(m *types.Func) bool {
	if receiverNamed(m) == nil {
		return d.IsInterfaceMethod(m)
	}
	if d.IsInterfaceMethod(m) {
		return true
	}
	if _, ok := d.overridden(m); ok {
		return true
	}
	return len(d.ImplementedMethods(m)) > 0
}

// TryGetRootMethod returns the method of the same name declared by the
// deepest embedded struct along the base chain of m's receiver.
func (d *Decoder) TryGetRootMethod(m *types.Func) (*types.Func, bool) {
	var root *types.Func
	d.walkBases(m, func(base *types.Func) bool {
		root = base
		return true
	})
	return root, root != nil
}

func (d *Decoder) overridden(m *types.Func) (*types.Func, bool) {
	var nearest *types.Func
	d.walkBases(m, func(base *types.Func) bool {
		nearest = base
		return false
	})
	return nearest, nearest != nil
}

// walkBases calls visit with each method named like m along the base
// chain, nearest first, until visit returns false.
func (d *Decoder) walkBases(m *types.Func, visit func(*types.Func) bool) {
	named := receiverNamed(m)
	if named == nil || types.IsInterface(named) {
		return
	}
	seen := map[*types.TypeName]bool{named.Obj(): true}
	for tn := d.BaseClass(named.Obj()); tn != nil && !seen[tn]; tn = d.BaseClass(tn) {
		seen[tn] = true
		base, _ := tn.Type().(*types.Named)
		if base == nil {
			return
		}
		for i := 0; i < base.NumMethods(); i++ {
			if bm := base.Method(i); bm.Name() == m.Name() {
				if !visit(bm) {
					return
				}
				break
			}
		}
	}
}

// OverriddenAndImplementedMethods returns the nearest shadowed base method
// followed by the implemented interface methods.
func (d *Decoder) OverriddenAndImplementedMethods(m *types.Func) []*types.Func {
	var out []*types.Func
	if base, ok := d.overridden(m); ok {
		out = append(out, base)
	}
	return append(out, d.ImplementedMethods(m)...)
}

// ImplementedMethods returns the methods of package-level interfaces that
// m's receiver type satisfies with m.
func (d *Decoder) ImplementedMethods(m *types.Func) []*types.Func {
	named := receiverNamed(m)
	if named == nil || types.IsInterface(named) || m.Pkg() == nil {
		return nil
	}
	ptr := types.NewPointer(named)
	scope := m.Pkg().Scope()
	var out []*types.Func
	for _, name := range scope.Names() {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok {
			continue
		}
		iface, ok := tn.Type().Underlying().(*types.Interface)
		if !ok || iface.NumMethods() == 0 || !types.Implements(ptr, iface) {
			continue
		}
		for i := 0; i < iface.NumMethods(); i++ {
			if im := iface.Method(i); im.Name() == m.Name() {
				out = append(out, im)
			}
		}
	}
	return out
}

// HasBaseClass reports whether t is a struct embedding another struct.
func (d *Decoder) HasBaseClass(t *types.TypeName) bool { return d.BaseClass(t) != nil }

// BaseClass returns the first embedded struct type of t, or nil.
func (d *Decoder) BaseClass(t *types.TypeName) *types.TypeName {
	st, ok := t.Type().Underlying().(*types.Struct)
	if !ok {
		return nil
	}
	for i := 0; i < st.NumFields(); i++ {
		f := st.Field(i)
		if !f.Embedded() {
			continue
		}
		ft := f.Type()
		if p, ok := ft.(*types.Pointer); ok {
			ft = p.Elem()
		}
		named, ok := ft.(*types.Named)
		if !ok {
			continue
		}
		if _, isStruct := named.Underlying().(*types.Struct); isStruct {
			return named.Obj()
		}
	}
	return nil
}

// UnspecializedMethod maps a generic instantiation back to its origin.
func (d *Decoder) UnspecializedMethod(m *types.Func) *types.Func { return m.Origin() }

// UnspecializedType maps an instantiated named type back to its origin.
func (d *Decoder) UnspecializedType(t *types.TypeName) *types.TypeName {
	if named, ok := t.Type().(*types.Named); ok {
		return named.Origin().Obj()
	}
	return t
}

// ReceiverType returns the named receiver type of m, if any.
func (d *Decoder) ReceiverType(m *types.Func) *types.TypeName {
	if named := receiverNamed(m); named != nil {
		return named.Obj()
	}
	return nil
}

func receiverNamed(m *types.Func) *types.Named {
	sig, ok := m.Type().(*types.Signature)
	if !ok || sig.Recv() == nil {
		return nil
	}
	t := sig.Recv().Type()
	if p, ok := t.(*types.Pointer); ok {
		t = p.Elem()
	}
	named, _ := t.(*types.Named)
	return named
}
