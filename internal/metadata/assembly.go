package metadata

import (
	"errors"
	"fmt"
	"go/ast"
	"go/build"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ErrNoGoFiles is returned when a directory holds no buildable Go file.
var ErrNoGoFiles = errors.New("no Go files")

// Assembly is one loaded and type-checked Go package.
type Assembly struct {
	Dir   string
	Fset  *token.FileSet
	Files []*ast.File
	Pkg   *types.Package
	Info  *types.Info

	methods  []*types.Func
	decls    map[*types.Func]*ast.FuncDecl
	fields   map[*types.Func]*ast.Field
	types    []*types.TypeName
	typeDocs map[*types.TypeName]*ast.CommentGroup
	owners   map[*types.Func]*types.TypeName
}

// Methods returns every function, method and interface method in source order.
func (a *Assembly) Methods() []*types.Func { return a.methods }

// Types returns every package-level named type in source order.
func (a *Assembly) Types() []*types.TypeName { return a.types }

// Decl returns the declaration of m, or nil for interface methods.
func (a *Assembly) Decl(m *types.Func) *ast.FuncDecl { return a.decls[m] }

// InterfaceField returns the interface field declaring m, if m is an
// interface method of this package.
func (a *Assembly) InterfaceField(m *types.Func) *ast.Field { return a.fields[m] }

// TypeDoc returns the doc comment attached to the declaration of t.
func (a *Assembly) TypeDoc(t *types.TypeName) *ast.CommentGroup { return a.typeDocs[t] }

// LookupMethod finds a method by its full name, as printed by FullName.
func (a *Assembly) LookupMethod(fullName string) (*types.Func, bool) {
	for _, m := range a.methods {
		if FullName(m) == fullName {
			return m, true
		}
	}
	return nil, false
}

// LookupType finds a package-level named type by name.
func (a *Assembly) LookupType(name string) (*types.TypeName, bool) {
	if tn, ok := a.Pkg.Scope().Lookup(name).(*types.TypeName); ok {
		return tn, true
	}
	return nil, false
}

// ReceiverName returns the receiver name declared by decl, or "" for
// functions and anonymous receivers.
func ReceiverName(decl *ast.FuncDecl) string {
	if decl == nil || decl.Recv == nil || len(decl.Recv.List) == 0 || len(decl.Recv.List[0].Names) == 0 {
		return ""
	}
	if name := decl.Recv.List[0].Names[0].Name; name != "_" {
		return name
	}
	return ""
}

// FullName formats m like "pkg.F", "(*pkg.T).M" or "(pkg.I).M".
func FullName(m *types.Func) string { return m.FullName() }

// load parses and type-checks the package in dir.
func load(logger *zap.Logger, dir string) (*Assembly, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	fset := token.NewFileSet()
	var files []*ast.File
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		if ok, err := build.Default.MatchFile(dir, name); err != nil || !ok {
			logger.Debug("skipping file excluded by build constraints", zap.String("file", name))
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoGoFiles, dir)
	}

	for _, name := range names {
		f, err := parser.ParseFile(fset, filepath.Join(dir, name), nil, parser.ParseComments)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	pkgName := files[0].Name.Name
	for _, f := range files[1:] {
		if f.Name.Name != pkgName {
			return nil, fmt.Errorf("multiple packages in %s: %s and %s", dir, pkgName, f.Name.Name)
		}
	}

	info := &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
	}
	var typeErrs []error
	conf := types.Config{
		Importer: importer.ForCompiler(fset, "source", nil),
		Error:    func(err error) { typeErrs = append(typeErrs, err) },
	}
	pkg, _ := conf.Check(pkgName, fset, files, info)
	if len(typeErrs) > 0 {
		return nil, typeErrs[0]
	}

	asm := &Assembly{
		Dir:      dir,
		Fset:     fset,
		Files:    files,
		Pkg:      pkg,
		Info:     info,
		decls:    make(map[*types.Func]*ast.FuncDecl),
		fields:   make(map[*types.Func]*ast.Field),
		typeDocs: make(map[*types.TypeName]*ast.CommentGroup),
		owners:   make(map[*types.Func]*types.TypeName),
	}
	asm.index()
	return asm, nil
}

func (a *Assembly) index() {
	for _, f := range a.Files {
		for _, decl := range f.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				fn, ok := a.Info.Defs[d.Name].(*types.Func)
				if !ok {
					continue
				}
				a.methods = append(a.methods, fn)
				a.decls[fn] = d
			case *ast.GenDecl:
				if d.Tok != token.TYPE {
					continue
				}
				for _, spec := range d.Specs {
					a.indexTypeSpec(d, spec.(*ast.TypeSpec))
				}
			}
		}
	}
}

func (a *Assembly) indexTypeSpec(gen *ast.GenDecl, ts *ast.TypeSpec) {
	tn, ok := a.Info.Defs[ts.Name].(*types.TypeName)
	if !ok {
		return
	}
	a.types = append(a.types, tn)
	doc := ts.Doc
	if doc == nil && len(gen.Specs) == 1 {
		doc = gen.Doc
	}
	a.typeDocs[tn] = doc

	it, ok := ts.Type.(*ast.InterfaceType)
	if !ok || it.Methods == nil {
		return
	}
	for _, field := range it.Methods.List {
		if _, isFunc := field.Type.(*ast.FuncType); !isFunc {
			continue // embedded interface
		}
		for _, name := range field.Names {
			fn, ok := a.Info.Defs[name].(*types.Func)
			if !ok {
				continue
			}
			a.methods = append(a.methods, fn)
			a.fields[fn] = field
			a.owners[fn] = tn
		}
	}
}
