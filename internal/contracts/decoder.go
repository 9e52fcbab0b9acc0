package contracts

import (
	"errors"
	"go/ast"
	"go/types"

	"go.uber.org/zap"

	"github.com/gnolang/tverify/internal/metadata"
	"github.com/gnolang/tverify/internal/subroutine"
)

type methodDirectives struct {
	requires     []directive
	ensures      []directive
	modelEnsures []directive
	noInherit    bool
}

type typeDirectives struct {
	invariants []directive
	noInherit  bool
}

// Decoder extracts contract clauses from //contract: comment directives
// attached to functions, interface methods and type declarations.
type Decoder struct {
	logger     *zap.Logger
	methods    map[*types.Func]*methodDirectives
	receivers  map[*types.Func]string
	types      map[*types.TypeName]*typeDirectives
	assertions map[*types.Func][]Assertion
}

func NewDecoder(logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{
		logger:     logger,
		methods:    make(map[*types.Func]*methodDirectives),
		receivers:  make(map[*types.Func]string),
		types:      make(map[*types.TypeName]*typeDirectives),
		assertions: make(map[*types.Func][]Assertion),
	}
}

// Index records every directive declared in asm.
func (d *Decoder) Index(asm *metadata.Assembly) {
	for _, m := range asm.Methods() {
		var doc *ast.CommentGroup
		if decl := asm.Decl(m); decl != nil {
			doc = decl.Doc
			d.receivers[m] = metadata.ReceiverName(decl)
			if decl.Body != nil {
				d.assertions[m] = findAssertions(d.logger, asm, decl)
			}
		} else if field := asm.InterfaceField(m); field != nil {
			doc = field.Doc
		}
		if md := d.methodDirectives(asm, doc); md != nil {
			d.methods[m] = md
		}
	}
	for _, t := range asm.Types() {
		if td := d.typeDirectives(asm, asm.TypeDoc(t)); td != nil {
			d.types[t] = td
		}
	}
}

func (d *Decoder) directives(asm *metadata.Assembly, doc *ast.CommentGroup) []directive {
	if doc == nil {
		return nil
	}
	var out []directive
	for _, c := range doc.List {
		dir, err := parseDirective(c, asm.Fset)
		if errors.Is(err, errNotDirective) {
			continue
		}
		if err != nil {
			d.logger.Debug("skipping malformed contract directive",
				zap.String("pos", dir.pos.String()), zap.Error(err))
			continue
		}
		out = append(out, dir)
	}
	return out
}

func (d *Decoder) methodDirectives(asm *metadata.Assembly, doc *ast.CommentGroup) *methodDirectives {
	dirs := d.directives(asm, doc)
	if len(dirs) == 0 {
		return nil
	}
	md := &methodDirectives{}
	for _, dir := range dirs {
		switch dir.verb {
		case verbRequires:
			md.requires = append(md.requires, dir)
		case verbEnsures:
			md.ensures = append(md.ensures, dir)
		case verbModelEnsures:
			md.modelEnsures = append(md.modelEnsures, dir)
		case verbNoInherit:
			md.noInherit = true
		default:
			d.logger.Debug("directive not valid on a function",
				zap.String("pos", dir.pos.String()), zap.String("directive", string(dir.verb)))
		}
	}
	return md
}

func (d *Decoder) typeDirectives(asm *metadata.Assembly, doc *ast.CommentGroup) *typeDirectives {
	dirs := d.directives(asm, doc)
	if len(dirs) == 0 {
		return nil
	}
	td := &typeDirectives{}
	for _, dir := range dirs {
		switch dir.verb {
		case verbInvariant:
			td.invariants = append(td.invariants, dir)
		case verbNoInherit:
			td.noInherit = true
		default:
			d.logger.Debug("directive not valid on a type",
				zap.String("pos", dir.pos.String()), zap.String("directive", string(dir.verb)))
		}
	}
	return td
}

func (d *Decoder) HasRequires(m *types.Func) bool {
	md := d.methods[m]
	return md != nil && len(md.requires) > 0
}

func (d *Decoder) HasEnsures(m *types.Func) bool {
	md := d.methods[m]
	return md != nil && len(md.ensures) > 0
}

func (d *Decoder) HasModelEnsures(m *types.Func) bool {
	md := d.methods[m]
	return md != nil && len(md.modelEnsures) > 0
}

func (d *Decoder) HasInvariant(t *types.TypeName) bool {
	td := d.types[t]
	return td != nil && len(td.invariants) > 0
}

// CanInheritContracts reports whether m may inherit contracts from the
// methods it overrides or implements.
func (d *Decoder) CanInheritContracts(m *types.Func) bool {
	md := d.methods[m]
	return md == nil || !md.noInherit
}

// CanInheritTypeContracts reports whether t may inherit its base invariant.
func (d *Decoder) CanInheritTypeContracts(t *types.TypeName) bool {
	td := d.types[t]
	return td == nil || !td.noInherit
}

// AccessRequires decodes the preconditions of m and hands them, together
// with the inherited context, to consume.
func (d *Decoder) AccessRequires(m *types.Func, inherited subroutine.Set, consume subroutine.Factory[subroutine.Set]) *subroutine.Subroutine {
	var dirs []directive
	if md := d.methods[m]; md != nil {
		dirs = md.requires
	}
	return consume(d.builder(m, dirs), inherited)
}

func (d *Decoder) AccessEnsures(m *types.Func, inherited subroutine.Set, consume subroutine.Factory[subroutine.Set]) *subroutine.Subroutine {
	var dirs []directive
	if md := d.methods[m]; md != nil {
		dirs = md.ensures
	}
	return consume(d.builder(m, dirs), inherited)
}

func (d *Decoder) AccessModelEnsures(m *types.Func, inherited subroutine.Set, consume subroutine.Factory[subroutine.Set]) *subroutine.Subroutine {
	var dirs []directive
	if md := d.methods[m]; md != nil {
		dirs = md.modelEnsures
	}
	return consume(d.builder(m, dirs), inherited)
}

// AccessInvariant decodes the invariant of t. base is the single invariant
// inherited from t's base type, or nil.
func (d *Decoder) AccessInvariant(t *types.TypeName, base *subroutine.Subroutine, consume subroutine.Factory[*subroutine.Subroutine]) *subroutine.Subroutine {
	var dirs []directive
	if td := d.types[t]; td != nil {
		dirs = td.invariants
	}
	return consume(d.builder(nil, dirs), base)
}

// Assertions returns the //contract:assert directives found in the body of m.
func (d *Decoder) Assertions(m *types.Func) []Assertion { return d.assertions[m] }

func (d *Decoder) builder(m *types.Func, dirs []directive) *subroutine.Builder {
	p := &clauseProvider{logger: d.logger, dirs: dirs, fn: m}
	if m != nil {
		p.recv = d.receivers[m]
	}
	return subroutine.NewBuilder[int](p)
}

// clauseProvider labels the directives of one contract by their index.
type clauseProvider struct {
	logger *zap.Logger
	dirs   []directive
	fn     *types.Func
	recv   string
}

func (p *clauseProvider) Entry() int { return 0 }

func (p *clauseProvider) Next(l int) (int, bool) {
	if l+1 < len(p.dirs) {
		return l + 1, true
	}
	return 0, false
}

func (p *clauseProvider) Clause(l int) (subroutine.Clause, bool) {
	if l < 0 || l >= len(p.dirs) {
		return subroutine.Clause{}, false
	}
	dir := p.dirs[l]
	c, err := ParseClause(dir.text, dir.pos)
	if err != nil {
		p.logger.Debug("skipping undecodable contract clause",
			zap.String("pos", dir.pos.String()), zap.Error(err))
		return subroutine.Clause{}, false
	}
	c.Func, c.Recv = p.fn, p.recv
	return c, true
}
