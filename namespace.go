package cc

import "fmt"

// SymType discriminates the life-cycle stage of a Symbol (spec.md §3).
type SymType int

const (
	SymDeclaration SymType = iota
	SymTentative
	SymDefinition
	SymTypedef
	SymEnum
)

// Linkage discriminates a Symbol's linkage (spec.md §3).
type Linkage int

const (
	LinkageNone Linkage = iota
	LinkageExtern
	LinkageIntern
)

// Symbol is owned by the Namespace in which it resides (spec.md §3).
// Namespace stores symbols as []*Symbol rather than []Symbol
// specifically so a *Symbol captured by a Var or by IR emitted before
// a pop_scope stays valid: growing the namespace's slice only copies
// the pointers, never the pointee.
type Symbol struct {
	Name    string
	Type    TypeID
	SymType SymType
	Linkage Linkage
	Depth   int

	// EnumValue holds the enumerator's constant value on a SymEnum
	// symbol. On a tag symbol in ns_tag for an enum, it instead
	// records completeness: 0 means the enum is still forward
	// (no body seen yet), and is set to the enumerator count (always
	// >= 1 for a real body) once the body closes, per spec.md
	// invariant (iii).
	EnumValue int64

	// N is a parameter-count field for FUNCTION symbols. Nothing in this
	// package sets or reads it; call sites take the count from the
	// FUNCTION type's Members.
	N int
}

// Namespace is one of the three name-resolution domains (ns_ident,
// ns_label, ns_tag). Depth 0 is file scope; push_scope/pop_scope
// nest lexically within a function body.
type Namespace struct {
	label       string
	symbols     []*Symbol
	depth       int
	depthMarks  []int // stack of len(symbols) snapshots, one per pushed depth
	tempCounter int
}

// NewNamespace creates an empty namespace at depth 0.
func NewNamespace(label string) *Namespace {
	return &Namespace{label: label}
}

// Depth returns the namespace's current lexical depth.
func (ns *Namespace) Depth() int { return ns.depth }

// PushScope increments the current depth and remembers where this
// scope's symbols begin, so PopScope can retire exactly them.
func (ns *Namespace) PushScope() {
	ns.depth++
	ns.depthMarks = append(ns.depthMarks, len(ns.symbols))
}

// PopScope retires every symbol created at the scope being left.
// Retired symbols are dropped from the namespace's visible set but
// remain reachable from any IR that already captured their *Symbol.
func (ns *Namespace) PopScope() {
	n := len(ns.depthMarks)
	mark := ns.depthMarks[n-1]
	ns.depthMarks = ns.depthMarks[:n-1]
	ns.symbols = ns.symbols[:mark]
	ns.depth--
}

// Lookup does a linear scan over visible symbols, innermost (most
// recently added) first, so an inner-scope shadow is found before an
// outer one.
func (ns *Namespace) Lookup(name string) *Symbol {
	for i := len(ns.symbols) - 1; i >= 0; i-- {
		if ns.symbols[i].Name == name {
			return ns.symbols[i]
		}
	}
	return nil
}

// LookupAtCurrentDepth restricts Lookup to symbols created at the
// current depth, used to detect same-scope redefinitions.
func (ns *Namespace) LookupAtCurrentDepth(name string) *Symbol {
	start := 0
	if len(ns.depthMarks) > 0 {
		start = ns.depthMarks[len(ns.depthMarks)-1]
	}
	for i := len(ns.symbols) - 1; i >= start; i-- {
		if ns.symbols[i].Name == name {
			return ns.symbols[i]
		}
	}
	return nil
}

// Add inserts proto as a fresh symbol at the current depth, unless a
// symbol of the same name already exists at the current depth, in
// which case the two are merged: a DECLARATION is upgraded to
// DEFINITION (or TENTATIVE), and an existing linkage is preserved. The
// types are not compared: the later declaration's type replaces the
// earlier one.
func (ns *Namespace) Add(proto Symbol) (*Symbol, error) {
	if existing := ns.LookupAtCurrentDepth(proto.Name); existing != nil {
		return ns.merge(existing, proto)
	}
	proto.Depth = ns.depth
	sym := proto
	ns.symbols = append(ns.symbols, &sym)
	return &sym, nil
}

func (ns *Namespace) merge(existing *Symbol, proto Symbol) (*Symbol, error) {
	if existing.SymType == SymTypedef || proto.SymType == SymTypedef {
		if existing.SymType != proto.SymType {
			return nil, errorf(ErrRedefinition, 0, "%q redeclared with a different kind", proto.Name)
		}
	}

	switch {
	case existing.SymType == SymDeclaration:
		existing.SymType = proto.SymType
	case existing.SymType == SymTentative && proto.SymType == SymDefinition:
		existing.SymType = SymDefinition
	case existing.SymType == SymDefinition && proto.SymType == SymDefinition:
		return nil, errorf(ErrRedefinition, 0, "%q redefined", proto.Name)
	case existing.SymType == SymDefinition && (proto.SymType == SymDeclaration || proto.SymType == SymTentative):
		// a later plain declaration does not demote an existing definition
	default:
		existing.SymType = proto.SymType
	}

	if existing.Linkage == LinkageNone {
		existing.Linkage = proto.Linkage
	}
	existing.Type = proto.Type
	return existing, nil
}

// Temp synthesizes a uniquely named internal symbol, used for
// short-circuit merge results and other compiler-introduced
// temporaries.
func (ns *Namespace) Temp(t TypeID) *Symbol {
	ns.tempCounter++
	sym := &Symbol{
		Name:    fmt.Sprintf("%s.t%d", ns.label, ns.tempCounter),
		Type:    t,
		SymType: SymDefinition,
		Linkage: LinkageNone,
		Depth:   ns.depth,
	}
	ns.symbols = append(ns.symbols, sym)
	return sym
}

// TentativeSymbols returns every symbol in the namespace whose
// SymType is SymTentative and whose Linkage is LinkageIntern, in
// insertion order — the set the driver zero-initializes at
// end-of-translation-unit (spec.md §4.F, testable property 4).
func (ns *Namespace) TentativeSymbols() []*Symbol {
	var out []*Symbol
	for _, sym := range ns.symbols {
		if sym.SymType == SymTentative && sym.Linkage == LinkageIntern {
			out = append(out, sym)
		}
	}
	return out
}

// Context bundles the three process-wide namespaces plus the type
// arena and string table, threaded explicitly through every parser
// entry point instead of being held as package-level globals — the
// redesign spec.md §9 calls for under "Global namespaces".
type Context struct {
	Idents  *Namespace
	Labels  *Namespace
	Tags    *Namespace
	Types   *TypeArena
	Strings *StringTable
}

// NewContext creates a fresh Context with empty namespaces, a fresh
// type arena, and a fresh string table.
func NewContext() *Context {
	return &Context{
		Idents:  NewNamespace("id"),
		Labels:  NewNamespace("label"),
		Tags:    NewNamespace("tag"),
		Types:   NewTypeArena(),
		Strings: NewStringTable(),
	}
}
