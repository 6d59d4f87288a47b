package cc

// TypeKind discriminates the shape of a Type node (spec.md §3).
type TypeKind int

const (
	KindNone TypeKind = iota
	KindInteger
	KindReal
	KindPointer
	KindArray
	KindFunction
	KindObject
)

func (k TypeKind) String() string {
	switch k {
	case KindInteger:
		return "INTEGER"
	case KindReal:
		return "REAL"
	case KindPointer:
		return "POINTER"
	case KindArray:
		return "ARRAY"
	case KindFunction:
		return "FUNCTION"
	case KindObject:
		return "OBJECT"
	default:
		return "NONE"
	}
}

// TypeID addresses a Type node inside a TypeArena. Types are never
// linked by live pointer (the hazard spec.md §9 calls out under
// "Cyclic type/symbol references" and "Mutable type nodes") — a
// struct's member list holds TypeIDs of other members, including a
// TypeID of the struct's own tag for a pointer-to-self field, which is
// trivial to express as an index recorded before the body finishes
// parsing. This mirrors the teacher's NodeID-into-a-flat-slice arena
// in tree.go.
type TypeID int32

// NoType is the nil TypeID.
const NoType TypeID = -1

// Member is one field of an OBJECT type, or one parameter of a
// FUNCTION type.
type Member struct {
	Name   string
	Type   TypeID
	Offset int
}

// Type is one arena-resident type node.
type Type struct {
	Kind       TypeKind
	Size       int // 0 denotes incomplete (root array or forward struct/union)
	Unsigned   bool
	Const      bool
	Volatile   bool
	Vararg     bool
	Next       TypeID // inner/element/pointee/return type, NoType if absent
	Members    []Member
	Tag        string // tag name stored by SetTag; the parser never calls SetTag, so it stays empty
}

// TypeArena owns every Type node created while compiling one
// translation unit. Tag types (struct/union/enum) interned into
// ns_tag outlive any single declaration and are shared by TypeID, per
// spec.md §5.
type TypeArena struct {
	types []Type
}

// NewTypeArena creates an empty arena.
func NewTypeArena() *TypeArena {
	return &TypeArena{types: make([]Type, 0, 64)}
}

func (a *TypeArena) alloc(t Type) TypeID {
	id := TypeID(len(a.types))
	a.types = append(a.types, t)
	return id
}

// Get returns a copy of the type node at id. Callers that need to
// mutate a node (AddMember, CompleteArray, AlignStructMembers) go
// through the arena's own methods, which index a.types[id] directly —
// never through a pointer obtained before a later alloc, since
// a.types may have been reallocated by an intervening append.
func (a *TypeArena) Get(id TypeID) Type {
	return a.types[id]
}

func (a *TypeArena) Kind(id TypeID) TypeKind  { return a.types[id].Kind }
func (a *TypeArena) Size(id TypeID) int       { return a.types[id].Size }
func (a *TypeArena) Next(id TypeID) TypeID    { return a.types[id].Next }
func (a *TypeArena) IsUnsigned(id TypeID) bool { return a.types[id].Unsigned }
func (a *TypeArena) IsVararg(id TypeID) bool   { return a.types[id].Vararg }
func (a *TypeArena) Members(id TypeID) []Member {
	return a.types[id].Members
}
func (a *TypeArena) SetSize(id TypeID, size int) { a.types[id].Size = size }
func (a *TypeArena) SetVararg(id TypeID, v bool) { a.types[id].Vararg = v }
func (a *TypeArena) SetTag(id TypeID, tag string) { a.types[id].Tag = tag }
func (a *TypeArena) Tag(id TypeID) string         { return a.types[id].Tag }
func (a *TypeArena) SetNext(id TypeID, next TypeID) { a.types[id].Next = next }
func (a *TypeArena) IsConst(id TypeID) bool         { return a.types[id].Const }
func (a *TypeArena) SetConst(id TypeID, v bool)     { a.types[id].Const = v }
func (a *TypeArena) SetVolatile(id TypeID, v bool)  { a.types[id].Volatile = v }

// Alias overwrites placeholder's node with real's node, in place. Used
// by the declarator parser to splice the outer type of a parenthesized
// sub-declarator (spec.md §4.C "inside-out composition") back into the
// placeholder TypeID allocated before the outer type was known — the
// same "patch in place through the owning arena" approach used
// throughout this file, applied at the one spot spec.md §9 calls out
// as requiring a mutable node in the original ("Mutable type nodes").
// Safe because placeholder is never referenced by anything outside
// the declarator call that allocated it until this call returns.
func (a *TypeArena) Alias(placeholder, real TypeID) {
	a.types[placeholder] = a.types[real]
}

// IsComplete reports whether id denotes a fully sized type. Pointers,
// scalars and completed aggregates/arrays are complete; a forward
// struct/union or an open array is not.
func (a *TypeArena) IsComplete(id TypeID) bool {
	t := a.types[id]
	switch t.Kind {
	case KindArray, KindObject:
		return t.Size > 0
	case KindFunction, KindNone:
		return false
	default:
		return true
	}
}

// NewInteger allocates an INTEGER type of the given byte size.
func (a *TypeArena) NewInteger(size int, unsigned bool) TypeID {
	return a.alloc(Type{Kind: KindInteger, Size: size, Unsigned: unsigned, Next: NoType})
}

// NewReal allocates a REAL (float/double) type.
func (a *TypeArena) NewReal(size int) TypeID {
	return a.alloc(Type{Kind: KindReal, Size: size, Next: NoType})
}

// NewPointer allocates a POINTER to base. Pointers are always 8 bytes
// (LP64 ABI).
func (a *TypeArena) NewPointer(base TypeID) TypeID {
	return a.alloc(Type{Kind: KindPointer, Size: 8, Next: base})
}

// NewArray allocates an ARRAY of n elements of elem. n < 0 denotes an
// incomplete (open) array; its Size stays 0 until CompleteArray backfills
// it from an initializer, per spec.md invariant (i).
func (a *TypeArena) NewArray(elem TypeID, n int) TypeID {
	size := 0
	if n >= 0 {
		size = n * a.Size(elem)
	}
	return a.alloc(Type{Kind: KindArray, Size: size, Next: elem})
}

// NewFunction allocates a FUNCTION type; Members holds its parameter
// list and Next its return type (set by the caller once known).
func (a *TypeArena) NewFunction() TypeID {
	return a.alloc(Type{Kind: KindFunction, Next: NoType})
}

// NewObject allocates an incomplete (forward) struct/union type; the
// caller marks it complete via AlignStructMembers once the body has
// been parsed.
func (a *TypeArena) NewObject() TypeID {
	return a.alloc(Type{Kind: KindObject, Next: NoType})
}

// NewVoid allocates the distinguished NONE-kind type used for `void`
// return types and the single unnamed `void` parameter.
func (a *TypeArena) NewVoid() TypeID {
	return a.alloc(Type{Kind: KindNone, Next: NoType})
}

// AddMember appends a named member (or parameter) to an OBJECT or
// FUNCTION type. Offsets for OBJECT members are not final until
// AlignStructMembers runs.
func (a *TypeArena) AddMember(id TypeID, name string, mt TypeID) {
	a.types[id].Members = append(a.types[id].Members, Member{Name: name, Type: mt})
}

// FindMember returns the member named name on an OBJECT type, and
// whether it was found.
func (a *TypeArena) FindMember(id TypeID, name string) (Member, bool) {
	for _, m := range a.types[id].Members {
		if m.Name == name {
			return m, true
		}
	}
	return Member{}, false
}

// AlignStructMembers walks an OBJECT type's members in declaration
// order, assigning byte offsets under natural C ABI alignment: each
// member is placed at the next offset that is a multiple of its own
// alignment (see alignOf: the size of a scalar or pointer, the element
// alignment of an array, the largest member alignment of a struct), and
// the struct's total size is padded up to a multiple of the largest
// member alignment seen.
func (a *TypeArena) AlignStructMembers(id TypeID) {
	members := a.types[id].Members
	offset := 0
	maxAlign := 1
	for i := range members {
		align := a.alignOf(members[i].Type)
		if align > maxAlign {
			maxAlign = align
		}
		offset = roundUp(offset, align)
		members[i].Offset = offset
		offset += a.Size(members[i].Type)
	}
	a.types[id].Members = members
	a.types[id].Size = roundUp(offset, maxAlign)
}

// alignOf returns the natural alignment of a type: its own size for
// scalars/pointers, and the largest member alignment for aggregates.
func (a *TypeArena) alignOf(id TypeID) int {
	t := a.types[id]
	switch t.Kind {
	case KindObject:
		align := 1
		for _, m := range t.Members {
			if ma := a.alignOf(m.Type); ma > align {
				align = ma
			}
		}
		return align
	case KindArray:
		return a.alignOf(t.Next)
	default:
		if t.Size == 0 {
			return 1
		}
		return t.Size
	}
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	rem := n % align
	if rem == 0 {
		return n
	}
	return n + (align - rem)
}

// CompleteArray backfills the size of an incomplete root array from an
// initializer's observed element count, per spec.md invariant (i) and
// testable property 3.
func (a *TypeArena) CompleteArray(id TypeID, count int) {
	elem := a.types[id].Next
	a.types[id].Size = count * a.Size(elem)
}
