package cc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestParser builds a Parser over src's raw C source, for tests
// that exercise individual grammar productions directly.
func newTestParser(src string) *Parser {
	ctx := NewContext()
	return NewParser(ctx, NewStringLexer(src))
}

// typeShape renders a chain of TypeKinds starting from id, following
// Next, so a test assertion reads like the inside-out English
// description in spec.md §8 property 2 ("pointer to array-of-N-T").
func typeShape(a *TypeArena, id TypeID) []TypeKind {
	var out []TypeKind
	for id != NoType {
		out = append(out, a.Kind(id))
		if a.Kind(id) == KindObject || a.Kind(id) == KindNone {
			break
		}
		id = a.Next(id)
	}
	return out
}

func TestDeclaratorInsideOutComposition(t *testing.T) {
	tests := []struct {
		name   string
		src    string // parsed as `int` + this declarator text
		shape  []TypeKind
		arrayN int // expected array length at the ARRAY position in shape, -1 if none/don't-care
	}{
		{
			name:   "pointer to array of N: T (*x)[N]",
			src:    "(*x)[10]",
			shape:  []TypeKind{KindPointer, KindArray, KindInteger},
			arrayN: 10,
		},
		{
			name:   "array of N pointers: T *x[N]",
			src:    "*x[10]",
			shape:  []TypeKind{KindArray, KindPointer, KindInteger},
			arrayN: 10,
		},
		{
			name:   "pointer to function taking int returning T: T (*x)(int)",
			src:    "(*x)(int)",
			shape:  []TypeKind{KindPointer, KindFunction, KindInteger},
			arrayN: -1,
		},
		{
			name:   "plain pointer: T *x",
			src:    "*x",
			shape:  []TypeKind{KindPointer, KindInteger},
			arrayN: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestParser(tt.src)
			base := p.ctx.Types.NewInteger(4, false)
			typ, name, err := p.declarator(base)
			require.NoError(t, err)
			assert.Equal(t, "x", name)
			assert.Equal(t, tt.shape, typeShape(p.ctx.Types, typ))

			if tt.arrayN >= 0 {
				for id := typ; id != NoType; id = p.ctx.Types.Next(id) {
					if p.ctx.Types.Kind(id) == KindArray {
						elem := p.ctx.Types.Next(id)
						assert.Equal(t, tt.arrayN*p.ctx.Types.Size(elem), p.ctx.Types.Size(id))
						break
					}
				}
			}
		})
	}
}

func TestDeclarationSpecifiersDefaultsToInt(t *testing.T) {
	p := newTestParser("const")
	typ, _, consumed, err := p.declarationSpecifiers(true)
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.Equal(t, KindInteger, p.ctx.Types.Kind(typ))
	assert.Equal(t, 4, p.ctx.Types.Size(typ))
	assert.True(t, p.ctx.Types.IsConst(typ))
}

func TestDeclarationSpecifiersNoTokenConsumed(t *testing.T) {
	p := newTestParser("x")
	_, _, consumed, err := p.declarationSpecifiers(true)
	require.NoError(t, err)
	assert.False(t, consumed)
}

func TestDeclarationSpecifiersStorageClassRejectedWhenDisallowed(t *testing.T) {
	p := newTestParser("static int")
	_, _, _, err := p.declarationSpecifiers(false)
	require.Error(t, err)
}

func TestStructDeclarationLayout(t *testing.T) {
	// struct S { int a; char b; }; struct S s;  (S4)
	p := newTestParser("struct S { int a; char b; };")
	typ, _, consumed, err := p.declarationSpecifiers(true)
	require.NoError(t, err)
	require.True(t, consumed)
	assert.Equal(t, KindObject, p.ctx.Types.Kind(typ))
	assert.Equal(t, 8, p.ctx.Types.Size(typ))

	members := p.ctx.Types.Members(typ)
	require.Len(t, members, 2)
	assert.Equal(t, 0, members[0].Offset)
	assert.Equal(t, 4, members[1].Offset)

	tag := p.ctx.Tags.Lookup("S")
	require.NotNil(t, tag)
	assert.Equal(t, typ, tag.Type)
}

func TestStructRedefinitionOfCompleteTagIsFatal(t *testing.T) {
	p := newTestParser("struct S { int a; }; struct S { int b; };")
	_, _, _, err := p.declarationSpecifiers(true)
	require.NoError(t, err)
	if _, err := p.lex.Consume(TokenKind(';')); err != nil {
		t.Fatal(err)
	}
	_, _, _, err = p.declarationSpecifiers(true)
	require.Error(t, err)
}

func TestEnumSpecifierDefaultAndExplicitValues(t *testing.T) {
	p := newTestParser("enum Color { RED, GREEN = 5, BLUE };")
	_, _, _, err := p.declarationSpecifiers(true)
	require.NoError(t, err)

	red := p.ctx.Idents.Lookup("RED")
	green := p.ctx.Idents.Lookup("GREEN")
	blue := p.ctx.Idents.Lookup("BLUE")
	require.NotNil(t, red)
	require.NotNil(t, green)
	require.NotNil(t, blue)
	assert.EqualValues(t, 0, red.EnumValue)
	assert.EqualValues(t, 5, green.EnumValue)
	assert.EqualValues(t, 6, blue.EnumValue)
}

func TestParameterListVoidIsZeroParams(t *testing.T) {
	p := newTestParser("(void)")
	p.lex.Next() // consume '('
	ft, err := p.parameterList(p.ctx.Types.NewInteger(4, false))
	require.NoError(t, err)
	assert.Equal(t, KindFunction, p.ctx.Types.Kind(ft))
	assert.Len(t, p.ctx.Types.Members(ft), 0)
}

func TestParameterListArrayParamDecaysToPointer(t *testing.T) {
	p := newTestParser("(int a[10])")
	p.lex.Next() // '('
	ft, err := p.parameterList(p.ctx.Types.NewInteger(4, false))
	require.NoError(t, err)
	members := p.ctx.Types.Members(ft)
	require.Len(t, members, 1)
	assert.Equal(t, KindPointer, p.ctx.Types.Kind(members[0].Type))
}

func TestParameterListVariadic(t *testing.T) {
	p := newTestParser("(int a, ...)")
	p.lex.Next()
	ft, err := p.parameterList(p.ctx.Types.NewInteger(4, false))
	require.NoError(t, err)
	assert.True(t, p.ctx.Types.IsVararg(ft))
	assert.Len(t, p.ctx.Types.Members(ft), 1)
}
