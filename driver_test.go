package cc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseAll(t *testing.T, src string) (*Compiler, []*Decl) {
	t.Helper()
	c := NewCompiler(NewStringLexer(src))
	var decls []*Decl
	for {
		d, err := c.Parse()
		require.NoError(t, err)
		if d == nil {
			break
		}
		decls = append(decls, d)
	}
	return c, decls
}

// S1: int x = 3; at file scope.
func TestFileScopeDefinitionWithImmediateInitializer(t *testing.T) {
	c, decls := parseAll(t, "int x = 3;")
	require.Len(t, decls, 1)

	x := c.Context().Idents.Lookup("x")
	require.NotNil(t, x)
	assert.Equal(t, SymDefinition, x.SymType)
	assert.Equal(t, LinkageExtern, x.Linkage)
	assert.Equal(t, 4, c.Context().Types.Size(x.Type))

	require.Len(t, decls[0].Head.Ops, 1)
	asn, ok := decls[0].Head.Ops[0].(IAssign)
	require.True(t, ok)
	assert.Equal(t, "x", asn.Dst.Symbol.Name)
	assert.EqualValues(t, 3, asn.Src.Value)
}

// S2: static int y; at file scope, resolved tentatively at EOF.
func TestTentativeDefinitionResolvedExactlyOnceAtEOF(t *testing.T) {
	c, decls := parseAll(t, "static int y;")
	require.Len(t, decls, 1) // the only Decl returned is the terminal tentative-resolution one

	y := c.Context().Idents.Lookup("y")
	require.NotNil(t, y)
	assert.Equal(t, SymDefinition, y.SymType)
	assert.Equal(t, LinkageIntern, y.Linkage)

	require.Len(t, decls[0].Head.Ops, 1)
	asn := decls[0].Head.Ops[0].(IAssign)
	assert.Equal(t, "y", asn.Dst.Symbol.Name)
	assert.EqualValues(t, 0, asn.Src.Value)

	// A second Parse() call after tentative resolution returns nothing more.
	d, err := c.Parse()
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestTentativeDefinitionSupersededByRealDefinitionEmitsNothing(t *testing.T) {
	_, decls := parseAll(t, "static int y; int y = 7;")
	// y's tentative definition is upgraded to a real one by the second
	// declaration, so end-of-translation-unit resolution has nothing
	// left to zero-initialize: only the y=7 decl is returned.
	require.Len(t, decls, 1)
	asn := decls[0].Head.Ops[0].(IAssign)
	assert.EqualValues(t, 7, asn.Src.Value)
}

// S3: int f(int a, int b){ return a+b; }
func TestFunctionDefinitionCFGAndFunc(t *testing.T) {
	c, decls := parseAll(t, `int f(int a, int b){ return a+b; }`)
	require.Len(t, decls, 1)
	d := decls[0]

	require.NotNil(t, d.Fun)
	assert.Equal(t, "f", d.Fun.Name)
	ft := d.Fun.Type
	assert.Equal(t, KindFunction, c.Context().Types.Kind(ft))
	assert.Len(t, c.Context().Types.Members(ft), 2)

	require.Len(t, d.Body.Ops, 1)
	add, ok := d.Body.Ops[0].(IBinOp)
	require.True(t, ok)
	assert.Equal(t, OpAdd, add.Op)
	require.NotNil(t, d.Body.Expr)

	var fname *Symbol
	for _, l := range d.Locals {
		if l.Name == "__func__" {
			fname = l
		}
	}
	require.NotNil(t, fname)
	assert.Equal(t, 2, c.Context().Types.Size(fname.Type)) // len("f")+1

	require.Len(t, d.Head.Ops, 1)
	asn := d.Head.Ops[0].(IAssign)
	assert.Equal(t, "__func__", asn.Dst.Symbol.Name)
}

// S4: struct S { int a; char b; }; struct S s;
func TestStructDeclarationAndInstance(t *testing.T) {
	c, decls := parseAll(t, "struct S { int a; char b; }; struct S s;")
	// Neither declaration emits IR, and s has external linkage, so
	// end-of-input tentative resolution has nothing to zero-initialize.
	require.Len(t, decls, 0)

	s := c.Context().Idents.Lookup("s")
	require.NotNil(t, s)
	assert.Equal(t, KindObject, c.Context().Types.Kind(s.Type))

	tagSym := c.Context().Tags.Lookup("S")
	require.NotNil(t, tagSym)
	assert.Equal(t, tagSym.Type, s.Type)

	members := c.Context().Types.Members(s.Type)
	assert.Equal(t, 0, members[0].Offset)
	assert.Equal(t, 4, members[1].Offset)
	assert.Equal(t, 8, c.Context().Types.Size(s.Type))
}

// S5: int a[] = {1,2,3,4};
func TestIncompleteArrayCompletionFromInitializer(t *testing.T) {
	c, decls := parseAll(t, "int a[] = {1,2,3,4};")
	require.Len(t, decls, 1)
	a := c.Context().Idents.Lookup("a")
	require.NotNil(t, a)
	assert.Equal(t, 16, c.Context().Types.Size(a.Type))
}

// S6: for-loop CFG shape.
func TestForLoopCFGShape(t *testing.T) {
	_, decls := parseAll(t, `int main(){ int i; for (i = 0; i < 10; i = i + 1) {} return i; }`)
	require.Len(t, decls, 1)
	d := decls[0]

	// body block (entry) holds the `i = 0` init then falls to the cond block.
	entry := d.Body
	require.Len(t, entry.Ops, 1)
	require.NotNil(t, entry.Jump[0])
	cond := entry.Jump[0]

	require.NotNil(t, cond.Jump[0]) // false edge: exit/return block
	require.NotNil(t, cond.Jump[1]) // true edge: body block
	body := cond.Jump[1]
	ret := cond.Jump[0]

	require.NotNil(t, body.Jump[0])
	step := body.Jump[0]
	require.NotNil(t, step.Jump[0])
	assert.Same(t, cond, step.Jump[0])

	assert.NotNil(t, ret.Expr)
}

// Testable property 1: scope discipline across a function body.
func TestScopeDisciplineAcrossFunctionBody(t *testing.T) {
	c, _ := parseAll(t, `int f(int a){ int b; { int c; } return a; }`)
	assert.Equal(t, 0, c.Context().Idents.Depth())
	assert.Equal(t, 0, c.Context().Tags.Depth())
}

// Testable property 6: break/continue targets.
func TestBreakTargetsPostLoopBlock(t *testing.T) {
	_, decls := parseAll(t, `int f(){ while (1) { break; } return 0; }`)
	d := decls[0]
	body := d.Body
	require.NotNil(t, body.Jump[0]) // body -> while top
	top := body.Jump[0]
	require.NotNil(t, top.Jump[1])
	loopBody := top.Jump[1]
	require.NotNil(t, top.Jump[0])
	postLoop := top.Jump[0]

	// `break;` inside the loop body jumps straight to postLoop.
	assert.Same(t, postLoop, loopBody.Jump[0])
}

func TestContinueTargetsForStepBlock(t *testing.T) {
	_, decls := parseAll(t, `int f(){ int i; for (i = 0; i < 10; i = i + 1) { continue; } return i; }`)
	d := decls[0]
	entry := d.Body
	cond := entry.Jump[0]
	body := cond.Jump[1]
	step := body.Jump[0] // `continue;` sends the loop body straight here

	require.Len(t, step.Ops, 2) // the step expression `i = i + 1`: ADD then assign
	assert.IsType(t, IBinOp{}, step.Ops[0])
	assert.IsType(t, IAssign{}, step.Ops[1])
	assert.Same(t, cond, step.Jump[0]) // step loops back to the condition
}

func TestUndefinedIdentifierIsFatal(t *testing.T) {
	c := NewCompiler(NewStringLexer("int f(){ return undefined_name; }"))
	_, err := c.Parse()
	require.Error(t, err)
}

func TestCallingNonFunctionIsFatal(t *testing.T) {
	c := NewCompiler(NewStringLexer("int x; int f(){ return x(); }"))
	_, err := c.Parse()
	require.Error(t, err)
}

func TestTypedefUsedAsDeclarationSpecifier(t *testing.T) {
	_, decls := parseAll(t, "typedef int myint; myint x = 5;")
	require.Len(t, decls, 1)
	asn := decls[0].Head.Ops[0].(IAssign)
	assert.EqualValues(t, 5, asn.Src.Value)
}
