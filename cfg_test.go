package cc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCFGFinalizeAcceptsOwnedEdges(t *testing.T) {
	c := NewCFG()
	a := c.NewBlock()
	b := c.NewBlock()
	a.Jump[0] = b
	assert.NoError(t, c.Finalize())
}

func TestCFGFinalizeRejectsForeignBlock(t *testing.T) {
	c := NewCFG()
	other := NewCFG()
	a := c.NewBlock()
	foreign := other.NewBlock()
	a.Jump[1] = foreign
	assert.Error(t, c.Finalize())
}

func TestEvalExprFoldsImmediates(t *testing.T) {
	ctx := NewContext()
	block := NewCFG().NewBlock()
	intT := ctx.Types.NewInteger(4, false)
	lhs := NewImmediateVar(3, intT)
	rhs := NewImmediateVar(4, intT)

	v := ctx.EvalExpr(block, OpMul, lhs, rhs)
	assert.Equal(t, VarImmediate, v.Kind)
	assert.EqualValues(t, 12, v.Value)
	assert.Empty(t, block.Ops)
}

func TestEvalExprDivByZeroDoesNotFold(t *testing.T) {
	ctx := NewContext()
	block := NewCFG().NewBlock()
	intT := ctx.Types.NewInteger(4, false)
	lhs := NewImmediateVar(1, intT)
	rhs := NewImmediateVar(0, intT)

	v := ctx.EvalExpr(block, OpDiv, lhs, rhs)
	require.Len(t, block.Ops, 1)
	bo, ok := block.Ops[0].(IBinOp)
	require.True(t, ok)
	assert.Equal(t, OpDiv, bo.Op)
	assert.Equal(t, VarDirect, v.Kind)
}

func TestEvalExprEmitsForNonImmediateOperand(t *testing.T) {
	ctx := NewContext()
	block := NewCFG().NewBlock()
	intT := ctx.Types.NewInteger(4, false)
	a, err := ctx.Idents.Add(Symbol{Name: "a", Type: intT, SymType: SymDefinition})
	require.NoError(t, err)

	v := ctx.EvalExpr(block, OpAdd, NewDirectVar(a), NewImmediateVar(1, intT))
	require.Len(t, block.Ops, 1)
	assert.Equal(t, VarDirect, v.Kind)
	assert.Equal(t, v.Symbol, block.Ops[0].(IBinOp).Dst.Symbol)
}

func TestBinOpTypePromotesToWiderOperand(t *testing.T) {
	ctx := NewContext()
	shortT := ctx.Types.NewInteger(2, false)
	longT := ctx.Types.NewInteger(8, false)
	assert.Equal(t, longT, ctx.binOpType(OpAdd, shortT, longT))
	assert.Equal(t, longT, ctx.binOpType(OpAdd, longT, shortT))
}

func TestBinOpTypeComparisonAlwaysInt(t *testing.T) {
	ctx := NewContext()
	longT := ctx.Types.NewInteger(8, false)
	rt := ctx.binOpType(OpGt, longT, longT)
	assert.Equal(t, KindInteger, ctx.Types.Kind(rt))
	assert.Equal(t, 4, ctx.Types.Size(rt))
}

func TestBinOpTypePointerArithmeticKeepsPointerType(t *testing.T) {
	ctx := NewContext()
	intT := ctx.Types.NewInteger(4, false)
	ptrT := ctx.Types.NewPointer(intT)
	assert.Equal(t, ptrT, ctx.binOpType(OpAdd, ptrT, intT))
	assert.Equal(t, ptrT, ctx.binOpType(OpAdd, intT, ptrT))
}

func TestEvalDerefMaterializesNonDirectOperand(t *testing.T) {
	ctx := NewContext()
	block := NewCFG().NewBlock()
	intT := ctx.Types.NewInteger(4, false)
	ptrT := ctx.Types.NewPointer(intT)

	immPtr := NewImmediateVar(0, ptrT)
	v := ctx.EvalDeref(block, immPtr)
	require.Len(t, block.Ops, 1)
	_, ok := block.Ops[0].(ICopy)
	require.True(t, ok)
	assert.Equal(t, VarDeref, v.Kind)
	assert.Equal(t, intT, v.Type)
}

func TestEvalDerefOnDirectSkipsCopy(t *testing.T) {
	ctx := NewContext()
	block := NewCFG().NewBlock()
	intT := ctx.Types.NewInteger(4, false)
	ptrT := ctx.Types.NewPointer(intT)
	p, err := ctx.Idents.Add(Symbol{Name: "p", Type: ptrT, SymType: SymDefinition})
	require.NoError(t, err)

	v := ctx.EvalDeref(block, NewDirectVar(p))
	assert.Empty(t, block.Ops)
	assert.Same(t, p, v.Symbol)
}

func TestEvalCopyEmitsAggregateCopy(t *testing.T) {
	ctx := NewContext()
	block := NewCFG().NewBlock()
	intT := ctx.Types.NewInteger(4, false)
	obj := ctx.Types.NewObject()
	ctx.Types.AddMember(obj, "x", intT)
	ctx.Types.AlignStructMembers(obj)
	a, err := ctx.Idents.Add(Symbol{Name: "a", Type: obj, SymType: SymDefinition})
	require.NoError(t, err)
	b, err := ctx.Idents.Add(Symbol{Name: "b", Type: obj, SymType: SymDefinition})
	require.NoError(t, err)

	dst := ctx.EvalCopy(block, NewDirectVar(a), NewDirectVar(b))
	require.Len(t, block.Ops, 1)
	cp, ok := block.Ops[0].(ICopy)
	require.True(t, ok)
	assert.Equal(t, "a", cp.Dst.Symbol.Name)
	assert.Equal(t, "b", cp.Src.Symbol.Name)
	assert.Same(t, a, dst.Symbol)
}

func TestEvalCallReadsReturnTypeFromFunctionNext(t *testing.T) {
	ctx := NewContext()
	block := NewCFG().NewBlock()
	intT := ctx.Types.NewInteger(4, false)
	ft := ctx.Types.NewFunction()
	ctx.Types.SetNext(ft, intT)
	f, err := ctx.Idents.Add(Symbol{Name: "f", Type: ft, SymType: SymDefinition})
	require.NoError(t, err)

	ctx.Param(block, NewImmediateVar(1, intT))
	v := ctx.EvalCall(block, NewDirectVar(f))
	require.Len(t, block.Ops, 2)
	assert.IsType(t, IParam{}, block.Ops[0])
	call, ok := block.Ops[1].(ICall)
	require.True(t, ok)
	assert.Equal(t, "f", call.Fn.Symbol.Name)
	assert.Equal(t, intT, v.Type)
}
