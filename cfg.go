package cc

// Block is a basic block: a maximal straight-line run of IR ops with
// at most two out-edges (spec.md §3). Jump[0] is the fall-through/
// false edge, Jump[1] is the true edge (nil when the block falls off
// the end of the CFG, e.g. a function's final return block).
type Block struct {
	ID   int
	Ops  []Instruction
	Expr *Var
	Jump [2]*Block
}

// CFG is the per-declaration basic-block arena (spec.md §6,
// cfg_create/cfg_block_init/cfg_finalize). Blocks are heap-allocated
// (*Block) and referenced directly by other blocks' Jump edges; the
// CFG's own slice exists only to keep every block reachable for
// Finalize and for deterministic iteration in tests, the same
// separation of concerns as the teacher's tree.go arena (which indexes
// nodes by NodeID but still stores them in one owning slice).
type CFG struct {
	blocks []*Block
}

// NewCFG creates an empty CFG (cfg_create).
func NewCFG() *CFG {
	return &CFG{}
}

// NewBlock allocates and returns a fresh, empty block
// (cfg_block_init).
func (c *CFG) NewBlock() *Block {
	b := &Block{ID: len(c.blocks)}
	c.blocks = append(c.blocks, b)
	return b
}

// Blocks returns every block allocated from this CFG, in allocation
// order.
func (c *CFG) Blocks() []*Block {
	return c.blocks
}

// Finalize validates that every jump edge in the CFG points at a
// block this CFG itself allocated (cfg_finalize). The real back-end
// allocator this contract abstracts over would additionally schedule
// and emit the blocks; that step is out of scope here (spec.md §1).
func (c *CFG) Finalize() error {
	owned := make(map[*Block]bool, len(c.blocks))
	for _, b := range c.blocks {
		owned[b] = true
	}
	for _, b := range c.blocks {
		for _, target := range b.Jump {
			if target != nil && !owned[target] {
				return errorf(ErrSemantic, 0, "block %d jumps to a block outside its CFG", b.ID)
			}
		}
	}
	return nil
}

// --- evaluator contract (spec.md §6) ---
//
// The real eval_* family is an external collaborator; this
// implementation provides a concrete, deliberately simple one so the
// module is self-contained and testable. Each method appends the
// Instruction(s) it needs to block.Ops (none when a constant is folded
// or a DIRECT pointer is dereferenced) and returns the resulting Var.

// EvalExpr emits Op(lhs, rhs) into block and returns a fresh DIRECT
// temp holding the result. Constant lhs/rhs are folded at compile
// time instead of emitting an instruction, since that is strictly
// simpler than threading a dead temp through the CFG.
func (ctx *Context) EvalExpr(block *Block, op Op, lhs, rhs *Var) *Var {
	if lhs.Kind == VarImmediate && rhs.Kind == VarImmediate {
		if v, ok := foldConst(op, lhs, rhs); ok {
			return v
		}
	}
	rt := ctx.binOpType(op, lhs.Type, rhs.Type)
	dst := NewDirectVar(ctx.Idents.Temp(rt))
	block.Ops = append(block.Ops, IBinOp{Op: op, Dst: dst, Lhs: lhs, Rhs: rhs})
	return dst
}

func foldConst(op Op, lhs, rhs *Var) (*Var, bool) {
	l, r := lhs.Value, rhs.Value
	var v int64
	switch op {
	case OpAdd:
		v = l + r
	case OpSub:
		v = l - r
	case OpMul:
		v = l * r
	case OpDiv:
		if r == 0 {
			return nil, false
		}
		v = l / r
	case OpMod:
		if r == 0 {
			return nil, false
		}
		v = l % r
	case OpEq:
		v = boolToInt(l == r)
	case OpGt:
		v = boolToInt(l > r)
	case OpGe:
		v = boolToInt(l >= r)
	case OpBitAnd:
		v = l & r
	case OpBitOr:
		v = l | r
	case OpBitXor:
		v = l ^ r
	case OpLogicalAnd:
		v = boolToInt(l != 0 && r != 0)
	case OpLogicalOr:
		v = boolToInt(l != 0 || r != 0)
	default:
		return nil, false
	}
	return NewImmediateVar(v, lhs.Type), true
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// binOpType resolves the result type of a binary operator under a
// deliberately simplified integer-promotion rule: comparisons and
// logical operators always yield a plain signed int; everything else
// yields the wider of the two operand types (ties keep lhs's
// signedness unless rhs is unsigned). Full usual-arithmetic-conversion
// semantics are part of the semantic analysis spec.md §1 defers.
func (ctx *Context) binOpType(op Op, lt, rt TypeID) TypeID {
	switch op {
	case OpEq, OpGt, OpGe, OpLogicalAnd, OpLogicalOr:
		return ctx.Types.NewInteger(4, false)
	}
	if ctx.Types.Kind(lt) == KindPointer {
		return lt
	}
	if ctx.Types.Kind(rt) == KindPointer {
		return rt
	}
	if ctx.Types.Size(rt) > ctx.Types.Size(lt) {
		return rt
	}
	if ctx.Types.Size(lt) > ctx.Types.Size(rt) {
		return lt
	}
	if ctx.Types.IsUnsigned(rt) {
		return rt
	}
	return lt
}

// EvalUnary emits a unary negation into block.
func (ctx *Context) EvalUnary(block *Block, op Op, src *Var) *Var {
	if src.Kind == VarImmediate {
		var v int64
		switch op {
		case OpSub:
			v = -src.Value
		}
		return NewImmediateVar(v, src.Type)
	}
	dst := NewDirectVar(ctx.Idents.Temp(src.Type))
	block.Ops = append(block.Ops, IUnary{Op: op, Dst: dst, Src: src})
	return dst
}

// EvalAssign stores rhs into the lvalue lhs and evaluates to lhs,
// matching C assignment-expression semantics.
func (ctx *Context) EvalAssign(block *Block, lhs, rhs *Var) *Var {
	block.Ops = append(block.Ops, IAssign{Dst: lhs, Src: rhs})
	return lhs
}

// EvalAddr computes the address of an lvalue, yielding a pointer-typed
// temp.
func (ctx *Context) EvalAddr(block *Block, v *Var) *Var {
	pt := ctx.Types.NewPointer(v.Type)
	dst := NewDirectVar(ctx.Idents.Temp(pt))
	block.Ops = append(block.Ops, IAddr{Dst: dst, Src: v})
	return dst
}

// EvalDeref dereferences a pointer-valued var, yielding the lvalue it
// points to. If v is not a DIRECT var (an IMMEDIATE, or itself a
// DEREF lvalue), it is first materialized into a fresh temp via an
// ICopy so the DEREF var has a Symbol holding the pointer to pivot on.
func (ctx *Context) EvalDeref(block *Block, v *Var) *Var {
	elem := ctx.Types.Next(v.Type)
	sym := v.Symbol
	if v.Kind != VarDirect {
		sym = ctx.Idents.Temp(v.Type)
		block.Ops = append(block.Ops, ICopy{Dst: NewDirectVar(sym), Src: v})
	}
	return NewDerefVar(sym, elem, 0)
}

// EvalCast converts v to type to. Constant immediates are folded
// directly; everything else emits an ICast into a fresh temp.
func (ctx *Context) EvalCast(block *Block, v *Var, to TypeID) *Var {
	if v.Kind == VarImmediate {
		return NewImmediateVar(v.Value, to)
	}
	dst := NewDirectVar(ctx.Idents.Temp(to))
	block.Ops = append(block.Ops, ICast{Dst: dst, Src: v, To: to})
	return dst
}

// EvalCopy performs an aggregate assignment Dst = Src (struct/array
// bytewise copy).
func (ctx *Context) EvalCopy(block *Block, dst, src *Var) *Var {
	block.Ops = append(block.Ops, ICopy{Dst: dst, Src: src})
	return dst
}

// Param pushes one call argument in evaluation order.
func (ctx *Context) Param(block *Block, v *Var) {
	block.Ops = append(block.Ops, IParam{Value: v})
}

// EvalCall emits a call to fn (its arguments must already have been
// pushed via Param, in order) and returns a temp holding its return
// value.
func (ctx *Context) EvalCall(block *Block, fn *Var) *Var {
	rt := ctx.Types.Next(fn.Type)
	dst := NewDirectVar(ctx.Idents.Temp(rt))
	block.Ops = append(block.Ops, ICall{Dst: dst, Fn: fn})
	return dst
}
