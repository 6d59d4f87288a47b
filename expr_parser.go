package cc

// Every level of the expression grammar takes the block currently
// accumulating ops and returns the Var it evaluates to together with
// the block execution continues in afterwards — almost always the
// same block, except at the levels that can branch (||, &&, ?:) or
// that recurse into a parenthesized sub-expression containing one of
// those (spec.md §4.E).

// expression parses the comma operator, the lowest-precedence level.
func (p *Parser) expression(block *Block) (*Var, *Block, error) {
	v, cur, err := p.assignmentExpression(block)
	if err != nil {
		return nil, nil, err
	}
	for p.lex.Peek().Kind == TokenKind(',') {
		p.lex.Next()
		v, cur, err = p.assignmentExpression(cur)
		if err != nil {
			return nil, nil, err
		}
	}
	return v, cur, nil
}

// assignmentExpression is right-associative: LHS is parsed as a
// conditional expression, and on '=' the RHS recurses into another
// assignmentExpression (spec.md §4.E).
func (p *Parser) assignmentExpression(block *Block) (*Var, *Block, error) {
	lhs, cur, err := p.conditionalExpression(block)
	if err != nil {
		return nil, nil, err
	}
	if p.lex.Peek().Kind == TokenKind('=') {
		if !lhs.LValue {
			return nil, nil, errorf(ErrSyntax, p.lex.Peek().Pos, "left operand of assignment is not an lvalue")
		}
		p.lex.Next()
		// TODO: compound assignment operators (+=, -=, *=, ...) hook in
		// here as additional cases alongside plain '='.
		rhs, rcur, err := p.assignmentExpression(cur)
		if err != nil {
			return nil, nil, err
		}
		return p.ctx.EvalAssign(rcur, lhs, rhs), rcur, nil
	}
	return lhs, cur, nil
}

// conditionalExpression parses `e1 ? e2 : e3`, lowering to a
// three-way CFG split that converges on a temporary, the same shape
// as the short-circuit levels below it.
func (p *Parser) conditionalExpression(block *Block) (*Var, *Block, error) {
	cond, cur, err := p.logicalOrExpression(block)
	if err != nil {
		return nil, nil, err
	}
	if p.lex.Peek().Kind != TokenKind('?') {
		return cond, cur, nil
	}
	p.lex.Next()

	trueBlock := p.cfg.NewBlock()
	falseBlock := p.cfg.NewBlock()
	next := p.cfg.NewBlock()
	cur.Jump[0] = falseBlock
	cur.Jump[1] = trueBlock

	tv, tcur, err := p.expression(trueBlock)
	if err != nil {
		return nil, nil, err
	}
	if _, err := p.lex.Consume(TokenKind(':')); err != nil {
		return nil, nil, err
	}
	fv, fcur, err := p.conditionalExpression(falseBlock)
	if err != nil {
		return nil, nil, err
	}

	temp := p.ctx.Idents.Temp(tv.Type)
	p.ctx.EvalAssign(tcur, NewDirectVar(temp), tv)
	tcur.Jump[0] = next
	p.ctx.EvalAssign(fcur, NewDirectVar(temp), fv)
	fcur.Jump[0] = next
	next.Expr = NewDirectVar(temp)
	return NewDirectVar(temp), next, nil
}

// logicalOrExpression lowers `||` per spec.md §4.E and testable
// property 5: each link sets the current block's true edge straight
// to the merge block (short-circuiting to "true" without evaluating
// the RHS) and its false edge into a fresh block that evaluates the
// RHS.
func (p *Parser) logicalOrExpression(block *Block) (*Var, *Block, error) {
	lhs, cur, err := p.logicalAndExpression(block)
	if err != nil {
		return nil, nil, err
	}
	if p.lex.Peek().Kind != TokLogicalOr {
		return lhs, cur, nil
	}

	temp := p.ctx.Idents.Temp(p.ctx.Types.NewInteger(4, false))
	last := p.cfg.NewBlock()

	for p.lex.Peek().Kind == TokLogicalOr {
		p.lex.Next()
		p.ctx.EvalAssign(cur, NewDirectVar(temp), lhs)
		next := p.cfg.NewBlock()
		cur.Jump[1] = last
		cur.Jump[0] = next
		rhs, rcur, err := p.logicalAndExpression(next)
		if err != nil {
			return nil, nil, err
		}
		lhs, cur = rhs, rcur
	}

	p.ctx.EvalAssign(cur, NewDirectVar(temp), lhs)
	cur.Jump[0] = last
	last.Expr = NewDirectVar(temp)
	return NewDirectVar(temp), last, nil
}

// logicalAndExpression lowers `&&`, the mirror image of
// logicalOrExpression: the current block's false edge short-circuits
// straight to the merge block.
func (p *Parser) logicalAndExpression(block *Block) (*Var, *Block, error) {
	lhs, cur, err := p.bitwiseOrExpression(block)
	if err != nil {
		return nil, nil, err
	}
	if p.lex.Peek().Kind != TokLogicalAnd {
		return lhs, cur, nil
	}

	temp := p.ctx.Idents.Temp(p.ctx.Types.NewInteger(4, false))
	last := p.cfg.NewBlock()

	for p.lex.Peek().Kind == TokLogicalAnd {
		p.lex.Next()
		p.ctx.EvalAssign(cur, NewDirectVar(temp), lhs)
		next := p.cfg.NewBlock()
		cur.Jump[0] = last
		cur.Jump[1] = next
		rhs, rcur, err := p.bitwiseOrExpression(next)
		if err != nil {
			return nil, nil, err
		}
		lhs, cur = rhs, rcur
	}

	p.ctx.EvalAssign(cur, NewDirectVar(temp), lhs)
	cur.Jump[0] = last
	last.Expr = NewDirectVar(temp)
	return NewDirectVar(temp), last, nil
}

// leftAssocLevel implements one non-branching, left-associative
// binary-operator precedence level: read the higher-precedence
// operand, then while the lookahead is one of ops, fold it in via
// eval_expr.
func (p *Parser) leftAssocLevel(block *Block, higher func(*Block) (*Var, *Block, error), ops map[TokenKind]Op) (*Var, *Block, error) {
	lhs, cur, err := higher(block)
	if err != nil {
		return nil, nil, err
	}
	for {
		op, ok := ops[p.lex.Peek().Kind]
		if !ok {
			return lhs, cur, nil
		}
		p.lex.Next()
		rhs, rcur, err := higher(cur)
		if err != nil {
			return nil, nil, err
		}
		lhs = p.ctx.EvalExpr(rcur, op, lhs, rhs)
		cur = rcur
	}
}

var bitwiseOrOps = map[TokenKind]Op{TokenKind('|'): OpBitOr}
var bitwiseXorOps = map[TokenKind]Op{TokenKind('^'): OpBitXor}
var bitwiseAndOps = map[TokenKind]Op{TokenKind('&'): OpBitAnd}
var additiveOps = map[TokenKind]Op{TokenKind('+'): OpAdd, TokenKind('-'): OpSub}
var multiplicativeOps = map[TokenKind]Op{TokenKind('*'): OpMul, TokenKind('/'): OpDiv, TokenKind('%'): OpMod}

func (p *Parser) bitwiseOrExpression(block *Block) (*Var, *Block, error) {
	return p.leftAssocLevel(block, p.bitwiseXorExpression, bitwiseOrOps)
}

func (p *Parser) bitwiseXorExpression(block *Block) (*Var, *Block, error) {
	return p.leftAssocLevel(block, p.bitwiseAndExpression, bitwiseXorOps)
}

func (p *Parser) bitwiseAndExpression(block *Block) (*Var, *Block, error) {
	return p.leftAssocLevel(block, p.equalityExpression, bitwiseAndOps)
}

// equalityExpression handles `==` directly and lowers `!=` as
// `eval_expr(==, 0, eval_expr(==, lhs, rhs))`, per spec.md §4.E.
func (p *Parser) equalityExpression(block *Block) (*Var, *Block, error) {
	lhs, cur, err := p.relationalExpression(block)
	if err != nil {
		return nil, nil, err
	}
	for {
		switch p.lex.Peek().Kind {
		case TokEq:
			p.lex.Next()
			rhs, rcur, err := p.relationalExpression(cur)
			if err != nil {
				return nil, nil, err
			}
			lhs, cur = p.ctx.EvalExpr(rcur, OpEq, lhs, rhs), rcur
		case TokNeq:
			p.lex.Next()
			rhs, rcur, err := p.relationalExpression(cur)
			if err != nil {
				return nil, nil, err
			}
			eq := p.ctx.EvalExpr(rcur, OpEq, lhs, rhs)
			lhs, cur = p.ctx.EvalExpr(rcur, OpEq, NewImmediateVar(0, eq.Type), eq), rcur
		default:
			return lhs, cur, nil
		}
	}
}

// relationalExpression canonicalizes `<` and `<=` to `>`/`>=` by
// swapping operands, per spec.md §4.E.
func (p *Parser) relationalExpression(block *Block) (*Var, *Block, error) {
	lhs, cur, err := p.shiftExpression(block)
	if err != nil {
		return nil, nil, err
	}
	for {
		switch p.lex.Peek().Kind {
		case TokenKind('<'):
			p.lex.Next()
			rhs, rcur, err := p.shiftExpression(cur)
			if err != nil {
				return nil, nil, err
			}
			lhs, cur = p.ctx.EvalExpr(rcur, OpGt, rhs, lhs), rcur
		case TokenKind('>'):
			p.lex.Next()
			rhs, rcur, err := p.shiftExpression(cur)
			if err != nil {
				return nil, nil, err
			}
			lhs, cur = p.ctx.EvalExpr(rcur, OpGt, lhs, rhs), rcur
		case TokLeq:
			p.lex.Next()
			rhs, rcur, err := p.shiftExpression(cur)
			if err != nil {
				return nil, nil, err
			}
			lhs, cur = p.ctx.EvalExpr(rcur, OpGe, rhs, lhs), rcur
		case TokGeq:
			p.lex.Next()
			rhs, rcur, err := p.shiftExpression(cur)
			if err != nil {
				return nil, nil, err
			}
			lhs, cur = p.ctx.EvalExpr(rcur, OpGe, lhs, rhs), rcur
		default:
			return lhs, cur, nil
		}
	}
}

// shiftExpression sits in the ladder between relational and additive
// for `<<`/`>>`, which have no lexer tokens yet (spec.md §6 doesn't
// list them among the token tags this module lexes); it is a pure
// pass-through until that's extended.
func (p *Parser) shiftExpression(block *Block) (*Var, *Block, error) {
	return p.additiveExpression(block)
}

func (p *Parser) additiveExpression(block *Block) (*Var, *Block, error) {
	return p.leftAssocLevel(block, p.multiplicativeExpression, additiveOps)
}

func (p *Parser) multiplicativeExpression(block *Block) (*Var, *Block, error) {
	return p.leftAssocLevel(block, p.castExpression, multiplicativeOps)
}

// castExpression disambiguates `(type-name)expr` from a parenthesized
// expression via two-token lookahead: a type keyword or typedef-name
// right after '(' commits to the cast path (spec.md §4.E).
func (p *Parser) castExpression(block *Block) (*Var, *Block, error) {
	if p.lex.Peek().Kind == TokenKind('(') && p.startsTypeName(p.lex.PeekN(1)) {
		p.lex.Next()
		base, _, _, err := p.declarationSpecifiers(false)
		if err != nil {
			return nil, nil, err
		}
		t, _, err := p.declarator(base)
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.lex.Consume(TokenKind(')')); err != nil {
			return nil, nil, err
		}
		v, cur, err := p.castExpression(block)
		if err != nil {
			return nil, nil, err
		}
		return p.ctx.EvalCast(cur, v, t), cur, nil
	}
	return p.unaryExpression(block)
}

// startsTypeName reports whether tok can begin a declaration-specifier
// sequence: a type/qualifier/storage-class keyword, or an identifier
// already bound to a TYPEDEF.
func (p *Parser) startsTypeName(tok Token) bool {
	if declSpecifierTokens[tok.Kind] {
		return true
	}
	if tok.Kind == TokIdentifier {
		if sym := p.ctx.Idents.Lookup(tok.StrVal); sym != nil && sym.SymType == SymTypedef {
			return true
		}
	}
	return false
}

// unaryExpression handles the prefix unary operators, sizeof, and
// prefix ++/--, falling through to postfixExpression otherwise.
func (p *Parser) unaryExpression(block *Block) (*Var, *Block, error) {
	tok := p.lex.Peek()
	switch tok.Kind {
	case TokenKind('&'):
		p.lex.Next()
		v, cur, err := p.castExpression(block)
		if err != nil {
			return nil, nil, err
		}
		return p.ctx.EvalAddr(cur, v), cur, nil
	case TokenKind('*'):
		p.lex.Next()
		v, cur, err := p.castExpression(block)
		if err != nil {
			return nil, nil, err
		}
		return p.ctx.EvalDeref(cur, v), cur, nil
	case TokenKind('!'):
		p.lex.Next()
		v, cur, err := p.castExpression(block)
		if err != nil {
			return nil, nil, err
		}
		return p.ctx.EvalExpr(cur, OpEq, NewImmediateVar(0, v.Type), v), cur, nil
	case TokenKind('+'):
		p.lex.Next()
		return p.castExpression(block)
	case TokenKind('-'):
		p.lex.Next()
		v, cur, err := p.castExpression(block)
		if err != nil {
			return nil, nil, err
		}
		return p.ctx.EvalUnary(cur, OpSub, v), cur, nil
	case TokIncrement, TokDecrement:
		p.lex.Next()
		v, cur, err := p.unaryExpression(block)
		if err != nil {
			return nil, nil, err
		}
		delta := int64(1)
		if tok.Kind == TokDecrement {
			delta = -1
		}
		sum := p.ctx.EvalExpr(cur, OpAdd, v, NewImmediateVar(delta, v.Type))
		return p.ctx.EvalAssign(cur, v, sum), cur, nil
	case TokSizeof:
		return p.sizeofExpression(block)
	default:
		return p.postfixExpression(block)
	}
}

// sizeofExpression implements `sizeof(type-name)` (two-token
// lookahead, same disambiguation as castExpression) and
// `sizeof unary-expression` (parsed into a throwaway block purely to
// obtain its type, per spec.md §4.E).
func (p *Parser) sizeofExpression(block *Block) (*Var, *Block, error) {
	tok := p.lex.Next() // 'sizeof'

	intType := p.ctx.Types.NewInteger(4, false)

	if p.lex.Peek().Kind == TokenKind('(') && p.startsTypeName(p.lex.PeekN(1)) {
		p.lex.Next()
		base, _, _, err := p.declarationSpecifiers(false)
		if err != nil {
			return nil, nil, err
		}
		t, _, err := p.declarator(base)
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.lex.Consume(TokenKind(')')); err != nil {
			return nil, nil, err
		}
		if !p.ctx.Types.IsComplete(t) || p.ctx.Types.Kind(t) == KindFunction {
			return nil, nil, errorf(ErrSemantic, tok.Pos, "sizeof of incomplete or function type")
		}
		return NewImmediateVar(int64(p.ctx.Types.Size(t)), intType), block, nil
	}

	throwaway := p.cfg.NewBlock()
	v, _, err := p.unaryExpression(throwaway)
	if err != nil {
		return nil, nil, err
	}
	if !p.ctx.Types.IsComplete(v.Type) || p.ctx.Types.Kind(v.Type) == KindFunction {
		return nil, nil, errorf(ErrSemantic, tok.Pos, "sizeof of incomplete or function type")
	}
	return NewImmediateVar(int64(p.ctx.Types.Size(v.Type)), intType), block, nil
}

// postfixExpression handles subscript, call, field access, and
// postfix ++/--, per spec.md §4.E.
func (p *Parser) postfixExpression(block *Block) (*Var, *Block, error) {
	v, cur, err := p.primaryExpression(block)
	if err != nil {
		return nil, nil, err
	}
	for {
		tok := p.lex.Peek()
		switch tok.Kind {
		case TokenKind('['):
			p.lex.Next()
			idx, rcur, err := p.expression(cur)
			if err != nil {
				return nil, nil, err
			}
			if _, err := p.lex.Consume(TokenKind(']')); err != nil {
				return nil, nil, err
			}
			addr := p.ctx.EvalExpr(rcur, OpAdd, v, idx)
			v, cur = p.ctx.EvalDeref(rcur, addr), rcur

		case TokenKind('('):
			p.lex.Next()
			if p.ctx.Types.Kind(v.Type) != KindFunction {
				return nil, nil, errorf(ErrSemantic, tok.Pos, "calling a non-function")
			}
			params := p.ctx.Types.Members(v.Type)
			n := 0
			if p.lex.Peek().Kind != TokenKind(')') {
				for {
					arg, rcur, err := p.assignmentExpression(cur)
					if err != nil {
						return nil, nil, err
					}
					cur = rcur
					p.ctx.Param(cur, arg)
					n++
					if p.lex.Peek().Kind == TokenKind(',') {
						p.lex.Next()
						continue
					}
					break
				}
			}
			if _, err := p.lex.Consume(TokenKind(')')); err != nil {
				return nil, nil, err
			}
			if n < len(params) && !p.ctx.Types.IsVararg(v.Type) {
				return nil, nil, errorf(ErrSemantic, tok.Pos, "too few arguments in call")
			}
			v = p.ctx.EvalCall(cur, v)

		case TokenKind('.'):
			p.lex.Next()
			name, err := p.lex.Consume(TokIdentifier)
			if err != nil {
				return nil, nil, err
			}
			addr := p.ctx.EvalAddr(cur, v)
			v, err = p.fieldAccess(cur, addr, name.StrVal)
			if err != nil {
				return nil, nil, err
			}

		case TokArrow:
			p.lex.Next()
			name, err := p.lex.Consume(TokIdentifier)
			if err != nil {
				return nil, nil, err
			}
			v, err = p.fieldAccess(cur, v, name.StrVal)
			if err != nil {
				return nil, nil, err
			}

		case TokIncrement, TokDecrement:
			p.lex.Next()
			delta := int64(1)
			if tok.Kind == TokDecrement {
				delta = -1
			}
			old := v
			snapshot := NewDirectVar(p.ctx.Idents.Temp(old.Type))
			p.ctx.EvalCopy(cur, snapshot, old)
			sum := p.ctx.EvalExpr(cur, OpAdd, old, NewImmediateVar(delta, old.Type))
			p.ctx.EvalAssign(cur, old, sum)
			v = snapshot

		default:
			return v, cur, nil
		}
	}
}

// fieldAccess builds the DEREF var for `ptr->name` (and, via the
// caller taking ptr's address first, `v.name`): the pointee's member
// table supplies the field's type and byte offset, which is added to
// any offset ptr itself already carries.
func (p *Parser) fieldAccess(cur *Block, ptr *Var, name string) (*Var, error) {
	objType := p.ctx.Types.Next(ptr.Type)
	m, ok := p.ctx.Types.FindMember(objType, name)
	if !ok {
		return nil, errorf(ErrSemantic, 0, "no member named %q", name)
	}
	sym := ptr.Symbol
	if ptr.Kind != VarDirect {
		sym = p.ctx.Idents.Temp(ptr.Type)
		cur.Ops = append(cur.Ops, ICopy{Dst: NewDirectVar(sym), Src: ptr})
	}
	return NewDerefVar(sym, m.Type, ptr.Offset+m.Offset), nil
}

// primaryExpression handles identifiers, literals, and parenthesized
// sub-expressions.
func (p *Parser) primaryExpression(block *Block) (*Var, *Block, error) {
	tok := p.lex.Peek()
	switch tok.Kind {
	case TokIdentifier:
		p.lex.Next()
		sym := p.ctx.Idents.Lookup(tok.StrVal)
		if sym == nil {
			return nil, nil, errorf(ErrSemantic, tok.Pos, "undefined identifier %q", tok.StrVal)
		}
		if sym.SymType == SymEnum {
			return NewImmediateVar(sym.EnumValue, sym.Type), block, nil
		}
		return NewDirectVar(sym), block, nil

	case TokIntegerConstant:
		p.lex.Next()
		return NewImmediateVar(tok.IntVal, p.ctx.Types.NewInteger(4, false)), block, nil

	case TokString:
		p.lex.Next()
		label := p.ctx.Strings.Label(tok.StrVal)
		strType := p.ctx.Types.NewArray(p.ctx.Types.NewInteger(1, false), len(tok.StrVal)+1)
		return NewImmediateVar(int64(label), strType), block, nil

	case TokenKind('('):
		p.lex.Next()
		v, cur, err := p.expression(block)
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.lex.Consume(TokenKind(')')); err != nil {
			return nil, nil, err
		}
		return v, cur, nil

	default:
		return nil, nil, errorf(ErrSyntax, tok.Pos, "unexpected token %v in expression", tok)
	}
}

// constantExpression parses a conditional expression in an isolated
// fresh block and succeeds only if that block was never split (no
// branch installed) and it evaluated to an IMMEDIATE, per spec.md
// §4.E.
func (p *Parser) constantExpression() (*Var, error) {
	fresh := p.cfg.NewBlock()
	v, cur, err := p.conditionalExpression(fresh)
	if err != nil {
		return nil, err
	}
	if cur != fresh || fresh.Jump[0] != nil || fresh.Jump[1] != nil {
		return nil, errorf(ErrSemantic, p.lex.Peek().Pos, "expected a constant expression")
	}
	if v.Kind != VarImmediate {
		return nil, errorf(ErrSemantic, p.lex.Peek().Pos, "expected a constant expression")
	}
	return v, nil
}
