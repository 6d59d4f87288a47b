package cc

// statement parses one statement, accumulating its ops/edges starting
// from parent, and returns the block in which execution continues
// afterwards (spec.md §4.D). The state machine below mirrors the
// block/edge table in spec.md §4.D exactly.
func (p *Parser) statement(parent *Block) (*Block, error) {
	tok := p.lex.Peek()

	switch tok.Kind {
	case TokenKind('{'):
		p.lex.Next()
		return p.compoundStatement(parent)

	case TokenKind(';'):
		p.lex.Next()
		return parent, nil

	case TokIf:
		return p.ifStatement(parent)

	case TokWhile:
		return p.whileStatement(parent)

	case TokDo:
		return p.doStatement(parent)

	case TokFor:
		return p.forStatement(parent)

	case TokBreak:
		p.lex.Next()
		if _, err := p.lex.Consume(TokenKind(';')); err != nil {
			return nil, err
		}
		if len(p.breakTargets) == 0 {
			return nil, errorf(ErrSyntax, tok.Pos, "break outside loop")
		}
		parent.Jump[0] = p.breakTargets[len(p.breakTargets)-1]
		return p.cfg.NewBlock(), nil

	case TokContinue:
		p.lex.Next()
		if _, err := p.lex.Consume(TokenKind(';')); err != nil {
			return nil, err
		}
		if len(p.continueTargets) == 0 {
			return nil, errorf(ErrSyntax, tok.Pos, "continue outside loop")
		}
		parent.Jump[0] = p.continueTargets[len(p.continueTargets)-1]
		return p.cfg.NewBlock(), nil

	case TokReturn:
		p.lex.Next()
		if p.lex.Peek().Kind != TokenKind(';') {
			v, rcur, err := p.expression(parent)
			if err != nil {
				return nil, err
			}
			rcur.Expr = v
		}
		if _, err := p.lex.Consume(TokenKind(';')); err != nil {
			return nil, err
		}
		return p.cfg.NewBlock(), nil

	case TokIdentifier:
		if sym := p.ctx.Idents.Lookup(tok.StrVal); sym != nil && sym.SymType == SymTypedef {
			return p.localDeclaration(parent)
		}
		return p.expressionStatement(parent)

	default:
		if declSpecifierTokens[tok.Kind] {
			return p.localDeclaration(parent)
		}
		return p.expressionStatement(parent)
	}
}

// compoundStatement parses `{ ... }` (the opening brace already
// consumed by the caller), pushing and popping both ns_ident and
// ns_tag around the nested statement list, per spec.md §4.D.
func (p *Parser) compoundStatement(parent *Block) (*Block, error) {
	p.ctx.Idents.PushScope()
	p.ctx.Tags.PushScope()
	cur, err := p.statementsUntilBrace(parent)
	p.ctx.Tags.PopScope()
	p.ctx.Idents.PopScope()
	return cur, err
}

// statementsUntilBrace parses statements into cur until the next token
// is '}', consumes it, and returns the resulting block. The caller is
// responsible for any scope push/pop around this call.
func (p *Parser) statementsUntilBrace(block *Block) (*Block, error) {
	cur := block
	for p.lex.Peek().Kind != TokenKind('}') {
		var err error
		cur, err = p.statement(cur)
		if err != nil {
			return nil, err
		}
	}
	p.lex.Next()
	return cur, nil
}

func (p *Parser) expressionStatement(parent *Block) (*Block, error) {
	_, cur, err := p.expression(parent)
	if err != nil {
		return nil, err
	}
	if _, err := p.lex.Consume(TokenKind(';')); err != nil {
		return nil, err
	}
	return cur, nil
}

// localDeclaration parses a block-scope declaration (with optional
// initializer) and appends its symbol(s) to the enclosing Decl's
// Locals list.
func (p *Parser) localDeclaration(parent *Block) (*Block, error) {
	base, stc, consumed, err := p.declarationSpecifiers(true)
	if err != nil {
		return nil, err
	}
	if !consumed {
		base = p.ctx.Types.NewInteger(4, false)
	}

	if p.lex.Peek().Kind == TokenKind(';') {
		p.lex.Next()
		return parent, nil
	}

	cur := parent
	for {
		t, name, err := p.declarator(base)
		if err != nil {
			return nil, err
		}

		if stc == StorageTypedef {
			if _, err := p.ctx.Idents.Add(Symbol{Name: name, Type: t, SymType: SymTypedef, Depth: p.ctx.Idents.Depth()}); err != nil {
				return nil, err
			}
		} else {
			linkage := LinkageNone
			if stc == StorageStatic {
				linkage = LinkageIntern
			}
			sym, err := p.ctx.Idents.Add(Symbol{
				Name: name, Type: t, SymType: SymDefinition, Linkage: linkage, Depth: p.ctx.Idents.Depth(),
			})
			if err != nil {
				return nil, err
			}
			p.decl.Locals = append(p.decl.Locals, sym)
			if p.lex.Peek().Kind == TokenKind('=') {
				p.lex.Next()
				nc, err := p.initializer(cur, NewDirectVar(sym), false)
				if err != nil {
					return nil, err
				}
				cur = nc
			}
		}

		if p.lex.Peek().Kind == TokenKind(',') {
			p.lex.Next()
			continue
		}
		break
	}

	if _, err := p.lex.Consume(TokenKind(';')); err != nil {
		return nil, err
	}
	return cur, nil
}

// ifStatement lowers `if (e) s` / `if (e) s else s'` per the block/
// edge table in spec.md §4.D.
func (p *Parser) ifStatement(parent *Block) (*Block, error) {
	p.lex.Next() // 'if'
	if _, err := p.lex.Consume(TokenKind('(')); err != nil {
		return nil, err
	}
	_, condEnd, err := p.expression(parent)
	if err != nil {
		return nil, err
	}
	if _, err := p.lex.Consume(TokenKind(')')); err != nil {
		return nil, err
	}

	right := p.cfg.NewBlock()
	next := p.cfg.NewBlock()

	if p.lex.Peek().Kind != TokElse {
		condEnd.Jump[0] = next
		condEnd.Jump[1] = right
		rightEnd, err := p.statement(right)
		if err != nil {
			return nil, err
		}
		rightEnd.Jump[0] = next
		return next, nil
	}

	left := p.cfg.NewBlock()
	condEnd.Jump[0] = left
	condEnd.Jump[1] = right
	rightEnd, err := p.statement(right)
	if err != nil {
		return nil, err
	}
	rightEnd.Jump[0] = next

	p.lex.Next() // 'else'
	leftEnd, err := p.statement(left)
	if err != nil {
		return nil, err
	}
	leftEnd.Jump[0] = next
	return next, nil
}

// whileStatement lowers `while (e) s`.
func (p *Parser) whileStatement(parent *Block) (*Block, error) {
	p.lex.Next() // 'while'
	top := p.cfg.NewBlock()
	parent.Jump[0] = top

	if _, err := p.lex.Consume(TokenKind('(')); err != nil {
		return nil, err
	}
	_, condEnd, err := p.expression(top)
	if err != nil {
		return nil, err
	}
	if _, err := p.lex.Consume(TokenKind(')')); err != nil {
		return nil, err
	}

	body := p.cfg.NewBlock()
	next := p.cfg.NewBlock()
	condEnd.Jump[0] = next
	condEnd.Jump[1] = body

	p.breakTargets = append(p.breakTargets, next)
	p.continueTargets = append(p.continueTargets, top)
	bodyEnd, err := p.statement(body)
	p.breakTargets = p.breakTargets[:len(p.breakTargets)-1]
	p.continueTargets = p.continueTargets[:len(p.continueTargets)-1]
	if err != nil {
		return nil, err
	}
	bodyEnd.Jump[0] = top
	return next, nil
}

// doStatement lowers `do s while (e);`.
func (p *Parser) doStatement(parent *Block) (*Block, error) {
	p.lex.Next() // 'do'
	top := p.cfg.NewBlock()
	parent.Jump[0] = top
	next := p.cfg.NewBlock()

	p.breakTargets = append(p.breakTargets, next)
	p.continueTargets = append(p.continueTargets, top)
	bodyEnd, err := p.statement(top)
	p.breakTargets = p.breakTargets[:len(p.breakTargets)-1]
	p.continueTargets = p.continueTargets[:len(p.continueTargets)-1]
	if err != nil {
		return nil, err
	}

	if _, err := p.lex.Consume(TokWhile); err != nil {
		return nil, err
	}
	if _, err := p.lex.Consume(TokenKind('(')); err != nil {
		return nil, err
	}
	_, condEnd, err := p.expression(bodyEnd)
	if err != nil {
		return nil, err
	}
	if _, err := p.lex.Consume(TokenKind(')')); err != nil {
		return nil, err
	}
	if _, err := p.lex.Consume(TokenKind(';')); err != nil {
		return nil, err
	}

	condEnd.Jump[0] = next
	condEnd.Jump[1] = top
	return next, nil
}

// forStatement lowers `for (init; cond; step) s`, per spec.md §4.D:
// init is emitted into parent; if cond is absent, parent jumps
// straight into body and body loops back to step unconditionally.
func (p *Parser) forStatement(parent *Block) (*Block, error) {
	p.lex.Next() // 'for'
	if _, err := p.lex.Consume(TokenKind('(')); err != nil {
		return nil, err
	}

	if p.lex.Peek().Kind != TokenKind(';') {
		_, np, err := p.expression(parent)
		if err != nil {
			return nil, err
		}
		parent = np
	}
	if _, err := p.lex.Consume(TokenKind(';')); err != nil {
		return nil, err
	}

	hasCond := p.lex.Peek().Kind != TokenKind(';')
	top := p.cfg.NewBlock()
	body := p.cfg.NewBlock()
	stepEntry := p.cfg.NewBlock()
	next := p.cfg.NewBlock()

	if hasCond {
		parent.Jump[0] = top
		_, condEnd, err := p.expression(top)
		if err != nil {
			return nil, err
		}
		condEnd.Jump[0] = next
		condEnd.Jump[1] = body
	} else {
		parent.Jump[0] = body
	}
	if _, err := p.lex.Consume(TokenKind(';')); err != nil {
		return nil, err
	}

	stepEnd := stepEntry
	if p.lex.Peek().Kind != TokenKind(')') {
		_, se, err := p.expression(stepEntry)
		if err != nil {
			return nil, err
		}
		stepEnd = se
	}
	if _, err := p.lex.Consume(TokenKind(')')); err != nil {
		return nil, err
	}
	if hasCond {
		stepEnd.Jump[0] = top
	} else {
		stepEnd.Jump[0] = body
	}

	p.breakTargets = append(p.breakTargets, next)
	p.continueTargets = append(p.continueTargets, stepEntry)
	bodyEnd, err := p.statement(body)
	p.breakTargets = p.breakTargets[:len(p.breakTargets)-1]
	p.continueTargets = p.continueTargets[:len(p.continueTargets)-1]
	if err != nil {
		return nil, err
	}
	bodyEnd.Jump[0] = stepEntry
	return next, nil
}
