package cc

// Decl is the per-external-declaration unit parse() produces
// (spec.md §3). Head accumulates initializer code for static storage;
// Body is the entry block of the function CFG, or the host block for
// a file-scope initializer with no function attached.
type Decl struct {
	Head   *Block
	Body   *Block
	Fun    *Symbol
	Locals []*Symbol
	Params []*Symbol
}

// Parser holds the single-owner, strictly-sequential state threaded
// through one translation unit's worth of recursive-descent parsing
// (spec.md §5): the shared Context, the token source, the CFG arena,
// the in-flight Decl, and the break/continue target stacks consulted
// by the statement parser.
type Parser struct {
	ctx *Context
	lex Lexer
	cfg *CFG

	decl *Decl

	breakTargets    []*Block
	continueTargets []*Block

	tentativesDone bool

	// Warnings accumulates recoverable diagnostics (spec.md §7); unlike
	// CompileError, these never abort parsing.
	Warnings []string
}

// NewParser creates a Parser over lex, sharing ctx across every call
// to Parse (ctx's namespaces are process-wide for the translation
// unit, per spec.md §3).
func NewParser(ctx *Context, lex Lexer) *Parser {
	return &Parser{ctx: ctx, lex: lex, cfg: NewCFG()}
}

// Context returns the Context this Parser threads through every
// production, so a driving program can resolve symbols/types in the
// Decls it gets back from Parse.
func (p *Parser) Context() *Context { return p.ctx }

// Compiler is the root value a driving program constructs once per
// translation unit.
type Compiler struct {
	*Parser
}

// NewCompiler creates a Compiler with a fresh Context over lex.
func NewCompiler(lex Lexer) *Compiler {
	return &Compiler{Parser: NewParser(NewContext(), lex)}
}

// Parse implements the top-level driver loop (spec.md §4.F). Each
// call either returns the Decl produced by one external declaration or
// function definition, or — on the call that first observes
// end-of-input — performs tentative-definition resolution exactly
// once and returns the resulting Decl (nil if there was nothing to
// resolve). Every call after that returns (nil, nil).
func (p *Parser) Parse() (*Decl, error) {
	for {
		if p.lex.Peek().Kind == TokEOF {
			d := p.finalizeTentatives()
			if d == nil {
				return nil, nil
			}
			if err := p.cfg.Finalize(); err != nil {
				return nil, err
			}
			return d, nil
		}

		d := &Decl{Head: p.cfg.NewBlock(), Body: p.cfg.NewBlock()}
		p.decl = d
		if err := p.externalDeclaration(d); err != nil {
			return nil, err
		}
		if len(d.Head.Ops) > 0 || d.Fun != nil {
			if err := p.cfg.Finalize(); err != nil {
				return nil, err
			}
			return d, nil
		}
		// A lone tag/typedef declaration emits nothing; loop around to
		// the next external declaration (or to end-of-input) instead of
		// handing the caller an empty Decl.
	}
}

func (p *Parser) finalizeTentatives() *Decl {
	if p.tentativesDone {
		return nil
	}
	p.tentativesDone = true

	d := &Decl{Head: p.cfg.NewBlock(), Body: p.cfg.NewBlock()}
	for _, sym := range p.ctx.Idents.TentativeSymbols() {
		sym.SymType = SymDefinition
		p.ctx.EvalAssign(d.Head, NewDirectVar(sym), NewImmediateVar(0, sym.Type))
	}
	if len(d.Head.Ops) == 0 {
		return nil
	}
	return d
}

// externalDeclaration handles one `declaration-specifiers
// init-declarator-list? ;` or one function definition, per spec.md
// §4.F point 4: the storage class plus the token following the first
// declarator (`{`, `=`, `;`, `,`) decides which of {external decl,
// function definition, typedef} this is.
func (p *Parser) externalDeclaration(d *Decl) error {
	base, stc, consumed, err := p.declarationSpecifiers(true)
	if err != nil {
		return err
	}
	if !consumed {
		base = p.ctx.Types.NewInteger(4, false)
	}

	if p.lex.Peek().Kind == TokenKind(';') {
		p.lex.Next()
		return nil
	}

	for {
		t, name, err := p.declarator(base)
		if err != nil {
			return err
		}

		switch {
		case stc == StorageTypedef:
			if _, err := p.ctx.Idents.Add(Symbol{Name: name, Type: t, SymType: SymTypedef}); err != nil {
				return err
			}

		case p.lex.Peek().Kind == TokenKind('{') && p.ctx.Types.Kind(t) == KindFunction:
			return p.functionDefinition(d, name, t, stc)

		default:
			linkage := LinkageExtern
			if stc == StorageStatic {
				linkage = LinkageIntern
			}
			symType := SymTentative
			if stc == StorageExtern {
				symType = SymDeclaration
			}
			sym, err := p.ctx.Idents.Add(Symbol{
				Name: name, Type: t, SymType: symType, Linkage: linkage, Depth: p.ctx.Idents.Depth(),
			})
			if err != nil {
				return err
			}
			if p.lex.Peek().Kind == TokenKind('=') {
				if stc == StorageExtern {
					return errorf(ErrSemantic, p.lex.Peek().Pos, "'extern' declaration of %q has an initializer", name)
				}
				p.lex.Next()
				sym.SymType = SymDefinition
				if _, err := p.initializer(d.Head, NewDirectVar(sym), p.ctx.Idents.Depth() == 0); err != nil {
					return err
				}
			}
		}

		if p.lex.Peek().Kind == TokenKind(',') {
			p.lex.Next()
			continue
		}
		break
	}

	_, err = p.lex.Consume(TokenKind(';'))
	return err
}

// functionDefinition parses a function body, per spec.md §4.F point 4:
// pushes a scope, installs parameters and a synthesized `__func__`
// local, parses the compound statement, and pops the scope — restoring
// ns_ident/ns_tag depth exactly, which is testable property 1.
func (p *Parser) functionDefinition(d *Decl, name string, ftype TypeID, stc StorageClass) error {
	linkage := LinkageExtern
	if stc == StorageStatic {
		linkage = LinkageIntern
	}
	fn, err := p.ctx.Idents.Add(Symbol{Name: name, Type: ftype, SymType: SymDefinition, Linkage: linkage})
	if err != nil {
		return err
	}
	d.Fun = fn

	p.ctx.Idents.PushScope()
	p.ctx.Tags.PushScope()
	defer func() {
		p.ctx.Tags.PopScope()
		p.ctx.Idents.PopScope()
	}()

	for _, m := range p.ctx.Types.Members(ftype) {
		if m.Name == "" {
			continue
		}
		psym, err := p.ctx.Idents.Add(Symbol{
			Name: m.Name, Type: m.Type, SymType: SymDefinition, Depth: p.ctx.Idents.Depth(),
		})
		if err != nil {
			return err
		}
		d.Params = append(d.Params, psym)
	}

	strType := p.ctx.Types.NewArray(p.ctx.Types.NewInteger(1, false), len(name)+1)
	fnameSym, err := p.ctx.Idents.Add(Symbol{
		Name: "__func__", Type: strType, SymType: SymDefinition, Linkage: LinkageIntern, Depth: p.ctx.Idents.Depth(),
	})
	if err != nil {
		return err
	}
	label := p.ctx.Strings.Label(name)
	p.ctx.EvalAssign(d.Head, NewDirectVar(fnameSym), NewImmediateVar(int64(label), strType))
	d.Locals = append(d.Locals, fnameSym)
	for _, psym := range d.Params {
		d.Locals = append(d.Locals, psym)
	}

	if _, err := p.lex.Consume(TokenKind('{')); err != nil {
		return err
	}
	_, err = p.statementsUntilBrace(d.Body)
	return err
}
