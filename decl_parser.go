package cc

// StorageClass tags the single storage-class specifier (if any)
// accepted by declarationSpecifiers (spec.md §4.C).
type StorageClass int

const (
	StorageNone StorageClass = iota
	StorageAuto
	StorageRegister
	StorageStatic
	StorageExtern
	StorageTypedef
)

var storageClassTokens = map[TokenKind]StorageClass{
	TokAuto:     StorageAuto,
	TokRegister: StorageRegister,
	TokStatic:   StorageStatic,
	TokExtern:   StorageExtern,
	TokTypedef:  StorageTypedef,
}

// declarationSpecifiers consumes zero or more of the type/qualifier/
// storage-class keywords (plus a typedef-name identifier) and returns
// the resulting Type, the storage class seen (StorageNone if none),
// and whether any specifier token was consumed at all — callers in
// cast and sizeof contexts rely on that last flag to backtrack.
// allowStorage controls whether a storage-class keyword is legal here
// (it is not inside a parameter list or a cast type-name).
func (p *Parser) declarationSpecifiers(allowStorage bool) (TypeID, StorageClass, bool, error) {
	var (
		sawAny     bool
		stc        = StorageNone
		sawStorage bool
		size       int
		unsigned   bool
		sawUnsigned, sawSigned bool
		isReal     bool
		isVoid     bool
		isConst, isVolatile bool
		tagType    = NoType
		typedefType = NoType
		sawType    bool
	)

	for {
		tok := p.lex.Peek()

		if sc, ok := storageClassTokens[tok.Kind]; ok {
			if !allowStorage {
				return NoType, StorageNone, sawAny, errorf(ErrSemantic, tok.Pos, "storage class %v not allowed here", tok)
			}
			if sawStorage {
				return NoType, StorageNone, sawAny, errorf(ErrSyntax, tok.Pos, "more than one storage class specifier")
			}
			stc, sawStorage = sc, true
			sawAny = true
			p.lex.Next()
			continue
		}

		switch tok.Kind {
		case TokConst:
			isConst, sawAny = true, true
			p.lex.Next()
			continue
		case TokVolatile:
			isVolatile, sawAny = true, true
			p.lex.Next()
			continue
		case TokVoid:
			isVoid, sawType, sawAny = true, true, true
			p.lex.Next()
			continue
		case TokChar:
			size, sawType, sawAny = 1, true, true
			p.lex.Next()
			continue
		case TokShort:
			size, sawType, sawAny = 2, true, true
			p.lex.Next()
			continue
		case TokInt:
			if size == 0 {
				size = 4
			}
			sawType, sawAny = true, true
			p.lex.Next()
			continue
		case TokLong:
			size, sawType, sawAny = 8, true, true
			p.lex.Next()
			continue
		case TokSigned:
			sawSigned, sawType, sawAny = true, true, true
			p.lex.Next()
			continue
		case TokUnsigned:
			unsigned, sawUnsigned, sawType, sawAny = true, true, true, true
			p.lex.Next()
			continue
		case TokFloat:
			isReal, size, sawType, sawAny = true, 4, true, true
			p.lex.Next()
			continue
		case TokDouble:
			isReal, size, sawType, sawAny = true, 8, true, true
			p.lex.Next()
			continue
		case TokStruct, TokUnion:
			t, err := p.structOrUnionSpecifier(tok.Kind == TokUnion)
			if err != nil {
				return NoType, StorageNone, sawAny, err
			}
			tagType, sawType, sawAny = t, true, true
			continue
		case TokEnum:
			t, err := p.enumSpecifier()
			if err != nil {
				return NoType, StorageNone, sawAny, err
			}
			tagType, sawType, sawAny = t, true, true
			continue
		case TokIdentifier:
			if sawType {
				goto done
			}
			if sym := p.ctx.Idents.Lookup(tok.StrVal); sym != nil && sym.SymType == SymTypedef {
				typedefType, sawType, sawAny = sym.Type, true, true
				p.lex.Next()
				continue
			}
			goto done
		default:
			goto done
		}
	}

done:
	_, _ = sawSigned, sawUnsigned
	if !sawAny {
		return NoType, StorageNone, false, nil
	}

	var t TypeID
	switch {
	case typedefType != NoType:
		t = typedefType
	case tagType != NoType:
		t = tagType
	case isVoid:
		t = p.ctx.Types.NewVoid()
	case isReal:
		t = p.ctx.Types.NewReal(size)
	default:
		if size == 0 {
			size = 4
		}
		t = p.ctx.Types.NewInteger(size, unsigned)
	}
	if isConst {
		p.ctx.Types.SetConst(t, true)
	}
	if isVolatile {
		p.ctx.Types.SetVolatile(t, true)
	}
	return t, stc, true, nil
}

// structOrUnionSpecifier parses `struct|union <tag>? ( { member-list } )?`
// and returns the tag's OBJECT TypeID, lazily inserting a forward tag
// into ns_tag the first time it's named.
func (p *Parser) structOrUnionSpecifier(isUnion bool) (TypeID, error) {
	kw := p.lex.Next() // 'struct' or 'union'
	_ = isUnion         // this implementation does not distinguish struct/union layout beyond naming

	name := ""
	if p.lex.Peek().Kind == TokIdentifier {
		name = p.lex.Next().StrVal
	}

	var tagSym *Symbol
	if name != "" {
		tagSym = p.ctx.Tags.Lookup(name)
	}

	hasBody := p.lex.Peek().Kind == TokenKind('{')
	var objType TypeID
	if tagSym == nil {
		objType = p.ctx.Types.NewObject()
		if name != "" {
			sym, err := p.ctx.Tags.Add(Symbol{Name: name, Type: objType, SymType: SymDeclaration})
			if err != nil {
				return NoType, err
			}
			tagSym = sym
		}
	} else {
		if tagSym.SymType == SymEnum {
			return NoType, errorf(ErrTagMismatch, kw.Pos, "%q already used as an enum tag", name)
		}
		objType = tagSym.Type
		if hasBody && p.ctx.Types.IsComplete(objType) {
			return NoType, errorf(ErrRedefinition, kw.Pos, "redefinition of struct/union tag %q", name)
		}
	}

	if hasBody {
		p.lex.Next() // '{'
		if err := p.structDeclarationList(objType); err != nil {
			return NoType, err
		}
		if _, err := p.lex.Consume(TokenKind('}')); err != nil {
			return NoType, err
		}
		p.ctx.Types.AlignStructMembers(objType)
		if tagSym != nil {
			tagSym.SymType = SymDefinition
		}
	}
	return objType, nil
}

// structDeclarationList parses the `{ ... }` body of a struct/union,
// appending each member to obj in declaration order.
func (p *Parser) structDeclarationList(obj TypeID) error {
	for p.lex.Peek().Kind != TokenKind('}') {
		base, _, _, err := p.declarationSpecifiers(false)
		if err != nil {
			return err
		}
		for {
			mt, name, err := p.declarator(base)
			if err != nil {
				return err
			}
			p.ctx.Types.AddMember(obj, name, mt)
			if p.lex.Peek().Kind == TokenKind(',') {
				p.lex.Next()
				continue
			}
			break
		}
		if _, err := p.lex.Consume(TokenKind(';')); err != nil {
			return err
		}
	}
	return nil
}

// enumSpecifier parses `enum <tag>? ( { ident (= const-expr)? , ... } )?`,
// installing each enumerator into ns_ident as a SymEnum symbol and
// returning a plain signed-int TypeID (enums carry no distinct runtime
// representation in this implementation).
func (p *Parser) enumSpecifier() (TypeID, error) {
	kw := p.lex.Next() // 'enum'
	name := ""
	if p.lex.Peek().Kind == TokIdentifier {
		name = p.lex.Next().StrVal
	}

	var tagSym *Symbol
	if name != "" {
		tagSym = p.ctx.Tags.Lookup(name)
	}
	hasBody := p.lex.Peek().Kind == TokenKind('{')
	if tagSym != nil && tagSym.SymType != SymEnum {
		return NoType, errorf(ErrTagMismatch, kw.Pos, "%q already used as a struct/union tag", name)
	}
	if tagSym == nil && name != "" {
		sym, err := p.ctx.Tags.Add(Symbol{Name: name, Type: p.ctx.Types.NewInteger(4, false), SymType: SymEnum})
		if err != nil {
			return NoType, err
		}
		tagSym = sym
	}
	if hasBody {
		if tagSym != nil && tagSym.EnumValue != 0 {
			return NoType, errorf(ErrRedefinition, kw.Pos, "redefinition of enum tag %q", name)
		}
		p.lex.Next() // '{'
		var next int64
		count := 0
		for {
			ident, err := p.lex.Consume(TokIdentifier)
			if err != nil {
				return NoType, err
			}
			val := next
			if p.lex.Peek().Kind == TokenKind('=') {
				p.lex.Next()
				cv, err := p.constantExpression()
				if err != nil {
					return NoType, err
				}
				val = cv.Value
			}
			if _, err := p.ctx.Idents.Add(Symbol{
				Name: ident.StrVal, Type: p.ctx.Types.NewInteger(4, false),
				SymType: SymEnum, EnumValue: val,
			}); err != nil {
				return NoType, err
			}
			next = val + 1
			count++
			if p.lex.Peek().Kind == TokenKind(',') {
				p.lex.Next()
				if p.lex.Peek().Kind == TokenKind('}') {
					break
				}
				continue
			}
			break
		}
		if _, err := p.lex.Consume(TokenKind('}')); err != nil {
			return NoType, err
		}
		if tagSym != nil {
			tagSym.EnumValue = int64(count)
		}
	}
	if tagSym != nil {
		return tagSym.Type, nil
	}
	return p.ctx.Types.NewInteger(4, false), nil
}

// declarator parses zero or more '*' pointer layers (each optionally
// qualified by a trailing const/volatile run) followed by a
// direct_declarator, per spec.md §4.C.
func (p *Parser) declarator(base TypeID) (TypeID, string, error) {
	for p.lex.Peek().Kind == TokenKind('*') {
		p.lex.Next()
		base = p.ctx.Types.NewPointer(base)
		for {
			switch p.lex.Peek().Kind {
			case TokConst:
				p.lex.Next()
				p.ctx.Types.SetConst(base, true)
				continue
			case TokVolatile:
				p.lex.Next()
				p.ctx.Types.SetVolatile(base, true)
				continue
			}
			break
		}
	}
	return p.directDeclarator(base)
}

// directDeclarator implements the inside-out composition rule
// (spec.md §4.C): a parenthesized sub-declarator is parsed against a
// placeholder TypeID, and the outer array/function suffixes
// (type_suffix) are spliced back into that placeholder once they're
// known, via TypeArena.Alias.
func (p *Parser) directDeclarator(base TypeID) (TypeID, string, error) {
	if p.lex.Peek().Kind == TokenKind('(') {
		if la := p.lex.PeekN(1); la.Kind == TokIdentifier || la.Kind == TokenKind('*') || la.Kind == TokenKind('(') {
			p.lex.Next()
			placeholder := p.ctx.Types.NewObject()
			innerType, name, err := p.declarator(placeholder)
			if err != nil {
				return NoType, "", err
			}
			if _, err := p.lex.Consume(TokenKind(')')); err != nil {
				return NoType, "", err
			}
			outer, err := p.typeSuffix(base)
			if err != nil {
				return NoType, "", err
			}
			p.ctx.Types.Alias(placeholder, outer)
			return innerType, name, nil
		}
	}
	if p.lex.Peek().Kind == TokIdentifier {
		name := p.lex.Next().StrVal
		t, err := p.typeSuffix(base)
		return t, name, err
	}
	t, err := p.typeSuffix(base)
	return t, "", err
}

// typeSuffix parses zero or one trailing `[n]` or `(params)` modifier
// chain and wraps base accordingly; array dimensions nest so that
// `a[3][4]` is array-of-3 of (array-of-4 of base).
func (p *Parser) typeSuffix(base TypeID) (TypeID, error) {
	switch p.lex.Peek().Kind {
	case TokenKind('['):
		p.lex.Next()
		n := -1
		if p.lex.Peek().Kind == TokIntegerConstant {
			n = int(p.lex.Next().IntVal)
		}
		if _, err := p.lex.Consume(TokenKind(']')); err != nil {
			return NoType, err
		}
		elem, err := p.typeSuffix(base)
		if err != nil {
			return NoType, err
		}
		return p.ctx.Types.NewArray(elem, n), nil
	case TokenKind('('):
		p.lex.Next()
		return p.parameterList(base)
	default:
		return base, nil
	}
}

// parameterList parses a comma-separated parameter list up to the
// closing ')' (already positioned just past the opening '(') and
// returns a FUNCTION type with returnType as its Next.
func (p *Parser) parameterList(returnType TypeID) (TypeID, error) {
	ft := p.ctx.Types.NewFunction()

	if p.lex.Peek().Kind == TokenKind(')') {
		p.lex.Next()
		p.ctx.Types.SetNext(ft, returnType)
		return ft, nil
	}

	n := 0
	for {
		if p.lex.Peek().Kind == TokDots {
			p.lex.Next()
			p.ctx.Types.SetVararg(ft, true)
			break
		}

		pt, _, consumed, err := p.declarationSpecifiers(false)
		if err != nil {
			return NoType, err
		}
		if !consumed {
			return NoType, errorf(ErrSyntax, p.lex.Peek().Pos, "expected parameter type")
		}

		ptype, pname, err := p.declarator(pt)
		if err != nil {
			return NoType, err
		}

		if n == 0 && pname == "" && p.ctx.Types.Kind(ptype) == KindNone && p.lex.Peek().Kind == TokenKind(')') {
			break // single unnamed `void` parameter: zero-parameter function
		}

		if p.ctx.Types.Kind(ptype) == KindArray {
			ptype = p.ctx.Types.NewPointer(p.ctx.Types.Next(ptype))
		}
		p.ctx.Types.AddMember(ft, pname, ptype)
		n++

		if p.lex.Peek().Kind == TokenKind(',') {
			p.lex.Next()
			continue
		}
		break
	}

	if _, err := p.lex.Consume(TokenKind(')')); err != nil {
		return NoType, err
	}
	p.ctx.Types.SetNext(ft, returnType)
	return ft, nil
}

// initializer parses the initializer for target (already declared
// with the given type/symbol), emits the assignment(s) starting from
// block, and returns the block execution continues in afterwards —
// the same block unless the initializer expression itself branched
// (short-circuit, ternary), per spec.md §4.C.
func (p *Parser) initializer(block *Block, target *Var, fileScope bool) (*Block, error) {
	if p.lex.Peek().Kind == TokenKind('{') {
		return p.braceInitializer(block, target, fileScope)
	}
	v, cur, err := p.assignmentExpression(block)
	if err != nil {
		return nil, err
	}
	if fileScope && v.Kind != VarImmediate {
		return nil, errorf(ErrSemantic, p.lex.Peek().Pos, "file-scope initializer must be a constant expression")
	}
	if p.ctx.Types.Kind(target.Type) == KindNone || (!p.ctx.Types.IsComplete(target.Type) && p.ctx.Types.Kind(target.Type) != KindArray) {
		target.Type = v.Type
		if target.Symbol != nil {
			target.Symbol.Type = v.Type
		}
	}
	p.ctx.EvalAssign(cur, target, v)
	return cur, nil
}

func (p *Parser) braceInitializer(block *Block, target *Var, fileScope bool) (*Block, error) {
	if _, err := p.lex.Consume(TokenKind('{')); err != nil {
		return nil, err
	}
	cur := block
	switch p.ctx.Types.Kind(target.Type) {
	case KindObject:
		members := p.ctx.Types.Members(target.Type)
		for i := 0; p.lex.Peek().Kind != TokenKind('}'); i++ {
			if i >= len(members) {
				return nil, errorf(ErrSemantic, p.lex.Peek().Pos, "too many initializers")
			}
			m := members[i]
			field := NewDerefBase(target, m.Type, m.Offset)
			nc, err := p.initializerElement(cur, field, fileScope)
			if err != nil {
				return nil, err
			}
			cur = nc
			if p.lex.Peek().Kind == TokenKind(',') {
				p.lex.Next()
			}
		}
	case KindArray:
		elem := p.ctx.Types.Next(target.Type)
		elemSize := p.ctx.Types.Size(elem)
		known := p.ctx.Types.Size(target.Type) > 0
		limit := -1
		if known {
			limit = p.ctx.Types.Size(target.Type) / elemSize
		}
		count := 0
		for p.lex.Peek().Kind != TokenKind('}') {
			if limit >= 0 && count >= limit {
				return nil, errorf(ErrSemantic, p.lex.Peek().Pos, "too many initializers")
			}
			elemVar := NewDerefBase(target, elem, count*elemSize)
			nc, err := p.initializerElement(cur, elemVar, fileScope)
			if err != nil {
				return nil, err
			}
			cur = nc
			count++
			if p.lex.Peek().Kind == TokenKind(',') {
				p.lex.Next()
			}
		}
		if !known {
			p.ctx.Types.CompleteArray(target.Type, count)
			if target.Symbol != nil {
				target.Symbol.Type = target.Type
			}
		}
	default:
		return nil, errorf(ErrSemantic, p.lex.Peek().Pos, "brace initializer on non-aggregate type")
	}
	if _, err := p.lex.Consume(TokenKind('}')); err != nil {
		return nil, err
	}
	return cur, nil
}

func (p *Parser) initializerElement(block *Block, target *Var, fileScope bool) (*Block, error) {
	if p.lex.Peek().Kind == TokenKind('{') {
		return p.braceInitializer(block, target, fileScope)
	}
	v, cur, err := p.assignmentExpression(block)
	if err != nil {
		return nil, err
	}
	if fileScope && v.Kind != VarImmediate {
		return nil, errorf(ErrSemantic, p.lex.Peek().Pos, "file-scope initializer must be a constant expression")
	}
	p.ctx.EvalAssign(cur, target, v)
	return cur, nil
}
