// Package parser implements the recursive-descent, precedence-climbing
// parser that turns a token stream into an *ast.Program (spec.md §4.2).
package parser

import (
	"fmt"

	"github.com/tako-lang/tako/internal/ast"
	"github.com/tako-lang/tako/internal/diag"
	"github.com/tako-lang/tako/internal/lexer"
	"github.com/tako-lang/tako/internal/token"
)

// Parser walks a fixed token slice with one token of lookahead.
type Parser struct {
	toks []token.Token
	pos  int
	file string
}

// Parse tokenizes src and parses it into a Program.
func Parse(src, file string) (*ast.Program, error) {
	toks, err := lexer.Tokenize(src, file)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks, file: file}
	return p.parseProgram()
}

func (p *Parser) cur() token.Token  { return p.toks[p.pos] }
func (p *Parser) peekAt(n int) token.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}
func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) is(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) errf(format string, args ...any) error {
	return diag.NewError(p.cur().Pos, diag.ErrSyntax, format, args...)
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if !p.is(k) {
		return token.Token{}, p.errf("expected %v, got %v %q", k, p.cur().Kind, p.cur().Literal)
	}
	return p.advance(), nil
}

// ---- top level ----

func (p *Parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{Pos: p.cur().Pos}
	for p.is(token.KwImport) {
		imp, err := p.parseImport()
		if err != nil {
			return nil, err
		}
		prog.Imports = append(prog.Imports, imp)
	}
	for !p.is(token.EOF) {
		decl, err := p.parseTopDecl()
		if err != nil {
			return nil, err
		}
		prog.Body = append(prog.Body, decl)
	}
	return prog, nil
}

func (p *Parser) parseImport() (*ast.Import, error) {
	pos := p.cur().Pos
	if _, err := p.expect(token.KwImport); err != nil {
		return nil, err
	}
	imp := &ast.Import{Pos: pos}
	if p.is(token.Star) {
		p.advance()
		if _, err := p.expect(token.KwAs); err != nil {
			return nil, err
		}
		alias, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		imp.Namespace = true
		imp.Alias = alias.Literal
	} else if _, err := p.expect(token.LBrace); err == nil {
		for !p.is(token.RBrace) {
			name, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			alias := ""
			if p.is(token.KwAs) {
				p.advance()
				at, err := p.expect(token.Ident)
				if err != nil {
					return nil, err
				}
				alias = at.Literal
			}
			imp.Names = append(imp.Names, name.Literal)
			imp.Aliases = append(imp.Aliases, alias)
			if p.is(token.Comma) {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(token.RBrace); err != nil {
			return nil, err
		}
	} else {
		return nil, err
	}
	if _, err := p.expect(token.KwFrom); err != nil {
		return nil, err
	}
	path, err := p.expect(token.String)
	if err != nil {
		return nil, err
	}
	imp.Path = path.Literal
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return imp, nil
}

func (p *Parser) parseTopDecl() (ast.Decl, error) {
	exported := false
	if p.is(token.KwExport) {
		p.advance()
		exported = true
	}
	switch p.cur().Kind {
	case token.KwFn:
		return p.parseFnDecl(exported)
	case token.KwConst:
		return p.parseConstDecl(exported)
	default:
		return nil, p.errf("expected top-level declaration, got %v", p.cur().Kind)
	}
}

func (p *Parser) parseFnDecl(exported bool) (*ast.FnDecl, error) {
	pos := p.cur().Pos
	if _, err := p.expect(token.KwFn); err != nil {
		return nil, err
	}
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	retType := ""
	if p.is(token.Arrow) {
		p.advance()
		t, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		retType = t.Literal
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FnDecl{Export: exported, Name: name.Literal, Params: params, ReturnType: retType, Body: body, Pos: pos}, nil
}

func (p *Parser) parseParamList() ([]ast.Param, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var params []ast.Param
	for !p.is(token.RParen) {
		name, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		param := ast.Param{Name: name.Literal}
		if p.is(token.Assign) {
			p.advance()
			def, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			param.Default = def
		}
		params = append(params, param)
		if p.is(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseConstDecl(exported bool) (*ast.ConstDecl, error) {
	pos := p.cur().Pos
	if _, err := p.expect(token.KwConst); err != nil {
		return nil, err
	}
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Assign); err != nil {
		return nil, err
	}
	val, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return &ast.ConstDecl{Export: exported, Name: name.Literal, Value: val, Pos: pos}, nil
}

// ---- blocks & statements ----

func (p *Parser) parseBlock() (*ast.Block, error) {
	pos := p.cur().Pos
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	block := &ast.Block{Pos: pos}
	for !p.is(token.RBrace) {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		block.Stmts = append(block.Stmts, stmt)
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return block, nil
}

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.cur().Kind {
	case token.KwConst:
		return p.parseConstDecl(false)
	case token.KwLet:
		return p.parseLetDecl()
	case token.KwIf:
		return p.parseIf()
	case token.KwFor:
		return p.parseFor()
	case token.KwReturn:
		return p.parseReturn()
	default:
		return p.parseExprOrAssignStmt()
	}
}

func (p *Parser) parseLetDecl() (*ast.LetDecl, error) {
	pos := p.cur().Pos
	p.advance()
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Assign); err != nil {
		return nil, err
	}
	val, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return &ast.LetDecl{Name: name.Literal, Value: val, Pos: pos}, nil
}

func (p *Parser) parseIf() (*ast.If, error) {
	pos := p.cur().Pos
	p.advance()
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	ifs := &ast.If{Cond: cond, Then: then, Pos: pos}
	if p.is(token.KwElse) {
		p.advance()
		if p.is(token.KwIf) {
			elseIf, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			ifs.Else = elseIf
		} else {
			elseBlock, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			ifs.Else = elseBlock
		}
	}
	return ifs, nil
}

func (p *Parser) parseFor() (*ast.For, error) {
	pos := p.cur().Pos
	p.advance()
	name, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.KwIn); err != nil {
		return nil, err
	}
	iter, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.For{Name: name.Literal, Iter: iter, Body: body, Pos: pos}, nil
}

func (p *Parser) parseReturn() (*ast.Return, error) {
	pos := p.cur().Pos
	p.advance()
	if p.is(token.Semi) {
		p.advance()
		return &ast.Return{Pos: pos}, nil
	}
	val, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return &ast.Return{Value: val, Pos: pos}, nil
}

// parseExprOrAssignStmt disambiguates `expr;` from `target = expr;` by
// parsing one expression and checking for a following `=`.
func (p *Parser) parseExprOrAssignStmt() (ast.Stmt, error) {
	pos := p.cur().Pos
	e, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if p.is(token.Assign) {
		p.advance()
		val, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Semi); err != nil {
			return nil, err
		}
		return &ast.Assign{Target: e, Value: val, Pos: pos}, nil
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Expr: e, Pos: pos}, nil
}

// ---- expressions: precedence climbing ----
//
// Binding power table, loosest to tightest (spec.md §4.5.2):
//   0  ??
//   1  ||
//   2  &&
//   3  == !=
//   4  < <= > >=
//   5  .. ..=        (non-associative)
//   6  + -
//   7  * / %
//   8  unary ! -
//   9  postfix call/index/member (handled outside the table)

var binPrec = map[token.Kind]int{
	token.Coalesce: 0,
	token.OrOr:     1,
	token.AndAnd:   2,
	token.EqEq:     3, token.NotEq: 3,
	token.Lt: 4, token.LtEq: 4, token.Gt: 4, token.GtEq: 4,
	token.DotDot: 5, token.DotDotEq: 5,
	token.Plus: 6, token.Minus: 6,
	token.Star: 7, token.Slash: 7, token.Percent: 7,
}

const rangePrec = 5

func (p *Parser) parseExpr(minPrec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op := p.cur().Kind
		prec, ok := binPrec[op]
		if !ok || prec < minPrec {
			return left, nil
		}
		pos := p.cur().Pos
		p.advance()
		if prec == rangePrec {
			right, err := p.parseExpr(prec + 1)
			if err != nil {
				return nil, err
			}
			left = &ast.RangeExpr{From: left, To: right, Inclusive: op == token.DotDotEq, Pos: pos}
			if p.is(token.DotDot) || p.is(token.DotDotEq) {
				return nil, p.errf("range operators are non-associative")
			}
			continue
		}
		right, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Op: op, Left: left, Right: right, Pos: pos}
	}
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.is(token.Not) || p.is(token.Minus) {
		pos := p.cur().Pos
		op := p.advance().Kind
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: op, Operand: operand, Pos: pos}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().Kind {
		case token.LParen:
			pos := p.cur().Pos
			args, err := p.parseCallArgs()
			if err != nil {
				return nil, err
			}
			expr = &ast.CallExpr{Callee: expr, Args: args, Pos: pos}
		case token.LBracket:
			pos := p.cur().Pos
			p.advance()
			idx, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBracket); err != nil {
				return nil, err
			}
			expr = &ast.IndexExpr{Target: expr, Index: idx, Pos: pos}
		case token.Dot:
			pos := p.cur().Pos
			p.advance()
			name, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			expr = &ast.MemberExpr{Target: expr, Name: name.Literal, Pos: pos}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parseCallArgs() ([]ast.CallArg, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var args []ast.CallArg
	for !p.is(token.RParen) {
		name := ""
		k := p.cur().Kind
		if (k == token.Ident || (k >= token.KwFn && k <= token.KwKind)) && p.peekAt(1).Kind == token.Colon {
			name = p.advance().Literal
			p.advance() // colon
		}
		val, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		args = append(args, ast.CallArg{Name: name, Value: val})
		if p.is(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Kind {
	case token.KwNull:
		p.advance()
		return &ast.NullLit{Pos: tok.Pos}, nil
	case token.KwTrue:
		p.advance()
		return &ast.BoolLit{Value: true, Pos: tok.Pos}, nil
	case token.KwFalse:
		p.advance()
		return &ast.BoolLit{Value: false, Pos: tok.Pos}, nil
	case token.Int:
		p.advance()
		return parseIntLit(tok)
	case token.Float:
		p.advance()
		return parseFloatLit(tok)
	case token.String:
		p.advance()
		return &ast.StringLit{Value: tok.Literal, Pos: tok.Pos}, nil
	case token.PitchLit:
		p.advance()
		return &ast.PitchLit{Literal: tok.Literal, Pos: tok.Pos}, nil
	case token.DurationLit:
		p.advance()
		return parseDurationLit(tok)
	case token.PosRefLit:
		p.advance()
		return parsePosRefLit(tok)
	case token.TempoLit:
		p.advance()
		return parseTempoLit(tok)
	case token.Ident:
		p.advance()
		return &ast.Ident{Name: tok.Literal, Pos: tok.Pos}, nil
	case token.LParen:
		p.advance()
		inner, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return inner, nil
	case token.LBracket:
		return p.parseArrayLit()
	case token.LBrace:
		return p.parseObjectLit()
	case token.KwFn:
		return p.parseFnExpr()
	case token.KwMatch:
		return p.parseMatchExpr()
	case token.KwScore:
		return p.parseScoreExpr()
	case token.KwClip:
		return p.parseClipExpr()
	default:
		return nil, p.errf("unexpected token %v %q in expression", tok.Kind, tok.Literal)
	}
}

func (p *Parser) parseArrayLit() (*ast.ArrayLit, error) {
	pos := p.cur().Pos
	p.advance()
	arr := &ast.ArrayLit{Pos: pos}
	for !p.is(token.RBracket) {
		e, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		arr.Elems = append(arr.Elems, e)
		if p.is(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RBracket); err != nil {
		return nil, err
	}
	return arr, nil
}

func (p *Parser) parseObjectLit() (*ast.ObjectLit, error) {
	pos := p.cur().Pos
	p.advance()
	obj := &ast.ObjectLit{Pos: pos}
	for !p.is(token.RBrace) {
		key, err := p.parseObjectKey()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Colon); err != nil {
			return nil, err
		}
		val, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		obj.Fields = append(obj.Fields, ast.ObjectField{Key: key, Value: val})
		if p.is(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return obj, nil
}

func (p *Parser) parseObjectKey() (string, error) {
	if p.is(token.String) {
		return p.advance().Literal, nil
	}
	if p.is(token.Ident) {
		return p.advance().Literal, nil
	}
	return "", p.errf("expected object key, got %v", p.cur().Kind)
}

func (p *Parser) parseFnExpr() (*ast.FnExpr, error) {
	pos := p.cur().Pos
	p.advance()
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FnExpr{Params: params, Body: body, Pos: pos}, nil
}

func (p *Parser) parseMatchExpr() (*ast.MatchExpr, error) {
	pos := p.cur().Pos
	p.advance()
	subject, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	m := &ast.MatchExpr{Subject: subject, Pos: pos}
	for !p.is(token.RBrace) {
		arm := ast.MatchArm{}
		if p.is(token.Ident) && p.cur().Literal == "_" {
			p.advance()
			arm.Default = true
		} else {
			pat, err := p.parseExpr(0)
			if err != nil {
				return nil, err
			}
			arm.Pattern = pat
		}
		if _, err := p.expect(token.Arrow); err != nil {
			return nil, err
		}
		val, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		arm.Value = val
		m.Arms = append(m.Arms, arm)
		if p.is(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return m, nil
}

// ---- score/clip literals ----
//
// "note", "chord", "rest", "at", "breath", "hit", "cc", "automation",
// "marker", and "with" are not reserved words (spec.md §4.1 lists the full
// hard keyword set and none of these appear in it); they are recognized
// contextually by identifier text only where a ScoreItem or ClipStmt is
// expected, so they remain ordinary identifiers everywhere else.

func (p *Parser) parseScoreExpr() (*ast.ScoreExpr, error) {
	pos := p.cur().Pos
	p.advance()
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	sc := &ast.ScoreExpr{Pos: pos}
	for !p.is(token.RBrace) {
		field, err := p.parseScoreField()
		if err != nil {
			return nil, err
		}
		sc.Fields = append(sc.Fields, field)
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return sc, nil
}

func (p *Parser) parseScoreField() (ast.ScoreField, error) {
	pos := p.cur().Pos
	switch {
	case p.is(token.KwMeta):
		p.advance()
		obj, err := p.parseObjectLit()
		if err != nil {
			return nil, err
		}
		return &ast.MetaField{Entries: obj.Fields, Pos: pos}, nil
	case p.is(token.KwTempo):
		return p.parseTempoField()
	case p.is(token.KwMeter):
		return p.parseMeterField()
	case p.is(token.KwSound):
		return p.parseSoundField()
	case p.is(token.KwTrack):
		return p.parseTrackField()
	case p.isKeywordIdent("marker"):
		return p.parseMarkerStmt(true)
	default:
		return nil, p.errf("expected score field (meta/tempo/meter/sound/track/marker), got %v", p.cur().Kind)
	}
}

func (p *Parser) parseTempoField() (*ast.TempoField, error) {
	pos := p.cur().Pos
	p.advance()
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	tf := &ast.TempoField{Pos: pos}
	for !p.is(token.RBrace) {
		entryPos := p.cur().Pos
		at, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Arrow); err != nil {
			return nil, err
		}
		bpm, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		var unit ast.Expr
		if !p.is(token.Semi) {
			unit, err = p.parseExpr(0)
			if err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(token.Semi); err != nil {
			return nil, err
		}
		tf.Entries = append(tf.Entries, ast.TempoEntry{At: at, BPM: bpm, Unit: unit, Pos: entryPos})
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return tf, nil
}

func (p *Parser) parseMeterField() (*ast.MeterField, error) {
	pos := p.cur().Pos
	p.advance()
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	mf := &ast.MeterField{Pos: pos}
	for !p.is(token.RBrace) {
		entryPos := p.cur().Pos
		at, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Arrow); err != nil {
			return nil, err
		}
		ratio, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Semi); err != nil {
			return nil, err
		}
		mf.Entries = append(mf.Entries, ast.MeterEntry{At: at, Ratio: ratio, Pos: entryPos})
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return mf, nil
}

func (p *Parser) parseSoundField() (*ast.SoundField, error) {
	pos := p.cur().Pos
	p.advance()
	name, err := p.parseNameLike()
	if err != nil {
		return nil, err
	}
	kind := ""
	if p.is(token.KwKind) {
		p.advance()
		k, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		kind = k.Literal
	}
	var body []ast.ObjectField
	if p.is(token.LBrace) {
		obj, err := p.parseObjectLit()
		if err != nil {
			return nil, err
		}
		body = obj.Fields
	}
	if p.is(token.Semi) {
		p.advance()
	}
	return &ast.SoundField{Name: name, Kind: kind, Body: body, Pos: pos}, nil
}

// parseNameLike accepts either a string or bare identifier as a name,
// matching the grammar's use of both forms for sound/track names
// (spec.md §4.5.4 examples use string names; bare identifiers are also
// accepted for ergonomics).
func (p *Parser) parseNameLike() (string, error) {
	if p.is(token.String) || p.is(token.Ident) {
		return p.advance().Literal, nil
	}
	return "", p.errf("expected name (string or identifier), got %v", p.cur().Kind)
}

func (p *Parser) parseTrackField() (*ast.TrackField, error) {
	pos := p.cur().Pos
	p.advance()
	name, err := p.parseNameLike()
	if err != nil {
		return nil, err
	}
	role := ""
	if p.is(token.KwRole) {
		p.advance()
		r, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		role = r.Literal
	}
	sound := ""
	if p.is(token.KwSound) {
		p.advance()
		s, err := p.parseNameLike()
		if err != nil {
			return nil, err
		}
		sound = s
	}
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	tf := &ast.TrackField{Name: name, Role: role, Sound: sound, Pos: pos}
	for !p.is(token.RBrace) {
		stmt, err := p.parseTrackStmt()
		if err != nil {
			return nil, err
		}
		tf.Stmts = append(tf.Stmts, stmt)
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return tf, nil
}

func (p *Parser) parseTrackStmt() (ast.TrackStmt, error) {
	if p.is(token.KwPlace) {
		pos := p.cur().Pos
		p.advance()
		at, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		clip, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Semi); err != nil {
			return nil, err
		}
		return &ast.PlaceStmt{At: at, Clip: clip, Pos: pos}, nil
	}
	stmt, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return &ast.OrdinaryTrackStmt{Stmt: stmt}, nil
}

func (p *Parser) parseClipExpr() (*ast.ClipExpr, error) {
	pos := p.cur().Pos
	p.advance()
	if _, err := p.expect(token.LBrace); err != nil {
		return nil, err
	}
	clip := &ast.ClipExpr{Pos: pos}
	for !p.is(token.RBrace) {
		stmt, err := p.parseClipStmt()
		if err != nil {
			return nil, err
		}
		clip.Stmts = append(clip.Stmts, stmt)
	}
	if _, err := p.expect(token.RBrace); err != nil {
		return nil, err
	}
	return clip, nil
}

func (p *Parser) parseClipStmt() (ast.ClipStmt, error) {
	switch {
	case p.isKeywordIdent("note"):
		return p.parseNoteStmt()
	case p.isKeywordIdent("chord"):
		return p.parseChordStmt()
	case p.isKeywordIdent("rest"):
		return p.parseRestStmt()
	case p.isKeywordIdent("at"):
		return p.parseAtStmt()
	case p.isKeywordIdent("breath"):
		return p.parseBreathStmt()
	case p.isKeywordIdent("hit"):
		return p.parseHitStmt()
	case p.isKeywordIdent("cc"):
		return p.parseCCStmt()
	case p.isKeywordIdent("automation"):
		return p.parseAutomationStmt()
	case p.isKeywordIdent("marker"):
		return p.parseMarkerStmt(false)
	default:
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		return &ast.OrdinaryClipStmt{Stmt: stmt}, nil
	}
}

// isKeywordIdent checks for a soft keyword: an identifier token whose text
// matches name.
func (p *Parser) isKeywordIdent(name string) bool {
	return p.is(token.Ident) && p.cur().Literal == name
}

func (p *Parser) parseNoteStmt() (*ast.NoteStmt, error) {
	pos := p.cur().Pos
	p.advance()
	pitch, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	dur, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	n := &ast.NoteStmt{Pitch: pitch, Duration: dur, Pos: pos}
	if p.isKeywordIdent("with") {
		p.advance()
		obj, err := p.parseObjectLit()
		if err != nil {
			return nil, err
		}
		n.With = obj
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return n, nil
}

func (p *Parser) parseChordStmt() (*ast.ChordStmt, error) {
	pos := p.cur().Pos
	p.advance()
	arr, err := p.parseArrayLit()
	if err != nil {
		return nil, err
	}
	dur, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	c := &ast.ChordStmt{Pitches: arr.Elems, Duration: dur, Pos: pos}
	if p.isKeywordIdent("with") {
		p.advance()
		obj, err := p.parseObjectLit()
		if err != nil {
			return nil, err
		}
		c.With = obj
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *Parser) parseRestStmt() (*ast.RestStmt, error) {
	pos := p.cur().Pos
	p.advance()
	dur, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return &ast.RestStmt{Duration: dur, Pos: pos}, nil
}

// parseAtStmt parses `at <posExpr>;` — sets the cursor, no body (spec.md
// §4.5.3: "at <pos>: sets cursor").
func (p *Parser) parseAtStmt() (*ast.AtStmt, error) {
	pos := p.cur().Pos
	p.advance()
	at, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return &ast.AtStmt{At: at, Pos: pos}, nil
}

func (p *Parser) parseBreathStmt() (*ast.BreathStmt, error) {
	pos := p.cur().Pos
	p.advance()
	dur, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	b := &ast.BreathStmt{Duration: dur, Pos: pos}
	if !p.is(token.Semi) {
		intensity, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		b.Intensity = intensity
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return b, nil
}

func (p *Parser) parseHitStmt() (*ast.HitStmt, error) {
	pos := p.cur().Pos
	p.advance()
	key, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	dur, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	h := &ast.HitStmt{Key: key, Duration: dur, Pos: pos}
	if p.isKeywordIdent("with") {
		p.advance()
		obj, err := p.parseObjectLit()
		if err != nil {
			return nil, err
		}
		h.With = obj
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return h, nil
}

func (p *Parser) parseCCStmt() (*ast.CCStmt, error) {
	pos := p.cur().Pos
	p.advance()
	kind, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	data, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return &ast.CCStmt{Kind: kind, Data: data, Pos: pos}, nil
}

func (p *Parser) parseAutomationStmt() (*ast.AutomationStmt, error) {
	pos := p.cur().Pos
	p.advance()
	param, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	start, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	end, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	curve, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return &ast.AutomationStmt{Param: param, Start: start, End: end, Curve: curve, Pos: pos}, nil
}

// parseMarkerStmt parses `marker [<posExpr>] <kindExpr> <labelExpr>;`. At
// score level the position is required; inside a clip it is implicit (the
// current cursor), matching MarkerStmt's dual use as both a ScoreField and
// a ClipStmt.
func (p *Parser) parseMarkerStmt(scoreLevel bool) (*ast.MarkerStmt, error) {
	pos := p.cur().Pos
	p.advance()
	m := &ast.MarkerStmt{Pos: pos}
	if scoreLevel {
		at, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		m.At = at
	}
	kind, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	label, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	m.Kind = kind
	m.Label = label
	if _, err := p.expect(token.Semi); err != nil {
		return nil, err
	}
	return m, nil
}

// ---- literal conversions ----

func parseIntLit(tok token.Token) (*ast.IntLit, error) {
	var v int64
	if _, err := fmt.Sscanf(tok.Literal, "%d", &v); err != nil {
		return nil, diag.NewError(tok.Pos, diag.ErrSyntax, "invalid integer literal %q", tok.Literal)
	}
	return &ast.IntLit{Value: v, Pos: tok.Pos}, nil
}

func parseFloatLit(tok token.Token) (*ast.FloatLit, error) {
	var v float64
	if _, err := fmt.Sscanf(tok.Literal, "%g", &v); err != nil {
		return nil, diag.NewError(tok.Pos, diag.ErrSyntax, "invalid float literal %q", tok.Literal)
	}
	return &ast.FloatLit{Value: v, Pos: tok.Pos}, nil
}

// parseDurationLit expects the lexer's canonical "n/d" or "n/d." literal
// text and splits dots from the denominator digits.
func parseDurationLit(tok token.Token) (*ast.DurationLit, error) {
	lit := tok.Literal
	dots := 0
	for len(lit) > 0 && lit[len(lit)-1] == '.' {
		dots++
		lit = lit[:len(lit)-1]
	}
	var num, den int64
	n, err := fmt.Sscanf(lit, "%d/%d", &num, &den)
	if n != 2 || err != nil {
		return nil, diag.NewError(tok.Pos, diag.ErrSyntax, "invalid duration literal %q", tok.Literal)
	}
	return &ast.DurationLit{Num: num, Den: den, Dots: dots, Pos: tok.Pos}, nil
}

func parsePosRefLit(tok token.Token) (*ast.PosRefLit, error) {
	var bar, beat, sub int
	n, _ := fmt.Sscanf(tok.Literal, "%d:%d:%d", &bar, &beat, &sub)
	if n == 3 {
		return &ast.PosRefLit{Bar: bar, Beat: beat, Sub: sub, HasSub: true, Pos: tok.Pos}, nil
	}
	n, err := fmt.Sscanf(tok.Literal, "%d:%d", &bar, &beat)
	if n != 2 || err != nil {
		return nil, diag.NewError(tok.Pos, diag.ErrSyntax, "invalid position reference %q", tok.Literal)
	}
	return &ast.PosRefLit{Bar: bar, Beat: beat, Pos: tok.Pos}, nil
}

func parseTempoLit(tok token.Token) (*ast.TempoLit, error) {
	var bpm float64
	if _, err := fmt.Sscanf(tok.Literal, "%gbpm", &bpm); err != nil {
		return nil, diag.NewError(tok.Pos, diag.ErrSyntax, "invalid tempo literal %q", tok.Literal)
	}
	return &ast.TempoLit{BPM: bpm, Pos: tok.Pos}, nil
}
