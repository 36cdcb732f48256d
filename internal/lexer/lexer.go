// Package lexer turns DSL source text into a token stream (spec.md §4.1).
package lexer

import (
	"fmt"
	"strings"

	"github.com/tako-lang/tako/internal/token"
)

// Lexer holds the scanning state over one source file.
type Lexer struct {
	src    string
	file   string
	offset int
	line   int
	column int
}

// New creates a Lexer over src, attributing positions to file (used only
// for diagnostics — pass "" for anonymous/in-memory sources).
func New(src, file string) *Lexer {
	return &Lexer{src: src, file: file, line: 1, column: 1}
}

// Tokenize scans the entire source and returns its token stream terminated
// by an EOF token, or the first unrecoverable SyntaxError.
func Tokenize(src, file string) ([]token.Token, error) {
	l := New(src, file)
	var toks []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) pos() token.Position {
	return token.Position{File: l.file, Line: l.line, Column: l.column, Offset: l.offset}
}

func (l *Lexer) atEnd() bool { return l.offset >= len(l.src) }

func (l *Lexer) peek() byte {
	if l.atEnd() {
		return 0
	}
	return l.src[l.offset]
}

func (l *Lexer) peekAt(n int) byte {
	if l.offset+n >= len(l.src) {
		return 0
	}
	return l.src[l.offset+n]
}

func (l *Lexer) advance() byte {
	c := l.src[l.offset]
	l.offset++
	if c == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return c
}

func (l *Lexer) errf(pos token.Position, format string, args ...any) error {
	return fmt.Errorf("%s: syntax error: %s", pos, fmt.Sprintf(format, args...))
}

// Next scans and returns the next token, skipping whitespace and comments.
func (l *Lexer) Next() (token.Token, error) {
	if err := l.skipTrivia(); err != nil {
		return token.Token{}, err
	}
	start := l.pos()
	if l.atEnd() {
		return token.Token{Kind: token.EOF, Pos: start}, nil
	}

	c := l.peek()
	switch {
	case isAlpha(c):
		return l.lexIdentOrPitch(start)
	case isDigit(c):
		return l.lexNumber(start)
	case c == '"':
		return l.lexString(start)
	}

	return l.lexOperator(start)
}

// Note on spec.md §4.1 step 1 ("a digit, or '-' followed by digit begins a
// numeric run"): the lexer is context-free and always tokenizes a leading
// '-' as the Minus operator, letting the parser's unary-expression rule
// combine "- 4" into a negative literal. This avoids the lexer having to
// guess, from punctuation alone, whether a '-' is binary subtraction or a
// literal's sign — the same ambiguity every C-family lexer resolves in the
// parser rather than the scanner.

func (l *Lexer) skipTrivia() error {
	for !l.atEnd() {
		c := l.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.peekAt(1) == '/':
			for !l.atEnd() && l.peek() != '\n' {
				l.advance()
			}
		case c == '/' && l.peekAt(1) == '*':
			startPos := l.pos()
			l.advance()
			l.advance()
			closed := false
			for !l.atEnd() {
				if l.peek() == '*' && l.peekAt(1) == '/' {
					l.advance()
					l.advance()
					closed = true
					break
				}
				l.advance()
			}
			if !closed {
				return l.errf(startPos, "unterminated block comment")
			}
		default:
			return nil
		}
	}
	return nil
}

func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }

// lexIdentOrPitch implements the speculative pitch lexing of spec.md §4.1:
// on an uppercase A-G, try to consume a full pitch literal; if what follows
// immediately is an identifier character, backtrack to plain identifier
// lexing (so "C4foo" lexes as one identifier, not a pitch followed by an
// identifier).
func (l *Lexer) lexIdentOrPitch(start token.Position) (token.Token, error) {
	c := l.peek()
	if c >= 'A' && c <= 'G' {
		save := *l
		if lit, ok := l.tryConsumePitch(); ok {
			if !l.atEnd() && isAlnum(l.peek()) {
				*l = save
			} else {
				return token.Token{Kind: token.PitchLit, Literal: lit, Pos: start}, nil
			}
		} else {
			*l = save
		}
	}
	return l.lexIdent(start)
}

// tryConsumePitch attempts to consume NOTE[accidental][octave] from the
// current position, mutating l. Once the note letter is consumed it always
// returns ok=true; the caller backtracks when an identifier character
// follows the literal.
func (l *Lexer) tryConsumePitch() (string, bool) {
	startOffset := l.offset
	l.advance() // note letter

	for {
		c := l.peek()
		if c == '#' || c == 'b' {
			peekNext := l.peekAt(1)
			if c == 'b' && !(isDigit(peekNext) || peekNext == '-' || peekNext == 'b' || !isAlnum(peekNext)) {
				// ambiguous: "b" alone followed by a letter is likely an
				// identifier continuation (e.g. "Bb" is fine, "Bfoo" isn't a
				// pitch) — only consume if followed by digits/sign/another b
				// or by a character that cannot continue an identifier.
				break
			}
			l.advance()
			continue
		}
		if c == 'x' {
			l.advance()
			continue
		}
		break
	}

	if l.peek() == '-' && isDigit(l.peekAt(1)) {
		l.advance()
	}
	for isDigit(l.peek()) {
		l.advance()
	}

	lit := l.src[startOffset:l.offset]
	if len(lit) < 1 {
		return "", false
	}
	return lit, true
}

func (l *Lexer) lexIdent(start token.Position) (token.Token, error) {
	startOffset := l.offset
	for !l.atEnd() && isAlnum(l.peek()) {
		l.advance()
	}
	lit := l.src[startOffset:l.offset]
	return token.Token{Kind: token.LookupIdent(lit), Literal: lit, Pos: start}, nil
}

// lexNumber implements the ordered numeric-literal disambiguation from
// spec.md §4.1:
//  1. a digit run begins a numeric literal,
//  2. ':' + digits => position reference,
//  3. '/' + digits => duration literal (with optional trailing dots),
//  4. '.' + digit => float,
//  5. else integer,
//  6. a trailing "bpm" suffix on a number produces a tempo literal.
func (l *Lexer) lexNumber(start token.Position) (token.Token, error) {
	startOffset := l.offset
	for !l.atEnd() && isDigit(l.peek()) {
		l.advance()
	}

	if l.peek() == ':' && isDigit(l.peekAt(1)) {
		return l.lexPosRef(start, startOffset)
	}
	if l.peek() == '/' && isDigit(l.peekAt(1)) {
		return l.lexDuration(start, startOffset)
	}
	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		return l.lexFloat(start, startOffset)
	}

	lit := l.src[startOffset:l.offset]
	if bpmLit, ok := l.tryConsumeBPMSuffix(); ok {
		return token.Token{Kind: token.TempoLit, Literal: lit + bpmLit, Pos: start}, nil
	}
	return token.Token{Kind: token.Int, Literal: lit, Pos: start}, nil
}

func (l *Lexer) tryConsumeBPMSuffix() (string, bool) {
	if l.peek() == 'b' && l.peekAt(1) == 'p' && l.peekAt(2) == 'm' {
		l.advance()
		l.advance()
		l.advance()
		return "bpm", true
	}
	return "", false
}

func (l *Lexer) lexPosRef(start token.Position, startOffset int) (token.Token, error) {
	l.advance() // ':'
	for !l.atEnd() && isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == ':' && isDigit(l.peekAt(1)) {
		l.advance()
		for !l.atEnd() && isDigit(l.peek()) {
			l.advance()
		}
	}
	lit := l.src[startOffset:l.offset]
	return token.Token{Kind: token.PosRefLit, Literal: lit, Pos: start}, nil
}

func (l *Lexer) lexDuration(start token.Position, startOffset int) (token.Token, error) {
	l.advance() // '/'
	for !l.atEnd() && isDigit(l.peek()) {
		l.advance()
	}
	// trailing dots mark a dotted note, e.g. "1/4." — stop before ".." (range)
	// or ".5" (which would instead be a malformed float continuation).
	for l.peek() == '.' && l.peekAt(1) != '.' && !isDigit(l.peekAt(1)) {
		l.advance()
	}
	lit := l.src[startOffset:l.offset]
	return token.Token{Kind: token.DurationLit, Literal: lit, Pos: start}, nil
}

func (l *Lexer) lexFloat(start token.Position, startOffset int) (token.Token, error) {
	l.advance() // '.'
	for !l.atEnd() && isDigit(l.peek()) {
		l.advance()
	}
	lit := l.src[startOffset:l.offset]
	if bpmLit, ok := l.tryConsumeBPMSuffix(); ok {
		return token.Token{Kind: token.TempoLit, Literal: lit + bpmLit, Pos: start}, nil
	}
	return token.Token{Kind: token.Float, Literal: lit, Pos: start}, nil
}

func (l *Lexer) lexString(start token.Position) (token.Token, error) {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		if l.atEnd() {
			return token.Token{}, l.errf(start, "unterminated string literal")
		}
		c := l.peek()
		if c == '"' {
			l.advance()
			break
		}
		if c == '\\' {
			l.advance()
			if l.atEnd() {
				return token.Token{}, l.errf(start, "unterminated string literal")
			}
			esc := l.advance()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			default:
				return token.Token{}, l.errf(start, "invalid escape sequence \\%c", esc)
			}
			continue
		}
		sb.WriteByte(l.advance())
	}
	return token.Token{Kind: token.String, Literal: sb.String(), Pos: start}, nil
}

func (l *Lexer) lexOperator(start token.Position) (token.Token, error) {
	c := l.advance()
	two := func(next byte, k token.Kind) (token.Kind, bool) {
		if l.peek() == next {
			l.advance()
			return k, true
		}
		return 0, false
	}

	switch c {
	case '+':
		return token.Token{Kind: token.Plus, Literal: "+", Pos: start}, nil
	case '-':
		if k, ok := two('>', token.Arrow); ok {
			return token.Token{Kind: k, Literal: "->", Pos: start}, nil
		}
		return token.Token{Kind: token.Minus, Literal: "-", Pos: start}, nil
	case '*':
		return token.Token{Kind: token.Star, Literal: "*", Pos: start}, nil
	case '/':
		return token.Token{Kind: token.Slash, Literal: "/", Pos: start}, nil
	case '%':
		return token.Token{Kind: token.Percent, Literal: "%", Pos: start}, nil
	case '=':
		if k, ok := two('=', token.EqEq); ok {
			return token.Token{Kind: k, Literal: "==", Pos: start}, nil
		}
		return token.Token{Kind: token.Assign, Literal: "=", Pos: start}, nil
	case '!':
		if k, ok := two('=', token.NotEq); ok {
			return token.Token{Kind: k, Literal: "!=", Pos: start}, nil
		}
		return token.Token{Kind: token.Not, Literal: "!", Pos: start}, nil
	case '<':
		if k, ok := two('=', token.LtEq); ok {
			return token.Token{Kind: k, Literal: "<=", Pos: start}, nil
		}
		return token.Token{Kind: token.Lt, Literal: "<", Pos: start}, nil
	case '>':
		if k, ok := two('=', token.GtEq); ok {
			return token.Token{Kind: k, Literal: ">=", Pos: start}, nil
		}
		return token.Token{Kind: token.Gt, Literal: ">", Pos: start}, nil
	case '&':
		if k, ok := two('&', token.AndAnd); ok {
			return token.Token{Kind: k, Literal: "&&", Pos: start}, nil
		}
		return token.Token{}, l.errf(start, "unexpected character '&'")
	case '|':
		if k, ok := two('|', token.OrOr); ok {
			return token.Token{Kind: k, Literal: "||", Pos: start}, nil
		}
		return token.Token{}, l.errf(start, "unexpected character '|'")
	case '?':
		if k, ok := two('?', token.Coalesce); ok {
			return token.Token{Kind: k, Literal: "??", Pos: start}, nil
		}
		return token.Token{}, l.errf(start, "unexpected character '?'")
	case '.':
		if l.peek() == '.' {
			l.advance()
			if l.peek() == '=' {
				l.advance()
				return token.Token{Kind: token.DotDotEq, Literal: "..=", Pos: start}, nil
			}
			return token.Token{Kind: token.DotDot, Literal: "..", Pos: start}, nil
		}
		return token.Token{Kind: token.Dot, Literal: ".", Pos: start}, nil
	case ',':
		return token.Token{Kind: token.Comma, Literal: ",", Pos: start}, nil
	case ';':
		return token.Token{Kind: token.Semi, Literal: ";", Pos: start}, nil
	case ':':
		return token.Token{Kind: token.Colon, Literal: ":", Pos: start}, nil
	case '@':
		return token.Token{Kind: token.At, Literal: "@", Pos: start}, nil
	case '(':
		return token.Token{Kind: token.LParen, Literal: "(", Pos: start}, nil
	case ')':
		return token.Token{Kind: token.RParen, Literal: ")", Pos: start}, nil
	case '{':
		return token.Token{Kind: token.LBrace, Literal: "{", Pos: start}, nil
	case '}':
		return token.Token{Kind: token.RBrace, Literal: "}", Pos: start}, nil
	case '[':
		return token.Token{Kind: token.LBracket, Literal: "[", Pos: start}, nil
	case ']':
		return token.Token{Kind: token.RBracket, Literal: "]", Pos: start}, nil
	}

	return token.Token{}, l.errf(start, "unexpected character %q", string(c))
}
