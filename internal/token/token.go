// Package token defines the lexer's output alphabet: token kinds and
// source positions (spec.md §4.1).
package token

import "fmt"

// Kind enumerates every token category the lexer produces.
type Kind int

const (
	EOF Kind = iota
	Illegal

	Ident
	Int
	Float
	String
	PitchLit
	DurationLit
	PosRefLit
	TempoLit

	// Keywords
	KwFn
	KwConst
	KwLet
	KwIf
	KwElse
	KwFor
	KwIn
	KwReturn
	KwMatch
	KwImport
	KwExport
	KwFrom
	KwAs
	KwTrue
	KwFalse
	KwNull
	KwScore
	KwClip
	KwTrack
	KwSound
	KwMeta
	KwTempo
	KwMeter
	KwPlace
	KwRole
	KwKind

	// Operators
	Plus
	Minus
	Star
	Slash
	Percent
	EqEq
	NotEq
	Lt
	LtEq
	Gt
	GtEq
	AndAnd
	OrOr
	Not
	Coalesce // ??
	DotDot   // ..
	DotDotEq // ..=
	Arrow    // ->
	Assign
	Dot
	Comma
	Semi
	Colon
	At

	// Delimiters
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
)

var keywords = map[string]Kind{
	"fn":     KwFn,
	"const":  KwConst,
	"let":    KwLet,
	"if":     KwIf,
	"else":   KwElse,
	"for":    KwFor,
	"in":     KwIn,
	"return": KwReturn,
	"match":  KwMatch,
	"import": KwImport,
	"export": KwExport,
	"from":   KwFrom,
	"as":     KwAs,
	"true":   KwTrue,
	"false":  KwFalse,
	"null":   KwNull,
	"score":  KwScore,
	"clip":   KwClip,
	"track":  KwTrack,
	"sound":  KwSound,
	"meta":   KwMeta,
	"tempo":  KwTempo,
	"meter":  KwMeter,
	"place":  KwPlace,
	"role":   KwRole,
	"kind":   KwKind,
}

// LookupIdent returns the keyword Kind for s, or Ident if s is not a
// reserved word.
func LookupIdent(s string) Kind {
	if k, ok := keywords[s]; ok {
		return k
	}
	return Ident
}

// Position carries a token's location: line/column for diagnostics plus an
// absolute byte offset (spec.md §4.1).
type Position struct {
	File   string
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}

// Token is one lexical unit: its kind, literal text, and source position.
type Token struct {
	Kind    Kind
	Literal string
	Pos     Position
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "UNKNOWN"
}

var kindNames = map[Kind]string{
	EOF: "EOF", Illegal: "ILLEGAL",
	Ident: "IDENT", Int: "INT", Float: "FLOAT", String: "STRING",
	PitchLit: "PITCH", DurationLit: "DURATION", PosRefLit: "POSREF", TempoLit: "TEMPO",
	KwFn: "fn", KwConst: "const", KwLet: "let", KwIf: "if", KwElse: "else",
	KwFor: "for", KwIn: "in", KwReturn: "return", KwMatch: "match",
	KwImport: "import", KwExport: "export", KwFrom: "from", KwAs: "as",
	KwTrue: "true", KwFalse: "false", KwNull: "null",
	KwScore: "score", KwClip: "clip", KwTrack: "track", KwSound: "sound",
	KwMeta: "meta", KwTempo: "tempo", KwMeter: "meter", KwPlace: "place",
	KwRole: "role", KwKind: "kind",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%",
	EqEq: "==", NotEq: "!=", Lt: "<", LtEq: "<=", Gt: ">", GtEq: ">=",
	AndAnd: "&&", OrOr: "||", Not: "!", Coalesce: "??",
	DotDot: "..", DotDotEq: "..=", Arrow: "->", Assign: "=",
	Dot: ".", Comma: ",", Semi: ";", Colon: ":", At: "@",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}",
	LBracket: "[", RBracket: "]",
}
