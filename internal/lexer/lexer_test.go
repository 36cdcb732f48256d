package lexer

import (
	"testing"

	"github.com/tako-lang/tako/internal/token"
)

func kinds(t *testing.T, src string) []token.Kind {
	t.Helper()
	toks, err := Tokenize(src, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var ks []token.Kind
	for _, tok := range toks {
		ks = append(ks, tok.Kind)
	}
	return ks
}

func TestNumericLiteralDisambiguation(t *testing.T) {
	cases := []struct {
		src  string
		kind token.Kind
	}{
		{"1:1", token.PosRefLit},
		{"1:1:2", token.PosRefLit},
		{"1/4", token.DurationLit},
		{"1/4.", token.DurationLit},
		{"1.5", token.Float},
		{"42", token.Int},
		{"120bpm", token.TempoLit},
		{"120.5bpm", token.TempoLit},
	}
	for _, c := range cases {
		toks, err := Tokenize(c.src, "")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", c.src, err)
		}
		if len(toks) < 2 || toks[0].Kind != c.kind {
			t.Fatalf("%s: want first token %v, got %v", c.src, c.kind, toks[0].Kind)
		}
	}
}

func TestPitchLexingWithBacktrack(t *testing.T) {
	toks, err := Tokenize("C4", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Kind != token.PitchLit || toks[0].Literal != "C4" {
		t.Fatalf("want pitch literal C4, got %v %q", toks[0].Kind, toks[0].Literal)
	}
}

func TestPitchFollowedByIdentCharBacktracksToIdent(t *testing.T) {
	toks, err := Tokenize("C4foo", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Kind != token.Ident || toks[0].Literal != "C4foo" {
		t.Fatalf("want identifier C4foo, got %v %q", toks[0].Kind, toks[0].Literal)
	}
}

func TestPitchWithAccidentals(t *testing.T) {
	for _, lit := range []string{"C#4", "Db3", "Bbb2", "Cx5", "C-1"} {
		toks, err := Tokenize(lit, "")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", lit, err)
		}
		if toks[0].Kind != token.PitchLit || toks[0].Literal != lit {
			t.Fatalf("%s: want pitch literal, got %v %q", lit, toks[0].Kind, toks[0].Literal)
		}
	}
}

func TestStringEscapes(t *testing.T) {
	toks, err := Tokenize(`"a\nb\t\"c\""`, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Kind != token.String {
		t.Fatalf("want string, got %v", toks[0].Kind)
	}
	if toks[0].Literal != "a\nb\t\"c\"" {
		t.Fatalf("escape decode mismatch: %q", toks[0].Literal)
	}
}

func TestUnterminatedStringFails(t *testing.T) {
	if _, err := Tokenize(`"unterminated`, ""); err == nil {
		t.Fatal("expected error for unterminated string")
	}
}

func TestCommentsAreSkipped(t *testing.T) {
	src := "// line comment\nlet x = 1; /* block */ let y = 2;"
	toks, err := Tokenize(src, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks[0].Kind != token.KwLet {
		t.Fatalf("want let as first token, got %v", toks[0].Kind)
	}
}

func TestUnterminatedBlockCommentFails(t *testing.T) {
	if _, err := Tokenize("/* oops", ""); err == nil {
		t.Fatal("expected error for unterminated block comment")
	}
}

func TestOperatorsAndKeywords(t *testing.T) {
	src := "fn main() -> Score { return score {}; }"
	ks := kinds(t, src)
	want := []token.Kind{
		token.KwFn, token.Ident, token.LParen, token.RParen, token.Arrow, token.Ident,
		token.LBrace, token.KwReturn, token.KwScore, token.LBrace, token.RBrace, token.Semi,
		token.RBrace, token.EOF,
	}
	if len(ks) != len(want) {
		t.Fatalf("want %d tokens, got %d: %v", len(want), len(ks), ks)
	}
	for i := range want {
		if ks[i] != want[i] {
			t.Fatalf("token %d: want %v, got %v", i, want[i], ks[i])
		}
	}
}

func TestCompoundOperators(t *testing.T) {
	ks := kinds(t, "a ?? b && c || d == e != f <= g >= h .. i ..= j")
	found := map[token.Kind]bool{}
	for _, k := range ks {
		found[k] = true
	}
	for _, want := range []token.Kind{token.Coalesce, token.AndAnd, token.OrOr, token.EqEq, token.NotEq, token.LtEq, token.GtEq, token.DotDot, token.DotDotEq} {
		if !found[want] {
			t.Fatalf("expected to find token %v in %v", want, ks)
		}
	}
}

func TestPositionTracking(t *testing.T) {
	toks, err := Tokenize("let\nx = 1;", "f.mf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// "x" is on line 2, column 1
	if toks[1].Pos.Line != 2 || toks[1].Pos.Column != 1 {
		t.Fatalf("want line 2 col 1, got %+v", toks[1].Pos)
	}
	if toks[1].Pos.File != "f.mf" {
		t.Fatalf("want file f.mf, got %q", toks[1].Pos.File)
	}
}
