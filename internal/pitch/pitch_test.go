package pitch

import "testing"

func TestParseC4IsMIDI60(t *testing.T) {
	p, err := Parse("C4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.MIDI != 60 {
		t.Fatalf("want MIDI 60, got %d", p.MIDI)
	}
}

func TestParseSharpFlatDoubleAccidentals(t *testing.T) {
	cases := map[string]int{
		"C#4": 61,
		"Db4": 61,
		"Cx4": 62,
		"Dbb4": 60,
		"C-1": 0,
	}
	for literal, want := range cases {
		p, err := Parse(literal)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", literal, err)
		}
		if p.MIDI != want {
			t.Fatalf("%s: want MIDI %d, got %d", literal, want, p.MIDI)
		}
	}
}

func TestParseRejectsOutOfRange(t *testing.T) {
	if _, err := Parse("C10"); err == nil {
		t.Fatal("expected error for out-of-range pitch")
	}
}

func TestFormatRoundTrip(t *testing.T) {
	p, err := Parse("C#4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := Format(p); got != "C#4" {
		t.Fatalf("want C#4, got %s", got)
	}
}

func TestTranspose(t *testing.T) {
	p, _ := Parse("C4")
	up := p.Transpose(12)
	if up.MIDI != 72 {
		t.Fatalf("want MIDI 72, got %d", up.MIDI)
	}
}
