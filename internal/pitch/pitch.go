// Package pitch models a musical pitch as a MIDI integer with a cents
// deviation, and parses pitch literals like "C#4" (spec.md §3.2).
package pitch

import (
	"fmt"
	"strconv"
	"strings"
)

// Pitch is a MIDI note number (0-127) with an optional fine-tuning offset
// in cents (1/100 of a semitone).
type Pitch struct {
	MIDI  int
	Cents float64
}

// letterSemitone maps a natural note letter to its semitone within an
// octave, using the standard C-major fingering (C=0 ... B=11).
var letterSemitone = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// Parse reads a pitch literal of the form LETTER[ACCIDENTAL][OCTAVE], e.g.
// "C4", "F#3", "Bbb2", "Gx5", "C-1". Octave defaults to 4 when absent.
// "C4" must map to MIDI 60 per spec.md §3.2.
func Parse(s string) (Pitch, error) {
	if s == "" {
		return Pitch{}, fmt.Errorf("pitch: empty literal")
	}
	letter := s[0]
	semitone, ok := letterSemitone[letter]
	if !ok {
		return Pitch{}, fmt.Errorf("pitch: invalid note letter %q", string(letter))
	}
	rest := s[1:]

	accidental := 0
	switch {
	case strings.HasPrefix(rest, "##"):
		accidental = 2
		rest = rest[2:]
	case strings.HasPrefix(rest, "bb"):
		accidental = -2
		rest = rest[2:]
	case strings.HasPrefix(rest, "x"):
		accidental = 2
		rest = rest[1:]
	case strings.HasPrefix(rest, "#"):
		accidental = 1
		rest = rest[1:]
	case strings.HasPrefix(rest, "b"):
		accidental = -1
		rest = rest[1:]
	}

	octave := 4
	if rest != "" {
		o, err := strconv.Atoi(rest)
		if err != nil {
			return Pitch{}, fmt.Errorf("pitch: invalid octave %q in %q", rest, s)
		}
		octave = o
	}

	midi := (octave+1)*12 + semitone + accidental
	if midi < 0 || midi > 127 {
		return Pitch{}, fmt.Errorf("pitch: %q resolves to MIDI %d, outside 0-127", s, midi)
	}

	return Pitch{MIDI: midi}, nil
}

var semitoneLetter = []struct {
	letter rune
	sharp  bool
}{
	{'C', false}, {'C', true}, {'D', false}, {'D', true}, {'E', false},
	{'F', false}, {'F', true}, {'G', false}, {'G', true}, {'A', false},
	{'A', true}, {'B', false},
}

// Format renders a Pitch back to literal form, e.g. MIDI 61 -> "C#4", using
// sharps (never flats) so that Parse(Format(p)).MIDI == p.MIDI round-trips.
func Format(p Pitch) string {
	octave := p.MIDI/12 - 1
	entry := semitoneLetter[p.MIDI%12]
	if entry.sharp {
		return fmt.Sprintf("%c#%d", entry.letter, octave)
	}
	return fmt.Sprintf("%c%d", entry.letter, octave)
}

// Transpose adds an integer semitone offset, clamping is the caller's
// responsibility — Transpose itself does not validate range so that
// chained transpositions can be checked once at the end.
func (p Pitch) Transpose(semitones int) Pitch {
	return Pitch{MIDI: p.MIDI + semitones, Cents: p.Cents}
}

// InRange reports whether MIDI is within the valid 0-127 note range.
func (p Pitch) InRange() bool {
	return p.MIDI >= 0 && p.MIDI <= 127
}

// LooksLikeStart reports whether c could begin a pitch literal. The lexer
// does not call it; it checks for an uppercase A-G itself.
func LooksLikeStart(c byte) bool {
	_, ok := letterSemitone[c]
	return ok
}
