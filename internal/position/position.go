// Package position implements the three-variant symbolic Pos used for
// durations and score-relative timing (spec.md §3.3). A position never
// loses symbolic bar/beat information until the IR normalizer resolves it
// against the meter map.
package position

import (
	"fmt"

	"github.com/tako-lang/tako/internal/rational"
)

// Kind discriminates the Pos variants.
type Kind int

const (
	// KindRat is a rational offset in whole notes from score origin.
	KindRat Kind = iota
	// KindRef is a symbolic bar:beat reference.
	KindRef
	// KindExpr is a PosRef plus a rational delta.
	KindExpr
)

// Pos is a tagged union over Rat, PosRef ("bar:beat"), and PosExpr
// (PosRef + rational offset).
type Pos struct {
	Kind Kind

	Rat rational.Rat // valid when Kind == KindRat

	Bar  int          // valid when Kind == KindRef or KindExpr
	Beat int          // valid when Kind == KindRef or KindExpr
	Off  rational.Rat // valid when Kind == KindExpr: additional rational delta
}

// FromRat builds a Rat-kind position.
func FromRat(r rational.Rat) Pos { return Pos{Kind: KindRat, Rat: r} }

// FromRef builds a PosRef (bar:beat). Bar and beat must both be >= 1
// (spec.md §8 invariant); FromRef returns an error otherwise.
func FromRef(bar, beat int) (Pos, error) {
	if bar < 1 || beat < 1 {
		return Pos{}, fmt.Errorf("position: bar and beat must be >= 1, got %d:%d", bar, beat)
	}
	return Pos{Kind: KindRef, Bar: bar, Beat: beat}, nil
}

// FromExpr builds a PosExpr: a PosRef base plus a rational offset.
func FromExpr(bar, beat int, off rational.Rat) (Pos, error) {
	base, err := FromRef(bar, beat)
	if err != nil {
		return Pos{}, err
	}
	return Pos{Kind: KindExpr, Bar: base.Bar, Beat: base.Beat, Off: off}, nil
}

// IsSymbolic reports whether p still carries unresolved bar/beat
// information (KindRef or KindExpr).
func (p Pos) IsSymbolic() bool {
	return p.Kind == KindRef || p.Kind == KindExpr
}

// AddRat returns a new position shifted by a rational delta. For a Rat
// position this is exact addition; for a symbolic position the delta
// accumulates into (or creates) the PosExpr offset, preserving the
// symbolic base until normalization (spec.md §3.3 invariant).
func (p Pos) AddRat(delta rational.Rat) Pos {
	switch p.Kind {
	case KindRat:
		return Pos{Kind: KindRat, Rat: p.Rat.Add(delta)}
	case KindRef:
		return Pos{Kind: KindExpr, Bar: p.Bar, Beat: p.Beat, Off: delta}
	case KindExpr:
		return Pos{Kind: KindExpr, Bar: p.Bar, Beat: p.Beat, Off: p.Off.Add(delta)}
	}
	return p
}

// Equal reports structural equality between two positions.
func (p Pos) Equal(o Pos) bool {
	if p.Kind != o.Kind {
		return false
	}
	switch p.Kind {
	case KindRat:
		return p.Rat.Equal(o.Rat)
	case KindRef:
		return p.Bar == o.Bar && p.Beat == o.Beat
	case KindExpr:
		return p.Bar == o.Bar && p.Beat == o.Beat && p.Off.Equal(o.Off)
	}
	return false
}

func (p Pos) String() string {
	switch p.Kind {
	case KindRat:
		return p.Rat.String()
	case KindRef:
		return fmt.Sprintf("%d:%d", p.Bar, p.Beat)
	case KindExpr:
		return fmt.Sprintf("%d:%d+%s", p.Bar, p.Beat, p.Off.String())
	}
	return "<invalid pos>"
}
