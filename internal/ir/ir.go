// Package ir implements the compiler's external IR contract (spec.md §3.7,
// §6.3): a JSON-serializable, canonically-ordered record produced from an
// evaluated Score value.
package ir

import jsoniter "github.com/json-iterator/go"

// json is configured to match encoding/json's wire behavior exactly (field
// order, escaping, map-key sorting) while remaining faster for the larger
// scores this compiler should comfortably handle (SPEC_FULL.md §4.9).
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Rat is the wire form of rational.Rat (spec.md §6.3: "All rationals
// serialize as {n, d}").
type Rat struct {
	N int64 `json:"n"`
	D int64 `json:"d"`
}

// PosRef is a resolved or unresolved bar:beat reference.
type PosRef struct {
	Kind string `json:"kind"` // always "posref"
	Bar  int    `json:"bar"`
	Beat int    `json:"beat"`
}

// PosExpr is a PosRef plus a rational offset that normalization could not
// fold into a single rational (no meter known at that bar).
type PosExpr struct {
	Kind   string `json:"kind"` // always "posexpr"
	Base   PosRef `json:"base"`
	Offset Rat    `json:"offset"`
}

// Pos is the tagged union `Rat | PosRef | PosExpr` from spec.md §6.3.
// Exactly one of Rat, Ref, Expr is non-nil; MarshalJSON emits whichever is
// set with no wrapping envelope.
type Pos struct {
	Rat  *Rat
	Ref  *PosRef
	Expr *PosExpr
}

func RatPos(r Rat) Pos      { return Pos{Rat: &r} }
func RefPos(r PosRef) Pos   { return Pos{Ref: &r} }
func ExprPos(e PosExpr) Pos { return Pos{Expr: &e} }

func (p Pos) MarshalJSON() ([]byte, error) {
	switch {
	case p.Rat != nil:
		return json.Marshal(p.Rat)
	case p.Ref != nil:
		return json.Marshal(p.Ref)
	case p.Expr != nil:
		return json.Marshal(p.Expr)
	default:
		return []byte("null"), nil
	}
}

// CurvePoint is one knot of a piecewise-linear automation curve.
type CurvePoint struct {
	At    Rat     `json:"at"`
	Value float64 `json:"value"`
}

// Event is a tagged union on Type ∈ {note, chord, drumHit, breath, control,
// automation, marker} (spec.md §6.3). Fields irrelevant to a given Type are
// omitted from the wire form via `omitempty`.
type Event struct {
	Type string `json:"type"`

	Start *Pos `json:"start,omitempty"`
	End   *Pos `json:"end,omitempty"`

	Duration *Rat `json:"duration,omitempty"`

	Pitch   *int  `json:"pitch,omitempty"`
	Pitches []int `json:"pitches,omitempty"`

	Velocity  *float64 `json:"vel,omitempty"`
	Voice     string   `json:"voice,omitempty"`
	Technique string   `json:"tech,omitempty"`
	Lyric     string   `json:"lyric,omitempty"`

	Key string `json:"key,omitempty"` // drumHit

	Intensity *float64 `json:"intensity,omitempty"` // breath

	CCKind string `json:"ccKind,omitempty"` // control
	CCData any    `json:"ccData,omitempty"` // control

	Param string       `json:"param,omitempty"` // automation
	Curve []CurvePoint `json:"curve,omitempty"` // automation

	Kind  string `json:"kind,omitempty"`  // marker
	Label string `json:"label,omitempty"` // marker

	Ext map[string]any `json:"ext,omitempty"`
}

// Clip is an ordered sequence of events, sorted by (start, stable-index)
// during normalization.
type Clip struct {
	Events []Event `json:"events"`
}

type TempoEntry struct {
	At   Pos `json:"at"`
	BPM  float64 `json:"bpm"`
	Unit Rat `json:"unit"`
}

type MeterEntry struct {
	At          Pos `json:"at"`
	Numerator   int `json:"numerator"`
	Denominator int `json:"denominator"`
}

type Sound struct {
	ID   string         `json:"id"`
	Kind string         `json:"kind"`
	Ext  map[string]any `json:"ext,omitempty"`
}

type Placement struct {
	At   Pos  `json:"at"`
	Clip Clip `json:"clip"`
}

type Mix struct {
	Gain *float64 `json:"gain,omitempty"`
	Pan  *float64 `json:"pan,omitempty"`
}

type Track struct {
	Name       string      `json:"name"`
	Role       string      `json:"role"`
	Sound      string      `json:"sound"`
	Placements []Placement `json:"placements"`
	Mix        *Mix        `json:"mix,omitempty"`
}

type Marker struct {
	Type  string `json:"type"` // always "marker"
	Pos   Pos    `json:"pos"`
	Kind  string `json:"kind"`
	Label string `json:"label"`
}

type Meta struct {
	Title     string         `json:"title,omitempty"`
	Artist    string         `json:"artist,omitempty"`
	Album     string         `json:"album,omitempty"`
	Copyright string         `json:"copyright,omitempty"`
	Ext       map[string]any `json:"ext,omitempty"`
}

// Header is the `tako` envelope field (spec.md §6.3).
type Header struct {
	IRVersion  int    `json:"irVersion"`
	Generator  string `json:"generator,omitempty"`
	SourceHash string `json:"sourceHash,omitempty"`
}

// Score is the top-level IR record.
type Score struct {
	Tako     Header       `json:"tako"`
	Meta     Meta         `json:"meta"`
	TempoMap []TempoEntry `json:"tempoMap"`
	MeterMap []MeterEntry `json:"meterMap"`
	Sounds   []Sound      `json:"sounds"`
	Tracks   []Track      `json:"tracks"`
	Markers  []Marker     `json:"markers"`
}

// Marshal renders the IR record with canonical field ordering (struct
// declaration order, preserved by jsoniter the same way encoding/json
// preserves it) and no HTML-escaping surprises beyond stdlib's own.
func Marshal(s *Score) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
