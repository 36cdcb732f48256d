package ir

import (
	"fmt"
	"sort"

	"github.com/tako-lang/tako/internal/diag"
	"github.com/tako-lang/tako/internal/position"
	"github.com/tako-lang/tako/internal/rational"
	"github.com/tako-lang/tako/internal/value"
)

// vocalRangeLow/High bound the "comfortable" MIDI range used for the
// soft out-of-vocal-range warning (spec.md §4.7 validation step 4). Unlike
// the hard 0-127 MIDI bound this is a stylistic convention, not a protocol
// limit, so it is a plain constant rather than a config knob.
const (
	vocalRangeLow  = 36 // C2
	vocalRangeHigh = 81 // A5
)

// meterSpan is one meter region resolved to the bar it takes effect from.
type meterSpan struct {
	fromBar     int
	numerator   int
	denominator int
}

// Normalize consumes the evaluator's Score value and produces the final IR
// record (spec.md §4.7). Diagnostics (warnings and validation errors) are
// appended to diags; Normalize itself never returns an error — a malformed
// score surfaces as diag.Buffer.HasErrors() after the call, matching the
// evaluator's own non-throwing diagnostic style for non-fatal issues, while
// still recording fatal validation failures as Error-severity diagnostics.
func Normalize(sco *value.Score, irVersion int, generator, sourceHash string, diags *diag.Buffer) *Score {
	out := &Score{
		Tako:     Header{IRVersion: irVersion, Generator: generator, SourceHash: sourceHash},
		Meta:     metaOf(sco.Meta),
		TempoMap: []TempoEntry{},
		MeterMap: []MeterEntry{},
		Sounds:   []Sound{},
		Tracks:   []Track{},
		Markers:  []Marker{},
	}

	spans := buildMeterSpans(sco.MeterMap)

	for _, m := range sco.MeterMap {
		out.MeterMap = append(out.MeterMap, MeterEntry{
			At:          resolvePos(m.At, spans, diags),
			Numerator:   m.Numerator,
			Denominator: m.Denominator,
		})
	}

	for _, t := range sco.TempoMap {
		out.TempoMap = append(out.TempoMap, TempoEntry{
			At:  resolvePos(t.At, spans, diags),
			BPM: t.BPM,
			Unit: Rat{N: t.Unit.N, D: t.Unit.D},
		})
	}

	soundKinds := map[string]string{}
	for _, id := range sco.SoundIDs {
		s := sco.Sounds[id]
		soundKinds[id] = s.Kind
		out.Sounds = append(out.Sounds, Sound{ID: s.ID, Kind: s.Kind, Ext: objectToMap(s.Ext)})
	}

	for _, tr := range sco.Tracks {
		if tr.SoundID != "" {
			if _, ok := soundKinds[tr.SoundID]; !ok {
				diags.Error("unknown_sound", fmt.Sprintf("track %q references undeclared sound %q", tr.Name, tr.SoundID), nil)
			}
		}
		track := Track{Name: tr.Name, Role: tr.Role, Sound: tr.SoundID}
		for _, pl := range tr.Placements {
			track.Placements = append(track.Placements, Placement{
				At:   resolvePos(pl.At, spans, diags),
				Clip: normalizeClip(pl.Clip, spans, diags),
			})
		}
		out.Tracks = append(out.Tracks, track)
	}

	for _, m := range sco.Markers {
		out.Markers = append(out.Markers, Marker{
			Type:  "marker",
			Pos:   resolvePos(m.At, spans, diags),
			Kind:  m.Kind,
			Label: m.Label,
		})
	}

	return out
}

func metaOf(o *value.Object) Meta {
	m := Meta{}
	ext := map[string]any{}
	if o != nil {
		for i, k := range o.Keys {
			v := o.Values[i]
			switch k {
			case "title":
				m.Title = v.Str
			case "artist":
				m.Artist = v.Str
			case "album":
				m.Album = v.Str
			case "copyright":
				m.Copyright = v.Str
			default:
				ext[k] = toJSONValue(v)
			}
		}
	}
	if len(ext) > 0 {
		m.Ext = ext
	}
	return m
}

func objectToMap(o *value.Object) map[string]any {
	if o == nil || len(o.Keys) == 0 {
		return nil
	}
	m := make(map[string]any, len(o.Keys))
	for i, k := range o.Keys {
		m[k] = toJSONValue(o.Values[i])
	}
	return m
}

func toJSONValue(v value.Value) any {
	switch v.Kind {
	case value.KindNull:
		return nil
	case value.KindBool:
		return v.Bool
	case value.KindNumber:
		return v.Number
	case value.KindString:
		return v.Str
	case value.KindArray:
		arr := make([]any, len(v.Array))
		for i, e := range v.Array {
			arr[i] = toJSONValue(e)
		}
		return arr
	case value.KindObject:
		return objectToMap(v.Object)
	default:
		return v.String()
	}
}

// buildMeterSpans converts the meter map's symbolic "at" positions into a
// bar-indexed lookup, sorted ascending, so a later position can find the
// meter in effect at its own bar without re-deriving ordering each time
// (spec.md §4.7 step 1: "if a preceding meter event is known").
func buildMeterSpans(entries []value.MeterEntry) []meterSpan {
	spans := make([]meterSpan, 0, len(entries))
	for _, m := range entries {
		bar := 1
		if m.At.Kind == position.KindRef || m.At.Kind == position.KindExpr {
			bar = m.At.Bar
		}
		spans = append(spans, meterSpan{fromBar: bar, numerator: m.Numerator, denominator: m.Denominator})
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].fromBar < spans[j].fromBar })
	return spans
}

// meterAt returns the meter in effect at the given bar, or false if no
// meter event precedes it.
func meterAt(spans []meterSpan, bar int) (meterSpan, bool) {
	var found meterSpan
	ok := false
	for _, s := range spans {
		if s.fromBar <= bar {
			found = s
			ok = true
		}
	}
	return found, ok
}

// resolvePos implements spec.md §4.7 step 1: fold a PosRef/PosExpr into a
// rational whole-note offset using the meter in effect at its bar; preserve
// the symbolic form and warn if no meter is known yet.
func resolvePos(p position.Pos, spans []meterSpan, diags *diag.Buffer) Pos {
	switch p.Kind {
	case position.KindRat:
		return RatPos(Rat{N: p.Rat.N, D: p.Rat.D})
	case position.KindRef, position.KindExpr:
		m, ok := meterAt(spans, p.Bar)
		if !ok {
			diags.Warn("unresolved_position", fmt.Sprintf("position %s precedes any meter declaration; left symbolic", p.String()), nil)
			ref := PosRef{Kind: "posref", Bar: p.Bar, Beat: p.Beat}
			if p.Kind == position.KindExpr {
				return ExprPos(PosExpr{Kind: "posexpr", Base: ref, Offset: Rat{N: p.Off.N, D: p.Off.D}})
			}
			return RefPos(ref)
		}
		beatUnit, _ := rational.New(1, int64(m.denominator))
		barLen, _ := rational.New(int64(m.numerator), int64(m.denominator))
		offset := rational.FromInt(int64(p.Bar - 1)).Mul(barLen).Add(rational.FromInt(int64(p.Beat - 1)).Mul(beatUnit))
		if p.Kind == position.KindExpr {
			offset = offset.Add(p.Off)
		}
		return RatPos(Rat{N: offset.N, D: offset.D})
	default:
		return RatPos(Rat{N: 0, D: 1})
	}
}

// indexedEvent pairs a normalized Event with its source value.Event.Index,
// the stable-sort tie-breaker spec.md §4.7 step 2 names.
type indexedEvent struct {
	event Event
	index int
}

func normalizeClip(c *value.Clip, spans []meterSpan, diags *diag.Buffer) Clip {
	if c == nil {
		return Clip{}
	}
	events := make([]indexedEvent, len(c.Events))
	for i, ev := range c.Events {
		events[i] = indexedEvent{event: normalizeEvent(ev, spans, diags), index: ev.Index}
	}
	sortEvents(events)
	out := make([]Event, len(events))
	for i, e := range events {
		out[i] = e.event
	}
	return Clip{Events: out}
}

// sortEvents implements spec.md §4.7 step 2: sort by (start, stable-index).
// A resolved (rational) start always sorts before a symbolic one that could
// not be folded; ties among equal or equally-unresolved starts fall back to
// value.Event's own Index, the source-insertion tie-breaker the spec names.
func sortEvents(events []indexedEvent) {
	sort.Slice(events, func(i, j int) bool {
		ri, oki := ratOf(events[i].event.Start)
		rj, okj := ratOf(events[j].event.Start)
		switch {
		case oki && okj && ri.Cmp(rj) != 0:
			return ri.Cmp(rj) < 0
		case oki != okj:
			return oki
		default:
			return events[i].index < events[j].index
		}
	})
}

func ratOf(p *Pos) (rational.Rat, bool) {
	if p == nil || p.Rat == nil {
		return rational.Zero, false
	}
	r, err := rational.New(p.Rat.N, p.Rat.D)
	if err != nil {
		return rational.Zero, false
	}
	return r, true
}

func normalizeEvent(ev value.Event, spans []meterSpan, diags *diag.Buffer) Event {
	out := Event{Type: ev.Type.String()}

	start := resolvePos(ev.Start, spans, diags)
	out.Start = &start

	switch ev.Type {
	case value.EventNote, value.EventChord, value.EventDrumHit, value.EventBreath:
		if ev.Duration.Sign() < 0 {
			diags.Error("negative_duration", fmt.Sprintf("event at %s has a negative duration", ev.Start.String()), nil)
		}
		out.Duration = &Rat{N: ev.Duration.N, D: ev.Duration.D}
	}

	switch ev.Type {
	case value.EventNote:
		midi := validatedPitch(ev.Pitch.MIDI, ev.Start, diags)
		out.Pitch = &midi
	case value.EventChord:
		pitches := make([]int, len(ev.Pitches))
		for i, p := range ev.Pitches {
			pitches[i] = validatedPitch(p.MIDI, ev.Start, diags)
		}
		out.Pitches = pitches
	case value.EventDrumHit:
		out.Key = ev.Key
	case value.EventBreath:
		out.Intensity = ev.Intensity
	case value.EventControl:
		out.CCKind = ev.CCKind
		out.CCData = toJSONValue(ev.CCData)
	case value.EventAutomation:
		end := resolvePos(ev.End, spans, diags)
		out.End = &end
		out.Param = ev.Param
		if ev.Curve != nil {
			pts := make([]CurvePoint, len(ev.Curve.Points))
			for i, p := range ev.Curve.Points {
				pts[i] = CurvePoint{At: Rat{N: p.At.N, D: p.At.D}, Value: p.Value}
			}
			out.Curve = pts
		}
	case value.EventMarker:
		out.Kind = ev.MarkerKind
		out.Label = ev.MarkerLabel
	}

	out.Velocity = ev.Velocity
	out.Voice = ev.Voice
	out.Technique = ev.Technique
	out.Lyric = ev.Lyric
	out.Ext = objectToMap(ev.Ext)

	return out
}

// validatedPitch enforces the hard MIDI 0-127 bound (rejected) and warns
// outside the softer vocal-comfort range (spec.md §4.7 validation step 4).
func validatedPitch(midi int, at position.Pos, diags *diag.Buffer) int {
	if midi < 0 || midi > 127 {
		diags.Error("pitch_out_of_range", fmt.Sprintf("pitch %d at %s is outside MIDI 0-127", midi, at.String()), nil)
		return midi
	}
	if midi < vocalRangeLow || midi > vocalRangeHigh {
		diags.Warn("pitch_out_of_vocal_range", fmt.Sprintf("pitch %d at %s is outside the typical vocal range", midi, at.String()), nil)
	}
	return midi
}
