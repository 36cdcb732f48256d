package eval

import (
	"fmt"

	"github.com/tako-lang/tako/internal/ast"
	"github.com/tako-lang/tako/internal/diag"
	"github.com/tako-lang/tako/internal/pitch"
	"github.com/tako-lang/tako/internal/position"
	"github.com/tako-lang/tako/internal/rational"
	"github.com/tako-lang/tako/internal/scope"
	"github.com/tako-lang/tako/internal/token"
	"github.com/tako-lang/tako/internal/value"
)

// defaultTempoUnit is the quarter-note rational used when a tempo entry
// omits its unit (spec.md §4.5.4).
var defaultTempoUnit = rational.MustNew(1, 4)

// --- Clip evaluation (spec.md §4.5.3) ---

func (e *Evaluator) evalClip(n *ast.ClipExpr, sc *scope.Scope) (value.Value, error) {
	clip := &value.Clip{}
	cursor := position.FromRat(rational.Zero)
	inner := scope.New(sc)

	for _, stmt := range n.Stmts {
		var err error
		cursor, err = e.execClipStmt(stmt, inner, clip, cursor)
		if err != nil {
			return value.Null, err
		}
	}
	return value.ClipVal(clip), nil
}

func (e *Evaluator) execClipStmt(stmt ast.ClipStmt, sc *scope.Scope, clip *value.Clip, cursor position.Pos) (position.Pos, error) {
	switch n := stmt.(type) {
	case *ast.NoteStmt:
		p, err := e.evalPitch(n.Pitch, sc)
		if err != nil {
			return cursor, err
		}
		dur, err := e.evalDuration(n.Duration, sc)
		if err != nil {
			return cursor, err
		}
		ev := value.Event{Type: value.EventNote, Start: cursor, Duration: dur, Pitch: p, Index: len(clip.Events)}
		if err := applyOptions(&ev, n.With, e, sc); err != nil {
			return cursor, err
		}
		clip.Events = append(clip.Events, ev)
		return cursor.AddRat(dur), nil

	case *ast.ChordStmt:
		dur, err := e.evalDuration(n.Duration, sc)
		if err != nil {
			return cursor, err
		}
		pitches := make([]pitch.Pitch, len(n.Pitches))
		for i, pe := range n.Pitches {
			p, err := e.evalPitch(pe, sc)
			if err != nil {
				return cursor, err
			}
			pitches[i] = p
		}
		ev := value.Event{Type: value.EventChord, Start: cursor, Duration: dur, Pitches: pitches, Index: len(clip.Events)}
		if err := applyOptions(&ev, n.With, e, sc); err != nil {
			return cursor, err
		}
		clip.Events = append(clip.Events, ev)
		return cursor.AddRat(dur), nil

	case *ast.RestStmt:
		dur, err := e.evalDuration(n.Duration, sc)
		if err != nil {
			return cursor, err
		}
		return cursor.AddRat(dur), nil

	case *ast.AtStmt:
		v, err := e.evalExpr(n.At, sc)
		if err != nil {
			return cursor, err
		}
		p, err := toPos(v, n.Pos)
		if err != nil {
			return cursor, err
		}
		return p, nil

	case *ast.BreathStmt:
		dur, err := e.evalDuration(n.Duration, sc)
		if err != nil {
			return cursor, err
		}
		ev := value.Event{Type: value.EventBreath, Start: cursor, Duration: dur, Index: len(clip.Events)}
		if n.Intensity != nil {
			iv, err := e.evalExpr(n.Intensity, sc)
			if err != nil {
				return cursor, err
			}
			if iv.Kind == value.KindNumber {
				intensity := iv.Number
				ev.Intensity = &intensity
			}
		}
		clip.Events = append(clip.Events, ev)
		return cursor.AddRat(dur), nil

	case *ast.HitStmt:
		keyVal, err := e.evalExpr(n.Key, sc)
		if err != nil {
			return cursor, err
		}
		dur, err := e.evalDuration(n.Duration, sc)
		if err != nil {
			return cursor, err
		}
		key := keyVal.Str
		if keyVal.Kind == value.KindPitch {
			key = fmt.Sprintf("%d", keyVal.Pitch.MIDI)
		}
		ev := value.Event{Type: value.EventDrumHit, Start: cursor, Duration: dur, Key: key, Index: len(clip.Events)}
		if err := applyOptions(&ev, n.With, e, sc); err != nil {
			return cursor, err
		}
		clip.Events = append(clip.Events, ev)
		return cursor.AddRat(dur), nil

	case *ast.CCStmt:
		kindVal, err := e.evalExpr(n.Kind, sc)
		if err != nil {
			return cursor, err
		}
		data, err := e.evalExpr(n.Data, sc)
		if err != nil {
			return cursor, err
		}
		ev := value.Event{Type: value.EventControl, Start: cursor, CCKind: kindVal.String(), CCData: data, Index: len(clip.Events)}
		clip.Events = append(clip.Events, ev)
		return cursor, nil

	case *ast.AutomationStmt:
		paramVal, err := e.evalExpr(n.Param, sc)
		if err != nil {
			return cursor, err
		}
		startVal, err := e.evalExpr(n.Start, sc)
		if err != nil {
			return cursor, err
		}
		start, err := toPos(startVal, n.Pos)
		if err != nil {
			return cursor, err
		}
		endVal, err := e.evalExpr(n.End, sc)
		if err != nil {
			return cursor, err
		}
		end, err := toPos(endVal, n.Pos)
		if err != nil {
			return cursor, err
		}
		curveVal, err := e.evalExpr(n.Curve, sc)
		if err != nil {
			return cursor, err
		}
		ev := value.Event{Type: value.EventAutomation, Start: start, End: end, Param: paramVal.String(), Index: len(clip.Events)}
		if curveVal.Kind == value.KindCurve {
			ev.Curve = curveVal.Curve
		}
		clip.Events = append(clip.Events, ev)
		return cursor, nil

	case *ast.MarkerStmt:
		at := cursor
		if n.At != nil {
			v, err := e.evalExpr(n.At, sc)
			if err != nil {
				return cursor, err
			}
			resolved, err := toPos(v, n.Pos)
			if err != nil {
				return cursor, err
			}
			at = resolved
		}
		kindVal, err := e.evalExpr(n.Kind, sc)
		if err != nil {
			return cursor, err
		}
		labelVal, err := e.evalExpr(n.Label, sc)
		if err != nil {
			return cursor, err
		}
		ev := value.Event{Type: value.EventMarker, Start: at, MarkerKind: kindVal.String(), MarkerLabel: labelVal.String(), Index: len(clip.Events)}
		clip.Events = append(clip.Events, ev)
		return cursor, nil

	case *ast.OrdinaryClipStmt:
		if err := e.execStmt(n.Stmt, sc); err != nil {
			return cursor, err
		}
		return cursor, nil

	default:
		return cursor, diag.NewError(stmt.Position(), diag.ErrType, "unsupported clip statement %T", stmt)
	}
}

func (e *Evaluator) evalPitch(expr ast.Expr, sc *scope.Scope) (pitch.Pitch, error) {
	v, err := e.evalExpr(expr, sc)
	if err != nil {
		return pitch.Pitch{}, err
	}
	if v.Kind != value.KindPitch {
		return pitch.Pitch{}, diag.NewError(expr.Position(), diag.ErrType, "expected a pitch, got %s", value.TypeName(v))
	}
	return v.Pitch, nil
}

func (e *Evaluator) evalDuration(expr ast.Expr, sc *scope.Scope) (rational.Rat, error) {
	v, err := e.evalExpr(expr, sc)
	if err != nil {
		return rational.Zero, err
	}
	if v.Kind != value.KindRat {
		return rational.Zero, diag.NewError(expr.Position(), diag.ErrType, "expected a duration, got %s", value.TypeName(v))
	}
	return v.Rat, nil
}

func toPos(v value.Value, pos token.Position) (position.Pos, error) {
	switch v.Kind {
	case value.KindPos:
		return v.Pos, nil
	case value.KindRat:
		return position.FromRat(v.Rat), nil
	case value.KindNumber:
		return position.FromRat(numberToRat(v.Number)), nil
	default:
		return position.Pos{}, diag.NewError(pos, diag.ErrType, "expected a position, got %s", value.TypeName(v))
	}
}

func applyOptions(ev *value.Event, with *ast.ObjectLit, e *Evaluator, sc *scope.Scope) error {
	if with == nil {
		return nil
	}
	ext := value.NewObject()
	for _, f := range with.Fields {
		v, err := e.evalExpr(f.Value, sc)
		if err != nil {
			return err
		}
		switch f.Key {
		case "vel":
			if v.Kind == value.KindNumber {
				vel := v.Number
				ev.Velocity = &vel
			}
		case "voice":
			ev.Voice = v.String()
		case "tech":
			ev.Technique = v.String()
		case "lyric":
			ev.Lyric = v.String()
		default:
			ext.Set(f.Key, v)
		}
	}
	if len(ext.Keys) > 0 {
		ev.Ext = ext
	}
	return nil
}

// --- Score evaluation (spec.md §4.5.4) ---

var roleSoundKind = map[string]string{
	"Instrument": "instrument",
	"Drums":      "drumKit",
	"Vocal":      "vocal",
	"Automation": "fx",
}

func (e *Evaluator) evalScore(n *ast.ScoreExpr, sc *scope.Scope) (value.Value, error) {
	sco := &value.Score{Meta: value.NewObject(), Sounds: map[string]value.SoundDecl{}}
	inner := scope.New(sc)

	for _, field := range n.Fields {
		switch f := field.(type) {
		case *ast.MetaField:
			for _, entry := range f.Entries {
				v, err := e.evalExpr(entry.Value, inner)
				if err != nil {
					return value.Null, err
				}
				sco.Meta.Set(entry.Key, v)
			}

		case *ast.TempoField:
			for _, entry := range f.Entries {
				atVal, err := e.evalExpr(entry.At, inner)
				if err != nil {
					return value.Null, err
				}
				at, err := toPos(atVal, entry.Pos)
				if err != nil {
					return value.Null, err
				}
				bpmVal, err := e.evalExpr(entry.BPM, inner)
				if err != nil {
					return value.Null, err
				}
				unit := defaultTempoUnit
				if entry.Unit != nil {
					unitVal, err := e.evalExpr(entry.Unit, inner)
					if err != nil {
						return value.Null, err
					}
					if unitVal.Kind == value.KindRat {
						unit = unitVal.Rat
					}
				}
				sco.TempoMap = append(sco.TempoMap, value.TempoEntry{At: at, BPM: bpmVal.Number, Unit: unit})
			}

		case *ast.MeterField:
			for _, entry := range f.Entries {
				atVal, err := e.evalExpr(entry.At, inner)
				if err != nil {
					return value.Null, err
				}
				at, err := toPos(atVal, entry.Pos)
				if err != nil {
					return value.Null, err
				}
				num, den, err := meterRatio(entry.Ratio)
				if err != nil {
					return value.Null, diag.NewError(entry.Pos, diag.ErrType, "%v", err)
				}
				sco.MeterMap = append(sco.MeterMap, value.MeterEntry{At: at, Numerator: num, Denominator: den})
			}

		case *ast.SoundField:
			ext := value.NewObject()
			for _, of := range f.Body {
				v, err := e.evalExpr(of.Value, inner)
				if err != nil {
					return value.Null, err
				}
				ext.Set(of.Key, v)
			}
			if _, exists := sco.Sounds[f.Name]; !exists {
				sco.SoundIDs = append(sco.SoundIDs, f.Name)
			}
			sco.Sounds[f.Name] = value.SoundDecl{ID: f.Name, Kind: f.Kind, Ext: ext}

		case *ast.TrackField:
			track, err := e.evalTrack(f, inner)
			if err != nil {
				return value.Null, err
			}
			if track.Role != "" {
				if sound, ok := sco.Sounds[track.SoundID]; ok && sound.Kind != "" {
					if expected, ok := roleSoundKind[track.Role]; ok && expected != sound.Kind {
						e.Diags.Warn("role_sound_mismatch",
							fmt.Sprintf("track %q has role %q but sound %q has kind %q (expected %q)", track.Name, track.Role, track.SoundID, sound.Kind, expected),
							&f.Pos)
					}
				}
			}
			sco.Tracks = append(sco.Tracks, track)

		case *ast.MarkerStmt:
			v, err := e.evalExpr(f.At, inner)
			if err != nil {
				return value.Null, err
			}
			at, err := toPos(v, f.Pos)
			if err != nil {
				return value.Null, err
			}
			kindVal, err := e.evalExpr(f.Kind, inner)
			if err != nil {
				return value.Null, err
			}
			labelVal, err := e.evalExpr(f.Label, inner)
			if err != nil {
				return value.Null, err
			}
			sco.Markers = append(sco.Markers, value.Marker{At: at, Kind: kindVal.String(), Label: labelVal.String()})

		default:
			return value.Null, diag.NewError(field.Position(), diag.ErrType, "unsupported score field %T", field)
		}
	}

	return value.ScoreVal(sco), nil
}

func meterRatio(expr ast.Expr) (int, int, error) {
	d, ok := expr.(*ast.DurationLit)
	if !ok {
		return 0, 0, fmt.Errorf("meter ratio must be written as numerator/denominator, e.g. 4/4")
	}
	return int(d.Num), int(d.Den), nil
}

func (e *Evaluator) evalTrack(f *ast.TrackField, sc *scope.Scope) (value.Track, error) {
	track := value.Track{Name: f.Name, Role: f.Role, SoundID: f.Sound}
	inner := scope.New(sc)
	for _, stmt := range f.Stmts {
		switch s := stmt.(type) {
		case *ast.PlaceStmt:
			atVal, err := e.evalExpr(s.At, inner)
			if err != nil {
				return track, err
			}
			at, err := toPos(atVal, s.Pos)
			if err != nil {
				return track, err
			}
			clipVal, err := e.evalExpr(s.Clip, inner)
			if err != nil {
				return track, err
			}
			if clipVal.Kind != value.KindClip {
				return track, diag.NewError(s.Pos, diag.ErrType, "place expects a clip expression, got %s", value.TypeName(clipVal))
			}
			track.Placements = append(track.Placements, value.Placement{At: at, Clip: clipVal.Clip})
		case *ast.OrdinaryTrackStmt:
			if err := e.execStmt(s.Stmt, inner); err != nil {
				return track, err
			}
		default:
			return track, diag.NewError(stmt.Position(), diag.ErrType, "unsupported track statement %T", stmt)
		}
	}
	return track, nil
}
