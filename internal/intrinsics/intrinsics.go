// Package intrinsics implements the fixed catalog of native functions seeded
// into every module's root scope (spec.md §4.6): clip transforms, theory
// helpers, rhythm helpers, drum key constructors, vocal helpers, math
// utilities, and array/string primitives.
package intrinsics

import (
	"fmt"
	"math"
	"strings"

	"github.com/tako-lang/tako/internal/pitch"
	"github.com/tako-lang/tako/internal/position"
	"github.com/tako-lang/tako/internal/rational"
	"github.com/tako-lang/tako/internal/scope"
	"github.com/tako-lang/tako/internal/token"
	"github.com/tako-lang/tako/internal/value"
)

// Caller lets a native function invoke a user-supplied callback (e.g.
// mapEvents' predicate) without this package importing the evaluator, which
// would create an import cycle (eval -> intrinsics -> eval).
type Caller interface {
	Call(fn value.Value, args *value.Args, pos token.Position) (value.Value, error)
}

// Register seeds every intrinsic into sc as a non-user-defined binding
// (spec.md §4.4 "root frame ... populated with intrinsics").
func Register(sc *scope.Scope, caller Caller) {
	for name, fn := range catalog(caller) {
		sc.DefineIntrinsic(name, value.FunctionVal(&value.Function{Name: name, Native: fn}))
	}
}

func argErr(name, format string, a ...any) error {
	return fmt.Errorf("%s: %s", name, fmt.Sprintf(format, a...))
}

func catalog(caller Caller) map[string]func(args *value.Args) (value.Value, error) {
	m := map[string]func(args *value.Args) (value.Value, error){}

	// --- Clip transforms (spec.md §4.6) ---

	m["repeat"] = func(args *value.Args) (value.Value, error) {
		c, err := requireClip(args, 0, "repeat")
		if err != nil {
			return value.Null, err
		}
		n, err := requireInt(args, 1, "repeat")
		if err != nil {
			return value.Null, err
		}
		total := totalDuration(c)
		out := &value.Clip{}
		idx := 0
		for i := int64(0); i < n; i++ {
			offset := total.Mul(rational.FromInt(i))
			for _, ev := range c.Events {
				ne := ev
				ne.Start = ne.Start.AddRat(offset)
				ne.Index = idx
				idx++
				out.Events = append(out.Events, ne)
			}
		}
		return value.ClipVal(out), nil
	}

	m["concat"] = func(args *value.Args) (value.Value, error) {
		out := &value.Clip{}
		cursor := rational.Zero
		idx := 0
		for i := range args.Positional {
			c, err := requireClip(args, i, "concat")
			if err != nil {
				return value.Null, err
			}
			for _, ev := range c.Events {
				ne := ev
				ne.Start = ne.Start.AddRat(cursor)
				ne.Index = idx
				idx++
				out.Events = append(out.Events, ne)
			}
			cursor = cursor.Add(totalDuration(c))
		}
		return value.ClipVal(out), nil
	}

	m["overlay"] = func(args *value.Args) (value.Value, error) {
		out := &value.Clip{}
		idx := 0
		for i := range args.Positional {
			c, err := requireClip(args, i, "overlay")
			if err != nil {
				return value.Null, err
			}
			for _, ev := range c.Events {
				ne := ev
				ne.Index = idx
				idx++
				out.Events = append(out.Events, ne)
			}
		}
		return value.ClipVal(out), nil
	}

	m["shift"] = func(args *value.Args) (value.Value, error) {
		c, err := requireClip(args, 0, "shift")
		if err != nil {
			return value.Null, err
		}
		delta, err := requireRat(args, 1, "shift")
		if err != nil {
			return value.Null, err
		}
		out := &value.Clip{}
		for _, ev := range c.Events {
			ne := ev
			ne.Start = ne.Start.AddRat(delta)
			out.Events = append(out.Events, ne)
		}
		return value.ClipVal(out), nil
	}

	m["transpose"] = func(args *value.Args) (value.Value, error) {
		v, ok := args.Get(0)
		if !ok {
			return value.Null, argErr("transpose", "expects 2 arguments, got 0")
		}
		semis, err := requireInt(args, 1, "transpose")
		if err != nil {
			return value.Null, err
		}
		switch v.Kind {
		case value.KindPitch:
			return value.PitchVal(v.Pitch.Transpose(int(semis))), nil
		case value.KindClip:
			out := &value.Clip{}
			for _, ev := range v.Clip.Events {
				ne := ev
				if ne.Type == value.EventNote {
					ne.Pitch = ne.Pitch.Transpose(int(semis))
				}
				for i := range ne.Pitches {
					ne.Pitches[i] = ne.Pitches[i].Transpose(int(semis))
				}
				out.Events = append(out.Events, ne)
			}
			return value.ClipVal(out), nil
		default:
			return value.Null, argErr("transpose", "expects a pitch or clip, got %s", value.TypeName(v))
		}
	}

	m["stretch"] = func(args *value.Args) (value.Value, error) {
		c, err := requireClip(args, 0, "stretch")
		if err != nil {
			return value.Null, err
		}
		factor, err := requireRat(args, 1, "stretch")
		if err != nil {
			return value.Null, err
		}
		out := &value.Clip{}
		for _, ev := range c.Events {
			ne := ev
			ne.Start = scalePos(ev.Start, factor)
			ne.Duration = ev.Duration.Mul(factor)
			out.Events = append(out.Events, ne)
		}
		return value.ClipVal(out), nil
	}

	m["quantize"] = func(args *value.Args) (value.Value, error) {
		c, err := requireClip(args, 0, "quantize")
		if err != nil {
			return value.Null, err
		}
		grid, err := requireRat(args, 1, "quantize")
		if err != nil {
			return value.Null, err
		}
		out := &value.Clip{}
		for _, ev := range c.Events {
			ne := ev
			ne.Start = quantizePos(ev.Start, grid)
			out.Events = append(out.Events, ne)
		}
		return value.ClipVal(out), nil
	}

	m["slice"] = func(args *value.Args) (value.Value, error) {
		c, err := requireClip(args, 0, "slice")
		if err != nil {
			return value.Null, err
		}
		from, err := requireRat(args, 1, "slice")
		if err != nil {
			return value.Null, err
		}
		to, err := requireRat(args, 2, "slice")
		if err != nil {
			return value.Null, err
		}
		out := &value.Clip{}
		for _, ev := range c.Events {
			if ev.Start.Kind != position.KindRat {
				continue
			}
			if ev.Start.Rat.Cmp(from) >= 0 && ev.Start.Rat.Cmp(to) < 0 {
				out.Events = append(out.Events, ev)
			}
		}
		return value.ClipVal(out), nil
	}

	m["padTo"] = func(args *value.Args) (value.Value, error) {
		c, err := requireClip(args, 0, "padTo")
		if err != nil {
			return value.Null, err
		}
		target, err := requireRat(args, 1, "padTo")
		if err != nil {
			return value.Null, err
		}
		out := &value.Clip{Events: append([]value.Event{}, c.Events...)}
		total := totalDuration(c)
		if total.Cmp(target) < 0 {
			out.Events = append(out.Events, value.Event{
				Type:     value.EventMarker,
				Start:    position.FromRat(total),
				MarkerKind: "pad",
			})
		}
		return value.ClipVal(out), nil
	}

	m["mapEvents"] = func(args *value.Args) (value.Value, error) {
		c, err := requireClip(args, 0, "mapEvents")
		if err != nil {
			return value.Null, err
		}
		fnv, ok := args.Get(1)
		if !ok || fnv.Kind != value.KindFunction {
			return value.Null, argErr("mapEvents", "expects a function as the second argument")
		}
		out := &value.Clip{}
		for _, ev := range c.Events {
			wrapped := eventToObject(ev)
			res, err := caller.Call(fnv, &value.Args{Positional: []value.Value{wrapped}}, token.Position{})
			if err != nil {
				return value.Null, err
			}
			ne, err := objectToEvent(res, ev)
			if err != nil {
				return value.Null, err
			}
			out.Events = append(out.Events, ne)
		}
		return value.ClipVal(out), nil
	}

	// --- Theory helpers ---

	m["triad"] = func(args *value.Args) (value.Value, error) {
		root, err := requirePitch(args, 0, "triad")
		if err != nil {
			return value.Null, err
		}
		quality := "major"
		if q, ok := args.NamedArg("quality"); ok {
			quality = q.Str
		} else if v, ok := args.Get(1); ok {
			quality = v.Str
		}
		intervals := []int{0, 4, 7}
		switch quality {
		case "minor":
			intervals = []int{0, 3, 7}
		case "diminished":
			intervals = []int{0, 3, 6}
		case "augmented":
			intervals = []int{0, 4, 8}
		}
		var out []value.Value
		for _, iv := range intervals {
			out = append(out, value.PitchVal(root.Transpose(iv)))
		}
		return value.ArrayVal(out), nil
	}

	scales := map[string][]int{
		"major":       {0, 2, 4, 5, 7, 9, 11},
		"minor":       {0, 2, 3, 5, 7, 8, 10},
		"dorian":      {0, 2, 3, 5, 7, 9, 10},
		"mixolydian":  {0, 2, 4, 5, 7, 9, 10},
		"chromatic":   {0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
		"pentatonic":  {0, 2, 4, 7, 9},
		"blues":       {0, 3, 5, 6, 7, 10},
	}
	m["scale"] = func(args *value.Args) (value.Value, error) {
		root, err := requirePitch(args, 0, "scale")
		if err != nil {
			return value.Null, err
		}
		name := "major"
		if v, ok := args.Get(1); ok {
			name = v.Str
		}
		intervals, ok := scales[name]
		if !ok {
			return value.Null, argErr("scale", "unknown scale %q", name)
		}
		var out []value.Value
		for _, iv := range intervals {
			out = append(out, value.PitchVal(root.Transpose(iv)))
		}
		return value.ArrayVal(out), nil
	}

	m["degree"] = func(args *value.Args) (value.Value, error) {
		root, err := requirePitch(args, 0, "degree")
		if err != nil {
			return value.Null, err
		}
		n, err := requireInt(args, 1, "degree")
		if err != nil {
			return value.Null, err
		}
		name := "major"
		if v, ok := args.Get(2); ok {
			name = v.Str
		}
		intervals, ok := scales[name]
		if !ok {
			return value.Null, argErr("degree", "unknown scale %q", name)
		}
		idx := int(n) % len(intervals)
		if idx < 0 {
			idx += len(intervals)
		}
		return value.PitchVal(root.Transpose(intervals[idx])), nil
	}

	// --- Rhythm helpers ---

	m["euclid"] = func(args *value.Args) (value.Value, error) {
		steps, err := requireInt(args, 0, "euclid")
		if err != nil {
			return value.Null, err
		}
		pulses, err := requireInt(args, 1, "euclid")
		if err != nil {
			return value.Null, err
		}
		pattern := euclideanRhythm(int(steps), int(pulses))
		var out []value.Value
		for _, b := range pattern {
			out = append(out, value.Bool(b))
		}
		return value.ArrayVal(out), nil
	}

	// --- GM drum key constructors (spec.md §4.6) ---
	drumKeys := map[string]int{
		"kick": 36, "snare": 38, "closedHat": 42, "openHat": 46,
		"lowTom": 41, "midTom": 45, "highTom": 48, "crash": 49, "ride": 51,
		"clap": 39, "rimshot": 37, "cowbell": 56,
	}
	for name, midi := range drumKeys {
		midi := midi
		m[name] = func(args *value.Args) (value.Value, error) {
			return value.PitchVal(pitch.Pitch{MIDI: midi}), nil
		}
	}

	// --- Vocal helpers ---

	m["syllables"] = func(args *value.Args) (value.Value, error) {
		text, err := requireString(args, 0, "syllables")
		if err != nil {
			return value.Null, err
		}
		parts := strings.Fields(text)
		var out []value.Value
		for _, p := range parts {
			out = append(out, value.String(p))
		}
		return value.ArrayVal(out), nil
	}

	// --- Math utilities ---

	m["min"] = func(args *value.Args) (value.Value, error) { return numFold(args, "min", math.Min) }
	m["max"] = func(args *value.Args) (value.Value, error) { return numFold(args, "max", math.Max) }
	m["abs"] = func(args *value.Args) (value.Value, error) {
		n, err := requireNumber(args, 0, "abs")
		if err != nil {
			return value.Null, err
		}
		return value.Number(math.Abs(n)), nil
	}
	m["floor"] = func(args *value.Args) (value.Value, error) {
		n, err := requireNumber(args, 0, "floor")
		if err != nil {
			return value.Null, err
		}
		return value.Number(math.Floor(n)), nil
	}
	m["ceil"] = func(args *value.Args) (value.Value, error) {
		n, err := requireNumber(args, 0, "ceil")
		if err != nil {
			return value.Null, err
		}
		return value.Number(math.Ceil(n)), nil
	}
	m["round"] = func(args *value.Args) (value.Value, error) {
		n, err := requireNumber(args, 0, "round")
		if err != nil {
			return value.Null, err
		}
		return value.Number(math.Round(n)), nil
	}

	// --- Array/string primitives ---

	m["len"] = func(args *value.Args) (value.Value, error) {
		v, ok := args.Get(0)
		if !ok {
			return value.Null, argErr("len", "expects 1 argument, got 0")
		}
		switch v.Kind {
		case value.KindArray:
			return value.Number(float64(len(v.Array))), nil
		case value.KindString:
			return value.Number(float64(len(v.Str))), nil
		case value.KindObject:
			return value.Number(float64(len(v.Object.Keys))), nil
		default:
			return value.Null, argErr("len", "expects an array, string, or object, got %s", value.TypeName(v))
		}
	}

	m["push"] = func(args *value.Args) (value.Value, error) {
		v, ok := args.Get(0)
		if !ok || v.Kind != value.KindArray {
			return value.Null, argErr("push", "expects an array as the first argument")
		}
		elem, _ := args.Get(1)
		return value.ArrayVal(append(append([]value.Value{}, v.Array...), elem)), nil
	}

	m["join"] = func(args *value.Args) (value.Value, error) {
		v, ok := args.Get(0)
		if !ok || v.Kind != value.KindArray {
			return value.Null, argErr("join", "expects an array as the first argument")
		}
		sep := ""
		if s, ok := args.Get(1); ok {
			sep = s.Str
		}
		parts := make([]string, len(v.Array))
		for i, e := range v.Array {
			parts[i] = e.String()
		}
		return value.String(strings.Join(parts, sep)), nil
	}

	m["split"] = func(args *value.Args) (value.Value, error) {
		s, err := requireString(args, 0, "split")
		if err != nil {
			return value.Null, err
		}
		sep, err := requireString(args, 1, "split")
		if err != nil {
			return value.Null, err
		}
		var out []value.Value
		for _, p := range strings.Split(s, sep) {
			out = append(out, value.String(p))
		}
		return value.ArrayVal(out), nil
	}

	m["map"] = func(args *value.Args) (value.Value, error) {
		v, ok := args.Get(0)
		if !ok || v.Kind != value.KindArray {
			return value.Null, argErr("map", "expects an array as the first argument")
		}
		fnv, ok := args.Get(1)
		if !ok || fnv.Kind != value.KindFunction {
			return value.Null, argErr("map", "expects a function as the second argument")
		}
		out := make([]value.Value, len(v.Array))
		for i, e := range v.Array {
			r, err := caller.Call(fnv, &value.Args{Positional: []value.Value{e, value.Number(float64(i))}}, token.Position{})
			if err != nil {
				return value.Null, err
			}
			out[i] = r
		}
		return value.ArrayVal(out), nil
	}

	m["filter"] = func(args *value.Args) (value.Value, error) {
		v, ok := args.Get(0)
		if !ok || v.Kind != value.KindArray {
			return value.Null, argErr("filter", "expects an array as the first argument")
		}
		fnv, ok := args.Get(1)
		if !ok || fnv.Kind != value.KindFunction {
			return value.Null, argErr("filter", "expects a function as the second argument")
		}
		var out []value.Value
		for i, e := range v.Array {
			r, err := caller.Call(fnv, &value.Args{Positional: []value.Value{e, value.Number(float64(i))}}, token.Position{})
			if err != nil {
				return value.Null, err
			}
			if value.Truthy(r) {
				out = append(out, e)
			}
		}
		return value.ArrayVal(out), nil
	}

	m["reduce"] = func(args *value.Args) (value.Value, error) {
		v, ok := args.Get(0)
		if !ok || v.Kind != value.KindArray {
			return value.Null, argErr("reduce", "expects an array as the first argument")
		}
		fnv, ok := args.Get(1)
		if !ok || fnv.Kind != value.KindFunction {
			return value.Null, argErr("reduce", "expects a function as the second argument")
		}
		acc, _ := args.Get(2)
		for i, e := range v.Array {
			r, err := caller.Call(fnv, &value.Args{Positional: []value.Value{acc, e, value.Number(float64(i))}}, token.Position{})
			if err != nil {
				return value.Null, err
			}
			acc = r
		}
		return acc, nil
	}

	return m
}

func requireClip(args *value.Args, i int, name string) (*value.Clip, error) {
	v, ok := args.Get(i)
	if !ok || v.Kind != value.KindClip {
		return nil, argErr(name, "expects a clip at argument %d", i)
	}
	return v.Clip, nil
}

func requireInt(args *value.Args, i int, name string) (int64, error) {
	v, ok := args.Get(i)
	if !ok || v.Kind != value.KindNumber {
		return 0, argErr(name, "expects a number at argument %d", i)
	}
	return int64(v.Number), nil
}

func requireNumber(args *value.Args, i int, name string) (float64, error) {
	v, ok := args.Get(i)
	if !ok || v.Kind != value.KindNumber {
		return 0, argErr(name, "expects a number at argument %d", i)
	}
	return v.Number, nil
}

func requireString(args *value.Args, i int, name string) (string, error) {
	v, ok := args.Get(i)
	if !ok || v.Kind != value.KindString {
		return "", argErr(name, "expects a string at argument %d", i)
	}
	return v.Str, nil
}

func requirePitch(args *value.Args, i int, name string) (pitch.Pitch, error) {
	v, ok := args.Get(i)
	if !ok || v.Kind != value.KindPitch {
		return pitch.Pitch{}, argErr(name, "expects a pitch at argument %d", i)
	}
	return v.Pitch, nil
}

func requireRat(args *value.Args, i int, name string) (rational.Rat, error) {
	v, ok := args.Get(i)
	if !ok {
		return rational.Zero, argErr(name, "expects a rational or number at argument %d", i)
	}
	switch v.Kind {
	case value.KindRat:
		return v.Rat, nil
	case value.KindNumber:
		return rational.New(int64(v.Number*1e6), 1e6)
	default:
		return rational.Zero, argErr(name, "expects a rational or number at argument %d, got %s", i, value.TypeName(v))
	}
}

func numFold(args *value.Args, name string, op func(a, b float64) float64) (value.Value, error) {
	if len(args.Positional) == 0 {
		return value.Null, argErr(name, "expects at least 1 argument")
	}
	acc, err := requireNumber(args, 0, name)
	if err != nil {
		return value.Null, err
	}
	for i := 1; i < len(args.Positional); i++ {
		n, err := requireNumber(args, i, name)
		if err != nil {
			return value.Null, err
		}
		acc = op(acc, n)
	}
	return value.Number(acc), nil
}

func totalDuration(c *value.Clip) rational.Rat {
	max := rational.Zero
	for _, ev := range c.Events {
		if ev.Start.Kind != position.KindRat {
			continue
		}
		end := ev.Start.Rat.Add(ev.Duration)
		if end.Cmp(max) > 0 {
			max = end
		}
	}
	return max
}

func scalePos(p position.Pos, factor rational.Rat) position.Pos {
	if p.Kind == position.KindRat {
		return position.FromRat(p.Rat.Mul(factor))
	}
	return p
}

func quantizePos(p position.Pos, grid rational.Rat) position.Pos {
	if p.Kind != position.KindRat || grid.IsZero() {
		return p
	}
	div, err := p.Rat.Div(grid)
	if err != nil {
		return p
	}
	rounded := math.Round(div.Float64())
	return position.FromRat(grid.Mul(rational.FromInt(int64(rounded))))
}

// euclideanRhythm distributes `pulses` onsets as evenly as possible across
// `steps` slots with a running-remainder accumulator. Each onset falls on the
// last slot of its group, so the result is a rotation of the Bjorklund
// pattern (8 steps, 3 pulses gives ..x..x.x) rather than one starting on
// step 0.
func euclideanRhythm(steps, pulses int) []bool {
	if steps <= 0 {
		return nil
	}
	if pulses <= 0 {
		return make([]bool, steps)
	}
	if pulses > steps {
		pulses = steps
	}
	pattern := make([]bool, steps)
	bucket := 0
	for i := 0; i < steps; i++ {
		bucket += pulses
		if bucket >= steps {
			bucket -= steps
			pattern[i] = true
		}
	}
	return pattern
}

func eventToObject(ev value.Event) value.Value {
	o := value.NewObject()
	o.Set("type", value.String(ev.Type.String()))
	o.Set("start", value.PosVal(ev.Start))
	o.Set("duration", value.RatVal(ev.Duration))
	if ev.Type == value.EventNote {
		o.Set("pitch", value.PitchVal(ev.Pitch))
	}
	return value.ObjectVal(o)
}

func objectToEvent(v value.Value, orig value.Event) (value.Event, error) {
	if v.Kind != value.KindObject {
		return value.Event{}, fmt.Errorf("mapEvents: callback must return an object, got %s", value.TypeName(v))
	}
	out := orig
	if start, ok := v.Object.Get("start"); ok && start.Kind == value.KindPos {
		out.Start = start.Pos
	}
	if dur, ok := v.Object.Get("duration"); ok && dur.Kind == value.KindRat {
		out.Duration = dur.Rat
	}
	if p, ok := v.Object.Get("pitch"); ok && p.Kind == value.KindPitch {
		out.Pitch = p.Pitch
	}
	return out, nil
}
