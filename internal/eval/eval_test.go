package eval

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tako-lang/tako/internal/module"
	"github.com/tako-lang/tako/internal/parser"
	"github.com/tako-lang/tako/internal/scope"
	"github.com/tako-lang/tako/internal/value"
)

func mustParse(t *testing.T, src string) *scope.Scope {
	t.Helper()
	prog, err := parser.Parse(src, "test.mf")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	ev := New(nil)
	graph := map[string]*module.Module{"test.mf": {Path: "test.mf", Program: prog, Resolved: map[string]string{}}}
	scopes, err := ev.EvalGraph(graph)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	return scopes["test.mf"]
}

func TestArithmeticAndCall(t *testing.T) {
	sc := mustParse(t, `
fn add(a, b) -> number { return a + b; }
const result = add(2, 3);
`)
	v, ok := sc.Get("result")
	if !ok || v.Number != 5 {
		t.Fatalf("want 5, got %v ok=%v", v, ok)
	}
}

func TestDefaultParamAndNamedArg(t *testing.T) {
	sc := mustParse(t, `
fn greet(name, times = 2) -> number { return times; }
const a = greet("x");
const b = greet("x", times: 5);
`)
	a, _ := sc.Get("a")
	if a.Number != 2 {
		t.Fatalf("want default 2, got %v", a)
	}
	b, _ := sc.Get("b")
	if b.Number != 5 {
		t.Fatalf("want named arg 5, got %v", b)
	}
}

func TestIfElseChain(t *testing.T) {
	sc := mustParse(t, `
fn classify(n) -> string {
  if n < 0 { return "neg"; } else if n == 0 { return "zero"; } else { return "pos"; }
}
const a = classify(-1);
const b = classify(0);
const c = classify(5);
`)
	a, _ := sc.Get("a")
	b, _ := sc.Get("b")
	c, _ := sc.Get("c")
	if a.Str != "neg" || b.Str != "zero" || c.Str != "pos" {
		t.Fatalf("got %q %q %q", a.Str, b.Str, c.Str)
	}
}

func TestForLoopOverRange(t *testing.T) {
	sc := mustParse(t, `
fn sumRange() -> number {
  let total = 0;
  for i in 1..=3 {
    total = total + i;
  }
  return total;
}
const total = sumRange();
`)
	total, ok := sc.Get("total")
	if !ok || total.Number != 6 {
		t.Fatalf("want 6, got %v ok=%v", total, ok)
	}
}

func TestMatchExpr(t *testing.T) {
	sc := mustParse(t, `
fn label(n) -> string {
  return match n {
    1 -> "one",
    2 -> "two",
    _ -> "many",
  };
}
const a = label(1);
const b = label(9);
`)
	a, _ := sc.Get("a")
	b, _ := sc.Get("b")
	if a.Str != "one" || b.Str != "many" {
		t.Fatalf("got %q %q", a.Str, b.Str)
	}
}

func TestClipCursorAdvancesByDuration(t *testing.T) {
	sc := mustParse(t, `
const melody = clip {
  note C4 1/4;
  note D4 1/4;
  rest 1/4;
  note E4 1/4;
};
`)
	v, ok := sc.Get("melody")
	if !ok || v.Kind != value.KindClip {
		t.Fatalf("want clip, got %v ok=%v", v, ok)
	}
	if len(v.Clip.Events) != 3 {
		t.Fatalf("want 3 note events, got %d", len(v.Clip.Events))
	}
	starts := []float64{0, 0.25, 0.75}
	for i, ev := range v.Clip.Events {
		if ev.Start.Rat.Float64() != starts[i] {
			t.Errorf("event %d: want start %v, got %v", i, starts[i], ev.Start.Rat.Float64())
		}
	}
}

func TestScoreTempoMeterSoundTrackRoleMismatchWarns(t *testing.T) {
	ev := New(nil)
	src := `
const piece = score {
  meta { title: "Test" }
  tempo { 1:1 -> 120bpm; }
  meter { 1:1 -> 4/4; }
  sound "kick" kind drumKit {};
  track "lead" role Instrument sound "kick" {
    place 1:1 clip { note C4 1/4; };
  }
};
`
	prog, err := parser.Parse(src, "test.mf")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	graph := map[string]*module.Module{"test.mf": {Path: "test.mf", Program: prog, Resolved: map[string]string{}}}
	scopes, err := ev.EvalGraph(graph)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	v, ok := scopes["test.mf"].Get("piece")
	if !ok || v.Kind != value.KindScore {
		t.Fatalf("want score, got %v ok=%v", v, ok)
	}
	sco := v.Score
	if len(sco.TempoMap) != 1 || sco.TempoMap[0].BPM != 120 {
		t.Fatalf("want one tempo entry at 120bpm, got %+v", sco.TempoMap)
	}
	if len(sco.MeterMap) != 1 || sco.MeterMap[0].Numerator != 4 || sco.MeterMap[0].Denominator != 4 {
		t.Fatalf("want 4/4 meter, got %+v", sco.MeterMap)
	}
	if len(sco.Tracks) != 1 || len(sco.Tracks[0].Placements) != 1 {
		t.Fatalf("want one track with one placement, got %+v", sco.Tracks)
	}
	foundWarn := false
	for _, d := range ev.Diags.All() {
		if d.Code == "role_sound_mismatch" {
			foundWarn = true
		}
	}
	if !foundWarn {
		t.Fatal("want a role_sound_mismatch warning (Instrument track using a drumKit sound)")
	}
}

func TestCyclicImportResolvesViaTwoPhaseRegistration(t *testing.T) {
	dir := t.TempDir()
	writeModFile(t, dir, "a.mf", `import { b } from "./b.mf";
export fn a() -> number { return 1; }
export const usesB = b();`)
	entry := writeModFile(t, dir, "b.mf", `import { a } from "./a.mf";
export fn b() -> number { return a() + 1; }`)

	l, err := module.NewLoader(dir, "")
	if err != nil {
		t.Fatalf("NewLoader: %v", err)
	}
	graph, err := l.LoadEntry(entry)
	if err != nil {
		t.Fatalf("LoadEntry: %v", err)
	}
	ev := New(nil)
	scopes, err := ev.EvalGraph(graph)
	if err != nil {
		t.Fatalf("EvalGraph: %v", err)
	}
	var aPath string
	for p := range graph {
		if filepath.Base(p) == "a.mf" {
			aPath = p
		}
	}
	v, ok := scopes[aPath].Get("usesB")
	if !ok || v.Number != 2 {
		t.Fatalf("want usesB == 2 (a()=1, b()=a()+1=2), got %v ok=%v", v, ok)
	}
}

func writeModFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}
