package parser

import (
	"testing"

	"github.com/tako-lang/tako/internal/ast"
)

func parseOK(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := Parse(src, "t.mf")
	if err != nil {
		t.Fatalf("unexpected parse error for %q: %v", src, err)
	}
	return prog
}

func TestParseMinimalFunction(t *testing.T) {
	prog := parseOK(t, `fn main() -> Score { return score {}; }`)
	if len(prog.Body) != 1 {
		t.Fatalf("want 1 top-level decl, got %d", len(prog.Body))
	}
	fn, ok := prog.Body[0].(*ast.FnDecl)
	if !ok {
		t.Fatalf("want FnDecl, got %T", prog.Body[0])
	}
	if fn.Name != "main" || fn.ReturnType != "Score" {
		t.Fatalf("unexpected fn: %+v", fn)
	}
	if len(fn.Body.Stmts) != 1 {
		t.Fatalf("want 1 stmt in body, got %d", len(fn.Body.Stmts))
	}
	ret, ok := fn.Body.Stmts[0].(*ast.Return)
	if !ok {
		t.Fatalf("want Return, got %T", fn.Body.Stmts[0])
	}
	if _, ok := ret.Value.(*ast.ScoreExpr); !ok {
		t.Fatalf("want ScoreExpr return value, got %T", ret.Value)
	}
}

func TestParseImportNamed(t *testing.T) {
	prog := parseOK(t, `import { euclid, gm } from "std:patterns";
fn main() {}`)
	if len(prog.Imports) != 1 {
		t.Fatalf("want 1 import, got %d", len(prog.Imports))
	}
	imp := prog.Imports[0]
	if imp.Path != "std:patterns" || len(imp.Names) != 2 {
		t.Fatalf("unexpected import: %+v", imp)
	}
}

func TestParseImportNamespace(t *testing.T) {
	prog := parseOK(t, `import * as theory from "std:theory";
fn main() {}`)
	imp := prog.Imports[0]
	if !imp.Namespace || imp.Alias != "theory" {
		t.Fatalf("unexpected namespace import: %+v", imp)
	}
}

func TestParseBinaryPrecedence(t *testing.T) {
	prog := parseOK(t, `const x = 1 + 2 * 3;
fn main() {}`)
	cd := prog.Body[0].(*ast.ConstDecl)
	bin, ok := cd.Value.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("want top-level BinaryExpr, got %T", cd.Value)
	}
	// 1 + (2 * 3): left is IntLit(1), right is BinaryExpr(2*3)
	if _, ok := bin.Left.(*ast.IntLit); !ok {
		t.Fatalf("want IntLit left, got %T", bin.Left)
	}
	mul, ok := bin.Right.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("want nested BinaryExpr right, got %T", bin.Right)
	}
	if mul.Left.(*ast.IntLit).Value != 2 || mul.Right.(*ast.IntLit).Value != 3 {
		t.Fatalf("unexpected multiplication operands: %+v", mul)
	}
}

func TestParseCallWithNamedArgs(t *testing.T) {
	prog := parseOK(t, `const x = transpose(clip: c, by: 2);
fn main() {}`)
	cd := prog.Body[0].(*ast.ConstDecl)
	call, ok := cd.Value.(*ast.CallExpr)
	if !ok {
		t.Fatalf("want CallExpr, got %T", cd.Value)
	}
	if len(call.Args) != 2 || call.Args[0].Name != "clip" || call.Args[1].Name != "by" {
		t.Fatalf("unexpected args: %+v", call.Args)
	}
}

func TestParseIfElseChain(t *testing.T) {
	prog := parseOK(t, `fn main() { if x { let a = 1; } else if y { let b = 2; } else { let c = 3; } }`)
	fn := prog.Body[0].(*ast.FnDecl)
	ifStmt := fn.Body.Stmts[0].(*ast.If)
	elseIf, ok := ifStmt.Else.(*ast.If)
	if !ok {
		t.Fatalf("want else-if chain, got %T", ifStmt.Else)
	}
	if _, ok := elseIf.Else.(*ast.Block); !ok {
		t.Fatalf("want trailing else block, got %T", elseIf.Else)
	}
}

func TestParseForLoop(t *testing.T) {
	prog := parseOK(t, `fn main() { for x in 1..4 { let y = x; } }`)
	fn := prog.Body[0].(*ast.FnDecl)
	forStmt := fn.Body.Stmts[0].(*ast.For)
	rng, ok := forStmt.Iter.(*ast.RangeExpr)
	if !ok {
		t.Fatalf("want RangeExpr, got %T", forStmt.Iter)
	}
	if rng.Inclusive {
		t.Fatal("want exclusive range for ..")
	}
}

func TestParseMatchExpr(t *testing.T) {
	prog := parseOK(t, `const x = match n { 1 -> "one", 2 -> "two", _ -> "other" };
fn main() {}`)
	cd := prog.Body[0].(*ast.ConstDecl)
	m, ok := cd.Value.(*ast.MatchExpr)
	if !ok {
		t.Fatalf("want MatchExpr, got %T", cd.Value)
	}
	if len(m.Arms) != 3 || !m.Arms[2].Default {
		t.Fatalf("unexpected arms: %+v", m.Arms)
	}
}

func TestParseScoreWithTrackAndPlace(t *testing.T) {
	src := `fn main() -> Score {
		return score {
			meta { title: "demo" }
			tempo { 1:1 -> 120bpm; }
			meter { 1:1 -> 4/4; }
			sound "kick" kind drumKit {}
			track "drums" role Drums sound "kick" {
				place 1:1 clip { note C4 1/4; };
			}
		};
	}`
	prog := parseOK(t, src)
	fn := prog.Body[0].(*ast.FnDecl)
	ret := fn.Body.Stmts[0].(*ast.Return)
	sc := ret.Value.(*ast.ScoreExpr)
	if len(sc.Fields) != 5 {
		t.Fatalf("want 5 score fields, got %d: %+v", len(sc.Fields), sc.Fields)
	}
	tempo, ok := sc.Fields[1].(*ast.TempoField)
	if !ok || len(tempo.Entries) != 1 {
		t.Fatalf("want 1-entry TempoField, got %T %+v", sc.Fields[1], sc.Fields[1])
	}
	if _, ok := tempo.Entries[0].BPM.(*ast.TempoLit); !ok {
		t.Fatalf("want TempoLit bpm, got %T", tempo.Entries[0].BPM)
	}
	meter, ok := sc.Fields[2].(*ast.MeterField)
	if !ok || len(meter.Entries) != 1 {
		t.Fatalf("want 1-entry MeterField, got %T %+v", sc.Fields[2], sc.Fields[2])
	}
	sound, ok := sc.Fields[3].(*ast.SoundField)
	if !ok || sound.Name != "kick" || sound.Kind != "drumKit" {
		t.Fatalf("unexpected sound field: %+v", sc.Fields[3])
	}
	track, ok := sc.Fields[4].(*ast.TrackField)
	if !ok {
		t.Fatalf("want TrackField, got %T", sc.Fields[4])
	}
	if track.Role != "Drums" || track.Sound != "kick" || len(track.Stmts) != 1 {
		t.Fatalf("unexpected track: %+v", track)
	}
	place, ok := track.Stmts[0].(*ast.PlaceStmt)
	if !ok {
		t.Fatalf("want PlaceStmt, got %T", track.Stmts[0])
	}
	if _, ok := place.At.(*ast.PosRefLit); !ok {
		t.Fatalf("want PosRefLit placement position, got %T", place.At)
	}
}

func TestParseClipNoteChordRestAtBreathHitCCAutomationMarker(t *testing.T) {
	src := `fn main() -> Clip {
		return clip {
			note C4 1/4;
			chord [C4, E4, G4] 1/2 with { vel: 90 };
			rest 1/8;
			at 2:1;
			breath 1/16 0.5;
			hit kick 1/8 with { vel: 100 };
			cc 64 127;
			automation "gain" 0 1 curveRef;
			marker "section" "verse 1";
		};
	}`
	prog := parseOK(t, src)
	fn := prog.Body[0].(*ast.FnDecl)
	ret := fn.Body.Stmts[0].(*ast.Return)
	clip := ret.Value.(*ast.ClipExpr)
	if len(clip.Stmts) != 9 {
		t.Fatalf("want 9 clip statements, got %d: %+v", len(clip.Stmts), clip.Stmts)
	}
	note, ok := clip.Stmts[0].(*ast.NoteStmt)
	if !ok {
		t.Fatalf("want NoteStmt, got %T", clip.Stmts[0])
	}
	if _, ok := note.Pitch.(*ast.PitchLit); !ok {
		t.Fatalf("want PitchLit pitch, got %T", note.Pitch)
	}
	chord, ok := clip.Stmts[1].(*ast.ChordStmt)
	if !ok {
		t.Fatalf("want ChordStmt, got %T", clip.Stmts[1])
	}
	if len(chord.Pitches) != 3 || chord.With == nil {
		t.Fatalf("unexpected chord: %+v", chord)
	}
	if _, ok := clip.Stmts[2].(*ast.RestStmt); !ok {
		t.Fatalf("want RestStmt, got %T", clip.Stmts[2])
	}
	atStmt, ok := clip.Stmts[3].(*ast.AtStmt)
	if !ok {
		t.Fatalf("want AtStmt, got %T", clip.Stmts[3])
	}
	if _, ok := atStmt.At.(*ast.PosRefLit); !ok {
		t.Fatalf("want PosRefLit cursor target, got %T", atStmt.At)
	}
	breath, ok := clip.Stmts[4].(*ast.BreathStmt)
	if !ok || breath.Intensity == nil {
		t.Fatalf("want BreathStmt with intensity, got %T %+v", clip.Stmts[4], clip.Stmts[4])
	}
	hit, ok := clip.Stmts[5].(*ast.HitStmt)
	if !ok || hit.With == nil {
		t.Fatalf("want HitStmt with options, got %T", clip.Stmts[5])
	}
	if _, ok := clip.Stmts[6].(*ast.CCStmt); !ok {
		t.Fatalf("want CCStmt, got %T", clip.Stmts[6])
	}
	auto, ok := clip.Stmts[7].(*ast.AutomationStmt)
	if !ok {
		t.Fatalf("want AutomationStmt, got %T", clip.Stmts[7])
	}
	if _, ok := auto.Param.(*ast.StringLit); !ok {
		t.Fatalf("want string automation param, got %T", auto.Param)
	}
	marker, ok := clip.Stmts[8].(*ast.MarkerStmt)
	if !ok || marker.At != nil {
		t.Fatalf("want clip-level MarkerStmt with nil At, got %T %+v", clip.Stmts[8], clip.Stmts[8])
	}
}

func TestParseDurationAndPosRefLiterals(t *testing.T) {
	prog := parseOK(t, `const a = 1/4.;
const b = 1:2:3;
fn main() {}`)
	dur := prog.Body[0].(*ast.ConstDecl).Value.(*ast.DurationLit)
	if dur.Num != 1 || dur.Den != 4 || dur.Dots != 1 {
		t.Fatalf("unexpected duration: %+v", dur)
	}
	pr := prog.Body[1].(*ast.ConstDecl).Value.(*ast.PosRefLit)
	if pr.Bar != 1 || pr.Beat != 2 || pr.Sub != 3 || !pr.HasSub {
		t.Fatalf("unexpected posref: %+v", pr)
	}
}

func TestParseUnaryAndMemberIndex(t *testing.T) {
	prog := parseOK(t, `const x = -obj.field[0];
fn main() {}`)
	un := prog.Body[0].(*ast.ConstDecl).Value.(*ast.UnaryExpr)
	idx, ok := un.Operand.(*ast.IndexExpr)
	if !ok {
		t.Fatalf("want IndexExpr operand, got %T", un.Operand)
	}
	if _, ok := idx.Target.(*ast.MemberExpr); !ok {
		t.Fatalf("want MemberExpr target, got %T", idx.Target)
	}
}

func TestParseErrorOnMissingSemicolon(t *testing.T) {
	if _, err := Parse(`const x = 1
fn main() {}`, "t.mf"); err == nil {
		t.Fatal("expected syntax error for missing semicolon")
	}
}
