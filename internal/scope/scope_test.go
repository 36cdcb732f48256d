package scope

import (
	"testing"

	"github.com/tako-lang/tako/internal/value"
)

func TestDefineAndGet(t *testing.T) {
	s := Root()
	s.Define("x", value.Number(42), false)
	v, ok := s.Get("x")
	if !ok || v.Number != 42 {
		t.Fatalf("want 42, got %v ok=%v", v, ok)
	}
}

func TestGetWalksParent(t *testing.T) {
	root := Root()
	root.Define("x", value.Number(1), false)
	child := New(root)
	v, ok := child.Get("x")
	if !ok || v.Number != 1 {
		t.Fatalf("want to find parent binding, got %v ok=%v", v, ok)
	}
}

func TestShadowing(t *testing.T) {
	root := Root()
	root.Define("x", value.Number(1), false)
	child := New(root)
	child.Define("x", value.Number(2), false)

	v, _ := child.Get("x")
	if v.Number != 2 {
		t.Fatalf("child shadow should win, got %v", v)
	}
	v, _ = root.Get("x")
	if v.Number != 1 {
		t.Fatalf("parent binding should be untouched, got %v", v)
	}
}

func TestAssignMutable(t *testing.T) {
	s := Root()
	s.Define("x", value.Number(1), true)
	if err := s.Assign("x", value.Number(2)); err != nil {
		t.Fatalf("assign: %v", err)
	}
	v, _ := s.Get("x")
	if v.Number != 2 {
		t.Fatalf("want 2 after assign, got %v", v)
	}
}

func TestAssignImmutableFails(t *testing.T) {
	s := Root()
	s.Define("x", value.Number(1), false)
	if err := s.Assign("x", value.Number(2)); err == nil {
		t.Fatal("expected error assigning to const binding")
	}
}

func TestAssignUndefinedFails(t *testing.T) {
	s := Root()
	if err := s.Assign("missing", value.Number(1)); err == nil {
		t.Fatal("expected error assigning to undefined name")
	}
}

func TestAssignThroughParent(t *testing.T) {
	root := Root()
	root.Define("x", value.Number(1), true)
	child := New(root)
	if err := child.Assign("x", value.Number(9)); err != nil {
		t.Fatalf("assign: %v", err)
	}
	v, _ := root.Get("x")
	if v.Number != 9 {
		t.Fatalf("want parent mutated to 9, got %v", v)
	}
}

func TestNamesDeduplicatesAcrossFrames(t *testing.T) {
	root := Root()
	root.DefineIntrinsic("transpose", value.Null)
	root.Define("melody", value.Null, false)
	child := New(root)
	child.Define("melody", value.Null, false)
	names := child.Names()
	count := 0
	for _, n := range names {
		if n == "melody" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("want melody deduplicated once, got %d times in %v", count, names)
	}
}
