package value

import (
	"testing"

	"github.com/tako-lang/tako/internal/position"
	"github.com/tako-lang/tako/internal/rational"
)

func TestTruthy(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Null, false},
		{Bool(false), false},
		{Bool(true), true},
		{Number(0), false},
		{Number(1), true},
		{String(""), false},
		{String("x"), true},
		{ArrayVal(nil), true},
	}
	for _, c := range cases {
		if got := Truthy(c.v); got != c.want {
			t.Errorf("Truthy(%v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestEqualDeepArray(t *testing.T) {
	a := ArrayVal([]Value{Number(1), String("x")})
	b := ArrayVal([]Value{Number(1), String("x")})
	c := ArrayVal([]Value{Number(1), String("y")})
	if !Equal(a, b) {
		t.Fatal("expected deep-equal arrays to compare equal")
	}
	if Equal(a, c) {
		t.Fatal("expected differing arrays to compare unequal")
	}
}

func TestEqualRat(t *testing.T) {
	a := RatVal(rational.MustNew(1, 2))
	b := RatVal(rational.MustNew(2, 4))
	if !Equal(a, b) {
		t.Fatal("expected equivalent reduced rationals to compare equal")
	}
}

func TestObjectPreservesInsertionOrder(t *testing.T) {
	o := NewObject()
	o.Set("b", Number(2))
	o.Set("a", Number(1))
	o.Set("b", Number(20))
	if len(o.Keys) != 2 {
		t.Fatalf("want 2 keys after overwrite, got %d", len(o.Keys))
	}
	if o.Keys[0] != "b" || o.Keys[1] != "a" {
		t.Fatalf("want insertion order [b a], got %v", o.Keys)
	}
	v, ok := o.Get("b")
	if !ok || v.Number != 20 {
		t.Fatalf("want overwritten value 20, got %v ok=%v", v, ok)
	}
}

func TestPositionEqual(t *testing.T) {
	a := PosVal(position.FromRat(rational.MustNew(1, 4)))
	b := PosVal(position.FromRat(rational.MustNew(1, 4)))
	if !Equal(a, b) {
		t.Fatal("expected equal position values to compare equal")
	}
}
