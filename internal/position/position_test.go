package position

import (
	"testing"

	"github.com/tako-lang/tako/internal/rational"
)

func TestFromRefRejectsNonPositive(t *testing.T) {
	if _, err := FromRef(0, 1); err == nil {
		t.Fatal("expected error for bar 0")
	}
	if _, err := FromRef(1, 0); err == nil {
		t.Fatal("expected error for beat 0")
	}
}

func TestAddRatOnRatIsExact(t *testing.T) {
	p := FromRat(rational.MustNew(1, 4))
	shifted := p.AddRat(rational.MustNew(1, 4))
	if !shifted.Rat.Equal(rational.MustNew(1, 2)) {
		t.Fatalf("want 1/2, got %v", shifted.Rat)
	}
}

func TestAddRatOnRefBecomesExpr(t *testing.T) {
	p, _ := FromRef(3, 2)
	shifted := p.AddRat(rational.MustNew(1, 4))
	if shifted.Kind != KindExpr {
		t.Fatalf("want KindExpr, got %v", shifted.Kind)
	}
	if shifted.Bar != 3 || shifted.Beat != 2 {
		t.Fatalf("base bar:beat should be preserved, got %d:%d", shifted.Bar, shifted.Beat)
	}
}

func TestEqual(t *testing.T) {
	a, _ := FromRef(1, 1)
	b, _ := FromRef(1, 1)
	if !a.Equal(b) {
		t.Fatal("identical refs should be equal")
	}
	c := FromRat(rational.Zero)
	if a.Equal(c) {
		t.Fatal("different kinds should not be equal")
	}
}
