package rational

import "testing"

func TestNewReducesAndNormalizesSign(t *testing.T) {
	r, err := New(2, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.N != 1 || r.D != 2 {
		t.Fatalf("want 1/2, got %d/%d", r.N, r.D)
	}

	neg, err := New(3, -6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if neg.N != -1 || neg.D != 2 {
		t.Fatalf("want -1/2, got %d/%d", neg.N, neg.D)
	}
}

func TestNewRejectsZeroDenominator(t *testing.T) {
	if _, err := New(1, 0); err == nil {
		t.Fatal("expected error for zero denominator")
	}
}

func TestArithmeticExact(t *testing.T) {
	third := MustNew(1, 3)
	twoThirds := MustNew(2, 3)
	sum := third.Add(twoThirds)
	if !sum.Equal(FromInt(1)) {
		t.Fatalf("1/3 + 2/3 should be exactly 1, got %v", sum)
	}
}

func TestDivByZero(t *testing.T) {
	one := FromInt(1)
	if _, err := one.Div(Zero); err == nil {
		t.Fatal("expected error dividing by zero")
	}
}

func TestCmp(t *testing.T) {
	half := MustNew(1, 2)
	third := MustNew(1, 3)
	if half.Cmp(third) <= 0 {
		t.Fatalf("1/2 should be > 1/3")
	}
	if third.Cmp(half) >= 0 {
		t.Fatalf("1/3 should be < 1/2")
	}
	if half.Cmp(MustNew(2, 4)) != 0 {
		t.Fatalf("1/2 should equal 2/4")
	}
}

func TestReduceIsIdempotent(t *testing.T) {
	r := MustNew(6, 8)
	if r.Reduce() != r.Reduce().Reduce() {
		t.Fatalf("reduce should be idempotent")
	}
}

func TestFloat64Conversion(t *testing.T) {
	r := MustNew(1, 4)
	if r.Float64() != 0.25 {
		t.Fatalf("want 0.25, got %v", r.Float64())
	}
}
