// Package rational implements exact arithmetic over reduced fractions, the
// foundation for every duration and position the compiler manipulates
// (spec.md §3.1).
package rational

import "fmt"

// Rat is an exact fraction in lowest terms with a positive denominator.
// The zero value is not a valid Rat — always construct with New.
type Rat struct {
	N int64 // numerator, carries the sign
	D int64 // denominator, always > 0
}

// Zero is the additive identity.
var Zero = Rat{N: 0, D: 1}

// New builds a reduced Rat. Construction normalizes: divide both terms by
// their GCD, then flip signs so the denominator is positive. A zero
// denominator is rejected.
func New(n, d int64) (Rat, error) {
	if d == 0 {
		return Rat{}, fmt.Errorf("rational: zero denominator")
	}
	if d < 0 {
		n, d = -n, -d
	}
	if n == 0 {
		return Rat{N: 0, D: 1}, nil
	}
	g := gcd(abs(n), d)
	return Rat{N: n / g, D: d / g}, nil
}

// MustNew is New but panics on error; only safe for literal constants
// known at compile time of this package (e.g. test fixtures).
func MustNew(n, d int64) Rat {
	r, err := New(n, d)
	if err != nil {
		panic(err)
	}
	return r
}

// FromInt wraps a whole number as n/1.
func FromInt(n int64) Rat { return Rat{N: n, D: 1} }

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

// Add returns r + o.
func (r Rat) Add(o Rat) Rat {
	res, _ := New(r.N*o.D+o.N*r.D, r.D*o.D)
	return res
}

// Sub returns r - o.
func (r Rat) Sub(o Rat) Rat {
	res, _ := New(r.N*o.D-o.N*r.D, r.D*o.D)
	return res
}

// Mul returns r * o.
func (r Rat) Mul(o Rat) Rat {
	res, _ := New(r.N*o.N, r.D*o.D)
	return res
}

// Div returns r / o. Dividing by zero returns an error.
func (r Rat) Div(o Rat) (Rat, error) {
	if o.N == 0 {
		return Rat{}, fmt.Errorf("rational: division by zero")
	}
	return New(r.N*o.D, r.D*o.N)
}

// Neg returns -r.
func (r Rat) Neg() Rat {
	return Rat{N: -r.N, D: r.D}
}

// Cmp compares r and o: -1, 0, or 1.
func (r Rat) Cmp(o Rat) int {
	lhs := r.N * o.D
	rhs := o.N * r.D
	switch {
	case lhs < rhs:
		return -1
	case lhs > rhs:
		return 1
	default:
		return 0
	}
}

// Equal reports whether r and o denote the same value (both are assumed
// already reduced, which New guarantees).
func (r Rat) Equal(o Rat) bool { return r.N == o.N && r.D == o.D }

// IsZero reports whether r is exactly 0.
func (r Rat) IsZero() bool { return r.N == 0 }

// Sign returns -1, 0, or 1.
func (r Rat) Sign() int {
	switch {
	case r.N < 0:
		return -1
	case r.N > 0:
		return 1
	default:
		return 0
	}
}

// Float64 converts to IEEE-754 double. Lossy — only used at IR emission
// boundaries, never for intermediate duration arithmetic (spec.md §3.1).
func (r Rat) Float64() float64 {
	return float64(r.N) / float64(r.D)
}

// Reduce is idempotent by construction: every Rat produced by New (and
// therefore every arithmetic result, since they all route through New) is
// already in lowest terms. Reduce exists so callers can assert the
// invariant explicitly without re-deriving it.
func (r Rat) Reduce() Rat {
	reduced, _ := New(r.N, r.D)
	return reduced
}

// String renders "n/d", or the bare integer when D == 1.
func (r Rat) String() string {
	if r.D == 1 {
		return fmt.Sprintf("%d", r.N)
	}
	return fmt.Sprintf("%d/%d", r.N, r.D)
}
