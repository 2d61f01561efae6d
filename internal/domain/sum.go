package domain

import "math/big"

// sumPrec is wide enough to hold the exact sum of any finite float64 values
// (exponent span 2^-1074 .. 2^1023) with headroom for 2^64 addends.
const sumPrec = 2200

// Sum accumulates float64 values exactly. Because no intermediate rounding
// happens, the result is independent of the order values were added in.
// The zero value is an empty sum ready to use. A Sum must not be copied
// after first use.
type Sum struct {
	acc   big.Float
	ready bool
}

// Add adds v to the sum. v must be finite.
func (s *Sum) Add(v float64) {
	if !s.ready {
		s.acc.SetPrec(sumPrec)
		s.ready = true
	}
	var x big.Float
	x.SetPrec(sumPrec).SetFloat64(v)
	s.acc.Add(&s.acc, &x)
}

// Float64 returns the sum rounded to the nearest float64.
func (s *Sum) Float64() float64 {
	if !s.ready {
		return 0
	}
	f, _ := s.acc.Float64()
	return f
}

// Mean returns the sum divided by n, rounded once to the nearest float64.
// A mean over zero values is zero.
func (s *Sum) Mean(n int) float64 {
	if n == 0 || !s.ready {
		return 0
	}
	var q big.Float
	q.SetPrec(sumPrec).Quo(&s.acc, new(big.Float).SetPrec(sumPrec).SetInt64(int64(n)))
	f, _ := q.Float64()
	return f
}

// Equal reports whether two sums hold the same exact value.
func (s *Sum) Equal(o *Sum) bool {
	var a, b big.Float
	if s.ready {
		a.Set(&s.acc)
	}
	if o.ready {
		b.Set(&o.acc)
	}
	return a.Cmp(&b) == 0
}
