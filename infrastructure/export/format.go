// Package export serializes an aggregated index into its interchange forms:
// a flat CSV table, a JSON document, an XLSX workbook and a meta document.
// Numeric formatting is a presentation contract shared with downstream
// consumers and is reproduced exactly.
package export

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

// FormatFixed renders v with exactly decimals digits after the point. The
// exact binary value of v is rounded, and exact halves round away from
// zero, so 0.125 renders as "0.13" at two decimals.
func FormatFixed(v float64, decimals int) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	if math.IsInf(v, 0) {
		if v > 0 {
			return "Infinity"
		}
		return "-Infinity"
	}

	neg := v < 0
	r := new(big.Rat).SetFloat64(math.Abs(v))
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))
	r.Add(r, big.NewRat(1, 2))
	n := new(big.Int).Quo(r.Num(), r.Denom()) // floor, r is non-negative

	digits := n.String()
	if decimals > 0 {
		if len(digits) <= decimals {
			digits = strings.Repeat("0", decimals-len(digits)+1) + digits
		}
		digits = digits[:len(digits)-decimals] + "." + digits[len(digits)-decimals:]
	}
	if neg {
		return "-" + digits
	}
	return digits
}

// FormatAIPI renders an AIPI value to three decimals.
func FormatAIPI(v float64) string { return FormatFixed(v, 3) }

// FormatPillar renders a pillar score to two decimals.
func FormatPillar(v float64) string { return FormatFixed(v, 2) }

// FormatPercent renders a ratio as a rounded integer percentage, e.g.
// 0.667 becomes "67%". Halves round up.
func FormatPercent(ratio float64) string {
	x := ratio * 100
	r := math.Floor(x)
	if x-r >= 0.5 {
		r++
	}
	return strconv.FormatFloat(r, 'f', 0, 64) + "%"
}

// formatScore renders an optional indicator score in shortest form.
func formatScore(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
