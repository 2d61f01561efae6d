// Package domain contains pure, dependency-free domain models and the
// scoring rules of the AI Pluralism Index: pillars, indicator rows,
// provider buckets, per-mode scores, ranking and status classification.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Pillar is one of the four fixed governance dimensions. The set is closed;
// the zero value is not a valid pillar.
type Pillar int

// The four pillars in canonical display order.
const (
	PillarParticipatoryGovernance Pillar = iota + 1
	PillarInclusivityDiversity
	PillarTransparency
	PillarAccountability
)

// NumPillars is the size of the closed pillar set.
const NumPillars = 4

// Pillars lists every pillar in canonical order. Iterate this instead of
// hard-coding pillar names.
var Pillars = [NumPillars]Pillar{
	PillarParticipatoryGovernance,
	PillarInclusivityDiversity,
	PillarTransparency,
	PillarAccountability,
}

var pillarNames = [NumPillars]string{
	"Participatory governance",
	"Inclusivity & diversity",
	"Transparency",
	"Accountability",
}

// Valid reports whether p is one of the four pillars.
func (p Pillar) Valid() bool { return p >= PillarParticipatoryGovernance && p <= PillarAccountability }

// Index returns the zero-based position of p in canonical order.
// It panics for an invalid pillar.
func (p Pillar) Index() int {
	if !p.Valid() {
		panic(fmt.Sprintf("domain: invalid pillar %d", int(p)))
	}
	return int(p) - 1
}

// String returns the canonical pillar name.
func (p Pillar) String() string {
	if !p.Valid() {
		return "Pillar(" + strconv.Itoa(int(p)) + ")"
	}
	return pillarNames[p.Index()]
}

// MarshalText encodes the pillar as its canonical name.
func (p Pillar) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPillar, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a canonical pillar name.
func (p *Pillar) UnmarshalText(text []byte) error {
	v, ok := PillarByName(string(text))
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPillar, text)
	}
	*p = v
	return nil
}

// PillarByName looks up a pillar by its exact canonical name. Lenient
// matching of raw dataset values belongs to the row normalizer.
func PillarByName(name string) (Pillar, bool) {
	for i, n := range pillarNames {
		if n == name {
			return Pillars[i], true
		}
	}
	return 0, false
}

// PillarScores holds one value per pillar. It is a fixed-size record so
// consumers compile against the real shape instead of a keyed bag.
type PillarScores [NumPillars]float64

// Get returns the value stored for p.
func (s PillarScores) Get(p Pillar) float64 { return s[p.Index()] }

// Set stores v for p.
func (s *PillarScores) Set(p Pillar, v float64) { s[p.Index()] = v }

// Mean returns the unweighted mean of the four values.
func (s PillarScores) Mean() float64 {
	var sum float64
	for _, v := range s {
		sum += v
	}
	return sum / NumPillars
}

// MarshalJSON encodes the scores as an object keyed by canonical pillar
// name, in canonical order. Keys are written unescaped; the caller's
// encoder decides on HTML escaping.
func (s PillarScores) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, p := range Pillars {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(p.String()))
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatFloat(s[i], 'g', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keyed by canonical pillar name. Missing
// pillars decode as zero; unknown keys are rejected.
func (s *PillarScores) UnmarshalJSON(data []byte) error {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out PillarScores
	for name, v := range raw {
		p, ok := PillarByName(name)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownPillar, name)
		}
		out.Set(p, v)
	}
	*s = out
	return nil
}
