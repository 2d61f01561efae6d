package domain

import (
	"fmt"
	"math"
)

// PillarTally holds the running sums and counts of one pillar for both
// scoring modes.
type PillarTally struct {
	EvidenceSum   Sum
	EvidenceCount int
	KnownSum      Sum
	KnownCount    int
}

// ProviderBucket accumulates every row of one provider. Buckets are built
// once per dataset and are never mutated after BuildBuckets returns.
type ProviderBucket struct {
	ProviderID   string
	ProviderName string
	Pillars      [NumPillars]PillarTally
	KnownCount   int
	TotalCount   int
}

// NewProviderBucket creates an empty bucket for the given provider.
func NewProviderBucket(id, name string) *ProviderBucket {
	return &ProviderBucket{ProviderID: id, ProviderName: name}
}

// Add folds row into the bucket. Every row counts toward the evidence mode,
// with an absent evidence score contributing zero; only rows with a defined
// known score count toward the known-only mode.
func (b *ProviderBucket) Add(row IndicatorRow) error {
	if err := checkRow(row); err != nil {
		return err
	}
	t := &b.Pillars[row.Pillar.Index()]
	t.EvidenceSum.Add(row.EvidenceScore())
	t.EvidenceCount++
	if row.NormKnown != nil {
		t.KnownSum.Add(*row.NormKnown)
		t.KnownCount++
		b.KnownCount++
	}
	b.TotalCount++
	return nil
}

// Coverage is the share of rows with a defined known score, or zero for an
// empty bucket.
func (b *ProviderBucket) Coverage() float64 {
	if b.TotalCount == 0 {
		return 0
	}
	return float64(b.KnownCount) / float64(b.TotalCount)
}

// PillarCoverage is the share of known rows within pillar p.
func (b *ProviderBucket) PillarCoverage(p Pillar) float64 {
	t := &b.Pillars[p.Index()]
	if t.EvidenceCount == 0 {
		return 0
	}
	return float64(t.KnownCount) / float64(t.EvidenceCount)
}

// PillarMeans returns the per-pillar mean under mode. A pillar without
// contributing rows scores zero.
func (b *ProviderBucket) PillarMeans(mode Mode) PillarScores {
	var out PillarScores
	for i := range b.Pillars {
		t := &b.Pillars[i]
		if mode == ModeKnownOnly {
			out[i] = t.KnownSum.Mean(t.KnownCount)
		} else {
			out[i] = t.EvidenceSum.Mean(t.EvidenceCount)
		}
	}
	return out
}

// Equal reports whether two buckets hold identical provider data, sums
// and counts.
func (b *ProviderBucket) Equal(o *ProviderBucket) bool {
	if b.ProviderID != o.ProviderID || b.ProviderName != o.ProviderName ||
		b.KnownCount != o.KnownCount || b.TotalCount != o.TotalCount {
		return false
	}
	for i := range b.Pillars {
		x, y := &b.Pillars[i], &o.Pillars[i]
		if x.EvidenceCount != y.EvidenceCount || x.KnownCount != y.KnownCount ||
			!x.EvidenceSum.Equal(&y.EvidenceSum) || !x.KnownSum.Equal(&y.KnownSum) {
			return false
		}
	}
	return true
}

// BuildBuckets folds rows into one bucket per provider in a single pass.
// The first name seen for a provider id is kept. Rows carrying a non-finite
// score or an invalid pillar fail the whole build with ErrInvalidInput.
func BuildBuckets(rows []IndicatorRow) (map[string]*ProviderBucket, error) {
	buckets := make(map[string]*ProviderBucket)
	for _, row := range rows {
		b, ok := buckets[row.ProviderID]
		if !ok {
			b = NewProviderBucket(row.ProviderID, row.ProviderName)
			buckets[row.ProviderID] = b
		}
		if err := b.Add(row); err != nil {
			return nil, err
		}
	}
	return buckets, nil
}

func checkRow(row IndicatorRow) error {
	if !row.Pillar.Valid() {
		return NewRowError(row, "pillar", fmt.Errorf("%w: %w", ErrInvalidInput, ErrUnknownPillar))
	}
	if row.NormEvidence != nil && !finite(*row.NormEvidence) {
		return NewRowError(row, "norm_evidence", fmt.Errorf("%w: non-finite score", ErrInvalidInput))
	}
	if row.NormKnown != nil && !finite(*row.NormKnown) {
		return NewRowError(row, "norm_known", fmt.Errorf("%w: non-finite score", ErrInvalidInput))
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
