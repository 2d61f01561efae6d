package domain

import (
	"math"
	"math/rand"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(provider, name string, p Pillar, evidence, known *float64) IndicatorRow {
	return IndicatorRow{
		ProviderID:   provider,
		ProviderName: name,
		IndicatorID:  "ind",
		Pillar:       p,
		NormEvidence: evidence,
		NormKnown:    known,
	}
}

// roundTripRows is the worked example: two participatory rows, one of them
// unknown, and one transparency row.
func roundTripRows() []IndicatorRow {
	return []IndicatorRow{
		row("p1", "Provider One", PillarParticipatoryGovernance, Float(0.8), Float(0.8)),
		row("p1", "Provider One", PillarParticipatoryGovernance, Float(0.4), nil),
		row("p1", "Provider One", PillarTransparency, Float(1.0), Float(1.0)),
	}
}

// TestBuildBuckets_RoundTripExample checks both modes against the hand
// computed example.
func TestBuildBuckets_RoundTripExample(t *testing.T) {
	buckets, err := BuildBuckets(roundTripRows())
	require.NoError(t, err)
	require.Len(t, buckets, 1)

	b := buckets["p1"]
	assert.Equal(t, 3, b.TotalCount)
	assert.Equal(t, 2, b.KnownCount)
	assert.InDelta(t, 0.667, b.Coverage(), 0.001)

	ev := b.Score(ModeEvidence)
	assert.InDelta(t, 0.6, ev.Pillars.Get(PillarParticipatoryGovernance), 1e-12)
	assert.InDelta(t, 1.0, ev.Pillars.Get(PillarTransparency), 1e-12)
	assert.Zero(t, ev.Pillars.Get(PillarInclusivityDiversity), "Empty pillar scores zero.")
	assert.Zero(t, ev.Pillars.Get(PillarAccountability), "Empty pillar scores zero.")
	assert.InDelta(t, 0.4, ev.AIPI, 1e-12)

	known := b.Score(ModeKnownOnly)
	assert.InDelta(t, 0.8, known.Pillars.Get(PillarParticipatoryGovernance), 1e-12)
	assert.InDelta(t, 0.45, known.AIPI, 1e-12)
	assert.Equal(t, ev.Coverage, known.Coverage, "Coverage does not depend on mode.")
}

func TestBuildBuckets_FirstNameWins(t *testing.T) {
	rows := []IndicatorRow{
		row("p1", "First", PillarTransparency, Float(1), Float(1)),
		row("p1", "Second", PillarTransparency, Float(0), Float(0)),
	}
	buckets, err := BuildBuckets(rows)
	require.NoError(t, err)
	assert.Equal(t, "First", buckets["p1"].ProviderName)
}

func TestBuildBuckets_Empty(t *testing.T) {
	buckets, err := BuildBuckets(nil)
	require.NoError(t, err)
	assert.Empty(t, buckets)
	assert.Empty(t, ScoreAll(buckets, ModeEvidence))
	assert.Empty(t, ScoreAll(buckets, ModeKnownOnly))
}

func TestBuildBuckets_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		row   IndicatorRow
		field string
	}{
		{"nan evidence", row("p", "P", PillarTransparency, Float(math.NaN()), nil), "norm_evidence"},
		{"inf known", row("p", "P", PillarTransparency, Float(0), Float(math.Inf(1))), "norm_known"},
		{"zero pillar", row("p", "P", Pillar(0), Float(0), nil), "pillar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildBuckets([]IndicatorRow{tt.row})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)

			var rowErr *RowError
			require.ErrorAs(t, err, &rowErr)
			assert.Equal(t, tt.field, rowErr.Field)
		})
	}
}

// TestScore_AllUnknown covers the asymmetry between modes when a provider has
// no known indicator at all.
func TestScore_AllUnknown(t *testing.T) {
	rows := []IndicatorRow{
		row("p", "P", PillarTransparency, nil, nil),
		row("p", "P", PillarAccountability, Float(0), nil),
	}
	buckets, err := BuildBuckets(rows)
	require.NoError(t, err)

	ev := buckets["p"].Score(ModeEvidence)
	known := buckets["p"].Score(ModeKnownOnly)

	assert.Zero(t, ev.AIPI)
	assert.Zero(t, known.AIPI)
	assert.Zero(t, known.Coverage)
	assert.False(t, math.IsNaN(known.AIPI), "Mean of nothing is zero, not NaN.")
}

func TestPillarCoverage(t *testing.T) {
	buckets, err := BuildBuckets(roundTripRows())
	require.NoError(t, err)
	b := buckets["p1"]

	assert.InDelta(t, 0.5, b.PillarCoverage(PillarParticipatoryGovernance), 1e-12)
	assert.InDelta(t, 1.0, b.PillarCoverage(PillarTransparency), 1e-12)
	assert.Zero(t, b.PillarCoverage(PillarAccountability))
}

// genRows builds a pseudo-random dataset of up to five providers.
func genRows(r *rand.Rand, n int) []IndicatorRow {
	rows := make([]IndicatorRow, n)
	for i := range rows {
		id := string(rune('a' + r.Intn(5)))
		var ev, known *float64
		if r.Intn(4) > 0 {
			ev = Float(r.Float64())
		}
		if r.Intn(3) > 0 {
			known = Float(r.Float64())
		}
		rows[i] = row(id, "Provider "+id, Pillars[r.Intn(NumPillars)], ev, known)
	}
	return rows
}

// TestBuildBuckets_Commutative permutes rows and requires bit-identical
// buckets, scores and ranks.
func TestBuildBuckets_Commutative(t *testing.T) {
	property := func(seed int64, size uint8) bool {
		r := rand.New(rand.NewSource(seed))
		rows := genRows(r, int(size))
		shuffled := append([]IndicatorRow(nil), rows...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		a, err := BuildBuckets(rows)
		if err != nil {
			return false
		}
		b, err := BuildBuckets(shuffled)
		if err != nil || len(a) != len(b) {
			return false
		}
		for id, ba := range a {
			bb, ok := b[id]
			if !ok || !ba.Equal(bb) {
				return false
			}
		}
		for _, mode := range Modes {
			sa, sb := ScoreAll(a, mode), ScoreAll(b, mode)
			if len(sa) != len(sb) {
				return false
			}
			for i := range sa {
				if sa[i] != sb[i] {
					return false
				}
			}
		}
		return true
	}

	require.NoError(t, quick.Check(property, &quick.Config{MaxCount: 200}))
}

// TestScore_Bounds checks the coverage bound, the AIPI bound and rank
// totality over random datasets with scores in [0,1].
func TestScore_Bounds(t *testing.T) {
	property := func(seed int64, size uint8) bool {
		r := rand.New(rand.NewSource(seed))
		buckets, err := BuildBuckets(genRows(r, int(size)))
		if err != nil {
			return false
		}
		for _, mode := range Modes {
			scores := ScoreAll(buckets, mode)
			if len(scores) != len(buckets) {
				return false
			}
			for i, s := range scores {
				if s.Rank != i+1 {
					return false
				}
				if s.Coverage < 0 || s.Coverage > 1 || s.AIPI < 0 || s.AIPI > 1 {
					return false
				}
				if (s.Coverage == 0) != (buckets[s.ProviderID].KnownCount == 0) {
					return false
				}
			}
		}
		return true
	}

	require.NoError(t, quick.Check(property, &quick.Config{MaxCount: 200}))
}

func TestSum_OrderIndependent(t *testing.T) {
	values := []float64{1e16, 1, -1e16, 0.1, 0.2, 0.3}

	var fwd, rev Sum
	for _, v := range values {
		fwd.Add(v)
	}
	for i := len(values) - 1; i >= 0; i-- {
		rev.Add(values[i])
	}

	assert.True(t, fwd.Equal(&rev), "Exact sums must not depend on order.")
	assert.InDelta(t, 1.6, fwd.Float64(), 1e-12)

	var empty Sum
	assert.Zero(t, empty.Mean(0))
	assert.Zero(t, empty.Float64())
	assert.True(t, empty.Equal(&Sum{}))
}
