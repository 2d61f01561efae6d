package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-aipi/internal/domain"
)

func indicatorIDs(views []IndicatorView) []string {
	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.IndicatorID
	}
	return ids
}

// TestIndexProfile verifies grouping, statuses and improvement areas of a
// provider profile.
func TestIndexProfile(t *testing.T) {
	idx := sampleIndex(t)

	p, err := idx.Profile("alpha", domain.ModeEvidence, ProfileOptions{})
	require.NoError(t, err)

	assert.Equal(t, "alpha", p.Score.ProviderID)
	require.Len(t, p.Groups, domain.NumPillars, "Every pillar must have a group.")
	for i, g := range p.Groups {
		assert.Equal(t, domain.Pillars[i], g.Pillar, "Groups must follow canonical pillar order.")
	}

	pg := p.Groups[0]
	assert.InDelta(t, 0.5, pg.Score, 1e-12)
	assert.InDelta(t, 0.5, pg.Coverage, 1e-12)
	assert.Equal(t, []string{"pg1", "pg2"}, indicatorIDs(pg.Indicators))
	assert.Equal(t, domain.StatusYes, pg.Indicators[0].Status)
	assert.Equal(t, domain.StatusUnknown, pg.Indicators[1].Status)

	id := p.Groups[1]
	require.Len(t, id.Indicators, 1)
	assert.Equal(t, domain.StatusPartial, id.Indicators[0].Status, "0.5 sits between the thresholds.")

	assert.Equal(t, []string{"Public comment", "Incident reporting"}, p.Improvements)
	assert.Equal(t, "Public comment and Incident reporting", p.ImprovementSummary)
}

// TestIndexProfileOptions tests the evidence filters and indicator
// orderings.
func TestIndexProfileOptions(t *testing.T) {
	idx := sampleIndex(t)

	tests := []struct {
		name string
		opts ProfileOptions
		// want lists the indicator ids across all groups in group order.
		want []string
	}{
		{name: "all by score", opts: ProfileOptions{}, want: []string{"pg1", "pg2", "id1", "tr1", "ac1"}},
		{name: "with evidence", opts: ProfileOptions{Filter: FilterWithEvidence}, want: []string{"pg1", "tr1"}},
		{name: "missing evidence", opts: ProfileOptions{Filter: FilterMissingEvidence}, want: []string{"pg2", "ac1"}},
		{name: "alphabetical", opts: ProfileOptions{Sort: SortAlpha}, want: []string{"pg1", "pg2", "id1", "tr1", "ac1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := idx.Profile("alpha", domain.ModeEvidence, tt.opts)
			require.NoError(t, err)
			var got []string
			for _, g := range p.Groups {
				got = append(got, indicatorIDs(g.Indicators)...)
			}
			assert.Equal(t, tt.want, got)
		})
	}

	p, err := idx.Profile("alpha", domain.ModeEvidence, ProfileOptions{Filter: FilterMissingEvidence})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, p.Groups[0].Coverage, 1e-12, "Coverage is computed before filtering.")
}

// TestIndexProfileSortByScore verifies that indicators are ordered by the
// mode's score, unknown indicators last under known_only.
func TestIndexProfileSortByScore(t *testing.T) {
	idx := sampleIndex(t)

	p, err := idx.Profile("gamma", domain.ModeKnownOnly, ProfileOptions{Sort: SortScoreDesc})
	require.NoError(t, err)
	assert.Equal(t, "gamma", p.Score.ProviderID)
	assert.InDelta(t, 0.25, p.Score.AIPI, 1e-12)
	assert.Equal(t, []string{"Citizen panels", "Diverse board"}, p.Improvements)
}

// TestIndexProfileUnknownProvider verifies the not-found error.
func TestIndexProfileUnknownProvider(t *testing.T) {
	idx := sampleIndex(t)
	_, err := idx.Profile("delta", domain.ModeEvidence, ProfileOptions{})
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

// TestSortIndicators tests score ordering within one group.
func TestSortIndicators(t *testing.T) {
	views := []IndicatorView{
		{IndicatorRow: domain.IndicatorRow{IndicatorID: "low", IndicatorName: "B", NormEvidence: domain.Float(0.2), NormKnown: domain.Float(0.2)}},
		{IndicatorRow: domain.IndicatorRow{IndicatorID: "unknown", IndicatorName: "C", NormEvidence: domain.Float(0)}},
		{IndicatorRow: domain.IndicatorRow{IndicatorID: "high", IndicatorName: "A", NormEvidence: domain.Float(0.9), NormKnown: domain.Float(0.9)}},
	}

	sortIndicators(views, domain.ModeKnownOnly, SortScoreDesc)
	assert.Equal(t, []string{"high", "low", "unknown"}, indicatorIDs(views))

	sortIndicators(views, domain.ModeEvidence, SortAlpha)
	assert.Equal(t, []string{"high", "low", "unknown"}, indicatorIDs(views))
}

// TestImprovementAreas verifies de-duplication and the five item cap.
func TestImprovementAreas(t *testing.T) {
	var views []IndicatorView
	for _, name := range []string{"a", "b", "a", "c", "d", "e", "f"} {
		views = append(views, IndicatorView{
			IndicatorRow: domain.IndicatorRow{IndicatorName: name},
			Status:       domain.StatusUnknown,
		})
	}
	views = append(views, IndicatorView{IndicatorRow: domain.IndicatorRow{IndicatorName: "known"}, Status: domain.StatusYes})

	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ImprovementAreas(views))
	assert.Empty(t, ImprovementAreas(nil))
}

// TestJoinNatural tests the natural-language list join.
func TestJoinNatural(t *testing.T) {
	tests := []struct {
		items []string
		want  string
	}{
		{items: nil, want: ""},
		{items: []string{"A"}, want: "A"},
		{items: []string{"A", "B"}, want: "A and B"},
		{items: []string{"A", "B", "C"}, want: "A, B, and C"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, JoinNatural(tt.items))
	}
}

// TestParseProfileOptions tests filter and sort parsing.
func TestParseProfileOptions(t *testing.T) {
	f, err := ParseEvidenceFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	f, err = ParseEvidenceFilter("missing_evidence")
	require.NoError(t, err)
	assert.Equal(t, FilterMissingEvidence, f)

	_, err = ParseEvidenceFilter("none")
	assert.Error(t, err)

	o, err := ParseIndicatorSort("")
	require.NoError(t, err)
	assert.Equal(t, SortScoreDesc, o)

	o, err = ParseIndicatorSort("alpha")
	require.NoError(t, err)
	assert.Equal(t, SortAlpha, o)

	_, err = ParseIndicatorSort("random")
	assert.Error(t, err)
}
