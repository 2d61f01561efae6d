package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-aipi/internal/domain"
)

// fixture returns the ranked evidence scores and detail rows of a small
// two-provider dataset.
func fixture(t *testing.T) ([]domain.ProviderScore, map[string][]domain.IndicatorRow, []domain.IndicatorRow) {
	t.Helper()

	rows := []domain.IndicatorRow{
		{
			ProviderID: "p1", ProviderName: "Provider One", IndicatorID: "pg1", IndicatorName: "Citizen panels",
			Pillar: domain.PillarParticipatoryGovernance, ValueRaw: "yes",
			NormEvidence: domain.Float(0.8), NormKnown: domain.Float(0.8),
			EvidenceURLs: []string{"https://one.org/panels"},
		},
		{
			ProviderID: "p1", ProviderName: "Provider One", IndicatorID: "pg2", IndicatorName: "Public comment",
			Pillar: domain.PillarParticipatoryGovernance, ValueRaw: "",
			NormEvidence: domain.Float(0.4),
		},
		{
			ProviderID: "p1", ProviderName: "Provider One", IndicatorID: "tr1", IndicatorName: "Model cards",
			Pillar: domain.PillarTransparency, ValueRaw: "2",
			NormEvidence: domain.Float(1), NormKnown: domain.Float(1),
		},
		{
			ProviderID: "p2", ProviderName: "Acme, Inc.", IndicatorID: "id1", IndicatorName: "Diverse <board> & staff",
			Pillar: domain.PillarInclusivityDiversity, ValueRaw: "1",
			NormEvidence: domain.Float(0.5), NormKnown: domain.Float(0.5),
		},
	}

	buckets, err := domain.BuildBuckets(rows)
	require.NoError(t, err)

	details := make(map[string][]domain.IndicatorRow)
	for _, r := range rows {
		details[r.ProviderID] = append(details[r.ProviderID], r)
	}
	return domain.ScoreAll(buckets, domain.ModeEvidence), details, rows
}

func render(t *testing.T, fn func(*bytes.Buffer) error) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, fn(&buf))
	return buf.String()
}
