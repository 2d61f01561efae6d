package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-aipi/internal/domain"
)

func TestWriteProviderDocument_Golden(t *testing.T) {
	scores, details, _ := fixture(t)
	c := domain.NewClassifier(domain.DefaultStatusThresholds())

	got := render(t, func(b *bytes.Buffer) error {
		return WriteProviderDocument(b, scores[1], details["p2"], c)
	})

	want := `{
  "provider_id": "p2",
  "provider_name": "Acme, Inc.",
  "rank": 2,
  "mode": "evidence",
  "AIPI": "0.125",
  "coverage": "100%",
  "pillars": {
    "Participatory governance": "0.00",
    "Inclusivity & diversity": "0.50",
    "Transparency": "0.00",
    "Accountability": "0.00"
  },
  "indicators": [
    {
      "indicator_id": "id1",
      "indicator_name": "Diverse <board> & staff",
      "pillar": "Inclusivity & diversity",
      "raw_value": "1",
      "status": "partial",
      "score_evidence": 0.5,
      "score_known_only": 0.5,
      "source_urls": []
    }
  ]
}
`
	assert.Equal(t, want, got)
}

func TestWriteDocument(t *testing.T) {
	scores, details, _ := fixture(t)
	c := domain.NewClassifier(domain.DefaultStatusThresholds())

	out := render(t, func(b *bytes.Buffer) error { return WriteDocument(b, scores, details, c) })

	var docs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 2)
	assert.Equal(t, "p1", docs[0]["provider_id"], "Documents follow ranking order.")
	assert.Equal(t, "0.400", docs[0]["AIPI"])
	assert.Equal(t, "67%", docs[0]["coverage"])

	indicators := docs[0]["indicators"].([]any)
	require.Len(t, indicators, 3)
	unknown := indicators[1].(map[string]any)
	assert.Equal(t, "Unknown", unknown["raw_value"], "Empty raw values render as Unknown.")
	assert.Equal(t, "unknown", unknown["status"])
	assert.Nil(t, unknown["score_known_only"], "Absent scores are null, not zero.")
}

// TestWriteDocument_Idempotent requires byte-identical output for identical
// input across repeated runs.
func TestWriteDocument_Idempotent(t *testing.T) {
	scores, details, _ := fixture(t)
	c := domain.NewClassifier(domain.DefaultStatusThresholds())

	first := render(t, func(b *bytes.Buffer) error { return WriteDocument(b, scores, details, c) })
	for range 5 {
		again := render(t, func(b *bytes.Buffer) error { return WriteDocument(b, scores, details, c) })
		require.Equal(t, first, again)
	}
}
