package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetHash(t *testing.T) {
	a := DatasetHash([]byte("provider_id\np1\n"))
	b := DatasetHash([]byte("provider_id\np1\n"))
	c := DatasetHash([]byte("provider_id\np2\n"))

	assert.Equal(t, a, b, "Identical datasets hash identically.")
	assert.NotEqual(t, a, c)

	id, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), id.Version())
}

func TestBuildMeta(t *testing.T) {
	_, _, rows := fixture(t)
	generated := time.Date(2025, 3, 7, 9, 30, 0, 0, time.UTC)

	m := BuildMeta([]byte("data"), rows, generated)

	assert.Equal(t, "2025-03-07T09:30:00.000000Z", m.GeneratedUTC)
	assert.Equal(t, SchemaVersion, m.Version)
	assert.Equal(t, "data-20250307", m.ReleaseTag)
	assert.Equal(t, []string{"Accountability", "Inclusivity & diversity", "Participatory governance", "Transparency"}, m.Pillars)
	assert.Len(t, m.Indicators, 4)
	assert.Equal(t, "pg1", m.Indicators[0].IndicatorID, "Catalogue keeps dataset order.")
	assert.InDelta(t, 0.25, m.Weighting.Pillars["Transparency"], 1e-12)
	assert.Equal(t, DatasetHash([]byte("data")), m.DatasetHash)

	var buf bytes.Buffer
	require.NoError(t, WriteMeta(&buf, m))
	back, err := ParseMeta(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, m, back)
}

func TestParseMeta_DerivesReleaseTag(t *testing.T) {
	m, err := ParseMeta([]byte(`{"generated_utc":"2024-12-31T23:59:59.123456Z","indicators":[{"indicator_id":"x","weight":2}]}`))
	require.NoError(t, err)
	assert.Equal(t, "data-20241231", m.ReleaseTag)

	_, err = ParseMeta([]byte(`not json`))
	assert.Error(t, err)
}

func TestReleaseTagFromUTC(t *testing.T) {
	tests := map[string]string{
		"":                          UnknownRelease,
		"garbage":                   UnknownRelease,
		"2025-01-02T03:04:05Z":      "data-20250102",
		"2025-01-02T23:30:00-02:00": "data-20250103",
		"2025-01-02T03:04:05.5":     "data-20250102",
		"2025-01-02":                "data-20250102",
	}
	for in, want := range tests {
		assert.Equal(t, want, ReleaseTagFromUTC(in), "ReleaseTagFromUTC(%q)", in)
	}
	assert.Equal(t, UnknownRelease, ReleaseTag(time.Time{}))
}
