package export

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-aipi/internal/domain"
)

// SchemaVersion is the version of the meta document layout.
const SchemaVersion = "0.1.0"

// UnknownRelease is the release tag used when no generation time is known.
const UnknownRelease = "data-unknown"

// normalizationNote documents how raw indicator values map to scores.
const normalizationNote = "Yes=1, No=0; 0|1|2 -> 0.0,0.5,1.0; counts log2(1+n)/log2(51); " +
	"Unknown treated as 0 for 'evidence' score, ignored for 'known-only'."

// generatedLayout matches the generated_utc stamps written by earlier
// builds: microsecond precision with a literal Z.
const generatedLayout = "2006-01-02T15:04:05.000000Z"

// datasetNamespace scopes dataset hashes so they never collide with other
// name-based UUIDs.
var datasetNamespace = uuid.MustParse("6f1c2a4e-8d0b-4c57-9a8e-3b5d7e9f1a20")

// Meta describes one build of the index.
type Meta struct {
	GeneratedUTC string          `json:"generated_utc"`
	Version      string          `json:"version"`
	Pillars      []string        `json:"pillars"`
	Indicators   []IndicatorMeta `json:"indicators"`
	Weighting    Weighting       `json:"weighting"`
	DatasetHash  string          `json:"dataset_hash"`
	ReleaseTag   string          `json:"release_tag,omitempty"`
}

// IndicatorMeta is one catalogue entry.
type IndicatorMeta struct {
	IndicatorID   string `json:"indicator_id"`
	IndicatorName string `json:"indicator_name"`
	Pillar        string `json:"pillar"`
}

// Weighting documents how the AIPI combines pillars.
type Weighting struct {
	Pillars                map[string]float64 `json:"pillars"`
	IndicatorNormalization string             `json:"indicator_normalization"`
}

// DatasetHash returns a stable name-based UUID for the dataset bytes.
// Identical datasets always hash identically.
func DatasetHash(data []byte) string {
	return uuid.NewSHA1(datasetNamespace, data).String()
}

// BuildMeta describes the dataset data and its normalized rows as of
// generated.
func BuildMeta(data []byte, rows []domain.IndicatorRow, generated time.Time) Meta {
	generated = generated.UTC()

	pillars := make([]string, 0, domain.NumPillars)
	weights := make(map[string]float64, domain.NumPillars)
	for _, p := range domain.Pillars {
		pillars = append(pillars, p.String())
		weights[p.String()] = 1.0 / domain.NumPillars
	}
	slices.Sort(pillars)

	seen := make(map[string]struct{})
	var indicators []IndicatorMeta
	for _, r := range rows {
		if _, dup := seen[r.IndicatorID]; dup {
			continue
		}
		seen[r.IndicatorID] = struct{}{}
		indicators = append(indicators, IndicatorMeta{
			IndicatorID:   r.IndicatorID,
			IndicatorName: r.IndicatorName,
			Pillar:        r.Pillar.String(),
		})
	}
	if indicators == nil {
		indicators = []IndicatorMeta{}
	}

	return Meta{
		GeneratedUTC: generated.Format(generatedLayout),
		Version:      SchemaVersion,
		Pillars:      pillars,
		Indicators:   indicators,
		Weighting: Weighting{
			Pillars:                weights,
			IndicatorNormalization: normalizationNote,
		},
		DatasetHash: DatasetHash(data),
		ReleaseTag:  ReleaseTag(generated),
	}
}

// WriteMeta writes m as indented JSON.
func WriteMeta(w io.Writer, m Meta) error { return encode(w, m) }

// ParseMeta decodes a meta document. Unknown fields are ignored since meta
// documents from other builds may carry extra catalogue columns.
func ParseMeta(data []byte) (Meta, error) {
	var m Meta
	if err := json.Unmarshal(data, &m); err != nil {
		return Meta{}, fmt.Errorf("failed to decode meta document: %w", err)
	}
	if m.ReleaseTag == "" {
		m.ReleaseTag = ReleaseTagFromUTC(m.GeneratedUTC)
	}
	return m, nil
}

// ReleaseTag names the release generated at t as data-YYYYMMDD in UTC.
func ReleaseTag(t time.Time) string {
	if t.IsZero() {
		return UnknownRelease
	}
	return "data-" + t.UTC().Format("20060102")
}

// ReleaseTagFromUTC parses a generated_utc stamp and returns its release
// tag, or data-unknown when the stamp is empty or unparsable. Stamps
// without a zone are read as UTC.
func ReleaseTagFromUTC(stamp string) string {
	stamp = strings.TrimSpace(stamp)
	if stamp == "" {
		return UnknownRelease
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02"} {
		if t, err := time.Parse(layout, stamp); err == nil {
			return ReleaseTag(t)
		}
	}
	return UnknownRelease
}
