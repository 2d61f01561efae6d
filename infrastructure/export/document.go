package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/ahrav/go-aipi/internal/domain"
)

// unknownRawValue replaces an empty raw value in documents.
const unknownRawValue = "Unknown"

// ProviderDocument is the structured export of one provider.
type ProviderDocument struct {
	ProviderID   string              `json:"provider_id"`
	ProviderName string              `json:"provider_name"`
	Rank         int                 `json:"rank"`
	Mode         domain.Mode         `json:"mode"`
	AIPI         string              `json:"AIPI"`
	Coverage     string              `json:"coverage"`
	Pillars      PillarStrings       `json:"pillars"`
	Indicators   []IndicatorDocument `json:"indicators"`
}

// IndicatorDocument is one indicator inside a ProviderDocument.
type IndicatorDocument struct {
	IndicatorID    string        `json:"indicator_id"`
	IndicatorName  string        `json:"indicator_name"`
	Pillar         domain.Pillar `json:"pillar"`
	RawValue       string        `json:"raw_value"`
	Status         domain.Status `json:"status"`
	ScoreEvidence  *float64      `json:"score_evidence"`
	ScoreKnownOnly *float64      `json:"score_known_only"`
	SourceURLs     []string      `json:"source_urls"`
}

// PillarStrings holds formatted pillar scores and encodes them as an
// object in canonical pillar order.
type PillarStrings [domain.NumPillars]string

// MarshalJSON implements json.Marshaler.
func (p PillarStrings) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, pillar := range domain.Pillars {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(pillar.String()))
		buf.WriteByte(':')
		buf.WriteString(strconv.Quote(p[i]))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// NewProviderDocument assembles the document of one provider. rows are the
// provider's detail rows in dataset order.
func NewProviderDocument(s domain.ProviderScore, rows []domain.IndicatorRow, c domain.Classifier) ProviderDocument {
	doc := ProviderDocument{
		ProviderID:   s.ProviderID,
		ProviderName: s.ProviderName,
		Rank:         s.Rank,
		Mode:         s.Mode,
		AIPI:         FormatAIPI(s.AIPI),
		Coverage:     FormatPercent(s.Coverage),
		Indicators:   make([]IndicatorDocument, 0, len(rows)),
	}
	for i, p := range domain.Pillars {
		doc.Pillars[i] = FormatPillar(s.Pillars.Get(p))
	}
	for _, r := range rows {
		raw := r.ValueRaw
		if raw == "" {
			raw = unknownRawValue
		}
		urls := r.EvidenceURLs
		if urls == nil {
			urls = []string{}
		}
		doc.Indicators = append(doc.Indicators, IndicatorDocument{
			IndicatorID:    r.IndicatorID,
			IndicatorName:  r.IndicatorName,
			Pillar:         r.Pillar,
			RawValue:       raw,
			Status:         c.Classify(r),
			ScoreEvidence:  r.NormEvidence,
			ScoreKnownOnly: r.NormKnown,
			SourceURLs:     urls,
		})
	}
	return doc
}

// WriteProviderDocument writes the document of one provider as indented
// JSON.
func WriteProviderDocument(w io.Writer, s domain.ProviderScore, rows []domain.IndicatorRow, c domain.Classifier) error {
	return encode(w, NewProviderDocument(s, rows, c))
}

// WriteDocument writes one document per ranked provider as a JSON array in
// ranking order. details maps provider id to detail rows.
func WriteDocument(
	w io.Writer,
	scores []domain.ProviderScore,
	details map[string][]domain.IndicatorRow,
	c domain.Classifier,
) error {
	docs := make([]ProviderDocument, 0, len(scores))
	for _, s := range scores {
		docs = append(docs, NewProviderDocument(s, details[s.ProviderID], c))
	}
	return encode(w, docs)
}

// encode writes v as two-space indented JSON. HTML escaping is off so that
// pillar names keep their literal ampersand.
func encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	return nil
}
