package domain

import "strings"

// Status is the display label of one indicator.
type Status string

// Indicator status labels.
const (
	StatusYes     Status = "yes"
	StatusPartial Status = "partial"
	StatusNo      Status = "no"
	StatusUnknown Status = "unknown"
)

// StatusThresholds are the evidence-score cut-offs used when a raw value is
// not a recognized token. Scores at or above Yes are "yes", scores above
// Partial are "partial", and the rest are "no".
//
// The defaults (0.75 and 0) are inherited from the published dataset and
// await product-owner confirmation.
type StatusThresholds struct {
	Yes     float64 `yaml:"yes" json:"yes" validate:"gt=0,lte=1,gtfield=Partial"`
	Partial float64 `yaml:"partial" json:"partial" validate:"gte=0,lt=1"`
}

// DefaultStatusThresholds returns the stock cut-offs.
func DefaultStatusThresholds() StatusThresholds {
	return StatusThresholds{Yes: 0.75, Partial: 0}
}

// Classifier assigns a Status to indicator rows.
type Classifier struct {
	Thresholds StatusThresholds
}

// NewClassifier returns a classifier using t.
func NewClassifier(t StatusThresholds) Classifier { return Classifier{Thresholds: t} }

// Classify labels row. Recognized raw tokens take precedence over the
// numeric fallback, so an empty raw value is unknown whatever its score.
func (c Classifier) Classify(row IndicatorRow) Status {
	switch strings.ToLower(strings.TrimSpace(row.ValueRaw)) {
	case "", "unknown":
		return StatusUnknown
	case "yes", "2":
		return StatusYes
	case "1":
		return StatusPartial
	case "0", "no":
		return StatusNo
	}
	if row.NormEvidence == nil {
		return StatusUnknown
	}
	switch v := *row.NormEvidence; {
	case v >= c.Thresholds.Yes:
		return StatusYes
	case v > c.Thresholds.Partial:
		return StatusPartial
	default:
		return StatusNo
	}
}

// Classify labels row with the default thresholds.
func Classify(row IndicatorRow) Status {
	return NewClassifier(DefaultStatusThresholds()).Classify(row)
}
