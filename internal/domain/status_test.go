package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_Classify(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		evidence *float64
		want     Status
	}{
		{"raw one ignores score", "1", Float(0.9), StatusPartial},
		{"empty raw ignores score", "", Float(0.9), StatusUnknown},
		{"unknown token", " Unknown ", Float(1), StatusUnknown},
		{"yes token", "YES", nil, StatusYes},
		{"two token", "2", Float(0), StatusYes},
		{"zero token", "0", Float(1), StatusNo},
		{"no token", "No", nil, StatusNo},
		{"fallback absent", "n/a", nil, StatusUnknown},
		{"fallback yes at threshold", "n/a", Float(0.75), StatusYes},
		{"fallback partial", "n/a", Float(0.5), StatusPartial},
		{"fallback zero", "n/a", Float(0), StatusNo},
		{"fallback negative", "n/a", Float(-0.5), StatusNo},
	}

	c := NewClassifier(DefaultStatusThresholds())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := IndicatorRow{ValueRaw: tt.raw, NormEvidence: tt.evidence}
			assert.Equal(t, tt.want, c.Classify(r))
			assert.Equal(t, tt.want, Classify(r), "Package helper uses the default thresholds.")
		})
	}
}

func TestClassifier_CustomThresholds(t *testing.T) {
	c := NewClassifier(StatusThresholds{Yes: 0.9, Partial: 0.2})
	r := IndicatorRow{ValueRaw: "coded", NormEvidence: Float(0.8)}
	assert.Equal(t, StatusPartial, c.Classify(r))

	r.NormEvidence = Float(0.2)
	assert.Equal(t, StatusNo, c.Classify(r), "Partial threshold is exclusive.")
}
