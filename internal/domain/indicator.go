package domain

// IndicatorRow is one normalized dataset record: a single provider scored on
// a single indicator. Scores are pointers because absence is meaningful and
// distinct from zero; a nil NormKnown marks the indicator as unknown for
// coverage purposes.
type IndicatorRow struct {
	ProviderID    string   `json:"provider_id"`
	ProviderName  string   `json:"provider_name"`
	IndicatorID   string   `json:"indicator_id"`
	IndicatorName string   `json:"indicator_name"`
	Pillar        Pillar   `json:"pillar"`
	ValueRaw      string   `json:"indicator_value"`
	NormEvidence  *float64 `json:"norm_evidence"`
	NormKnown     *float64 `json:"norm_known"`
	EvidenceURLs  []string `json:"evidence_urls"`
}

// Known reports whether the row carries a known-only score.
func (r IndicatorRow) Known() bool { return r.NormKnown != nil }

// EvidenceScore returns the evidence-mode contribution of the row. Absent
// evidence scores contribute zero.
func (r IndicatorRow) EvidenceScore() float64 {
	if r.NormEvidence == nil {
		return 0
	}
	return *r.NormEvidence
}

// Score returns the row's value under mode and whether it is defined.
// Evidence mode is always defined.
func (r IndicatorRow) Score(mode Mode) (float64, bool) {
	if mode == ModeKnownOnly {
		if r.NormKnown == nil {
			return 0, false
		}
		return *r.NormKnown, true
	}
	return r.EvidenceScore(), true
}

// Float returns a pointer to v. It keeps row literals short in callers and tests.
func Float(v float64) *float64 { return &v }
