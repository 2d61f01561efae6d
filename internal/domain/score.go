package domain

import (
	"fmt"
	"strings"
)

// Mode selects how unknown indicators are treated when scoring.
type Mode string

const (
	// ModeEvidence counts every indicator and scores unknowns as zero.
	ModeEvidence Mode = "evidence"
	// ModeKnownOnly excludes unknown indicators from numerator and denominator.
	ModeKnownOnly Mode = "known_only"
)

// Modes lists both scoring modes in display order.
var Modes = [2]Mode{ModeEvidence, ModeKnownOnly}

// ParseMode maps a mode string to a Mode. Matching is trimmed and
// case-insensitive; "known" is accepted as shorthand for known_only.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "evidence":
		return ModeEvidence, nil
	case "known_only", "known-only", "known":
		return ModeKnownOnly, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m == ModeEvidence || m == ModeKnownOnly }

// ProviderScore is the summary of one provider under one mode.
type ProviderScore struct {
	ProviderID   string       `json:"provider_id"`
	ProviderName string       `json:"provider_name"`
	Mode         Mode         `json:"mode"`
	AIPI         float64      `json:"aipi"`
	Coverage     float64      `json:"coverage"`
	Pillars      PillarScores `json:"pillars"`
	Rank         int          `json:"rank"`
}

// Score computes the provider summary for mode. AIPI is the unweighted mean
// of the four pillar means. Rank is left zero for the ranker to assign.
func (b *ProviderBucket) Score(mode Mode) ProviderScore {
	pillars := b.PillarMeans(mode)
	return ProviderScore{
		ProviderID:   b.ProviderID,
		ProviderName: b.ProviderName,
		Mode:         mode,
		AIPI:         pillars.Mean(),
		Coverage:     b.Coverage(),
		Pillars:      pillars,
	}
}

// ScoreAll scores every bucket under mode and ranks the result.
func ScoreAll(buckets map[string]*ProviderBucket, mode Mode) []ProviderScore {
	scores := make([]ProviderScore, 0, len(buckets))
	for _, b := range buckets {
		scores = append(scores, b.Score(mode))
	}
	return Rank(scores)
}
