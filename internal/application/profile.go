package application

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/ahrav/go-aipi/internal/domain"
)

// maxImprovementItems caps the improvement-area list of a profile.
const maxImprovementItems = 5

// EvidenceFilter narrows the indicators shown in a profile.
type EvidenceFilter string

// Indicator filters.
const (
	FilterAll             EvidenceFilter = "all"
	FilterWithEvidence    EvidenceFilter = "with_evidence"
	FilterMissingEvidence EvidenceFilter = "missing_evidence"
)

// IndicatorSort orders the indicators of a pillar group.
type IndicatorSort string

// Indicator orderings.
const (
	SortScoreDesc IndicatorSort = "score_desc"
	SortAlpha     IndicatorSort = "alpha"
)

// ParseEvidenceFilter maps a request value to a filter; empty means all.
func ParseEvidenceFilter(s string) (EvidenceFilter, error) {
	switch f := EvidenceFilter(strings.TrimSpace(s)); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterWithEvidence, FilterMissingEvidence:
		return f, nil
	}
	return "", fmt.Errorf("unknown indicator filter %q", s)
}

// ParseIndicatorSort maps a request value to an ordering; empty means
// score_desc.
func ParseIndicatorSort(s string) (IndicatorSort, error) {
	switch o := IndicatorSort(strings.TrimSpace(s)); o {
	case "":
		return SortScoreDesc, nil
	case SortScoreDesc, SortAlpha:
		return o, nil
	}
	return "", fmt.Errorf("unknown indicator sort %q", s)
}

// ProfileOptions shapes a provider profile.
type ProfileOptions struct {
	Filter EvidenceFilter
	Sort   IndicatorSort
}

// IndicatorView is a detail row with its derived status.
type IndicatorView struct {
	domain.IndicatorRow
	Status domain.Status `json:"status"`
}

// PillarGroup is one pillar of a provider profile.
type PillarGroup struct {
	Pillar domain.Pillar `json:"pillar"`
	// Score is the provider's pillar score in the profile's mode.
	Score float64 `json:"score"`
	// Coverage is the share of known indicators within the pillar,
	// computed before filtering.
	Coverage   float64         `json:"coverage"`
	Indicators []IndicatorView `json:"indicators"`
}

// Profile is the detail view of one provider under one mode.
type Profile struct {
	Score  domain.ProviderScore `json:"score"`
	Groups []PillarGroup        `json:"groups"`
	// Improvements lists distinct names of unknown indicators in dataset
	// order, at most five.
	Improvements []string `json:"improvements"`
	// ImprovementSummary joins Improvements into a readable phrase.
	ImprovementSummary string `json:"improvement_summary"`
}

// Profile builds the detail view of provider id under mode.
func (idx *Index) Profile(id string, mode domain.Mode, opts ProfileOptions) (Profile, error) {
	score, err := idx.Provider(mode, id)
	if err != nil {
		return Profile{}, err
	}
	if opts.Filter == "" {
		opts.Filter = FilterAll
	}
	if opts.Sort == "" {
		opts.Sort = SortScoreDesc
	}

	rows := idx.details[id]
	views := make([]IndicatorView, len(rows))
	for i, r := range rows {
		views[i] = IndicatorView{IndicatorRow: r, Status: idx.classifier.Classify(r)}
	}

	p := Profile{Score: score, Groups: make([]PillarGroup, 0, domain.NumPillars)}
	for _, pillar := range domain.Pillars {
		var all []IndicatorView
		known := 0
		for _, v := range views {
			if v.Pillar != pillar {
				continue
			}
			all = append(all, v)
			if v.Known() {
				known++
			}
		}
		g := PillarGroup{Pillar: pillar, Score: score.Pillars.Get(pillar)}
		if len(all) > 0 {
			g.Coverage = float64(known) / float64(len(all))
		}
		g.Indicators = filterIndicators(all, opts.Filter)
		sortIndicators(g.Indicators, mode, opts.Sort)
		p.Groups = append(p.Groups, g)
	}

	p.Improvements = ImprovementAreas(views)
	p.ImprovementSummary = JoinNatural(p.Improvements)
	return p, nil
}

func filterIndicators(in []IndicatorView, f EvidenceFilter) []IndicatorView {
	out := make([]IndicatorView, 0, len(in))
	for _, v := range in {
		switch f {
		case FilterWithEvidence:
			if len(v.EvidenceURLs) == 0 || v.Status == domain.StatusUnknown {
				continue
			}
		case FilterMissingEvidence:
			if v.Status != domain.StatusUnknown {
				continue
			}
		}
		out = append(out, v)
	}
	return out
}

func sortIndicators(views []IndicatorView, mode domain.Mode, order IndicatorSort) {
	if order == SortAlpha {
		slices.SortStableFunc(views, func(a, b IndicatorView) int {
			return cmp.Compare(a.IndicatorName, b.IndicatorName)
		})
		return
	}
	value := func(v IndicatorView) float64 {
		p := v.NormEvidence
		if mode == domain.ModeKnownOnly {
			p = v.NormKnown
		}
		if p == nil {
			return -1
		}
		return *p
	}
	slices.SortStableFunc(views, func(a, b IndicatorView) int {
		return cmp.Compare(value(b), value(a))
	})
}

// ImprovementAreas returns the distinct names of unknown indicators in
// order of appearance, at most five.
func ImprovementAreas(views []IndicatorView) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range views {
		if v.Status != domain.StatusUnknown {
			continue
		}
		if _, dup := seen[v.IndicatorName]; dup {
			continue
		}
		seen[v.IndicatorName] = struct{}{}
		out = append(out, v.IndicatorName)
		if len(out) == maxImprovementItems {
			break
		}
	}
	return out
}

// JoinNatural joins items as "A", "A and B" or "A, B, and C".
func JoinNatural(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	}
	return strings.Join(items[:len(items)-1], ", ") + ", and " + items[len(items)-1]
}
