package application

import (
	"cmp"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/ahrav/go-aipi/internal/domain"
)

// SensitivityReport compares the two scoring modes and measures how much
// each pillar drives the ranking.
type SensitivityReport struct {
	// Providers is the number of providers compared.
	Providers int `json:"providers"`
	// Rho is the Spearman rank correlation between evidence and known-only
	// AIPI, nil when it is undefined (fewer than two providers or no
	// variance).
	Rho *float64 `json:"spearman_rho"`
	// Ablations holds one entry per dropped pillar, in canonical order.
	Ablations []Ablation `json:"ablations"`
}

// Ablation reports the ranking obtained when one pillar is left out of the
// AIPI mean.
type Ablation struct {
	Mode    domain.Mode   `json:"mode"`
	Dropped domain.Pillar `json:"dropped_pillar"`
	// Rho correlates the full AIPI with the ablated one.
	Rho    *float64    `json:"spearman_rho"`
	Shifts []RankShift `json:"rank_shifts"`
}

// RankShift is the rank movement of one provider under an ablation.
// Positive shifts are improvements.
type RankShift struct {
	ProviderID   string  `json:"provider_id"`
	ProviderName string  `json:"provider_name"`
	Rank         int     `json:"rank"`
	AblatedRank  int     `json:"ablated_rank"`
	Shift        int     `json:"shift"`
	AblatedAIPI  float64 `json:"ablated_aipi"`
}

// Sensitivity correlates the two modes and ablates each pillar under mode.
func (idx *Index) Sensitivity(mode domain.Mode) SensitivityReport {
	evidence := idx.rankings[domain.ModeEvidence]
	known := idx.positions[domain.ModeKnownOnly]

	xs := make([]float64, 0, len(evidence))
	ys := make([]float64, 0, len(evidence))
	for _, s := range evidence {
		i, ok := known[s.ProviderID]
		if !ok {
			continue
		}
		xs = append(xs, s.AIPI)
		ys = append(ys, idx.rankings[domain.ModeKnownOnly][i].AIPI)
	}

	report := SensitivityReport{Providers: len(xs), Rho: Spearman(xs, ys)}
	for _, p := range domain.Pillars {
		report.Ablations = append(report.Ablations, idx.ablate(mode, p))
	}
	return report
}

func (idx *Index) ablate(mode domain.Mode, dropped domain.Pillar) Ablation {
	full := idx.rankings[mode]
	ablated := make([]domain.ProviderScore, len(full))
	for i, s := range full {
		var sum float64
		for _, p := range domain.Pillars {
			if p != dropped {
				sum += s.Pillars.Get(p)
			}
		}
		s.AIPI = sum / (domain.NumPillars - 1)
		ablated[i] = s
	}
	domain.Rank(ablated)

	a := Ablation{Mode: mode, Dropped: dropped, Shifts: make([]RankShift, 0, len(ablated))}
	xs := make([]float64, 0, len(ablated))
	ys := make([]float64, 0, len(ablated))
	for _, s := range ablated {
		orig := full[idx.positions[mode][s.ProviderID]]
		a.Shifts = append(a.Shifts, RankShift{
			ProviderID:   s.ProviderID,
			ProviderName: s.ProviderName,
			Rank:         orig.Rank,
			AblatedRank:  s.Rank,
			Shift:        orig.Rank - s.Rank,
			AblatedAIPI:  s.AIPI,
		})
		xs = append(xs, orig.AIPI)
		ys = append(ys, s.AIPI)
	}
	a.Rho = Spearman(xs, ys)
	return a
}

// Spearman returns the rank correlation of xs and ys with tied values given
// their average rank. It returns nil when the coefficient is undefined.
func Spearman(xs, ys []float64) *float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return nil
	}
	rho := stat.Correlation(averageRanks(xs), averageRanks(ys), nil)
	if math.IsNaN(rho) || math.IsInf(rho, 0) {
		return nil
	}
	return &rho
}

// averageRanks returns 1-based ranks of vs, ties sharing their mean rank.
func averageRanks(vs []float64) []float64 {
	order := make([]int, len(vs))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(vs[a], vs[b]) })

	ranks := make([]float64, len(vs))
	for i := 0; i < len(order); {
		j := i
		for j+1 < len(order) && vs[order[j+1]] == vs[order[i]] {
			j++
		}
		r := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = r
		}
		i = j + 1
	}
	return ranks
}
