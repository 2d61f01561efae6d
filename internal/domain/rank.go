package domain

import (
	"cmp"
	"slices"
)

// Rank sorts scores by AIPI descending, then provider name ascending, then
// provider id ascending, and assigns 1-based ranks by position. The input
// slice is sorted in place and returned.
func Rank(scores []ProviderScore) []ProviderScore {
	slices.SortStableFunc(scores, compareScores)
	for i := range scores {
		scores[i].Rank = i + 1
	}
	return scores
}

func compareScores(a, b ProviderScore) int {
	if c := cmp.Compare(b.AIPI, a.AIPI); c != 0 {
		return c
	}
	if c := cmp.Compare(a.ProviderName, b.ProviderName); c != 0 {
		return c
	}
	return cmp.Compare(a.ProviderID, b.ProviderID)
}
