package application

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/ahrav/go-aipi/infrastructure/csvparse"
	"github.com/ahrav/go-aipi/internal/domain"
)

// ErrProviderNotFound indicates that a provider id is not in the dataset.
var ErrProviderNotFound = errors.New("provider not found")

// maxSuggestDistance bounds the edit distance of lookup suggestions.
const maxSuggestDistance = 3

// Index is the immutable result of aggregating one dataset: both ranked
// score lists and the per-provider indicator detail. It is safe for
// concurrent use; every accessor returns a copy.
type Index struct {
	rankings   map[domain.Mode][]domain.ProviderScore
	positions  map[domain.Mode]map[string]int
	buckets    map[string]*domain.ProviderBucket
	details    map[string][]domain.IndicatorRow
	rows       []domain.IndicatorRow
	classifier domain.Classifier
	stats      csvparse.Stats
}

// BuildIndex parses a CSV dataset and aggregates it.
func BuildIndex(data []byte, classifier domain.Classifier) (*Index, error) {
	rows, stats, err := csvparse.Parse(data)
	if err != nil {
		return nil, err
	}
	return NewIndex(rows, stats, classifier)
}

// NewIndex aggregates already-normalized rows. Detail rows keep their
// dataset order.
func NewIndex(rows []domain.IndicatorRow, stats csvparse.Stats, classifier domain.Classifier) (*Index, error) {
	buckets, err := domain.BuildBuckets(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate rows: %w", err)
	}

	idx := &Index{
		rankings:   make(map[domain.Mode][]domain.ProviderScore, len(domain.Modes)),
		positions:  make(map[domain.Mode]map[string]int, len(domain.Modes)),
		buckets:    buckets,
		details:    make(map[string][]domain.IndicatorRow, len(buckets)),
		rows:       slices.Clone(rows),
		classifier: classifier,
		stats:      stats,
	}
	for _, r := range rows {
		idx.details[r.ProviderID] = append(idx.details[r.ProviderID], r)
	}
	for _, mode := range domain.Modes {
		scores := domain.ScoreAll(buckets, mode)
		pos := make(map[string]int, len(scores))
		for i, s := range scores {
			pos[s.ProviderID] = i
		}
		idx.rankings[mode] = scores
		idx.positions[mode] = pos
	}
	return idx, nil
}

// Rankings returns the ranked scores for mode.
func (idx *Index) Rankings(mode domain.Mode) []domain.ProviderScore {
	return slices.Clone(idx.rankings[mode])
}

// Len returns the number of providers.
func (idx *Index) Len() int { return len(idx.buckets) }

// Provider returns the score of one provider under mode.
func (idx *Index) Provider(mode domain.Mode, id string) (domain.ProviderScore, error) {
	i, ok := idx.positions[mode][id]
	if !ok {
		return domain.ProviderScore{}, fmt.Errorf("%w: %q", ErrProviderNotFound, id)
	}
	return idx.rankings[mode][i], nil
}

// Indicators returns the detail rows of one provider in dataset order.
func (idx *Index) Indicators(id string) []domain.IndicatorRow {
	return slices.Clone(idx.details[id])
}

// Details returns the detail rows of every provider.
func (idx *Index) Details() map[string][]domain.IndicatorRow {
	out := make(map[string][]domain.IndicatorRow, len(idx.details))
	for id, rows := range idx.details {
		out[id] = slices.Clone(rows)
	}
	return out
}

// Rows returns every normalized row in dataset order.
func (idx *Index) Rows() []domain.IndicatorRow { return slices.Clone(idx.rows) }

// Stats returns the parse statistics of the dataset.
func (idx *Index) Stats() csvparse.Stats {
	s := idx.stats
	s.Skipped = maps.Clone(s.Skipped)
	s.MissingColumns = slices.Clone(s.MissingColumns)
	return s
}

// Classifier returns the status classifier the index was built with.
func (idx *Index) Classifier() domain.Classifier { return idx.classifier }

// Status classifies one row.
func (idx *Index) Status(row domain.IndicatorRow) domain.Status {
	return idx.classifier.Classify(row)
}

// SortKey names a ranking column.
type SortKey string

// Sortable ranking columns.
const (
	SortRank     SortKey = "rank"
	SortName     SortKey = "name"
	SortAIPI     SortKey = "aipi"
	SortCoverage SortKey = "coverage"
)

// ParseSortKey maps a request value to a SortKey; empty means rank.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortRank, nil
	case SortRank, SortName, SortAIPI, SortCoverage:
		return k, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// RankingQuery filters and orders a ranking for display.
type RankingQuery struct {
	// Query keeps providers whose name or id contains it, ignoring case.
	Query string
	// Sort selects the ordering column; empty means rank.
	Sort SortKey
	// Desc reverses the column's natural direction.
	Desc bool
}

// Search returns the providers of mode matching q. Ranks stay those of the
// full ranking.
func (idx *Index) Search(mode domain.Mode, q RankingQuery) []domain.ProviderScore {
	needle := strings.ToLower(strings.TrimSpace(q.Query))
	out := make([]domain.ProviderScore, 0, len(idx.rankings[mode]))
	for _, s := range idx.rankings[mode] {
		if needle == "" ||
			strings.Contains(strings.ToLower(s.ProviderName), needle) ||
			strings.Contains(strings.ToLower(s.ProviderID), needle) {
			out = append(out, s)
		}
	}

	var less func(a, b domain.ProviderScore) int
	switch q.Sort {
	case SortName:
		less = func(a, b domain.ProviderScore) int { return cmp.Compare(a.ProviderName, b.ProviderName) }
	case SortAIPI:
		less = func(a, b domain.ProviderScore) int { return cmp.Compare(a.AIPI, b.AIPI) }
	case SortCoverage:
		less = func(a, b domain.ProviderScore) int { return cmp.Compare(a.Coverage, b.Coverage) }
	default:
		less = func(a, b domain.ProviderScore) int { return cmp.Compare(a.Rank, b.Rank) }
	}
	slices.SortStableFunc(out, func(a, b domain.ProviderScore) int {
		c := less(a, b)
		if q.Desc {
			c = -c
		}
		if c == 0 {
			c = cmp.Compare(a.Rank, b.Rank)
		}
		return c
	})
	return out
}

// Suggest returns up to limit provider ids whose id or name is close to
// query, nearest first.
func (idx *Index) Suggest(query string, limit int) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return nil
	}

	type candidate struct {
		id   string
		dist int
	}
	var found []candidate
	for id, b := range idx.buckets {
		d := min(
			levenshtein.ComputeDistance(q, strings.ToLower(id)),
			levenshtein.ComputeDistance(q, strings.ToLower(b.ProviderName)),
		)
		if d <= maxSuggestDistance {
			found = append(found, candidate{id: id, dist: d})
		}
	}
	slices.SortFunc(found, func(a, b candidate) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	out := make([]string, 0, min(limit, len(found)))
	for _, c := range found[:min(limit, len(found))] {
		out = append(out, c.id)
	}
	return out
}
