package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ahrav/go-aipi/infrastructure/csvparse"
	"github.com/ahrav/go-aipi/internal/domain"
)

// TableHeader returns the column names of the ranking table.
func TableHeader() []string {
	h := []string{"rank", "provider_id", "provider_name", "AIPI", "coverage"}
	for _, p := range domain.Pillars {
		h = append(h, p.String())
	}
	return h
}

// TableRecord renders one ranking row.
func TableRecord(s domain.ProviderScore) []string {
	rec := []string{
		strconv.Itoa(s.Rank),
		s.ProviderID,
		s.ProviderName,
		FormatAIPI(s.AIPI),
		FormatPercent(s.Coverage),
	}
	for _, p := range domain.Pillars {
		rec = append(rec, FormatPillar(s.Pillars.Get(p)))
	}
	return rec
}

// WriteTable writes ranked scores as CSV, one row per provider, in the
// order given.
func WriteTable(w io.Writer, scores []domain.ProviderScore) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TableHeader()); err != nil {
		return fmt.Errorf("failed to write table header: %w", err)
	}
	for _, s := range scores {
		if err := cw.Write(TableRecord(s)); err != nil {
			return fmt.Errorf("failed to write table row for %s: %w", s.ProviderID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// URLSeparator joins evidence URLs in a single CSV cell.
const URLSeparator = "; "

// WriteIndicators writes normalized rows back out in the dataset's own
// column layout, so the output can be parsed again.
func WriteIndicators(w io.Writer, rows []domain.IndicatorRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvparse.RequiredColumns); err != nil {
		return fmt.Errorf("failed to write indicator header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.ProviderID,
			r.ProviderName,
			r.IndicatorID,
			r.IndicatorName,
			r.Pillar.String(),
			r.ValueRaw,
			formatScore(r.NormEvidence),
			formatScore(r.NormKnown),
			strings.Join(r.EvidenceURLs, URLSeparator),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("failed to write indicator %s/%s: %w", r.ProviderID, r.IndicatorID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
