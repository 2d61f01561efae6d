package csvparse

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ahrav/go-aipi/internal/domain"
)

const bom = "\uFEFF"

// Stats summarizes one parse. Skipped rows are expected data-quality
// filtering, not errors.
type Stats struct {
	// Lines is the number of non-blank data lines after the header.
	Lines int `json:"lines"`
	// Rows is the number of rows kept.
	Rows int `json:"rows"`
	// Skipped counts rejected lines by reason.
	Skipped map[SkipReason]int `json:"skipped,omitempty"`
	// MissingColumns lists required columns absent from the header.
	MissingColumns []string `json:"missing_columns,omitempty"`
}

// SkippedTotal returns the number of rejected lines.
func (s Stats) SkippedTotal() int {
	n := 0
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

// Parse normalizes a whole dataset. A dataset with no data lines yields no
// rows and no error. Text that is not valid UTF-8 fails with
// domain.ErrInvalidInput.
func Parse(data []byte) ([]domain.IndicatorRow, Stats, error) {
	if !utf8.Valid(data) {
		return nil, Stats{}, fmt.Errorf("%w: dataset is not valid UTF-8", domain.ErrInvalidInput)
	}
	text := strings.TrimPrefix(string(data), bom)

	var (
		stats  Stats
		header Header
		rows   []domain.IndicatorRow
		seen   bool
	)
	for line := range strings.Lines(text) {
		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !seen {
			header = NewHeader(ParseLine(line))
			stats.MissingColumns = header.Missing()
			seen = true
			continue
		}
		stats.Lines++
		row, reason := NormalizeRow(header, ParseLine(line))
		if reason != SkipNone {
			if stats.Skipped == nil {
				stats.Skipped = make(map[SkipReason]int)
			}
			stats.Skipped[reason]++
			continue
		}
		rows = append(rows, row)
	}
	stats.Rows = len(rows)
	return rows, stats, nil
}

// ParseReader reads r to the end and parses it. Read failures are reported
// as domain.ErrInvalidInput.
func ParseReader(r io.Reader) ([]domain.IndicatorRow, Stats, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, Stats{}, fmt.Errorf("%w: read dataset: %w", domain.ErrInvalidInput, err)
	}
	return Parse(buf.Bytes())
}
