package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ahrav/go-aipi/internal/domain"
)

// Sheet names of the workbook export.
const (
	SheetIndicators = "indicators"
)

// WorkbookInput is everything the workbook export renders.
type WorkbookInput struct {
	// Rankings holds the ranked scores per mode; one sheet is written per
	// mode in domain.Modes order.
	Rankings map[domain.Mode][]domain.ProviderScore
	// Rows are the detail rows in dataset order.
	Rows       []domain.IndicatorRow
	Classifier domain.Classifier
}

// NewWorkbook renders in as a spreadsheet. The caller owns the returned
// file and must close it.
func NewWorkbook(in WorkbookInput) (*excelize.File, error) {
	f := excelize.NewFile()
	first := true
	for _, mode := range domain.Modes {
		sheet := string(mode)
		if first {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return nil, fmt.Errorf("failed to rename sheet: %w", err)
			}
			first = false
		} else if _, err := f.NewSheet(sheet); err != nil {
			return nil, fmt.Errorf("failed to add sheet %s: %w", sheet, err)
		}

		if err := writeHeader(f, sheet, TableHeader(), 18); err != nil {
			return nil, err
		}
		for i, s := range in.Rankings[mode] {
			row := i + 2
			values := []any{s.Rank, s.ProviderID, s.ProviderName, FormatAIPI(s.AIPI), FormatPercent(s.Coverage)}
			for _, p := range domain.Pillars {
				values = append(values, FormatPillar(s.Pillars.Get(p)))
			}
			if err := writeRow(f, sheet, row, values); err != nil {
				return nil, err
			}
		}
	}

	if _, err := f.NewSheet(SheetIndicators); err != nil {
		return nil, fmt.Errorf("failed to add sheet %s: %w", SheetIndicators, err)
	}
	header := []string{
		"provider_id", "provider_name", "indicator_id", "indicator_name", "pillar",
		"indicator_value", "status", "norm_evidence", "norm_known", "evidence_url",
	}
	if err := writeHeader(f, SheetIndicators, header, 22); err != nil {
		return nil, err
	}
	for i, r := range in.Rows {
		values := []any{
			r.ProviderID, r.ProviderName, r.IndicatorID, r.IndicatorName, r.Pillar.String(),
			r.ValueRaw, string(in.Classifier.Classify(r)), optional(r.NormEvidence), optional(r.NormKnown),
			strings.Join(r.EvidenceURLs, URLSeparator),
		}
		if err := writeRow(f, SheetIndicators, i+2, values); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// WriteWorkbook renders in and writes the XLSX bytes to w.
func WriteWorkbook(w io.Writer, in WorkbookInput) error {
	f, err := NewWorkbook(in)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, header []string, width float64) error {
	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to address header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header %s!%s: %w", sheet, cell, err)
		}
		col := strings.TrimRight(cell, "0123456789")
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("failed to size column %s: %w", col, err)
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// optional returns the score or nil so absent values stay empty cells.
func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
