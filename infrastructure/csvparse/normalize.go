package csvparse

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/ahrav/go-aipi/internal/domain"
)

// Column names the normalizer looks up in the header.
const (
	ColProviderID    = "provider_id"
	ColProviderName  = "provider_name"
	ColIndicatorID   = "indicator_id"
	ColIndicatorName = "indicator_name"
	ColPillar        = "pillar"
	ColValue         = "indicator_value"
	ColNormEvidence  = "norm_evidence"
	ColNormKnown     = "norm_known"
	ColEvidenceURL   = "evidence_url"
)

// RequiredColumns lists the columns a complete dataset header carries.
var RequiredColumns = []string{
	ColProviderID, ColProviderName, ColIndicatorID, ColIndicatorName, ColPillar,
	ColValue, ColNormEvidence, ColNormKnown, ColEvidenceURL,
}

// Header maps column names to their position. The first occurrence of a
// duplicated name wins.
type Header struct {
	index map[string]int
}

// NewHeader indexes the fields of a header line.
func NewHeader(fields []string) Header {
	h := Header{index: make(map[string]int, len(fields))}
	for i, f := range fields {
		if _, dup := h.index[f]; !dup {
			h.index[f] = i
		}
	}
	return h
}

// Has reports whether the header names column.
func (h Header) Has(column string) bool {
	_, ok := h.index[column]
	return ok
}

// Missing returns the required columns absent from the header.
func (h Header) Missing() []string {
	var out []string
	for _, c := range RequiredColumns {
		if !h.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Get returns the value of column in fields. A column missing from the
// header or from a short row yields ok == false.
func (h Header) Get(fields []string, column string) (string, bool) {
	i, ok := h.index[column]
	if !ok || i >= len(fields) {
		return "", false
	}
	return fields[i], true
}

// SkipReason explains why a data line produced no row.
type SkipReason string

// Skip reasons reported by NormalizeRow.
const (
	SkipNone          SkipReason = ""
	SkipMissingID     SkipReason = "missing_provider_id"
	SkipMissingName   SkipReason = "missing_provider_name"
	SkipUnknownPillar SkipReason = "unknown_pillar"
)

// NormalizeRow maps the fields of one data line to an IndicatorRow. Rows
// without a provider id or name, or whose pillar is not recognized, are
// rejected with the reason.
func NormalizeRow(h Header, fields []string) (domain.IndicatorRow, SkipReason) {
	get := func(col string) string {
		v, _ := h.Get(fields, col)
		return v
	}

	row := domain.IndicatorRow{
		ProviderID:    get(ColProviderID),
		ProviderName:  get(ColProviderName),
		IndicatorID:   get(ColIndicatorID),
		IndicatorName: get(ColIndicatorName),
		ValueRaw:      get(ColValue),
		NormEvidence:  ParseNumber(get(ColNormEvidence)),
		NormKnown:     ParseNumber(get(ColNormKnown)),
		EvidenceURLs:  ExtractURLs(get(ColEvidenceURL)),
	}
	if row.ProviderID == "" {
		return domain.IndicatorRow{}, SkipMissingID
	}
	if row.ProviderName == "" {
		return domain.IndicatorRow{}, SkipMissingName
	}
	p, ok := ParsePillar(get(ColPillar))
	if !ok {
		return domain.IndicatorRow{}, SkipUnknownPillar
	}
	row.Pillar = p
	return row, SkipNone
}

// ParsePillar resolves a raw pillar value. Matching ignores surrounding
// whitespace and case. "and" and "&" are interchangeable joiners for the
// inclusivity pillar only; every other name must match exactly.
func ParsePillar(raw string) (domain.Pillar, bool) {
	folded := cases.Fold().String(strings.TrimSpace(raw))
	if folded == "inclusivity and diversity" {
		return domain.PillarInclusivityDiversity, true
	}
	for _, p := range domain.Pillars {
		if folded == cases.Fold().String(p.String()) {
			return p, true
		}
	}
	return 0, false
}

// ParseNumber converts a trimmed numeric literal to a float. Decimal
// literals and unsigned 0x, 0o and 0b integer literals are accepted; digit
// separators and hexadecimal exponents are not. Empty, unparsable and
// non-finite values are absent, never zero.
func ParseNumber(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsRune(s, '_') {
		return nil
	}
	var v float64
	if base := radixPrefix(s); base != 0 {
		digits := s[2:]
		if digits == "" || digits[0] == '+' || digits[0] == '-' {
			return nil
		}
		n, ok := new(big.Int).SetString(digits, base)
		if !ok {
			return nil
		}
		v, _ = new(big.Float).SetInt(n).Float64()
	} else {
		if strings.ContainsAny(s, "xX") {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		v = f
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// radixPrefix returns the base named by a 0x, 0o or 0b prefix, or zero.
func radixPrefix(s string) int {
	if len(s) < 2 || s[0] != '0' {
		return 0
	}
	switch s[1] {
	case 'x', 'X':
		return 16
	case 'o', 'O':
		return 8
	case 'b', 'B':
		return 2
	}
	return 0
}

// urlPattern matches http(s) URLs up to whitespace, comma or semicolon.
// The negated class spells out the Unicode spaces that count as
// whitespace in browsers, since \s in RE2 is ASCII only.
var (
	urlPattern    = regexp.MustCompile(`https?://[^\s\x0B\p{Z}\x{FEFF},;]+`)
	trailingPunct = regexp.MustCompile(`[)\].,;]+$`)
)

// ExtractURLs returns the distinct URLs found in s in first-seen order,
// with trailing closing punctuation removed.
func ExtractURLs(s string) []string {
	if s == "" {
		return nil
	}
	matches := urlPattern.FindAllString(s, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		u := trailingPunct.ReplaceAllString(m, "")
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
