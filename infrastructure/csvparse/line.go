// Package csvparse turns the published indicator CSV into normalized
// domain rows. The parser is line oriented and lenient: it never fails on
// malformed quoting, and rows it cannot use are skipped and counted.
package csvparse

import "strings"

// ParseLine splits one CSV line into trimmed fields. Double-quoted fields
// may contain commas, and "" inside quotes is a literal quote.
//
// Malformed quoting is tolerated rather than reported: an unterminated
// quote runs to the end of the line. Quoted fields spanning several lines
// are not supported.
func ParseLine(line string) []string {
	var (
		out      []string
		cur      strings.Builder
		inQuotes bool
	)
	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(line) && line[i+1] == '"' {
				cur.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == ',' && !inQuotes:
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	return append(out, strings.TrimSpace(cur.String()))
}
