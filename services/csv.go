package services

import "strings"

// ============================================================================
// CSV CODEC
// ============================================================================
// A small quote-aware scanner instead of a line split, so fields containing
// commas, doubled quotes and embedded newlines survive a round trip.
// ============================================================================

// csvEscape quotes a field when it contains a comma, quote, CR or newline,
// doubling any embedded quotes.
func csvEscape(value string) string {
	if strings.ContainsAny(value, ",\"\n\r") {
		return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
	}
	return value
}

// parseCSVDocument scans the whole input at once. Quoted fields may contain
// commas, doubled quotes and newlines. CRLF line endings are accepted. An
// unterminated quote consumes the rest of the input into the open field.
func parseCSVDocument(text string) [][]string {
	var rows [][]string
	var row []string
	var field strings.Builder
	inQuotes := false

	endField := func() {
		row = append(row, field.String())
		field.Reset()
	}
	endRow := func() {
		endField()
		rows = append(rows, row)
		row = nil
	}

	for i := 0; i < len(text); i++ {
		ch := text[i]
		if inQuotes {
			if ch == '"' {
				if i+1 < len(text) && text[i+1] == '"' {
					field.WriteByte('"')
					i++
				} else {
					inQuotes = false
				}
			} else {
				field.WriteByte(ch)
			}
			continue
		}

		switch ch {
		case '"':
			inQuotes = true
		case ',':
			endField()
		case '\r':
			// CR is only a line-ending byte when a LF follows; a lone CR
			// belongs to the field
			if i+1 >= len(text) || text[i+1] != '\n' {
				field.WriteByte(ch)
			}
		case '\n':
			endRow()
		default:
			field.WriteByte(ch)
		}
	}

	// Last line without trailing newline
	if field.Len() > 0 || len(row) > 0 {
		endRow()
	}

	// Drop rows that are entirely empty (blank trailing lines)
	filtered := rows[:0]
	for _, r := range rows {
		if len(r) == 1 && strings.TrimSpace(r[0]) == "" {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}
