// CSV rendering for the export surface.
//
// The dialect is fixed: text columns are always double-quoted with inner
// quotes doubled and newlines folded to a space, while date and hours stay
// bare. encoding/csv normalizes quoting and cannot reproduce this, so the
// rows are built by hand.
package core

import (
	"strconv"
	"strings"
	"time"
)

// UTF8BOM prefixes the export so spreadsheet tools detect UTF-8 and CJK text
// survives the round trip.
const UTF8BOM = "\uFEFF"

// CSVHeader is the fixed export header row.
const CSVHeader = "courseName,grade,date,hours,notes"

// BuildCSV renders records into the export payload. The date column is
// rendered through formatDate (civil-timezone YYYY-MM-DD); callers pass
// civiltime.FormatDate. Output is deterministic for a given input slice.
func BuildCSV(records []LessonRecord, formatDate func(time.Time) string) string {
	var b strings.Builder
	b.WriteString(UTF8BOM)
	b.WriteString(CSVHeader)
	b.WriteByte('\n')

	for _, r := range records {
		b.WriteString(csvQuote(r.CourseName))
		b.WriteByte(',')
		b.WriteString(csvQuote(r.Grade))
		b.WriteByte(',')
		b.WriteString(formatDate(r.Date))
		b.WriteByte(',')
		b.WriteString(formatHours(r.Hours))
		b.WriteByte(',')
		b.WriteString(csvQuote(r.Notes))
		b.WriteByte('\n')
	}
	return b.String()
}

// csvQuote wraps s in double quotes, doubling inner quotes and collapsing
// newlines to a single space so a note can never break the row structure.
func csvQuote(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, `"`, `""`)
	return `"` + s + `"`
}

// formatHours renders hours as a plain number: 1.5 stays 1.5, 2.0 becomes 2.
func formatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', -1, 64)
}
