package core

import (
	"strings"
	"testing"
	"time"
)

// formatUTCDate stands in for civiltime.FormatDate; core stays independent of
// the timezone package and the quoting rules are what is under test here.
func formatUTCDate(t time.Time) string { return t.UTC().Format("2006-01-02") }

func TestBuildCSVQuoting(t *testing.T) {
	records := []LessonRecord{
		{
			CourseName: "Math",
			Grade:      "G5",
			Date:       time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
			Hours:      1.5,
			Notes:      `He said "ok"`,
		},
	}
	got := BuildCSV(records, formatUTCDate)

	if UTF8BOM != "\xEF\xBB\xBF" {
		t.Fatalf("UTF8BOM = %q, want the UTF-8 encoding of U+FEFF", UTF8BOM)
	}
	if !strings.HasPrefix(got, UTF8BOM) {
		t.Fatal("payload must start with the UTF-8 BOM")
	}
	lines := strings.Split(strings.TrimPrefix(got, UTF8BOM), "\n")
	if lines[0] != CSVHeader {
		t.Fatalf("header = %q", lines[0])
	}
	want := `"Math","G5",2024-03-02,1.5,"He said ""ok"""`
	if lines[1] != want {
		t.Fatalf("row = %q, want %q", lines[1], want)
	}
}

func TestBuildCSVNewlinesAndHours(t *testing.T) {
	records := []LessonRecord{
		{
			CourseName: "English",
			Grade:      "G6",
			Date:       time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
			Hours:      2,
			Notes:      "line one\nline two\r\nline three",
		},
	}
	got := BuildCSV(records, formatUTCDate)
	lines := strings.Split(strings.TrimPrefix(got, UTF8BOM), "\n")

	// Exactly header + one row + trailing newline: notes newlines were folded.
	if len(lines) != 3 || lines[2] != "" {
		t.Fatalf("unexpected line structure: %q", lines)
	}
	want := `"English","G6",2024-03-03,2,"line one line two line three"`
	if lines[1] != want {
		t.Fatalf("row = %q", lines[1])
	}
}

func TestBuildCSVEmpty(t *testing.T) {
	got := BuildCSV(nil, formatUTCDate)
	if got != UTF8BOM+CSVHeader+"\n" {
		t.Fatalf("empty export = %q", got)
	}
	// Re-running is idempotent.
	if again := BuildCSV(nil, formatUTCDate); again != got {
		t.Fatal("export is not deterministic")
	}
}
