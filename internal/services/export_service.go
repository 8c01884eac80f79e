package services

import (
	"context"
	"fmt"

	"keshi/internal/civiltime"
	"keshi/internal/core"
)

// Export is a rendered CSV payload plus the attachment filename encoding the
// requested range.
type Export struct {
	Filename string
	Content  string
}

// ExportService renders a date-bounded CSV of lesson records. It is a pure
// read path: re-running the same export writes nothing and yields identical
// bytes for an unchanged store.
type ExportService struct {
	records RecordStore
}

func NewExportService(records RecordStore) *ExportService {
	return &ExportService{records: records}
}

// ExportCSV renders all records with dates inside [startDate, endDate]
// (inclusive civil days, oldest first). Both dates are required.
func (s *ExportService) ExportCSV(ctx context.Context, startDate, endDate string) (Export, error) {
	if startDate == "" || endDate == "" {
		return Export{}, core.ErrMissingDateRange
	}

	from, err := civiltime.ParseDate(startDate)
	if err != nil {
		return Export{}, fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	to, err := civiltime.ParseDate(endDate)
	if err != nil {
		return Export{}, fmt.Errorf("%w: %v", core.ErrValidation, err)
	}

	records, err := s.records.ListRecordsInRange(ctx, from.StartOfDay(), to.EndOfDay())
	if err != nil {
		return Export{}, fmt.Errorf("load records for export: %w", err)
	}

	return Export{
		Filename: fmt.Sprintf("lesson_records_%s_to_%s.csv", from, to),
		Content:  core.BuildCSV(records, civiltime.FormatDate),
	}, nil
}
