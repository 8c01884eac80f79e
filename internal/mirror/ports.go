// Package mirror defines the outbound ports for the spreadsheet mirror of
// the lesson ledger. The worker appends and removes rows through these
// interfaces; the google subpackage talks to the Sheets API and the memory
// subpackage backs tests.
package mirror

import (
	"context"

	"keshi/internal/core"
)

type (
	// RecordAppender writes one lesson record as a mirror row and returns
	// an adapter-specific row reference.
	RecordAppender interface {
		AppendRecord(ctx context.Context, rec core.LessonRecord) (rowRef string, err error)
	}

	// RecordRemover deletes the mirror row for a record. Removing a record
	// that was never mirrored is not an error.
	RecordRemover interface {
		RemoveRecord(ctx context.Context, recordID string) error
	}
)
