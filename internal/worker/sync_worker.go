// Package worker mirrors lesson records into the configured spreadsheet. It
// consumes record events from AMQP and periodically sweeps records whose
// sync state is still pending, so a lost message only delays a row.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"keshi/internal/amqp"
	"keshi/internal/core"
	"keshi/internal/mirror"
)

// SyncStore is the slice of the repository the worker needs: record lookup
// plus the sync-state bookkeeping columns.
type SyncStore interface {
	GetRecord(ctx context.Context, id string) (core.LessonRecord, error)
	ListPendingSyncRecords(ctx context.Context, limit int) ([]core.LessonRecord, error)
	MarkRecordSynced(ctx context.Context, id string) error
	MarkRecordSyncError(ctx context.Context, id string) error
}

// SyncWorker pushes lesson records to the mirror and keeps the per-record
// sync state in the store current.
type SyncWorker struct {
	store     SyncStore
	appender  mirror.RecordAppender
	remover   mirror.RecordRemover
	batchSize int
}

func NewSyncWorker(store SyncStore, appender mirror.RecordAppender, remover mirror.RecordRemover, batchSize int) *SyncWorker {
	return &SyncWorker{
		store:     store,
		appender:  appender,
		remover:   remover,
		batchSize: batchSize,
	}
}

// HandleEvent dispatches one record event from the queue. Returning an error
// makes the consumer nack and requeue the delivery.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.RecordEvent) error {
	switch ev.Kind {
	case amqp.KindRecordSync:
		return w.handleSync(ctx, ev.RecordID)
	case amqp.KindRecordDelete:
		return w.handleDelete(ctx, ev.RecordID)
	default:
		return fmt.Errorf("unknown event kind %q", ev.Kind)
	}
}

func (w *SyncWorker) handleSync(ctx context.Context, recordID string) error {
	rec, err := w.store.GetRecord(ctx, recordID)
	if errors.Is(err, core.ErrNotFound) {
		// Deleted before the event was consumed; nothing to mirror.
		slog.InfoContext(ctx, "Record gone before sync, skipping", "record_id", recordID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get record: %w", err)
	}
	return w.mirrorRecord(ctx, rec)
}

func (w *SyncWorker) handleDelete(ctx context.Context, recordID string) error {
	if w.remover == nil {
		slog.WarnContext(ctx, "No mirror remover configured, skipping row removal",
			"record_id", recordID)
		return nil
	}
	if err := w.remover.RemoveRecord(ctx, recordID); err != nil {
		return fmt.Errorf("remove mirror row: %w", err)
	}
	slog.InfoContext(ctx, "Mirror row removed", "record_id", recordID)
	return nil
}

// ProcessPending sweeps records still marked pending or errored. This is the
// backup path for lost queue messages and mirror outages; it runs on a timer
// and once at startup.
func (w *SyncWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.store.ListPendingSyncRecords(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending records: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending records", "count", len(pending))

	synced, failed := 0, 0
	for _, rec := range pending {
		if err := w.mirrorRecord(ctx, rec); err != nil {
			slog.ErrorContext(ctx, "Failed to mirror record", "record_id", rec.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Pending sweep completed",
		"total", len(pending), "synced", synced, "errors", failed)
	return nil
}

func (w *SyncWorker) mirrorRecord(ctx context.Context, rec core.LessonRecord) error {
	ref, err := w.appender.AppendRecord(ctx, rec)
	if err != nil {
		if markErr := w.store.MarkRecordSyncError(ctx, rec.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "record_id", rec.ID, "error", markErr)
		}
		return fmt.Errorf("append to mirror: %w", err)
	}

	if err := w.store.MarkRecordSynced(ctx, rec.ID); err != nil {
		// The row is mirrored; only the bookkeeping failed. The sweep will
		// retry and append a duplicate row, which is preferable to losing one.
		slog.ErrorContext(ctx, "Failed to mark record synced", "record_id", rec.ID, "error", err)
	}

	slog.InfoContext(ctx, "Record mirrored",
		"record_id", rec.ID, "row_ref", ref, "course", rec.CourseName, "hours", rec.Hours)
	return nil
}
