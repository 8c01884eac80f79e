package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keshi/internal/amqp"
	"keshi/internal/core"
	"keshi/internal/mirror/memory"
)

// fakeSyncStore tracks sync states in memory.
type fakeSyncStore struct {
	records map[string]core.LessonRecord
	states  map[string]string
}

func newFakeSyncStore() *fakeSyncStore {
	return &fakeSyncStore{
		records: make(map[string]core.LessonRecord),
		states:  make(map[string]string),
	}
}

func (s *fakeSyncStore) add(rec core.LessonRecord) {
	s.records[rec.ID] = rec
	s.states[rec.ID] = "pending"
}

func (s *fakeSyncStore) GetRecord(_ context.Context, id string) (core.LessonRecord, error) {
	rec, ok := s.records[id]
	if !ok {
		return core.LessonRecord{}, core.ErrRecordNotFound
	}
	return rec, nil
}

func (s *fakeSyncStore) ListPendingSyncRecords(_ context.Context, limit int) ([]core.LessonRecord, error) {
	var out []core.LessonRecord
	for id, state := range s.states {
		if state == "synced" {
			continue
		}
		out = append(out, s.records[id])
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeSyncStore) MarkRecordSynced(_ context.Context, id string) error {
	s.states[id] = "synced"
	return nil
}

func (s *fakeSyncStore) MarkRecordSyncError(_ context.Context, id string) error {
	s.states[id] = "error"
	return nil
}

func record(id string) core.LessonRecord {
	return core.LessonRecord{
		ID: id, CourseID: "c1", CourseName: "Math", Grade: "G5",
		Date: time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), Hours: 1.5,
	}
}

func TestHandleSyncEvent(t *testing.T) {
	store := newFakeSyncStore()
	m := memory.New()
	w := NewSyncWorker(store, m, m, 10)

	store.add(record("r1"))
	err := w.HandleEvent(context.Background(), amqp.NewRecordSyncEvent("r1"))
	require.NoError(t, err)

	require.Len(t, m.Rows(), 1)
	assert.Equal(t, "r1", m.Rows()[0].ID)
	assert.Equal(t, "synced", store.states["r1"])
}

func TestHandleSyncEventRecordGone(t *testing.T) {
	store := newFakeSyncStore()
	m := memory.New()
	w := NewSyncWorker(store, m, m, 10)

	// A record deleted before the event arrives must not requeue forever.
	err := w.HandleEvent(context.Background(), amqp.NewRecordSyncEvent("gone"))
	assert.NoError(t, err)
	assert.Empty(t, m.Rows())
}

func TestHandleDeleteEvent(t *testing.T) {
	store := newFakeSyncStore()
	m := memory.New()
	w := NewSyncWorker(store, m, m, 10)

	store.add(record("r1"))
	require.NoError(t, w.HandleEvent(context.Background(), amqp.NewRecordSyncEvent("r1")))
	require.Len(t, m.Rows(), 1)

	rec := record("r1")
	err := w.HandleEvent(context.Background(), amqp.NewRecordDeleteEvent(rec.ID, rec.CourseName, rec.Grade, rec.Date))
	require.NoError(t, err)
	assert.Empty(t, m.Rows())
}

func TestHandleUnknownEventKind(t *testing.T) {
	w := NewSyncWorker(newFakeSyncStore(), memory.New(), nil, 10)
	err := w.HandleEvent(context.Background(), &amqp.RecordEvent{Kind: "nope"})
	assert.Error(t, err)
}

func TestProcessPending(t *testing.T) {
	store := newFakeSyncStore()
	m := memory.New()
	w := NewSyncWorker(store, m, m, 10)

	store.add(record("r1"))
	store.add(record("r2"))

	require.NoError(t, w.ProcessPending(context.Background()))
	assert.Len(t, m.Rows(), 2)
	assert.Equal(t, "synced", store.states["r1"])
	assert.Equal(t, "synced", store.states["r2"])

	// A second sweep finds nothing pending and appends nothing.
	require.NoError(t, w.ProcessPending(context.Background()))
	assert.Len(t, m.Rows(), 2)
}

func TestProcessPendingMirrorDown(t *testing.T) {
	store := newFakeSyncStore()
	m := memory.New()
	m.FailAppend = true
	w := NewSyncWorker(store, m, m, 10)

	store.add(record("r1"))
	require.NoError(t, w.ProcessPending(context.Background()), "sweep errors are logged, not fatal")
	assert.Equal(t, "error", store.states["r1"])

	// Errored records re-enter the sweep once the mirror recovers.
	m.FailAppend = false
	require.NoError(t, w.ProcessPending(context.Background()))
	assert.Equal(t, "synced", store.states["r1"])
	assert.Len(t, m.Rows(), 1)
}
