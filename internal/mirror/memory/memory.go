// Package memory is an in-process mirror used in tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"keshi/internal/core"
)

type Store struct {
	mu   sync.Mutex
	rows []core.LessonRecord

	// FailAppend makes the next appends fail, for retry-path tests.
	FailAppend bool
}

func New() *Store {
	return &Store{}
}

// AppendRecord stores the record and returns a synthetic row reference.
func (s *Store) AppendRecord(_ context.Context, rec core.LessonRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAppend {
		return "", fmt.Errorf("append unavailable")
	}
	s.rows = append(s.rows, rec)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

// RemoveRecord drops the row for the record id, if present.
func (s *Store) RemoveRecord(_ context.Context, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, row := range s.rows {
		if row.ID == recordID {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Rows returns a copy of the mirrored rows in append order.
func (s *Store) Rows() []core.LessonRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.LessonRecord(nil), s.rows...)
}
