package memory

import (
	"context"
	"testing"
	"time"

	"keshi/internal/core"
	"keshi/internal/mirror"
)

var (
	_ mirror.RecordAppender = (*Store)(nil)
	_ mirror.RecordRemover  = (*Store)(nil)
)

func TestAppendAndRemove(t *testing.T) {
	s := New()
	ctx := context.Background()

	rec := core.LessonRecord{ID: "r1", CourseName: "Math", Grade: "G5", Date: time.Now(), Hours: 1.5}
	ref, err := s.AppendRecord(ctx, rec)
	if err != nil {
		t.Fatalf("AppendRecord: %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("row ref = %q, want mem:1", ref)
	}
	if got := len(s.Rows()); got != 1 {
		t.Fatalf("rows = %d, want 1", got)
	}

	if err := s.RemoveRecord(ctx, "r1"); err != nil {
		t.Fatalf("RemoveRecord: %v", err)
	}
	if got := len(s.Rows()); got != 0 {
		t.Errorf("rows after remove = %d, want 0", got)
	}

	// Removing an id that was never mirrored is not an error.
	if err := s.RemoveRecord(ctx, "r1"); err != nil {
		t.Errorf("RemoveRecord on absent id: %v", err)
	}
}

func TestAppendFailure(t *testing.T) {
	s := New()
	s.FailAppend = true
	if _, err := s.AppendRecord(context.Background(), core.LessonRecord{ID: "r1"}); err == nil {
		t.Fatal("expected append error")
	}
	if got := len(s.Rows()); got != 0 {
		t.Errorf("rows = %d, want 0", got)
	}
}
