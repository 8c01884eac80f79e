package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"keshi/internal/civiltime"
	"keshi/internal/core"
	"keshi/internal/storage"
)

// Listing defaults when the caller sends nothing.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
)

// CreateRecordInput is the caller-supplied shape of a new lesson record.
// Date is a civil date or datetime string; CourseName/Grade default to the
// course's current values when empty (snapshot at write time).
type CreateRecordInput struct {
	CourseID   string  `json:"courseId"`
	CourseName string  `json:"courseName"`
	Grade      string  `json:"grade"`
	Date       string  `json:"date"`
	Hours      float64 `json:"hours"`
	Notes      string  `json:"notes"`
}

// ListRecordsQuery filters and paginates the record listing. Empty strings
// mean "no constraint"; non-positive page/pageSize fall back to the defaults.
type ListRecordsQuery struct {
	Search    string
	StartDate string
	EndDate   string
	Page      int
	PageSize  int
}

// RecordPage is one page of records plus the pagination metadata the UI
// renders. Total ignores pagination.
type RecordPage struct {
	Records     []core.LessonRecord `json:"records"`
	Total       int                 `json:"total"`
	TotalPages  int                 `json:"totalPages"`
	CurrentPage int                 `json:"currentPage"`
}

// RecordService owns lesson-record use cases: creation with course snapshot
// and not-in-the-future validation, deletion, and the paginated query path.
type RecordService struct {
	records RecordStore
	courses CourseStore
	events  EventPublisher
	clock   core.Clock
	stats   StatsInvalidator
}

func NewRecordService(records RecordStore, courses CourseStore, events EventPublisher, clock core.Clock, stats StatsInvalidator) *RecordService {
	if clock == nil {
		clock = core.SystemClock{}
	}
	return &RecordService{
		records: records,
		courses: courses,
		events:  events,
		clock:   clock,
		stats:   stats,
	}
}

// Create validates and stores a new record, snapshotting the course name and
// grade, then publishes a mirror sync event.
func (s *RecordService) Create(ctx context.Context, in CreateRecordInput) (core.LessonRecord, error) {
	if in.CourseID == "" {
		return core.LessonRecord{}, core.ErrEmptyCourseID
	}
	if in.Date == "" {
		return core.LessonRecord{}, core.ErrZeroDate
	}

	course, err := s.courses.GetCourse(ctx, in.CourseID)
	if err != nil {
		return core.LessonRecord{}, err
	}

	date, err := civiltime.ParseInstant(in.Date)
	if err != nil {
		return core.LessonRecord{}, fmt.Errorf("%w: %v", core.ErrValidation, err)
	}
	// Authoritative server-side check: a skewed client must not be able to
	// book hours into a month that has not happened yet.
	if date.After(s.clock.Now()) {
		return core.LessonRecord{}, core.ErrFutureDate
	}

	rec := core.LessonRecord{
		CourseID:   course.ID,
		CourseName: in.CourseName,
		Grade:      in.Grade,
		Date:       date.UTC(),
		Hours:      in.Hours,
		Notes:      in.Notes,
	}
	if rec.CourseName == "" {
		rec.CourseName = course.Name
	}
	if rec.Grade == "" {
		rec.Grade = course.Grade
	}
	if err := rec.Validate(); err != nil {
		return core.LessonRecord{}, err
	}

	created, err := s.records.CreateRecord(ctx, rec)
	if err != nil {
		return core.LessonRecord{}, fmt.Errorf("create record: %w", err)
	}

	s.invalidateStats()
	if s.events != nil {
		if err := s.events.PublishRecordSync(ctx, created.ID); err != nil {
			// The record is stored; the periodic sweep will pick it up.
			slog.ErrorContext(ctx, "Failed to publish record sync event",
				"record_id", created.ID, "error", err)
		}
	}

	return created, nil
}

// Get returns a single record by id.
func (s *RecordService) Get(ctx context.Context, id string) (core.LessonRecord, error) {
	return s.records.GetRecord(ctx, id)
}

// Delete removes a record. Records are leaves: no cascade is needed.
func (s *RecordService) Delete(ctx context.Context, id string) error {
	rec, err := s.records.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	if err := s.records.DeleteRecord(ctx, id); err != nil {
		return err
	}

	s.invalidateStats()
	if s.events != nil {
		if err := s.events.PublishRecordDelete(ctx, rec.ID, rec.CourseName, rec.Grade, rec.Date); err != nil {
			slog.ErrorContext(ctx, "Failed to publish record delete event",
				"record_id", rec.ID, "error", err)
		}
	}
	return nil
}

// List answers the filtered, paginated record query, most recent date first.
// A page past the end yields an empty page, not an error.
func (s *RecordService) List(ctx context.Context, q ListRecordsQuery) (RecordPage, error) {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}

	filter := storage.RecordFilter{Search: q.Search}
	if q.StartDate != "" {
		d, err := civiltime.ParseDate(q.StartDate)
		if err != nil {
			return RecordPage{}, fmt.Errorf("%w: %v", core.ErrValidation, err)
		}
		filter.From = d.StartOfDay()
	}
	if q.EndDate != "" {
		d, err := civiltime.ParseDate(q.EndDate)
		if err != nil {
			return RecordPage{}, fmt.Errorf("%w: %v", core.ErrValidation, err)
		}
		filter.To = d.EndOfDay()
	}

	total, err := s.records.CountRecords(ctx, filter)
	if err != nil {
		return RecordPage{}, fmt.Errorf("count records: %w", err)
	}

	offset := (q.Page - 1) * q.PageSize
	records, err := s.records.ListRecords(ctx, filter, offset, q.PageSize)
	if err != nil {
		return RecordPage{}, fmt.Errorf("list records: %w", err)
	}
	if records == nil {
		records = []core.LessonRecord{}
	}

	return RecordPage{
		Records:     records,
		Total:       total,
		TotalPages:  int(math.Ceil(float64(total) / float64(q.PageSize))),
		CurrentPage: q.Page,
	}, nil
}

func (s *RecordService) invalidateStats() {
	if s.stats != nil {
		s.stats.Invalidate()
	}
}
