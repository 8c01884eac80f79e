package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"keshi/internal/core"
)

// CourseService manages the course catalog. Renames fan out to the
// denormalized snapshots on lesson records; deletion is blocked while any
// record still references the course.
type CourseService struct {
	courses CourseStore
	records RecordStore
	stats   StatsInvalidator
}

func NewCourseService(courses CourseStore, records RecordStore, stats StatsInvalidator) *CourseService {
	return &CourseService{courses: courses, records: records, stats: stats}
}

// Create adds a course after checking the (name, grade) pair is free.
func (s *CourseService) Create(ctx context.Context, name, grade string) (core.Course, error) {
	course := core.Course{Name: strings.TrimSpace(name), Grade: strings.TrimSpace(grade)}
	if err := course.Validate(); err != nil {
		return core.Course{}, err
	}

	if _, err := s.courses.FindCourseByNameGrade(ctx, course.Name, course.Grade, ""); err == nil {
		return core.Course{}, core.ErrDuplicateCourse
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.Course{}, fmt.Errorf("check duplicate course: %w", err)
	}

	return s.courses.CreateCourse(ctx, course)
}

func (s *CourseService) Get(ctx context.Context, id string) (core.Course, error) {
	return s.courses.GetCourse(ctx, id)
}

func (s *CourseService) List(ctx context.Context) ([]core.Course, error) {
	return s.courses.ListCourses(ctx)
}

// Rename changes a course's name/grade and rewrites the snapshot copies on
// every referencing record. The cascade is a single filtered bulk update, so
// re-applying the same rename converges on the same end state and a record
// created concurrently is never lost.
func (s *CourseService) Rename(ctx context.Context, id, name, grade string) (core.Course, error) {
	course := core.Course{Name: strings.TrimSpace(name), Grade: strings.TrimSpace(grade)}
	if err := course.Validate(); err != nil {
		return core.Course{}, err
	}

	if _, err := s.courses.FindCourseByNameGrade(ctx, course.Name, course.Grade, id); err == nil {
		return core.Course{}, core.ErrDuplicateCourse
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.Course{}, fmt.Errorf("check duplicate course: %w", err)
	}

	updated, err := s.courses.UpdateCourse(ctx, id, course.Name, course.Grade)
	if err != nil {
		return core.Course{}, err
	}

	n, err := s.records.UpdateRecordSnapshots(ctx, id, course.Name, course.Grade)
	if err != nil {
		// The course row is already renamed; surfacing the error lets the
		// caller retry, and re-running the cascade is safe.
		return core.Course{}, fmt.Errorf("cascade rename to records: %w", err)
	}
	slog.InfoContext(ctx, "Course renamed",
		"id", id, "name", course.Name, "grade", course.Grade, "records_updated", n)

	s.invalidateStats()
	return updated, nil
}

// Delete removes a course. It fails with a conflict carrying the blocking
// record count while any lesson record still references the course.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	count, err := s.records.CountRecordsByCourse(ctx, id)
	if err != nil {
		return fmt.Errorf("count referencing records: %w", err)
	}
	if count > 0 {
		return &core.CourseInUseError{CourseID: id, Records: count}
	}
	return s.courses.DeleteCourse(ctx, id)
}

func (s *CourseService) invalidateStats() {
	if s.stats != nil {
		s.stats.Invalidate()
	}
}
