// Package services orchestrates the lesson ledger's use cases over the
// entity store: record CRUD and querying, course management with the rename
// cascade, aggregation, and CSV export. Services depend on the narrow store
// interfaces below so tests can run against in-memory fakes and the SQLite
// scan can later be swapped for an incrementally maintained rollup.
package services

import (
	"context"
	"time"

	"keshi/internal/core"
	"keshi/internal/storage"
)

type (
	// CourseStore is the course side of the entity store.
	CourseStore interface {
		CreateCourse(ctx context.Context, c core.Course) (core.Course, error)
		GetCourse(ctx context.Context, id string) (core.Course, error)
		ListCourses(ctx context.Context) ([]core.Course, error)
		FindCourseByNameGrade(ctx context.Context, name, grade, excludeID string) (core.Course, error)
		UpdateCourse(ctx context.Context, id, name, grade string) (core.Course, error)
		DeleteCourse(ctx context.Context, id string) error
	}

	// RecordStore is the lesson-record side of the entity store.
	RecordStore interface {
		CreateRecord(ctx context.Context, rec core.LessonRecord) (core.LessonRecord, error)
		GetRecord(ctx context.Context, id string) (core.LessonRecord, error)
		DeleteRecord(ctx context.Context, id string) error
		ListRecords(ctx context.Context, f storage.RecordFilter, offset, limit int) ([]core.LessonRecord, error)
		CountRecords(ctx context.Context, f storage.RecordFilter) (int, error)
		ListRecordsInRange(ctx context.Context, from, to time.Time) ([]core.LessonRecord, error)
		ListAllRecords(ctx context.Context) ([]core.LessonRecord, error)
		CountRecordsByCourse(ctx context.Context, courseID string) (int, error)
		UpdateRecordSnapshots(ctx context.Context, courseID, name, grade string) (int64, error)
	}

	// UserStore is the identity side of the entity store.
	UserStore interface {
		CreateUser(ctx context.Context, u core.User) (core.User, error)
		GetUser(ctx context.Context, id string) (core.User, error)
		GetUserByUsername(ctx context.Context, username string) (core.User, error)
		UpdateUser(ctx context.Context, id, username, passwordHash string) (core.User, error)
		ListUsers(ctx context.Context) ([]core.User, error)
		DeleteUser(ctx context.Context, id string) error
	}

	// EventPublisher fans record mutations out to the mirror queue. A nil
	// publisher disables mirroring; publish failures never fail the request.
	EventPublisher interface {
		PublishRecordSync(ctx context.Context, recordID string) error
		PublishRecordDelete(ctx context.Context, recordID, courseName, grade string, date time.Time) error
	}

	// StatsInvalidator drops cached aggregates after a write. Record and
	// course services call it; the stats service implements it.
	StatsInvalidator interface {
		Invalidate()
	}
)
