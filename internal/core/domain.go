// Package core holds the domain model of the lesson ledger: courses, lesson
// records, users, and the validation rules and error taxonomy shared by the
// service and storage layers.
package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// MinHours is the smallest bookable lesson quantity. Half-hour steps are the
// convention in the UI but only the minimum is enforced.
const MinHours = 0.5

// Sentinel errors. Handlers map these onto HTTP statuses; everything else is
// treated as a storage failure.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")

	ErrEmptyCourseName   = fmt.Errorf("%w: course name is required", ErrValidation)
	ErrEmptyGrade        = fmt.Errorf("%w: grade is required", ErrValidation)
	ErrEmptyCourseID     = fmt.Errorf("%w: course is required", ErrValidation)
	ErrHoursBelowMinimum = fmt.Errorf("%w: hours must be at least 0.5", ErrValidation)
	ErrZeroDate          = fmt.Errorf("%w: date is required", ErrValidation)
	ErrFutureDate        = fmt.Errorf("%w: date cannot be in the future", ErrValidation)
	ErrMissingDateRange  = fmt.Errorf("%w: start and end date are required", ErrValidation)
	ErrEmptyUsername     = fmt.Errorf("%w: username is required", ErrValidation)
	ErrEmptyPassword     = fmt.Errorf("%w: password is required", ErrValidation)
	ErrCourseNotFound    = fmt.Errorf("course %w", ErrNotFound)
	ErrRecordNotFound    = fmt.Errorf("record %w", ErrNotFound)
	ErrUserNotFound      = fmt.Errorf("user %w", ErrNotFound)
	ErrDuplicateCourse   = fmt.Errorf("%w: a course with this name and grade already exists", ErrConflict)
	ErrDuplicateUsername = fmt.Errorf("%w: username already taken", ErrConflict)
)

// CourseInUseError blocks course deletion while lesson records still reference
// it. The count is surfaced so callers can tell the user what is in the way.
type CourseInUseError struct {
	CourseID string
	Records  int
}

func (e *CourseInUseError) Error() string {
	return fmt.Sprintf("course %s has %d lesson records and cannot be deleted", e.CourseID, e.Records)
}

func (e *CourseInUseError) Is(target error) bool { return target == ErrConflict }

// Course is a teachable subject at a specific grade. The (Name, Grade) pair is
// unique among live courses.
type Course struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Grade     string    `json:"grade"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c Course) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyCourseName
	}
	if strings.TrimSpace(c.Grade) == "" {
		return ErrEmptyGrade
	}
	return nil
}

// LessonRecord is one logged teaching session. CourseName and Grade are
// snapshots copied from the course at write time; they follow a course rename
// only through the explicit cascade, never implicitly.
type LessonRecord struct {
	ID         string    `json:"id"`
	CourseID   string    `json:"courseId"`
	CourseName string    `json:"courseName"`
	Grade      string    `json:"grade"`
	Date       time.Time `json:"date"`
	Hours      float64   `json:"hours"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (r LessonRecord) Validate() error {
	if strings.TrimSpace(r.CourseID) == "" {
		return ErrEmptyCourseID
	}
	if r.Date.IsZero() {
		return ErrZeroDate
	}
	if r.Hours < MinHours {
		return ErrHoursBelowMinimum
	}
	return nil
}

// User is an authenticated identity. The core never aggregates by user; it is
// only consumed by the auth and admin surfaces.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"isAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return ErrEmptyUsername
	}
	return nil
}
