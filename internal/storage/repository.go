// Package storage implements the entity store on SQLite. It is the single
// source of truth; conflicting writes serialize at the database, so no layer
// above it holds locks across operations.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"keshi/internal/core"
)

// Sync states for the Sheets mirror pipeline.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

// RecordFilter narrows record listings. Zero-value fields are ignored: an
// empty filter matches every record.
type RecordFilter struct {
	// Search matches case-insensitively as a substring against the course
	// name, grade, and notes (logical OR across the three).
	Search string

	// From/To bound the record date inclusively. Callers pass civil-day
	// boundary instants, never truncated dates.
	From time.Time
	To   time.Time
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable. Backs the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Courses

func (r *SQLiteRepository) CreateCourse(ctx context.Context, c core.Course) (core.Course, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO courses (id, name, grade, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Grade, c.CreatedAt.UnixNano(), c.UpdatedAt.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return core.Course{}, core.ErrDuplicateCourse
		}
		return core.Course{}, fmt.Errorf("insert course: %w", err)
	}

	slog.InfoContext(ctx, "Course created", "id", c.ID, "name", c.Name, "grade", c.Grade)
	return c, nil
}

func (r *SQLiteRepository) GetCourse(ctx context.Context, id string) (core.Course, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, grade, created_at, updated_at FROM courses WHERE id = ?`, id)
	return scanCourse(row)
}

// ListCourses returns every course sorted by name, then grade.
func (r *SQLiteRepository) ListCourses(ctx context.Context) ([]core.Course, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, grade, created_at, updated_at FROM courses ORDER BY name, grade`)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	var courses []core.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// FindCourseByNameGrade looks up a live course holding the (name, grade)
// pair, skipping excludeID so a rename can keep its own pair.
func (r *SQLiteRepository) FindCourseByNameGrade(ctx context.Context, name, grade, excludeID string) (core.Course, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, grade, created_at, updated_at FROM courses
		 WHERE name = ? AND grade = ? AND id != ?`, name, grade, excludeID)
	return scanCourse(row)
}

// UpdateCourse rewrites name and grade on the course row only; the snapshot
// cascade is a separate call so it can be retried independently.
func (r *SQLiteRepository) UpdateCourse(ctx context.Context, id, name, grade string) (core.Course, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE courses SET name = ?, grade = ?, updated_at = ? WHERE id = ?`,
		name, grade, time.Now().UTC().UnixNano(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Course{}, core.ErrDuplicateCourse
		}
		return core.Course{}, fmt.Errorf("update course: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Course{}, core.ErrCourseNotFound
	}
	return r.GetCourse(ctx, id)
}

func (r *SQLiteRepository) DeleteCourse(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrCourseNotFound
	}
	slog.InfoContext(ctx, "Course deleted", "id", id)
	return nil
}

// Lesson records

func (r *SQLiteRepository) CreateRecord(ctx context.Context, rec core.LessonRecord) (core.LessonRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO lesson_records (id, course_id, course_name, grade, date, hours, notes, sync_state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.CourseID, rec.CourseName, rec.Grade,
		rec.Date.UnixNano(), rec.Hours, rec.Notes, SyncPending, rec.CreatedAt.UnixNano())
	if err != nil {
		return core.LessonRecord{}, fmt.Errorf("insert record: %w", err)
	}

	slog.InfoContext(ctx, "Lesson record created",
		"id", rec.ID,
		"course_id", rec.CourseID,
		"course_name", rec.CourseName,
		"hours", rec.Hours)
	return rec, nil
}

func (r *SQLiteRepository) GetRecord(ctx context.Context, id string) (core.LessonRecord, error) {
	row := r.db.QueryRowContext(ctx, selectRecord+` WHERE id = ?`, id)
	return scanRecord(row)
}

func (r *SQLiteRepository) DeleteRecord(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM lesson_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrRecordNotFound
	}
	slog.InfoContext(ctx, "Lesson record deleted", "id", id)
	return nil
}

// ListRecords returns one page of records matching the filter, most recent
// date first.
func (r *SQLiteRepository) ListRecords(ctx context.Context, f RecordFilter, offset, limit int) ([]core.LessonRecord, error) {
	where, args := buildRecordFilter(f)
	query := selectRecord + where + ` ORDER BY date DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// CountRecords counts records matching the filter, ignoring pagination.
func (r *SQLiteRepository) CountRecords(ctx context.Context, f RecordFilter) (int, error) {
	where, args := buildRecordFilter(f)
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lesson_records`+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// ListRecordsInRange returns all records with date in [from, to], oldest
// first. Export wants this ascending order; it is the opposite of ListRecords.
func (r *SQLiteRepository) ListRecordsInRange(ctx context.Context, from, to time.Time) ([]core.LessonRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		selectRecord+` WHERE date >= ? AND date <= ? ORDER BY date ASC`,
		from.UnixNano(), to.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("list records in range: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// ListAllRecords returns every record. The all-time aggregation pass scans
// this on each stats request; acceptable at single-organization scale.
func (r *SQLiteRepository) ListAllRecords(ctx context.Context) ([]core.LessonRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectRecord+` ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("list all records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (r *SQLiteRepository) CountRecordsByCourse(ctx context.Context, courseID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lesson_records WHERE course_id = ?`, courseID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records by course: %w", err)
	}
	return count, nil
}

// UpdateRecordSnapshots is the rename cascade: one filtered bulk update, not a
// read-then-write loop, so records created concurrently are never clobbered
// and re-running the same rename is a no-op.
func (r *SQLiteRepository) UpdateRecordSnapshots(ctx context.Context, courseID, name, grade string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE lesson_records SET course_name = ?, grade = ? WHERE course_id = ?`,
		name, grade, courseID)
	if err != nil {
		return 0, fmt.Errorf("update record snapshots: %w", err)
	}
	n, _ := res.RowsAffected()
	slog.InfoContext(ctx, "Record snapshots updated",
		"course_id", courseID, "name", name, "grade", grade, "records", n)
	return n, nil
}

// Mirror sync bookkeeping

// ListPendingSyncRecords returns records not yet mirrored, oldest first, as a
// backup sweep for lost messages.
func (r *SQLiteRepository) ListPendingSyncRecords(ctx context.Context, limit int) ([]core.LessonRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		selectRecord+` WHERE sync_state != ? ORDER BY created_at ASC LIMIT ?`,
		SyncSynced, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sync records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (r *SQLiteRepository) MarkRecordSynced(ctx context.Context, id string) error {
	if err := r.setSyncState(ctx, id, SyncSynced); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Record marked as synced", "id", id)
	return nil
}

func (r *SQLiteRepository) MarkRecordSyncError(ctx context.Context, id string) error {
	if err := r.setSyncState(ctx, id, SyncError); err != nil {
		return err
	}
	slog.WarnContext(ctx, "Record marked with sync error", "id", id)
	return nil
}

func (r *SQLiteRepository) setSyncState(ctx context.Context, id, state string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE lesson_records SET sync_state = ? WHERE id = ?`, state, id)
	if err != nil {
		return fmt.Errorf("set sync state: %w", err)
	}
	return nil
}

// Users

func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, password_hash, is_admin, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.PasswordHash, boolToInt(u.IsAdmin), u.CreatedAt.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.ErrDuplicateUsername
		}
		return core.User{}, fmt.Errorf("insert user: %w", err)
	}
	slog.InfoContext(ctx, "User created", "id", u.ID, "username", u.Username)
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, is_admin, created_at FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, is_admin, created_at FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// UpdateUser rewrites the username and password hash on a user row.
func (r *SQLiteRepository) UpdateUser(ctx context.Context, id, username, passwordHash string) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET username = ?, password_hash = ? WHERE id = ?`,
		username, passwordHash, id)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.ErrDuplicateUsername
		}
		return core.User{}, fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.User{}, core.ErrUserNotFound
	}
	slog.InfoContext(ctx, "User updated", "id", id, "username", username)
	return r.GetUser(ctx, id)
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, password_hash, is_admin, created_at FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *SQLiteRepository) DeleteUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

// Scan helpers

const selectRecord = `SELECT id, course_id, course_name, grade, date, hours, notes, created_at FROM lesson_records`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourse(row rowScanner) (core.Course, error) {
	var c core.Course
	var createdNs, updatedNs int64
	err := row.Scan(&c.ID, &c.Name, &c.Grade, &createdNs, &updatedNs)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Course{}, core.ErrCourseNotFound
	}
	if err != nil {
		return core.Course{}, fmt.Errorf("scan course: %w", err)
	}
	c.CreatedAt = time.Unix(0, createdNs).UTC()
	c.UpdatedAt = time.Unix(0, updatedNs).UTC()
	return c, nil
}

func scanRecord(row rowScanner) (core.LessonRecord, error) {
	var rec core.LessonRecord
	var dateNs, createdNs int64
	err := row.Scan(&rec.ID, &rec.CourseID, &rec.CourseName, &rec.Grade,
		&dateNs, &rec.Hours, &rec.Notes, &createdNs)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LessonRecord{}, core.ErrRecordNotFound
	}
	if err != nil {
		return core.LessonRecord{}, fmt.Errorf("scan record: %w", err)
	}
	rec.Date = time.Unix(0, dateNs).UTC()
	rec.CreatedAt = time.Unix(0, createdNs).UTC()
	return rec, nil
}

func scanUser(row rowScanner) (core.User, error) {
	var u core.User
	var isAdmin int
	var createdNs int64
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &isAdmin, &createdNs)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.IsAdmin = isAdmin != 0
	u.CreatedAt = time.Unix(0, createdNs).UTC()
	return u, nil
}

func collectRecords(rows *sql.Rows) ([]core.LessonRecord, error) {
	var records []core.LessonRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// buildRecordFilter assembles the WHERE clause: the date range constraint
// AND the search disjunction, each present only when set.
func buildRecordFilter(f RecordFilter) (string, []any) {
	var clauses []string
	var args []any

	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		clauses = append(clauses,
			`(course_name LIKE ? ESCAPE '\' OR grade LIKE ? ESCAPE '\' OR notes LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	if !f.From.IsZero() {
		clauses = append(clauses, `date >= ?`)
		args = append(args, f.From.UnixNano())
	}
	if !f.To.IsZero() {
		clauses = append(clauses, `date <= ?`)
		args = append(args, f.To.UnixNano())
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return ` WHERE ` + strings.Join(clauses, ` AND `), args
}

// escapeLike neutralizes LIKE metacharacters in user search input.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
