package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"keshi/internal/core"
	"keshi/internal/storage"
)

// memStore is an in-memory entity store implementing the service ports with
// the same semantics as the SQLite repository.
type memStore struct {
	nextID  int
	courses map[string]core.Course
	records map[string]core.LessonRecord
	users   map[string]core.User
}

func newMemStore() *memStore {
	return &memStore{
		courses: make(map[string]core.Course),
		records: make(map[string]core.LessonRecord),
		users:   make(map[string]core.User),
	}
}

func (m *memStore) id() string {
	m.nextID++
	return fmt.Sprintf("id-%d", m.nextID)
}

func (m *memStore) CreateCourse(_ context.Context, c core.Course) (core.Course, error) {
	c.ID = m.id()
	m.courses[c.ID] = c
	return c, nil
}

func (m *memStore) GetCourse(_ context.Context, id string) (core.Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return core.Course{}, core.ErrCourseNotFound
	}
	return c, nil
}

func (m *memStore) ListCourses(_ context.Context) ([]core.Course, error) {
	out := make([]core.Course, 0, len(m.courses))
	for _, c := range m.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) FindCourseByNameGrade(_ context.Context, name, grade, excludeID string) (core.Course, error) {
	for _, c := range m.courses {
		if c.Name == name && c.Grade == grade && c.ID != excludeID {
			return c, nil
		}
	}
	return core.Course{}, core.ErrCourseNotFound
}

func (m *memStore) UpdateCourse(_ context.Context, id, name, grade string) (core.Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return core.Course{}, core.ErrCourseNotFound
	}
	c.Name, c.Grade = name, grade
	m.courses[id] = c
	return c, nil
}

func (m *memStore) DeleteCourse(_ context.Context, id string) error {
	if _, ok := m.courses[id]; !ok {
		return core.ErrCourseNotFound
	}
	delete(m.courses, id)
	return nil
}

func (m *memStore) CreateRecord(_ context.Context, rec core.LessonRecord) (core.LessonRecord, error) {
	rec.ID = m.id()
	m.records[rec.ID] = rec
	return rec, nil
}

func (m *memStore) GetRecord(_ context.Context, id string) (core.LessonRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return core.LessonRecord{}, core.ErrRecordNotFound
	}
	return rec, nil
}

func (m *memStore) DeleteRecord(_ context.Context, id string) error {
	if _, ok := m.records[id]; !ok {
		return core.ErrRecordNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *memStore) matching(f storage.RecordFilter) []core.LessonRecord {
	var out []core.LessonRecord
	search := strings.ToLower(strings.TrimSpace(f.Search))
	for _, rec := range m.records {
		if search != "" &&
			!strings.Contains(strings.ToLower(rec.CourseName), search) &&
			!strings.Contains(strings.ToLower(rec.Grade), search) &&
			!strings.Contains(strings.ToLower(rec.Notes), search) {
			continue
		}
		if !f.From.IsZero() && rec.Date.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && rec.Date.After(f.To) {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}

func (m *memStore) ListRecords(_ context.Context, f storage.RecordFilter, offset, limit int) ([]core.LessonRecord, error) {
	matched := m.matching(f)
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (m *memStore) CountRecords(_ context.Context, f storage.RecordFilter) (int, error) {
	return len(m.matching(f)), nil
}

func (m *memStore) ListRecordsInRange(_ context.Context, from, to time.Time) ([]core.LessonRecord, error) {
	matched := m.matching(storage.RecordFilter{From: from, To: to})
	// Export order is ascending.
	sort.Slice(matched, func(i, j int) bool { return matched[i].Date.Before(matched[j].Date) })
	return matched, nil
}

func (m *memStore) ListAllRecords(_ context.Context) ([]core.LessonRecord, error) {
	out := make([]core.LessonRecord, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *memStore) CountRecordsByCourse(_ context.Context, courseID string) (int, error) {
	n := 0
	for _, rec := range m.records {
		if rec.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) UpdateRecordSnapshots(_ context.Context, courseID, name, grade string) (int64, error) {
	var n int64
	for id, rec := range m.records {
		if rec.CourseID == courseID {
			rec.CourseName, rec.Grade = name, grade
			m.records[id] = rec
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateUser(_ context.Context, u core.User) (core.User, error) {
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return core.User{}, core.ErrDuplicateUsername
		}
	}
	u.ID = m.id()
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) GetUser(_ context.Context, id string) (core.User, error) {
	u, ok := m.users[id]
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	return u, nil
}

func (m *memStore) GetUserByUsername(_ context.Context, username string) (core.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return core.User{}, core.ErrUserNotFound
}

func (m *memStore) UpdateUser(_ context.Context, id, username, passwordHash string) (core.User, error) {
	u, ok := m.users[id]
	if !ok {
		return core.User{}, core.ErrUserNotFound
	}
	for otherID, existing := range m.users {
		if otherID != id && existing.Username == username {
			return core.User{}, core.ErrDuplicateUsername
		}
	}
	u.Username, u.PasswordHash = username, passwordHash
	m.users[id] = u
	return u, nil
}

func (m *memStore) ListUsers(_ context.Context) ([]core.User, error) {
	out := make([]core.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *memStore) DeleteUser(_ context.Context, id string) error {
	if _, ok := m.users[id]; !ok {
		return core.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

// fakePublisher records published events.
type fakePublisher struct {
	synced  []string
	deleted []string
	fail    bool
}

func (p *fakePublisher) PublishRecordSync(_ context.Context, recordID string) error {
	if p.fail {
		return fmt.Errorf("broker down")
	}
	p.synced = append(p.synced, recordID)
	return nil
}

func (p *fakePublisher) PublishRecordDelete(_ context.Context, recordID, _, _ string, _ time.Time) error {
	if p.fail {
		return fmt.Errorf("broker down")
	}
	p.deleted = append(p.deleted, recordID)
	return nil
}
