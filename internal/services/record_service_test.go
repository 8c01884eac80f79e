package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keshi/internal/civiltime"
	"keshi/internal/core"
)

func fixedClock(s string) core.FixedClock {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", s, civiltime.Zone)
	if err != nil {
		panic(err)
	}
	return core.FixedClock{At: t}
}

func seedCourse(t *testing.T, store *memStore, name, grade string) core.Course {
	t.Helper()
	c, err := store.CreateCourse(context.Background(), core.Course{Name: name, Grade: grade})
	require.NoError(t, err)
	return c
}

func TestRecordServiceCreate(t *testing.T) {
	store := newMemStore()
	pub := &fakePublisher{}
	stats := NewStatsService(store, nil, time.Minute)
	svc := NewRecordService(store, store, pub, fixedClock("2024-03-15 12:00:00"), stats)
	course := seedCourse(t, store, "Math", "G5")

	rec, err := svc.Create(context.Background(), CreateRecordInput{
		CourseID: course.ID,
		Date:     "2024-03-02",
		Hours:    1.5,
		Notes:    "fractions",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "Math", rec.CourseName, "name snapshot defaults from the course")
	assert.Equal(t, "G5", rec.Grade)
	assert.Equal(t, 1.5, rec.Hours)
	assert.Equal(t, []string{rec.ID}, pub.synced)

	stored, err := store.GetRecord(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-02", civiltime.FormatDate(stored.Date))
}

func TestRecordServiceCreateValidation(t *testing.T) {
	store := newMemStore()
	clock := fixedClock("2024-03-15 12:00:00")
	svc := NewRecordService(store, store, nil, clock, nil)
	course := seedCourse(t, store, "Math", "G5")

	tests := []struct {
		name string
		in   CreateRecordInput
		want error
	}{
		{"missing course", CreateRecordInput{Date: "2024-03-02", Hours: 1}, core.ErrEmptyCourseID},
		{"missing date", CreateRecordInput{CourseID: course.ID, Hours: 1}, core.ErrZeroDate},
		{"unknown course", CreateRecordInput{CourseID: "nope", Date: "2024-03-02", Hours: 1}, core.ErrNotFound},
		{"malformed date", CreateRecordInput{CourseID: course.ID, Date: "03/02/2024", Hours: 1}, core.ErrValidation},
		{"hours below minimum", CreateRecordInput{CourseID: course.ID, Date: "2024-03-02", Hours: 0.25}, core.ErrHoursBelowMinimum},
		{"future date", CreateRecordInput{CourseID: course.ID, Date: "2024-03-16", Hours: 1}, core.ErrFutureDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRecordServiceCreateSameDayNotFuture(t *testing.T) {
	store := newMemStore()
	// A record dated today, entered in the morning, is valid even though
	// midnight of that civil day is in the past and its evening is not.
	svc := NewRecordService(store, store, nil, fixedClock("2024-03-15 09:00:00"), nil)
	course := seedCourse(t, store, "Math", "G5")

	_, err := svc.Create(context.Background(), CreateRecordInput{
		CourseID: course.ID, Date: "2024-03-15", Hours: 1,
	})
	require.NoError(t, err)
}

func TestRecordServiceCreatePublishFailureIsNotFatal(t *testing.T) {
	store := newMemStore()
	pub := &fakePublisher{fail: true}
	svc := NewRecordService(store, store, pub, fixedClock("2024-03-15 12:00:00"), nil)
	course := seedCourse(t, store, "Math", "G5")

	rec, err := svc.Create(context.Background(), CreateRecordInput{
		CourseID: course.ID, Date: "2024-03-02", Hours: 1,
	})
	require.NoError(t, err)

	_, err = store.GetRecord(context.Background(), rec.ID)
	assert.NoError(t, err, "record must be stored even when the broker is down")
}

func TestRecordServiceDelete(t *testing.T) {
	store := newMemStore()
	pub := &fakePublisher{}
	svc := NewRecordService(store, store, pub, fixedClock("2024-03-15 12:00:00"), nil)
	course := seedCourse(t, store, "Math", "G5")

	rec, err := svc.Create(context.Background(), CreateRecordInput{
		CourseID: course.ID, Date: "2024-03-02", Hours: 1,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), rec.ID))
	_, err = store.GetRecord(context.Background(), rec.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Equal(t, []string{rec.ID}, pub.deleted)

	assert.ErrorIs(t, svc.Delete(context.Background(), rec.ID), core.ErrNotFound)
}

func TestRecordServiceList(t *testing.T) {
	store := newMemStore()
	svc := NewRecordService(store, store, nil, fixedClock("2024-04-01 12:00:00"), nil)
	math := seedCourse(t, store, "Math", "G5")
	english := seedCourse(t, store, "English", "G3")

	create := func(courseID, date string, hours float64, notes string) {
		t.Helper()
		_, err := svc.Create(context.Background(), CreateRecordInput{
			CourseID: courseID, Date: date, Hours: hours, Notes: notes,
		})
		require.NoError(t, err)
	}
	create(math.ID, "2024-03-01", 1, "")
	create(math.ID, "2024-03-10", 2, "review")
	create(math.ID, "2024-03-20", 1.5, "")
	create(english.ID, "2024-03-05", 1, "reading")
	create(english.ID, "2024-03-31", 0.5, "")

	t.Run("defaults and ordering", func(t *testing.T) {
		page, err := svc.List(context.Background(), ListRecordsQuery{})
		require.NoError(t, err)
		assert.Equal(t, 5, page.Total)
		assert.Equal(t, 1, page.TotalPages)
		assert.Equal(t, 1, page.CurrentPage)
		require.Len(t, page.Records, 5)
		assert.Equal(t, "2024-03-31", civiltime.FormatDate(page.Records[0].Date))
		assert.Equal(t, "2024-03-01", civiltime.FormatDate(page.Records[4].Date))
	})

	t.Run("pagination metadata", func(t *testing.T) {
		page, err := svc.List(context.Background(), ListRecordsQuery{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, page.Total)
		assert.Equal(t, 3, page.TotalPages)
		assert.Equal(t, 2, page.CurrentPage)
		assert.Len(t, page.Records, 2)
	})

	t.Run("page past the end is empty, not an error", func(t *testing.T) {
		page, err := svc.List(context.Background(), ListRecordsQuery{Page: 9})
		require.NoError(t, err)
		assert.NotNil(t, page.Records)
		assert.Empty(t, page.Records)
		assert.Equal(t, 5, page.Total)
	})

	t.Run("search matches name, grade and notes", func(t *testing.T) {
		page, err := svc.List(context.Background(), ListRecordsQuery{Search: "english"})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)

		page, err = svc.List(context.Background(), ListRecordsQuery{Search: "review"})
		require.NoError(t, err)
		assert.Equal(t, 1, page.Total)
	})

	t.Run("date range is inclusive", func(t *testing.T) {
		page, err := svc.List(context.Background(), ListRecordsQuery{
			StartDate: "2024-03-05", EndDate: "2024-03-20",
		})
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
	})

	t.Run("malformed date is a validation error", func(t *testing.T) {
		_, err := svc.List(context.Background(), ListRecordsQuery{StartDate: "yesterday"})
		assert.ErrorIs(t, err, core.ErrValidation)
	})
}
