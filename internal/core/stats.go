// Aggregation over lesson records: hour totals grouped by course and by
// grade. The functions here are pure; the service layer decides which record
// subsets (monthly, all-time) they run over.
package core

import "sort"

// CourseStat is the hour total and record count for one course, keyed by the
// denormalized (CourseID, CourseName) pair as it appears on the records.
type CourseStat struct {
	CourseID   string  `json:"courseId"`
	CourseName string  `json:"courseName"`
	TotalHours float64 `json:"totalHours"`
	Count      int     `json:"count"`
}

// GradeStat is the hour total and record count for one grade.
type GradeStat struct {
	Grade      string  `json:"grade"`
	TotalHours float64 `json:"totalHours"`
	Count      int     `json:"count"`
}

// Stats is the full aggregation result: one monthly pass and one all-time
// pass, each grouped by course and by grade.
type Stats struct {
	Month              string       `json:"month"`
	TotalHours         float64      `json:"totalHours"`
	AllTimeHours       float64      `json:"allTimeHours"`
	CourseStats        []CourseStat `json:"courseStats"`
	GradeStats         []GradeStat  `json:"gradeStats"`
	AllTimeCourseStats []CourseStat `json:"allTimeCourseStats"`
	AllTimeGradeStats  []GradeStat  `json:"allTimeGradeStats"`
}

// courseKey groups by the id/name tuple directly. A concatenated string key
// would collide if a course name ever contained the separator.
type courseKey struct {
	id   string
	name string
}

// SumHours returns the total hours across records.
func SumHours(records []LessonRecord) float64 {
	var total float64
	for _, r := range records {
		total += r.Hours
	}
	return total
}

// AggregateByCourse groups records by (courseId, courseName) and sorts the
// result by total hours descending. The sort is stable: ties keep the order
// in which the course first appeared in the input.
func AggregateByCourse(records []LessonRecord) []CourseStat {
	index := make(map[courseKey]int)
	stats := make([]CourseStat, 0)
	for _, r := range records {
		key := courseKey{id: r.CourseID, name: r.CourseName}
		i, ok := index[key]
		if !ok {
			i = len(stats)
			index[key] = i
			stats = append(stats, CourseStat{CourseID: r.CourseID, CourseName: r.CourseName})
		}
		stats[i].TotalHours += r.Hours
		stats[i].Count++
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].TotalHours > stats[j].TotalHours
	})
	return stats
}

// AggregateByGrade groups records by grade, sorted by total hours descending.
func AggregateByGrade(records []LessonRecord) []GradeStat {
	index := make(map[string]int)
	stats := make([]GradeStat, 0)
	for _, r := range records {
		i, ok := index[r.Grade]
		if !ok {
			i = len(stats)
			index[r.Grade] = i
			stats = append(stats, GradeStat{Grade: r.Grade})
		}
		stats[i].TotalHours += r.Hours
		stats[i].Count++
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].TotalHours > stats[j].TotalHours
	})
	return stats
}

// Percentage returns part/total as a percentage, or 0 when total is 0 so an
// empty month never renders as NaN.
func Percentage(part, total float64) float64 {
	if total == 0 {
		return 0
	}
	return part / total * 100
}
