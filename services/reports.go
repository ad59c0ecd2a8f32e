package services

import (
	"sort"
	"time"

	"tutortrack_go/models"
)

// ToReport derives the report queue: past lessons not yet marked done,
// ordered by date ascending. Pure derivation, recomputed on every snapshot
// change; never persisted.
func ToReport(lessons []models.Lesson, now time.Time) []models.Lesson {
	var pending []models.Lesson
	for _, lesson := range lessons {
		if !lesson.Done && lesson.Date.Before(now) {
			pending = append(pending, lesson)
		}
	}

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].Date.Before(pending[j].Date)
	})

	return pending
}

// TotalHoursTaught sums the fractional duration of all done lessons.
func TotalHoursTaught(lessons []models.Lesson) float64 {
	var total float64
	for _, lesson := range lessons {
		if lesson.Done {
			total += lesson.FractionalHours()
		}
	}
	return total
}

// LessonsBetween filters lessons whose date falls in [from, to], ordered by
// date ascending. Used for the week-ahead listing.
func LessonsBetween(lessons []models.Lesson, from, to time.Time) []models.Lesson {
	var out []models.Lesson
	for _, lesson := range lessons {
		day := truncateToDay(lesson.Date)
		if !day.Before(truncateToDay(from)) && !day.After(truncateToDay(to)) {
			out = append(out, lesson)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})

	return out
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
