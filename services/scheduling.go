package services

import (
	"fmt"
	"time"

	"tutortrack_go/models"
)

// HourlyRate is the fixed payout per taught hour, credited to the teacher's
// money balance when a lesson is marked done.
const HourlyRate = 75.0

// Duration is a lesson duration split into whole hours and leftover minutes.
type Duration struct {
	Hours   int
	Minutes int
}

// ComputeDuration returns the duration between start and end of a same-day
// lesson. End must be strictly after start.
func ComputeDuration(start, end time.Time) (Duration, error) {
	startMin := minuteOfDay(start)
	endMin := minuteOfDay(end)
	if endMin <= startMin {
		return Duration{}, E(KindInvalidRange, "end time cannot be before start time")
	}

	diff := endMin - startMin
	return Duration{Hours: diff / 60, Minutes: diff % 60}, nil
}

// OverlapCandidate describes a lesson slot being created or edited.
// ExcludeID removes the lesson itself from the comparison set on edit.
type OverlapCandidate struct {
	Date      time.Time
	Start     time.Time
	End       time.Time
	ExcludeID uint
}

// HasOverlap reports whether the candidate slot intersects any existing
// lesson on the same calendar date. Two slots overlap iff
// candidateStart < existingEnd AND candidateEnd > existingStart, so
// back-to-back lessons are allowed.
func HasOverlap(existing []models.Lesson, candidate OverlapCandidate) bool {
	candidateDate := candidate.Date.Format("2006-01-02")
	candidateStart := minuteOfDay(candidate.Start)
	candidateEnd := minuteOfDay(candidate.End)

	for _, lesson := range existing {
		if lesson.ID == candidate.ExcludeID {
			continue
		}
		if lesson.Date.Format("2006-01-02") != candidateDate {
			continue
		}

		lessonStart := minuteOfDay(lesson.StartTime)
		lessonEnd := minuteOfDay(lesson.EndTime)
		if candidateStart < lessonEnd && candidateEnd > lessonStart {
			return true
		}
	}

	return false
}

// HasSufficientHours reports whether the assignment balance covers the
// requested fractional hours.
func HasSufficientHours(assignment models.Assignment, requested float64) bool {
	return assignment.Hours >= requested
}

// ValidateLessonSlot runs all three checks in order and returns the computed
// duration. Callers must invoke this before any balance transfer; validation
// is advisory and is not re-enforced atomically by the store.
func ValidateLessonSlot(existing []models.Lesson, assignment models.Assignment, candidate OverlapCandidate) (Duration, error) {
	duration, err := ComputeDuration(candidate.Start, candidate.End)
	if err != nil {
		return Duration{}, err
	}

	if HasOverlap(existing, candidate) {
		return Duration{}, E(KindOverlap, "the lesson overlaps with an existing lesson")
	}

	requested := fractionalHours(duration)
	if !HasSufficientHours(assignment, requested) {
		return Duration{}, E(KindInsufficientHours,
			fmt.Sprintf("assignment has %.2f hours left, lesson needs %.2f", assignment.Hours, requested))
	}

	return duration, nil
}

func fractionalHours(d Duration) float64 {
	return models.Lesson{Hours: d.Hours, Minutes: d.Minutes}.FractionalHours()
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
