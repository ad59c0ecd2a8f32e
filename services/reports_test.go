package services

import (
	"testing"
	"time"

	"tutortrack_go/models"
)

func TestToReport(t *testing.T) {
	now := day("2026-03-10")

	lessons := []models.Lesson{
		{BaseModel: models.BaseModel{ID: 1}, Date: day("2026-03-08"), Done: false},
		{BaseModel: models.BaseModel{ID: 2}, Date: day("2026-03-05"), Done: false},
		{BaseModel: models.BaseModel{ID: 3}, Date: day("2026-03-06"), Done: true},
		{BaseModel: models.BaseModel{ID: 4}, Date: day("2026-03-12"), Done: false},
	}

	pending := ToReport(lessons, now)

	if len(pending) != 2 {
		t.Fatalf("expected 2 pending lessons, got %d", len(pending))
	}
	if pending[0].ID != 2 || pending[1].ID != 1 {
		t.Fatalf("expected oldest first [2 1], got [%d %d]", pending[0].ID, pending[1].ID)
	}
}

func TestToReportUncheckedLessonReappears(t *testing.T) {
	now := day("2026-03-10")
	lesson := models.Lesson{BaseModel: models.BaseModel{ID: 1}, Date: day("2026-03-05"), Done: true}

	if got := ToReport([]models.Lesson{lesson}, now); len(got) != 0 {
		t.Fatalf("done lesson must not be pending, got %d", len(got))
	}

	lesson.Done = false
	if got := ToReport([]models.Lesson{lesson}, now); len(got) != 1 {
		t.Fatalf("unchecked lesson must reappear in the queue, got %d", len(got))
	}
}

func TestTotalHoursTaught(t *testing.T) {
	lessons := []models.Lesson{
		{Hours: 1, Minutes: 30, Done: true},
		{Hours: 0, Minutes: 45, Done: true},
		{Hours: 2, Minutes: 0, Done: false},
	}

	got := TotalHoursTaught(lessons)
	if got != 2.25 {
		t.Fatalf("expected 2.25 hours taught, got %v", got)
	}
}

func TestLessonsBetween(t *testing.T) {
	lessons := []models.Lesson{
		{BaseModel: models.BaseModel{ID: 1}, Date: day("2026-03-09")},
		{BaseModel: models.BaseModel{ID: 2}, Date: day("2026-03-10")},
		{BaseModel: models.BaseModel{ID: 3}, Date: day("2026-03-17")},
		{BaseModel: models.BaseModel{ID: 4}, Date: day("2026-03-18")},
	}

	// Boundaries are inclusive on the calendar day, not the clock time.
	from := day("2026-03-10").Add(15 * time.Hour)
	to := day("2026-03-17")

	week := LessonsBetween(lessons, from, to)
	if len(week) != 2 {
		t.Fatalf("expected 2 lessons in range, got %d", len(week))
	}
	if week[0].ID != 2 || week[1].ID != 3 {
		t.Fatalf("expected [2 3] date ascending, got [%d %d]", week[0].ID, week[1].ID)
	}
}
