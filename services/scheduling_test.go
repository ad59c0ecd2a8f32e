package services

import (
	"testing"
	"time"

	"tutortrack_go/models"
)

func clock(hhmm string) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		panic(err)
	}
	return t
}

func day(date string) time.Time {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return t
}

func TestComputeDuration(t *testing.T) {
	tests := []struct {
		name       string
		start      string
		end        string
		expHours   int
		expMinutes int
	}{
		{
			name:       "hour and a half",
			start:      "09:00",
			end:        "10:30",
			expHours:   1,
			expMinutes: 30,
		},
		{
			name:       "exact hour",
			start:      "14:00",
			end:        "15:00",
			expHours:   1,
			expMinutes: 0,
		},
		{
			name:       "minutes only",
			start:      "08:15",
			end:        "08:40",
			expHours:   0,
			expMinutes: 25,
		},
		{
			name:       "long afternoon",
			start:      "12:05",
			end:        "16:50",
			expHours:   4,
			expMinutes: 45,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			d, err := ComputeDuration(clock(tc.start), clock(tc.end))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if d.Hours != tc.expHours || d.Minutes != tc.expMinutes {
				t.Fatalf("expected %d:%02d, got %d:%02d", tc.expHours, tc.expMinutes, d.Hours, d.Minutes)
			}
		})
	}
}

func TestComputeDurationInvalidRange(t *testing.T) {
	for _, tc := range []struct{ start, end string }{
		{"10:30", "09:00"},
		{"09:00", "09:00"},
	} {
		_, err := ComputeDuration(clock(tc.start), clock(tc.end))
		if KindOf(err) != KindInvalidRange {
			t.Fatalf("%s-%s: expected invalid range error, got %v", tc.start, tc.end, err)
		}
	}
}

func TestHasOverlap(t *testing.T) {
	existing := []models.Lesson{
		{
			BaseModel: models.BaseModel{ID: 1},
			Date:      day("2026-03-02"),
			StartTime: clock("10:00"),
			EndTime:   clock("11:00"),
		},
		{
			BaseModel: models.BaseModel{ID: 2},
			Date:      day("2026-03-03"),
			StartTime: clock("10:00"),
			EndTime:   clock("11:00"),
		},
	}

	tests := []struct {
		name      string
		date      string
		start     string
		end       string
		excludeID uint
		expect    bool
	}{
		{name: "contained inside", date: "2026-03-02", start: "10:15", end: "10:45", expect: true},
		{name: "straddles start", date: "2026-03-02", start: "09:30", end: "10:30", expect: true},
		{name: "straddles end", date: "2026-03-02", start: "10:30", end: "11:30", expect: true},
		{name: "covers whole lesson", date: "2026-03-02", start: "09:00", end: "12:00", expect: true},
		{name: "back to back before", date: "2026-03-02", start: "09:00", end: "10:00", expect: false},
		{name: "back to back after", date: "2026-03-02", start: "11:00", end: "12:00", expect: false},
		{name: "same slot other day", date: "2026-03-04", start: "10:00", end: "11:00", expect: false},
		{name: "editing the lesson itself", date: "2026-03-02", start: "10:00", end: "11:00", excludeID: 1, expect: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := HasOverlap(existing, OverlapCandidate{
				Date:      day(tc.date),
				Start:     clock(tc.start),
				End:       clock(tc.end),
				ExcludeID: tc.excludeID,
			})
			if got != tc.expect {
				t.Fatalf("expected overlap=%v, got %v", tc.expect, got)
			}
		})
	}
}

func TestValidateLessonSlot(t *testing.T) {
	existing := []models.Lesson{
		{
			BaseModel: models.BaseModel{ID: 1},
			Date:      day("2026-03-02"),
			StartTime: clock("10:00"),
			EndTime:   clock("11:00"),
		},
	}
	assignment := models.Assignment{Hours: 2}

	t.Run("valid slot returns duration", func(t *testing.T) {
		d, err := ValidateLessonSlot(existing, assignment, OverlapCandidate{
			Date:  day("2026-03-02"),
			Start: clock("11:00"),
			End:   clock("12:30"),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if d.Hours != 1 || d.Minutes != 30 {
			t.Fatalf("expected 1:30, got %d:%02d", d.Hours, d.Minutes)
		}
	})

	t.Run("overlap rejected before balance check", func(t *testing.T) {
		_, err := ValidateLessonSlot(existing, models.Assignment{Hours: 0}, OverlapCandidate{
			Date:  day("2026-03-02"),
			Start: clock("10:30"),
			End:   clock("11:30"),
		})
		if KindOf(err) != KindOverlap {
			t.Fatalf("expected overlap error, got %v", err)
		}
	})

	t.Run("insufficient balance rejected", func(t *testing.T) {
		_, err := ValidateLessonSlot(existing, models.Assignment{Hours: 1}, OverlapCandidate{
			Date:  day("2026-03-03"),
			Start: clock("09:00"),
			End:   clock("10:30"),
		})
		if KindOf(err) != KindInsufficientHours {
			t.Fatalf("expected insufficient hours error, got %v", err)
		}
	})

	t.Run("balance exactly covering the lesson passes", func(t *testing.T) {
		_, err := ValidateLessonSlot(existing, models.Assignment{Hours: 1.5}, OverlapCandidate{
			Date:  day("2026-03-03"),
			Start: clock("09:00"),
			End:   clock("10:30"),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}
