// Package feed delivers ordered add/modify/remove notifications for the
// assignment and lesson collections, scoped to one user session. Each
// subscription starts with a snapshot of the current documents (events
// flagged Snapshot) followed by live changes. Ordering is guaranteed per
// collection only; assignments and lessons evolve independently.
package feed

import (
	"context"

	"tutortrack_go/models"
)

// Type is the kind of change carried by an event.
type Type string

const (
	Added    Type = "added"
	Modified Type = "modified"
	Removed  Type = "removed"
)

// AssignmentEvent is one state transition of an assignment document.
type AssignmentEvent struct {
	Type       Type
	Snapshot   bool
	Assignment models.Assignment
}

// LessonEvent is one state transition of a lesson document.
type LessonEvent struct {
	Type     Type
	Snapshot bool
	Lesson   models.Lesson
}

// Filter scopes a subscription to one session. Role decides whether
// assignments are matched on their teacher or student side; lessons are
// matched through their assignment.
type Filter struct {
	UserID uint
	Role   string
}

// Matches reports whether the assignment belongs to the filtered user.
func (f Filter) Matches(a models.Assignment) bool {
	if f.Role == "teacher" {
		return a.TeacherID == f.UserID
	}
	return a.StudentID == f.UserID
}

// Adapter is the consumed change-feed contract. Channels are closed when the
// subscription context is cancelled.
type Adapter interface {
	Assignments(ctx context.Context, filter Filter) (<-chan AssignmentEvent, error)
	Lessons(ctx context.Context, filter Filter) (<-chan LessonEvent, error)
}

// Publisher is the write side of the feed; the balance transfer service
// publishes every committed change here so sessions loop it back.
type Publisher interface {
	AssignmentChanged(t Type, a models.Assignment)
	LessonChanged(t Type, l models.Lesson)
}
