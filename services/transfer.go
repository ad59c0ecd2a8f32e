package services

import (
	"context"
	"fmt"
	"math"

	"tutortrack_go/models"
	"tutortrack_go/services/feed"
)

// BalanceTransfer is the only component allowed to move hours between an
// assignment and a lesson. Every transfer is one storage transaction guarded
// by an optimistic precondition on the assignment balance; a failed transfer
// is never retried here - the caller must re-fetch current state first.
type BalanceTransfer struct {
	store LedgerStore
	feed  feed.Publisher
}

func NewBalanceTransfer(store LedgerStore, publisher feed.Publisher) *BalanceTransfer {
	return &BalanceTransfer{store: store, feed: publisher}
}

// Create writes the lesson and debits its duration from the assignment
// balance as a unit. The assignment passed in carries the balance the caller
// validated against; that value is the transaction's precondition.
func (t *BalanceTransfer) Create(ctx context.Context, lesson *models.Lesson, assignment models.Assignment) error {
	amount := lesson.FractionalHours()
	if !HasSufficientHours(assignment, amount) {
		return E(KindInsufficientHours,
			fmt.Sprintf("assignment has %.2f hours left, lesson needs %.2f", assignment.Hours, amount))
	}

	if err := t.store.CreateLessonDebit(ctx, lesson, assignment.Hours); err != nil {
		return err
	}

	assignment.Hours = round2(assignment.Hours - amount)
	assignment.User = nil
	t.publishLesson(feed.Added, *lesson)
	t.publishAssignment(feed.Modified, assignment)
	return nil
}

// Delete removes the lesson and credits its duration back to the assignment.
func (t *BalanceTransfer) Delete(ctx context.Context, lessonID uint) error {
	lesson, err := t.store.Lesson(ctx, lessonID)
	if err != nil {
		return err
	}
	assignment, err := t.store.Assignment(ctx, lesson.AssignmentID)
	if err != nil {
		return err
	}

	if err := t.store.DeleteLessonCredit(ctx, lesson, assignment.Hours); err != nil {
		return err
	}

	assignment.Hours = round2(assignment.Hours + lesson.FractionalHours())
	assignment.User = nil
	t.publishLesson(feed.Removed, lesson)
	t.publishAssignment(feed.Modified, assignment)
	return nil
}

// Complete toggles the lesson's done flag and moves its duration in or out of
// the teacher's cumulative taught hours and money at HourlyRate. The
// assignment balance is untouched on completion.
func (t *BalanceTransfer) Complete(ctx context.Context, lessonID uint) (models.Lesson, error) {
	lesson, err := t.store.Lesson(ctx, lessonID)
	if err != nil {
		return models.Lesson{}, err
	}
	assignment, err := t.store.Assignment(ctx, lesson.AssignmentID)
	if err != nil {
		return models.Lesson{}, err
	}

	done := !lesson.Done
	hours := lesson.FractionalHours()
	if !done {
		hours = -hours
	}

	if err := t.store.MarkLessonDone(ctx, lesson.ID, done, assignment.TeacherID, hours, hours*HourlyRate); err != nil {
		return models.Lesson{}, err
	}

	lesson.Done = done
	t.publishLesson(feed.Modified, lesson)
	return lesson, nil
}

func (t *BalanceTransfer) publishLesson(typ feed.Type, lesson models.Lesson) {
	if t.feed == nil {
		return
	}
	lesson.Assignment = nil
	t.feed.LessonChanged(typ, lesson)
}

func (t *BalanceTransfer) publishAssignment(typ feed.Type, assignment models.Assignment) {
	if t.feed == nil {
		return
	}
	t.feed.AssignmentChanged(typ, assignment)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
