package services

import (
	"context"
	"testing"

	"tutortrack_go/models"
	"tutortrack_go/services/feed"
)

// fakeLedger keeps assignments, lessons and teacher balances in maps and
// enforces the same hours precondition the MySQL store does.
type fakeLedger struct {
	assignments map[uint]models.Assignment
	lessons     map[uint]models.Lesson
	teachers    map[uint]models.User
	nextID      uint
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		assignments: make(map[uint]models.Assignment),
		lessons:     make(map[uint]models.Lesson),
		teachers:    make(map[uint]models.User),
		nextID:      100,
	}
}

func (f *fakeLedger) Assignment(_ context.Context, id uint) (models.Assignment, error) {
	a, ok := f.assignments[id]
	if !ok {
		return models.Assignment{}, E(KindNotFound, "assignment not found")
	}
	return a, nil
}

func (f *fakeLedger) Lesson(_ context.Context, id uint) (models.Lesson, error) {
	l, ok := f.lessons[id]
	if !ok {
		return models.Lesson{}, E(KindNotFound, "lesson not found")
	}
	return l, nil
}

func (f *fakeLedger) adjustHours(assignmentID uint, expected, next float64) error {
	a, ok := f.assignments[assignmentID]
	if !ok {
		return E(KindNotFound, "assignment no longer exists")
	}
	if a.Hours != expected {
		return E(KindConflict, "assignment hours changed concurrently, re-fetch and retry")
	}
	a.Hours = next
	f.assignments[assignmentID] = a
	return nil
}

func (f *fakeLedger) CreateLessonDebit(_ context.Context, lesson *models.Lesson, expectedHours float64) error {
	amount := lesson.FractionalHours()
	if err := f.adjustHours(lesson.AssignmentID, expectedHours, expectedHours-amount); err != nil {
		return err
	}
	f.nextID++
	lesson.ID = f.nextID
	f.lessons[lesson.ID] = *lesson
	return nil
}

func (f *fakeLedger) DeleteLessonCredit(_ context.Context, lesson models.Lesson, expectedHours float64) error {
	if _, ok := f.lessons[lesson.ID]; !ok {
		return E(KindNotFound, "lesson not found")
	}
	delete(f.lessons, lesson.ID)
	return f.adjustHours(lesson.AssignmentID, expectedHours, expectedHours+lesson.FractionalHours())
}

func (f *fakeLedger) MarkLessonDone(_ context.Context, lessonID uint, done bool, teacherID uint, hoursDelta, moneyDelta float64) error {
	l, ok := f.lessons[lessonID]
	if !ok {
		return E(KindNotFound, "lesson not found")
	}
	if l.Done == done {
		return E(KindConflict, "lesson done flag changed concurrently, re-fetch and retry")
	}
	l.Done = done
	f.lessons[lessonID] = l

	teacher := f.teachers[teacherID]
	teacher.Hours += hoursDelta
	teacher.Money += moneyDelta
	f.teachers[teacherID] = teacher
	return nil
}

type publishedEvent struct {
	typ        feed.Type
	kind       string
	assignment models.Assignment
	lesson     models.Lesson
}

type capturePublisher struct {
	events []publishedEvent
}

func (p *capturePublisher) AssignmentChanged(typ feed.Type, a models.Assignment) {
	p.events = append(p.events, publishedEvent{typ: typ, kind: "assignment", assignment: a})
}

func (p *capturePublisher) LessonChanged(typ feed.Type, l models.Lesson) {
	p.events = append(p.events, publishedEvent{typ: typ, kind: "lesson", lesson: l})
}

func seedTransfer(t *testing.T) (*fakeLedger, *capturePublisher, *BalanceTransfer, models.Assignment) {
	t.Helper()
	store := newFakeLedger()
	assignment := models.Assignment{
		BaseModel: models.BaseModel{ID: 1},
		TeacherID: 10,
		StudentID: 20,
		Hours:     5,
	}
	store.assignments[1] = assignment
	store.teachers[10] = models.User{BaseModel: models.BaseModel{ID: 10}, Role: "teacher"}

	pub := &capturePublisher{}
	return store, pub, NewBalanceTransfer(store, pub), assignment
}

func TestTransferCreateDebitsBalance(t *testing.T) {
	store, pub, transfer, assignment := seedTransfer(t)

	lesson := models.Lesson{AssignmentID: 1, Hours: 2, Minutes: 0}
	if err := transfer.Create(context.Background(), &lesson, assignment); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := store.assignments[1].Hours; got != 3 {
		t.Fatalf("expected balance 3 after debit, got %v", got)
	}
	if lesson.ID == 0 {
		t.Fatalf("lesson must be assigned an ID on create")
	}
	if len(pub.events) != 2 {
		t.Fatalf("expected lesson add + assignment modify events, got %d", len(pub.events))
	}
	if pub.events[0].kind != "lesson" || pub.events[0].typ != feed.Added {
		t.Fatalf("first event must be lesson added, got %+v", pub.events[0])
	}
	if pub.events[1].kind != "assignment" || pub.events[1].typ != feed.Modified {
		t.Fatalf("second event must be assignment modified, got %+v", pub.events[1])
	}
	if pub.events[1].assignment.Hours != 3 {
		t.Fatalf("published assignment must carry the debited balance, got %v", pub.events[1].assignment.Hours)
	}
}

func TestTransferDeleteRestoresBalance(t *testing.T) {
	store, pub, transfer, assignment := seedTransfer(t)

	lesson := models.Lesson{AssignmentID: 1, Hours: 1, Minutes: 30}
	if err := transfer.Create(context.Background(), &lesson, assignment); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := store.assignments[1].Hours; got != 3.5 {
		t.Fatalf("expected balance 3.5 after debit, got %v", got)
	}

	pub.events = nil
	if err := transfer.Delete(context.Background(), lesson.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := store.assignments[1].Hours; got != 5 {
		t.Fatalf("expected balance restored to 5, got %v", got)
	}
	if _, ok := store.lessons[lesson.ID]; ok {
		t.Fatalf("lesson must be removed")
	}
	if len(pub.events) != 2 || pub.events[0].typ != feed.Removed {
		t.Fatalf("expected lesson removed + assignment modified, got %+v", pub.events)
	}
}

func TestTransferCreateInsufficientHours(t *testing.T) {
	store, pub, transfer, assignment := seedTransfer(t)

	lesson := models.Lesson{AssignmentID: 1, Hours: 6, Minutes: 0}
	err := transfer.Create(context.Background(), &lesson, assignment)
	if KindOf(err) != KindInsufficientHours {
		t.Fatalf("expected insufficient hours error, got %v", err)
	}

	if got := store.assignments[1].Hours; got != 5 {
		t.Fatalf("balance must be untouched on rejection, got %v", got)
	}
	if len(store.lessons) != 0 {
		t.Fatalf("no lesson may be written on rejection")
	}
	if len(pub.events) != 0 {
		t.Fatalf("no events may be published on rejection, got %d", len(pub.events))
	}
}

func TestTransferCreateStaleBalanceConflicts(t *testing.T) {
	store, _, transfer, assignment := seedTransfer(t)

	// Another writer debits the balance between this caller's read and write.
	if err := store.adjustHours(1, 5, 4); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lesson := models.Lesson{AssignmentID: 1, Hours: 2, Minutes: 0}
	err := transfer.Create(context.Background(), &lesson, assignment)
	if KindOf(err) != KindConflict {
		t.Fatalf("expected conflict on stale balance, got %v", err)
	}
	if got := store.assignments[1].Hours; got != 4 {
		t.Fatalf("conflicting write must not move the balance, got %v", got)
	}
}

func TestTransferCompleteTogglesTeacherTotals(t *testing.T) {
	store, pub, transfer, assignment := seedTransfer(t)

	lesson := models.Lesson{AssignmentID: 1, Hours: 1, Minutes: 30}
	if err := transfer.Create(context.Background(), &lesson, assignment); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	balanceAfterCreate := store.assignments[1].Hours
	pub.events = nil

	done, err := transfer.Complete(context.Background(), lesson.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !done.Done {
		t.Fatalf("lesson must be marked done")
	}

	teacher := store.teachers[10]
	if teacher.Hours != 1.5 {
		t.Fatalf("expected teacher hours 1.5, got %v", teacher.Hours)
	}
	if teacher.Money != 1.5*HourlyRate {
		t.Fatalf("expected teacher pay %v, got %v", 1.5*HourlyRate, teacher.Money)
	}
	if store.assignments[1].Hours != balanceAfterCreate {
		t.Fatalf("completion must not touch the assignment balance")
	}
	if len(pub.events) != 1 || pub.events[0].kind != "lesson" || pub.events[0].typ != feed.Modified {
		t.Fatalf("expected single lesson modified event, got %+v", pub.events)
	}

	// Unchecking reverses both totals.
	undone, err := transfer.Complete(context.Background(), lesson.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if undone.Done {
		t.Fatalf("lesson must be unmarked")
	}
	teacher = store.teachers[10]
	if teacher.Hours != 0 || teacher.Money != 0 {
		t.Fatalf("unchecking must reverse totals, got hours=%v money=%v", teacher.Hours, teacher.Money)
	}
}

func TestMarkLessonDoneConcurrentToggleConflicts(t *testing.T) {
	store, _, transfer, assignment := seedTransfer(t)

	lesson := models.Lesson{AssignmentID: 1, Hours: 1, Minutes: 0}
	if err := transfer.Create(context.Background(), &lesson, assignment); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Another writer flips the flag between this caller's read and write: the
	// store sees a write expecting done=false on a lesson already done.
	if err := store.MarkLessonDone(context.Background(), lesson.ID, true, 10, 1, HourlyRate); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := store.MarkLessonDone(context.Background(), lesson.ID, true, 10, 1, HourlyRate)
	if KindOf(err) != KindConflict {
		t.Fatalf("expected conflict on a stale done flag, got %v", err)
	}

	teacher := store.teachers[10]
	if teacher.Hours != 1 || teacher.Money != HourlyRate {
		t.Fatalf("conflicting write must not move teacher totals, got hours=%v money=%v", teacher.Hours, teacher.Money)
	}

	if KindOf(store.MarkLessonDone(context.Background(), 999, true, 10, 1, HourlyRate)) != KindNotFound {
		t.Fatalf("a missing lesson must still report not found, not conflict")
	}
}
