package feed

import (
	"context"
	"testing"
	"time"

	"tutortrack_go/models"
)

func recvAssignment(t *testing.T, ch <-chan AssignmentEvent) AssignmentEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for assignment event")
		return AssignmentEvent{}
	}
}

func recvLesson(t *testing.T, ch <-chan LessonEvent) LessonEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for lesson event")
		return LessonEvent{}
	}
}

func TestMemoryFeedSnapshotThenLive(t *testing.T) {
	f := NewMemoryFeed()
	f.Seed([]models.Assignment{
		{BaseModel: models.BaseModel{ID: 1}, TeacherID: 10, StudentID: 20},
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := f.Assignments(ctx, Filter{UserID: 10, Role: "teacher"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ev := recvAssignment(t, ch)
	if !ev.Snapshot || ev.Type != Added || ev.Assignment.ID != 1 {
		t.Fatalf("expected snapshot added for assignment 1, got %+v", ev)
	}

	f.AssignmentChanged(Modified, models.Assignment{
		BaseModel: models.BaseModel{ID: 1}, TeacherID: 10, StudentID: 20, Hours: 3,
	})

	ev = recvAssignment(t, ch)
	if ev.Snapshot || ev.Type != Modified || ev.Assignment.Hours != 3 {
		t.Fatalf("expected live modify carrying the new balance, got %+v", ev)
	}
}

func TestMemoryFeedFiltersByRole(t *testing.T) {
	f := NewMemoryFeed()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	teacherCh, _ := f.Assignments(ctx, Filter{UserID: 10, Role: "teacher"})
	studentCh, _ := f.Assignments(ctx, Filter{UserID: 20, Role: "student"})
	otherCh, _ := f.Assignments(ctx, Filter{UserID: 99, Role: "teacher"})

	f.AssignmentChanged(Added, models.Assignment{
		BaseModel: models.BaseModel{ID: 1}, TeacherID: 10, StudentID: 20,
	})

	if ev := recvAssignment(t, teacherCh); ev.Assignment.ID != 1 {
		t.Fatalf("teacher side must receive the event")
	}
	if ev := recvAssignment(t, studentCh); ev.Assignment.ID != 1 {
		t.Fatalf("student side must receive the event")
	}

	select {
	case ev := <-otherCh:
		t.Fatalf("unrelated session must not receive the event, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryFeedLessonOwnershipFollowsAssignment(t *testing.T) {
	f := NewMemoryFeed()
	f.Seed([]models.Assignment{
		{BaseModel: models.BaseModel{ID: 1}, TeacherID: 10, StudentID: 20},
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, _ := f.Lessons(ctx, Filter{UserID: 20, Role: "student"})

	f.LessonChanged(Added, models.Lesson{BaseModel: models.BaseModel{ID: 5}, AssignmentID: 1})
	if ev := recvLesson(t, ch); ev.Lesson.ID != 5 {
		t.Fatalf("student must receive lessons of their assignment")
	}

	// A lesson pointing at an unknown assignment reaches nobody.
	f.LessonChanged(Added, models.Lesson{BaseModel: models.BaseModel{ID: 6}, AssignmentID: 999})
	select {
	case ev := <-ch:
		t.Fatalf("orphan lesson must not be delivered, got %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryFeedSnapshotLargerThanBuffer(t *testing.T) {
	f := NewMemoryFeed()

	assignments := []models.Assignment{
		{BaseModel: models.BaseModel{ID: 1}, TeacherID: 10, StudentID: 20},
	}
	lessons := make([]models.Lesson, 0, 300)
	for i := uint(1); i <= 300; i++ {
		lessons = append(lessons, models.Lesson{BaseModel: models.BaseModel{ID: i}, AssignmentID: 1})
	}
	f.Seed(assignments, lessons)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan (<-chan LessonEvent), 1)
	go func() {
		ch, err := f.Lessons(ctx, Filter{UserID: 10, Role: "teacher"})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		done <- ch
	}()

	var ch <-chan LessonEvent
	select {
	case ch = <-done:
	case <-time.After(time.Second):
		t.Fatal("subscribe blocked on a snapshot larger than the channel buffer")
	}

	// Publishers take the feed lock; they must not be wedged by a subscriber
	// that has not drained its snapshot yet.
	published := make(chan struct{})
	go func() {
		f.LessonChanged(Added, models.Lesson{BaseModel: models.BaseModel{ID: 301}, AssignmentID: 1})
		close(published)
	}()
	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked while the snapshot was undelivered")
	}

	snapshots := 0
	for snapshots < 300 {
		ev := recvLesson(t, ch)
		if !ev.Snapshot {
			t.Fatalf("expected snapshot event, got live %+v", ev)
		}
		snapshots++
	}
	if ev := recvLesson(t, ch); ev.Snapshot || ev.Lesson.ID != 301 {
		t.Fatalf("expected the live event after the snapshot, got %+v", ev)
	}
}

func TestMemoryFeedClosesOnCancel(t *testing.T) {
	f := NewMemoryFeed()
	ctx, cancel := context.WithCancel(context.Background())

	ch, _ := f.Assignments(ctx, Filter{UserID: 10, Role: "teacher"})
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
