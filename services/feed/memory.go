package feed

import (
	"context"
	"sync"

	"tutortrack_go/models"

	"github.com/sirupsen/logrus"
)

// MemoryFeed is an in-process Adapter+Publisher used when Redis is not
// available and by tests. Delivery order matches publish order per
// collection; a slow subscriber has events dropped rather than blocking
// publishers, mirroring the websocket hub's policy.
type MemoryFeed struct {
	mu sync.Mutex

	assignments map[uint]models.Assignment
	lessons     map[uint]models.Lesson

	assignmentSubs map[int]assignmentSub
	lessonSubs     map[int]lessonSub
	nextSub        int
}

type assignmentSub struct {
	filter Filter
	ch     chan AssignmentEvent
}

type lessonSub struct {
	filter Filter
	ch     chan LessonEvent
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{
		assignments:    make(map[uint]models.Assignment),
		lessons:        make(map[uint]models.Lesson),
		assignmentSubs: make(map[int]assignmentSub),
		lessonSubs:     make(map[int]lessonSub),
	}
}

// Seed installs documents that will be part of the next snapshot without
// emitting live events.
func (f *MemoryFeed) Seed(assignments []models.Assignment, lessons []models.Lesson) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range assignments {
		f.assignments[a.ID] = a
	}
	for _, l := range lessons {
		f.lessons[l.ID] = l
	}
}

// Assignments subscribes to assignment changes for one session. The snapshot
// is copied under the lock and delivered from a goroutine, so a snapshot
// larger than the channel buffer never blocks the lock against publishers.
func (f *MemoryFeed) Assignments(ctx context.Context, filter Filter) (<-chan AssignmentEvent, error) {
	f.mu.Lock()
	var snapshot []models.Assignment
	for _, a := range f.assignments {
		if filter.Matches(a) {
			snapshot = append(snapshot, a)
		}
	}
	live := make(chan AssignmentEvent, 256)
	id := f.nextSub
	f.nextSub++
	f.assignmentSubs[id] = assignmentSub{filter: filter, ch: live}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.assignmentSubs, id)
		close(live)
		f.mu.Unlock()
	}()

	out := make(chan AssignmentEvent, 256)
	go func() {
		defer close(out)
		for _, a := range snapshot {
			if !send(ctx, out, AssignmentEvent{Type: Added, Snapshot: true, Assignment: a}) {
				return
			}
		}
		for ev := range live {
			if !send(ctx, out, ev) {
				return
			}
		}
	}()

	return out, nil
}

// Lessons subscribes to lesson changes for one session.
func (f *MemoryFeed) Lessons(ctx context.Context, filter Filter) (<-chan LessonEvent, error) {
	f.mu.Lock()
	var snapshot []models.Lesson
	for _, l := range f.lessons {
		if f.lessonMatchesLocked(l, filter) {
			snapshot = append(snapshot, l)
		}
	}
	live := make(chan LessonEvent, 256)
	id := f.nextSub
	f.nextSub++
	f.lessonSubs[id] = lessonSub{filter: filter, ch: live}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.lessonSubs, id)
		close(live)
		f.mu.Unlock()
	}()

	out := make(chan LessonEvent, 256)
	go func() {
		defer close(out)
		for _, l := range snapshot {
			if !send(ctx, out, LessonEvent{Type: Added, Snapshot: true, Lesson: l}) {
				return
			}
		}
		for ev := range live {
			if !send(ctx, out, ev) {
				return
			}
		}
	}()

	return out, nil
}

// AssignmentChanged publishes an assignment transition to matching subscribers.
func (f *MemoryFeed) AssignmentChanged(t Type, a models.Assignment) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if t == Removed {
		delete(f.assignments, a.ID)
	} else {
		f.assignments[a.ID] = a
	}

	for _, sub := range f.assignmentSubs {
		if !sub.filter.Matches(a) {
			continue
		}
		select {
		case sub.ch <- AssignmentEvent{Type: t, Assignment: a}:
		default:
			logrus.WithField("user_id", sub.filter.UserID).Warn("feed: assignment subscriber full, event dropped")
		}
	}
}

// LessonChanged publishes a lesson transition to matching subscribers.
func (f *MemoryFeed) LessonChanged(t Type, l models.Lesson) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if t == Removed {
		delete(f.lessons, l.ID)
	} else {
		f.lessons[l.ID] = l
	}

	for _, sub := range f.lessonSubs {
		if !f.lessonMatchesLocked(l, sub.filter) {
			continue
		}
		select {
		case sub.ch <- LessonEvent{Type: t, Lesson: l}:
		default:
			logrus.WithField("user_id", sub.filter.UserID).Warn("feed: lesson subscriber full, event dropped")
		}
	}
}

func (f *MemoryFeed) lessonMatchesLocked(l models.Lesson, filter Filter) bool {
	a, ok := f.assignments[l.AssignmentID]
	if !ok {
		return false
	}
	return filter.Matches(a)
}
