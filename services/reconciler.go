package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tutortrack_go/models"
	"tutortrack_go/services/feed"

	"github.com/sirupsen/logrus"
)

// Session is the user record the reconciler works for. Supplied once per
// login; the role never changes within a session.
type Session struct {
	UserID uint
	Role   string
}

// Notifier receives a fire-and-forget info event for every post-snapshot
// state change. Implemented by the notifications service; nil disables the
// side-channel.
type Notifier interface {
	Notify(userID uint, typ, title, message string)
}

// UserLoader batch-resolves counterpart users by id.
type UserLoader func(ids []uint) ([]models.User, error)

// Reconciler maintains the authoritative in-process snapshot of one session:
// the assignment and lesson maps driven by the change feed, and the
// materialized lessons-with-assignment view recomputed after every mutation.
// The feed is the single source of truth; a document arriving from the feed
// always overwrites the cached copy.
type Reconciler struct {
	session   Session
	adapter   feed.Adapter
	notifier  Notifier
	loadUsers UserLoader

	mu           sync.RWMutex
	assignments  map[uint]models.Assignment
	lessons      map[uint]models.Lesson
	users        map[uint]models.User
	pendingUsers map[uint]struct{}
	joined       []models.Lesson
	closed       bool
}

func NewReconciler(session Session, adapter feed.Adapter, notifier Notifier, loadUsers UserLoader) *Reconciler {
	return &Reconciler{
		session:      session,
		adapter:      adapter,
		notifier:     notifier,
		loadUsers:    loadUsers,
		assignments:  make(map[uint]models.Assignment),
		lessons:      make(map[uint]models.Lesson),
		users:        make(map[uint]models.User),
		pendingUsers: make(map[uint]struct{}),
	}
}

// Run subscribes to both collections and processes events one at a time, in
// delivery order per collection, until the context is cancelled. Interleaving
// across the two collections is expected; the join is re-derived on every
// event from either side. A bad event is logged and skipped, never tearing
// the subscriptions down.
func (r *Reconciler) Run(ctx context.Context) error {
	assignmentCh, err := r.adapter.Assignments(ctx, r.filter())
	if err != nil {
		return err
	}
	lessonCh, err := r.adapter.Lessons(ctx, r.filter())
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			r.teardown()
			return nil
		case ev, ok := <-assignmentCh:
			if !ok {
				assignmentCh = nil
				break
			}
			r.ApplyAssignmentEvent(ev)
			// user lookups must not block the feed loop
			go r.ResolveMissingUsers()
		case ev, ok := <-lessonCh:
			if !ok {
				lessonCh = nil
				break
			}
			r.ApplyLessonEvent(ev)
		}

		if assignmentCh == nil && lessonCh == nil {
			r.teardown()
			return nil
		}
	}
}

func (r *Reconciler) filter() feed.Filter {
	return feed.Filter{UserID: r.session.UserID, Role: r.session.Role}
}

// ApplyAssignmentEvent folds one assignment transition into the snapshot and
// re-derives the join for all lessons, not only newly arrived ones, so no
// stale denormalized assignment survives.
func (r *Reconciler) ApplyAssignmentEvent(ev feed.AssignmentEvent) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	assignment := ev.Assignment
	switch ev.Type {
	case feed.Removed:
		delete(r.assignments, assignment.ID)
	default:
		assignment.User = nil
		r.assignments[assignment.ID] = assignment
		counterpartID := assignment.CounterpartID(r.session.Role)
		if _, known := r.users[counterpartID]; !known {
			r.pendingUsers[counterpartID] = struct{}{}
		}
	}
	r.rejoinLocked()
	r.mu.Unlock()

	// cold start must not look like N new events
	if ev.Snapshot {
		return
	}
	switch ev.Type {
	case feed.Added:
		r.notify("New assignment", fmt.Sprintf("A new %s assignment was added for you.", assignment.Subject))
	case feed.Removed:
		r.notify("Assignment removed", fmt.Sprintf("Your %s assignment was removed.", assignment.Subject))
	}
}

// ApplyLessonEvent folds one lesson transition into the snapshot.
func (r *Reconciler) ApplyLessonEvent(ev feed.LessonEvent) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}

	lesson := ev.Lesson
	switch ev.Type {
	case feed.Removed:
		delete(r.lessons, lesson.ID)
	default:
		lesson.Assignment = nil
		r.lessons[lesson.ID] = lesson
	}
	r.rejoinLocked()
	r.mu.Unlock()

	if ev.Snapshot {
		return
	}
	switch ev.Type {
	case feed.Added:
		r.notify("New lesson", fmt.Sprintf("A lesson on %s was scheduled.", lesson.Date.Format("2006-01-02")))
	case feed.Removed:
		r.notify("Lesson removed", fmt.Sprintf("The lesson on %s was removed.", lesson.Date.Format("2006-01-02")))
	}
}

// ResolveMissingUsers batch-loads counterpart users collected by assignment
// events and merges them back into the snapshot. Dispatched off the feed
// loop; results arriving after teardown are discarded.
func (r *Reconciler) ResolveMissingUsers() {
	r.mu.Lock()
	if r.closed || len(r.pendingUsers) == 0 {
		r.mu.Unlock()
		return
	}
	ids := make([]uint, 0, len(r.pendingUsers))
	for id := range r.pendingUsers {
		ids = append(ids, id)
	}
	r.pendingUsers = make(map[uint]struct{})
	r.mu.Unlock()

	users, err := r.loadUsers(ids)
	if err != nil {
		logrus.WithError(err).WithField("user_id", r.session.UserID).Warn("reconciler: counterpart lookup failed")
		r.mu.Lock()
		if !r.closed {
			// retry on the next assignment event
			for _, id := range ids {
				r.pendingUsers[id] = struct{}{}
			}
		}
		r.mu.Unlock()
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	for _, u := range users {
		r.users[u.ID] = u
	}
	r.rejoinLocked()
}

// rejoinLocked recomputes the materialized lessons-with-assignment view.
// Callers hold the write lock.
func (r *Reconciler) rejoinLocked() {
	r.joined = joinLessons(r.assignments, r.lessons, r.users, r.session.Role)
}

func (r *Reconciler) teardown() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

func (r *Reconciler) notify(title, message string) {
	if r.notifier == nil {
		return
	}
	r.notifier.Notify(r.session.UserID, "info", title, message)
}

// Assignments returns the current assignment snapshot with counterpart users
// attached where resolved, newest first.
func (r *Reconciler) Assignments() []models.Assignment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Assignment, 0, len(r.assignments))
	for _, a := range r.assignments {
		if u, ok := r.users[a.CounterpartID(r.session.Role)]; ok {
			user := u
			a.User = &user
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Lessons returns the joined lesson view. Lessons whose assignment is not
// yet known are held back rather than exposed with a nil reference.
func (r *Reconciler) Lessons() []models.Lesson {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Lesson, len(r.joined))
	copy(out, r.joined)
	return out
}

// Report returns the derived report queue as of now.
func (r *Reconciler) Report(now time.Time) []models.Lesson {
	return ToReport(r.Lessons(), now)
}

// TotalHours returns the cumulative taught hours derived from the snapshot.
func (r *Reconciler) TotalHours() float64 {
	return TotalHoursTaught(r.Lessons())
}

// joinLessons attaches each lesson to its assignment and the assignment to
// the counterpart user, dropping lessons whose assignment is unknown. Pure;
// called after every mutation of either map.
func joinLessons(assignments map[uint]models.Assignment, lessons map[uint]models.Lesson, users map[uint]models.User, role string) []models.Lesson {
	joined := make([]models.Lesson, 0, len(lessons))
	for _, lesson := range lessons {
		assignment, ok := assignments[lesson.AssignmentID]
		if !ok {
			continue
		}
		if u, found := users[assignment.CounterpartID(role)]; found {
			user := u
			assignment.User = &user
		}
		a := assignment
		lesson.Assignment = &a
		joined = append(joined, lesson)
	}

	sort.Slice(joined, func(i, j int) bool {
		return joined[i].StartTime.After(joined[j].StartTime)
	})
	return joined
}
