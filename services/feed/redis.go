package feed

import (
	"context"
	"encoding/json"
	"time"

	"tutortrack_go/models"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	assignmentStream = "feed:assignments"
	lessonStream     = "feed:lessons"

	// bounded so an idle deployment does not grow the streams forever
	streamMaxLen = 10000

	readBlock = 5 * time.Second
	readCount = 100
)

// RedisFeed carries committed document changes over Redis streams. The
// snapshot for a new subscription is taken from MySQL; the stream tail id is
// recorded before the snapshot read so no transition between the two is lost
// (redelivered upserts are harmless, the maps are last-write-wins).
type RedisFeed struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewRedisFeed(db *gorm.DB, rdb *redis.Client) *RedisFeed {
	return &RedisFeed{db: db, rdb: rdb}
}

type streamEnvelope struct {
	Type Type            `json:"type"`
	Doc  json.RawMessage `json:"doc"`
}

// AssignmentChanged publishes a committed assignment change.
func (f *RedisFeed) AssignmentChanged(t Type, a models.Assignment) {
	f.publish(assignmentStream, t, a)
}

// LessonChanged publishes a committed lesson change.
func (f *RedisFeed) LessonChanged(t Type, l models.Lesson) {
	f.publish(lessonStream, t, l)
}

func (f *RedisFeed) publish(stream string, t Type, doc interface{}) {
	raw, err := json.Marshal(doc)
	if err != nil {
		logrus.WithError(err).WithField("stream", stream).Error("feed: marshal document")
		return
	}
	env, err := json.Marshal(streamEnvelope{Type: t, Doc: raw})
	if err != nil {
		logrus.WithError(err).WithField("stream", stream).Error("feed: marshal envelope")
		return
	}

	err = f.rdb.XAdd(context.Background(), &redis.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"event": string(env)},
	}).Err()
	if err != nil {
		logrus.WithError(err).WithField("stream", stream).Error("feed: publish")
	}
}

// Assignments subscribes to the assignment collection for one session.
func (f *RedisFeed) Assignments(ctx context.Context, filter Filter) (<-chan AssignmentEvent, error) {
	lastID, err := f.streamTail(ctx, assignmentStream)
	if err != nil {
		return nil, err
	}

	snapshot, err := f.assignmentSnapshot(filter)
	if err != nil {
		return nil, err
	}

	out := make(chan AssignmentEvent, 64)
	go func() {
		defer close(out)

		for _, a := range snapshot {
			if !send(ctx, out, AssignmentEvent{Type: Added, Snapshot: true, Assignment: a}) {
				return
			}
		}

		f.tail(ctx, assignmentStream, lastID, func(env streamEnvelope) bool {
			var a models.Assignment
			if err := json.Unmarshal(env.Doc, &a); err != nil {
				logrus.WithError(err).Warn("feed: malformed assignment event skipped")
				return true
			}
			if !filter.Matches(a) {
				return true
			}
			return send(ctx, out, AssignmentEvent{Type: env.Type, Assignment: a})
		})
	}()

	return out, nil
}

// Lessons subscribes to the lesson collection for one session. Live events
// are matched through the lesson's assignment.
func (f *RedisFeed) Lessons(ctx context.Context, filter Filter) (<-chan LessonEvent, error) {
	lastID, err := f.streamTail(ctx, lessonStream)
	if err != nil {
		return nil, err
	}

	snapshot, err := f.lessonSnapshot(filter)
	if err != nil {
		return nil, err
	}

	out := make(chan LessonEvent, 64)
	go func() {
		defer close(out)

		for _, l := range snapshot {
			if !send(ctx, out, LessonEvent{Type: Added, Snapshot: true, Lesson: l}) {
				return
			}
		}

		f.tail(ctx, lessonStream, lastID, func(env streamEnvelope) bool {
			var l models.Lesson
			if err := json.Unmarshal(env.Doc, &l); err != nil {
				logrus.WithError(err).Warn("feed: malformed lesson event skipped")
				return true
			}
			if !f.lessonBelongsTo(l, filter) {
				return true
			}
			return send(ctx, out, LessonEvent{Type: env.Type, Lesson: l})
		})
	}()

	return out, nil
}

// streamTail returns the id of the newest entry, or "0-0" for an empty stream.
func (f *RedisFeed) streamTail(ctx context.Context, stream string) (string, error) {
	entries, err := f.rdb.XRevRangeN(ctx, stream, "+", "-", 1).Result()
	if err != nil && err != redis.Nil {
		return "", err
	}
	if len(entries) == 0 {
		return "0-0", nil
	}
	return entries[0].ID, nil
}

// tail reads the stream from lastID until the context is cancelled, invoking
// handle per entry. handle returns false to stop. Read errors are logged and
// retried; a bad entry never tears the subscription down.
func (f *RedisFeed) tail(ctx context.Context, stream, lastID string, handle func(streamEnvelope) bool) {
	for {
		if ctx.Err() != nil {
			return
		}

		streams, err := f.rdb.XRead(ctx, &redis.XReadArgs{
			Streams: []string{stream, lastID},
			Count:   readCount,
			Block:   readBlock,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			logrus.WithError(err).WithField("stream", stream).Warn("feed: read failed, retrying")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		for _, s := range streams {
			for _, entry := range s.Messages {
				lastID = entry.ID
				raw, ok := entry.Values["event"].(string)
				if !ok {
					logrus.WithField("stream", stream).Warn("feed: entry without event payload skipped")
					continue
				}
				var env streamEnvelope
				if err := json.Unmarshal([]byte(raw), &env); err != nil {
					logrus.WithError(err).WithField("stream", stream).Warn("feed: malformed entry skipped")
					continue
				}
				if !handle(env) {
					return
				}
			}
		}
	}
}

func (f *RedisFeed) assignmentSnapshot(filter Filter) ([]models.Assignment, error) {
	roleField := "student_id"
	if filter.Role == "teacher" {
		roleField = "teacher_id"
	}

	var assignments []models.Assignment
	err := f.db.Where(roleField+" = ?", filter.UserID).
		Order("created_at DESC").
		Find(&assignments).Error
	return assignments, err
}

func (f *RedisFeed) lessonSnapshot(filter Filter) ([]models.Lesson, error) {
	roleField := "assignments.student_id"
	if filter.Role == "teacher" {
		roleField = "assignments.teacher_id"
	}

	var lessons []models.Lesson
	err := f.db.
		Joins("JOIN assignments ON assignments.id = lessons.assignment_id").
		Where(roleField+" = ?", filter.UserID).
		Order("lessons.start_time DESC").
		Find(&lessons).Error
	return lessons, err
}

func (f *RedisFeed) lessonBelongsTo(l models.Lesson, filter Filter) bool {
	roleField := "student_id"
	if filter.Role == "teacher" {
		roleField = "teacher_id"
	}

	var count int64
	err := f.db.Model(&models.Assignment{}).
		Where("id = ? AND "+roleField+" = ?", l.AssignmentID, filter.UserID).
		Count(&count).Error
	if err != nil {
		logrus.WithError(err).Warn("feed: lesson ownership check failed")
		return false
	}
	return count > 0
}

func send[E any](ctx context.Context, out chan<- E, ev E) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
