package services

import (
	"context"
	"sync"

	"tutortrack_go/models"
	"tutortrack_go/services/feed"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SessionManager owns one reconciler per logged-in user. Start is called on
// login (or the first authenticated read), Stop on logout; stopping cancels
// the session context which tears down both feed subscriptions.
type SessionManager struct {
	db       *gorm.DB
	adapter  feed.Adapter
	notifier Notifier

	mu     sync.Mutex
	active map[uint]*activeSession
}

type activeSession struct {
	reconciler *Reconciler
	cancel     context.CancelFunc
}

func NewSessionManager(db *gorm.DB, adapter feed.Adapter, notifier Notifier) *SessionManager {
	return &SessionManager{
		db:       db,
		adapter:  adapter,
		notifier: notifier,
		active:   make(map[uint]*activeSession),
	}
}

// Start launches a reconciler for the user if none is running and returns it.
func (m *SessionManager) Start(user models.User) *Reconciler {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.active[user.ID]; ok {
		return s.reconciler
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := NewReconciler(
		Session{UserID: user.ID, Role: user.Role},
		m.adapter,
		m.notifier,
		m.batchUserLoader(),
	)
	m.active[user.ID] = &activeSession{reconciler: r, cancel: cancel}

	go func() {
		if err := r.Run(ctx); err != nil {
			logrus.WithError(err).WithField("user_id", user.ID).Error("session: reconciler stopped")
		}
	}()

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("session: reconciler started")
	return r
}

// Get returns the running reconciler for the user, if any.
func (m *SessionManager) Get(userID uint) (*Reconciler, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.active[userID]
	if !ok {
		return nil, false
	}
	return s.reconciler, true
}

// Stop tears down the user's feed subscriptions. Safe to call when no
// session is active.
func (m *SessionManager) Stop(userID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.active[userID]; ok {
		s.cancel()
		delete(m.active, userID)
		logrus.WithField("user_id", userID).Info("session: reconciler stopped")
	}
}

// StopAll tears down every active session, used on shutdown.
func (m *SessionManager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.active {
		s.cancel()
		delete(m.active, id)
	}
}

func (m *SessionManager) batchUserLoader() UserLoader {
	return func(ids []uint) ([]models.User, error) {
		var users []models.User
		err := m.db.Where("id IN ?", ids).Find(&users).Error
		return users, err
	}
}
