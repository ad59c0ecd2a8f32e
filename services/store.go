package services

import (
	"context"
	"errors"

	"tutortrack_go/models"

	"gorm.io/gorm"
)

// LedgerStore is the persistence seam for balance transfers. Both writes of a
// transfer happen inside one storage transaction; the expectedHours argument
// is the optimistic precondition on the stored assignment balance, and a
// mismatch fails the whole transaction with KindConflict. MarkLessonDone
// carries the same kind of precondition on the done flag: it only flips from
// !done to done.
type LedgerStore interface {
	Assignment(ctx context.Context, id uint) (models.Assignment, error)
	Lesson(ctx context.Context, id uint) (models.Lesson, error)
	CreateLessonDebit(ctx context.Context, lesson *models.Lesson, expectedHours float64) error
	DeleteLessonCredit(ctx context.Context, lesson models.Lesson, expectedHours float64) error
	MarkLessonDone(ctx context.Context, lessonID uint, done bool, teacherID uint, hoursDelta, moneyDelta float64) error
}

// GormLedgerStore implements LedgerStore on MySQL.
type GormLedgerStore struct {
	db *gorm.DB
}

func NewGormLedgerStore(db *gorm.DB) *GormLedgerStore {
	return &GormLedgerStore{db: db}
}

func (s *GormLedgerStore) Assignment(ctx context.Context, id uint) (models.Assignment, error) {
	var assignment models.Assignment
	err := s.db.WithContext(ctx).First(&assignment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Assignment{}, E(KindNotFound, "assignment not found")
	}
	return assignment, err
}

func (s *GormLedgerStore) Lesson(ctx context.Context, id uint) (models.Lesson, error) {
	var lesson models.Lesson
	err := s.db.WithContext(ctx).First(&lesson, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Lesson{}, E(KindNotFound, "lesson not found")
	}
	return lesson, err
}

func (s *GormLedgerStore) CreateLessonDebit(ctx context.Context, lesson *models.Lesson, expectedHours float64) error {
	amount := lesson.FractionalHours()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.adjustHours(tx, lesson.AssignmentID, expectedHours, expectedHours-amount); err != nil {
			return err
		}
		return tx.Create(lesson).Error
	})
}

func (s *GormLedgerStore) DeleteLessonCredit(ctx context.Context, lesson models.Lesson, expectedHours float64) error {
	amount := lesson.FractionalHours()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Lesson{}, lesson.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return E(KindNotFound, "lesson not found")
		}
		return s.adjustHours(tx, lesson.AssignmentID, expectedHours, expectedHours+amount)
	})
}

func (s *GormLedgerStore) MarkLessonDone(ctx context.Context, lessonID uint, done bool, teacherID uint, hoursDelta, moneyDelta float64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// done is only flipped if the flag still holds the value the caller
		// read, the same precondition adjustHours puts on the balance.
		res := tx.Model(&models.Lesson{}).Where("id = ? AND done = ?", lessonID, !done).Update("done", done)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Lesson{}).Where("id = ?", lessonID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return E(KindNotFound, "lesson not found")
			}
			return E(KindConflict, "lesson done flag changed concurrently, re-fetch and retry")
		}

		res = tx.Model(&models.User{}).Where("id = ?", teacherID).Updates(map[string]interface{}{
			"hours": gorm.Expr("hours + ?", hoursDelta),
			"money": gorm.Expr("money + ?", moneyDelta),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return E(KindNotFound, "teacher not found")
		}
		return nil
	})
}

// adjustHours is the conditional write guarding every transfer: the balance
// is only moved if it still equals what the caller read.
func (s *GormLedgerStore) adjustHours(tx *gorm.DB, assignmentID uint, expected, next float64) error {
	res := tx.Model(&models.Assignment{}).
		Where("id = ? AND hours = ?", assignmentID, expected).
		Update("hours", next)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.Assignment{}).Where("id = ?", assignmentID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return E(KindNotFound, "assignment no longer exists")
		}
		return E(KindConflict, "assignment hours changed concurrently, re-fetch and retry")
	}
	return nil
}
