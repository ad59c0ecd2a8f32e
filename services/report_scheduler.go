package services

import (
	"fmt"
	"time"

	"tutortrack_go/models"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReportScheduler reminds teachers about lessons awaiting a report. Runs on
// a cron spec (evenings by default) and derives the queue with the same
// aggregation the live snapshot uses.
type ReportScheduler struct {
	db       *gorm.DB
	notifier Notifier
	cron     *cron.Cron
}

func NewReportScheduler(db *gorm.DB, notifier Notifier) *ReportScheduler {
	return &ReportScheduler{
		db:       db,
		notifier: notifier,
		cron:     cron.New(),
	}
}

// Start registers the reminder job and starts the cron loop.
func (rs *ReportScheduler) Start(spec string) error {
	if _, err := rs.cron.AddFunc(spec, rs.RemindPendingReports); err != nil {
		return err
	}
	rs.cron.Start()
	logrus.WithField("spec", spec).Info("report scheduler started")
	return nil
}

// Stop halts the cron loop, waiting for a running job to finish.
func (rs *ReportScheduler) Stop() {
	ctx := rs.cron.Stop()
	<-ctx.Done()
}

// RemindPendingReports notifies every teacher who has past lessons not yet
// marked done.
func (rs *ReportScheduler) RemindPendingReports() {
	var teachers []models.User
	if err := rs.db.Where("role = ? AND status = ?", "teacher", "active").Find(&teachers).Error; err != nil {
		logrus.WithError(err).Error("report scheduler: list teachers")
		return
	}

	now := time.Now()
	for _, teacher := range teachers {
		var lessons []models.Lesson
		err := rs.db.
			Joins("JOIN assignments ON assignments.id = lessons.assignment_id").
			Where("assignments.teacher_id = ?", teacher.ID).
			Find(&lessons).Error
		if err != nil {
			logrus.WithError(err).WithField("teacher_id", teacher.ID).Error("report scheduler: load lessons")
			continue
		}

		pending := ToReport(lessons, now)
		if len(pending) == 0 {
			continue
		}

		rs.notifier.Notify(teacher.ID, "info", "Lessons awaiting report",
			fmt.Sprintf("You have %d past lesson(s) not yet marked as done.", len(pending)))
	}
}
