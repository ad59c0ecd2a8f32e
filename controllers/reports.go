package controllers

import (
	"fmt"
	"time"

	"tutortrack_go/middleware"
	"tutortrack_go/models"
	"tutortrack_go/services"
	"tutortrack_go/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

type ReportController struct {
	sessions *services.SessionManager
	lessons  *LessonController
}

func NewReportController(sessions *services.SessionManager, lessons *LessonController) *ReportController {
	return &ReportController{sessions: sessions, lessons: lessons}
}

// GetReport returns the lessons awaiting a report: past lessons not yet
// marked done, oldest first, plus the running totals.
func (rc *ReportController) GetReport(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	lessons, err := rc.sessionLessons(user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load lessons"})
	}

	pending := services.ToReport(lessons, time.Now())
	return c.JSON(fiber.Map{
		"pending":      utils.ToLessonDTOs(pending),
		"hours_taught": services.TotalHoursTaught(lessons),
	})
}

// ExportReport writes the session's full lesson history to an xlsx workbook
// and streams it back as an attachment.
func (rc *ReportController) ExportReport(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	lessons, err := rc.sessionLessons(user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load lessons"})
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Lessons"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Date", "Start", "End", "Subject", "Counterpart", "Duration (h)", "Done", "Notes"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	f.SetRowStyle(sheet, 1, 1, headerStyle)

	for i, lesson := range lessons {
		row := i + 2
		subject := ""
		counterpart := ""
		if lesson.Assignment != nil {
			subject = lesson.Assignment.Subject
			if lesson.Assignment.User != nil {
				counterpart = lesson.Assignment.User.Username
			}
		}

		values := []interface{}{
			lesson.Date.Format("2006-01-02"),
			lesson.StartTime.Format("15:04"),
			lesson.EndTime.Format("15:04"),
			subject,
			counterpart,
			lesson.FractionalHours(),
			lesson.Done,
			lesson.Notes,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}

	summaryRow := len(lessons) + 3
	cell, _ := excelize.CoordinatesToCellName(1, summaryRow)
	f.SetCellValue(sheet, cell, "Hours taught")
	cell, _ = excelize.CoordinatesToCellName(2, summaryRow)
	f.SetCellValue(sheet, cell, services.TotalHoursTaught(lessons))

	buf, err := f.WriteToBuffer()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to generate workbook"})
	}

	filename := fmt.Sprintf("lessons_%s_%s.xlsx", user.Username, time.Now().Format("20060102"))
	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(buf.Bytes())
}

func (rc *ReportController) sessionLessons(user *models.User) ([]models.Lesson, error) {
	if r, ok := rc.sessions.Get(user.ID); ok {
		return r.Lessons(), nil
	}
	return rc.lessons.loadLessonsFromDB(user)
}
