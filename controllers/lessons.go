package controllers

import (
	"strconv"
	"time"

	"tutortrack_go/database"
	"tutortrack_go/middleware"
	"tutortrack_go/models"
	"tutortrack_go/services"
	"tutortrack_go/utils"

	"github.com/gofiber/fiber/v2"
)

type LessonController struct {
	sessions *services.SessionManager
	transfer *services.BalanceTransfer
}

func NewLessonController(sessions *services.SessionManager, transfer *services.BalanceTransfer) *LessonController {
	return &LessonController{sessions: sessions, transfer: transfer}
}

// CreateLessonRequest carries a new lesson slot. Date, start and end use the
// wire formats "2006-01-02" and "15:04".
type CreateLessonRequest struct {
	AssignmentID uint   `json:"assignment_id"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Notes        string `json:"notes"`
}

// CreateLesson validates the requested slot against the teacher's whole
// schedule and debits the assignment balance in one transfer.
func (lc *LessonController) CreateLesson(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	var req CreateLessonRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid date, expected YYYY-MM-DD"})
	}
	start, err := time.Parse("15:04", req.StartTime)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid start_time, expected HH:MM"})
	}
	end, err := time.Parse("15:04", req.EndTime)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid end_time, expected HH:MM"})
	}

	var assignment models.Assignment
	if err := database.DB.First(&assignment, req.AssignmentID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Assignment not found"})
	}
	if assignment.TeacherID != user.ID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Assignment belongs to another teacher"})
	}

	// Overlap is checked against every lesson the teacher has, across all of
	// their assignments, not just the one being booked against.
	var existing []models.Lesson
	if err := database.DB.
		Joins("JOIN assignments ON assignments.id = lessons.assignment_id").
		Where("assignments.teacher_id = ?", user.ID).
		Find(&existing).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load schedule"})
	}

	candidate := services.OverlapCandidate{Date: date, Start: start, End: end}
	duration, err := services.ValidateLessonSlot(existing, assignment, candidate)
	if err != nil {
		return serviceError(c, err)
	}

	lesson := models.Lesson{
		AssignmentID: assignment.ID,
		Date:         date,
		StartTime:    start,
		EndTime:      end,
		Hours:        duration.Hours,
		Minutes:      duration.Minutes,
		Notes:        utils.SanitizeString(req.Notes),
	}
	if err := lc.transfer.Create(c.Context(), &lesson, assignment); err != nil {
		return serviceError(c, err)
	}

	middleware.LogActivity(c, "CREATE", "lessons", lesson.ID, fiber.Map{
		"assignment_id": assignment.ID,
		"date":          req.Date,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Lesson created",
		"lesson":  utils.ToLessonDTO(lesson),
	})
}

// DeleteLesson removes a lesson and credits its duration back to the
// assignment balance.
func (lc *LessonController) DeleteLesson(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	lessonID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid lesson ID"})
	}

	if err := lc.requireOwnership(uint(lessonID), user.ID); err != nil {
		return serviceError(c, err)
	}

	if err := lc.transfer.Delete(c.Context(), uint(lessonID)); err != nil {
		return serviceError(c, err)
	}

	middleware.LogActivity(c, "DELETE", "lessons", uint(lessonID), nil)
	return c.JSON(fiber.Map{"message": "Lesson deleted"})
}

// CheckLesson toggles the lesson's done flag. Marking done credits the
// teacher's taught hours and pay; unmarking reverses both.
func (lc *LessonController) CheckLesson(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	lessonID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid lesson ID"})
	}

	if err := lc.requireOwnership(uint(lessonID), user.ID); err != nil {
		return serviceError(c, err)
	}

	lesson, err := lc.transfer.Complete(c.Context(), uint(lessonID))
	if err != nil {
		return serviceError(c, err)
	}

	middleware.LogActivity(c, "UPDATE", "lessons", lesson.ID, fiber.Map{"done": lesson.Done})
	return c.JSON(fiber.Map{
		"message": "Lesson updated",
		"lesson":  utils.ToLessonDTO(lesson),
	})
}

// GetLessons returns the session's joined lessons, newest start time first.
// The reconciler snapshot is authoritative; the database is only consulted
// when no session is running for the user.
func (lc *LessonController) GetLessons(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	if r, ok := lc.sessions.Get(user.ID); ok {
		return c.JSON(fiber.Map{"lessons": utils.ToLessonDTOs(r.Lessons())})
	}

	lessons, err := lc.loadLessonsFromDB(user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load lessons"})
	}
	return c.JSON(fiber.Map{"lessons": utils.ToLessonDTOs(lessons)})
}

// GetWeek returns the lessons scheduled from today through the next seven
// days, date ascending.
func (lc *LessonController) GetWeek(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	var lessons []models.Lesson
	if r, ok := lc.sessions.Get(user.ID); ok {
		lessons = r.Lessons()
	} else {
		lessons, err = lc.loadLessonsFromDB(user)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load lessons"})
		}
	}

	now := time.Now()
	week := services.LessonsBetween(lessons, now, now.AddDate(0, 0, 7))
	return c.JSON(fiber.Map{"lessons": utils.ToLessonDTOs(week)})
}

func (lc *LessonController) requireOwnership(lessonID, teacherID uint) error {
	var lesson models.Lesson
	if err := database.DB.Preload("Assignment").First(&lesson, lessonID).Error; err != nil {
		return services.E(services.KindNotFound, "lesson not found")
	}
	if lesson.Assignment == nil || lesson.Assignment.TeacherID != teacherID {
		return services.E(services.KindForbidden, "lesson belongs to another teacher")
	}
	return nil
}

func (lc *LessonController) loadLessonsFromDB(user *models.User) ([]models.Lesson, error) {
	column := "assignments.teacher_id"
	if user.Role == "student" {
		column = "assignments.student_id"
	}

	var lessons []models.Lesson
	err := database.DB.
		Preload("Assignment").
		Joins("JOIN assignments ON assignments.id = lessons.assignment_id").
		Where(column+" = ?", user.ID).
		Order("lessons.start_time DESC").
		Find(&lessons).Error
	return lessons, err
}
