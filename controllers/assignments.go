package controllers

import (
	"tutortrack_go/database"
	"tutortrack_go/middleware"
	"tutortrack_go/models"
	"tutortrack_go/services"
	"tutortrack_go/services/feed"
	"tutortrack_go/utils"

	"github.com/gofiber/fiber/v2"
)

type AssignmentController struct {
	sessions *services.SessionManager
	feed     feed.Publisher
}

func NewAssignmentController(sessions *services.SessionManager, publisher feed.Publisher) *AssignmentController {
	return &AssignmentController{sessions: sessions, feed: publisher}
}

// CreateAssignmentRequest carries a new teacher-student pairing and its
// opening hour balance.
type CreateAssignmentRequest struct {
	StudentUsername string  `json:"student_username"`
	Subject         string  `json:"subject"`
	Hours           float64 `json:"hours"`
}

// CreateAssignment opens a pairing between the calling teacher and a student.
// The new record is published on the change feed so both parties' live
// sessions pick it up without polling.
func (ac *AssignmentController) CreateAssignment(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	var req CreateAssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Hours <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Hours must be positive"})
	}

	var student models.User
	if err := database.DB.Where("username = ? AND role = ?", req.StudentUsername, "student").First(&student).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Student not found"})
	}

	assignment := models.Assignment{
		TeacherID: user.ID,
		StudentID: student.ID,
		Subject:   utils.SanitizeString(req.Subject),
		Hours:     req.Hours,
	}
	if err := database.DB.Create(&assignment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create assignment"})
	}

	if ac.feed != nil {
		ac.feed.AssignmentChanged(feed.Added, assignment)
	}

	middleware.LogActivity(c, "CREATE", "assignments", assignment.ID, fiber.Map{
		"student_id": student.ID,
		"hours":      req.Hours,
	})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":    "Assignment created",
		"assignment": utils.ToAssignmentDTO(assignment),
	})
}

// GetAssignments returns the session's assignments, newest first, each with
// the counterpart user attached.
func (ac *AssignmentController) GetAssignments(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User not found"})
	}

	if r, ok := ac.sessions.Get(user.ID); ok {
		assignments := r.Assignments()
		out := make([]utils.AssignmentDTO, 0, len(assignments))
		for _, a := range assignments {
			out = append(out, utils.ToAssignmentDTO(a))
		}
		return c.JSON(fiber.Map{"assignments": out})
	}

	assignments, err := ac.loadAssignmentsFromDB(user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load assignments"})
	}
	out := make([]utils.AssignmentDTO, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, utils.ToAssignmentDTO(a))
	}
	return c.JSON(fiber.Map{"assignments": out})
}

func (ac *AssignmentController) loadAssignmentsFromDB(user *models.User) ([]models.Assignment, error) {
	column := "teacher_id"
	counterpart := "Student"
	if user.Role == "student" {
		column = "student_id"
		counterpart = "Teacher"
	}

	var assignments []models.Assignment
	err := database.DB.
		Preload(counterpart).
		Where(column+" = ?", user.ID).
		Order("created_at DESC").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}

	for i := range assignments {
		if user.Role == "teacher" {
			assignments[i].User = &assignments[i].Student
		} else {
			assignments[i].User = &assignments[i].Teacher
		}
	}
	return assignments, nil
}
