package utils

import (
	"time"

	"tutortrack_go/models"
)

// Compact representations used across APIs
type UserShort struct {
	ID       uint    `json:"id"`
	Username string  `json:"username,omitempty"`
	Role     string  `json:"role,omitempty"`
	Phone    string  `json:"phone,omitempty"`
	Study    string  `json:"study,omitempty"`
	Avatar   string  `json:"avatar,omitempty"`
	Hours    float64 `json:"hours"`
	Money    float64 `json:"money"`
}

type AssignmentDTO struct {
	ID        uint       `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	TeacherID uint       `json:"teacher_id"`
	StudentID uint       `json:"student_id"`
	Subject   string     `json:"subject"`
	Hours     float64    `json:"hours"`
	User      *UserShort `json:"user,omitempty"`
}

type LessonDTO struct {
	ID         uint           `json:"id"`
	Date       string         `json:"date"`
	StartTime  string         `json:"start_time"`
	EndTime    string         `json:"end_time"`
	Hours      int            `json:"hours"`
	Minutes    int            `json:"minutes"`
	Notes      string         `json:"notes,omitempty"`
	Done       bool           `json:"done"`
	Assignment *AssignmentDTO `json:"assignment,omitempty"`
}

type NotificationDTO struct {
	ID        uint        `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	UserID    uint        `json:"user_id"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	Type      string      `json:"type"`
	Read      bool        `json:"read"`
	ReadAt    *time.Time  `json:"read_at,omitempty"`
	Data      models.JSON `json:"data,omitempty"`
}

// ToUserShort maps a models.User to the compact DTO.
func ToUserShort(u models.User) UserShort {
	return UserShort{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
		Phone:    u.Phone,
		Study:    u.Study,
		Avatar:   u.Avatar,
		Hours:    u.Hours,
		Money:    u.Money,
	}
}

// ToAssignmentDTO maps a models.Assignment to the compact DTO. The
// counterpart user is included only when the reconciler has resolved it.
func ToAssignmentDTO(a models.Assignment) AssignmentDTO {
	dto := AssignmentDTO{
		ID:        a.ID,
		CreatedAt: a.CreatedAt,
		TeacherID: a.TeacherID,
		StudentID: a.StudentID,
		Subject:   a.Subject,
		Hours:     a.Hours,
	}
	if a.User != nil {
		us := ToUserShort(*a.User)
		dto.User = &us
	}
	return dto
}

// ToLessonDTO maps a models.Lesson to the compact DTO.
func ToLessonDTO(l models.Lesson) LessonDTO {
	dto := LessonDTO{
		ID:        l.ID,
		Date:      l.Date.Format("2006-01-02"),
		StartTime: l.StartTime.Format("15:04"),
		EndTime:   l.EndTime.Format("15:04"),
		Hours:     l.Hours,
		Minutes:   l.Minutes,
		Notes:     l.Notes,
		Done:      l.Done,
	}
	if l.Assignment != nil {
		a := ToAssignmentDTO(*l.Assignment)
		dto.Assignment = &a
	}
	return dto
}

// ToLessonDTOs maps a lesson slice.
func ToLessonDTOs(lessons []models.Lesson) []LessonDTO {
	out := make([]LessonDTO, 0, len(lessons))
	for _, l := range lessons {
		out = append(out, ToLessonDTO(l))
	}
	return out
}

// ToNotificationDTO maps a models.Notification to the compact DTO.
func ToNotificationDTO(n models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		CreatedAt: n.CreatedAt,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Type,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		Data:      n.Data,
	}
}
