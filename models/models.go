package models

import (
	"database/sql/driver"
	"math"
	"time"

	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	s, ok := value.([]byte)
	if !ok {
		return nil
	}
	*j = append((*j)[0:0], s...)
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// User model. Hours and Money accumulate as lessons are marked done;
// both are mutated only by the balance transfer service.
type User struct {
	BaseModel
	Username string  `json:"username" gorm:"size:100;not null;uniqueIndex"`
	Password string  `json:"-" gorm:"size:255;not null"`
	Phone    string  `json:"phone" gorm:"size:20"`
	Study    string  `json:"study" gorm:"size:255"`
	Role     string  `json:"role" gorm:"size:50;not null;default:'student';type:enum('teacher','student')"` // teacher, student
	Hours    float64 `json:"hours" gorm:"default:0"`
	Money    float64 `json:"money" gorm:"default:0"`
	Avatar   string  `json:"avatar" gorm:"size:500"`
	Status   string  `json:"status" gorm:"size:50;not null;default:'active';type:enum('active','inactive','suspended')"` // active, inactive, suspended
}

// Assignment represents a teacher-student pairing and its remaining
// contracted hours. Hours may only change through a balance transfer.
type Assignment struct {
	BaseModel
	TeacherID uint    `json:"teacher_id" gorm:"not null;index"`
	StudentID uint    `json:"student_id" gorm:"not null;index"`
	Subject   string  `json:"subject" gorm:"size:255"`
	Hours     float64 `json:"hours" gorm:"not null;default:0"`

	// Relationships
	Teacher User `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
	Student User `json:"student,omitempty" gorm:"foreignKey:StudentID"`

	// Counterpart of the session user (the student for a teacher session and
	// vice versa), resolved by the reconciler at read time. Never persisted.
	User *User `json:"user,omitempty" gorm:"-"`
}

// CounterpartID returns the user on the other side of the pairing for the
// given session role.
func (a Assignment) CounterpartID(role string) uint {
	if role == "teacher" {
		return a.StudentID
	}
	return a.TeacherID
}

// Lesson is a scheduled or completed teaching session drawing against an
// assignment's balance. Hours and Minutes store the duration redundantly;
// they must match EndTime-StartTime at write time.
type Lesson struct {
	BaseModel
	AssignmentID uint      `json:"assignment_id" gorm:"not null;index"`
	Date         time.Time `json:"date" gorm:"not null"`
	StartTime    time.Time `json:"start_time" gorm:"not null"`
	EndTime      time.Time `json:"end_time" gorm:"not null"`
	Hours        int       `json:"hours" gorm:"not null"`
	Minutes      int       `json:"minutes" gorm:"not null"`
	Notes        string    `json:"notes" gorm:"type:text"`
	Done         bool      `json:"done" gorm:"default:false"`

	// Denormalized assignment, joined by the reconciler. A lesson whose
	// assignment is not yet known is held back from presentation.
	Assignment *Assignment `json:"assignment,omitempty" gorm:"foreignKey:AssignmentID"`
}

// FractionalHours returns the lesson duration as a fractional-hour number
// rounded to two decimal places.
func (l Lesson) FractionalHours() float64 {
	return math.Round((float64(l.Hours)+float64(l.Minutes)/60)*100) / 100
}

// Log model for activity tracking
type ActivityLog struct {
	BaseModel
	UserID     uint   `json:"user_id"`
	Action     string `json:"action" gorm:"size:100;not null"`
	Resource   string `json:"resource" gorm:"size:100;not null"`
	ResourceID uint   `json:"resource_id"`
	Details    JSON   `json:"details" gorm:"type:json"`
	IPAddress  string `json:"ip_address" gorm:"size:45"`
	UserAgent  string `json:"user_agent" gorm:"size:500"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Notification model
type Notification struct {
	BaseModel
	UserID  uint       `json:"user_id" gorm:"not null"`
	Title   string     `json:"title" gorm:"size:255;not null"`
	Message string     `json:"message" gorm:"type:text;not null"`
	Type    string     `json:"type" gorm:"size:50;not null;type:enum('info','warning','error','success')"` // info, warning, error, success
	Read    bool       `json:"read" gorm:"default:false"`
	ReadAt  *time.Time `json:"read_at"`
	Data    JSON       `json:"data,omitempty" gorm:"type:json"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}
