package notification

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/darasa-app/darasa/core"
)

// Types
const (
	TypeGrade        = "grade"
	TypeAnnouncement = "announcement"
	TypeAttendance   = "attendance"
	TypeSystem       = "system"
)

var AllTypes = []string{TypeGrade, TypeAnnouncement, TypeAttendance, TypeSystem}

// Notification is a persisted per-user notification. The stream only ever
// reads these rows; they are marked read by the acknowledgement flow.
type Notification struct {
	ID          string      `db:"id" json:"id"`
	UserID      string      `db:"user_id" json:"user_id"`
	Type        string      `db:"type" json:"type"`
	Title       string      `db:"title" json:"title"`
	Message     string      `db:"message" json:"message"`
	IsUrgent    bool        `db:"is_urgent" json:"is_urgent"`
	IsRead      bool        `db:"is_read" json:"is_read"`
	RelatedID   null.String `db:"related_id" json:"related_id,omitempty"`
	RelatedType null.String `db:"related_type" json:"related_type,omitempty"`
	ClassCode   null.String `db:"class_code" json:"class_code,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"` // UTC; stream ordering key
}

// NewNotification contains information needed to create a Notification.
type NewNotification struct {
	UserID      string `json:"user_id" validate:"required"`
	Type        string `json:"type" validate:"required,notiftype"`
	Title       string `json:"title" validate:"required"`
	Message     string `json:"message" validate:"required"`
	IsUrgent    bool   `json:"is_urgent"`
	RelatedID   string `json:"related_id"`
	RelatedType string `json:"related_type"`
	ClassCode   string `json:"class_code" validate:"omitempty,classcode"`
}

func (nn *NewNotification) Validate(validate *validator.Validate) error {
	nn.UserID = core.CleanString(nn.UserID)
	nn.Type = core.CleanString(nn.Type, true /* lower */)
	nn.Title = core.CleanString(nn.Title)
	nn.Message = core.CleanString(nn.Message)
	nn.ClassCode = strings.ToUpper(core.CleanString(nn.ClassCode))
	return validate.Struct(nn)
}

// MarkRead contains the ids to acknowledge; empty means "all of mine".
type MarkRead struct {
	IDs []string `json:"ids"`
}
