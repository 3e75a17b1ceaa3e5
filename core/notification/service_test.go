package notification

import (
	"context"
	"strings"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/user"
	emailsvc "github.com/darasa-app/darasa/services/email"
)

type stubUsers struct {
	usr user.User
}

func (s *stubUsers) GetByID(id string) (user.User, error) {
	if s.usr.ID != id {
		return user.User{}, user.ErrNotFound
	}
	return s.usr, nil
}

func newTestValidator() (*validator.Validate, ut.Translator) {
	validate, translator := core.NewValidator()
	InitValidators(validate, translator)
	return validate, translator
}

func TestServiceCreate(t *testing.T) {
	conf := &core.Config{AppName: "Darasa"}
	repo := &stubRepo{}
	users := &stubUsers{usr: user.User{ID: "u1", Name: "Amani", Email: "amani@test.cd"}}
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	svc := NewService(repo, users, mailSvc, conf)

	frozen := time.Date(2021, 3, 14, 9, 26, 53, 0, time.UTC)
	svc.nowFunc = func() time.Time { return frozen }

	t.Run("plain notification", func(t *testing.T) {
		emailsvc.ClearSentMessages()

		notif, err := svc.Create(NewNotification{
			UserID:  "u1",
			Type:    TypeGrade,
			Title:   "Grade posted",
			Message: "Math II grade is out",
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if notif.ID == "" {
			t.Error("Create() did not assign an ID")
		}
		if !notif.CreatedAt.Equal(frozen) {
			t.Errorf("CreatedAt = %v, want %v", notif.CreatedAt, frozen)
		}
		if len(emailsvc.SentMessages) != 0 {
			t.Errorf("sent %d emails, want 0", len(emailsvc.SentMessages))
		}
	})

	t.Run("urgent notification is relayed by email", func(t *testing.T) {
		emailsvc.ClearSentMessages()

		_, err := svc.Create(NewNotification{
			UserID:   "u1",
			Type:     TypeAnnouncement,
			Title:    "School closed",
			Message:  "Campus closed tomorrow",
			IsUrgent: true,
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if len(emailsvc.SentMessages) != 1 {
			t.Fatalf("sent %d emails, want 1", len(emailsvc.SentMessages))
		}
		msg := emailsvc.SentMessages[0]
		if got := msg.To[0].Address; got != "amani@test.cd" {
			t.Errorf("To = %s, want amani@test.cd", got)
		}
		if !strings.Contains(msg.Subject, "School closed") {
			t.Errorf("Subject = %q, want it to carry the notification title", msg.Subject)
		}
	})

	t.Run("urgent relay failure is swallowed", func(t *testing.T) {
		emailsvc.ClearSentMessages()

		// recipient unknown to the user service; the row must still be created
		_, err := svc.Create(NewNotification{
			UserID:   "ghost",
			Type:     TypeSystem,
			Title:    "Maintenance",
			Message:  "Downtime tonight",
			IsUrgent: true,
		})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if len(emailsvc.SentMessages) != 0 {
			t.Errorf("sent %d emails, want 0", len(emailsvc.SentMessages))
		}
	})
}

func TestServiceMarkRead(t *testing.T) {
	repo := &stubRepo{}
	svc := newStreamService(repo)
	now := time.Now().UTC()
	n1 := repo.add("u1", now.Add(-2*time.Minute))
	repo.add("u1", now.Add(-time.Minute))
	repo.add("u2", now.Add(-time.Minute))

	t.Run("specific ids", func(t *testing.T) {
		updated, err := svc.MarkRead("u1", n1.ID)
		if err != nil {
			t.Fatalf("MarkRead() error = %v", err)
		}
		if updated != 1 {
			t.Errorf("MarkRead() = %d, want 1", updated)
		}
	})

	t.Run("empty ids mark all", func(t *testing.T) {
		updated, err := svc.MarkRead("u1")
		if err != nil {
			t.Fatalf("MarkRead() error = %v", err)
		}
		if updated != 1 {
			t.Errorf("MarkRead() = %d, want 1 remaining unread", updated)
		}
		cnt, err := repo.CountUnreadNotifications(context.Background(), "u1")
		if err != nil {
			t.Fatalf("CountUnreadNotifications() error = %v", err)
		}
		if cnt != 0 {
			t.Errorf("unread count = %d, want 0", cnt)
		}
	})
}

func TestNewNotificationValidate(t *testing.T) {
	validate, _ := newTestValidator()

	tests := []struct {
		name    string
		data    NewNotification
		wantErr bool
	}{
		{
			name: "valid",
			data: NewNotification{UserID: "u1", Type: TypeGrade, Title: "t", Message: "m"},
		},
		{
			name: "type is case-insensitive",
			data: NewNotification{UserID: "u1", Type: "  Announcement ", Title: "t", Message: "m"},
		},
		{
			name:    "unknown type",
			data:    NewNotification{UserID: "u1", Type: "gossip", Title: "t", Message: "m"},
			wantErr: true,
		},
		{
			name:    "missing title",
			data:    NewNotification{UserID: "u1", Type: TypeGrade, Message: "m"},
			wantErr: true,
		},
		{
			name:    "missing user",
			data:    NewNotification{Type: TypeGrade, Title: "t", Message: "m"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate(validate)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	// the exported type list is shared state; validation must not reorder it
	declared := []string{TypeGrade, TypeAnnouncement, TypeAttendance, TypeSystem}
	for i := range declared {
		if AllTypes[i] != declared[i] {
			t.Errorf("AllTypes[%d] = %s, want %s", i, AllTypes[i], declared[i])
		}
	}
}

func TestNewNotificationValidateClassCode(t *testing.T) {
	validate, _ := newTestValidator()

	nn := NewNotification{UserID: "u1", Type: TypeGrade, Title: "t", Message: "m", ClassCode: " math2 "}
	if err := nn.Validate(validate); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if nn.ClassCode != "MATH2" {
		t.Errorf("ClassCode = %s, want MATH2", nn.ClassCode)
	}

	nn.ClassCode = "2math!"
	if err := nn.Validate(validate); err == nil {
		t.Error("Validate() error = nil, want a classcode violation")
	}
}
