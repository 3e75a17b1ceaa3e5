package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/notification"
	"github.com/darasa-app/darasa/core/user"
)

// NewConfig returns a Config suitable for tests; no logging middleware, no
// panics swallowed.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	return conf
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateNotification(
	t *testing.T,
	repo notification.Repository,
	userID, typ, title, message string,
	urgent bool,
	createdAt time.Time,
) notification.Notification {
	t.Helper()

	notif, err := repo.CreateNotification(context.Background(), notification.Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		IsUrgent:  urgent,
		CreatedAt: createdAt.UTC(),
	})
	if err != nil {
		t.Fatalf("CreateNotification() failed: %v", err)
	}
	return notif
}
