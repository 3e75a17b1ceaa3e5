package notification

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("notification not found")
)

type (
	// Repository is the notification store adapter.
	Repository interface {
		CreateNotification(ctx context.Context, notif Notification) (Notification, error)
		// FindUnreadNotifications returns unread notifications for userID with
		// CreatedAt strictly after `since` (zero `since` returns all unread),
		// oldest first, capped at `limit`.
		FindUnreadNotifications(ctx context.Context, userID string, since time.Time, limit int) ([]Notification, error)
		CountUnreadNotifications(ctx context.Context, userID string) (int, error)
		// QueryNotifications returns the most recent notifications for userID,
		// read or not, newest first, capped at `limit`.
		QueryNotifications(ctx context.Context, userID string, limit int) ([]Notification, error)
		// MarkNotificationsRead marks the given notifications read and reports
		// how many rows changed. Empty ids means all of the user's unread rows.
		MarkNotificationsRead(ctx context.Context, userID string, ids ...string) (int, error)
	}

	// UserGetter resolves a notification recipient; satisfied by user.ServiceInterface.
	UserGetter interface {
		GetByID(id string) (user.User, error)
	}

	Service struct {
		repo    Repository
		users   UserGetter
		mailSvc core.EmailService
		conf    *core.Config

		nowFunc func() time.Time // mockable
	}
)

func NewService(repo Repository, users UserGetter, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		users:   users,
		mailSvc: mailSvc,
		conf:    conf,
		nowFunc: time.Now,
	}
}

func (svc *Service) now() time.Time { return svc.nowFunc().UTC() }

// Create persists a new notification. Urgent notifications are also relayed
// to the recipient's email address when one is on file.
func (svc *Service) Create(nn NewNotification) (Notification, error) {
	notif := Notification{
		ID:          uuid.New().String(),
		UserID:      nn.UserID,
		Type:        nn.Type,
		Title:       nn.Title,
		Message:     nn.Message,
		IsUrgent:    nn.IsUrgent,
		RelatedID:   null.NewString(nn.RelatedID, nn.RelatedID != ""),
		RelatedType: null.NewString(nn.RelatedType, nn.RelatedType != ""),
		ClassCode:   null.NewString(nn.ClassCode, nn.ClassCode != ""),
		CreatedAt:   svc.now(),
	}

	notif, err := svc.repo.CreateNotification(context.Background(), notif)
	if err != nil {
		return Notification{}, errors.Wrap(err, "creating notification")
	}

	if notif.IsUrgent {
		svc.relayUrgent(notif)
	}
	return notif, nil
}

// relayUrgent emails an urgent notification to its recipient; failures are
// swallowed, the in-app row is the source of truth.
func (svc *Service) relayUrgent(notif Notification) {
	if svc.users == nil || svc.mailSvc == nil {
		return
	}
	usr, err := svc.users.GetByID(notif.UserID)
	if err != nil || usr.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject: fmt.Sprintf("Urgent: %s", notif.Title),
		Body:    notif.Message,
	})
}

func (svc *Service) FindUnread(userID string, since time.Time, limit int) ([]Notification, error) {
	return svc.repo.FindUnreadNotifications(context.Background(), userID, since, limit)
}

func (svc *Service) CountUnread(userID string) (int, error) {
	return svc.repo.CountUnreadNotifications(context.Background(), userID)
}

func (svc *Service) Query(userID string, limit int) ([]Notification, error) {
	return svc.repo.QueryNotifications(context.Background(), userID, limit)
}

func (svc *Service) MarkRead(userID string, ids ...string) (int, error) {
	return svc.repo.MarkNotificationsRead(context.Background(), userID, ids...)
}
