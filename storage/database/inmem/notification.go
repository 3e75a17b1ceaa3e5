package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/darasa-app/darasa/core/notification"
)

type notificationRepository struct {
	db *notificationTable
}

var _ notification.Repository = (*notificationRepository)(nil)

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db.notification}
}

func (repo *notificationRepository) query(userID string) []notification.Notification {
	notifs := make([]notification.Notification, 0)
	for _, n := range repo.db.table {
		if n.UserID == userID {
			notifs = append(notifs, *n)
		}
	}
	return notifs
}

func (repo *notificationRepository) CreateNotification(_ context.Context, notif notification.Notification) (notification.Notification, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if notif.ID == "" {
		notif.ID = uuid.New().String()
	}
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = time.Now().UTC()
	}
	repo.db.table[notif.ID] = &notif
	return notif, nil
}

func (repo *notificationRepository) FindUnreadNotifications(_ context.Context, userID string, since time.Time, limit int) ([]notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	notifs := make([]notification.Notification, 0)
	for _, n := range repo.query(userID) {
		if n.IsRead {
			continue
		}
		if !since.IsZero() && !n.CreatedAt.After(since) {
			continue
		}
		notifs = append(notifs, n)
	}
	sort.Slice(notifs, func(i, j int) bool { return notifs[i].CreatedAt.Before(notifs[j].CreatedAt) })
	if limit > 0 && len(notifs) > limit {
		notifs = notifs[:limit]
	}
	return notifs, nil
}

func (repo *notificationRepository) CountUnreadNotifications(_ context.Context, userID string) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var cnt int
	for _, n := range repo.query(userID) {
		if !n.IsRead {
			cnt++
		}
	}
	return cnt, nil
}

func (repo *notificationRepository) QueryNotifications(_ context.Context, userID string, limit int) ([]notification.Notification, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	notifs := repo.query(userID)
	sort.Slice(notifs, func(i, j int) bool { return notifs[i].CreatedAt.After(notifs[j].CreatedAt) })
	if limit > 0 && len(notifs) > limit {
		notifs = notifs[:limit]
	}
	return notifs, nil
}

func (repo *notificationRepository) MarkNotificationsRead(_ context.Context, userID string, ids ...string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	if len(ids) == 0 {
		for _, n := range repo.db.table {
			if n.UserID == userID && !n.IsRead {
				n.IsRead = true
				cnt++
			}
		}
		return cnt, nil
	}

	for _, id := range ids {
		if n, ok := repo.db.table[id]; ok && n.UserID == userID && !n.IsRead {
			n.IsRead = true
			cnt++
		}
	}
	return cnt, nil
}
