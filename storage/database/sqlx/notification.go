package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasa-app/darasa/core/notification"
)

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(ctx context.Context, notif notification.Notification) (notification.Notification, error) {
	const q = `
		INSERT INTO notification (id, user_id, type, title, message, is_urgent, is_read, related_id, related_type, class_code, created_at)
		VALUES (:id, :user_id, :type, :title, :message, :is_urgent, :is_read, :related_id, :related_type, :class_code, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, notif); err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return notif, nil
}

func (repo *notificationRepository) FindUnreadNotifications(ctx context.Context, userID string, since time.Time, limit int) ([]notification.Notification, error) {
	// strict `>` on created_at: rows at exactly the watermark were already
	// delivered (same-microsecond inserts may duplicate; documented)
	const q = `
		SELECT * FROM notification
		WHERE user_id = $1 AND NOT is_read AND ($2::timestamptz IS NULL OR created_at > $2)
		ORDER BY created_at ASC
		LIMIT $3`

	var sinceArg interface{}
	if !since.IsZero() {
		sinceArg = since.UTC()
	}

	notifs := make([]notification.Notification, 0, limit)
	if err := repo.db.SelectContext(ctx, &notifs, q, userID, sinceArg, limit); err != nil {
		return nil, errors.Wrap(err, "querying unread notifications")
	}
	return notifs, nil
}

func (repo *notificationRepository) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	const q = `SELECT COUNT(*) FROM notification WHERE user_id = $1 AND NOT is_read`

	var cnt int
	if err := repo.db.GetContext(ctx, &cnt, q, userID); err != nil {
		return 0, errors.Wrap(err, "counting unread notifications")
	}
	return cnt, nil
}

func (repo *notificationRepository) QueryNotifications(ctx context.Context, userID string, limit int) ([]notification.Notification, error) {
	const q = `
		SELECT * FROM notification
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	notifs := make([]notification.Notification, 0, limit)
	if err := repo.db.SelectContext(ctx, &notifs, q, userID, limit); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	return notifs, nil
}

func (repo *notificationRepository) MarkNotificationsRead(ctx context.Context, userID string, ids ...string) (int, error) {
	var res sql.Result
	var err error

	if len(ids) == 0 {
		const q = `UPDATE notification SET is_read = TRUE WHERE user_id = $1 AND NOT is_read`
		res, err = repo.db.ExecContext(ctx, q, userID)
	} else {
		var q string
		var args []interface{}
		q, args, err = sqlx.In(`UPDATE notification SET is_read = TRUE WHERE user_id = ? AND id IN (?)`, userID, ids)
		if err != nil {
			return 0, errors.Wrap(err, "building mark-read query")
		}
		res, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	}
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}

	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting marked notifications")
	}
	return int(cnt), nil
}
