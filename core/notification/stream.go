package notification

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/darasa-app/darasa/core"
)

// Stream event names.
const (
	EventConnected    = "connected"
	EventNotification = "notification"
	EventHeartbeat    = "heartbeat"
	EventError        = "error"
	EventClose        = "close"
)

const (
	defaultPollInterval      = 3 * time.Second
	defaultHeartbeatInterval = 30 * time.Second
	defaultPageSize          = 10
)

type (
	// Identity is the authenticated owner of a stream session, resolved once
	// at connection time.
	Identity struct {
		UserID string
		Role   string
	}

	// Emitter delivers a named event to the connected client. Implementations
	// must flush each event immediately; the engine never batches.
	Emitter interface {
		Emit(event string, data interface{}) error
	}

	// Session is the per-connection stream state. It is owned exclusively by
	// one handler invocation and must never be shared across connections;
	// two tabs of the same user each get their own Session and watermark.
	Session struct {
		Identity Identity
		Policy   core.StreamConfig

		watermark time.Time
		delivered int
		startedAt time.Time
	}

	ConnectedPayload struct {
		UserID    string `json:"user_id"`
		Role      string `json:"role"`
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
	}

	NotificationData struct {
		RelatedID   string `json:"related_id,omitempty"`
		RelatedType string `json:"related_type,omitempty"`
		ClassCode   string `json:"class_code,omitempty"`
	}

	NotificationPayload struct {
		ID        string           `json:"id"`
		Type      string           `json:"type"`
		Title     string           `json:"title"`
		Message   string           `json:"message"`
		IsUrgent  bool             `json:"is_urgent"`
		CreatedAt string           `json:"created_at"`
		Data      NotificationData `json:"data"`
	}

	HeartbeatPayload struct {
		Timestamp string `json:"timestamp"`
	}

	ErrorPayload struct {
		Message   string `json:"message"`
		Code      int    `json:"code"`
		Timestamp string `json:"timestamp"`
	}

	ClosePayload struct {
		Message   string `json:"message"`
		Timestamp string `json:"timestamp"`
	}
)

func NewSession(identity Identity, policy core.StreamConfig) *Session {
	return &Session{
		Identity: identity,
		Policy:   withPolicyDefaults(policy),
	}
}

// Watermark reports the CreatedAt boundary of the most recent delivery.
func (s *Session) Watermark() time.Time { return s.watermark }

// Delivered reports how many notification events went out on this session.
func (s *Session) Delivered() int { return s.delivered }

func withPolicyDefaults(p core.StreamConfig) core.StreamConfig {
	if p.PollInterval <= 0 {
		p.PollInterval = defaultPollInterval
	}
	if p.HeartbeatInterval <= 0 {
		p.HeartbeatInterval = defaultHeartbeatInterval
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultPageSize
	}
	return p
}

// StreamPayload shapes a Notification for the wire.
func (n Notification) StreamPayload() NotificationPayload {
	return NotificationPayload{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		IsUrgent:  n.IsUrgent,
		CreatedAt: n.CreatedAt.UTC().Format(time.RFC3339Nano),
		Data: NotificationData{
			RelatedID:   n.RelatedID.String,
			RelatedType: n.RelatedType.String,
			ClassCode:   n.ClassCode.String,
		},
	}
}

// Stream runs the poll loop for one connection until the client disconnects
// (ctx cancellation), an emit fails, or a configured cap is reached. It owns
// the calling goroutine for the connection's entire lifetime.
//
// Transient store failures are reported as `error` events and the loop keeps
// polling; they never terminate the stream.
func (svc *Service) Stream(ctx context.Context, sess *Session, em Emitter) error {
	now := svc.now()
	sess.startedAt = now
	if !sess.Policy.DeliverBacklog {
		// future-only mode skips everything already pending; with backlog on
		// the watermark stays zero so the first polls page through all unread
		// rows, oldest first, before catching up to live inserts
		sess.watermark = now
	}

	lastBeat := now
	timer := time.NewTimer(sess.Policy.PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := svc.pollOnce(ctx, sess, em); err != nil {
			return err
		}

		if sess.Policy.MaxEvents > 0 && sess.delivered >= sess.Policy.MaxEvents {
			_ = em.Emit(EventClose, ClosePayload{Message: "message limit reached", Timestamp: svc.timestamp()})
			return nil
		}

		now = svc.now()
		if now.Sub(lastBeat) >= sess.Policy.HeartbeatInterval {
			if err := em.Emit(EventHeartbeat, HeartbeatPayload{Timestamp: svc.timestamp()}); err != nil {
				return errors.Wrap(err, "emitting heartbeat")
			}
			lastBeat = now
		}

		if sess.Policy.MaxConnDuration > 0 && now.Sub(sess.startedAt) >= sess.Policy.MaxConnDuration {
			_ = em.Emit(EventClose, ClosePayload{Message: "connection lifetime reached", Timestamp: svc.timestamp()})
			return nil
		}

		// cancellable sleep; a disconnect is observed here at worst one poll
		// interval after the client goes away
		timer.Reset(sess.Policy.PollInterval)
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
	}
}

// pollOnce queries the store once and delivers what it finds. A non-nil
// return means the client connection itself failed.
func (svc *Service) pollOnce(ctx context.Context, sess *Session, em Emitter) error {
	notifs, err := svc.repo.FindUnreadNotifications(ctx, sess.Identity.UserID, sess.watermark, sess.Policy.PageSize)
	if err != nil {
		// recoverable: report and poll again next tick; the watermark is
		// untouched so nothing pending is skipped
		emitErr := em.Emit(EventError, ErrorPayload{
			Message:   "fetching notifications failed",
			Code:      500,
			Timestamp: svc.timestamp(),
		})
		return errors.Wrap(emitErr, "emitting store error")
	}

	var maxSeen time.Time
	for _, notif := range notifs {
		if err := em.Emit(EventNotification, notif.StreamPayload()); err != nil {
			return errors.Wrap(err, "emitting notification")
		}
		sess.delivered++
		if notif.CreatedAt.After(maxSeen) {
			maxSeen = notif.CreatedAt
		}
	}

	// the watermark never moves backward; on an empty poll it advances to now
	// so the scan window does not grow unbounded
	if maxSeen.After(sess.watermark) {
		sess.watermark = maxSeen
	} else if len(notifs) == 0 {
		if now := svc.now(); now.After(sess.watermark) {
			sess.watermark = now
		}
	}
	return nil
}

func (svc *Service) timestamp() string {
	return svc.now().Format(time.RFC3339Nano)
}
