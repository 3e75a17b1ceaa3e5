package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-app/darasa/core/notification"
)

// sseEmitter writes server-sent event frames and flushes each one on the
// spot; proxies and the client see events as they happen, not when a buffer
// fills up.
type sseEmitter struct {
	res *echo.Response
}

var _ notification.Emitter = (*sseEmitter)(nil)

func (em *sseEmitter) Emit(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return errors.Wrapf(err, "marshaling %q payload", event)
	}
	if _, err := fmt.Fprintf(em.res, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return errors.Wrapf(err, "writing %q frame", event)
	}
	em.res.Flush()
	return nil
}

// stream upgrades the request to a server-sent event stream and hands the
// connection over to the notification poll loop. The loop owns the goroutine
// until the client goes away or a session cap is reached.
func (api *notificationApi) stream(ctx echo.Context) error {
	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.Header().Set("X-Accel-Buffering", "no") // no buffering in nginx
	res.WriteHeader(http.StatusOK)

	em := &sseEmitter{res: res}

	// auth errors surface in-band; headers are already out
	claims, err := ParseToken(streamToken(ctx))
	if err != nil {
		_ = em.Emit(notification.EventError, notification.ErrorPayload{
			Message:   "authentication failed",
			Code:      http.StatusUnauthorized,
			Timestamp: streamTimestamp(),
		})
		return nil
	}

	role := claims.Role()
	// explicit userId/role query params must agree with the token
	if uid := ctx.QueryParam("userId"); uid != "" && uid != claims.Subject {
		_ = em.Emit(notification.EventError, notification.ErrorPayload{
			Message:   "token does not match requested user",
			Code:      http.StatusUnauthorized,
			Timestamp: streamTimestamp(),
		})
		return nil
	}
	if r := ctx.QueryParam("role"); r != "" && r != role {
		_ = em.Emit(notification.EventError, notification.ErrorPayload{
			Message:   "token does not match requested role",
			Code:      http.StatusUnauthorized,
			Timestamp: streamTimestamp(),
		})
		return nil
	}

	err = em.Emit(notification.EventConnected, notification.ConnectedPayload{
		UserID:    claims.Subject,
		Role:      role,
		Message:   "Connected to notification stream",
		Timestamp: streamTimestamp(),
	})
	if err != nil {
		return nil // client already gone
	}

	sess := notification.NewSession(
		notification.Identity{UserID: claims.Subject, Role: role},
		api.conf.Stream,
	)
	if err := api.svc.Stream(ctx.Request().Context(), sess, em); err != nil {
		// an emit failed mid-stream; nothing left to tell the client
		ctx.Logger().Debugf("notification stream ended: %v", err)
	}
	return nil
}

// streamToken extracts the JWT from the path param, the Authorization header
// or the `token` query param, in that order.
func streamToken(ctx echo.Context) string {
	if token := ctx.Param("token"); token != "" {
		return token
	}
	if auth := ctx.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ctx.QueryParam("token")
}

func streamTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
