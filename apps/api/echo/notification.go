package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/notification"
)

// queryLimit caps the history endpoint; the stream handles live delivery.
var queryLimit = 50

type notificationApi struct {
	svc      *notification.Service
	conf     *core.Config
	validate *validator.Validate
}

func registerNotificationAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := notificationApi{
		svc:      deps.NotifSvc,
		conf:     deps.Conf,
		validate: deps.Validate,
	}

	ng := g.Group("/notifications")

	// the stream authenticates on its own; EventSource clients cannot always
	// set an Authorization header
	ng.GET("/stream", api.stream)
	ng.GET("/stream/:token", api.stream)

	ag := ng.Group("", jwt)
	ag.GET("", api.query)
	ag.GET("/unread-count", api.unreadCount)
	ag.POST("/read", api.markRead)
	ag.POST("", api.create, staffMiddleware())
}

// Handlers

func (api *notificationApi) query(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	notifs, err := api.svc.Query(claims.Subject, queryLimit)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if notifs == nil {
		notifs = []notification.Notification{}
	}
	return ctx.JSON(http.StatusOK, notifs)
}

func (api *notificationApi) unreadCount(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	count, err := api.svc.CountUnread(claims.Subject)
	if err != nil {
		return errors.Wrap(err, "counting unread notifications")
	}
	return ctx.JSON(http.StatusOK, UnreadCountResponse{Count: count})
}

func (api *notificationApi) markRead(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data notification.MarkRead
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to MarkRead")
	}

	updated, err := api.svc.MarkRead(claims.Subject, data.IDs...)
	if err != nil {
		return errors.Wrap(err, "marking notifications read")
	}
	return ctx.JSON(http.StatusOK, MarkReadResponse{Updated: updated})
}

func (api *notificationApi) create(ctx echo.Context) error {
	var data notification.NewNotification
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewNotification")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	notif, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating notification")
	}
	return ctx.JSON(http.StatusCreated, notif)
}

type (
	UnreadCountResponse struct {
		Count int `json:"count"`
	}

	MarkReadResponse struct {
		Updated int `json:"updated"`
	}
)
