package main

import (
	"context"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/notification"
	"github.com/darasa-app/darasa/core/user"
)

// notify sends a notification to a single user, found by username or email.
func (cli *commandLine) notify(uname, typ, title, message string, urgent bool, classCode string) error {
	uname = core.CleanString(uname, true /* lower */)
	usr, err := cli.usrRepo.GetUser(context.Background(), user.GetFilter{UsernameOrEmail: []string{uname, uname}})
	if err != nil {
		return err
	}

	_, err = cli.notifSvc.Create(notification.NewNotification{
		UserID:    usr.ID,
		Type:      typ,
		Title:     title,
		Message:   message,
		IsUrgent:  urgent,
		ClassCode: classCode,
	})
	return err
}
