package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	rollbarerrs "github.com/rollbar/rollbar-go/errors"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/user"
)

// RollbarLogger reports to rollbar and mirrors every item to a std logger so
// local runs stay readable without a token.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(rollbarerrs.StackTracer)
	return &RollbarLogger{std: std}
}

func (l *RollbarLogger) Enable(enabled bool) { rollbar.SetEnabled(enabled) }

// report forwards msg and args to rollbar via send. When a user.User (or
// pointer to one) is among the args it becomes the reported person, tagged
// with their highest portal role; it is not forwarded as a payload item.
func (l *RollbarLogger) report(send func(...interface{}), msg string, args []interface{}) {
	items := make([]interface{}, 0, len(args)+1)
	items = append(items, msg)

	var person *user.User
	for _, arg := range args {
		switch v := arg.(type) {
		case user.User:
			if person == nil {
				usr := v
				person = &usr
				continue
			}
		case *user.User:
			if person == nil && v != nil {
				person = v
				continue
			}
		}
		items = append(items, arg)
	}

	if person != nil {
		rollbar.SetPerson(person.ID, person.Username, person.Email)
		rollbar.SetCustom(map[string]interface{}{"role": user.MaxRole(person.Roles)})
	} else {
		rollbar.ClearPerson()
		rollbar.SetCustom(nil)
	}

	send(items...)

	l.std.Println(msg)
	for _, item := range items[1:] {
		l.std.Printf("%+v\n", item)
	}
	if person != nil {
		l.std.Printf("user: %s (%s)\n", person.Username, person.ID)
	}
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.report(rollbar.Debug, msg, args) }

func (l *RollbarLogger) Info(msg string, args ...interface{}) { l.report(rollbar.Info, msg, args) }

func (l *RollbarLogger) Warn(msg string, args ...interface{}) { l.report(rollbar.Warning, msg, args) }

func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.report(rollbar.Error, msg, args) }

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.report(rollbar.Critical, msg, args)
	l.std.Fatal(msg)
}
