package logsvc

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/pkg/errors"

	"github.com/darasa-app/darasa/core"
	"github.com/darasa-app/darasa/core/user"
)

func TestRollbarLoggerMirrorsToStd(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{})
	logger.Enable(false) // no token in tests; keep the client quiet

	usr := user.User{ID: "u1", Username: "amani", Email: "amani@test.cd", Roles: user.TeacherRoles}
	logger.Error("request failed", errors.New("kaput"), usr)

	out := buf.String()
	for _, want := range []string{"request failed", "kaput", "amani (u1)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestRollbarLoggerWithoutUser(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{})
	logger.Enable(false)

	logger.Info("booted")

	if out := buf.String(); strings.Contains(out, "user:") {
		t.Errorf("output %q reports a user on a userless entry", out)
	}
}
