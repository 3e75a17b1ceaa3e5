package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/darasa-app/darasa/core/user"
	"github.com/darasa-app/darasa/tests"
)

func Test_userApi_login(t *testing.T) {
	db.Reset()
	usr := testutil.CreateUser(t, usrRepo, "Jane Awe", "jane", "jane@test.cd", "LpsX9-u+", user.StudentRoles, true)
	frozen := testutil.CreateUser(t, usrRepo, "Frozen", "frozen", "frozen@test.cd", "LpsX9-u+", user.StudentRoles, false)

	tests := []httpTest{
		{
			name:     "unknown user",
			body:     marchallObj(t, LoginRequest{Username: "ghost", Password: "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "wrong password",
			body:     marchallObj(t, LoginRequest{Username: usr.Username, Password: "nope"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "deactivated account",
			body:     marchallObj(t, LoginRequest{Username: frozen.Username, Password: "LpsX9-u+"}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "login with username",
			body:     marchallObj(t, LoginRequest{Username: usr.Username, Password: "LpsX9-u+"}),
			wantCode: http.StatusOK,
		},
		{
			name:     "login with email",
			body:     marchallObj(t, LoginRequest{Username: usr.Email, Password: "LpsX9-u+"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
				return
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %v; wantCode %v", rec.Code, tt.wantCode)
			}
			var resp LoginResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshaling LoginResponse: %v", err)
			}
			if resp.Token == "" {
				t.Error("empty token")
			}
			claims, err := ParseToken(resp.Token)
			if err != nil {
				t.Fatalf("ParseToken(): %v", err)
			}
			if claims.Subject != usr.ID {
				t.Errorf("claims.Subject = %s, want %s", claims.Subject, usr.ID)
			}
			if !claims.IsStudent {
				t.Error("claims.IsStudent = false, want true")
			}
		})
	}
}

func Test_userApi_refreshToken(t *testing.T) {
	db.Reset()
	usr := testutil.CreateUser(t, usrRepo, "Jo", "jo", "jo@test.cd", "LpsX9-u+", user.TeacherRoles, true)
	token := getToken(t, usr)

	t.Run("no token", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/token-refresh")
		app.ServeHTTP(rec, req)
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("refresh ok", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
		}
		var resp LoginResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshaling LoginResponse: %v", err)
		}
		claims, err := ParseToken(resp.Token)
		if err != nil {
			t.Fatalf("ParseToken(): %v", err)
		}
		if claims.Subject != usr.ID {
			t.Errorf("claims.Subject = %s, want %s", claims.Subject, usr.ID)
		}
	})
}

func Test_userApi_queryGuards(t *testing.T) {
	db.Reset()
	student := testutil.CreateUser(t, usrRepo, "Stu", "stu", "stu@test.cd", "LpsX9-u+", user.StudentRoles, true)
	admin := testutil.CreateUser(t, usrRepo, "Boss", "boss", "boss@test.cd", "LpsX9-u+", user.AdminRoles, true)

	tests := []httpTest{
		{
			name:     "anonymous",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "student forbidden",
			token:    getToken(t, student),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name:     "admin allowed",
			token:    getToken(t, admin),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, []user.User{student, admin}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/users", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_retrieve(t *testing.T) {
	db.Reset()
	student := testutil.CreateUser(t, usrRepo, "Stu", "stu", "stu@test.cd", "LpsX9-u+", user.StudentRoles, true)
	other := testutil.CreateUser(t, usrRepo, "Oth", "oth", "oth@test.cd", "LpsX9-u+", user.StudentRoles, true)
	admin := testutil.CreateUser(t, usrRepo, "Boss", "boss", "boss@test.cd", "LpsX9-u+", user.AdminRoles, true)

	tests := []httpTest{
		{
			name:     "own detail",
			path:     "/v1/users/" + student.ID,
			token:    getToken(t, student),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, student),
		},
		{
			name:     "someone else's detail is hidden",
			path:     "/v1/users/" + other.ID,
			token:    getToken(t, student),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name:     "admin sees anyone",
			path:     "/v1/users/" + other.ID,
			token:    getToken(t, admin),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, other),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
