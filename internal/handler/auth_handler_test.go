package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kpressOrg/user-service/internal/query"
	"github.com/kpressOrg/user-service/internal/repository"
	"github.com/kpressOrg/user-service/shared/cqrs"
	"github.com/kpressOrg/user-service/shared/models"
	"github.com/kpressOrg/user-service/shared/token"
)

// ---- mock implementations ----

type mockUserCommander struct {
	registerFn func(cqrs.RegisterUserCommand) (*models.User, error)
	updateFn   func(cqrs.UpdateUserCommand) (*models.UserView, error)
	deleteFn   func(cqrs.DeleteUserCommand) error
}

func (m *mockUserCommander) RegisterUser(_ context.Context, cmd cqrs.RegisterUserCommand) (*models.User, error) {
	if m.registerFn != nil {
		return m.registerFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockUserCommander) UpdateUser(_ context.Context, cmd cqrs.UpdateUserCommand) (*models.UserView, error) {
	if m.updateFn != nil {
		return m.updateFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockUserCommander) DeleteUser(_ context.Context, cmd cqrs.DeleteUserCommand) error {
	if m.deleteFn != nil {
		return m.deleteFn(cmd)
	}
	return fmt.Errorf("not configured")
}

type mockAuthQuerier struct {
	loginFn  func(cqrs.LoginCommand) (*cqrs.LoginResult, error)
	verifyFn func(cqrs.VerifyTokenCommand) (*cqrs.TokenIdentity, error)
}

func (m *mockAuthQuerier) Login(_ context.Context, cmd cqrs.LoginCommand) (*cqrs.LoginResult, error) {
	if m.loginFn != nil {
		return m.loginFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}
func (m *mockAuthQuerier) VerifyToken(_ context.Context, cmd cqrs.VerifyTokenCommand) (*cqrs.TokenIdentity, error) {
	if m.verifyFn != nil {
		return m.verifyFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}

type countingRecorder struct {
	created, updated, deleted, read int
}

func (r *countingRecorder) UserCreated() { r.created++ }
func (r *countingRecorder) UserUpdated() { r.updated++ }
func (r *countingRecorder) UserDeleted() { r.deleted++ }
func (r *countingRecorder) UsersRead()   { r.read++ }

// ---- helpers ----

func newAuthTestRouter(cmds UserCommander, qrys AuthQuerier, rec Recorder) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAuthHandler(cmds, qrys, rec)
	a := r.Group("/auth")
	a.POST("/register", h.Register)
	a.POST("/login", h.Login)
	a.POST("/verify", h.VerifyToken)
	return r
}

func doRequest(router http.Handler, method, url string, body interface{}) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, url, nil)
	if body != nil {
		var payload string
		if s, ok := body.(string); ok {
			payload = s
		} else {
			b, _ := json.Marshal(body)
			payload = string(b)
		}
		req, _ = http.NewRequest(method, url, strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func messageOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %s", w.Body.String())
	}
	return body.Message
}

// ---- tests ----

func TestRegister(t *testing.T) {
	tests := []struct {
		name            string
		body            interface{}
		registerFn      func(cqrs.RegisterUserCommand) (*models.User, error)
		expectedStatus  int
		expectedMessage string
	}{
		{
			name: "success - user registered",
			body: map[string]string{"username": "alice", "password": "secret1"},
			registerFn: func(cmd cqrs.RegisterUserCommand) (*models.User, error) {
				return &models.User{ID: "u-1", Username: cmd.Username}, nil
			},
			expectedStatus:  http.StatusCreated,
			expectedMessage: "User registered successfully",
		},
		{
			name: "bad request - duplicate username",
			body: map[string]string{"username": "alice", "password": "secret1"},
			registerFn: func(cqrs.RegisterUserCommand) (*models.User, error) {
				return nil, repository.ErrUsernameTaken
			},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Username already exists",
		},
		{
			name:            "bad request - missing password",
			body:            map[string]string{"username": "alice"},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Username and password are required",
		},
		{
			name:            "bad request - empty username",
			body:            map[string]string{"username": "", "password": "secret1"},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Username and password are required",
		},
		{
			name:            "bad request - malformed json",
			body:            `{"username":`,
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid request body",
		},
		{
			name: "internal error - storage failure is not leaked",
			body: map[string]string{"username": "alice", "password": "secret1"},
			registerFn: func(cqrs.RegisterUserCommand) (*models.User, error) {
				return nil, fmt.Errorf("pq: connection reset by peer")
			},
			expectedStatus:  http.StatusInternalServerError,
			expectedMessage: "Internal server error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &countingRecorder{}
			router := newAuthTestRouter(&mockUserCommander{registerFn: tt.registerFn}, &mockAuthQuerier{}, rec)
			w := doRequest(router, http.MethodPost, "/auth/register", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if got := messageOf(t, w); got != tt.expectedMessage {
				t.Errorf("[%s] expected message %q got %q", tt.name, tt.expectedMessage, got)
			}
			if strings.Contains(w.Body.String(), "pq:") {
				t.Errorf("[%s] driver error leaked: %s", tt.name, w.Body.String())
			}
			wantCreated := 0
			if tt.expectedStatus == http.StatusCreated {
				wantCreated = 1
			}
			if rec.created != wantCreated {
				t.Errorf("[%s] expected %d created count, got %d", tt.name, wantCreated, rec.created)
			}
		})
	}
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		loginFn        func(cqrs.LoginCommand) (*cqrs.LoginResult, error)
		expectedStatus int
	}{
		{
			name: "success - valid credentials return JWT",
			body: map[string]string{"username": "alice", "password": "secret1"},
			loginFn: func(cqrs.LoginCommand) (*cqrs.LoginResult, error) {
				return &cqrs.LoginResult{Token: "mock.jwt.token", UserID: "u-1"}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "unauthorised - invalid credentials",
			body: map[string]string{"username": "alice", "password": "wrongpass"},
			loginFn: func(cqrs.LoginCommand) (*cqrs.LoginResult, error) {
				return nil, query.ErrInvalidCredentials
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "bad request - missing password",
			body:           map[string]string{"username": "alice"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "bad request - missing username",
			body:           map[string]string{"password": "secret1"},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "internal error - store unavailable",
			body: map[string]string{"username": "alice", "password": "secret1"},
			loginFn: func(cqrs.LoginCommand) (*cqrs.LoginResult, error) {
				return nil, fmt.Errorf("find user: connection refused")
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAuthTestRouter(&mockUserCommander{}, &mockAuthQuerier{loginFn: tt.loginFn}, nil)
			w := doRequest(router, http.MethodPost, "/auth/login", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestLogin_ResponseShape(t *testing.T) {
	router := newAuthTestRouter(&mockUserCommander{}, &mockAuthQuerier{loginFn: func(cqrs.LoginCommand) (*cqrs.LoginResult, error) {
		return &cqrs.LoginResult{Token: "mock.jwt.token", UserID: "u-1"}, nil
	}}, nil)

	w := doRequest(router, http.MethodPost, "/auth/login", map[string]string{"username": "alice", "password": "secret1"})
	var resp LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Message != "Login successful" || resp.Token != "mock.jwt.token" || resp.UserID != "u-1" {
		t.Errorf("unexpected login response: %+v", resp)
	}
}

func TestVerifyToken(t *testing.T) {
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name           string
		body           interface{}
		verifyFn       func(cqrs.VerifyTokenCommand) (*cqrs.TokenIdentity, error)
		expectedStatus int
	}{
		{
			name: "success - identity returned",
			body: map[string]string{"token": "valid.jwt.token"},
			verifyFn: func(cqrs.VerifyTokenCommand) (*cqrs.TokenIdentity, error) {
				return &cqrs.TokenIdentity{UserID: "u-1", Username: "alice", ExpiresAt: expires}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "unauthorised - invalid token",
			body: map[string]string{"token": "forged"},
			verifyFn: func(cqrs.VerifyTokenCommand) (*cqrs.TokenIdentity, error) {
				return nil, token.ErrInvalidToken
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "bad request - missing token field",
			body:           map[string]string{},
			expectedStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newAuthTestRouter(&mockUserCommander{}, &mockAuthQuerier{verifyFn: tt.verifyFn}, nil)
			w := doRequest(router, http.MethodPost, "/auth/verify", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if w.Code == http.StatusOK {
				var resp VerifyTokenResponse
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to parse response: %v", err)
				}
				if !resp.Valid || resp.UserID != "u-1" || !resp.ExpiresAt.Equal(expires) {
					t.Errorf("unexpected verify response: %+v", resp)
				}
			}
		})
	}
}
