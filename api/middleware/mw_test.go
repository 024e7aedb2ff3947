package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/crash-ph/admin-console/internal/session"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessions(t *testing.T, role string) (*Sessions, *session.Session) {
	t.Helper()
	store := session.NewMemoryStore()
	s := session.New(time.Now().Add(time.Hour))
	s.UserID = "admin-1"
	s.Role = role
	require.NoError(t, store.Create(context.Background(), s))
	return &Sessions{Store: store, CookieName: "crash_console_session", LoginPath: "/login"}, s
}

func TestWithLogger(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEqual(t, zerolog.Disabled, zerolog.Ctx(r.Context()).GetLevel())
		assert.Equal(t, "req-1", r.Context().Value(RequestIDKey))
	})

	req := httptest.NewRequest(http.MethodGet, "/offices", nil)
	req.Header.Set(requestIDHeader, "req-1")
	w := httptest.NewRecorder()
	WithLogger(next).ServeHTTP(w, req)

	assert.Equal(t, "req-1", w.Header().Get(requestIDHeader))

	// A request id is generated when none is sent
	w = httptest.NewRecorder()
	WithLogger(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get(requestIDHeader), 36)
}

func TestRequireSession(t *testing.T) {
	sessions, s := newSessions(t, "admin")

	var seen *session.Session
	handler := sessions.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/offices", nil)
	req.AddCookie(&http.Cookie{Name: "crash_console_session", Value: s.ID})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "admin-1", seen.UserID)
}

func TestRequireSession_Missing(t *testing.T) {
	sessions, _ := newSessions(t, "admin")
	handler := sessions.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a session")
	}))

	// Page loads are redirected
	req := httptest.NewRequest(http.MethodGet, "/offices", nil)
	req.AddCookie(&http.Cookie{Name: "crash_console_session", Value: "unknown"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	// Scripts get a 401
	req = httptest.NewRequest(http.MethodGet, "/users/search?q=juan", nil)
	req.Header.Set("Accept", "application/json")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"session expired","redirect":"/login"}`, w.Body.String())
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	handler := RequireRole("admin")(ok)

	tests := []struct {
		name string
		sess *session.Session
		want int
	}{
		{"admin", &session.Session{Role: "admin"}, http.StatusOK},
		{"police", &session.Session{Role: "police"}, http.StatusForbidden},
		{"no session", nil, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/offices", nil)
			if tt.sess != nil {
				req = req.WithContext(WithSession(req.Context(), tt.sess))
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestWantsJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/map/live", nil)
	req.Header.Set("Upgrade", "websocket")
	assert.True(t, WantsJSON(req))

	req = httptest.NewRequest(http.MethodGet, "/map", nil)
	req.Header.Set("Accept", "text/html")
	assert.False(t, WantsJSON(req))
}
