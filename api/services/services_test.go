package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crash-ph/admin-console/api/backend"
	"github.com/crash-ph/admin-console/api/middleware"
	"github.com/crash-ph/admin-console/internal/appconfig"
	"github.com/crash-ph/admin-console/internal/events"
	"github.com/crash-ph/admin-console/internal/session"
	"github.com/stretchr/testify/require"
)

const testOfficeID = "6f1c2f0e-7a53-4d1b-9f0c-2d3c4b5a6e7f"

// recordingNotifier keeps published audit events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []events.AuditEvent
}

func (n *recordingNotifier) Notify(_ context.Context, e events.AuditEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
	return nil
}

func (n *recordingNotifier) Close() {}

func (n *recordingNotifier) published() []events.AuditEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]events.AuditEvent(nil), n.events...)
}

type testEnv struct {
	svc      *Service
	store    *session.MemoryStore
	notifier *recordingNotifier
	backend  *httptest.Server
}

// newTestEnv wires a Service against a fake backend serving handler.
func newTestEnv(t *testing.T, handler http.Handler) *testEnv {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &appconfig.Config{
		BasePath: "/",
		Session: appconfig.SessionConfig{
			CookieName: "crash_console_session",
			TTL:        time.Hour,
		},
		Map: appconfig.MapConfig{
			TileURL:          "https://tiles.example/{z}/{x}/{y}.png",
			DefaultLatitude:  14.5995,
			DefaultLongitude: 120.9842,
			DefaultZoom:      12,
		},
		Console: appconfig.ConsoleConfig{Timezone: "Asia/Manila"},
	}

	pages, err := NewRenderer(cfg.BasePath)
	require.NoError(t, err)

	store := session.NewMemoryStore()
	notifier := &recordingNotifier{}

	return &testEnv{
		svc: &Service{
			Config:   cfg,
			Backend:  backend.NewClient(srv.URL, 5*time.Second),
			Sessions: &middleware.Sessions{Store: store, CookieName: cfg.Session.CookieName, LoginPath: "/login"},
			Events:   notifier,
			Pages:    pages,
		},
		store:    store,
		notifier: notifier,
		backend:  srv,
	}
}

// signIn stores a session for admin-1 holding access-1 and refresh-1.
func (e *testEnv) signIn(t *testing.T) *session.Session {
	t.Helper()
	s := session.New(time.Now().Add(time.Hour))
	s.UserID = "admin-1"
	s.Username = "desk"
	s.Email = "desk@crash.ph"
	s.Role = ConsoleRole
	s.AccessToken = "access-1"
	s.RefreshToken = "refresh-1"
	require.NoError(t, e.store.Create(context.Background(), s))
	return s
}

func formRequest(method, target string, form url.Values, sess *session.Session) *http.Request {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	r := httptest.NewRequest(method, target, body)
	if form != nil {
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if sess != nil {
		r = r.WithContext(middleware.WithSession(r.Context(), sess))
	}
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestJoinPath(t *testing.T) {
	cases := []struct {
		base, path, want string
	}{
		{"/", "/offices", "/offices"},
		{"", "/login", "/login"},
		{"/console", "/offices", "/console/offices"},
		{"/console/", "/static/app.css", "/console/static/app.css"},
		{"/console", "/", "/console/"},
	}
	for _, c := range cases {
		if got := JoinPath(c.base, c.path); got != c.want {
			t.Errorf("JoinPath(%q, %q) = %q, want %q", c.base, c.path, got, c.want)
		}
	}
}
