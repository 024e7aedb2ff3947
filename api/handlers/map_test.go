package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/crash-ph/admin-console/api/backend"
	"github.com/crash-ph/admin-console/api/middleware"
	"github.com/crash-ph/admin-console/api/services"
	"github.com/crash-ph/admin-console/internal/appconfig"
	"github.com/crash-ph/admin-console/internal/events"
	"github.com/crash-ph/admin-console/internal/mapview"
	"github.com/crash-ph/admin-console/internal/metrics"
	"github.com/crash-ph/admin-console/internal/session"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type liveEnv struct {
	url    string
	origin string
	store  *session.MemoryStore
	sess   *session.Session
}

func newLiveEnv(t *testing.T, api http.Handler) *liveEnv {
	t.Helper()

	backendSrv := httptest.NewServer(api)
	t.Cleanup(backendSrv.Close)

	cfg := &appconfig.Config{
		BasePath: "/",
		Session:  appconfig.SessionConfig{CookieName: "sid", TTL: time.Hour},
		Map: appconfig.MapConfig{
			PollInterval:       time.Hour,
			CheckpointInterval: time.Hour,
			FocusDistanceKm:    5,
		},
	}

	store := session.NewMemoryStore()
	sessions := &middleware.Sessions{Store: store, CookieName: "sid", LoginPath: "/login"}
	svc := &services.Service{
		Config:   cfg,
		Backend:  backend.NewClient(backendSrv.URL, 5*time.Second),
		Sessions: sessions,
		Events:   events.NoopNotifier{},
	}

	console := httptest.NewServer(middleware.WithLogger(sessions.RequireSession(LiveMap(svc))))
	t.Cleanup(console.Close)

	s := session.New(time.Now().Add(time.Hour))
	s.UserID = "admin-1"
	s.Role = services.ConsoleRole
	s.AccessToken = "access-1"
	s.RefreshToken = "refresh-1"
	require.NoError(t, store.Create(context.Background(), s))

	return &liveEnv{
		url:    "ws" + strings.TrimPrefix(console.URL, "http"),
		origin: console.URL,
		store:  store,
		sess:   s,
	}
}

func (e *liveEnv) header(cookie bool) http.Header {
	h := http.Header{}
	h.Set("Origin", e.origin)
	if cookie {
		h.Set("Cookie", "sid="+e.sess.ID)
	}
	return h
}

func (e *liveEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(e.url, e.header(true))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) LiveMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg LiveMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// opsFor lists "op id" pairs for quick comparison.
func opsFor(commands []mapview.Command) []string {
	out := make([]string, 0, len(commands))
	for _, c := range commands {
		out = append(out, strings.TrimSpace(c.Op+" "+c.ID))
	}
	return out
}

func mapBackend() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/map/data/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"police_offices": []map[string]any{
				{"office_id": "o1", "office_name": "QCPD Station 10", "latitude": "14.6349", "longitude": "121.0340"},
			},
			"active_reports": []map[string]any{
				{"report_id": "r1", "category": "Robbery", "status": "Pending", "latitude": 14.6507, "longitude": 121.0495},
				{"report_id": "r2", "category": "Fire", "status": "Resolved", "latitude": 14.60, "longitude": 121.00},
				{"report_id": "r3", "category": "Noise", "status": "Pending", "latitude": 0, "longitude": 0},
			},
		})
	})
	mux.HandleFunc("/checkpoints/active/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"checkpoint_id": "c1", "checkpoint_name": "EDSA Kamuning", "latitude": 14.6300, "longitude": 121.0430},
		})
	})
	return mux
}

// initialOps reads the first batch from each polling loop.
func initialOps(t *testing.T, conn *websocket.Conn) []string {
	var ops []string
	for i := 0; i < 2; i++ {
		msg := readMessage(t, conn)
		require.Equal(t, MessageCommands, msg.Type)
		ops = append(ops, opsFor(msg.Commands)...)
	}
	return ops
}

func TestLiveMap_SendsMarkers(t *testing.T) {
	skipped := metrics.MarkersSkipped.WithLabelValues(mapview.LayerReports)
	before := testutil.ToFloat64(skipped)

	env := newLiveEnv(t, mapBackend())
	conn := env.dial(t)

	ops := initialOps(t, conn)

	assert.Contains(t, ops, "add office:o1")
	assert.Contains(t, ops, "add report:r1")
	assert.Contains(t, ops, "add checkpoint:c1")
	assert.Contains(t, ops, "fitBounds")
	assert.NotContains(t, ops, "add report:r2")
	assert.NotContains(t, ops, "add report:r3")

	// r3 sits at (0,0) and is counted once
	assert.Equal(t, before+1, testutil.ToFloat64(skipped))
}

func TestLiveMap_Select(t *testing.T) {
	env := newLiveEnv(t, mapBackend())
	conn := env.dial(t)
	initialOps(t, conn)

	require.NoError(t, conn.WriteJSON(LiveMessage{Type: MessageView, Lat: 14.6349, Lng: 121.0340, Zoom: 13}))
	require.NoError(t, conn.WriteJSON(LiveMessage{Type: MessageSelect, ID: "office:o1"}))

	msg := readMessage(t, conn)
	require.Equal(t, MessageCommands, msg.Type)
	assert.Equal(t, []string{"icon office:o1", "openPopup office:o1"}, opsFor(msg.Commands))
	assert.Equal(t, mapview.SelectedIconSize, msg.Commands[0].Icon.Size)

	require.NoError(t, conn.WriteJSON(LiveMessage{Type: MessageSelect, ID: "report:r1"}))

	msg = readMessage(t, conn)
	require.Equal(t, MessageCommands, msg.Type)
	assert.Equal(t, []string{
		"closePopup office:o1",
		"icon office:o1",
		"icon report:r1",
		"openPopup report:r1",
	}, opsFor(msg.Commands))

	require.NoError(t, conn.WriteJSON(LiveMessage{Type: MessageSelect, ID: "report:gone"}))

	msg = readMessage(t, conn)
	assert.Equal(t, MessageError, msg.Type)
	assert.NotEmpty(t, msg.Message)
}

func TestLiveMap_SessionExpired(t *testing.T) {
	env := newLiveEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Token is invalid or expired"}`))
	}))
	conn := env.dial(t)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var err error
	for err == nil {
		_, _, err = conn.ReadMessage()
	}

	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
	assert.Equal(t, 0, env.store.Len())
}

func TestLiveMap_RequiresSession(t *testing.T) {
	env := newLiveEnv(t, mapBackend())

	_, resp, err := websocket.DefaultDialer.Dial(env.url, env.header(false))
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLiveMap_SessionCheck(t *testing.T) {
	env := newLiveEnv(t, mapBackend())

	check := func() *http.Response {
		req, err := http.NewRequest(http.MethodGet, env.origin, nil)
		require.NoError(t, err)
		req.Header = env.header(true)
		req.Header.Set("Accept", "application/json")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	assert.Equal(t, http.StatusNoContent, check().StatusCode)

	// The session disappears without the socket ever seeing a close frame
	require.NoError(t, env.store.Delete(context.Background(), env.sess.ID))

	resp := check()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "/login", body["redirect"])
}

func TestLiveMap_ReconnectAfterInteractionKeepsCamera(t *testing.T) {
	env := newLiveEnv(t, mapBackend())

	conn, _, err := websocket.DefaultDialer.Dial(env.url+"?interacted=1", env.header(true))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ops := initialOps(t, conn)

	assert.Contains(t, ops, "add office:o1")
	assert.NotContains(t, ops, "fitBounds")
}

func TestLiveMap_RejectsOtherOrigins(t *testing.T) {
	env := newLiveEnv(t, mapBackend())

	h := env.header(true)
	h.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial(env.url, h)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSameOrigin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://console.crash.ph/map/live", nil)

	assert.False(t, sameOrigin(r))

	r.Header.Set("Origin", "https://console.crash.ph")
	assert.True(t, sameOrigin(r))

	r.Header.Set("Origin", "https://crash.ph")
	assert.False(t, sameOrigin(r))
}
