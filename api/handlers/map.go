package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/crash-ph/admin-console/api/backend"
	"github.com/crash-ph/admin-console/api/middleware"
	"github.com/crash-ph/admin-console/api/services"
	"github.com/crash-ph/admin-console/internal/mapview"
	"github.com/crash-ph/admin-console/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// Live map message types.
const (
	MessageInteraction = "interaction"
	MessageView        = "view"
	MessageSelect      = "select"
	MessageDeselect    = "deselect"
	MessageCommands    = "commands"
	MessageError       = "error"
)

// LiveMessage is exchanged with the map page over the live socket.
type LiveMessage struct {
	Type     string            `json:"type"`
	ID       string            `json:"id,omitempty"`
	Lat      float64           `json:"lat,omitempty"`
	Lng      float64           `json:"lng,omitempty"`
	Zoom     int               `json:"zoom,omitempty"`
	Commands []mapview.Command `json:"commands,omitempty"`
	Message  string            `json:"message,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:   1024,
	WriteBufferSize:  4096,
	HandshakeTimeout: 10 * time.Second,
	CheckOrigin:      sameOrigin,
}

// sameOrigin accepts browser connections from the console's own pages only.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

// LiveMap streams marker commands for the signed-in user's map. A plain GET
// without an upgrade only reports that the session is still live, which the
// page uses before reconnecting. interacted=1 carries an earlier pan or zoom
// over to the new connection.
func LiveMap(svc *services.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		if _, ok := middleware.SessionFromContext(r.Context()); !ok {
			middleware.Unauthenticated(w, r, svc.Path("/login"))
			return
		}

		if !websocket.IsWebSocketUpgrade(r) {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("live map upgrade failed")
			return
		}

		metrics.LiveMapConnections.Inc()
		defer metrics.LiveMapConnections.Dec()

		logger.Info().Msg("live map connected")
		live := newLiveMap(svc, r, conn)
		if r.URL.Query().Get("interacted") == "1" {
			live.reconciler.MarkInteraction()
		}
		live.run()
		logger.Info().Msg("live map disconnected")
	}
}

// liveMap is one connected map page. The reconciler and its command buffer
// belong to this connection alone.
type liveMap struct {
	svc  *services.Service
	api  *backend.SessionClient
	conn *websocket.Conn
	log  *zerolog.Logger

	buffer     *mapview.CommandBuffer
	reconciler *mapview.Reconciler

	// mu keeps each change and the flush of its commands together so
	// batches reach the writer in order.
	mu   sync.Mutex
	send chan LiveMessage

	ctx       context.Context
	cancel    context.CancelFunc
	stopOnce  sync.Once
	closeCode int
	closeText string
}

func newLiveMap(svc *services.Service, r *http.Request, conn *websocket.Conn) *liveMap {
	ctx, cancel := context.WithCancel(r.Context())
	logger := zerolog.Ctx(r.Context())
	buffer := &mapview.CommandBuffer{}

	return &liveMap{
		svc:        svc,
		api:        svc.API(r),
		conn:       conn,
		log:        logger,
		buffer:     buffer,
		reconciler: mapview.NewReconciler(buffer, svc.Config.Map.FocusDistanceKm, logger),
		send:       make(chan LiveMessage, 16),
		ctx:        ctx,
		cancel:     cancel,
		closeCode:  websocket.CloseNormalClosure,
	}
}

func (l *liveMap) run() {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		l.writePump()
	}()
	go func() {
		defer wg.Done()
		l.poll(l.svc.Config.Map.PollInterval, l.syncMapData)
	}()
	go func() {
		defer wg.Done()
		l.poll(l.svc.Config.Map.CheckpointInterval, l.syncCheckpoints)
	}()

	l.readPump()
	l.stop(websocket.CloseNormalClosure, "")
	wg.Wait()
	_ = l.conn.Close()
}

// stop ends the connection. The first caller decides the close frame.
func (l *liveMap) stop(code int, text string) {
	l.stopOnce.Do(func() {
		l.closeCode = code
		l.closeText = text
		l.cancel()
	})
}

func (l *liveMap) readPump() {
	l.conn.SetReadLimit(maxMessageSize)
	if err := l.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		l.log.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	l.conn.SetPongHandler(func(string) error {
		return l.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg LiveMessage
		if err := l.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				l.log.Warn().Err(err).Msg("unexpected live map close")
			}
			return
		}
		l.handle(msg)
	}
}

func (l *liveMap) handle(msg LiveMessage) {
	switch msg.Type {
	case MessageInteraction:
		l.reconciler.MarkInteraction()
	case MessageView:
		l.reconciler.UpdateView(mapview.LatLng{Lat: msg.Lat, Lng: msg.Lng}, msg.Zoom)
	case MessageSelect:
		var err error
		l.apply(func() { err = l.reconciler.Select(msg.ID) })
		if errors.Is(err, mapview.ErrUnknownMarker) {
			l.enqueue(LiveMessage{Type: MessageError, Message: "That marker is no longer on the map."})
		}
	case MessageDeselect:
		l.apply(l.reconciler.Deselect)
	default:
		l.log.Debug().Str("type", msg.Type).Msg("ignoring live map message")
	}
}

func (l *liveMap) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-l.send:
			if err := l.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				l.stop(websocket.CloseInternalServerErr, "")
				return
			}
			if err := l.conn.WriteJSON(msg); err != nil {
				l.log.Warn().Err(err).Msg("failed to write live map message")
				l.stop(websocket.CloseAbnormalClosure, "")
				_ = l.conn.Close()
				return
			}

		case <-ticker.C:
			if err := l.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				l.stop(websocket.CloseAbnormalClosure, "")
				_ = l.conn.Close()
				return
			}

		case <-l.ctx.Done():
			frame := websocket.FormatCloseMessage(l.closeCode, l.closeText)
			_ = l.conn.WriteControl(websocket.CloseMessage, frame, time.Now().Add(writeWait))
			// Unblocks readPump
			_ = l.conn.Close()
			return
		}
	}
}

// poll runs refresh straight away and then every interval until the
// connection ends.
func (l *liveMap) poll(interval time.Duration, refresh func() error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := refresh(); err != nil {
			if backend.IsSessionExpired(err) {
				l.log.Info().Msg("session expired, closing live map")
				l.stop(websocket.ClosePolicyViolation, "session expired")
				return
			}
			if l.ctx.Err() != nil {
				return
			}
			l.log.Warn().Err(err).Msg("live map refresh failed")
			l.enqueue(LiveMessage{Type: MessageError, Message: services.UserMessage(err)})
		}

		select {
		case <-ticker.C:
		case <-l.ctx.Done():
			return
		}
	}
}

func (l *liveMap) syncMapData() error {
	data, err := l.api.MapData(l.ctx)
	if err != nil {
		return err
	}

	l.apply(func() {
		l.syncLayer(mapview.LayerOffices, mapview.OfficeRecords(data.Offices))
		l.syncLayer(mapview.LayerReports, mapview.ReportRecords(data.Reports))
	})
	return nil
}

func (l *liveMap) syncCheckpoints() error {
	checkpoints, err := l.api.ActiveCheckpoints(l.ctx)
	if err != nil {
		return err
	}

	l.apply(func() {
		l.syncLayer(mapview.LayerCheckpoints, mapview.CheckpointRecords(checkpoints))
	})
	return nil
}

func (l *liveMap) syncLayer(layer string, records []mapview.Record) {
	result := l.reconciler.SyncLayer(layer, records)
	l.log.Debug().
		Str("layer", layer).
		Int("added", result.Added).
		Int("moved", result.Moved).
		Int("updated", result.Updated).
		Int("removed", result.Removed).
		Int("skipped", len(result.Skipped)).
		Bool("fitted", result.Fitted).
		Msg("map layer synced")
}

// apply runs fn against the reconciler and sends the commands it produced.
func (l *liveMap) apply(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	fn()
	if commands := l.buffer.Flush(); len(commands) > 0 {
		l.enqueue(LiveMessage{Type: MessageCommands, Commands: commands})
	}
}

func (l *liveMap) enqueue(msg LiveMessage) {
	select {
	case l.send <- msg:
	case <-l.ctx.Done():
	}
}
