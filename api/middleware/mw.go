package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/crash-ph/admin-console/internal/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const SessionKey contextKey = "session"
const RequestIDKey contextKey = "request_id"

const requestIDHeader = "X-Request-ID"

// WithLogger adds a logger to the context and logs request information.
func WithLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(requestIDHeader)
			if requestID == "" || len(requestID) > 64 {
				requestID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, requestID)

			logger := log.With().
				Str("host", r.Host).
				Str("method", r.Method).
				Str("url", r.URL.String()).
				Str("remote_addr", r.RemoteAddr).
				Str("request_id", requestID).
				Time("timestamp", time.Now()).
				Logger()

			// Add the logger to the context
			ctx := logger.WithContext(r.Context())
			ctx = context.WithValue(ctx, RequestIDKey, requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		},
	)
}

// SessionFromContext returns the session attached by RequireSession.
func SessionFromContext(ctx context.Context) (*session.Session, bool) {
	s, ok := ctx.Value(SessionKey).(*session.Session)
	return s, ok && s != nil
}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *session.Session) context.Context {
	return context.WithValue(ctx, SessionKey, s)
}

// Sessions loads console sessions from a store using the session cookie.
type Sessions struct {
	Store      session.Store
	CookieName string
	LoginPath  string
}

// Load returns the session named by the request's cookie.
func (s *Sessions) Load(r *http.Request) (*session.Session, error) {
	cookie, err := r.Cookie(s.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, session.ErrSessionNotFound
	}
	return s.Store.Get(r.Context(), cookie.Value)
}

// RequireSession rejects requests without a live session. Page requests are
// sent to the login page; API, form-less and websocket calls get a 401.
func (s *Sessions) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			logger := zerolog.Ctx(r.Context())

			sess, err := s.Load(r)
			if err != nil {
				if !errors.Is(err, session.ErrSessionNotFound) {
					logger.Error().Err(err).Msg("failed to load session")
					http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
					return
				}
				logger.Debug().Msg("no session, sign in required")
				Unauthenticated(w, r, s.LoginPath)
				return
			}

			ctx := logger.With().Str("user_id", sess.UserID).Logger().WithContext(r.Context())
			ctx = WithSession(ctx, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		},
	)
}

// RequireRole rejects sessions whose role is not role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(
			func(w http.ResponseWriter, r *http.Request) {
				sess, ok := SessionFromContext(r.Context())
				if !ok || sess.Role != role {
					zerolog.Ctx(r.Context()).Warn().Msg("role not permitted")
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
			},
		)
	}
}

// Unauthenticated answers a request that needs a new sign in.
func Unauthenticated(w http.ResponseWriter, r *http.Request, loginPath string) {
	if WantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"session expired","redirect":"` + loginPath + `"}`))
		return
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

// WantsJSON reports whether the caller is a script rather than a page load.
func WantsJSON(r *http.Request) bool {
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return true
	}
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
