package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/crash-ph/admin-console/api/backend"
	"github.com/crash-ph/admin-console/api/middleware"
	"github.com/crash-ph/admin-console/internal/events"
	"github.com/rs/zerolog"
)

func WriteResponse(w http.ResponseWriter, statusCode int, response interface{}, location ...string) {

	w.Header().Set("Content-Type", "application/json")

	// Console data must always be current
	w.Header().Set("Cache-Control", "max-age=0")

	// Conditionally set the Location header if provided
	if len(location) > 0 && location[0] != "" {
		w.Header().Set("Location", location[0])
	}

	w.WriteHeader(statusCode)

	if response != nil {
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
			return
		}
	}
}

// HandleErrResponse writes a JSON error body.
func HandleErrResponse(w http.ResponseWriter, statusCode int, err error) {
	WriteResponse(w, statusCode, map[string]string{"error": err.Error()})
}

// UserMessage turns a backend error into text fit for an inline message.
func UserMessage(err error) string {
	var httpErr *backend.HTTPError
	switch {
	case errors.Is(err, backend.ErrFeaturePending):
		return backend.FeaturePendingMessage
	case errors.Is(err, backend.ErrSessionExpired):
		return "Your session has expired. Please sign in again."
	case errors.As(err, &httpErr):
		return httpErr.Message
	default:
		return "Unable to reach the server. Please try again."
	}
}

// sessionEnded handles ErrSessionExpired by dropping the cookie and sending
// the user to the login page. It reports whether it wrote a response.
func sessionEnded(svc *Service, w http.ResponseWriter, r *http.Request, err error) bool {
	if !backend.IsSessionExpired(err) {
		return false
	}
	zerolog.Ctx(r.Context()).Info().Msg("session expired, sign in required")
	clearSessionCookie(svc, w)
	middleware.Unauthenticated(w, r, svc.Path("/login"))
	return true
}

// jsonError answers a script call that failed against the backend.
func jsonError(svc *Service, w http.ResponseWriter, r *http.Request, err error) {
	if sessionEnded(svc, w, r, err) {
		return
	}

	status := http.StatusBadGateway
	switch {
	case errors.Is(err, backend.ErrFeaturePending):
		status = http.StatusNotImplemented
	case backend.StatusOf(err) >= 400 && backend.StatusOf(err) < 500:
		status = backend.StatusOf(err)
	}
	WriteResponse(w, status, map[string]string{"error": UserMessage(err)})
}

func setSessionCookie(svc *Service, w http.ResponseWriter, id string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     svc.Config.Session.CookieName,
		Value:    id,
		Path:     svc.Path("/"),
		Expires:  expires,
		HttpOnly: true,
		Secure:   svc.Config.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(svc *Service, w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     svc.Config.Session.CookieName,
		Value:    "",
		Path:     svc.Path("/"),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   svc.Config.Session.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// audit publishes an audit event for the signed-in user. Failures are logged
// and never fail the request.
func audit(svc *Service, r *http.Request, action, resource, resourceID string, details map[string]string) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		return
	}
	event := events.NewAuditEvent(action, resource, resourceID, sess.UserID, sess.Username)
	event.Details = details
	if err := svc.Events.Notify(r.Context(), event); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("action", action).Msg("failed to publish audit event")
	}
}
