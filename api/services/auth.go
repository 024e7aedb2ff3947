package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/crash-ph/admin-console/api/backend"
	"github.com/crash-ph/admin-console/api/middleware"
	"github.com/crash-ph/admin-console/internal/authn"
	"github.com/crash-ph/admin-console/internal/events"
	"github.com/crash-ph/admin-console/internal/metrics"
	"github.com/crash-ph/admin-console/internal/session"
	"github.com/crash-ph/admin-console/models"
	"github.com/rs/zerolog"
)

// ConsoleRole is the only role allowed to sign in.
const ConsoleRole = "admin"

// LoginPageService shows the sign-in form, or sends a signed-in user on.
func LoginPageService(svc *Service, w http.ResponseWriter, r *http.Request) {
	if _, err := svc.Sessions.Load(r); err == nil {
		http.Redirect(w, r, svc.Path("/offices"), http.StatusSeeOther)
		return
	}
	svc.Pages.Render(w, r, http.StatusOK, PageLogin, &Page{Title: "Sign in", Form: LoginForm{}})
}

// LoginService signs an administrator in and starts a console session.
func LoginService(svc *Service, w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	var form LoginForm
	if err := decodeForm(r, &form); err != nil {
		page := &Page{Title: "Sign in", Form: LoginForm{Email: form.Email}}
		var fields FieldErrors
		if errors.As(err, &fields) {
			page.FieldErrors = fields
		} else {
			page.Error = "The form could not be read."
		}
		svc.Pages.Render(w, r, http.StatusUnprocessableEntity, PageLogin, page)
		return
	}

	resp, err := svc.Backend.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		logger.Warn().Err(err).Msg("login rejected")

		message := UserMessage(err)
		if status := backend.StatusOf(err); status == http.StatusUnauthorized || status == http.StatusBadRequest {
			message = "Invalid email or password."
		}
		svc.Pages.Render(w, r, http.StatusUnauthorized, PageLogin,
			&Page{Title: "Sign in", Error: message, Form: LoginForm{Email: form.Email}})
		return
	}

	if resp.Role != ConsoleRole {
		metrics.LoginAttempts.WithLabelValues("forbidden").Inc()
		logger.Warn().Str("role", resp.Role).Msg("non-admin account tried to sign in")
		svc.Pages.Render(w, r, http.StatusForbidden, PageLogin,
			&Page{Title: "Sign in", Error: "This console is for administrators only.", Form: LoginForm{Email: form.Email}})
		return
	}

	sess := newSession(svc, resp, form.Email)
	if err := svc.Sessions.Store.Create(r.Context(), sess); err != nil {
		logger.Error().Err(err).Msg("failed to store session")
		svc.Pages.Render(w, r, http.StatusServiceUnavailable, PageLogin,
			&Page{Title: "Sign in", Error: "Unable to start a session. Please try again.", Form: LoginForm{Email: form.Email}})
		return
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	logger.Info().Str("user_id", sess.UserID).Msg("administrator signed in")

	setSessionCookie(svc, w, sess.ID, sess.ExpiresAt)
	audit(svc, r.WithContext(middleware.WithSession(r.Context(), sess)),
		events.ActionLogin, events.ResourceSession, "", nil)

	http.Redirect(w, r, svc.Path("/offices"), http.StatusSeeOther)
}

// newSession builds the session for a successful login. The session ends
// with the configured TTL or the refresh token, whichever is sooner.
func newSession(svc *Service, resp *models.LoginResponse, email string) *session.Session {
	expires := time.Now().Add(svc.Config.Session.TTL)
	if claims, err := authn.ParseClaims(resp.Refresh); err == nil {
		if exp := claims.Expiry(); !exp.IsZero() && exp.Before(expires) {
			expires = exp
		}
	}

	sess := session.New(expires)
	sess.Role = resp.Role
	sess.User = resp.User
	sess.AccessToken = resp.Access
	sess.RefreshToken = resp.Refresh
	sess.Email = email

	var admin models.Admin
	if err := json.Unmarshal(resp.User, &admin); err == nil {
		sess.UserID = admin.ID
		sess.Username = admin.Username
		if admin.Email != "" {
			sess.Email = admin.Email
		}
	}
	if sess.UserID == "" {
		if claims, err := authn.ParseClaims(resp.Access); err == nil {
			sess.UserID = claims.UserID
		}
	}
	if sess.Username == "" {
		sess.Username = sess.Email
	}
	return sess
}

// LoginThrottledService answers sign-in attempts over the rate limit.
func LoginThrottledService(svc *Service, w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Retry-After", "60")
	svc.Pages.Render(w, r, http.StatusTooManyRequests, PageLogin, &Page{
		Title: "Sign in",
		Error: "Too many sign-in attempts. Wait a minute and try again.",
		Form:  LoginForm{Email: r.PostFormValue("email")},
	})
}

// LogoutService ends the current session.
func LogoutService(svc *Service, w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	if sess, err := svc.Sessions.Load(r); err == nil {
		audit(svc, r.WithContext(middleware.WithSession(r.Context(), sess)),
			events.ActionLogout, events.ResourceSession, "", nil)
		if err := svc.Sessions.Store.Delete(r.Context(), sess.ID); err != nil {
			logger.Error().Err(err).Msg("failed to delete session")
		}
		logger.Info().Str("user_id", sess.UserID).Msg("administrator signed out")
	}

	clearSessionCookie(svc, w)
	http.Redirect(w, r, svc.Path("/login"), http.StatusSeeOther)
}

// SidebarPreferenceService stores whether the sidebar is collapsed.
func SidebarPreferenceService(svc *Service, w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		middleware.Unauthenticated(w, r, svc.Path("/login"))
		return
	}

	var body struct {
		Collapsed bool `json:"collapsed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logger.Warn().Err(err).Msg("invalid sidebar preference payload")
		HandleErrResponse(w, http.StatusBadRequest, errors.New("invalid request payload"))
		return
	}

	// Reload so tokens refreshed since the request started are kept
	current, err := svc.Sessions.Store.Get(r.Context(), sess.ID)
	if err == nil {
		current.SidebarCollapsed = body.Collapsed
		err = svc.Sessions.Store.Update(r.Context(), current)
	}
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			middleware.Unauthenticated(w, r, svc.Path("/login"))
			return
		}
		logger.Error().Err(err).Msg("failed to store sidebar preference")
		HandleErrResponse(w, http.StatusServiceUnavailable, errors.New("preference could not be saved"))
		return
	}

	WriteResponse(w, http.StatusOK, body)
}
