package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/crash-ph/admin-console/api/backend"
	"github.com/crash-ph/admin-console/internal/events"
	"github.com/crash-ph/admin-console/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileService(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/profile/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"admin_id":   "admin-1",
			"username":   "dispatch-lead",
			"email":      "lead@crash.ph",
			"contact_no": "09170000000",
		})
	})
	env := newTestEnv(t, mux)
	sess := env.signIn(t)

	rec := httptest.NewRecorder()
	ProfileService(env.svc, rec, formRequest(http.MethodGet, "/profile", nil, sess))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "dispatch-lead")
	assert.Contains(t, body, "09170000000")
	assert.NotContains(t, body, backend.FeaturePendingMessage)
}

func TestProfileService_FeaturePending(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusNotImplemented} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, status, map[string]string{"detail": "Not found."})
			}))
			sess := env.signIn(t)

			rec := httptest.NewRecorder()
			ProfileService(env.svc, rec, formRequest(http.MethodGet, "/profile", nil, sess))

			assert.Equal(t, http.StatusOK, rec.Code)
			body := rec.Body.String()
			assert.Contains(t, body, backend.FeaturePendingMessage)
			// Falls back to what the session knows
			assert.Contains(t, body, "desk@crash.ph")
		})
	}
}

func TestUpdateProfileService(t *testing.T) {
	var got models.ProfileUpdate
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/profile/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{"admin_id": "admin-1", "username": got.Username, "email": got.Email})
	})
	env := newTestEnv(t, mux)
	sess := env.signIn(t)

	form := url.Values{"username": {"night-desk"}, "email": {"night@crash.ph"}, "contact": {"0917"}}
	rec := httptest.NewRecorder()
	UpdateProfileService(env.svc, rec, formRequest(http.MethodPost, "/profile", form, sess))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/profile?notice=updated", rec.Header().Get("Location"))
	assert.Equal(t, "night-desk", got.Username)

	stored, err := env.store.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "night-desk", stored.Username)
	assert.Equal(t, "night@crash.ph", stored.Email)

	published := env.notifier.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.ResourceProfile, published[0].Resource)
}

func TestChangePasswordService(t *testing.T) {
	var got models.PasswordChange
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/profile/password/", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
	})
	env := newTestEnv(t, mux)
	sess := env.signIn(t)

	form := url.Values{"new_password": {"n3w-secret"}, "confirm_password": {"n3w-secret"}}
	rec := httptest.NewRecorder()
	ChangePasswordService(env.svc, rec, formRequest(http.MethodPost, "/profile/password", form, sess))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/profile?notice=password", rec.Header().Get("Location"))
	assert.Equal(t, "n3w-secret", got.NewPassword)

	published := env.notifier.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.ActionPasswordChange, published[0].Action)
}

func TestChangePasswordService_Validation(t *testing.T) {
	env := newTestEnv(t, http.NotFoundHandler())
	sess := env.signIn(t)

	cases := map[string]struct {
		form url.Values
		want string
	}{
		"too short":  {url.Values{"new_password": {"abc"}, "confirm_password": {"abc"}}, "Must be at least 6 characters."},
		"mismatch":   {url.Values{"new_password": {"abcdef"}, "confirm_password": {"abcdeg"}}, "Passwords do not match."},
		"no confirm": {url.Values{"new_password": {"abcdef"}}, "This field is required."},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ChangePasswordService(env.svc, rec, formRequest(http.MethodPost, "/profile/password", tc.form, sess))

			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.want)
		})
	}
}

func TestChangePasswordService_FeaturePending(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	sess := env.signIn(t)

	form := url.Values{"new_password": {"n3w-secret"}, "confirm_password": {"n3w-secret"}}
	rec := httptest.NewRecorder()
	ChangePasswordService(env.svc, rec, formRequest(http.MethodPost, "/profile/password", form, sess))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), backend.FeaturePendingMessage)
	assert.Empty(t, env.notifier.published())
}
