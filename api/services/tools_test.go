package services

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/crash-ph/admin-console/api/backend"
	"github.com/stretchr/testify/assert"
)

func jsonRequest(method, target, body string, env *testEnv, t *testing.T) *http.Request {
	sess := env.signIn(t)
	r := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	r.Header.Set("Accept", "application/json")
	return r.WithContext(formRequest(method, target, nil, sess).Context())
}

func TestSearchUsersService(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/users/search/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dela cruz", r.URL.Query().Get("q"))
		writeJSON(w, http.StatusOK, []map[string]string{
			{"user_id": "u-1", "first_name": "Juan", "last_name": "Dela Cruz", "email": "juan@example.ph"},
		})
	})
	env := newTestEnv(t, mux)

	rec := httptest.NewRecorder()
	SearchUsersService(env.svc, rec, jsonRequest(http.MethodGet, "/users/search?q=dela+cruz", "", env, t))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"user_id":"u-1","first_name":"Juan","last_name":"Dela Cruz","email":"juan@example.ph"}]`, rec.Body.String())
}

func TestSearchUsersService_ShortQuery(t *testing.T) {
	var hits int32
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))

	rec := httptest.NewRecorder()
	SearchUsersService(env.svc, rec, jsonRequest(http.MethodGet, "/users/search?q=j", "", env, t))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestSearchUsersService_FeaturePending(t *testing.T) {
	env := newTestEnv(t, http.NotFoundHandler())

	rec := httptest.NewRecorder()
	SearchUsersService(env.svc, rec, jsonRequest(http.MethodGet, "/users/search?q=juan", "", env, t))

	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.JSONEq(t, `{"error":"`+backend.FeaturePendingMessage+`"}`, rec.Body.String())
}

func TestPasswordHashService(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/admin/password-hash/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"hash": "pbkdf2_sha256$870000$abc$def"})
	})
	env := newTestEnv(t, mux)

	rec := httptest.NewRecorder()
	PasswordHashService(env.svc, rec, jsonRequest(http.MethodPost, "/tools/password-hash", `{"password":"secret123"}`, env, t))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hash":"pbkdf2_sha256$870000$abc$def"}`, rec.Body.String())
}

func TestPasswordHashService_Rejects(t *testing.T) {
	env := newTestEnv(t, http.NotFoundHandler())

	rec := httptest.NewRecorder()
	PasswordHashService(env.svc, rec, jsonRequest(http.MethodPost, "/tools/password-hash", `{"password":"abc"}`, env, t))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = httptest.NewRecorder()
	PasswordHashService(env.svc, rec, jsonRequest(http.MethodPost, "/tools/password-hash", `not json`, env, t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	PasswordHashService(env.svc, rec, jsonRequest(http.MethodPost, "/tools/password-hash", `{"password":"secret123"}`, env, t))
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestReverseGeocodeService(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/geocode/reverse/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "14.6507", r.URL.Query().Get("lat"))
		assert.Equal(t, "121.0495", r.URL.Query().Get("lng"))
		writeJSON(w, http.StatusOK, map[string]string{
			"barangay":     "Pinyahan",
			"city":         "Quezon City",
			"full_address": "Pinyahan, Quezon City",
		})
	})
	env := newTestEnv(t, mux)

	rec := httptest.NewRecorder()
	ReverseGeocodeService(env.svc, rec, jsonRequest(http.MethodGet, "/geocode/reverse?lat=14.6507&lng=121.0495", "", env, t))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"full_address":"Pinyahan, Quezon City"`)
}

func TestReverseGeocodeService_InvalidCoordinates(t *testing.T) {
	var hits int32
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))

	for _, q := range []string{"", "lat=abc&lng=1", "lat=91&lng=120", "lat=14&lng=181", "lat=0&lng=0"} {
		rec := httptest.NewRecorder()
		ReverseGeocodeService(env.svc, rec, jsonRequest(http.MethodGet, "/geocode/reverse?"+q, "", env, t))
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestReverseGeocodeService_SessionExpired(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	rec := httptest.NewRecorder()
	ReverseGeocodeService(env.svc, rec, jsonRequest(http.MethodGet, "/geocode/reverse?lat=14.6&lng=121", "", env, t))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"session expired","redirect":"/login"}`, rec.Body.String())
}
