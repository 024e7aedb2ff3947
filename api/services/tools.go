package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/crash-ph/admin-console/internal/mapview"
	"github.com/crash-ph/admin-console/models"
	"github.com/rs/zerolog"
)

const minSearchLength = 2

// SearchUsersService looks up citizen accounts for the manual report form.
func SearchUsersService(svc *Service, w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len([]rune(q)) < minSearchLength {
		WriteResponse(w, http.StatusOK, []models.UserSummary{})
		return
	}

	users, err := svc.API(r).SearchUsers(r.Context(), q)
	if err != nil {
		logger.Warn().Err(err).Msg("user search failed")
		jsonError(svc, w, r, err)
		return
	}
	if users == nil {
		users = []models.UserSummary{}
	}

	WriteResponse(w, http.StatusOK, users)
}

// PasswordHashService asks the backend to hash a password for direct insertion.
func PasswordHashService(svc *Service, w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	var body models.PasswordHashRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		logger.Warn().Err(err).Msg("invalid password hash payload")
		HandleErrResponse(w, http.StatusBadRequest, errors.New("invalid request payload"))
		return
	}
	if len(body.Password) < 6 {
		HandleErrResponse(w, http.StatusUnprocessableEntity, errors.New("password must be at least 6 characters"))
		return
	}

	hash, err := svc.API(r).HashPassword(r.Context(), body.Password)
	if err != nil {
		logger.Warn().Err(err).Msg("password hash failed")
		jsonError(svc, w, r, err)
		return
	}

	WriteResponse(w, http.StatusOK, models.PasswordHashResponse{Hash: hash})
}

// ReverseGeocodeService resolves a map click to an address.
func ReverseGeocodeService(svc *Service, w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())

	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if latErr != nil || lngErr != nil || !mapview.ValidPosition(lat, lng) {
		HandleErrResponse(w, http.StatusBadRequest, errors.New("lat and lng must be a valid coordinate pair"))
		return
	}

	result, err := svc.API(r).ReverseGeocode(r.Context(), lat, lng)
	if err != nil {
		logger.Warn().Err(err).Float64("lat", lat).Float64("lng", lng).Msg("reverse geocoding failed")
		jsonError(svc, w, r, err)
		return
	}

	WriteResponse(w, http.StatusOK, result)
}
