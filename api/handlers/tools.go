package handlers

import (
	"net/http"

	"github.com/crash-ph/admin-console/api/services"
)

func SearchUsers(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.SearchUsersService(svc, w, r)
	}
}

func PasswordHash(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.PasswordHashService(svc, w, r)
	}
}

func ReverseGeocode(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.ReverseGeocodeService(svc, w, r)
	}
}

// Health reports that the process is serving. It does not call the backend.
func Health() http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.WriteResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
