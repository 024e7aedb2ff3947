package handlers

import (
	"net/http"

	"github.com/crash-ph/admin-console/api/services"
)

func Profile(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.ProfileService(svc, w, r)
	}
}

func UpdateProfile(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.UpdateProfileService(svc, w, r)
	}
}

func ChangePassword(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.ChangePasswordService(svc, w, r)
	}
}
