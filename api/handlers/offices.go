package handlers

import (
	"net/http"

	"github.com/crash-ph/admin-console/api/services"
)

func ListOffices(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.ListOfficesService(svc, w, r)
	}
}

func NewOffice(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.NewOfficeService(svc, w, r)
	}
}

func CreateOffice(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.CreateOfficeService(svc, w, r)
	}
}

func EditOffice(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.EditOfficeService(svc, w, r)
	}
}

func UpdateOffice(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.UpdateOfficeService(svc, w, r)
	}
}

func DeleteOffice(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.DeleteOfficeService(svc, w, r)
	}
}
