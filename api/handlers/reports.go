package handlers

import (
	"net/http"

	"github.com/crash-ph/admin-console/api/services"
)

func ManualReportPage(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.ManualReportPageService(svc, w, r)
	}
}

func CreateManualReport(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.CreateManualReportService(svc, w, r)
	}
}

func MapPage(svc *services.Service) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {

		services.MapPageService(svc, w, r)
	}
}
