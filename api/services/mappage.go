package services

import (
	"net/http"

	"github.com/crash-ph/admin-console/api/middleware"
)

// MapSettings configures the Leaflet map on the page.
type MapSettings struct {
	TileURL   string  `json:"tileURL"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      int     `json:"zoom"`
	LivePath  string  `json:"livePath,omitempty"`
	LoginPath string  `json:"loginPath"`
}

func mapSettings(svc *Service) MapSettings {
	return MapSettings{
		TileURL:   svc.Config.Map.TileURL,
		Latitude:  svc.Config.Map.DefaultLatitude,
		Longitude: svc.Config.Map.DefaultLongitude,
		Zoom:      svc.Config.Map.DefaultZoom,
		LoginPath: svc.Path("/login"),
	}
}

// MapPageService shows the live map. Markers arrive over the live socket.
func MapPageService(svc *Service, w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())

	settings := mapSettings(svc)
	settings.LivePath = svc.Path("/map/live")

	svc.Pages.Render(w, r, http.StatusOK, PageMap, &Page{
		Title:   "Live map",
		Nav:     "map",
		Session: sess,
		Data:    settings,
	})
}
