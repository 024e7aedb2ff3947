package models

import (
	"strings"
	"time"
)

// Report statuses that are no longer shown on the map.
const (
	StatusPending  = "Pending"
	StatusResolved = "Resolved"
	StatusCanceled = "Canceled"
)

// Report is an incident report as listed for the map.
type Report struct {
	ID                 string     `json:"report_id"`
	Category           string     `json:"category"`
	Description        string     `json:"description,omitempty"`
	Status             string     `json:"status"`
	Latitude           Coordinate `json:"latitude"`
	Longitude          Coordinate `json:"longitude"`
	City               string     `json:"location_city,omitempty"`
	Barangay           string     `json:"location_barangay,omitempty"`
	AssignedOffice     string     `json:"assigned_office,omitempty"`
	AssignedOfficeName string     `json:"assigned_office_name,omitempty"`
	ReporterFullName   string     `json:"reporter_full_name,omitempty"`
	Remarks            string     `json:"remarks,omitempty"`
	CreatedAt          *time.Time `json:"created_at,omitempty"`
}

// Active reports whether the report still needs attention.
func (r Report) Active() bool {
	switch strings.ToLower(strings.TrimSpace(r.Status)) {
	case "resolved", "canceled", "cancelled":
		return false
	}
	return true
}

// ManualReportInput is the payload of an admin-inserted report.
type ManualReportInput struct {
	Category       string  `json:"category"`
	Description    string  `json:"description,omitempty"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Reporter       string  `json:"reporter,omitempty"`
	AssignedOffice string  `json:"assigned_office"`
	Status         string  `json:"status,omitempty"`
	Remarks        string  `json:"remarks,omitempty"`
	CreatedAt      string  `json:"created_at,omitempty"`
	UpdatedAt      string  `json:"updated_at,omitempty"`
}

// MapData is the aggregate returned by admin/map/data/.
type MapData struct {
	Reports     []Report       `json:"active_reports"`
	Offices     []PoliceOffice `json:"police_offices"`
	Checkpoints []Checkpoint   `json:"active_checkpoints"`
}

// GeocodeResult is the reverse geocoding answer for a coordinate pair.
type GeocodeResult struct {
	AddressLine string `json:"address_line"`
	Barangay    string `json:"barangay"`
	City        string `json:"city"`
	FullAddress string `json:"full_address"`
}
