package models

// PoliceOffice is a police office account as listed by the backend.
type PoliceOffice struct {
	ID                string     `json:"office_id"`
	Name              string     `json:"office_name"`
	Email             string     `json:"email"`
	HeadOfficer       string     `json:"head_officer,omitempty"`
	ContactNumber     string     `json:"contact_number,omitempty"`
	City              string     `json:"location_city,omitempty"`
	Barangay          string     `json:"location_barangay,omitempty"`
	Latitude          Coordinate `json:"latitude"`
	Longitude         Coordinate `json:"longitude"`
	CreatedBy         string     `json:"created_by,omitempty"`
	CreatedByUsername string     `json:"created_by_username,omitempty"`
}

// PoliceOfficeInput is the payload for creating or updating a police office.
// Password is required on create and only changed on update when set.
type PoliceOfficeInput struct {
	Name          string  `json:"office_name,omitempty"`
	Email         string  `json:"email,omitempty"`
	Password      string  `json:"password,omitempty"`
	HeadOfficer   string  `json:"head_officer"`
	ContactNumber string  `json:"contact_number"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	CreatedBy     string  `json:"created_by,omitempty"`
}

// Checkpoint is a police checkpoint with its shift window.
type Checkpoint struct {
	ID               string     `json:"checkpoint_id"`
	Name             string     `json:"checkpoint_name"`
	OfficeID         string     `json:"office,omitempty"`
	OfficeName       string     `json:"office_name,omitempty"`
	Location         string     `json:"location,omitempty"`
	Latitude         Coordinate `json:"latitude"`
	Longitude        Coordinate `json:"longitude"`
	TimeStart        string     `json:"time_start,omitempty"`
	TimeEnd          string     `json:"time_end,omitempty"`
	AssignedOfficers []string   `json:"assigned_officers,omitempty"`
	ContactNumber    string     `json:"contact_number,omitempty"`
}
