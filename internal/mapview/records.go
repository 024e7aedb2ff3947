package mapview

import (
	"fmt"
	"strings"

	"github.com/crash-ph/admin-console/models"
)

// OfficeRecords converts police offices into map records.
func OfficeRecords(offices []models.PoliceOffice) []Record {
	records := make([]Record, 0, len(offices))
	for _, o := range offices {
		records = append(records, Record{
			ID:    o.ID,
			Kind:  "office",
			Lat:   o.Latitude.Float(),
			Lng:   o.Longitude.Float(),
			Title: o.Name,
			Details: nonEmpty(
				labelled("Head officer", o.HeadOfficer),
				labelled("Contact", o.ContactNumber),
				labelled("Email", o.Email),
				place(o.Barangay, o.City),
			),
		})
	}
	return records
}

// ReportRecords converts reports into map records. Resolved and canceled
// reports are left off the map.
func ReportRecords(reports []models.Report) []Record {
	records := make([]Record, 0, len(reports))
	for _, rep := range reports {
		if !rep.Active() {
			continue
		}

		var reported string
		if rep.CreatedAt != nil {
			reported = rep.CreatedAt.Format("Jan 2, 2006 15:04")
		}

		records = append(records, Record{
			ID:    rep.ID,
			Kind:  reportKind(rep.Status),
			Lat:   rep.Latitude.Float(),
			Lng:   rep.Longitude.Float(),
			Title: rep.Category,
			Details: nonEmpty(
				labelled("Status", rep.Status),
				labelled("Reporter", rep.ReporterFullName),
				labelled("Assigned to", rep.AssignedOfficeName),
				place(rep.Barangay, rep.City),
				labelled("Reported", reported),
				rep.Description,
			),
		})
	}
	return records
}

// CheckpointRecords converts active checkpoints into map records.
func CheckpointRecords(checkpoints []models.Checkpoint) []Record {
	records := make([]Record, 0, len(checkpoints))
	for _, c := range checkpoints {
		var shift string
		if c.TimeStart != "" || c.TimeEnd != "" {
			shift = fmt.Sprintf("%s to %s", c.TimeStart, c.TimeEnd)
		}

		records = append(records, Record{
			ID:    c.ID,
			Kind:  "checkpoint",
			Lat:   c.Latitude.Float(),
			Lng:   c.Longitude.Float(),
			Title: c.Name,
			Details: nonEmpty(
				labelled("Office", c.OfficeName),
				labelled("Location", c.Location),
				labelled("Shift", shift),
				labelled("Officers", strings.Join(c.AssignedOfficers, ", ")),
				labelled("Contact", c.ContactNumber),
			),
		})
	}
	return records
}

func reportKind(status string) string {
	if strings.TrimSpace(status) == "" {
		status = models.StatusPending
	}
	return "report-" + strings.ReplaceAll(strings.ToLower(strings.TrimSpace(status)), " ", "-")
}

func labelled(label, value string) string {
	if value == "" {
		return ""
	}
	return label + ": " + value
}

func place(barangay, city string) string {
	return strings.Join(nonEmpty(barangay, city), ", ")
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
