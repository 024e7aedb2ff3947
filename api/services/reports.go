package services

import (
	"net/http"
	"strings"

	"github.com/crash-ph/admin-console/api/middleware"
	"github.com/crash-ph/admin-console/internal/events"
	"github.com/crash-ph/admin-console/models"
	"github.com/rs/zerolog"
)

// ManualReportData is shown next to the manual report form.
type ManualReportData struct {
	Offices  []models.PoliceOffice
	Statuses []string
	Timezone string
	Map      MapSettings
}

func manualReportPage(svc *Service, r *http.Request) *Page {
	sess, _ := middleware.SessionFromContext(r.Context())
	return &Page{
		Title:   "Manual report",
		Nav:     "reports",
		Session: sess,
		Data: ManualReportData{
			Statuses: []string{models.StatusPending, models.StatusResolved},
			Timezone: svc.Config.Console.Timezone,
			Map:      mapSettings(svc),
		},
	}
}

// loadOffices fills in the office choices. It reports false when it has
// already answered the request.
func loadOffices(svc *Service, w http.ResponseWriter, r *http.Request, page *Page) bool {
	offices, err := svc.API(r).ListOffices(r.Context())
	if err != nil {
		if sessionEnded(svc, w, r, err) {
			return false
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to list police offices for report form")
		page.Error = UserMessage(err)
		return true
	}

	data := page.Data.(ManualReportData)
	data.Offices = offices
	page.Data = data
	return true
}

// ManualReportPageService shows the manual report form.
func ManualReportPageService(svc *Service, w http.ResponseWriter, r *http.Request) {
	page := manualReportPage(svc, r)
	page.Notice = reportNotice(r)
	page.Form = ManualReportForm{Status: models.StatusPending}

	if !loadOffices(svc, w, r, page) {
		return
	}
	svc.Pages.Render(w, r, http.StatusOK, PageManualReport, page)
}

func reportNotice(r *http.Request) string {
	if r.URL.Query().Get("notice") == "created" {
		return "Report submitted."
	}
	return ""
}

// CreateManualReportService submits a report taken outside the mobile app.
// Times entered in the form are read in the console timezone.
func CreateManualReportService(svc *Service, w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	page := manualReportPage(svc, r)

	var form ManualReportForm
	err := decodeForm(r, &form)

	var input models.ManualReportInput
	if err == nil {
		input, err = form.input(svc)
	}
	if err != nil {
		if !loadOffices(svc, w, r, page) {
			return
		}
		renderFormError(svc, w, r, PageManualReport, page, form, err)
		return
	}

	report, err := svc.API(r).CreateManualReport(r.Context(), input)
	if err != nil {
		if sessionEnded(svc, w, r, err) {
			return
		}
		logger.Warn().Err(err).Msg("failed to create manual report")
		page.Error = UserMessage(err)
		page.Form = form
		if !loadOffices(svc, w, r, page) {
			return
		}
		svc.Pages.Render(w, r, http.StatusUnprocessableEntity, PageManualReport, page)
		return
	}

	logger.Info().Str("report_id", report.ID).Msg("Manual report created successfully")
	audit(svc, r, events.ActionCreate, events.ResourceReport, report.ID, map[string]string{
		"category":        report.Category,
		"assigned_office": input.AssignedOffice,
	})

	redirectWithNotice(w, r, svc.Path("/reports/manual"), "created")
}

func (f ManualReportForm) input(svc *Service) (models.ManualReportInput, error) {
	loc := svc.Config.Location()
	fields := FieldErrors{}

	created, err := toUTC(f.CreatedAt, loc)
	if err != nil {
		fields["created_at"] = "Enter a valid date and time."
	}
	updated, err := toUTC(f.UpdatedAt, loc)
	if err != nil {
		fields["updated_at"] = "Enter a valid date and time."
	}
	if len(fields) > 0 {
		return models.ManualReportInput{}, fields
	}

	status := f.Status
	if status == "" {
		status = models.StatusPending
	}

	return models.ManualReportInput{
		Category:       strings.TrimSpace(f.Category),
		Description:    f.Description,
		Latitude:       f.Latitude,
		Longitude:      f.Longitude,
		Reporter:       f.Reporter,
		AssignedOffice: f.AssignedOffice,
		Status:         status,
		Remarks:        f.Remarks,
		CreatedAt:      created,
		UpdatedAt:      updated,
	}, nil
}
