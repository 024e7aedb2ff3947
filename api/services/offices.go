package services

import (
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/crash-ph/admin-console/api/backend"
	"github.com/crash-ph/admin-console/api/middleware"
	"github.com/crash-ph/admin-console/internal/events"
	"github.com/crash-ph/admin-console/models"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

var officeNotices = map[string]string{
	"created": "Police office created.",
	"updated": "Police office updated.",
	"deleted": "Police office deleted.",
}

// OfficeFormData is what the office form page shows besides the form itself.
type OfficeFormData struct {
	ID       string
	Creating bool
	Map      MapSettings
}

// ListOfficesService lists police office accounts, optionally filtered by a
// search term.
func ListOfficesService(svc *Service, w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	sess, _ := middleware.SessionFromContext(r.Context())

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	page := &Page{
		Title:   "Police offices",
		Nav:     "offices",
		Session: sess,
		Notice:  officeNotices[r.URL.Query().Get("notice")],
		Form:    map[string]string{"q": q},
	}

	offices, err := svc.API(r).ListOffices(r.Context())
	if err != nil {
		if sessionEnded(svc, w, r, err) {
			return
		}
		logger.Error().Err(err).Msg("failed to list police offices")
		page.Error = UserMessage(err)
		page.Data = []models.PoliceOffice{}
		svc.Pages.Render(w, r, http.StatusOK, PageOffices, page)
		return
	}

	offices = filterOffices(offices, q)
	sort.SliceStable(offices, func(i, j int) bool {
		return strings.ToLower(offices[i].Name) < strings.ToLower(offices[j].Name)
	})

	logger.Info().Int("office_count", len(offices)).Msg("Successfully retrieved police offices")
	page.Data = offices
	svc.Pages.Render(w, r, http.StatusOK, PageOffices, page)
}

func filterOffices(offices []models.PoliceOffice, q string) []models.PoliceOffice {
	if q == "" {
		return offices
	}
	q = strings.ToLower(q)

	out := make([]models.PoliceOffice, 0, len(offices))
	for _, o := range offices {
		haystack := strings.ToLower(strings.Join([]string{o.Name, o.Email, o.HeadOfficer, o.City, o.Barangay}, " "))
		if strings.Contains(haystack, q) {
			out = append(out, o)
		}
	}
	return out
}

// NewOfficeService shows an empty office form.
func NewOfficeService(svc *Service, w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext(r.Context())
	svc.Pages.Render(w, r, http.StatusOK, PageOfficeForm, &Page{
		Title:   "New police office",
		Nav:     "offices",
		Session: sess,
		Form:    OfficeForm{},
		Data:    OfficeFormData{Creating: true, Map: mapSettings(svc)},
	})
}

// CreateOfficeService creates a police office owned by the signed-in admin.
func CreateOfficeService(svc *Service, w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	sess, _ := middleware.SessionFromContext(r.Context())

	page := &Page{
		Title:   "New police office",
		Nav:     "offices",
		Session: sess,
		Data:    OfficeFormData{Creating: true, Map: mapSettings(svc)},
	}

	var form OfficeForm
	err := decodeForm(r, &form)
	if err == nil && form.Password == "" {
		err = FieldErrors{"password": "This field is required."}
	}
	if err != nil {
		renderFormError(svc, w, r, PageOfficeForm, page, form.withoutPasswords(), err)
		return
	}

	input := form.input()
	input.CreatedBy = sess.UserID

	office, err := svc.API(r).CreateOffice(r.Context(), input)
	if err != nil {
		if sessionEnded(svc, w, r, err) {
			return
		}
		logger.Warn().Err(err).Msg("failed to create police office")
		page.Error = UserMessage(err)
		page.Form = form.withoutPasswords()
		svc.Pages.Render(w, r, http.StatusUnprocessableEntity, PageOfficeForm, page)
		return
	}

	logger.Info().Str("office_id", office.ID).Msg("Police office created successfully")
	audit(svc, r, events.ActionCreate, events.ResourcePoliceOffice, office.ID,
		map[string]string{"office_name": office.Name, "email": office.Email})

	redirectWithNotice(w, r, svc.Path("/offices"), "created")
}

// EditOfficeService shows the form for an existing office.
func EditOfficeService(svc *Service, w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	sess, _ := middleware.SessionFromContext(r.Context())
	id, ok := officeID(w, r)
	if !ok {
		return
	}

	office, err := svc.API(r).GetOffice(r.Context(), id)
	if err != nil {
		if sessionEnded(svc, w, r, err) {
			return
		}
		logger.Warn().Err(err).Str("office_id", id).Msg("failed to load police office")
		http.Error(w, UserMessage(err), statusFor(err))
		return
	}

	svc.Pages.Render(w, r, http.StatusOK, PageOfficeForm, &Page{
		Title:   "Edit " + office.Name,
		Nav:     "offices",
		Session: sess,
		Form:    officeFormFrom(office),
		Data:    OfficeFormData{ID: id, Map: mapSettings(svc)},
	})
}

// UpdateOfficeService saves changes to an office. A blank password leaves
// the current one in place.
func UpdateOfficeService(svc *Service, w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	sess, _ := middleware.SessionFromContext(r.Context())
	id, ok := officeID(w, r)
	if !ok {
		return
	}

	page := &Page{
		Title:   "Edit police office",
		Nav:     "offices",
		Session: sess,
		Data:    OfficeFormData{ID: id, Map: mapSettings(svc)},
	}

	var form OfficeForm
	if err := decodeForm(r, &form); err != nil {
		renderFormError(svc, w, r, PageOfficeForm, page, form.withoutPasswords(), err)
		return
	}

	office, err := svc.API(r).UpdateOffice(r.Context(), id, form.input())
	if err != nil {
		if sessionEnded(svc, w, r, err) {
			return
		}
		logger.Warn().Err(err).Str("office_id", id).Msg("failed to update police office")
		page.Error = UserMessage(err)
		page.Form = form.withoutPasswords()
		svc.Pages.Render(w, r, http.StatusUnprocessableEntity, PageOfficeForm, page)
		return
	}

	details := map[string]string{"office_name": office.Name}
	if form.Password != "" {
		details["password_changed"] = "true"
	}
	logger.Info().Str("office_id", id).Msg("Police office updated successfully")
	audit(svc, r, events.ActionUpdate, events.ResourcePoliceOffice, id, details)

	redirectWithNotice(w, r, svc.Path("/offices"), "updated")
}

// DeleteOfficeService removes an office.
func DeleteOfficeService(svc *Service, w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	id, ok := officeID(w, r)
	if !ok {
		return
	}

	if err := svc.API(r).DeleteOffice(r.Context(), id); err != nil {
		if sessionEnded(svc, w, r, err) {
			return
		}
		logger.Warn().Err(err).Str("office_id", id).Msg("failed to delete police office")
		http.Error(w, UserMessage(err), statusFor(err))
		return
	}

	logger.Info().Str("office_id", id).Msg("Police office deleted successfully")
	audit(svc, r, events.ActionDelete, events.ResourcePoliceOffice, id, nil)

	redirectWithNotice(w, r, svc.Path("/offices"), "deleted")
}

func (f OfficeForm) input() models.PoliceOfficeInput {
	return models.PoliceOfficeInput{
		Name:          f.Name,
		Email:         f.Email,
		Password:      f.Password,
		HeadOfficer:   f.HeadOfficer,
		ContactNumber: f.ContactNumber,
		Latitude:      f.Latitude,
		Longitude:     f.Longitude,
	}
}

func (f OfficeForm) withoutPasswords() OfficeForm {
	f.Password = ""
	f.ConfirmPassword = ""
	return f
}

func officeFormFrom(o *models.PoliceOffice) OfficeForm {
	form := OfficeForm{
		Name:          o.Name,
		Email:         o.Email,
		HeadOfficer:   o.HeadOfficer,
		ContactNumber: o.ContactNumber,
	}
	if o.Latitude.Valid() && o.Longitude.Valid() {
		form.Latitude = o.Latitude.Float()
		form.Longitude = o.Longitude.Float()
	}
	return form
}

func renderFormError(svc *Service, w http.ResponseWriter, r *http.Request, name string, page *Page, form any, err error) {
	page.Form = form

	var fields FieldErrors
	if errors.As(err, &fields) {
		page.FieldErrors = fields
		if msg, ok := fields["form"]; ok {
			page.Error = msg
		}
	} else {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("invalid form submission")
		page.Error = "The form could not be read."
	}
	svc.Pages.Render(w, r, http.StatusUnprocessableEntity, name, page)
}

func redirectWithNotice(w http.ResponseWriter, r *http.Request, target, notice string) {
	http.Redirect(w, r, target+"?notice="+url.QueryEscape(notice), http.StatusSeeOther)
}

func statusFor(err error) int {
	var fields FieldErrors
	if errors.As(err, &fields) {
		return http.StatusUnprocessableEntity
	}
	if status := backend.StatusOf(err); status >= 400 && status < 500 {
		return status
	}
	return http.StatusBadGateway
}

// officeID reads the office id route variable. Anything that is not a uuid
// cannot name an office, so it is answered with 404 before calling the backend.
func officeID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := mux.Vars(r)["office-id"]
	if _, err := uuid.Parse(id); err != nil {
		http.NotFound(w, r)
		return "", false
	}
	return id, true
}
