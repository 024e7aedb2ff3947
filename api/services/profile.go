package services

import (
	"errors"
	"net/http"

	"github.com/crash-ph/admin-console/api/backend"
	"github.com/crash-ph/admin-console/api/middleware"
	"github.com/crash-ph/admin-console/internal/events"
	"github.com/crash-ph/admin-console/models"
	"github.com/rs/zerolog"
)

// ProfileData is everything the profile page shows besides the profile form.
type ProfileData struct {
	Admin          *models.Admin
	Pending        bool
	PasswordErrors FieldErrors
	PasswordError  string
}

var profileNotices = map[string]string{
	"updated":  "Profile updated.",
	"password": "Password changed.",
}

func profilePage(r *http.Request) *Page {
	sess, _ := middleware.SessionFromContext(r.Context())
	return &Page{
		Title:   "Profile",
		Nav:     "profile",
		Session: sess,
		Notice:  profileNotices[r.URL.Query().Get("notice")],
		Data:    ProfileData{},
	}
}

// ProfileService shows the signed-in administrator's profile. Deployments
// without the profile endpoint get the session's copy of the user and an
// inline notice.
func ProfileService(svc *Service, w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	page := profilePage(r)
	data := ProfileData{}

	admin, err := svc.API(r).Profile(r.Context())
	if err != nil {
		if sessionEnded(svc, w, r, err) {
			return
		}
		logger.Warn().Err(err).Msg("failed to load profile")
		page.Error = UserMessage(err)
		data.Pending = errors.Is(err, backend.ErrFeaturePending)
		admin = sessionAdmin(page)
	}

	data.Admin = admin
	page.Data = data
	page.Form = ProfileForm{Username: admin.Username, Email: admin.Email, Contact: admin.ContactNumber()}
	svc.Pages.Render(w, r, http.StatusOK, PageProfile, page)
}

func sessionAdmin(page *Page) *models.Admin {
	admin := &models.Admin{}
	if page.Session == nil {
		return admin
	}
	admin.ID = page.Session.UserID
	admin.Username = page.Session.Username
	admin.Email = page.Session.Email
	return admin
}

// UpdateProfileService saves the profile form.
func UpdateProfileService(svc *Service, w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	page := profilePage(r)
	page.Notice = ""
	page.Data = ProfileData{Admin: sessionAdmin(page)}

	var form ProfileForm
	if err := decodeForm(r, &form); err != nil {
		renderFormError(svc, w, r, PageProfile, page, form, err)
		return
	}

	admin, err := svc.API(r).UpdateProfile(r.Context(), models.ProfileUpdate{
		Username: form.Username,
		Email:    form.Email,
		Contact:  form.Contact,
	})
	if err != nil {
		if sessionEnded(svc, w, r, err) {
			return
		}
		logger.Warn().Err(err).Msg("failed to update profile")
		page.Error = UserMessage(err)
		page.Form = form
		page.Data = ProfileData{Admin: sessionAdmin(page), Pending: errors.Is(err, backend.ErrFeaturePending)}
		svc.Pages.Render(w, r, profileErrorStatus(err), PageProfile, page)
		return
	}

	refreshSessionUser(svc, r, admin)

	logger.Info().Msg("Profile updated successfully")
	audit(svc, r, events.ActionUpdate, events.ResourceProfile, admin.ID, nil)
	redirectWithNotice(w, r, svc.Path("/profile"), "updated")
}

// refreshSessionUser copies changed profile fields onto the stored session so
// the sidebar shows the new name straight away.
func refreshSessionUser(svc *Service, r *http.Request, admin *models.Admin) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		return
	}
	current, err := svc.Sessions.Store.Get(r.Context(), sess.ID)
	if err != nil {
		return
	}
	if admin.Username != "" {
		current.Username = admin.Username
	}
	if admin.Email != "" {
		current.Email = admin.Email
	}
	if err := svc.Sessions.Store.Update(r.Context(), current); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("failed to update session user")
	}
}

// ChangePasswordService sets a new password for the signed-in administrator.
func ChangePasswordService(svc *Service, w http.ResponseWriter, r *http.Request) {
	logger := zerolog.Ctx(r.Context())
	page := profilePage(r)
	page.Notice = ""
	admin := sessionAdmin(page)
	page.Form = ProfileForm{Username: admin.Username, Email: admin.Email}

	var form PasswordForm
	if err := decodeForm(r, &form); err != nil {
		data := ProfileData{Admin: admin}
		var fields FieldErrors
		if errors.As(err, &fields) {
			data.PasswordErrors = fields
		} else {
			data.PasswordError = "The form could not be read."
		}
		page.Data = data
		svc.Pages.Render(w, r, http.StatusUnprocessableEntity, PageProfile, page)
		return
	}

	if err := svc.API(r).ChangePassword(r.Context(), form.NewPassword); err != nil {
		if sessionEnded(svc, w, r, err) {
			return
		}
		logger.Warn().Err(err).Msg("failed to change password")
		page.Data = ProfileData{
			Admin:         admin,
			Pending:       errors.Is(err, backend.ErrFeaturePending),
			PasswordError: UserMessage(err),
		}
		svc.Pages.Render(w, r, profileErrorStatus(err), PageProfile, page)
		return
	}

	logger.Info().Msg("Password changed successfully")
	audit(svc, r, events.ActionPasswordChange, events.ResourceProfile, admin.ID, nil)
	redirectWithNotice(w, r, svc.Path("/profile"), "password")
}

func profileErrorStatus(err error) int {
	if errors.Is(err, backend.ErrFeaturePending) {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}
