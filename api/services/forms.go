package services

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// LoginForm is posted by the sign-in page.
type LoginForm struct {
	Email    string `mapstructure:"email" validate:"required,email"`
	Password string `mapstructure:"password" validate:"required"`
}

// OfficeForm is posted by the create and edit office pages.
type OfficeForm struct {
	Name            string  `mapstructure:"office_name" validate:"required,max=255"`
	Email           string  `mapstructure:"email" validate:"required,email"`
	Password        string  `mapstructure:"password" validate:"omitempty,min=6"`
	ConfirmPassword string  `mapstructure:"confirm_password" validate:"eqfield=Password"`
	HeadOfficer     string  `mapstructure:"head_officer" validate:"max=255"`
	ContactNumber   string  `mapstructure:"contact_number" validate:"max=20"`
	Latitude        float64 `mapstructure:"latitude" validate:"latitude"`
	Longitude       float64 `mapstructure:"longitude" validate:"longitude"`
}

// ManualReportForm is posted by the manual report page. Times are the
// browser's datetime-local values.
type ManualReportForm struct {
	Category       string  `mapstructure:"category" validate:"required,max=100"`
	Description    string  `mapstructure:"description" validate:"max=2000"`
	Latitude       float64 `mapstructure:"latitude" validate:"latitude"`
	Longitude      float64 `mapstructure:"longitude" validate:"longitude"`
	Reporter       string  `mapstructure:"reporter" validate:"omitempty,uuid"`
	AssignedOffice string  `mapstructure:"assigned_office" validate:"required"`
	Status         string  `mapstructure:"status" validate:"omitempty,oneof=Pending Resolved"`
	Remarks        string  `mapstructure:"remarks" validate:"max=2000"`
	CreatedAt      string  `mapstructure:"created_at"`
	UpdatedAt      string  `mapstructure:"updated_at"`
}

// ProfileForm is posted by the profile page.
type ProfileForm struct {
	Username string `mapstructure:"username" validate:"required,max=150"`
	Email    string `mapstructure:"email" validate:"required,email"`
	Contact  string `mapstructure:"contact" validate:"max=20"`
}

// PasswordForm is posted by the change password form.
type PasswordForm struct {
	NewPassword     string `mapstructure:"new_password" validate:"required,min=6"`
	ConfirmPassword string `mapstructure:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// FieldErrors maps form field names to messages.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, k+": "+v)
	}
	return strings.Join(parts, "; ")
}

var validate = newValidator()

type coordinates interface {
	coords() (float64, float64)
}

func (f OfficeForm) coords() (float64, float64)       { return f.Latitude, f.Longitude }
func (f ManualReportForm) coords() (float64, float64) { return f.Latitude, f.Longitude }

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields under their form names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// (0, 0) means no location was picked
	notOrigin := func(sl validator.StructLevel) {
		c := sl.Current().Interface().(coordinates)
		lat, lng := c.coords()
		if lat == 0 && lng == 0 {
			sl.ReportError(lat, "latitude", "Latitude", "location", "")
		}
	}
	v.RegisterStructValidation(notOrigin, OfficeForm{}, ManualReportForm{})

	return v
}

// decodeForm parses the request form into out and validates it.
func decodeForm(r *http.Request, out any) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("failed to parse form: %w", err)
	}

	values := make(map[string]string, len(r.PostForm))
	for k, v := range r.PostForm {
		if len(v) > 0 {
			values[k] = strings.TrimSpace(v[0])
		}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(values); err != nil {
		return FieldErrors{"form": "Some values could not be read. Check the numbers you entered."}
	}

	return validateForm(out)
}

func validateForm(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	fields := FieldErrors{}
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = fieldMessage(fe)
		}
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		return fmt.Sprintf("Must be at least %s characters.", fe.Param())
	case "max":
		return fmt.Sprintf("Must be at most %s characters.", fe.Param())
	case "eqfield":
		return "Passwords do not match."
	case "latitude":
		return "Latitude must be between -90 and 90."
	case "longitude":
		return "Longitude must be between -180 and 180."
	case "location":
		return "Pick a location on the map."
	case "uuid":
		return "Enter a valid user id."
	case "oneof":
		return "Choose one of: " + strings.ReplaceAll(fe.Param(), " ", ", ") + "."
	default:
		return "This value is not valid."
	}
}

// datetimeLocalLayouts are the formats browsers submit for datetime-local.
var datetimeLocalLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// toUTC interprets a datetime-local value in loc and returns it as RFC 3339
// UTC. Values that already carry an offset are converted as they are.
func toUTC(value string, loc *time.Location) (string, error) {
	if value == "" {
		return "", nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format(time.RFC3339), nil
	}
	for _, layout := range datetimeLocalLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.UTC().Format(time.RFC3339), nil
		}
	}
	return "", fmt.Errorf("invalid date and time %q", value)
}
