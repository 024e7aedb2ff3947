package models

import (
	"encoding/json"
	"time"
)

// Admin is the administrator account returned by login and the profile endpoint.
type Admin struct {
	ID        string     `json:"admin_id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Contact   string     `json:"contact,omitempty"`
	ContactNo string     `json:"contact_no,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// ContactNumber returns whichever contact field the backend populated.
func (a Admin) ContactNumber() string {
	if a.ContactNo != "" {
		return a.ContactNo
	}
	return a.Contact
}

// LoginRequest is the body of POST auth/login/.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Message string          `json:"message"`
	Role    string          `json:"role"`
	User    json.RawMessage `json:"user"`
	Access  string          `json:"access"`
	Refresh string          `json:"refresh"`
}

// RefreshRequest is the body of POST auth/refresh/.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse carries the new access token and, when rotation is enabled,
// a new refresh token.
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// ProfileUpdate holds the optional fields of a profile update.
type ProfileUpdate struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Contact  string `json:"contact,omitempty"`
}

// PasswordChange is the body of PATCH admin/profile/password/.
type PasswordChange struct {
	NewPassword string `json:"new_password"`
}

// PasswordHashRequest asks the backend to hash a plain password.
type PasswordHashRequest struct {
	Password string `json:"password"`
}

// PasswordHashResponse carries a backend-generated password hash.
type PasswordHashResponse struct {
	Hash string `json:"hash"`
}

// UserSummary is a citizen account as returned by the admin user search.
type UserSummary struct {
	ID          string `json:"user_id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number,omitempty"`
}
