package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/crash-ph/admin-console/models"
)

// MapData returns reports, offices and checkpoints for the live map.
func (s *SessionClient) MapData(ctx context.Context) (*models.MapData, error) {
	respBody, _, err := s.do(ctx, http.MethodGet, "admin/map/data/", nil, nil)
	if err != nil {
		return nil, err
	}

	var data models.MapData
	if err := json.Unmarshal(respBody, &data); err != nil {
		return nil, fmt.Errorf("failed to decode map data: %w", err)
	}
	return &data, nil
}

// ActiveCheckpoints returns the checkpoints whose shift covers the current time.
func (s *SessionClient) ActiveCheckpoints(ctx context.Context) ([]models.Checkpoint, error) {
	respBody, _, err := s.do(ctx, http.MethodGet, "checkpoints/active/", nil, nil)
	if err != nil {
		return nil, err
	}

	var checkpoints []models.Checkpoint
	if err := json.Unmarshal(respBody, &checkpoints); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoints: %w", err)
	}
	return checkpoints, nil
}

// ReverseGeocode resolves a coordinate pair to an address.
func (s *SessionClient) ReverseGeocode(ctx context.Context, lat, lng float64) (*models.GeocodeResult, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lng", strconv.FormatFloat(lng, 'f', -1, 64))

	respBody, _, err := s.do(ctx, http.MethodGet, "geocode/reverse/", query, nil)
	if err != nil {
		return nil, err
	}

	var result models.GeocodeResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to decode geocode result: %w", err)
	}
	return &result, nil
}

// CreateManualReport inserts a report on behalf of a caller who reported it
// outside the mobile app.
func (s *SessionClient) CreateManualReport(ctx context.Context, in models.ManualReportInput) (*models.Report, error) {
	respBody, _, err := s.do(ctx, http.MethodPost, "admin/reports/manual/", nil, in)
	if err != nil {
		return nil, err
	}

	var report models.Report
	if err := json.Unmarshal(respBody, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}

// SearchUsers looks up citizen accounts by name, email or phone.
func (s *SessionClient) SearchUsers(ctx context.Context, q string) ([]models.UserSummary, error) {
	query := url.Values{}
	query.Set("q", q)

	respBody, _, err := s.do(ctx, http.MethodGet, "admin/users/search/", query, nil)
	if err != nil {
		return nil, pending(err)
	}

	var users []models.UserSummary
	if err := json.Unmarshal(respBody, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

// Profile returns the signed-in administrator.
func (s *SessionClient) Profile(ctx context.Context) (*models.Admin, error) {
	respBody, _, err := s.do(ctx, http.MethodGet, "admin/profile/", nil, nil)
	if err != nil {
		return nil, pending(err)
	}

	var admin models.Admin
	if err := json.Unmarshal(respBody, &admin); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &admin, nil
}

// UpdateProfile changes the signed-in administrator's details.
func (s *SessionClient) UpdateProfile(ctx context.Context, in models.ProfileUpdate) (*models.Admin, error) {
	respBody, _, err := s.do(ctx, http.MethodPatch, "admin/profile/", nil, in)
	if err != nil {
		return nil, pending(err)
	}

	var admin models.Admin
	if err := json.Unmarshal(respBody, &admin); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	return &admin, nil
}

// ChangePassword sets a new password for the signed-in administrator.
func (s *SessionClient) ChangePassword(ctx context.Context, newPassword string) error {
	_, _, err := s.do(ctx, http.MethodPatch, "admin/profile/password/", nil,
		models.PasswordChange{NewPassword: newPassword})
	return pending(err)
}

// HashPassword asks the backend for a password hash.
func (s *SessionClient) HashPassword(ctx context.Context, password string) (string, error) {
	respBody, _, err := s.do(ctx, http.MethodPost, "admin/password-hash/", nil,
		models.PasswordHashRequest{Password: password})
	if err != nil {
		return "", pending(err)
	}

	var resp models.PasswordHashResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("failed to decode password hash: %w", err)
	}
	return resp.Hash, nil
}
