package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/crash-ph/admin-console/models"
)

const officesPath = "admin/police-offices/"

func officePath(id string) string {
	return officesPath + url.PathEscape(id) + "/"
}

// ListOffices returns every police office account.
func (s *SessionClient) ListOffices(ctx context.Context) ([]models.PoliceOffice, error) {
	respBody, _, err := s.do(ctx, http.MethodGet, officesPath, nil, nil)
	if err != nil {
		return nil, err
	}

	var offices []models.PoliceOffice
	if err := json.Unmarshal(respBody, &offices); err != nil {
		return nil, fmt.Errorf("failed to decode offices: %w", err)
	}
	return offices, nil
}

// GetOffice returns one police office.
func (s *SessionClient) GetOffice(ctx context.Context, id string) (*models.PoliceOffice, error) {
	respBody, _, err := s.do(ctx, http.MethodGet, officePath(id), nil, nil)
	if err != nil {
		return nil, err
	}

	var office models.PoliceOffice
	if err := json.Unmarshal(respBody, &office); err != nil {
		return nil, fmt.Errorf("failed to decode office: %w", err)
	}
	return &office, nil
}

// CreateOffice creates a police office account.
func (s *SessionClient) CreateOffice(ctx context.Context, in models.PoliceOfficeInput) (*models.PoliceOffice, error) {
	respBody, _, err := s.do(ctx, http.MethodPost, officesPath, nil, in)
	if err != nil {
		return nil, err
	}

	var office models.PoliceOffice
	if err := json.Unmarshal(respBody, &office); err != nil {
		return nil, fmt.Errorf("failed to decode office: %w", err)
	}
	return &office, nil
}

// UpdateOffice changes a police office. The password is only changed when set.
func (s *SessionClient) UpdateOffice(ctx context.Context, id string, in models.PoliceOfficeInput) (*models.PoliceOffice, error) {
	respBody, _, err := s.do(ctx, http.MethodPatch, officePath(id), nil, in)
	if err != nil {
		return nil, err
	}

	var office models.PoliceOffice
	if err := json.Unmarshal(respBody, &office); err != nil {
		return nil, fmt.Errorf("failed to decode office: %w", err)
	}
	return &office, nil
}

// DeleteOffice removes a police office account.
func (s *SessionClient) DeleteOffice(ctx context.Context, id string) error {
	_, _, err := s.do(ctx, http.MethodDelete, officePath(id), nil, nil)
	return err
}
