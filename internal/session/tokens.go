package session

import (
	"context"
	"errors"
)

// Tokens binds one session to its store so the backend client can read,
// rotate and drop that user's tokens.
type Tokens struct {
	Store Store
	ID    string
}

// Key identifies the session for refresh coordination.
func (t Tokens) Key() string {
	return t.ID
}

// Tokens returns the stored access and refresh tokens. A missing session
// yields empty tokens rather than an error.
func (t Tokens) Tokens(ctx context.Context) (string, string, error) {
	s, err := t.Store.Get(ctx, t.ID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return "", "", nil
		}
		return "", "", err
	}
	return s.AccessToken, s.RefreshToken, nil
}

// SetTokens persists a new access token. The refresh token is only replaced
// when a rotated one is provided.
func (t Tokens) SetTokens(ctx context.Context, access, refresh string) error {
	s, err := t.Store.Get(ctx, t.ID)
	if err != nil {
		return err
	}

	s.AccessToken = access
	if refresh != "" {
		s.RefreshToken = refresh
	}
	return t.Store.Update(ctx, s)
}

// Clear drops the whole session.
func (t Tokens) Clear(ctx context.Context) error {
	return t.Store.Delete(ctx, t.ID)
}
