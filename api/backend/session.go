package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/crash-ph/admin-console/internal/metrics"
	"github.com/crash-ph/admin-console/internal/session"
	"github.com/rs/zerolog"
)

// TokenStore holds the token pair of one signed-in user.
type TokenStore interface {
	// Key identifies the session; concurrent refreshes for the same key are
	// collapsed into one.
	Key() string

	// Tokens returns the stored access and refresh tokens. Empty values mean
	// the session has none.
	Tokens(ctx context.Context) (access, refresh string, err error)

	// SetTokens stores a new access token and, when not empty, a rotated
	// refresh token.
	SetTokens(ctx context.Context, access, refresh string) error

	// Clear removes all session state.
	Clear(ctx context.Context) error
}

// SessionClient makes authenticated calls on behalf of one session.
type SessionClient struct {
	client *Client
	tokens TokenStore
}

// Session returns a client that authenticates with the tokens in store.
func (c *Client) Session(tokens TokenStore) *SessionClient {
	return &SessionClient{client: c, tokens: tokens}
}

// do sends an authenticated request. A 401 triggers one refresh of the access
// token, shared with any concurrent request of the same session, followed by
// a single retry.
func (s *SessionClient) do(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, int, error) {
	access, _, err := s.tokens.Tokens(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read session tokens: %w", err)
	}
	if access == "" {
		return nil, http.StatusUnauthorized, ErrSessionExpired
	}

	u := s.client.endpoint(path, query)

	respBody, status, err := s.client.makeRequest(ctx, method, u, access, payload)
	if status != http.StatusUnauthorized {
		return respBody, status, err
	}

	access, err = s.refresh(ctx, access)
	if err != nil {
		return nil, http.StatusUnauthorized, err
	}

	respBody, status, err = s.client.makeRequest(ctx, method, u, access, payload)
	if status == http.StatusUnauthorized {
		zerolog.Ctx(ctx).Warn().Str("path", path).Msg("request rejected after token refresh")
		s.expire(ctx)
		return nil, status, ErrSessionExpired
	}
	return respBody, status, err
}

// refresh returns a usable access token to replace failed. If another request
// already replaced it, the stored token is returned without a new refresh.
func (s *SessionClient) refresh(ctx context.Context, failed string) (string, error) {
	// The refresh must outlive the request that happens to start it, as
	// other requests may be waiting on the result.
	flightCtx := context.WithoutCancel(ctx)

	v, err, _ := s.client.refreshes.Do(s.tokens.Key(), func() (any, error) {
		logger := zerolog.Ctx(flightCtx)

		current, refresh, err := s.tokens.Tokens(flightCtx)
		if err != nil {
			return "", fmt.Errorf("failed to read session tokens: %w", err)
		}
		if current != "" && current != failed {
			metrics.TokenRefreshes.WithLabelValues("shared").Inc()
			return current, nil
		}
		if refresh == "" {
			logger.Info().Msg("no refresh token stored, ending session")
			s.expire(flightCtx)
			return "", ErrSessionExpired
		}

		resp, err := s.client.Refresh(flightCtx, refresh)
		if err != nil {
			metrics.TokenRefreshes.WithLabelValues("failure").Inc()
			logger.Warn().Err(err).Msg("token refresh failed, ending session")
			s.expire(flightCtx)
			return "", fmt.Errorf("%w: %w", ErrSessionExpired, err)
		}

		if err := s.tokens.SetTokens(flightCtx, resp.Access, resp.Refresh); err != nil {
			// Signed out elsewhere while the refresh was in flight
			if errors.Is(err, session.ErrSessionNotFound) {
				return "", fmt.Errorf("%w: %w", ErrSessionExpired, err)
			}
			return "", fmt.Errorf("failed to store refreshed tokens: %w", err)
		}

		metrics.TokenRefreshes.WithLabelValues("success").Inc()
		logger.Debug().Msg("access token refreshed")
		return resp.Access, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *SessionClient) expire(ctx context.Context) {
	if err := s.tokens.Clear(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to clear session")
	}
}

// pending converts "not implemented" style answers into ErrFeaturePending.
func pending(err error) error {
	switch StatusOf(err) {
	case http.StatusNotFound, http.StatusMethodNotAllowed, http.StatusNotImplemented:
		return fmt.Errorf("%w: %w", ErrFeaturePending, err)
	}
	return err
}

// IsSessionExpired reports whether err ended the session.
func IsSessionExpired(err error) bool {
	return errors.Is(err, ErrSessionExpired)
}
