package authn

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
)

func signedToken(t *testing.T, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestParseClaims_BackendToken(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	token := signedToken(t, Claims{
		StandardClaims: jwt.StandardClaims{ExpiresAt: exp.Unix()},
		UserID:         "6c1f7a8e-1d5c-4a39-9f0e-6a4f2b1c9d77",
		Role:           "admin",
		Email:          "admin@crash.ph",
		TokenType:      "refresh",
	})

	claims, err := ParseClaims(token)
	assert.NoError(t, err)
	assert.Equal(t, "6c1f7a8e-1d5c-4a39-9f0e-6a4f2b1c9d77", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "admin@crash.ph", claims.Email)
	assert.Equal(t, "refresh", claims.TokenType)
	assert.Equal(t, exp, claims.Expiry())
}

func TestParseClaims_ExpiredTokenStillDecodes(t *testing.T) {
	token := signedToken(t, Claims{
		StandardClaims: jwt.StandardClaims{ExpiresAt: time.Now().Add(-time.Hour).Unix()},
		Role:           "admin",
	})

	claims, err := ParseClaims(token)
	assert.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)
}

func TestParseClaims_NotAToken(t *testing.T) {
	_, err := ParseClaims("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestClaims_ExpiryWithoutExp(t *testing.T) {
	assert.True(t, Claims{}.Expiry().IsZero())
}
