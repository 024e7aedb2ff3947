package hashing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_KnownVector(t *testing.T) {
	assert.Equal(t,
		"pbkdf2_sha256$1$salt$Eg+2z/z4syxD5yJSVsT4N6hlSMkszDVICAWYfLcL4Xs=",
		Encode("password", "salt", 1))
}

func TestCheck_DjangoHash(t *testing.T) {
	encoded := "pbkdf2_sha256$1000$seasalt$Uxc9q1exjd73R/bOV1+XCRfBdA80RZQWCPtidXIAyIE="

	ok, err := Check("secret123", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Check("secret124", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHash(t *testing.T) {
	encoded, err := Hash("secret123", 1000)
	require.NoError(t, err)

	parts := strings.Split(encoded, "$")
	require.Len(t, parts, 4)
	assert.Equal(t, Algorithm, parts[0])
	assert.Equal(t, "1000", parts[1])
	assert.Len(t, parts[2], saltLength)

	ok, err := Check("secret123", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	other, err := Hash("secret123", 1000)
	require.NoError(t, err)
	assert.NotEqual(t, encoded, other)
}

func TestHash_Empty(t *testing.T) {
	_, err := Hash("", 0)
	assert.ErrorIs(t, err, ErrEmptyPassword)
}

func TestCheck_Invalid(t *testing.T) {
	for _, encoded := range []string{"", "md5$1$a$b", "pbkdf2_sha256$x$salt$abc", "pbkdf2_sha256$1$salt"} {
		_, err := Check("secret123", encoded)
		assert.ErrorIs(t, err, ErrInvalidHash, encoded)
	}
}
