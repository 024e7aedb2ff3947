// Package hashing produces and checks Django compatible PBKDF2-SHA256
// password hashes ("pbkdf2_sha256$<iterations>$<salt>$<base64 digest>").
package hashing

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	Algorithm = "pbkdf2_sha256"

	// DefaultIterations matches the work factor of current Django releases.
	DefaultIterations = 870000

	saltLength = 22
	saltChars  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	ErrEmptyPassword = errors.New("password cannot be empty")
	ErrInvalidHash   = errors.New("invalid password hash")
)

// Hash hashes password with a random salt.
func Hash(password string, iterations int) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if iterations <= 0 {
		iterations = DefaultIterations
	}

	salt, err := randomSalt()
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return Encode(password, salt, iterations), nil
}

// Encode hashes password with the given salt and iteration count.
func Encode(password, salt string, iterations int) string {
	digest := pbkdf2.Key([]byte(password), []byte(salt), iterations, sha256.Size, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s", Algorithm, iterations, salt, base64.StdEncoding.EncodeToString(digest))
}

// Check reports whether password matches encoded.
func Check(password, encoded string) (bool, error) {
	parts := strings.SplitN(encoded, "$", 4)
	if len(parts) != 4 || parts[0] != Algorithm {
		return false, ErrInvalidHash
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false, ErrInvalidHash
	}

	candidate := Encode(password, parts[2], iterations)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(encoded)) == 1, nil
}

func randomSalt() (string, error) {
	var sb strings.Builder
	limit := big.NewInt(int64(len(saltChars)))
	for i := 0; i < saltLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		sb.WriteByte(saltChars[n.Int64()])
	}
	return sb.String(), nil
}
