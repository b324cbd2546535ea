package utils

import (
	"crypto/sha256"
	"encoding/base64"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor used for stored credentials.
const PasswordCost = 10

// maxBcryptInput is the longest input bcrypt accepts.
const maxBcryptInput = 72

// PasswordHasher hashes and checks passwords with bcrypt. The zero value uses
// PasswordCost. It holds no state and is safe for concurrent use.
type PasswordHasher struct {
	Cost int
}

var defaultHasher = PasswordHasher{Cost: PasswordCost}

// Hash returns a salted bcrypt hash of password.
func (h PasswordHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = PasswordCost
	}
	bytes, err := bcrypt.GenerateFromPassword(bcryptInput(password), cost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// Verify reports whether password matches hash.
func (h PasswordHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(password)) == nil
}

// bcryptInput passes short passwords through unchanged and folds longer ones
// into a 44 byte SHA-256 digest, so every byte of a long password counts.
func bcryptInput(password string) []byte {
	if len(password) <= maxBcryptInput {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	return defaultHasher.Hash(password)
}

// CheckPassword checks if a password matches a hash
func CheckPassword(password, hash string) bool {
	return defaultHasher.Verify(password, hash)
}

// GenerateID returns a new random (v4) UUID string.
func GenerateID() string {
	return uuid.NewString()
}

// ValidateUserID reports whether id is a well-formed UUID.
func ValidateUserID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
