// Package auth validates user names, roles and passwords for locally
// provisioned users.
package auth

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"kudos/internal/access"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt ignores bytes past 72
	maxUsernameLength = 64
)

// Usernames double as repository user ids, so they are stored lowercase.
var usernamePattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9._@-]*[a-z0-9])?$`)

// NormalizeUsername returns the canonical lowercase username.
func NormalizeUsername(raw string) (string, error) {
	username := strings.TrimSpace(strings.ToLower(raw))
	if username == "" {
		return "", fmt.Errorf("username is required")
	}
	if len(username) > maxUsernameLength {
		return "", fmt.Errorf("username too long")
	}
	if !usernamePattern.MatchString(username) {
		return "", fmt.Errorf("invalid username")
	}
	return username, nil
}

// ParseRole validates a role name. Empty means member.
func ParseRole(raw string) (string, error) {
	role := strings.TrimSpace(strings.ToLower(raw))
	switch role {
	case "":
		return access.RoleMember, nil
	case access.RoleAdmin, access.RoleMember, access.RoleReader:
		return role, nil
	default:
		return "", fmt.Errorf("invalid role: %s", role)
	}
}

// ValidatePassword checks length bounds.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if len(password) > maxPasswordLength {
		return fmt.Errorf("password must be at most %d bytes", maxPasswordLength)
	}
	return nil
}

// HashPassword hashes one plaintext password for persistent storage.
func HashPassword(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword reports whether candidate matches the bcrypt hash.
func VerifyPassword(passwordHash, candidate string) bool {
	if strings.TrimSpace(passwordHash) == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(candidate)) == nil
}
