package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"kudos/internal/access"
)

const userColumns = "id, username, password_hash, role, disabled, created_at, updated_at"

// AuthUser is a locally provisioned user.
type AuthUser struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Zones        []string  `json:"zones"`
	Disabled     bool      `json:"disabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CountEnabledUsers returns the number of non-disabled provisioned users.
func (s *Store) CountEnabledUsers(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE disabled = 0").Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CreateUser creates one local user with its zone memberships.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash, role string, zones []string) (*AuthUser, error) {
	username = normalizeAuthUsername(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidParameter)
	}
	if strings.TrimSpace(passwordHash) == "" {
		return nil, fmt.Errorf("%w: password hash is required", ErrInvalidParameter)
	}
	role = strings.TrimSpace(strings.ToLower(role))
	if role == "" {
		role = access.RoleMember
	}
	if !isValidRole(role) {
		return nil, fmt.Errorf("%w: invalid role %q", ErrInvalidParameter, role)
	}

	userID, err := GenerateUserID(func(id string) (bool, error) {
		return s.userIDExists(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	now := formatTime(s.clock())
	zones = normalizeZones(zones)

	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, username, password_hash, role, disabled, created_at, updated_at)
			VALUES (?, ?, ?, ?, 0, ?, ?)
		`, userID, username, passwordHash, role, now, now); err != nil {
			return err
		}
		return replaceUserZonesTx(ctx, tx, userID, zones)
	})
	if err != nil {
		return nil, err
	}
	return s.GetUserByUsername(ctx, username)
}

// GetUserByUsername returns a provisioned user by normalized username, or nil.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*AuthUser, error) {
	username = normalizeAuthUsername(username)
	if username == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ? LIMIT 1", username)
	user, err := scanAuthUser(row)
	if err != nil || user == nil {
		return nil, err
	}
	if user.Zones, err = s.userZones(ctx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers returns all provisioned users sorted by username.
func (s *Store) ListUsers(ctx context.Context) ([]AuthUser, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY username ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]AuthUser, 0)
	for rows.Next() {
		user, err := scanAuthUser(rows)
		if err != nil {
			return nil, err
		}
		if user == nil {
			continue
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for i := range users {
		if users[i].Zones, err = s.userZones(ctx, users[i].ID); err != nil {
			return nil, err
		}
	}
	return users, nil
}

// SetUserDisabled updates one user's disabled state. Returns nil when the user does not exist.
func (s *Store) SetUserDisabled(ctx context.Context, username string, disabled bool) (*AuthUser, error) {
	username = normalizeAuthUsername(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidParameter)
	}

	disabledInt := 0
	if disabled {
		disabledInt = 1
	}
	result, err := s.db.ExecContext(ctx, "UPDATE users SET disabled = ?, updated_at = ? WHERE username = ?",
		disabledInt, formatTime(s.clock()), username)
	if err != nil {
		return nil, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}
	return s.GetUserByUsername(ctx, username)
}

// SetUserZones replaces one user's zone memberships. Returns nil when the user does not exist.
func (s *Store) SetUserZones(ctx context.Context, username string, zones []string) (*AuthUser, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil || user == nil {
		return nil, err
	}
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE users SET updated_at = ? WHERE id = ?", formatTime(s.clock()), user.ID); err != nil {
			return err
		}
		return replaceUserZonesTx(ctx, tx, user.ID, normalizeZones(zones))
	})
	if err != nil {
		return nil, err
	}
	return s.GetUserByUsername(ctx, username)
}

// DeleteUser deletes one user by username.
func (s *Store) DeleteUser(ctx context.Context, username string) (bool, error) {
	username = normalizeAuthUsername(username)
	if username == "" {
		return false, fmt.Errorf("%w: username is required", ErrInvalidParameter)
	}
	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE username = ?", username)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// UserGrant resolves a requesting user id (a username) for the zone verifier.
// Unknown users get an empty grant.
func (s *Store) UserGrant(ctx context.Context, userID string) (access.Grant, error) {
	user, err := s.GetUserByUsername(ctx, userID)
	if err != nil {
		return access.Grant{}, err
	}
	if user == nil {
		return access.Grant{}, nil
	}
	return access.Grant{
		Known:    true,
		Role:     user.Role,
		Zones:    user.Zones,
		Disabled: user.Disabled,
	}, nil
}

func (s *Store) userZones(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT zone FROM user_zones WHERE user_id = ? ORDER BY zone", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	zones := []string{}
	for rows.Next() {
		var zone string
		if err := rows.Scan(&zone); err != nil {
			return nil, err
		}
		zones = append(zones, zone)
	}
	return zones, rows.Err()
}

func (s *Store) userIDExists(ctx context.Context, id string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ? LIMIT 1", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func replaceUserZonesTx(ctx context.Context, tx *sql.Tx, userID string, zones []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM user_zones WHERE user_id = ?", userID); err != nil {
		return err
	}
	for _, zone := range zones {
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO user_zones (user_id, zone) VALUES (?, ?)", userID, zone); err != nil {
			return err
		}
	}
	return nil
}

func scanAuthUser(scanner rowScanner) (*AuthUser, error) {
	var user AuthUser
	var disabled int
	var createdAt string
	var updatedAt string
	if err := scanner.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &disabled, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.Disabled = disabled != 0
	parsedCreated, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	parsedUpdated, err := parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	user.CreatedAt = parsedCreated
	user.UpdatedAt = parsedUpdated
	return &user, nil
}

func normalizeAuthUsername(username string) string {
	return strings.TrimSpace(strings.ToLower(username))
}

func isValidRole(role string) bool {
	switch role {
	case access.RoleAdmin, access.RoleMember, access.RoleReader:
		return true
	default:
		return false
	}
}
