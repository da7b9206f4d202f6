package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	internalauth "kudos/internal/auth"
	"kudos/internal/store"
)

var errInvalidCredentials = errors.New("invalid credentials")

const defaultEnabledUsersCacheTTL = 5 * time.Second

// AuthService authenticates local users and provisions them for admins.
type AuthService struct {
	store store.AuthStore

	enabledUsersCacheTTL time.Duration
	mu                   sync.Mutex
	enabledUsersCount    int
	enabledUsersCachedAt time.Time
}

func NewAuthService(authStore store.AuthStore) *AuthService {
	if authStore == nil {
		return nil
	}
	return &AuthService{store: authStore, enabledUsersCacheTTL: defaultEnabledUsersCacheTTL}
}

// AuthRequired reports whether requests must carry credentials: when a
// service token is configured or at least one enabled user exists.
func (a *AuthService) AuthRequired(ctx context.Context, apiTokenConfigured bool, now time.Time) (bool, error) {
	if apiTokenConfigured {
		return true, nil
	}
	if a == nil || a.store == nil {
		return false, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.enabledUsersCachedAt.IsZero() && now.Sub(a.enabledUsersCachedAt) < a.enabledUsersCacheTTL {
		return a.enabledUsersCount > 0, nil
	}
	count, err := a.store.CountEnabledUsers(ctx)
	if err != nil {
		return false, err
	}
	a.enabledUsersCount = count
	a.enabledUsersCachedAt = now
	return count > 0, nil
}

// Authenticate checks a username/password pair against enabled users.
func (a *AuthService) Authenticate(ctx context.Context, username, password string) (*store.AuthUser, error) {
	if a == nil || a.store == nil {
		return nil, fmt.Errorf("auth store is required")
	}
	normalized, err := internalauth.NormalizeUsername(username)
	if err != nil {
		return nil, errInvalidCredentials
	}
	if strings.TrimSpace(password) == "" {
		return nil, errInvalidCredentials
	}

	user, err := a.store.GetUserByUsername(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Disabled || !internalauth.VerifyPassword(user.PasswordHash, password) {
		return nil, errInvalidCredentials
	}
	return user, nil
}

// CreateUser provisions a user with a hashed password.
func (a *AuthService) CreateUser(ctx context.Context, username, password, role string, zones []string) (*store.AuthUser, error) {
	if a == nil || a.store == nil {
		return nil, fmt.Errorf("auth store is required")
	}
	normalized, err := internalauth.NormalizeUsername(username)
	if err != nil {
		return nil, badRequest(err)
	}
	parsedRole, err := internalauth.ParseRole(role)
	if err != nil {
		return nil, badRequest(err)
	}
	normalizedZones, err := normalizeZones(zones)
	if err != nil {
		return nil, err
	}
	hash, err := internalauth.HashPassword(password)
	if err != nil {
		return nil, badRequest(err)
	}

	created, err := a.store.CreateUser(ctx, normalized, hash, parsedRole, normalizedZones)
	if err != nil {
		if isUniqueConstraint(err) {
			return nil, conflictCode(fmt.Errorf("username already exists"), ErrCodeConflict)
		}
		return nil, classifyStoreError(err)
	}
	a.invalidate()
	return created, nil
}

func (a *AuthService) ListUsers(ctx context.Context) ([]store.AuthUser, error) {
	if a == nil || a.store == nil {
		return nil, fmt.Errorf("auth store is required")
	}
	return a.store.ListUsers(ctx)
}

func (a *AuthService) SetUserDisabled(ctx context.Context, username string, disabled bool) (*store.AuthUser, error) {
	normalized, err := a.requireUsername(username)
	if err != nil {
		return nil, err
	}
	updated, err := a.store.SetUserDisabled(ctx, normalized, disabled)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	a.invalidate()
	return updated, nil
}

func (a *AuthService) SetUserZones(ctx context.Context, username string, zones []string) (*store.AuthUser, error) {
	normalized, err := a.requireUsername(username)
	if err != nil {
		return nil, err
	}
	normalizedZones, err := normalizeZones(zones)
	if err != nil {
		return nil, err
	}
	updated, err := a.store.SetUserZones(ctx, normalized, normalizedZones)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return updated, nil
}

func (a *AuthService) DeleteUser(ctx context.Context, username string) (bool, error) {
	normalized, err := a.requireUsername(username)
	if err != nil {
		return false, err
	}
	deleted, err := a.store.DeleteUser(ctx, normalized)
	if err != nil {
		return false, classifyStoreError(err)
	}
	a.invalidate()
	return deleted, nil
}

func (a *AuthService) requireUsername(username string) (string, error) {
	if a == nil || a.store == nil {
		return "", fmt.Errorf("auth store is required")
	}
	normalized, err := internalauth.NormalizeUsername(username)
	if err != nil {
		return "", badRequest(err)
	}
	return normalized, nil
}

func (a *AuthService) invalidate() {
	a.mu.Lock()
	a.enabledUsersCachedAt = time.Time{}
	a.mu.Unlock()
}
