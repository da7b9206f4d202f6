// Package access decides whether a user may act on a repository element.
//
// The repository store calls a Verifier before every guarded read or write,
// so callers above the store never perform authorization themselves.
package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"kudos/internal/models"
)

// ErrUnauthorized is returned (wrapped) whenever a verifier denies an action.
var ErrUnauthorized = errors.New("unauthorized")

// Action is a guarded operation on an element.
type Action string

const (
	ActionRead   Action = "read"
	ActionAttach Action = "attach"
	ActionDetach Action = "detach"
	ActionDelete Action = "delete"
	ActionUpdate Action = "update"
)

// User roles.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleReader = "reader"
)

// Grant is what the verifier knows about one user.
type Grant struct {
	Known    bool
	Role     string
	Zones    []string
	Disabled bool
}

// GrantSource resolves a user id to its grant.
type GrantSource interface {
	UserGrant(ctx context.Context, userID string) (Grant, error)
}

// Verifier validates one action by one user against one element.
type Verifier interface {
	ValidateElementAccess(ctx context.Context, userID string, action Action, element models.Entity) error
}

// AllowAll permits every action by a non-empty user id.
type AllowAll struct{}

func (AllowAll) ValidateElementAccess(_ context.Context, userID string, _ Action, _ models.Entity) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", ErrUnauthorized)
	}
	return nil
}

// ZoneVerifier grants access through shared zone membership.
//
// Admins may do anything. Elements without zones are open to every enabled
// user. Readers may only read. Everyone else needs at least one zone in
// common with the element.
type ZoneVerifier struct {
	grants GrantSource
}

// NewZoneVerifier constructs a ZoneVerifier.
func NewZoneVerifier(grants GrantSource) *ZoneVerifier {
	return &ZoneVerifier{grants: grants}
}

func (v *ZoneVerifier) ValidateElementAccess(ctx context.Context, userID string, action Action, element models.Entity) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrUnauthorized)
	}
	if v == nil || v.grants == nil {
		return nil
	}

	grant, err := v.grants.UserGrant(ctx, userID)
	if err != nil {
		return err
	}
	if grant.Disabled {
		return fmt.Errorf("%w: user %s is disabled", ErrUnauthorized, userID)
	}
	if grant.Role == RoleAdmin {
		return nil
	}
	if action != ActionRead && grant.Role == RoleReader {
		return fmt.Errorf("%w: user %s may not %s element %s", ErrUnauthorized, userID, action, element.GUID)
	}
	if len(element.Zones) == 0 {
		return nil
	}
	if grant.Known && sharesZone(grant.Zones, element.Zones) {
		return nil
	}
	return fmt.Errorf("%w: user %s may not %s element %s", ErrUnauthorized, userID, action, element.GUID)
}

func sharesZone(a, b []string) bool {
	set := make(map[string]struct{}, len(a))
	for _, zone := range a {
		set[zone] = struct{}{}
	}
	for _, zone := range b {
		if _, ok := set[zone]; ok {
			return true
		}
	}
	return false
}
