package store

import (
	"context"
	"time"

	"kudos/internal/access"
	"kudos/internal/models"
)

// QueryOptions carries the visibility filters threaded through reads and writes.
type QueryOptions struct {
	Zones                  []string
	ForLineage             bool
	ForDuplicateProcessing bool
	EffectiveTime          *time.Time
}

// AttachedQuery selects the elements linked from a target through one relationship type.
type AttachedQuery struct {
	TargetGUID       string
	RelationshipType string
	ResultType       string
	StartFrom        int
	PageSize         int
	Ordering         models.SequencingOrder
	// PublicProperty names a boolean property. Attached elements where it is
	// false are returned only to the user who created them.
	PublicProperty   string
	QueryOptions
}

// NewEntity describes an entity to create.
type NewEntity struct {
	TypeName      string
	QualifiedName string
	Properties    models.Properties
	Zones         []string
	AnchorGUID    string
	EffectiveFrom *time.Time
	EffectiveTo   *time.Time
}

// EntityFilter selects entities for listing.
type EntityFilter struct {
	TypeName string
	Limit    int
	Offset   int
	QueryOptions
}

// RepositoryStore is the generic entity/relationship store used by attachment orchestration.
type RepositoryStore interface {
	GetAttachedElements(ctx context.Context, userID string, q AttachedQuery) ([]models.Entity, error)
	CreateEntity(ctx context.Context, userID string, src *models.ExternalSource, in NewEntity, effectiveTime *time.Time) (string, error)
	LinkEntities(ctx context.Context, userID string, src *models.ExternalSource, fromGUID, toGUID, relationshipType string, props models.Properties, effectiveTime *time.Time) error
	UnlinkOwned(ctx context.Context, userID string, requesterScoped bool, src *models.ExternalSource, targetGUID, relationshipType, resultType string, zones []string, effectiveTime *time.Time) (string, error)
	DeleteEntity(ctx context.Context, userID string, src *models.ExternalSource, guid, typeName string, cascade bool, effectiveTime *time.Time) error
}

// AnchorResolver stamps the owning anchor onto a newly created attachment.
type AnchorResolver interface {
	StampAnchor(ctx context.Context, userID, targetGUID, newGUID string, opts QueryOptions) error
}

// ElementStore manages first-class elements.
type ElementStore interface {
	CreateEntity(ctx context.Context, userID string, src *models.ExternalSource, in NewEntity, effectiveTime *time.Time) (string, error)
	GetEntity(ctx context.Context, userID, guid string, opts QueryOptions) (models.Entity, error)
	ListEntities(ctx context.Context, userID string, filter EntityFilter) ([]models.Entity, error)
	DeleteEntity(ctx context.Context, userID string, src *models.ExternalSource, guid, typeName string, cascade bool, effectiveTime *time.Time) error
	RetireEntity(ctx context.Context, userID, guid string) (models.Entity, error)
	MarkDuplicate(ctx context.Context, userID, guid, duplicateOf string) (models.Entity, error)
}

// OrphanStore finds and purges attachment entities that lost their relationship.
type OrphanStore interface {
	ListUnattachedEntities(ctx context.Context, typeName, relationshipType string, createdBefore time.Time, limit int) ([]EntityRef, error)
	PurgeUnattachedEntities(ctx context.Context, relationshipType string, guids []string) (int, error)
}

// AuthStore manages local users and their zone memberships.
type AuthStore interface {
	CountEnabledUsers(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, username, passwordHash, role string, zones []string) (*AuthUser, error)
	GetUserByUsername(ctx context.Context, username string) (*AuthUser, error)
	ListUsers(ctx context.Context) ([]AuthUser, error)
	SetUserDisabled(ctx context.Context, username string, disabled bool) (*AuthUser, error)
	SetUserZones(ctx context.Context, username string, zones []string) (*AuthUser, error)
	DeleteUser(ctx context.Context, username string) (bool, error)
}

var (
	_ RepositoryStore    = (*Store)(nil)
	_ AnchorResolver     = (*Store)(nil)
	_ ElementStore       = (*Store)(nil)
	_ OrphanStore        = (*Store)(nil)
	_ AuthStore          = (*Store)(nil)
	_ access.GrantSource = (*Store)(nil)
)
