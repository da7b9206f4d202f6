package api

import (
	"time"

	"kudos/internal/models"
)

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// InfoResponse is the response from GET /v1/info.
type InfoResponse struct {
	DBPath            string         `json:"db_path"`
	SchemaVersion     int            `json:"schema_version"`
	EntityCounts      map[string]int `json:"entity_counts"`
	RelationshipCount int            `json:"relationship_count"`
	SupportedZones    []string       `json:"supported_zones"`
	AuthRequired      bool           `json:"auth_required"`
}

// ElementCreateRequest is the payload for POST /v1/elements.
type ElementCreateRequest struct {
	TypeName           string            `json:"type_name,omitempty" yaml:"type_name,omitempty"`
	QualifiedName      string            `json:"qualified_name" yaml:"qualified_name"`
	Properties         models.Properties `json:"properties,omitempty" yaml:"properties,omitempty"`
	Zones              []string          `json:"zones,omitempty" yaml:"zones,omitempty"`
	AnchorGUID         string            `json:"anchor_guid,omitempty" yaml:"anchor_guid,omitempty"`
	EffectiveFrom      *time.Time        `json:"effective_from,omitempty" yaml:"effective_from,omitempty"`
	EffectiveTo        *time.Time        `json:"effective_to,omitempty" yaml:"effective_to,omitempty"`
	ExternalSourceGUID string            `json:"external_source_guid,omitempty" yaml:"external_source_guid,omitempty"`
	ExternalSourceName string            `json:"external_source_name,omitempty" yaml:"external_source_name,omitempty"`
}

// ElementResponse wraps an element with its Like count.
type ElementResponse struct {
	models.Entity
	LikeCount *int `json:"like_count,omitempty"`
}

// ElementDuplicateRequest marks an element as a duplicate of another.
type ElementDuplicateRequest struct {
	DuplicateOf string `json:"duplicate_of"`
}

// ElementDeleteResponse reports a deleted element.
type ElementDeleteResponse struct {
	GUID    string `json:"guid"`
	Deleted bool   `json:"deleted"`
}

// LikeSaveRequest is the payload for POST /v1/elements/{guid}/likes.
type LikeSaveRequest struct {
	IsPublic               *bool      `json:"is_public"`
	ExternalSourceGUID     string     `json:"external_source_guid,omitempty"`
	ExternalSourceName     string     `json:"external_source_name,omitempty"`
	EffectiveTime          *time.Time `json:"effective_time,omitempty"`
	ForLineage             bool       `json:"for_lineage,omitempty"`
	ForDuplicateProcessing bool       `json:"for_duplicate_processing,omitempty"`
}

// LikeSaveResponse reports the GUID of the new Like. Declined is true when
// the repository accepted the request without storing a Like.
type LikeSaveResponse struct {
	GUID     string `json:"guid"`
	Declined bool   `json:"declined"`
}

// LikeRemoveResponse reports the outcome of DELETE /v1/elements/{guid}/likes.
type LikeRemoveResponse struct {
	ElementGUID string `json:"element_guid"`
	Removed     bool   `json:"removed"`
}

// LikeGCRequest is the payload for POST /v1/admin/gc/likes.
type LikeGCRequest struct {
	BatchSize int  `json:"batch_size,omitempty"`
	Apply     bool `json:"apply"`
}

// LikeGCResponse reports one orphan sweep.
type LikeGCResponse struct {
	CandidateCount int      `json:"candidate_count"`
	DeletedCount   int      `json:"deleted_count"`
	FailedCount    int      `json:"failed_count"`
	CandidateGUIDs []string `json:"candidate_guids"`
	DryRun         bool     `json:"dry_run"`
}

// AdminUser is the public view of a provisioned user.
type AdminUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Zones     []string  `json:"zones"`
	Disabled  bool      `json:"disabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AdminUserCreateRequest provisions a user.
type AdminUserCreateRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Role     string   `json:"role,omitempty"`
	Zones    []string `json:"zones,omitempty"`
}

// AdminUserSetDisabledRequest toggles a user's disabled state.
type AdminUserSetDisabledRequest struct {
	Disabled bool `json:"disabled"`
}

// AdminUserSetZonesRequest replaces a user's zones.
type AdminUserSetZonesRequest struct {
	Zones []string `json:"zones"`
}

// AdminUserDeleteResponse reports a deleted user.
type AdminUserDeleteResponse struct {
	Username string `json:"username"`
	Deleted  bool   `json:"deleted"`
}
