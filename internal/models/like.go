package models

import (
	"fmt"
	"time"
)

// PropertyIsPublic is the Like property controlling visibility to other users.
const PropertyIsPublic = "isPublic"

// Like is one user's feedback on one referenceable element.
type Like struct {
	GUID           string          `json:"guid"`
	IsPublic       bool            `json:"is_public"`
	AnchorGUID     string          `json:"anchor_guid,omitempty"`
	CreatedBy      string          `json:"created_by"`
	ExternalSource *ExternalSource `json:"external_source,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// LikeFromEntity converts a stored Like entity into the Like bean.
func LikeFromEntity(entity Entity) (Like, error) {
	var zero Like
	if entity.TypeName != TypeLike {
		return zero, fmt.Errorf("entity %s has type %s, expected %s", entity.GUID, entity.TypeName, TypeLike)
	}

	isPublic := false
	if raw, ok := entity.Properties[PropertyIsPublic]; ok {
		value, ok := raw.(bool)
		if !ok {
			return zero, fmt.Errorf("entity %s has non-boolean %s", entity.GUID, PropertyIsPublic)
		}
		isPublic = value
	}

	return Like{
		GUID:           entity.GUID,
		IsPublic:       isPublic,
		AnchorGUID:     entity.AnchorGUID,
		CreatedBy:      entity.CreatedBy,
		ExternalSource: entity.ExternalSource,
		CreatedAt:      entity.CreatedAt,
	}, nil
}
