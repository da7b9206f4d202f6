package models

import (
	"strings"
	"time"
)

// Properties is the property set of an entity or relationship.
type Properties map[string]any

// ExternalSource attributes a write to a system other than the caller.
// A nil *ExternalSource means the write belongs to the calling identity.
type ExternalSource struct {
	GUID string `json:"guid"`
	Name string `json:"name"`
}

// NewExternalSource returns nil when both parts are empty.
func NewExternalSource(guid, name string) *ExternalSource {
	guid = strings.TrimSpace(guid)
	name = strings.TrimSpace(name)
	if guid == "" && name == "" {
		return nil
	}
	return &ExternalSource{GUID: guid, Name: name}
}

// Entity is a typed node in the repository graph.
type Entity struct {
	GUID           string          `json:"guid"`
	TypeName       string          `json:"type_name"`
	QualifiedName  string          `json:"qualified_name,omitempty"`
	Properties     Properties      `json:"properties,omitempty"`
	Zones          []string        `json:"zones,omitempty"`
	AnchorGUID     string          `json:"anchor_guid,omitempty"`
	AnchorTypeName string          `json:"anchor_type_name,omitempty"`
	Status         ElementStatus   `json:"status"`
	DuplicateOf    string          `json:"duplicate_of,omitempty"`
	EffectiveFrom  *time.Time      `json:"effective_from,omitempty"`
	EffectiveTo    *time.Time      `json:"effective_to,omitempty"`
	CreatedBy      string          `json:"created_by"`
	ExternalSource *ExternalSource `json:"external_source,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsEffectiveAt reports whether the entity's effectivity window covers t.
func (e Entity) IsEffectiveAt(t time.Time) bool {
	return effectiveAt(e.EffectiveFrom, e.EffectiveTo, t)
}

// InZones reports whether the entity is visible in at least one of zones.
// An empty zone list on either side means no zone restriction.
func (e Entity) InZones(zones []string) bool {
	if len(zones) == 0 || len(e.Zones) == 0 {
		return true
	}
	for _, want := range zones {
		for _, have := range e.Zones {
			if want == have {
				return true
			}
		}
	}
	return false
}

func effectiveAt(from, to *time.Time, t time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && !t.Before(*to) {
		return false
	}
	return true
}
