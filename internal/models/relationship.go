package models

import "time"

// Relationship is a directed, typed edge from End1 to End2.
type Relationship struct {
	GUID           string          `json:"guid"`
	TypeName       string          `json:"type_name"`
	End1GUID       string          `json:"end1_guid"`
	End2GUID       string          `json:"end2_guid"`
	Properties     Properties      `json:"properties,omitempty"`
	EffectiveFrom  *time.Time      `json:"effective_from,omitempty"`
	EffectiveTo    *time.Time      `json:"effective_to,omitempty"`
	CreatedBy      string          `json:"created_by"`
	ExternalSource *ExternalSource `json:"external_source,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// IsEffectiveAt reports whether the relationship's effectivity window covers t.
func (r Relationship) IsEffectiveAt(t time.Time) bool {
	return effectiveAt(r.EffectiveFrom, r.EffectiveTo, t)
}
