package models

import (
	"fmt"
	"strings"
)

// Type names known to the repository.
const (
	TypeReferenceable = "Referenceable"
	TypeLike          = "Like"

	RelationshipAttachedLike = "AttachedLike"
)

// ElementStatus defines the lifecycle state of a stored entity.
type ElementStatus string

const (
	StatusActive  ElementStatus = "active"
	StatusMemento ElementStatus = "memento"
)

// SequencingOrder controls how attached elements are ordered on reads.
type SequencingOrder string

const (
	SequenceCreationRecent SequencingOrder = "creation_date_recent"
	SequenceCreationOldest SequencingOrder = "creation_date_oldest"
	SequenceGUID           SequencingOrder = "guid"
)

var validElementStatuses = map[ElementStatus]struct{}{
	StatusActive:  {},
	StatusMemento: {},
}

var validSequencingOrders = map[SequencingOrder]struct{}{
	SequenceCreationRecent: {},
	SequenceCreationOldest: {},
	SequenceGUID:           {},
}

var attachmentTypes = map[string]struct{}{
	TypeLike: {},
}

func IsValidElementStatus(status ElementStatus) bool {
	_, ok := validElementStatuses[status]
	return ok
}

func ParseElementStatus(raw string) (ElementStatus, error) {
	value := ElementStatus(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("status is required")
	}
	if !IsValidElementStatus(value) {
		return "", fmt.Errorf("invalid status: %s", value)
	}
	return value, nil
}

// ParseSequencingOrder parses an ordering name; empty means newest first.
func ParseSequencingOrder(raw string) (SequencingOrder, error) {
	value := SequencingOrder(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return SequenceCreationRecent, nil
	}
	if _, ok := validSequencingOrders[value]; !ok {
		return "", fmt.Errorf("invalid sequencing order: %s", value)
	}
	return value, nil
}

// IsAttachmentType reports whether typeName is a feedback attachment type.
// Attachment types cannot be the target of another attachment.
func IsAttachmentType(typeName string) bool {
	_, ok := attachmentTypes[typeName]
	return ok
}

// ParseElementTypeName validates a type name for a referenceable element.
func ParseElementTypeName(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return TypeReferenceable, nil
	}
	if IsAttachmentType(value) {
		return "", fmt.Errorf("type %s is reserved for attachments", value)
	}
	for _, r := range value {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return "", fmt.Errorf("invalid type name: %s", value)
		}
	}
	return value, nil
}
