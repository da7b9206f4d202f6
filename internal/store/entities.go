package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"kudos/internal/access"
	"kudos/internal/models"
)

const entityColumns = "e.seq, e.guid, e.type_name, e.qualified_name, e.properties_json, e.anchor_guid, e.anchor_type_name, e.status, e.duplicate_of, e.effective_from, e.effective_to, e.created_by, e.external_source_guid, e.external_source_name, e.created_at, e.updated_at"

// CreateEntity inserts a new entity and returns its GUID. Declined types
// return an empty GUID and no error.
func (s *Store) CreateEntity(ctx context.Context, userID string, src *models.ExternalSource, in NewEntity, effectiveTime *time.Time) (string, error) {
	typeName := strings.TrimSpace(in.TypeName)
	if typeName == "" {
		return "", fmt.Errorf("%w: type name is required", ErrInvalidParameter)
	}
	if in.EffectiveFrom != nil && in.EffectiveTo != nil && !in.EffectiveFrom.Before(*in.EffectiveTo) {
		return "", fmt.Errorf("%w: effective_from must be before effective_to", ErrInvalidParameter)
	}
	if s.isDeclined(typeName) {
		return "", nil
	}

	zones := normalizeZones(in.Zones)
	candidate := models.Entity{TypeName: typeName, Zones: zones}

	var anchorGUID, anchorType, ownerGUID string
	if anchor := strings.TrimSpace(in.AnchorGUID); anchor != "" {
		owner, err := s.getEntity(ctx, s.db, anchor)
		if err != nil {
			return "", err
		}
		if !owner.IsEffectiveAt(effectiveAt(effectiveTime)) {
			return "", fmt.Errorf("%w: anchor %s is not effective", ErrUnknownElement, anchor)
		}
		if err := s.verifier.ValidateElementAccess(ctx, userID, access.ActionAttach, owner); err != nil {
			return "", err
		}
		anchorGUID, anchorType = rootAnchor(owner)
		ownerGUID = owner.GUID
		if len(zones) == 0 {
			rootZones, err := s.rootZones(ctx, s.db, owner)
			if err != nil {
				return "", err
			}
			zones = rootZones
		}
	} else {
		action := access.ActionUpdate
		if models.IsAttachmentType(typeName) {
			action = access.ActionAttach
		}
		if err := s.verifier.ValidateElementAccess(ctx, userID, action, candidate); err != nil {
			return "", err
		}
	}

	propsJSON, err := propertiesToJSON(in.Properties)
	if err != nil {
		return "", err
	}
	srcGUID, srcName := externalSourceArgs(src)
	guid := NewGUID()
	now := formatTime(s.clock())

	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO entities (
				guid, type_name, qualified_name, properties_json, anchor_guid, anchor_type_name,
				owner_guid, status, effective_from, effective_to, created_by,
				external_source_guid, external_source_name, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			guid,
			typeName,
			nullIfEmpty(strings.TrimSpace(in.QualifiedName)),
			propsJSON,
			nullIfEmpty(anchorGUID),
			nullIfEmpty(anchorType),
			nullIfEmpty(ownerGUID),
			string(models.StatusActive),
			nullTime(in.EffectiveFrom),
			nullTime(in.EffectiveTo),
			userID,
			srcGUID,
			srcName,
			now,
			now,
		)
		if err != nil {
			return err
		}
		return replaceZonesTx(ctx, tx, guid, zones)
	})
	if err != nil {
		return "", err
	}
	return guid, nil
}

// GetEntity returns one entity visible under opts.
func (s *Store) GetEntity(ctx context.Context, userID, guid string, opts QueryOptions) (models.Entity, error) {
	entity, err := s.getEntity(ctx, s.db, guid)
	if err != nil {
		return models.Entity{}, err
	}
	if !isVisible(entity, opts) {
		return models.Entity{}, fmt.Errorf("%w: %s", ErrUnknownElement, guid)
	}
	if err := s.verifier.ValidateElementAccess(ctx, userID, access.ActionRead, entity); err != nil {
		return models.Entity{}, err
	}
	return entity, nil
}

// ListEntities returns visible entities the user may read, newest first.
// Entities the verifier denies are skipped rather than failing the list.
func (s *Store) ListEntities(ctx context.Context, userID string, filter EntityFilter) ([]models.Entity, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, fmt.Errorf("%w: limit and offset must be >= 0", ErrInvalidParameter)
	}
	query, args := buildEntityListQuery(filter, effectiveAt(filter.EffectiveTime))
	entities, err := s.queryEntities(ctx, s.db, query, args...)
	if err != nil {
		return nil, err
	}

	out := make([]models.Entity, 0, len(entities))
	for _, entity := range entities {
		err := s.verifier.ValidateElementAccess(ctx, userID, access.ActionRead, entity)
		if errors.Is(err, access.ErrUnauthorized) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, entity)
	}
	return out, nil
}

// DeleteEntity removes an entity. typeName must match the stored type;
// Referenceable matches any non-attachment type. With cascade, entities
// anchored to it directly or through other owned entities, and Likes
// attached to it, are removed too.
func (s *Store) DeleteEntity(ctx context.Context, userID string, src *models.ExternalSource, guid, typeName string, cascade bool, _ *time.Time) error {
	entity, err := s.getEntity(ctx, s.db, guid)
	if err != nil {
		return err
	}
	if !typeMatches(entity.TypeName, typeName) {
		return fmt.Errorf("%w: element %s is a %s, not a %s", ErrInvalidParameter, guid, entity.TypeName, typeName)
	}
	if err := s.verifier.ValidateElementAccess(ctx, userID, access.ActionDelete, entity); err != nil {
		return err
	}

	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		dependents, err := dependentGUIDsTx(ctx, tx, guid)
		if err != nil {
			return err
		}
		if len(dependents) > 0 && !cascade {
			return fmt.Errorf("%w: element %s has %d dependent elements", ErrInvalidParameter, guid, len(dependents))
		}
		if len(dependents) > 0 {
			query := fmt.Sprintf("DELETE FROM entities WHERE guid IN (%s)", placeholders(len(dependents)))
			if _, err := tx.ExecContext(ctx, query, stringArgs(dependents)...); err != nil {
				return err
			}
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM entities WHERE guid = ?", guid)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrUnknownElement, guid)
		}
		return nil
	})
}

// RetireEntity soft-deletes an element to memento status.
func (s *Store) RetireEntity(ctx context.Context, userID, guid string) (models.Entity, error) {
	entity, err := s.getEntity(ctx, s.db, guid)
	if err != nil {
		return models.Entity{}, err
	}
	if err := s.verifier.ValidateElementAccess(ctx, userID, access.ActionUpdate, entity); err != nil {
		return models.Entity{}, err
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE entities SET status = ?, updated_at = ? WHERE guid = ?",
		string(models.StatusMemento), formatTime(s.clock()), guid); err != nil {
		return models.Entity{}, err
	}
	return s.getEntity(ctx, s.db, guid)
}

// MarkDuplicate records that guid duplicates duplicateOf.
func (s *Store) MarkDuplicate(ctx context.Context, userID, guid, duplicateOf string) (models.Entity, error) {
	if guid == duplicateOf {
		return models.Entity{}, fmt.Errorf("%w: element cannot duplicate itself", ErrInvalidParameter)
	}
	entity, err := s.getEntity(ctx, s.db, guid)
	if err != nil {
		return models.Entity{}, err
	}
	original, err := s.getEntity(ctx, s.db, duplicateOf)
	if err != nil {
		return models.Entity{}, err
	}
	if err := s.verifier.ValidateElementAccess(ctx, userID, access.ActionUpdate, entity); err != nil {
		return models.Entity{}, err
	}
	if err := s.verifier.ValidateElementAccess(ctx, userID, access.ActionRead, original); err != nil {
		return models.Entity{}, err
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE entities SET duplicate_of = ?, updated_at = ? WHERE guid = ?",
		duplicateOf, formatTime(s.clock()), guid); err != nil {
		return models.Entity{}, err
	}
	return s.getEntity(ctx, s.db, guid)
}

func (s *Store) getEntity(ctx context.Context, q queryer, guid string) (models.Entity, error) {
	guid = strings.TrimSpace(guid)
	if guid == "" {
		return models.Entity{}, fmt.Errorf("%w: guid is required", ErrInvalidParameter)
	}
	entities, err := s.queryEntities(ctx, q, "SELECT "+entityColumns+" FROM entities e WHERE e.guid = ?", guid)
	if err != nil {
		return models.Entity{}, err
	}
	if len(entities) == 0 {
		return models.Entity{}, fmt.Errorf("%w: %s", ErrUnknownElement, guid)
	}
	return entities[0], nil
}

func (s *Store) queryEntities(ctx context.Context, q queryer, query string, args ...any) ([]models.Entity, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entities := []models.Entity{}
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := loadZones(ctx, q, entities); err != nil {
		return nil, err
	}
	return entities, nil
}

// rootZones returns the zones of the root anchor of owner.
func (s *Store) rootZones(ctx context.Context, q queryer, owner models.Entity) ([]string, error) {
	if owner.AnchorGUID == "" || owner.AnchorGUID == owner.GUID {
		return owner.Zones, nil
	}
	anchor, err := s.getEntity(ctx, q, owner.AnchorGUID)
	if errors.Is(err, ErrUnknownElement) {
		return owner.Zones, nil
	}
	if err != nil {
		return nil, err
	}
	return anchor.Zones, nil
}

func scanEntity(scanner rowScanner) (models.Entity, error) {
	var entity models.Entity
	var seq int64
	var qualifiedName, propsJSON, anchorGUID, anchorType, duplicateOf sql.NullString
	var effectiveFrom, effectiveTo, srcGUID, srcName sql.NullString
	var status, createdAt, updatedAt string

	err := scanner.Scan(
		&seq,
		&entity.GUID,
		&entity.TypeName,
		&qualifiedName,
		&propsJSON,
		&anchorGUID,
		&anchorType,
		&status,
		&duplicateOf,
		&effectiveFrom,
		&effectiveTo,
		&entity.CreatedBy,
		&srcGUID,
		&srcName,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return models.Entity{}, err
	}

	entity.QualifiedName = qualifiedName.String
	entity.AnchorGUID = anchorGUID.String
	entity.AnchorTypeName = anchorType.String
	entity.Status = models.ElementStatus(status)
	entity.DuplicateOf = duplicateOf.String
	entity.ExternalSource = scanExternalSource(srcGUID, srcName)

	if entity.Properties, err = propertiesFromJSON(propsJSON); err != nil {
		return models.Entity{}, err
	}
	if entity.EffectiveFrom, err = parseNullTime(effectiveFrom); err != nil {
		return models.Entity{}, err
	}
	if entity.EffectiveTo, err = parseNullTime(effectiveTo); err != nil {
		return models.Entity{}, err
	}
	if entity.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Entity{}, err
	}
	if entity.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.Entity{}, err
	}
	return entity, nil
}

func loadZones(ctx context.Context, q queryer, entities []models.Entity) error {
	if len(entities) == 0 {
		return nil
	}
	index := make(map[string]int, len(entities))
	guids := make([]string, 0, len(entities))
	for i, entity := range entities {
		index[entity.GUID] = i
		guids = append(guids, entity.GUID)
	}

	query := fmt.Sprintf("SELECT entity_guid, zone FROM entity_zones WHERE entity_guid IN (%s) ORDER BY zone", placeholders(len(guids)))
	rows, err := q.QueryContext(ctx, query, stringArgs(guids)...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var guid, zone string
		if err := rows.Scan(&guid, &zone); err != nil {
			return err
		}
		i := index[guid]
		entities[i].Zones = append(entities[i].Zones, zone)
	}
	return rows.Err()
}

func replaceZonesTx(ctx context.Context, tx *sql.Tx, guid string, zones []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM entity_zones WHERE entity_guid = ?", guid); err != nil {
		return err
	}
	for _, zone := range zones {
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO entity_zones (entity_guid, zone) VALUES (?, ?)", guid, zone); err != nil {
			return err
		}
	}
	return nil
}

// dependentGUIDsTx lists entities owned by guid, at any depth, plus Likes
// attached to it. anchor_guid always names the root, so owner_guid is what
// links an entity to an intermediate owner.
func dependentGUIDsTx(ctx context.Context, tx *sql.Tx, guid string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `
		WITH RECURSIVE owned(guid) AS (
			SELECT e.guid FROM entities e
			WHERE (e.owner_guid = ? OR e.anchor_guid = ?) AND e.guid <> ?
			UNION
			SELECT e.guid FROM entities e JOIN owned o ON e.owner_guid = o.guid
		)
		SELECT guid FROM owned
		UNION
		SELECT r.end2_guid FROM relationships r
		JOIN entities e ON e.guid = r.end2_guid
		WHERE r.end1_guid = ? AND r.type_name = ? AND e.type_name = ?
	`, guid, guid, guid, guid, models.RelationshipAttachedLike, models.TypeLike)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var dependent string
		if err := rows.Scan(&dependent); err != nil {
			return nil, err
		}
		out = append(out, dependent)
	}
	return out, rows.Err()
}

func rootAnchor(owner models.Entity) (string, string) {
	if owner.AnchorGUID != "" {
		return owner.AnchorGUID, owner.AnchorTypeName
	}
	return owner.GUID, owner.TypeName
}

func typeMatches(stored, requested string) bool {
	requested = strings.TrimSpace(requested)
	if requested == "" || requested == stored {
		return true
	}
	return requested == models.TypeReferenceable && !models.IsAttachmentType(stored)
}

// isVisible applies the read filters of opts to one entity.
func isVisible(entity models.Entity, opts QueryOptions) bool {
	if !entity.InZones(opts.Zones) {
		return false
	}
	if entity.Status == models.StatusMemento && !opts.ForLineage {
		return false
	}
	if entity.DuplicateOf != "" && !opts.ForDuplicateProcessing {
		return false
	}
	return entity.IsEffectiveAt(effectiveAt(opts.EffectiveTime))
}

func effectiveAt(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
