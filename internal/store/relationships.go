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

const relationshipColumns = "r.guid, r.type_name, r.end1_guid, r.end2_guid, r.properties_json, r.effective_from, r.effective_to, r.created_by, r.external_source_guid, r.external_source_name, r.created_at"

// GetAttachedElements returns the elements linked from the target through
// q.RelationshipType. A target hidden by the query options yields an empty
// result rather than an error.
func (s *Store) GetAttachedElements(ctx context.Context, userID string, q AttachedQuery) ([]models.Entity, error) {
	if q.StartFrom < 0 || q.PageSize < 0 {
		return nil, fmt.Errorf("%w: start and page size must be >= 0", ErrInvalidParameter)
	}
	if strings.TrimSpace(q.RelationshipType) == "" {
		return nil, fmt.Errorf("%w: relationship type is required", ErrInvalidParameter)
	}

	target, err := s.getEntity(ctx, s.db, q.TargetGUID)
	if err != nil {
		return nil, err
	}
	if !isVisible(target, q.QueryOptions) {
		return []models.Entity{}, nil
	}
	if err := s.verifier.ValidateElementAccess(ctx, userID, access.ActionRead, target); err != nil {
		return nil, err
	}

	query, args := buildAttachedQuery(q, userID, effectiveAt(q.EffectiveTime))
	return s.queryEntities(ctx, s.db, query, args...)
}

// LinkEntities creates a relationship from fromGUID to toGUID, attributed to userID.
func (s *Store) LinkEntities(ctx context.Context, userID string, src *models.ExternalSource, fromGUID, toGUID, relationshipType string, props models.Properties, effectiveTime *time.Time) error {
	relationshipType = strings.TrimSpace(relationshipType)
	if relationshipType == "" {
		return fmt.Errorf("%w: relationship type is required", ErrInvalidParameter)
	}
	if fromGUID == toGUID {
		return fmt.Errorf("%w: cannot link an element to itself", ErrInvalidParameter)
	}

	end1, err := s.getEntity(ctx, s.db, fromGUID)
	if err != nil {
		return err
	}
	if models.IsAttachmentType(end1.TypeName) {
		return fmt.Errorf("%w: cannot attach to a %s", ErrInvalidParameter, end1.TypeName)
	}
	if !end1.IsEffectiveAt(effectiveAt(effectiveTime)) {
		return fmt.Errorf("%w: %s is not effective", ErrUnknownElement, fromGUID)
	}
	if _, err := s.getEntity(ctx, s.db, toGUID); err != nil {
		return err
	}
	if err := s.verifier.ValidateElementAccess(ctx, userID, access.ActionAttach, end1); err != nil {
		return err
	}

	propsJSON, err := propertiesToJSON(props)
	if err != nil {
		return err
	}
	srcGUID, srcName := externalSourceArgs(src)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO relationships (
			guid, type_name, end1_guid, end2_guid, properties_json,
			created_by, external_source_guid, external_source_name, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, NewGUID(), relationshipType, fromGUID, toGUID, propsJSON, userID, srcGUID, srcName, formatTime(s.clock()))
	return err
}

// UnlinkOwned removes the newest relationship of relationshipType from the
// target to an element of resultType and returns that element's GUID, or ""
// when there is none. With requesterScoped only relationships created by
// userID qualify. zones decide target visibility only; the attached
// element's zones and effectivity play no part in the choice.
func (s *Store) UnlinkOwned(ctx context.Context, userID string, requesterScoped bool, _ *models.ExternalSource, targetGUID, relationshipType, resultType string, zones []string, _ *time.Time) (string, error) {
	relationshipType = strings.TrimSpace(relationshipType)
	if relationshipType == "" {
		return "", fmt.Errorf("%w: relationship type is required", ErrInvalidParameter)
	}

	target, err := s.getEntity(ctx, s.db, targetGUID)
	if err != nil {
		return "", err
	}
	if !target.InZones(zones) {
		return "", fmt.Errorf("%w: %s", ErrUnknownElement, targetGUID)
	}
	if err := s.verifier.ValidateElementAccess(ctx, userID, access.ActionDetach, target); err != nil {
		return "", err
	}

	var unlinked string
	err = withTx(ctx, s.db, func(tx *sql.Tx) error {
		query := `
			SELECT r.guid, r.end2_guid FROM relationships r
			JOIN entities e ON e.guid = r.end2_guid
			WHERE r.end1_guid = ? AND r.type_name = ?`
		args := []any{targetGUID, relationshipType}
		if resultType = strings.TrimSpace(resultType); resultType != "" {
			query += " AND e.type_name = ?"
			args = append(args, resultType)
		}
		if requesterScoped {
			query += " AND r.created_by = ?"
			args = append(args, userID)
		}
		query += " ORDER BY r.created_at DESC, r.seq DESC LIMIT 1"

		var relGUID, end2 string
		err := tx.QueryRowContext(ctx, query, args...).Scan(&relGUID, &end2)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM relationships WHERE guid = ?", relGUID); err != nil {
			return err
		}
		unlinked = end2
		return nil
	})
	if err != nil {
		return "", err
	}
	return unlinked, nil
}

// ListRelationships returns every relationship touching guid, newest first.
func (s *Store) ListRelationships(ctx context.Context, guid string) ([]models.Relationship, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+relationshipColumns+" FROM relationships r WHERE r.end1_guid = ? OR r.end2_guid = ? ORDER BY r.created_at DESC, r.seq DESC", guid, guid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Relationship{}
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

func scanRelationship(scanner rowScanner) (models.Relationship, error) {
	var rel models.Relationship
	var propsJSON, effectiveFrom, effectiveTo, srcGUID, srcName sql.NullString
	var createdAt string

	err := scanner.Scan(
		&rel.GUID,
		&rel.TypeName,
		&rel.End1GUID,
		&rel.End2GUID,
		&propsJSON,
		&effectiveFrom,
		&effectiveTo,
		&rel.CreatedBy,
		&srcGUID,
		&srcName,
		&createdAt,
	)
	if err != nil {
		return models.Relationship{}, err
	}
	rel.ExternalSource = scanExternalSource(srcGUID, srcName)
	if rel.Properties, err = propertiesFromJSON(propsJSON); err != nil {
		return models.Relationship{}, err
	}
	if rel.EffectiveFrom, err = parseNullTime(effectiveFrom); err != nil {
		return models.Relationship{}, err
	}
	if rel.EffectiveTo, err = parseNullTime(effectiveTo); err != nil {
		return models.Relationship{}, err
	}
	if rel.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Relationship{}, err
	}
	return rel, nil
}
