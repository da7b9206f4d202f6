package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// EntityRef is the bookkeeping view of an entity.
type EntityRef struct {
	GUID       string    `json:"guid"`
	TypeName   string    `json:"type_name"`
	AnchorGUID string    `json:"anchor_guid,omitempty"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// ListUnattachedEntities returns entities of typeName created before
// createdBefore that have no incoming relationship of relationshipType,
// oldest first.
func (s *Store) ListUnattachedEntities(ctx context.Context, typeName, relationshipType string, createdBefore time.Time, limit int) ([]EntityRef, error) {
	if strings.TrimSpace(typeName) == "" || strings.TrimSpace(relationshipType) == "" {
		return nil, fmt.Errorf("%w: type and relationship type are required", ErrInvalidParameter)
	}
	query := `
		SELECT e.guid, e.type_name, e.anchor_guid, e.created_by, e.created_at
		FROM entities e
		WHERE e.type_name = ?
		  AND e.created_at < ?
		  AND NOT EXISTS (
			SELECT 1 FROM relationships r WHERE r.end2_guid = e.guid AND r.type_name = ?
		  )
		ORDER BY e.created_at ASC, e.seq ASC`
	args := []any{typeName, formatTime(createdBefore), relationshipType}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := []EntityRef{}
	for rows.Next() {
		var ref EntityRef
		var anchor *string
		var createdAt string
		if err := rows.Scan(&ref.GUID, &ref.TypeName, &anchor, &ref.CreatedBy, &createdAt); err != nil {
			return nil, err
		}
		if anchor != nil {
			ref.AnchorGUID = *anchor
		}
		if ref.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return refs, nil
}

// PurgeUnattachedEntities deletes the given entities unless they regained
// an incoming relationship of relationshipType. Returns the number deleted.
func (s *Store) PurgeUnattachedEntities(ctx context.Context, relationshipType string, guids []string) (int, error) {
	if len(guids) == 0 {
		return 0, nil
	}
	query := fmt.Sprintf(`
		DELETE FROM entities
		WHERE guid IN (%s)
		  AND NOT EXISTS (
			SELECT 1 FROM relationships r WHERE r.end2_guid = entities.guid AND r.type_name = ?
		  )`, placeholders(len(guids)))
	args := append(stringArgs(guids), relationshipType)
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}
