package store

import (
	"context"
	"database/sql"
	"fmt"

	"kudos/internal/access"
)

// StampAnchor sets the anchor of newGUID to the root anchor of targetGUID,
// records targetGUID as its direct owner and copies the anchor's zones onto it. The target must be visible under opts.
func (s *Store) StampAnchor(ctx context.Context, userID, targetGUID, newGUID string, opts QueryOptions) error {
	target, err := s.getEntity(ctx, s.db, targetGUID)
	if err != nil {
		return err
	}
	if !isVisible(target, opts) {
		return fmt.Errorf("%w: %s", ErrUnknownElement, targetGUID)
	}
	if err := s.verifier.ValidateElementAccess(ctx, userID, access.ActionAttach, target); err != nil {
		return err
	}

	created, err := s.getEntity(ctx, s.db, newGUID)
	if err != nil {
		return err
	}
	anchorGUID, anchorType := rootAnchor(target)
	if created.AnchorGUID != "" && created.AnchorGUID != anchorGUID {
		return fmt.Errorf("%w: %s is already anchored to %s", ErrInvalidParameter, newGUID, created.AnchorGUID)
	}
	if anchorGUID == newGUID {
		return fmt.Errorf("%w: element cannot anchor itself", ErrInvalidParameter)
	}

	zones, err := s.rootZones(ctx, s.db, target)
	if err != nil {
		return err
	}

	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "UPDATE entities SET anchor_guid = ?, anchor_type_name = ?, owner_guid = ?, updated_at = ? WHERE guid = ?",
			anchorGUID, anchorType, targetGUID, formatTime(s.clock()), newGUID); err != nil {
			return err
		}
		return replaceZonesTx(ctx, tx, newGUID, zones)
	})
}
