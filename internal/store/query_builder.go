package store

import (
	"strings"
	"time"

	"kudos/internal/models"
)

type entityQueryBuilder struct {
	query string
	args  []any
	where []string
}

func (b *entityQueryBuilder) add(clause string, args ...any) {
	b.where = append(b.where, clause)
	b.args = append(b.args, args...)
}

func (b *entityQueryBuilder) appendVisibility(alias string, opts QueryOptions, at time.Time) {
	if !opts.ForLineage {
		b.add(alias+".status = ?", string(models.StatusActive))
	}
	if !opts.ForDuplicateProcessing {
		b.add(alias + ".duplicate_of IS NULL")
	}
	stamp := formatTime(at)
	b.add(effectivityClause(alias), stamp, stamp)
	if zones := normalizeZones(opts.Zones); len(zones) > 0 {
		b.add(zoneClause(alias, len(zones)), stringArgs(zones)...)
	}
}

func (b *entityQueryBuilder) buildWhere() {
	if len(b.where) == 0 {
		return
	}
	b.query += " WHERE " + strings.Join(b.where, " AND ")
}

func (b *entityQueryBuilder) buildPagination(limit, offset int) {
	hasLimit := false
	if limit > 0 {
		b.query += " LIMIT ?"
		b.args = append(b.args, limit)
		hasLimit = true
	}
	if offset > 0 {
		if !hasLimit {
			b.query += " LIMIT -1"
		}
		b.query += " OFFSET ?"
		b.args = append(b.args, offset)
	}
}

func buildEntityListQuery(filter EntityFilter, at time.Time) (string, []any) {
	b := &entityQueryBuilder{query: "SELECT " + entityColumns + " FROM entities e"}
	if typeName := strings.TrimSpace(filter.TypeName); typeName != "" {
		b.add("e.type_name = ?", typeName)
	}
	b.appendVisibility("e", filter.QueryOptions, at)
	b.buildWhere()
	b.query += " ORDER BY e.created_at DESC, e.seq DESC"
	b.buildPagination(filter.Limit, filter.Offset)
	return b.query, b.args
}

// buildAttachedQuery selects end2 entities of effective relationships from the target.
func buildAttachedQuery(q AttachedQuery, userID string, at time.Time) (string, []any) {
	b := &entityQueryBuilder{query: "SELECT " + entityColumns + " FROM relationships r JOIN entities e ON e.guid = r.end2_guid"}
	b.add("r.end1_guid = ?", q.TargetGUID)
	b.add("r.type_name = ?", q.RelationshipType)
	if resultType := strings.TrimSpace(q.ResultType); resultType != "" {
		b.add("e.type_name = ?", resultType)
	}
	stamp := formatTime(at)
	b.add(effectivityClause("r"), stamp, stamp)
	b.appendVisibility("e", q.QueryOptions, at)
	if prop := strings.TrimSpace(q.PublicProperty); prop != "" {
		// json_extract yields 0 for false and NULL when the property is absent.
		b.add("(json_extract(e.properties_json, ?) IS NOT 0 OR e.created_by = ?)", "$."+prop, userID)
	}
	b.buildWhere()
	b.query += attachedOrderBy(q.Ordering)
	b.buildPagination(q.PageSize, q.StartFrom)
	return b.query, b.args
}

func attachedOrderBy(order models.SequencingOrder) string {
	switch order {
	case models.SequenceCreationOldest:
		return " ORDER BY e.created_at ASC, e.seq ASC"
	case models.SequenceGUID:
		return " ORDER BY e.guid ASC"
	default:
		return " ORDER BY e.created_at DESC, e.seq DESC"
	}
}
