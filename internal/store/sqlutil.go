package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"kudos/internal/models"
)

// Fixed width so stored timestamps order lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func placeholders(count int) string {
	if count <= 0 {
		return ""
	}
	return strings.TrimRight(strings.Repeat("?,", count), ",")
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullTime(value *time.Time) any {
	if value == nil || value.IsZero() {
		return nil
	}
	return formatTime(*value)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, value)
}

func parseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	parsed, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func propertiesToJSON(props models.Properties) (any, error) {
	if len(props) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("marshal properties: %w", err)
	}
	return string(data), nil
}

func propertiesFromJSON(value sql.NullString) (models.Properties, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	var props models.Properties
	if err := json.Unmarshal([]byte(value.String), &props); err != nil {
		return nil, fmt.Errorf("parse properties_json: %w", err)
	}
	return props, nil
}

func externalSourceArgs(src *models.ExternalSource) (any, any) {
	if src == nil {
		return nil, nil
	}
	return nullIfEmpty(src.GUID), nullIfEmpty(src.Name)
}

func scanExternalSource(guid, name sql.NullString) *models.ExternalSource {
	return models.NewExternalSource(guid.String, name.String)
}

// effectivityClause restricts alias to rows whose effectivity window covers
// the bound time. It consumes two arguments.
func effectivityClause(alias string) string {
	return fmt.Sprintf("(%[1]s.effective_from IS NULL OR %[1]s.effective_from <= ?) AND (%[1]s.effective_to IS NULL OR %[1]s.effective_to > ?)", alias)
}

// zoneClause restricts alias to entities that are unzoned or share a zone.
func zoneClause(alias string, count int) string {
	return fmt.Sprintf(
		"(NOT EXISTS (SELECT 1 FROM entity_zones z WHERE z.entity_guid = %[1]s.guid) OR EXISTS (SELECT 1 FROM entity_zones z WHERE z.entity_guid = %[1]s.guid AND z.zone IN (%[2]s)))",
		alias, placeholders(count),
	)
}

func normalizeZones(zones []string) []string {
	if len(zones) == 0 {
		return nil
	}
	out := make([]string, 0, len(zones))
	seen := make(map[string]struct{}, len(zones))
	for _, zone := range zones {
		zone = strings.TrimSpace(zone)
		if zone == "" {
			continue
		}
		if _, ok := seen[zone]; ok {
			continue
		}
		seen[zone] = struct{}{}
		out = append(out, zone)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func stringArgs(values []string) []any {
	args := make([]any, 0, len(values))
	for _, v := range values {
		args = append(args, v)
	}
	return args
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
