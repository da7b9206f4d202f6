package store

import (
	"database/sql"
	"fmt"
	"sort"
)

// Migration represents a schema migration step.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// MigrationStatus reports the current and available migration versions.
type MigrationStatus struct {
	CurrentVersion   int             `json:"current_version"`
	AvailableVersion int             `json:"available_version"`
	Pending          []MigrationInfo `json:"pending"`
}

// MigrationInfo describes a single migration.
type MigrationInfo struct {
	Version     int    `json:"version"`
	Description string `json:"description"`
}

// migrations is the ordered list of all schema migrations.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema: entities, zones, relationships",
		SQL: `
CREATE TABLE IF NOT EXISTS entities (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  guid TEXT NOT NULL UNIQUE,
  type_name TEXT NOT NULL,
  qualified_name TEXT,
  properties_json TEXT,
  anchor_guid TEXT,
  anchor_type_name TEXT,
  status TEXT NOT NULL DEFAULT 'active',
  duplicate_of TEXT,
  effective_from TEXT,
  effective_to TEXT,
  created_by TEXT NOT NULL,
  external_source_guid TEXT,
  external_source_name TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entity_zones (
  entity_guid TEXT NOT NULL,
  zone TEXT NOT NULL,
  UNIQUE(entity_guid, zone),
  FOREIGN KEY (entity_guid) REFERENCES entities(guid) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS relationships (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  guid TEXT NOT NULL UNIQUE,
  type_name TEXT NOT NULL,
  end1_guid TEXT NOT NULL,
  end2_guid TEXT NOT NULL,
  properties_json TEXT,
  effective_from TEXT,
  effective_to TEXT,
  created_by TEXT NOT NULL,
  external_source_guid TEXT,
  external_source_name TEXT,
  created_at TEXT NOT NULL,
  FOREIGN KEY (end1_guid) REFERENCES entities(guid) ON DELETE CASCADE,
  FOREIGN KEY (end2_guid) REFERENCES entities(guid) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_entities_type_name ON entities(type_name);
CREATE INDEX IF NOT EXISTS idx_entities_anchor_guid ON entities(anchor_guid);
CREATE INDEX IF NOT EXISTS idx_entity_zones_zone ON entity_zones(zone);
CREATE INDEX IF NOT EXISTS idx_relationships_end1 ON relationships(end1_guid);
CREATE INDEX IF NOT EXISTS idx_relationships_end2 ON relationships(end2_guid);
`,
	},
	{
		Version:     2,
		Description: "users and zone memberships",
		SQL: `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'member',
  disabled INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS user_zones (
  user_id TEXT NOT NULL,
  zone TEXT NOT NULL,
  UNIQUE(user_id, zone),
  FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);
`,
	},
	{
		Version:     3,
		Description: "attachment query index tuning",
		SQL: `
CREATE INDEX IF NOT EXISTS idx_relationships_end1_type_creator ON relationships(end1_guid, type_name, created_by);
CREATE INDEX IF NOT EXISTS idx_entities_type_created_desc ON entities(type_name, created_at DESC);
`,
	},
	{
		Version:     4,
		Description: "direct owner of anchored entities",
		SQL: `
ALTER TABLE entities ADD COLUMN owner_guid TEXT;
UPDATE entities SET owner_guid = anchor_guid WHERE anchor_guid IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_entities_owner_guid ON entities(owner_guid);
`,
	},
}

const migrationsTableSQL = `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  applied_at TEXT NOT NULL
);
`

// ensureMigrationsTable creates the schema_migrations table if it doesn't exist.
func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(migrationsTableSQL)
	return err
}

// currentVersion returns the highest applied migration version, or 0 if none.
func currentVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

func sortedMigrations() []Migration {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })
	return sorted
}

// runMigrations applies all pending migrations in order, one transaction each.
func runMigrations(db *sql.DB) error {
	if err := ensureMigrationsTable(db); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	current, err := currentVersion(db)
	if err != nil {
		return fmt.Errorf("get current version: %w", err)
	}

	for _, m := range sortedMigrations() {
		if m.Version <= current {
			continue
		}
		if err := applyMigration(db, m); err != nil {
			return err
		}
	}

	return nil
}

func applyMigration(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	if _, err := tx.Exec(m.SQL); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Description, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))", m.Version); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("record migration %d: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", m.Version, err)
	}
	return nil
}

// MigrationPlan returns the current migration status without applying anything.
func MigrationPlan(db *sql.DB) (*MigrationStatus, error) {
	if err := ensureMigrationsTable(db); err != nil {
		return nil, err
	}

	current, err := currentVersion(db)
	if err != nil {
		return nil, err
	}

	sorted := sortedMigrations()
	available := 0
	if len(sorted) > 0 {
		available = sorted[len(sorted)-1].Version
	}

	var pending []MigrationInfo
	for _, m := range sorted {
		if m.Version > current {
			pending = append(pending, MigrationInfo{Version: m.Version, Description: m.Description})
		}
	}

	return &MigrationStatus{
		CurrentVersion:   current,
		AvailableVersion: available,
		Pending:          pending,
	}, nil
}
