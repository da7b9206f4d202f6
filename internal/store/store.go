package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"kudos/internal/access"
)

const (
	busyTimeoutMS   = 5000
	maxOpenConns    = 1
	maxIdleConns    = 1
	connMaxLifetime = 5 * time.Minute
)

// Store is the SQLite-backed metadata repository.
type Store struct {
	db       *sql.DB
	verifier access.Verifier
	declined map[string]struct{}
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithVerifier sets the security verifier consulted by guarded operations.
// By default the store verifies through its own users and zone memberships.
func WithVerifier(v access.Verifier) Option {
	return func(s *Store) {
		s.verifier = v
	}
}

// WithDeclinedTypes makes CreateEntity decline, without error, new
// instances of the given type names.
func WithDeclinedTypes(typeNames ...string) Option {
	return func(s *Store) {
		for _, name := range typeNames {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			s.declined[name] = struct{}{}
		}
	}
}

// WithClock overrides the clock used for created_at/updated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Open opens the SQLite database and bootstraps the schema.
func Open(path string, opts ...Option) (*Store, error) {
	dsn, err := sqliteDSN(path)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	if err := configureDB(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, declined: map[string]struct{}{}, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.verifier == nil {
		s.verifier = access.NewZoneVerifier(s)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle for maintenance commands.
func (s *Store) DB() *sql.DB {
	return s.db
}

// StoreInfo summarizes repository contents.
type StoreInfo struct {
	SchemaVersion     int            `json:"schema_version"`
	EntityCounts      map[string]int `json:"entity_counts"`
	RelationshipCount int            `json:"relationship_count"`
}

// StoreInfo returns schema version and per-type entity counts.
func (s *Store) StoreInfo(ctx context.Context) (StoreInfo, error) {
	info := StoreInfo{EntityCounts: map[string]int{}}

	version, err := currentVersion(s.db)
	if err != nil {
		return info, err
	}
	info.SchemaVersion = version

	rows, err := s.db.QueryContext(ctx, "SELECT type_name, COUNT(*) FROM entities GROUP BY type_name")
	if err != nil {
		return info, err
	}
	defer rows.Close()
	for rows.Next() {
		var typeName string
		var count int
		if err := rows.Scan(&typeName, &count); err != nil {
			return info, err
		}
		info.EntityCounts[typeName] = count
	}
	if err := rows.Err(); err != nil {
		return info, err
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM relationships").Scan(&info.RelationshipCount); err != nil {
		return info, err
	}
	return info, nil
}

func (s *Store) clock() time.Time {
	if s.now == nil {
		return time.Now().UTC()
	}
	return s.now().UTC()
}

func (s *Store) isDeclined(typeName string) bool {
	_, ok := s.declined[typeName]
	return ok
}

func configureDB(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		fmt.Sprintf("PRAGMA busy_timeout = %d;", busyTimeoutMS),
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	// Single connection keeps the foreign_keys pragma in effect.
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	return nil
}

func sqliteDSN(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("db path is required")
	}
	u := url.URL{Scheme: "file", Path: path}
	return u.String(), nil
}
