package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tinytelemetry/hunters-journal/internal/duckdb/migrate"
)

// Store is the daemon's embedded database: the response cache and the
// notification delivery log.
type Store struct {
	db           *sql.DB
	dbPath       string
	QueryTimeout time.Duration
}

// NewStore opens or creates a DuckDB database and applies migrations.
// An empty dbPath opens an in-memory database. queryTimeout defaults to 30s.
func NewStore(dbPath string, queryTimeout ...time.Duration) (*Store, error) {
	dsn := ""
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("duckdb: ensure data dir: %w", err)
		}
		dsn = dbPath
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("duckdb: open: %w", err)
	}
	if err := migrate.NewRunner(db).Run(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	qt := 30 * time.Second
	if len(queryTimeout) > 0 && queryTimeout[0] > 0 {
		qt = queryTimeout[0]
	}
	return &Store{db: db, dbPath: dbPath, QueryTimeout: qt}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file, or "" when in memory.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) queryCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.QueryTimeout)
}

// TableRowCounts returns the row count of each application table.
func (s *Store) TableRowCounts() (map[string]int64, error) {
	ctx, cancel := s.queryCtx()
	defer cancel()

	counts := make(map[string]int64, 2)
	for _, table := range []string{"responses", "notifications"} {
		var n int64
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("duckdb: count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
