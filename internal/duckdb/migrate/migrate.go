// Package migrate applies the cache schema embedded in the binary.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"
)

//go:embed migrations/*.sql
var embedded embed.FS

// ErrModified is returned when an applied migration no longer matches the
// file embedded in the binary.
var ErrModified = errors.New("migrate: applied migration was modified")

// Step is one versioned schema file.
type Step struct {
	Version  int
	Name     string
	SQL      string
	Checksum string
}

// Runner applies pending steps in version order and records a checksum of
// each so later edits to an applied file are caught at startup.
type Runner struct {
	db    *sql.DB
	steps func() ([]Step, error)
}

func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db, steps: func() ([]Step, error) { return Load(embedded, "migrations") }}
}

// Load reads "<version>_<name>.sql" files from dir.
func Load(fsys fs.FS, dir string) ([]Step, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("migrate: read %s: %w", dir, err)
	}

	byVersion := make(map[int]string)
	var steps []Step
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(e.Name(), "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migrate: version of %s: %w", e.Name(), err)
		}
		if prev, dup := byVersion[version]; dup {
			return nil, fmt.Errorf("migrate: %s and %s share version %d", prev, e.Name(), version)
		}
		byVersion[version] = e.Name()

		data, err := fs.ReadFile(fsys, dir+"/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("migrate: read %s: %w", e.Name(), err)
		}
		sum := blake3.Sum256(data)
		steps = append(steps, Step{
			Version:  version,
			Name:     e.Name(),
			SQL:      string(data),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}

	slices.SortFunc(steps, func(a, b Step) int { return a.Version - b.Version })
	return steps, nil
}

func (r *Runner) bootstrap(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		name       VARCHAR NOT NULL,
		checksum   VARCHAR NOT NULL DEFAULT '',
		applied_at TIMESTAMP DEFAULT current_timestamp
	)`)
	if err != nil {
		return fmt.Errorf("migrate: bootstrap schema_migrations: %w", err)
	}
	return nil
}

// applied maps version to recorded checksum.
func (r *Runner) applied(ctx context.Context) (map[int]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT version, checksum FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("migrate: list applied: %w", err)
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var version int
		var checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, fmt.Errorf("migrate: scan applied: %w", err)
		}
		out[version] = checksum
	}
	return out, rows.Err()
}

// Run applies every pending step, each in its own transaction.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.bootstrap(ctx); err != nil {
		return err
	}
	steps, err := r.steps()
	if err != nil {
		return err
	}
	done, err := r.applied(ctx)
	if err != nil {
		return err
	}

	for _, s := range steps {
		if sum, ok := done[s.Version]; ok {
			if sum != "" && sum != s.Checksum {
				return fmt.Errorf("%w: %s", ErrModified, s.Name)
			}
			continue
		}
		if err := r.apply(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) apply(ctx context.Context, s Step) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migrate: begin %s: %w", s.Name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.SQL); err != nil {
		return fmt.Errorf("migrate: exec %s: %w", s.Name, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, checksum) VALUES (?, ?, ?)",
		s.Version, s.Name, s.Checksum,
	); err != nil {
		return fmt.Errorf("migrate: record %s: %w", s.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit %s: %w", s.Name, err)
	}
	return nil
}

// Status returns the highest applied version and the number of steps not
// yet applied.
func (r *Runner) Status(ctx context.Context) (current int, pending int, err error) {
	if err = r.bootstrap(ctx); err != nil {
		return 0, 0, err
	}
	done, err := r.applied(ctx)
	if err != nil {
		return 0, 0, err
	}
	steps, err := r.steps()
	if err != nil {
		return 0, 0, err
	}
	for v := range done {
		current = max(current, v)
	}
	for _, s := range steps {
		if _, ok := done[s.Version]; !ok {
			pending++
		}
	}
	return current, pending, nil
}
