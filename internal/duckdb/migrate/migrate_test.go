package migrate

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"

	_ "github.com/duckdb/duckdb-go/v2"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func embeddedCount(t *testing.T) int {
	t.Helper()
	steps, err := Load(embedded, "migrations")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return len(steps)
}

func TestRunCreatesCacheTables(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := NewRunner(db).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, table := range []string{"responses", "notifications", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT table_name FROM information_schema.tables WHERE table_name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestRunIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := NewRunner(db)

	before, pending, err := r.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if before != 0 || pending != embeddedCount(t) {
		t.Errorf("before run: version=%d pending=%d", before, pending)
	}

	if err := r.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := r.Run(ctx); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	cur, pending, err := r.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if cur == 0 || pending != 0 {
		t.Errorf("after run: version=%d pending=%d", cur, pending)
	}
}

func TestLoadOrdersByVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/010_late.sql":  {Data: []byte("SELECT 10")},
		"m/002_early.sql": {Data: []byte("SELECT 2")},
		"m/README.md":     {Data: []byte("ignored")},
		"m/nounder.sql":   {Data: []byte("ignored")},
	}
	steps, err := Load(fsys, "m")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(steps) != 2 || steps[0].Version != 2 || steps[1].Version != 10 {
		t.Fatalf("unexpected steps: %+v", steps)
	}
	if steps[0].Checksum == "" || steps[0].Checksum == steps[1].Checksum {
		t.Errorf("checksums not distinct: %q %q", steps[0].Checksum, steps[1].Checksum)
	}
}

func TestLoadRejectsDuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"m/001_a.sql":  {Data: []byte("SELECT 1")},
		"m/0001_b.sql": {Data: []byte("SELECT 1")},
	}
	if _, err := Load(fsys, "m"); err == nil {
		t.Fatal("expected duplicate version error")
	}
}

func TestRunDetectsModifiedStep(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	original := fstest.MapFS{"m/001_t.sql": {Data: []byte("CREATE TABLE t (id INTEGER)")}}
	r := &Runner{db: db, steps: func() ([]Step, error) { return Load(original, "m") }}
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	edited := fstest.MapFS{"m/001_t.sql": {Data: []byte("CREATE TABLE t (id BIGINT)")}}
	r.steps = func() ([]Step, error) { return Load(edited, "m") }
	if err := r.Run(ctx); !errors.Is(err, ErrModified) {
		t.Fatalf("expected ErrModified, got %v", err)
	}
}

func TestRunRollsBackFailedStep(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	fsys := fstest.MapFS{
		"m/001_ok.sql":  {Data: []byte("CREATE TABLE ok (id INTEGER)")},
		"m/002_bad.sql": {Data: []byte("CREATE TABLE broken (")},
	}
	r := &Runner{db: db, steps: func() ([]Step, error) { return Load(fsys, "m") }}
	if err := r.Run(ctx); err == nil {
		t.Fatal("expected error from malformed step")
	}

	cur, pending, err := r.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if cur != 1 || pending != 1 {
		t.Errorf("expected version=1 pending=1, got version=%d pending=%d", cur, pending)
	}
}
