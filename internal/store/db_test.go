package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	d, err := Open(Config{DataDir: dir}, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestOpenCreatesDataDirAndDatabaseFile(t *testing.T) {
	d := newTestDB(t)
	if _, err := os.Stat(filepath.Join(d.cfg.DataDir, "laminark.db")); err != nil {
		t.Fatalf("expected database file to exist: %v", err)
	}
}

func TestOpenIsIdempotentAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	d1, err := Open(Config{DataDir: dir}, zerolog.Nop())
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	repos, err := NewRepositories(d1, "fp-a")
	if err != nil {
		t.Fatalf("build repositories: %v", err)
	}
	if _, err := repos.Observations.Create(ObservationInput{ProjectFingerprint: "fp-a", Source: "hook:Write", Content: "hello"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	d1.Close()

	d2, err := Open(Config{DataDir: dir}, zerolog.Nop())
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer d2.Close()

	var count int
	if err := d2.conn.QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&count); err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if count == 0 {
		t.Fatalf("expected migrations table to be populated")
	}

	repos2, err := NewRepositories(d2, "fp-a")
	if err != nil {
		t.Fatalf("build repositories after reopen: %v", err)
	}
	n, err := repos2.Observations.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected row to survive reopen, got count=%d", n)
	}
}

func TestMigrationsAreIdempotentOnReopen(t *testing.T) {
	dir := t.TempDir()
	d1, err := Open(Config{DataDir: dir}, zerolog.Nop())
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	var before int
	d1.conn.QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&before)
	d1.Close()

	d2, err := Open(Config{DataDir: dir}, zerolog.Nop())
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer d2.Close()
	var after int
	d2.conn.QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&after)

	if before != after {
		t.Fatalf("expected no new migrations applied on reopen, before=%d after=%d", before, after)
	}
}
