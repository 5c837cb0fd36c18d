// Package store implements Laminark's persistence and retrieval engine:
// an embedded SQLite database with WAL journaling, FTS5 keyword search,
// an optional vector KNN index, and one repository per entity, each
// scoped to a single project fingerprint.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Config controls where the database lives and how its connection pool
// and engine-level tuning knobs are set.
type Config struct {
	DataDir         string
	BusyTimeoutMS   int
	CacheSizeKB     int
	WALAutoCheckpointPages int
}

// DefaultConfig stores the database under the user's home directory,
// overridable by LAMINARK_DATA_DIR at the call site.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:                filepath.Join(home, ".laminark"),
		BusyTimeoutMS:          5000,
		CacheSizeKB:            -8000, // negative: KB of page cache, not page count
		WALAutoCheckpointPages: 1000,
	}
}

// DB owns the connection, the vector-support flag determined at open
// time, and a component logger. Every repository is built from a DB.
type DB struct {
	conn             *sql.DB
	cfg              Config
	log              zerolog.Logger
	HasVectorSupport bool
}

var registerVectorOnce sync.Once

// Open creates the data directory if needed, opens the database file,
// sets PRAGMAs in the order the engine requires (journal_mode first),
// attempts to enable vector search, and runs pending migrations.
func Open(cfg Config, log zerolog.Logger) (*DB, error) {
	if cfg.DataDir == "" {
		cfg = DefaultConfig()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("laminark: create data dir: %w", err)
	}

	if vectorExtensionBuilt() {
		registerVectorOnce.Do(registerVectorExtension)
	}

	dbPath := filepath.Join(cfg.DataDir, "laminark.db")
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("laminark: open database: %w", err)
	}
	conn.SetMaxOpenConns(1) // WAL readers/writers share one *sql.DB-level serialization point per process

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeoutMS),
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA cache_size = %d", cfg.CacheSizeKB),
		"PRAGMA foreign_keys = ON",
		"PRAGMA temp_store = MEMORY",
		fmt.Sprintf("PRAGMA wal_autocheckpoint = %d", cfg.WALAutoCheckpointPages),
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("laminark: pragma %q: %w", p, err)
		}
	}

	d := &DB{conn: conn, cfg: cfg, log: log.With().Str("component", "store").Logger()}
	d.HasVectorSupport = vectorExtensionBuilt() && probeVectorSupport(conn)
	if !d.HasVectorSupport {
		d.log.Warn().Msg("vector extension unavailable, running in keyword-only degraded mode")
	}

	if err := runMigrations(conn, d.HasVectorSupport, d.log); err != nil {
		conn.Close()
		return nil, fmt.Errorf("laminark: migrate: %w", err)
	}

	return d, nil
}

func probeVectorSupport(conn *sql.DB) bool {
	if _, err := conn.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS _laminark_vec_probe USING vec0(sample float[1])`); err != nil {
		return false
	}
	conn.Exec(`DROP TABLE IF EXISTS _laminark_vec_probe`)
	return true
}

// Close performs a best-effort passive WAL checkpoint before releasing
// the handle. Close must succeed even when the checkpoint fails — a
// dirty shutdown must never block process exit.
func (d *DB) Close() error {
	if _, err := d.conn.Exec("PRAGMA wal_checkpoint(PASSIVE)"); err != nil {
		d.log.Debug().Err(err).Msg("passive wal checkpoint failed on close")
	}
	return d.conn.Close()
}

func nowUTC() time.Time { return time.Now().UTC() }

const sqliteTimeLayout = "2006-01-02 15:04:05.999999999"

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
