package store

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// migration is one forward-only, idempotent schema step. vectorDependent
// migrations are skipped (and left unrecorded, so they retry on a later
// open) when the vector extension isn't available.
type migration struct {
	version         int
	name            string
	vectorDependent bool
	script          string
}

// migrations is the full ordered schema history. Never edit an applied
// entry in place — add a new one.
var migrations = []migration{
	{
		version: 1,
		name:    "core_tables",
		script: `
			CREATE TABLE IF NOT EXISTS sessions (
				id                  TEXT PRIMARY KEY,
				project_fingerprint TEXT NOT NULL,
				started_at          TEXT NOT NULL,
				ended_at            TEXT,
				summary             TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project_fingerprint, started_at DESC);

			CREATE TABLE IF NOT EXISTS observations (
				rowid                   INTEGER PRIMARY KEY AUTOINCREMENT,
				id                      TEXT NOT NULL UNIQUE,
				project_fingerprint     TEXT NOT NULL,
				session_id              TEXT,
				source                  TEXT NOT NULL,
				title                   TEXT,
				content                 TEXT NOT NULL,
				embedding_model         TEXT,
				embedding_model_version TEXT,
				kind                    TEXT NOT NULL DEFAULT 'unclassified',
				classification          TEXT,
				created_at              TEXT NOT NULL,
				updated_at              TEXT NOT NULL,
				deleted_at              TEXT,
				FOREIGN KEY (session_id) REFERENCES sessions(id)
			);
			CREATE INDEX IF NOT EXISTS idx_obs_project_created ON observations(project_fingerprint, created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_obs_classification  ON observations(classification, project_fingerprint);
			CREATE INDEX IF NOT EXISTS idx_obs_session         ON observations(session_id);
			CREATE INDEX IF NOT EXISTS idx_obs_deleted         ON observations(deleted_at);
			CREATE INDEX IF NOT EXISTS idx_obs_kind            ON observations(kind, project_fingerprint, created_at DESC);

			CREATE TABLE IF NOT EXISTS tool_registry (
				rowid               INTEGER PRIMARY KEY AUTOINCREMENT,
				name                TEXT NOT NULL,
				tool_type           TEXT NOT NULL,
				scope               TEXT NOT NULL,
				source              TEXT NOT NULL,
				project_fingerprint TEXT,
				fingerprint_key     TEXT GENERATED ALWAYS AS (coalesce(project_fingerprint, '')) STORED,
				description         TEXT,
				server_name         TEXT,
				trigger_hints       TEXT,
				status              TEXT NOT NULL DEFAULT 'active',
				usage_count         INTEGER NOT NULL DEFAULT 0,
				last_used_at        TEXT,
				embedding_model         TEXT,
				embedding_model_version TEXT,
				discovered_at       TEXT NOT NULL,
				updated_at          TEXT NOT NULL
			);
			-- unique on (name, COALESCE(project_fingerprint, '')): a literal
			-- composite PRIMARY KEY on the nullable column would treat distinct
			-- NULLs as non-conflicting in SQLite, so identity rides on the
			-- generated/stored fingerprint_key column instead.
			CREATE UNIQUE INDEX IF NOT EXISTS idx_registry_identity ON tool_registry(name, fingerprint_key);
			CREATE INDEX IF NOT EXISTS idx_registry_scope ON tool_registry(scope, project_fingerprint);
			CREATE INDEX IF NOT EXISTS idx_registry_usage ON tool_registry(usage_count DESC, discovered_at DESC);

			CREATE TABLE IF NOT EXISTS tool_usage_events (
				id                  INTEGER PRIMARY KEY AUTOINCREMENT,
				tool_name           TEXT NOT NULL,
				session_id          TEXT,
				project_fingerprint TEXT NOT NULL,
				success             INTEGER NOT NULL,
				created_at          TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_usage_tool    ON tool_usage_events(tool_name, created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_usage_session ON tool_usage_events(session_id);
			CREATE INDEX IF NOT EXISTS idx_usage_created ON tool_usage_events(created_at DESC);

			CREATE TABLE IF NOT EXISTS notifications (
				id                  INTEGER PRIMARY KEY AUTOINCREMENT,
				project_fingerprint TEXT NOT NULL,
				message             TEXT NOT NULL,
				created_at          TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_notifications_project ON notifications(project_fingerprint, created_at DESC);

			CREATE TABLE IF NOT EXISTS thought_branches (
				id                  TEXT PRIMARY KEY,
				project_fingerprint TEXT NOT NULL,
				title               TEXT NOT NULL,
				started_at          TEXT NOT NULL,
				ended_at            TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_branches_project ON thought_branches(project_fingerprint, started_at DESC);

			CREATE TABLE IF NOT EXISTS branch_observations (
				branch_id      TEXT NOT NULL,
				observation_id TEXT NOT NULL,
				position       INTEGER NOT NULL,
				PRIMARY KEY (branch_id, observation_id),
				FOREIGN KEY (branch_id) REFERENCES thought_branches(id)
			);

			CREATE TABLE IF NOT EXISTS debug_paths (
				id                  TEXT PRIMARY KEY,
				project_fingerprint TEXT NOT NULL,
				title               TEXT NOT NULL,
				started_at          TEXT NOT NULL,
				ended_at            TEXT,
				resolved            INTEGER NOT NULL DEFAULT 0
			);
			CREATE INDEX IF NOT EXISTS idx_paths_project ON debug_paths(project_fingerprint, started_at DESC);

			CREATE TABLE IF NOT EXISTS path_waypoints (
				path_id        TEXT NOT NULL,
				observation_id TEXT NOT NULL,
				position       INTEGER NOT NULL,
				PRIMARY KEY (path_id, observation_id),
				FOREIGN KEY (path_id) REFERENCES debug_paths(id)
			);
		`,
	},
	{
		version: 2,
		name:    "observations_fts",
		script: `
			CREATE VIRTUAL TABLE IF NOT EXISTS observations_fts USING fts5(
				title,
				content,
				tokenize = 'porter unicode61',
				content = 'observations',
				content_rowid = 'rowid'
			);

			CREATE TRIGGER IF NOT EXISTS obs_fts_insert AFTER INSERT ON observations BEGIN
				INSERT INTO observations_fts(rowid, title, content)
				VALUES (new.rowid, new.title, new.content);
			END;

			CREATE TRIGGER IF NOT EXISTS obs_fts_update AFTER UPDATE ON observations BEGIN
				INSERT INTO observations_fts(observations_fts, rowid, title, content)
				VALUES ('delete', old.rowid, old.title, old.content);
				INSERT INTO observations_fts(rowid, title, content)
				VALUES (new.rowid, new.title, new.content);
			END;

			CREATE TRIGGER IF NOT EXISTS obs_fts_delete AFTER DELETE ON observations BEGIN
				INSERT INTO observations_fts(observations_fts, rowid, title, content)
				VALUES ('delete', old.rowid, old.title, old.content);
			END;
		`,
	},
	{
		version: 3,
		name:    "tool_registry_fts",
		script: `
			CREATE VIRTUAL TABLE IF NOT EXISTS tool_registry_fts USING fts5(
				name,
				description,
				tokenize = 'porter unicode61',
				content = 'tool_registry',
				content_rowid = 'rowid'
			);

			CREATE TRIGGER IF NOT EXISTS registry_fts_insert AFTER INSERT ON tool_registry BEGIN
				INSERT INTO tool_registry_fts(rowid, name, description)
				VALUES (new.rowid, new.name, new.description);
			END;

			CREATE TRIGGER IF NOT EXISTS registry_fts_update AFTER UPDATE ON tool_registry BEGIN
				INSERT INTO tool_registry_fts(tool_registry_fts, rowid, name, description)
				VALUES ('delete', old.rowid, old.name, old.description);
				INSERT INTO tool_registry_fts(rowid, name, description)
				VALUES (new.rowid, new.name, new.description);
			END;

			CREATE TRIGGER IF NOT EXISTS registry_fts_delete AFTER DELETE ON tool_registry BEGIN
				INSERT INTO tool_registry_fts(tool_registry_fts, rowid, name, description)
				VALUES ('delete', old.rowid, old.name, old.description);
			END;
		`,
	},
	{
		version:         4,
		name:            "observations_vector",
		vectorDependent: true,
		script: `
			CREATE VIRTUAL TABLE IF NOT EXISTS observations_vec USING vec0(
				observation_rowid INTEGER PRIMARY KEY,
				embedding float[384] distance_metric=cosine
			);
		`,
	},
	{
		version:         5,
		name:            "tool_registry_vector",
		vectorDependent: true,
		script: `
			CREATE VIRTUAL TABLE IF NOT EXISTS tool_registry_vec USING vec0(
				tool_rowid INTEGER PRIMARY KEY,
				embedding float[384] distance_metric=cosine
			);
		`,
	},
}

// runMigrations applies every migration not yet recorded in _migrations,
// each inside its own transaction. Vector-dependent migrations are
// skipped (left unrecorded) when hasVector is false, so a later open
// with vector support enabled retries them.
func runMigrations(conn *sql.DB, hasVector bool, log zerolog.Logger) error {
	if _, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS _migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	applied := map[int]bool{}
	rows, err := conn.Query(`SELECT version FROM _migrations`)
	if err != nil {
		return fmt.Errorf("read _migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return err
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if m.vectorDependent && !hasVector {
			log.Debug().Str("migration", m.name).Msg("skipping vector-dependent migration, no vector support")
			continue
		}

		tx, err := conn.Begin()
		if err != nil {
			return fmt.Errorf("migration %s: begin: %w", m.name, err)
		}
		if _, err := tx.Exec(m.script); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO _migrations (version, name, applied_at) VALUES (?, ?, ?)`,
			m.version, m.name, formatTime(nowUTC()),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %s: record: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %s: commit: %w", m.name, err)
		}
		log.Debug().Str("migration", m.name).Int("version", m.version).Msg("applied migration")
	}

	return nil
}
