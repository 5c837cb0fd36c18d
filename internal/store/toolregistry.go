package store

import (
	"database/sql"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// scopePredicate is the ONE SQL expression that decides whether a tool
// registry row is visible to a project. It is never re-derived at
// another call site: a naive "scope='global' OR project_fingerprint=?"
// check would drop plugin-scoped rows that carry no fingerprint, and
// would admit a row bound to this project whatever its scope value.
const scopePredicate = `(
	scope = 'global'
	OR (scope = 'project' AND project_fingerprint = ?)
	OR (scope = 'plugin' AND (project_fingerprint IS NULL OR project_fingerprint = ?))
)`

// ToolRegistryRepository is the cross-project tool catalog. Unlike the
// other repositories, reads here are NOT limited to one project — the
// whole point of the registry is a shared catalog — but every
// availability query still runs through scopePredicate so a project
// never sees another project's project-scoped rows.
type ToolRegistryRepository struct {
	db          *sql.DB
	fingerprint string

	// availabilityCache holds the most recent getAvailableForSession
	// result set, invalidated on every upsert/recordOrCreate for this
	// project. Small TTL-free LRU: the registry rarely exceeds a few
	// hundred entries, so one cache slot per fingerprint suffices.
	availabilityCache *lru.Cache[string, []ToolRegistryEntry]
}

func NewToolRegistryRepository(db *sql.DB, projectFingerprint string) (*ToolRegistryRepository, error) {
	cache, err := lru.New[string, []ToolRegistryEntry](8)
	if err != nil {
		return nil, fmt.Errorf("laminark: registry cache: %w", err)
	}
	return &ToolRegistryRepository{db: db, fingerprint: projectFingerprint, availabilityCache: cache}, nil
}

// Upsert inserts a new entry or updates an existing one keyed on
// (name, COALESCE(project_fingerprint, '')). On conflict, description is
// refreshed (COALESCE against the old value so a later write with an
// empty description doesn't blank it), source and status are refreshed,
// usage_count is left untouched, and scope is NEVER overwritten — the
// first writer's scope classification wins.
func (r *ToolRegistryRepository) Upsert(entry ToolRegistryEntry) error {
	now := formatTime(nowUTC())
	_, err := r.db.Exec(`
		INSERT INTO tool_registry (name, tool_type, scope, source, project_fingerprint, description, server_name, trigger_hints, status, usage_count, discovered_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(name, fingerprint_key) DO UPDATE SET
			description   = coalesce(excluded.description, tool_registry.description),
			source        = excluded.source,
			server_name   = coalesce(excluded.server_name, tool_registry.server_name),
			trigger_hints = coalesce(excluded.trigger_hints, tool_registry.trigger_hints),
			status        = excluded.status,
			updated_at    = excluded.updated_at
	`,
		entry.Name, string(entry.ToolType), string(entry.Scope), entry.Source, entry.ProjectFingerprint,
		entry.Description, entry.ServerName, entry.TriggerHints, string(entry.Status), now, now,
	)
	if err != nil {
		return fmt.Errorf("laminark: upsert tool registry entry: %w", err)
	}
	r.availabilityCache.Purge()
	return nil
}

// RecordOrCreate is the hot path invoked once per tool use. It is atomic
// from the caller's point of view: the aggregate counter and
// last_used_at update unconditionally, and if sessionID is non-nil a
// supplementary ToolUsageEvent row is also inserted. The two writes are
// NOT wrapped in one transaction — an event-insert failure must never
// roll back the counter update, so it is logged by the caller and
// otherwise ignored here.
func (r *ToolRegistryRepository) RecordOrCreate(name string, defaults ToolRegistryEntry, sessionID *string, success bool) error {
	now := formatTime(nowUTC())
	if err := r.Upsert(defaults); err != nil {
		return err
	}

	fingerprintKey := ""
	if defaults.ProjectFingerprint != nil {
		fingerprintKey = *defaults.ProjectFingerprint
	}
	if _, err := r.db.Exec(`
		UPDATE tool_registry SET usage_count = usage_count + 1, last_used_at = ?, updated_at = ?
		WHERE name = ? AND fingerprint_key = ?
	`, now, now, name, fingerprintKey); err != nil {
		return fmt.Errorf("laminark: bump tool usage count: %w", err)
	}
	r.availabilityCache.Purge()

	if sessionID != nil {
		if _, err := r.db.Exec(
			`INSERT INTO tool_usage_events (tool_name, session_id, project_fingerprint, success, created_at) VALUES (?, ?, ?, ?, ?)`,
			name, *sessionID, r.fingerprint, success, now,
		); err != nil {
			return fmt.Errorf("laminark: insert tool usage event: %w", err)
		}
	}
	return nil
}

// GetAvailableForSession returns every entry visible to this project
// under scopePredicate, ordered by tool_type bucket, then usage_count
// DESC, then discovered_at DESC.
func (r *ToolRegistryRepository) GetAvailableForSession() ([]ToolRegistryEntry, error) {
	if cached, ok := r.availabilityCache.Get(r.fingerprint); ok {
		return cached, nil
	}

	rows, err := r.db.Query(`
		SELECT name, tool_type, scope, source, project_fingerprint, description, server_name, trigger_hints,
		       status, usage_count, last_used_at, discovered_at, updated_at
		FROM tool_registry
		WHERE `+scopePredicate+`
		ORDER BY
			CASE tool_type
				WHEN 'mcp_server' THEN 0
				WHEN 'mcp_tool' THEN 1
				WHEN 'slash_command' THEN 2
				WHEN 'skill' THEN 3
				WHEN 'plugin' THEN 4
				WHEN 'builtin' THEN 5
				ELSE 6
			END,
			usage_count DESC,
			discovered_at DESC
	`, r.fingerprint, r.fingerprint)
	if err != nil {
		return nil, fmt.Errorf("laminark: get available tools: %w", err)
	}
	defer rows.Close()

	entries, err := scanToolRegistryEntries(rows)
	if err != nil {
		return nil, err
	}
	r.availabilityCache.Add(r.fingerprint, entries)
	return entries, nil
}

// GetUsageForTool returns the usage events for one tool within the last
// windowDays, scoped to this project.
func (r *ToolRegistryRepository) GetUsageForTool(name string, windowDays int) ([]ToolUsageEvent, error) {
	rows, err := r.db.Query(`
		SELECT id, tool_name, session_id, project_fingerprint, success, created_at
		FROM tool_usage_events
		WHERE tool_name = ? AND project_fingerprint = ? AND created_at >= datetime('now', ?)
		ORDER BY created_at DESC
	`, name, r.fingerprint, fmt.Sprintf("-%d days", windowDays))
	if err != nil {
		return nil, fmt.Errorf("laminark: get tool usage: %w", err)
	}
	defer rows.Close()
	return scanToolUsageEvents(rows)
}

// GetUsageForSession returns every usage event recorded under a session.
func (r *ToolRegistryRepository) GetUsageForSession(sessionID string) ([]ToolUsageEvent, error) {
	rows, err := r.db.Query(`
		SELECT id, tool_name, session_id, project_fingerprint, success, created_at
		FROM tool_usage_events
		WHERE session_id = ? AND project_fingerprint = ?
		ORDER BY created_at ASC
	`, sessionID, r.fingerprint)
	if err != nil {
		return nil, fmt.Errorf("laminark: get session usage: %w", err)
	}
	defer rows.Close()
	return scanToolUsageEvents(rows)
}

// GetUsageSince returns every usage event at or after the given ISO
// timestamp, scoped to this project — the context assembler's tools
// section windows over this to compute recent event-count share.
func (r *ToolRegistryRepository) GetUsageSince(isoTimestamp string) ([]ToolUsageEvent, error) {
	rows, err := r.db.Query(`
		SELECT id, tool_name, session_id, project_fingerprint, success, created_at
		FROM tool_usage_events
		WHERE project_fingerprint = ? AND created_at >= ?
		ORDER BY created_at DESC
	`, r.fingerprint, isoTimestamp)
	if err != nil {
		return nil, fmt.Errorf("laminark: get usage since: %w", err)
	}
	defer rows.Close()
	return scanToolUsageEvents(rows)
}

func scanToolRegistryEntries(rows *sql.Rows) ([]ToolRegistryEntry, error) {
	var out []ToolRegistryEntry
	for rows.Next() {
		var e ToolRegistryEntry
		var toolType, scope, status string
		var projectFingerprint, description, serverName, triggerHints, lastUsedAt sql.NullString
		var discoveredAt, updatedAt string

		if err := rows.Scan(
			&e.Name, &toolType, &scope, &e.Source, &projectFingerprint, &description, &serverName, &triggerHints,
			&status, &e.UsageCount, &lastUsedAt, &discoveredAt, &updatedAt,
		); err != nil {
			return nil, err
		}
		e.ToolType = ToolType(toolType)
		e.Scope = Scope(scope)
		e.Status = ToolStatus(status)
		if projectFingerprint.Valid {
			v := projectFingerprint.String
			e.ProjectFingerprint = &v
		}
		if description.Valid {
			v := description.String
			e.Description = &v
		}
		if serverName.Valid {
			v := serverName.String
			e.ServerName = &v
		}
		if triggerHints.Valid {
			v := triggerHints.String
			e.TriggerHints = &v
		}
		if lastUsedAt.Valid {
			t := parseTime(lastUsedAt.String)
			e.LastUsedAt = &t
		}
		e.DiscoveredAt = parseTime(discoveredAt)
		e.UpdatedAt = parseTime(updatedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanToolUsageEvents(rows *sql.Rows) ([]ToolUsageEvent, error) {
	var out []ToolUsageEvent
	for rows.Next() {
		var e ToolUsageEvent
		var sessionID sql.NullString
		var createdAt string
		if err := rows.Scan(&e.ID, &e.ToolName, &sessionID, &e.ProjectFingerprint, &e.Success, &createdAt); err != nil {
			return nil, err
		}
		if sessionID.Valid {
			v := sessionID.String
			e.SessionID = &v
		}
		e.CreatedAt = parseTime(createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// PendingToolEmbedding returns, across all projects, up to limit registry
// rows that carry a description but have never been embedded. Like
// PendingEmbedding for observations, this is a free function rather than
// a method: the embedding worker's sweep is not scoped to one project.
func PendingToolEmbedding(db *sql.DB, limit int) ([]ToolRegistryEntry, error) {
	rows, err := db.Query(`
		SELECT name, tool_type, scope, source, project_fingerprint, description, server_name, trigger_hints,
		       status, usage_count, last_used_at, discovered_at, updated_at
		FROM tool_registry
		WHERE embedding_model IS NULL AND description IS NOT NULL AND trim(description) != ''
		ORDER BY discovered_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("laminark: list pending tool embeddings: %w", err)
	}
	defer rows.Close()
	return scanToolRegistryEntries(rows)
}

// SetToolEmbedding stores a computed embedding for the registry row
// identified by name+fingerprintKey, mirroring it into tool_registry_vec
// when the vector extension is available. fingerprintKey is the same
// coalesce(project_fingerprint, '') value the generated column computes,
// so callers pass entry.ProjectFingerprint dereferenced or "" for global.
func SetToolEmbedding(db *sql.DB, hasVectorSupport bool, name, fingerprintKey string, vec []float32, model, modelVersion string) error {
	if len(vec) != EmbeddingDim {
		return fmt.Errorf("laminark: tool embedding dimension %d != %d", len(vec), EmbeddingDim)
	}
	_, err := db.Exec(
		`UPDATE tool_registry SET embedding_model = ?, embedding_model_version = ?, updated_at = ?
		 WHERE name = ? AND fingerprint_key = ?`,
		model, modelVersion, formatTime(nowUTC()), name, fingerprintKey,
	)
	if err != nil {
		return fmt.Errorf("laminark: set tool embedding: %w", err)
	}
	rowID, err := rowidForToolRegistry(db, name, fingerprintKey)
	if err != nil {
		return err
	}

	if !hasVectorSupport {
		return nil
	}
	_, err = db.Exec(
		`INSERT INTO tool_registry_vec(rowid, embedding) VALUES (?, ?)
		 ON CONFLICT(rowid) DO UPDATE SET embedding = excluded.embedding`,
		rowID, encodeVector(vec),
	)
	if err != nil {
		return fmt.Errorf("laminark: index tool embedding: %w", err)
	}
	return nil
}

func rowidForToolRegistry(db *sql.DB, name, fingerprintKey string) (int64, error) {
	var rowID int64
	err := db.QueryRow(
		`SELECT rowid FROM tool_registry WHERE name = ? AND fingerprint_key = ?`,
		name, fingerprintKey,
	).Scan(&rowID)
	if err != nil {
		return 0, fmt.Errorf("laminark: locate tool registry row: %w", err)
	}
	return rowID, nil
}
