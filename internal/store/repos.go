package store

import (
	"database/sql"
	"fmt"
)

// Repositories bundles one instance of every repository, all scoped to
// the same project fingerprint and sharing the same connection. Callers
// that only need a subset (the hook process needs Observations, Sessions
// and ToolRegistry; the web server's read endpoints need most of them) still
// get one consistent construction path.
type Repositories struct {
	Observations *ObservationRepository
	Sessions     *SessionRepository
	ToolRegistry *ToolRegistryRepository
	Notifications *NotificationRepository
	Graph         *GraphRepository
	Search        *SearchEngine
}

// NewRepositories constructs every repository bound to projectFingerprint
// against the same open *DB.
func NewRepositories(d *DB, projectFingerprint string) (*Repositories, error) {
	obs, err := NewObservationRepository(d.conn, projectFingerprint)
	if err != nil {
		return nil, fmt.Errorf("laminark: build repositories: %w", err)
	}
	sessions, err := NewSessionRepository(d.conn, projectFingerprint)
	if err != nil {
		return nil, fmt.Errorf("laminark: build repositories: %w", err)
	}
	registry, err := NewToolRegistryRepository(d.conn, projectFingerprint)
	if err != nil {
		return nil, fmt.Errorf("laminark: build repositories: %w", err)
	}

	return &Repositories{
		Observations:  obs,
		Sessions:      sessions,
		ToolRegistry:  registry,
		Notifications: NewNotificationRepository(d.conn, projectFingerprint),
		Graph:         NewGraphRepository(d.conn, projectFingerprint),
		Search:        NewSearchEngine(d.conn, projectFingerprint, d.HasVectorSupport),
	}, nil
}

// Conn exposes the underlying connection for callers that need it
// outside a repository's narrow contract — the embedding worker's
// cross-project drain queries.
func (d *DB) Conn() *sql.DB { return d.conn }

// HasVectors reports whether this open database has vector search
// available, for callers (the serve and stats commands) that need to
// act on or report degraded mode without reaching into DB's fields directly.
func (d *DB) HasVectors() bool { return d.HasVectorSupport }
