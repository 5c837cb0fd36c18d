package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// GraphRepository stores the structures an external detector produces —
// thought branches (work-unit boundaries) and debug paths
// (failure-investigation arcs) — along with their observation waypoints.
// Detection itself is out of scope; this repository only persists and
// reads what a detector hands it.
type GraphRepository struct {
	db          *sql.DB
	fingerprint string
}

func NewGraphRepository(db *sql.DB, projectFingerprint string) *GraphRepository {
	return &GraphRepository{db: db, fingerprint: projectFingerprint}
}

func (r *GraphRepository) CreateThoughtBranch(title string) (*ThoughtBranch, error) {
	id := uuid.NewString()
	now := formatTime(nowUTC())
	if _, err := r.db.Exec(
		`INSERT INTO thought_branches (id, project_fingerprint, title, started_at) VALUES (?, ?, ?, ?)`,
		id, r.fingerprint, title, now,
	); err != nil {
		return nil, fmt.Errorf("laminark: create thought branch: %w", err)
	}
	return &ThoughtBranch{ID: id, ProjectFingerprint: r.fingerprint, Title: title, StartedAt: parseTime(now)}, nil
}

func (r *GraphRepository) EndThoughtBranch(id string) error {
	_, err := r.db.Exec(
		`UPDATE thought_branches SET ended_at = ? WHERE id = ? AND project_fingerprint = ? AND ended_at IS NULL`,
		formatTime(nowUTC()), id, r.fingerprint,
	)
	if err != nil {
		return fmt.Errorf("laminark: end thought branch: %w", err)
	}
	return nil
}

func (r *GraphRepository) AttachToBranch(branchID, observationID string, position int) error {
	_, err := r.db.Exec(
		`INSERT OR IGNORE INTO branch_observations (branch_id, observation_id, position) VALUES (?, ?, ?)`,
		branchID, observationID, position,
	)
	if err != nil {
		return fmt.Errorf("laminark: attach branch observation: %w", err)
	}
	return nil
}

func (r *GraphRepository) CreateDebugPath(title string) (*DebugPath, error) {
	id := uuid.NewString()
	now := formatTime(nowUTC())
	if _, err := r.db.Exec(
		`INSERT INTO debug_paths (id, project_fingerprint, title, started_at, resolved) VALUES (?, ?, ?, ?, 0)`,
		id, r.fingerprint, title, now,
	); err != nil {
		return nil, fmt.Errorf("laminark: create debug path: %w", err)
	}
	return &DebugPath{ID: id, ProjectFingerprint: r.fingerprint, Title: title, StartedAt: parseTime(now)}, nil
}

func (r *GraphRepository) ResolveDebugPath(id string) error {
	_, err := r.db.Exec(
		`UPDATE debug_paths SET ended_at = ?, resolved = 1 WHERE id = ? AND project_fingerprint = ? AND ended_at IS NULL`,
		formatTime(nowUTC()), id, r.fingerprint,
	)
	if err != nil {
		return fmt.Errorf("laminark: resolve debug path: %w", err)
	}
	return nil
}

func (r *GraphRepository) AttachWaypoint(pathID, observationID string, position int) error {
	_, err := r.db.Exec(
		`INSERT OR IGNORE INTO path_waypoints (path_id, observation_id, position) VALUES (?, ?, ?)`,
		pathID, observationID, position,
	)
	if err != nil {
		return fmt.Errorf("laminark: attach path waypoint: %w", err)
	}
	return nil
}

// GraphStats is the aggregate summary the graph_stats RPC tool returns.
type GraphStats struct {
	ThoughtBranchCount int
	OpenThoughtBranches int
	DebugPathCount      int
	UnresolvedDebugPaths int
	WaypointCount        int
}

func (r *GraphRepository) Stats() (*GraphStats, error) {
	var s GraphStats
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM thought_branches WHERE project_fingerprint = ?`, r.fingerprint).Scan(&s.ThoughtBranchCount); err != nil {
		return nil, fmt.Errorf("laminark: graph stats: %w", err)
	}
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM thought_branches WHERE project_fingerprint = ? AND ended_at IS NULL`, r.fingerprint).Scan(&s.OpenThoughtBranches); err != nil {
		return nil, fmt.Errorf("laminark: graph stats: %w", err)
	}
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM debug_paths WHERE project_fingerprint = ?`, r.fingerprint).Scan(&s.DebugPathCount); err != nil {
		return nil, fmt.Errorf("laminark: graph stats: %w", err)
	}
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM debug_paths WHERE project_fingerprint = ? AND resolved = 0`, r.fingerprint).Scan(&s.UnresolvedDebugPaths); err != nil {
		return nil, fmt.Errorf("laminark: graph stats: %w", err)
	}
	if err := r.db.QueryRow(`
		SELECT COUNT(*) FROM path_waypoints pw JOIN debug_paths dp ON dp.id = pw.path_id WHERE dp.project_fingerprint = ?
	`, r.fingerprint).Scan(&s.WaypointCount); err != nil {
		return nil, fmt.Errorf("laminark: graph stats: %w", err)
	}
	return &s, nil
}

// QueryGraph returns the thought branches and debug paths touching a
// given observation id, for the query_graph RPC tool's "what is this
// part of" lookup.
type ObservationGraphMembership struct {
	Branches []ThoughtBranch
	Paths    []DebugPath
}

func (r *GraphRepository) QueryGraph(observationID string) (*ObservationGraphMembership, error) {
	var out ObservationGraphMembership

	branchRows, err := r.db.Query(`
		SELECT tb.id, tb.project_fingerprint, tb.title, tb.started_at, tb.ended_at
		FROM thought_branches tb
		JOIN branch_observations bo ON bo.branch_id = tb.id
		WHERE bo.observation_id = ? AND tb.project_fingerprint = ?
		ORDER BY bo.position ASC
	`, observationID, r.fingerprint)
	if err != nil {
		return nil, fmt.Errorf("laminark: query graph branches: %w", err)
	}
	defer branchRows.Close()
	for branchRows.Next() {
		var b ThoughtBranch
		var endedAt sql.NullString
		var startedAt string
		if err := branchRows.Scan(&b.ID, &b.ProjectFingerprint, &b.Title, &startedAt, &endedAt); err != nil {
			return nil, err
		}
		b.StartedAt = parseTime(startedAt)
		if endedAt.Valid {
			t := parseTime(endedAt.String)
			b.EndedAt = &t
		}
		out.Branches = append(out.Branches, b)
	}
	if err := branchRows.Err(); err != nil {
		return nil, err
	}

	pathRows, err := r.db.Query(`
		SELECT dp.id, dp.project_fingerprint, dp.title, dp.started_at, dp.ended_at, dp.resolved
		FROM debug_paths dp
		JOIN path_waypoints pw ON pw.path_id = dp.id
		WHERE pw.observation_id = ? AND dp.project_fingerprint = ?
		ORDER BY pw.position ASC
	`, observationID, r.fingerprint)
	if err != nil {
		return nil, fmt.Errorf("laminark: query graph paths: %w", err)
	}
	defer pathRows.Close()
	for pathRows.Next() {
		var p DebugPath
		var endedAt sql.NullString
		var startedAt string
		if err := pathRows.Scan(&p.ID, &p.ProjectFingerprint, &p.Title, &startedAt, &endedAt, &p.Resolved); err != nil {
			return nil, err
		}
		p.StartedAt = parseTime(startedAt)
		if endedAt.Valid {
			t := parseTime(endedAt.String)
			p.EndedAt = &t
		}
		out.Paths = append(out.Paths, p)
	}
	if err := pathRows.Err(); err != nil {
		return nil, err
	}

	return &out, nil
}
