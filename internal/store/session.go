package store

import (
	"database/sql"
	"fmt"
)

// SessionRepository is scoped to one project fingerprint, like every
// other repository in this package.
type SessionRepository struct {
	db          *sql.DB
	fingerprint string

	stmtGetByID *sql.Stmt
	stmtEnd     *sql.Stmt
}

func NewSessionRepository(db *sql.DB, projectFingerprint string) (*SessionRepository, error) {
	r := &SessionRepository{db: db, fingerprint: projectFingerprint}

	var err error
	if r.stmtGetByID, err = db.Prepare(sessionSelectColumns + ` FROM sessions WHERE id = ? AND project_fingerprint = ?`); err != nil {
		return nil, fmt.Errorf("laminark: prepare session getById: %w", err)
	}
	if r.stmtEnd, err = db.Prepare(`UPDATE sessions SET ended_at = ?, summary = ? WHERE id = ? AND project_fingerprint = ? AND ended_at IS NULL`); err != nil {
		return nil, fmt.Errorf("laminark: prepare session end: %w", err)
	}
	return r, nil
}

const sessionSelectColumns = `SELECT id, project_fingerprint, started_at, ended_at, summary`

// Create opens a session. Re-creating an id that already exists for this
// project is a no-op (INSERT OR IGNORE), matching host retry semantics
// where SessionStart can legitimately fire more than once.
func (r *SessionRepository) Create(id string) (*Session, error) {
	_, err := r.db.Exec(
		`INSERT OR IGNORE INTO sessions (id, project_fingerprint, started_at) VALUES (?, ?, ?)`,
		id, r.fingerprint, formatTime(nowUTC()),
	)
	if err != nil {
		return nil, fmt.Errorf("laminark: create session: %w", err)
	}
	return r.GetByID(id)
}

// End closes a session, optionally recording its summary. Ending an
// already-ended session is a no-op — a session ends at most once.
func (r *SessionRepository) End(id string, summary *string) error {
	_, err := r.stmtEnd.Exec(formatTime(nowUTC()), summary, id, r.fingerprint)
	if err != nil {
		return fmt.Errorf("laminark: end session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.stmtGetByID.QueryRow(id, r.fingerprint)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("laminark: get session: %w", err)
	}
	return s, nil
}

// GetLatest returns the most recently started session for this project,
// using the same rowid-equivalent tiebreaker idea as observations:
// sessions with equal started_at values break ties on insertion order
// via the table's own rowid.
func (r *SessionRepository) GetLatest() (*Session, error) {
	row := r.db.QueryRow(sessionSelectColumns + ` FROM sessions WHERE project_fingerprint = ? ORDER BY started_at DESC, rowid DESC LIMIT 1`, r.fingerprint)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("laminark: get latest session: %w", err)
	}
	return s, nil
}

// GetActive returns the most recent session that has not been ended, or
// ErrNotFound if none is open.
func (r *SessionRepository) GetActive() (*Session, error) {
	row := r.db.QueryRow(sessionSelectColumns+` FROM sessions WHERE project_fingerprint = ? AND ended_at IS NULL ORDER BY started_at DESC, rowid DESC LIMIT 1`, r.fingerprint)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("laminark: get active session: %w", err)
	}
	return s, nil
}

func scanSession(row *sql.Row) (*Session, error) {
	var s Session
	var endedAt, summary sql.NullString
	var startedAt string
	if err := row.Scan(&s.ID, &s.ProjectFingerprint, &startedAt, &endedAt, &summary); err != nil {
		return nil, err
	}
	s.StartedAt = parseTime(startedAt)
	if endedAt.Valid {
		t := parseTime(endedAt.String)
		s.EndedAt = &t
	}
	if summary.Valid {
		v := summary.String
		s.Summary = &v
	}
	return &s, nil
}
