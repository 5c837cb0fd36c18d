package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ObservationRepository is scoped to a single project fingerprint at
// construction time; every statement it prepares carries that
// fingerprint as a bound parameter, so there is no call shape that can
// read or write another project's rows.
type ObservationRepository struct {
	db          *sql.DB
	fingerprint string

	stmtGetByID    *sql.Stmt
	stmtSoftDelete *sql.Stmt
	stmtRestore    *sql.Stmt
	stmtCount      *sql.Stmt
	stmtUpdate     *sql.Stmt
}

// NewObservationRepository prepares every statement the repository needs
// for its lifetime, per the store's "prepare once, reuse" convention.
func NewObservationRepository(db *sql.DB, projectFingerprint string) (*ObservationRepository, error) {
	r := &ObservationRepository{db: db, fingerprint: projectFingerprint}

	var err error
	if r.stmtGetByID, err = db.Prepare(observationSelectColumns + ` FROM observations WHERE id = ? AND project_fingerprint = ? AND deleted_at IS NULL`); err != nil {
		return nil, fmt.Errorf("laminark: prepare getById: %w", err)
	}
	if r.stmtSoftDelete, err = db.Prepare(`UPDATE observations SET deleted_at = ?, updated_at = ? WHERE id = ? AND project_fingerprint = ? AND deleted_at IS NULL`); err != nil {
		return nil, fmt.Errorf("laminark: prepare softDelete: %w", err)
	}
	if r.stmtRestore, err = db.Prepare(`UPDATE observations SET deleted_at = NULL, updated_at = ? WHERE id = ? AND project_fingerprint = ? AND deleted_at IS NOT NULL`); err != nil {
		return nil, fmt.Errorf("laminark: prepare restore: %w", err)
	}
	if r.stmtCount, err = db.Prepare(`SELECT COUNT(*) FROM observations WHERE project_fingerprint = ? AND deleted_at IS NULL`); err != nil {
		return nil, fmt.Errorf("laminark: prepare count: %w", err)
	}
	if r.stmtUpdate, err = db.Prepare(`
		UPDATE observations
		SET embedding_model = ?, embedding_model_version = ?, kind = ?, classification = ?, updated_at = ?
		WHERE id = ? AND project_fingerprint = ? AND deleted_at IS NULL
	`); err != nil {
		return nil, fmt.Errorf("laminark: prepare update: %w", err)
	}

	return r, nil
}

const observationSelectColumns = `
	SELECT rowid, id, project_fingerprint, session_id, source, title, content,
	       embedding_model, embedding_model_version, kind, classification,
	       created_at, updated_at, deleted_at`

// Create inserts one row with the input's kind (unclassified when empty)
// and a NULL classification. List omits such rows unless
// IncludeUnclassified is set; use CreateClassified instead when the
// admission filter has already made its decision.
func (r *ObservationRepository) Create(input ObservationInput) (*Observation, error) {
	return r.insert(input, nil)
}

// CreateClassified inserts one row carrying the admission filter's
// verdict directly, skipping a separate update round-trip.
func (r *ObservationRepository) CreateClassified(input ObservationInput, classification Classification) (*Observation, error) {
	return r.insert(input, &classification)
}

func (r *ObservationRepository) insert(input ObservationInput, classification *Classification) (*Observation, error) {
	if strings.TrimSpace(input.Content) == "" {
		return nil, fmt.Errorf("laminark: observation content must not be empty")
	}
	kind := input.Kind
	if kind == "" {
		kind = KindUnclassified
	}

	id := uuid.NewString()
	now := nowUTC()

	_, err := r.db.Exec(`
		INSERT INTO observations (id, project_fingerprint, session_id, source, title, content, kind, classification, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id, r.fingerprint, input.SessionID, input.Source, input.Title, input.Content,
		string(kind), classificationOrNil(classification), formatTime(now), formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("laminark: create observation: %w", err)
	}

	return r.GetByID(id)
}

func classificationOrNil(c *Classification) any {
	if c == nil {
		return nil
	}
	return string(*c)
}

// GetByID returns the row, or ErrNotFound if missing, soft-deleted, or
// owned by a different project.
func (r *ObservationRepository) GetByID(id string) (*Observation, error) {
	row := r.stmtGetByID.QueryRow(id, r.fingerprint)
	obs, err := scanObservation(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("laminark: get observation: %w", err)
	}
	return obs, nil
}

// List returns observations ordered by created_at DESC, rowid DESC — the
// rowid tiebreaker keeps the order deterministic when two rows share the
// same created_at value.
func (r *ObservationRepository) List(opts ObservationListOptions) ([]Observation, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := observationSelectColumns + ` FROM observations WHERE project_fingerprint = ? AND deleted_at IS NULL`
	args := []any{r.fingerprint}

	if opts.SessionID != nil {
		query += ` AND session_id = ?`
		args = append(args, *opts.SessionID)
	}
	if opts.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, formatTime(*opts.Since))
	}
	if opts.Kind != nil {
		query += ` AND kind = ?`
		args = append(args, string(*opts.Kind))
	}
	if !opts.IncludeUnclassified {
		query += ` AND classification IS NOT NULL`
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("laminark: list observations: %w", err)
	}
	defer rows.Close()
	return scanObservations(rows)
}

// Update mutates only embedding model/version, kind, and classification.
// Project fingerprint is never touched. The patch's Embedding vector is
// not stored by Update; vectors are written only by SetEmbedding.
func (r *ObservationRepository) Update(id string, patch ObservationPatch) (*Observation, error) {
	existing, err := r.GetByID(id)
	if err != nil {
		return nil, err
	}

	kind := existing.Kind
	if patch.Kind != nil {
		kind = *patch.Kind
	}
	classification := existing.Classification
	if patch.Classification != nil {
		classification = patch.Classification
	}
	embeddingModel := existing.EmbeddingModel
	if patch.EmbeddingModel != nil {
		embeddingModel = patch.EmbeddingModel
	}
	embeddingModelVersion := existing.EmbeddingModelVersion
	if patch.EmbeddingModelVersion != nil {
		embeddingModelVersion = patch.EmbeddingModelVersion
	}

	res, err := r.stmtUpdate.Exec(
		embeddingModel, embeddingModelVersion, string(kind), classificationOrNil(classification),
		formatTime(nowUTC()), id, r.fingerprint,
	)
	if err != nil {
		return nil, fmt.Errorf("laminark: update observation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}

	return r.GetByID(id)
}

// SoftDelete sets deleted_at. A non-existent or already-deleted id is a
// no-op, not an error.
func (r *ObservationRepository) SoftDelete(id string) error {
	_, err := r.stmtSoftDelete.Exec(formatTime(nowUTC()), formatTime(nowUTC()), id, r.fingerprint)
	if err != nil {
		return fmt.Errorf("laminark: soft delete observation: %w", err)
	}
	return nil
}

// Restore clears deleted_at.
func (r *ObservationRepository) Restore(id string) error {
	_, err := r.stmtRestore.Exec(formatTime(nowUTC()), id, r.fingerprint)
	if err != nil {
		return fmt.Errorf("laminark: restore observation: %w", err)
	}
	return nil
}

// Count returns the number of non-deleted rows for this project.
func (r *ObservationRepository) Count() (int, error) {
	var n int
	if err := r.stmtCount.QueryRow(r.fingerprint).Scan(&n); err != nil {
		return 0, fmt.Errorf("laminark: count observations: %w", err)
	}
	return n, nil
}

// PendingEmbedding returns up to limit observations with no embedding
// model recorded yet, the embedding worker's drain query. It is
// intentionally not project-scoped — the worker processes the whole
// database regardless of which project fingerprint opened it.
func PendingEmbedding(db *sql.DB, limit int) ([]Observation, error) {
	rows, err := db.Query(observationSelectColumns+`
		FROM observations
		WHERE embedding_model IS NULL AND deleted_at IS NULL
		ORDER BY created_at ASC, rowid ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("laminark: pending embedding query: %w", err)
	}
	defer rows.Close()
	return scanObservations(rows)
}

// SetEmbedding records the embedding model and version on rowID's
// observation and writes the vector itself into the vector index when
// one exists; without vector support the vector is not kept anywhere,
// but the row is still marked as embedded. It is a distinct write path
// from ObservationRepository.Update because the embedding worker writes
// across all projects and is never transactionally coupled with the
// original observation write — embeddings are rebuildable, so losing one
// to an independent failure is tolerable.
func SetEmbedding(db *sql.DB, hasVectorSupport bool, rowID int64, vec []float32, model, modelVersion string) error {
	if len(vec) != EmbeddingDim {
		return fmt.Errorf("laminark: embedding dimension %d != %d", len(vec), EmbeddingDim)
	}
	_, err := db.Exec(
		`UPDATE observations SET embedding_model = ?, embedding_model_version = ?, updated_at = ? WHERE rowid = ?`,
		model, modelVersion, formatTime(nowUTC()), rowID,
	)
	if err != nil {
		return fmt.Errorf("laminark: set embedding: %w", err)
	}
	if !hasVectorSupport {
		return nil
	}
	if _, err := db.Exec(
		`INSERT INTO observations_vec(observation_rowid, embedding) VALUES (?, ?)
		 ON CONFLICT(observation_rowid) DO UPDATE SET embedding = excluded.embedding`,
		rowID, encodeVector(vec),
	); err != nil {
		return fmt.Errorf("laminark: insert observation vector: %w", err)
	}
	return nil
}

func scanObservation(row *sql.Row) (*Observation, error) {
	var o Observation
	var sessionID, title, embeddingModel, embeddingModelVersion, classification, deletedAt sql.NullString
	var kind string
	var createdAt, updatedAt string

	if err := row.Scan(
		&o.RowID, &o.ID, &o.ProjectFingerprint, &sessionID, &o.Source, &title, &o.Content,
		&embeddingModel, &embeddingModelVersion, &kind, &classification,
		&createdAt, &updatedAt, &deletedAt,
	); err != nil {
		return nil, err
	}
	hydrateObservation(&o, sessionID, title, embeddingModel, embeddingModelVersion, kind, classification, createdAt, updatedAt, deletedAt)
	return &o, nil
}

func scanObservations(rows *sql.Rows) ([]Observation, error) {
	var out []Observation
	for rows.Next() {
		var o Observation
		var sessionID, title, embeddingModel, embeddingModelVersion, classification, deletedAt sql.NullString
		var kind string
		var createdAt, updatedAt string

		if err := rows.Scan(
			&o.RowID, &o.ID, &o.ProjectFingerprint, &sessionID, &o.Source, &title, &o.Content,
			&embeddingModel, &embeddingModelVersion, &kind, &classification,
			&createdAt, &updatedAt, &deletedAt,
		); err != nil {
			return nil, err
		}
		hydrateObservation(&o, sessionID, title, embeddingModel, embeddingModelVersion, kind, classification, createdAt, updatedAt, deletedAt)
		out = append(out, o)
	}
	return out, rows.Err()
}

func hydrateObservation(o *Observation, sessionID, title, embeddingModel, embeddingModelVersion sql.NullString, kind string, classification sql.NullString, createdAt, updatedAt string, deletedAt sql.NullString) {
	if sessionID.Valid {
		v := sessionID.String
		o.SessionID = &v
	}
	if title.Valid {
		v := title.String
		o.Title = &v
	}
	if embeddingModel.Valid {
		v := embeddingModel.String
		o.EmbeddingModel = &v
	}
	if embeddingModelVersion.Valid {
		v := embeddingModelVersion.String
		o.EmbeddingModelVersion = &v
	}
	o.Kind = Kind(kind)
	if classification.Valid {
		v := Classification(classification.String)
		o.Classification = &v
	}
	o.CreatedAt = parseTime(createdAt)
	o.UpdatedAt = parseTime(updatedAt)
	if deletedAt.Valid {
		t := parseTime(deletedAt.String)
		o.DeletedAt = &t
	}
}

func parseTime(s string) time.Time {
	for _, layout := range []string{sqliteTimeLayout, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
