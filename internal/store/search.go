package store

import (
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// SearchResult is one ranked hit, carrying which source(s) produced it.
type SearchResult struct {
	Observation Observation
	Score       float64
	MatchType   matchType
}

// SearchOptions narrows a search to a session and/or a time floor, on
// top of the mandatory project scope every SearchEngine call carries.
type SearchOptions struct {
	Limit     int
	SessionID *string
	Since     *time.Time
}

// SearchEngine runs keyword, vector, and hybrid queries scoped to one
// project fingerprint.
type SearchEngine struct {
	db               *sql.DB
	fingerprint      string
	hasVectorSupport bool
}

func NewSearchEngine(db *sql.DB, projectFingerprint string, hasVectorSupport bool) *SearchEngine {
	return &SearchEngine{db: db, fingerprint: projectFingerprint, hasVectorSupport: hasVectorSupport}
}

// ftsOperatorWords are FTS5 boolean operator keywords; a query made up
// entirely of these (after stripping punctuation) has no real search
// content and must short-circuit to an empty result rather than running
// as a syntactically valid but semantically empty MATCH.
var ftsOperatorWords = map[string]bool{"NEAR": true, "AND": true, "OR": true, "NOT": true}

var ftsStripChars = regexp.MustCompile(`["*()\[\]^{}]`)

// sanitizeFTSQuery strips FTS5 operator punctuation and bare operator
// keywords, then wraps each remaining token in quotes so FTS5 treats it
// as a literal term. If every token is dropped, it returns "" — callers
// must treat that as "return no results, run no query".
// Sanitization is idempotent: sanitize(sanitize(x)) == sanitize(x).
func sanitizeFTSQuery(query string) string {
	stripped := ftsStripChars.ReplaceAllString(query, "")
	fields := strings.Fields(stripped)

	var terms []string
	for _, f := range fields {
		term := strings.Trim(f, `"`)
		if term == "" {
			continue
		}
		if ftsOperatorWords[strings.ToUpper(term)] {
			continue
		}
		terms = append(terms, `"`+term+`"`)
	}
	return strings.Join(terms, " ")
}

// SearchKeyword runs an FTS5 MATCH query ranked by BM25 (title weighted
// over content), returning observations tagged matchType=fts.
func (s *SearchEngine) SearchKeyword(query string, opts SearchOptions) ([]SearchResult, error) {
	ftsQuery := sanitizeFTSQuery(query)
	if ftsQuery == "" {
		return nil, nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	sqlQuery := observationSelectColumns + `,
		bm25(observations_fts, 2.0, 1.0) AS rank
		FROM observations_fts
		JOIN observations ON observations.rowid = observations_fts.rowid
		WHERE observations_fts MATCH ? AND observations.project_fingerprint = ? AND observations.deleted_at IS NULL
	`
	args := []any{ftsQuery, s.fingerprint}

	if opts.SessionID != nil {
		sqlQuery += ` AND observations.session_id = ?`
		args = append(args, *opts.SessionID)
	}
	if opts.Since != nil {
		sqlQuery += ` AND observations.created_at >= ?`
		args = append(args, formatTime(*opts.Since))
	}
	sqlQuery += ` ORDER BY rank LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("laminark: search keyword: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var o Observation
		var sessionID, title, embeddingModel, embeddingModelVersion, classification, deletedAt sql.NullString
		var kind string
		var createdAt, updatedAt string
		var bm25Rank float64

		if err := rows.Scan(
			&o.RowID, &o.ID, &o.ProjectFingerprint, &sessionID, &o.Source, &title, &o.Content,
			&embeddingModel, &embeddingModelVersion, &kind, &classification,
			&createdAt, &updatedAt, &deletedAt, &bm25Rank,
		); err != nil {
			return nil, err
		}
		hydrateObservation(&o, sessionID, title, embeddingModel, embeddingModelVersion, kind, classification, createdAt, updatedAt, deletedAt)

		// bm25() in SQLite returns a negative "lower is better" score;
		// expose it to callers as a positive magnitude.
		out = append(out, SearchResult{Observation: o, Score: -bm25Rank, MatchType: matchTypeFTS})
	}
	return out, rows.Err()
}

// SearchVector runs a KNN query against the observation embedding
// index, joined back to observations on project scope and soft-delete
// state. Returns (nil, ErrDegraded) when the vector extension isn't
// available — callers fall back to keyword-only results rather than
// treating this as a hard failure.
func (s *SearchEngine) SearchVector(queryVec []float32, opts SearchOptions) ([]SearchResult, error) {
	if !s.hasVectorSupport {
		return nil, ErrDegraded
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}

	sqlQuery := observationSelectColumns + `,
		observations_vec.distance AS distance
		FROM observations_vec
		JOIN observations ON observations.rowid = observations_vec.observation_rowid
		WHERE observations_vec.embedding MATCH ? AND k = ?
		  AND observations.project_fingerprint = ? AND observations.deleted_at IS NULL
	`
	args := []any{encodeVector(queryVec), limit, s.fingerprint}

	if opts.SessionID != nil {
		sqlQuery += ` AND observations.session_id = ?`
		args = append(args, *opts.SessionID)
	}
	if opts.Since != nil {
		sqlQuery += ` AND observations.created_at >= ?`
		args = append(args, formatTime(*opts.Since))
	}
	sqlQuery += ` ORDER BY distance`

	rows, err := s.db.Query(sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("laminark: search vector: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var o Observation
		var sessionID, title, embeddingModel, embeddingModelVersion, classification, deletedAt sql.NullString
		var kind string
		var createdAt, updatedAt string
		var distance float64

		if err := rows.Scan(
			&o.RowID, &o.ID, &o.ProjectFingerprint, &sessionID, &o.Source, &title, &o.Content,
			&embeddingModel, &embeddingModelVersion, &kind, &classification,
			&createdAt, &updatedAt, &deletedAt, &distance,
		); err != nil {
			return nil, err
		}
		hydrateObservation(&o, sessionID, title, embeddingModel, embeddingModelVersion, kind, classification, createdAt, updatedAt, deletedAt)
		out = append(out, SearchResult{Observation: o, Score: -distance, MatchType: matchTypeVector})
	}
	return out, rows.Err()
}

// HybridSearch runs both keyword and (if available) vector search over
// up to 2*limit candidates each, fuses them with reciprocal rank fusion,
// and returns the top `limit` by fused score. If the vector extension is
// unavailable, it degrades to an FTS-only result set tagged matchType=fts
// and never returns an error for that reason alone.
func (s *SearchEngine) HybridSearch(text string, queryVec []float32, opts SearchOptions) ([]SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	fanOut := opts
	fanOut.Limit = limit * 2

	ftsResults, err := s.SearchKeyword(text, fanOut)
	if err != nil {
		return nil, err
	}

	var vecResults []SearchResult
	if s.hasVectorSupport && len(queryVec) == EmbeddingDim {
		vecResults, err = s.SearchVector(queryVec, fanOut)
		if err != nil && err != ErrDegraded {
			return nil, err
		}
	}

	if len(vecResults) == 0 {
		if len(ftsResults) > limit {
			ftsResults = ftsResults[:limit]
		}
		return ftsResults, nil
	}

	byID := make(map[string]Observation, len(ftsResults)+len(vecResults))
	inFTS := make(map[string]bool, len(ftsResults))
	inVec := make(map[string]bool, len(vecResults))

	ftsRanked := make(rankedList, 0, len(ftsResults))
	for _, r := range ftsResults {
		byID[r.Observation.ID] = r.Observation
		inFTS[r.Observation.ID] = true
		ftsRanked = append(ftsRanked, r.Observation.ID)
	}
	vecRanked := make(rankedList, 0, len(vecResults))
	for _, r := range vecResults {
		byID[r.Observation.ID] = r.Observation
		inVec[r.Observation.ID] = true
		vecRanked = append(vecRanked, r.Observation.ID)
	}

	fused := rrfFuse(ftsRanked, vecRanked)

	fusedResults := make([]SearchResult, 0, len(fused))
	for id, score := range fused {
		fusedResults = append(fusedResults, SearchResult{
			Observation: byID[id],
			Score:       score,
			MatchType:   matchTypeFor(inFTS[id], inVec[id]),
		})
	}

	sortSearchResultsDesc(fusedResults)
	if len(fusedResults) > limit {
		fusedResults = fusedResults[:limit]
	}
	return fusedResults, nil
}

// sortSearchResultsDesc orders by score descending with a stable,
// deterministic tiebreaker on rowid so RRF ties never reorder between
// runs over identical data.
func sortSearchResultsDesc(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Observation.RowID > results[j].Observation.RowID
	})
}
