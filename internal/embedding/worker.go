package embedding

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/laminark/laminark/internal/store"
)

const (
	tickInterval         = 5 * time.Second
	observationBatchSize = 10
	toolDescriptionBatch = 5
)

// Worker drains unembedded observations and tool descriptions on a
// fixed tick, writing vectors back through the store package. It runs
// on its own goroutine and never blocks the RPC request loop: a slow or
// unreachable model only delays embeddings, never a tool call.
type Worker struct {
	db     *sql.DB
	client *Client
	hasVec bool
	log    zerolog.Logger

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewWorker builds a Worker over db. hasVectorSupport mirrors
// store.DB.HasVectors() so the worker can skip the vec0 mirror step in
// degraded builds.
func NewWorker(db *sql.DB, client *Client, hasVectorSupport bool, log zerolog.Logger) *Worker {
	return &Worker{db: db, client: client, hasVec: hasVectorSupport, log: log}
}

// Start begins the tick loop. Calling Start twice is a no-op.
func (w *Worker) Start(parent context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.loop(ctx)
}

// Stop cancels the loop and waits for the in-flight tick to finish
// between rows — never mid-row, so a partially embedded batch always
// leaves individual rows in a consistent state.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	w.cancel()
	w.wg.Wait()
	w.running = false
}

func (w *Worker) loop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	if err := w.embedObservations(ctx); err != nil {
		w.log.Warn().Err(err).Msg("observation embedding pass failed")
	}
	if err := w.embedToolDescriptions(ctx); err != nil {
		w.log.Warn().Err(err).Msg("tool embedding pass failed")
	}
}

func (w *Worker) embedObservations(ctx context.Context) error {
	pending, err := store.PendingEmbedding(w.db, observationBatchSize)
	if err != nil {
		return err
	}
	for _, obs := range pending {
		if ctx.Err() != nil {
			return nil
		}
		vec, err := w.client.Embed(ctx, obs.Content)
		if err != nil {
			w.log.Warn().Err(err).Str("observation", obs.ID).Msg("embed call failed")
			continue
		}
		if vec == nil {
			continue
		}
		if err := store.SetEmbedding(w.db, w.hasVec, obs.RowID, vec, Model, ollamaModelVersion); err != nil {
			w.log.Warn().Err(err).Str("observation", obs.ID).Msg("store embedding failed")
		}
	}
	return nil
}

func (w *Worker) embedToolDescriptions(ctx context.Context) error {
	pending, err := store.PendingToolEmbedding(w.db, toolDescriptionBatch)
	if err != nil {
		return err
	}
	for _, entry := range pending {
		if ctx.Err() != nil {
			return nil
		}
		if entry.Description == nil {
			continue
		}
		vec, err := w.client.Embed(ctx, *entry.Description)
		if err != nil {
			w.log.Warn().Err(err).Str("tool", entry.Name).Msg("embed call failed")
			continue
		}
		if vec == nil {
			continue
		}
		fingerprintKey := ""
		if entry.ProjectFingerprint != nil {
			fingerprintKey = *entry.ProjectFingerprint
		}
		if err := store.SetToolEmbedding(w.db, w.hasVec, entry.Name, fingerprintKey, vec, Model, ollamaModelVersion); err != nil {
			w.log.Warn().Err(err).Str("tool", entry.Name).Msg("store embedding failed")
		}
	}
	return nil
}

// ollamaModelVersion is recorded alongside Model so a future migration
// to a newer build of the same model name can tell old vectors apart.
const ollamaModelVersion = "v1"
