package store

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestCreateRejectsEmptyContent(t *testing.T) {
	d := newTestDB(t)
	repos, err := NewRepositories(d, "fp-a")
	if err != nil {
		t.Fatalf("build repositories: %v", err)
	}
	if _, err := repos.Observations.Create(ObservationInput{ProjectFingerprint: "fp-a", Source: "hook:Write", Content: "   "}); err == nil {
		t.Fatalf("expected error for empty content")
	}
}

func TestCreateAndGetByIDRoundTrips(t *testing.T) {
	d := newTestDB(t)
	repos, err := NewRepositories(d, "fp-a")
	if err != nil {
		t.Fatalf("build repositories: %v", err)
	}

	created, err := repos.Observations.CreateClassified(ObservationInput{
		ProjectFingerprint: "fp-a",
		Source:             "hook:Write",
		Content:            "Implement JWT refresh",
		Kind:               KindChange,
	}, ClassificationDiscovery)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ProjectFingerprint != "fp-a" {
		t.Fatalf("expected project fingerprint fp-a, got %q", created.ProjectFingerprint)
	}

	got, err := repos.Observations.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.Content != "Implement JWT refresh" {
		t.Fatalf("unexpected content %q", got.Content)
	}
	if got.Classification == nil || *got.Classification != ClassificationDiscovery {
		t.Fatalf("expected classification discovery, got %v", got.Classification)
	}
}

func TestListOrdersByCreatedAtThenRowIDDescending(t *testing.T) {
	d := newTestDB(t)
	repos, err := NewRepositories(d, "fp-a")
	if err != nil {
		t.Fatalf("build repositories: %v", err)
	}

	var ids []string
	for i := 0; i < 3; i++ {
		obs, err := repos.Observations.CreateClassified(ObservationInput{
			ProjectFingerprint: "fp-a",
			Source:             "hook:Write",
			Content:            "row",
		}, ClassificationDiscovery)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, obs.ID)
	}

	list, err := repos.Observations.List(ObservationListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(list))
	}
	// rows created in quick succession: created_at DESC, with rowid DESC
	// breaking any tie, puts the most recently created row (last
	// inserted) first.
	if list[0].ID != ids[2] {
		t.Fatalf("expected rowid-DESC tiebreak to surface last-inserted row first")
	}
}

func TestSoftDeleteExcludesFromList(t *testing.T) {
	d := newTestDB(t)
	repos, err := NewRepositories(d, "fp-a")
	if err != nil {
		t.Fatalf("build repositories: %v", err)
	}

	obs, err := repos.Observations.CreateClassified(ObservationInput{ProjectFingerprint: "fp-a", Source: "hook:Write", Content: "to delete"}, ClassificationDiscovery)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repos.Observations.SoftDelete(obs.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	if _, err := repos.Observations.GetByID(obs.ID); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after soft delete, got %v", err)
	}

	list, err := repos.Observations.List(ObservationListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, o := range list {
		if o.ID == obs.ID {
			t.Fatalf("expected soft-deleted observation to be excluded from list")
		}
	}

	if err := repos.Observations.Restore(obs.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if _, err := repos.Observations.GetByID(obs.ID); err != nil {
		t.Fatalf("expected restored observation to be visible again: %v", err)
	}
}

func TestProjectIsolationAcrossObservationRepositories(t *testing.T) {
	d := newTestDB(t)
	reposA, err := NewRepositories(d, "fp-a")
	if err != nil {
		t.Fatalf("build repositories A: %v", err)
	}
	reposB, err := NewRepositories(d, "fp-b")
	if err != nil {
		t.Fatalf("build repositories B: %v", err)
	}

	obsA, err := reposA.Observations.CreateClassified(ObservationInput{ProjectFingerprint: "fp-a", Source: "hook:Write", Content: "alpha secret"}, ClassificationDiscovery)
	if err != nil {
		t.Fatalf("create A: %v", err)
	}
	if _, err := reposB.Observations.CreateClassified(ObservationInput{ProjectFingerprint: "fp-b", Source: "hook:Write", Content: "beta secret"}, ClassificationDiscovery); err != nil {
		t.Fatalf("create B: %v", err)
	}

	if _, err := reposB.Observations.GetByID(obsA.ID); err != ErrNotFound {
		t.Fatalf("expected project B to not see project A's observation, got %v", err)
	}

	listB, err := reposB.Observations.List(ObservationListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("list B: %v", err)
	}
	if len(listB) != 1 {
		t.Fatalf("expected exactly 1 row visible to project B, got %d", len(listB))
	}
}

func TestUpdateNeverTouchesProjectFingerprint(t *testing.T) {
	d := newTestDB(t)
	repos, err := NewRepositories(d, "fp-a")
	if err != nil {
		t.Fatalf("build repositories: %v", err)
	}
	obs, err := repos.Observations.CreateClassified(ObservationInput{ProjectFingerprint: "fp-a", Source: "hook:Write", Content: "content"}, ClassificationDiscovery)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newKind := KindDecision
	updated, err := repos.Observations.Update(obs.ID, ObservationPatch{Kind: &newKind})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ProjectFingerprint != "fp-a" {
		t.Fatalf("expected project fingerprint unchanged, got %q", updated.ProjectFingerprint)
	}
	if updated.Kind != KindDecision {
		t.Fatalf("expected kind=decision, got %q", updated.Kind)
	}
}

func TestFTSIndexSurvivesCloseAndReopen(t *testing.T) {
	dir := t.TempDir()
	d1, err := Open(Config{DataDir: dir}, zerolog.Nop())
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	repos, err := NewRepositories(d1, "fp-a")
	if err != nil {
		t.Fatalf("build repositories: %v", err)
	}
	if _, err := repos.Observations.CreateClassified(ObservationInput{
		ProjectFingerprint: "fp-a", Source: "hook:Write", Content: "Implement JWT refresh",
	}, ClassificationDiscovery); err != nil {
		t.Fatalf("create: %v", err)
	}
	d1.Close()

	d2, err := Open(Config{DataDir: dir}, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer d2.Close()

	engine := NewSearchEngine(d2.conn, "fp-a", d2.HasVectorSupport)
	results, err := engine.SearchKeyword("JWT", SearchOptions{})
	if err != nil {
		t.Fatalf("search keyword: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected the pre-close observation to be keyword-searchable post-reopen, got %d results", len(results))
	}
}

// TestEmbeddingDimensionIsValidatedOnSet exercises the embedding
// dimension invariant: a vector of the wrong dimension must be rejected
// before it reaches the observations table.
func TestEmbeddingDimensionIsValidatedOnSet(t *testing.T) {
	d := newTestDB(t)
	repos, err := NewRepositories(d, "fp-a")
	if err != nil {
		t.Fatalf("build repositories: %v", err)
	}
	obs, err := repos.Observations.CreateClassified(ObservationInput{ProjectFingerprint: "fp-a", Source: "hook:Write", Content: "content"}, ClassificationDiscovery)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	tooShort := make([]float32, 10)
	if err := SetEmbedding(d.conn, d.HasVectorSupport, obs.RowID, tooShort, "test-model", "v1"); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}

func TestPendingEmbeddingReturnsUnembeddedRowsOldestFirst(t *testing.T) {
	d := newTestDB(t)
	repos, err := NewRepositories(d, "fp-a")
	if err != nil {
		t.Fatalf("build repositories: %v", err)
	}
	first, err := repos.Observations.CreateClassified(ObservationInput{ProjectFingerprint: "fp-a", Source: "hook:Write", Content: "first"}, ClassificationDiscovery)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repos.Observations.CreateClassified(ObservationInput{ProjectFingerprint: "fp-a", Source: "hook:Write", Content: "second"}, ClassificationDiscovery); err != nil {
		t.Fatalf("create: %v", err)
	}

	pending, err := PendingEmbedding(d.conn, 10)
	if err != nil {
		t.Fatalf("pending embedding: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending rows, got %d", len(pending))
	}
	if pending[0].ID != first.ID {
		t.Fatalf("expected oldest row first")
	}
}
