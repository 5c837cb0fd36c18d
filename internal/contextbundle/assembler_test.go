package contextbundle

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/laminark/laminark/internal/store"
)

func newTestRepos(t *testing.T) *store.Repositories {
	t.Helper()
	cfg := store.Config{DataDir: t.TempDir(), BusyTimeoutMS: 2000, CacheSizeKB: -2000, WALAutoCheckpointPages: 1000}
	d, err := store.Open(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	repos, err := store.NewRepositories(d, "proj-fingerprint")
	if err != nil {
		t.Fatalf("build repositories: %v", err)
	}
	return repos
}

func TestAssembleReturnsEmptySectionsWhenNothingRecorded(t *testing.T) {
	repos := newTestRepos(t)
	a := New(repos)

	out, err := a.Assemble()
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if !strings.Contains(out, "Memory from Previous Sessions") {
		t.Fatalf("expected header even with no data, got %q", out)
	}
}

func TestAssembleIncludesRecentDecisionsAndChanges(t *testing.T) {
	repos := newTestRepos(t)

	if _, err := repos.Observations.CreateClassified(store.ObservationInput{
		Source: "hook:Edit", Content: "decided to switch storage backends", Kind: store.KindDecision,
	}, store.ClassificationDiscovery); err != nil {
		t.Fatalf("create decision: %v", err)
	}
	if _, err := repos.Observations.CreateClassified(store.ObservationInput{
		Source: "hook:Write", Content: "added retry support to the client", Kind: store.KindChange,
	}, store.ClassificationDiscovery); err != nil {
		t.Fatalf("create change: %v", err)
	}

	out, err := New(repos).Assemble()
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if !strings.Contains(out, "Active Decisions") || !strings.Contains(out, "switch storage backends") {
		t.Fatalf("expected decision section, got %q", out)
	}
	if !strings.Contains(out, "Recent Changes") || !strings.Contains(out, "retry support") {
		t.Fatalf("expected changes section, got %q", out)
	}
}

func TestAssembleStaysWithinCharBudget(t *testing.T) {
	repos := newTestRepos(t)
	for i := 0; i < 50; i++ {
		if _, err := repos.Observations.CreateClassified(store.ObservationInput{
			Source:  "hook:Write",
			Content: strings.Repeat("x", 400),
			Kind:    store.KindChange,
		}, store.ClassificationDiscovery); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	out, err := New(repos).Assemble()
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(out) > MaxContextChars {
		t.Fatalf("expected bundle <= %d chars, got %d", MaxContextChars, len(out))
	}
}
