package webserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/laminark/laminark/internal/store"
)

func newTestServer(t *testing.T) (*store.Repositories, *httptest.Server) {
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

	ts := httptest.NewServer(New(repos, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)
	return repos, ts
}

func TestHealthzReturns200(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestListObservationsReturnsCreatedRows(t *testing.T) {
	repos, ts := newTestServer(t)
	if _, err := repos.Observations.CreateClassified(store.ObservationInput{
		Source: "hook:Write", Content: "added retry support",
	}, store.ClassificationDiscovery); err != nil {
		t.Fatalf("create observation: %v", err)
	}

	resp, err := http.Get(ts.URL + "/observations")
	if err != nil {
		t.Fatalf("get observations: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var obs []store.Observation
	if err := json.NewDecoder(resp.Body).Decode(&obs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(obs) != 1 || obs[0].Content != "added retry support" {
		t.Fatalf("unexpected observations: %+v", obs)
	}
}

func TestGetObservationNotFoundReturns404(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/observations/does-not-exist")
	if err != nil {
		t.Fatalf("get observation: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSearchRequiresQueryParam(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/search")
	if err != nil {
		t.Fatalf("get search: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGraphStatsReturnsZeroedStatsForEmptyProject(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/graph/stats")
	if err != nil {
		t.Fatalf("get graph stats: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var stats store.GraphStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.ThoughtBranchCount != 0 {
		t.Fatalf("expected zero thought branches, got %d", stats.ThoughtBranchCount)
	}
}
