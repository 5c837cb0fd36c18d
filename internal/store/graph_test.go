package store

import "testing"

func TestGraphStatsAndQueryGraphRoundTrip(t *testing.T) {
	d := newTestDB(t)
	repos, err := NewRepositories(d, "fp-a")
	if err != nil {
		t.Fatalf("build repositories: %v", err)
	}

	obs, err := repos.Observations.CreateClassified(ObservationInput{
		ProjectFingerprint: "fp-a", Source: "hook:Bash", Content: "stack trace investigation",
	}, ClassificationDiscovery)
	if err != nil {
		t.Fatalf("create observation: %v", err)
	}

	branch, err := repos.Graph.CreateThoughtBranch("refactor auth module")
	if err != nil {
		t.Fatalf("create branch: %v", err)
	}
	if err := repos.Graph.AttachToBranch(branch.ID, obs.ID, 0); err != nil {
		t.Fatalf("attach to branch: %v", err)
	}

	path, err := repos.Graph.CreateDebugPath("nil pointer in handler")
	if err != nil {
		t.Fatalf("create debug path: %v", err)
	}
	if err := repos.Graph.AttachWaypoint(path.ID, obs.ID, 0); err != nil {
		t.Fatalf("attach waypoint: %v", err)
	}
	if err := repos.Graph.ResolveDebugPath(path.ID); err != nil {
		t.Fatalf("resolve debug path: %v", err)
	}

	stats, err := repos.Graph.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ThoughtBranchCount != 1 || stats.DebugPathCount != 1 || stats.UnresolvedDebugPaths != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	membership, err := repos.Graph.QueryGraph(obs.ID)
	if err != nil {
		t.Fatalf("query graph: %v", err)
	}
	if len(membership.Branches) != 1 || membership.Branches[0].ID != branch.ID {
		t.Fatalf("expected observation to be linked to its branch")
	}
	if len(membership.Paths) != 1 || membership.Paths[0].ID != path.ID {
		t.Fatalf("expected observation to be linked to its debug path")
	}
}
