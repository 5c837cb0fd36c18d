package store

import "testing"

func TestSessionCreateIsIgnoredOnDuplicateID(t *testing.T) {
	d := newTestDB(t)
	repos, err := NewRepositories(d, "fp-a")
	if err != nil {
		t.Fatalf("build repositories: %v", err)
	}
	if _, err := repos.Sessions.Create("s1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repos.Sessions.Create("s1"); err != nil {
		t.Fatalf("duplicate create must be a no-op, not an error: %v", err)
	}
}

func TestSessionEndsAtMostOnce(t *testing.T) {
	d := newTestDB(t)
	repos, err := NewRepositories(d, "fp-a")
	if err != nil {
		t.Fatalf("build repositories: %v", err)
	}
	if _, err := repos.Sessions.Create("s1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	firstSummary := "did some work"
	if err := repos.Sessions.End("s1", &firstSummary); err != nil {
		t.Fatalf("end: %v", err)
	}
	secondSummary := "overwrite attempt"
	if err := repos.Sessions.End("s1", &secondSummary); err != nil {
		t.Fatalf("second end call must be a no-op, not an error: %v", err)
	}

	sess, err := repos.Sessions.GetByID("s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.Summary == nil || *sess.Summary != firstSummary {
		t.Fatalf("expected summary to remain from the first end call, got %v", sess.Summary)
	}
}

func TestGetActiveReturnsOnlyUnendedSession(t *testing.T) {
	d := newTestDB(t)
	repos, err := NewRepositories(d, "fp-a")
	if err != nil {
		t.Fatalf("build repositories: %v", err)
	}
	if _, err := repos.Sessions.Create("s1"); err != nil {
		t.Fatalf("create s1: %v", err)
	}
	if err := repos.Sessions.End("s1", nil); err != nil {
		t.Fatalf("end s1: %v", err)
	}
	if _, err := repos.Sessions.Create("s2"); err != nil {
		t.Fatalf("create s2: %v", err)
	}

	active, err := repos.Sessions.GetActive()
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if active.ID != "s2" {
		t.Fatalf("expected active session s2, got %q", active.ID)
	}
}
