package store

import "testing"

func TestUpsertDoesNotOverwriteScope(t *testing.T) {
	d := newTestDB(t)
	repos, err := NewRepositories(d, "fp-a")
	if err != nil {
		t.Fatalf("build repositories: %v", err)
	}
	fp := "fp-a"

	if err := repos.ToolRegistry.Upsert(ToolRegistryEntry{
		Name: "recall", ToolType: ToolTypeMCPTool, Scope: ScopeGlobal, Source: "config-scan",
		ProjectFingerprint: &fp, Status: ToolStatusActive,
	}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// A later organic-discovery write tries to reclassify it as project
	// scope; the first writer's scope must win.
	if err := repos.ToolRegistry.Upsert(ToolRegistryEntry{
		Name: "recall", ToolType: ToolTypeMCPTool, Scope: ScopeProject, Source: "organic-discovery",
		ProjectFingerprint: &fp, Status: ToolStatusActive,
	}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	entries, err := repos.ToolRegistry.GetAvailableForSession()
	if err != nil {
		t.Fatalf("get available: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Scope != ScopeGlobal {
		t.Fatalf("expected scope to remain global, got %q", entries[0].Scope)
	}
	if entries[0].Source != "organic-discovery" {
		t.Fatalf("expected source to refresh to latest writer, got %q", entries[0].Source)
	}
}

func TestScopePredicateExcludesOtherProjectsProjectScopedRows(t *testing.T) {
	d := newTestDB(t)
	fpA, fpB := "fp-a", "fp-b"

	regA, err := NewToolRegistryRepository(d.conn, fpA)
	if err != nil {
		t.Fatalf("build registry A: %v", err)
	}
	regB, err := NewToolRegistryRepository(d.conn, fpB)
	if err != nil {
		t.Fatalf("build registry B: %v", err)
	}

	if err := regA.Upsert(ToolRegistryEntry{
		Name: "local-tool", ToolType: ToolTypeSlashCommand, Scope: ScopeProject, Source: "test",
		ProjectFingerprint: &fpA, Status: ToolStatusActive,
	}); err != nil {
		t.Fatalf("upsert project-scoped tool: %v", err)
	}
	if err := regA.Upsert(ToolRegistryEntry{
		Name: "shared-tool", ToolType: ToolTypeBuiltin, Scope: ScopeGlobal, Source: "test",
		Status: ToolStatusActive,
	}); err != nil {
		t.Fatalf("upsert global tool: %v", err)
	}

	entriesB, err := regB.GetAvailableForSession()
	if err != nil {
		t.Fatalf("get available B: %v", err)
	}
	for _, e := range entriesB {
		if e.Name == "local-tool" {
			t.Fatalf("project B must not see project A's project-scoped tool")
		}
	}

	var sawShared bool
	for _, e := range entriesB {
		if e.Name == "shared-tool" {
			sawShared = true
		}
	}
	if !sawShared {
		t.Fatalf("expected global-scope tool to be visible to project B")
	}
}

func TestScopePredicateIncludesPluginScopedRowsRegardlessOfNullFingerprint(t *testing.T) {
	d := newTestDB(t)
	fpA := "fp-a"
	regA, err := NewToolRegistryRepository(d.conn, fpA)
	if err != nil {
		t.Fatalf("build registry A: %v", err)
	}

	if err := regA.Upsert(ToolRegistryEntry{
		Name: "plugin-tool", ToolType: ToolTypePlugin, Scope: ScopePlugin, Source: "test",
		Status: ToolStatusActive, // ProjectFingerprint left nil
	}); err != nil {
		t.Fatalf("upsert plugin tool: %v", err)
	}

	entries, err := regA.GetAvailableForSession()
	if err != nil {
		t.Fatalf("get available: %v", err)
	}
	var found bool
	for _, e := range entries {
		if e.Name == "plugin-tool" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected plugin-scoped tool with NULL fingerprint to be visible")
	}
}

func TestRecordOrCreateInsertsEventOnlyWhenSessionProvided(t *testing.T) {
	d := newTestDB(t)
	fp := "fp-a"
	reg, err := NewToolRegistryRepository(d.conn, fp)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	defaults := ToolRegistryEntry{Name: "bash", ToolType: ToolTypeBuiltin, Scope: ScopeGlobal, Source: "test", Status: ToolStatusActive}

	if err := reg.RecordOrCreate("bash", defaults, nil, true); err != nil {
		t.Fatalf("record without session: %v", err)
	}
	events, err := reg.GetUsageForSession("nonexistent")
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events without a session id")
	}

	sessionID := "s1"
	if err := reg.RecordOrCreate("bash", defaults, &sessionID, true); err != nil {
		t.Fatalf("record with session: %v", err)
	}
	events, err = reg.GetUsageForSession("s1")
	if err != nil {
		t.Fatalf("get usage: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event for session s1, got %d", len(events))
	}

	entries, err := reg.GetAvailableForSession()
	if err != nil {
		t.Fatalf("get available: %v", err)
	}
	if len(entries) != 1 || entries[0].UsageCount != 2 {
		t.Fatalf("expected usage_count=2 across both calls, got %+v", entries)
	}
}
