package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenNoFilePresent(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LAMINARK_DATA_DIR", dir)
	t.Setenv("LAMINARK_DEBUG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DataDir != dir {
		t.Fatalf("expected data dir %q, got %q", dir, cfg.DataDir)
	}
	if cfg.Debug {
		t.Fatalf("expected debug false by default")
	}
}

func TestLoadReadsPrivacyFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LAMINARK_DATA_DIR", dir)
	t.Setenv("LAMINARK_DEBUG", "")

	content := `{"debug": true, "privacy": {"additionalPatterns": ["foo"], "excludedFiles": ["bar.key"]}}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Debug {
		t.Fatalf("expected debug true from file")
	}
	if len(cfg.Privacy.AdditionalPatterns) != 1 || cfg.Privacy.AdditionalPatterns[0] != "foo" {
		t.Fatalf("unexpected patterns: %v", cfg.Privacy.AdditionalPatterns)
	}
}

func TestEnvDebugOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LAMINARK_DATA_DIR", dir)
	t.Setenv("LAMINARK_DEBUG", "1")

	content := `{"debug": false, "privacy": {}}`
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Debug {
		t.Fatalf("expected LAMINARK_DEBUG env to win over file's debug=false")
	}
}
