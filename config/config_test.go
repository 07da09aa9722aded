package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.LogLevel)
	}
	if len(cfg.AutoApprove) != 0 {
		t.Errorf("expected empty auto-approve list, got %v", cfg.AutoApprove)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caseflow.yaml")
	body := "log_level: debug\ndatabase_path: /tmp/out.db\nauto_approve:\n  - refreshCase\n  - assignCase\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level: got %q", cfg.LogLevel)
	}
	if cfg.DatabasePath != "/tmp/out.db" {
		t.Errorf("database path: got %q", cfg.DatabasePath)
	}
	if !cfg.AutoApproved("refreshCase") || !cfg.AutoApproved("assignCase") {
		t.Errorf("auto-approve list not applied: %v", cfg.AutoApprove)
	}
	if cfg.AutoApproved("deleteCase") {
		t.Error("unlisted tool must not be auto-approved")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "caseflow.yaml")
	want := &Config{LogLevel: "warn", AutoApprove: []string{"scrollTo"}}
	if err := Save(path, want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.LogLevel != want.LogLevel || !got.AutoApproved("scrollTo") {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("log_level: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestStoreReplace(t *testing.T) {
	s := NewStore(Default())
	if s.Current().LogLevel != "info" {
		t.Fatalf("unexpected initial config: %+v", s.Current())
	}

	s.Replace(&Config{LogLevel: "debug", AutoApprove: []string{"deleteCase"}})
	if !s.Current().AutoApproved("deleteCase") {
		t.Error("replaced config should be visible to readers")
	}
}
