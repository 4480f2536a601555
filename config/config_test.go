package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := defaults()
	if !reflect.DeepEqual(cfg, want) {
		t.Fatalf("Load(\"\") = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "warden.yaml")
	contents := `
origin: "file:///app/"
maxMemoryMiB: 128
http:
  enabled: true
  allowedHosts:
    - api.example.com
server:
  addr: ":9000"
  reportDB: "/tmp/reports.db"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Origin != "file:///app/" {
		t.Errorf("Origin = %q", cfg.Origin)
	}
	if cfg.MaxMemoryMiB != 128 {
		t.Errorf("MaxMemoryMiB = %d", cfg.MaxMemoryMiB)
	}
	if !cfg.HTTP.Enabled || len(cfg.HTTP.AllowedHosts) != 1 || cfg.HTTP.AllowedHosts[0] != "api.example.com" {
		t.Errorf("HTTP = %+v", cfg.HTTP)
	}
	if cfg.Server.Addr != ":9000" || cfg.Server.ReportDB != "/tmp/reports.db" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	// Fields absent from the YAML keep the compiled-in default.
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want default 10s", cfg.Timeout)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
