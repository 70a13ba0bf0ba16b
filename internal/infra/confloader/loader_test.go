package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yndnr/kvmesh-go/internal/server/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kvmesh.yaml")
	if err := os.WriteFile(path, []byte(content), 0640); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsOnly(t *testing.T) {
	cfg := config.Default()
	if err := NewLoader().Load(cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != config.DefaultAddr {
		t.Errorf("Addr = %q, want default", cfg.Server.Addr)
	}
	if cfg.Storage.SnapshotPath != "dump.my_rdb" {
		t.Errorf("SnapshotPath = %q", cfg.Storage.SnapshotPath)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
server:
  addr: ":7000"
storage:
  snapshot_interval: 60s
log:
  level: debug
`)

	cfg := config.Default()
	if err := NewLoader(WithConfigFile(path)).Load(cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("Addr = %q, want :7000", cfg.Server.Addr)
	}
	if cfg.Storage.SnapshotInterval != 60*time.Second {
		t.Errorf("SnapshotInterval = %v", cfg.Storage.SnapshotInterval)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Level = %q", cfg.Log.Level)
	}
	// Untouched values keep their defaults.
	if cfg.Storage.SnapshotPath != config.DefaultSnapshotPath {
		t.Errorf("SnapshotPath = %q, want default", cfg.Storage.SnapshotPath)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
server:
  addr: ":7000"
`)
	t.Setenv("KVMESH_SERVER_ADDR", ":8000")

	cfg := config.Default()
	if err := NewLoader(WithConfigFile(path)).Load(cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8000" {
		t.Errorf("Addr = %q, want env override :8000", cfg.Server.Addr)
	}
}

func TestEnvPrefixOption(t *testing.T) {
	t.Setenv("OTHER_LOG_LEVEL", "warn")

	cfg := config.Default()
	if err := NewLoader(WithEnvPrefix("OTHER_")).Load(cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Level = %q, want warn", cfg.Log.Level)
	}
}

func TestLoadMapHasHighestPriority(t *testing.T) {
	t.Setenv("KVMESH_LOG_LEVEL", "warn")

	loader := NewLoader()
	if err := loader.LoadEnv(); err != nil {
		t.Fatal(err)
	}
	if err := loader.LoadMap(map[string]any{"log.level": "error"}); err != nil {
		t.Fatal(err)
	}
	if got := loader.GetString("log.level"); got != "error" {
		t.Errorf("log.level = %q, want error", got)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	cfg := config.Default()
	err := NewLoader(WithConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))).Load(cfg)
	if err == nil {
		t.Error("Load with missing file succeeded")
	}
}
