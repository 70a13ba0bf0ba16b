package config

import (
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Verify(Default()); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestDefaultValues(t *testing.T) {
	cfg := Default()
	if cfg.Server.Addr != ":6379" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout = %v", cfg.Server.ReadTimeout)
	}
	if cfg.Storage.SnapshotPath != "dump.my_rdb" {
		t.Errorf("SnapshotPath = %q", cfg.Storage.SnapshotPath)
	}
	if cfg.Storage.SnapshotInterval != 300*time.Second {
		t.Errorf("SnapshotInterval = %v", cfg.Storage.SnapshotInterval)
	}
	if cfg.Admin.Enabled {
		t.Error("admin enabled by default")
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr bool
	}{
		{"valid", func(*ServerConfig) {}, false},
		{"empty addr", func(c *ServerConfig) { c.Server.Addr = "" }, true},
		{"negative read timeout", func(c *ServerConfig) { c.Server.ReadTimeout = -time.Second }, true},
		{"negative workers", func(c *ServerConfig) { c.Server.Workers = -1 }, true},
		{"empty snapshot path", func(c *ServerConfig) { c.Storage.SnapshotPath = "" }, true},
		{"zero snapshot interval", func(c *ServerConfig) { c.Storage.SnapshotInterval = 0 }, true},
		{"admin without addr", func(c *ServerConfig) {
			c.Admin.Enabled = true
			c.Admin.Addr = ""
		}, true},
		{"admin with addr", func(c *ServerConfig) { c.Admin.Enabled = true }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Verify(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Verify error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
