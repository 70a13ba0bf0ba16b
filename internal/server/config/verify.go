package config

import "errors"

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if cfg.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if cfg.Server.ReadTimeout < 0 || cfg.Server.WriteTimeout < 0 {
		return errors.New("server timeouts must not be negative")
	}
	if cfg.Server.Workers < 0 {
		return errors.New("server.workers must not be negative")
	}
	if cfg.Storage.SnapshotPath == "" {
		return errors.New("storage.snapshot_path is required")
	}
	if cfg.Storage.SnapshotInterval <= 0 {
		return errors.New("storage.snapshot_interval must be positive")
	}
	if cfg.Admin.Enabled && cfg.Admin.Addr == "" {
		return errors.New("admin.addr is required when admin.enabled is set")
	}
	return nil
}
