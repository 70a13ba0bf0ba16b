package config

import "time"

// ServerConfig is the root configuration for kvmesh-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Storage StorageSection `koanf:"storage"`
	Admin   AdminSection   `koanf:"admin"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures the client-facing TCP listener.
type ServerSection struct {
	// Addr is the listen address, e.g. ":6379".
	Addr string `koanf:"addr"`

	// ReadTimeout bounds a single socket read.
	ReadTimeout time.Duration `koanf:"read_timeout"`

	// WriteTimeout bounds a single reply write.
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// Workers is the connection worker pool size.
	// Zero means one worker per hardware thread.
	Workers int `koanf:"workers"`
}

// StorageSection configures snapshotting.
type StorageSection struct {
	// SnapshotPath is the snapshot file, loaded at startup and
	// written on every snapshot.
	SnapshotPath string `koanf:"snapshot_path"`

	// SnapshotInterval is the time between automatic snapshots.
	SnapshotInterval time.Duration `koanf:"snapshot_interval"`
}

// AdminSection configures the HTTP admin endpoint.
type AdminSection struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`

	// Dir is the directory for rotated log files. Empty logs to
	// stderr only.
	Dir string `koanf:"dir"`
}
