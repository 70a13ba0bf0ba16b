package config

import "time"

// Default configuration values.
const (
	DefaultAddr         = ":6379"
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second

	DefaultSnapshotPath     = "dump.my_rdb"
	DefaultSnapshotInterval = 300 * time.Second

	DefaultAdminAddr = "127.0.0.1:7171"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultLogDir    = "logs"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Addr:         DefaultAddr,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
		},
		Storage: StorageSection{
			SnapshotPath:     DefaultSnapshotPath,
			SnapshotInterval: DefaultSnapshotInterval,
		},
		Admin: AdminSection{
			Enabled: false,
			Addr:    DefaultAdminAddr,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
			Dir:    DefaultLogDir,
		},
	}
}
