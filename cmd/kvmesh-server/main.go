package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/kvmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/kvmesh-go/internal/infra/confloader"
	"github.com/yndnr/kvmesh-go/internal/infra/shutdown"
	"github.com/yndnr/kvmesh-go/internal/server/adminserver"
	"github.com/yndnr/kvmesh-go/internal/server/config"
	"github.com/yndnr/kvmesh-go/internal/server/redisserver"
	"github.com/yndnr/kvmesh-go/internal/storage"
	"github.com/yndnr/kvmesh-go/internal/storage/memory"
	"github.com/yndnr/kvmesh-go/internal/telemetry/logger"
	"github.com/yndnr/kvmesh-go/internal/telemetry/metric"
)

func main() {
	if err := app().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func app() *cli.App {
	return &cli.App{
		Name:      "kvmesh-server",
		Usage:     "in-memory key-value store speaking the RESP protocol",
		Version:   buildinfo.String(),
		ArgsUsage: "[port]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to YAML configuration file",
				EnvVars: []string{"KVMESH_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address, overrides the configured one",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "minimum log level (debug, info, warn, error)",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	log, sink, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	log.Info("starting kvmesh-server",
		"version", buildinfo.String(),
		"addr", cfg.Server.Addr)

	metrics := metric.NewRegistry()

	store := memory.New()
	metrics.RegisterStore(func() (int, int, int64) {
		st := store.Stats()
		return st.Keys, st.Expiries, st.ExpiredTotal
	})

	engine, err := storage.New(store, storage.Config{
		SnapshotPath:     cfg.Storage.SnapshotPath,
		SnapshotInterval: cfg.Storage.SnapshotInterval,
	}, log, metrics)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	engine.Recover()

	srv := redisserver.New(&redisserver.Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		Workers:      cfg.Server.Workers,
	}, store, log, metrics)

	shutdownHandler := shutdown.NewHandler(30 * time.Second)

	// Hooks run in reverse registration order: server first, then the
	// final snapshot, then the rest.
	if sink != nil {
		shutdownHandler.OnShutdown(func(context.Context) error {
			return sink.Close()
		})
	}

	if watcher := watchConfig(c.String("config"), log); watcher != nil {
		shutdownHandler.OnShutdown(func(context.Context) error {
			return watcher.Stop()
		})
	}

	if cfg.Admin.Enabled {
		admin := adminserver.New(cfg.Admin.Addr, store, metrics, log)
		admin.Start()
		shutdownHandler.OnShutdown(func(ctx context.Context) error {
			log.Info("shutting down admin server")
			return admin.Shutdown(ctx)
		})
	}

	shutdownHandler.OnShutdown(func(context.Context) error {
		log.Info("shutting down storage engine")
		return engine.Close()
	})

	shutdownHandler.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down server")
		return srv.Shutdown(ctx)
	})

	if err := srv.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	if err := shutdownHandler.Wait(); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig merges defaults, the optional config file, environment
// variables, CLI flags, and the positional port argument.
func loadConfig(c *cli.Context) (*config.ServerConfig, error) {
	cfg := config.Default()

	opts := []confloader.Option{}
	if path := c.String("config"); path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	loader := confloader.NewLoader(opts...)
	if err := loader.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if addr := c.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if level := c.String("log-level"); level != "" {
		cfg.Log.Level = level
	}

	if c.Args().Len() > 0 {
		port, err := strconv.Atoi(c.Args().First())
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid port %q", c.Args().First())
		}
		cfg.Server.Addr = ":" + strconv.Itoa(port)
	}

	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// initLogger builds the logger, attaching the rotating file sink when
// a log directory is configured.
func initLogger(cfg *config.ServerConfig) (logger.Logger, *logger.Sink, error) {
	var (
		out  io.Writer = os.Stderr
		sink *logger.Sink
	)

	if cfg.Log.Dir != "" {
		s, err := logger.NewSink(cfg.Log.Dir, "kvmesh")
		if err != nil {
			return nil, nil, err
		}
		sink = s
		out = io.MultiWriter(os.Stderr, s)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: out,
	})
	logger.SetDefault(log)
	return log, sink, nil
}

// watchConfig reloads the log level when the config file changes.
func watchConfig(path string, log logger.Logger) *confloader.Watcher {
	if path == "" {
		return nil
	}

	watcher, err := confloader.NewWatcher(log)
	if err != nil {
		log.Warn("config watcher unavailable", "error", err)
		return nil
	}
	if err := watcher.Watch(path); err != nil {
		log.Warn("config watch failed", "path", path, "error", err)
		return watcher
	}

	watcher.OnChange(func(string) {
		cfg := config.Default()
		if err := confloader.NewLoader(confloader.WithConfigFile(path)).Load(cfg); err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		logger.SetLevel(cfg.Log.Level)
		log.Info("log level reloaded", "level", cfg.Log.Level)
	})

	go watcher.Start()
	return watcher
}
