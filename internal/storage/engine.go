package storage

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/yndnr/kvmesh-go/internal/storage/memory"
	"github.com/yndnr/kvmesh-go/internal/telemetry/logger"
	"github.com/yndnr/kvmesh-go/internal/telemetry/metric"
)

// DefaultSnapshotInterval is the time between automatic snapshots.
const DefaultSnapshotInterval = 300 * time.Second

// Config configures the storage engine.
type Config struct {
	// SnapshotPath is the snapshot file location.
	SnapshotPath string

	// SnapshotInterval is the interval between automatic snapshots.
	SnapshotInterval time.Duration
}

// Engine owns the store's persistence lifecycle: startup recovery,
// the periodic snapshot worker, and the final snapshot on shutdown.
type Engine struct {
	cfg     Config
	store   *memory.Store
	log     logger.Logger
	metrics *metric.Registry

	// dumping is the single-writer guard for snapshot creation.
	dumping atomic.Bool

	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a storage engine and starts the snapshot worker.
// Call Recover after New to load existing data.
func New(store *memory.Store, cfg Config, log logger.Logger, metrics *metric.Registry) (*Engine, error) {
	if cfg.SnapshotPath == "" {
		return nil, fmt.Errorf("storage: snapshot path is required")
	}
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = DefaultSnapshotInterval
	}
	if log == nil {
		log = logger.Default()
	}

	e := &Engine{
		cfg:     cfg,
		store:   store,
		log:     log,
		metrics: metrics,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	go e.backgroundLoop()

	return e, nil
}

// Recover loads the snapshot file if present. A missing or unreadable
// snapshot is not fatal; the server starts with an empty key space.
func (e *Engine) Recover() {
	start := time.Now()
	err := e.store.Load(e.cfg.SnapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			e.log.Info("no snapshot found, starting with empty store", "path", e.cfg.SnapshotPath)
		} else {
			e.log.Error("snapshot load failed, starting with empty store",
				"path", e.cfg.SnapshotPath, "error", err)
		}
		return
	}

	stats := e.store.Stats()
	e.log.Info("snapshot loaded",
		"path", e.cfg.SnapshotPath,
		"keys", stats.Keys,
		"elapsed", time.Since(start))
}

// TriggerSnapshot writes a snapshot under the single-writer guard.
// A snapshot already in progress causes the attempt to be skipped.
func (e *Engine) TriggerSnapshot() error {
	if !e.dumping.CompareAndSwap(false, true) {
		e.log.Warn("snapshot already in progress, skipping")
		return nil
	}
	defer e.dumping.Store(false)

	start := time.Now()
	if err := e.store.Dump(e.cfg.SnapshotPath); err != nil {
		e.log.Error("snapshot failed", "path", e.cfg.SnapshotPath, "error", err)
		return err
	}

	elapsed := time.Since(start)
	if e.metrics != nil {
		e.metrics.SnapshotDuration.Observe(elapsed.Seconds())
		e.metrics.SnapshotLastOK.Set(float64(time.Now().Unix()))
	}
	e.log.Info("snapshot written", "path", e.cfg.SnapshotPath, "elapsed", elapsed)
	return nil
}

// backgroundLoop runs periodic snapshot creation until Close.
func (e *Engine) backgroundLoop() {
	defer close(e.doneCh)

	ticker := time.NewTicker(e.cfg.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = e.TriggerSnapshot()
		case <-e.stopCh:
			return
		}
	}
}

// Close stops the snapshot worker and writes a final snapshot.
func (e *Engine) Close() error {
	close(e.stopCh)
	<-e.doneCh
	return e.TriggerSnapshot()
}
