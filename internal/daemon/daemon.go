// Package daemon hosts the conversion orchestrator behind a single-instance
// lock and a localhost HTTP API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"platen/internal/config"
	"platen/internal/deps"
	"platen/internal/history"
	"platen/internal/logging"
	"platen/internal/orchestrator"
)

// Daemon coordinates the orchestrator, archive, and API server and enforces
// single-instance execution via a lock file.
type Daemon struct {
	cfg     *config.Config
	logger  *slog.Logger
	orch    *orchestrator.Orchestrator
	archive *history.Store
	server  *apiServer
	logPath string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running       bool
	PID           int
	Stats         orchestrator.Stats
	StatusCounts  map[string]int
	LockFilePath  string
	HistoryDBPath string
	Dependencies  []deps.Status
}

// New constructs a daemon with initialized dependencies. The archive store may
// be nil when history is disabled.
func New(cfg *config.Config, orch *orchestrator.Orchestrator, archive *history.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || orch == nil {
		return nil, errors.New("daemon requires config and orchestrator")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "platend.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		orch:     orch,
		archive:  archive,
		logPath:  filepath.Join(cfg.Paths.LogDir, "platen.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}

	server, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.server = server
	return d, nil
}

// Start acquires the daemon lock and launches the orchestrator and API server.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another platen daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.orch.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start orchestrator: %w", err)
	}
	if d.server != nil {
		if err := d.server.start(d.ctx); err != nil {
			d.orch.Shutdown()
			_ = d.lock.Unlock()
			d.cancel()
			d.ctx = nil
			d.cancel = nil
			return err
		}
	}

	d.running.Store(true)
	d.logger.Info("platen daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.server != nil {
		d.server.stop()
	}
	d.orch.Shutdown()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("platen daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.archive != nil {
		return d.archive.Close()
	}
	return nil
}

// APIAddr returns the address the API server is bound to, or empty when the
// server is not listening.
func (d *Daemon) APIAddr() string {
	if d.server == nil {
		return ""
	}
	return d.server.addr()
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	counts := make(map[string]int)
	for status, count := range d.orch.StatusCounts() {
		counts[string(status)] = count
	}
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Stats:        d.orch.Stats(),
		StatusCounts: counts,
		LockFilePath: d.lockPath,
		Dependencies: deps.CheckBinaries(deps.Requirements(d.cfg)),
	}
	if d.cfg.History.Enabled {
		status.HistoryDBPath = d.cfg.History.Path
	}
	return status
}
