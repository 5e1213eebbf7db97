package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/ppiankov/clearlift/internal/control"
)

// Default intake rate: presses per second and burst.
const (
	defaultRate  = 5.0
	defaultBurst = 10
)

// Config holds full daemon configuration.
type Config struct {
	Dirs         DirConfig
	PollMode     bool
	PollInterval time.Duration
	// Rate is the sustained presses per second; 0 uses the default,
	// negative disables limiting.
	Rate  float64
	Burst int
	// Workers is the number of inbox requests served at once; 0 uses the
	// default. Ignored in poll mode.
	Workers int
}

// Daemon watches the inbox directory and processes jobs.
type Daemon struct {
	cfg       Config
	processor *Processor
}

// New creates a daemon with validated configuration.
func New(cfg Config, ctrl *control.Controller) (*Daemon, error) {
	if cfg.Dirs.Inbox == "" || cfg.Dirs.Outbox == "" || cfg.Dirs.State == "" {
		return nil, fmt.Errorf("inbox, outbox, and state directories are required")
	}
	if ctrl == nil {
		return nil, fmt.Errorf("controller is required")
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = pollDefault
	}
	if cfg.Rate == 0 {
		cfg.Rate = defaultRate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}

	var limiter *rate.Limiter
	if cfg.Rate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst)
	}

	processor := NewProcessor(ProcessorConfig{
		Dirs:       cfg.Dirs,
		Controller: ctrl,
		Limiter:    limiter,
	})

	return &Daemon{
		cfg:       cfg,
		processor: processor,
	}, nil
}

// Run starts the daemon. Blocks until ctx is cancelled.
// On startup, processes any existing inbox files and orphaned processing files.
func (d *Daemon) Run(ctx context.Context) error {
	if err := EnsureDirs(d.cfg.Dirs); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	// Acquire PID file lock to prevent duplicate instances.
	pidPath := filepath.Join(d.cfg.Dirs.State, "daemon.pid")
	if err := acquirePIDLock(pidPath); err != nil {
		return fmt.Errorf("acquire PID lock: %w", err)
	}
	defer func() { _ = os.Remove(pidPath) }()

	if err := d.recoverOrphans(); err != nil {
		return fmt.Errorf("recover orphans: %w", err)
	}

	handler := func(path string) {
		if err := d.processor.Process(ctx, path); err != nil {
			fmt.Fprintf(os.Stderr, "daemon: process %s: %v\n", filepath.Base(path), err)
		}
	}

	if err := ScanInbox(d.cfg.Dirs.Inbox, handler); err != nil {
		return fmt.Errorf("scan existing: %w", err)
	}

	if d.cfg.PollMode {
		pw := NewPollWatcher(d.cfg.Dirs.Inbox, handler, d.cfg.PollInterval)
		return pw.Run(ctx)
	}

	w := NewInboxWatcher(d.cfg.Dirs.Inbox, handler)
	if d.cfg.Workers > 0 {
		w.SetWorkers(d.cfg.Workers)
	}
	return w.Run(ctx)
}

// recoverOrphans moves files left in state/processing/ to failed results.
// A press interrupted mid-flight is never replayed: the car and agent state
// it touched lived in the previous process.
func (d *Daemon) recoverOrphans() error {
	procDir := d.cfg.Dirs.ProcessingDir()
	entries, err := os.ReadDir(procDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, e := range entries {
		if e.IsDir() || !isRequestFile(e.Name()) {
			continue
		}
		id := e.Name()[:len(e.Name())-5] // strip .json
		result := &Result{
			ID:          id,
			Status:      ResultFailed,
			Error:       "interrupted: request was processing when daemon stopped",
			CompletedAt: time.Now().UTC(),
		}
		if err := d.processor.writeResult(result); err != nil {
			fmt.Fprintf(os.Stderr, "daemon: recover orphan %s: %v\n", id, err)
		}
		_ = os.Remove(filepath.Join(procDir, e.Name()))
	}
	return nil
}

// acquirePIDLock writes the current PID to the file and checks for stale locks.
func acquirePIDLock(path string) error {
	if data, err := os.ReadFile(path); err == nil {
		pid, err := strconv.Atoi(string(data))
		if err == nil {
			if process, err := os.FindProcess(pid); err == nil {
				if err := process.Signal(syscall.Signal(0)); err == nil {
					return fmt.Errorf("another daemon is running (PID %d)", pid)
				}
			}
		}
		// Stale PID file.
		_ = os.Remove(path)
	}

	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0600)
}
