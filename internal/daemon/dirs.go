package daemon

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
)

// dirPerm is the permission for daemon-managed directories.
const dirPerm = 0750

// DirConfig holds the daemon directory layout.
type DirConfig struct {
	Inbox  string // incoming request files
	Outbox string // completed results
	State  string // state/{processing,rejected}
}

// DefaultDirConfig returns ~/.clearlift/{inbox,outbox,state}.
func DefaultDirConfig() DirConfig {
	base := ".clearlift"
	if home, err := os.UserHomeDir(); err == nil {
		base = filepath.Join(home, ".clearlift")
	}
	return DirConfig{
		Inbox:  filepath.Join(base, "inbox"),
		Outbox: filepath.Join(base, "outbox"),
		State:  filepath.Join(base, "state"),
	}
}

// ProcessingDir returns the path to the processing subdirectory.
func (d DirConfig) ProcessingDir() string {
	return filepath.Join(d.State, "processing")
}

// RejectedDir holds request files that could not be parsed or validated.
func (d DirConfig) RejectedDir() string {
	return filepath.Join(d.State, "rejected")
}

// EnsureDirs creates all required directories. Idempotent.
func EnsureDirs(cfg DirConfig) error {
	dirs := []string{
		cfg.Inbox,
		cfg.Outbox,
		cfg.ProcessingDir(),
		cfg.RejectedDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ValidateSameFilesystem checks that inbox and state share a filesystem so
// moving a request into processing is an atomic rename.
func ValidateSameFilesystem(cfg DirConfig) error {
	inboxDev, err := deviceID(cfg.Inbox)
	if err != nil {
		return err
	}
	stateDev, err := deviceID(cfg.State)
	if err != nil {
		return err
	}
	if inboxDev != stateDev {
		return fmt.Errorf("inbox %s and state %s are on different filesystems", cfg.Inbox, cfg.State)
	}
	return nil
}

// moveFile moves src to dst using os.Rename. If rename fails with EXDEV
// (cross-device link, common with systemd ReadWritePaths bind mounts),
// it falls back to copy + remove.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var errno syscall.Errno
	if !errors.As(err, &errno) || errno != syscall.EXDEV {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

// copyFile copies src to dst preserving permissions.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
