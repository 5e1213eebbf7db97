package daemon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testDirs(t *testing.T) DirConfig {
	t.Helper()
	root := t.TempDir()
	return DirConfig{
		Inbox:  filepath.Join(root, "inbox"),
		Outbox: filepath.Join(root, "outbox"),
		State:  filepath.Join(root, "state"),
	}
}

func TestEnsureDirs(t *testing.T) {
	cfg := testDirs(t)

	if err := EnsureDirs(cfg); err != nil {
		t.Fatalf("EnsureDirs failed: %v", err)
	}

	expected := []string{
		cfg.Inbox,
		cfg.Outbox,
		cfg.ProcessingDir(),
		cfg.RejectedDir(),
	}
	for _, dir := range expected {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("directory %s not created: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}
}

func TestEnsureDirsIdempotent(t *testing.T) {
	cfg := testDirs(t)

	if err := EnsureDirs(cfg); err != nil {
		t.Fatalf("first EnsureDirs: %v", err)
	}
	if err := EnsureDirs(cfg); err != nil {
		t.Fatalf("second EnsureDirs should be idempotent: %v", err)
	}
}

func TestDirConfigSubdirectories(t *testing.T) {
	cfg := DirConfig{State: "/var/lib/clearlift/state"}

	if got := cfg.ProcessingDir(); got != "/var/lib/clearlift/state/processing" {
		t.Errorf("ProcessingDir = %q", got)
	}
	if got := cfg.RejectedDir(); got != "/var/lib/clearlift/state/rejected" {
		t.Errorf("RejectedDir = %q", got)
	}
}

func TestDefaultDirConfigUnderClearlift(t *testing.T) {
	cfg := DefaultDirConfig()
	for _, dir := range []string{cfg.Inbox, cfg.Outbox, cfg.State} {
		if !strings.Contains(dir, ".clearlift") {
			t.Errorf("expected %s under .clearlift", dir)
		}
	}
}

func TestValidateSameFilesystem(t *testing.T) {
	cfg := testDirs(t)
	if err := EnsureDirs(cfg); err != nil {
		t.Fatal(err)
	}

	if err := ValidateSameFilesystem(cfg); err != nil {
		t.Errorf("same tempdir should be same filesystem: %v", err)
	}
}

func TestValidateSameFilesystemMissingDir(t *testing.T) {
	cfg := testDirs(t)
	if err := ValidateSameFilesystem(cfg); err == nil {
		t.Error("expected error for missing directories")
	}
}

func TestMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.json")
	dst := filepath.Join(dir, "b.json")
	os.WriteFile(src, []byte(`{"id":"a"}`), 0600)

	if err := moveFile(src, dst); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source should be gone")
	}
	data, err := os.ReadFile(dst)
	if err != nil || string(data) != `{"id":"a"}` {
		t.Errorf("unexpected destination contents %q (%v)", data, err)
	}
}
