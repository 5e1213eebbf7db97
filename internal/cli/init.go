package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clearlift/internal/daemon"
	"github.com/ppiankov/clearlift/internal/sim"
	"github.com/ppiankov/clearlift/internal/systemd"
)

var (
	initMode           string
	initInstallSystemd bool
	initForce          bool
)

func init() {
	initCmd.Flags().StringVar(&initMode, "mode", "user", "Config location: user (~/.clearlift) or system (/etc/clearlift)")
	initCmd.Flags().BoolVar(&initInstallSystemd, "install-systemd", false, "Install clearlift-daemon.service unit (requires root)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config files")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap clearlift configuration",
	Long: `Creates the config directory, a default sim.yaml with the classic
three-agent roster, and the daemon inbox/outbox/state directories.

User mode (default):  writes to ~/.clearlift/
System mode:          writes to /etc/clearlift/ (requires root)

With --install-systemd: installs clearlift-daemon.service running the
inbox daemon against the config directory.`,
	RunE: runInit,
}

const simConfigHeader = `# clearlift simulation config.
# step_delay: travel time between adjacent floors (e.g. 1s, 250ms).
# seed: fixes random target floors; 0 seeds from the clock.
# agents: clearance is Confidential, Secret or TopSecret; floors are G, S, T1, T2.
#   Omit target for a random floor. Omit id to generate one.
`

func runInit(cmd *cobra.Command, args []string) error {
	configDir, err := initConfigDir()
	if err != nil {
		return err
	}

	var created []string

	// Write sim.yaml.
	data, err := sim.DefaultConfig().Marshal()
	if err != nil {
		return fmt.Errorf("generate default sim config: %w", err)
	}
	simPath := filepath.Join(configDir, "sim.yaml")
	if wrote, err := writeIfMissing(simPath, simConfigHeader+string(data)); err != nil {
		return err
	} else if wrote {
		created = append(created, simPath)
	}

	// Create daemon directories.
	dirs := daemon.DirConfig{
		Inbox:  filepath.Join(configDir, "inbox"),
		Outbox: filepath.Join(configDir, "outbox"),
		State:  filepath.Join(configDir, "state"),
	}
	if err := daemon.EnsureDirs(dirs); err != nil {
		return err
	}

	// Install systemd unit if requested.
	if initInstallSystemd {
		if runtime.GOOS != "linux" {
			return fmt.Errorf("--install-systemd is only supported on Linux")
		}
		if os.Geteuid() != 0 {
			return fmt.Errorf("--install-systemd requires root; run with sudo")
		}

		bin, err := os.Executable()
		if err != nil {
			return fmt.Errorf("locate clearlift binary: %w", err)
		}
		content := systemd.DaemonTemplate(bin, configDir)
		if err := os.WriteFile(systemd.DaemonUnitPath, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write systemd unit: %w", err)
		}
		created = append(created, systemd.DaemonUnitPath)

		hashPath := filepath.Join(dirs.State, systemd.UnitHashFile)
		if err := systemd.RecordUnitFileHash(systemd.DaemonUnitPath, hashPath); err != nil {
			return fmt.Errorf("record unit hash: %w", err)
		}

		// Reload systemd.
		if err := exec.Command("systemctl", "daemon-reload").Run(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: systemctl daemon-reload failed: %v\n", err)
		}
	}

	// Print summary.
	fmt.Println("clearlift init complete.")
	fmt.Println()
	if len(created) > 0 {
		fmt.Println("Created:")
		for _, path := range created {
			fmt.Printf("  %s\n", path)
		}
		fmt.Println()
	} else {
		fmt.Println("All files already exist (use --force to overwrite).")
		fmt.Println()
	}

	fmt.Println("Run the simulation:")
	fmt.Printf("  clearlift run --config %s\n", simPath)
	fmt.Println()
	fmt.Println("Inspect the access rules:")
	fmt.Println("  clearlift access table")

	if initInstallSystemd {
		fmt.Println()
		fmt.Println("Enable the inbox daemon:")
		fmt.Println("  sudo systemctl enable --now clearlift-daemon")
	}

	return nil
}

// initConfigDir returns the configuration directory based on mode.
func initConfigDir() (string, error) {
	switch initMode {
	case "system":
		return "/etc/clearlift", nil
	case "user", "":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(home, ".clearlift"), nil
	default:
		return "", fmt.Errorf("unknown mode %q: use 'user' or 'system'", initMode)
	}
}

// writeIfMissing writes content to path if it doesn't exist or --force is set.
// Returns true if the file was written.
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
