package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clearlift/internal/daemon"
	"github.com/ppiankov/clearlift/internal/systemd"
)

var (
	daemonInbox    string
	daemonOutbox   string
	daemonState    string
	daemonPollMode bool
	daemonRate     float64
	daemonBurst    int
	daemonWorkers  int
	daemonElev     elevatorFlags
)

func init() {
	rootCmd.AddCommand(daemonCmd)
	dirs := daemon.DefaultDirConfig()
	daemonCmd.Flags().StringVar(&daemonInbox, "inbox", dirs.Inbox, "Inbox directory for request files")
	daemonCmd.Flags().StringVar(&daemonOutbox, "outbox", dirs.Outbox, "Outbox directory for results")
	daemonCmd.Flags().StringVar(&daemonState, "state", dirs.State, "State directory for processing")
	daemonCmd.Flags().BoolVar(&daemonPollMode, "poll", false, "Use polling instead of inotify")
	daemonCmd.Flags().Float64Var(&daemonRate, "rate", 0, "Sustained presses per second (0 = default 5, negative = unlimited)")
	daemonCmd.Flags().IntVar(&daemonBurst, "burst", 0, "Press burst size (0 = default 10)")
	daemonCmd.Flags().IntVar(&daemonWorkers, "workers", 0, "Requests served at once (0 = default 4)")
	daemonElev.register(daemonCmd)
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run as inbox/outbox request processing service",
	Long: `Watches an inbox directory for JSON request files and serves them on one
shared elevator. Each file is a press or an access check; the result is
written to the outbox under the same ID.

Example request:
  {"id": "job-1", "type": "press", "agent_id": "alice",
   "clearance": "Secret", "start_floor": "G", "floor": "S"}

Examples:
  clearlift daemon --inbox ~/.clearlift/inbox --outbox ~/.clearlift/outbox
  clearlift daemon --poll  # use polling instead of inotify`,
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	ctrl, _, sinks, err := daemonElev.newController()
	if err != nil {
		return err
	}
	defer sinks.Close()

	dcfg := daemon.Config{
		Dirs: daemon.DirConfig{
			Inbox:  daemonInbox,
			Outbox: daemonOutbox,
			State:  daemonState,
		},
		PollMode: daemonPollMode,
		Rate:     daemonRate,
		Burst:    daemonBurst,
		Workers:  daemonWorkers,
	}

	d, err := daemon.New(dcfg, ctrl)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Fprintf(os.Stderr, "=== CLEARLIFT DAEMON ===\n\n")
	fmt.Fprintf(os.Stderr, "Inbox:   %s\n", daemonInbox)
	fmt.Fprintf(os.Stderr, "Outbox:  %s\n", daemonOutbox)
	fmt.Fprintf(os.Stderr, "State:   %s\n", daemonState)
	if daemonPollMode {
		fmt.Fprintf(os.Stderr, "Watcher: polling\n")
	} else {
		fmt.Fprintf(os.Stderr, "Watcher: fsnotify\n")
	}
	if msg := systemd.CheckUnitFileIntegrity(systemd.DaemonUnitPath, filepath.Join(daemonState, systemd.UnitHashFile)); msg != "" {
		fmt.Fprintf(os.Stderr, "WARNING: %s\n", msg)
	}
	fmt.Fprintf(os.Stderr, "\nWatching for requests...\n")

	return d.Run(ctx)
}
