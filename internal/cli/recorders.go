package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clearlift/internal/audit"
	"github.com/ppiankov/clearlift/internal/control"
	"github.com/ppiankov/clearlift/internal/elevator"
	"github.com/ppiankov/clearlift/internal/journal"
	"github.com/ppiankov/clearlift/internal/model"
	"github.com/ppiankov/clearlift/internal/roster"
	"github.com/ppiankov/clearlift/internal/store"
)

// sinks are the recorders opened for one command.
type sinks struct {
	recorders journal.Multi
	auditLog  *audit.Log
	db        *store.Store
}

// openSinks opens the optional audit log and history database and adds a
// console narrator writing to narrate (nil for none).
func openSinks(auditPath, dbPath string, narrate io.Writer, timestamps bool) (*sinks, error) {
	s := &sinks{}
	if narrate != nil {
		s.recorders = append(s.recorders, journal.NewConsole(narrate, timestamps))
	}

	if auditPath != "" {
		l, err := audit.Open(auditPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		s.auditLog = l
		s.recorders = append(s.recorders, l)
	}

	if dbPath != "" {
		db, err := store.Open(dbPath)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open history database: %w", err)
		}
		s.db = db
		s.recorders = append(s.recorders, db)
	}
	return s, nil
}

// Close closes every file-backed sink.
func (s *sinks) Close() {
	if s.auditLog != nil {
		if err := s.auditLog.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: close audit log: %v\n", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: close history database: %v\n", err)
		}
	}
}

// elevatorFlags are shared by the long-running surfaces (serve, mcp, daemon).
type elevatorFlags struct {
	stepDelay  time.Duration
	startFloor string
	auditLog   string
	db         string
	verbose    bool
}

func (f *elevatorFlags) register(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&f.stepDelay, "step-delay", elevator.DefaultStepDelay, "Travel time between adjacent floors")
	cmd.Flags().StringVar(&f.startFloor, "start-floor", "G", "Floor the car is parked on at startup")
	cmd.Flags().StringVar(&f.auditLog, "audit-log", "", "Path to audit log JSONL file")
	cmd.Flags().StringVar(&f.db, "db", "", "Path to SQLite event history")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Narrate every elevator event on stderr")
}

// newController builds the shared elevator and its controller. Narration
// goes to stderr so stdout stays free for protocol traffic.
func (f *elevatorFlags) newController() (*control.Controller, *roster.Roster, *sinks, error) {
	start, err := model.ParseFloor(f.startFloor)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("--start-floor: %w", err)
	}

	var narrate io.Writer
	if f.verbose {
		narrate = os.Stderr
	}
	s, err := openSinks(f.auditLog, f.db, narrate, true)
	if err != nil {
		return nil, nil, nil, err
	}

	e := elevator.New(
		elevator.WithStepDelay(f.stepDelay),
		elevator.WithStartFloor(start),
		elevator.WithRecorder(s.recorders),
	)
	r := roster.New()
	return control.New(e, r), r, s, nil
}
