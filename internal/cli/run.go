package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clearlift/internal/sim"
)

var (
	runConfig     string
	runAuditLog   string
	runDB         string
	runQuiet      bool
	runTimestamps bool
	runFormat     string
	runSeed       uint64
	runStepDelay  string
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runConfig, "config", "c", "", "Path to sim config YAML (default ~/.clearlift/sim.yaml)")
	runCmd.Flags().StringVar(&runAuditLog, "audit-log", "", "Path to audit log JSONL file")
	runCmd.Flags().StringVar(&runDB, "db", "", "Path to SQLite event history")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Suppress event narration")
	runCmd.Flags().BoolVar(&runTimestamps, "timestamps", false, "Prefix narration with time and request ID")
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "text", "Summary format (text|json)")
	runCmd.Flags().Uint64Var(&runSeed, "seed", 0, "Random seed for target floors (overrides config)")
	runCmd.Flags().StringVar(&runStepDelay, "step-delay", "", "Travel time between floors, e.g. 250ms (overrides config)")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the elevator simulation",
	Long: "Starts one goroutine per configured agent. Each agent presses the button\n" +
		"for its target floor (random unless configured) and the shared elevator\n" +
		"serves the calls one at a time. Events are narrated as they happen and a\n" +
		"summary is printed when every agent is done.",
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := sim.LoadConfig(runConfig)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = runSeed
	}
	if runStepDelay != "" {
		if err := applyStepDelay(cfg, runStepDelay); err != nil {
			return err
		}
	}

	var narrate io.Writer
	if !runQuiet && runFormat != "json" {
		narrate = os.Stdout
	}
	s, err := openSinks(runAuditLog, runDB, narrate, runTimestamps)
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := sim.Run(cfg, s.recorders)
	if err != nil {
		return err
	}

	switch runFormat {
	case "json":
		out, err := sim.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		if narrate != nil {
			fmt.Println()
		}
		fmt.Print(sim.FormatText(result))
	}

	if runAuditLog != "" {
		fmt.Fprintf(os.Stderr, "Audit log: %s\n", runAuditLog)
	}
	return nil
}

func applyStepDelay(cfg *sim.Config, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid --step-delay %q: %w", value, err)
	}
	if d < 0 {
		return fmt.Errorf("--step-delay must not be negative, got %s", d)
	}
	cfg.StepDelay = d
	return nil
}
