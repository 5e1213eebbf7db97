package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "clearlift",
	Short: "Access-controlled elevator simulation",
	Long: "Simulates agents with security clearances sharing one elevator across\n" +
		"four floors (G, S, T1, T2). The car serves one call at a time; the door\n" +
		"opens only for sufficient clearance, and denied agents are sent back to G.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
