package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	liftmcp "github.com/ppiankov/clearlift/internal/mcp"
)

var mcpElev elevatorFlags

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpElev.register(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long:  "Runs one shared elevator as an MCP (Model Context Protocol) server over stdio.\nExposes tools: elevator_press, elevator_check, elevator_status.",
	RunE:  runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctrl, _, sinks, err := mcpElev.newController()
	if err != nil {
		return err
	}
	defer sinks.Close()

	srv, err := liftmcp.New(ctrl, version)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	fmt.Fprintln(os.Stderr, "clearlift MCP server running on stdio")
	fmt.Fprintln(os.Stderr)

	err = srv.Run(ctx)

	// Print final position on exit
	if st, serr := ctrl.Status(context.Background()); serr == nil {
		fmt.Fprintf(os.Stderr, "\nElevator on %s after %d presses (%d granted, %d denied)\n",
			st.ElevatorFloor, st.Presses, st.Granted, st.Denied)
	}

	return err
}
