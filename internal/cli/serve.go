package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clearlift/internal/server"
)

var (
	servePort   int
	serveAgents string
	serveElev   elevatorFlags
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", server.DefaultPort, "gRPC listen port")
	serveCmd.Flags().StringVar(&serveAgents, "agents", "", "Sim config YAML whose agents are pre-registered (hot-reloaded)")
	serveElev.register(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start gRPC elevator server",
	Long: "Runs one shared elevator behind the clearlift.v1.ElevatorService gRPC API.\n" +
		"Remote agents press buttons with `clearlift press`; calls are served one\n" +
		"at a time. New agents added to the --agents file are registered live.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctrl, r, sinks, err := serveElev.newController()
	if err != nil {
		return err
	}
	defer sinks.Close()

	srv, err := server.New(server.Config{Port: servePort, AgentsPath: serveAgents}, ctrl, r)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if serveAgents != "" {
		reloader, err := server.NewReloader(srv)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: hot-reload disabled: %v\n", err)
		} else {
			go reloader.Run(ctx)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down elevator server...")
		cancel()
		srv.GracefulStop()
	}()

	fmt.Fprintf(os.Stderr, "clearlift elevator server listening on :%d\n", servePort)
	fmt.Fprintf(os.Stderr, "Car parked on %s, step delay %s\n", serveElev.startFloor, serveElev.stepDelay)
	if serveAgents != "" {
		fmt.Fprintf(os.Stderr, "Agents: %s (hot-reload enabled)\n", serveAgents)
	}
	if serveElev.auditLog != "" {
		fmt.Fprintf(os.Stderr, "Audit log: %s\n", serveElev.auditLog)
	}
	fmt.Fprintln(os.Stderr)

	return srv.Serve()
}
