package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clearlift/internal/client"
	"github.com/ppiankov/clearlift/internal/server"
)

var (
	pressAddr       string
	pressAgent      string
	pressClearance  string
	pressStartFloor string
	pressTimeout    time.Duration
	pressFormat     string

	statusAddr    string
	statusTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(pressCmd)
	rootCmd.AddCommand(statusCmd)

	defaultAddr := fmt.Sprintf("127.0.0.1:%d", server.DefaultPort)
	pressCmd.Flags().StringVar(&pressAddr, "addr", defaultAddr, "Elevator server address")
	pressCmd.Flags().StringVar(&pressAgent, "agent", "", "Agent ID (required)")
	pressCmd.Flags().StringVar(&pressClearance, "clearance", "", "Agent clearance: Confidential, Secret or TopSecret (required)")
	pressCmd.Flags().StringVar(&pressStartFloor, "start-floor", "G", "Floor the agent starts on when first seen")
	pressCmd.Flags().DurationVar(&pressTimeout, "timeout", 2*time.Minute, "Maximum wait for the call to complete")
	pressCmd.Flags().StringVarP(&pressFormat, "format", "f", "text", "Output format (text|json)")
	pressCmd.MarkFlagRequired("agent")
	pressCmd.MarkFlagRequired("clearance")

	statusCmd.Flags().StringVar(&statusAddr, "addr", defaultAddr, "Elevator server address")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 30*time.Second, "Maximum wait for the snapshot")
}

var pressCmd = &cobra.Command{
	Use:   "press <floor>",
	Short: "Press a floor button on a remote elevator",
	Long: "Calls a running `clearlift serve` as the given agent and waits for the\n" +
		"door decision. Exits 0 if the door opened at the requested floor, 1 if\n" +
		"the agent was denied and sent back to G.",
	Args: cobra.ExactArgs(1),
	RunE: runPress,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a remote elevator's position and agents",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runPress(cmd *cobra.Command, args []string) error {
	c, err := client.New(pressAddr)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), pressTimeout)
	defer cancel()

	out, err := c.Press(ctx, &server.PressRequest{
		AgentID:    pressAgent,
		Clearance:  pressClearance,
		StartFloor: pressStartFloor,
		Floor:      args[0],
	})
	if err != nil {
		return fmt.Errorf("press failed: %w", err)
	}

	if pressFormat == "json" {
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
	} else {
		verdict := "GRANTED"
		if !out.Granted {
			verdict = "DENIED"
		}
		fmt.Printf("%s %s: %s requested %s, now on %s after %d attempt(s)\n",
			verdict, out.RequestID, out.AgentID, out.Requested, out.FinalFloor, out.Attempts)
		if out.Reason != "" {
			fmt.Printf("  %s\n", out.Reason)
		}
	}

	if !out.Granted {
		os.Exit(1)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	c, err := client.New(statusAddr)
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
	defer cancel()

	st, err := c.Status(ctx)
	if err != nil {
		return fmt.Errorf("status failed: %w", err)
	}
	data, _ := json.MarshalIndent(st, "", "  ")
	fmt.Println(string(data))
	return nil
}
