package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clearlift/internal/model"
	"github.com/ppiankov/clearlift/internal/store"
)

var (
	historyDB      string
	historyAgent   string
	historyRequest string
	historyKind    string
	historyLimit   int
	historyFormat  string
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyDB, "db", "", "Path to SQLite event history (required)")
	historyCmd.Flags().StringVar(&historyAgent, "agent", "", "Only events for this agent ID")
	historyCmd.Flags().StringVar(&historyRequest, "request", "", "Only events for this request ID")
	historyCmd.Flags().StringVar(&historyKind, "kind", "", "Only events of this kind (e.g. door_stayed_closed)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Maximum number of events (0 = all)")
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", "text", "Output format (text|json)")
	historyCmd.MarkFlagRequired("db")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query the SQLite event history",
	Long:  "Lists recorded elevator events in arrival order, with totals across\nthe whole history.",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

type historyOutput struct {
	Counts store.Counts  `json:"counts"`
	Events []model.Event `json:"events"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := store.Open(historyDB)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	events, err := db.Events(ctx, store.Filter{
		AgentID:   historyAgent,
		RequestID: historyRequest,
		Kind:      model.EventKind(historyKind),
		Limit:     historyLimit,
	})
	if err != nil {
		return err
	}
	counts, err := db.Counts(ctx)
	if err != nil {
		return err
	}

	if historyFormat == "json" {
		if events == nil {
			events = []model.Event{}
		}
		out, err := json.MarshalIndent(historyOutput{Counts: counts, Events: events}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	writeHistory(cmd.OutOrStdout(), events, counts)
	return nil
}

func writeHistory(out io.Writer, events []model.Event, counts store.Counts) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tREQUEST\tAGENT\tKIND\tDETAIL")
	for _, ev := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", ev.Timestamp, ev.RequestID, ev.AgentID, ev.Kind, detail(ev))
	}
	w.Flush()

	fmt.Fprintln(out, strings.Repeat("-", 60))
	fmt.Fprintf(out, "Total: %d events, %d requests, %d agents | %d granted, %d denied, %d retries\n",
		counts.Events, counts.Requests, counts.Agents, counts.Granted, counts.Denied, counts.Retries)
}

func detail(ev model.Event) string {
	switch ev.Kind {
	case model.EventMoving:
		return fmt.Sprintf("%s -> %s", ev.Elevator, ev.Target)
	case model.EventFloorReached:
		return ev.Elevator.String()
	case model.EventButtonPressed, model.EventCallPlaced, model.EventAgentMoved:
		return fmt.Sprintf("%s -> %s", ev.Origin, ev.Target)
	case model.EventDoorOpened, model.EventDoorStayedClosed:
		return fmt.Sprintf("%s: %s", ev.Target, ev.Reason)
	default:
		return ev.Target.String()
	}
}
