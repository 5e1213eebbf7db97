package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clearlift/internal/model"
	"github.com/ppiankov/clearlift/internal/policy"
)

var accessFormat string

func init() {
	rootCmd.AddCommand(accessCmd)
	accessCmd.AddCommand(accessCheckCmd)
	accessCmd.AddCommand(accessTableCmd)
	accessCmd.PersistentFlags().StringVarP(&accessFormat, "format", "f", "text", "Output format (text|json)")
}

var accessCmd = &cobra.Command{
	Use:   "access",
	Short: "Inspect the floor access policy",
}

var accessCheckCmd = &cobra.Command{
	Use:   "check <clearance> <floor>",
	Short: "Check whether a clearance may enter a floor",
	Long:  "Evaluates the access rule for one pair. Exits 0 if allowed, 1 if denied.",
	Args:  cobra.ExactArgs(2),
	RunE:  runAccessCheck,
}

var accessTableCmd = &cobra.Command{
	Use:   "table",
	Short: "Print the full clearance x floor access table",
	Args:  cobra.NoArgs,
	RunE:  runAccessTable,
}

func runAccessCheck(cmd *cobra.Command, args []string) error {
	clearance, err := model.ParseSecurityLevel(args[0])
	if err != nil {
		return err
	}
	floor, err := model.ParseFloor(args[1])
	if err != nil {
		return err
	}

	res := policy.Decide(clearance, floor)
	switch accessFormat {
	case "json":
		out, _ := json.MarshalIndent(policy.MatrixEntry{Clearance: clearance, Floor: floor, Result: res}, "", "  ")
		fmt.Println(string(out))
	default:
		fmt.Printf("%s %s on %s: %s (%s)\n", strings.ToUpper(string(res.Decision)), clearance, floor, res.Reason, res.PolicyID)
	}

	if !res.Allowed() {
		os.Exit(1)
	}
	return nil
}

func runAccessTable(cmd *cobra.Command, args []string) error {
	entries := policy.Matrix()

	if accessFormat == "json" {
		out, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Print(formatAccessTable(entries))
	return nil
}

// formatAccessTable renders one row per clearance, one column per floor.
func formatAccessTable(entries []policy.MatrixEntry) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)

	header := []string{"CLEARANCE"}
	for _, f := range model.Floors() {
		header = append(header, f.String())
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	allowed := make(map[model.SecurityLevel]map[model.Floor]bool)
	for _, e := range entries {
		if allowed[e.Clearance] == nil {
			allowed[e.Clearance] = make(map[model.Floor]bool)
		}
		allowed[e.Clearance][e.Floor] = e.Allowed()
	}

	for _, level := range model.SecurityLevels() {
		row := []string{level.String()}
		for _, f := range model.Floors() {
			mark := "-"
			if allowed[level][f] {
				mark = "yes"
			}
			row = append(row, mark)
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
	return b.String()
}
