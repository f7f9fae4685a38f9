package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"boomyouup/internal/app"
	"boomyouup/internal/schedule"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the expanded schedule with the next run of each slot",
	Long: `Print every slot of the schedule, including the reminder notifications
derived from each command's notify lead, in firing order starting at midnight.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newToolApp()
	if err != nil {
		return err
	}
	defer a.Stop(cmd.Context(), app.StopUnknown)

	table, err := a.ExpandedTable()
	if err != nil {
		return err
	}
	return writeTable(cmd.OutOrStdout(), table, timeNow())
}

// writeTable prints one line per action of t.
func writeTable(w io.Writer, t *schedule.Table, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tNEXT\tKIND\tTARGET\tNOTE")
	for _, e := range t.Entries() {
		next := e.Time.Next(now)
		for _, a := range e.Actions {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Time, humanize.RelTime(next, now, "ago", "from now"), a.Kind, describe(a), note(a))
		}
	}
	return tw.Flush()
}

func describe(a schedule.Action) string {
	if a.Arguments == "" {
		return a.Target
	}
	return a.Target + " " + a.Arguments
}

func note(a schedule.Action) string {
	switch {
	case a.Synthetic():
		return "reminder"
	case a.NotifyLead == 0:
		return "reminder at run time"
	case a.NotifyLead > 0:
		return fmt.Sprintf("reminder %ds ahead", a.NotifyLead)
	default:
		return ""
	}
}
