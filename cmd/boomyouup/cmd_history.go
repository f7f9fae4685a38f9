package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"boomyouup/internal/app"
	"boomyouup/internal/storage"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently dispatched actions",
	Long:  "Show the most recent actions recorded by storage, newest first. Requires storage.driver.",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of records to show (0 = all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newToolApp()
	if err != nil {
		return err
	}
	defer a.Stop(cmd.Context(), app.StopUnknown)

	st := a.Store()
	if st == nil {
		return errors.New("storage is disabled; set storage.driver to file or sqlite")
	}
	recs, err := st.Recent(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	return writeHistory(cmd.OutOrStdout(), recs, timeNow())
}

func writeHistory(w io.Writer, recs []storage.Record, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSLOT\tKIND\tTARGET\tTOOK\tRESULT")
	for _, r := range recs {
		result := "ok"
		if !r.OK() {
			result = r.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			humanize.RelTime(r.Started, now, "ago", "from now"),
			r.Slot, r.Kind, r.Target, r.Duration.Round(time.Millisecond), result)
	}
	return tw.Flush()
}
