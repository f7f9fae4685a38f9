package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"boomyouup/internal/app"
	"boomyouup/internal/clock"
	"boomyouup/internal/schedule"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Perform one action now, the way the scheduler would",
}

var testExecuteCmd = &cobra.Command{
	Use:   "execute <command> [parameters...]",
	Short: "Run a command or open a file with the platform handler",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, schedule.Action{
			Target:     args[0],
			Arguments:  strings.Join(args[1:], " "),
			Kind:       schedule.KindExecute,
			NotifyLead: schedule.LeadNone,
		})
	},
}

var testPlayAudioCmd = &cobra.Command{
	Use:   "play-audio <path>",
	Short: "Play an audio file and wait for it to finish",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, schedule.Action{Target: args[0], Kind: schedule.KindPlayAudio, NotifyLead: schedule.LeadNone})
	},
}

var testNotifyCmd = &cobra.Command{
	Use:   "notify [command]",
	Short: "Send the reminder notification for a command",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := "test"
		if len(args) == 1 {
			target = args[0]
		}
		return runAction(cmd, schedule.Action{Target: target, Kind: schedule.KindNotification, NotifyLead: schedule.LeadSynthetic})
	},
}

func init() {
	testCmd.AddCommand(testExecuteCmd, testPlayAudioCmd, testNotifyCmd)
	rootCmd.AddCommand(testCmd)
}

func runAction(cmd *cobra.Command, a schedule.Action) error {
	ap, err := newToolApp()
	if err != nil {
		return err
	}
	defer ap.Stop(cmd.Context(), app.StopUnknown)

	slot := clock.Of(timeNow())
	if err := ap.Runner().Run(cmd.Context(), slot, a); err != nil {
		return fmt.Errorf("%s %s: %w", a.Kind, a.Target, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: ok\n", a.Kind, a.Target)
	return nil
}
