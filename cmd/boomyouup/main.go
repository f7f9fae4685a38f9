package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"boomyouup/internal/app"
	"boomyouup/internal/config"
	logx "boomyouup/pkg/logx"
)

var (
	settingsPath string
	schedulePath string

	timeNow = time.Now
)

var rootCmd = &cobra.Command{
	Use:   "boomyouup",
	Short: "Run commands, play sounds and raise reminders at fixed times of day",
	Long: `boomyouup reads a list of times of day from a schedule file and, every day,
runs the commands listed for each time. Commands can open programs or files,
play audio, and raise a reminder notification some seconds ahead.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runRun,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&settingsPath, "config", "c", config.DefaultSettingsPath, "settings file (yaml or json); missing means defaults")
	rootCmd.PersistentFlags().StringVarP(&schedulePath, "schedule", "s", "", "schedule file (overrides schedule.path)")
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(opts ...app.Option) (*app.App, error) {
	a, err := app.New(settingsPath, append([]app.Option{app.WithSchedulePath(schedulePath)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	return a, nil
}

// newToolApp builds the app for the one-shot commands. They log warnings and
// errors to stderr only; stdout carries their output.
func newToolApp() (*app.App, error) {
	return newApp(app.WithLogger(toolLogger()))
}

func toolLogger() logx.Logger { return logx.NewConsole("warn") }

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		_ = a.Stop(context.Background(), app.StopFatalError)
		return err
	}

	reason := app.StopSignal
	select {
	case <-ctx.Done():
	case <-a.Done():
		if a.Err() != nil {
			reason = app.StopFatalError
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	_ = a.Stop(stopCtx, reason)
	return a.Err()
}
