// Package opener runs programs for execute actions. A target that resolves
// to an executable is started with the action's arguments; anything else is
// handed to the platform's default handler (xdg-open, open, rundll32).
package opener

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	logx "boomyouup/pkg/logx"
)

type Config struct {
	// Opener overrides the platform handler, e.g. "gio open".
	Opener string
}

// Executor starts processes without waiting for them. Exit status is
// reaped in the background and logged.
type Executor struct {
	opener   []string
	log      logx.Logger
	lookPath func(string) (string, error)
	start    func(*exec.Cmd) error
}

func New(cfg Config, log logx.Logger) *Executor {
	if log.IsZero() {
		log = logx.Nop()
	}
	op := strings.Fields(cfg.Opener)
	if len(op) == 0 {
		op = platformOpener()
	}
	log = log.With(logx.String("comp", "executor"))
	return &Executor{
		opener:   op,
		log:      log,
		lookPath: exec.LookPath,
		start:    startAndReap(log),
	}
}

// Execute starts target. Arguments are split on whitespace. The process is
// not tied to the context and outlives it.
func (e *Executor) Execute(_ context.Context, target, arguments string) error {
	target = strings.TrimSpace(target)
	if target == "" {
		return errors.New("execute: empty target")
	}
	argv := e.Command(target, arguments)
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := e.start(cmd); err != nil {
		return fmt.Errorf("execute %s: %w", target, err)
	}
	e.log.Debug("started", logx.String("target", target), logx.Int("pid", pid(cmd)))
	return nil
}

// Command returns the argv Execute would start for target.
func (e *Executor) Command(target, arguments string) []string {
	args := strings.Fields(arguments)
	if path, err := e.lookPath(target); err == nil {
		return append([]string{path}, args...)
	}
	argv := append(append([]string(nil), e.opener...), target)
	return append(argv, args...)
}

func startAndReap(log logx.Logger) func(*exec.Cmd) error {
	return func(cmd *exec.Cmd) error {
		if err := cmd.Start(); err != nil {
			return err
		}
		go func() {
			if err := cmd.Wait(); err != nil {
				log.Warn("process exited with error", logx.String("cmd", cmd.Path), logx.Err(err))
			}
		}()
		return nil
	}
}

func pid(cmd *exec.Cmd) int {
	if cmd.Process == nil {
		return 0
	}
	return cmd.Process.Pid
}
