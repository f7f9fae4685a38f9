// Package player plays audio files through an external command and blocks
// until it exits.
package player

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	logx "boomyouup/pkg/logx"
)

// DefaultCommand plays through GStreamer, which picks a decoder by content.
const DefaultCommand = "gst-launch-1.0 -q playbin uri={uri}"

type Config struct {
	// Command is split on whitespace. {path} and {uri} are replaced with the
	// absolute file path and its file:// URI.
	Command string
}

type Player struct {
	argv []string
	log  logx.Logger
	run  func(*exec.Cmd) error
}

func New(cfg Config, log logx.Logger) *Player {
	if log.IsZero() {
		log = logx.Nop()
	}
	argv := strings.Fields(cfg.Command)
	if len(argv) == 0 {
		argv = strings.Fields(DefaultCommand)
	}
	return &Player{argv: argv, log: log.With(logx.String("comp", "player")), run: (*exec.Cmd).Run}
}

// Play blocks until playback ends or ctx is done.
func (p *Player) Play(ctx context.Context, path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("play: empty path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("play %s: %w", path, err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}
	if fi.IsDir() {
		return fmt.Errorf("play %s: is a directory", abs)
	}

	argv := p.Command(abs)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	p.log.Debug("playing", logx.String("path", abs), logx.String("player", argv[0]))
	if err := p.run(cmd); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("play %s: %w: %s", abs, err, tail(msg, 512))
		}
		return fmt.Errorf("play %s: %w", abs, err)
	}
	return nil
}

// Command expands the configured template for an absolute path.
func (p *Player) Command(abs string) []string {
	uri := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	out := make([]string, len(p.argv))
	for i, a := range p.argv {
		a = strings.ReplaceAll(a, "{path}", abs)
		out[i] = strings.ReplaceAll(a, "{uri}", uri)
	}
	return out
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
