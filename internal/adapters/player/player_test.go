package player

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"testing"

	logx "boomyouup/pkg/logx"
)

func TestCommandTemplate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		tmpl string
		want []string
	}{
		{"", []string{"gst-launch-1.0", "-q", "playbin", "uri=file:///music/wake%20up.ogg"}},
		{"mpv --no-video {path}", []string{"mpv", "--no-video", "/music/wake up.ogg"}},
	}
	for _, tc := range cases {
		p := New(Config{Command: tc.tmpl}, logx.Nop())
		if got := p.Command("/music/wake up.ogg"); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Command(%q) = %q, want %q", tc.tmpl, got, tc.want)
		}
	}
}

func TestPlayRunsCommand(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "alarm.ogg")
	if err := os.WriteFile(path, []byte("OggS"), 0o600); err != nil {
		t.Fatal(err)
	}
	p := New(Config{Command: "player {path}"}, logx.Nop())
	var got []string
	p.run = func(cmd *exec.Cmd) error {
		got = cmd.Args
		return nil
	}
	if err := p.Play(context.Background(), path); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if want := []string{"player", path}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ran %q, want %q", got, want)
	}

	boom := errors.New("exit status 1")
	p.run = func(*exec.Cmd) error { return boom }
	if err := p.Play(context.Background(), path); !errors.Is(err, boom) {
		t.Fatalf("Play = %v, want wrapped %v", err, boom)
	}
}

func TestPlayMissingFile(t *testing.T) {
	t.Parallel()
	p := New(Config{}, logx.Nop())
	p.run = func(*exec.Cmd) error {
		t.Fatalf("player started for a missing file")
		return nil
	}
	err := p.Play(context.Background(), filepath.Join(t.TempDir(), "nope.ogg"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Play = %v, want ErrNotExist", err)
	}
	if err := p.Play(context.Background(), t.TempDir()); err == nil {
		t.Fatalf("expected error for directory")
	}
}
