package opener

import (
	"context"
	"errors"
	"os/exec"
	"reflect"
	"testing"

	logx "boomyouup/pkg/logx"
)

func fakeExecutor(opener string, known map[string]string) (*Executor, *[]string) {
	e := New(Config{Opener: opener}, logx.Nop())
	var started []string
	e.lookPath = func(name string) (string, error) {
		if p, ok := known[name]; ok {
			return p, nil
		}
		return "", exec.ErrNotFound
	}
	e.start = func(cmd *exec.Cmd) error {
		started = append([]string(nil), cmd.Args...)
		return nil
	}
	return e, &started
}

func TestCommand(t *testing.T) {
	t.Parallel()
	e, _ := fakeExecutor("gio open", map[string]string{"notepad": "/usr/bin/notepad"})
	cases := []struct {
		target, args string
		want         []string
	}{
		{"notepad", "", []string{"/usr/bin/notepad"}},
		{"notepad", "  a.txt   b.txt ", []string{"/usr/bin/notepad", "a.txt", "b.txt"}},
		{"https://example.com", "", []string{"gio", "open", "https://example.com"}},
		{"/home/u/todo.md", "", []string{"gio", "open", "/home/u/todo.md"}},
	}
	for _, tc := range cases {
		if got := e.Command(tc.target, tc.args); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Command(%q, %q) = %q, want %q", tc.target, tc.args, got, tc.want)
		}
	}
}

func TestExecuteStartsCommand(t *testing.T) {
	t.Parallel()
	e, started := fakeExecutor("", map[string]string{"backup": "/opt/backup"})
	if err := e.Execute(context.Background(), "backup", "--all"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if want := []string{"/opt/backup", "--all"}; !reflect.DeepEqual(*started, want) {
		t.Fatalf("started %q, want %q", *started, want)
	}
}

func TestExecuteIgnoresCanceledContext(t *testing.T) {
	t.Parallel()
	e, started := fakeExecutor("", map[string]string{"backup": "/opt/backup"})
	var cancelCtx bool
	e.start = func(cmd *exec.Cmd) error {
		cancelCtx = cmd.Cancel != nil
		*started = append([]string(nil), cmd.Args...)
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := e.Execute(ctx, "backup", ""); err != nil {
		t.Fatalf("Execute with canceled ctx: %v", err)
	}
	if len(*started) == 0 {
		t.Fatalf("process not started")
	}
	if cancelCtx {
		t.Fatalf("command bound to the context")
	}
}

func TestExecuteErrors(t *testing.T) {
	t.Parallel()
	e, _ := fakeExecutor("", nil)
	if err := e.Execute(context.Background(), "  ", ""); err == nil {
		t.Fatalf("expected error for empty target")
	}
	boom := errors.New("fork failed")
	e.start = func(*exec.Cmd) error { return boom }
	if err := e.Execute(context.Background(), "x", ""); !errors.Is(err, boom) {
		t.Fatalf("Execute = %v, want wrapped %v", err, boom)
	}
}

func TestDefaultOpener(t *testing.T) {
	t.Parallel()
	e := New(Config{}, logx.Nop())
	if len(e.opener) == 0 {
		t.Fatalf("no platform opener")
	}
}
