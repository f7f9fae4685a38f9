package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadSettingsMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if cfg.Schedule.Path != DefaultSchedulePath {
		t.Fatalf("schedule.path = %q, want %q", cfg.Schedule.Path, DefaultSchedulePath)
	}
	if !Bool(cfg.Schedule.NormalizeFile, false) || !Bool(cfg.Logging.Console, false) || !Bool(cfg.Notifier.Desktop.Enabled, false) {
		t.Fatalf("boolean defaults not applied: %+v", cfg)
	}
	if cfg.Storage.PruneSpec != DefaultPruneSpec || cfg.Metrics.Addr != DefaultMetricsAddr {
		t.Fatalf("storage/metrics defaults not applied: %+v %+v", cfg.Storage, cfg.Metrics)
	}
}

func TestLoadSettingsYAML(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "boomyouup.yaml")
	body := `
logging:
  level: debug
  console: false
schedule:
  path: /etc/boomyouup/schedule.yaml
  normalize_file: false
  watch: true
  resync: 10m
notifier:
  desktop:
    timeout: -1s
  telegram:
    enabled: true
    token: "123:abc"
    chat_id: -100200
storage:
  driver: sqlite
  path: /var/lib/boomyouup/history.db
  retention: 720h
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if cfg.Logging.Level != "debug" || Bool(cfg.Logging.Console, true) {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if !cfg.Schedule.Watch || Bool(cfg.Schedule.NormalizeFile, true) || cfg.Schedule.Resync != "10m" {
		t.Fatalf("schedule = %+v", cfg.Schedule)
	}
	if cfg.Notifier.Telegram.ChatID != -100200 {
		t.Fatalf("chat_id = %d", cfg.Notifier.Telegram.ChatID)
	}
}

func TestParseSettingsStrict(t *testing.T) {
	t.Parallel()
	if _, err := ParseSettings("x.yaml", []byte("schedule:\n  pathh: a\n")); err == nil {
		t.Fatalf("expected unknown field error")
	}
	if _, err := ParseSettings("x.json", []byte(`{"logging":{}} {"logging":{}}`)); err == nil {
		t.Fatalf("expected trailing data error")
	}
	cfg, err := ParseSettings("x.yaml", nil)
	if err != nil {
		t.Fatalf("empty yaml: %v", err)
	}
	if cfg == nil {
		t.Fatalf("empty yaml returned nil config")
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		Logging:  LoggingConfig{Level: "loud"},
		Schedule: ScheduleConfig{Resync: "-1m"},
		Notifier: NotifierConfig{Telegram: TelegramConfig{Enabled: true}},
		Storage:  StorageConfig{Driver: "sqlite", Retention: "soon", PruneSpec: "every tuesday"},
	}
	cfg.ApplyDefaults()

	err := cfg.Validate()
	var v *ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("Validate = %v, want *ValidationError", err)
	}
	want := []string{
		"logging.level",
		"schedule.resync",
		"notifier.telegram.token",
		"notifier.telegram.chat_id",
		"storage.path",
		"storage.retention",
		"storage.prune_spec",
	}
	got := map[string]bool{}
	for _, p := range v.Problems {
		got[p.Field] = true
	}
	for _, f := range want {
		if !got[f] {
			t.Fatalf("missing problem for %s in %v", f, err)
		}
	}
	if !strings.Contains(err.Error(), "problems") {
		t.Fatalf("error text = %q", err.Error())
	}
}
