package app

import (
	"fmt"
	"strings"
	"time"

	"boomyouup/internal/adapters/desktop"
	"boomyouup/internal/adapters/notify"
	"boomyouup/internal/adapters/opener"
	"boomyouup/internal/adapters/player"
	"boomyouup/internal/adapters/telegram"
	"boomyouup/internal/config"
	"boomyouup/internal/observability/metrics"
	"boomyouup/internal/storage"
	logx "boomyouup/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: config.Bool(cfg.Logging.Console, true),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(sc.Path)

	switch driver {
	case "file":
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapMetricsConfig(cfg *config.Config) metrics.ServerConfig {
	return metrics.ServerConfig{Enabled: cfg.Metrics.Enabled, Addr: cfg.Metrics.Addr}
}

// collaborators are the adapters a Runner dispatches to.
type collaborators struct {
	executor *opener.Executor
	player   *player.Player
	desktop  *desktop.Notifier
	notifier *notify.Fanout
}

func buildCollaborators(cfg *config.Config, m *metrics.Metrics, log logx.Logger) (collaborators, error) {
	c := collaborators{
		executor: opener.New(opener.Config{Opener: cfg.Executor.Opener}, log),
		player:   player.New(player.Config{Command: cfg.Audio.Command}, log),
	}

	var sinks []notify.Named
	if config.Bool(cfg.Notifier.Desktop.Enabled, true) {
		timeout, err := config.ParseSignedDurationField("notifier.desktop.timeout", cfg.Notifier.Desktop.Timeout)
		if err != nil {
			return collaborators{}, err
		}
		c.desktop = desktop.New(desktop.Config{Timeout: timeout}, log)
		sinks = append(sinks, notify.Named{Name: "desktop", Sink: c.desktop})
	}
	if tg := cfg.Notifier.Telegram; tg.Enabled {
		n, err := telegram.New(telegram.Config{Token: tg.Token, ChatID: tg.ChatID, ThreadID: tg.ThreadID}, log)
		if err != nil {
			return collaborators{}, fmt.Errorf("notifier.telegram: %w", err)
		}
		sinks = append(sinks, notify.Named{Name: "telegram", Sink: n})
	}
	if len(sinks) == 0 {
		log.Warn("no notification sink enabled; notification actions will fail")
	}
	c.notifier = notify.New(sinks, cfg.Notifier.RatePerSec, m, log)
	return c, nil
}

func (c collaborators) close() {
	if c.desktop != nil {
		_ = c.desktop.Close()
	}
}
