package config

// Config is the daemon settings file. The schedule itself lives in a
// separate file (see Schedule); this one only says how to run it.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
// A missing settings file means every default below applies.
type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Schedule ScheduleConfig `json:"schedule"`
	Dispatch DispatchConfig `json:"dispatch"`
	Executor ExecutorConfig `json:"executor"`
	Audio    AudioConfig    `json:"audio"`
	Notifier NotifierConfig `json:"notifier"`
	Storage  StorageConfig  `json:"storage"`
	Metrics  MetricsConfig  `json:"metrics"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console *bool       `json:"console,omitempty"` // default: true
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// ScheduleConfig points at the schedule file.
//
// Defaults (when fields are omitted/zero):
//   - path: "config.yaml"
//   - normalize_file: true (write the sorted schedule back after loading)
//   - watch: false
//   - resync: "0s" (one uninterrupted wait per slot)
type ScheduleConfig struct {
	Path          string `json:"path"`
	NormalizeFile *bool  `json:"normalize_file,omitempty"`
	Watch         bool   `json:"watch"`
	Resync        string `json:"resync,omitempty"`
}

type DispatchConfig struct {
	AppName string `json:"app_name,omitempty"`
	Summary string `json:"summary,omitempty"`
}

type ExecutorConfig struct {
	// Opener replaces the platform default handler (xdg-open/open/rundll32).
	Opener string `json:"opener,omitempty"`
}

type AudioConfig struct {
	// Command is the player command line; {path} and {uri} are substituted.
	Command string `json:"command,omitempty"`
}

// NotifierConfig selects notification sinks. With no sink enabled,
// notification actions fail and are logged.
type NotifierConfig struct {
	Desktop    DesktopConfig  `json:"desktop"`
	Telegram   TelegramConfig `json:"telegram"`
	RatePerSec float64        `json:"rate_per_sec,omitempty"`
}

type DesktopConfig struct {
	Enabled *bool `json:"enabled,omitempty"` // default: true
	// Timeout may be negative to keep the notification until dismissed.
	Timeout string `json:"timeout,omitempty"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	Token    string `json:"token"`
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
}

// StorageConfig controls the dispatch history.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./boomyouup.db", "retention": "720h" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
	Retention   string `json:"retention,omitempty"`    // "0s" keeps everything
	PruneSpec   string `json:"prune_spec,omitempty"`   // cron spec, default "@daily"
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:9464"
}
