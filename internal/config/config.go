package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	PushDriverFCM = "fcm"
	PushDriverLog = "log"
)

// Config keeps runtime settings for the scheduler service.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Push      PushConfig      `yaml:"push"`
	Telegram  TelegramConfig  `yaml:"telegram"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json
}

type SchedulerConfig struct {
	Interval     time.Duration `yaml:"interval"`
	CycleTimeout time.Duration `yaml:"cycle_timeout"`
	Autostart    *bool         `yaml:"autostart"`
}

// AutostartEnabled defaults to true when the key is omitted.
func (s SchedulerConfig) AutostartEnabled() bool {
	return s.Autostart == nil || *s.Autostart
}

type DispatchConfig struct {
	SendSpacing time.Duration `yaml:"send_spacing"`
}

type PushConfig struct {
	Driver string    `yaml:"driver"`
	FCM    FCMConfig `yaml:"fcm"`
}

type FCMConfig struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

type TelegramConfig struct {
	Token        string  `yaml:"token"`
	AdminChatIDs []int64 `yaml:"admin_chat_ids"`
	// DigestAt is HH:MM; empty disables the daily digest.
	DigestAt       string `yaml:"digest_at"`
	DigestTimezone string `yaml:"digest_timezone"`
}

// Load reads the optional YAML file at path, applies environment overrides
// and fills defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	var cfg Config

	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)

	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Database.DSN, "DATABASE_URL")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	setString(&cfg.Push.Driver, "PUSH_DRIVER")
	setString(&cfg.Push.FCM.ProjectID, "FCM_PROJECT_ID")
	setString(&cfg.Push.FCM.CredentialsFile, "FCM_CREDENTIALS_FILE")
	setString(&cfg.Telegram.Token, "TELEGRAM_TOKEN")
	setString(&cfg.Telegram.DigestAt, "TELEGRAM_DIGEST_AT")

	if raw := env("SCHEDULER_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("SCHEDULER_INTERVAL: invalid duration %q: %w", raw, err)
		}
		cfg.Scheduler.Interval = d
	}

	if raw := env("TELEGRAM_ADMIN_CHAT_IDS"); raw != "" {
		ids, err := parseChatIDs(raw)
		if err != nil {
			return fmt.Errorf("TELEGRAM_ADMIN_CHAT_IDS: %w", err)
		}
		cfg.Telegram.AdminChatIDs = ids
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "plant_care.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Scheduler.Interval == 0 {
		cfg.Scheduler.Interval = time.Minute
	}
	if cfg.Scheduler.CycleTimeout == 0 {
		cfg.Scheduler.CycleTimeout = 30 * time.Second
	}
	if cfg.Dispatch.SendSpacing == 0 {
		cfg.Dispatch.SendSpacing = 100 * time.Millisecond
	}
	cfg.Push.Driver = strings.ToLower(strings.TrimSpace(cfg.Push.Driver))
	if cfg.Push.Driver == "" {
		cfg.Push.Driver = PushDriverLog
	}
}

// Validate checks settings that cannot be defaulted.
func (c Config) Validate() error {
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be positive")
	}
	if c.Scheduler.CycleTimeout < 0 {
		return fmt.Errorf("scheduler.cycle_timeout must be >= 0")
	}
	if c.Dispatch.SendSpacing < 0 {
		return fmt.Errorf("dispatch.send_spacing must be >= 0")
	}
	switch c.Push.Driver {
	case PushDriverLog:
	case PushDriverFCM:
		if strings.TrimSpace(c.Push.FCM.ProjectID) == "" {
			return fmt.Errorf("push.fcm.project_id is required for the fcm driver")
		}
		if strings.TrimSpace(c.Push.FCM.CredentialsFile) == "" {
			return fmt.Errorf("push.fcm.credentials_file is required for the fcm driver")
		}
	default:
		return fmt.Errorf("unknown push.driver %q", c.Push.Driver)
	}
	if c.Telegram.Token != "" && len(c.Telegram.AdminChatIDs) == 0 {
		return fmt.Errorf("telegram.admin_chat_ids is required when telegram.token is set")
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, key string) {
	if v := env(key); v != "" {
		*dst = v
	}
}

func parseChatIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chat id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
