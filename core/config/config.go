package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds bot transport settings. AdminID doubles as the
// identifier of the admin support channel: messages arriving from that chat
// are relayed to live users, and admin-only commands are restricted to it.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// RateLimitConfig holds settings for per-user inbound rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// DatabaseConfig describes the optional Postgres connection used for the FAQ
// table. When Enabled is false the bot falls back to the FAQ file (or the
// built-in defaults) and never touches the database.
type DatabaseConfig struct {
	Enabled        bool   `yaml:"enabled" envconfig:"DB_ENABLED"`
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// SupportConfig carries the triage policy knobs and outbound message texts.
// All durations are plain seconds to keep YAML and env overrides trivial.
type SupportConfig struct {
	WelcomeMessage  string `yaml:"welcome_message"`
	FallbackMessage string `yaml:"fallback_message"`

	FAQFile        string  `yaml:"faq_file" envconfig:"SUPPORT_FAQ_FILE"`
	MatchThreshold float64 `yaml:"match_threshold" envconfig:"SUPPORT_MATCH_THRESHOLD"`

	SweepIntervalSeconds  int `yaml:"sweep_interval_seconds" envconfig:"SUPPORT_SWEEP_INTERVAL_SECONDS"`
	RemindAfterSeconds    int `yaml:"remind_after_seconds" envconfig:"SUPPORT_REMIND_AFTER_SECONDS"`
	AutoCloseAfterSeconds int `yaml:"auto_close_after_seconds" envconfig:"SUPPORT_AUTO_CLOSE_AFTER_SECONDS"`
	// IdleEvictAfterSeconds evicts never-escalated idle sessions when > 0.
	IdleEvictAfterSeconds int `yaml:"idle_evict_after_seconds" envconfig:"SUPPORT_IDLE_EVICT_AFTER_SECONDS"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// DefaultWelcomeMessage greets a user on first contact and on /start.
const DefaultWelcomeMessage = "GOOD DAY ❤️\n\n" +
	"Welcome to Primelogz support, how may we be of service to you..?\n\n" +
	"For any complaints or issues please send the following:\n\n" +
	"1. Account/Logs details\n" +
	"2. Category of account on site\n" +
	"3. Screenrecord/Screenshot of the problem\n\n" +
	"With these we will be able to respond to you accordingly. Thank you ✅"

// DefaultFallbackMessage is sent to the user when no FAQ entry matches.
const DefaultFallbackMessage = "I'm not sure how to answer that. Let me connect you with a support agent."

// Config aggregates the full application configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Database  DatabaseConfig  `yaml:"database"`
	Support   SupportConfig   `yaml:"support"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if cfg.Telegram.AdminID == 0 {
		return fmt.Errorf("telegram.admin_id is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}

	if cfg.Database.Enabled {
		if cfg.Database.Host == "" || cfg.Database.Name == "" || cfg.Database.User == "" {
			return fmt.Errorf("database.host, database.name and database.user are required when database.enabled")
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 4
		}
	}

	return normalizeSupport(&cfg.Support)
}

func normalizeSupport(s *SupportConfig) error {
	if s.WelcomeMessage == "" {
		s.WelcomeMessage = DefaultWelcomeMessage
	}
	if s.FallbackMessage == "" {
		s.FallbackMessage = DefaultFallbackMessage
	}
	if s.MatchThreshold == 0 {
		s.MatchThreshold = 0.5
	}
	if s.MatchThreshold < 0 || s.MatchThreshold > 1 {
		return fmt.Errorf("support.match_threshold must be within [0, 1]")
	}
	if s.SweepIntervalSeconds < 0 || s.RemindAfterSeconds < 0 || s.AutoCloseAfterSeconds < 0 || s.IdleEvictAfterSeconds < 0 {
		return fmt.Errorf("support durations must be >= 0")
	}
	if s.SweepIntervalSeconds == 0 {
		s.SweepIntervalSeconds = 60
	}
	if s.RemindAfterSeconds == 0 {
		s.RemindAfterSeconds = 120
	}
	if s.AutoCloseAfterSeconds == 0 {
		s.AutoCloseAfterSeconds = 600
	}
	return nil
}
