/*
Package config loads process settings from the environment and the per-source
extraction contract from an optional TOML file.
*/
package config

import (
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v10"
	"golang.org/x/text/language"

	"github.com/shanehull/goldbot/internal/numeric"
)

type Config struct {
	BotToken string `env:"BOT_TOKEN"`
	BaseURL  string `env:"BASE_URL"`
	Port     int    `env:"PORT" envDefault:"8080"`

	SourcesFile    string        `env:"SOURCES_FILE"`
	FetchTimeout   time.Duration `env:"FETCH_TIMEOUT" envDefault:"10s"`
	UserAgent      string        `env:"FETCH_USER_AGENT"`
	MaxConcurrency int           `env:"MAX_CONCURRENCY" envDefault:"4"`

	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT"`

	ReportTimezone string `env:"REPORT_TIMEZONE" envDefault:"Asia/Tehran"`
	ReportLocale   string `env:"REPORT_LOCALE" envDefault:"en"`

	TelegramAPIURL      string        `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
	TelegramPollTimeout time.Duration `env:"TELEGRAM_POLL_TIMEOUT" envDefault:"30s"`

	SMTPServer string `env:"SMTP_SERVER" envDefault:"smtp.gmail.com"`
	SMTPPort   int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser   string `env:"SMTP_USER"`
	SMTPPass   string `env:"SMTP_PASS"`
	FromEmail  string `env:"FROM_EMAIL"`
	ToEmail    string `env:"TO_EMAIL"`
}

// Load reads the environment. Bot tokens pasted with Persian or Arabic-Indic
// digits are folded to ASCII.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.BotToken = numeric.NormalizeDigits(cfg.BotToken)
	if cfg.FromEmail == "" {
		cfg.FromEmail = cfg.SMTPUser
	}
	return cfg, nil
}

// Validate checks the values that Load cannot express as tags. It does not
// require BOT_TOKEN; only the bot needs one.
func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Port)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive, got %s", c.FetchTimeout)
	}
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("MAX_CONCURRENCY must be positive, got %d", c.MaxConcurrency)
	}
	if c.TelegramPollTimeout < 0 {
		return fmt.Errorf("TELEGRAM_POLL_TIMEOUT must not be negative, got %s", c.TelegramPollTimeout)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := language.Parse(c.ReportLocale); err != nil {
		return fmt.Errorf("invalid REPORT_LOCALE %q: %w", c.ReportLocale, err)
	}
	return nil
}

func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_TIMEZONE %q: %w", c.ReportTimezone, err)
	}
	return loc, nil
}

// EmailEnabled reports whether enough SMTP settings are present to send mail.
func (c Config) EmailEnabled() bool {
	return c.SMTPServer != "" && c.SMTPUser != "" && c.SMTPPass != "" && c.ToEmail != ""
}
