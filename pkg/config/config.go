// Package config reads the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/rahul/travelcheck/internal/flow"
)

// Config is read once at startup and never changes afterwards.
type Config struct {
	SlackWebhookURL string
	Headless        bool
	Environment     string

	ScreenshotsDir string
	LogDir         string
	DBPath         string
	DocumentPath   string
	ActionTimeout  time.Duration
	Debug          bool

	TelegramToken  string
	TelegramChatID string

	DiscordWebhookURL string

	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
}

func register(app *kingpin.Application) *Config {
	c := &Config{}

	app.Flag("slack-webhook-url", "Slack incoming webhook notifications are posted to.").Envar("SLACK_WEBHOOK_URL").StringVar(&c.SlackWebhookURL)
	app.Flag("headless", "Run the browser without a window.").Envar("HEADLESS_MODE").Default("true").BoolVar(&c.Headless)
	app.Flag("environment", "Environment label used in notifications.").Envar("ENVIRONMENT").Default("production").StringVar(&c.Environment)

	app.Flag("screenshots-dir", "Directory screenshots are written to.").Envar("SCREENSHOTS_DIR").Default("screenshots").StringVar(&c.ScreenshotsDir)
	app.Flag("log-dir", "Directory for the log file and the run event log.").Envar("LOG_DIR").Default("logs").StringVar(&c.LogDir)
	app.Flag("db-path", "Path to the SQLite run history.").Envar("DB_PATH").Default(filepath.Join("data", "runs.db")).StringVar(&c.DBPath)
	app.Flag("document-path", "Image uploaded as every traveller document.").Envar("DOCUMENT_PATH").Default("download.jpeg").StringVar(&c.DocumentPath)
	app.Flag("action-timeout", "Timeout of a single page action.").Envar("ACTION_TIMEOUT").Default("30s").DurationVar(&c.ActionTimeout)
	app.Flag("debug", "Enable debug logging.").Envar("DEBUG").BoolVar(&c.Debug)

	app.Flag("telegram-bot-token", "Telegram bot token, enables Telegram notifications.").Envar("TELEGRAM_BOT_TOKEN").StringVar(&c.TelegramToken)
	app.Flag("telegram-chat-id", "Telegram chat notifications are sent to.").Envar("TELEGRAM_CHAT_ID").StringVar(&c.TelegramChatID)

	app.Flag("discord-webhook-url", "Discord webhook, enables Discord notifications.").Envar("DISCORD_WEBHOOK_URL").StringVar(&c.DiscordWebhookURL)

	app.Flag("openai-api-key", "Key of an OpenAI compatible API, enables failure triage.").Envar("OPENAI_API_KEY").StringVar(&c.OpenAIKey)
	app.Flag("openai-model", "Model used for failure triage.").Envar("OPENAI_MODEL").Default("gpt-4o-mini").StringVar(&c.OpenAIModel)
	app.Flag("openai-base-url", "Base URL of the OpenAI compatible API.").Envar("OPENAI_BASE_URL").StringVar(&c.OpenAIBaseURL)

	return c
}

func (c *Config) validate() error {
	if c.ActionTimeout <= 0 {
		return fmt.Errorf("action timeout must be positive")
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	return nil
}

// Load reads .env files (missing ones are fine), then the environment and
// args. Variables already set in the environment win over .env files.
func Load(args []string, envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	app := kingpin.New("travelcheck", "Hourly synthetic monitor of the travel insurance purchase flow.")
	c := register(app)
	if _, err := app.Parse(args); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

// Documents returns the files uploaded in the traveller documents step.
func (c *Config) Documents() flow.Documents {
	return flow.Documents{ID: c.DocumentPath, KRA: c.DocumentPath, Passport: c.DocumentPath}
}

func (c *Config) SchedulerLogPath() string { return filepath.Join(c.LogDir, "scheduler.log") }

func (c *Config) EventLogPath() string { return filepath.Join(c.LogDir, "runs.jsonl") }
