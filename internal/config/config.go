package config

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// DefaultPollInterval is how often due reminders are checked.
const DefaultPollInterval = 5 * time.Minute

// Config stores runtime configuration loaded from environment variables and
// the TOML bot file.
type Config struct {
	Port                 string
	TwilioAccountSID     string
	TwilioAuthToken      string
	TwilioWhatsAppNumber string
	TwilioWebhookURL     string
	TwilioJoinKeyword    string
	OpenAIAPIKey         string
	DatabaseURL          string
	SQLitePath           string
	LocalTimezone        *time.Location
	PollInterval         time.Duration
	LogLevel             string
	LogRepeatBatch       int
	BotFile              string

	Bot Bot
}

// Bot is the user-facing vocabulary read from the TOML file.
type Bot struct {
	Commands       Commands       `toml:"commands"`
	Authentication Authentication `toml:"authentication"`
	Messages       Messages       `toml:"messages"`
}

// Commands holds the command keywords.
type Commands struct {
	List   string `toml:"list"`
	Remove string `toml:"remove"`
}

// Authentication holds the password challenge strings.
type Authentication struct {
	Prompt     string `toml:"prompt"`
	Password   string `toml:"password"`
	Authorized string `toml:"authorized"`
}

// Load reads configuration values and prepares defaults where applicable.
func Load() (*Config, error) {
	_ = godotenv.Load()

	timezoneName := getenvDefault("LOCAL_TIMEZONE", "Local")
	location, err := time.LoadLocation(timezoneName)
	if err != nil {
		log.Printf("config: invalid LOCAL_TIMEZONE %q, defaulting to system local: %v", timezoneName, err)
		location = time.Local
	}

	cfg := &Config{
		Port:                 getenvDefault("PORT", "8080"),
		TwilioAccountSID:     os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:      os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioWhatsAppNumber: os.Getenv("TWILIO_WHATSAPP_NUMBER"),
		TwilioWebhookURL:     os.Getenv("TWILIO_WEBHOOK_URL"),
		TwilioJoinKeyword:    getenvDefault("TWILIO_JOIN_KEYWORD", "join"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		SQLitePath:           os.Getenv("SQLITE_PATH"),
		LocalTimezone:        location,
		PollInterval:         ParseDurationEnv("POLL_INTERVAL", DefaultPollInterval),
		LogLevel:             getenvDefault("LOG_LEVEL", "info"),
		LogRepeatBatch:       ParseIntEnv("LOG_REPEAT_BATCH", 100),
		BotFile:              getenvDefault("CHRONOBOT_CONFIG", "chronobot.toml"),
	}

	bot, err := LoadBot(cfg.BotFile)
	if err != nil {
		return nil, err
	}
	cfg.Bot = *bot
	return cfg, nil
}

// LoadBot reads the TOML bot file, expanding ${VAR} references from the environment.
func LoadBot(path string) (*Bot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading bot config: %w", err)
	}
	return ParseBot(string(data))
}

// ParseBot decodes and validates TOML bot configuration.
func ParseBot(data string) (*Bot, error) {
	var bot Bot
	if _, err := toml.Decode(expandEnvVars(data), &bot); err != nil {
		return nil, fmt.Errorf("parsing bot config: %w", err)
	}
	if err := bot.Validate(); err != nil {
		return nil, fmt.Errorf("validating bot config: %w", err)
	}
	return &bot, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(name)
	})
}

// Validate checks that every keyword, secret and phrase pool is present.
func (b *Bot) Validate() error {
	switch {
	case strings.TrimSpace(b.Commands.List) == "":
		return fmt.Errorf("commands.list is required")
	case strings.TrimSpace(b.Commands.Remove) == "":
		return fmt.Errorf("commands.remove is required")
	case strings.EqualFold(b.Commands.List, b.Commands.Remove):
		return fmt.Errorf("commands.list and commands.remove must differ")
	case b.Authentication.Password == "":
		return fmt.Errorf("authentication.password is required")
	case strings.TrimSpace(b.Authentication.Password) != b.Authentication.Password:
		return fmt.Errorf("authentication.password must not start or end with whitespace")
	case b.Authentication.Prompt == "":
		return fmt.Errorf("authentication.prompt is required")
	case b.Authentication.Authorized == "":
		return fmt.Errorf("authentication.authorized is required")
	}
	return b.Messages.validate()
}

func getenvDefault(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	return value
}

// ParseIntEnv returns the integer value for an environment variable or the provided default.
func ParseIntEnv(key string, def int) int {
	value := os.Getenv(key)
	if value == "" {
		return def
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("config: unable to parse %s=%q as int: %v", key, value, err)
		return def
	}
	return parsed
}

// ParseDurationEnv returns the duration value for an environment variable or the provided default.
func ParseDurationEnv(key string, def time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return def
	}

	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		log.Printf("config: unable to parse %s=%q as a positive duration: %v", key, value, err)
		return def
	}
	return parsed
}
