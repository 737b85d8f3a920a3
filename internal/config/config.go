package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Slack   SlackConfig
	Redis   RedisConfig
	GitHub  GitHubConfig
	OpenAI  OpenAIConfig
	Logging LoggingConfig
	Bot     BotConfig
}

type SlackConfig struct {
	BotToken string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type GitHubConfig struct {
	ClientID     string
	ClientSecret string
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

type LoggingConfig struct {
	Level string
	File  string
}

type BotConfig struct {
	// IntroChannel is the channel whose newcomers get the onboarding message.
	IntroChannel string
	// EscalationContact is the handle mentioned in the generic failure reply.
	EscalationContact string
	IgnoredChannels   []string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Slack: SlackConfig{
			BotToken: getEnv("SLACK_BOT_TOKEN", ""),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		GitHub: GitHubConfig{
			ClientID:     getEnv("GITHUB_CLIENT_ID", ""),
			ClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey: getEnv("OPENAI_API_KEY", ""),
			Model:  getEnv("OPENAI_MODEL", "gpt-5-mini"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
		Bot: BotConfig{
			IntroChannel:      getEnv("BOT_INTRO_CHANNEL", "intro"),
			EscalationContact: getEnv("BOT_ESCALATION_CONTACT", "@yenbekbay"),
			IgnoredChannels:   parseCommaSeparated(getEnv("BOT_IGNORED_CHANNELS", "")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Slack.BotToken == "" {
		return fmt.Errorf("SLACK_BOT_TOKEN is required")
	}
	if c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.Bot.IntroChannel == "" {
		return fmt.Errorf("BOT_INTRO_CHANNEL is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func parseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
