package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken         string         `yaml:"discord_token"`
	MongoURI             string         `yaml:"mongo_uri"`
	MongoDatabase        string         `yaml:"mongo_database"`
	CommandPrefix        string         `yaml:"command_prefix"`
	LogLevel             string         `yaml:"log_level"`
	EmbedColor           int            `yaml:"embed_color"`
	PromptTimeoutSeconds int            `yaml:"prompt_timeout_seconds"`
	Health               HealthConfig   `yaml:"health"`
	Channels             ChannelsConfig `yaml:"channels"`
}

type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// ChannelsConfig names the specially handled channels. They are matched by
// name, not ID, so renaming a channel detaches it from its rules.
type ChannelsConfig struct {
	Counting         string `yaml:"counting"`
	Phrase           string `yaml:"phrase"`
	PhraseText       string `yaml:"phrase_text"`
	PrivateVCTrigger string `yaml:"private_vc_trigger"`
}

func DefaultConfig() Config {
	return Config{
		MongoURI:             "mongodb://localhost:27017",
		MongoDatabase:        "muskrat",
		CommandPrefix:        "!!",
		LogLevel:             "info",
		EmbedColor:           0x00C700,
		PromptTimeoutSeconds: 120,
		Health:               HealthConfig{Enabled: false, Addr: ":8080"},
		Channels: ChannelsConfig{
			Counting:         "counting",
			Phrase:           "around-the-world",
			PhraseText:       "around the world",
			PrivateVCTrigger: "Create Private VC",
		},
	}
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if cfg.DiscordToken == "" {
		return Config{}, errors.New("DISCORD_TOKEN is required")
	}
	if cfg.MongoURI == "" {
		return Config{}, errors.New("MONGO_URI is required")
	}
	if cfg.CommandPrefix == "" {
		cfg.CommandPrefix = "!!"
	}
	if cfg.PromptTimeoutSeconds <= 0 {
		cfg.PromptTimeoutSeconds = 120
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.MongoURI = envString("MONGO_URI", cfg.MongoURI)
	cfg.MongoDatabase = envString("MONGO_DATABASE", cfg.MongoDatabase)
	cfg.CommandPrefix = envString("COMMAND_PREFIX", cfg.CommandPrefix)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.EmbedColor = envInt("EMBED_COLOR", cfg.EmbedColor)
	cfg.PromptTimeoutSeconds = envInt("PROMPT_TIMEOUT_SECONDS", cfg.PromptTimeoutSeconds)
	cfg.Health.Enabled = envBool("HEALTH_ENABLED", cfg.Health.Enabled)
	cfg.Health.Addr = envString("HEALTH_ADDR", cfg.Health.Addr)
	cfg.Channels.Counting = envString("COUNTING_CHANNEL", cfg.Channels.Counting)
	cfg.Channels.Phrase = envString("PHRASE_CHANNEL", cfg.Channels.Phrase)
	cfg.Channels.PhraseText = envString("PHRASE_TEXT", cfg.Channels.PhraseText)
	cfg.Channels.PrivateVCTrigger = envString("PRIVATE_VC_TRIGGER", cfg.Channels.PrivateVCTrigger)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	lvl := strings.ToLower(level)
	switch lvl {
	case "debug", "info", "warn", "error":
		cfg.Level = zap.NewAtomicLevelAt(parseLevel(lvl))
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}
