package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv    = "REVLENS_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	mlInferenceEnv   = "ML_INFERENCE_URL"
	mlAPIKeyEnv      = "ML_API_KEY"
	openAIAPIKeyEnv  = "OPENAI_API_KEY"
	telegramTokenEnv = "TELEGRAM_BOT_TOKEN"
	telegramChatEnv  = "TELEGRAM_CHAT_ID"
	httpAddrEnv      = "HTTP_ADDR"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig      `yaml:"database"`
	HTTP          HTTPConfig          `yaml:"http"`
	Logging       LoggingConfig       `yaml:"logging"`
	ML            MLConfig            `yaml:"ml"`
	OpenAI        OpenAIConfig        `yaml:"openai"`
	Notifications NotificationConfig  `yaml:"notifications"`
	Refresh       RefreshConfig       `yaml:"refresh"`
	Stats         StatsConfig         `yaml:"stats"`
	Issues        IssuesConfig        `yaml:"issues"`
	Marketplaces  []MarketplaceConfig `yaml:"marketplaces"`
}

// DatabaseConfig describes the sqlite connection.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// HTTPConfig describes the dashboard API listener.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig controls the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MLConfig describes the inference-service integration.
type MLConfig struct {
	InferenceURL string        `yaml:"inferenceUrl"`
	APIKey       string        `yaml:"apiKey"`
	Timeout      time.Duration `yaml:"timeout"`
}

// OpenAIConfig defines the fallback summarizer backend.
type OpenAIConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send digest messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// RefreshConfig controls the periodic re-scrape job in serve mode.
type RefreshConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// StatsConfig holds dashboard aggregation knobs.
type StatsConfig struct {
	// DefaultAverageRating is returned when a product has no parseable ratings.
	DefaultAverageRating float64 `yaml:"defaultAverageRating"`
	RecentReviewLimit    int     `yaml:"recentReviewLimit"`
}

// IssuesConfig holds extraction defaults.
type IssuesConfig struct {
	MinRating float64 `yaml:"minRating"`
	Strategy  string  `yaml:"strategy"`
}

// MarketplaceConfig describes a single review source with its scraper strategy.
type MarketplaceConfig struct {
	Name     string            `yaml:"name"`
	Scraper  string            `yaml:"scraper"`
	URL      string            `yaml:"url"`
	MaxPages int               `yaml:"maxPages"`
	Options  map[string]string `yaml:"options"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Marketplaces) == 0 {
		cfg.Marketplaces = defaultConfig().Marketplaces
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(mlInferenceEnv); v != "" {
		c.ML.InferenceURL = v
	}

	if v := os.Getenv(mlAPIKeyEnv); v != "" {
		c.ML.APIKey = v
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.OpenAI.APIKey = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.HTTP.Addr = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if override.ML.InferenceURL != "" {
		base.ML.InferenceURL = override.ML.InferenceURL
	}
	if override.ML.APIKey != "" {
		base.ML.APIKey = override.ML.APIKey
	}
	if override.ML.Timeout > 0 {
		base.ML.Timeout = override.ML.Timeout
	}

	if override.OpenAI.Endpoint != "" {
		base.OpenAI.Endpoint = override.OpenAI.Endpoint
	}
	if override.OpenAI.Model != "" {
		base.OpenAI.Model = override.OpenAI.Model
	}
	if override.OpenAI.APIKey != "" {
		base.OpenAI.APIKey = override.OpenAI.APIKey
	}
	if override.OpenAI.SystemPrompt != "" {
		base.OpenAI.SystemPrompt = override.OpenAI.SystemPrompt
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Refresh.Interval > 0 {
		base.Refresh = override.Refresh
	}

	if override.Stats.DefaultAverageRating != 0 {
		base.Stats.DefaultAverageRating = override.Stats.DefaultAverageRating
	}
	if override.Stats.RecentReviewLimit > 0 {
		base.Stats.RecentReviewLimit = override.Stats.RecentReviewLimit
	}

	if override.Issues.MinRating > 0 {
		base.Issues.MinRating = override.Issues.MinRating
	}
	if override.Issues.Strategy != "" {
		base.Issues.Strategy = override.Issues.Strategy
	}

	if len(override.Marketplaces) > 0 {
		base.Marketplaces = override.Marketplaces
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Database: DatabaseConfig{DSN: "file:revlens.db?_pragma=foreign_keys(1)"},
		HTTP:     HTTPConfig{Addr: ":8080"},
		Logging:  LoggingConfig{Level: "info"},
		ML: MLConfig{
			InferenceURL: "http://localhost:8090",
			Timeout:      30 * time.Second,
		},
		OpenAI: OpenAIConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: "You summarize customer review complaints for a product dashboard.",
		},
		Refresh: RefreshConfig{Enabled: false, Interval: 24 * time.Hour},
		Stats:   StatsConfig{DefaultAverageRating: 0.0, RecentReviewLimit: 50},
		Issues:  IssuesConfig{MinRating: 3.0, Strategy: "frequency"},
		Marketplaces: []MarketplaceConfig{
			{
				Name:     "flipkart",
				Scraper:  "flipkart",
				URL:      "https://www.flipkart.com",
				MaxPages: 4,
			},
		},
	}
}
