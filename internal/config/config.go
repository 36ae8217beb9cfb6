package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"flagbot/internal/models"
)

// Config holds the application's configuration.
type Config struct {
	Database struct {
		Driver string `yaml:"driver"` // "postgres" or "sqlite"
		URL    string `yaml:"url"`
	} `yaml:"database"`
	Corpus struct {
		BasePath         string `yaml:"base_path"`
		SupplementalPath string `yaml:"supplemental_path"`
		CacheSize        int    `yaml:"cache_size"`
	} `yaml:"corpus"`
	Moderation struct {
		FlagThreshold  *float64 `yaml:"flag_threshold"`
		SampleRate     *float64 `yaml:"sample_rate"`
		RandomSeed     int64    `yaml:"random_seed"`
		Blacklist      []string `yaml:"blacklist"`
		ReactionEmojis []string `yaml:"reaction_emojis"`
	} `yaml:"moderation"`
	Scanner struct {
		PollInterval int64 `yaml:"poll_interval_seconds"`
		BatchSize    int   `yaml:"batch_size"`
		QueueSize    int   `yaml:"queue_size"`
	} `yaml:"scanner"`
	Telegram struct {
		Enabled    bool    `yaml:"enabled"`
		BotToken   string  `yaml:"bot_token"`
		AdminUsers []int64 `yaml:"admin_users"`
	} `yaml:"telegram"`
	API struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"api"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.setDefaults()

	// Secrets may reference environment variables
	config.Database.URL = os.ExpandEnv(config.Database.URL)
	config.Telegram.BotToken = os.ExpandEnv(config.Telegram.BotToken)
	config.API.JWTSecret = os.ExpandEnv(config.API.JWTSecret)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) setDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.URL == "" && c.Database.Driver == "sqlite" {
		c.Database.URL = "./data/flagbot.db"
	}
	if c.Corpus.BasePath == "" {
		c.Corpus.BasePath = "./input/train.csv"
	}
	if c.Corpus.CacheSize == 0 {
		c.Corpus.CacheSize = 2
	}
	if c.Moderation.SampleRate == nil {
		rate := 0.01
		c.Moderation.SampleRate = &rate
	}
	if c.Scanner.PollInterval == 0 {
		c.Scanner.PollInterval = 300
	}
	if c.Scanner.BatchSize == 0 {
		c.Scanner.BatchSize = 1000
	}
	if c.Scanner.QueueSize == 0 {
		c.Scanner.QueueSize = 4
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Moderation.FlagThreshold == nil {
		return fmt.Errorf("moderation.flag_threshold is required")
	}
	if threshold := *c.Moderation.FlagThreshold; threshold < 0 || threshold > 1 {
		return fmt.Errorf("moderation.flag_threshold must be in [0,1], got %v", threshold)
	}
	if rate := *c.Moderation.SampleRate; rate < 0 || rate > 1 {
		return fmt.Errorf("moderation.sample_rate must be in [0,1], got %v", rate)
	}
	if len(c.Moderation.ReactionEmojis) != len(models.LabelSet) {
		return fmt.Errorf("moderation.reaction_emojis needs %d entries, got %d", len(models.LabelSet), len(c.Moderation.ReactionEmojis))
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
	}
	return nil
}

// IsAdmin reports whether the Telegram user may run bot commands.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Telegram.AdminUsers {
		if id == userID {
			return true
		}
	}
	return false
}
