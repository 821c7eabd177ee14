package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	Scoring    ScoringConfig    `mapstructure:"scoring" yaml:"scoring"`
	Normalizer NormalizerConfig `mapstructure:"normalizer" yaml:"normalizer"`
	Team       TeamConfig       `mapstructure:"team" yaml:"team"`

	// AI narrative enhancement
	AI AIConfig `mapstructure:"ai" yaml:"ai"`

	// Result persistence
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Scoring fan-out width
	Workers int `mapstructure:"workers" yaml:"workers"`
}

type AIConfig struct {
	Provider          string        `mapstructure:"provider" yaml:"provider"` // "openai", "gemini", "none"
	Model             string        `mapstructure:"model" yaml:"model"`
	OpenAIKey         string        `mapstructure:"openai_key" yaml:"openai_key"`
	GeminiKey         string        `mapstructure:"gemini_key" yaml:"gemini_key"`
	UseKeychain       bool          `mapstructure:"use_keychain" yaml:"use_keychain"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`         // per enhancement call
	TeamTimeout       time.Duration `mapstructure:"team_timeout" yaml:"team_timeout"` // team insight call
	Concurrency       int           `mapstructure:"concurrency" yaml:"concurrency"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int           `mapstructure:"burst" yaml:"burst"`
	RedisAddr         string        `mapstructure:"redis_addr" yaml:"redis_addr"` // optional shared quota
	RequestsPerDay    int64         `mapstructure:"requests_per_day" yaml:"requests_per_day"`
}

type StorageConfig struct {
	Type        string `mapstructure:"type" yaml:"type"` // "sqlite", "postgres", "bolt"
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
	LocalPath   string `mapstructure:"local_path" yaml:"local_path"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Scoring:    DefaultScoring(),
		Normalizer: DefaultNormalizer(),
		Team:       DefaultTeam(),
		AI: AIConfig{
			Provider:          "none",
			UseKeychain:       true,
			Timeout:           20 * time.Second,
			TeamTimeout:       30 * time.Second,
			Concurrency:       4,
			RequestsPerSecond: 2,
			Burst:             2,
			RequestsPerDay:    10_000,
		},
		Storage: StorageConfig{
			Type:      "sqlite",
			LocalPath: filepath.Join(homeDir, ".burnrisk", "runs.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Workers: 8,
	}
}

// Load loads configuration from file, environment and .env files, then runs the
// scoring self-check. An invalid weight group is a fatal configuration error.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".burnrisk")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".burnrisk"))
	}

	cfg := Default()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	// Decoding onto the defaults keeps every key the file leaves out
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := ValidateScoring(cfg.Scoring, cfg.Normalizer, cfg.Team); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence; godotenv never overrides
// variables that are already set, so the first file wins.
func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".burnrisk", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if provider := os.Getenv("BURNRISK_AI_PROVIDER"); provider != "" {
		cfg.AI.Provider = provider
	}
	if model := os.Getenv("BURNRISK_AI_MODEL"); model != "" {
		cfg.AI.Model = model
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.AI.OpenAIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.AI.GeminiKey = key
	}
	if timeout := os.Getenv("BURNRISK_AI_TIMEOUT_SECONDS"); timeout != "" {
		if secs, err := strconv.Atoi(timeout); err == nil && secs > 0 {
			cfg.AI.Timeout = time.Duration(secs) * time.Second
		}
	}
	if conc := os.Getenv("BURNRISK_AI_CONCURRENCY"); conc != "" {
		if n, err := strconv.Atoi(conc); err == nil && n > 0 {
			cfg.AI.Concurrency = n
		}
	}
	if addr := os.Getenv("BURNRISK_REDIS_ADDR"); addr != "" {
		cfg.AI.RedisAddr = addr
	}

	if storageType := os.Getenv("BURNRISK_STORAGE_TYPE"); storageType != "" {
		cfg.Storage.Type = storageType
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Storage.PostgresDSN = dsn
	}
	if path := os.Getenv("BURNRISK_DB_PATH"); path != "" {
		cfg.Storage.LocalPath = expandPath(path)
	}

	if level := os.Getenv("BURNRISK_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if days := os.Getenv("BURNRISK_WINDOW_DAYS"); days != "" {
		if n, err := strconv.Atoi(days); err == nil && n > 0 {
			cfg.Normalizer.WindowDays = n
		}
	}
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// Save writes configuration to a YAML file. API keys are never written; use the keychain.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	ai := c.AI
	ai.OpenAIKey = ""
	ai.GeminiKey = ""

	v.Set("scoring", c.Scoring)
	v.Set("normalizer", c.Normalizer)
	v.Set("team", c.Team)
	v.Set("ai", ai)
	v.Set("storage", c.Storage)
	v.Set("logging", c.Logging)
	v.Set("workers", c.Workers)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
