package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"` // sqlite or postgres
	DSN          string `mapstructure:"dsn"`
	Debug        bool   `mapstructure:"debug"` // log every query through bundebug
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

// ImportConfig holds import pipeline configuration
type ImportConfig struct {
	SourceTag       string        `mapstructure:"source_tag"`
	BatchSize       int           `mapstructure:"batch_size"` // maximum items per transaction, not statements
	TxTimeout       time.Duration `mapstructure:"tx_timeout"`
	RunTimeout      time.Duration `mapstructure:"run_timeout"`
	StaleRunAfter   time.Duration `mapstructure:"stale_run_after"`
	PipelineVersion string        `mapstructure:"pipeline_version"`
	GenderLexicon   string        `mapstructure:"gender_lexicon"` // optional YAML file replacing the embedded lexicon
	Commit          CommitConfig  `mapstructure:"commit"`
}

// CommitConfig paces batch commits and retries rolled-back batches
type CommitConfig struct {
	PerSecond      float64       `mapstructure:"per_second"` // 0 disables pacing
	Burst          int           `mapstructure:"burst"`
	MaxRetries     int           `mapstructure:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// ValidationConfig holds post-load validation configuration
type ValidationConfig struct {
	MaxLifespan int `mapstructure:"max_lifespan"`
}

// Config is the full famimport configuration
type Config struct {
	Debug      bool             `mapstructure:"debug"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Import     ImportConfig     `mapstructure:"import"`
	Validation ValidationConfig `mapstructure:"validation"`
}

const envPrefix = "FAMIMPORT"

// Load reads configuration from an optional YAML file, .env files and FAMIMPORT_* variables.
func Load(configFile string, envPath string) (*Config, error) {
	v := configureViper(configFile, envPath)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a configuration usable without any file or environment.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero values with defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "file:famimport.db"
	}
	if cfg.Import.SourceTag == "" {
		cfg.Import.SourceTag = "FAM"
	}
	if cfg.Import.BatchSize <= 0 {
		cfg.Import.BatchSize = 100
	}
	if cfg.Import.TxTimeout <= 0 {
		cfg.Import.TxTimeout = 30 * time.Second
	}
	if cfg.Import.RunTimeout <= 0 {
		cfg.Import.RunTimeout = 5 * time.Minute
	}
	if cfg.Import.StaleRunAfter <= 0 {
		cfg.Import.StaleRunAfter = time.Hour
	}
	if cfg.Import.PipelineVersion == "" {
		cfg.Import.PipelineVersion = "v1"
	}
	if cfg.Validation.MaxLifespan <= 0 {
		cfg.Validation.MaxLifespan = 120
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:famimport.db")
	v.SetDefault("import.source_tag", "FAM")
	v.SetDefault("import.batch_size", 100)
	v.SetDefault("import.tx_timeout", "30s")
	v.SetDefault("import.run_timeout", "5m")
	v.SetDefault("import.stale_run_after", "1h")
	v.SetDefault("import.pipeline_version", "v1")
	v.SetDefault("validation.max_lifespan", 120)
}

func configureViper(configFile string, envPath string) *viper.Viper {
	v := viper.New()

	loadEnv(envPath)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config/")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars binds every key so env-only setups unmarshal without a config file.
func bindAllEnvVars(v *viper.Viper) {
	keys := []string{
		"debug",
		"database.driver",
		"database.dsn",
		"database.debug",
		"database.max_open_conns",
		"import.source_tag",
		"import.batch_size",
		"import.tx_timeout",
		"import.run_timeout",
		"import.stale_run_after",
		"import.pipeline_version",
		"import.gender_lexicon",
		"import.commit.per_second",
		"import.commit.burst",
		"import.commit.max_retries",
		"import.commit.initial_backoff",
		"import.commit.max_backoff",
		"validation.max_lifespan",
	}
	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

func loadEnv(envPath string) {
	if envPath == "" {
		envPath = "config/"
	}
	for _, envFile := range []string{".env", ".env.local"} {
		_ = godotenv.Overload(filepath.Join(envPath, envFile)) // later files override earlier ones
	}
}
