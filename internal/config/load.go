package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from, in order of increasing precedence: a
// wordvault.yaml config file (searched in the working directory and the
// data directory), a .env file in the working directory, and WORDVAULT_*
// environment variables. Nested keys map to underscored variables, e.g.
// engine.deck_size becomes WORDVAULT_ENGINE_DECK_SIZE.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	// A .env file is a convenience for development; absence is fine.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("wordvault")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".wordvault"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("WORDVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// ValidateServer checks the fields the sync server process cannot run
// without. The client CLI never needs these, so Load leaves them
// optional and the serve command calls this explicitly.
func (c *Config) ValidateServer() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required to run the sync server")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required to run the sync server")
	}
	return nil
}

// setDefaults registers every default so a bare environment still
// yields a usable client configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.data_dir", defaultDataDir())
	v.SetDefault("engine.deck_size", 20)
	v.SetDefault("engine.new_ratio", 0.3)
	v.SetDefault("engine.context_capacity", 10)
	v.SetDefault("engine.persist_debounce", time.Second)
	v.SetDefault("engine.sync_debounce", 2*time.Second)

	v.SetDefault("sync.base_url", "")
	v.SetDefault("sync.timeout", 15*time.Second)
	v.SetDefault("sync.upload_batch_size", 100)
	v.SetDefault("sync.auto_interval", 30*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 20)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("database.url", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime", 24*time.Hour)
	v.SetDefault("auth.refresh_token_lifetime", 30*24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 0)
}

// defaultDataDir places local data under the user's home directory,
// falling back to the working directory when home cannot be resolved.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".wordvault"
	}
	return filepath.Join(home, ".wordvault")
}
