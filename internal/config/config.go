package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups: the engine and sync
// sections drive the on-device vocabulary engine, while the server,
// database and auth sections only matter to the sync server process.
type Config struct {
	Engine   EngineConfig   `mapstructure:"engine"   validate:"required"`
	Sync     SyncConfig     `mapstructure:"sync"     validate:"required"`
	Logging  LoggingConfig  `mapstructure:"logging"  validate:"required"`
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

// EngineConfig contains the on-device engine settings.
type EngineConfig struct {
	// DataDir is where the local SQLite database and backups live.
	DataDir string `mapstructure:"data_dir" validate:"required"`

	// DeckSize is how many words a practice deck holds.
	DeckSize int `mapstructure:"deck_size" validate:"required,gt=0"`

	// NewRatio is the target fraction of never-studied words in a deck.
	NewRatio float64 `mapstructure:"new_ratio" validate:"gte=0,lte=1"`

	// ContextCapacity is how many example sentences are kept per word.
	// Zero applies the built-in default.
	ContextCapacity int `mapstructure:"context_capacity" validate:"gte=0"`

	// PersistDebounce is how long a dirty record may sit in memory
	// before it is flushed to the local store.
	PersistDebounce time.Duration `mapstructure:"persist_debounce" validate:"required,gt=0"`

	// SyncDebounce is how long after the last local mutation an
	// outbound cloud sync is triggered. It should be longer than
	// PersistDebounce so network chatter never delays durability.
	SyncDebounce time.Duration `mapstructure:"sync_debounce" validate:"required,gt=0"`
}

// SyncConfig contains cloud synchronization settings.
type SyncConfig struct {
	// BaseURL is the sync server endpoint. Empty disables cloud sync.
	BaseURL string `mapstructure:"base_url" validate:"omitempty,url"`

	// Timeout bounds each HTTP call to the sync server.
	Timeout time.Duration `mapstructure:"timeout" validate:"required,gt=0"`

	// UploadBatchSize is how many records one push request carries.
	UploadBatchSize int `mapstructure:"upload_batch_size" validate:"required,gt=0"`

	// AutoInterval is how often a background sync runs. Zero disables
	// the background schedule; debounced syncs still fire.
	AutoInterval time.Duration `mapstructure:"auto_interval" validate:"gte=0"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`

	// File, when set, routes logs to a size-rotated file instead of
	// stdout.
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"  validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups"  validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

// ServerConfig contains the sync server's HTTP settings.
type ServerConfig struct {
	Port int `mapstructure:"port" validate:"required,gt=0,lt=65536"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout"  validate:"required,gt=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"required,gt=0"`
}

// DatabaseConfig contains the sync server's Postgres settings.
// Only validated when the server process starts.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// AuthConfig contains authentication settings for the sync server.
// Only validated when the server process starts.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"omitempty,min=32"`

	// TokenLifetime bounds access tokens, RefreshTokenLifetime the
	// long-lived refresh tokens clients trade in for new pairs.
	TokenLifetime        time.Duration `mapstructure:"token_lifetime" validate:"required,gt=0"`
	RefreshTokenLifetime time.Duration `mapstructure:"refresh_token_lifetime" validate:"required,gt=0"`

	// BCryptCost tunes password hashing. Zero means the library default.
	BCryptCost int `mapstructure:"bcrypt_cost" validate:"gte=0,lte=31"`
}
