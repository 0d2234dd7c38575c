package config

import "time"

// Storage selects and locates the channel log backend.
type Storage struct {
	// Backend is one of memory, file, sqlite or badger.
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Path is a directory for file and badger, a database file for sqlite.
	// Empty keeps badger in memory.
	Path string `mapstructure:"path" yaml:"path"`
}

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	MaxMessageBytes    int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	RateLimitPerMinute int   `mapstructure:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`
	RequireAuth bool          `mapstructure:"require_auth" yaml:"require_auth"`

	DatabasePath string  `mapstructure:"database_path" yaml:"database_path"`
	Storage      Storage `mapstructure:"storage" yaml:"storage"`

	DefaultChannels   []string `mapstructure:"default_channels" yaml:"default_channels"`
	HistoryLimit      int      `mapstructure:"history_limit" yaml:"history_limit"`
	EnforceMembership bool     `mapstructure:"enforce_membership" yaml:"enforce_membership"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:               ":8080",
		ReadHeaderTimeout:  5 * time.Second,
		ShutdownTimeout:    5 * time.Second,
		LogLevel:           "info",
		MaxMessageBytes:    1 << 20,
		RateLimitPerMinute: 120,
		JWTSecret:          "change-me-in-production",
		JWTIssuer:          "wirechat",
		JWTAudience:        "wirechat-clients",
		JWTTTL:             24 * time.Hour,
		RequireAuth:        false,
		DatabasePath:       "wirechat.db",
		Storage: Storage{
			Backend: "file",
			Path:    "data",
		},
		DefaultChannels:   []string{"general", "random", "support"},
		HistoryLimit:      50,
		EnforceMembership: true,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
// Booleans are not merged: their zero value is a valid setting.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.MaxMessageBytes != 0 {
		c.MaxMessageBytes = other.MaxMessageBytes
	}
	if other.RateLimitPerMinute != 0 {
		c.RateLimitPerMinute = other.RateLimitPerMinute
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.JWTIssuer != "" {
		c.JWTIssuer = other.JWTIssuer
	}
	if other.JWTAudience != "" {
		c.JWTAudience = other.JWTAudience
	}
	if other.JWTTTL != 0 {
		c.JWTTTL = other.JWTTTL
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.Storage.Backend != "" {
		c.Storage.Backend = other.Storage.Backend
	}
	if other.Storage.Path != "" {
		c.Storage.Path = other.Storage.Path
	}
	if len(other.DefaultChannels) > 0 {
		c.DefaultChannels = other.DefaultChannels
	}
	if other.HistoryLimit != 0 {
		c.HistoryLimit = other.HistoryLimit
	}
}
