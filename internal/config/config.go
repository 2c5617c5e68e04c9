// Package config provides centralized configuration management for the importer.
// Settings come from struct-tag defaults, an optional YAML file and environment
// variables, in increasing order of precedence, and are validated on startup to
// fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Import   ImportConfig   `yaml:"import"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `yaml:"host" env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `yaml:"port" env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// APIKey, when set, must be sent as X-API-Key on import requests
	APIKey string `yaml:"api_key" env:"SERVER_API_KEY"`
}

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig selects and configures the task store.
type DatabaseConfig struct {
	// Driver is memory, postgres or sqlite (default: memory)
	Driver string `yaml:"driver" env:"DB_DRIVER" default:"memory"`

	// URL is the PostgreSQL connection string, required for the postgres driver.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `yaml:"url" env:"DATABASE_URL" envAlt:"DB_URL"`

	// SQLitePath is the database file for the sqlite driver (default: taskimport.db)
	SQLitePath string `yaml:"sqlite_path" env:"DB_SQLITE_PATH" default:"taskimport.db"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `yaml:"max_conns" env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `yaml:"min_conns" env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ImportConfig holds import pipeline settings.
type ImportConfig struct {
	// PreambleLines are discarded before the header row (default: 6)
	PreambleLines int `yaml:"preamble_lines" env:"IMPORT_PREAMBLE_LINES" default:"6"`

	// PomodoroMinutes is the length of one exported pomodoro (default: 25)
	PomodoroMinutes int `yaml:"pomodoro_minutes" env:"IMPORT_POMODORO_MINUTES" default:"25"`

	// HonorFolders keeps the Folder Name column (default: true)
	HonorFolders bool `yaml:"honor_folders" env:"IMPORT_HONOR_FOLDERS" default:"true"`

	// CompletionTime is "now" or "parsed" (default: now)
	CompletionTime string `yaml:"completion_time" env:"IMPORT_COMPLETION_TIME" default:"now"`

	// ProjectType is applied to new projects: parallel or sequential (default: parallel)
	ProjectType string `yaml:"project_type" env:"IMPORT_PROJECT_TYPE" default:"parallel"`

	// ProjectStatus is applied to new projects (default: active)
	ProjectStatus string `yaml:"project_status" env:"IMPORT_PROJECT_STATUS" default:"active"`

	// Location is the IANA zone for dates without one (default: Local)
	Location string `yaml:"location" env:"IMPORT_LOCATION" default:"Local"`

	// MaxFileSize is the maximum allowed export size in bytes (default: 100MB)
	MaxFileSize int64 `yaml:"max_file_size" env:"IMPORT_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the number of runs allowed at once (default: 1)
	MaxConcurrent int `yaml:"max_concurrent" env:"IMPORT_MAX_CONCURRENT" default:"1"`

	// MaxWaitTime is how long to wait for a run slot (default: 30s)
	MaxWaitTime time.Duration `yaml:"max_wait_time" env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration of a single run (default: 10m)
	Timeout time.Duration `yaml:"timeout" env:"IMPORT_TIMEOUT" default:"10m"`

	// HistorySize is the number of finished runs kept for summaries (default: 50)
	HistorySize int `yaml:"history_size" env:"IMPORT_HISTORY_SIZE" default:"50"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `yaml:"level" env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `yaml:"format" env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
