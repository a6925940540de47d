// Package am loads fedlens configuration with viper. Values merge from
// built-in defaults, /etc/fedlens/fedlens.toml, ~/.fedlens/fedlens.toml, the
// nearest fedlens.toml above the working directory, and FEDLENS_* variables,
// in increasing precedence.
package am

import (
	"fmt"
	"time"
)

// Config represents the fedlens configuration
type Config struct {
	Repository RepositoryConfig `mapstructure:"repository" toml:"repository" yaml:"repository" json:"repository"`
	Database   DatabaseConfig   `mapstructure:"database" toml:"database" yaml:"database" json:"database"`
	Schema     SchemaConfig     `mapstructure:"schema" toml:"schema" yaml:"schema" json:"schema"`
	Log        LogConfig        `mapstructure:"log" toml:"log" yaml:"log" json:"log"`
}

// Repository backends
const (
	BackendHTTP   = "http"
	BackendSQLite = "sqlite"
)

// RepositoryConfig selects and configures the LDP repository
type RepositoryConfig struct {
	Backend           string  `mapstructure:"backend" toml:"backend" yaml:"backend" json:"backend"`         // http or sqlite
	BaseURL           string  `mapstructure:"base_url" toml:"base_url" yaml:"base_url" json:"base_url"`     // e.g. http://localhost:8080/rest
	Container         string  `mapstructure:"container" toml:"container" yaml:"container" json:"container"` // where new resources are created, e.g. "/"
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" toml:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds"`
	AllowPrivate      bool    `mapstructure:"allow_private" toml:"allow_private" yaml:"allow_private" json:"allow_private"`                         // permit localhost and private networks
	RequestsPerSecond float64 `mapstructure:"requests_per_second" toml:"requests_per_second" yaml:"requests_per_second" json:"requests_per_second"` // 0 = unlimited
}

// DatabaseConfig configures the SQLite database of the sqlite backend
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path" yaml:"path" json:"path"`
}

// SchemaConfig points at the model schema file
type SchemaConfig struct {
	Path string `mapstructure:"path" toml:"path" yaml:"path" json:"path"`
}

// LogConfig configures logging output
type LogConfig struct {
	JSON bool `mapstructure:"json" toml:"json" yaml:"json" json:"json"`
}

// Timeout returns the repository request timeout.
func (r RepositoryConfig) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Repository: {Backend: %s, BaseURL: %s}, Database: %s, Schema: %s}",
		c.Repository.Backend, c.Repository.BaseURL, c.Database.Path, c.Schema.Path)
}

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
