package am

import "github.com/spf13/viper"

// Default values
const (
	DefaultBackend        = BackendHTTP
	DefaultBaseURL        = "http://localhost:8080/rest"
	DefaultContainer      = "/"
	DefaultTimeoutSeconds = 30
	DefaultDatabasePath   = "fedlens.db"
	DefaultSchemaPath     = "schema.yaml"
)

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Repository: RepositoryConfig{
			Backend:        DefaultBackend,
			BaseURL:        DefaultBaseURL,
			Container:      DefaultContainer,
			TimeoutSeconds: DefaultTimeoutSeconds,
			AllowPrivate:   true,
		},
		Database: DatabaseConfig{Path: DefaultDatabasePath},
		Schema:   SchemaConfig{Path: DefaultSchemaPath},
	}
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("repository.backend", DefaultBackend)
	v.SetDefault("repository.base_url", DefaultBaseURL)
	v.SetDefault("repository.container", DefaultContainer)
	v.SetDefault("repository.timeout_seconds", DefaultTimeoutSeconds)
	v.SetDefault("repository.allow_private", true) // Fedora usually runs on localhost
	v.SetDefault("repository.requests_per_second", 0.0)

	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("schema.path", DefaultSchemaPath)
	v.SetDefault("log.json", false)
}

// BindEnvVars binds the settings most often overridden per shell.
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("repository.base_url", "FEDLENS_BASE_URL")
	v.BindEnv("database.path", "FEDLENS_DATABASE_PATH")
}
