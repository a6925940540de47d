package am

import (
	"net/url"
	"strings"

	"github.com/teranos/fedlens/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Repository.Backend {
	case BackendHTTP:
		if c.Repository.BaseURL == "" {
			return errors.New("repository.base_url cannot be empty for the http backend")
		}
		u, err := url.Parse(c.Repository.BaseURL)
		if err != nil {
			return errors.Wrap(err, "repository.base_url is not a valid URL")
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return errors.Newf("repository.base_url must be http or https, got %q", u.Scheme)
		}
		if strings.HasSuffix(c.Repository.BaseURL, "/") {
			return errors.WithHint(
				errors.Newf("repository.base_url must not end with '/', got %q", c.Repository.BaseURL),
				"identifiers start with '/' and are appended to the base URL")
		}
	case BackendSQLite:
		if c.Database.Path == "" {
			return errors.New("database.path cannot be empty for the sqlite backend")
		}
	default:
		return errors.Newf("repository.backend must be %q or %q, got %q", BackendHTTP, BackendSQLite, c.Repository.Backend)
	}

	if !strings.HasPrefix(c.Repository.Container, "/") {
		return errors.Newf("repository.container must start with '/', got %q", c.Repository.Container)
	}

	// 0 = default, negative = invalid
	if c.Repository.TimeoutSeconds < 0 {
		return errors.Newf("repository.timeout_seconds must be >= 0, got %d", c.Repository.TimeoutSeconds)
	}

	if c.Repository.RequestsPerSecond < 0 {
		return errors.Newf("repository.requests_per_second must be >= 0, got %v", c.Repository.RequestsPerSecond)
	}

	return nil
}
