package remote

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config is fixed when the client is constructed.
type Config struct {
	// AdminURL is the tenant admin portal, e.g. https://acme-admin.3scale.net.
	AdminURL    string
	AccessToken string

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	Timeout time.Duration

	// RetryMax bounds retries of idempotent reads. Writes are never retried.
	RetryMax int

	// PerPage is the page size of list endpoints (the Admin API caps it at 500).
	PerPage int
}

// Defaults applied by the CLI and by NewClient.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultRetryMax = 3
	maxPerPage      = 500
)

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	}
	if c.PerPage <= 0 || c.PerPage > maxPerPage {
		c.PerPage = maxPerPage
	}
	c.AdminURL = strings.TrimRight(c.AdminURL, "/")
	return c
}

func (c Config) validate() error {
	if c.AdminURL == "" {
		return errors.New("admin URL is required")
	}
	u, err := url.Parse(c.AdminURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("admin URL must be an absolute http(s) URL")
	}
	if c.AccessToken == "" {
		return errors.New("access token is required")
	}
	return nil
}
