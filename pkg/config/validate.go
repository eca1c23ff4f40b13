package config

import (
	"fmt"
	"net"
	"strings"
)

// ValidationError represents a single validation error with context.
type ValidationError struct {
	Path    string // e.g., "database.driver"
	Message string // e.g., "unsupported driver"
	Hint    string // e.g., "expected sqlite3 or rqlite"
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s; %s", e.Path, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate performs comprehensive validation of the entire config.
// It aggregates all errors and returns them, allowing the caller to print all
// issues at once.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateDatabase()...)
	errs = append(errs, c.validateGateway()...)
	errs = append(errs, c.validateLogging()...)

	return errs
}

func (c *Config) validateDatabase() []error {
	var errs []error
	dc := c.Database

	switch dc.Driver {
	case "sqlite3", "rqlite":
	case "":
		errs = append(errs, ValidationError{
			Path:    "database.driver",
			Message: "must not be empty",
			Hint:    "expected sqlite3 or rqlite",
		})
	default:
		errs = append(errs, ValidationError{
			Path:    "database.driver",
			Message: fmt.Sprintf("unsupported driver %q", dc.Driver),
			Hint:    "expected sqlite3 or rqlite",
		})
	}

	if dc.DSN == "" {
		errs = append(errs, ValidationError{
			Path:    "database.dsn",
			Message: "must not be empty",
		})
	}

	if dc.Driver == "rqlite" && dc.DSN != "" && !strings.HasPrefix(dc.DSN, "http://") && !strings.HasPrefix(dc.DSN, "https://") {
		errs = append(errs, ValidationError{
			Path:    "database.dsn",
			Message: "rqlite DSN must be an http(s) URL",
			Hint:    "e.g. http://localhost:4001",
		})
	}

	if dc.BusyTimeout < 0 {
		errs = append(errs, ValidationError{
			Path:    "database.busy_timeout",
			Message: "must not be negative",
		})
	}

	return errs
}

func (c *Config) validateGateway() []error {
	var errs []error
	gc := c.Gateway

	if gc.ListenAddr == "" {
		errs = append(errs, ValidationError{
			Path:    "gateway.listen_addr",
			Message: "must not be empty",
			Hint:    "e.g. :6001 or 127.0.0.1:6001",
		})
	} else if _, _, err := net.SplitHostPort(gc.ListenAddr); err != nil {
		errs = append(errs, ValidationError{
			Path:    "gateway.listen_addr",
			Message: "invalid host:port",
			Hint:    err.Error(),
		})
	}

	if gc.RequestTimeout <= 0 {
		errs = append(errs, ValidationError{
			Path:    "gateway.request_timeout",
			Message: "must be positive",
		})
	}

	if gc.ChallengeTTL <= 0 {
		errs = append(errs, ValidationError{
			Path:    "gateway.challenge_ttl",
			Message: "must be positive",
		})
	}

	if gc.HTTPS.Enabled {
		if gc.HTTPS.Domain == "" {
			errs = append(errs, ValidationError{
				Path:    "gateway.https.domain",
				Message: "must not be empty when https is enabled",
			})
		}
		if !gc.HTTPS.AutoCert && (gc.HTTPS.CertFile == "" || gc.HTTPS.KeyFile == "") {
			errs = append(errs, ValidationError{
				Path:    "gateway.https",
				Message: "cert_file and key_file are required unless auto_cert is enabled",
			})
		}
	}

	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, ValidationError{
			Path:    "logging.level",
			Message: fmt.Sprintf("unknown level %q", c.Logging.Level),
			Hint:    "expected debug, info, warn or error",
		})
	}

	return errs
}
