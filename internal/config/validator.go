package config

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "publish.queue_size")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

const (
	maxHeaderRows = 16
	maxQueueSize  = 4096
	maxTimeoutMs  = 5 * 60 * 1000
)

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateTable()...)
	errors = append(errors, c.validatePublish()...)
	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateLogging()...)

	return errors
}

func (c *Config) validateTable() []ValidationError {
	var errors []ValidationError

	if c.Table.HeaderRows < 0 || c.Table.HeaderRows > maxHeaderRows {
		errors = append(errors, ValidationError{
			Field:   "table.header_rows",
			Value:   c.Table.HeaderRows,
			Message: fmt.Sprintf("must be between 0 and %d", maxHeaderRows),
		})
	}

	if strings.TrimSpace(c.Table.Container) == "" {
		errors = append(errors, ValidationError{
			Field:   "table.container",
			Value:   c.Table.Container,
			Message: "must not be empty",
		})
	}

	return errors
}

func (c *Config) validatePublish() []ValidationError {
	var errors []ValidationError

	if c.Publish.TimeoutMs < 0 || c.Publish.TimeoutMs > maxTimeoutMs {
		errors = append(errors, ValidationError{
			Field:   "publish.timeout_ms",
			Value:   c.Publish.TimeoutMs,
			Message: fmt.Sprintf("must be between 0 and %d", maxTimeoutMs),
		})
	}

	if c.Publish.QueueSize < 1 || c.Publish.QueueSize > maxQueueSize {
		errors = append(errors, ValidationError{
			Field:   "publish.queue_size",
			Value:   c.Publish.QueueSize,
			Message: fmt.Sprintf("must be between 1 and %d", maxQueueSize),
		})
	}

	// Endpoint is optional, but when set must be an absolute http(s) URL
	if c.Publish.Endpoint != "" {
		u, err := url.Parse(c.Publish.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "publish.endpoint",
				Value:   c.Publish.Endpoint,
				Message: "must be an absolute http or https URL",
			})
		}
	}

	if c.Publish.APIBase != "" && !strings.HasPrefix(c.Publish.APIBase, "/") && !strings.Contains(c.Publish.APIBase, "://") {
		errors = append(errors, ValidationError{
			Field:   "publish.api_base",
			Value:   c.Publish.APIBase,
			Message: "must be an absolute path or URL",
		})
	}

	return errors
}

func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if _, _, err := net.SplitHostPort(c.Server.Addr); err != nil {
		errors = append(errors, ValidationError{
			Field:   "server.addr",
			Value:   c.Server.Addr,
			Message: "must be host:port",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if strings.ContainsRune(c.Logging.Dir, '\x00') {
		errors = append(errors, ValidationError{
			Field:   "logging.dir",
			Value:   c.Logging.Dir,
			Message: "contains invalid null character",
		})
	}

	return errors
}
