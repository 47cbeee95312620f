package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error with context.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
	Hint    string
}

// ValidationResult contains the results of configuration validation.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns a combined error message if there are validation errors.
func (r *ValidationResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

func (r *ValidationResult) addError(field, message, hint string) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: message, Hint: hint})
}

func (r *ValidationResult) addWarning(field, message, hint string) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Message: message, Hint: hint})
}

// Validate checks the configuration. Errors are fatal, warnings are not.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}
	c.Schema.validate(result)
	c.Backend.validate(result)
	if c.Backend.Kind == BackendMySQL {
		c.Database.validate(result)
	}
	c.Server.validate(result)
	c.Observability.validate(result)
	validateNaming(result, c)
	return result
}

func (s *SchemaConfig) validate(result *ValidationResult) {
	if strings.TrimSpace(s.File) == "" {
		result.addError("schema.file", "a client schema file is required", "")
	}
	switch s.FetchErrors {
	case "surface", "swallow":
	default:
		result.addError("schema.fetch_errors", fmt.Sprintf("invalid fetch error policy %q", s.FetchErrors), "valid values are: surface, swallow")
	}
	if s.RefreshMinInterval > 0 && s.RefreshMaxInterval < s.RefreshMinInterval {
		result.addError("schema.refresh_max_interval", "refresh_max_interval must be >= refresh_min_interval", "")
	}
	if s.RefreshMinInterval <= 0 {
		result.addWarning("schema.refresh_min_interval", "schema file polling is disabled", "set a positive interval to pick up schema edits without a restart")
	}
}

func (b *BackendConfig) validate(result *ValidationResult) {
	switch b.Kind {
	case BackendMemory:
		if b.AutoMigrate {
			result.addWarning("backend.auto_migrate", "auto_migrate has no effect on the memory backend", "")
		}
	case BackendMySQL:
		if b.SeedFile != "" {
			result.addWarning("backend.seed_file", "seed_file is only loaded by the memory backend", "")
		}
	default:
		result.addError("backend.kind", fmt.Sprintf("unknown backend %q", b.Kind), "valid values are: memory, mysql")
	}
}

func (d *DatabaseConfig) validate(result *ValidationResult) {
	if d.DSN != "" {
		if _, err := d.DSNConfig(); err != nil {
			result.addError("database.dsn", err.Error(), "use user:pass@tcp(host:port)/db")
		}
	} else {
		if d.Port < 1 || d.Port > 65535 {
			result.addError("database.port", fmt.Sprintf("port %d is out of valid range (1-65535)", d.Port), "")
		}
		if strings.TrimSpace(d.Database) == "" {
			result.addError("database.database", "a database name is required", "")
		}
	}

	switch d.TLS.Mode {
	case "", "off", "skip-verify":
	case "verify-ca", "verify-full":
		if d.TLS.CAFile == "" {
			result.addWarning("database.tls.ca_file", "no CA file set; the system pool will be used", "")
		}
	default:
		result.addError("database.tls.mode", fmt.Sprintf("invalid TLS mode %q", d.TLS.Mode), "valid values are: off, skip-verify, verify-ca, verify-full")
	}
	if (d.TLS.CertFile == "") != (d.TLS.KeyFile == "") {
		result.addError("database.tls.cert_file", "cert_file and key_file must be set together", "")
	}

	if d.Pool.MaxOpen < 0 {
		result.addError("database.pool.max_open", "max_open cannot be negative", "")
	}
	if d.Pool.MaxIdle < 0 {
		result.addError("database.pool.max_idle", "max_idle cannot be negative", "")
	}
	if d.Pool.MaxOpen > 0 && d.Pool.MaxIdle > d.Pool.MaxOpen {
		result.addWarning("database.pool.max_idle", "max_idle exceeds max_open", "the driver caps idle connections at max_open")
	}
}

func (s *ServerConfig) validate(result *ValidationResult) {
	if s.Port < 1 || s.Port > 65535 {
		result.addError("server.port", fmt.Sprintf("port %d is out of valid range (1-65535)", s.Port), "")
	}
	if s.CORSEnabled && len(s.CORSAllowedOrigins) == 0 {
		result.addWarning("server.cors_allowed_origins", "CORS is enabled but no origins are allowed", "")
	}
	if s.CORSAllowCredentials {
		for _, origin := range s.CORSAllowedOrigins {
			if origin == "*" {
				result.addError("server.cors_allow_credentials", "credentials cannot be combined with a wildcard origin", "list explicit origins")
				break
			}
		}
	}
	if s.CORSMaxAge < 0 {
		result.addError("server.cors_max_age", "cors_max_age cannot be negative", "")
	}
	if s.ShutdownTimeout <= 0 {
		result.addError("server.shutdown_timeout", "shutdown_timeout must be positive", "")
	}
}

func (o *ObservabilityConfig) validate(result *ValidationResult) {
	switch o.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		result.addError("observability.logging.level", fmt.Sprintf("invalid log level %q", o.Logging.Level), "valid values are: debug, info, warn, error")
	}
	switch o.Logging.Format {
	case "json", "text":
	default:
		result.addError("observability.logging.format", fmt.Sprintf("invalid log format %q", o.Logging.Format), "valid values are: json, text")
	}
	if o.TraceSampleRatio < 0 || o.TraceSampleRatio > 1 {
		result.addError("observability.trace_sample_ratio", "trace_sample_ratio must be between 0 and 1", "")
	}

	o.OTLP.validate("observability.otlp", result)
	if o.Traces != nil {
		o.Traces.validate("observability.traces", result)
	}
	if o.Logs != nil {
		o.Logs.validate("observability.logs", result)
	}
}

func (o *OTLPConfig) validate(prefix string, result *ValidationResult) {
	switch o.Protocol {
	case "", "grpc":
	case "http/protobuf":
		if !validOTLPEndpoint(o.Endpoint) {
			result.addError(prefix+".endpoint", fmt.Sprintf("invalid OTLP endpoint %q for http/protobuf", o.Endpoint), "use host:port or a full URL")
		}
	default:
		result.addError(prefix+".protocol", fmt.Sprintf("invalid OTLP protocol %q", o.Protocol), "valid values are: grpc, http/protobuf")
	}
	switch o.Compression {
	case "", "none", "gzip":
	default:
		result.addError(prefix+".compression", fmt.Sprintf("invalid OTLP compression %q", o.Compression), "valid values are: none, gzip")
	}
}

func validOTLPEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	if strings.Contains(endpoint, "://") {
		parsed, err := url.Parse(endpoint)
		return err == nil && parsed.Host != ""
	}
	_, _, err := net.SplitHostPort(endpoint)
	return err == nil
}

func validateNaming(result *ValidationResult, c *Config) {
	for singular, plural := range c.Naming.PluralOverrides {
		if strings.TrimSpace(singular) == "" || strings.TrimSpace(plural) == "" {
			result.addError("naming.plural_overrides", "plural overrides need non-empty keys and values", "")
			continue
		}
		if singular == plural {
			result.addWarning("naming.plural_overrides", fmt.Sprintf("override for %q does not change the name", singular), "")
		}
	}
}
