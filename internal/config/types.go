// Package config loads configuration from files, env vars, and flags, and validates it.
package config

import (
	"time"

	"modelgql/internal/naming"
)

// Config holds the application configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Schema        SchemaConfig        `mapstructure:"schema"`
	Backend       BackendConfig       `mapstructure:"backend"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Naming        naming.Config       `mapstructure:"naming"`
	Observability ObservabilityConfig `mapstructure:"observability"`

	// ShowVersion is set by --version and never read from files.
	ShowVersion bool `mapstructure:"-"`
}

// SchemaConfig locates the client schema document and controls how it is served.
// The file is reloaded when it changes. With the memory backend, records of
// models whose definition changed, or that were removed, are dropped on reload;
// unchanged models keep their records.
type SchemaConfig struct {
	File string `mapstructure:"file"`
	// FetchErrors is "surface" or "swallow".
	FetchErrors        string        `mapstructure:"fetch_errors"`
	RefreshMinInterval time.Duration `mapstructure:"refresh_min_interval"`
	RefreshMaxInterval time.Duration `mapstructure:"refresh_max_interval"`
}

// Backend kinds.
const (
	BackendMemory = "memory"
	BackendMySQL  = "mysql"
)

// BackendConfig selects the data-access collaborator.
type BackendConfig struct {
	Kind string `mapstructure:"kind"`
	// SeedFile holds fixtures for the memory backend.
	SeedFile string `mapstructure:"seed_file"`
	// AutoMigrate creates missing tables for the mysql backend.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpen     int           `mapstructure:"max_open"`
	MaxIdle     int           `mapstructure:"max_idle"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
}

// DatabaseTLSConfig holds TLS settings for the database connection.
type DatabaseTLSConfig struct {
	// Mode is one of off, skip-verify, verify-ca, verify-full. Empty leaves the driver default.
	Mode       string `mapstructure:"mode"`
	CAFile     string `mapstructure:"ca_file"`
	CertFile   string `mapstructure:"cert_file"`
	KeyFile    string `mapstructure:"key_file"`
	ServerName string `mapstructure:"server_name"`
}

// DatabaseConfig holds connection parameters for the mysql backend.
// DSN, when set, wins over the discrete fields.
type DatabaseConfig struct {
	DSN               string            `mapstructure:"dsn"`
	DSNFile           string            `mapstructure:"dsn_file"`
	Host              string            `mapstructure:"host"`
	Port              int               `mapstructure:"port"`
	User              string            `mapstructure:"user"`
	Password          string            `mapstructure:"password"`
	PasswordFile      string            `mapstructure:"password_file"`
	PasswordPrompt    bool              `mapstructure:"password_prompt"`
	Database          string            `mapstructure:"database"`
	TLS               DatabaseTLSConfig `mapstructure:"tls"`
	Pool              PoolConfig        `mapstructure:"pool"`
	ConnectionTimeout time.Duration     `mapstructure:"connection_timeout"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port                 int           `mapstructure:"port"`
	GraphiQLEnabled      bool          `mapstructure:"graphiql_enabled"`
	CORSEnabled          bool          `mapstructure:"cors_enabled"`
	CORSAllowedOrigins   []string      `mapstructure:"cors_allowed_origins"`
	CORSAllowedMethods   []string      `mapstructure:"cors_allowed_methods"`
	CORSAllowedHeaders   []string      `mapstructure:"cors_allowed_headers"`
	CORSExposeHeaders    []string      `mapstructure:"cors_expose_headers"`
	CORSAllowCredentials bool          `mapstructure:"cors_allow_credentials"`
	CORSMaxAge           int           `mapstructure:"cors_max_age"`
	ReadTimeout          time.Duration `mapstructure:"read_timeout"`
	WriteTimeout         time.Duration `mapstructure:"write_timeout"`
	IdleTimeout          time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout      time.Duration `mapstructure:"shutdown_timeout"`
	HealthCheckTimeout   time.Duration `mapstructure:"health_check_timeout"`
}

// LoggingConfig holds logging parameters.
type LoggingConfig struct {
	Level          string `mapstructure:"level"`  // debug, info, warn, error
	Format         string `mapstructure:"format"` // json, text
	ExportsEnabled bool   `mapstructure:"exports_enabled"`
}

// ObservabilityConfig holds observability parameters.
type ObservabilityConfig struct {
	ServiceName      string        `mapstructure:"service_name"`
	ServiceVersion   string        `mapstructure:"service_version"`
	Environment      string        `mapstructure:"environment"`
	MetricsEnabled   bool          `mapstructure:"metrics_enabled"`
	TracingEnabled   bool          `mapstructure:"tracing_enabled"`
	TraceSampleRatio float64       `mapstructure:"trace_sample_ratio"`
	Logging          LoggingConfig `mapstructure:"logging"`

	// OTLP applies to every signal unless a signal-specific block overrides it.
	OTLP   OTLPConfig  `mapstructure:"otlp"`
	Traces *OTLPConfig `mapstructure:"traces,omitempty"`
	Logs   *OTLPConfig `mapstructure:"logs,omitempty"`
}

// OTLPConfig holds OTLP exporter configuration.
type OTLPConfig struct {
	Endpoint          string            `mapstructure:"endpoint"`
	Protocol          string            `mapstructure:"protocol"` // grpc, http/protobuf
	Insecure          bool              `mapstructure:"insecure"`
	TLSCertFile       string            `mapstructure:"tls_cert_file"`
	TLSClientCertFile string            `mapstructure:"tls_client_cert_file"`
	TLSClientKeyFile  string            `mapstructure:"tls_client_key_file"`
	Headers           map[string]string `mapstructure:"headers"`
	Timeout           time.Duration     `mapstructure:"timeout"`
	Compression       string            `mapstructure:"compression"` // none, gzip
}

// TracesOTLP returns the effective exporter settings for traces.
func (c *ObservabilityConfig) TracesOTLP() OTLPConfig {
	return mergeOTLPConfigs(c.OTLP, c.Traces)
}

// LogsOTLP returns the effective exporter settings for logs.
func (c *ObservabilityConfig) LogsOTLP() OTLPConfig {
	return mergeOTLPConfigs(c.OTLP, c.Logs)
}

// mergeOTLPConfigs lays the non-empty fields of override over base.
// Insecure is taken from override whenever the block is present.
func mergeOTLPConfigs(base OTLPConfig, override *OTLPConfig) OTLPConfig {
	if override == nil {
		return base
	}
	result := base
	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&result.Endpoint, override.Endpoint)
	pick(&result.Protocol, override.Protocol)
	pick(&result.TLSCertFile, override.TLSCertFile)
	pick(&result.TLSClientCertFile, override.TLSClientCertFile)
	pick(&result.TLSClientKeyFile, override.TLSClientKeyFile)
	pick(&result.Compression, override.Compression)
	result.Insecure = override.Insecure
	if override.Timeout != 0 {
		result.Timeout = override.Timeout
	}
	if override.Headers != nil {
		result.Headers = make(map[string]string, len(base.Headers)+len(override.Headers))
		for k, v := range base.Headers {
			result.Headers[k] = v
		}
		for k, v := range override.Headers {
			result.Headers[k] = v
		}
	}
	return result
}
