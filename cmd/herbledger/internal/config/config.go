package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"

	"github.com/terraconstructs/herbledger/cmd/herbledger/internal/custody"
)

// EnvPrefix is prepended to every environment variable, e.g. HERB_DATABASE_URL.
const EnvPrefix = "HERB"

// Content store backends.
const (
	ContentStoreDatabase = "database"
	ContentStoreMemory   = "memory"
)

// Config holds the application configuration
type Config struct {
	// Database connection string (DSN). postgres:// selects PostgreSQL,
	// anything else is opened as a SQLite path.
	DatabaseURL string

	// Server bind address (host:port)
	ServerAddr string

	// Public base URL, used by the CLI client
	ServerURL string

	// Maximum database connection pool size
	MaxDBConnections int

	// Enable debug logging
	Debug bool

	// AdminPrincipal is the sole principal allowed to grant and revoke roles.
	AdminPrincipal string

	// JWTSecret verifies HS256 bearer tokens. Empty enables the trusted
	// X-Ledger-Principal header for local development.
	JWTSecret string

	// ContentStore selects the content backend: "database" persists blocks
	// in the ledger database, "memory" keeps them for the process lifetime.
	ContentStore string

	// ContentCIDVersion selects CIDv0 or CIDv1 for the local content store.
	ContentCIDVersion int

	// MetadataSchemaCache bounds the compiled metadata schema cache.
	MetadataSchemaCache int

	// TrailCacheSize bounds the decoded document cache used by the trail.
	TrailCacheSize int

	Observability ObservabilityConfig
}

// ObservabilityConfig configures OpenTelemetry export.
type ObservabilityConfig struct {
	OTLPEndpoint   string
	OTLPProtocol   string
	OTLPInsecure   bool
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// DevMode reports whether bearer token verification is disabled.
func (c *Config) DevMode() bool {
	return c.JWTSecret == ""
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "herbledger.db")
	v.SetDefault("server_addr", "localhost:8080")
	v.SetDefault("server_url", "http://localhost:8080")
	v.SetDefault("max_db_connections", 25)
	v.SetDefault("debug", false)
	v.SetDefault("admin_principal", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("content_store", ContentStoreDatabase)
	v.SetDefault("content_cid_version", 1)
	v.SetDefault("metadata_schema_cache", 16)
	v.SetDefault("trail_cache_size", 512)
	v.SetDefault("observability.otlp_endpoint", "")
	v.SetDefault("observability.otlp_protocol", "http/protobuf")
	v.SetDefault("observability.otlp_insecure", false)
	v.SetDefault("observability.service_name", "herbledger")
	v.SetDefault("observability.service_version", "dev")
	v.SetDefault("observability.environment", "development")
}

// Load reads configuration from the global viper instance: config file
// values (when one was read), overridden by HERB_ prefixed environment
// variables, over built-in defaults.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads configuration from v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		DatabaseURL:         v.GetString("database_url"),
		ServerAddr:          v.GetString("server_addr"),
		ServerURL:           v.GetString("server_url"),
		MaxDBConnections:    v.GetInt("max_db_connections"),
		Debug:               v.GetBool("debug"),
		AdminPrincipal:      canonicalPrincipal(v.GetString("admin_principal")),
		JWTSecret:           v.GetString("jwt_secret"),
		ContentStore:        strings.ToLower(strings.TrimSpace(v.GetString("content_store"))),
		ContentCIDVersion:   v.GetInt("content_cid_version"),
		MetadataSchemaCache: v.GetInt("metadata_schema_cache"),
		TrailCacheSize:      v.GetInt("trail_cache_size"),
		Observability: ObservabilityConfig{
			OTLPEndpoint:   v.GetString("observability.otlp_endpoint"),
			OTLPProtocol:   v.GetString("observability.otlp_protocol"),
			OTLPInsecure:   v.GetBool("observability.otlp_insecure"),
			ServiceName:    v.GetString("observability.service_name"),
			ServiceVersion: v.GetString("observability.service_version"),
			Environment:    v.GetString("observability.environment"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.DatabaseURL == "" {
		result = multierror.Append(result, errors.New("database_url is required"))
	}
	if c.ServerAddr == "" {
		result = multierror.Append(result, errors.New("server_addr is required"))
	}
	if strings.TrimSpace(c.AdminPrincipal) == "" {
		result = multierror.Append(result, errors.New("admin_principal is required"))
	} else if admin, err := custody.NormalizePrincipal(c.AdminPrincipal); err != nil {
		result = multierror.Append(result, fmt.Errorf("admin_principal: %w", err))
	} else if admin != c.AdminPrincipal {
		result = multierror.Append(result, fmt.Errorf("admin_principal %q is not canonical, use %q", c.AdminPrincipal, admin))
	}
	if c.MaxDBConnections <= 0 {
		result = multierror.Append(result, fmt.Errorf("max_db_connections must be positive, got %d", c.MaxDBConnections))
	}
	if c.ContentStore != ContentStoreDatabase && c.ContentStore != ContentStoreMemory {
		result = multierror.Append(result, fmt.Errorf("content_store must be %q or %q, got %q", ContentStoreDatabase, ContentStoreMemory, c.ContentStore))
	}
	if c.ContentCIDVersion != 0 && c.ContentCIDVersion != 1 {
		result = multierror.Append(result, fmt.Errorf("content_cid_version must be 0 or 1, got %d", c.ContentCIDVersion))
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 16 {
		result = multierror.Append(result, errors.New("jwt_secret must be at least 16 bytes"))
	}
	if c.MetadataSchemaCache <= 0 || c.TrailCacheSize <= 0 {
		result = multierror.Append(result, errors.New("cache sizes must be positive"))
	}
	switch c.Observability.OTLPProtocol {
	case "", "http/protobuf":
	default:
		result = multierror.Append(result, fmt.Errorf("observability.otlp_protocol %q is not supported, use http/protobuf", c.Observability.OTLPProtocol))
	}

	return result.ErrorOrNil()
}

// canonicalPrincipal normalises p the way authenticated callers are
// normalised. Values the normaliser rejects are left for Validate to report.
func canonicalPrincipal(p string) string {
	canonical, err := custody.NormalizePrincipal(p)
	if err != nil {
		return strings.TrimSpace(p)
	}
	return canonical
}
