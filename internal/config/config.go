// Package config provides configuration loading and management for the catalog sync engine.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/toolhive-catalog-sync/internal/catalog"
	"github.com/stacklok/toolhive-catalog-sync/internal/telemetry"
	"github.com/stacklok/toolhive-catalog-sync/internal/validators"
)

const (
	// SourceTypeDirectory enumerates the entries of a local directory
	SourceTypeDirectory = "directory"

	// SourceTypeGit enumerates the entries of a directory in a Git repository
	SourceTypeGit = "git"

	// SourceTypeAPI enumerates the items of a JSON document fetched over HTTP
	SourceTypeAPI = "api"

	// SourceTypeFile enumerates the resources listed in a YAML manifest
	SourceTypeFile = "file"

	// SourceTypeStatic enumerates resources listed inline in the configuration
	SourceTypeStatic = "static"
)

const (
	// AuthModeAnonymous serves every endpoint without authentication
	AuthModeAnonymous = "anonymous"

	// AuthModeOAuth requires a bearer token signed by a configured provider
	AuthModeOAuth = "oauth"
)

// DefaultScopes are advertised when scopesSupported is not configured
var DefaultScopes = []string{"catalog:read", "catalog:refresh"}

const (
	// StorageTypeMemory keeps the catalog in process memory
	StorageTypeMemory = "memory"

	// StorageTypeSQLite keeps the catalog in a local SQLite file
	StorageTypeSQLite = "sqlite"

	// StorageTypeDatabase keeps the catalog in PostgreSQL
	StorageTypeDatabase = "database"
)

const (
	// DefaultServiceName is used when serviceName is not configured
	DefaultServiceName = "thv-catalog-sync"

	// DefaultDataDir holds status files and the default SQLite database
	DefaultDataDir = "./data"

	// DefaultRetryDelay is the wait between two readiness checks
	DefaultRetryDelay = time.Second

	// DefaultAPIAddress is the listen address of the operations API
	DefaultAPIAddress = ":8080"

	// EnvPrefix is the prefix of environment variables read by the command line
	EnvPrefix = "THV_CATALOG"

	// DatabasePasswordEnv is the environment variable holding the database password
	DatabasePasswordEnv = EnvPrefix + "_DATABASE_PASSWORD"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// ServiceName identifies this sync engine instance in logs and telemetry
	ServiceName string `yaml:"serviceName,omitempty"`

	// DataDir holds persisted cycle status and the default SQLite database
	DataDir string `yaml:"dataDir,omitempty"`

	// Connectors lists the catalog connectors to run
	Connectors []ConnectorConfig `yaml:"connectors"`

	Storage   *StorageConfig    `yaml:"storage,omitempty"`
	Audit     *AuditConfig      `yaml:"audit,omitempty"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`
	API       *APIServerConfig  `yaml:"api,omitempty"`
}

// ConnectorConfig defines one connector: a source of external resources and
// how they are cataloged
type ConnectorConfig struct {
	// Name is the identifier for this connector
	Name string `yaml:"name"`

	// Namespace is the first segment of every qualified name this connector owns
	Namespace string `yaml:"namespace"`

	// ResourceType is the second segment of every qualified name this connector owns
	ResourceType string `yaml:"resourceType"`

	Source     SourceConfig      `yaml:"source"`
	SyncPolicy *SyncPolicyConfig `yaml:"syncPolicy,omitempty"`

	// TemplateQualifiedName names the template new elements are created from (optional)
	TemplateQualifiedName string `yaml:"templateQualifiedName,omitempty"`

	Readiness *ReadinessConfig `yaml:"readiness,omitempty"`

	// RemovalPolicy maps a resource type to "archive" or "delete".
	// Resource types without an entry are archived.
	RemovalPolicy map[string]string `yaml:"removalPolicy,omitempty"`

	// Concurrency bounds how many element operations run at once. 0 or 1 is sequential.
	Concurrency int `yaml:"concurrency,omitempty"`

	// Filter selects which enumerated resources are cataloged (optional)
	Filter *FilterConfig `yaml:"filter,omitempty"`
}

// FilterConfig defines include/exclude rules applied to enumerated resources.
// A resource that does not pass the filter is treated as absent from the source.
type FilterConfig struct {
	Names      *NameFilterConfig      `yaml:"names,omitempty"`
	Attributes *AttributeFilterConfig `yaml:"attributes,omitempty"`
}

// NameFilterConfig holds glob patterns matched against resource names
type NameFilterConfig struct {
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// AttributeFilterConfig holds "key=value" (or bare "key") selectors matched against resource attributes
type AttributeFilterConfig struct {
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// SourceConfig selects and configures the external system a connector enumerates
type SourceConfig struct {
	// Type is one of directory, git, api, file or static. Inferred when empty.
	Type string `yaml:"type,omitempty"`

	// Type-specific configurations (only one should be set)
	Directory *DirectoryConfig `yaml:"directory,omitempty"`
	Git       *GitConfig       `yaml:"git,omitempty"`
	API       *APIConfig       `yaml:"api,omitempty"`
	File      *FileConfig      `yaml:"file,omitempty"`
	Static    *StaticConfig    `yaml:"static,omitempty"`
}

// DirectoryConfig defines local directory source settings
type DirectoryConfig struct {
	// Path is the directory whose entries are enumerated
	Path string `yaml:"path"`

	// Include holds glob patterns; when set only matching entry names are enumerated
	Include []string `yaml:"include,omitempty"`

	// Watch requests a refresh whenever the directory changes
	Watch bool `yaml:"watch,omitempty"`
}

// GitConfig defines Git source settings
type GitConfig struct {
	// Repository is the Git repository URL (HTTP/HTTPS or a local path)
	Repository string `yaml:"repository"`

	// Branch is the Git branch to use (mutually exclusive with Tag and Commit)
	Branch string `yaml:"branch,omitempty"`

	// Tag is the Git tag to use (mutually exclusive with Branch and Commit)
	Tag string `yaml:"tag,omitempty"`

	// Commit is the Git commit SHA to use (mutually exclusive with Branch and Tag)
	Commit string `yaml:"commit,omitempty"`

	// Path is the directory within the repository whose entries are enumerated
	Path string `yaml:"path,omitempty"`

	Auth *GitAuthConfig `yaml:"auth,omitempty"`
}

// GitAuthConfig defines HTTP basic credentials for private repositories
type GitAuthConfig struct {
	Username string `yaml:"username"`

	// PasswordFile is the path to a file containing the password or token
	PasswordFile string `yaml:"passwordFile"`
}

// GetPassword reads the password file, trimming surrounding whitespace
func (a *GitAuthConfig) GetPassword() (string, error) {
	if a.PasswordFile == "" {
		return "", nil
	}
	data, err := os.ReadFile(filepath.Clean(a.PasswordFile))
	if err != nil {
		return "", fmt.Errorf("failed to read git password from file %s: %w", a.PasswordFile, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// APIConfig defines an HTTP source returning a JSON document
type APIConfig struct {
	// Endpoint is the URL fetched on every enumeration
	Endpoint string `yaml:"endpoint"`

	// ItemsPath is the gjson path of the array of items. Empty means the document is the array.
	ItemsPath string `yaml:"itemsPath,omitempty"`

	// NameField is the gjson path of the item name, relative to the item. Defaults to "name".
	NameField string `yaml:"nameField,omitempty"`

	// FingerprintField is the gjson path of the item fingerprint. When empty the
	// fingerprint is a hash of the item's JSON.
	FingerprintField string `yaml:"fingerprintField,omitempty"`

	// AttributeFields maps attribute names to gjson paths, relative to the item
	AttributeFields map[string]string `yaml:"attributeFields,omitempty"`

	// Timeout is the per-request timeout (e.g., "30s")
	Timeout string `yaml:"timeout,omitempty"`

	// MaxRetries bounds how often a transient failure is retried. Defaults to 3.
	MaxRetries int `yaml:"maxRetries,omitempty"`
}

// FileConfig defines a YAML manifest source
type FileConfig struct {
	// Path is the manifest location. Can be absolute or relative to the working directory.
	Path string `yaml:"path"`
}

// StaticConfig lists resources inline
type StaticConfig struct {
	Resources []ResourceConfig `yaml:"resources"`
}

// ResourceConfig describes one external resource in a manifest or static source
type ResourceConfig struct {
	Name        string            `yaml:"name"`
	Fingerprint string            `yaml:"fingerprint,omitempty"`
	Attributes  map[string]string `yaml:"attributes,omitempty"`

	// Absent marks a resource known to the external system but not present
	Absent bool `yaml:"absent,omitempty"`
}

// SyncPolicyConfig defines synchronization settings
type SyncPolicyConfig struct {
	Interval string `yaml:"interval"`
}

// ReadinessConfig defines how a connector waits for its metadata types
type ReadinessConfig struct {
	// RequiredTypes lists the metadata type names that must exist before the first cycle
	RequiredTypes []string `yaml:"requiredTypes,omitempty"`

	// RetryDelay is the wait between checks (e.g., "1s"). Defaults to 1s.
	RetryDelay string `yaml:"retryDelay,omitempty"`

	// MaxAttempts bounds how many failed checks are retried. 0 retries forever.
	MaxAttempts int `yaml:"maxAttempts,omitempty"`
}

// StorageConfig selects the metadata store backend
type StorageConfig struct {
	// Type is one of memory, sqlite or database. Defaults to memory.
	Type string `yaml:"type,omitempty"`

	SQLite   *SQLiteConfig   `yaml:"sqlite,omitempty"`
	Database *DatabaseConfig `yaml:"database,omitempty"`
}

// SQLiteConfig defines the SQLite backend settings
type SQLiteConfig struct {
	// Path is the database file. Defaults to <dataDir>/catalog.db.
	Path string `yaml:"path,omitempty"`
}

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username
	User string `yaml:"user"`

	// PasswordFile is the path to a file containing the database password
	// This is the recommended approach for production deployments
	// The file should contain only the password with optional trailing whitespace
	PasswordFile string `yaml:"passwordFile,omitempty"`

	// Database is the database name
	Database string `yaml:"database"`

	// SSLMode is the SSL mode for the connection (disable, require, verify-ca, verify-full)
	SSLMode string `yaml:"sslMode,omitempty"`

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int32 `yaml:"maxOpenConns,omitempty"`

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int32 `yaml:"maxIdleConns,omitempty"`

	// ConnMaxLifetime is the maximum lifetime of a connection (e.g., "1h", "30m")
	ConnMaxLifetime string `yaml:"connMaxLifetime,omitempty"`
}

// AuditConfig defines where audit events go
type AuditConfig struct {
	// File is a JSON-lines file every audit event is appended to (optional)
	File string `yaml:"file,omitempty"`

	// LogEvents writes audit events to the process log. Defaults to true.
	LogEvents *bool `yaml:"logEvents,omitempty"`
}

// APIServerConfig defines the operations HTTP API
type APIServerConfig struct {
	// Address is the listen address. Defaults to ":8080".
	Address string `yaml:"address,omitempty"`

	// Auth protects the connector endpoints. Nil means anonymous access.
	Auth *AuthConfig `yaml:"auth,omitempty"`
}

// AuthConfig defines how API callers are authenticated
type AuthConfig struct {
	// Mode is anonymous or oauth. Defaults to anonymous.
	Mode string `yaml:"mode,omitempty"`

	OAuth *OAuthConfig `yaml:"oauth,omitempty"`

	// PublicPaths are served without authentication in addition to the
	// health, readiness, version, metrics and well-known endpoints
	PublicPaths []string `yaml:"publicPaths,omitempty"`
}

// OAuthConfig defines bearer token validation against one or more issuers
type OAuthConfig struct {
	// ResourceURL identifies this API in the protected resource metadata
	ResourceURL string `yaml:"resourceUrl"`

	// Realm is the protection space reported in WWW-Authenticate. Defaults to "catalog-sync".
	Realm string `yaml:"realm,omitempty"`

	// ScopesSupported is advertised in the protected resource metadata
	ScopesSupported []string `yaml:"scopesSupported,omitempty"`

	Providers []OAuthProviderConfig `yaml:"providers"`
}

// OAuthProviderConfig defines one token issuer
type OAuthProviderConfig struct {
	Name      string `yaml:"name"`
	IssuerURL string `yaml:"issuerUrl"`

	// Audience is the required "aud" claim (optional)
	Audience string `yaml:"audience,omitempty"`

	// JWKSURL is fetched and refreshed in the background. Mutually exclusive with JWKSFile.
	JWKSURL string `yaml:"jwksUrl,omitempty"`

	// JWKSFile is a local JSON Web Key Set
	JWKSFile string `yaml:"jwksFile,omitempty"`
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from THV_CATALOG_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	if d.PasswordFile != "" {
		// Use filepath.Clean to prevent path traversal attacks
		cleanPath := filepath.Clean(d.PasswordFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read password from file %s: %w", d.PasswordFile, err)
		}

		return strings.TrimSpace(string(data)), nil
	}

	if envPassword := os.Getenv(DatabasePasswordEnv); envPassword != "" {
		return envPassword, nil
	}

	return "", fmt.Errorf(
		"no database password configured: set passwordFile or %s environment variable", DatabasePasswordEnv,
	)
}

// GetConnectionString builds a PostgreSQL connection string with proper password handling.
// The password is URL-escaped to handle special characters safely.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	password, err := d.GetPassword()
	if err != nil {
		return "", err
	}

	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "require"
	}

	connString := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User,
		url.QueryEscape(password),
		d.Host,
		d.Port,
		d.Database,
		sslMode,
	)

	return connString, nil
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetServiceName returns the service name, using the default if not specified
func (c *Config) GetServiceName() string {
	if c.ServiceName == "" {
		return DefaultServiceName
	}
	return c.ServiceName
}

// GetDataDir returns the data directory, using the default if not specified
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return DefaultDataDir
	}
	return c.DataDir
}

// GetStorageType returns the configured storage backend, defaulting to memory
func (c *Config) GetStorageType() string {
	if c.Storage == nil || c.Storage.Type == "" {
		return StorageTypeMemory
	}
	return c.Storage.Type
}

// GetSQLitePath returns the SQLite database file
func (c *Config) GetSQLitePath() string {
	if c.Storage != nil && c.Storage.SQLite != nil && c.Storage.SQLite.Path != "" {
		return c.Storage.SQLite.Path
	}
	return filepath.Join(c.GetDataDir(), "catalog.db")
}

// GetAPIAddress returns the operations API listen address
func (c *Config) GetAPIAddress() string {
	if c.API == nil || c.API.Address == "" {
		return DefaultAPIAddress
	}
	return c.API.Address
}

// ShouldLogEvents reports whether audit events are written to the process log
func (a *AuditConfig) ShouldLogEvents() bool {
	if a == nil || a.LogEvents == nil {
		return true
	}
	return *a.LogEvents
}

// Connector returns the connector configuration with the given name
func (c *Config) Connector(name string) (*ConnectorConfig, bool) {
	for i := range c.Connectors {
		if c.Connectors[i].Name == name {
			return &c.Connectors[i], true
		}
	}
	return nil, false
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if len(c.Connectors) == 0 {
		return fmt.Errorf("at least one connector must be configured")
	}

	connectorNames := make(map[string]bool)
	owners := make(map[string]string)
	for i := range c.Connectors {
		conn := &c.Connectors[i]
		if conn.Name == "" {
			return fmt.Errorf("connector[%d]: name is required", i)
		}
		if _, err := validators.ValidateConnectorName(conn.Name); err != nil {
			return fmt.Errorf("connector[%d]: %w", i, err)
		}
		if !validators.IsValidConnectorName(conn.Name) {
			return fmt.Errorf("connector[%d]: name '%s' must not have surrounding whitespace", i, conn.Name)
		}

		if connectorNames[conn.Name] {
			return fmt.Errorf("connector[%d]: duplicate connector name '%s'", i, conn.Name)
		}
		connectorNames[conn.Name] = true

		if err := conn.validate(i); err != nil {
			return err
		}

		// Two connectors owning the same prefix would archive each other's elements
		prefix := catalog.QualifiedNamePrefix(conn.Namespace, conn.ResourceType)
		if other, taken := owners[prefix]; taken {
			return fmt.Errorf("connector[%d] (%s): namespace and resourceType already used by connector '%s'",
				i, conn.Name, other)
		}
		owners[prefix] = conn.Name
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	if c.API != nil {
		if err := c.API.Auth.validate(); err != nil {
			return fmt.Errorf("api.auth: %w", err)
		}
	}

	return nil
}

func (a *AuthConfig) validate() error {
	if a == nil {
		return nil
	}

	switch a.Mode {
	case AuthModeAnonymous, "":
		return nil
	case AuthModeOAuth:
	default:
		return fmt.Errorf("unsupported mode '%s'", a.Mode)
	}

	if a.OAuth == nil {
		return errors.New("oauth configuration is required for oauth mode")
	}
	if len(a.OAuth.Providers) == 0 {
		return errors.New("oauth: at least one provider must be configured")
	}

	var errs []error
	names := make(map[string]bool)
	for i, p := range a.OAuth.Providers {
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("oauth.providers[%d]: name is required", i))
		} else if names[p.Name] {
			errs = append(errs, fmt.Errorf("oauth.providers[%d]: duplicate name '%s'", i, p.Name))
		}
		names[p.Name] = true

		if p.IssuerURL == "" {
			errs = append(errs, fmt.Errorf("oauth.providers[%d]: issuerUrl is required", i))
		}
		switch {
		case p.JWKSURL == "" && p.JWKSFile == "":
			errs = append(errs, fmt.Errorf("oauth.providers[%d]: one of jwksUrl or jwksFile is required", i))
		case p.JWKSURL != "" && p.JWKSFile != "":
			errs = append(errs, fmt.Errorf("oauth.providers[%d]: jwksUrl and jwksFile are mutually exclusive", i))
		case p.JWKSURL != "":
			if u, err := url.Parse(p.JWKSURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				errs = append(errs, fmt.Errorf("oauth.providers[%d]: jwksUrl must be an http or https URL", i))
			}
		}
	}
	return errors.Join(errs...)
}

func (c *Config) validateStorage() error {
	switch c.GetStorageType() {
	case StorageTypeMemory, StorageTypeSQLite:
		return nil
	case StorageTypeDatabase:
		if c.Storage.Database == nil {
			return fmt.Errorf("storage: database configuration is required for storage type %s", StorageTypeDatabase)
		}
		db := c.Storage.Database
		if db.Host == "" || db.Database == "" || db.User == "" {
			return fmt.Errorf("storage: database host, database and user are required")
		}
		if db.ConnMaxLifetime != "" {
			if _, err := time.ParseDuration(db.ConnMaxLifetime); err != nil {
				return fmt.Errorf("storage: database.connMaxLifetime must be a valid duration: %w", err)
			}
		}
		return nil
	default:
		return fmt.Errorf("storage: unsupported type '%s'", c.Storage.Type)
	}
}

// validate validates a single connector configuration
func (conn *ConnectorConfig) validate(index int) error {
	prefix := fmt.Sprintf("connector[%d] (%s)", index, conn.Name)

	if conn.Namespace == "" {
		return fmt.Errorf("%s: namespace is required", prefix)
	}
	if conn.ResourceType == "" {
		return fmt.Errorf("%s: resourceType is required", prefix)
	}
	if err := validators.ValidateNameSegment("namespace", conn.Namespace); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	if err := validators.ValidateNameSegment("resourceType", conn.ResourceType); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	if strings.Contains(conn.Namespace, catalog.QualifiedNameSeparator) ||
		strings.Contains(conn.ResourceType, catalog.QualifiedNameSeparator) {
		return fmt.Errorf("%s: namespace and resourceType must not contain '%s'", prefix, catalog.QualifiedNameSeparator)
	}

	if err := validateSyncPolicy(conn.SyncPolicy, prefix); err != nil {
		return err
	}

	if err := validateSource(&conn.Source, prefix); err != nil {
		return err
	}

	if err := validateReadiness(conn.Readiness, prefix); err != nil {
		return err
	}

	for resourceType, policy := range conn.RemovalPolicy {
		switch catalog.RemovalPolicy(policy) {
		case catalog.RemovalPolicyArchive, catalog.RemovalPolicyDelete:
		default:
			return fmt.Errorf("%s: removalPolicy for '%s' must be archive or delete, got '%s'", prefix, resourceType, policy)
		}
	}

	if conn.Concurrency < 0 {
		return fmt.Errorf("%s: concurrency must not be negative", prefix)
	}

	if err := validateFilter(conn.Filter, prefix); err != nil {
		return err
	}

	return nil
}

// validateFilter checks name patterns and attribute selectors
func validateFilter(filter *FilterConfig, prefix string) error {
	if filter == nil {
		return nil
	}

	var errs []error
	if filter.Names != nil {
		for _, pattern := range append(slices.Clone(filter.Names.Include), filter.Names.Exclude...) {
			if _, err := validators.CompileGlob(pattern); err != nil {
				errs = append(errs, fmt.Errorf("filter.names pattern '%s': %w", pattern, err))
			}
		}
	}
	if filter.Attributes != nil {
		for _, selector := range append(slices.Clone(filter.Attributes.Include), filter.Attributes.Exclude...) {
			if key, _, _ := strings.Cut(selector, "="); strings.TrimSpace(key) == "" {
				errs = append(errs, fmt.Errorf("filter.attributes selector '%s' must name an attribute", selector))
			}
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	return nil
}

// validateSyncPolicy validates the sync policy configuration
func validateSyncPolicy(policy *SyncPolicyConfig, prefix string) error {
	if policy == nil || policy.Interval == "" {
		return fmt.Errorf("%s: syncPolicy.interval is required", prefix)
	}

	interval, err := time.ParseDuration(policy.Interval)
	if err != nil {
		return fmt.Errorf("%s: syncPolicy.interval must be a valid duration (e.g., '30m', '1h'): %w", prefix, err)
	}
	if interval <= 0 {
		return fmt.Errorf("%s: syncPolicy.interval must be positive", prefix)
	}

	return nil
}

func validateReadiness(readiness *ReadinessConfig, prefix string) error {
	if readiness == nil {
		return nil
	}
	if readiness.RetryDelay != "" {
		delay, err := time.ParseDuration(readiness.RetryDelay)
		if err != nil {
			return fmt.Errorf("%s: readiness.retryDelay must be a valid duration: %w", prefix, err)
		}
		if delay <= 0 {
			return fmt.Errorf("%s: readiness.retryDelay must be positive", prefix)
		}
	}
	if readiness.MaxAttempts < 0 {
		return fmt.Errorf("%s: readiness.maxAttempts must not be negative", prefix)
	}
	return nil
}

// validateSource ensures exactly one source is configured and that it matches the declared type
func validateSource(src *SourceConfig, prefix string) error {
	configured := src.configuredTypes()
	if len(configured) == 0 {
		return fmt.Errorf("%s: one of directory, git, api, file or static source configuration must be specified", prefix)
	}
	if len(configured) > 1 {
		return fmt.Errorf("%s: only one source configuration may be specified, got %s", prefix, strings.Join(configured, ", "))
	}
	if src.Type != "" && src.Type != configured[0] {
		return fmt.Errorf("%s: source type '%s' does not match the %s configuration", prefix, src.Type, configured[0])
	}

	var errs []error
	switch {
	case src.Directory != nil:
		if src.Directory.Path == "" {
			errs = append(errs, errors.New("source.directory.path is required"))
		}
		for _, pattern := range src.Directory.Include {
			if _, err := validators.CompileGlob(pattern); err != nil {
				errs = append(errs, fmt.Errorf("source.directory.include pattern '%s': %w", pattern, err))
			}
		}
	case src.Git != nil:
		if src.Git.Repository == "" {
			errs = append(errs, errors.New("source.git.repository is required"))
		}
		refs := 0
		for _, ref := range []string{src.Git.Branch, src.Git.Tag, src.Git.Commit} {
			if ref != "" {
				refs++
			}
		}
		if refs > 1 {
			errs = append(errs, errors.New("only one of source.git branch, tag, or commit may be specified"))
		}
	case src.API != nil:
		if src.API.Endpoint == "" {
			errs = append(errs, errors.New("source.api.endpoint is required"))
		} else if u, err := url.Parse(src.API.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("source.api.endpoint must be an http or https URL, got '%s'", src.API.Endpoint))
		}
		if src.API.Timeout != "" {
			if _, err := time.ParseDuration(src.API.Timeout); err != nil {
				errs = append(errs, fmt.Errorf("source.api.timeout must be a valid duration: %w", err))
			}
		}
		if src.API.MaxRetries < 0 {
			errs = append(errs, errors.New("source.api.maxRetries must not be negative"))
		}
	case src.File != nil:
		if src.File.Path == "" {
			errs = append(errs, errors.New("source.file.path is required"))
		}
	case src.Static != nil:
		seen := make(map[string]bool)
		for i, r := range src.Static.Resources {
			if r.Name == "" {
				errs = append(errs, fmt.Errorf("source.static.resources[%d]: name is required", i))
			}
			if seen[r.Name] {
				errs = append(errs, fmt.Errorf("source.static.resources[%d]: duplicate name '%s'", i, r.Name))
			}
			seen[r.Name] = true
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	return nil
}

func (src *SourceConfig) configuredTypes() []string {
	var types []string
	if src.Directory != nil {
		types = append(types, SourceTypeDirectory)
	}
	if src.Git != nil {
		types = append(types, SourceTypeGit)
	}
	if src.API != nil {
		types = append(types, SourceTypeAPI)
	}
	if src.File != nil {
		types = append(types, SourceTypeFile)
	}
	if src.Static != nil {
		types = append(types, SourceTypeStatic)
	}
	return types
}

// GetType returns the source type, inferring it from the configured block when not set
func (src *SourceConfig) GetType() string {
	if src.Type != "" {
		return src.Type
	}
	if types := src.configuredTypes(); len(types) == 1 {
		return types[0]
	}
	return ""
}

// GetInterval returns the parsed poll interval. Configuration is validated on
// load, so parse failures fall back to one minute.
func (conn *ConnectorConfig) GetInterval() time.Duration {
	if conn.SyncPolicy == nil {
		return time.Minute
	}
	interval, err := time.ParseDuration(conn.SyncPolicy.Interval)
	if err != nil || interval <= 0 {
		return time.Minute
	}
	return interval
}

// GetRetryDelay returns the wait between readiness checks
func (conn *ConnectorConfig) GetRetryDelay() time.Duration {
	if conn.Readiness == nil || conn.Readiness.RetryDelay == "" {
		return DefaultRetryDelay
	}
	delay, err := time.ParseDuration(conn.Readiness.RetryDelay)
	if err != nil || delay <= 0 {
		return DefaultRetryDelay
	}
	return delay
}

// GetRequiredTypes returns the metadata types the connector waits for
func (conn *ConnectorConfig) GetRequiredTypes() []string {
	if conn.Readiness == nil {
		return nil
	}
	return conn.Readiness.RequiredTypes
}

// GetMaxAttempts returns the readiness retry bound, 0 meaning unlimited
func (conn *ConnectorConfig) GetMaxAttempts() int {
	if conn.Readiness == nil {
		return 0
	}
	return conn.Readiness.MaxAttempts
}

// GetRemovalPolicies returns the removal policy per resource type
func (conn *ConnectorConfig) GetRemovalPolicies() map[string]catalog.RemovalPolicy {
	policies := make(map[string]catalog.RemovalPolicy, len(conn.RemovalPolicy))
	for resourceType, policy := range conn.RemovalPolicy {
		policies[resourceType] = catalog.RemovalPolicy(policy)
	}
	return policies
}

// QualifiedNamePrefix returns the prefix shared by every element this connector owns
func (conn *ConnectorConfig) QualifiedNamePrefix() string {
	return catalog.QualifiedNamePrefix(conn.Namespace, conn.ResourceType)
}
