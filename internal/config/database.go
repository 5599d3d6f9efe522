package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

const (
	// DefaultDatabasePort is the PostgreSQL port used when none is configured
	DefaultDatabasePort = 5432

	// DefaultSSLMode is used when sslMode is not set
	DefaultSSLMode = "require"
)

// ErrNoDatabasePassword is returned when neither passwordFile nor the
// environment provide a password
var ErrNoDatabasePassword = errors.New("no database password configured")

// DatabaseConfig defines database connection settings
type DatabaseConfig struct {
	// Host is the database server hostname or IP address
	Host string `yaml:"host"`

	// Port is the database server port
	Port int `yaml:"port"`

	// User is the database username used by the application
	User string `yaml:"user"`

	// MigrationUser is the user that runs schema migrations.
	// Defaults to User when not specified.
	MigrationUser string `yaml:"migrationUser,omitempty"`

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

	// DynamicAuth replaces the static password with short-lived tokens
	DynamicAuth *DynamicAuthConfig `yaml:"dynamicAuth,omitempty"`
}

// DynamicAuthConfig selects a token-based authentication method
type DynamicAuthConfig struct {
	AWSRDSIAM *DynamicAuthAWSRDSIAM `yaml:"awsRdsIam,omitempty"`
}

// DynamicAuthAWSRDSIAM configures AWS RDS IAM authentication
type DynamicAuthAWSRDSIAM struct {
	// Region is the AWS region of the database, or "detect" to read it from instance metadata
	Region string `yaml:"region"`
}

func (d *DatabaseConfig) applyDefaults() {
	if d.Port == 0 {
		d.Port = DefaultDatabasePort
	}
	if d.SSLMode == "" {
		d.SSLMode = DefaultSSLMode
	}
}

func (d *DatabaseConfig) validate() error {
	var errs []error
	if d.Host == "" {
		errs = append(errs, fmt.Errorf("host is required"))
	}
	if d.User == "" {
		errs = append(errs, fmt.Errorf("user is required"))
	}
	if d.Database == "" {
		errs = append(errs, fmt.Errorf("database is required"))
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", d.Port))
	}
	switch d.SSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		errs = append(errs, fmt.Errorf("unsupported sslMode %q", d.SSLMode))
	}
	if d.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(d.ConnMaxLifetime); err != nil {
			errs = append(errs, fmt.Errorf("connMaxLifetime must be a valid duration: %w", err))
		}
	}
	if d.DynamicAuth != nil {
		if d.DynamicAuth.AWSRDSIAM == nil {
			errs = append(errs, fmt.Errorf("dynamicAuth requires a method (e.g., awsRdsIam)"))
		} else if d.DynamicAuth.AWSRDSIAM.Region == "" {
			errs = append(errs, fmt.Errorf("dynamicAuth.awsRdsIam.region is required"))
		}
	}
	return errors.Join(errs...)
}

// GetPassword returns the database password using the following priority:
// 1. Read from PasswordFile if specified
// 2. Read from STRIPE_LUNAR_DATABASE_PASSWORD environment variable
//
// The password from file will have leading/trailing whitespace trimmed.
func (d *DatabaseConfig) GetPassword() (string, error) {
	password, err := readSecret(d.PasswordFile, EnvDatabasePassword, "")
	if err != nil {
		return "", err
	}
	if password == "" {
		return "", fmt.Errorf("%w: set passwordFile or %s environment variable",
			ErrNoDatabasePassword, EnvDatabasePassword)
	}
	return password, nil
}

// GetMigrationUser returns the user that runs migrations
func (d *DatabaseConfig) GetMigrationUser() string {
	if d.MigrationUser == "" {
		return d.User
	}
	return d.MigrationUser
}

// GetConnMaxLifetime returns the pool connection lifetime, zero when unset
func (d *DatabaseConfig) GetConnMaxLifetime() time.Duration {
	if d.ConnMaxLifetime == "" {
		return 0
	}
	return mustDuration(d.ConnMaxLifetime)
}

// GetConnectionString builds the application user's connection string.
// With dynamic auth, or when no password is configured, the string carries no
// password: the former is filled in before each connect, the latter falls back
// to libpq's pgpass lookup.
func (d *DatabaseConfig) GetConnectionString() (string, error) {
	if d.DynamicAuth != nil {
		return d.BuildConnectionStringWithAuth(d.User, ""), nil
	}

	password, err := d.GetPassword()
	if err != nil && !errors.Is(err, ErrNoDatabasePassword) {
		return "", err
	}
	return d.BuildConnectionStringWithAuth(d.User, password), nil
}

// BuildConnectionStringWithAuth builds a PostgreSQL URL for user. The password
// is URL-escaped and omitted when empty.
func (d *DatabaseConfig) BuildConnectionStringWithAuth(user, password string) string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = DefaultSSLMode
	}

	userInfo := url.User(user)
	if password != "" {
		userInfo = url.UserPassword(user, password)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Database,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}
