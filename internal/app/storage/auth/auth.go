// Package auth resolves database credentials, including short-lived tokens
// for dynamic authentication.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/zlovtnik/stripe-lunar/internal/app/storage/auth/aws"
	"github.com/zlovtnik/stripe-lunar/internal/config"
)

var errNoMethod = errors.New("dynamic auth is configured but no supported auth method (e.g., awsRdsIam) is specified")

// ResolveAuthToken returns the password user should connect with.
//
// With dynamic auth a fresh token is generated. Otherwise the static password
// is returned, or an empty string when none is configured so that libpq's
// pgpass lookup applies. Short-lived connections such as migrations use this
// where a BeforeConnect hook is not available.
func ResolveAuthToken(ctx context.Context, cfg *config.DatabaseConfig, user string) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("database configuration is required")
	}

	if cfg.DynamicAuth == nil {
		password, err := cfg.GetPassword()
		if errors.Is(err, config.ErrNoDatabasePassword) {
			return "", nil
		}
		return password, err
	}

	if cfg.DynamicAuth.AWSRDSIAM != nil {
		return aws.NewToken(ctx, cfg, user)
	}

	return "", errNoMethod
}

// NewDynamicAuth returns a pgx BeforeConnect hook that sets a fresh token as
// the password of every new pool connection.
func NewDynamicAuth(
	ctx context.Context,
	cfg *config.DatabaseConfig,
	user string,
) (func(ctx context.Context, connConfig *pgx.ConnConfig) error, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	if cfg.DynamicAuth == nil {
		return nil, fmt.Errorf("dynamic authentication is not configured")
	}

	if cfg.DynamicAuth.AWSRDSIAM != nil {
		return aws.PgxAuthFunc(ctx, cfg, user)
	}

	return nil, errNoMethod
}
