package auth

import (
	"context"
	"fmt"

	"github.com/zlovtnik/stripe-lunar/internal/config"
)

// MigrationConnectionString builds the connection string the migrate command uses.
// The migration user's credential is embedded in the URL because golang-migrate
// opens its own connection.
func MigrationConnectionString(ctx context.Context, cfg *config.DatabaseConfig) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("database configuration is required")
	}

	user := cfg.GetMigrationUser()

	token, err := ResolveAuthToken(ctx, cfg, user)
	if err != nil {
		return "", fmt.Errorf("failed to resolve auth token for migration user: %w", err)
	}

	return cfg.BuildConnectionStringWithAuth(user, token), nil
}
