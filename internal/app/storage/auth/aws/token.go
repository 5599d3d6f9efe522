// Package aws generates AWS RDS IAM authentication tokens for PostgreSQL.
package aws

import (
	"context"
	"fmt"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"
	"github.com/jackc/pgx/v5"

	"github.com/zlovtnik/stripe-lunar/internal/config"
)

const (
	// RegionDetect asks for the region to be read from instance metadata
	RegionDetect = "detect"

	imdsTimeout = 2 * time.Second
)

// resolveRegion returns the configured region, querying IMDS when it is "detect"
func resolveRegion(ctx context.Context, cfg *config.DatabaseConfig) (string, error) {
	region := cfg.DynamicAuth.AWSRDSIAM.Region
	switch region {
	case "":
		return "", fmt.Errorf("AWS RDS IAM region is not configured")
	case RegionDetect:
		client := imds.New(imds.Options{
			HTTPClient: &http.Client{Timeout: imdsTimeout},
		})
		out, err := client.GetRegion(ctx, &imds.GetRegionInput{})
		if err != nil {
			return "", fmt.Errorf("failed to get region from IMDS: %w", err)
		}
		return out.Region, nil
	default:
		return region, nil
	}
}

// buildToken signs a token for user with the workload's AWS credentials
func buildToken(ctx context.Context, cfg *config.DatabaseConfig, region, user string) (string, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return "", fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	token, err := auth.BuildAuthToken(ctx, endpoint, region, user, awsCfg.Credentials)
	if err != nil {
		return "", fmt.Errorf("failed to build authentication token: %w", err)
	}
	return token, nil
}

// NewToken returns a token usable as user's password. Tokens expire after 15 minutes.
func NewToken(ctx context.Context, cfg *config.DatabaseConfig, user string) (string, error) {
	region, err := resolveRegion(ctx, cfg)
	if err != nil {
		return "", err
	}
	return buildToken(ctx, cfg, region, user)
}

// PgxAuthFunc returns a BeforeConnect hook that signs a new token for every connection.
// The region is resolved once, up front.
func PgxAuthFunc(
	ctx context.Context,
	cfg *config.DatabaseConfig,
	user string,
) (func(ctx context.Context, connConfig *pgx.ConnConfig) error, error) {
	region, err := resolveRegion(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, connConfig *pgx.ConnConfig) error {
		token, err := buildToken(ctx, cfg, region, user)
		if err != nil {
			return err
		}
		connConfig.Password = token
		return nil
	}, nil
}
