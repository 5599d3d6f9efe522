package app

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zlovtnik/stripe-lunar/internal/app/storage/auth"
	"github.com/zlovtnik/stripe-lunar/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tool",
	Long:  `Database migration tool for managing schema versions. Use with 'up' or 'down' subcommands.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Usage()
	},
}

func init() {
	migrateCmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to all questions")
	migrateCmd.PersistentFlags().UintP("num-steps", "n", 0, "Number of steps to migrate (0 = all)")
	migrateCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format, required)")

	if err := migrateCmd.MarkPersistentFlagRequired("config"); err != nil {
		panic(err)
	}

	// Add subcommands
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

// migrationSetup holds what both migrate subcommands need
type migrationSetup struct {
	config     *config.Config
	connString string
	steps      int
	yes        bool
}

func setupMigration(cmd *cobra.Command) (*migrationSetup, error) {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	yes, err := cmd.Flags().GetBool("yes")
	if err != nil {
		return nil, fmt.Errorf("failed to get yes flag: %w", err)
	}
	numSteps, err := cmd.Flags().GetUint("num-steps")
	if err != nil {
		return nil, fmt.Errorf("failed to get num-steps flag: %w", err)
	}
	// Check for overflow before conversion
	if numSteps > math.MaxInt32 {
		return nil, fmt.Errorf("number of steps exceeds maximum allowed value")
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database == nil {
		return nil, fmt.Errorf("database configuration is required")
	}

	// Uses the migration user and, when configured, an RDS IAM token
	connString, err := auth.MigrationConnectionString(commandContext(cmd), cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to get migration connection string: %w", err)
	}

	return &migrationSetup{
		config:     cfg,
		connString: connString,
		steps:      int(numSteps), // #nosec G115 -- overflow checked above
		yes:        yes,
	}, nil
}

// describeTarget renders user@host:port/database for prompts and logs
func (m *migrationSetup) describeTarget() string {
	db := m.config.Database
	return fmt.Sprintf("%s@%s:%d/%s", db.GetMigrationUser(), db.Host, db.Port, db.Database)
}

// confirm asks prompt on out and reads the answer from in. Only "yes" and "y" confirm.
func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	if _, err := fmt.Fprintf(out, "%s (yes/no): ", prompt); err != nil {
		return false, err
	}
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("failed to read user input: %w", err)
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "yes" || response == "y", nil
}
