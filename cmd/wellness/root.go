// ABOUTME: Root Cobra command for the wellness CLI.
// ABOUTME: Loads config, builds the logger and manages the storage lifecycle via PersistentPre/PostRunE.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/harperreed/wellness/internal/biometrics"
	"github.com/harperreed/wellness/internal/clock"
	"github.com/harperreed/wellness/internal/config"
	"github.com/harperreed/wellness/internal/ingest"
	"github.com/harperreed/wellness/internal/logging"
	"github.com/harperreed/wellness/internal/models"
	"github.com/harperreed/wellness/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// skipStorage marks commands that run without opening the database.
const skipStorage = "skip-storage"

var (
	configPath string

	cfg  *config.Config
	log  *logrus.Logger
	repo *storage.DB
)

var rootCmd = &cobra.Command{
	Use:   "wellness",
	Short: "Personal wellness backend and biometrics store",
	Long: `Wellness stores biometric readings from wearables alongside routines,
session reports and emotion logs, and serves them over an HTTP API.

WHAT IT STORES:

  Biometrics   step, calories, distance, deep_sleep, light_sleep, rem_sleep, heart_rate
  Routines     30 minute focus sessions with post-session feedback
  Reports      session summaries with a pass/fail marker
  Emotions     detected emotions with a confidence score

QUICK START:

  $ wellness user add ada@example.com --password 's3cret-pass'
  $ wellness ingest readings.json --shape batch --user ada@example.com
  $ wellness list --user ada@example.com --days 7
  $ wellness serve

PAYLOAD SHAPES:

  batch    {"dataType":"heart_rate","records":[{"date","time","value"}]}
  arrays   {"stepData":[...],"heartRateData":[...]}
  wide     {"biometricsData":[{"date","time","step_count",...}]}

MCP INTEGRATION:

  Run 'wellness mcp --user <email>' to start the Model Context Protocol
  server for AI assistants.

CONFIGURATION:

  Settings are read from ~/.config/wellness/config.toml (or config.json),
  then .env in the working directory, then the environment. Run
  'wellness config show' to see the effective values.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath != "" {
			cfg, err = config.LoadFrom(configPath, ".env")
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		log, err = logging.New(os.Stderr, cfg.GetLogLevel(), cfg.GetLogFormat())
		if err != nil {
			return err
		}

		if needsStorage(cmd) {
			repo, err = cfg.OpenStorage(cmd.Context(), clock.Real{})
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if repo != nil {
			err := repo.Close()
			repo = nil
			return err
		}
		return nil
	},
}

func needsStorage(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[skipStorage]; ok {
			return false
		}
	}
	return cmd.Name() != "help" && cmd.Name() != "version"
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

// newBiometricsService wires the ingestion service to the open repository.
func newBiometricsService() *biometrics.Service {
	return biometrics.New(repo, newNormalizer(), log)
}

func newNormalizer() ingest.Normalizer {
	return ingest.Normalizer{AllowUnknownKinds: cfg.LenientMetricKinds}
}

// resolveUser looks a user up by email.
func resolveUser(ctx context.Context, email string) (*models.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, errors.New("--user is required")
	}
	u, err := repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("no user with email %s (create one with 'wellness user add')", email)
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return u, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ~/.config/wellness/config.toml)")
}
