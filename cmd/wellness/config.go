// ABOUTME: CLI commands for inspecting and creating the config file.
// ABOUTME: Secrets are masked when printing the effective configuration.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/harperreed/wellness/internal/config"
	"github.com/spf13/cobra"
)

var (
	configInitFormat string
	configInitForce  bool
)

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Show or create configuration",
	Annotations: map[string]string{skipStorage: "true"},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		redacted := cfg.Redacted()
		data, err := json.MarshalIndent(&redacted, "", "  ")
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, string(data))
		fmt.Fprintf(out, "\nbackend=%s addr=%s data_dir=%s\n", cfg.GetBackend(), cfg.GetAddr(), cfg.GetDataDir())
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a starter config file to ~/.config/wellness/.

Use --format toml (default) or json. An existing file is kept unless
--force is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var name string
		switch configInitFormat {
		case "toml":
			name = "config.toml"
		case "json":
			name = "config.json"
		default:
			return fmt.Errorf("unknown format: %s (use toml or json)", configInitFormat)
		}

		path := filepath.Join(config.GetConfigDir(), name)
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		starter := &config.Config{
			Backend:   config.BackendSQLite,
			DataDir:   "~/.local/share/wellness",
			Port:      "3000",
			TokenTTL:  "24h",
			Timezone:  "UTC",
			LogLevel:  "info",
			LogFormat: "text",
		}
		if err := starter.Save(path); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		color.Green("✓ Wrote %s", path)
		fmt.Fprintln(cmd.OutOrStdout(), "  Set JWT_SECRET in the environment or .env before running 'wellness serve'.")
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitFormat, "format", "toml", "file format: toml or json")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}
