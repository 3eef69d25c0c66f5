// ABOUTME: CLI commands for exporting and importing a user's wellness data.
// ABOUTME: Supports JSON, YAML, and Markdown export formats.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/harperreed/wellness/internal/models"
	"github.com/harperreed/wellness/internal/storage"
	"github.com/spf13/cobra"
)

var (
	exportUser   string
	exportOutput string
	exportKind   string
	exportSince  string
	importUser   string
)

var exportCmd = &cobra.Command{
	Use:   "export <format>",
	Short: "Export a user's data",
	Long: `Export a user's biometrics, routines, feedback, reports and emotion logs.

FORMATS:

  json       Full JSON export (suitable for backup/restore)
  yaml       YAML export grouped by metric kind (human-readable)
  markdown   Markdown tables (for documentation/sharing)

OPTIONS:

  --output, -o   Write to file instead of stdout
  --kind, -k     Filter by metric kind (markdown only)
  --since        Only include readings since this date (markdown only, YYYY-MM-DD)

EXAMPLES:

  wellness export json --user ada@example.com
  wellness export json --user ada@example.com -o backup.json
  wellness export markdown --user ada@example.com --kind heart_rate`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"json", "yaml", "markdown"},
	RunE: func(cmd *cobra.Command, args []string) error {
		format := args[0]
		switch format {
		case "json", "yaml", "markdown":
		default:
			return fmt.Errorf("unknown format: %s (use json, yaml, or markdown)", format)
		}

		user, err := resolveUser(cmd.Context(), exportUser)
		if err != nil {
			return err
		}
		userID := user.ID.String()

		var data []byte
		switch format {
		case "json":
			data, err = storage.ExportJSON(cmd.Context(), repo, userID)
		case "yaml":
			data, err = storage.ExportYAML(cmd.Context(), repo, userID)
		case "markdown":
			var kind *models.MetricKind
			if exportKind != "" {
				if !models.IsValidMetricKind(exportKind) {
					return fmt.Errorf("unknown metric kind: %s", exportKind)
				}
				k := models.MetricKind(exportKind)
				kind = &k
			}
			var since *time.Time
			if exportSince != "" {
				t, perr := time.Parse(models.DateLayout, exportSince)
				if perr != nil {
					return fmt.Errorf("invalid date format: %s (use YYYY-MM-DD)", exportSince)
				}
				since = &t
			}
			var md string
			md, err = storage.ExportMarkdown(cmd.Context(), repo, userID, kind, since)
			data = []byte(md)
		}
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		if exportOutput != "" {
			if err := os.WriteFile(exportOutput, data, 0600); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			color.Green("✓ Exported to %s", exportOutput)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import data from a JSON export",
	Long: `Import a JSON export into a user's account.

Readings are validated like an ingestion payload and appended. One bad
reading rejects the whole file, and nothing is written unless everything is.
Routines, feedback, reports and emotion logs get new ids; feedback stays
attached to its imported routine.

EXAMPLES:

  wellness import backup.json --user ada@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}

		user, err := resolveUser(cmd.Context(), importUser)
		if err != nil {
			return err
		}

		summary, err := storage.ImportJSON(cmd.Context(), repo, user.ID.String(), data, newNormalizer())
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		color.Green("✓ Imported from %s", args[0])
		fmt.Fprintf(cmd.OutOrStdout(), "  %d readings, %d routines, %d feedback, %d reports, %d emotion logs\n",
			summary.Facts, summary.Routines, summary.Feedback, summary.Reports, summary.EmotionLogs)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportUser, "user", "u", "", "email of the user")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().StringVarP(&exportKind, "kind", "k", "", "filter by metric kind (markdown only)")
	exportCmd.Flags().StringVar(&exportSince, "since", "", "only include readings since date (YYYY-MM-DD)")
	importCmd.Flags().StringVarP(&importUser, "user", "u", "", "email of the user")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
