// ABOUTME: CLI command for starting MCP server.
// ABOUTME: Runs stdio-based MCP server acting as one user.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/harperreed/wellness/internal/clock"
	"github.com/harperreed/wellness/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpUser string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

The server acts as the user named by --user and communicates via
stdin/stdout.

CLAUDE DESKTOP CONFIGURATION:

  {
    "mcpServers": {
      "wellness": {
        "command": "wellness",
        "args": ["mcp", "--user", "ada@example.com"]
      }
    }
  }

AVAILABLE TOOLS:

  ingest_batch           Record readings of one metric kind
  query_biometrics       List readings from the last N days
  list_routines          List active (or all) routines
  update_routine_status  Complete or miss a routine
  list_reports           List session reports
  log_emotion            Record a detected emotion
  emotion_stats          Per-emotion counts and confidence

AVAILABLE RESOURCES:

  wellness://biometrics/today   Readings from yesterday and today
  wellness://routines/active    Scheduled routines
  wellness://summary            Latest reading per kind plus context`,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := resolveUser(cmd.Context(), mcpUser)
		if err != nil {
			return err
		}

		server, err := mcp.NewServer(repo, newBiometricsService(), user.ID.String(), clock.Real{})
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.Serve(ctx)
	},
}

func init() {
	mcpCmd.Flags().StringVarP(&mcpUser, "user", "u", "", "email of the user the server acts as")
	rootCmd.AddCommand(mcpCmd)
}
