// ABOUTME: CLI command that creates an age identity for sealing readings.
// ABOUTME: Prints the recipient to pass to 'ingest --seal'.
package main

import (
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/harperreed/wellness/internal/config"
	"github.com/harperreed/wellness/internal/sealing"
	"github.com/spf13/cobra"
)

var keygenOutput string

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an age identity for sealed readings",
	Long: `Generate an X25519 age identity and print its recipient.

The identity file is created with mode 0600 and is never overwritten.

Examples:
  wellness keygen
  wellness keygen -o ~/keys/wellness.txt`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipStorage: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := keygenOutput
		if path == "" {
			path = filepath.Join(config.GetConfigDir(), "identity.txt")
		}
		path = config.ExpandPath(path)

		recipient, err := sealing.GenerateIdentity(path)
		if err != nil {
			return err
		}

		color.Green("✓ Wrote identity to %s", path)
		fmt.Fprintf(cmd.OutOrStdout(), "Recipient: %s\n", recipient)
		return nil
	},
}

func init() {
	keygenCmd.Flags().StringVarP(&keygenOutput, "output", "o", "", "identity file (default: ~/.config/wellness/identity.txt)")
	rootCmd.AddCommand(keygenCmd)
}
