// ABOUTME: CLI command for ingesting a biometric payload file.
// ABOUTME: Optionally seals values with age before they reach the store.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/harperreed/wellness/internal/ingest"
	"github.com/harperreed/wellness/internal/sealing"
	"github.com/spf13/cobra"
)

var (
	ingestShape string
	ingestUser  string
	ingestSeal  []string
)

var ingestCmd = &cobra.Command{
	Use:     "ingest <file>",
	Aliases: []string{"i"},
	Short:   "Ingest a biometric payload",
	Long: `Ingest a JSON biometric payload for a user. Use "-" to read stdin.

The whole payload is validated before anything is written; a single bad
record rejects the file.

SEALING:

  --seal encrypts each value to the given age recipient(s) before storage,
  so the server only ever holds ciphertext. Read them back with
  'wellness list --identity <key file>'. Sealing works for batch and
  arrays payloads.

Examples:
  wellness ingest hr.json --shape batch --user ada@example.com
  wellness ingest export.json --shape arrays --user ada@example.com
  cat rows.json | wellness ingest - --shape wide --user ada@example.com
  wellness ingest hr.json --user ada@example.com --seal age1...`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}

		req, err := ingest.Parse(ingest.Shape(ingestShape), data)
		if err != nil {
			return fmt.Errorf("invalid payload: %w", err)
		}

		if len(ingestSeal) > 0 {
			sealer, err := sealing.NewSealer(ingestSeal...)
			if err != nil {
				return err
			}
			if err := sealer.SealRequest(req); err != nil {
				return err
			}
		}

		user, err := resolveUser(cmd.Context(), ingestUser)
		if err != nil {
			return err
		}

		n, err := newBiometricsService().Ingest(cmd.Context(), user.ID.String(), req)
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}

		color.Green("✓ Stored %d reading(s)", n)
		if len(ingestSeal) > 0 {
			fmt.Fprintln(cmd.OutOrStdout(), color.New(color.Faint).Sprint("  values sealed with age"))
		}
		return nil
	},
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func init() {
	ingestCmd.Flags().StringVar(&ingestShape, "shape", string(ingest.ShapeBatch), "payload shape: "+ingest.Shapes())
	ingestCmd.Flags().StringVarP(&ingestUser, "user", "u", "", "email of the owning user")
	ingestCmd.Flags().StringSliceVar(&ingestSeal, "seal", nil, "age recipient to seal values to (repeatable)")
	rootCmd.AddCommand(ingestCmd)
}
