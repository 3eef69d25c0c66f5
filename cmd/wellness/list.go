// ABOUTME: CLI command for listing biometric readings in a day window.
// ABOUTME: Reveals sealed values when given an age identity file.
package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/harperreed/wellness/internal/models"
	"github.com/harperreed/wellness/internal/sealing"
	"github.com/spf13/cobra"
)

var (
	listUser     string
	listDays     int
	listKind     string
	listIdentity string
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "l"},
	Short:   "List biometric readings",
	Long: `List biometric readings from the last N days, newest first.

OUTPUT FORMAT:

  Each line shows: ID  DATE TIME  KIND  VALUE  UNIT

FILTERING:

  --days covers today and the N previous days (1-30, default 1).
  --kind limits output to one metric kind:
    step, calories, distance, deep_sleep, light_sleep, rem_sleep, heart_rate

EXAMPLES:

  wellness list --user ada@example.com
  wellness list --user ada@example.com --days 7 --kind heart_rate
  wellness list --user ada@example.com --identity ~/.config/wellness/key.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listKind != "" && !models.IsValidMetricKind(listKind) {
			return fmt.Errorf("unknown metric kind: %s", listKind)
		}

		var opener *sealing.Opener
		if listIdentity != "" {
			var err error
			opener, err = sealing.LoadOpener(listIdentity)
			if err != nil {
				return err
			}
		}

		user, err := resolveUser(cmd.Context(), listUser)
		if err != nil {
			return err
		}

		facts, err := newBiometricsService().Query(cmd.Context(), user.ID.String(), listDays)
		if err != nil {
			return fmt.Errorf("failed to list readings: %w", err)
		}

		out := cmd.OutOrStdout()
		faint := color.New(color.Faint)
		shown := 0
		for _, f := range facts {
			if listKind != "" && string(f.Kind) != listKind {
				continue
			}
			value := f.Value.String()
			if opener != nil {
				if value, err = opener.Reveal(f.Value); err != nil {
					return fmt.Errorf("reading %d: %w", f.ID, err)
				}
			} else if sealing.IsSealed(value) {
				value = "<sealed>"
			}
			fmt.Fprintf(out, "%s %s %s %s %s\n",
				faint.Sprint(padRight(fmt.Sprint(f.ID), 6)),
				faint.Sprint(f.Date+" "+f.Time),
				padRight(string(f.Kind), 12),
				truncate(value, 24),
				f.Unit())
			shown++
		}

		if shown == 0 {
			fmt.Fprintln(out, "No readings found.")
		}
		return nil
	},
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func padRight(s string, length int) string {
	if len(s) >= length {
		return s
	}
	return s + strings.Repeat(" ", length-len(s))
}

func init() {
	listCmd.Flags().StringVarP(&listUser, "user", "u", "", "email of the user")
	listCmd.Flags().IntVarP(&listDays, "days", "d", 1, "window size in days (1-30)")
	listCmd.Flags().StringVarP(&listKind, "kind", "k", "", "filter by metric kind")
	listCmd.Flags().StringVar(&listIdentity, "identity", "", "age identity file for sealed values")
	rootCmd.AddCommand(listCmd)
}
