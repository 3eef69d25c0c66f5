// ABOUTME: CLI commands for managing local accounts and issuing access tokens.
// ABOUTME: Tokens are signed with JWT_SECRET and accepted by the HTTP API.
package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/harperreed/wellness/internal/auth"
	"github.com/harperreed/wellness/internal/clock"
	"github.com/harperreed/wellness/internal/models"
	"github.com/harperreed/wellness/internal/storage"
	"github.com/spf13/cobra"
)

var (
	userPassword string
	userNickname string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
	Long: `Create local accounts and mint access tokens.

COMMANDS:

  add     Create a local account
  token   Print a bearer token for an existing account

Examples:
  wellness user add ada@example.com --password 'correct-horse' --nickname Ada
  wellness user token ada@example.com`,
}

var userAddCmd = &cobra.Command{
	Use:   "add <email>",
	Short: "Create a local account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		u := models.NewUser(args[0], models.ProviderLocal).WithNickname(userNickname)
		if userPassword != "" {
			hash, err := auth.HashPassword(userPassword)
			if err != nil {
				return err
			}
			u.WithPasswordHash(hash)
		}

		if err := repo.CreateUser(cmd.Context(), u); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				return fmt.Errorf("a user with email %s already exists", args[0])
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		color.Green("✓ Created %s", u.Email)
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", color.New(color.Faint).Sprint(u.ID.String()))
		return nil
	},
}

var userTokenCmd = &cobra.Command{
	Use:   "token <email>",
	Short: "Print an access token for a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, err := cfg.GetTokenTTL()
		if err != nil {
			return err
		}
		issuer, err := auth.NewIssuer(cfg.JWTSecret, ttl, clock.Real{})
		if err != nil {
			return err
		}

		u, err := resolveUser(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		token, err := issuer.Issue(u.ID.String(), u.Email)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	userAddCmd.Flags().StringVarP(&userPassword, "password", "p", "", "password for local login")
	userAddCmd.Flags().StringVarP(&userNickname, "nickname", "n", "", "display name")
	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userTokenCmd)
	rootCmd.AddCommand(userCmd)
}
