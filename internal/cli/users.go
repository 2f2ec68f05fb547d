package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hunt-service/internal/app"
	"hunt-service/internal/auth"
	"hunt-service/internal/config"
	"hunt-service/internal/domain"
)

// NewUserCmd groups account administration commands.
func NewUserCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUserCreateCmd(configPath))
	return cmd
}

func newUserCreateCmd(configPath *string) *cobra.Command {
	var user domain.User
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user and print a bearer token for it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			tokens, err := tokensFor(cfg)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			b, err := openBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer b.Close()

			service := app.NewHuntService(b.store, b.progress, b.catalog, b.feeds, app.WithLogger(logger))
			created, err := service.CreateUser(cmd.Context(), user)
			if err != nil {
				return err
			}
			token, err := tokens.Issue(created.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "user %d (%s)\ntoken %s\n", created.ID, created.Username, token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user.Username, "username", "", "login name")
	cmd.Flags().StringVar(&user.DisplayName, "display-name", "", "name shown to other players")
	cmd.Flags().StringVar(&user.DiscordUsername, "discord", "", "discord handle")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}

// NewTokenCmd issues a bearer token for an existing user ID.
func NewTokenCmd(configPath *string) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			tokens, err := tokensFor(cfg)
			if err != nil {
				return err
			}
			token, err := tokens.Issue(userID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user-id", 0, "user to issue the token for")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}

// tokensFor refuses to mint tokens without a configured secret; a random one
// would be useless to the running server.
func tokensFor(cfg config.Config) (*auth.Tokens, error) {
	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("auth secret not configured (set auth.secret or JWT_SECRET)")
	}
	return auth.NewTokens(cfg.Auth.Secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour)), nil
}
