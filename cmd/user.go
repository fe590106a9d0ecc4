package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/cal-admin/internal/auth"
	"github.com/example/cal-admin/internal/config"
	"github.com/example/cal-admin/internal/db"
	"github.com/example/cal-admin/internal/migrate"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage operator accounts",
	}
	cmd.AddCommand(newUserAddCmd())
	return cmd
}

func newUserAddCmd() *cobra.Command {
	var email, password string

	c := &cobra.Command{
		Use:   "add",
		Short: "Add an operator account (email/password)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}

			ctx := context.Background()
			d, err := db.Open(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer d.Close()

			if err := migrate.Up(ctx, d); err != nil {
				return err
			}

			store := auth.NewStore(auth.NewPGUserStore(d), cfg.CookieHashKey, cfg.CookieBlockKey, cfg.SessionTTL)
			u, err := store.CreateUser(ctx, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "created user %q (id=%s)\n", u.Email, u.ID)
			return nil
		},
	}

	c.Flags().StringVar(&email, "email", "", "email")
	c.Flags().StringVar(&password, "password", "", "password")
	_ = c.MarkFlagRequired("email")
	_ = c.MarkFlagRequired("password")
	return c
}
