package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/maantoa/tomeauth"
	"github.com/spf13/cobra"
)

func signInCmd(a *app) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "signin <email>",
		Short: "Sign the profile in",
		Long: `Sign the profile in with an email and password. Without --password the
password is read from the first line of standard input.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				password, err = readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
			}

			engine, cleanup, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			user, err := engine.SignIn(a.ctx(cmd.Context()), args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s, %s)\n", user.Username, user.Email, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password (read from stdin when empty)")
	return cmd
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func signOutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign the profile out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			engine.SignOut(a.ctx(cmd.Context()))
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func whoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the signed-in user of the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			user, err := engine.CurrentUser(a.ctx(cmd.Context()))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:       %s\n", user.ID)
			fmt.Fprintf(out, "email:    %s\n", user.Email)
			fmt.Fprintf(out, "username: %s\n", user.Username)
			fmt.Fprintf(out, "role:     %s\n", user.Role)
			return nil
		},
	}
}

func verifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Run every session check and record activity",
		Long: `Run every session check for the profile. A passing check records the
interaction and rotates the session identifier; a failing one signs the
profile out. Exits non-zero when the session is not valid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			if !engine.VerifySession(a.ctx(cmd.Context())) {
				return tomeauth.ErrNoSession
			}
			fmt.Fprintln(cmd.OutOrStdout(), "session valid")
			return nil
		},
	}
}

func refreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Extend the profile's session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := a.ctx(cmd.Context())
			user, err := engine.CurrentUser(ctx)
			if err != nil {
				return err
			}
			if err := engine.RefreshSession(ctx, user.ID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "session refreshed")
			return nil
		},
	}
}

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print last activity and failed sign-in attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := a.ctx(cmd.Context())
			attempts, err := engine.LoginAttempts(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "profile:        %s\n", tomeauth.ProfileFromContext(ctx))
			fmt.Fprintf(out, "last activity:  %s\n", engine.LastActivity(ctx).UTC().Format(time.RFC3339))
			fmt.Fprintf(out, "login attempts: %d/%d\n", attempts, a.config.RateLimit.MaxAttempts)
			return nil
		},
	}
}

func healthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Ping the storage backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cleanup, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			status := engine.Health(cmd.Context())
			if !status.Healthy {
				return status.Err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s backend ok (%s)\n", a.config.Storage.Backend, status.Latency.Round(time.Microsecond))
			return nil
		},
	}
}

func configCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.config
			if cfg.Storage.RedisPassword != "" {
				cfg.Storage.RedisPassword = "redacted"
			}
			raw, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(raw)
			return err
		},
	}
}
