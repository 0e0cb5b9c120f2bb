package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/BuzzLyutic/task-tracker-api/pkg/client"
)

type app struct {
	apiURL      string
	sessionPath string
	out         io.Writer
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newRootCmd() *cobra.Command {
	a := &app{out: os.Stdout}

	root := &cobra.Command{
		Use:           "taskctl",
		Short:         "Manage tasks on a task tracker server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.out = cmd.OutOrStdout()
			if a.sessionPath == "" {
				path, err := client.DefaultSessionPath()
				if err != nil {
					return fmt.Errorf("locate session file: %w", err)
				}
				a.sessionPath = path
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.apiURL, "api", envOr("TASKCTL_API", "http://localhost:8080/api/v1"), "API base URL")
	root.PersistentFlags().StringVar(&a.sessionPath, "session", os.Getenv("TASKCTL_SESSION"), "session file (default in the user config dir)")

	root.AddCommand(
		a.registerCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.tasksCmd(),
	)
	return root
}

func (a *app) client() *client.Client {
	return client.New(a.apiURL, client.NewFileStore(a.sessionPath))
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// explain turns an expired session into a hint the user can act on.
func explain(err error) error {
	if errors.Is(err, client.ErrSessionExpired) {
		return fmt.Errorf("%w (run `taskctl login`)", err)
	}
	return err
}

func (a *app) registerCmd() *cobra.Command {
	var req client.RegisterRequest

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.client().Register(cmd.Context(), req)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(a.out, "Registered and logged in as %s <%s> (%s)\n", user.Name, user.Email, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (at least 6 characters)")
	cmd.Flags().StringVar(&req.Role, "role", "", "user or admin")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.client().Login(cmd.Context(), email, password)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintf(a.out, "Logged in as %s <%s> (%s)\n", user.Name, user.Email, user.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client().Logout(); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Logged out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the account of the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.client().Me(cmd.Context())
			if err != nil {
				return explain(err)
			}
			return a.print(user)
		},
	}
}
