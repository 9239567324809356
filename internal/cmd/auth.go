package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geopost/geopost-cli/internal/api"
	"github.com/geopost/geopost-cli/internal/config"
	"github.com/geopost/geopost-cli/internal/validation"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage server profiles and credentials",
		Long:  "Store the server URL and optional account credentials in your OS keychain.",
	}
	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())
	return cmd
}

func profileName() string {
	if flags.Profile != "" {
		return flags.Profile
	}
	if p := strings.TrimSpace(os.Getenv("GEOPOST_PROFILE")); p != "" {
		return p
	}
	return "default"
}

func newAuthLoginCmd() *cobra.Command {
	var (
		url      string
		username string
		password string
		noVerify bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Save a server profile",
		Long: strings.TrimSpace(`
Save a geopost server profile to your OS keychain.

Browsing posts needs only the server URL. Account commands (users me,
users posts) also need a username and password, which are checked against
the server before they are saved.
`),
		Example: strings.TrimSpace(`
  # Anonymous profile
  geopost auth login --url https://geo.example.com

  # With an account (password is prompted)
  geopost auth login --url https://geo.example.com --username alice

  # Non-interactive
  GEOPOST_PASSWORD=... geopost auth login --url http://localhost:8000 --username alice --no-input
`),
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var err error
			if url == "" {
				if url, err = promptLine(ctx, "Server URL"); err != nil {
					return fmt.Errorf("--url is required: %w", err)
				}
			}
			url = validation.NormalizeBaseURL(url)
			if err := validation.ValidateBaseURL(url); err != nil {
				return fmt.Errorf("invalid URL: %w", err)
			}

			account := config.Account{BaseURL: url}
			if username != "" {
				if err := validation.ValidateUsername(username); err != nil {
					return err
				}
				if password == "" {
					password = os.Getenv("GEOPOST_PASSWORD")
				}
				if password == "" {
					if password, err = promptPassword(ctx, "Password"); err != nil {
						return fmt.Errorf("password is required: %w", err)
					}
				}
				if password == "" {
					return fmt.Errorf("password is required")
				}
				account.Username = username
				account.Password = password

				if !noVerify {
					if _, err := verifyAccount(ctx, account); err != nil {
						return fmt.Errorf("credentials were not saved: %w", err)
					}
				}
			}

			profile := profileName()
			if err := config.SaveProfile(profile, account); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}

			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{
					"profile":  profile,
					"base_url": account.BaseURL,
					"username": account.Username,
				})
			}
			out := stdout(cmd)
			_, _ = fmt.Fprintf(out, "Saved profile %s\n", profile)
			_, _ = fmt.Fprintf(out, "  Server:   %s\n", account.BaseURL)
			if account.Username != "" {
				_, _ = fmt.Fprintf(out, "  Username: %s\n", account.Username)
			}
			return nil
		}),
	}

	cmd.Flags().StringVar(&url, "url", "", "Server base URL (e.g. https://geo.example.com)")
	cmd.Flags().StringVarP(&username, "username", "u", "", "Account username (optional)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prefer the prompt or GEOPOST_PASSWORD)")
	cmd.Flags().BoolVar(&noVerify, "no-verify", false, "Save credentials without checking them against the server")
	return cmd
}

// verifyAccount fetches the user's own record with the given credentials.
func verifyAccount(ctx context.Context, account config.Account) (*api.User, error) {
	client := api.New(api.Config{
		BaseURL:        account.BaseURL,
		Username:       account.Username,
		Password:       account.Password,
		ConnectTimeout: flags.ConnectTimeout,
		ReadTimeout:    flags.ReadTimeout,
		UserAgent:      fmt.Sprintf("geopost-cli/%s", version),
	})
	return client.Users().Me(ctx)
}

func newAuthStatusCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the active profile",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var account config.Account
			var err error
			if flags.Profile != "" {
				account, err = config.LoadProfile(flags.Profile)
			} else {
				account, err = config.LoadAccount()
			}
			if err != nil {
				return err
			}
			current, _ := config.CurrentProfile()
			if flags.Profile != "" {
				current = flags.Profile
			}
			profiles, _ := config.ListProfiles()

			status := map[string]any{
				"profile":         current,
				"base_url":        account.BaseURL,
				"username":        account.Username,
				"has_credentials": account.HasCredentials(),
				"profiles":        profiles,
			}

			var reach string
			if check {
				reach = checkServer(ctx, account)
				status["server"] = reach
			}

			if isJSON(cmd) {
				return printJSON(cmd, status)
			}
			f := formatter(cmd)
			f.Field("Profile", current)
			f.Field("Server", account.BaseURL)
			if account.Username != "" {
				f.Field("Username", account.Username)
			} else {
				f.Field("Username", "(anonymous)")
			}
			if len(profiles) > 1 {
				f.Field("Profiles", strings.Join(profiles, ", "))
			}
			if check {
				f.Field("Reachable", reach)
			}
			return f.EndTable()
		}),
	}
	cmd.Flags().BoolVar(&check, "check", false, "Contact the server and report whether it answers")
	return cmd
}

// checkServer sends one cheap listing request and names the outcome kind.
func checkServer(ctx context.Context, account config.Account) string {
	client := api.New(api.Config{
		BaseURL:        account.BaseURL,
		ConnectTimeout: flags.ConnectTimeout,
		ReadTimeout:    flags.ReadTimeout,
	})
	req, err := api.NewRequest(api.MethodGet, api.ResourcePath(api.ResourcePosts), api.NewParams().Set("limit", 1))
	if err != nil {
		return err.Error()
	}
	outcome := client.Send(ctx, req)
	switch outcome.Kind {
	case api.OutcomeSuccess:
		return "yes"
	case api.OutcomeServerError:
		return fmt.Sprintf("answered with HTTP %d", outcome.Response.StatusCode)
	default:
		var transportErr *api.TransportError
		if errors.As(outcome.Err(), &transportErr) && transportErr.Timeout() {
			return "no (timeout)"
		}
		return "no"
	}
}

func newAuthLogoutCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove the active profile from the keychain",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			profile := flags.Profile
			if profile == "" {
				current, err := config.CurrentProfile()
				if err != nil {
					return err
				}
				profile = current
			}
			ok, err := confirm(cmd.Context(), fmt.Sprintf("Remove profile %s?", profile), yes)
			if err != nil {
				return err
			}
			if !ok {
				_, _ = fmt.Fprintln(stderr(cmd), "Cancelled.")
				return nil
			}
			if err := config.DeleteProfile(profile); err != nil {
				return err
			}
			printAction(cmd, "Removed", "profile", profile)
			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"removed": profile})
			}
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
