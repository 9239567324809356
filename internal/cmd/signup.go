package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/geopost/geopost-cli/internal/api"
	"github.com/geopost/geopost-cli/internal/config"
	"github.com/geopost/geopost-cli/internal/validation"
)

func newSignupCmd() *cobra.Command {
	var (
		username string
		email    string
		save     bool
	)

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account on the server",
		Example: `  geopost signup --username alice --email alice@example.com
  geopost signup --username alice --save`,
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if err := validation.ValidateUsername(username); err != nil {
				return err
			}
			if email != "" {
				if err := validation.ValidateEmail(email); err != nil {
					return err
				}
			}
			password, err := promptPassword(ctx, "Password")
			if err != nil {
				return err
			}
			if err := validation.ValidatePassword(password); err != nil {
				return err
			}
			again, err := promptPassword(ctx, "Repeat password")
			if err != nil {
				return err
			}
			if again != password {
				return fmt.Errorf("passwords do not match")
			}

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			user, err := sess.client.Users().Signup(ctx, api.SignupInput{
				Username: username,
				Email:    email,
				Password: password,
			})
			if err != nil {
				return err
			}

			if save {
				account := config.Account{BaseURL: sess.client.BaseURL(), Username: username, Password: password}
				if err := config.SaveProfile(profileName(), account); err != nil {
					return fmt.Errorf("account created but credentials were not saved: %w", err)
				}
			}

			if isJSON(cmd) {
				return printJSON(cmd, user)
			}
			printAction(cmd, "Created", "account", user.Username)
			if save && !flags.Quiet {
				_, _ = fmt.Fprintf(stdout(cmd), "Credentials saved to profile %s\n", profileName())
			}
			return nil
		}),
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username")
	cmd.Flags().StringVar(&email, "email", "", "Email address (optional)")
	cmd.Flags().BoolVar(&save, "save", false, "Store the new credentials in the active profile")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
