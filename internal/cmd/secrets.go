package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geopost/geopost-cli/internal/secrets"
)

func newSecretsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Manage stored post ownership secrets",
		Long: `Each post created from this device comes with a client secret that is
required to delete it. Secrets are stored per server in the OS keychain, or
in Redis when --secret-store (or GEOPOST_SECRET_STORE) is a redis:// URL.`,
	}
	cmd.AddCommand(newSecretsListCmd())
	cmd.AddCommand(newSecretsSetCmd())
	cmd.AddCommand(newSecretsForgetCmd())
	return cmd
}

func maskSecret(secret string) string {
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", len(secret)-4) + secret[len(secret)-4:]
}

func newSecretsListCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List posts this device can delete",
		Args:    cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			entries, err := sess.secrets.List(ctx)
			if err != nil {
				return err
			}
			if !reveal {
				for i := range entries {
					entries[i].Secret = maskSecret(entries[i].Secret)
				}
			}
			if isJSON(cmd) {
				return printJSON(cmd, entries)
			}
			f := formatter(cmd)
			if len(entries) == 0 {
				f.Empty("No stored secrets for " + sess.client.BaseURL())
				return nil
			}
			f.StartTable([]string{"POST", "SAVED", "SECRET"})
			for _, e := range entries {
				f.Row(strconv.Itoa(e.PostID), formatTimestamp(e.SavedAt), e.Secret)
			}
			return f.EndTable()
		}),
	}
	cmd.Flags().BoolVar(&reveal, "reveal", false, "Print secrets unmasked")
	return cmd
}

func newSecretsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <post-id> <secret>",
		Short: "Store a secret restored from a backup",
		Args:  cobra.ExactArgs(2),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			secret := strings.TrimSpace(args[1])
			if secret == "" {
				return fmt.Errorf("secret must not be empty")
			}
			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			if err := sess.secrets.Put(ctx, id, secret); err != nil {
				return err
			}
			printAction(cmd, "Stored", "secret for post", id)
			return nil
		}),
	}
}

func newSecretsForgetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "forget <post-id>...",
		Aliases: []string{"rm"},
		Short:   "Drop stored secrets without deleting the posts",
		Long: `Drop stored secrets. The posts stay online and can no longer be deleted
from this device.`,
		Args: cobra.MinimumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ids, err := parsePostIDs(args)
			if err != nil {
				return err
			}
			ok, err := confirm(ctx, fmt.Sprintf("Forget %d secret(s)? The posts can no longer be deleted from here.", len(ids)), yes)
			if err != nil {
				return err
			}
			if !ok {
				_, _ = fmt.Fprintln(stderr(cmd), "Cancelled.")
				return nil
			}

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			var missing []int
			for _, id := range ids {
				if _, err := sess.secrets.Get(ctx, id); errors.Is(err, secrets.ErrNotFound) {
					missing = append(missing, id)
					continue
				} else if err != nil {
					return err
				}
				if err := sess.secrets.Delete(ctx, id); err != nil {
					return err
				}
				printAction(cmd, "Forgot", "secret for post", id)
			}
			if isJSON(cmd) {
				return printJSON(cmd, map[string]any{"forgotten": len(ids) - len(missing), "missing": missing})
			}
			for _, id := range missing {
				_, _ = fmt.Fprintf(stderr(cmd), "No secret stored for post %d\n", id)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
