package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/geopost/geopost-cli/internal/api"
)

const maxFlagReason = 500

func newFlagCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "flag <post-id>",
		Short: "Report a post for moderation",
		Example: `  geopost flag 12
  geopost flag 12 --reason "spam"`,
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			reason = strings.TrimSpace(reason)
			if len([]rune(reason)) > maxFlagReason {
				return fmt.Errorf("--reason must be at most %d characters", maxFlagReason)
			}

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			if isDryRun(cmd) {
				req, err := api.FlagRequest(id, reason)
				if err != nil {
					return err
				}
				return previewRequest(cmd, sess.client, fmt.Sprintf("flag post %d", id), req)
			}

			flag, err := sess.client.Flags().Create(ctx, id, reason)
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, flag)
			}
			printAction(cmd, "Flagged", "post", id)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Why the post should be reviewed")
	return cmd
}
