package cmd

import (
	"github.com/spf13/cobra"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user", "me"},
		Short:   "Inspect the logged-in account",
	}
	cmd.AddCommand(newUsersMeCmd())
	cmd.AddCommand(newUsersPostsCmd())
	return cmd
}

func newUsersMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the configured account",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			user, err := sess.client.Users().Me(ctx)
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, user)
			}
			f := formatter(cmd)
			f.Field("ID", int(user.ID))
			f.Field("Username", user.Username)
			if user.Email != "" {
				f.Field("Email", user.Email)
			}
			f.Field("Server", sess.client.BaseURL())
			return f.EndTable()
		}),
	}
}

func newUsersPostsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "posts",
		Short: "List posts created by the configured account",
		Args:  cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			posts, err := sess.client.Users().Posts(ctx)
			if err != nil {
				return err
			}
			return printPosts(cmd, posts)
		}),
	}
}
