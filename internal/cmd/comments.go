package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/geopost/geopost-cli/internal/api"
	"github.com/geopost/geopost-cli/internal/validation"
)

func newCommentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "comments",
		Aliases: []string{"comment"},
		Short:   "Read and write comments on posts",
	}
	cmd.AddCommand(newCommentsListCmd())
	cmd.AddCommand(newCommentsAddCmd())
	return cmd
}

func printComments(cmd *cobra.Command, comments []api.Comment) error {
	if isJSON(cmd) {
		return printJSON(cmd, comments)
	}
	f := formatter(cmd)
	if len(comments) == 0 {
		f.Empty("No comments.")
		return nil
	}
	f.StartTable([]string{"ID", "AUTHOR", "CREATED", "TEXT"})
	for _, c := range comments {
		author := c.Author
		if author == "" {
			author = "anonymous"
		}
		f.Row(strconv.Itoa(int(c.ID)), author, formatTimestamp(c.CreatedTime()), truncate(c.Text, 60))
	}
	return f.EndTable()
}

func newCommentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list <post-id>",
		Aliases: []string{"ls"},
		Short:   "List the comments on a post",
		Args:    cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			comments, err := sess.client.Posts().ListComments(ctx, id)
			if err != nil {
				return err
			}
			return printComments(cmd, comments)
		}),
	}
}

func newCommentsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "add <post-id> <text>",
		Aliases: []string{"create"},
		Short:   "Comment on a post",
		Example: `  geopost comments add 12 "Great view!"`,
		Args:    cobra.ExactArgs(2),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parsePostID(args[0])
			if err != nil {
				return err
			}
			if err := validation.ValidateComment(args[1]); err != nil {
				return err
			}
			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			if isDryRun(cmd) {
				req, err := api.CommentRequest(id, args[1])
				if err != nil {
					return err
				}
				return previewRequest(cmd, sess.client, fmt.Sprintf("comment on post %d", id), req)
			}

			comment, err := sess.client.Comments().Create(ctx, id, args[1])
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				return printJSON(cmd, comment)
			}
			printAction(cmd, "Added", "comment", int(comment.ID))
			return nil
		}),
	}
}
