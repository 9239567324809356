package cmd

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"code.cloudfoundry.org/bytefmt"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/geopost/geopost-cli/internal/api"
	"github.com/geopost/geopost-cli/internal/dryrun"
	"github.com/geopost/geopost-cli/internal/validation"
)

func newPostsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "posts",
		Aliases: []string{"post", "p"},
		Short:   "Browse, publish and delete geotagged posts",
	}
	cmd.AddCommand(newPostsListCmd())
	cmd.AddCommand(newPostsShowCmd())
	cmd.AddCommand(newPostsCreateCmd())
	cmd.AddCommand(newPostsDeleteCmd())
	cmd.AddCommand(newPostsMediaCmd())
	return cmd
}

// parseLatLng reads "lat,lng".
func parseLatLng(value string) (*api.LatLng, error) {
	latRaw, lngRaw, ok := strings.Cut(value, ",")
	if !ok {
		return nil, fmt.Errorf("invalid location %q: must be lat,lng", value)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: must be a number", latRaw)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngRaw), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: must be a number", lngRaw)
	}
	if err := validation.ValidateLatLng(lat, lng); err != nil {
		return nil, err
	}
	return &api.LatLng{Lat: lat, Lng: lng}, nil
}

func postKind(p api.Post) string {
	if p.IsVideo {
		return "video"
	}
	return "photo"
}

func printPosts(cmd *cobra.Command, posts []api.Post) error {
	if isJSON(cmd) {
		return printJSON(cmd, posts)
	}
	f := formatter(cmd)
	if len(posts) == 0 {
		f.Empty("No posts found.")
		return nil
	}
	f.StartTable([]string{"ID", "LAT", "LNG", "KIND", "OWNER", "CREATED"})
	for _, p := range posts {
		owner := p.Owner
		if owner == "" {
			owner = "-"
		}
		f.Row(
			strconv.Itoa(int(p.ID)),
			strconv.FormatFloat(float64(p.Lat), 'f', 5, 64),
			strconv.FormatFloat(float64(p.Lng), 'f', 5, 64),
			postKind(p),
			owner,
			formatTimestamp(p.CreatedTime()),
		)
	}
	return f.EndTable()
}

func newPostsListCmd() *cobra.Command {
	var near string
	var limit int

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List posts, optionally around a location",
		Example: `  geopost posts list
  geopost posts list --near 52.5200,13.4050 --limit 20`,
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			opts := api.ListPostsOptions{Limit: limit}
			if near != "" {
				loc, err := parseLatLng(near)
				if err != nil {
					return err
				}
				opts.Near = loc
			}
			if limit < 0 {
				return fmt.Errorf("--limit must be >= 0")
			}

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			posts, err := sess.client.Posts().List(ctx, opts)
			if err != nil {
				return err
			}
			return printPosts(cmd, posts)
		}),
	}
	cmd.Flags().StringVar(&near, "near", "", "Only posts near this location (lat,lng)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of posts")
	return cmd
}

func newPostsShowCmd() *cobra.Command {
	var withComments bool

	cmd := &cobra.Command{
		Use:     "show <id>",
		Aliases: []string{"get"},
		Short:   "Show one post",
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

			var post *api.Post
			var comments []api.Comment
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				post, err = sess.client.Posts().Get(gctx, id)
				return err
			})
			if withComments {
				g.Go(func() error {
					var err error
					comments, err = sess.client.Posts().ListComments(gctx, id)
					return err
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if isJSON(cmd) {
				if !withComments {
					return printJSON(cmd, post)
				}
				return printJSON(cmd, map[string]any{"post": post, "comments": comments})
			}

			f := formatter(cmd)
			f.Field("ID", int(post.ID))
			f.Field("Location", fmt.Sprintf("%.5f, %.5f", float64(post.Lat), float64(post.Lng)))
			f.Field("Kind", postKind(*post))
			if post.Owner != "" {
				f.Field("Owner", post.Owner)
			}
			f.Field("Created", formatTimestamp(post.CreatedTime()))
			f.Field("Media", post.MediaFile)
			if _, err := sess.secrets.Get(ctx, id); err == nil {
				f.Field("Owned", "yes (client secret stored)")
			}
			if err := f.EndTable(); err != nil {
				return err
			}
			if withComments {
				return printComments(cmd, comments)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&withComments, "comments", "c", false, "Also list the post's comments")
	return cmd
}

func newPostsCreateCmd() *cobra.Command {
	var (
		lat, lng float64
		at       string
		media    string
		video    bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a photo at a location",
		Long: `Upload a photo (or video) pinned to a location.

The server returns a client secret with the new post; it is stored locally
and is the only proof that this device may delete the post later.`,
		Example: `  geopost posts create --media beach.jpg --at 38.7223,-9.1393
  geopost posts create --media clip.mp4 --lat 38.72 --lng -9.14 --video`,
		Args: cobra.NoArgs,
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if at != "" {
				if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
					return fmt.Errorf("--at conflicts with --lat/--lng")
				}
				loc, err := parseLatLng(at)
				if err != nil {
					return err
				}
				lat, lng = loc.Lat, loc.Lng
			} else if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lng") {
				return fmt.Errorf("a location is required: --at lat,lng or --lat and --lng")
			}
			if err := validation.ValidateLatLng(lat, lng); err != nil {
				return err
			}

			info, err := os.Stat(media)
			if err != nil {
				return fmt.Errorf("cannot read --media: %w", err)
			}
			if info.Size() > api.MaxMediaSize {
				return fmt.Errorf("--media is %s; the server accepts at most %s",
					bytefmt.ByteSize(uint64(info.Size())), bytefmt.ByteSize(api.MaxMediaSize))
			}
			data, err := os.ReadFile(media)
			if err != nil {
				return fmt.Errorf("cannot read --media: %w", err)
			}

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			newPost := api.NewPost{
				Lat:     lat,
				Lng:     lng,
				Media:   api.NewFileValue(filepath.Base(media), data),
				IsVideo: video,
			}
			if isDryRun(cmd) {
				req, err := api.CreateRequest(newPost)
				if err != nil {
					return err
				}
				return previewRequest(cmd, sess.client, "create a post", req)
			}

			post, err := sess.client.Posts().Create(ctx, newPost)
			if err != nil {
				return err
			}

			if isJSON(cmd) {
				// The secret is already stored; keep it out of scrollback.
				out := *post
				out.ClientSecret = ""
				return printJSON(cmd, out)
			}
			printAction(cmd, "Created", "post", int(post.ID))
			if !flags.Quiet {
				_, _ = fmt.Fprintf(stdout(cmd), "  Uploaded %s from %s\n", bytefmt.ByteSize(uint64(len(data))), filepath.Base(media))
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&media, "media", "", "Photo or video file to upload")
	cmd.Flags().StringVar(&at, "at", "", "Location as lat,lng")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Longitude")
	cmd.Flags().BoolVar(&video, "video", false, "Mark the upload as a video")
	_ = cmd.MarkFlagRequired("media")
	return cmd
}

func previewDeletes(cmd *cobra.Command, ids []int) error {
	ctx := cmd.Context()
	sess, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer sess.Close()

	previews := make([]*dryrun.Preview, 0, len(ids))
	for _, id := range ids {
		var warnings []string
		req, err := sess.client.Posts().DeleteRequest(ctx, id)
		if errors.Is(err, api.ErrNoClientSecret) {
			warnings = append(warnings, "no client secret stored; the server will refuse this delete")
			req, err = api.NewRequest(api.MethodDelete, api.ResourcePath(api.ResourcePosts, id), nil)
		}
		if err != nil {
			return err
		}
		p, err := buildPreview(sess.client, fmt.Sprintf("delete post %d", id), req, warnings...)
		if err != nil {
			return err
		}
		previews = append(previews, p)
	}
	return writePreviews(cmd, previews...)
}

type deleteResult struct {
	ID      int    `json:"id"`
	Deleted bool   `json:"deleted"`
	Error   string `json:"error,omitempty"`
	err     error
}

func newPostsDeleteCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete posts created from this device",
		Long: `Delete posts using their stored client secrets.

Deletes are sent in the background (see --workers); results are reported
as each one completes.`,
		Args: cobra.MinimumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ids, err := parsePostIDs(args)
			if err != nil {
				return err
			}
			if isDryRun(cmd) {
				return previewDeletes(cmd, ids)
			}
			ok, err := confirm(ctx, fmt.Sprintf("Delete %d post(s)?", len(ids)), yes)
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

			results := deletePosts(ctx, sess, ids, func(r deleteResult) {
				if isJSON(cmd) {
					return
				}
				if r.Deleted {
					printAction(cmd, "Deleted", "post", r.ID)
				} else {
					_, _ = fmt.Fprintf(stderr(cmd), "post %d: %s\n", r.ID, r.Error)
				}
			})

			if isJSON(cmd) {
				if err := printJSON(cmd, results); err != nil {
					return err
				}
			}

			var failed []error
			for _, r := range results {
				if r.err != nil {
					failed = append(failed, r.err)
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d posts not deleted: %w", len(failed), len(ids), failed[0])
			}
			return nil
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// deletePosts dispatches one background delete per id and drains their
// callbacks on the calling goroutine through a Loop. report sees every
// result as it lands; the returned slice follows ids order.
func deletePosts(ctx context.Context, sess *session, ids []int, report func(deleteResult)) []deleteResult {
	results := make([]deleteResult, len(ids))
	loop := api.NewLoop()
	loopCtx, stop := context.WithCancel(ctx)
	defer stop()

	pending := 0
	finish := func(i int, err error) {
		r := deleteResult{ID: ids[i], Deleted: err == nil, err: err}
		if err != nil {
			r.Error = err.Error()
		}
		results[i] = r
		report(r)
	}

	for i, id := range ids {
		i, id := i, id
		req, err := sess.client.Posts().DeleteRequest(ctx, id)
		if err != nil {
			finish(i, err)
			continue
		}
		pending++
		sess.client.SendAsync(ctx, req, loop, func(outcome api.Outcome) {
			err := outcome.Err()
			if err == nil {
				if ferr := sess.secrets.Delete(ctx, id); ferr != nil {
					err = fmt.Errorf("deleted, but the stored secret could not be removed: %w", ferr)
				}
			}
			finish(i, err)
			pending--
			if pending == 0 {
				stop()
			}
		})
	}

	if pending > 0 {
		// Run returns once stop fires or ctx is interrupted.
		_ = loop.Run(loopCtx)
	}
	for i := range results {
		if results[i].ID == 0 {
			finish(i, fmt.Errorf("interrupted: %w", ctx.Err()))
		}
	}
	return results
}

func newPostsMediaCmd() *cobra.Command {
	var outDir string
	var outFile string

	cmd := &cobra.Command{
		Use:   "media <id>...",
		Short: "Download the photo or video of posts",
		Example: `  geopost posts media 12 -O beach.jpg
  geopost posts media 12 13 14 --dir ./downloads
  geopost posts media 12 -O - > beach.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ids, err := parsePostIDs(args)
			if err != nil {
				return err
			}
			if outFile != "" && len(ids) > 1 {
				return fmt.Errorf("--output-file accepts a single post; use --dir for several")
			}

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			fetch := func(ctx context.Context, id int) (*mediaFile, error) {
				post, err := sess.client.Posts().Get(ctx, id)
				if err != nil {
					return nil, err
				}
				resp, err := sess.client.Posts().Media(ctx, post)
				if err != nil {
					return nil, err
				}
				return &mediaFile{post: post, data: resp.Media(), contentType: resp.ContentType()}, nil
			}

			var progress = stderr(cmd)
			if len(ids) == 1 || isJSON(cmd) || flags.Quiet {
				progress = nil
			}
			results := runBulk(ctx, ids, sess.workers, progress, fetch)

			type saved struct {
				ID    int    `json:"id"`
				Path  string `json:"path,omitempty"`
				Bytes int    `json:"bytes"`
				Error string `json:"error,omitempty"`
			}
			var report []saved
			var firstErr error
			for _, r := range results {
				s := saved{ID: r.ID}
				if r.Err == nil {
					s.Path, r.Err = r.Value.write(cmd, outDir, outFile)
					s.Bytes = len(r.Value.data)
				}
				if r.Err != nil {
					s.Error = r.Err.Error()
					if firstErr == nil {
						firstErr = r.Err
					}
					_, _ = fmt.Fprintf(stderr(cmd), "post %d: %s\n", r.ID, r.Err)
				} else if !isJSON(cmd) && !flags.Quiet && s.Path != "-" {
					_, _ = fmt.Fprintf(stdout(cmd), "Saved %s (%s)\n", s.Path, bytefmt.ByteSize(uint64(s.Bytes)))
				}
				report = append(report, s)
			}
			if isJSON(cmd) && outFile != "-" {
				if err := printJSON(cmd, report); err != nil {
					return err
				}
			}
			if failures := countFailures(results); failures > 0 {
				return fmt.Errorf("%d of %d downloads failed: %w", failures, len(ids), firstErr)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&outDir, "dir", ".", "Directory to save files into")
	cmd.Flags().StringVarP(&outFile, "output-file", "O", "", "Save a single post to this path ('-' for stdout)")
	return cmd
}

type mediaFile struct {
	post        *api.Post
	data        []byte
	contentType string
}

// fileName derives post-<id><ext>, taking the extension from the media URL
// and falling back to the content type.
func (m *mediaFile) fileName() string {
	ext := path.Ext(strings.SplitN(m.post.MediaFile, "?", 2)[0])
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(m.contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}
	return fmt.Sprintf("post-%d%s", int(m.post.ID), ext)
}

func (m *mediaFile) write(cmd *cobra.Command, dir, file string) (string, error) {
	if file == "-" {
		_, err := stdout(cmd).Write(m.data)
		return "-", err
	}
	target := file
	if target == "" {
		target = filepath.Join(dir, m.fileName())
	}
	if err := os.WriteFile(target, m.data, 0o644); err != nil {
		return "", err
	}
	return target, nil
}
