package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"code.cloudfoundry.org/bytefmt"
	"github.com/spf13/cobra"

	"github.com/geopost/geopost-cli/internal/api"
	"github.com/geopost/geopost-cli/internal/outfmt"
	"github.com/geopost/geopost-cli/internal/resolve"
)

func newAPICmd() *cobra.Command {
	var (
		method   string
		fields   []string
		typed    []string
		binary   bool
		outFile  string
		include  bool
		silent   bool
		withAuth bool
		ownerOf  int
	)

	cmd := &cobra.Command{
		Use:   "api <route>",
		Short: "Make raw requests to any geopost endpoint",
		Long: `Make raw requests to any geopost endpoint.

The route is relative to /api/ unless it starts with a slash or is an
absolute URL. Parameters go into the query string for GET and into a
multipart body otherwise.`,
		Example: `  # GET with query parameters
  geopost api posts -f lat=52.52 -f lng=13.40

  # Upload a file
  geopost api posts -X POST -F lat=52.52 -F lng=13.40 -F media_file=@photo.jpg

  # Delete a post owned by this device
  geopost api posts/12 -X DELETE --owner 12

  # Download media as raw bytes
  geopost api https://geo.example.com/media/12.jpg --binary -O 12.jpg

  # Show status and rate limits
  geopost api posts --include`,
		Args: cobra.ExactArgs(1),
		RunE: RunE(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			m, err := api.ParseMethod(method)
			if err != nil {
				return err
			}
			route, err := apiRoute(cmd, args[0])
			if err != nil {
				return err
			}
			params, err := buildParams(fields, typed)
			if err != nil {
				return err
			}
			req, err := api.NewRequest(m, route, params)
			if err != nil {
				return err
			}
			if binary {
				req.WithShape(api.ShapeBinary)
			}

			sess, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.Close()

			if withAuth {
				if sess.auth == nil {
					return api.ErrNoCredentials
				}
				req.WithBasicAuth(sess.auth.Username, sess.auth.Password)
			}
			if ownerOf > 0 {
				entry, err := sess.secrets.Get(ctx, ownerOf)
				if err != nil {
					return fmt.Errorf("post %d: %w", ownerOf, err)
				}
				req.WithClientSecret(entry.Secret)
			}

			outcome := sess.client.Send(ctx, req)
			if outcome.IsConnectionFailure() {
				return outcome.Err()
			}
			resp := outcome.Response
			if silent {
				return outcome.Err()
			}
			if !include && outcome.IsServerError() {
				return outcome.Err()
			}
			if err := printAPIResponse(cmd, resp, include, outFile); err != nil {
				return err
			}
			return outcome.Err()
		}),
	}

	cmd.Flags().StringVarP(&method, "method", "X", "GET", "HTTP method (GET, POST, DELETE)")
	cmd.Flags().StringArrayVarP(&fields, "field", "f", nil, "Parameter as name=value (string)")
	cmd.Flags().StringArrayVarP(&typed, "typed-field", "F", nil, "Parameter as name=value with numbers and booleans typed, or name=@file to upload")
	cmd.Flags().BoolVar(&binary, "binary", false, "Keep the response body as raw bytes")
	cmd.Flags().StringVarP(&outFile, "output-file", "O", "", "Write the response body to a file")
	cmd.Flags().BoolVarP(&include, "include", "i", false, "Print status and rate limit before the body")
	cmd.Flags().BoolVarP(&silent, "silent", "s", false, "Print nothing; only the exit code reports the result")
	cmd.Flags().BoolVar(&withAuth, "auth", false, "Send the profile's username and password")
	cmd.Flags().IntVar(&ownerOf, "owner", 0, "Send the stored client secret of this post")
	return cmd
}

// apiRoute expands "posts/12" to /api/posts/12/ and checks the resource
// name, correcting near misses.
func apiRoute(cmd *cobra.Command, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw, nil
	}
	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "/api/") {
		return api.NormalizeRoute(raw), nil
	}

	path, query, hasQuery := strings.Cut(strings.TrimPrefix(strings.TrimPrefix(raw, "/"), "api/"), "?")
	segments := strings.Split(strings.Trim(path, "/"), "/")
	resource, err := resolve.Name(segments[0], api.KnownResources)
	if err != nil {
		var nf *resolve.NotFoundError
		if errors.As(err, &nf) {
			nf.Suggestions = resolve.Suggest(segments[0], api.KnownResources, 2)
			return "", fmt.Errorf("unknown resource: %w", nf)
		}
		return "", fmt.Errorf("unknown resource: %w", err)
	}
	if resource != segments[0] {
		_, _ = fmt.Fprintf(stderr(cmd), "Using resource %q\n", resource)
	}

	rest := make([]any, 0, len(segments)-1)
	for _, s := range segments[1:] {
		if s != "" {
			rest = append(rest, s)
		}
	}
	route := api.ResourcePath(resource, rest...)
	if hasQuery {
		route += "?" + query
	}
	return route, nil
}

// buildParams turns -f and -F flags into Params in flag order: strings
// first, then typed fields.
func buildParams(fields, typed []string) (*api.Params, error) {
	params := api.NewParams()
	for _, f := range fields {
		name, value, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q: must be name=value", f)
		}
		params.Set(name, value)
	}
	for _, f := range typed {
		name, value, ok := strings.Cut(f, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid field %q: must be name=value", f)
		}
		v, err := typedValue(value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		params.Set(name, v)
	}
	return params, nil
}

func typedValue(value string) (any, error) {
	if path, ok := strings.CutPrefix(value, "@"); ok {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if int64(len(data)) > api.MaxMediaSize {
			return nil, fmt.Errorf("%s is %s; the server accepts at most %s",
				path, bytefmt.ByteSize(uint64(len(data))), bytefmt.ByteSize(api.MaxMediaSize))
		}
		return api.NewFileValue(filepath.Base(path), data), nil
	}
	if n, err := strconv.Atoi(value); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f, nil
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b, nil
	}
	return value, nil
}

func printAPIResponse(cmd *cobra.Command, resp *api.Response, include bool, outFile string) error {
	ctx := cmd.Context()
	out := stdout(cmd)

	var body any
	if resp.Shape == api.ShapeBinary {
		body = resp.Media()
	} else {
		body = resp.Value()
	}

	if outFile != "" {
		data := resp.Raw()
		if resp.Shape == api.ShapeBinary {
			data = resp.Media()
		}
		if err := os.WriteFile(outFile, data, 0o644); err != nil {
			return err
		}
		if !flags.Quiet {
			_, _ = fmt.Fprintf(stderr(cmd), "Wrote %s to %s\n", bytefmt.ByteSize(uint64(len(data))), outFile)
		}
		body = nil
	}

	if isJSON(cmd) {
		if resp.Shape == api.ShapeBinary && body != nil {
			body = map[string]any{"bytes": len(resp.Media()), "content_type": resp.ContentType()}
		}
		if !include {
			return printJSON(cmd, body)
		}
		payload := map[string]any{
			"status":  resp.StatusCode,
			"message": resp.StatusMessage,
			"body":    body,
		}
		if rl := resp.RateLimit().Meta(); rl != nil {
			payload["rate_limit"] = rl
		}
		return printJSON(cmd, payload)
	}

	if include {
		au := colors(ctx)
		status := fmt.Sprintf("HTTP %d %s", resp.StatusCode, resp.StatusMessage)
		_, _ = fmt.Fprintln(out, statusColor(au, resp.StatusCode, strings.TrimSpace(status)))
		if ct := resp.ContentType(); ct != "" {
			_, _ = fmt.Fprintf(out, "%s %s\n", dim(au, "Content-Type:"), ct)
		}
		if summary := resp.RateLimit().Summary(); summary != "" {
			_, _ = fmt.Fprintln(out, dim(au, "Rate limit: "+summary))
		}
		_, _ = fmt.Fprintln(out)
	}

	switch v := body.(type) {
	case nil:
		return nil
	case []byte:
		_, err := out.Write(v)
		return err
	default:
		return outfmt.WriteJSON(out, v)
	}
}
