package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/spf13/cobra"

	"github.com/geopost/geopost-cli/internal/api"
	"github.com/geopost/geopost-cli/internal/iocontext"
	"github.com/geopost/geopost-cli/internal/outfmt"
	"github.com/geopost/geopost-cli/internal/urlparse"
)

// errAlreadyHandled marks an error that RunE has already printed.
var errAlreadyHandled = errors.New("error already handled")

type handledError struct {
	err      error
	exitCode int
}

func (e *handledError) Error() string { return e.err.Error() }

func (e *handledError) Unwrap() []error { return []error{e.err, errAlreadyHandled} }

func (e *handledError) ExitCode() int { return e.exitCode }

// RunE wraps a command body so that failures are printed once, as JSON when
// JSON output is active, and carry their exit code.
func RunE(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := fn(cmd, args)
		if err == nil {
			return nil
		}
		if isJSON(cmd) {
			_ = printJSONErr(cmd, api.StructuredErrorFromError(err))
		} else {
			_, _ = fmt.Fprint(stderr(cmd), HandleError(err))
		}
		return &handledError{err: err, exitCode: ExitCode(err)}
	}
}

func stdout(cmd *cobra.Command) io.Writer {
	return iocontext.GetIO(cmd.Context()).Out
}

func stderr(cmd *cobra.Command) io.Writer {
	return iocontext.GetIO(cmd.Context()).ErrOut
}

func isJSON(cmd *cobra.Command) bool {
	return outfmt.IsJSON(cmd.Context())
}

// printJSON writes v through the --query filter.
func printJSON(cmd *cobra.Command, v any) error {
	ctx := cmd.Context()
	return outfmt.WriteJSONFiltered(stdout(cmd), v, outfmt.GetQuery(ctx), outfmt.IsCompact(ctx))
}

func printJSONErr(cmd *cobra.Command, structured *api.StructuredError) error {
	return outfmt.WriteJSONMaybeCompact(stderr(cmd), map[string]any{"error": structured}, outfmt.IsCompact(cmd.Context()))
}

// formatter returns a table writer; --quiet hides its notices.
func formatter(cmd *cobra.Command) *outfmt.Formatter {
	notices := stderr(cmd)
	if flags.Quiet {
		notices = io.Discard
	}
	return outfmt.NewFormatter(cmd.Context(), stdout(cmd), notices)
}

// printAction reports a mutation in text mode.
func printAction(cmd *cobra.Command, action, resource string, id any) {
	if flags.Quiet || isJSON(cmd) {
		return
	}
	_, _ = fmt.Fprintf(stdout(cmd), "%s %s %v\n", action, resource, id)
}

func colorEnabled(ctx context.Context) bool {
	switch flags.Color {
	case "always":
		return true
	case "never":
		return false
	default:
		return iocontext.GetIO(ctx).OutIsTerminal()
	}
}

func colors(ctx context.Context) aurora.Aurora {
	return aurora.NewAurora(colorEnabled(ctx))
}

// statusColor picks green for 2xx, brown for 3xx and red otherwise.
func statusColor(au aurora.Aurora, code int, text string) aurora.Value {
	switch {
	case code >= 200 && code < 300:
		return au.Colorize(text, aurora.GreenFg|aurora.BoldFm)
	case code >= 300 && code < 400:
		return au.Colorize(text, aurora.BrownFg|aurora.BoldFm)
	default:
		return au.Colorize(text, aurora.RedFg|aurora.BoldFm)
	}
}

// dim renders secondary lines in gray.
func dim(au aurora.Aurora, text string) aurora.Value {
	return au.Colorize(text, aurora.GrayFg)
}

const timeLayout = "2006-01-02 15:04"

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}

func parsePositiveInt(input, label string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", label, input)
	}
	return n, nil
}

// parsePostID accepts a bare id or a link to the post
// (https://host/api/posts/7/).
func parsePostID(input string) (int, error) {
	if urlparse.IsLink(input) {
		id, err := urlparse.PostID(input)
		if err != nil {
			return 0, fmt.Errorf("invalid post id: %w", err)
		}
		return id, nil
	}
	return parsePositiveInt(input, "post id")
}

// parsePostIDs accepts ids or links as separate args or comma lists
// ("1,2 3"). Duplicates are dropped; order is kept.
func parsePostIDs(args []string) ([]int, error) {
	var ids []int
	seen := map[int]bool{}
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := parsePostID(part)
			if err != nil {
				return nil, err
			}
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("at least one post id is required")
	}
	return ids, nil
}

func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max-1]) + "…"
}
