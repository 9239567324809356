// Package dryrun previews mutating requests without sending them.
package dryrun

import (
	"context"
	"fmt"
	"io"
	"strings"
)

type contextKey string

const dryRunKey contextKey = "dry_run_enabled"

// WithDryRun returns a context with dry-run mode enabled/disabled.
func WithDryRun(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, dryRunKey, enabled)
}

// IsEnabled returns true if dry-run mode is enabled.
func IsEnabled(ctx context.Context) bool {
	if v, ok := ctx.Value(dryRunKey).(bool); ok {
		return v
	}
	return false
}

// Field is one request parameter as it would be sent.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Preview describes a request that was not sent.
type Preview struct {
	Method   string   `json:"method"`
	URL      string   `json:"url"`
	Action   string   `json:"action"`
	Fields   []Field  `json:"fields,omitempty"`
	Headers  []string `json:"headers,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Write prints the preview in request order.
func (p *Preview) Write(w io.Writer) {
	_, _ = fmt.Fprintf(w, "[DRY-RUN] Would %s\n", p.Action)
	_, _ = fmt.Fprintf(w, "  %s %s\n", p.Method, p.URL)

	for _, h := range p.Headers {
		_, _ = fmt.Fprintf(w, "  %s\n", h)
	}
	if len(p.Fields) > 0 {
		width := 0
		for _, f := range p.Fields {
			width = max(width, len(f.Name))
		}
		for _, f := range p.Fields {
			_, _ = fmt.Fprintf(w, "    %s%s  %s\n", f.Name, strings.Repeat(" ", width-len(f.Name)), f.Value)
		}
	}
	for _, warning := range p.Warnings {
		_, _ = fmt.Fprintf(w, "  ! %s\n", warning)
	}
	_, _ = fmt.Fprintln(w, "No changes made (dry-run mode)")
}
