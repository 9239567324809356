package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/geopost/geopost-cli/internal/config"
	"github.com/geopost/geopost-cli/internal/debug"
	"github.com/geopost/geopost-cli/internal/dryrun"
	"github.com/geopost/geopost-cli/internal/iocontext"
	"github.com/geopost/geopost-cli/internal/outfmt"
	"github.com/geopost/geopost-cli/internal/resolve"
)

// rootFlags holds global CLI flags
type rootFlags struct {
	Output         string
	JSON           bool
	Query          string
	Compact        bool
	Color          string
	Debug          bool
	Quiet          bool
	NoInput        bool
	DryRun         bool
	Profile        string
	BaseURL        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Workers        int
	EnvFile        string
	SecretStore    string
}

// flags is reset at the start of every Execute call; nothing may read it
// outside a command's run.
var flags rootFlags

// defaultIO supplies the process streams; tests swap it for buffers.
var defaultIO = iocontext.DefaultIO

func defaultOutput() string {
	if value := strings.TrimSpace(os.Getenv("GEOPOST_OUTPUT")); value != "" {
		return value
	}
	return "text"
}

// envFileFromArgs finds --env-file before cobra parses anything, since the
// file feeds the defaults of other flags.
func envFileFromArgs(args []string) (string, bool) {
	for i, a := range args {
		if a == "--" {
			break
		}
		if v, ok := strings.CutPrefix(a, "--env-file="); ok {
			return v, true
		}
		if a == "--env-file" && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return config.DefaultEnvFile(), false
}

// Execute runs the root command
func Execute(ctx context.Context, args []string) error {
	ioStreams := defaultIO()

	envFile, explicit := envFileFromArgs(args)
	if err := config.LoadEnvFile(envFile, explicit); err != nil {
		_, _ = fmt.Fprintln(ioStreams.ErrOut, err)
		return &handledError{err: err, exitCode: exitUsage}
	}

	flags = rootFlags{
		Output: defaultOutput(),
		Color:  "auto",
	}

	root := &cobra.Command{
		Use:                "geopost",
		Short:              "Share and browse geotagged photos",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableSuggestions: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if flags.JSON {
				if cmd.Flags().Changed("output") && flags.Output != "json" {
					return fmt.Errorf("--json conflicts with --output %s", flags.Output)
				}
				flags.Output = "json"
			}
			if flags.Query != "" {
				if cmd.Flags().Changed("output") && flags.Output != "json" {
					return fmt.Errorf("--query requires --output json")
				}
				flags.Output = "json"
			}
			mode, err := outfmt.Parse(flags.Output)
			if err != nil {
				return err
			}
			ctx = outfmt.WithMode(ctx, mode)
			ctx = outfmt.WithCompact(ctx, flags.Compact)
			if flags.Query != "" {
				ctx = outfmt.WithQuery(ctx, flags.Query)
			}

			switch flags.Color {
			case "auto", "always", "never":
			default:
				return fmt.Errorf("--color must be auto, always or never")
			}

			ctx = iocontext.WithIO(ctx, ioStreams)
			cmd.SetOut(ioStreams.Out)
			cmd.SetErr(ioStreams.ErrOut)

			debug.SetupLogger(flags.Debug)
			ctx = debug.WithDebug(ctx, flags.Debug)
			ctx = dryrun.WithDryRun(ctx, flags.DryRun)

			cmd.SetContext(ctx)
			return nil
		},
	}

	root.SetContext(ctx)
	root.SetArgs(args)
	root.SetIn(ioStreams.In)
	root.SetOut(ioStreams.Out)
	root.SetErr(ioStreams.ErrOut)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.Output, "output", "o", flags.Output, "Output format: text|json (env GEOPOST_OUTPUT)")
	pf.BoolVarP(&flags.JSON, "json", "j", false, "Shorthand for --output json")
	pf.StringVarP(&flags.Query, "query", "q", "", "jq expression applied to JSON output")
	pf.BoolVar(&flags.Compact, "compact-json", false, "Compact JSON output (no indentation)")
	pf.StringVar(&flags.Color, "color", flags.Color, "Color output: auto|always|never")
	pf.BoolVar(&flags.Debug, "debug", false, "Enable debug logging (env GEOPOST_LOG_FORMAT=json for JSON logs)")
	pf.BoolVarP(&flags.Quiet, "quiet", "Q", false, "Suppress non-essential output")
	pf.BoolVar(&flags.NoInput, "no-input", false, "Never prompt; fail when input is missing")
	pf.BoolVar(&flags.DryRun, "dry-run", false, "Print mutating requests instead of sending them")
	pf.StringVarP(&flags.Profile, "profile", "p", "", "Profile to use (env GEOPOST_PROFILE)")
	pf.StringVar(&flags.BaseURL, "base-url", "", "Server URL, overriding the profile (env GEOPOST_BASE_URL)")
	pf.DurationVar(&flags.ConnectTimeout, "connect-timeout", 0, "Connection timeout (default 10s, env GEOPOST_CONNECT_TIMEOUT)")
	pf.DurationVar(&flags.ReadTimeout, "read-timeout", 0, "Timeout between response bytes (default 10s, env GEOPOST_READ_TIMEOUT)")
	pf.IntVar(&flags.Workers, "workers", 0, "Concurrent background requests (default 4, env GEOPOST_WORKERS)")
	pf.StringVar(&flags.EnvFile, "env-file", "", "Load GEOPOST_* variables from this .env file")
	pf.StringVar(&flags.SecretStore, "secret-store", "", "Where post secrets live: keyring or redis://... (env GEOPOST_SECRET_STORE)")

	root.AddCommand(newAuthCmd())
	root.AddCommand(newSignupCmd())
	root.AddCommand(newPostsCmd())
	root.AddCommand(newCommentsCmd())
	root.AddCommand(newFlagCmd())
	root.AddCommand(newUsersCmd())
	root.AddCommand(newSecretsCmd())
	root.AddCommand(newAPICmd())
	root.AddCommand(newVersionCmd())

	targetCmd, err := root.ExecuteC()
	if err != nil {
		if !errors.Is(err, errAlreadyHandled) {
			_, _ = fmt.Fprintln(root.ErrOrStderr(), enhanceUnknownError(err, root, targetCmd))
		}
		return err
	}
	return nil
}

// enhanceUnknownError adds "did you mean?" suggestions to unknown command/flag errors.
func enhanceUnknownError(err error, root *cobra.Command, targetCmd *cobra.Command) string {
	msg := err.Error()

	if strings.Contains(msg, "unknown command") {
		if unknown := extractQuoted(msg); unknown != "" {
			parent := root
			if targetCmd != nil {
				parent = targetCmd
			}
			var names []string
			for _, c := range parent.Commands() {
				if c.IsAvailableCommand() {
					names = append(names, c.Name())
					names = append(names, c.Aliases...)
				}
			}
			if s := resolve.Suggest(unknown, names, 1); len(s) > 0 {
				return fmt.Sprintf("%s\n\nDid you mean %q?", msg, s[0])
			}
		}
		return msg
	}

	if strings.Contains(msg, "unknown flag") || strings.Contains(msg, "unknown shorthand flag") {
		unknown := strings.TrimLeft(extractFlag(msg), "-")
		if unknown == "" {
			return msg
		}
		cmd := root
		if targetCmd != nil {
			cmd = targetCmd
		}
		var names []string
		collect := func(fs *pflag.FlagSet) {
			fs.VisitAll(func(f *pflag.Flag) { names = append(names, f.Name) })
		}
		collect(cmd.Flags())
		collect(cmd.InheritedFlags())
		help := strings.TrimSpace(cmd.CommandPath()) + " --help"
		if s := resolve.Suggest(unknown, names, 1); len(s) > 0 {
			return fmt.Sprintf("%s\n\nDid you mean \"--%s\"?\nRun %q to see supported flags.", msg, s[0], help)
		}
		return fmt.Sprintf("%s\n\nRun %q to see supported flags.", msg, help)
	}

	return msg
}

// extractQuoted extracts the first double-quoted substring from s.
func extractQuoted(s string) string {
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return ""
	}
	end := strings.IndexByte(s[start+1:], '"')
	if end < 0 {
		return ""
	}
	return s[start+1 : start+1+end]
}

// extractFlag pulls "--foo" or "-f" out of a pflag error message.
func extractFlag(s string) string {
	idx := strings.Index(s, "--")
	if idx < 0 {
		idx = strings.LastIndex(s, " -")
		if idx < 0 {
			return ""
		}
		idx++
	}
	rest := s[idx:]
	if end := strings.IndexByte(rest, ' '); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimRight(rest, ".,;:!?\"'")
}
