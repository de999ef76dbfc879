package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/casepro/gmailbot/internal/errfmt"
	"github.com/casepro/gmailbot/internal/outfmt"
	"github.com/casepro/gmailbot/internal/ui"
)

type rootFlags struct {
	Color       string
	Subject     string
	Credentials string
	JSON        bool
	Plain       bool
	Force       bool
	NoInput     bool
	Verbose     bool
	Trace       bool
}

func Execute(args []string) error {
	flags := rootFlags{Color: envOr("GMAILBOT_COLOR", "auto")}
	envMode := outfmt.FromEnv()
	flags.JSON = envMode.JSON
	flags.Plain = envMode.Plain

	// Avoid dangerous prefix-matching for commands (future-proofing).
	cobra.EnablePrefixMatching = false

	if hasExactArg(args, "--version") {
		fmt.Fprintln(os.Stdout, VersionString())
		return nil
	}

	root := &cobra.Command{
		Use:           "gmailbot",
		Short:         "Service-account CLI for Google Sheets and Gmail (domain-wide delegation)",
		Long:          rootLong(),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Example: strings.TrimSpace(`
  # One-time setup
  gmailbot auth import ~/Downloads/gmail-bot-448408-6b6ec76b9622.json
  gmailbot config set subject admin@yourdomain.com
  gmailbot auth status --check

  # Sheets (defaults to the configured spreadsheet)
  gmailbot sheets metadata
  gmailbot sheets get 'Sheet1!A1:C10'
  gmailbot sheets append 'Sheet1!A:C' --values-json '[["Ada","ada@example.com","new"]]'
  gmailbot sheets get 'Sheet1!A1:C10' --alternate

  # Gmail (read-only)
  gmailbot gmail search 'newer_than:7d' --max 10
  gmailbot gmail get <messageId>

  # Parseable output
  gmailbot --json sheets metadata | jq .
	`),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logLevel := slog.LevelWarn
			if flags.Verbose || flags.Trace {
				logLevel = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel,
			})))

			mode, err := outfmt.FromFlags(flags.JSON, flags.Plain)
			if err != nil {
				return err
			}
			cmd.SetContext(outfmt.WithMode(cmd.Context(), mode))

			u, err := ui.New(ui.Options{
				Stdout: os.Stdout,
				Stderr: os.Stderr,
				Color: func() string {
					if outfmt.IsJSON(cmd.Context()) || outfmt.IsPlain(cmd.Context()) {
						return "never"
					}
					return flags.Color
				}(),
			})
			if err != nil {
				return err
			}
			cmd.SetContext(ui.WithUI(cmd.Context(), u))
			return nil
		},
	}

	root.SetArgs(args)
	root.PersistentFlags().StringVar(&flags.Color, "color", flags.Color, "Color output: auto|always|never")
	root.PersistentFlags().StringVar(&flags.Subject, "subject", "", "User to impersonate (overrides GMAILBOT_SUBJECT and config)")
	root.PersistentFlags().StringVar(&flags.Credentials, "credentials", "", "Service account key file (overrides GMAILBOT_CREDENTIALS and config)")
	root.PersistentFlags().BoolVar(&flags.JSON, "json", flags.JSON, "Output JSON to stdout (best for scripting)")
	root.PersistentFlags().BoolVar(&flags.Plain, "plain", flags.Plain, "Output stable, parseable text to stdout (TSV; no colors)")
	root.PersistentFlags().BoolVar(&flags.Force, "force", false, "Skip confirmations for destructive commands")
	root.PersistentFlags().BoolVar(&flags.NoInput, "no-input", false, "Never prompt; fail instead (useful for CI)")
	root.PersistentFlags().BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	root.PersistentFlags().BoolVar(&flags.Trace, "trace", false, "Log every Google API request (implies --verbose)")

	root.AddCommand(newAuthCmd(&flags))
	root.AddCommand(newConfigCmd(&flags))
	root.AddCommand(newSheetsCmd(&flags))
	root.AddCommand(newGmailCmd(&flags))
	root.AddCommand(newVersionCmd())

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		// pflag already includes helpful context ("unknown flag", "invalid argument", ...).
		return newUsageError(err)
	})
	root.AddCommand(newCompletionCmd())

	err := root.Execute()
	if err == nil {
		return nil
	}
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}

	if ExitCode(err) == 1 && isUsageError(err) {
		err = &ExitError{Code: 2, Err: err}
	}

	if u := ui.FromContext(root.Context()); u != nil {
		u.Err().Error(errfmt.Format(err))
		return err
	}
	_, _ = fmt.Fprintln(os.Stderr, errfmt.Format(err))
	return err
}

func rootLong() string {
	lines := []string{
		"Service-account CLI for Google Sheets and Gmail (domain-wide delegation).",
		"",
		"The service account impersonates --subject with the scopes",
		"spreadsheets (read-write) and gmail.readonly.",
		"",
	}
	if path, err := configPath(); err == nil {
		lines = append(lines, "Config: "+path+" (JSON5; see: gmailbot config show)")
	}
	lines = append(lines, "Keys: imported service account keys live in the OS keyring (keyring backend: config key keyring_backend)")
	return strings.Join(lines, "\n")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func hasExactArg(args []string, target string) bool {
	for _, a := range args {
		if a == target {
			return true
		}
	}
	return false
}

// newUsageError wraps errors in a way main() can map to exit code 2.
func newUsageError(err error) error {
	if err == nil {
		return nil
	}
	// Preserve pflag.ErrHelp (should not be treated as failure).
	if errors.Is(err, pflag.ErrHelp) {
		return err
	}
	return &ExitError{Code: 2, Err: err}
}

func usage(msg string) error {
	return &ExitError{Code: 2, Err: errors.New(msg)}
}

func isUsageError(err error) bool {
	var outErr *outfmt.ParseError
	if errors.As(err, &outErr) {
		return true
	}
	var uiErr *ui.ParseError
	if errors.As(err, &uiErr) {
		return true
	}
	msg := strings.TrimSpace(err.Error())
	switch {
	case strings.HasPrefix(msg, "accepts "),
		strings.HasPrefix(msg, "requires "),
		strings.HasPrefix(msg, "unknown command"),
		strings.HasPrefix(msg, "invalid argument"),
		strings.HasPrefix(msg, "unknown flag"),
		strings.HasPrefix(msg, "unknown shorthand flag"):
		return true
	default:
		return false
	}
}
