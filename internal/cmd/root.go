package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/steipete/gogsa/internal/config"
	"github.com/steipete/gogsa/internal/errfmt"
	"github.com/steipete/gogsa/internal/outfmt"
	"github.com/steipete/gogsa/internal/ui"
)

type rootFlags struct {
	Color       string
	Credentials string
	Account     string
	Spreadsheet string
	EnvFile     string
	Scope       string
	Timeout     time.Duration
	JSON        bool
	Plain       bool
	Verbose     bool
}

func Execute(args []string) error {
	flags := rootFlags{
		Color:   envOr("GOGSA_COLOR", "auto"),
		Account: os.Getenv(config.EnvAccount),
		EnvFile: config.DefaultEnvFile,
		Scope:   "sheets",
	}
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
		Use:           "gogsa",
		Short:         "Google Sheets as a service account (JWT-bearer, no browser login)",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Example: strings.TrimSpace(`
  # Credentials: a service-account key file, shared on the spreadsheet
  export SPREADSHEET_ID=1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms
  gogsa --credentials ./credentials.json read 'Sheet1!A1:C10'

  # Or keep the key in the OS keyring
  gogsa credentials set ./credentials.json
  gogsa --account bot@project.iam.gserviceaccount.com read 'Sheet1!A1:C10'

  # Write (RAW by default; --input user-entered evaluates formulas)
  gogsa write 'Sheet1!A1' --values '[["Test1","Test2","Test3"],["Test4","Test5","Test6"]]'

  # QUERY formula written to E1, result read back from E:F
  gogsa query A:C C Test6 --formula-cell 'Sheet1!E1' --result 'Sheet1!E:F'

  # Set column B wherever column C equals Test3
  gogsa update-where 'Sheet1!A2:C' 2 Test3 1 DONE

  # Parseable output
  gogsa --json read 'Sheet1!A:C' | jq .values
`),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logLevel := slog.LevelWarn
			if flags.Verbose {
				logLevel = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel,
			})))

			if err := config.LoadEnv(flags.EnvFile); err != nil {
				return err
			}

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
	root.PersistentFlags().StringVar(&flags.Credentials, "credentials", "", "Service account key file (default $GOGSA_CREDENTIALS or ./credentials.json)")
	root.PersistentFlags().StringVar(&flags.Account, "account", flags.Account, "Use a service account stored in the keyring instead of a key file")
	root.PersistentFlags().StringVar(&flags.Spreadsheet, "spreadsheet", "", "Spreadsheet ID (default $SPREADSHEET_ID)")
	root.PersistentFlags().StringVar(&flags.EnvFile, "env-file", flags.EnvFile, "Load KEY=VALUE pairs from this file when it exists")
	root.PersistentFlags().StringVar(&flags.Scope, "scope", flags.Scope, "OAuth scope: sheets|sheets.readonly|drive.readonly (comma-separated) or a scope URL")
	root.PersistentFlags().DurationVar(&flags.Timeout, "timeout", 0, "Deadline for the whole command including token minting (0 = none)")
	root.PersistentFlags().BoolVar(&flags.JSON, "json", flags.JSON, "Output JSON to stdout (best for scripting)")
	root.PersistentFlags().BoolVar(&flags.Plain, "plain", flags.Plain, "Output stable, parseable text to stdout (TSV; no colors)")
	root.PersistentFlags().BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")

	root.AddCommand(newReadCmd(&flags))
	root.AddCommand(newWriteCmd(&flags))
	root.AddCommand(newQueryCmd(&flags))
	root.AddCommand(newUpdateWhereCmd(&flags))
	root.AddCommand(newAuthCmd(&flags))
	root.AddCommand(newCredentialsCmd(&flags))
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
