// Package main provides the ccconform CLI entry point.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/gauthierbraillon/ccconform/internal/config"
	"github.com/gauthierbraillon/ccconform/internal/conformance"
	"github.com/gauthierbraillon/ccconform/internal/contentcloud"
	"github.com/gauthierbraillon/ccconform/internal/display"
	"github.com/gauthierbraillon/ccconform/internal/log"
	"github.com/gauthierbraillon/ccconform/internal/metrics"
	"github.com/gauthierbraillon/ccconform/pkg/token"
)

var errChecksFailed = errors.New("conformance checks did not pass")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd creates the root command for ccconform CLI.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "ccconform",
		Short:        "Check a Content Cloud listing endpoint for conformance",
		Long:         "ccconform runs the Content Cloud conformance checks against a listing endpoint: authentication, content type, pagination and per-record field rules.",
		Version:      resolveVersion(version, readBuildInfo()),
		SilenceUsage: true,
	}

	rootCmd.SetVersionTemplate("ccconform version {{.Version}}\n")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newKeygenCmd())

	return rootCmd
}

// newRunCmd creates the run subcommand.
func newRunCmd() *cobra.Command {
	var o config.Overrides

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the conformance checks",
		Long:  "Run every conformance check against the endpoint, in order, and print the report. Exits non-zero unless every check passed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(o)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			logger := log.New(log.Config{
				Level:   cfg.LogLevel,
				Output:  cmd.ErrOrStderr(),
				Console: cfg.Output == config.OutputText,
			})

			raw := cfg.Token
			if cfg.GenerateToken() {
				raw, err = token.NewProvider(cfg.KeyPath).Generate(ctx)
				if err != nil {
					return fmt.Errorf("could not generate a token (set --token or %s): %w", config.TokenEnv[1], err)
				}
				logger.Debug().Str("key", cfg.KeyPath).Msg("generated bearer token")
			}

			client := contentcloud.NewClient(
				contentcloud.WithUserAgent("ccconform/"+resolveVersion(version, readBuildInfo())),
				contentcloud.WithLogger(log.WithComponent(logger, "client")),
			)

			suite := conformance.NewSuite(&conformance.Env{
				Client:             client,
				BaseURL:            cfg.Endpoint,
				Token:              raw,
				RequestTimeout:     cfg.RequestTimeout,
				AggregationTimeout: cfg.AggregationTimeout,
				MaxPages:           cfg.MaxPages,
				Logger:             log.WithComponent(logger, "suite"),
			})

			report := suite.Run(ctx)
			if err := writeReport(cmd.OutOrStdout(), cfg.Output, report); err != nil {
				return err
			}

			if cfg.MetricsFile != "" {
				recorder := metrics.NewRecorder()
				recorder.Observe(report)
				if err := recorder.WriteTextfile(cfg.MetricsFile); err != nil {
					return err
				}
				logger.Debug().Str("path", cfg.MetricsFile).Msg("wrote metrics")
			}

			if !report.Passed() {
				return errChecksFailed
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&o.Endpoint, "endpoint", "e", "", "Listing endpoint URL (default "+config.DefaultEndpoint()+")")
	flags.StringVarP(&o.Token, "token", "t", "", "Bearer token; generated from --key when empty")
	flags.StringVarP(&o.KeyPath, "key", "k", "", "PEM private key used to sign generated tokens (default "+token.DefaultKeyPath+")")
	flags.DurationVar(&o.RequestTimeout, "timeout", 0, "Per-request timeout (default "+config.DefaultRequestTimeout.String()+")")
	flags.DurationVar(&o.AggregationTimeout, "aggregation-timeout", 0, "Total budget for following pagination (default "+config.DefaultAggregationTimeout.String()+")")
	flags.IntVar(&o.MaxPages, "max-pages", 0, "Maximum pages to follow before failing")
	flags.StringVar(&o.LogLevel, "log-level", "", "Log level: debug, info, warn, error (default info)")
	flags.StringVarP(&o.Output, "output", "o", "", "Report format: text or json (default text)")
	flags.StringVar(&o.MetricsFile, "metrics-file", "", "Write Prometheus textfile metrics of the run to this path")

	return cmd
}

func writeReport(w io.Writer, format string, report *conformance.Report) error {
	if format == config.OutputJSON {
		out, err := display.FormatJSON(report)
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(w, out)
		return err
	}

	_, err := fmt.Fprint(w, display.NewTerminalFormatter().FormatReport(report))
	return err
}

// newTokenCmd creates the token subcommand.
func newTokenCmd() *cobra.Command {
	var keyPath string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a freshly signed bearer token",
		Long:  "Sign a bearer token with the configured private key and print it, for use with other HTTP tools.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.Overrides{KeyPath: keyPath})
			if err != nil {
				return err
			}

			raw, err := token.NewProvider(cfg.KeyPath).Generate(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}

	cmd.Flags().StringVarP(&keyPath, "key", "k", "", "PEM private key (default "+token.DefaultKeyPath+")")

	return cmd
}

// newKeygenCmd creates the keygen subcommand.
func newKeygenCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "keygen [path]",
		Short: "Generate an RSA signing key",
		Long:  "Write a new RSA private key for signing tokens and print its public key, which the endpoint uses to verify them.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := token.DefaultKeyPath
			if len(args) == 1 {
				path = args[0]
			} else if cfg, err := config.Load(config.Overrides{}); err == nil {
				path = cfg.KeyPath
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			key, err := token.GenerateKeyFile(path)
			if err != nil {
				return err
			}

			pub, err := token.EncodePublicKey(&key.PublicKey)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Private key written to %s\n", path)
			_, err = cmd.OutOrStdout().Write(pub)
			return err
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing key")

	return cmd
}
