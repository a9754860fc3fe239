// Package cli provides command-line interface for the retro registry client.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/retro-registry/nlretro/internal/api"
	"github.com/retro-registry/nlretro/internal/config"
	"github.com/retro-registry/nlretro/internal/models"
)

const (
	// PackageVersion is the current version of the CLI
	PackageVersion = "1.0.0"

	// ExitFailure is returned for usage, transport, HTTP and decode errors
	ExitFailure = 1
)

const (
	usageFormat       = "Usage: %s searchstring\n"
	recordFormat      = "Naam: %s,datum: %s\n"
	msgForbidden      = "Access forbidden - are you whitelisted?"
	msgUndefinedError = "undefined error"
	msgDecodeFailed   = "Error: Decoding of JSON has failed."
	msgEntryError     = "[key-value error]"
)

// ExitError carries the process exit code of a command that has already
// reported its failure on stdout.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

type queryOptions struct {
	apiURL     string
	searchPath string
	configPath string
	timeout    int
	insecure   bool
	debug      bool
}

// NewQueryCommand creates the registry search command.
func NewQueryCommand() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:     "nlretro searchstring",
		Short:   "Search the retro domain registry",
		Long:    `Query the retro domain registry for a search string and print every matching record with its date.`,
		Version: PackageVersion,
		Example: `  # Search with the public endpoint
  nlretro acropolis

  # Search against another endpoint with a 5 second timeout
  nlretro --api-url https://registry.example.test/ --timeout 5 acropolis

  # Reproduce the legacy fixed search path
  nlretro --search-path search/acropolis anything`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.apiURL, "api-url", "u", os.Getenv("NLRETRO_API_URL"), "Base URL of the registry (default: from config or "+config.DefaultAPIURL+")")
	cmd.Flags().StringVarP(&opts.searchPath, "search-path", "s", "", "Search path template, {term} is replaced by the search string (default: from config or "+config.DefaultSearchPath+")")
	cmd.Flags().IntVarP(&opts.timeout, "timeout", "T", 0, fmt.Sprintf("Request timeout in seconds, 0 disables it (default: from config or %d)", config.DefaultTimeout))
	cmd.Flags().BoolVarP(&opts.insecure, "insecure", "i", false, "Skip TLS certificate verification")
	cmd.Flags().BoolVarP(&opts.debug, "debug", "d", false, "Log request details to stderr")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", os.Getenv("NLRETRO_CONFIG"), "Path to config file")

	return cmd
}

func runQuery(cmd *cobra.Command, opts queryOptions, args []string) error {
	out := cmd.OutOrStdout()

	var term models.SearchTerm
	if len(args) > 0 {
		term = models.SearchTerm(args[0])
	}
	if err := term.Validate(); err != nil {
		fmt.Fprintf(out, usageFormat, os.Args[0])
		return &ExitError{Code: ExitFailure, Err: err}
	}

	log := newLogger(cmd.ErrOrStderr(), opts.debug)
	if len(args) > 1 {
		log.Debug().Strs("ignored", args[1:]).Msg("Extra arguments ignored")
	}

	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return &ExitError{Code: ExitFailure, Err: err}
	}

	client := api.NewClient(cfg, log)
	log.Debug().
		Str("url", client.SearchURL(term)).
		Dur("timeout", time.Duration(cfg.GetTimeout())*time.Second).
		Bool("insecure", cfg.Insecure).
		Msg("Querying registry")
	if cfg.Insecure {
		log.Warn().Msg("TLS certificate verification is DISABLED - USE ONLY FOR TESTING")
	}

	res, err := client.Search(cmd.Context(), term)
	if err != nil {
		printError(out, err)
		return &ExitError{Code: ExitFailure, Err: err}
	}

	printRecords(out, res, log)
	return nil
}

// loadConfig merges flags over the config file over defaults.
func loadConfig(cmd *cobra.Command, opts queryOptions) (*config.Config, error) {
	cfg := &config.Config{}
	if opts.configPath != "" {
		loaded, err := config.LoadConfig(opts.configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("timeout") && opts.timeout < 0 {
		return nil, fmt.Errorf("invalid timeout: %d (must not be negative)", opts.timeout)
	}

	config.ApplyStringOverride(opts.apiURL, &cfg.APIURL, config.DefaultAPIURL)
	config.ApplyStringOverride(opts.searchPath, &cfg.SearchPath, config.DefaultSearchPath)
	config.ApplyIntOverride(cmd.Flags().Changed("timeout"), opts.timeout, &cfg.Timeout)
	config.ApplyBoolOverride(cmd.Flags().Changed("insecure"), opts.insecure, &cfg.Insecure)

	if err := config.ValidateAPIURL(cfg.APIURL); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printError(out io.Writer, err error) {
	var httpErr *api.HTTPError
	var decErr *api.DecodeError
	var trErr *api.TransportError

	switch {
	case errors.As(err, &httpErr):
		fmt.Fprintf(out, "Error (%d):\n", httpErr.StatusCode)
		switch {
		case httpErr.Forbidden():
			fmt.Fprintln(out, msgForbidden)
		case httpErr.HasMessage:
			fmt.Fprintln(out, httpErr.Message)
		default:
			fmt.Fprintln(out, msgUndefinedError)
		}
	case errors.As(err, &decErr):
		fmt.Fprintln(out, msgDecodeFailed)
	case errors.As(err, &trErr):
		fmt.Fprintf(out, "Error: %v\n", trErr)
	default:
		fmt.Fprintf(out, "Error: %v\n", err)
	}
}

// printRecords writes one line per record. A record that cannot be rendered
// gets the entry error marker and the listing continues.
func printRecords(out io.Writer, res *models.QueryResult, log zerolog.Logger) {
	for _, rec := range res.Records {
		name, value, err := rec.Format()
		if err != nil {
			log.Debug().Err(err).Msg("Record could not be rendered")
			fmt.Fprintln(out, msgEntryError)
			continue
		}
		fmt.Fprintf(out, recordFormat, name, value)
	}
}
