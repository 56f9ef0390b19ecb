package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/expensebook/sheetsync/internal/buildinfo"
	"github.com/expensebook/sheetsync/internal/config"
	"github.com/expensebook/sheetsync/internal/logging"
	"github.com/expensebook/sheetsync/internal/model"
	"github.com/expensebook/sheetsync/internal/report"
)

// DefaultConfigFile is picked up from the working directory when no
// --config is given.
const DefaultConfigFile = "sheetsync.yaml"

// Environment variables consulted for flags left unset.
const (
	EnvConfig    = "SHEETSYNC_CONFIG"
	EnvLogLevel  = "SHEETSYNC_LOG_LEVEL"
	EnvLogFormat = "SHEETSYNC_LOG_FORMAT"
)

type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	envFile    string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "sheetsync",
		Short:   "Normalize expense spreadsheets into tracking-app JSON and back",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (.yaml or .toml; default ./"+DefaultConfigFile+" if present)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	flags.StringVar(&opts.envFile, "env-file", "", "dotenv file to load before reading environment defaults (default ./.env if present)")

	rootCmd.AddCommand(
		newConvertCommand(opts),
		newExportCommand(),
		newTrimCommand(opts),
		newCheckCommand(),
		newInitCommand(),
	)

	return rootCmd
}

// setup loads the dotenv file, applies environment defaults to flags the
// user did not set, configures logging and tags the context with a run id.
func (o *globalOptions) setup(cmd *cobra.Command) error {
	switch {
	case o.envFile != "":
		if err := godotenv.Load(o.envFile); err != nil {
			return fmt.Errorf("loading env file: %w", err)
		}
	case fileExists(".env"):
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("loading .env: %w", err)
		}
	}

	flags := cmd.Flags()
	for flag, env := range map[string]string{"config": EnvConfig, "log-level": EnvLogLevel, "log-format": EnvLogFormat} {
		if flags.Changed(flag) {
			continue
		}
		if v, ok := os.LookupEnv(env); ok && v != "" {
			if err := flags.Set(flag, v); err != nil {
				return fmt.Errorf("applying %s: %w", env, err)
			}
		}
	}

	logging.Setup(o.logLevel, o.logFormat)
	cmd.SetContext(logging.WithRunID(cmd.Context(), uuid.NewString()))
	return nil
}

// loadConfig returns the config named by --config, the default file if it
// exists, or the built-in defaults.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	path := o.configPath
	if path == "" {
		if !fileExists(DefaultConfigFile) {
			return config.Default(), nil
		}
		path = DefaultConfigFile
	}
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, model.ErrConfigInvalid) {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return nil, fmt.Errorf("%w: %w", model.ErrConfigInvalid, err)
	}
	return cfg, nil
}

// noInput reports a missing input to the user. It returns true when err
// means there was nothing to do.
func noInput(w io.Writer, err error) bool {
	if !errors.Is(err, model.ErrSourceUnavailable) {
		return false
	}
	fmt.Fprintln(w, "No input selected; nothing to do.")
	return true
}

// withExt replaces the extension of path; suffix is appended to the stem.
func withExt(path, suffix, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + suffix + ext
}

func appendRunLog(path, command, input string, outcomes []report.Outcome) error {
	if path == "" {
		return nil
	}
	entries := report.EntriesFromOutcomes(time.Now().UTC(), command, input, outcomes)
	if err := report.AppendLog(path, entries); err != nil {
		return fmt.Errorf("writing run log: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
