package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Netonia/POIMapper/internal/app"
	"github.com/Netonia/POIMapper/internal/config"
	"github.com/Netonia/POIMapper/pkg/logging"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	configPath string
	storage    string
	logLevel   string
}

var rootCmd = NewRootCmd()

// NewRootCmd builds the command tree. Each call returns independent flag
// state.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "poimapper",
		Short: "POIMapper - manage and export points of interest",
		Long: `POIMapper stores geotagged points of interest and exports them as
JSON, CSV, GeoJSON or through a user-supplied Liquid-style template.

The same storage backends and configuration are shared with the web server
(see 'poimapper serve').`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file (env: POIMAPPER_CONFIG)")
	flags.StringVar(&opts.storage, "storage", "", "storage driver override: memory, sqlite, redis, postgres, mongo")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level override: debug, info, warn, error")

	cmd.AddCommand(
		newListCmd(opts),
		newGetCmd(opts),
		newAddCmd(opts),
		newUpdateCmd(opts),
		newDeleteCmd(opts),
		newExportCmd(opts),
		newServeCmd(opts),
	)
	return cmd
}

// Execute runs the root command. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

// loadConfig resolves configuration and applies flag overrides. A non-empty
// defaultLevel replaces the configured log level unless --log-level is given.
func (o *globalOptions) loadConfig(cmd *cobra.Command, defaultLevel string) (*config.Config, error) {
	path := o.configPath
	if path == "" {
		path = os.Getenv("POIMAPPER_CONFIG")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if o.storage != "" {
		cfg.Storage.Driver = o.storage
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	level := cfg.Log.Level
	if defaultLevel != "" {
		level = defaultLevel
	}
	if o.logLevel != "" {
		level = o.logLevel
	}
	slog.SetDefault(logging.New(cmd.ErrOrStderr(), logging.ParseLevel(level)))
	return cfg, nil
}

// openApp loads configuration and opens storage. Data commands log at warn
// so their output stays clean.
func (o *globalOptions) openApp(ctx context.Context, cmd *cobra.Command) (*app.App, error) {
	cfg, err := o.loadConfig(cmd, "warn")
	if err != nil {
		return nil, err
	}
	return app.Open(ctx, cfg)
}
