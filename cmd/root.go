package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/pvnet/internal/config"
	"github.com/okian/pvnet/pkg/logger"
)

// rootOptions carries the persistent flags and the configuration loaded from them.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "pvnet",
		Short: "Possession-value dataset builder",
		Long: `Clean soccer event logs, derive per-event features, label each event with
whether a shot or goal follows within the next k events of its possession,
and split the result by match into train, validation and test sets.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: o.setup,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&o.configPath, "config", "", "YAML config file (overrides "+config.EnvFile+")")
	flags.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&o.logFormat, "log-format", "", "log format: text or json")

	cmd.AddCommand(
		newBuildCmd(o),
		newServeCmd(o),
		newGenerateCmd(o),
		newCheckCmd(o),
	)
	return cmd
}

// setup loads configuration (defaults -> optional file -> env -> flags) and
// initializes logging on stderr so stdout stays free for command output.
func (o *rootOptions) setup(cmd *cobra.Command, _ []string) error {
	if o.configPath != "" {
		if err := os.Setenv(config.EnvFile, o.configPath); err != nil {
			return fmt.Errorf("set %s: %w", config.EnvFile, err)
		}
	}
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		cfg.LogFormat = o.logFormat
	}

	if err := logger.Init(
		logger.WithFormat(logger.Format(cfg.LogFormat)),
		logger.WithWriter(cmd.ErrOrStderr()),
	); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	o.cfg = cfg
	return nil
}
