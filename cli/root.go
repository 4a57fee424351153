package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/relembraq/relembraq/pkg/config"
	"github.com/relembraq/relembraq/pkg/logger"
	"github.com/relembraq/relembraq/pkg/version"
)

const (
	defaultConfigFile = "relembraq.yaml"
	defaultEnvFile    = ".env"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "relembraq",
		Short:         "Summarize study material into topic mind maps",
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogger(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", defaultConfigFile, "Path to the config file")
	flags.String("env-file", defaultEnvFile, "Path to the environment file")
	flags.String("log-level", "info", "Log level (debug, info, warn, error, disabled)")
	flags.Bool("log-json", false, "Emit logs as JSON")
	flags.Bool("log-source", false, "Include source locations in logs")

	root.AddCommand(
		RunCmd(),
		ConfigCmd(),
		RunsCmd(),
	)

	return root
}

func setupLogger(cmd *cobra.Command) error {
	level, logJSON, logSource, err := logger.GetLoggerConfig(cmd)
	if err != nil {
		return err
	}
	log := logger.SetupLoggerTo(cmd.ErrOrStderr(), level, logJSON, logSource)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logger.ContextWithLogger(ctx, log))
	return nil
}

// loadConfig applies defaults, the YAML file, the environment and the flags
// the user changed, in that order of precedence.
func loadConfig(ctx context.Context, cmd *cobra.Command) (*config.Config, config.Service, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if envFile != "" {
		if err := config.LoadDotEnv(envFile); err != nil {
			return nil, nil, err
		}
	}
	service := config.NewService()
	cfg, err := service.Load(
		ctx,
		config.NewYAMLProvider(configFile),
		config.NewCLIProvider(changedFlags(cmd.Flags())),
	)
	if err != nil {
		return nil, nil, err
	}
	logger.FromContext(ctx).Debug("Configuration loaded", "file", configFile)
	return cfg, service, nil
}

// changedFlags collects flags set on the command line that map to a
// configuration path. Values stay strings; the loader decodes them weakly.
func changedFlags(flags *pflag.FlagSet) map[string]any {
	out := make(map[string]any)
	flags.Visit(func(f *pflag.Flag) {
		if _, ok := config.CLIFlagPath(f.Name); ok {
			out[f.Name] = f.Value.String()
		}
	})
	return out
}
