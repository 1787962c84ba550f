// Package commands provides the cobra command for the store client.
// It wires flags, environment variables and config files into a client.Config,
// builds the payload from positional arguments and reports the outcome.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"store/internal/client"
	"store/internal/logging"
	"store/internal/version"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag names.
const (
	flagAPIToken  = "api-token"
	flagAPIURL    = "api-url"
	flagProject   = "project"
	flagType      = "type"
	flagTimeout   = "timeout"
	flagConfig    = "config"
	flagEnvFile   = "env-file"
	flagOutput    = "output"
	flagVerbose   = "verbose"
	flagLogFormat = "log-format"
)

const longDescription = `Store data in the storage API.

Data is given either as a single JSON value or as key=value pairs:

  store '{"enabled": true}'
  store key1=value1 key2=value2

Values in key=value pairs are decoded as JSON when possible (count=3 is a
number, ok=true a boolean) and sent as strings otherwise.

Data starting with a dash would be read as a flag; put -- before it:

  store -- -5

The API token, URL and project slug come from flags, the STORE_API_TOKEN,
STORE_API_URL and STORE_PROJECT environment variables (also read from a .env
file), or a store.yaml (or store.yml) config file, in that order of precedence.`

// flagBindings maps viper keys to the flags that override them.
//
//nolint:gochecknoglobals // Static flag to config key table.
var flagBindings = map[string]string{
	client.KeyAPIToken: flagAPIToken,
	client.KeyAPIURL:   flagAPIURL,
	client.KeyProject:  flagProject,
	client.KeyDataType: flagType,
	client.KeyTimeout:  flagTimeout,
}

// NewRootCmd creates the store command.
// SilenceUsage and SilenceErrors are set; errors are returned to Execute,
// which reports them through client.Reporter.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "store <json-string> | store key1=value1 [key2=value2 ...]",
		Short:         "Store data in the storage API",
		Long:          longDescription,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: requires a JSON string or at least one key=value pair", client.ErrInvalidArgument)
			}
			return nil
		},
		RunE: runStore,
	}

	cmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", client.ErrInvalidArgument, err)
	})

	flags := cmd.Flags()
	flags.String(flagAPIToken, "", "API token (or set "+client.EnvAPIToken+")")
	flags.String(flagAPIURL, "", "API URL (or set "+client.EnvAPIURL+")")
	flags.String(flagProject, "", "Project slug (or set "+client.EnvProject+")")
	flags.String(flagType, "", "Data type categorization (optional)")
	flags.Duration(flagTimeout, client.DefaultTimeout, "Request timeout (or set "+client.EnvTimeout+")")
	flags.String(flagConfig, "", "Config file (default: ./store.yaml or ~/.config/store/store.yaml)")
	flags.String(flagEnvFile, client.DefaultEnvFile, "Dotenv file loaded before reading the environment")
	flags.StringP(flagOutput, "o", client.OutputText, "Output format (text, json)")
	flags.BoolP(flagVerbose, "v", false, "Log request details to stderr")
	flags.String(flagLogFormat, logging.FormatText, "Log format (text, json)")

	return cmd
}

// Execute runs the store command with args and returns the process exit code.
// Every failure, including flag and argument errors, is reported on stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		format, _ := cmd.Flags().GetString(flagOutput)
		_ = client.NewReporter(stdout, stderr, format).Failure(err)
		return 1
	}
	return 0
}

func runStore(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	format, _ := flags.GetString(flagOutput)
	if !client.ValidOutputFormat(format) {
		return fmt.Errorf("%w: unsupported output format %q (want text or json)", client.ErrInvalidArgument, format)
	}

	cfg, err := resolveConfig(flags)
	if err != nil {
		return err
	}

	data, err := client.ParseData(args)
	if err != nil {
		return fmt.Errorf("failed to parse data input: %w", err)
	}

	logger, err := newLogger(flags, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("%w: %w", client.ErrInvalidArgument, err)
	}

	c, err := client.NewClient(cfg, client.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
	defer cancel()

	result, err := c.Store(ctx, data)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return fmt.Errorf("request cancelled: %w", err)
		}
		return err
	}

	return client.NewReporter(cmd.OutOrStdout(), cmd.ErrOrStderr(), format).Success(result)
}

// resolveConfig merges the dotenv file, environment, config file and flags.
func resolveConfig(flags *pflag.FlagSet) (*client.Config, error) {
	envFile, _ := flags.GetString(flagEnvFile)
	if err := client.LoadEnvFile(envFile, flags.Changed(flagEnvFile)); err != nil {
		return nil, err
	}

	v := client.NewViper()
	if err := bindFlags(v, flags); err != nil {
		return nil, err
	}

	configPath, _ := flags.GetString(flagConfig)
	if err := client.ReadConfigFile(v, configPath); err != nil {
		return nil, err
	}

	return client.FromViper(v)
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for key, name := range flagBindings {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return fmt.Errorf("binding flag --%s: %w", name, err)
		}
	}
	return nil
}

func newLogger(flags *pflag.FlagSet, w io.Writer) (logging.ApplicationLogger, error) {
	verbose, _ := flags.GetBool(flagVerbose)
	logFormat, _ := flags.GetString(flagLogFormat)

	level := logging.LevelWarn
	if verbose {
		level = logging.LevelDebug
	}

	return logging.NewApplicationLogger(logging.Config{
		Level:  level,
		Format: logFormat,
		Output: w,
	})
}
