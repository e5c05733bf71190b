package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/goliatone/go-formstate/pkg/builder"
	"github.com/goliatone/go-formstate/pkg/prompt"
)

// app carries state shared by every command. Configuration precedence is
// flags, then FORMCTL_* environment variables, then the config file.
type app struct {
	v      *viper.Viper
	logger *zap.Logger
	driver prompt.Driver
}

func newRootCmd(a *app) *cobra.Command {
	if a.v == nil {
		a.v = viper.New()
	}

	root := &cobra.Command{
		Use:   "formctl",
		Short: "Validate, fill and import declarative form definitions",
		Long: `formctl works with JSON or YAML form declarations.

Examples:
  formctl validate signup.yaml
  formctl validate signup.yaml --values answers.json --format json
  formctl fill signup.yaml --output pretty
  formctl import-openapi petstore.yaml --operation createPet > pet.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().String("config", "", "config file (default .formctl.yaml, can also use FORMCTL_CONFIG_FILE)")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newValidateCmd(a), newFillCmd(a), newImportCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	if err := a.v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	a.v.SetEnvPrefix("FORMCTL")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()

	cfgFile := a.v.GetString("config")
	if cfgFile == "" {
		cfgFile = os.Getenv("FORMCTL_CONFIG_FILE")
	}
	if cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		a.v.AddConfigPath(".")
		a.v.SetConfigType("yaml")
		a.v.SetConfigName(".formctl")
		if err := a.v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("read config: %w", err)
			}
		}
	}

	logger, err := newLogger(a.v.GetString("log-level"))
	if err != nil {
		return err
	}
	a.logger = logger
	if used := a.v.ConfigFileUsed(); used != "" {
		a.logger.Debug("config loaded", zap.String("file", used))
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	if lvl.Level() == zap.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func (a *app) builder() *builder.Builder {
	return builder.New(builder.WithLogger(a.logger))
}

func (a *app) loadDeclaration(path string) (*builder.Builder, []byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read declaration: %w", err)
	}
	return a.builder(), raw, nil
}
