// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package main

import (
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/expertbridge/postrec/internal/config"
	"github.com/expertbridge/postrec/internal/secrets"
	recerr "github.com/expertbridge/postrec/pkg/errors"
)

// secretStoreFactory creates a secrets.Store. It is a package-level variable
// so tests can substitute an in-memory implementation.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyringStore()
}

// NewRootCmd creates the root postrec command with all subcommands registered.
// Each root owns its Viper instance so commands built in tests do not share state.
func NewRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:           "postrec",
		Short:         "postrec: content-based post recommendations",
		Long:          "postrec embeds short posts, indexes them, and recommends the closest posts for a query or tag set.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd, v)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "path to data directory")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(v),
		newAddCmd(v),
		newImportCmd(v),
		newRecommendCmd(v),
		newStatsCmd(v),
		newSecretCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper sets up v with defaults, env bindings, flag bindings, and the
// optional config file so the standard precedence (flag > env > file >
// defaults) is handled uniformly. keyring:// values are resolved last.
func initViper(cmd *cobra.Command, v *viper.Viper) error {
	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return recerr.Errorf(recerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// SetConfigType is omitted so Viper never mistakes a ./postrec
		// binary for an extensionless config file.
		v.SetConfigName("postrec")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/postrec")
		v.AddConfigPath("/etc/postrec")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return recerr.Errorf(recerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			if path := bootstrapConfig(); path != "" {
				v.SetConfigFile(path)
				if err := v.ReadInConfig(); err != nil {
					return recerr.Errorf(recerr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
				}
			}
		}
	}
	config.WarnInsecurePermissions(v.ConfigFileUsed())

	if err := v.BindPFlag("data_dir", cmd.Root().PersistentFlags().Lookup("data-dir")); err != nil {
		return recerr.Errorf(recerr.CodeCLISetupFailure, "binding data-dir flag: %w", err)
	}
	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return recerr.Errorf(recerr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}

	return secrets.ResolveViper(v, secretStoreFactory())
}

// bootstrapConfig writes the default config to its home location and returns
// the path, or "" when nothing was written. Failures are logged and skipped.
func bootstrapConfig() string {
	path, err := config.DefaultConfigPath()
	if err != nil {
		slog.Debug("skipping config bootstrap", "error", err)
		return ""
	}
	written, err := config.BootstrapConfig(path)
	if err != nil {
		slog.Debug("skipping config bootstrap", "path", path, "error", err)
		return ""
	}
	if !written {
		return ""
	}
	slog.Info("created default config", "path", path, "api_key_ref", config.APIKeyRef())
	return path
}

// loadConfig decodes and validates v, then installs the process logger.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, error) {
	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(newLogger(cfg.Logging, cmd.ErrOrStderr()))
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
