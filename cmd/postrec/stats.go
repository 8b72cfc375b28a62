// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newStatsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index and provider information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			app, err := Wire(cfg)
			if err != nil {
				return err
			}

			count, countErr := app.Recommender.Count(cmd.Context())
			if err := errors.Join(countErr, app.Close()); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "posts:      %d\n", count)
			_, _ = fmt.Fprintf(out, "dimensions: %d\n", app.Recommender.Dimensions())
			_, _ = fmt.Fprintf(out, "provider:   %s\n", app.Embedder.Name())
			_, _ = fmt.Fprintf(out, "backend:    %s\n", cfg.Storage.Backend)
			if cfg.Storage.Path != "" {
				_, _ = fmt.Fprintf(out, "path:       %s\n", cfg.Storage.Path)
			}
			return nil
		},
	}
}
