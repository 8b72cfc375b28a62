// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Postrec Contributors

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/expertbridge/postrec/internal/server"
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the recommendation HTTP API",
		Long:  "Load configuration, open the index and embedding provider, and serve the REST API until interrupted.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, v)
		},
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func runServe(cmd *cobra.Command, v *viper.Viper) error {
	if err := v.BindPFlag("server.listen", cmd.Flags().Lookup("listen")); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd, v)
	if err != nil {
		return err
	}

	app, err := Wire(cfg)
	if err != nil {
		return err
	}

	svc, err := server.NewServices(app.Recommender, app.Embedder)
	if err != nil {
		return errors.Join(err, app.Close())
	}
	server.Version = version
	srv, err := server.New(server.Config{
		ListenAddr:  cfg.Server.Listen,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
			Burst:             cfg.Server.RateLimit.Burst,
		},
	}, svc)
	if err != nil {
		return errors.Join(err, app.Close())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cmd, srv, app, cfg.Server.Listen)
}

func serve(ctx context.Context, cmd *cobra.Command, srv *server.Server, app *App, listen string) error {
	count, err := app.Recommender.Count(ctx)
	if err != nil {
		return errors.Join(err, app.Close())
	}
	slog.Info("serving recommendations", "listen", listen, "posts", count, "provider", app.Embedder.Name())
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "postrec listening on %s (%d posts indexed)\n", listen, count)

	serveErr := srv.Start(ctx)
	closeErr := app.Close()
	slog.Info("server stopped")
	return errors.Join(serveErr, closeErr)
}
