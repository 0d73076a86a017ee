package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/openpay/internal/config"
	"github.com/jonathan/openpay/internal/fetch"
	"github.com/jonathan/openpay/internal/scheduler"
	"github.com/jonathan/openpay/internal/server"
	"github.com/jonathan/openpay/internal/server/ratelimit"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long:  "Start an HTTP server exposing salary listings, statistics, job matching and community submissions.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts, port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides PORT)")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions, port int) error {
	a, err := newApp(ctx, opts, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	srvCfg := server.ConfigFrom(a.cfg)
	if port > 0 {
		srvCfg.Port = port
	}

	deps := server.Deps{
		Service: a.service,
		Limiter: ratelimit.NewLimiter(ratelimit.LoadConfig()),
		Logger:  a.logger,
	}
	if jwtCfg, err := config.NewJWTConfig(); err != nil {
		a.logger.Warn("moderation disabled", "reason", err)
	} else if passwords, err := config.NewPasswordConfig(); err != nil {
		return fmt.Errorf("failed to create password config: %w", err)
	} else {
		deps.Tokens = server.NewJWTService(jwtCfg)
		deps.Passwords = passwords
	}

	sched := scheduler.New(a.cfg.RefreshInterval(), a.logger,
		scheduler.RefreshJob(a.service, a.logger),
		scheduler.CatalogJob(a.catalog, a.cfg.RoadmapsIndexURL, fetch.DefaultOptions(), a.logger),
	)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop(context.Background())

	return server.New(srvCfg, deps).Start(ctx)
}
