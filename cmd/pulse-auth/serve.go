package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pulseapp/pulse-auth/httpapi"
)

func newServeCmd(c *cli) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				c.cfg.HTTP.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides http.addr")
	return cmd
}

func (c *cli) serve(ctx context.Context) error {
	cfg := c.cfg
	lgr := c.logger.GetLogger("http")

	svc, err := c.buildServices(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			lgr.Error("close services", "error", err)
		}
	}()

	controller := httpapi.NewController(
		httpapi.WithLogger(lgr),
		httpapi.WithRegistrar(svc.registrar),
		httpapi.WithAuthenticator(svc.auther),
		httpapi.WithProfiles(svc.profiles),
		httpapi.WithAdminEmails(cfg.Auth.AdminEmails...),
		httpapi.WithRateLimiter(httpapi.NewIPRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)),
		httpapi.WithMetricsHandler(svc.metrics),
		httpapi.WithCORSOrigins(cfg.HTTP.CORSOrigins...),
		httpapi.WithEnvironment(cfg.Env),
	)
	app := httpapi.NewApp(controller)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		lgr.Info("listening", "addr", cfg.HTTP.Addr, "env", cfg.Env)
		return app.Listen(cfg.HTTP.Addr)
	})

	g.Go(func() error {
		<-gctx.Done()
		lgr.Info("shutting down")
		return app.ShutdownWithTimeout(time.Duration(cfg.HTTP.ShutdownGrace))
	})

	return g.Wait()
}
