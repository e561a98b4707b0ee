package main

import (
	"context"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	auth "github.com/pulseapp/pulse-auth"
	"github.com/pulseapp/pulse-auth/activitymap"
	"github.com/pulseapp/pulse-auth/repository"
	"github.com/pulseapp/pulse-auth/sinks"
)

// services is the wired domain layer shared by serve and the admin commands.
type services struct {
	db        *bun.DB
	store     *repository.AccountRepository
	hasher    *auth.BcryptHasher
	registrar *auth.Registrar
	auther    *auth.Auther
	profiles  *auth.ProfileService
	metrics   http.Handler

	closers []func() error
}

// Close releases every resource in reverse order of acquisition.
func (s *services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return goerrors.Join(errs...)
}

// openDB connects and, when configured, applies migrations.
func (c *cli) openDB(ctx context.Context, migrate bool) (*bun.DB, error) {
	db, dialect, err := repository.Open(c.cfg.Database.DSN)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "ping database")
	}

	if migrate {
		if err := repository.Migrate(ctx, db, dialect, c.logger.GetLogger("migrations")); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return db, nil
}

// buildServices wires storage, activity sinks and the auth services.
func (c *cli) buildServices(ctx context.Context) (*services, error) {
	cfg := c.cfg
	svc := &services{}

	db, err := c.openDB(ctx, cfg.Database.AutoMigrate)
	if err != nil {
		return nil, err
	}
	svc.db = db
	svc.closers = append(svc.closers, db.Close)

	activity, err := c.buildActivitySink(ctx, svc)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}

	tokens, err := auth.NewTokenServiceFromConfig(cfg, auth.WithTokenLogger(c.logger.GetLogger("tokens")))
	if err != nil {
		_ = svc.Close()
		return nil, err
	}

	authLogger := c.logger.GetLogger("auth")

	svc.store = repository.NewAccountRepository(db)
	svc.hasher = auth.NewBcryptHasher(cfg.Auth.BcryptCost)

	svc.registrar = auth.NewRegistrar(svc.store,
		auth.WithRegistrarLogger(authLogger),
		auth.WithRegistrarPasswordAuthenticator(svc.hasher),
		auth.WithRegistrarActivitySink(activity),
		auth.WithPhoneRegion(cfg.Auth.PhoneRegion),
	)

	svc.auther = auth.NewAuthenticator(svc.store, tokens).
		WithLogger(authLogger).
		WithPasswordAuthenticator(svc.hasher).
		WithActivitySink(activity)

	svc.profiles = auth.NewProfileService(svc.store, svc.hasher, authLogger)

	return svc, nil
}

// buildActivitySink always counts events in Prometheus and adds the Redis
// stream and Kafka publisher when they are configured.
func (c *cli) buildActivitySink(ctx context.Context, svc *services) (auth.ActivitySink, error) {
	cfg := c.cfg
	lgr := c.logger.GetLogger("activity")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	svc.metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	all := []auth.ActivitySink{sinks.NewMetricsSink(reg)}

	opts := []activitymap.Option{activitymap.WithChannel("pulse-auth")}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "ping redis")
		}
		svc.closers = append(svc.closers, client.Close)
		all = append(all, sinks.NewRedisStreamSink(client, cfg.Redis.Stream, cfg.Redis.MaxLen, opts...))
		lgr.Info("redis activity stream enabled", "addr", cfg.Redis.Addr, "stream", cfg.Redis.Stream)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := sinks.NewKafkaPublisher(cfg.Kafka.Brokers, lgr)
		if err != nil {
			return nil, err
		}
		sink := sinks.NewWatermillSink(publisher, cfg.Kafka.Topic, opts...)
		svc.closers = append(svc.closers, sink.Close)
		all = append(all, sink)
		lgr.Info("kafka activity topic enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	return sinks.NewMulti(all...), nil
}
