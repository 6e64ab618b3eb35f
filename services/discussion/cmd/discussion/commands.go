package main

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/example/discussion-platform/internal/platform/auth"
	"github.com/example/discussion-platform/internal/platform/db"
	"github.com/example/discussion-platform/internal/platform/httpserver"
	"github.com/example/discussion-platform/internal/platform/logging"
	"github.com/example/discussion-platform/internal/platform/run"
	"github.com/example/discussion-platform/services/discussion/internal/config"
	"github.com/example/discussion-platform/services/discussion/internal/grpcapi"
	"github.com/example/discussion-platform/services/discussion/internal/handlers"
	"github.com/example/discussion-platform/services/discussion/internal/store"
	"github.com/example/discussion-platform/services/discussion/internal/worker"
)

func loadConfig(c *cli.Context) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logging.New(cfg.LogLevel, !cfg.IsProduction() && strings.EqualFold(cfg.LogFormat, "console"))
	if err != nil {
		return config.Config{}, nil, err
	}
	log = log.With(zap.String("service", cfg.ServiceName))
	return cfg, log, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP and gRPC APIs",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "migrate", Usage: "apply the schema before serving"},
			&cli.BoolFlag{Name: "consume", Value: true, Usage: "also run the notification consumer when NATS is configured"},
		},
		Action: func(c *cli.Context) error {
			cfg, log, err := loadConfig(c)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			a, err := build(c.Context, cfg, log, c.Bool("migrate"))
			if err != nil {
				return err
			}
			defer a.Close()

			r := chi.NewRouter()
			httpserver.SetupRouter(r, httpserver.RouterConfig{
				ReadyFunc: a.Ready,
				Logger:    log,
				Throttle:  &httpserver.ThrottleConfig{RPS: cfg.Throttle.RPS, Burst: cfg.Throttle.Burst},
			})
			handlers.Mount(r, handlers.Deps{
				Registry: a.registry,
				Ledger:   a.ledger,
				Desk:     a.desk,
				Inbox:    a.inbox,
				Verifier: auth.JWTVerifier{Secret: []byte(cfg.JWT.Secret)},
			})
			srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, Router: r})

			lis, err := net.Listen("tcp", cfg.GRPC.Addr)
			if err != nil {
				return err
			}
			grpcSrv, hs := grpcapi.NewServer(&grpcapi.DiscussionService{Registry: a.registry, Ledger: a.ledger}, log)
			go func() {
				log.Info("grpc server starting", zap.String("addr", cfg.GRPC.Addr))
				if err := grpcSrv.Serve(lis); err != nil {
					log.Error("grpc serve", zap.Error(err))
				}
			}()

			runner := run.New(log)
			code := runner.WithSignals(func(ctx context.Context) error {
				a.StartDelivery(ctx, c.Bool("consume"))

				go func() {
					<-ctx.Done()
					grpcapi.Drain(grpcSrv, hs, 10*time.Second)
					runner.Graceful(srv.Shutdown)
				}()
				return srv.Start(log)
			})
			log.Info("exit", zap.Int("code", code))
			if code != 0 {
				return cli.Exit("", code)
			}
			return nil
		},
	}
}

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "consume notification events from JetStream",
		Action: func(c *cli.Context) error {
			cfg, log, err := loadConfig(c)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if cfg.NATS.URL == "" {
				return errors.New("NATS_URL is required for the worker")
			}

			a, err := build(c.Context, cfg, log, false)
			if err != nil {
				return err
			}
			defer a.Close()

			consumer := worker.NewNotifyConsumer(a.js, a.deliverer, cfg.Worker(), log)
			code := run.New(log).WithSignals(consumer.Run)
			if code != 0 {
				return cli.Exit("", code)
			}
			return nil
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply the database schema",
		Action: func(c *cli.Context) error {
			cfg, log, err := loadConfig(c)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, cancel := context.WithTimeout(c.Context, time.Minute)
			defer cancel()
			pool, err := db.Open(ctx, cfg.Database.URL, db.Options{MaxConns: 2})
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := store.Migrate(ctx, pool); err != nil {
				return err
			}
			log.Info("schema applied")
			return nil
		},
	}
}
