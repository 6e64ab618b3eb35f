package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/discussion-platform/internal/platform/db"
	"github.com/example/discussion-platform/internal/platform/natsconn"
	"github.com/example/discussion-platform/services/discussion/internal/config"
	"github.com/example/discussion-platform/services/discussion/internal/domain"
	"github.com/example/discussion-platform/services/discussion/internal/handlers"
	"github.com/example/discussion-platform/services/discussion/internal/moderation"
	"github.com/example/discussion-platform/services/discussion/internal/notify"
	"github.com/example/discussion-platform/services/discussion/internal/ratelimit"
	"github.com/example/discussion-platform/services/discussion/internal/reaction"
	"github.com/example/discussion-platform/services/discussion/internal/report"
	"github.com/example/discussion-platform/services/discussion/internal/store"
	"github.com/example/discussion-platform/services/discussion/internal/thread"
	"github.com/example/discussion-platform/services/discussion/internal/upstream"
	"github.com/example/discussion-platform/services/discussion/internal/worker"
)

type backend interface {
	store.CommentStore
	store.ReactionStore
	store.ReportStore
}

type notificationSink interface {
	domain.NotificationService
	handlers.Inbox
}

const readyTimeout = 2 * time.Second

// app holds the wired components and the resources to release on exit.
type app struct {
	cfg config.Config
	log *zap.Logger

	pool    *pgxpool.Pool
	nc      *nats.Conn
	js      nats.JetStreamContext
	counter *ratelimit.RedisCounter

	registry  *thread.Registry
	ledger    *reaction.Ledger
	desk      *report.Desk
	inbox     handlers.Inbox
	deliverer *notify.Deliverer
	inproc    *notify.InProcEmitter

	closeOnce sync.Once
}

func build(ctx context.Context, cfg config.Config, log *zap.Logger, migrate bool) (*app, error) {
	a := &app{cfg: cfg, log: log}
	isProd := cfg.IsProduction()

	var (
		data      backend
		directory interface {
			domain.Identity
			domain.PostStore
		}
		sink notificationSink
	)
	if cfg.Database.URL != "" {
		pool, err := db.Open(ctx, cfg.Database.URL, db.Options{MaxConns: cfg.Database.MaxConns})
		if err != nil {
			return nil, err
		}
		a.pool = pool
		if migrate {
			if err := store.Migrate(ctx, pool); err != nil {
				a.Close()
				return nil, err
			}
		}
		data = store.NewPostgres(pool)
		directory = upstream.NewPostgresDirectory(pool)
		sink = store.NewPostgresNotifications(pool)
		log.Info("store: postgres")
	} else {
		if isProd {
			return nil, errors.New("DATABASE_URL is required in production")
		}
		mem, err := store.NewMemory(cfg.Store.Node)
		if err != nil {
			return nil, err
		}
		data = mem
		dir := upstream.NewMemoryDirectory()
		users, posts := cfg.Dev.Seed()
		for _, u := range users {
			dir.PutUser(u)
		}
		for _, p := range posts {
			dir.PutPost(p)
		}
		directory = dir
		sink = store.NewMemoryNotifications()
		log.Warn("DATABASE_URL not set, using in-memory store (development only)",
			zap.Int("seed_users", len(users)), zap.Int("seed_posts", len(posts)))
	}
	a.inbox = sink

	var counter ratelimit.Counter
	if cfg.Redis.URL != "" {
		a.counter = ratelimit.NewRedisCounterFromURL(cfg.Redis.URL, "")
		if err := a.counter.Ping(ctx); err != nil {
			a.Close()
			return nil, err
		}
		counter = a.counter
		log.Info("rate limits: redis")
	} else {
		if isProd {
			log.Warn("REDIS_URL not set, rate limits are per instance")
		}
		counter = ratelimit.NewMemoryCounter()
	}

	loc, err := cfg.Location()
	if err != nil {
		a.Close()
		return nil, err
	}
	limiter := ratelimit.New(counter, ratelimit.DefaultPolicy(cfg.Caps()),
		ratelimit.WithLocation(loc), ratelimit.WithLogger(log))
	gate := moderation.NewGate(directory, log)

	dedupe, err := notify.NewDeduper(cfg.Redis.URL, a.pool, cfg.Notify.DedupeTTL, isProd)
	if err != nil {
		a.Close()
		return nil, err
	}
	breaker := notify.NewBreaker("notification-service", cfg.Breaker(), log)
	a.deliverer = notify.NewDeliverer(sink, dedupe, breaker, log)

	var emitter notify.Emitter
	if cfg.NATS.URL != "" {
		nc, err := natsconn.Connect(natsconn.Options{URL: cfg.NATS.URL, Name: cfg.ServiceName, Logger: log})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.nc = nc
		js, err := nc.JetStream()
		if err != nil {
			a.Close()
			return nil, err
		}
		a.js = js
		if err := natsconn.EnsureStream(js, worker.StreamConfig(cfg.Notify.StreamMaxAge), log); err != nil {
			a.Close()
			return nil, err
		}
		emitter = notify.NewJetStreamEmitter(js, log)
		log.Info("notifications: jetstream")
	} else {
		a.inproc = notify.NewInProcEmitter(cfg.Notify.QueueSize, a.deliverer, log)
		emitter = a.inproc
		log.Info("notifications: in-process")
	}

	a.registry = thread.NewRegistry(thread.Deps{
		Comments:  data,
		Reactions: data,
		Posts:     directory,
		Authors:   directory,
		Gate:      gate,
		Limiter:   limiter,
		Emitter:   emitter,
		Log:       log,
	}, cfg.Thread())
	a.ledger = reaction.NewLedger(data, gate, limiter, log)
	a.desk = report.NewDesk(data, data, a.registry, gate, limiter, log)
	return a, nil
}

// StartDelivery runs whichever notification path build selected until ctx
// is cancelled.
func (a *app) StartDelivery(ctx context.Context, consume bool) {
	if a.inproc != nil {
		go a.inproc.Run(ctx)
		return
	}
	if a.js != nil && consume {
		consumer := worker.NewNotifyConsumer(a.js, a.deliverer, a.cfg.Worker(), a.log)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				a.log.Error("notify consumer stopped", zap.Error(err))
			}
		}()
	}
}

// Ready backs /readyz.
func (a *app) Ready() error {
	ctx, cancel := context.WithTimeout(context.Background(), readyTimeout)
	defer cancel()
	if a.pool != nil {
		if err := a.pool.Ping(ctx); err != nil {
			return err
		}
	}
	if a.nc != nil && !a.nc.IsConnected() {
		return errors.New("nats disconnected")
	}
	return nil
}

func (a *app) Close() {
	a.closeOnce.Do(func() {
		if a.nc != nil {
			_ = a.nc.Drain()
		}
		if a.counter != nil {
			_ = a.counter.Close()
		}
		if a.pool != nil {
			a.pool.Close()
		}
	})
}
