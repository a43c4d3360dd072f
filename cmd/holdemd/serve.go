package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/lox/holdemtables/internal/auth"
	"github.com/lox/holdemtables/internal/config"
	"github.com/lox/holdemtables/internal/phh"
	"github.com/lox/holdemtables/internal/publish"
	"github.com/lox/holdemtables/internal/randutil"
	"github.com/lox/holdemtables/internal/server"
	"github.com/lox/holdemtables/internal/statistics"
	"github.com/lox/holdemtables/internal/store"
	"github.com/lox/holdemtables/internal/table"
)

// ServeCmd runs the HTTP and websocket server.
type ServeCmd struct {
	Config   string `short:"c" default:"holdemd.hcl" env:"HOLDEMD_CONFIG" help:"Path to HCL configuration file"`
	Addr     string `short:"a" env:"HOLDEMD_ADDR" help:"Server address (overrides config)"`
	LogLevel string `short:"l" env:"HOLDEMD_LOG_LEVEL" help:"Log level (overrides config)"`
	Seed     *int64 `help:"Deterministic deal seed, for testing only"`
}

func (c *ServeCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Address = c.Addr
	}
	if c.LogLevel != "" {
		cfg.Server.LogLevel = c.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, logFile := newLogger(cfg.Server)
	if logFile != nil {
		defer logFile.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	validator := newValidator(cfg.Auth)

	hub := server.NewHub(logger)
	stats := statistics.NewTracker()
	publishers := publish.Multi{hub, stats, publish.Log{Logger: logger.WithPrefix("events")}}
	var closers []func() error

	if cfg.Redis != nil {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = client.Close()
			return fmt.Errorf("redis %s: %w", cfg.Redis.Addr, err)
		}
		publishers = append(publishers, publish.NewRedis(client, cfg.Redis.Prefix))
		closers = append(closers, client.Close)
		logger.Info("Publishing snapshots to redis", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.Prefix)
	}

	if cfg.AMQP != nil {
		q, err := publish.DialAMQP(cfg.AMQP.URL, cfg.AMQP.Queue)
		if err != nil {
			return err
		}
		publishers = append(publishers, q)
		closers = append(closers, q.Close)
		logger.Info("Publishing hand results to amqp", "queue", cfg.AMQP.Queue)
	}

	if cfg.History != nil {
		rec, err := phh.NewRecorder(cfg.History.Dir, logger)
		if err != nil {
			return err
		}
		publishers = append(publishers, rec)
		logger.Info("Writing hand histories", "dir", cfg.History.Dir)
	}

	defer func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				logger.Warn("Close failed", "error", err)
			}
		}
	}()

	rng := randutil.Source(randutil.NewSecure)
	if c.Seed != nil {
		logger.Warn("Using deterministic deals", "seed", *c.Seed)
		rng = randutil.Seeded(*c.Seed)
	}

	tableCtx, stopTables := context.WithCancel(context.Background())
	defer stopTables()
	manager := table.NewManager(tableCtx, table.ManagerOptions{
		Store:     st,
		Publisher: publishers,
		Logger:    logger,
		Clock:     quartz.NewReal(),
		RNG:       rng,
	})

	for _, ts := range cfg.Tables {
		tc, err := ts.Table()
		if err != nil {
			return err
		}
		t, err := manager.Ensure(ctx, tc)
		if err != nil {
			return fmt.Errorf("table %s: %w", tc.ID, err)
		}
		logger.Info("Table ready",
			"id", t.ID(),
			"stakes", fmt.Sprintf("%d/%d", tc.SmallBlind, tc.BigBlind),
			"seats", tc.Seats)
	}

	srv := server.New(server.Options{
		Manager:         manager,
		Store:           st,
		Validator:       validator,
		Hub:             hub,
		Stats:           stats,
		Logger:          logger,
		StartingBalance: cfg.Auth.StartingBalance,
		RequestTimeout:  cfg.RequestTimeout(),
	})

	logger.Info("Starting holdemd",
		"version", version,
		"addr", cfg.Server.Address,
		"tables", len(cfg.Tables),
		"auth", cfg.Auth.Mode)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(cfg.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		// Running hands are aborted and stacks returned before the store closes.
		stopTables()
		return errors.Join(err, manager.Wait())
	})
	return g.Wait()
}

func openStore(cfg *config.Config, logger *log.Logger) (store.Store, error) {
	db := cfg.Database
	if db.Driver == "memory" {
		logger.Warn("Using in-memory store; balances are lost on restart")
		return store.NewMemory(), nil
	}
	st, err := store.Open(store.Options{
		Driver:          db.Driver,
		DSN:             db.DSN,
		MaxIdleConns:    db.MaxIdleConns,
		MaxOpenConns:    db.MaxOpenConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime(),
		LogLevel:        db.LogLevel,
		Logger:          logger.WithPrefix("db"),
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Opened database", "driver", db.Driver)
	return st, nil
}

func newValidator(a *config.AuthSettings) auth.Validator {
	switch a.Mode {
	case "jwt":
		return auth.NewJWTValidator(a.Secret)
	case "http":
		return auth.NewHTTPValidator(a.URL, a.AdminSecret)
	default:
		return auth.NewNoopValidator()
	}
}
