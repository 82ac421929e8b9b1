// Package server wires configuration, storage, the session service and
// the transports together, and runs them until shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/auth"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/config"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/services"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/sweeper"

	gs "github.com/dmitrijs2005/sessionkeeper/internal/server/grpc"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	rdb       *redis.Client
	bootstrap *repomanager.Bootstrap
	sessions  *services.SessionService
	sweeper   *sweeper.Sweeper
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	var (
		opts   []repomanager.Option
		checks []repomanager.Check
		rdb    *redis.Client
	)
	if c.RefreshTokenStore == config.StoreRedis {
		rdb = redis.NewClient(&redis.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		})
		opts = append(opts, repomanager.WithRedisRefreshTokens(rdb, refreshtokens.DefaultKeyPrefix))
		checks = append(checks, func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis ping: %w", err)
			}
			return nil
		})
	}

	mgr := repomanager.NewPostgresRepositoryManager(opts...)
	codec := auth.NewCodec(
		[]byte(c.AccessTokenSecret),
		[]byte(c.RefreshTokenSecret),
		c.AccessTokenValidityDuration,
		c.RefreshTokenValidityDuration,
	)

	var sweepOpts []sweeper.Option
	if c.ArchiveEnabled() {
		archiver, err := sweeper.NewS3Archiver(ctx, c)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("archive init error: %w", err)
		}
		sweepOpts = append(sweepOpts, sweeper.WithArchiver(archiver))
	}

	return &App{
		config:    c,
		logger:    logger,
		db:        db,
		rdb:       rdb,
		bootstrap: repomanager.NewBootstrap(db, mgr, checks...),
		sessions:  services.NewSessionService(db, mgr, codec, logger),
		sweeper:   sweeper.New(mgr.RefreshTokens(db), c.SweepInterval, logger, sweepOpts...),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	handler := httpapi.NewRouter(app.sessions, app.bootstrap.EnsureReady, app.logger, httpapi.RouterConfig{
		RefreshTTL:   app.config.RefreshTokenValidityDuration,
		SecureCookie: app.config.IsProduction(),
	})

	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", app.config.EndpointAddrHTTP)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.sessions, app.bootstrap.EnsureReady)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run prepares storage and serves until ctx is cancelled or a signal
// arrives. It fails only if storage cannot be prepared.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.close()

	app.logger.Info(ctx, "Starting app...", "environment", app.config.Environment, "refresh_token_store", app.config.RefreshTokenStore)

	app.initSignalHandler(cancelFunc)

	if err := app.bootstrap.EnsureReady(ctx); err != nil {
		return fmt.Errorf("storage init error: %w", err)
	}

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx)
	}()

	wg.Wait()
	app.logger.Info(ctx, "App stopped")
	return nil
}

func (app *App) close() {
	if app.rdb != nil {
		_ = app.rdb.Close()
	}
	_ = app.db.Close()
}
