package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/tixit/internal/api/http"
	"github.com/spec-kit/tixit/internal/api/http/handlers"
	"github.com/spec-kit/tixit/internal/auth"
	"github.com/spec-kit/tixit/internal/config"
	"github.com/spec-kit/tixit/internal/events"
	"github.com/spec-kit/tixit/internal/observability"
	"github.com/spec-kit/tixit/internal/persistence"
	"github.com/spec-kit/tixit/internal/ratelimit"
	"github.com/spec-kit/tixit/internal/repository"
	"github.com/spec-kit/tixit/internal/service"
	"github.com/spec-kit/tixit/internal/validation"
	"github.com/spec-kit/tixit/internal/worker"
)

const shutdownTimeout = 10 * time.Second

// store is the persistence backend selected by STORE_DRIVER.
type store struct {
	users   repository.UserRepository
	tickets repository.TicketRepository
	pinger  handlers.Pinger
	close   func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.String("driver", cfg.Store.Driver), zap.Error(err))
	}
	defer st.close()

	deps := map[string]handlers.Pinger{cfg.Store.Driver: st.pinger}

	var counter ratelimit.Counter
	if cfg.Redis.Addr != "" {
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		counter = ratelimit.NewRedisCounter(redis.Client, "tixit:ratelimit:")
		deps["redis"] = redis
	} else {
		memCounter := ratelimit.NewMemoryCounter()
		worker.StartSweeper(ctx, memCounter, time.Minute, logger)
		counter = memCounter
		logger.Info("rate-limit counters kept in process memory")
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService, logger)

	pipeline := validation.NewPipeline()
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:   st.users,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: st.tickets,
		Pipeline:   pipeline,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	var provider auth.IdentityProvider
	if cfg.GoogleEnabled() {
		provider = auth.NewGoogleProvider(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.App.GoogleCallbackURL())
	} else {
		logger.Warn("google login disabled: GOOGLE_CLIENT_ID or GOOGLE_CLIENT_SECRET missing")
	}

	app := httptransport.NewApp(cfg, logger, metrics)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps, metrics),
		Auth:   handlers.NewAuthHandler(authService, pipeline),
		Google: handlers.NewGoogleHandler(handlers.GoogleHandlerConfig{
			Auth:          authService,
			Provider:      provider,
			State:         auth.NewStateSigner(cfg.Auth.SessionSecret, 0),
			ClientRootURL: cfg.App.ClientRootURL,
			SecureCookie:  !cfg.App.IsDevelopment(),
			Logger:        logger,
		}),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager()),
		RateLimiter:    httptransport.NewRateLimiter(counter, logger, metrics),
		Policies:       httptransport.PoliciesFromConfig(cfg.RateLimit),
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("store", cfg.Store.Driver))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("graceful shutdown incomplete", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store, error) {
	switch cfg.Store.Driver {
	case config.StorePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		pool := pg.PoolHandle()
		return &store{
			users:   repository.NewPostgresUserRepository(pool),
			tickets: repository.NewPostgresTicketRepository(pool),
			pinger:  pg,
			close:   pg.Close,
		}, nil
	case config.StoreMemory:
		logger.Warn("using the in-memory store: data is lost on restart")
		mem := repository.NewMemoryStore()
		return &store{users: mem.Users(), tickets: mem.Tickets(), pinger: mem, close: func() {}}, nil
	default:
		mongo, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, err
		}
		return &store{
			users:   repository.NewMongoUserRepository(mongo.DB),
			tickets: repository.NewMongoTicketRepository(mongo.DB),
			pinger:  mongo,
			close: func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				mongo.Close(closeCtx)
			},
		}, nil
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
