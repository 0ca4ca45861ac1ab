package main

// @title           Social Hub API
// @version         1.0
// @description     Client-side hub of the community app: session, social data, marketplace, chat, media and realtime channels over a hosted or local backend.
// @termsOfService  http://swagger.io/terms/
// @contact.name   API Support
// @contact.url    http://www.example.com/support
// @contact.email  support@example.com
// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html
// @host      localhost:8090
// @BasePath  /
// @securityDefinitions.basic  BasicAuth
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	_ "github.com/Alwanly/social-hub/docs/hub"
	"github.com/Alwanly/social-hub/internal/config"
	"github.com/Alwanly/social-hub/internal/data"
	"github.com/Alwanly/social-hub/internal/local"
	"github.com/Alwanly/social-hub/internal/media"
	"github.com/Alwanly/social-hub/internal/realtime"
	"github.com/Alwanly/social-hub/internal/server/hub/handler"
	"github.com/Alwanly/social-hub/internal/session"
	authentication "github.com/Alwanly/social-hub/pkg/auth"
	"github.com/Alwanly/social-hub/pkg/database"
	"github.com/Alwanly/social-hub/pkg/deps"
	"github.com/Alwanly/social-hub/pkg/logger"
	"github.com/Alwanly/social-hub/pkg/metrics"
	"github.com/Alwanly/social-hub/pkg/middleware"
	"github.com/Alwanly/social-hub/pkg/poll"
	"github.com/Alwanly/social-hub/pkg/pubsub"
	"github.com/Alwanly/social-hub/pkg/retry"
	"github.com/Alwanly/social-hub/pkg/supabase"
	swagger "github.com/gofiber/swagger"
)

// backend is every collaborator the hub talks to, hosted or local.
type backend struct {
	identity session.Identity
	data     *data.Facade
	storage  media.Storage
	source   realtime.Source
	onToken  func(accessToken string)
	closers  []func() error
}

func main() {
	log, err := logger.NewLoggerFromEnv("hub")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Info("starting hub service")

	cfg, err := config.LoadHubConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

	log.Info("configuration loaded",
		logger.String("server_addr", cfg.ServerAddr),
		logger.String("backend", cfg.Backend),
		logger.String("database_path", cfg.DatabasePath),
		logger.Duration("session_refresh_interval", cfg.SessionRefreshInterval),
	)

	mt := metrics.New()

	// the session row lives in sqlite for both backends
	db, err := database.NewSQLiteDB(cfg.DatabasePath, false)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	if err := database.RunMigrations(db); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}
	log.Info("database migrations applied successfully", logger.String("path", cfg.DatabasePath))

	app := fiber.New(fiber.Config{
		AppName:               "Social Hub",
		DisableStartupMessage: true,
		BodyLimit:             4 * media.MaxFileSize,
		ErrorHandler:          middleware.ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.CanonicalLoggerMiddleware(log, mt))

	var store *session.Store
	accessToken := func() (string, error) { return store.AccessToken() }

	var be *backend
	switch cfg.Backend {
	case config.BackendLocal:
		be, err = newLocalBackend(cfg, db, app, log)
	default:
		be, err = newRemoteBackend(cfg, accessToken, log)
	}
	if err != nil {
		log.WithError(err).Fatal("failed to initialize backend")
	}
	log.Info("backend initialized", logger.String("backend", cfg.Backend))

	store = session.NewStore(be.identity, be.data, session.NewGormPersister(db), log.Component("session"))

	manager := realtime.NewManager(be.source, log.Component("realtime"),
		realtime.WithBackoff(retry.Config{
			InitialBackoff: cfg.RealtimeInitialBackoff,
			MaxBackoff:     cfg.RealtimeMaxBackoff,
			Multiplier:     cfg.RealtimeBackoffMultiplier,
			Jitter:         true,
		}),
		realtime.WithMetrics(mt),
	)

	store.OnChange(func(ev session.Event, s *session.Session) {
		if be.onToken != nil {
			token := ""
			if s.Active() {
				token = s.AccessToken
			}
			be.onToken(token)
		}
		if ev == session.EventSignedOut {
			if err := manager.UnsubscribeAll(context.Background()); err != nil {
				log.WithError(err).Warn("failed to drop channels after sign-out")
			}
		}
	})

	initCtx, cancelInit := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	if err := store.Init(initCtx, cfg.SessionRefreshWindow); err != nil {
		log.WithError(err).Warn("starting signed out")
	}
	cancelInit()

	pipeline := media.NewPipeline(be.storage, log,
		media.WithConcurrency(cfg.UploadConcurrency),
		media.WithMetrics(mt),
	)

	poller := poll.NewPoller(log)
	err = poller.Register("session_refresh", func(ctx context.Context) error {
		if !store.Current().Active() {
			return nil
		}
		return store.Refresh(ctx, cfg.SessionRefreshWindow).Err()
	}, poll.Config{Interval: cfg.SessionRefreshInterval})
	if err != nil {
		log.WithError(err).Fatal("failed to register session refresh")
	}

	mid := middleware.NewAuthMiddleware(
		middleware.SetBasicAuth(&authentication.BasicAuthConfig{
			Username: cfg.AdminUsername,
			Password: cfg.AdminPassword,
		}),
		middleware.SetSessionLookup(store.Lookup),
	)
	log.Info("authentication initialized")

	h := handler.NewHandler(deps.App{
		Fiber:      app,
		Logger:     log,
		Middleware: mid,
		Poller:     poller,
		Metrics:    mt,
		Backend:    cfg.Backend,
		Session:    store,
		Data:       be.data,
		Realtime:   manager,
		Media:      pipeline,
		CDN: media.CDN{
			Host:         cfg.CDNHost,
			CloudName:    cfg.CDNCloudName,
			DeliveryType: cfg.CDNDeliveryType,
		},
	})

	app.Get("/swagger/*", swagger.HandlerDefault)

	ctx, cancel := context.WithCancel(context.Background())
	gErr, gCtx := errgroup.WithContext(ctx)

	gErr.Go(func() error {
		log.Info("hub service is running", logger.String("address", cfg.ServerAddr))
		if err := app.Listen(cfg.ServerAddr); err != nil {
			cancel()
			return err
		}
		return nil
	})

	gErr.Go(func() error {
		if err := manager.Run(gCtx); err != nil && gCtx.Err() == nil {
			log.WithError(err).Error("realtime manager stopped")
			return err
		}
		return nil
	})

	gErr.Go(func() error {
		return poller.Start(gCtx)
	})

	gErr.Go(func() error {
		<-gCtx.Done()

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelShutdown()

		h.Close()
		if err := app.Shutdown(); err != nil {
			log.WithError(err).Error("failed to shutdown fiber app")
			return err
		}
		if err := poller.Stop(); err != nil {
			log.WithError(err).Warn("failed to stop poller")
		}
		if err := manager.Close(shutdownCtx); err != nil {
			log.WithError(err).Warn("failed to close realtime manager")
		}
		store.Close()
		for _, closeFn := range be.closers {
			if err := closeFn(); err != nil {
				log.WithError(err).Warn("failed to close backend resource")
			}
		}

		conn, err := db.DB()
		if err != nil {
			log.WithError(err).Error("failed to get database connection")
			return err
		}
		if err := conn.Close(); err != nil {
			log.WithError(err).Error("failed to close database")
			return err
		}

		return nil
	})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
		log.Info("listening for shutdown signals")
		<-sigChan
		log.Info("shutdown signal received")
		cancel()
	}()

	if err := gErr.Wait(); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("hub service encountered an error")
	}

	log.Info("hub service stopped gracefully")
}

func newRemoteBackend(cfg *config.HubConfig, token data.TokenFunc, log *logger.CanonicalLogger) (*backend, error) {
	client, err := supabase.New(supabase.Config{
		URL:        cfg.SupabaseURL,
		APIKey:     cfg.SupabaseAnonKey,
		HTTPClient: &http.Client{Timeout: cfg.RequestTimeout},
	})
	if err != nil {
		return nil, err
	}
	rt := supabase.NewRealtimeClient(cfg.SupabaseURL, cfg.SupabaseAnonKey)

	return &backend{
		identity: session.NewRemoteIdentity(client),
		data:     data.NewFacade(data.NewRemoteBackend(client, token), log),
		storage:  media.NewRemoteStorage(client),
		source:   realtime.NewWebsocketSource(rt),
		onToken:  rt.SetAuth,
	}, nil
}

func newLocalBackend(cfg *config.HubConfig, db *gorm.DB, app *fiber.App, log *logger.CanonicalLogger) (*backend, error) {
	if err := database.SeedInitialData(db); err != nil {
		return nil, err
	}

	var bus pubsub.PubSub = pubsub.NewMemory(256)
	if cfg.UsesRedis() {
		port, err := strconv.Atoi(cfg.RedisPort)
		if err != nil {
			return nil, err
		}
		redisBus, err := pubsub.NewRedisPubSub(pubsub.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     port,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log)
		if err != nil {
			log.WithError(err).Error("Failed to initialize Redis pub/sub, using the in-process bus",
				logger.String("mode", "in_process"))
		} else {
			bus = redisBus
			log.Info("Redis pub/sub initialized successfully",
				logger.String("host", cfg.RedisHost),
				logger.Int("port", port))
		}
	}

	disk, err := local.NewDiskStorage(cfg.LocalStorageDir, "http://"+cfg.ServerAddr)
	if err != nil {
		return nil, err
	}
	app.Static(local.PublicPrefix, disk.Root())

	return &backend{
		identity: local.NewIdentity(db, []byte(cfg.LocalJWTSecret), log),
		data:     data.NewFacade(local.NewTables(db, bus, log), log),
		storage:  disk,
		source:   realtime.NewBrokerSource(bus, log),
		closers:  []func() error{bus.Close},
	}, nil
}
