package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/linkdeck/internal/config"
	"github.com/MrSnakeDoc/linkdeck/internal/domain"
	"github.com/MrSnakeDoc/linkdeck/internal/httpserver"
	"github.com/MrSnakeDoc/linkdeck/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdeck/internal/httpserver/mw"
	"github.com/MrSnakeDoc/linkdeck/internal/importer"
	"github.com/MrSnakeDoc/linkdeck/internal/index"
	"github.com/MrSnakeDoc/linkdeck/internal/llm"
	"github.com/MrSnakeDoc/linkdeck/internal/logger"
	"github.com/MrSnakeDoc/linkdeck/internal/redis"
	"github.com/MrSnakeDoc/linkdeck/internal/scheduler"
	"github.com/MrSnakeDoc/linkdeck/internal/sources/taxonomy"
	redisstore "github.com/MrSnakeDoc/linkdeck/internal/store/redis"
	"github.com/MrSnakeDoc/linkdeck/internal/validation"
	"github.com/MrSnakeDoc/linkdeck/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	refresher   *scheduler.CatalogRefresher
	restorer    *scheduler.SessionRestorer
	seeder      *taxonomy.Seeder
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Initialize Redis early - fail fast if unavailable
	loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
	redisClient, err := redis.New(redis.ConnectOptions{
		Addr:           cfg.RedisAddr,
		User:           cfg.RedisUser,
		Password:       cfg.RedisPassword,
		RedisDB:        cfg.RedisDB,
		DialTimeout:    cfg.RedisDT,
		ReadTimeout:    cfg.RedisRT,
		WriteTimeout:   cfg.RedisWT,
		PoolSize:       cfg.RedisPoolSize,
		ConnectTimeout: cfg.RedisConnectTimeout,
		RetryInterval:  cfg.RedisRetryInterval,
		MaxWait:        cfg.RedisMaxWait,
		PingTimeout:    cfg.RedisPingTimeout,
		WarnThreshold:  cfg.RedisWarnThreshold,
	}, loggerClient)
	if err != nil {
		loggerClient.Errorf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	loggerClient.Info("Redis initialized successfully")

	store := redisstore.NewStore(redisClient, cfg.SessionTTL)
	memIndex := index.NewMemoryIndex()
	refresher := scheduler.NewCatalogRefresher(store, memIndex, loggerClient, cfg.RefreshInterval)

	var seeder *taxonomy.Seeder
	if cfg.TaxonomyFile != "" {
		loggerClient.Info("taxonomy file configured",
			logger.String("file", cfg.TaxonomyFile))
		seeder = taxonomy.NewSeeder(cfg.TaxonomyFile, store, cfg.DedupScope, loggerClient)
	}

	completer := llm.NewClient(llm.Config{
		APIKey:     cfg.OpenAIAPIKey,
		Model:      cfg.OpenAIModel,
		BaseURL:    cfg.OpenAIBaseURL,
		MaxRetries: cfg.OpenAIMaxRetries,
		Timeout:    cfg.ExtractTimeout,
	}, loggerClient.With(logger.String("component", "llm")))

	importLog := loggerClient.With(logger.String("component", "import"))
	controller := importer.NewController(importer.Options{
		Extractor:  importer.NewExtractor(completer, cfg.ExtractMaxChars, importLog),
		Reconciler: importer.NewReconciler(importer.ContainmentMatcher),
		Executor: importer.NewExecutor(store, importer.ExecutorConfig{
			Scope:    cfg.DedupScope,
			Attempts: uint(cfg.ImportRetryAttempts),
		}, importLog),
		Catalog:        store,
		Store:          store,
		ExtractTimeout: cfg.ExtractTimeout,
		CommitTimeout:  cfg.CommitTimeout,
		OnImported: func(res *domain.ImportResult) {
			refresher.Trigger()
		},
		Log: importLog,
	})

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:         loggerClient,
		StartTime:      time.Now(),
		Version:        version.Version,
		Commit:         version.Commit,
		BuildDate:      version.BuildDate,
		GoVersion:      version.GoVersion,
		AllowedHosts:   cfg.AllowedHosts,
		AllowedCIDRS:   cfg.AllowedCIDRS,
		TrustProxy:     cfg.TrustProxy,
		CORSOrigins:    cfg.CORSOrigins,
		RequestTimeout: cfg.RequestTimeout,
		Store:          store,
		MemoryIndex:    memIndex,
		Importer:       controller,
		Validator:      validation.New(),
		MaxUploadBytes: cfg.MaxUploadBytes,
		ExtractRateLimit: mw.RateLimitConfig{
			Burst:        cfg.ExtractRateBurst,
			RefillPerMin: cfg.ExtractRatePerMin,
			TrustProxy:   cfg.TrustProxy,
		},
		Model:          completer.Model(),
		RefreshCatalog: refresher.Trigger,
	}

	server := httpserver.New(cfg, loggerClient, d)

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      server,
		redisClient: redisClient,
		refresher:   refresher,
		restorer:    scheduler.NewSessionRestorer(store, controller, loggerClient),
		seeder:      seeder,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting linkdeck %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.String())

	defer func() { _ = a.logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Seed before the first load so the catalog starts complete
	if a.seeder != nil {
		res, err := a.seeder.Seed(ctx)
		if err != nil {
			return fmt.Errorf("failed to seed taxonomy: %w", err)
		}
		a.logger.Info("taxonomy seeded",
			logger.Int("sections_created", res.SectionsCreated),
			logger.Int("links_added", res.LinksAdded),
			logger.Int("links_existing", res.LinksExisting),
			logger.Int("links_skipped", res.LinksSkipped))
	}

	if err := a.refresher.Start(ctx); err != nil {
		return fmt.Errorf("failed to start catalog refresher: %w", err)
	}
	a.logger.Info("catalog refresher started",
		logger.Duration("interval", a.cfg.RefreshInterval))

	if restored, err := a.restorer.Restore(ctx); err != nil {
		// Not fatal: the operator just starts a new import
		a.logger.Warn("import session not restored", logger.Error(err))
	} else if restored {
		a.logger.Info("import session restored")
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.refresher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ linkdeck stopped cleanly")
	return nil
}
