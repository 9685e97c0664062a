// Package app is the composition root: it turns configuration into wired
// services and owns their lifecycle.
package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"PriceNewsScanner/internal/api"
	"PriceNewsScanner/internal/config"
	"PriceNewsScanner/internal/domain"
	"PriceNewsScanner/internal/infrastructure/llm"
	"PriceNewsScanner/internal/infrastructure/lock"
	"PriceNewsScanner/internal/infrastructure/opendata"
	"PriceNewsScanner/internal/infrastructure/parser"
	"PriceNewsScanner/internal/infrastructure/scheduler"
	"PriceNewsScanner/internal/infrastructure/storage"
	"PriceNewsScanner/internal/infrastructure/telegram"
	"PriceNewsScanner/internal/logging"
	"PriceNewsScanner/internal/metrics"
	"PriceNewsScanner/internal/ports"
	"PriceNewsScanner/internal/scanner"
	"PriceNewsScanner/internal/usecase"
)

const (
	shutdownTimeout   = 15 * time.Second
	readHeaderTimeout = 10 * time.Second
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *zap.Logger
	db       *storage.DB
	redis    *redis.Client
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	articles  *storage.ArticleRepository
	pipeline  *usecase.Pipeline
	search    *usecase.SearchService
	news      *usecase.NewsService
	auth      *usecase.AuthService
	scheduler *usecase.Scheduler
	prices    *opendata.Client
}

// New opens the store, migrates it and builds every service. Close releases
// what New opened.
func New(ctx context.Context, cfg config.Config, baseLogger *zap.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	a := &Application{cfg: cfg, logger: baseLogger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.db = db
	if err := db.Migrate(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *Application) build(ctx context.Context) error {
	cfg := a.cfg
	loc := cfg.Scheduler.Location()

	site, err := parser.NewUDNSite(cfg.Site, loc, nil, logging.Component(a.logger, "scanner."+cfg.Site.Name))
	if err != nil {
		return err
	}
	registry := scanner.NewRegistry()
	registry.Register(site)

	source, err := parser.NewStrategySource(registry, cfg.Site.Name, logging.Component(a.logger, "source"))
	if err != nil {
		return err
	}

	completer, err := llm.NewCompleter(cfg.LLM)
	if err != nil {
		return err
	}
	assistant := llm.NewAssistant(completer, cfg.LLM, logging.Component(a.logger, "llm"))

	runLock := lock.Chain{lock.NewLocal()}
	if cfg.Redis.Addr != "" {
		client, err := lock.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		a.redis = client
		runLock = append(runLock, lock.NewRedis(client, cfg.Redis.LockKey, cfg.Redis.LockTTL, logging.Component(a.logger, "lock")))
	}

	var notifier ports.Notifier
	if cfg.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Telegram, nil, logging.Component(a.logger, "telegram"))
	}

	a.articles = storage.NewArticleRepository(a.db)
	upvotes := storage.NewUpvoteRepository(a.db)
	users := storage.NewUserRepository(a.db)

	a.pipeline, err = usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Parser:     source,
		Classifier: assistant,
		Summarizer: assistant,
		Repository: a.articles,
		Notifier:   notifier,
		Lock:       runLock,
		Metrics:    a.metrics,
		Logger:     logging.Component(a.logger, "pipeline"),
	}, usecase.PipelineOptions{
		SearchTerm:        cfg.Ingestion.SearchTerm,
		BackfillPageStart: cfg.Scheduler.BackfillPageStart,
		BackfillPageEnd:   cfg.Scheduler.BackfillPageEnd,
		Workers:           cfg.Ingestion.Workers,
		ItemTimeout:       cfg.Ingestion.ItemTimeout,
	})
	if err != nil {
		return err
	}

	a.search, err = usecase.NewSearchService(usecase.SearchDeps{
		Source:     source,
		Parser:     source,
		Keywords:   assistant,
		Summarizer: assistant,
		Logger:     logging.Component(a.logger, "search"),
	}, usecase.SearchOptions{
		Summarize: cfg.Search.Summarize,
		IDBase:    cfg.Search.IDBase,
		Workers:   cfg.Search.Workers,
		Timeout:   cfg.Search.Timeout,
	})
	if err != nil {
		return err
	}

	a.news = usecase.NewNewsService(a.articles, upvotes, assistant)

	secret := cfg.HTTP.JWTSecret
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			return err
		}
		a.logger.Warn("JWT secret not configured; issued tokens will not survive a restart")
	}
	a.auth, err = usecase.NewAuthService(users, secret, cfg.HTTP.TokenTTL)
	if err != nil {
		return err
	}

	cron := scheduler.NewCronScheduler(cfg.Scheduler.Interval, loc, logging.Component(a.logger, "cron"))
	a.scheduler = usecase.NewScheduler(cron, a.pipeline, a.articles, logging.Component(a.logger, "scheduler"))

	if cfg.OpenData.PricesURL != "" {
		a.prices = opendata.NewClient(cfg.OpenData, nil)
	}
	return nil
}

// Serve binds the HTTP API, then starts the scheduler, and blocks until ctx
// is done or the server fails. A bind failure returns before any crawling;
// the API answers while the bootstrap backfill runs.
func (a *Application) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.HTTP.Addr, err)
	}

	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           a.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP API listening", zap.String("addr", srv.Addr))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if err := a.scheduler.Start(ctx); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return fmt.Errorf("start scheduler: %w", err)
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("HTTP shutdown", zap.Error(err))
	}
	if err := a.scheduler.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler shutdown", zap.Error(err))
	}
	return serveErr
}

// Router builds the HTTP handler over the application's services.
func (a *Application) Router() *gin.Engine {
	deps := api.Deps{
		News:           a.news,
		Search:         a.search,
		Auth:           a.auth,
		Health:         a.db.Ping,
		Gatherer:       a.registry,
		Metrics:        a.metrics,
		AllowedOrigins: a.cfg.HTTP.AllowedOrigins,
		Location:       a.cfg.Scheduler.Location(),
		Logger:         logging.Component(a.logger, "http"),
	}
	if a.prices != nil {
		deps.Prices = a.prices
	}
	return api.NewRouter(deps)
}

// Ingest runs the pipeline once in the given mode.
func (a *Application) Ingest(ctx context.Context, mode domain.RunMode) (*domain.RunReport, error) {
	return a.pipeline.Run(ctx, mode)
}

// Search runs an interactive search without touching the store.
func (a *Application) Search(ctx context.Context, prompt string) ([]domain.SearchResult, error) {
	return a.search.Search(ctx, prompt)
}

// Articles lists stored articles, newest first.
func (a *Application) Articles(ctx context.Context) ([]domain.StoredArticle, error) {
	return a.articles.List(ctx)
}

// Location is the zone used for schedules and displayed times.
func (a *Application) Location() *time.Location {
	return a.cfg.Scheduler.Location()
}

// Close releases the database and redis connections.
func (a *Application) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close database", zap.Error(err))
		}
	}
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate JWT secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
