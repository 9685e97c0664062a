// Package api exposes stored articles, search, upvotes and price data over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"PriceNewsScanner/internal/domain"
	"PriceNewsScanner/internal/metrics"
	"PriceNewsScanner/internal/ports"
)

const corsMaxAge = 12 * time.Hour

// NewsService is the read and upvote side used by the news handlers.
type NewsService interface {
	List(ctx context.Context, viewerID int64) ([]domain.ArticleView, error)
	ToggleUpvote(ctx context.Context, userID, articleID int64) (domain.UpvoteAction, error)
	Summarize(ctx context.Context, content string) (domain.Summary, error)
}

// Searcher runs interactive searches.
type Searcher interface {
	Search(ctx context.Context, prompt string) ([]domain.SearchResult, error)
}

// Authenticator registers users and resolves bearer tokens.
type Authenticator interface {
	Register(ctx context.Context, username, password string) (domain.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	Authenticate(ctx context.Context, token string) (domain.User, error)
}

// Deps collects the router's collaborators.
type Deps struct {
	News           NewsService
	Search         Searcher
	Auth           Authenticator
	Prices         ports.PriceSource
	Health         func(ctx context.Context) error
	Gatherer       prometheus.Gatherer
	Metrics        *metrics.Metrics
	AllowedOrigins []string
	Location       *time.Location
	Logger         *zap.Logger
}

// NewRouter builds the gin engine with every route under /api/v1.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}

	corsCfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        corsMaxAge,
	}
	if len(deps.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = deps.AllowedOrigins
		corsCfg.AllowCredentials = true
	}

	router := gin.New()
	router.Use(cors.New(corsCfg))
	router.Use(requestLogger(deps.Logger, deps.Metrics))
	router.Use(gin.Recovery())

	h := &handlers{deps: deps, logger: deps.Logger}

	router.GET("/health", h.health)
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/api/v1")
	auth := requireUser(deps.Auth)

	news := v1.Group("/news")
	news.GET("/news", h.listNews)
	news.GET("/user_news", auth, h.listUserNews)
	news.POST("/search_news", h.searchNews)
	news.POST("/news_summary", auth, h.newsSummary)
	news.POST("/:id/upvote", auth, h.upvote)

	users := v1.Group("/users")
	users.POST("/register", h.register)
	users.POST("/login", h.login)
	users.GET("/me", auth, h.me)

	prices := v1.Group("/prices")
	prices.GET("/necessities-price", h.necessitiesPrice)

	return router
}

func requestLogger(log *zap.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		took := time.Since(start)
		m.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), took)
		log.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status_code", c.Writer.Status()),
			zap.String("client_ip", c.ClientIP()),
			zap.Duration("duration", took))
	}
}

func abortDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func (h *handlers) health(c *gin.Context) {
	if h.deps.Health != nil {
		if err := h.deps.Health(c.Request.Context()); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
