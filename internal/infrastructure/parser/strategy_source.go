package parser

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"PriceNewsScanner/internal/domain"
	"PriceNewsScanner/internal/ports"
	"PriceNewsScanner/internal/scanner"
)

// StrategySource implements ports.NewsSite by delegating to the site
// strategy selected in config.
type StrategySource struct {
	site   ports.NewsSite
	logger *zap.Logger
}

var _ ports.NewsSite = (*StrategySource)(nil)

// NewStrategySource resolves the configured site from the registry.
func NewStrategySource(reg *scanner.Registry, siteName string, log *zap.Logger) (*StrategySource, error) {
	if reg == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}
	site, err := reg.Resolve(siteName)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &StrategySource{site: site, logger: log.With(zap.String("site", site.Name()))}, nil
}

// Name returns the delegated site's name.
func (s *StrategySource) Name() string {
	return s.site.Name()
}

// FetchHeadlines fetches one listing page.
func (s *StrategySource) FetchHeadlines(ctx context.Context, searchTerm string, page int) ([]domain.Headline, error) {
	start := time.Now()
	headlines, err := s.site.FetchHeadlines(ctx, searchTerm, page)
	s.logger.Debug("fetch headlines",
		zap.String("term", searchTerm),
		zap.Int("page", page),
		zap.Int("count", len(headlines)),
		zap.Duration("took", time.Since(start)),
		zap.Error(err))
	return headlines, err
}

// FetchHeadlineRange fetches an inclusive page window.
func (s *StrategySource) FetchHeadlineRange(ctx context.Context, searchTerm string, pageStart, pageEnd int) ([]domain.Headline, error) {
	start := time.Now()
	headlines, err := s.site.FetchHeadlineRange(ctx, searchTerm, pageStart, pageEnd)
	s.logger.Debug("fetch headline range",
		zap.String("term", searchTerm),
		zap.Int("page_start", pageStart),
		zap.Int("page_end", pageEnd),
		zap.Int("count", len(headlines)),
		zap.Duration("took", time.Since(start)),
		zap.Error(err))
	return headlines, err
}

// ParseArticle parses one article page.
func (s *StrategySource) ParseArticle(ctx context.Context, url string) (domain.Article, error) {
	start := time.Now()
	article, err := s.site.ParseArticle(ctx, url)
	s.logger.Debug("parse article",
		zap.String("url", url),
		zap.Int("content_len", len(article.Content)),
		zap.Duration("took", time.Since(start)),
		zap.Error(err))
	return article, err
}
