package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"PriceNewsScanner/internal/domain"
	"PriceNewsScanner/internal/ports"
)

// SearchDeps wires the adapters used by interactive search.
type SearchDeps struct {
	Source     ports.HeadlineFetcher
	Parser     ports.ArticleParser
	Keywords   ports.KeywordExtractor
	Summarizer ports.Summarizer
	Logger     *zap.Logger
}

// SearchOptions configures interactive search.
type SearchOptions struct {
	Summarize bool
	IDBase    int64
	Workers   int
	Timeout   time.Duration
}

// SearchService answers free-text news queries without touching the store.
type SearchService struct {
	source     ports.HeadlineFetcher
	parser     ports.ArticleParser
	keywords   ports.KeywordExtractor
	summarizer ports.Summarizer
	logger     *zap.Logger
	opts       SearchOptions

	lastID atomic.Int64
}

// NewSearchService builds the service; ids handed out start at opts.IDBase.
func NewSearchService(deps SearchDeps, opts SearchOptions) (*SearchService, error) {
	if deps.Source == nil || deps.Parser == nil || deps.Keywords == nil {
		return nil, errors.New("search requires source, parser and keyword extractor")
	}
	if opts.Summarize && deps.Summarizer == nil {
		return nil, errors.New("search summarization enabled without a summarizer")
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	s := &SearchService{
		source:     deps.Source,
		parser:     deps.Parser,
		keywords:   deps.Keywords,
		summarizer: deps.Summarizer,
		logger:     deps.Logger,
		opts:       opts,
	}
	s.lastID.Store(opts.IDBase - 1)
	return s, nil
}

// Search extracts keywords from prompt, reads the first result page and
// parses every hit, newest first. Articles that fail to parse are dropped.
// A keyword or listing failure returns no results together with the error.
func (s *SearchService) Search(ctx context.Context, prompt string) ([]domain.SearchResult, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	keywords, err := s.keywords.ExtractKeywords(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("extract keywords: %w", err)
	}
	if keywords == "" {
		s.logger.Debug("no keywords extracted", zap.String("prompt", prompt))
		return []domain.SearchResult{}, nil
	}

	headlines, err := s.source.FetchHeadlines(ctx, keywords, 1)
	if err != nil {
		return nil, fmt.Errorf("fetch headlines: %w", err)
	}

	found := make([]*domain.SummarizedArticle, len(headlines))
	g := new(errgroup.Group)
	g.SetLimit(s.opts.Workers)
	for i, h := range headlines {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			article, err := s.parser.ParseArticle(ctx, h.URL)
			if err != nil {
				s.logger.Debug("search hit not parsed", zap.String("url", h.URL), zap.Error(err))
				return nil
			}
			item := domain.SummarizedArticle{Article: article}
			if s.opts.Summarize {
				summary, err := s.summarizer.Summarize(ctx, article.Content)
				if err != nil {
					s.logger.Debug("search hit not summarized", zap.String("url", h.URL), zap.Error(err))
				} else {
					item = article.WithSummary(summary)
				}
			}
			found[i] = &item
			return nil
		})
	}
	_ = g.Wait()

	results := make([]domain.SearchResult, 0, len(found))
	for _, item := range found {
		if item != nil {
			results = append(results, domain.SearchResult{SummarizedArticle: *item})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].PublishedAt.After(results[j].PublishedAt)
	})
	for i := range results {
		results[i].ID = s.lastID.Add(1)
	}

	s.logger.Info("search finished",
		zap.String("keywords", keywords),
		zap.Int("headlines", len(headlines)),
		zap.Int("results", len(results)))

	return results, ctx.Err()
}
