package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceNewsScanner/internal/domain"
)

type stubKeywords struct {
	keywords string
	err      error
}

func (k stubKeywords) ExtractKeywords(context.Context, string) (string, error) {
	return k.keywords, k.err
}

func newSearch(t *testing.T, src *stubSource, p *stubParser, kw stubKeywords, sum *stubSummarizer, opts SearchOptions) *SearchService {
	t.Helper()
	deps := SearchDeps{Source: src, Parser: p, Keywords: kw}
	if sum != nil {
		deps.Summarizer = sum
	}
	s, err := NewSearchService(deps, opts)
	require.NoError(t, err)
	return s
}

func TestSearchSortsNewestFirstAndAssignsEphemeralIDs(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	src := &stubSource{headlines: headlines("old", "broken", "new")}
	p := &stubParser{
		articles: map[string]domain.Article{
			"https://udn.com/news/old": {URL: "https://udn.com/news/old", PublishedAt: base},
			"https://udn.com/news/new": {URL: "https://udn.com/news/new", PublishedAt: base.Add(time.Hour)},
		},
		errs: map[string]error{"https://udn.com/news/broken": &domain.ParseError{Field: "title"}},
	}
	s := newSearch(t, src, p, stubKeywords{keywords: "雞蛋 油價"}, nil, SearchOptions{IDBase: 1_000_000_000, Workers: 2})

	results, err := s.Search(context.Background(), "我想看雞蛋和油價")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "https://udn.com/news/new", results[0].URL)
	assert.Equal(t, "https://udn.com/news/old", results[1].URL)
	assert.Equal(t, int64(1_000_000_000), results[0].ID)
	assert.Equal(t, int64(1_000_000_001), results[1].ID)
	assert.Equal(t, "雞蛋 油價", src.lastTerm.Load())
	assert.Empty(t, results[0].Summary, "summaries are off by default")

	again, err := s.Search(context.Background(), "again")
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_002), again[0].ID, "ids keep increasing across searches")
}

func TestSearchNeverCallsRelevanceGateAndCanSummarize(t *testing.T) {
	t.Parallel()

	sum := &stubSummarizer{summary: domain.Summary{Effect: "X", Cause: "Y"}}
	s := newSearch(t, &stubSource{headlines: headlines("a", "b")}, &stubParser{},
		stubKeywords{keywords: "k"}, sum, SearchOptions{Summarize: true})

	results, err := s.Search(context.Background(), "p")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, int32(2), sum.calls.Load())
	assert.Equal(t, "X", results[0].Summary)
	assert.Equal(t, "Y", results[0].Reason)
}

func TestSearchKeepsUnsummarizedHitsOnSummaryFailure(t *testing.T) {
	t.Parallel()

	sum := &stubSummarizer{err: &domain.SummaryError{}}
	s := newSearch(t, &stubSource{headlines: headlines("a")}, &stubParser{},
		stubKeywords{keywords: "k"}, sum, SearchOptions{Summarize: true})

	results, err := s.Search(context.Background(), "p")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Summary)
}

func TestSearchEmptyResultPaths(t *testing.T) {
	t.Parallel()

	src := &stubSource{headlines: headlines("a")}

	results, err := newSearch(t, src, &stubParser{}, stubKeywords{}, nil, SearchOptions{}).Search(context.Background(), "p")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, src.pages.Load(), "no listing fetch without keywords")

	_, err = newSearch(t, src, &stubParser{}, stubKeywords{err: errors.New("llm down")}, nil, SearchOptions{}).
		Search(context.Background(), "p")
	require.Error(t, err)

	failing := &stubSource{err: &domain.FetchError{Page: 1, Err: errors.New("503")}}
	results, err = newSearch(t, failing, &stubParser{}, stubKeywords{keywords: "k"}, nil, SearchOptions{}).
		Search(context.Background(), "p")
	require.Error(t, err)
	assert.Empty(t, results)
}

func TestSearchCancelledContext(t *testing.T) {
	t.Parallel()

	p := &stubParser{}
	s := newSearch(t, &stubSource{headlines: headlines("a", "b")}, p, stubKeywords{keywords: "k"}, nil, SearchOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := s.Search(ctx, "p")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, results)
	assert.Zero(t, p.calls.Load())
}

func TestNewSearchServiceRequiresSummarizerWhenEnabled(t *testing.T) {
	t.Parallel()

	_, err := NewSearchService(SearchDeps{
		Source:   &stubSource{},
		Parser:   &stubParser{},
		Keywords: stubKeywords{},
	}, SearchOptions{Summarize: true})
	require.Error(t, err)
}
