package usecase

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"PriceNewsScanner/internal/domain"
)

type stubSource struct {
	headlines []domain.Headline
	err       error
	pages     atomic.Int32
	ranges    atomic.Int32
	lastTerm  atomic.Value
}

func (s *stubSource) FetchHeadlines(_ context.Context, term string, _ int) ([]domain.Headline, error) {
	s.pages.Add(1)
	s.lastTerm.Store(term)
	if s.err != nil {
		return nil, s.err
	}
	return s.headlines, nil
}

func (s *stubSource) FetchHeadlineRange(_ context.Context, term string, _, _ int) ([]domain.Headline, error) {
	s.ranges.Add(1)
	s.lastTerm.Store(term)
	return s.headlines, s.err
}

type stubParser struct {
	articles map[string]domain.Article
	errs     map[string]error
	calls    atomic.Int32
}

func (p *stubParser) ParseArticle(_ context.Context, url string) (domain.Article, error) {
	p.calls.Add(1)
	if err := p.errs[url]; err != nil {
		return domain.Article{}, err
	}
	if a, ok := p.articles[url]; ok {
		return a, nil
	}
	return domain.Article{URL: url, Title: "t " + url, PublishedAt: time.Unix(0, 0), Content: "content of " + url}, nil
}

type stubClassifier struct {
	tiers map[string]domain.RelevanceTier
	err   error
	block bool
	calls atomic.Int32
}

func (c *stubClassifier) Classify(ctx context.Context, title string) (domain.RelevanceTier, error) {
	c.calls.Add(1)
	if c.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if c.err != nil {
		return "", c.err
	}
	if tier, ok := c.tiers[title]; ok {
		return tier, nil
	}
	return domain.TierHigh, nil
}

type stubSummarizer struct {
	summary domain.Summary
	err     error
	calls   atomic.Int32
}

func (s *stubSummarizer) Summarize(context.Context, string) (domain.Summary, error) {
	s.calls.Add(1)
	if s.err != nil {
		return domain.Summary{}, s.err
	}
	if s.summary.Empty() {
		return domain.Summary{Effect: "effect", Cause: "cause"}, nil
	}
	return s.summary, nil
}

type memRepo struct {
	mu     sync.Mutex
	byURL  map[string]domain.StoredArticle
	nextID int64
	saves  int
	err    error
}

func newMemRepo() *memRepo {
	return &memRepo{byURL: map[string]domain.StoredArticle{}}
}

func (r *memRepo) Save(_ context.Context, a domain.SummarizedArticle) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if r.err != nil {
		return false, r.err
	}
	if _, ok := r.byURL[a.URL]; ok {
		return false, nil
	}
	r.nextID++
	r.byURL[a.URL] = domain.StoredArticle{
		ID:          r.nextID,
		URL:         a.URL,
		Title:       a.Title,
		PublishedAt: a.PublishedAt,
		Content:     a.Content,
		Summary:     a.Summary,
		Reason:      a.Reason,
	}
	return true, nil
}

func (r *memRepo) List(context.Context) ([]domain.StoredArticle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.StoredArticle, 0, len(r.byURL))
	for _, a := range r.byURL {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PublishedAt.Equal(out[j].PublishedAt) {
			return out[i].PublishedAt.After(out[j].PublishedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memRepo) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byURL), nil
}

func (r *memRepo) Exists(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byURL {
		if a.ID == id {
			return true, nil
		}
	}
	return false, nil
}

type stubNotifier struct {
	mu      sync.Mutex
	digests []string
}

func (n *stubNotifier) PublishDigest(_ context.Context, digest string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.digests = append(n.digests, digest)
	return nil
}

func headlines(titles ...string) []domain.Headline {
	out := make([]domain.Headline, 0, len(titles))
	for _, t := range titles {
		out = append(out, domain.Headline{Title: t, URL: "https://udn.com/news/" + t})
	}
	return out
}
