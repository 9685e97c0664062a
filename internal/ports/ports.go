package ports

import (
	"context"
	"time"

	"PriceNewsScanner/internal/domain"
)

// HeadlineFetcher reads search-result pages from a news site.
type HeadlineFetcher interface {
	FetchHeadlines(ctx context.Context, searchTerm string, page int) ([]domain.Headline, error)
	FetchHeadlineRange(ctx context.Context, searchTerm string, pageStart, pageEnd int) ([]domain.Headline, error)
}

// ArticleParser turns an article URL into a parsed Article.
type ArticleParser interface {
	ParseArticle(ctx context.Context, url string) (domain.Article, error)
}

// NewsSite is the capability set one crawlable site provides.
type NewsSite interface {
	Name() string
	HeadlineFetcher
	ArticleParser
}

// RelevanceClassifier rates how well a headline fits the tracked topic.
type RelevanceClassifier interface {
	Classify(ctx context.Context, title string) (domain.RelevanceTier, error)
}

// Summarizer extracts the effect/cause pair from article content.
type Summarizer interface {
	Summarize(ctx context.Context, content string) (domain.Summary, error)
}

// KeywordExtractor turns a free-text request into search keywords.
type KeywordExtractor interface {
	ExtractKeywords(ctx context.Context, prompt string) (string, error)
}

// ArticleRepository persists summarized articles, deduplicated by URL.
type ArticleRepository interface {
	Save(ctx context.Context, article domain.SummarizedArticle) (created bool, err error)
	List(ctx context.Context) ([]domain.StoredArticle, error)
	Count(ctx context.Context) (int, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// UpvoteRepository keeps per-user upvotes on stored articles.
type UpvoteRepository interface {
	Toggle(ctx context.Context, userID, articleID int64) (domain.UpvoteAction, error)
	Counts(ctx context.Context) (map[int64]int, error)
	UpvotedBy(ctx context.Context, userID int64) (map[int64]bool, error)
}

// UserRepository stores accounts.
type UserRepository interface {
	Create(ctx context.Context, username, passwordHash string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	GetByID(ctx context.Context, id int64) (domain.User, error)
}

// RunLock guards against overlapping ingestion runs. Acquire returns false
// without error when another holder owns the lock.
type RunLock interface {
	Acquire(ctx context.Context) (release func(), ok bool, err error)
}

// Notifier streams digests of newly stored articles to a chat channel.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// PriceSource reads the necessities price feed.
type PriceSource interface {
	NecessityPrices(ctx context.Context, category, commodity string) ([]domain.NecessityPrice, error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
