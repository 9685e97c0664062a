package domain

import (
	"strings"
	"time"
)

// Headline is a title/URL pair taken from one page of search results.
type Headline struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Article is the parsed body of a headline's page.
type Article struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"time"`
	Content     string    `json:"content"`
}

// SummarizedArticle is the unit handed to the store.
type SummarizedArticle struct {
	Article
	Summary string `json:"summary"`
	Reason  string `json:"reason"`
}

// Summary holds the effect/cause pair produced by the summarizer.
type Summary struct {
	Effect string `json:"summary"`
	Cause  string `json:"reason"`
}

// Empty reports whether the summarizer produced nothing usable.
func (s Summary) Empty() bool {
	return strings.TrimSpace(s.Effect) == "" && strings.TrimSpace(s.Cause) == ""
}

// WithSummary attaches a summary to a parsed article.
func (a Article) WithSummary(s Summary) SummarizedArticle {
	return SummarizedArticle{Article: a, Summary: s.Effect, Reason: s.Cause}
}

// StoredArticle is the persisted form of a SummarizedArticle.
type StoredArticle struct {
	ID          int64     `db:"id"`
	URL         string    `db:"url"`
	Title       string    `db:"title"`
	PublishedAt time.Time `db:"published_at"`
	Content     string    `db:"content"`
	Summary     string    `db:"summary"`
	Reason      string    `db:"reason"`
	CreatedAt   time.Time `db:"created_at"`
}

// ArticleView is a stored article decorated with upvote details for one viewer.
type ArticleView struct {
	StoredArticle
	UpvoteCount int
	IsUpvoted   bool
}

// SearchResult is an article found by the interactive search. Its ID is
// process-local and never collides with store-assigned ids.
type SearchResult struct {
	ID int64
	SummarizedArticle
}
