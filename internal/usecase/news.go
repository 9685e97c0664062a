package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"PriceNewsScanner/internal/domain"
	"PriceNewsScanner/internal/ports"
)

// NewsService serves stored articles and upvotes to the query API.
type NewsService struct {
	articles   ports.ArticleRepository
	upvotes    ports.UpvoteRepository
	summarizer ports.Summarizer
}

func NewNewsService(articles ports.ArticleRepository, upvotes ports.UpvoteRepository, summarizer ports.Summarizer) *NewsService {
	return &NewsService{articles: articles, upvotes: upvotes, summarizer: summarizer}
}

// List returns every stored article with upvote totals. viewerID 0 means an
// anonymous caller, for whom IsUpvoted is always false.
func (s *NewsService) List(ctx context.Context, viewerID int64) ([]domain.ArticleView, error) {
	stored, err := s.articles.List(ctx)
	if err != nil {
		return nil, err
	}

	counts, err := s.upvotes.Counts(ctx)
	if err != nil {
		return nil, err
	}

	mine := map[int64]bool{}
	if viewerID != 0 {
		if mine, err = s.upvotes.UpvotedBy(ctx, viewerID); err != nil {
			return nil, err
		}
	}

	views := make([]domain.ArticleView, 0, len(stored))
	for _, a := range stored {
		views = append(views, domain.ArticleView{
			StoredArticle: a,
			UpvoteCount:   counts[a.ID],
			IsUpvoted:     mine[a.ID],
		})
	}
	return views, nil
}

// ToggleUpvote flips the user's upvote on an article.
func (s *NewsService) ToggleUpvote(ctx context.Context, userID, articleID int64) (domain.UpvoteAction, error) {
	return s.upvotes.Toggle(ctx, userID, articleID)
}

// Summarize runs the summarizer on caller-supplied text.
func (s *NewsService) Summarize(ctx context.Context, content string) (domain.Summary, error) {
	if s.summarizer == nil {
		return domain.Summary{}, errors.New("summarizer is not configured")
	}
	if strings.TrimSpace(content) == "" {
		return domain.Summary{}, fmt.Errorf("content is empty")
	}
	summary, err := s.summarizer.Summarize(ctx, content)
	if err != nil {
		return domain.Summary{}, err
	}
	if summary.Empty() {
		return domain.Summary{}, &domain.SummaryError{}
	}
	return summary, nil
}
