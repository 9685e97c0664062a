package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceNewsScanner/internal/domain"
)

type memUpvotes struct {
	byArticle map[int64]map[int64]bool
	repo      *memRepo
}

func newMemUpvotes(repo *memRepo) *memUpvotes {
	return &memUpvotes{byArticle: map[int64]map[int64]bool{}, repo: repo}
}

func (u *memUpvotes) Toggle(ctx context.Context, userID, articleID int64) (domain.UpvoteAction, error) {
	ok, _ := u.repo.Exists(ctx, articleID)
	if !ok {
		return "", domain.ErrNotFound
	}
	if u.byArticle[articleID] == nil {
		u.byArticle[articleID] = map[int64]bool{}
	}
	if u.byArticle[articleID][userID] {
		delete(u.byArticle[articleID], userID)
		return domain.UpvoteRemoved, nil
	}
	u.byArticle[articleID][userID] = true
	return domain.UpvoteAdded, nil
}

func (u *memUpvotes) Counts(context.Context) (map[int64]int, error) {
	out := map[int64]int{}
	for id, users := range u.byArticle {
		if len(users) > 0 {
			out[id] = len(users)
		}
	}
	return out, nil
}

func (u *memUpvotes) UpvotedBy(_ context.Context, userID int64) (map[int64]bool, error) {
	out := map[int64]bool{}
	for id, users := range u.byArticle {
		if users[userID] {
			out[id] = true
		}
	}
	return out, nil
}

func TestNewsListDecoratesUpvotes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newMemRepo()
	_, _ = repo.Save(ctx, domain.SummarizedArticle{Article: domain.Article{URL: "https://udn.com/a"}})
	upvotes := newMemUpvotes(repo)
	svc := NewNewsService(repo, upvotes, nil)

	action, err := svc.ToggleUpvote(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.UpvoteAdded, action)
	_, _ = svc.ToggleUpvote(ctx, 8, 1)

	anon, err := svc.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, anon, 1)
	assert.Equal(t, 2, anon[0].UpvoteCount)
	assert.False(t, anon[0].IsUpvoted)

	mine, err := svc.List(ctx, 7)
	require.NoError(t, err)
	assert.True(t, mine[0].IsUpvoted)

	action, err = svc.ToggleUpvote(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.UpvoteRemoved, action)

	_, err = svc.ToggleUpvote(ctx, 7, 99)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNewsSummarize(t *testing.T) {
	t.Parallel()

	svc := NewNewsService(newMemRepo(), nil, &stubSummarizer{summary: domain.Summary{Effect: "X", Cause: "Y"}})
	got, err := svc.Summarize(context.Background(), "漲幅擴大")
	require.NoError(t, err)
	assert.Equal(t, "X", got.Effect)

	_, err = svc.Summarize(context.Background(), "  ")
	require.Error(t, err)

	failing := NewNewsService(newMemRepo(), nil, &stubSummarizer{err: &domain.SummaryError{}})
	_, err = failing.Summarize(context.Background(), "text")
	var sumErr *domain.SummaryError
	require.ErrorAs(t, err, &sumErr)
}
