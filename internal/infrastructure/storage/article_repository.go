package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"PriceNewsScanner/internal/domain"
	"PriceNewsScanner/internal/ports"
)

var articleColumns = []string{"id", "url", "title", "published_at", "content", "summary", "reason", "created_at"}

// ArticleRepository persists summarized articles. The UNIQUE constraint on url
// is the authoritative duplicate guard.
type ArticleRepository struct {
	db  *DB
	now func() time.Time
}

var _ ports.ArticleRepository = (*ArticleRepository)(nil)

// NewArticleRepository wires the repository to an open database.
func NewArticleRepository(db *DB) *ArticleRepository {
	return &ArticleRepository{db: db, now: time.Now}
}

// Save inserts the article unless its url is already stored. A duplicate,
// whether seen up front or raced in by a concurrent writer, yields created=false.
func (r *ArticleRepository) Save(ctx context.Context, article domain.SummarizedArticle) (bool, error) {
	exists, err := r.urlExists(ctx, article.URL)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	query, args, err := r.db.sb.
		Insert("articles").
		Columns("url", "title", "published_at", "content", "summary", "reason", "created_at").
		Values(
			article.URL,
			article.Title,
			article.PublishedAt.UTC(),
			article.Content,
			article.Summary,
			article.Reason,
			r.now().UTC(),
		).
		Suffix("ON CONFLICT (url) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	res, err := r.db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert article: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

// List returns every stored article, newest publication first.
func (r *ArticleRepository) List(ctx context.Context) ([]domain.StoredArticle, error) {
	query, args, err := r.db.sb.
		Select(articleColumns...).
		From("articles").
		OrderBy("published_at DESC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	var articles []domain.StoredArticle
	if err := r.db.conn.SelectContext(ctx, &articles, query, args...); err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	for i := range articles {
		articles[i].PublishedAt = articles[i].PublishedAt.UTC()
		articles[i].CreatedAt = articles[i].CreatedAt.UTC()
	}
	return articles, nil
}

// Count returns the number of stored articles.
func (r *ArticleRepository) Count(ctx context.Context) (int, error) {
	query, args, err := r.db.sb.Select("COUNT(*)").From("articles").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int
	if err := r.db.conn.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return n, nil
}

// Exists reports whether an article with the given id is stored.
func (r *ArticleRepository) Exists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, sq.Eq{"id": id})
}

func (r *ArticleRepository) urlExists(ctx context.Context, url string) (bool, error) {
	return r.exists(ctx, sq.Eq{"url": url})
}

func (r *ArticleRepository) exists(ctx context.Context, pred sq.Eq) (bool, error) {
	query, args, err := r.db.sb.Select("id").From("articles").Where(pred).Limit(1).ToSql()
	if err != nil {
		return false, fmt.Errorf("build lookup: %w", err)
	}

	var id int64
	err = r.db.conn.GetContext(ctx, &id, query, args...)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("lookup article: %w", err)
	default:
		return true, nil
	}
}
