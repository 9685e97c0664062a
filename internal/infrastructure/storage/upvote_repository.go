package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"PriceNewsScanner/internal/domain"
	"PriceNewsScanner/internal/ports"
)

// UpvoteRepository keeps one upvote per user and article.
type UpvoteRepository struct {
	db  *DB
	now func() time.Time
}

var _ ports.UpvoteRepository = (*UpvoteRepository)(nil)

func NewUpvoteRepository(db *DB) *UpvoteRepository {
	return &UpvoteRepository{db: db, now: time.Now}
}

// Toggle removes the user's upvote if present, otherwise adds one.
// Unknown articles yield domain.ErrNotFound.
func (r *UpvoteRepository) Toggle(ctx context.Context, userID, articleID int64) (domain.UpvoteAction, error) {
	tx, err := r.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := r.db.sb.Select("id").From("articles").Where(sq.Eq{"id": articleID}).ToSql()
	if err != nil {
		return "", fmt.Errorf("build lookup: %w", err)
	}
	var found []int64
	if err := tx.SelectContext(ctx, &found, query, args...); err != nil {
		return "", fmt.Errorf("lookup article: %w", err)
	}
	if len(found) == 0 {
		return "", domain.ErrNotFound
	}

	query, args, err = r.db.sb.
		Delete("upvotes").
		Where(sq.Eq{"user_id": userID, "article_id": articleID}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build delete: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return "", fmt.Errorf("delete upvote: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("rows affected: %w", err)
	}

	action := domain.UpvoteRemoved
	if removed == 0 {
		query, args, err = r.db.sb.
			Insert("upvotes").
			Columns("user_id", "article_id", "created_at").
			Values(userID, articleID, r.now().UTC()).
			Suffix("ON CONFLICT (user_id, article_id) DO NOTHING").
			ToSql()
		if err != nil {
			return "", fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			// a concurrent toggle inserted the same pair first
			if isUniqueViolation(err) {
				return domain.UpvoteAdded, nil
			}
			return "", fmt.Errorf("insert upvote: %w", err)
		}
		action = domain.UpvoteAdded
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return action, nil
}

// Counts returns upvote totals keyed by article id; articles without upvotes are absent.
func (r *UpvoteRepository) Counts(ctx context.Context) (map[int64]int, error) {
	query, args, err := r.db.sb.
		Select("article_id", "COUNT(*) AS total").
		From("upvotes").
		GroupBy("article_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build counts: %w", err)
	}

	var rows []struct {
		ArticleID int64 `db:"article_id"`
		Total     int   `db:"total"`
	}
	if err := r.db.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("count upvotes: %w", err)
	}

	counts := make(map[int64]int, len(rows))
	for _, row := range rows {
		counts[row.ArticleID] = row.Total
	}
	return counts, nil
}

// UpvotedBy returns the set of article ids the user has upvoted.
func (r *UpvoteRepository) UpvotedBy(ctx context.Context, userID int64) (map[int64]bool, error) {
	query, args, err := r.db.sb.
		Select("article_id").
		From("upvotes").
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var ids []int64
	if err := r.db.conn.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("select upvotes: %w", err)
	}

	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
