package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/conduitapi/conduit/internal/auth"
	"github.com/conduitapi/conduit/internal/database"
	"github.com/conduitapi/conduit/internal/filter"
	"github.com/conduitapi/conduit/internal/utils/databaseutils"
	"github.com/conduitapi/conduit/internal/utils/stringutils"
	"github.com/conduitapi/conduit/models"
	"github.com/mdobak/go-xerrors"
)

var ErrDuplicatedSlug = xerrors.Message("duplicate slug")

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

const articleColumns = "a.id, a.slug, a.title, a.description, a.body, a.author_id, a.created_at, a.updated_at"

// ListCriteria narrows GetArticles. Tag and Author are exact matches, Search
// is a case-insensitive substring over title/description/body.
type ListCriteria struct {
	Tag         string
	Author      string
	FavoritedBy string
	Search      string
}

func scanArticle(rows *sql.Rows) (*models.Article, error) {
	article := &models.Article{}
	if err := rows.Scan(
		&article.ID,
		&article.Slug,
		&article.Title,
		&article.Description,
		&article.Body,
		&article.AuthorID,
		&article.CreatedAt,
		&article.UpdatedAt,
	); err != nil {
		return nil, xerrors.New(err)
	}
	return article, nil
}

func (c *Core) InsertArticle(ctx context.Context, article *models.Article) (*models.Article, error) {
	insertSQL := `
		INSERT INTO articles (slug, title, description, body, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, slug, title, description, body, author_id, created_at, updated_at
	`

	now := time.Now()
	args := []any{article.Slug, article.Title, article.Description, article.Body, article.AuthorID, now, now}
	created, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, insertSQL, scanArticle, args...)
	if err != nil {
		if database.IsUniqueViolation(err, "slug") {
			return nil, xerrors.New(ErrDuplicatedSlug)
		}
		return nil, xerrors.New(err)
	}

	return created, nil
}

func (c *Core) GetArticleBySlug(ctx context.Context, slug string) (*models.Article, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM articles AS a
		WHERE a.slug = $1
	`, articleColumns)

	article, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, query, scanArticle, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, xerrors.New(NoRecordFound)
		}
		return nil, xerrors.New(err)
	}

	return article, nil
}

func applyCriteria(builder squirrel.SelectBuilder, criteria ListCriteria) squirrel.SelectBuilder {
	if criteria.Tag != "" {
		builder = builder.
			Join("article_tags AS atg ON atg.article_id = a.id").
			Join("tags AS tg ON tg.id = atg.tag_id").
			Where(squirrel.Eq{"tg.name": criteria.Tag})
	}
	if criteria.Author != "" {
		builder = builder.
			Join("users AS au ON au.id = a.author_id").
			Where(squirrel.Eq{"au.username": criteria.Author})
	}
	if criteria.FavoritedBy != "" {
		builder = builder.Where(`EXISTS (
			SELECT 1 FROM favorites AS fav
			JOIN users AS fu ON fu.id = fav.user_id
			WHERE fav.article_id = a.id AND fu.username = ?
		)`, criteria.FavoritedBy)
	}
	if criteria.Search != "" {
		pattern := "%" + strings.ToLower(criteria.Search) + "%"
		builder = builder.Where(
			"(LOWER(a.title) LIKE ? OR LOWER(a.description) LIKE ? OR LOWER(a.body) LIKE ?)",
			pattern, pattern, pattern,
		)
	}
	return builder
}

// GetArticles returns a newest-first page plus the total count matching the
// criteria regardless of pagination.
func (c *Core) GetArticles(ctx context.Context, criteria ListCriteria, filters filter.Filter) ([]*models.Article, filter.Metadata, error) {
	listSQL, listArgs, err := applyCriteria(psql.Select(articleColumns).From("articles AS a"), criteria).
		OrderBy("a.created_at DESC", "a.id DESC").
		Limit(uint64(filters.Limit)).
		Offset(uint64(filters.Offset)).
		ToSql()
	if err != nil {
		return nil, filter.Metadata{}, xerrors.New(err)
	}

	articles, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, listSQL, scanArticle, listArgs...)
	if err != nil {
		return nil, filter.Metadata{}, xerrors.New(err)
	}

	countSQL, countArgs, err := applyCriteria(psql.Select("COUNT(*)").From("articles AS a"), criteria).ToSql()
	if err != nil {
		return nil, filter.Metadata{}, xerrors.New(err)
	}

	count, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, countSQL, func(rows *sql.Rows) (int64, error) {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return 0, xerrors.New(err)
		}
		return n, nil
	}, countArgs...)
	if err != nil {
		return nil, filter.Metadata{}, xerrors.New(err)
	}

	return articles, filter.Metadata{ArticlesCount: count}, nil
}

// GetFeed pages through articles authored by users the caller follows.
func (c *Core) GetFeed(ctx context.Context, userID int64, filters filter.Filter) ([]*models.Article, filter.Metadata, error) {
	feedSQL := fmt.Sprintf(`
		SELECT %s
		FROM articles AS a
		WHERE a.author_id IN (
			SELECT followee_id FROM followers WHERE follower_id = $1
		)
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT $2 OFFSET $3
	`, articleColumns)

	articles, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, feedSQL, scanArticle, userID, filters.Limit, filters.Offset)
	if err != nil {
		return nil, filter.Metadata{}, xerrors.New(err)
	}

	countSQL := `
		SELECT COUNT(*)
		FROM articles
		WHERE author_id IN (
			SELECT followee_id FROM followers WHERE follower_id = $1
		)
	`

	count, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, countSQL, func(rows *sql.Rows) (int64, error) {
		var n int64
		if err := rows.Scan(&n); err != nil {
			return 0, xerrors.New(err)
		}
		return n, nil
	}, userID)
	if err != nil {
		return nil, filter.Metadata{}, xerrors.New(err)
	}

	return articles, filter.Metadata{ArticlesCount: count}, nil
}

// UpdateArticle rewrites the mutable columns and refreshes updated_at. The
// slug stays stable across edits.
func (c *Core) UpdateArticle(ctx context.Context, article *models.Article) (*models.Article, error) {
	updateSQL := `
		UPDATE articles
		SET title = $1, description = $2, body = $3, updated_at = $4
		WHERE id = $5
		RETURNING id, slug, title, description, body, author_id, created_at, updated_at
	`

	args := []any{article.Title, article.Description, article.Body, time.Now(), article.ID}
	updated, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, updateSQL, scanArticle, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, xerrors.New(NoRecordFound)
		}
		return nil, xerrors.New(err)
	}

	return updated, nil
}

// DeleteArticle removes the article and everything hanging off it. The caller
// must run it inside a transaction so the cascade is atomic.
func (c *Core) DeleteArticle(ctx context.Context, articleID int64) error {
	statements := []string{
		`DELETE FROM comments WHERE article_id = $1`,
		`DELETE FROM favorites WHERE article_id = $1`,
		`DELETE FROM article_tags WHERE article_id = $1`,
		`DELETE FROM articles WHERE id = $1`,
	}

	for _, stmt := range statements {
		if _, err := databaseutils.ExecuteUpdate(c.sqlTemplate, ctx, stmt, articleID); err != nil {
			return xerrors.New(err)
		}
	}

	return nil
}

// FavoriteArticle is idempotent: favoriting twice leaves a single relation.
func (c *Core) FavoriteArticle(ctx context.Context, userID, articleID int64) error {
	insertSQL := `
		INSERT INTO favorites (article_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (article_id, user_id) DO NOTHING
	`

	if _, err := databaseutils.ExecuteUpdate(c.sqlTemplate, ctx, insertSQL, articleID, userID); err != nil {
		return xerrors.New(err)
	}
	return nil
}

// UnfavoriteArticle is idempotent: removing an absent favorite is a no-op.
func (c *Core) UnfavoriteArticle(ctx context.Context, userID, articleID int64) error {
	deleteSQL := `
		DELETE FROM favorites
		WHERE article_id = $1 AND user_id = $2
	`

	if _, err := databaseutils.ExecuteUpdate(c.sqlTemplate, ctx, deleteSQL, articleID, userID); err != nil {
		return xerrors.New(err)
	}
	return nil
}

// FavoritedSetByUser reports which of articleIDs the user has favorited.
// A nil user favorites nothing.
func (c *Core) FavoritedSetByUser(ctx context.Context, user *auth.User, articleIDs []int64) (map[int64]bool, error) {
	if user == nil || len(articleIDs) == 0 {
		return map[int64]bool{}, nil
	}

	placeholders, args := stringutils.INClause(articleIDs, 1)
	query := fmt.Sprintf(`
		SELECT article_id
		FROM favorites
		WHERE user_id = $1 AND article_id IN (%s)
	`, strings.Join(placeholders, ", "))

	favorited := map[int64]bool{}
	_, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, query, func(rows *sql.Rows) (int64, error) {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, xerrors.New(err)
		}
		favorited[id] = true
		return id, nil
	}, append([]any{user.ID}, args...)...)

	if err != nil {
		return nil, xerrors.New(err)
	}

	return favorited, nil
}

// FavoriteCountByArticleIDs counts favorites per article. Articles nobody
// favorited are absent from the map.
func (c *Core) FavoriteCountByArticleIDs(ctx context.Context, articleIDs []int64) (map[int64]int64, error) {
	if len(articleIDs) == 0 {
		return map[int64]int64{}, nil
	}

	placeholders, args := stringutils.INClause(articleIDs, 0)
	query := fmt.Sprintf(`
		SELECT article_id, COUNT(*)
		FROM favorites
		WHERE article_id IN (%s)
		GROUP BY article_id
	`, strings.Join(placeholders, ", "))

	counts := map[int64]int64{}
	_, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, query, func(rows *sql.Rows) (int64, error) {
		var id, count int64
		if err := rows.Scan(&id, &count); err != nil {
			return 0, xerrors.New(err)
		}
		counts[id] = count
		return id, nil
	}, args...)

	if err != nil {
		return nil, xerrors.New(err)
	}

	return counts, nil
}
