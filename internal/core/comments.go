package core

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/conduitapi/conduit/internal/utils/databaseutils"
	"github.com/conduitapi/conduit/models"
	"github.com/mdobak/go-xerrors"
)

func scanComment(rows *sql.Rows) (*models.Comment, error) {
	comment := &models.Comment{}
	if err := rows.Scan(
		&comment.ID,
		&comment.Body,
		&comment.ArticleID,
		&comment.AuthorID,
		&comment.CreatedAt,
		&comment.UpdatedAt,
	); err != nil {
		return nil, xerrors.New(err)
	}
	return comment, nil
}

func (c *Core) CreateComment(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	insertSQL := `
		INSERT INTO comments (body, article_id, author_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, body, article_id, author_id, created_at, updated_at
	`

	now := time.Now()
	args := []any{comment.Body, comment.ArticleID, comment.AuthorID, now, now}
	created, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, insertSQL, scanComment, args...)
	if err != nil {
		return nil, xerrors.New(err)
	}

	return created, nil
}

// GetCommentsByArticleID returns the article's comments newest-first.
func (c *Core) GetCommentsByArticleID(ctx context.Context, articleID int64) ([]*models.Comment, error) {
	query := `
		SELECT id, body, article_id, author_id, created_at, updated_at
		FROM comments
		WHERE article_id = $1
		ORDER BY created_at DESC, id DESC
	`

	comments, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, query, scanComment, articleID)
	if err != nil {
		return nil, xerrors.New(err)
	}

	return comments, nil
}

func (c *Core) GetCommentByID(ctx context.Context, commentID int64) (*models.Comment, error) {
	query := `
		SELECT id, body, article_id, author_id, created_at, updated_at
		FROM comments
		WHERE id = $1
	`

	comment, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, query, scanComment, commentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, xerrors.New(NoRecordFound)
		}
		return nil, xerrors.New(err)
	}

	return comment, nil
}

func (c *Core) DeleteComment(ctx context.Context, commentID int64) error {
	deleteSQL := `DELETE FROM comments WHERE id = $1`

	affected, err := databaseutils.ExecuteUpdate(c.sqlTemplate, ctx, deleteSQL, commentID)
	if err != nil {
		return xerrors.New(err)
	}

	if affected == 0 {
		return xerrors.New(NoRecordFound)
	}

	return nil
}
