package core

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/conduitapi/conduit/internal/utils/databaseutils"
	"github.com/conduitapi/conduit/internal/utils/stringutils"
	"github.com/conduitapi/conduit/models"
	"github.com/mdobak/go-xerrors"
)

// UpsertTags inserts the given names, reusing rows that already exist, and
// returns the tags in input order. Names must be distinct; the handler
// deduplicates before calling.
func (c *Core) UpsertTags(ctx context.Context, names []string) ([]*models.Tag, error) {
	if len(names) == 0 {
		return nil, nil
	}

	valueStrings := make([]string, 0, len(names))
	valueArgs := make([]any, 0, len(names))
	for i, name := range names {
		valueStrings = append(valueStrings, fmt.Sprintf("($%d)", i+1))
		valueArgs = append(valueArgs, name)
	}

	// The no-op DO UPDATE makes RETURNING yield pre-existing rows as well.
	insertSQL := fmt.Sprintf(`
		INSERT INTO tags (name)
		VALUES %s
		ON CONFLICT (name) DO UPDATE SET name = excluded.name
		RETURNING id, name
	`, strings.Join(valueStrings, ", "))

	returned, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, insertSQL, func(rows *sql.Rows) (*models.Tag, error) {
		tag := &models.Tag{}
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, xerrors.New(err)
		}
		return tag, nil
	}, valueArgs...)

	if err != nil {
		return nil, xerrors.New(err)
	}

	tagsByName := make(map[string]*models.Tag, len(returned))
	for _, tag := range returned {
		tagsByName[tag.Name] = tag
	}

	tags := make([]*models.Tag, 0, len(names))
	for _, name := range names {
		tag, ok := tagsByName[name]
		if !ok {
			return nil, xerrors.Newf("tag %s missing from upsert result", name)
		}
		tags = append(tags, tag)
	}

	return tags, nil
}

func (c *Core) AttachTags(ctx context.Context, articleID int64, tags []*models.Tag) error {
	if len(tags) == 0 {
		return nil
	}

	valueStrings := make([]string, 0, len(tags))
	valueArgs := make([]any, 0, len(tags)*2)
	for i, tag := range tags {
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d)", i*2+1, i*2+2))
		valueArgs = append(valueArgs, articleID, tag.ID)
	}

	insertSQL := fmt.Sprintf(`
		INSERT INTO article_tags (article_id, tag_id)
		VALUES %s
		ON CONFLICT (article_id, tag_id) DO NOTHING
	`, strings.Join(valueStrings, ", "))

	if _, err := databaseutils.ExecuteUpdate(c.sqlTemplate, ctx, insertSQL, valueArgs...); err != nil {
		return xerrors.New(err)
	}

	return nil
}

// TagsByArticleIDs resolves tag names per article, sorted by name.
func (c *Core) TagsByArticleIDs(ctx context.Context, articleIDs []int64) (map[int64][]string, error) {
	if len(articleIDs) == 0 {
		return map[int64][]string{}, nil
	}

	placeholders, args := stringutils.INClause(articleIDs, 0)
	query := fmt.Sprintf(`
		SELECT atg.article_id, tg.name
		FROM article_tags AS atg
		JOIN tags AS tg ON tg.id = atg.tag_id
		WHERE atg.article_id IN (%s)
		ORDER BY tg.name
	`, strings.Join(placeholders, ", "))

	tagsByArticle := map[int64][]string{}
	_, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, query, func(rows *sql.Rows) (int64, error) {
		var articleID int64
		var name string
		if err := rows.Scan(&articleID, &name); err != nil {
			return 0, xerrors.New(err)
		}
		tagsByArticle[articleID] = append(tagsByArticle[articleID], name)
		return articleID, nil
	}, args...)

	if err != nil {
		return nil, xerrors.New(err)
	}

	return tagsByArticle, nil
}

func (c *Core) ListTags(ctx context.Context) ([]string, error) {
	query := `SELECT name FROM tags ORDER BY name`

	names, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, query, func(rows *sql.Rows) (string, error) {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", xerrors.New(err)
		}
		return name, nil
	})

	if err != nil {
		return nil, xerrors.New(err)
	}

	return names, nil
}
