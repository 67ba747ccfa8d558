package core

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/conduitapi/conduit/internal/utils/databaseutils"
	"github.com/mdobak/go-xerrors"
)

// CreateSlug derives a URL-safe slug from the title.
func CreateSlug(title string) string {
	slug := strings.ToLower(strings.TrimSpace(title))
	slug = strings.ReplaceAll(slug, " ", "-")

	replacements := []string{".", ",", "!", "?", ":", ";", "'", "\"", "(", ")", "[", "]", "{", "}", "/", "\\"}
	for _, char := range replacements {
		slug = strings.ReplaceAll(slug, char, "")
	}

	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	return strings.Trim(slug, "-")
}

func (c *Core) SlugExists(ctx context.Context, slug string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM articles WHERE slug = $1
		)
	`

	exists, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, query, func(rows *sql.Rows) (bool, error) {
		var exists bool
		if err := rows.Scan(&exists); err != nil {
			return false, xerrors.New(err)
		}
		return exists, nil
	}, slug)

	if err != nil {
		return false, xerrors.New(err)
	}

	return exists, nil
}

// UniqueSlug slugifies the title and disambiguates collisions with a numeric
// suffix (my-title, my-title-2, my-title-3, ...). Run it inside the same
// transaction as the insert; a concurrent taker still loses to the unique
// constraint, which surfaces as ErrDuplicatedSlug.
func (c *Core) UniqueSlug(ctx context.Context, title string) (string, error) {
	base := CreateSlug(title)
	if base == "" {
		base = "article"
	}

	candidate := base
	for i := 2; ; i++ {
		exists, err := c.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
