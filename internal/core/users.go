package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/conduitapi/conduit/internal/auth"
	"github.com/conduitapi/conduit/internal/database"
	"github.com/conduitapi/conduit/internal/utils/databaseutils"
	"github.com/conduitapi/conduit/internal/utils/stringutils"
	"github.com/mdobak/go-xerrors"
)

var (
	ErrDuplicateEmail    = xerrors.Message("duplicate email")
	ErrDuplicateUsername = xerrors.Message("duplicate username")
	NoRecordFound        = xerrors.Message("no record found")
)

func scanUser(rows *sql.Rows) (*auth.User, error) {
	user := &auth.User{}
	if err := rows.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.Password,
		&user.Bio,
		&user.Image,
	); err != nil {
		return nil, xerrors.New(err)
	}
	return user, nil
}

// CreateUser inserts the user and fills in its ID. Uniqueness races on
// username/email surface as ErrDuplicate* rather than raw driver errors.
func (c *Core) CreateUser(ctx context.Context, user *auth.User) error {
	query := `
		INSERT INTO users (username, email, password, bio, image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	now := time.Now()
	args := []any{user.Username, user.Email, user.Password, user.Bio, user.Image, now, now}
	_, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, query, func(rows *sql.Rows) (*auth.User, error) {
		if err := rows.Scan(&user.ID); err != nil {
			return nil, xerrors.New(err)
		}
		return user, nil
	}, args...)

	if err != nil {
		switch {
		case database.IsUniqueViolation(err, "email"):
			return xerrors.New(ErrDuplicateEmail)
		case database.IsUniqueViolation(err, "username"):
			return xerrors.New(ErrDuplicateUsername)
		default:
			return xerrors.New(err)
		}
	}

	return nil
}

func (c *Core) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	query := `
		SELECT id, email, username, password, bio, image
		FROM users
		WHERE email = $1
	`

	user, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, query, scanUser, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, xerrors.New(NoRecordFound)
		}
		return nil, xerrors.New(err)
	}

	return user, nil
}

func (c *Core) GetUserByUsername(ctx context.Context, username string) (*auth.User, error) {
	query := `
		SELECT id, email, username, password, bio, image
		FROM users
		WHERE username = $1
	`

	user, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, query, scanUser, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, xerrors.New(NoRecordFound)
		}
		return nil, xerrors.New(err)
	}

	return user, nil
}

func (c *Core) GetUsersByIDList(ctx context.Context, userIDList []int64) ([]*auth.User, error) {
	if len(userIDList) == 0 {
		return []*auth.User{}, nil
	}

	placeholders, args := stringutils.INClause(userIDList, 0)
	query := fmt.Sprintf(`
		SELECT id, email, username, password, bio, image
		FROM users
		WHERE id IN (%s)
	`, strings.Join(placeholders, ", "))

	users, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, query, scanUser, args...)
	if err != nil {
		return nil, xerrors.New(err)
	}

	return users, nil
}

// UpdateUser writes every mutable column; the handler merges partial input
// into the loaded record first.
func (c *Core) UpdateUser(ctx context.Context, user *auth.User) (*auth.User, error) {
	query := `
		UPDATE users
		SET username = $1, email = $2, password = $3, bio = $4, image = $5, updated_at = $6
		WHERE id = $7
		RETURNING id, email, username, password, bio, image
	`

	args := []any{user.Username, user.Email, user.Password, user.Bio, user.Image, time.Now(), user.ID}
	updatedUser, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, query, scanUser, args...)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, xerrors.New(NoRecordFound)
		case database.IsUniqueViolation(err, "email"):
			return nil, xerrors.New(ErrDuplicateEmail)
		case database.IsUniqueViolation(err, "username"):
			return nil, xerrors.New(ErrDuplicateUsername)
		default:
			return nil, xerrors.New(err)
		}
	}

	c.log.Info("user updated", "user_id", updatedUser.ID, "username", updatedUser.Username)
	return updatedUser, nil
}
