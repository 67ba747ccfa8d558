package core

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/conduitapi/conduit/internal/auth"
	"github.com/conduitapi/conduit/internal/utils/collectionutils"
	"github.com/conduitapi/conduit/internal/utils/databaseutils"
	"github.com/conduitapi/conduit/internal/utils/functional"
	"github.com/conduitapi/conduit/internal/utils/stringutils"
	"github.com/conduitapi/conduit/models"
	"github.com/mdobak/go-xerrors"
)

// GetProfile returns the public view of username. The following flag is
// scoped to the viewer and always false for an anonymous viewer.
func (c *Core) GetProfile(ctx context.Context, viewer *auth.User, username string) (*models.Profile, error) {
	user, err := c.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	profile := &models.Profile{
		ID:       user.ID,
		Username: user.Username,
		Bio:      user.Bio,
		Image:    user.Image,
	}

	if viewer != nil {
		following, err := c.IsFollowing(ctx, viewer.ID, user.ID)
		if err != nil {
			return nil, err
		}
		profile.Following = following
	}

	return profile, nil
}

func (c *Core) IsFollowing(ctx context.Context, followerID, followeeID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM followers WHERE followee_id = $1 AND follower_id = $2
		)
	`

	following, err := databaseutils.ExecuteSingleQuery(c.sqlTemplate, ctx, query, func(rows *sql.Rows) (bool, error) {
		var exists bool
		if err := rows.Scan(&exists); err != nil {
			return false, xerrors.New(err)
		}
		return exists, nil
	}, followeeID, followerID)

	if err != nil {
		return false, xerrors.New(err)
	}

	return following, nil
}

// FollowUser is idempotent: following an already-followed user is a no-op.
func (c *Core) FollowUser(ctx context.Context, follower *auth.User, followeeUsername string) (*models.Profile, error) {
	followee, err := c.GetUserByUsername(ctx, followeeUsername)
	if err != nil {
		return nil, err
	}

	insertSQL := `
		INSERT INTO followers (followee_id, follower_id)
		VALUES ($1, $2)
		ON CONFLICT (followee_id, follower_id) DO NOTHING
	`

	if _, err := databaseutils.ExecuteUpdate(c.sqlTemplate, ctx, insertSQL, followee.ID, follower.ID); err != nil {
		return nil, xerrors.New(err)
	}

	return c.GetProfile(ctx, follower, followeeUsername)
}

// UnfollowUser is idempotent: removing an absent relation is a no-op.
func (c *Core) UnfollowUser(ctx context.Context, follower *auth.User, followeeUsername string) (*models.Profile, error) {
	followee, err := c.GetUserByUsername(ctx, followeeUsername)
	if err != nil {
		return nil, err
	}

	deleteSQL := `
		DELETE FROM followers
		WHERE followee_id = $1 AND follower_id = $2
	`

	if _, err := databaseutils.ExecuteUpdate(c.sqlTemplate, ctx, deleteSQL, followee.ID, follower.ID); err != nil {
		return nil, xerrors.New(err)
	}

	return c.GetProfile(ctx, follower, followeeUsername)
}

// FollowingIDSet reports which of followeeIDs the follower currently follows.
func (c *Core) FollowingIDSet(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error) {
	if len(followeeIDs) == 0 {
		return map[int64]bool{}, nil
	}

	placeholders, args := stringutils.INClause(followeeIDs, 1)
	query := fmt.Sprintf(`
		SELECT followee_id
		FROM followers
		WHERE follower_id = $1 AND followee_id IN (%s)
	`, strings.Join(placeholders, ", "))

	ids, err := databaseutils.ExecuteQuery(c.sqlTemplate, ctx, query, func(rows *sql.Rows) (int64, error) {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, xerrors.New(err)
		}
		return id, nil
	}, append([]any{followerID}, args...)...)

	if err != nil {
		return nil, xerrors.New(err)
	}

	return collectionutils.Associate(ids, func(id int64) (int64, bool) {
		return id, true
	}), nil
}

// GetProfilesByUserIDs builds viewer-scoped profiles for a batch of users in
// two queries, for list response shaping.
func (c *Core) GetProfilesByUserIDs(ctx context.Context, viewer *auth.User, userIDs []int64) (map[int64]*models.Profile, error) {
	users, err := c.GetUsersByIDList(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	followingByID := map[int64]bool{}
	if viewer != nil {
		ids := functional.Map(users, func(user *auth.User) int64 { return user.ID })
		followingByID, err = c.FollowingIDSet(ctx, viewer.ID, ids)
		if err != nil {
			return nil, err
		}
	}

	return collectionutils.Associate(users, func(user *auth.User) (int64, *models.Profile) {
		return user.ID, &models.Profile{
			ID:        user.ID,
			Username:  user.Username,
			Bio:       user.Bio,
			Image:     user.Image,
			Following: collectionutils.GetOrDefault(followingByID, user.ID, false),
		}
	}), nil
}
