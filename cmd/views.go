package main

import (
	"net/http"
	"time"

	"github.com/conduitapi/conduit/internal/utils/collectionutils"
	"github.com/conduitapi/conduit/internal/utils/functional"
	"github.com/conduitapi/conduit/models"
)

type envelope map[string]any

type profileView struct {
	Username  string  `json:"username"`
	Bio       *string `json:"bio"`
	Image     *string `json:"image"`
	Following bool    `json:"following"`
}

type articleView struct {
	Slug           string      `json:"slug"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Body           string      `json:"body"`
	TagList        []string    `json:"tagList"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	Favorited      bool        `json:"favorited"`
	FavoritesCount int64       `json:"favoritesCount"`
	Author         profileView `json:"author"`
}

type commentView struct {
	ID        int64       `json:"id"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Body      string      `json:"body"`
	Author    profileView `json:"author"`
}

func newProfileView(profile *models.Profile) profileView {
	return profileView{
		Username:  profile.Username,
		Bio:       profile.Bio,
		Image:     profile.Image,
		Following: profile.Following,
	}
}

// buildArticleViews shapes a batch of articles with a fixed number of queries
// regardless of page size. Favorited is scoped to the caller and always false
// for anonymous requests.
func (app *application) buildArticleViews(r *http.Request, articles []*models.Article) ([]articleView, error) {
	views := make([]articleView, 0, len(articles))
	if len(articles) == 0 {
		return views, nil
	}

	ctx := r.Context()
	caller, _ := app.auth.GetAuthenticatedUser(r)

	articleIDs := functional.Map(articles, func(a *models.Article) int64 { return a.ID })

	tagsByArticleID, err := app.core.TagsByArticleIDs(ctx, articleIDs)
	if err != nil {
		return nil, err
	}

	favoritedByArticleID, err := app.core.FavoritedSetByUser(ctx, caller, articleIDs)
	if err != nil {
		return nil, err
	}

	favoriteCountByArticleID, err := app.core.FavoriteCountByArticleIDs(ctx, articleIDs)
	if err != nil {
		return nil, err
	}

	authorIDs := functional.Map(articles, func(a *models.Article) int64 { return a.AuthorID })
	profileByUserID, err := app.core.GetProfilesByUserIDs(ctx, caller, authorIDs)
	if err != nil {
		return nil, err
	}

	for _, article := range articles {
		views = append(views, articleView{
			Slug:           article.Slug,
			Title:          article.Title,
			Description:    article.Description,
			Body:           article.Body,
			TagList:        collectionutils.GetOrDefault(tagsByArticleID, article.ID, []string{}),
			CreatedAt:      article.CreatedAt,
			UpdatedAt:      article.UpdatedAt,
			Favorited:      favoritedByArticleID[article.ID],
			FavoritesCount: collectionutils.GetOrDefault(favoriteCountByArticleID, article.ID, 0),
			Author:         newProfileView(profileByUserID[article.AuthorID]),
		})
	}

	return views, nil
}

func (app *application) buildArticleView(r *http.Request, article *models.Article) (articleView, error) {
	views, err := app.buildArticleViews(r, []*models.Article{article})
	if err != nil {
		return articleView{}, err
	}
	return views[0], nil
}

func (app *application) buildCommentViews(r *http.Request, comments []*models.Comment) ([]commentView, error) {
	views := make([]commentView, 0, len(comments))
	if len(comments) == 0 {
		return views, nil
	}

	caller, _ := app.auth.GetAuthenticatedUser(r)
	authorIDs := functional.Map(comments, func(c *models.Comment) int64 { return c.AuthorID })
	profileByUserID, err := app.core.GetProfilesByUserIDs(r.Context(), caller, authorIDs)
	if err != nil {
		return nil, err
	}

	for _, comment := range comments {
		views = append(views, commentView{
			ID:        comment.ID,
			CreatedAt: comment.CreatedAt,
			UpdatedAt: comment.UpdatedAt,
			Body:      comment.Body,
			Author:    newProfileView(profileByUserID[comment.AuthorID]),
		})
	}

	return views, nil
}

func (app *application) buildCommentView(r *http.Request, comment *models.Comment) (commentView, error) {
	views, err := app.buildCommentViews(r, []*models.Comment{comment})
	if err != nil {
		return commentView{}, err
	}
	return views[0], nil
}
