package main

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/conduitapi/conduit/internal/core"
	"github.com/conduitapi/conduit/internal/filter"
	"github.com/conduitapi/conduit/internal/utils/databaseutils"
	"github.com/conduitapi/conduit/internal/validator"
	"github.com/conduitapi/conduit/models"
	"github.com/julienschmidt/httprouter"
)

func (app *application) readFilters(r *http.Request, v *validator.Validator) filter.Filter {
	qs := r.URL.Query()
	filters := filter.NewFilter(
		app.readInt(qs, "limit", 20, v),
		app.readInt(qs, "offset", 0, v),
	)
	filter.ValidateFilters(filters, v)
	return filters
}

func (app *application) listArticles(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	criteria := core.ListCriteria{
		Tag:         app.readString(qs, "tag", ""),
		Author:      app.readString(qs, "author", ""),
		FavoritedBy: app.readString(qs, "favorited", ""),
		Search:      app.readString(qs, "search", ""),
	}

	v := validator.New()
	filters := app.readFilters(r, v)
	if !v.IsValid() {
		app.badRequestResponse(w, r, &AppError{ErrorDetails: v.Errors})
		return
	}

	articles, metadata, err := app.core.GetArticles(r.Context(), criteria, filters)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	app.writeArticleList(w, r, articles, metadata)
}

func (app *application) feed(w http.ResponseWriter, r *http.Request) {
	user, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		app.authenticationRequiredResponse(w, r, err)
		return
	}

	v := validator.New()
	filters := app.readFilters(r, v)
	if !v.IsValid() {
		app.badRequestResponse(w, r, &AppError{ErrorDetails: v.Errors})
		return
	}

	articles, metadata, err := app.core.GetFeed(r.Context(), user.ID, filters)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	app.writeArticleList(w, r, articles, metadata)
}

func (app *application) writeArticleList(w http.ResponseWriter, r *http.Request, articles []*models.Article, metadata filter.Metadata) {
	views, err := app.buildArticleViews(r, articles)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	data := envelope{
		"articles":      views,
		"articlesCount": metadata.ArticlesCount,
	}

	if err := app.writeJSON(w, http.StatusOK, data, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) getArticle(w http.ResponseWriter, r *http.Request) {
	slug := httprouter.ParamsFromContext(r.Context()).ByName("slug")

	// "feed" can never be an article slug because the route owns it.
	if slug == "feed" {
		app.feed(w, r)
		return
	}

	article, err := app.core.GetArticleBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, core.NoRecordFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.internalErrorResponse(w, r, err)
		return
	}

	view, err := app.buildArticleView(r, article)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"article": view}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func dedupeTagNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	deduped := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		deduped = append(deduped, name)
	}
	return deduped
}

func (app *application) createArticle(w http.ResponseWriter, r *http.Request) {
	type createArticlePayload struct {
		Title       string   `json:"title"`
		Description string   `json:"description"`
		Body        string   `json:"body"`
		TagList     []string `json:"tagList"`
	}

	type CreateArticleRequest struct {
		createArticlePayload `json:"article"`
	}

	var createArticleRequest CreateArticleRequest

	if err := app.readJSON(w, r, &createArticleRequest); err != nil {
		app.badRequestResponse(w, r, &AppError{
			ErrorMessage: err.Error(),
			ErrorStack:   err,
		})
		return
	}

	author, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	v := validator.New()
	v.CheckNotBlank(createArticleRequest.Title, "title", "must be provided")
	v.CheckNotBlank(createArticleRequest.Description, "description", "must be provided")
	v.CheckNotBlank(createArticleRequest.Body, "body", "must be provided")

	if !v.IsValid() {
		app.badRequestResponse(w, r, &AppError{ErrorDetails: v.Errors})
		return
	}

	tagNames := dedupeTagNames(createArticleRequest.TagList)

	article, err := databaseutils.DoTransactionally(r.Context(), app.session, func(txCtx context.Context) (*models.Article, error) {
		slug, err := app.core.UniqueSlug(txCtx, createArticleRequest.Title)
		if err != nil {
			return nil, err
		}

		created, err := app.core.InsertArticle(txCtx, &models.Article{
			Slug:        slug,
			Title:       createArticleRequest.Title,
			Description: createArticleRequest.Description,
			Body:        createArticleRequest.Body,
			AuthorID:    author.ID,
		})
		if err != nil {
			return nil, err
		}

		tags, err := app.core.UpsertTags(txCtx, tagNames)
		if err != nil {
			return nil, err
		}

		if err := app.core.AttachTags(txCtx, created.ID, tags); err != nil {
			return nil, err
		}

		return created, nil
	})
	if err != nil {
		// A concurrent create can win the slug between the existence check
		// and the insert; the unique constraint settles it.
		if errors.Is(err, core.ErrDuplicatedSlug) {
			v.AddError("slug", "Article slug is already in use")
			app.badRequestResponse(w, r, &AppError{ErrorDetails: v.Errors, ErrorStack: err})
			return
		}
		app.internalErrorResponse(w, r, err)
		return
	}

	view, err := app.buildArticleView(r, article)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusCreated, envelope{"article": view}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) updateArticle(w http.ResponseWriter, r *http.Request) {
	type updateArticlePayload struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Body        *string `json:"body"`
	}

	type UpdateArticleRequest struct {
		updateArticlePayload `json:"article"`
	}

	var updateArticleRequest UpdateArticleRequest

	if err := app.readJSON(w, r, &updateArticleRequest); err != nil {
		app.badRequestResponse(w, r, &AppError{
			ErrorMessage: err.Error(),
			ErrorStack:   err,
		})
		return
	}

	slug := httprouter.ParamsFromContext(r.Context()).ByName("slug")

	article, err := app.core.GetArticleBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, core.NoRecordFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.internalErrorResponse(w, r, err)
		return
	}

	caller, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if article.AuthorID != caller.ID {
		app.forbiddenResponse(w, r)
		return
	}

	v := validator.New()
	if updateArticleRequest.Title != nil {
		article.Title = *updateArticleRequest.Title
		v.CheckNotBlank(article.Title, "title", "must be provided")
	}
	if updateArticleRequest.Description != nil {
		article.Description = *updateArticleRequest.Description
		v.CheckNotBlank(article.Description, "description", "must be provided")
	}
	if updateArticleRequest.Body != nil {
		article.Body = *updateArticleRequest.Body
		v.CheckNotBlank(article.Body, "body", "must be provided")
	}

	if !v.IsValid() {
		app.badRequestResponse(w, r, &AppError{ErrorDetails: v.Errors})
		return
	}

	updated, err := app.core.UpdateArticle(r.Context(), article)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	view, err := app.buildArticleView(r, updated)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"article": view}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) deleteArticle(w http.ResponseWriter, r *http.Request) {
	slug := httprouter.ParamsFromContext(r.Context()).ByName("slug")

	article, err := app.core.GetArticleBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, core.NoRecordFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.internalErrorResponse(w, r, err)
		return
	}

	caller, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if article.AuthorID != caller.ID {
		app.forbiddenResponse(w, r)
		return
	}

	err = app.session.DoTransactionally(r.Context(), func(txCtx context.Context) error {
		return app.core.DeleteArticle(txCtx, article.ID)
	})
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (app *application) favoriteArticle(w http.ResponseWriter, r *http.Request) {
	app.setFavorite(w, r, app.core.FavoriteArticle)
}

func (app *application) unfavoriteArticle(w http.ResponseWriter, r *http.Request) {
	app.setFavorite(w, r, app.core.UnfavoriteArticle)
}

func (app *application) setFavorite(w http.ResponseWriter, r *http.Request, change func(ctx context.Context, userID, articleID int64) error) {
	slug := httprouter.ParamsFromContext(r.Context()).ByName("slug")

	article, err := app.core.GetArticleBySlug(r.Context(), slug)
	if err != nil {
		if errors.Is(err, core.NoRecordFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.internalErrorResponse(w, r, err)
		return
	}

	caller, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if err := change(r.Context(), caller.ID, article.ID); err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	view, err := app.buildArticleView(r, article)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"article": view}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}
