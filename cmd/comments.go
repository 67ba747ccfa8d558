package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/conduitapi/conduit/internal/core"
	"github.com/conduitapi/conduit/internal/utils/databaseutils"
	"github.com/conduitapi/conduit/internal/validator"
	"github.com/conduitapi/conduit/models"
	"github.com/julienschmidt/httprouter"
)

func (app *application) listComments(w http.ResponseWriter, r *http.Request) {
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

	comments, err := app.core.GetCommentsByArticleID(r.Context(), article.ID)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	views, err := app.buildCommentViews(r, comments)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, envelope{"comments": views}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) createComment(w http.ResponseWriter, r *http.Request) {
	slug := httprouter.ParamsFromContext(r.Context()).ByName("slug")

	// The slug resolves before the auth gate: an unknown article is a 404
	// even for anonymous callers.
	if _, err := app.core.GetArticleBySlug(r.Context(), slug); err != nil {
		if errors.Is(err, core.NoRecordFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.internalErrorResponse(w, r, err)
		return
	}

	author, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		app.authenticationRequiredResponse(w, r, err)
		return
	}

	type createCommentPayload struct {
		Body string `json:"body"`
	}

	type CreateCommentRequest struct {
		createCommentPayload `json:"comment"`
	}

	var createCommentRequest CreateCommentRequest

	if err := app.readJSON(w, r, &createCommentRequest); err != nil {
		app.badRequestResponse(w, r, &AppError{
			ErrorMessage: err.Error(),
			ErrorStack:   err,
		})
		return
	}

	v := validator.New()
	v.CheckNotBlank(createCommentRequest.Body, "body", "must be provided")
	if !v.IsValid() {
		app.badRequestResponse(w, r, &AppError{ErrorDetails: v.Errors})
		return
	}

	// The slug lookup and the insert share a transaction so the comment can
	// never attach to an article a concurrent delete is removing.
	comment, err := databaseutils.DoTransactionally(r.Context(), app.session, func(txCtx context.Context) (*models.Comment, error) {
		article, err := app.core.GetArticleBySlug(txCtx, slug)
		if err != nil {
			return nil, err
		}

		return app.core.CreateComment(txCtx, &models.Comment{
			Body:      createCommentRequest.Body,
			ArticleID: article.ID,
			AuthorID:  author.ID,
		})
	})
	if err != nil {
		if errors.Is(err, core.NoRecordFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.internalErrorResponse(w, r, err)
		return
	}

	view, err := app.buildCommentView(r, comment)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if err := app.writeJSON(w, http.StatusCreated, envelope{"comment": view}, nil); err != nil {
		app.internalErrorResponse(w, r, err)
	}
}

func (app *application) deleteComment(w http.ResponseWriter, r *http.Request) {
	params := httprouter.ParamsFromContext(r.Context())
	slug := params.ByName("slug")

	commentID, err := strconv.ParseInt(params.ByName("id"), 10, 64)
	if err != nil {
		app.notFoundResponse(w, r)
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

	comment, err := app.core.GetCommentByID(r.Context(), commentID)
	if err != nil {
		if errors.Is(err, core.NoRecordFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.internalErrorResponse(w, r, err)
		return
	}

	if comment.ArticleID != article.ID {
		app.notFoundResponse(w, r)
		return
	}

	caller, err := app.auth.GetAuthenticatedUser(r)
	if err != nil {
		app.internalErrorResponse(w, r, err)
		return
	}

	if comment.AuthorID != caller.ID {
		app.forbiddenResponse(w, r)
		return
	}

	if err := app.core.DeleteComment(r.Context(), comment.ID); err != nil {
		if errors.Is(err, core.NoRecordFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.internalErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
