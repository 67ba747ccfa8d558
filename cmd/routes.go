package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundResponse)

	// No authentication required for these routes
	router.HandlerFunc(http.MethodPost, "/api/v1/users", app.registerUser)
	router.HandlerFunc(http.MethodPost, "/api/v1/users/login", app.login)
	router.HandlerFunc(http.MethodGet, "/api/v1/profiles/:username", app.getProfile)
	router.HandlerFunc(http.MethodGet, "/api/v1/tags", app.listTags)
	router.HandlerFunc(http.MethodGet, "/api/v1/articles", app.listArticles)
	// GET /api/v1/articles/feed is dispatched inside getArticle: httprouter
	// refuses a static "feed" segment next to the ":slug" wildcard.
	router.HandlerFunc(http.MethodGet, "/api/v1/articles/:slug", app.getArticle)
	router.HandlerFunc(http.MethodGet, "/api/v1/articles/:slug/comments", app.listComments)

	// Authentication required for these routes
	router.HandlerFunc(http.MethodGet, "/api/v1/user", app.requireAuthenticatedUser(app.getCurrentUser))
	router.HandlerFunc(http.MethodPut, "/api/v1/user", app.requireAuthenticatedUser(app.updateCurrentUser))
	router.HandlerFunc(http.MethodPost, "/api/v1/profiles/:username/follow", app.requireAuthenticatedUser(app.followUser))
	router.HandlerFunc(http.MethodDelete, "/api/v1/profiles/:username/follow", app.requireAuthenticatedUser(app.unfollowUser))
	router.HandlerFunc(http.MethodPost, "/api/v1/articles", app.requireAuthenticatedUser(app.createArticle))
	router.HandlerFunc(http.MethodPut, "/api/v1/articles/:slug", app.requireAuthenticatedUser(app.updateArticle))
	router.HandlerFunc(http.MethodDelete, "/api/v1/articles/:slug", app.requireAuthenticatedUser(app.deleteArticle))
	router.HandlerFunc(http.MethodPost, "/api/v1/articles/:slug/favorite", app.requireAuthenticatedUser(app.favoriteArticle))
	router.HandlerFunc(http.MethodDelete, "/api/v1/articles/:slug/favorite", app.requireAuthenticatedUser(app.unfavoriteArticle))
	// createComment gates auth itself, after resolving the slug: an unknown
	// article is a 404 even for anonymous callers.
	router.HandlerFunc(http.MethodPost, "/api/v1/articles/:slug/comments", app.createComment)
	router.HandlerFunc(http.MethodDelete, "/api/v1/articles/:slug/comments/:id", app.requireAuthenticatedUser(app.deleteComment))

	return app.recoverPanic(app.authenticate(router))
}
