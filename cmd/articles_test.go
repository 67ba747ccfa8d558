package main

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateArticle(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("irene", "irene@example.com", "password123")

	t.Run("requires authentication", func(t *testing.T) {
		status, _ := ts.do(http.MethodPost, "/api/v1/articles", "", map[string]any{
			"article": map[string]any{"title": "t", "description": "d", "body": "b"},
		})
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("creates an article with a slug derived from the title", func(t *testing.T) {
		article := ts.createArticle(token, "How to Train Your Gopher", "desc", "body", "go", "animals")

		assert.Equal(t, "how-to-train-your-gopher", article["slug"])
		assert.Equal(t, "How to Train Your Gopher", article["title"])
		assert.Equal(t, []any{"animals", "go"}, article["tagList"])
		assert.Equal(t, false, article["favorited"])
		assert.Equal(t, float64(0), article["favoritesCount"])

		author := article["author"].(map[string]any)
		assert.Equal(t, "irene", author["username"])
	})

	t.Run("disambiguates colliding titles with a numeric suffix", func(t *testing.T) {
		second := ts.createArticle(token, "How to Train Your Gopher", "desc", "body")
		third := ts.createArticle(token, "How to Train Your Gopher", "desc", "body")

		assert.Equal(t, "how-to-train-your-gopher-2", second["slug"])
		assert.Equal(t, "how-to-train-your-gopher-3", third["slug"])
	})

	t.Run("deduplicates repeated tags", func(t *testing.T) {
		article := ts.createArticle(token, "Tagged Once", "desc", "body", "dup", "dup", " dup ")
		assert.Equal(t, []any{"dup"}, article["tagList"])
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		status, body := ts.do(http.MethodPost, "/api/v1/articles", token, map[string]any{
			"article": map[string]any{"title": "", "description": "", "body": ""},
		})

		require.Equal(t, http.StatusBadRequest, status)
		details := body["errorDetails"].(map[string]any)
		assert.Contains(t, details, "title")
		assert.Contains(t, details, "description")
		assert.Contains(t, details, "body")
	})
}

func TestCreateArticleSlugRaceLost(t *testing.T) {
	ts, mock, token := newMockedTestServer(t)

	expectMockedUser(mock)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("INSERT INTO articles").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "articles_slug_key"})
	mock.ExpectRollback()

	status, body := ts.do(http.MethodPost, "/api/v1/articles", token, map[string]any{
		"article": map[string]any{"title": "Racy Title", "description": "d", "body": "b"},
	})

	require.Equal(t, http.StatusBadRequest, status)
	details := body["errorDetails"].(map[string]any)
	assert.Equal(t, "Article slug is already in use", details["slug"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetArticle(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register("jacob", "jacob@example.com", "password123")
	article := ts.createArticle(token, "Reading Material", "desc", "body", "reading")
	slug := slugOf(t, article)

	t.Run("anonymous read", func(t *testing.T) {
		status, body := ts.do(http.MethodGet, "/api/v1/articles/"+slug, "", nil)

		require.Equal(t, http.StatusOK, status)
		got := body["article"].(map[string]any)
		assert.Equal(t, "Reading Material", got["title"])
		assert.Equal(t, false, got["favorited"])
	})

	t.Run("unknown slug is a 404", func(t *testing.T) {
		status, _ := ts.do(http.MethodGet, "/api/v1/articles/missing-article", "", nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestListArticles(t *testing.T) {
	ts := newTestServer(t)
	kateToken := ts.register("katie", "katie@example.com", "password123")
	liamToken := ts.register("liamx", "liam@example.com", "password123")

	ts.createArticle(kateToken, "Postgres Tips", "db tricks", "content", "databases")
	ts.createArticle(kateToken, "Sqlite Tips", "db tricks", "content", "databases", "embedded")
	liamArticle := ts.createArticle(liamToken, "Sailing", "on the water", "content", "hobby")

	status, _ := ts.do(http.MethodPost, "/api/v1/articles/"+slugOf(t, liamArticle)+"/favorite", kateToken, nil)
	require.Equal(t, http.StatusOK, status)

	articleTitles := func(body map[string]any) []string {
		var titles []string
		for _, item := range body["articles"].([]any) {
			titles = append(titles, item.(map[string]any)["title"].(string))
		}
		return titles
	}

	t.Run("lists newest first with a total count", func(t *testing.T) {
		status, body := ts.do(http.MethodGet, "/api/v1/articles", "", nil)

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(3), body["articlesCount"])
		assert.Equal(t, []string{"Sailing", "Sqlite Tips", "Postgres Tips"}, articleTitles(body))
	})

	t.Run("filters by tag", func(t *testing.T) {
		status, body := ts.do(http.MethodGet, "/api/v1/articles?tag=embedded", "", nil)

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(1), body["articlesCount"])
		assert.Equal(t, []string{"Sqlite Tips"}, articleTitles(body))
	})

	t.Run("filters by author", func(t *testing.T) {
		status, body := ts.do(http.MethodGet, "/api/v1/articles?author=liamx", "", nil)

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, []string{"Sailing"}, articleTitles(body))
	})

	t.Run("filters by favoriting user", func(t *testing.T) {
		status, body := ts.do(http.MethodGet, "/api/v1/articles?favorited=katie", "", nil)

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, []string{"Sailing"}, articleTitles(body))
	})

	t.Run("searches title and body case-insensitively", func(t *testing.T) {
		status, body := ts.do(http.MethodGet, "/api/v1/articles?search=sAiLiNg", "", nil)

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, []string{"Sailing"}, articleTitles(body))
	})

	t.Run("paginates while keeping the total", func(t *testing.T) {
		status, body := ts.do(http.MethodGet, "/api/v1/articles?limit=1&offset=1", "", nil)

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(3), body["articlesCount"])
		assert.Equal(t, []string{"Sqlite Tips"}, articleTitles(body))
	})

	t.Run("rejects an out-of-range limit", func(t *testing.T) {
		status, body := ts.do(http.MethodGet, "/api/v1/articles?limit=500", "", nil)

		require.Equal(t, http.StatusBadRequest, status)
		details := body["errorDetails"].(map[string]any)
		assert.Contains(t, details, "limit")
	})

	t.Run("no matches yields an empty list, not null", func(t *testing.T) {
		status, body := ts.do(http.MethodGet, "/api/v1/articles?tag=nothing-here", "", nil)

		require.Equal(t, http.StatusOK, status)
		articles, ok := body["articles"].([]any)
		require.True(t, ok)
		assert.Empty(t, articles)
		assert.Equal(t, float64(0), body["articlesCount"])
	})
}

func TestFeed(t *testing.T) {
	ts := newTestServer(t)
	mariaToken := ts.register("maria", "maria@example.com", "password123")
	nadiaToken := ts.register("nadia", "nadia@example.com", "password123")
	oscarToken := ts.register("oscar", "oscar@example.com", "password123")

	ts.createArticle(nadiaToken, "Followed Post", "desc", "body")
	ts.createArticle(oscarToken, "Unfollowed Post", "desc", "body")

	status, _ := ts.do(http.MethodPost, "/api/v1/profiles/nadia/follow", mariaToken, nil)
	require.Equal(t, http.StatusOK, status)

	t.Run("requires authentication", func(t *testing.T) {
		status, _ := ts.do(http.MethodGet, "/api/v1/articles/feed", "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("contains only followed authors", func(t *testing.T) {
		status, body := ts.do(http.MethodGet, "/api/v1/articles/feed", mariaToken, nil)

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(1), body["articlesCount"])

		articles := body["articles"].([]any)
		require.Len(t, articles, 1)
		first := articles[0].(map[string]any)
		assert.Equal(t, "Followed Post", first["title"])
		assert.Equal(t, true, first["author"].(map[string]any)["following"])
	})

	t.Run("empty for a user following nobody", func(t *testing.T) {
		status, body := ts.do(http.MethodGet, "/api/v1/articles/feed", oscarToken, nil)

		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, float64(0), body["articlesCount"])
		assert.Empty(t, body["articles"])
	})
}

func TestUpdateArticle(t *testing.T) {
	ts := newTestServer(t)
	authorToken := ts.register("paula", "paula@example.com", "password123")
	otherToken := ts.register("quinn", "quinn@example.com", "password123")
	article := ts.createArticle(authorToken, "Original Title", "desc", "body")
	slug := slugOf(t, article)

	t.Run("author edits keep the slug stable", func(t *testing.T) {
		status, body := ts.do(http.MethodPut, "/api/v1/articles/"+slug, authorToken, map[string]any{
			"article": map[string]any{"title": "Renamed Title", "body": "new body"},
		})

		require.Equal(t, http.StatusOK, status)
		updated := body["article"].(map[string]any)
		assert.Equal(t, "Renamed Title", updated["title"])
		assert.Equal(t, "new body", updated["body"])
		assert.Equal(t, slug, updated["slug"])
	})

	t.Run("non-author gets a 403", func(t *testing.T) {
		status, _ := ts.do(http.MethodPut, "/api/v1/articles/"+slug, otherToken, map[string]any{
			"article": map[string]any{"title": "Hijacked"},
		})
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("unknown slug is a 404", func(t *testing.T) {
		status, _ := ts.do(http.MethodPut, "/api/v1/articles/missing", authorToken, map[string]any{
			"article": map[string]any{"title": "whatever"},
		})
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("blank title is rejected", func(t *testing.T) {
		status, _ := ts.do(http.MethodPut, "/api/v1/articles/"+slug, authorToken, map[string]any{
			"article": map[string]any{"title": "  "},
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestDeleteArticle(t *testing.T) {
	ts := newTestServer(t)
	authorToken := ts.register("ruthx", "ruth@example.com", "password123")
	otherToken := ts.register("steve", "steve@example.com", "password123")

	article := ts.createArticle(authorToken, "Doomed Article", "desc", "body", "doomed")
	slug := slugOf(t, article)
	ts.createComment(otherToken, slug, "will vanish")

	status, _ := ts.do(http.MethodPost, "/api/v1/articles/"+slug+"/favorite", otherToken, nil)
	require.Equal(t, http.StatusOK, status)

	t.Run("non-author gets a 403", func(t *testing.T) {
		status, _ := ts.do(http.MethodDelete, "/api/v1/articles/"+slug, otherToken, nil)
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("author delete removes the article and its dependents", func(t *testing.T) {
		status, _ := ts.do(http.MethodDelete, "/api/v1/articles/"+slug, authorToken, nil)
		require.Equal(t, http.StatusNoContent, status)

		status, _ = ts.do(http.MethodGet, "/api/v1/articles/"+slug, "", nil)
		assert.Equal(t, http.StatusNotFound, status)

		assert.Equal(t, int64(0), ts.countRows("articles"))
		assert.Equal(t, int64(0), ts.countRows("comments"))
		assert.Equal(t, int64(0), ts.countRows("favorites"))
		assert.Equal(t, int64(0), ts.countRows("article_tags"))
	})

	t.Run("deleting twice is a 404", func(t *testing.T) {
		status, _ := ts.do(http.MethodDelete, "/api/v1/articles/"+slug, authorToken, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestFavoriteArticle(t *testing.T) {
	ts := newTestServer(t)
	authorToken := ts.register("tessa", "tessa@example.com", "password123")
	fan1Token := ts.register("ulyss", "ulysses@example.com", "password123")
	fan2Token := ts.register("vikki", "vikki@example.com", "password123")

	article := ts.createArticle(authorToken, "Popular Post", "desc", "body")
	slug := slugOf(t, article)

	t.Run("favorite marks the article for the caller", func(t *testing.T) {
		status, body := ts.do(http.MethodPost, "/api/v1/articles/"+slug+"/favorite", fan1Token, nil)

		require.Equal(t, http.StatusOK, status)
		got := body["article"].(map[string]any)
		assert.Equal(t, true, got["favorited"])
		assert.Equal(t, float64(1), got["favoritesCount"])
	})

	t.Run("favoriting twice does not inflate the count", func(t *testing.T) {
		status, body := ts.do(http.MethodPost, "/api/v1/articles/"+slug+"/favorite", fan1Token, nil)

		require.Equal(t, http.StatusOK, status)
		got := body["article"].(map[string]any)
		assert.Equal(t, float64(1), got["favoritesCount"])
	})

	t.Run("the count aggregates across users but the flag stays personal", func(t *testing.T) {
		status, body := ts.do(http.MethodPost, "/api/v1/articles/"+slug+"/favorite", fan2Token, nil)
		require.Equal(t, http.StatusOK, status)
		got := body["article"].(map[string]any)
		assert.Equal(t, float64(2), got["favoritesCount"])

		status, body = ts.do(http.MethodGet, "/api/v1/articles/"+slug, "", nil)
		require.Equal(t, http.StatusOK, status)
		got = body["article"].(map[string]any)
		assert.Equal(t, false, got["favorited"])
		assert.Equal(t, float64(2), got["favoritesCount"])
	})

	t.Run("unfavorite removes only the caller's relation", func(t *testing.T) {
		status, body := ts.do(http.MethodDelete, "/api/v1/articles/"+slug+"/favorite", fan1Token, nil)

		require.Equal(t, http.StatusOK, status)
		got := body["article"].(map[string]any)
		assert.Equal(t, false, got["favorited"])
		assert.Equal(t, float64(1), got["favoritesCount"])
	})

	t.Run("favoriting an unknown article is a 404", func(t *testing.T) {
		status, _ := ts.do(http.MethodPost, "/api/v1/articles/missing/favorite", fan1Token, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("requires authentication", func(t *testing.T) {
		status, _ := ts.do(http.MethodPost, fmt.Sprintf("/api/v1/articles/%s/favorite", slug), "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})
}
