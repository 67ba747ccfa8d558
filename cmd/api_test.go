package main

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/conduitapi/conduit/internal/auth"
	"github.com/conduitapi/conduit/internal/config"
	"github.com/conduitapi/conduit/internal/core"
	"github.com/conduitapi/conduit/internal/database"
	"github.com/conduitapi/conduit/internal/utils/databaseutils"
	"github.com/stretchr/testify/require"
)

var testDBCounter atomic.Int64

// testServer runs the full HTTP stack against an in-memory SQLite database,
// one database per test.
type testServer struct {
	t      *testing.T
	app    *application
	db     *sql.DB
	server *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	dsn := fmt.Sprintf("file:conduit_test_%d?mode=memory&cache=shared&_time_format=sqlite", testDBCounter.Add(1))
	db, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db, "sqlite"))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret: "test-secret",
			TTL:    time.Hour,
		},
	}

	sqlTemplate := databaseutils.NewSQLTemplate(db, 3*time.Second)
	app := &application{
		config:  cfg,
		logger:  logger,
		core:    core.NewCore(logger, sqlTemplate),
		auth:    auth.New(cfg.JWT.Secret, cfg.JWT.TTL),
		session: databaseutils.NewSession(db),
	}

	server := httptest.NewServer(app.routes())
	t.Cleanup(server.Close)

	return &testServer{t: t, app: app, db: db, server: server}
}

// newMockedTestServer runs the stack over a sqlmock database for storage
// failure modes the SQLite harness cannot reach, such as losing a uniqueness
// race. The returned token authenticates as the mocked user, whose row every
// authenticated expectation script must serve first.
func newMockedTestServer(t *testing.T) (*testServer, sqlmock.Sqlmock, string) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret: "test-secret",
			TTL:    time.Hour,
		},
	}

	sqlTemplate := databaseutils.NewSQLTemplate(db, time.Second)
	app := &application{
		config:  cfg,
		logger:  logger,
		core:    core.NewCore(logger, sqlTemplate),
		auth:    auth.New(cfg.JWT.Secret, cfg.JWT.TTL),
		session: databaseutils.NewSession(db),
	}

	server := httptest.NewServer(app.routes())
	t.Cleanup(server.Close)

	token, err := app.auth.GenerateToken(&auth.User{Username: "mocke", Email: "mocked@example.com"})
	require.NoError(t, err)

	return &testServer{t: t, app: app, db: db, server: server}, mock, token
}

func expectMockedUser(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT (.+) FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "username", "password", "bio", "image"}).
			AddRow(int64(1), "mocked@example.com", "mocke", []byte("hash"), nil, nil))
}

// do issues a request and decodes the JSON body if there is one. An empty
// token means an anonymous request.
func (ts *testServer) do(method, path, token string, body any) (int, map[string]any) {
	ts.t.Helper()

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, ts.server.URL+path, reqBody)
	require.NoError(ts.t, err)

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.server.Client().Do(req)
	require.NoError(ts.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(ts.t, err)

	var decoded map[string]any
	if len(raw) > 0 {
		require.NoError(ts.t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}

	return resp.StatusCode, decoded
}

func (ts *testServer) register(username, email, password string) string {
	ts.t.Helper()

	status, body := ts.do(http.MethodPost, "/api/v1/users", "", map[string]any{
		"user": map[string]any{
			"username": username,
			"email":    email,
			"password": password,
		},
	})
	require.Equal(ts.t, http.StatusCreated, status, "register %s: %v", username, body)

	token, _ := body["user"].(map[string]any)["token"].(string)
	require.NotEmpty(ts.t, token)
	return token
}

func (ts *testServer) createArticle(token, title, description, articleBody string, tags ...string) map[string]any {
	ts.t.Helper()

	payload := map[string]any{
		"title":       title,
		"description": description,
		"body":        articleBody,
	}
	if len(tags) > 0 {
		payload["tagList"] = tags
	}

	status, body := ts.do(http.MethodPost, "/api/v1/articles", token, map[string]any{"article": payload})
	require.Equal(ts.t, http.StatusCreated, status, "create article %q: %v", title, body)

	article, ok := body["article"].(map[string]any)
	require.True(ts.t, ok)
	return article
}

func (ts *testServer) createComment(token, slug, commentBody string) map[string]any {
	ts.t.Helper()

	status, body := ts.do(http.MethodPost, "/api/v1/articles/"+slug+"/comments", token, map[string]any{
		"comment": map[string]any{"body": commentBody},
	})
	require.Equal(ts.t, http.StatusCreated, status, "create comment: %v", body)

	comment, ok := body["comment"].(map[string]any)
	require.True(ts.t, ok)
	return comment
}

func (ts *testServer) countRows(table string) int64 {
	ts.t.Helper()

	var count int64
	require.NoError(ts.t, ts.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count))
	return count
}

func slugOf(t *testing.T, article map[string]any) string {
	t.Helper()

	slug, ok := article["slug"].(string)
	require.True(t, ok)
	require.NotEmpty(t, slug)
	return slug
}
