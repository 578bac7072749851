package server

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"blog/config"
	"blog/internal/auth"
	"blog/internal/blog"
	"blog/internal/database"
	"blog/internal/handlers"
	"blog/internal/store"
)

type testApp struct {
	handler http.Handler
	db      *sql.DB
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, err := database.Open(context.Background(), config.DSN(filepath.Join(t.TempDir(), "blog.db")))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	authManager := auth.NewManager(db, time.Hour, false)
	h, err := handlers.New(blog.NewService(store.New(db)), authManager)
	if err != nil {
		t.Fatalf("handlers: %v", err)
	}
	return &testApp{handler: NewRouter(h, authManager), db: db}
}

func (a *testApp) do(t *testing.T, method, path string, form url.Values, session *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if session != nil {
		req.AddCookie(session)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

// login registers username (password "secret123") and returns its session cookie.
func (a *testApp) login(t *testing.T, username string) *http.Cookie {
	t.Helper()
	creds := url.Values{"username": {username}, "password": {"secret123"}}

	rec := a.do(t, http.MethodPost, "/auth/register", creds, nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/auth/login" {
		t.Fatalf("register %s: code=%d body=%s", username, rec.Code, rec.Body.String())
	}
	rec = a.do(t, http.MethodPost, "/auth/login", creds, nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login %s: code=%d", username, rec.Code)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatalf("login %s: no session cookie", username)
	return nil
}

func (a *testApp) count(t *testing.T, query string) int {
	t.Helper()
	var n int
	if err := a.db.QueryRow(query).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

// seed logs in "test", creates post 1 with one comment and returns the session.
func (a *testApp) seed(t *testing.T) *http.Cookie {
	t.Helper()
	session := a.login(t, "test")
	rec := a.do(t, http.MethodPost, "/create", url.Values{"title": {"test title"}, "body": {"test\nbody"}}, session)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("seed post: code=%d", rec.Code)
	}
	rec = a.do(t, http.MethodPost, "/1/create_comment", url.Values{"comment": {"first comment"}}, session)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("seed comment: code=%d", rec.Code)
	}
	return session
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("code = %d, want 303; body=%s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Location"); got != location {
		t.Fatalf("Location = %q, want %q", got, location)
	}
}

func TestIndex(t *testing.T) {
	a := newTestApp(t)
	session := a.seed(t)

	rec := a.do(t, http.MethodGet, "/", nil, nil)
	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, "Log In") || !strings.Contains(body, "Register") {
		t.Fatalf("anonymous index: code=%d", rec.Code)
	}
	if strings.Contains(body, `href="/1/update"`) {
		t.Errorf("anonymous index shows edit link")
	}

	rec = a.do(t, http.MethodGet, "/", nil, session)
	body = rec.Body.String()
	for _, want := range []string{"Log Out", "test title", "by test on", `href="/1/update"`, "0 likes · 1 comments"} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}
}

func TestLoginRequired(t *testing.T) {
	a := newTestApp(t)
	a.seed(t)

	paths := []string{"/create", "/1/update", "/1/delete", "/1/react", "/1/create_comment", "/1/delete_comment"}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			assertRedirect(t, a.do(t, http.MethodPost, path, url.Values{}, nil), "/auth/login")
		})
	}

	if n := a.count(t, "SELECT COUNT(*) FROM reaction"); n != 0 {
		t.Errorf("reaction rows = %d, want 0", n)
	}
	if n := a.count(t, "SELECT COUNT(*) FROM post"); n != 1 {
		t.Errorf("post rows = %d, want 1", n)
	}
}

func TestAuthorRequired(t *testing.T) {
	a := newTestApp(t)
	a.seed(t)
	other := a.login(t, "other")

	if rec := a.do(t, http.MethodGet, "/1/update", nil, other); rec.Code != http.StatusForbidden {
		t.Errorf("GET update code = %d, want 403", rec.Code)
	}
	if rec := a.do(t, http.MethodPost, "/1/update", url.Values{"title": {"mine"}}, other); rec.Code != http.StatusForbidden {
		t.Errorf("POST update code = %d, want 403", rec.Code)
	}
	if rec := a.do(t, http.MethodPost, "/1/delete", nil, other); rec.Code != http.StatusForbidden {
		t.Errorf("POST delete code = %d, want 403", rec.Code)
	}
	if strings.Contains(a.do(t, http.MethodGet, "/", nil, other).Body.String(), `href="/1/update"`) {
		t.Errorf("index shows edit link to non-author")
	}
	if n := a.count(t, "SELECT COUNT(*) FROM post"); n != 1 {
		t.Errorf("post rows = %d, want 1", n)
	}
}

func TestExistsRequired(t *testing.T) {
	a := newTestApp(t)
	session := a.seed(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/2"},
		{http.MethodGet, "/2/update"},
		{http.MethodPost, "/2/update"},
		{http.MethodPost, "/2/delete"},
		{http.MethodPost, "/2/react"},
		{http.MethodPost, "/9/delete_comment"},
		{http.MethodGet, "/not-a-number"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := a.do(t, tt.method, tt.path, url.Values{"title": {"x"}}, session)
			if rec.Code != http.StatusNotFound {
				t.Fatalf("code = %d, want 404", rec.Code)
			}
		})
	}
}

func TestCreate(t *testing.T) {
	a := newTestApp(t)
	session := a.seed(t)

	if rec := a.do(t, http.MethodGet, "/create", nil, session); rec.Code != http.StatusOK {
		t.Fatalf("GET /create code = %d", rec.Code)
	}
	assertRedirect(t, a.do(t, http.MethodPost, "/create", url.Values{"title": {"created"}, "body": {""}}, session), "/")

	if n := a.count(t, "SELECT COUNT(*) FROM post"); n != 2 {
		t.Fatalf("post rows = %d, want 2", n)
	}
}

func TestUpdate(t *testing.T) {
	a := newTestApp(t)
	session := a.seed(t)

	if rec := a.do(t, http.MethodGet, "/1/update", nil, session); rec.Code != http.StatusOK {
		t.Fatalf("GET /1/update code = %d", rec.Code)
	}
	assertRedirect(t, a.do(t, http.MethodPost, "/1/update", url.Values{"title": {"updated"}, "body": {""}}, session), "/")

	var title string
	if err := a.db.QueryRow("SELECT title FROM post WHERE id = 1").Scan(&title); err != nil {
		t.Fatalf("query: %v", err)
	}
	if title != "updated" {
		t.Fatalf("title = %q, want updated", title)
	}
}

func TestCreateUpdateValidate(t *testing.T) {
	a := newTestApp(t)
	session := a.seed(t)

	for _, path := range []string{"/create", "/1/update"} {
		t.Run(path, func(t *testing.T) {
			rec := a.do(t, http.MethodPost, path, url.Values{"title": {""}, "body": {"x"}}, session)
			if rec.Code != http.StatusOK {
				t.Fatalf("code = %d, want 200", rec.Code)
			}
			if !strings.Contains(rec.Body.String(), "Title is required.") {
				t.Fatalf("missing validation message")
			}
		})
	}

	if n := a.count(t, "SELECT COUNT(*) FROM post"); n != 1 {
		t.Errorf("post rows = %d, want 1", n)
	}
}

func TestDelete(t *testing.T) {
	a := newTestApp(t)
	session := a.seed(t)
	a.do(t, http.MethodPost, "/1/react", nil, session)

	assertRedirect(t, a.do(t, http.MethodPost, "/1/delete", nil, session), "/")

	for _, q := range []string{
		"SELECT COUNT(*) FROM post",
		"SELECT COUNT(*) FROM comment",
		"SELECT COUNT(*) FROM reaction",
	} {
		if n := a.count(t, q); n != 0 {
			t.Errorf("%s = %d, want 0", q, n)
		}
	}
}

func TestDetail(t *testing.T) {
	a := newTestApp(t)
	session := a.seed(t)

	rec := a.do(t, http.MethodGet, "/1", nil, nil)
	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, "by test on") || !strings.Contains(body, "first comment") {
		t.Fatalf("anonymous detail: code=%d", rec.Code)
	}
	for _, absent := range []string{`href="/1/update"`, `id="send_comment"`, `id="react_to_post"`} {
		if strings.Contains(body, absent) {
			t.Errorf("anonymous detail contains %s", absent)
		}
	}

	body = a.do(t, http.MethodGet, "/1", nil, session).Body.String()
	for _, present := range []string{`href="/1/update"`, `id="send_comment"`, `id="react_to_post"`, `action="/1/delete_comment"`} {
		if !strings.Contains(body, present) {
			t.Errorf("author detail missing %s", present)
		}
	}
}

func TestReact(t *testing.T) {
	a := newTestApp(t)
	session := a.seed(t)
	fan := a.login(t, "fan")

	assertRedirect(t, a.do(t, http.MethodPost, "/1/react", nil, fan), "/1")
	if n := a.count(t, "SELECT COUNT(*) FROM reaction WHERE post_id = 1"); n != 1 {
		t.Fatalf("reactions after first toggle = %d, want 1", n)
	}
	body := a.do(t, http.MethodGet, "/1", nil, session).Body.String()
	if !strings.Contains(body, "1 likes: fan") {
		t.Errorf("detail does not list the reaction")
	}
	if !strings.Contains(a.do(t, http.MethodGet, "/1", nil, fan).Body.String(), `value="Unlike"`) {
		t.Errorf("fan does not see Unlike")
	}

	a.do(t, http.MethodPost, "/1/react", nil, fan)
	if n := a.count(t, "SELECT COUNT(*) FROM reaction WHERE post_id = 1"); n != 0 {
		t.Fatalf("reactions after second toggle = %d, want 0", n)
	}
}

func TestComment(t *testing.T) {
	a := newTestApp(t)
	a.seed(t)
	other := a.login(t, "other")

	assertRedirect(t, a.do(t, http.MethodPost, "/1/create_comment", url.Values{"comment": {"Test comment"}}, other), "/1")
	if n := a.count(t, "SELECT COUNT(*) FROM comment WHERE post_id = 1"); n != 2 {
		t.Fatalf("comments = %d, want 2", n)
	}

	rec := a.do(t, http.MethodPost, "/1/create_comment", url.Values{"comment": {"   "}}, other)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Comment is required.") {
		t.Fatalf("whitespace comment: code=%d", rec.Code)
	}
	if n := a.count(t, "SELECT COUNT(*) FROM comment WHERE post_id = 1"); n != 2 {
		t.Fatalf("comments = %d, want 2", n)
	}
}

func TestDeleteComment(t *testing.T) {
	a := newTestApp(t)
	session := a.seed(t)
	other := a.login(t, "other")

	// The post author cannot delete a comment written by someone else.
	a.do(t, http.MethodPost, "/1/create_comment", url.Values{"comment": {"by other"}}, other)
	if rec := a.do(t, http.MethodPost, "/2/delete_comment", nil, session); rec.Code != http.StatusForbidden {
		t.Fatalf("code = %d, want 403", rec.Code)
	}
	if rec := a.do(t, http.MethodPost, "/1/delete_comment", nil, other); rec.Code != http.StatusForbidden {
		t.Fatalf("code = %d, want 403", rec.Code)
	}

	assertRedirect(t, a.do(t, http.MethodPost, "/1/delete_comment", nil, session), "/1")
	if n := a.count(t, "SELECT COUNT(*) FROM comment WHERE user_id = (SELECT id FROM user WHERE username = 'test')"); n != 0 {
		t.Fatalf("own comments left = %d, want 0", n)
	}
}

func TestAuthPages(t *testing.T) {
	a := newTestApp(t)
	session := a.login(t, "tester")

	for _, path := range []string{"/auth/login", "/auth/register"} {
		if rec := a.do(t, http.MethodGet, path, nil, nil); rec.Code != http.StatusOK {
			t.Errorf("GET %s code = %d", path, rec.Code)
		}
	}

	rec := a.do(t, http.MethodPost, "/auth/register", url.Values{"username": {"tester"}, "password": {"secret123"}}, nil)
	if !strings.Contains(rec.Body.String(), "Username already taken.") {
		t.Errorf("duplicate registration not reported")
	}
	rec = a.do(t, http.MethodPost, "/auth/login", url.Values{"username": {"tester"}, "password": {"wrong-pass"}}, nil)
	if !strings.Contains(rec.Body.String(), "Incorrect username or password.") {
		t.Errorf("bad login not reported")
	}

	assertRedirect(t, a.do(t, http.MethodGet, "/auth/logout", nil, session), "/")
	if n := a.count(t, "SELECT COUNT(*) FROM session"); n != 0 {
		t.Errorf("sessions after logout = %d, want 0", n)
	}
	// The old cookie no longer authenticates.
	assertRedirect(t, a.do(t, http.MethodGet, "/create", nil, session), "/auth/login")
}

func TestMetricsEndpoint(t *testing.T) {
	a := newTestApp(t)
	a.do(t, http.MethodGet, "/", nil, nil)

	rec := a.do(t, http.MethodGet, "/metrics", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `blog_http_requests_total{code="200",route="GET /{$}"}`) {
		t.Errorf("metrics output missing index request counter")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Port = "0"
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, cfg, http.NotFoundHandler()) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
