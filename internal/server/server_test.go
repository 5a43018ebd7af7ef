package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/solwinner/internal/auth"
	"github.com/sakif/solwinner/internal/model"
)

// newFakeDiscord serves the two Discord endpoints the login flow calls.
// Only the code "good-code" is accepted.
func newFakeDiscord(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Write([]byte(`{"access_token":"tok-123","token_type":"Bearer","expires_in":604800}`))
	})
	mux.HandleFunc("/api/users/@me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":            "42",
			"username":      "wumpus",
			"discriminator": "0001",
			"avatar":        nil,
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()

	discord := newFakeDiscord(t)
	cfg := Config{
		Port:                3000,
		DBPath:              ":memory:",
		DiscordClientID:     "client-id",
		DiscordClientSecret: "client-secret",
		DiscordRedirectURI:  "http://localhost:3000/callback",
		DiscordEndpoints: auth.Endpoints{
			AuthURL:    discord.URL + "/api/oauth2/authorize",
			TokenURL:   discord.URL + "/api/oauth2/token",
			ProfileURL: discord.URL + "/api/users/@me",
		},
		AdminSecret:     "abc123",
		AdminBcryptCost: bcrypt.MinCost,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func (s *Server) do(t *testing.T, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func plainSession(t *testing.T, id string) *http.Cookie {
	t.Helper()
	value, err := auth.PlainCodec{}.Encode(model.Profile{ID: id, DisplayName: "wumpus#0001"})
	require.NoError(t, err)
	return &http.Cookie{Name: auth.SessionCookieName, Value: value}
}

func TestRoutes_HomeAndHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Login with Discord")

	rec = s.do(t, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
}

func TestRoutes_LoginRedirectsToDiscord(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, "/login")

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	loc := rec.Header().Get("Location")
	assert.Contains(t, loc, "/api/oauth2/authorize?")
	assert.Contains(t, loc, "client_id=client-id")
	assert.Contains(t, loc, "scope=identify")
	assert.Contains(t, loc, "response_type=code")
}

func TestRoutes_ProtectedPagesRedirectHome(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name    string
		target  string
		cookies []*http.Cookie
	}{
		{"dashboard without cookie", "/dashboard", nil},
		{"enter without cookie", "/enter", nil},
		{"dashboard with garbage cookie", "/dashboard", []*http.Cookie{{Name: auth.SessionCookieName, Value: "%%%"}}},
		{"admin without cookie", "/admin", nil},
		{"admin with wrong value", "/admin", []*http.Cookie{{Name: auth.AdminCookieName, Value: "TRUE"}}},
		{"admin with session only", "/admin", []*http.Cookie{plainSession(t, "42")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.target, tt.cookies...)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.Equal(t, "/", rec.Header().Get("Location"))
		})
	}
}

func TestRoutes_FullLoginFlow(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, "/callback?code=good-code")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	session := cookieNamed(rec, auth.SessionCookieName)
	require.NotNil(t, session)

	rec = s.do(t, "/dashboard", session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome wumpus#0001")

	rec = s.do(t, "/enter", session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "You are entered!")

	u, err := s.db.GetUser(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "wumpus#0001", u.DisplayName)
	assert.Nil(t, u.Avatar)

	rec = s.do(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "solwinner_logins_total 1")
	assert.Contains(t, rec.Body.String(), `solwinner_entries_total{result="created"} 1`)
}

func TestRoutes_CallbackFailures(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, "/callback?error=access_denied")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?auth=denied", rec.Header().Get("Location"))

	rec = s.do(t, "/callback")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, "/callback?code=bad-code")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Nil(t, cookieNamed(rec, auth.SessionCookieName))

	users, err := s.db.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestRoutes_AdminLogin(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, "/admin-login?secret=wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, cookieNamed(rec, auth.AdminCookieName))

	rec = s.do(t, "/admin-login?secret=abc123")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))
	admin := cookieNamed(rec, auth.AdminCookieName)
	require.NotNil(t, admin)
	assert.Equal(t, "true", admin.Value)

	rec = s.do(t, "/admin", admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "0 users, 0 entries")
}

func TestRoutes_AdminDisabledWithoutSecret(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.AdminSecret = "" })

	rec := s.do(t, "/admin-login")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, cookieNamed(rec, auth.AdminCookieName))
}

func TestRoutes_ConcurrentEnterCreatesOneEntry(t *testing.T) {
	s := newTestServer(t, nil)
	session := plainSession(t, "42")

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = s.do(t, "/enter", session).Code
		}(i)
	}
	wg.Wait()

	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, codes)

	entries, err := s.db.ListEntries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRoutes_SignedSessionsRejectForgedCookie(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.SessionSecret = "0123456789abcdef0123456789abcdef" })

	rec := s.do(t, "/dashboard", plainSession(t, "42"))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = s.do(t, "/callback?code=good-code")
	session := cookieNamed(rec, auth.SessionCookieName)
	require.NotNil(t, session)

	rec = s.do(t, "/dashboard", session)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNew_RejectsShortSessionSecret(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	_, err := New(Config{DBPath: ":memory:", SessionSecret: "short"}, logger)
	require.Error(t, err)
}

func TestStart_ReturnsWhenContextCancelled(t *testing.T) {
	s := newTestServer(t, func(c *Config) { c.Port = 0 })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after the context was cancelled")
	}

	// Start closes the database on the way out.
	assert.Error(t, s.db.Ping(context.Background()))
}
