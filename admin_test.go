package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leepro/portfolio/internal/store"
)

func loginRequest(username, password string) *http.Request {
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/admin/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func adminCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == adminCookie {
			return c
		}
	}
	t.Fatal("no admin cookie set")
	return nil
}

func TestAdminRequiresLogin(t *testing.T) {
	e := newTestEnv(t, probeMissing)

	for _, path := range []string{"/admin/dashboard", "/admin/api/stats", "/admin/visitors", "/admin/export/stats"} {
		rec := e.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, "/admin/login", rec.Header().Get("Location"), path)
	}

	rec := e.do(httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil),
		&http.Cookie{Name: adminCookie, Value: "forged"})
	assert.Equal(t, http.StatusFound, rec.Code)
}

func TestAdminLogin(t *testing.T) {
	e := newTestEnv(t, probeMissing)

	rec := e.do(loginRequest("admin", "wrong"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")

	rec = e.do(loginRequest("admin", "secret"))
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/admin/dashboard", rec.Header().Get("Location"))
	cookie := adminCookieFrom(t, rec)
	assert.True(t, cookie.HttpOnly)

	rec = e.do(httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil), cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Profile image events")

	rec = e.do(httptest.NewRequest(http.MethodGet, "/admin/logout", nil), cookie)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "", adminCookieFrom(t, rec).Value)
}

func TestVisitorTrackingAndStats(t *testing.T) {
	e := newTestEnv(t, probeMissing)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", "test-agent")
	e.do(req)
	e.do(httptest.NewRequest(http.MethodGet, "/privacy", nil))
	e.do(httptest.NewRequest(http.MethodGet, "/static/profile.js", nil))

	require.Eventually(t, func() bool {
		stats, err := e.store.Stats(context.Background())
		return err == nil && stats.TotalVisitors == 1
	}, 2*time.Second, 10*time.Millisecond)

	cookie := adminCookieFrom(t, e.do(loginRequest("admin", "secret")))
	rec := e.do(httptest.NewRequest(http.MethodGet, "/admin/api/stats", nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats store.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.EqualValues(t, 1, stats.TotalVisitors)
	require.Len(t, stats.RecentVisitors, 1)
	assert.Equal(t, "test-agent", stats.RecentVisitors[0].UserAgent)
	assert.Len(t, stats.RecentVisitors[0].HashedIP, 16)
	assert.NotContains(t, stats.RecentVisitors[0].HashedIP, "192.0.2.1")

	rec = e.do(httptest.NewRequest(http.MethodGet, "/admin/visitors", nil), cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test-agent")
}

func TestHashIPIsStablePerProcess(t *testing.T) {
	a := newAdminAuth("admin", "secret", false)
	b := newAdminAuth("admin", "secret", false)

	assert.Equal(t, a.hashIP("203.0.113.7"), a.hashIP("203.0.113.7"))
	assert.NotEqual(t, a.hashIP("203.0.113.7"), a.hashIP("203.0.113.8"))
	assert.NotEqual(t, a.hashIP("203.0.113.7"), b.hashIP("203.0.113.7"))
	assert.True(t, a.checkCredentials("admin", "secret"))
	assert.False(t, a.checkCredentials("admin", "secre"))
}
