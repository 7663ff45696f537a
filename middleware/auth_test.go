package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/akinalp/tms/handlers"
	"github.com/akinalp/tms/models"
	"github.com/akinalp/tms/pkg/blacklist"
	"github.com/akinalp/tms/pkg/cookies"
	"github.com/akinalp/tms/pkg/metrics"
	"github.com/akinalp/tms/pkg/token"
	"github.com/akinalp/tms/pkg/validator"
	"github.com/akinalp/tms/services"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

type authEnv struct {
	clock   *clock
	tokens  *token.Manager
	store   blacklist.Store
	metrics *metrics.Metrics
	mw      *AuthMiddleware
	alice   models.Identity
}

func newAuthEnv(t *testing.T, store blacklist.Store) *authEnv {
	t.Helper()

	c := &clock{now: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)}
	tm, err := token.NewManager(token.Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	}, token.WithClock(c.Now))
	require.NoError(t, err)

	if store == nil {
		mem := blacklist.NewMemoryStore()
		t.Cleanup(mem.Close)
		store = mem
	}

	m := metrics.New()
	// Refresh kullanıcı deposuna dokunmaz.
	auth := services.NewAuthService(nil, tm, store, validator.New(), nil)
	policy := cookies.Policy{AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour}

	return &authEnv{
		clock:   c,
		tokens:  tm,
		store:   store,
		metrics: m,
		mw:      NewAuthMiddleware(tm, auth, policy, m),
		alice:   models.Identity{ID: "alice", Role: models.RoleUser},
	}
}

func (e *authEnv) issue(t *testing.T, kind models.TokenKind) string {
	t.Helper()
	raw, _, err := e.tokens.Issue(e.alice, kind)
	require.NoError(t, err)
	return raw
}

type captured struct {
	called   bool
	identity models.Identity
	body     string
}

func (e *authEnv) serve(req *http.Request) (*httptest.ResponseRecorder, *captured) {
	got := &captured{}
	h := e.mw.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.called = true
		got.identity, _ = handlers.IdentityFromContext(r.Context())
		b, _ := io.ReadAll(r.Body)
		got.body = string(b)
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, got
}

func (e *authEnv) decisions(t *testing.T, outcome string) string {
	t.Helper()
	rec := httptest.NewRecorder()
	e.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	for _, line := range strings.Split(rec.Body.String(), "\n") {
		if strings.HasPrefix(line, `tms_auth_decisions_total{outcome="`+outcome+`"}`) {
			return strings.TrimSpace(line[strings.LastIndex(line, " "):])
		}
	}
	return "0"
}

func setCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestValidAccessTokenFromEverySource(t *testing.T) {
	env := newAuthEnv(t, nil)
	access := env.issue(t, models.TokenKindAccess)

	cases := map[string]func() *http.Request{
		"bearer header": func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/task", nil)
			r.Header.Set("Authorization", "Bearer "+access)
			return r
		},
		"cookie": func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/task", nil)
			r.AddCookie(&http.Cookie{Name: cookies.AccessTokenName, Value: access})
			return r
		},
		"x-access-token header": func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/task", nil)
			r.Header.Set("x-access-token", access)
			return r
		},
		"query": func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/api/v1/task?accessToken="+url.QueryEscape(access), nil)
		},
	}

	for name, build := range cases {
		t.Run(name, func(t *testing.T) {
			rec, got := env.serve(build())
			require.Equal(t, http.StatusNoContent, rec.Code)
			require.True(t, got.called)
			require.Equal(t, env.alice, got.identity)
			require.Nil(t, setCookie(rec, cookies.AccessTokenName))
		})
	}
	require.Equal(t, "4", env.decisions(t, metrics.OutcomeValid))
}

func TestAccessTokenFromJSONBodyKeepsBody(t *testing.T) {
	env := newAuthEnv(t, nil)
	body := `{"title":"t","accessToken":"` + env.issue(t, models.TokenKindAccess) + `"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v1/task", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	rec, got := env.serve(req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, env.alice, got.identity)
	require.Equal(t, body, got.body)
}

func TestBearerHeaderTakesPrecedence(t *testing.T) {
	env := newAuthEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	req.AddCookie(&http.Cookie{Name: cookies.AccessTokenName, Value: env.issue(t, models.TokenKindAccess)})

	rec, got := env.serve(req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.False(t, got.called)
}

func TestInvalidAccessTokenIsForbidden(t *testing.T) {
	env := newAuthEnv(t, nil)
	refresh := env.issue(t, models.TokenKindRefresh)

	for name, raw := range map[string]string{
		"garbage":           "abc.def.ghi",
		"refresh as access": refresh,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+raw)
			// Geçerli refresh cookie'si olsa bile geçersiz token yenilenmez.
			req.AddCookie(&http.Cookie{Name: cookies.RefreshTokenName, Value: refresh})

			rec, got := env.serve(req)
			require.Equal(t, http.StatusForbidden, rec.Code)
			require.False(t, got.called)
			require.Contains(t, rec.Body.String(), "Forbidden: Invalid token")
			require.Nil(t, setCookie(rec, cookies.AccessTokenName))
		})
	}
}

func TestMissingTokenIsUnauthorized(t *testing.T) {
	env := newAuthEnv(t, nil)

	rec, got := env.serve(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, got.called)
	require.Contains(t, rec.Body.String(), "Token missing")
	require.Contains(t, rec.Body.String(), `"title":"Unauthorized"`)
	require.Equal(t, "1", env.decisions(t, metrics.OutcomeMissing))
}

func TestExpiredAccessWithoutRefreshCookie(t *testing.T) {
	env := newAuthEnv(t, nil)
	access := env.issue(t, models.TokenKindAccess)
	env.clock.now = env.clock.now.Add(61 * time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+access)

	rec, got := env.serve(req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.False(t, got.called)
	require.Contains(t, rec.Body.String(), "Token expired")
}

func TestExpiredAccessIsSilentlyRenewed(t *testing.T) {
	env := newAuthEnv(t, nil)
	access := env.issue(t, models.TokenKindAccess)
	refresh := env.issue(t, models.TokenKindRefresh)
	env.clock.now = env.clock.now.Add(2 * time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	req.AddCookie(&http.Cookie{Name: cookies.RefreshTokenName, Value: refresh})

	rec, got := env.serve(req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.True(t, got.called)
	require.Equal(t, env.alice, got.identity)

	c := setCookie(rec, cookies.AccessTokenName)
	require.NotNil(t, c)
	require.True(t, c.HttpOnly)
	require.Equal(t, 3600, c.MaxAge)
	require.NotEqual(t, access, c.Value)

	renewed := env.tokens.Verify(c.Value, models.TokenKindAccess)
	require.True(t, renewed.Valid())
	require.Equal(t, env.alice, renewed.Claims.Identity)
	require.Equal(t, "1", env.decisions(t, metrics.OutcomeRenewed))
}

func TestNoAccessTokenButRefreshCookieRenews(t *testing.T) {
	env := newAuthEnv(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookies.RefreshTokenName, Value: env.issue(t, models.TokenKindRefresh)})

	rec, got := env.serve(req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, env.alice, got.identity)
	require.NotNil(t, setCookie(rec, cookies.AccessTokenName))
}

func TestFailedRenewalIsForbidden(t *testing.T) {
	env := newAuthEnv(t, nil)
	access := env.issue(t, models.TokenKindAccess)
	refresh := env.issue(t, models.TokenKindRefresh)
	revoked := env.issue(t, models.TokenKindRefresh)

	res := env.tokens.Verify(revoked, models.TokenKindRefresh)
	require.NoError(t, env.store.Revoke(context.Background(), res.Claims.RegisteredClaims.ID, time.Now().Add(time.Hour)))

	env.clock.now = env.clock.now.Add(2 * time.Hour)

	cases := map[string]string{
		"garbage refresh":   "garbage",
		"access as refresh": access,
		"revoked refresh":   revoked,
	}
	for name, cookie := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+access)
			req.AddCookie(&http.Cookie{Name: cookies.RefreshTokenName, Value: cookie})

			rec, got := env.serve(req)
			require.Equal(t, http.StatusForbidden, rec.Code)
			require.False(t, got.called)
			require.Nil(t, setCookie(rec, cookies.AccessTokenName))
		})
	}

	t.Run("expired refresh", func(t *testing.T) {
		env.clock.now = env.clock.now.Add(24 * time.Hour)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		req.AddCookie(&http.Cookie{Name: cookies.RefreshTokenName, Value: refresh})

		rec, got := env.serve(req)
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.False(t, got.called)
	})

	require.Equal(t, "4", env.decisions(t, metrics.OutcomeRefreshFailed))
}

type brokenStore struct{}

func (brokenStore) Revoke(context.Context, string, time.Time) error { return errors.New("redis down") }
func (brokenStore) IsRevoked(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestRevocationStoreFailureIsServerError(t *testing.T) {
	env := newAuthEnv(t, brokenStore{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: cookies.RefreshTokenName, Value: env.issue(t, models.TokenKindRefresh)})

	rec, got := env.serve(req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.False(t, got.called)
	require.NotContains(t, rec.Body.String(), "redis down")
}
