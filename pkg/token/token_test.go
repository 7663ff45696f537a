package token

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/tms/models"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(t *testing.T, clock *fakeClock) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
		Issuer:        "tms",
	}, WithClock(clock.Now))
	require.NoError(t, err)
	return m
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, clock)
	id := models.Identity{ID: "u1", Role: models.RoleAdmin}

	for _, kind := range []models.TokenKind{models.TokenKindAccess, models.TokenKindRefresh} {
		raw, exp, err := m.Issue(id, kind)
		require.NoError(t, err)
		require.True(t, clock.Now().Add(m.TTL(kind)).Equal(exp))

		res := m.Verify(raw, kind)
		require.Equal(t, StatusValid, res.Status, kind)
		require.Equal(t, id, res.Claims.Identity)
		require.NotEmpty(t, res.Claims.RegisteredClaims.ID)
	}
}

func TestVerifyExpired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, clock)

	raw, _, err := m.Issue(models.Identity{ID: "u1", Role: models.RoleUser}, models.TokenKindAccess)
	require.NoError(t, err)

	clock.Advance(time.Hour + time.Second)
	res := m.Verify(raw, models.TokenKindAccess)
	require.Equal(t, StatusExpired, res.Status)
	require.False(t, res.Valid())
}

func TestVerifyInvalid(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, clock)
	id := models.Identity{ID: "u1", Role: models.RoleUser}

	access, _, err := m.Issue(id, models.TokenKindAccess)
	require.NoError(t, err)
	refresh, _, err := m.Issue(id, models.TokenKindRefresh)
	require.NoError(t, err)

	other, err := NewManager(Config{
		AccessSecret: "another-secret",
		AccessTTL:    time.Hour,
		RefreshTTL:   time.Hour,
		Issuer:       "tms",
	}, WithClock(clock.Now))
	require.NoError(t, err)
	foreign, _, err := other.Issue(id, models.TokenKindAccess)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, &models.TokenClaims{
		Identity: id,
		Kind:     models.TokenKindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "tms",
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]struct {
		raw  string
		kind models.TokenKind
	}{
		"empty":              {"", models.TokenKindAccess},
		"garbage":            {"not-a-jwt", models.TokenKindAccess},
		"tampered signature": {access[:len(access)-2] + "xx", models.TokenKindAccess},
		"tampered payload":   {tamperPayload(access), models.TokenKindAccess},
		"wrong secret":       {foreign, models.TokenKindAccess},
		"alg none":           {unsigned, models.TokenKindAccess},
		"refresh as access":  {refresh, models.TokenKindAccess},
		"access as refresh":  {access, models.TokenKindRefresh},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res := m.Verify(tc.raw, tc.kind)
			assert.Equal(t, StatusInvalid, res.Status)
			assert.Nil(t, res.Claims)
		})
	}
}

func TestExpiredWrongSecretIsInvalid(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, clock)

	other, err := NewManager(Config{AccessSecret: "x", AccessTTL: time.Minute, RefreshTTL: time.Minute, Issuer: "tms"}, WithClock(clock.Now))
	require.NoError(t, err)
	raw, _, err := other.Issue(models.Identity{ID: "u1", Role: models.RoleUser}, models.TokenKindAccess)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	require.Equal(t, StatusInvalid, m.Verify(raw, models.TokenKindAccess).Status)
}

func TestRefreshSecretFallsBackToAccessSecret(t *testing.T) {
	m, err := NewManager(Config{AccessSecret: "s", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.NoError(t, err)

	raw, _, err := m.Issue(models.Identity{ID: "u1", Role: models.RoleUser}, models.TokenKindRefresh)
	require.NoError(t, err)
	require.True(t, m.Verify(raw, models.TokenKindRefresh).Valid())
	require.Equal(t, StatusInvalid, m.Verify(raw, models.TokenKindAccess).Status)
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(Config{AccessTTL: time.Minute, RefreshTTL: time.Minute})
	require.ErrorIs(t, err, ErrMissingSecret)

	_, err = NewManager(Config{AccessSecret: "s", RefreshTTL: time.Minute})
	require.ErrorIs(t, err, ErrInvalidTTL)
}

func tamperPayload(raw string) string {
	parts := strings.Split(raw, ".")
	// payload'a ait tek bir karakteri değiştir
	p := []byte(parts[1])
	if p[0] == 'e' {
		p[0] = 'f'
	} else {
		p[0] = 'e'
	}
	parts[1] = string(p)
	return strings.Join(parts, ".")
}
