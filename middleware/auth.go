// Package middleware, HTTP request pipeline'ına eklenen ara katmanları barındırır.
//
// Go'da middleware bir fonksiyondur:
//
//	func(next http.Handler) http.Handler
//
// Middleware kendi işini yapar (ör: token doğrula), sonra next'i çağırır.
// Hata varsa next çağrılmaz ve request burada durur.
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"strings"

	"github.com/akinalp/tms/handlers"
	"github.com/akinalp/tms/models"
	"github.com/akinalp/tms/pkg"
	"github.com/akinalp/tms/pkg/cookies"
	"github.com/akinalp/tms/pkg/metrics"
	"github.com/akinalp/tms/pkg/token"
)

// maxBodyPeek, body'deki accessToken alanı için okunacak azami boyut.
const maxBodyPeek = 1 << 20

const (
	msgTokenMissing   = "Unauthorized: Token missing"
	msgTokenExpired   = "Unauthorized: Token expired"
	msgInvalidToken   = "Forbidden: Invalid token"
	msgInvalidRefresh = "Forbidden: Invalid or expired refresh token"
)

// TokenRefresher, refresh token'dan yeni access token basan servis.
// services.AuthService bunu karşılar.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*models.RefreshResult, error)
}

// AuthMiddleware, access token doğrulama ve sessiz yenileme middleware'ı.
type AuthMiddleware struct {
	verifier  token.Verifier
	refresher TokenRefresher
	cookies   cookies.Policy
	metrics   *metrics.Metrics
}

// NewAuthMiddleware, constructor.
func NewAuthMiddleware(verifier token.Verifier, refresher TokenRefresher, policy cookies.Policy, m *metrics.Metrics) *AuthMiddleware {
	return &AuthMiddleware{
		verifier:  verifier,
		refresher: refresher,
		cookies:   policy,
		metrics:   m,
	}
}

// Require, geçerli bir kimlik zorunlu kılar.
//
// Karar tablosu:
//   - access token geçerli → kimlik context'e eklenir, devam
//   - access token geçersiz (imza, format, tür) → 403
//   - access token süresi dolmuş veya hiç yok → refresh cookie'sine bakılır:
//   - cookie yok → 401
//   - refresh geçerli ve iptal edilmemiş → yeni access cookie'si yazılır, devam
//   - aksi halde → 403
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractAccessToken(r)

		if raw != "" {
			res := m.verifier.Verify(raw, models.TokenKindAccess)
			switch res.Status {
			case token.StatusValid:
				m.metrics.AuthDecision(metrics.OutcomeValid)
				next.ServeHTTP(w, r.WithContext(handlers.WithIdentity(r.Context(), res.Claims.Identity)))
				return
			case token.StatusExpired:
				// sessiz yenilemeye düş
			default:
				m.metrics.AuthDecision(metrics.OutcomeInvalid)
				log.Printf("[auth] rejected invalid access token: %v", res.Err)
				pkg.ErrorWithMessage(w, http.StatusForbidden, msgInvalidToken)
				return
			}
		}

		refresh := cookies.Read(r, cookies.RefreshTokenName)
		if refresh == "" {
			m.metrics.AuthDecision(metrics.OutcomeMissing)
			msg := msgTokenMissing
			if raw != "" {
				msg = msgTokenExpired
			}
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, msg)
			return
		}

		renewed, err := m.refresher.Refresh(r.Context(), refresh)
		if err != nil {
			if errors.Is(err, pkg.ErrForbidden) {
				m.metrics.AuthDecision(metrics.OutcomeRefreshFailed)
				log.Printf("[auth] silent renewal rejected: %v", err)
				pkg.ErrorWithMessage(w, http.StatusForbidden, msgInvalidRefresh)
				return
			}
			pkg.Error(w, err)
			return
		}

		m.metrics.AuthDecision(metrics.OutcomeRenewed)
		log.Printf("[auth] access token renewed for user %s", renewed.Identity.ID)

		m.cookies.SetAccess(w, renewed.AccessToken)
		next.ServeHTTP(w, r.WithContext(handlers.WithIdentity(r.Context(), renewed.Identity)))
	})
}

// extractAccessToken, token'ı sırasıyla Authorization: Bearer, accessToken
// cookie'si, x-access-token header'ı, accessToken query parametresi ve JSON
// body'deki accessToken alanından arar.
func extractAccessToken(r *http.Request) string {
	if scheme, value, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		if v := strings.TrimSpace(value); v != "" {
			return v
		}
	}
	if v := cookies.Read(r, cookies.AccessTokenName); v != "" {
		return v
	}
	if v := r.Header.Get("x-access-token"); v != "" {
		return v
	}
	if v := r.URL.Query().Get("accessToken"); v != "" {
		return v
	}
	return accessTokenFromBody(r)
}

// accessTokenFromBody, JSON body'den accessToken okur ve body'yi handler için
// eski haline getirir.
func accessTokenFromBody(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mt != "application/json" {
		return ""
	}

	peek, err := io.ReadAll(io.LimitReader(r.Body, maxBodyPeek+1))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(peek), r.Body), r.Body}
	if err != nil || len(peek) > maxBodyPeek {
		return ""
	}

	var body struct {
		AccessToken string `json:"accessToken"`
	}
	if json.Unmarshal(peek, &body) != nil {
		return ""
	}
	return body.AccessToken
}
