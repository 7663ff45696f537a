// Package handlers, HTTP request/response işlemlerini yönetir.
//
// Handler'ın görevi çok basit ve "ince" (thin) olmalı:
// 1. Request body'yi parse et (JSON → struct)
// 2. Service katmanını çağır
// 3. Sonucu HTTP response olarak döndür
//
// Handler ASLA iş mantığı (business logic) içermez.
// Handler ASLA doğrudan DB'ye erişmez.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/akinalp/tms/models"
	"github.com/akinalp/tms/pkg"
	"github.com/akinalp/tms/pkg/cookies"
	"github.com/akinalp/tms/pkg/metrics"
	"github.com/akinalp/tms/pkg/ratelimit"
	"github.com/akinalp/tms/services"
)

// RoleInvalidator, rol değişikliğinden sonra cache'lenmiş rolü düşürür.
// AdminMiddleware bu interface'i karşılar.
type RoleInvalidator interface {
	Invalidate(userID string)
}

// AuthHandler, auth ve kullanıcı endpoint'lerini yöneten struct.
type AuthHandler struct {
	authService  services.AuthService
	loginLimiter *ratelimit.LoginRateLimiter
	cookies      cookies.Policy
	metrics      *metrics.Metrics
	roles        RoleInvalidator
}

// NewAuthHandler, constructor.
// loginLimiter nil ise rate limiting devre dışı kalır. roles nil olabilir.
func NewAuthHandler(
	authService services.AuthService,
	loginLimiter *ratelimit.LoginRateLimiter,
	policy cookies.Policy,
	m *metrics.Metrics,
	roles RoleInvalidator,
) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		loginLimiter: loginLimiter,
		cookies:      policy,
		metrics:      m,
		roles:        roles,
	}
}

// Register godoc
// POST /api/v1/auth/user/register
// İlk kullanıcı otomatik olarak Admin rolü alır.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "User registered successfully",
		"user":    user.Public(),
	})
}

// Login godoc
// POST /api/v1/auth/user/login
//
// IP bazlı brute-force koruması: pencere içinde izin verilen deneme
// aşılırsa 429 + Retry-After döner. Başarılı login sayacı sıfırlar.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ip := ratelimit.ExtractIP(r)
	if h.loginLimiter != nil && !h.loginLimiter.Allow(ip) {
		retryAfter := h.loginLimiter.RetryAfterSeconds(ip)
		h.metrics.LoginRateLimited()
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		pkg.ErrorWithMessage(w, http.StatusTooManyRequests,
			fmt.Sprintf("too many login attempts, please try again in %s",
				ratelimit.FormatRetryMessage(retryAfter)))
		return
	}

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	if h.loginLimiter != nil {
		h.loginLimiter.Reset(ip)
	}

	h.cookies.SetAccess(w, result.AccessToken)
	h.cookies.SetRefresh(w, result.RefreshToken)

	pkg.JSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Login successful",
		"id":          result.User.ID,
		"accessToken": result.AccessToken,
	})
}

// RefreshToken godoc
// POST /api/v1/auth/user/refresh-token
// Refresh token sadece cookie'den okunur; body'de kabul edilmez.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	raw := cookies.Read(r, cookies.RefreshTokenName)
	if raw == "" {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "Access Denied. No refresh token provided.")
		return
	}

	result, err := h.authService.Refresh(r.Context(), raw)
	if err != nil {
		if errors.Is(err, pkg.ErrForbidden) {
			h.metrics.TokenRefresh(false)
		}
		pkg.Error(w, err)
		return
	}
	h.metrics.TokenRefresh(true)

	h.cookies.SetAccess(w, result.AccessToken)

	pkg.JSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Token refreshed successfully",
		"accessToken": result.AccessToken,
	})
}

// Logout godoc
// POST /api/v1/auth/user/logout
// Refresh token iptal edilir ve iki cookie de silinir. Token yoksa da 200 döner.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), cookies.Read(r, cookies.RefreshTokenName)); err != nil {
		pkg.Error(w, err)
		return
	}

	h.cookies.Clear(w)

	pkg.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logout successful",
	})
}

// Me godoc
// GET /api/v1/auth/user/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	user, err := h.authService.GetUser(r.Context(), identity, identity.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, map[string]any{"success": true, "user": user})
}

// GetUser godoc
// GET /api/v1/auth/user/{id}
// Yanıt tek elemanlı bir dizidir; mevcut frontend bu şekli bekliyor.
func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	user, err := h.authService.GetUser(r.Context(), identity, r.PathValue("id"))
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, []*models.User{user})
}

// UpdateUser godoc
// PUT /api/v1/auth/user/{id}
func (h *AuthHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req models.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.authService.UpdateUser(r.Context(), identity, r.PathValue("id"), &req)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	if req.Role != nil && h.roles != nil {
		h.roles.Invalidate(user.ID)
		log.Printf("[auth] role of user %s set to %s by %s", user.ID, user.Role, identity.ID)
	}

	pkg.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "User updated successfully",
		"user":    user,
	})
}

// requireIdentity, auth middleware'ın eklediği kimliği okur; yoksa 401 yazar.
func requireIdentity(w http.ResponseWriter, r *http.Request) (models.Identity, bool) {
	identity, ok := IdentityFromContext(r.Context())
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
	}
	return identity, ok
}
