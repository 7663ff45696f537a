package middleware

import (
	"net/http"
	"time"

	"github.com/akinalp/tms/handlers"
	"github.com/akinalp/tms/models"
	"github.com/akinalp/tms/pkg"
	"github.com/akinalp/tms/pkg/cache"
	"github.com/akinalp/tms/repository"
)

// roleCacheTTL, kullanıcı rolünün cache'te tutulma süresi.
const roleCacheTTL = 30 * time.Second

// AdminMiddleware, Admin rolü zorunlu kılar. AuthMiddleware'den SONRA çalışır.
//
// Rol token'daki claim'den değil, kullanıcı kaydından okunur; böylece rolü
// düşürülen bir kullanıcı access token'ının süresini beklemeden yetkisini kaybeder.
//
// Kullanım:
//
//	authMw.Require(adminMw.Require(http.HandlerFunc(taskHandler.ListAll)))
type AdminMiddleware struct {
	userRepo repository.UserRepository
	roles    *cache.TTLCache[string, models.Role]
}

// NewAdminMiddleware, constructor. Close ile cache goroutine'i durdurulur.
func NewAdminMiddleware(userRepo repository.UserRepository) *AdminMiddleware {
	return &AdminMiddleware{
		userRepo: userRepo,
		roles:    cache.New[string, models.Role](roleCacheTTL, time.Minute),
	}
}

// Require, Admin olmayan kullanıcıyı 403 ile reddeder.
func (m *AdminMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := handlers.IdentityFromContext(r.Context())
		if !ok {
			pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
			return
		}

		role, ok := m.roles.Get(identity.ID)
		if !ok {
			user, err := m.userRepo.GetByID(r.Context(), identity.ID)
			if err != nil {
				pkg.Error(w, err)
				return
			}
			role = user.Role
			m.roles.Set(identity.ID, role)
		}

		if role != models.RoleAdmin {
			pkg.ErrorWithMessage(w, http.StatusForbidden, "Access denied")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Invalidate, kullanıcının cache'lenmiş rolünü siler (rol güncellemesinden sonra).
func (m *AdminMiddleware) Invalidate(userID string) {
	m.roles.Delete(userID)
}

// Close, cache temizleme goroutine'ini durdurur.
func (m *AdminMiddleware) Close() {
	m.roles.Close()
}
