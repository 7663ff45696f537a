// Package main — HTTP route registration.
//
// initRoutes, tüm API endpoint'lerini mux'a bağlar.
// Middleware chain helper'ları burada tanımlıdır:
//   - auth: JWT doğrulaması + gerekirse sessiz token yenileme
//   - authAdmin: auth + Admin rolü (rol kullanıcı kaydından okunur)
package main

import (
	"net/http"

	"github.com/akinalp/tms/middleware"
	"github.com/akinalp/tms/pkg"
	"github.com/akinalp/tms/pkg/metrics"
)

// initRoutes, middleware chain'i kurar ve tüm endpoint'leri mux'a bağlar.
//
// Route sıralama kuralı: Go 1.22+ mux'ta literal segment parametreden
// daha spesifik sayılır; "/api/v1/task/search" ve "/api/v1/task/all-tasks"
// "{id}" ile çakışmaz.
func initRoutes(
	mux *http.ServeMux,
	h *Handlers,
	authMw *middleware.AuthMiddleware,
	adminMw *middleware.AdminMiddleware,
	m *metrics.Metrics,
) {
	// ─── Middleware Chain Helpers ───
	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(handler)
	}
	authAdmin := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(adminMw.Require(handler))
	}

	// Health
	status := func(w http.ResponseWriter, _ *http.Request) {
		pkg.JSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "API is working!",
			"service": "tms",
		})
	}
	mux.HandleFunc("GET /api", status)
	mux.HandleFunc("GET /api/health", status)
	mux.Handle("GET /metrics", m.Handler())

	// Auth
	mux.HandleFunc("POST /api/v1/auth/user/register", h.Auth.Register)
	mux.HandleFunc("POST /api/v1/auth/user/login", h.Auth.Login)
	mux.HandleFunc("POST /api/v1/auth/user/refresh-token", h.Auth.RefreshToken)
	mux.HandleFunc("POST /api/v1/auth/user/logout", h.Auth.Logout)

	// User
	mux.Handle("GET /api/v1/auth/user/me", auth(h.Auth.Me))
	mux.Handle("GET /api/v1/auth/user/{id}", auth(h.Auth.GetUser))
	mux.Handle("PUT /api/v1/auth/user/{id}", auth(h.Auth.UpdateUser))

	// Tasks
	mux.Handle("POST /api/v1/task", auth(h.Task.Create))
	mux.Handle("GET /api/v1/task", auth(h.Task.List))
	mux.Handle("GET /api/v1/task/search", auth(h.Task.Search))
	mux.Handle("GET /api/v1/task/all-tasks", authAdmin(h.Task.AllTasks))
	mux.Handle("PUT /api/v1/task/{id}", auth(h.Task.Update))
	mux.Handle("DELETE /api/v1/task/{id}", auth(h.Task.Delete))

	// WebSocket — tarayıcılar upgrade isteğine header ekleyemez;
	// access token query parameter ile gelir ve handler kendisi doğrular.
	mux.HandleFunc("GET /api/v1/ws", h.WS.HandleConnection)
}
