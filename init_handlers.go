// Package main — Handler katmanı başlatma.
//
// initHandlers, tüm HTTP handler'larını oluşturur.
// Handler'lar "thin" dir — sadece HTTP parse + service call + response write.
package main

import (
	"github.com/akinalp/tms/config"
	"github.com/akinalp/tms/handlers"
	"github.com/akinalp/tms/pkg/cookies"
	"github.com/akinalp/tms/pkg/metrics"
	"github.com/akinalp/tms/ws"
)

// Handlers, tüm handler instance'larını tutan container struct.
type Handlers struct {
	Auth *handlers.AuthHandler
	Task *handlers.TaskHandler
	WS   *ws.Handler
}

// cookiePolicy, config'den cookie ayarlarını üretir.
func cookiePolicy(cfg *config.Config) cookies.Policy {
	return cookies.Policy{
		Secure:     cfg.Server.IsProduction(),
		AccessTTL:  cfg.JWT.AccessTTL(),
		RefreshTTL: cfg.JWT.RefreshTTL(),
	}
}

// initHandlers, handler'ları service, rate limiter ve metrics dependency'leri ile oluşturur.
// roles, kullanıcı rolü değişince Admin cache'ini temizlemek için kullanılır.
func initHandlers(
	svcs *Services,
	limiters *RateLimiters,
	hub *ws.Hub,
	m *metrics.Metrics,
	roles handlers.RoleInvalidator,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		Auth: handlers.NewAuthHandler(svcs.Auth, limiters.Login, cookiePolicy(cfg), m, roles),
		Task: handlers.NewTaskHandler(svcs.Task),
		WS:   ws.NewHandler(hub, svcs.Tokens, m, cfg.CORS.AllowedOrigins),
	}
}
