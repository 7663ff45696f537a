// Package main, tms backend uygulamasının giriş noktasıdır.
//
// Bu dosyanın görevi — Dependency Injection "wire-up":
//  1. Config'i yükle
//  2. Repository'leri oluştur (SQLite veya MongoDB)
//  3. Metrics registry
//  4. WebSocket Hub'ı başlat
//  5. Service'leri oluştur (repository'ler + hub ile)
//  6. Middleware'ları oluştur
//  7. Handler'ları oluştur
//  8. HTTP router'ı kur, route'ları bağla
//  9. Middleware zinciri + CORS
//  10. HTTP Server'ı başlat
//  11. Graceful shutdown
//
// Global değişken YOK — her şey bu fonksiyonda oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/akinalp/tms/config"
	"github.com/akinalp/tms/middleware"
	"github.com/akinalp/tms/pkg/metrics"
	"github.com/akinalp/tms/ws"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("[main] tms server starting...")

	// ─── 1. Config ───
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[main] failed to load config: %v", err)
	}
	log.Printf("[main] config loaded (port=%d, env=%s, db=%s)", cfg.Server.Port, cfg.Server.Env, cfg.Database.Driver)

	// ─── 2. Repository Layer ───
	repos, err := initRepositories(cfg)
	if err != nil {
		log.Fatalf("[main] failed to initialize database: %v", err)
	}
	defer func() {
		if err := repos.Close(); err != nil {
			log.Printf("[main] failed to close database: %v", err)
		}
	}()

	// ─── 3. Metrics ───
	m := metrics.New()

	// ─── 4. WebSocket Hub ───
	//
	// Hub, tüm WebSocket bağlantılarını yöneten merkezi yapıdır.
	// Service'ler hub'a EventPublisher interface'i üzerinden erişir.
	hub := ws.NewHub()
	go hub.Run()

	// ─── 5. Service Layer ───
	svcs, limiters, err := initServices(repos, hub, cfg)
	if err != nil {
		log.Fatalf("[main] failed to initialize services: %v", err)
	}
	defer svcs.Close()

	// ─── 6. Middleware ───
	authMw := middleware.NewAuthMiddleware(svcs.Tokens, svcs.Auth, cookiePolicy(cfg), m)
	adminMw := middleware.NewAdminMiddleware(repos.User)
	defer adminMw.Close()

	// ─── 7. Handler Layer ───
	h := initHandlers(svcs, limiters, hub, m, adminMw, cfg)

	// ─── 8. HTTP Router ───
	mux := http.NewServeMux()
	initRoutes(mux, h, authMw, adminMw, m)

	// ─── 9. Middleware Chain + CORS ───
	//
	// Cookie tabanlı auth için AllowCredentials zorunlu; bu durumda
	// origin listesi "*" olamaz.
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "x-access-token"},
		AllowCredentials: true,
	})

	// Recovery en dışta: Instrument ve Logger dahil her panic'i yakalar.
	// Instrument mux'ı doğrudan sarar ki r.Pattern dolu olsun.
	handler := middleware.Recovery(middleware.Logger(corsHandler.Handler(middleware.Instrument(m)(mux))))

	// ─── 10. HTTP Server ───
	//
	// WriteTimeout WebSocket bağlantılarını etkilemez; hijack sonrası
	// bağlantı server'ın kontrolünden çıkar.
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ─── 11. Graceful Shutdown ───
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("[main] server listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	<-done
	log.Println("[main] shutting down...")

	// Önce WebSocket bağlantılarını kapat, sonra HTTP server'ı:
	// yeni request kabul edilmez, mevcutlar 5sn içinde bitmeli.
	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[main] forced shutdown: %v", err)
		return
	}

	log.Println("[main] server stopped gracefully")
}
