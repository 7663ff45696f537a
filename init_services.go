// Package main — Service katmanı başlatma.
//
// initServices, token manager'ı, refresh token kara listesini ve
// service'leri oluşturur. Her service dependency'lerini constructor'dan alır.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akinalp/tms/config"
	"github.com/akinalp/tms/pkg/blacklist"
	"github.com/akinalp/tms/pkg/email"
	"github.com/akinalp/tms/pkg/ratelimit"
	"github.com/akinalp/tms/pkg/token"
	"github.com/akinalp/tms/pkg/validator"
	"github.com/akinalp/tms/services"
	"github.com/akinalp/tms/ws"
)

const (
	loginMaxAttempts = 5
	loginWindow      = 2 * time.Minute
)

// Services, tüm service instance'larını ve paylaşılan altyapıyı tutan container.
type Services struct {
	Auth   services.AuthService
	Task   services.TaskService
	Tokens *token.Manager

	closers []func()
}

// Close, arka plan goroutine'lerini ve bağlantıları kapatır.
func (s *Services) Close() {
	for _, c := range s.closers {
		c()
	}
}

// RateLimiters, tüm rate limiter instance'larını tutan container.
type RateLimiters struct {
	Login *ratelimit.LoginRateLimiter
}

// initServices, tüm service'leri ve rate limiter'ları oluşturur.
func initServices(repos *Repositories, hub ws.EventPublisher, cfg *config.Config) (*Services, *RateLimiters, error) {
	tokens, err := token.NewManager(token.Config{
		AccessSecret:  cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL(),
		RefreshTTL:    cfg.JWT.RefreshTTL(),
		Issuer:        "tms",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create token manager: %w", err)
	}

	svcs := &Services{Tokens: tokens}

	revoked, err := initBlacklist(cfg, svcs)
	if err != nil {
		return nil, nil, err
	}

	var mailer email.EmailSender = email.NopSender{}
	if cfg.Email.ResendAPIKey != "" {
		mailer = email.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.FromEmail, cfg.Email.AppURL)
		log.Println("[main] welcome emails enabled (resend)")
	}

	validate := validator.New()
	svcs.Auth = services.NewAuthService(repos.User, tokens, revoked, validate, mailer)
	svcs.Task = services.NewTaskService(repos.Task, repos.User, hub, validate)

	limiters := &RateLimiters{
		Login: ratelimit.NewLoginRateLimiter(loginMaxAttempts, loginWindow),
	}
	svcs.closers = append(svcs.closers, limiters.Login.Stop)

	return svcs, limiters, nil
}

// initBlacklist, REDIS_ADDR tanımlıysa Redis, değilse in-memory kara liste döner.
// Redis'e ulaşılamıyorsa başlatma başarısız olur; sessizce belleğe düşmez.
func initBlacklist(cfg *config.Config, svcs *Services) (blacklist.Store, error) {
	if cfg.Redis.Addr == "" {
		store := blacklist.NewMemoryStore()
		svcs.closers = append(svcs.closers, store.Close)
		log.Println("[main] refresh token blacklist: in-memory")
		return store, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}

	svcs.closers = append(svcs.closers, func() {
		if err := rdb.Close(); err != nil {
			log.Printf("[main] failed to close redis client: %v", err)
		}
	})
	log.Printf("[main] refresh token blacklist: redis (%s)", cfg.Redis.Addr)
	return blacklist.NewRedisStore(rdb), nil
}
