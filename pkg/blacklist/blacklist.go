// Package blacklist, logout ile iptal edilen refresh token'ların kaydını tutar.
//
// Refresh token'lar stateless JWT'dir; logout'ta cookie silinse de token'ın
// kopyası süresi dolana kadar geçerli kalır. Bu yüzden token'ın jti değeri,
// kalan ömrü kadar TTL ile kara listeye yazılır.
//
// İki implementasyon vardır:
//   - RedisStore: REDIS_ADDR tanımlıysa, birden fazla instance aynı listeyi görür
//   - MemoryStore: tek instance deploy için in-memory TTL cache
package blacklist

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/akinalp/tms/pkg/cache"
)

// Store, token iptal kaydı için interface.
type Store interface {
	// Revoke, tokenID'yi expiresAt'e kadar iptal edilmiş olarak işaretler.
	// Süresi zaten dolmuş token'lar için hiçbir şey yapmaz.
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

const keyPrefix = "blacklist:token:"

// RedisStore, Store'un Redis implementasyonu.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore, constructor.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, keyPrefix+tokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

func (s *RedisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return n > 0, nil
}

// MemoryStore, Store'un in-memory implementasyonu.
type MemoryStore struct {
	entries *cache.TTLCache[string, struct{}]
}

// NewMemoryStore, constructor. Close çağrılmalıdır.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: cache.New[string, struct{}](time.Hour, time.Minute),
	}
}

func (s *MemoryStore) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	s.entries.SetWithTTL(tokenID, struct{}{}, ttl)
	return nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	_, ok := s.entries.Get(tokenID)
	return ok, nil
}

// Close, arka plandaki temizleme goroutine'ini durdurur.
func (s *MemoryStore) Close() {
	s.entries.Close()
}
