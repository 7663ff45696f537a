package client

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"
)

// DefaultWaitTimeout, kuyruktaki bir isteğin refresh sonucunu bekleyeceği en uzun süre.
const DefaultWaitTimeout = 30 * time.Second

var (
	// ErrSessionExpired, refresh token artık kullanılamadığında döner. Oturum kapanmıştır.
	ErrSessionExpired = errors.New("session expired")
	// ErrRefreshTimeout, devam eden refresh WaitTimeout içinde bitmediğinde döner.
	ErrRefreshTimeout = errors.New("timed out waiting for token refresh")
)

// ExchangeFunc, refresh token'ı yeni bir access token ile takas eder.
type ExchangeFunc func(ctx context.Context) (string, error)

type refreshOutcome struct {
	token string
	err   error
}

// RefreshCoordinator, bir client için aynı anda en fazla bir refresh
// isteğinin uçuşta olmasını sağlar. Refresh sürerken gelen istekler
// kuyruğa girer ve sonuç geldiğinde sırayla çözülür.
//
// inFlight bayrağı ve kuyruk tek mutex altında okunup yazılır; takas
// kilidin dışında çalışır.
//
// Başarısız bir takastan sonra oturum kapanmış sayılır: Resume çağrılana
// kadar (ör. yeni bir login) takas tekrar denenmez.
type RefreshCoordinator struct {
	exchange    ExchangeFunc
	store       TokenStore
	onLogout    func()
	waitTimeout time.Duration

	mu       sync.Mutex
	inFlight bool
	ended    bool
	queue    []chan refreshOutcome
}

// NewRefreshCoordinator, constructor. onLogout nil olabilir; waitTimeout
// sıfırsa DefaultWaitTimeout kullanılır.
func NewRefreshCoordinator(exchange ExchangeFunc, store TokenStore, onLogout func(), waitTimeout time.Duration) *RefreshCoordinator {
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	return &RefreshCoordinator{
		exchange:    exchange,
		store:       store,
		onLogout:    onLogout,
		waitTimeout: waitTimeout,
	}
}

// Refresh, yeni bir access token alır. Uçuşta bir takas varsa onun
// sonucunu bekler; yoksa takası kendisi yapar.
func (c *RefreshCoordinator) Refresh(ctx context.Context) (string, error) {
	return c.refresh(ctx, "")
}

// refresh, sent boş değilse önce store'a bakar: token 401 alan istekten
// sonra değişmişse yeni takas yapılmaz. Store boşalmışsa oturum başka
// bir başarısız refresh ile zaten kapanmıştır.
func (c *RefreshCoordinator) refresh(ctx context.Context, sent string) (string, error) {
	c.mu.Lock()
	if c.inFlight {
		ch := make(chan refreshOutcome, 1)
		c.queue = append(c.queue, ch)
		c.mu.Unlock()
		return c.wait(ctx, ch)
	}

	if c.ended {
		c.mu.Unlock()
		return "", ErrSessionExpired
	}

	if sent != "" {
		if current := c.store.AccessToken(); current != sent {
			c.mu.Unlock()
			if current == "" {
				return "", ErrSessionExpired
			}
			return current, nil
		}
	}

	c.inFlight = true
	c.mu.Unlock()

	// Takas lider isteğin iptalinden etkilenmez; kuyruktakiler de bu sonucu bekliyor.
	exCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.waitTimeout)
	token, err := c.exchange(exCtx)
	cancel()
	if err == nil && token == "" {
		err = errors.New("refresh returned an empty access token")
	}

	c.mu.Lock()
	waiters := c.queue
	c.queue = nil
	c.inFlight = false
	if err == nil {
		c.store.SetAccessToken(token)
	} else {
		c.store.Clear()
		c.ended = true
	}
	c.mu.Unlock()

	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSessionExpired, err)
		log.Printf("[client] token refresh failed, logging out: %v", err)
		if c.onLogout != nil {
			c.onLogout()
		}
		token = ""
	}

	for _, ch := range waiters {
		ch <- refreshOutcome{token: token, err: err}
	}
	return token, err
}

func (c *RefreshCoordinator) wait(ctx context.Context, ch chan refreshOutcome) (string, error) {
	timer := time.NewTimer(c.waitTimeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		return out.token, out.err
	case <-ctx.Done():
		c.abandon(ch)
		return "", ctx.Err()
	case <-timer.C:
		c.abandon(ch)
		return "", ErrRefreshTimeout
	}
}

// End, oturumu takas yapmadan kapatır. onLogout çağrılmaz.
func (c *RefreshCoordinator) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Clear()
	c.ended = true
}

// Resume, kapanmış oturumu yeniden açar; sonraki 401'ler tekrar takas dener.
func (c *RefreshCoordinator) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ended = false
}

// Ended, oturumun kapanıp kapanmadığı.
func (c *RefreshCoordinator) Ended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ended
}

// abandon, beklemeyi bırakan isteği kuyruktan çıkarır.
func (c *RefreshCoordinator) abandon(ch chan refreshOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = slices.DeleteFunc(c.queue, func(q chan refreshOutcome) bool { return q == ch })
}

// Pending, sonucu bekleyen istek sayısı.
func (c *RefreshCoordinator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// InFlight, şu an bir takas yapılıp yapılmadığı.
func (c *RefreshCoordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}
