package client

import "sync"

// TokenStore, client tarafında access token'ın tutulduğu yer.
// Refresh token cookie jar'dadır, buraya girmez.
type TokenStore interface {
	AccessToken() string
	SetAccessToken(token string)
	Clear()
}

// MemoryStore, süreç belleğinde tutulan TokenStore. Eşzamanlı kullanıma uygundur.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryStore, boş bir store döner.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *MemoryStore) SetAccessToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *MemoryStore) Clear() {
	s.SetAccessToken("")
}
