package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"machinery-monitor/internal/cache"
	"machinery-monitor/internal/metrics"
)

// MemoryBackend сессии в памяти процесса
type MemoryBackend struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryBackend создает пустое хранилище
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{sessions: make(map[string]Session)}
}

// Save сохраняет сессию; срок жизни проверяет Manager
func (b *MemoryBackend) Save(_ context.Context, s Session, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sessions[s.Token] = s
	metrics.ActiveSessions.Set(float64(len(b.sessions)))
	return nil
}

// Load возвращает сессию по токену
func (b *MemoryBackend) Load(_ context.Context, token string) (Session, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, ok := b.sessions[token]
	if !ok {
		return Session{}, ErrNoSession
	}
	return s, nil
}

// Delete удаляет сессию
func (b *MemoryBackend) Delete(_ context.Context, token string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.sessions, token)
	metrics.ActiveSessions.Set(float64(len(b.sessions)))
	return nil
}

// Sweep удаляет истекшие к моменту now сессии и возвращает их число;
// Redis истекает ключи сам, в памяти это делает периодический вызов Sweep
func (b *MemoryBackend) Sweep(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for token, s := range b.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(b.sessions, token)
			removed++
		}
	}
	metrics.ActiveSessions.Set(float64(len(b.sessions)))
	return removed
}

// Len число хранимых сессий
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions)
}

// RedisBackend сессии в Redis с TTL ключа
type RedisBackend struct {
	cache *cache.RedisCache
}

// NewRedisBackend создает бэкенд поверх RedisCache
func NewRedisBackend(c *cache.RedisCache) *RedisBackend {
	return &RedisBackend{cache: c}
}

// Save сохраняет сессию с TTL
func (b *RedisBackend) Save(ctx context.Context, s Session, ttl time.Duration) error {
	return b.cache.SetWithTTL(ctx, cache.SessionKeyPrefix+s.Token, s, ttl)
}

// Load возвращает сессию по токену
func (b *RedisBackend) Load(ctx context.Context, token string) (Session, error) {
	var s Session
	err := b.cache.Get(ctx, cache.SessionKeyPrefix+token, &s)
	if errors.Is(err, cache.ErrMiss) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, err
	}
	return s, nil
}

// Delete удаляет сессию
func (b *RedisBackend) Delete(ctx context.Context, token string) error {
	return b.cache.Delete(ctx, cache.SessionKeyPrefix+token)
}
