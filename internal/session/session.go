// Package session сопоставляет токен сессии с тенантом и пользователем
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"machinery-monitor/internal/models"
)

// CookieName имя cookie с токеном сессии
const CookieName = "session_token"

// ErrNoSession токен отсутствует, неизвестен или истек
var ErrNoSession = errors.New("no active session")

// Session данные аутентифицированной сессии
type Session struct {
	Token     string    `json:"token"`
	CompanyID int64     `json:"company_id"`
	UserID    int64     `json:"user_id"`
	LoginID   string    `json:"login_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Backend хранилище сессий
type Backend interface {
	Save(ctx context.Context, s Session, ttl time.Duration) error
	Load(ctx context.Context, token string) (Session, error)
	Delete(ctx context.Context, token string) error
}

// Manager создает и разрешает сессии
type Manager struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
}

// NewManager создает менеджер сессий
func NewManager(backend Backend, ttl time.Duration) *Manager {
	return &Manager{backend: backend, ttl: ttl, now: time.Now}
}

// TTL время жизни новой сессии
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create открывает сессию для пользователя
func (m *Manager) Create(ctx context.Context, u models.User) (Session, error) {
	s := Session{
		Token:     uuid.NewString(),
		CompanyID: u.CompanyID,
		UserID:    u.ID,
		LoginID:   u.LoginID,
		ExpiresAt: m.now().Add(m.ttl).UTC(),
	}
	if err := m.backend.Save(ctx, s, m.ttl); err != nil {
		return Session{}, fmt.Errorf("failed to save session: %w", err)
	}
	return s, nil
}

// Resolve возвращает сессию по токену
func (m *Manager) Resolve(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrNoSession
	}

	s, err := m.backend.Load(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if !m.now().Before(s.ExpiresAt) {
		_ = m.backend.Delete(ctx, token)
		return Session{}, ErrNoSession
	}
	return s, nil
}

// Destroy закрывает сессию; неизвестный токен не ошибка
func (m *Manager) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return m.backend.Delete(ctx, token)
}

// TokenFromRequest читает токен из cookie или заголовка Authorization: Bearer
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
