package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/apex/log"
	"golang.org/x/crypto/bcrypt"

	"machinery-monitor/internal/cache"
	"machinery-monitor/internal/metrics"
	"machinery-monitor/internal/session"
	"machinery-monitor/internal/store"
)

type sessionKey struct{}

// sessionFrom сессия, положенная requireSession
func sessionFrom(ctx context.Context) session.Session {
	s, _ := ctx.Value(sessionKey{}).(session.Session)
	return s
}

// requireSession разрешает тенанта по cookie или Bearer-токену
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.sessions.Resolve(r.Context(), session.TokenFromRequest(r))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, s)))
	})
}

type loginRequest struct {
	Company  string `json:"company"`
	LoginID  string `json:"login_id"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	CompanyID int64     `json:"company_id"`
	LoginID   string    `json:"login_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login обрабатывает POST /api/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.Company == "" || req.LoginID == "" || req.Password == "" {
		h.respondError(w, "company, login_id and password are required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	company, err := h.store.CompanyByName(ctx, req.Company)
	if errors.Is(err, store.ErrNotFound) {
		h.rejectLogin(w, req)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	u, err := h.store.UserByLogin(ctx, company.ID, req.LoginID)
	if errors.Is(err, store.ErrNotFound) {
		h.rejectLogin(w, req)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		h.rejectLogin(w, req)
		return
	}

	s, err := h.sessions.Create(ctx, u)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	if h.redis != nil {
		if _, err := h.redis.IncrementCounter(ctx, cache.LoginCounterKey); err != nil {
			log.WithError(err).Warn("failed to increment login counter")
		}
	}
	log.WithFields(log.Fields{"company_id": u.CompanyID, "login_id": u.LoginID}).Info("user logged in")

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.respondJSON(w, loginResponse{
		Token:     s.Token,
		CompanyID: s.CompanyID,
		LoginID:   s.LoginID,
		ExpiresAt: s.ExpiresAt,
	}, http.StatusOK)
}

func (h *Handler) rejectLogin(w http.ResponseWriter, req loginRequest) {
	metrics.LoginAttempts.WithLabelValues("rejected").Inc()
	log.WithFields(log.Fields{"company": req.Company, "login_id": req.LoginID}).Warn("login rejected")
	h.respondError(w, "invalid credentials", http.StatusUnauthorized)
}

// Logout обрабатывает POST /api/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Destroy(r.Context(), session.TokenFromRequest(r)); err != nil {
		h.fail(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	h.respondJSON(w, map[string]string{"status": "logged out"}, http.StatusOK)
}
