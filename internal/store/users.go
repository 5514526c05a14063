package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"machinery-monitor/internal/models"
)

// CreateCompany добавляет компанию (тенанта)
func (s *Store) CreateCompany(ctx context.Context, name string, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO companies (name, created_at) VALUES (?, ?)`, name, dbTime(now))
	if err != nil {
		return 0, fmt.Errorf("%w company: %w", errFailedToInsert, err)
	}
	return insertID(res)
}

// CompanyByName ищет компанию по имени
func (s *Store) CompanyByName(ctx context.Context, name string) (models.Company, error) {
	var c models.Company
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM companies WHERE name = ?`, name).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Company{}, fmt.Errorf("company %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return models.Company{}, fmt.Errorf("%w company: %w", errFailedToQuery, err)
	}
	return c, nil
}

// CreateUser добавляет пользователя с уже посчитанным хэшем пароля
func (s *Store) CreateUser(ctx context.Context, u models.User) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (company_id, login_id, name, password_hash) VALUES (?, ?, ?, ?)
	`, u.CompanyID, u.LoginID, nullString(u.Name), u.PasswordHash)
	if err != nil {
		return 0, fmt.Errorf("%w user: %w", errFailedToInsert, err)
	}
	return insertID(res)
}

// UserByLogin ищет пользователя по паре (company_id, login_id)
func (s *Store) UserByLogin(ctx context.Context, companyID int64, loginID string) (models.User, error) {
	var u models.User
	var name sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, company_id, login_id, name, password_hash
		FROM users WHERE company_id = ? AND login_id = ?
	`, companyID, loginID).Scan(&u.ID, &u.CompanyID, &u.LoginID, &name, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %q: %w", loginID, ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("%w user: %w", errFailedToQuery, err)
	}
	u.Name = name.String
	return u, nil
}
