// Package store реализует доступ к реляционному хранилищу (sqlite3 или mysql).
// Все выборки по тенанту фильтруются по company_id напрямую или через machines.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/apex/log"
	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
)

const (
	pingAttempts = 5
)

// Store обертка над *sql.DB с диалектом драйвера
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open открывает соединение и создает схему.
// Для mysql DSN должен содержать parseTime=true.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errFailedOpenDB, err)
	}

	if driver == "sqlite3" {
		// :memory: живет в пределах одного соединения
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	wait := time.Second
	for i := 0; ; i++ {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		if i == pingAttempts-1 {
			db.Close()
			return nil, fmt.Errorf("%w: %w", errFailedOpenDB, err)
		}
		log.WithError(err).Warnf("Database ping failed, retrying in %v", wait)
		time.Sleep(wait)
		wait *= 2
	}

	s := &Store{db: db, dialect: d}
	if err := s.InitSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// New оборачивает уже открытое соединение (используется в тестах с sqlmock)
func New(db *sql.DB, driver string) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, driver)
	}
	return &Store{db: db, dialect: d}, nil
}

// InitSchema создает таблицы, если их нет
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %w", errFailedToInit, err)
		}
	}
	return nil
}

// Ping проверяет соединение с БД
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close закрывает соединение
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver возвращает имя драйвера
func (s *Store) Driver() string {
	return s.dialect.name
}

// dbTime нормализует время перед записью: UTC с точностью до секунды
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func insertID(res sql.Result) (int64, error) {
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errFailedToInsert, err)
	}
	return id, nil
}
