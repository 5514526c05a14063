package store

import "errors"

var (
	// ErrNotFound запись не существует или принадлежит другому тенанту
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition недопустимый переход статуса задачи
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrUnsupportedDriver драйвер БД не поддерживается
	ErrUnsupportedDriver = errors.New("unsupported database driver")

	errFailedOpenDB   = errors.New("failed to open database")
	errFailedToInit   = errors.New("failed to initialize schema")
	errFailedToQuery  = errors.New("failed to query")
	errFailedToScan   = errors.New("failed to scan")
	errFailedToInsert = errors.New("failed to insert")
	errFailedToUpdate = errors.New("failed to update")
)
