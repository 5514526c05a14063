package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"machinery-monitor/internal/models"
)

const machineColumns = `id, company_id, name, type, location, status, rated_capacity`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMachine(row rowScanner) (models.Machine, error) {
	var m models.Machine
	var typ, location, status sql.NullString

	if err := row.Scan(&m.ID, &m.CompanyID, &m.Name, &typ, &location, &status, &m.RatedCapacity); err != nil {
		return models.Machine{}, err
	}

	m.Type = typ.String
	m.Location = location.String
	m.Status = models.MachineStatus(status.String)
	if m.Status == "" {
		m.Status = models.StatusUnknown
	}
	return m, nil
}

// CreateMachine добавляет станок
func (s *Store) CreateMachine(ctx context.Context, m models.Machine) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO machines (company_id, name, type, location, status, rated_capacity)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.CompanyID, m.Name, nullString(m.Type), nullString(m.Location), nullString(string(m.Status)), m.RatedCapacity)
	if err != nil {
		return 0, fmt.Errorf("%w machine: %w", errFailedToInsert, err)
	}
	return insertID(res)
}

// Machine возвращает станок тенанта; ErrNotFound если станок чужой или не существует
func (s *Store) Machine(ctx context.Context, companyID, id int64) (models.Machine, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+machineColumns+` FROM machines WHERE id = ? AND company_id = ?`, id, companyID)

	m, err := scanMachine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Machine{}, fmt.Errorf("machine %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Machine{}, fmt.Errorf("%w machine: %w", errFailedToQuery, err)
	}
	return m, nil
}

// Machines возвращает станки тенанта с фильтрами
func (s *Store) Machines(ctx context.Context, companyID int64, f models.MachineFilter) ([]models.Machine, error) {
	query := `SELECT ` + machineColumns + ` FROM machines WHERE company_id = ?`
	args := []interface{}{companyID}

	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + q + "%"
		query += ` AND (name LIKE ? OR type LIKE ? OR location LIKE ?)`
		args = append(args, like, like, like)
	}

	query += ` ORDER BY id LIMIT ?`
	args = append(args, f.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w machines: %w", errFailedToQuery, err)
	}
	defer rows.Close()

	machines := make([]models.Machine, 0)
	for rows.Next() {
		m, err := scanMachine(rows)
		if err != nil {
			return nil, fmt.Errorf("%w machine: %w", errFailedToScan, err)
		}
		machines = append(machines, m)
	}
	return machines, rows.Err()
}

// UpdateMachine меняет статус и/или площадку станка
func (s *Store) UpdateMachine(ctx context.Context, companyID, id int64, upd models.MachineUpdate) (models.Machine, error) {
	m, err := s.Machine(ctx, companyID, id)
	if err != nil {
		return models.Machine{}, err
	}

	if upd.Status != nil {
		m.Status = *upd.Status
	}
	if upd.Location != nil {
		m.Location = *upd.Location
	}

	status := nullString(string(m.Status))
	if m.Status == models.StatusUnknown {
		status = sql.NullString{}
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE machines SET status = ?, location = ?
		WHERE id = ? AND company_id = ?
	`, status, nullString(m.Location), id, companyID)
	if err != nil {
		return models.Machine{}, fmt.Errorf("%w machine: %w", errFailedToUpdate, err)
	}
	return m, nil
}

// CountMachines число станков тенанта
func (s *Store) CountMachines(ctx context.Context, companyID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM machines WHERE company_id = ?`, companyID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w machines count: %w", errFailedToQuery, err)
	}
	return n, nil
}
