package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"machinery-monitor/internal/models"
)

const alertSelect = `
	SELECT a.id, a.company_id, a.machine_id, m.name, a.severity, a.message, a.raised_at,
	       a.acknowledged, a.acknowledged_by, a.acknowledged_at, a.comment
	FROM alerts a
	LEFT JOIN machines m ON m.id = a.machine_id AND m.company_id = a.company_id`

func scanAlert(row rowScanner) (models.Alert, error) {
	var a models.Alert
	var machineName, message, ackBy, comment sql.NullString
	var ackAt sql.NullTime
	var severity string

	err := row.Scan(&a.ID, &a.CompanyID, &a.MachineID, &machineName, &severity, &message,
		&a.RaisedAt, &a.Acknowledged, &ackBy, &ackAt, &comment)
	if err != nil {
		return models.Alert{}, err
	}

	a.MachineName = machineName.String
	a.Severity = models.Severity(severity)
	a.Message = message.String
	a.AcknowledgedBy = ackBy.String
	a.Comment = comment.String
	if ackAt.Valid {
		t := ackAt.Time.UTC()
		a.AcknowledgedAt = &t
	}
	a.RaisedAt = a.RaisedAt.UTC()
	return a, nil
}

// CreateAlert добавляет алерт. company_id должен совпадать с владельцем станка.
func (s *Store) CreateAlert(ctx context.Context, a models.Alert) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (company_id, machine_id, severity, message, raised_at, acknowledged)
		VALUES (?, ?, ?, ?, ?, 0)
	`, a.CompanyID, a.MachineID, string(a.Severity), a.Message, dbTime(a.RaisedAt))
	if err != nil {
		return 0, fmt.Errorf("%w alert: %w", errFailedToInsert, err)
	}
	return insertID(res)
}

// Alert возвращает алерт тенанта
func (s *Store) Alert(ctx context.Context, companyID, id int64) (models.Alert, error) {
	row := s.db.QueryRowContext(ctx, alertSelect+` WHERE a.id = ? AND a.company_id = ?`, id, companyID)

	a, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Alert{}, fmt.Errorf("alert %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Alert{}, fmt.Errorf("%w alert: %w", errFailedToQuery, err)
	}
	return a, nil
}

// Alerts возвращает алерты тенанта, новые первыми
func (s *Store) Alerts(ctx context.Context, companyID int64, f models.AlertFilter) ([]models.Alert, error) {
	query := alertSelect + ` WHERE a.company_id = ?`
	args := []interface{}{companyID}

	if f.Acknowledged != nil {
		query += ` AND a.acknowledged = ?`
		if *f.Acknowledged {
			args = append(args, 1)
		} else {
			args = append(args, 0)
		}
	}
	if f.MachineID != 0 {
		query += ` AND a.machine_id = ?`
		args = append(args, f.MachineID)
	}

	query += ` ORDER BY a.raised_at DESC, a.id DESC LIMIT ?`
	args = append(args, f.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w alerts: %w", errFailedToQuery, err)
	}
	defer rows.Close()

	alerts := make([]models.Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("%w alert: %w", errFailedToScan, err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// AcknowledgeAlert квитирует алерт тенанта
func (s *Store) AcknowledgeAlert(ctx context.Context, companyID, id int64, ack models.AlertAck) (models.Alert, error) {
	if _, err := s.Alert(ctx, companyID, id); err != nil {
		return models.Alert{}, err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE alerts
		SET acknowledged = 1, acknowledged_by = ?, acknowledged_at = ?, comment = ?
		WHERE id = ? AND company_id = ?
	`, nullString(ack.By), dbTime(ack.At), nullString(ack.Comment), id, companyID)
	if err != nil {
		return models.Alert{}, fmt.Errorf("%w alert: %w", errFailedToUpdate, err)
	}

	return s.Alert(ctx, companyID, id)
}

// CountAlerts число алертов тенанта; machineID=0 по всем станкам,
// severity="" по всем уровням, onlyActive только неквитированные
func (s *Store) CountAlerts(ctx context.Context, companyID, machineID int64, severity models.Severity, onlyActive bool) (int, error) {
	query := `SELECT COUNT(*) FROM alerts WHERE company_id = ?`
	args := []interface{}{companyID}

	if machineID != 0 {
		query += ` AND machine_id = ?`
		args = append(args, machineID)
	}
	if severity != "" {
		query += ` AND severity = ?`
		args = append(args, string(severity))
	}
	if onlyActive {
		query += ` AND acknowledged = 0`
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w alerts count: %w", errFailedToQuery, err)
	}
	return n, nil
}
