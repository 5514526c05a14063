package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"machinery-monitor/internal/models"
)

const taskSelect = `
	SELECT t.id, t.company_id, t.machine_id, m.name, t.description, t.priority, t.technician,
	       t.scheduled_date, t.status, t.created_at, t.completed_at
	FROM maintenance_tasks t
	LEFT JOIN machines m ON m.id = t.machine_id AND m.company_id = t.company_id`

func scanTask(row rowScanner) (models.MaintenanceTask, error) {
	var t models.MaintenanceTask
	var machineName, description, technician, scheduled sql.NullString
	var priority, status string
	var completedAt sql.NullTime

	err := row.Scan(&t.ID, &t.CompanyID, &t.MachineID, &machineName, &description, &priority,
		&technician, &scheduled, &status, &t.CreatedAt, &completedAt)
	if err != nil {
		return models.MaintenanceTask{}, err
	}

	t.MachineName = machineName.String
	t.Description = description.String
	t.Priority = models.Priority(priority)
	t.Technician = technician.String
	t.ScheduledDate = scheduled.String
	t.Status = models.TaskStatus(status)
	t.CreatedAt = t.CreatedAt.UTC()
	if completedAt.Valid {
		c := completedAt.Time.UTC()
		t.CompletedAt = &c
	}
	return t, nil
}

// CreateTask добавляет задачу обслуживания
func (s *Store) CreateTask(ctx context.Context, t models.MaintenanceTask) (int64, error) {
	var completedAt sql.NullTime
	if t.Status == models.TaskCompleted {
		at := t.CreatedAt
		if t.CompletedAt != nil {
			at = *t.CompletedAt
		}
		completedAt = sql.NullTime{Time: dbTime(at), Valid: true}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO maintenance_tasks
		(company_id, machine_id, description, priority, technician, scheduled_date, status, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.CompanyID, t.MachineID, t.Description, string(t.Priority), nullString(t.Technician),
		nullString(t.ScheduledDate), string(t.Status), dbTime(t.CreatedAt), completedAt)
	if err != nil {
		return 0, fmt.Errorf("%w task: %w", errFailedToInsert, err)
	}
	return insertID(res)
}

// Task возвращает задачу тенанта
func (s *Store) Task(ctx context.Context, companyID, id int64) (models.MaintenanceTask, error) {
	row := s.db.QueryRowContext(ctx, taskSelect+` WHERE t.id = ? AND t.company_id = ?`, id, companyID)

	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MaintenanceTask{}, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.MaintenanceTask{}, fmt.Errorf("%w task: %w", errFailedToQuery, err)
	}
	return t, nil
}

// Tasks возвращает задачи тенанта, новые первыми
func (s *Store) Tasks(ctx context.Context, companyID int64, f models.TaskFilter) ([]models.MaintenanceTask, error) {
	query := taskSelect + ` WHERE t.company_id = ?`
	args := []interface{}{companyID}

	if f.Status != "" {
		query += ` AND t.status = ?`
		args = append(args, string(f.Status))
	}
	if f.MachineID != 0 {
		query += ` AND t.machine_id = ?`
		args = append(args, f.MachineID)
	}

	query += ` ORDER BY t.created_at DESC, t.id DESC LIMIT ?`
	args = append(args, f.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w tasks: %w", errFailedToQuery, err)
	}
	defer rows.Close()

	tasks := make([]models.MaintenanceTask, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("%w task: %w", errFailedToScan, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask меняет статус/исполнителя. completed_at выставляется ровно при переходе в completed.
func (s *Store) UpdateTask(ctx context.Context, companyID, id int64, upd models.TaskUpdate, now time.Time) (models.MaintenanceTask, error) {
	t, err := s.Task(ctx, companyID, id)
	if err != nil {
		return models.MaintenanceTask{}, err
	}

	prev := t.Status
	if upd.Status != nil {
		next := *upd.Status
		if !t.Status.CanTransition(next) {
			return models.MaintenanceTask{}, fmt.Errorf("%s -> %s: %w", t.Status, next, ErrInvalidTransition)
		}
		if next == models.TaskCompleted && t.Status != models.TaskCompleted {
			c := dbTime(now)
			t.CompletedAt = &c
		}
		t.Status = next
	}
	if upd.Technician != nil {
		t.Technician = *upd.Technician
	}

	var completedAt sql.NullTime
	if t.CompletedAt != nil {
		completedAt = sql.NullTime{Time: dbTime(*t.CompletedAt), Valid: true}
	}

	// status = prev: конкурентное изменение статуса после чтения отклоняет запись
	res, err := s.db.ExecContext(ctx, `
		UPDATE maintenance_tasks SET status = ?, technician = ?, completed_at = ?
		WHERE id = ? AND company_id = ? AND status = ?
	`, string(t.Status), nullString(t.Technician), completedAt, id, companyID, string(prev))
	if err != nil {
		return models.MaintenanceTask{}, fmt.Errorf("%w task: %w", errFailedToUpdate, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.MaintenanceTask{}, fmt.Errorf("%w task: %w", errFailedToUpdate, err)
	}
	if n == 0 {
		// mysql не считает строки без изменений; перечитываем статус
		cur, err := s.Task(ctx, companyID, id)
		if err != nil {
			return models.MaintenanceTask{}, err
		}
		if cur.Status != prev {
			return models.MaintenanceTask{}, fmt.Errorf("task %d changed concurrently from %s: %w", id, prev, ErrInvalidTransition)
		}
	}
	return t, nil
}

// CountTasks число задач тенанта; machineID=0 по всем станкам, status="" по всем статусам
func (s *Store) CountTasks(ctx context.Context, companyID, machineID int64, status models.TaskStatus) (int, error) {
	query := `SELECT COUNT(*) FROM maintenance_tasks WHERE company_id = ?`
	args := []interface{}{companyID}

	if machineID != 0 {
		query += ` AND machine_id = ?`
		args = append(args, machineID)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w tasks count: %w", errFailedToQuery, err)
	}
	return n, nil
}

// CountOpenTasks число незавершенных задач тенанта
func (s *Store) CountOpenTasks(ctx context.Context, companyID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM maintenance_tasks WHERE company_id = ? AND status <> ?`,
		companyID, string(models.TaskCompleted)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w tasks count: %w", errFailedToQuery, err)
	}
	return n, nil
}
