package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"machinery-monitor/internal/models"
)

// readingsScope соединяет показания с машинами тенанта
const readingsScope = `
	FROM sensor_readings r
	JOIN sensors s ON s.id = r.sensor_id
	JOIN machines m ON m.id = s.machine_id
	WHERE m.company_id = ? AND r.value IS NOT NULL`

// DailyReadingStats дневные агрегаты показаний начиная с since (YYYY-MM-DD) включительно.
// machineID=0 означает все станки тенанта. Дни без данных отсутствуют.
func (s *Store) DailyReadingStats(ctx context.Context, companyID, machineID int64, since string, limit int) ([]models.DailyEfficiency, error) {
	day := s.dialect.day("r.recorded_at")
	query := `SELECT ` + day + ` AS d, AVG(r.value), MIN(r.value), MAX(r.value), COUNT(r.value)` +
		readingsScope + ` AND ` + day + ` >= ?`
	args := []interface{}{companyID, since}

	if machineID != 0 {
		query += ` AND m.id = ?`
		args = append(args, machineID)
	}
	query += ` GROUP BY d ORDER BY d ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w daily stats: %w", errFailedToQuery, err)
	}
	defer rows.Close()

	stats := make([]models.DailyEfficiency, 0)
	for rows.Next() {
		var de models.DailyEfficiency
		if err := rows.Scan(&de.Date, &de.Avg, &de.Min, &de.Max, &de.SampleCount); err != nil {
			return nil, fmt.Errorf("%w daily stats: %w", errFailedToScan, err)
		}
		stats = append(stats, de)
	}
	return stats, rows.Err()
}

// ReadingMean среднее и число показаний станка за всю историю
func (s *Store) ReadingMean(ctx context.Context, companyID, machineID int64) (float64, int, error) {
	var mean sql.NullFloat64
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT AVG(r.value), COUNT(r.value)`+readingsScope+` AND m.id = ?`,
		companyID, machineID).Scan(&mean, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("%w reading mean: %w", errFailedToQuery, err)
	}
	return mean.Float64, count, nil
}

// StatusCounts число станков тенанта по статусу; пустой/NULL статус -> unknown
func (s *Store) StatusCounts(ctx context.Context, companyID int64) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(status, ''), 'unknown') AS st, COUNT(*)
		FROM machines
		WHERE company_id = ?
		GROUP BY st
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("%w status counts: %w", errFailedToQuery, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("%w status counts: %w", errFailedToScan, err)
		}
		counts[status] += n
	}
	return counts, rows.Err()
}

// SensorStats статистика по каждому датчику станка за всю историю
func (s *Store) SensorStats(ctx context.Context, companyID, machineID int64, limit int) ([]models.SensorStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.name, s.unit, AVG(r.value), MIN(r.value), MAX(r.value), COUNT(r.value)
		FROM sensors s
		JOIN machines m ON m.id = s.machine_id
		LEFT JOIN sensor_readings r ON r.sensor_id = s.id
		WHERE m.company_id = ? AND m.id = ?
		GROUP BY s.id, s.name, s.unit
		ORDER BY s.id
		LIMIT ?
	`, companyID, machineID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w sensor stats: %w", errFailedToQuery, err)
	}
	defer rows.Close()

	stats := make([]models.SensorStats, 0)
	for rows.Next() {
		var st models.SensorStats
		var unit sql.NullString
		var avg, minV, maxV sql.NullFloat64
		if err := rows.Scan(&st.SensorID, &st.Name, &unit, &avg, &minV, &maxV, &st.Count); err != nil {
			return nil, fmt.Errorf("%w sensor stats: %w", errFailedToScan, err)
		}
		st.Unit = unit.String
		st.Avg = avg.Float64
		st.Min = minV.Float64
		st.Max = maxV.Float64
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// AlertFrequency число алертов по дням и важности начиная с since включительно
func (s *Store) AlertFrequency(ctx context.Context, companyID int64, since string, limit int) ([]models.AlertFrequency, error) {
	day := s.dialect.day("a.raised_at")
	query := `
		SELECT ` + day + ` AS d,
		       SUM(CASE WHEN a.severity = 'critical' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN a.severity = 'warning' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN a.severity = 'info' THEN 1 ELSE 0 END),
		       COUNT(*)
		FROM alerts a
		WHERE a.company_id = ? AND ` + day + ` >= ?
		GROUP BY d
		ORDER BY d ASC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, companyID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("%w alert frequency: %w", errFailedToQuery, err)
	}
	defer rows.Close()

	freq := make([]models.AlertFrequency, 0)
	for rows.Next() {
		var af models.AlertFrequency
		if err := rows.Scan(&af.Date, &af.Critical, &af.Warning, &af.Info, &af.Total); err != nil {
			return nil, fmt.Errorf("%w alert frequency: %w", errFailedToScan, err)
		}
		freq = append(freq, af)
	}
	return freq, rows.Err()
}

// PeakHour час суток с максимальным средним показанием станка.
// nil если показаний нет. При равенстве выбирается меньший час.
func (s *Store) PeakHour(ctx context.Context, companyID, machineID int64) (*models.HourlyMean, error) {
	hour := s.dialect.hour("r.recorded_at")
	query := `SELECT ` + hour + ` AS h, AVG(r.value) AS mean` + readingsScope + ` AND m.id = ?
		GROUP BY h
		ORDER BY mean DESC, h ASC
		LIMIT 1`

	var hm models.HourlyMean
	err := s.db.QueryRowContext(ctx, query, companyID, machineID).Scan(&hm.Hour, &hm.Mean)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w peak hour: %w", errFailedToQuery, err)
	}
	return &hm, nil
}

// MachineEfficiencies среднее показание каждого станка тенанта за окно.
// Станки без данных получают 0. Сортировка по возрастанию эффективности.
func (s *Store) MachineEfficiencies(ctx context.Context, companyID int64, since string, limit int) ([]models.MachineEfficiency, error) {
	query := `
		SELECT m.id, m.name, COALESCE(AVG(r.value), 0) AS eff
		FROM machines m
		LEFT JOIN sensors s ON s.machine_id = m.id
		LEFT JOIN sensor_readings r ON r.sensor_id = s.id
		     AND r.value IS NOT NULL
		     AND ` + s.dialect.day("r.recorded_at") + ` >= ?
		WHERE m.company_id = ?
		GROUP BY m.id, m.name
		ORDER BY eff ASC, m.id ASC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, since, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w machine efficiencies: %w", errFailedToQuery, err)
	}
	defer rows.Close()

	effs := make([]models.MachineEfficiency, 0)
	for rows.Next() {
		var me models.MachineEfficiency
		if err := rows.Scan(&me.MachineID, &me.Name, &me.Efficiency); err != nil {
			return nil, fmt.Errorf("%w machine efficiencies: %w", errFailedToScan, err)
		}
		effs = append(effs, me)
	}
	return effs, rows.Err()
}

// LocationStatusCounts число станков тенанта по площадке и статусу
func (s *Store) LocationStatusCounts(ctx context.Context, companyID int64) ([]models.LocationStatusCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(location, ''), 'unassigned') AS loc,
		       COALESCE(NULLIF(status, ''), 'unknown') AS st,
		       COUNT(*)
		FROM machines
		WHERE company_id = ?
		GROUP BY loc, st
		ORDER BY loc, st
		LIMIT 500
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("%w location status: %w", errFailedToQuery, err)
	}
	defer rows.Close()

	counts := make([]models.LocationStatusCount, 0)
	for rows.Next() {
		var lc models.LocationStatusCount
		var status string
		if err := rows.Scan(&lc.Location, &status, &lc.Count); err != nil {
			return nil, fmt.Errorf("%w location status: %w", errFailedToScan, err)
		}
		lc.Status = models.MachineStatus(status)
		counts = append(counts, lc)
	}
	return counts, rows.Err()
}
