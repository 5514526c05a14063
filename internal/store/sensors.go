package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"machinery-monitor/internal/models"
)

// ReadingView последнее показание с именем датчика (детали станка)
type ReadingView struct {
	SensorName string    `json:"sensor_name"`
	Unit       string    `json:"unit"`
	Value      float64   `json:"value"`
	Timestamp  time.Time `json:"timestamp"`
}

// CreateSensor добавляет датчик
func (s *Store) CreateSensor(ctx context.Context, sn models.Sensor) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sensors (machine_id, name, unit, min_threshold, max_threshold)
		VALUES (?, ?, ?, ?, ?)
	`, sn.MachineID, sn.Name, nullString(sn.Unit), sn.MinThreshold, sn.MaxThreshold)
	if err != nil {
		return 0, fmt.Errorf("%w sensor: %w", errFailedToInsert, err)
	}
	return insertID(res)
}

// InsertReading добавляет показание. NULL значение записывается при valid=false.
func (s *Store) InsertReading(ctx context.Context, sensorID int64, value sql.NullFloat64, at time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sensor_readings (sensor_id, value, recorded_at) VALUES (?, ?, ?)
	`, sensorID, value, dbTime(at))
	if err != nil {
		return 0, fmt.Errorf("%w reading: %w", errFailedToInsert, err)
	}
	return insertID(res)
}

// Sensors возвращает датчики станка тенанта
func (s *Store) Sensors(ctx context.Context, companyID, machineID int64, limit int) ([]models.Sensor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.machine_id, s.name, s.unit, s.min_threshold, s.max_threshold
		FROM sensors s
		JOIN machines m ON m.id = s.machine_id
		WHERE m.company_id = ? AND m.id = ?
		ORDER BY s.id
		LIMIT ?
	`, companyID, machineID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w sensors: %w", errFailedToQuery, err)
	}
	defer rows.Close()

	sensors := make([]models.Sensor, 0)
	for rows.Next() {
		var sn models.Sensor
		var unit sql.NullString
		var minT, maxT sql.NullFloat64
		if err := rows.Scan(&sn.ID, &sn.MachineID, &sn.Name, &unit, &minT, &maxT); err != nil {
			return nil, fmt.Errorf("%w sensor: %w", errFailedToScan, err)
		}
		sn.Unit = unit.String
		sn.MinThreshold = minT.Float64
		sn.MaxThreshold = maxT.Float64
		sensors = append(sensors, sn)
	}
	return sensors, rows.Err()
}

// LatestReadings последние показания всех датчиков станка
func (s *Store) LatestReadings(ctx context.Context, companyID, machineID int64, limit int) ([]ReadingView, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.name, s.unit, r.value, r.recorded_at
		FROM sensor_readings r
		JOIN sensors s ON s.id = r.sensor_id
		JOIN machines m ON m.id = s.machine_id
		WHERE m.company_id = ? AND m.id = ? AND r.value IS NOT NULL
		ORDER BY r.recorded_at DESC, r.id DESC
		LIMIT ?
	`, companyID, machineID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w latest readings: %w", errFailedToQuery, err)
	}
	defer rows.Close()

	readings := make([]ReadingView, 0)
	for rows.Next() {
		var rv ReadingView
		var unit sql.NullString
		if err := rows.Scan(&rv.SensorName, &unit, &rv.Value, &rv.Timestamp); err != nil {
			return nil, fmt.Errorf("%w reading: %w", errFailedToScan, err)
		}
		rv.Unit = unit.String
		readings = append(readings, rv)
	}
	return readings, rows.Err()
}

// RecentValues последние значения датчика в хронологическом порядке
func (s *Store) RecentValues(ctx context.Context, companyID, sensorID int64, limit int) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.value
		FROM sensor_readings r
		JOIN sensors s ON s.id = r.sensor_id
		JOIN machines m ON m.id = s.machine_id
		WHERE m.company_id = ? AND s.id = ? AND r.value IS NOT NULL
		ORDER BY r.recorded_at DESC, r.id DESC
		LIMIT ?
	`, companyID, sensorID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w recent values: %w", errFailedToQuery, err)
	}
	defer rows.Close()

	values := make([]float64, 0, limit)
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("%w value: %w", errFailedToScan, err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	reverseFloats(values)
	return values, nil
}

// ReadingsSince показания датчика начиная с даты since (YYYY-MM-DD) включительно,
// не более limit последних, по возрастанию времени
func (s *Store) ReadingsSince(ctx context.Context, companyID, sensorID int64, since string, limit int) ([]models.SeriesPoint, error) {
	query := `
		SELECT r.recorded_at, r.value
		FROM sensor_readings r
		JOIN sensors s ON s.id = r.sensor_id
		JOIN machines m ON m.id = s.machine_id
		WHERE m.company_id = ? AND s.id = ? AND r.value IS NOT NULL
		  AND ` + s.dialect.day("r.recorded_at") + ` >= ?
		ORDER BY r.recorded_at DESC, r.id DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, companyID, sensorID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("%w readings: %w", errFailedToQuery, err)
	}
	defer rows.Close()

	points := make([]models.SeriesPoint, 0)
	for rows.Next() {
		var ts time.Time
		var p models.SeriesPoint
		if err := rows.Scan(&ts, &p.Value); err != nil {
			return nil, fmt.Errorf("%w reading: %w", errFailedToScan, err)
		}
		p.Timestamp = ts.UTC().Format(time.RFC3339)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

func reverseFloats(v []float64) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}
