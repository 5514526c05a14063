// Package analytics вычисляет производные KPI по тенанту: OEE, надежность,
// тренд эффективности, распределение статусов, частоту алертов.
// Метрики считаются при чтении и никогда не сохраняются.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"machinery-monitor/internal/config"
	"machinery-monitor/internal/metrics"
	"machinery-monitor/internal/models"
	"machinery-monitor/internal/store"
)

const (
	// OverlaySeries максимум рядов на графике нескольких датчиков
	OverlaySeries = 5
	// SummaryWindowDays окно средней эффективности на сводке
	SummaryWindowDays = 7

	sensorLimit = 50
	dayLayout   = "2006-01-02"
)

var (
	// ErrNotFound станок не существует или принадлежит другому тенанту
	ErrNotFound = store.ErrNotFound
	// ErrInvalidWindow окно в днях вне допустимого диапазона
	ErrInvalidWindow = errors.New("invalid window")
)

// Store набор запросов к хранилищу, нужных агрегатору
type Store interface {
	Machine(ctx context.Context, companyID, id int64) (models.Machine, error)
	Sensors(ctx context.Context, companyID, machineID int64, limit int) ([]models.Sensor, error)
	CountMachines(ctx context.Context, companyID int64) (int, error)
	CountAlerts(ctx context.Context, companyID, machineID int64, severity models.Severity, onlyActive bool) (int, error)
	CountTasks(ctx context.Context, companyID, machineID int64, status models.TaskStatus) (int, error)
	CountOpenTasks(ctx context.Context, companyID int64) (int, error)
	DailyReadingStats(ctx context.Context, companyID, machineID int64, since string, limit int) ([]models.DailyEfficiency, error)
	ReadingMean(ctx context.Context, companyID, machineID int64) (float64, int, error)
	StatusCounts(ctx context.Context, companyID int64) (map[string]int, error)
	SensorStats(ctx context.Context, companyID, machineID int64, limit int) ([]models.SensorStats, error)
	AlertFrequency(ctx context.Context, companyID int64, since string, limit int) ([]models.AlertFrequency, error)
	PeakHour(ctx context.Context, companyID, machineID int64) (*models.HourlyMean, error)
	MachineEfficiencies(ctx context.Context, companyID int64, since string, limit int) ([]models.MachineEfficiency, error)
	LocationStatusCounts(ctx context.Context, companyID int64) ([]models.LocationStatusCount, error)
	ReadingsSince(ctx context.Context, companyID, sensorID int64, since string, limit int) ([]models.SeriesPoint, error)
	RecentValues(ctx context.Context, companyID, sensorID int64, limit int) ([]float64, error)
}

// Aggregator вычисляет агрегаты в рамках одного тенанта
type Aggregator struct {
	store         Store
	maxWindowDays int
	rankingLimit  int
	seriesLimit   int
	listLimit     int
	now           func() time.Time
}

// Option настраивает Aggregator
type Option func(*Aggregator)

// WithClock подменяет источник текущего времени
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// NewAggregator создает агрегатор поверх хранилища
func NewAggregator(st Store, cfg *config.Config, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:         st,
		maxWindowDays: cfg.MaxWindowDays,
		rankingLimit:  cfg.RankingLimit,
		seriesLimit:   cfg.SeriesLimit,
		listLimit:     cfg.ListLimit,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ValidateWindow проверяет окно в днях
func (a *Aggregator) ValidateWindow(days int) error {
	if days < 1 || days > a.maxWindowDays {
		return fmt.Errorf("%w: days must be between 1 and %d, got %d", ErrInvalidWindow, a.maxWindowDays, days)
	}
	return nil
}

// since возвращает первую дату окна: дата(now) - days, включительно
func (a *Aggregator) since(days int) string {
	return a.now().UTC().AddDate(0, 0, -days).Format(dayLayout)
}

// machine проверяет принадлежность станка тенанту до любых агрегатов
func (a *Aggregator) machine(ctx context.Context, companyID, machineID int64) (models.Machine, error) {
	m, err := a.store.Machine(ctx, companyID, machineID)
	if err != nil {
		return models.Machine{}, err
	}
	return m, nil
}

// EfficiencyTrend дневные агрегаты показаний за окно; machineID=nil по всем станкам
func (a *Aggregator) EfficiencyTrend(ctx context.Context, companyID int64, machineID *int64, days int) ([]models.DailyEfficiency, error) {
	defer metrics.ObserveAggregate("efficiency_trend", time.Now())

	if err := a.ValidateWindow(days); err != nil {
		return nil, err
	}

	var mid int64
	if machineID != nil {
		if _, err := a.machine(ctx, companyID, *machineID); err != nil {
			return nil, err
		}
		mid = *machineID
	}

	trend, err := a.store.DailyReadingStats(ctx, companyID, mid, a.since(days), days+1)
	if err != nil {
		return nil, err
	}

	for i := range trend {
		trend[i].Avg = round(trend[i].Avg, 2)
		trend[i].Min = round(trend[i].Min, 2)
		trend[i].Max = round(trend[i].Max, 2)
	}
	return trend, nil
}

// OEE availability = 100 если среднее > 0, performance = среднее, quality = 100
func (a *Aggregator) OEE(ctx context.Context, companyID, machineID int64) (models.OEE, error) {
	defer metrics.ObserveAggregate("oee", time.Now())

	if _, err := a.machine(ctx, companyID, machineID); err != nil {
		return models.OEE{}, err
	}

	mean, _, err := a.store.ReadingMean(ctx, companyID, machineID)
	if err != nil {
		return models.OEE{}, err
	}

	return ComputeOEE(mean), nil
}

// ComputeOEE вычисляет OEE из среднего показания станка
func ComputeOEE(mean float64) models.OEE {
	availability := 0.0
	if mean > 0 {
		availability = 100
	}
	performance := round(mean, 1)
	quality := 100.0

	return models.OEE{
		Availability: availability,
		Performance:  performance,
		Quality:      quality,
		OEE:          round(availability/100*performance/100*100, 1),
	}
}

// Reliability MTBF = 24 / max(алерты, 1), MTTR = 2 / max(завершенные задачи, 1)
func (a *Aggregator) Reliability(ctx context.Context, companyID, machineID int64) (models.Reliability, error) {
	defer metrics.ObserveAggregate("reliability", time.Now())

	if _, err := a.machine(ctx, companyID, machineID); err != nil {
		return models.Reliability{}, err
	}

	failures, err := a.store.CountAlerts(ctx, companyID, machineID, "", false)
	if err != nil {
		return models.Reliability{}, err
	}
	repairs, err := a.store.CountTasks(ctx, companyID, machineID, models.TaskCompleted)
	if err != nil {
		return models.Reliability{}, err
	}

	return ComputeReliability(failures, repairs), nil
}

// ComputeReliability вычисляет эвристики MTBF/MTTR
func ComputeReliability(failures, repairs int) models.Reliability {
	return models.Reliability{
		MTBFHours: round(24/float64(max(failures, 1)), 2),
		MTTRHours: round(2/float64(max(repairs, 1)), 2),
	}
}

// StatusDistribution число станков тенанта по статусу
func (a *Aggregator) StatusDistribution(ctx context.Context, companyID int64) (map[string]int, error) {
	defer metrics.ObserveAggregate("status_distribution", time.Now())
	return a.store.StatusCounts(ctx, companyID)
}

// SensorStatistics статистика по каждому датчику станка
func (a *Aggregator) SensorStatistics(ctx context.Context, companyID, machineID int64) ([]models.SensorStats, error) {
	defer metrics.ObserveAggregate("sensor_statistics", time.Now())

	if _, err := a.machine(ctx, companyID, machineID); err != nil {
		return nil, err
	}

	stats, err := a.store.SensorStats(ctx, companyID, machineID, sensorLimit)
	if err != nil {
		return nil, err
	}
	for i := range stats {
		stats[i].Avg = round(stats[i].Avg, 2)
		stats[i].Min = round(stats[i].Min, 2)
		stats[i].Max = round(stats[i].Max, 2)
	}
	return stats, nil
}

// AlertFrequency число алертов по дням с разбивкой по важности
func (a *Aggregator) AlertFrequency(ctx context.Context, companyID int64, days int) ([]models.AlertFrequency, error) {
	defer metrics.ObserveAggregate("alert_frequency", time.Now())

	if err := a.ValidateWindow(days); err != nil {
		return nil, err
	}
	return a.store.AlertFrequency(ctx, companyID, a.since(days), days+1)
}

// Analytics сводная аналитика станка за всю историю
func (a *Aggregator) Analytics(ctx context.Context, companyID, machineID int64) (models.MachineAnalytics, error) {
	defer metrics.ObserveAggregate("analytics", time.Now())

	if _, err := a.machine(ctx, companyID, machineID); err != nil {
		return models.MachineAnalytics{}, err
	}

	_, total, err := a.store.ReadingMean(ctx, companyID, machineID)
	if err != nil {
		return models.MachineAnalytics{}, err
	}
	critical, err := a.store.CountAlerts(ctx, companyID, machineID, models.SeverityCritical, false)
	if err != nil {
		return models.MachineAnalytics{}, err
	}
	completed, err := a.store.CountTasks(ctx, companyID, machineID, models.TaskCompleted)
	if err != nil {
		return models.MachineAnalytics{}, err
	}
	peak, err := a.store.PeakHour(ctx, companyID, machineID)
	if err != nil {
		return models.MachineAnalytics{}, err
	}

	result := models.MachineAnalytics{
		TotalReadings:        total,
		FailureRate:          round(float64(critical)/float64(max(total, 1))*100, 1),
		MaintenanceFrequency: completed,
	}
	if peak != nil {
		hour := peak.Hour
		result.PeakHour = &hour
		result.PeakEfficiency = round(peak.Mean, 1)
	}
	return result, nil
}

// Summary KPI тенанта для главной страницы
func (a *Aggregator) Summary(ctx context.Context, companyID int64) (models.Summary, error) {
	defer metrics.ObserveAggregate("summary", time.Now())

	total, err := a.store.CountMachines(ctx, companyID)
	if err != nil {
		return models.Summary{}, err
	}
	active, err := a.store.CountAlerts(ctx, companyID, 0, "", true)
	if err != nil {
		return models.Summary{}, err
	}
	critical, err := a.store.CountAlerts(ctx, companyID, 0, models.SeverityCritical, true)
	if err != nil {
		return models.Summary{}, err
	}
	open, err := a.store.CountOpenTasks(ctx, companyID)
	if err != nil {
		return models.Summary{}, err
	}
	statuses, err := a.store.StatusCounts(ctx, companyID)
	if err != nil {
		return models.Summary{}, err
	}
	effs, err := a.store.MachineEfficiencies(ctx, companyID, a.since(SummaryWindowDays), 500)
	if err != nil {
		return models.Summary{}, err
	}

	var sum float64
	var n int
	for _, e := range effs {
		if e.Efficiency > 0 {
			sum += e.Efficiency
			n++
		}
	}
	avg := 0.0
	if n > 0 {
		avg = round(sum/float64(n), 1)
	}

	return models.Summary{
		TotalMachines:   total,
		AvgEfficiency:   avg,
		ActiveAlerts:    active,
		CriticalAlerts:  critical,
		OpenMaintenance: open,
		StatusCounts:    statuses,
	}, nil
}

// MachineEfficiencies эффективность станков за окно, по возрастанию
func (a *Aggregator) MachineEfficiencies(ctx context.Context, companyID int64, days int) ([]models.MachineEfficiency, error) {
	defer metrics.ObserveAggregate("machine_efficiencies", time.Now())

	if err := a.ValidateWindow(days); err != nil {
		return nil, err
	}

	effs, err := a.store.MachineEfficiencies(ctx, companyID, a.since(days), a.rankingLimit)
	if err != nil {
		return nil, err
	}
	for i := range effs {
		effs[i].Efficiency = round(effs[i].Efficiency, 1)
	}
	return effs, nil
}

// LocationStatus число станков по площадкам и статусам
func (a *Aggregator) LocationStatus(ctx context.Context, companyID int64) ([]models.LocationStatusCount, error) {
	defer metrics.ObserveAggregate("location_status", time.Now())
	return a.store.LocationStatusCounts(ctx, companyID)
}

// SensorSeries ряды показаний до OverlaySeries датчиков станка за окно
func (a *Aggregator) SensorSeries(ctx context.Context, companyID, machineID int64, days int) ([]models.SensorSeries, error) {
	defer metrics.ObserveAggregate("sensor_series", time.Now())

	if err := a.ValidateWindow(days); err != nil {
		return nil, err
	}
	if _, err := a.machine(ctx, companyID, machineID); err != nil {
		return nil, err
	}

	sensors, err := a.store.Sensors(ctx, companyID, machineID, OverlaySeries)
	if err != nil {
		return nil, err
	}

	since := a.since(days)
	series := make([]models.SensorSeries, 0, len(sensors))
	for _, sn := range sensors {
		points, err := a.store.ReadingsSince(ctx, companyID, sn.ID, since, a.seriesLimit)
		if err != nil {
			return nil, err
		}
		series = append(series, models.SensorSeries{
			SensorID: sn.ID,
			Name:     sn.Name,
			Unit:     sn.Unit,
			Points:   points,
		})
	}
	return series, nil
}

// SensorAnomalies z-score последнего показания каждого датчика относительно
// скользящего окна из предыдущих WindowSize показаний
func (a *Aggregator) SensorAnomalies(ctx context.Context, companyID, machineID int64) ([]models.SensorAnomaly, error) {
	defer metrics.ObserveAggregate("sensor_anomalies", time.Now())

	if _, err := a.machine(ctx, companyID, machineID); err != nil {
		return nil, err
	}

	sensors, err := a.store.Sensors(ctx, companyID, machineID, sensorLimit)
	if err != nil {
		return nil, err
	}

	anomalies := make([]models.SensorAnomaly, 0, len(sensors))
	for _, sn := range sensors {
		values, err := a.store.RecentValues(ctx, companyID, sn.ID, WindowSize+1)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			continue
		}
		an := detectAnomaly(sn, values)
		if an.AnomalyDetected {
			metrics.AnomaliesDetected.Inc()
		}
		anomalies = append(anomalies, an)
	}
	return anomalies, nil
}

// detectAnomaly z-score считается до добавления последнего значения в окно
func detectAnomaly(sn models.Sensor, values []float64) models.SensorAnomaly {
	latest := values[len(values)-1]

	window := NewSlidingWindow(WindowSize)
	for _, v := range values[:len(values)-1] {
		window.Add(v)
	}

	z := window.ZScore(latest)
	outOfThreshold := sn.MaxThreshold > sn.MinThreshold &&
		(latest < sn.MinThreshold || latest > sn.MaxThreshold)

	return models.SensorAnomaly{
		SensorID:        sn.ID,
		Name:            sn.Name,
		Latest:          latest,
		RollingAvg:      round(window.Mean(), 2),
		StdDev:          round(window.StdDev(), 2),
		ZScore:          round(z, 2),
		OutOfThreshold:  outOfThreshold,
		AnomalyDetected: math.Abs(z) > ZScoreThreshold || outOfThreshold,
		WindowCount:     window.Count(),
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
