package analytics

import (
	"context"
	"database/sql"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machinery-monitor/internal/config"
	"machinery-monitor/internal/models"
	"machinery-monitor/internal/store"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store *store.Store
	agg   *Aggregator
	ctx   context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	s, err := store.Open(context.Background(), "sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	cfg := config.Default()
	cfg.MaxWindowDays = 30

	return &fixture{
		store: s,
		agg:   NewAggregator(s, cfg, WithClock(func() time.Time { return testNow })),
		ctx:   context.Background(),
	}
}

func (f *fixture) company(t *testing.T, name string) int64 {
	t.Helper()
	id, err := f.store.CreateCompany(f.ctx, name, testNow)
	require.NoError(t, err)
	return id
}

func (f *fixture) machine(t *testing.T, companyID int64, name string, status models.MachineStatus) int64 {
	t.Helper()
	id, err := f.store.CreateMachine(f.ctx, models.Machine{CompanyID: companyID, Name: name, Status: status, Location: "Hall A"})
	require.NoError(t, err)
	return id
}

func (f *fixture) sensor(t *testing.T, machineID int64, name string) int64 {
	t.Helper()
	id, err := f.store.CreateSensor(f.ctx, models.Sensor{MachineID: machineID, Name: name, Unit: "%", MinThreshold: 10, MaxThreshold: 90})
	require.NoError(t, err)
	return id
}

func (f *fixture) reading(t *testing.T, sensorID int64, value float64, at time.Time) {
	t.Helper()
	_, err := f.store.InsertReading(f.ctx, sensorID, sql.NullFloat64{Float64: value, Valid: true}, at)
	require.NoError(t, err)
}

func (f *fixture) alert(t *testing.T, companyID, machineID int64, sev models.Severity, at time.Time) {
	t.Helper()
	_, err := f.store.CreateAlert(f.ctx, models.Alert{CompanyID: companyID, MachineID: machineID, Severity: sev, Message: "test", RaisedAt: at})
	require.NoError(t, err)
}

func (f *fixture) task(t *testing.T, companyID, machineID int64, status models.TaskStatus) {
	t.Helper()
	_, err := f.store.CreateTask(f.ctx, models.MaintenanceTask{
		CompanyID: companyID, MachineID: machineID, Description: "service",
		Priority: models.PriorityMedium, Status: status, CreatedAt: testNow,
	})
	require.NoError(t, err)
}

func TestSlidingWindow_Add(t *testing.T) {
	sw := NewSlidingWindow(5)

	for _, v := range []float64{10, 20, 30, 40, 50} {
		sw.Add(v)
	}

	assert.Equal(t, 5, sw.Count())
	assert.InDelta(t, 30.0, sw.Mean(), 0.001)
}

func TestSlidingWindow_RollingBehavior(t *testing.T) {
	sw := NewSlidingWindow(3)

	sw.Add(10)
	sw.Add(20)
	sw.Add(30)
	assert.InDelta(t, 20.0, sw.Mean(), 0.001)

	// 10 вытесняется из окна
	sw.Add(40)
	assert.InDelta(t, 30.0, sw.Mean(), 0.001)
	assert.Equal(t, 3, sw.Count())
}

func TestSlidingWindow_StdDev(t *testing.T) {
	sw := NewSlidingWindow(5)
	for i := 0; i < 5; i++ {
		sw.Add(50)
	}
	assert.Zero(t, sw.StdDev())
	assert.Zero(t, sw.ZScore(80), "zero stddev must give zero z-score")

	sw2 := NewSlidingWindow(5)
	for _, v := range []float64{2, 4, 4, 4, 5} {
		sw2.Add(v)
	}
	assert.InDelta(t, 1.095, sw2.StdDev(), 0.001)
}

func TestSlidingWindow_ZScore(t *testing.T) {
	sw := NewSlidingWindow(WindowSize)
	for i := 0; i < WindowSize; i++ {
		sw.Add(float64(40 + i%20))
	}

	assert.Greater(t, sw.ZScore(100), ZScoreThreshold)
	assert.Less(t, math.Abs(sw.ZScore(sw.Mean())), 0.001)
}

func TestNewSlidingWindow_MinimumSize(t *testing.T) {
	sw := NewSlidingWindow(0)
	sw.Add(3)
	sw.Add(7)
	assert.Equal(t, 1, sw.Count())
	assert.InDelta(t, 7.0, sw.Mean(), 0.001)
}

func TestComputeOEE(t *testing.T) {
	tests := []struct {
		name string
		mean float64
		want models.OEE
	}{
		{name: "no readings", mean: 0, want: models.OEE{Availability: 0, Performance: 0, Quality: 100, OEE: 0}},
		{name: "typical", mean: 70, want: models.OEE{Availability: 100, Performance: 70, Quality: 100, OEE: 70}},
		{name: "rounded", mean: 72.345, want: models.OEE{Availability: 100, Performance: 72.3, Quality: 100, OEE: 72.3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeOEE(tt.mean)
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got.OEE, 0.0)
		})
	}
}

func TestComputeReliability(t *testing.T) {
	assert.Equal(t, models.Reliability{MTBFHours: 24, MTTRHours: 2}, ComputeReliability(0, 0))
	assert.Equal(t, models.Reliability{MTBFHours: 8, MTTRHours: 0.5}, ComputeReliability(3, 4))
	assert.Equal(t, models.Reliability{MTBFHours: 3.43, MTTRHours: 0.67}, ComputeReliability(7, 3))
}

func TestEfficiencyTrend(t *testing.T) {
	f := newFixture(t)
	acme := f.company(t, "acme")
	m := f.machine(t, acme, "Lathe", models.StatusRunning)
	sn := f.sensor(t, m, "load")

	f.reading(t, sn, 60, time.Date(2026, 10, 13, 8, 0, 0, 0, time.UTC))
	f.reading(t, sn, 80, time.Date(2026, 10, 13, 9, 0, 0, 0, time.UTC))
	f.reading(t, sn, 90, time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC))
	f.reading(t, sn, 10, time.Date(2026, 10, 1, 7, 0, 0, 0, time.UTC))

	trend, err := f.agg.EfficiencyTrend(f.ctx, acme, &m, 3)
	require.NoError(t, err)
	require.Len(t, trend, 2)
	assert.Equal(t, "2026-10-13", trend[0].Date)
	assert.InDelta(t, 70, trend[0].Avg, 0.001)
	assert.Equal(t, "2026-10-15", trend[1].Date)

	for i := 1; i < len(trend); i++ {
		assert.Less(t, trend[i-1].Date, trend[i].Date, "dates must be strictly ascending")
	}
	for _, d := range trend {
		assert.LessOrEqual(t, d.Min, d.Avg)
		assert.LessOrEqual(t, d.Avg, d.Max)
	}

	all, err := f.agg.EfficiencyTrend(f.ctx, acme, nil, 30)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestEfficiencyTrend_InvalidWindow(t *testing.T) {
	f := newFixture(t)
	acme := f.company(t, "acme")

	for _, days := range []int{0, -1, 31} {
		_, err := f.agg.EfficiencyTrend(f.ctx, acme, nil, days)
		assert.ErrorIs(t, err, ErrInvalidWindow, "days=%d", days)
	}

	_, err := f.agg.AlertFrequency(f.ctx, acme, 0)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestOEE(t *testing.T) {
	f := newFixture(t)
	acme := f.company(t, "acme")
	m := f.machine(t, acme, "Lathe", models.StatusRunning)
	sn := f.sensor(t, m, "load")
	f.reading(t, sn, 60, testNow.Add(-time.Hour))
	f.reading(t, sn, 80, testNow)

	oee, err := f.agg.OEE(f.ctx, acme, m)
	require.NoError(t, err)
	assert.Equal(t, models.OEE{Availability: 100, Performance: 70, Quality: 100, OEE: 70}, oee)

	empty := f.machine(t, acme, "Idle", models.StatusIdle)
	oee, err = f.agg.OEE(f.ctx, acme, empty)
	require.NoError(t, err)
	assert.Zero(t, oee.Availability)
	assert.Zero(t, oee.OEE)
	assert.Equal(t, 100.0, oee.Quality)
}

func TestReliability(t *testing.T) {
	f := newFixture(t)
	acme := f.company(t, "acme")
	m := f.machine(t, acme, "Press", models.StatusRunning)

	for i := 0; i < 3; i++ {
		f.alert(t, acme, m, models.SeverityWarning, testNow)
	}
	for i := 0; i < 4; i++ {
		f.task(t, acme, m, models.TaskCompleted)
	}
	f.task(t, acme, m, models.TaskOpen)

	rel, err := f.agg.Reliability(f.ctx, acme, m)
	require.NoError(t, err)
	assert.Equal(t, models.Reliability{MTBFHours: 8, MTTRHours: 0.5}, rel)
}

func TestAnalytics(t *testing.T) {
	f := newFixture(t)
	acme := f.company(t, "acme")
	m := f.machine(t, acme, "Mill", models.StatusRunning)
	sn := f.sensor(t, m, "load")

	for i := 0; i < 10; i++ {
		f.reading(t, sn, 50, time.Date(2026, 10, 14, 6, i, 0, 0, time.UTC))
	}
	f.reading(t, sn, 95, time.Date(2026, 10, 14, 15, 0, 0, 0, time.UTC))
	f.alert(t, acme, m, models.SeverityCritical, testNow)
	f.alert(t, acme, m, models.SeverityCritical, testNow)
	f.alert(t, acme, m, models.SeverityInfo, testNow)
	f.task(t, acme, m, models.TaskCompleted)

	res, err := f.agg.Analytics(f.ctx, acme, m)
	require.NoError(t, err)
	assert.Equal(t, 11, res.TotalReadings)
	assert.Equal(t, 18.2, res.FailureRate)
	assert.Equal(t, 1, res.MaintenanceFrequency)
	require.NotNil(t, res.PeakHour)
	assert.Equal(t, "15", *res.PeakHour)
	assert.Equal(t, 95.0, res.PeakEfficiency)
}

func TestAnalytics_NoReadings(t *testing.T) {
	f := newFixture(t)
	acme := f.company(t, "acme")
	m := f.machine(t, acme, "Mill", models.StatusRunning)
	f.alert(t, acme, m, models.SeverityCritical, testNow)

	res, err := f.agg.Analytics(f.ctx, acme, m)
	require.NoError(t, err)
	assert.Zero(t, res.TotalReadings)
	assert.Nil(t, res.PeakHour)
	assert.Equal(t, 100.0, res.FailureRate)
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	acme := f.company(t, "acme")
	a := f.machine(t, acme, "A", models.StatusRunning)
	b := f.machine(t, acme, "B", models.StatusDown)
	f.machine(t, acme, "C", models.StatusIdle)

	f.reading(t, f.sensor(t, a, "load"), 90, testNow)
	f.reading(t, f.sensor(t, b, "load"), 60, testNow)
	f.alert(t, acme, a, models.SeverityCritical, testNow)
	f.alert(t, acme, b, models.SeverityWarning, testNow)
	f.task(t, acme, a, models.TaskOpen)
	f.task(t, acme, b, models.TaskCompleted)

	sum, err := f.agg.Summary(f.ctx, acme)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.TotalMachines)
	assert.Equal(t, 75.0, sum.AvgEfficiency)
	assert.Equal(t, 2, sum.ActiveAlerts)
	assert.Equal(t, 1, sum.CriticalAlerts)
	assert.Equal(t, 1, sum.OpenMaintenance)
	assert.Equal(t, map[string]int{"running": 1, "down": 1, "idle": 1}, sum.StatusCounts)
}

func TestSensorAnomalies(t *testing.T) {
	f := newFixture(t)
	acme := f.company(t, "acme")
	m := f.machine(t, acme, "Pump", models.StatusRunning)
	spiky := f.sensor(t, m, "vibration")
	hot := f.sensor(t, m, "temp")
	f.sensor(t, m, "silent")

	start := testNow.Add(-2 * time.Hour)
	for i := 0; i < WindowSize; i++ {
		v := 49.0
		if i%2 == 0 {
			v = 51
		}
		f.reading(t, spiky, v, start.Add(time.Duration(i)*time.Minute))
		f.reading(t, hot, 95, start.Add(time.Duration(i)*time.Minute))
	}
	f.reading(t, spiky, 100, testNow)
	f.reading(t, hot, 95, testNow)

	res, err := f.agg.SensorAnomalies(f.ctx, acme, m)
	require.NoError(t, err)
	require.Len(t, res, 2, "sensors without readings are skipped")

	assert.Equal(t, "vibration", res[0].Name)
	assert.Equal(t, WindowSize, res[0].WindowCount)
	assert.Equal(t, 100.0, res[0].Latest)
	assert.True(t, res[0].AnomalyDetected)
	assert.Greater(t, res[0].ZScore, ZScoreThreshold)

	assert.Equal(t, "temp", res[1].Name)
	assert.Zero(t, res[1].ZScore)
	assert.True(t, res[1].OutOfThreshold)
	assert.True(t, res[1].AnomalyDetected)
}

func TestSensorSeries_CapsSensors(t *testing.T) {
	f := newFixture(t)
	acme := f.company(t, "acme")
	m := f.machine(t, acme, "Robot", models.StatusRunning)

	for i := 0; i < OverlaySeries+1; i++ {
		sn := f.sensor(t, m, "axis")
		f.reading(t, sn, float64(i), testNow.Add(-time.Hour))
		f.reading(t, sn, float64(i+1), testNow)
	}

	series, err := f.agg.SensorSeries(f.ctx, acme, m, 7)
	require.NoError(t, err)
	assert.Len(t, series, OverlaySeries)
	for _, s := range series {
		require.Len(t, s.Points, 2)
		assert.Less(t, s.Points[0].Timestamp, s.Points[1].Timestamp)
	}
}

func TestMachineEfficiencies(t *testing.T) {
	f := newFixture(t)
	acme := f.company(t, "acme")
	a := f.machine(t, acme, "A", models.StatusRunning)
	b := f.machine(t, acme, "B", models.StatusRunning)
	f.reading(t, f.sensor(t, a, "load"), 88.88, testNow)
	f.reading(t, f.sensor(t, b, "load"), 42.04, testNow)

	effs, err := f.agg.MachineEfficiencies(f.ctx, acme, 7)
	require.NoError(t, err)
	require.Len(t, effs, 2)
	assert.Equal(t, models.MachineEfficiency{MachineID: b, Name: "B", Efficiency: 42}, effs[0])
	assert.Equal(t, models.MachineEfficiency{MachineID: a, Name: "A", Efficiency: 88.9}, effs[1])
}

func TestTenantIsolation(t *testing.T) {
	f := newFixture(t)
	acme := f.company(t, "acme")
	globex := f.company(t, "globex")

	mine := f.machine(t, acme, "Mine", models.StatusRunning)
	theirs := f.machine(t, globex, "Theirs", models.StatusDown)
	f.reading(t, f.sensor(t, mine, "load"), 70, testNow)
	f.reading(t, f.sensor(t, theirs, "load"), 10, testNow)
	f.alert(t, globex, theirs, models.SeverityCritical, testNow)

	_, err := f.agg.OEE(f.ctx, acme, theirs)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.agg.Reliability(f.ctx, acme, theirs)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.agg.Analytics(f.ctx, acme, theirs)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.agg.SensorStatistics(f.ctx, acme, theirs)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.agg.SensorSeries(f.ctx, acme, theirs, 7)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.agg.SensorAnomalies(f.ctx, acme, theirs)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.agg.EfficiencyTrend(f.ctx, acme, &theirs, 7)
	assert.ErrorIs(t, err, ErrNotFound)

	dist, err := f.agg.StatusDistribution(f.ctx, acme)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"running": 1}, dist)

	trend, err := f.agg.EfficiencyTrend(f.ctx, acme, nil, 7)
	require.NoError(t, err)
	require.Len(t, trend, 1)
	assert.Equal(t, 70.0, trend[0].Avg)

	freq, err := f.agg.AlertFrequency(f.ctx, acme, 7)
	require.NoError(t, err)
	assert.Empty(t, freq)

	locs, err := f.agg.LocationStatus(f.ctx, acme)
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, models.StatusRunning, locs[0].Status)
}

func TestSensorStatistics(t *testing.T) {
	f := newFixture(t)
	acme := f.company(t, "acme")
	m := f.machine(t, acme, "Kiln", models.StatusRunning)
	temp := f.sensor(t, m, "temp")
	f.sensor(t, m, "unused")

	f.reading(t, temp, 100.123, testNow.Add(-time.Minute))
	f.reading(t, temp, 200.456, testNow)

	stats, err := f.agg.SensorStatistics(f.ctx, acme, m)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 150.29, stats[0].Avg)
	assert.Equal(t, 100.12, stats[0].Min)
	assert.Equal(t, 200.46, stats[0].Max)
	assert.Equal(t, 2, stats[0].Count)
	assert.Zero(t, stats[1].Count)
}

func BenchmarkSlidingWindow_Add(b *testing.B) {
	sw := NewSlidingWindow(WindowSize)
	for i := 0; i < b.N; i++ {
		sw.Add(float64(i % 100))
	}
}

func BenchmarkDetectAnomaly(b *testing.B) {
	values := make([]float64, WindowSize+1)
	for i := range values {
		values[i] = float64(40 + i%20)
	}
	sn := models.Sensor{ID: 1, Name: "load", MinThreshold: 10, MaxThreshold: 90}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		detectAnomaly(sn, values)
	}
}
