package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machinery-monitor/internal/models"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), "sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedCompany(t *testing.T, s *Store, name string) int64 {
	t.Helper()

	id, err := s.CreateCompany(context.Background(), name, testNow)
	require.NoError(t, err)
	return id
}

func seedMachine(t *testing.T, s *Store, companyID int64, name string, status models.MachineStatus) int64 {
	t.Helper()

	id, err := s.CreateMachine(context.Background(), models.Machine{
		CompanyID: companyID,
		Name:      name,
		Type:      "CNC",
		Location:  "Hall A",
		Status:    status,
	})
	require.NoError(t, err)
	return id
}

func seedSensor(t *testing.T, s *Store, machineID int64, name string) int64 {
	t.Helper()

	id, err := s.CreateSensor(context.Background(), models.Sensor{
		MachineID:    machineID,
		Name:         name,
		Unit:         "%",
		MinThreshold: 10,
		MaxThreshold: 90,
	})
	require.NoError(t, err)
	return id
}

func seedReading(t *testing.T, s *Store, sensorID int64, value float64, at time.Time) {
	t.Helper()

	_, err := s.InsertReading(context.Background(), sensorID, sql.NullFloat64{Float64: value, Valid: true}, at)
	require.NoError(t, err)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "postgres", "whatever")
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestMachine_TenantScoped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acme := seedCompany(t, s, "acme")
	globex := seedCompany(t, s, "globex")
	id := seedMachine(t, s, acme, "Lathe-1", models.StatusRunning)

	m, err := s.Machine(ctx, acme, id)
	require.NoError(t, err)
	assert.Equal(t, "Lathe-1", m.Name)
	assert.Equal(t, models.StatusRunning, m.Status)

	_, err = s.Machine(ctx, globex, id)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Machine(ctx, acme, id+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMachines_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acme := seedCompany(t, s, "acme")
	seedMachine(t, s, acme, "Lathe-1", models.StatusRunning)
	seedMachine(t, s, acme, "Press-2", models.StatusDown)
	seedMachine(t, s, acme, "Lathe-3", models.StatusDown)

	all, err := s.Machines(ctx, acme, models.MachineFilter{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	down, err := s.Machines(ctx, acme, models.MachineFilter{Status: models.StatusDown, Limit: 100})
	require.NoError(t, err)
	assert.Len(t, down, 2)

	lathes, err := s.Machines(ctx, acme, models.MachineFilter{Query: "lathe", Limit: 100})
	require.NoError(t, err)
	assert.Len(t, lathes, 2)

	limited, err := s.Machines(ctx, acme, models.MachineFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestUpdateMachine(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acme := seedCompany(t, s, "acme")
	globex := seedCompany(t, s, "globex")
	id := seedMachine(t, s, acme, "Lathe-1", models.StatusRunning)

	status := models.StatusMaintenance
	location := "Hall B"
	m, err := s.UpdateMachine(ctx, acme, id, models.MachineUpdate{Status: &status, Location: &location})
	require.NoError(t, err)
	assert.Equal(t, models.StatusMaintenance, m.Status)
	assert.Equal(t, "Hall B", m.Location)

	reread, err := s.Machine(ctx, acme, id)
	require.NoError(t, err)
	assert.Equal(t, m, reread)

	_, err = s.UpdateMachine(ctx, globex, id, models.MachineUpdate{Status: &status})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatusCounts_UnknownBucket(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acme := seedCompany(t, s, "acme")
	seedMachine(t, s, acme, "A", models.StatusRunning)
	seedMachine(t, s, acme, "B", models.StatusRunning)
	seedMachine(t, s, acme, "C", "")

	counts, err := s.StatusCounts(ctx, acme)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"running": 2, "unknown": 1}, counts)

	total := 0
	for _, n := range counts {
		total += n
	}
	assert.Equal(t, 3, total)
}

func TestDailyReadingStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acme := seedCompany(t, s, "acme")
	m1 := seedMachine(t, s, acme, "A", models.StatusRunning)
	m2 := seedMachine(t, s, acme, "B", models.StatusRunning)
	s1 := seedSensor(t, s, m1, "load")
	s2 := seedSensor(t, s, m2, "load")

	day1 := time.Date(2026, 10, 13, 8, 0, 0, 0, time.UTC)
	day3 := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	seedReading(t, s, s1, 60, day1)
	seedReading(t, s, s1, 80, day1.Add(time.Hour))
	seedReading(t, s, s1, 90, day3)
	seedReading(t, s, s2, 10, day3)
	seedReading(t, s, s1, 5, time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC))

	// NULL показание не участвует в агрегатах
	_, err := s.InsertReading(ctx, s1, sql.NullFloat64{}, day3)
	require.NoError(t, err)

	stats, err := s.DailyReadingStats(ctx, acme, m1, "2026-10-12", 10)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "2026-10-13", stats[0].Date)
	assert.InDelta(t, 70, stats[0].Avg, 0.001)
	assert.InDelta(t, 60, stats[0].Min, 0.001)
	assert.InDelta(t, 80, stats[0].Max, 0.001)
	assert.Equal(t, 2, stats[0].SampleCount)

	assert.Equal(t, "2026-10-15", stats[1].Date)
	assert.Equal(t, 1, stats[1].SampleCount)

	all, err := s.DailyReadingStats(ctx, acme, 0, "2026-10-12", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.InDelta(t, 50, all[1].Avg, 0.001)
	assert.Equal(t, 2, all[1].SampleCount)
}

func TestReadingMean_EmptyMachine(t *testing.T) {
	s := newTestStore(t)

	acme := seedCompany(t, s, "acme")
	m := seedMachine(t, s, acme, "A", models.StatusIdle)

	mean, n, err := s.ReadingMean(context.Background(), acme, m)
	require.NoError(t, err)
	assert.Zero(t, mean)
	assert.Zero(t, n)
}

func TestPeakHour(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acme := seedCompany(t, s, "acme")
	m := seedMachine(t, s, acme, "A", models.StatusRunning)
	sn := seedSensor(t, s, m, "load")

	peak, err := s.PeakHour(ctx, acme, m)
	require.NoError(t, err)
	assert.Nil(t, peak)

	seedReading(t, s, sn, 70, time.Date(2026, 10, 14, 14, 0, 0, 0, time.UTC))
	seedReading(t, s, sn, 70, time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC))
	seedReading(t, s, sn, 40, time.Date(2026, 10, 14, 3, 0, 0, 0, time.UTC))

	peak, err = s.PeakHour(ctx, acme, m)
	require.NoError(t, err)
	require.NotNil(t, peak)
	assert.Equal(t, "08", peak.Hour)
	assert.InDelta(t, 70, peak.Mean, 0.001)
}

func TestAlertFrequency(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acme := seedCompany(t, s, "acme")
	globex := seedCompany(t, s, "globex")
	m := seedMachine(t, s, acme, "A", models.StatusRunning)
	other := seedMachine(t, s, globex, "X", models.StatusRunning)

	day := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	for _, sev := range []models.Severity{models.SeverityCritical, models.SeverityCritical, models.SeverityWarning, models.SeverityInfo} {
		_, err := s.CreateAlert(ctx, models.Alert{CompanyID: acme, MachineID: m, Severity: sev, Message: "x", RaisedAt: day})
		require.NoError(t, err)
	}
	_, err := s.CreateAlert(ctx, models.Alert{CompanyID: globex, MachineID: other, Severity: models.SeverityCritical, RaisedAt: day})
	require.NoError(t, err)

	freq, err := s.AlertFrequency(ctx, acme, "2026-10-01", 30)
	require.NoError(t, err)
	require.Len(t, freq, 1)
	assert.Equal(t, models.AlertFrequency{Date: "2026-10-14", Critical: 2, Warning: 1, Info: 1, Total: 4}, freq[0])

	n, err := s.CountAlerts(ctx, acme, m, models.SeverityCritical, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestAcknowledgeAlert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acme := seedCompany(t, s, "acme")
	globex := seedCompany(t, s, "globex")
	m := seedMachine(t, s, acme, "A", models.StatusRunning)

	id, err := s.CreateAlert(ctx, models.Alert{CompanyID: acme, MachineID: m, Severity: models.SeverityWarning, Message: "hot", RaisedAt: testNow})
	require.NoError(t, err)

	_, err = s.AcknowledgeAlert(ctx, globex, id, models.AlertAck{By: "eve", At: testNow})
	assert.ErrorIs(t, err, ErrNotFound)

	a, err := s.AcknowledgeAlert(ctx, acme, id, models.AlertAck{By: "bob", Comment: "checked", At: testNow})
	require.NoError(t, err)
	assert.True(t, a.Acknowledged)
	assert.Equal(t, "bob", a.AcknowledgedBy)
	assert.Equal(t, "A", a.MachineName)
	require.NotNil(t, a.AcknowledgedAt)
	assert.True(t, testNow.Equal(*a.AcknowledgedAt))

	active, err := s.CountAlerts(ctx, acme, 0, "", true)
	require.NoError(t, err)
	assert.Zero(t, active)

	acked := true
	list, err := s.Alerts(ctx, acme, models.AlertFilter{Acknowledged: &acked, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpdateTask_Transitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acme := seedCompany(t, s, "acme")
	m := seedMachine(t, s, acme, "A", models.StatusRunning)

	id, err := s.CreateTask(ctx, models.MaintenanceTask{
		CompanyID:   acme,
		MachineID:   m,
		Description: "replace belt",
		Priority:    models.PriorityHigh,
		Status:      models.TaskOpen,
		CreatedAt:   testNow,
	})
	require.NoError(t, err)

	completed := models.TaskCompleted
	_, err = s.UpdateTask(ctx, acme, id, models.TaskUpdate{Status: &completed}, testNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	inProgress := models.TaskInProgress
	task, err := s.UpdateTask(ctx, acme, id, models.TaskUpdate{Status: &inProgress}, testNow)
	require.NoError(t, err)
	assert.Nil(t, task.CompletedAt)

	done := testNow.Add(time.Hour)
	task, err = s.UpdateTask(ctx, acme, id, models.TaskUpdate{Status: &completed}, done)
	require.NoError(t, err)
	require.NotNil(t, task.CompletedAt)
	assert.True(t, done.Equal(*task.CompletedAt))

	open := models.TaskOpen
	_, err = s.UpdateTask(ctx, acme, id, models.TaskUpdate{Status: &open}, testNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	n, err := s.CountTasks(ctx, acme, m, models.TaskCompleted)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	openCount, err := s.CountOpenTasks(ctx, acme)
	require.NoError(t, err)
	assert.Zero(t, openCount)
}

func TestRecentValues_Chronological(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acme := seedCompany(t, s, "acme")
	globex := seedCompany(t, s, "globex")
	m := seedMachine(t, s, acme, "A", models.StatusRunning)
	sn := seedSensor(t, s, m, "temp")

	for i := 0; i < 5; i++ {
		seedReading(t, s, sn, float64(i), testNow.Add(time.Duration(i)*time.Minute))
	}

	values, err := s.RecentValues(ctx, acme, sn, 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 3, 4}, values)

	foreign, err := s.RecentValues(ctx, globex, sn, 3)
	require.NoError(t, err)
	assert.Empty(t, foreign)

	points, err := s.ReadingsSince(ctx, acme, sn, "2026-10-15", 2)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "2026-10-15T12:03:00Z", points[0].Timestamp)
	assert.Equal(t, 4.0, points[1].Value)
}

func TestUserByLogin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acme := seedCompany(t, s, "acme")
	globex := seedCompany(t, s, "globex")

	_, err := s.CreateUser(ctx, models.User{CompanyID: acme, LoginID: "admin", Name: "Admin", PasswordHash: "hash"})
	require.NoError(t, err)

	u, err := s.UserByLogin(ctx, acme, "admin")
	require.NoError(t, err)
	assert.Equal(t, "hash", u.PasswordHash)

	_, err = s.UserByLogin(ctx, globex, "admin")
	assert.ErrorIs(t, err, ErrNotFound)

	c, err := s.CompanyByName(ctx, "globex")
	require.NoError(t, err)
	assert.Equal(t, globex, c.ID)
}

func TestMachineEfficiencies_Ordering(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	acme := seedCompany(t, s, "acme")
	fast := seedMachine(t, s, acme, "Fast", models.StatusRunning)
	slow := seedMachine(t, s, acme, "Slow", models.StatusRunning)
	seedMachine(t, s, acme, "Idle", models.StatusIdle)

	seedReading(t, s, seedSensor(t, s, fast, "load"), 90, testNow)
	seedReading(t, s, seedSensor(t, s, slow, "load"), 40, testNow)

	effs, err := s.MachineEfficiencies(ctx, acme, "2026-10-08", 10)
	require.NoError(t, err)
	require.Len(t, effs, 3)
	assert.Equal(t, "Idle", effs[0].Name)
	assert.Zero(t, effs[0].Efficiency)
	assert.Equal(t, "Slow", effs[1].Name)
	assert.Equal(t, "Fast", effs[2].Name)

	locs, err := s.LocationStatusCounts(ctx, acme)
	require.NoError(t, err)
	require.Len(t, locs, 2)
	assert.Equal(t, models.LocationStatusCount{Location: "Hall A", Status: models.StatusIdle, Count: 1}, locs[0])
	assert.Equal(t, models.LocationStatusCount{Location: "Hall A", Status: models.StatusRunning, Count: 2}, locs[1])
}
