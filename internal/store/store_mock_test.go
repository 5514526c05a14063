package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machinery-monitor/internal/models"
)

var errBoom = errors.New("boom")

func newMockStore(t *testing.T, driver string) (*Store, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := New(db, driver)
	require.NoError(t, err)
	return s, mock
}

func TestNew_UnsupportedDriver(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = New(db, "oracle")
	assert.ErrorIs(t, err, ErrUnsupportedDriver)
}

func TestMachine_QueryError(t *testing.T) {
	s, mock := newMockStore(t, "sqlite3")

	mock.ExpectQuery("SELECT .* FROM machines WHERE id = \\? AND company_id = \\?").
		WithArgs(int64(7), int64(1)).
		WillReturnError(errBoom)

	_, err := s.Machine(context.Background(), 1, 7)
	assert.ErrorIs(t, err, errFailedToQuery)
	assert.ErrorIs(t, err, errBoom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitSchema_Error(t *testing.T) {
	s, mock := newMockStore(t, "mysql")

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS companies").WillReturnError(errBoom)

	err := s.InitSchema(context.Background())
	assert.ErrorIs(t, err, errFailedToInit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDailyReadingStats_MySQLDialect(t *testing.T) {
	s, mock := newMockStore(t, "mysql")

	rows := sqlmock.NewRows([]string{"d", "avg", "min", "max", "count"}).
		AddRow("2026-10-14", 55.5, 40.0, 71.0, 12)

	mock.ExpectQuery(regexp.QuoteMeta("DATE_FORMAT(r.recorded_at, '%Y-%m-%d') AS d")).
		WithArgs(int64(1), "2026-10-08", int64(3), 8).
		WillReturnRows(rows)

	stats, err := s.DailyReadingStats(context.Background(), 1, 3, "2026-10-08", 8)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, models.DailyEfficiency{Date: "2026-10-14", Avg: 55.5, Min: 40, Max: 71, SampleCount: 12}, stats[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeakHour_MySQLDialect(t *testing.T) {
	s, mock := newMockStore(t, "mysql")

	mock.ExpectQuery(regexp.QuoteMeta("DATE_FORMAT(r.recorded_at, '%H') AS h")).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"h", "mean"}).AddRow("09", 81.25))

	peak, err := s.PeakHour(context.Background(), 1, 2)
	require.NoError(t, err)
	require.NotNil(t, peak)
	assert.Equal(t, "09", peak.Hour)
	assert.InDelta(t, 81.25, peak.Mean, 0.001)
}

func TestStatusCounts_ScanError(t *testing.T) {
	s, mock := newMockStore(t, "sqlite3")

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"st", "n"}).AddRow("running", "not-a-number"))

	_, err := s.StatusCounts(context.Background(), 1)
	assert.ErrorIs(t, err, errFailedToScan)
}

func TestUpdateTask_UpdateError(t *testing.T) {
	s, mock := newMockStore(t, "sqlite3")

	cols := []string{"id", "company_id", "machine_id", "name", "description", "priority",
		"technician", "scheduled_date", "status", "created_at", "completed_at"}
	mock.ExpectQuery("FROM maintenance_tasks t").
		WithArgs(int64(5), int64(1)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(5, 1, 2, "A", "oil", "low", nil, nil, "open", testNow, nil))
	mock.ExpectExec("UPDATE maintenance_tasks").WillReturnError(errBoom)

	next := models.TaskInProgress
	_, err := s.UpdateTask(context.Background(), 1, 5, models.TaskUpdate{Status: &next}, testNow)
	assert.ErrorIs(t, err, errFailedToUpdate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTask_StaleStatus(t *testing.T) {
	s, mock := newMockStore(t, "sqlite3")

	cols := []string{"id", "company_id", "machine_id", "name", "description", "priority",
		"technician", "scheduled_date", "status", "created_at", "completed_at"}
	mock.ExpectQuery("FROM maintenance_tasks t").
		WithArgs(int64(5), int64(1)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(5, 1, 2, "A", "oil", "low", nil, nil, "open", testNow, nil))
	// The row was completed by another request after the read: the guarded update matches nothing.
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ? AND company_id = ? AND status = ?")).
		WithArgs("in_progress", nil, nil, int64(5), int64(1), "open").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM maintenance_tasks t").
		WithArgs(int64(5), int64(1)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(5, 1, 2, "A", "oil", "low", nil, nil, "completed", testNow, testNow))

	next := models.TaskInProgress
	_, err := s.UpdateTask(context.Background(), 1, 5, models.TaskUpdate{Status: &next}, testNow)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateTask_GuardedWrite(t *testing.T) {
	s, mock := newMockStore(t, "sqlite3")

	cols := []string{"id", "company_id", "machine_id", "name", "description", "priority",
		"technician", "scheduled_date", "status", "created_at", "completed_at"}
	mock.ExpectQuery("FROM maintenance_tasks t").
		WithArgs(int64(5), int64(1)).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(5, 1, 2, "A", "oil", "low", nil, nil, "in_progress", testNow, nil))
	mock.ExpectExec(regexp.QuoteMeta("WHERE id = ? AND company_id = ? AND status = ?")).
		WithArgs("completed", nil, sqlmock.AnyArg(), int64(5), int64(1), "in_progress").
		WillReturnResult(sqlmock.NewResult(0, 1))

	next := models.TaskCompleted
	task, err := s.UpdateTask(context.Background(), 1, 5, models.TaskUpdate{Status: &next}, testNow)
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, task.Status)
	require.NotNil(t, task.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountAlerts_QueryError(t *testing.T) {
	s, mock := newMockStore(t, "sqlite3")

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM alerts").WillReturnError(errBoom)

	_, err := s.CountAlerts(context.Background(), 1, 0, models.SeverityCritical, true)
	assert.ErrorIs(t, err, errFailedToQuery)
}
