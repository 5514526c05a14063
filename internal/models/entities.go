// Package models содержит типизированные записи сущностей и агрегатов
package models

import "time"

// MachineStatus состояние станка
type MachineStatus string

const (
	StatusRunning     MachineStatus = "running"
	StatusIdle        MachineStatus = "idle"
	StatusDown        MachineStatus = "down"
	StatusMaintenance MachineStatus = "maintenance"
	// StatusUnknown корзина для пустого или NULL статуса
	StatusUnknown MachineStatus = "unknown"
)

// MachineStatuses фиксированный порядок статусов (колонки тепловой карты)
var MachineStatuses = []MachineStatus{StatusRunning, StatusIdle, StatusDown, StatusMaintenance}

// Valid проверяет, что статус входит в перечисление
func (s MachineStatus) Valid() bool {
	switch s {
	case StatusRunning, StatusIdle, StatusDown, StatusMaintenance:
		return true
	}
	return false
}

// Severity важность алерта
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Valid проверяет важность алерта
func (s Severity) Valid() bool {
	return s == SeverityInfo || s == SeverityWarning || s == SeverityCritical
}

// Priority приоритет задачи обслуживания
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid проверяет приоритет
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// TaskStatus статус задачи обслуживания
type TaskStatus string

const (
	TaskOpen       TaskStatus = "open"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

// Valid проверяет статус задачи
func (s TaskStatus) Valid() bool {
	return s == TaskOpen || s == TaskInProgress || s == TaskCompleted
}

func (s TaskStatus) rank() int {
	switch s {
	case TaskOpen:
		return 0
	case TaskInProgress:
		return 1
	case TaskCompleted:
		return 2
	}
	return -1
}

// CanTransition разрешает только следующий шаг: open -> in_progress -> completed.
// Повтор текущего статуса допустим, пропуск шага нет.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	if !s.Valid() || !next.Valid() {
		return false
	}
	return next.rank() == s.rank() || next.rank() == s.rank()+1
}

// Company граница тенанта
type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// User оператор компании
type User struct {
	ID           int64  `json:"id"`
	CompanyID    int64  `json:"company_id"`
	LoginID      string `json:"login_id"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
}

// Machine станок
type Machine struct {
	ID            int64         `json:"id"`
	CompanyID     int64         `json:"company_id"`
	Name          string        `json:"name"`
	Type          string        `json:"type"`
	Location      string        `json:"location"`
	Status        MachineStatus `json:"status"`
	RatedCapacity int           `json:"rated_capacity"`
}

// Sensor датчик, принадлежит ровно одному станку
type Sensor struct {
	ID           int64   `json:"id"`
	MachineID    int64   `json:"machine_id"`
	Name         string  `json:"name"`
	Unit         string  `json:"unit"`
	MinThreshold float64 `json:"min_threshold"`
	MaxThreshold float64 `json:"max_threshold"`
}

// SensorReading показание датчика (только добавление)
type SensorReading struct {
	ID        int64     `json:"id"`
	SensorID  int64     `json:"sensor_id"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Alert алерт по станку
type Alert struct {
	ID             int64      `json:"id"`
	CompanyID      int64      `json:"company_id"`
	MachineID      int64      `json:"machine_id"`
	MachineName    string     `json:"machine,omitempty"`
	Severity       Severity   `json:"severity"`
	Message        string     `json:"message"`
	RaisedAt       time.Time  `json:"raised_at"`
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	Comment        string     `json:"comment,omitempty"`
}

// MaintenanceTask задача обслуживания
type MaintenanceTask struct {
	ID            int64      `json:"id"`
	CompanyID     int64      `json:"company_id"`
	MachineID     int64      `json:"machine_id"`
	MachineName   string     `json:"machine,omitempty"`
	Description   string     `json:"description"`
	Priority      Priority   `json:"priority"`
	Technician    string     `json:"technician,omitempty"`
	ScheduledDate string     `json:"scheduled_date,omitempty"`
	Status        TaskStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// MachineFilter фильтры списка станков
type MachineFilter struct {
	Status MachineStatus
	Query  string
	Limit  int
}

// MachineUpdate изменяемые поля станка
type MachineUpdate struct {
	Status   *MachineStatus `json:"status,omitempty"`
	Location *string        `json:"location,omitempty"`
}

// AlertFilter фильтры списка алертов
type AlertFilter struct {
	Acknowledged *bool
	MachineID    int64
	Limit        int
}

// AlertAck данные квитирования алерта
type AlertAck struct {
	By      string
	Comment string
	At      time.Time
}

// TaskFilter фильтры списка задач
type TaskFilter struct {
	Status    TaskStatus
	MachineID int64
	Limit     int
}

// TaskUpdate изменяемые поля задачи
type TaskUpdate struct {
	Status     *TaskStatus `json:"status,omitempty"`
	Technician *string     `json:"technician,omitempty"`
}
