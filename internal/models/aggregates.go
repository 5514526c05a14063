package models

// DailyEfficiency агрегат показаний за один календарный день
type DailyEfficiency struct {
	Date        string  `json:"date"`
	Avg         float64 `json:"avg"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	SampleCount int     `json:"sample_count"`
}

// OEE общая эффективность оборудования
type OEE struct {
	Availability float64 `json:"availability"`
	Performance  float64 `json:"performance"`
	Quality      float64 `json:"quality"`
	OEE          float64 `json:"oee"`
}

// Reliability эвристики надежности
type Reliability struct {
	MTBFHours float64 `json:"mtbf_hours"`
	MTTRHours float64 `json:"mttr_hours"`
}

// SensorStats статистика датчика за всю историю
type SensorStats struct {
	SensorID int64   `json:"sensor_id"`
	Name     string  `json:"name"`
	Unit     string  `json:"unit"`
	Avg      float64 `json:"avg"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Count    int     `json:"count"`
}

// AlertFrequency число алертов за день по важности
type AlertFrequency struct {
	Date     string `json:"date"`
	Critical int    `json:"critical"`
	Warning  int    `json:"warning"`
	Info     int    `json:"info"`
	Total    int    `json:"total"`
}

// MachineAnalytics сводная аналитика станка
type MachineAnalytics struct {
	TotalReadings        int     `json:"total_readings"`
	FailureRate          float64 `json:"failure_rate"`
	MaintenanceFrequency int     `json:"maintenance_frequency"`
	PeakHour             *string `json:"peak_hour"`
	PeakEfficiency       float64 `json:"peak_efficiency"`
}

// HourlyMean среднее значение за час суток
type HourlyMean struct {
	Hour string
	Mean float64
}

// MachineEfficiency среднее показание станка за окно
type MachineEfficiency struct {
	MachineID  int64   `json:"machine_id"`
	Name       string  `json:"name"`
	Efficiency float64 `json:"efficiency"`
}

// LocationStatusCount число станков по площадке и статусу
type LocationStatusCount struct {
	Location string        `json:"location"`
	Status   MachineStatus `json:"status"`
	Count    int           `json:"count"`
}

// SeriesPoint точка временного ряда
type SeriesPoint struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
}

// SensorSeries ряд показаний одного датчика
type SensorSeries struct {
	SensorID int64         `json:"sensor_id"`
	Name     string        `json:"name"`
	Unit     string        `json:"unit"`
	Points   []SeriesPoint `json:"points"`
}

// SensorAnomaly результат z-score анализа последнего показания
type SensorAnomaly struct {
	SensorID        int64   `json:"sensor_id"`
	Name            string  `json:"name"`
	Latest          float64 `json:"latest"`
	RollingAvg      float64 `json:"rolling_avg"`
	StdDev          float64 `json:"std_dev"`
	ZScore          float64 `json:"z_score"`
	OutOfThreshold  bool    `json:"out_of_threshold"`
	AnomalyDetected bool    `json:"anomaly_detected"`
	WindowCount     int     `json:"window_count"`
}

// Summary KPI тенанта для главной страницы
type Summary struct {
	TotalMachines   int            `json:"total_machines"`
	AvgEfficiency   float64        `json:"avg_efficiency"`
	ActiveAlerts    int            `json:"active_alerts"`
	CriticalAlerts  int            `json:"critical_alerts"`
	OpenMaintenance int            `json:"open_maintenance"`
	StatusCounts    map[string]int `json:"status_counts"`
}

// HealthStatus представляет статус здоровья сервиса
type HealthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
	Uptime   string `json:"uptime"`
	// Счетчики из Redis, если он подключен
	Logins int64 `json:"logins,omitempty"`
	Charts int64 `json:"charts,omitempty"`
}
