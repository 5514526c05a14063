package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/apex/log"
	"golang.org/x/crypto/bcrypt"

	"machinery-monitor/internal/models"
	"machinery-monitor/internal/store"
)

const (
	readingInterval = 15 * time.Minute
	maxReadings     = 50000
	// доля показаний в нормальном диапазоне
	normalShare = 0.8
	ackShare    = 0.6
)

type sensorProfile struct {
	name                 string
	unit                 string
	min, max             float64
	normalMin, normalMax float64
}

var (
	machineTypes = []string{"CNC Machine", "Lathe", "Milling Machine", "Robot Arm", "Conveyor", "Press", "Welder"}
	locations    = []string{"Production Line A", "Production Line B", "Assembly Floor", "Quality Control", "Warehouse"}
	statuses     = []models.MachineStatus{models.StatusRunning, models.StatusIdle, models.StatusMaintenance, models.StatusDown}

	sensorProfiles = []sensorProfile{
		{name: "Temperature", unit: "°C", min: 20, max: 100, normalMin: 40, normalMax: 80},
		{name: "Pressure", unit: "PSI", min: 0, max: 200, normalMin: 50, normalMax: 150},
		{name: "Vibration", unit: "mm/s", min: 0, max: 50, normalMin: 2, normalMax: 15},
		{name: "Speed", unit: "RPM", min: 0, max: 3000, normalMin: 500, normalMax: 2500},
		{name: "Efficiency", unit: "%", min: 0, max: 100, normalMin: 70, normalMax: 95},
		{name: "Power Consumption", unit: "kW", min: 0, max: 100, normalMin: 10, normalMax: 80},
	}

	alertMessages = []string{
		"Temperature exceeded threshold",
		"Vibration level high",
		"Efficiency dropped below normal",
		"Maintenance required",
		"Sensor reading abnormal",
		"Performance degradation detected",
	}
	taskDescriptions = []string{
		"Routine inspection",
		"Oil change",
		"Belt replacement",
		"Calibration needed",
		"Component replacement",
		"System update",
		"Preventive maintenance",
	}
	technicians = []string{"John Doe", "Jane Smith", "Mike Johnson", "Sarah Williams", ""}
	severities  = []models.Severity{models.SeverityInfo, models.SeverityWarning, models.SeverityCritical}
	priorities  = []models.Priority{models.PriorityLow, models.PriorityMedium, models.PriorityHigh}
	taskStates  = []models.TaskStatus{models.TaskOpen, models.TaskInProgress, models.TaskCompleted}
)

// Options параметры генерации демо-данных
type Options struct {
	Company  string
	Login    string
	Password string
	Machines int
	Days     int
}

// Stats число созданных записей
type Stats struct {
	CompanyID int64
	Machines  int
	Sensors   int
	Readings  int
	Alerts    int
	Tasks     int
}

// Generator заполняет хранилище демо-данными одного тенанта
type Generator struct {
	store *store.Store
	rnd   *rand.Rand
	now   time.Time
}

// NewGenerator создает генератор; seed делает данные воспроизводимыми
func NewGenerator(st *store.Store, seed int64, now time.Time) *Generator {
	return &Generator{store: st, rnd: rand.New(rand.NewSource(seed)), now: now}
}

// Run создает компанию (если ее нет), администратора, станки, датчики,
// показания каждые 15 минут, алерты и задачи обслуживания
func (g *Generator) Run(ctx context.Context, opts Options) (Stats, error) {
	var stats Stats

	companyID, err := g.company(ctx, opts)
	if err != nil {
		return stats, err
	}
	stats.CompanyID = companyID

	machineIDs := make([]int64, 0, opts.Machines)
	sensorsByMachine := make(map[int64][]sensorRecord, opts.Machines)

	for i := 0; i < opts.Machines; i++ {
		typ := pick(g.rnd, machineTypes)
		id, err := g.store.CreateMachine(ctx, models.Machine{
			CompanyID:     companyID,
			Name:          fmt.Sprintf("%s %d", typ, i+1),
			Type:          typ,
			Location:      pick(g.rnd, locations),
			Status:        pick(g.rnd, statuses),
			RatedCapacity: 50 + g.rnd.Intn(151),
		})
		if err != nil {
			return stats, err
		}
		machineIDs = append(machineIDs, id)

		n := 2 + g.rnd.Intn(3)
		for _, idx := range g.rnd.Perm(len(sensorProfiles))[:n] {
			p := sensorProfiles[idx]
			sid, err := g.store.CreateSensor(ctx, models.Sensor{
				MachineID:    id,
				Name:         p.name,
				Unit:         p.unit,
				MinThreshold: p.min,
				MaxThreshold: p.max,
			})
			if err != nil {
				return stats, err
			}
			sensorsByMachine[id] = append(sensorsByMachine[id], sensorRecord{id: sid, profile: p})
			stats.Sensors++
		}
	}
	stats.Machines = len(machineIDs)
	log.WithFields(log.Fields{"machines": stats.Machines, "sensors": stats.Sensors}).Info("machines created")

	if stats.Readings, err = g.readings(ctx, machineIDs, sensorsByMachine, opts.Days); err != nil {
		return stats, err
	}
	log.WithField("readings", stats.Readings).Info("sensor readings generated")

	if stats.Alerts, err = g.alerts(ctx, companyID, machineIDs, opts); err != nil {
		return stats, err
	}
	if stats.Tasks, err = g.tasks(ctx, companyID, machineIDs); err != nil {
		return stats, err
	}

	return stats, nil
}

type sensorRecord struct {
	id      int64
	profile sensorProfile
}

func (g *Generator) company(ctx context.Context, opts Options) (int64, error) {
	c, err := g.store.CompanyByName(ctx, opts.Company)
	if err == nil {
		log.WithField("company", opts.Company).Info("company exists, appending demo data")
		return c.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}

	id, err := g.store.CreateCompany(ctx, opts.Company, g.now)
	if err != nil {
		return 0, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}
	if _, err := g.store.CreateUser(ctx, models.User{
		CompanyID:    id,
		LoginID:      opts.Login,
		Name:         "Administrator",
		PasswordHash: string(hash),
	}); err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{"company": opts.Company, "login_id": opts.Login}).Info("company and admin user created")
	return id, nil
}

func (g *Generator) readings(ctx context.Context, machineIDs []int64, sensors map[int64][]sensorRecord, days int) (int, error) {
	start := g.now.AddDate(0, 0, -days)
	total := 0

	for _, mid := range machineIDs {
		for at := start; !at.After(g.now); at = at.Add(readingInterval) {
			for _, sn := range sensors[mid] {
				v := sql.NullFloat64{Float64: g.value(sn.profile), Valid: true}
				if _, err := g.store.InsertReading(ctx, sn.id, v, at); err != nil {
					return total, err
				}
				total++
			}
			if total > maxReadings {
				return total, nil
			}
		}
	}
	return total, nil
}

// value 80% показаний в нормальном диапазоне, остальные за его пределами
func (g *Generator) value(p sensorProfile) float64 {
	var v float64
	switch {
	case g.rnd.Float64() < normalShare:
		v = uniform(g.rnd, p.normalMin, p.normalMax)
	case g.rnd.Float64() < 0.5:
		v = uniform(g.rnd, p.normalMax, p.max*0.95)
	default:
		v = uniform(g.rnd, p.min*1.05, p.normalMin)
	}

	v += uniform(g.rnd, -v*0.05, v*0.05)
	v = math.Round(v*100) / 100
	return math.Max(p.min, math.Min(p.max, v))
}

func (g *Generator) alerts(ctx context.Context, companyID int64, machineIDs []int64, opts Options) (int, error) {
	count := 0
	for _, mid := range machineIDs[:min(3, len(machineIDs))] {
		n := 2 + g.rnd.Intn(4)
		for i := 0; i < n; i++ {
			raised := g.now.AddDate(0, 0, -g.rnd.Intn(opts.Days+1))
			id, err := g.store.CreateAlert(ctx, models.Alert{
				CompanyID: companyID,
				MachineID: mid,
				Severity:  pick(g.rnd, severities),
				Message:   pick(g.rnd, alertMessages),
				RaisedAt:  raised,
			})
			if err != nil {
				return count, err
			}
			count++

			if g.rnd.Float64() < ackShare {
				if _, err := g.store.AcknowledgeAlert(ctx, companyID, id, models.AlertAck{
					By: opts.Login,
					At: raised.Add(time.Hour),
				}); err != nil {
					return count, err
				}
			}
		}
	}
	return count, nil
}

func (g *Generator) tasks(ctx context.Context, companyID int64, machineIDs []int64) (int, error) {
	count := 0
	for _, mid := range machineIDs {
		n := 1 + g.rnd.Intn(3)
		for i := 0; i < n; i++ {
			if _, err := g.store.CreateTask(ctx, models.MaintenanceTask{
				CompanyID:     companyID,
				MachineID:     mid,
				Description:   pick(g.rnd, taskDescriptions),
				Priority:      pick(g.rnd, priorities),
				Technician:    pick(g.rnd, technicians),
				ScheduledDate: g.now.AddDate(0, 0, g.rnd.Intn(41)-10).Format("2006-01-02"),
				Status:        pick(g.rnd, taskStates),
				CreatedAt:     g.now,
			}); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

func pick[T any](rnd *rand.Rand, items []T) T {
	return items[rnd.Intn(len(items))]
}

func uniform(rnd *rand.Rand, lo, hi float64) float64 {
	return lo + rnd.Float64()*(hi-lo)
}
