// Package handlers содержит HTTP обработчики Reporting API
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/apex/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"machinery-monitor/internal/analytics"
	"machinery-monitor/internal/cache"
	"machinery-monitor/internal/charts"
	"machinery-monitor/internal/config"
	"machinery-monitor/internal/metrics"
	"machinery-monitor/internal/session"
	"machinery-monitor/internal/store"
)

// errBadRequest некорректные параметры запроса
var errBadRequest = errors.New("bad request")

// Deps зависимости обработчиков. ChartCache и Redis необязательны.
type Deps struct {
	Config     *config.Config
	Store      *store.Store
	Aggregator *analytics.Aggregator
	Renderer   *charts.Renderer
	Sessions   *session.Manager
	ChartCache *cache.FileCache
	Redis      *cache.RedisCache
}

// Handler содержит зависимости для HTTP обработчиков
type Handler struct {
	cfg        *config.Config
	store      *store.Store
	agg        *analytics.Aggregator
	renderer   *charts.Renderer
	sessions   *session.Manager
	chartCache *cache.FileCache
	redis      *cache.RedisCache
	startTime  time.Time
	now        func() time.Time
}

// NewHandler создает новый обработчик
func NewHandler(d Deps) *Handler {
	return &Handler{
		cfg:        d.Config,
		store:      d.Store,
		agg:        d.Aggregator,
		renderer:   d.Renderer,
		sessions:   d.Sessions,
		chartCache: d.ChartCache,
		redis:      d.Redis,
		startTime:  time.Now(),
		now:        time.Now,
	}
}

// Router регистрирует маршруты API
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.instrument("/health", h.Health)).Methods(http.MethodGet)
	r.HandleFunc("/api/login", h.instrument("/api/login", h.Login)).Methods(http.MethodPost)
	r.HandleFunc("/api/logout", h.instrument("/api/logout", h.Logout)).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.requireSession)

	api.HandleFunc("/summary", h.instrument("/api/summary", h.Summary)).Methods(http.MethodGet)
	api.HandleFunc("/machines", h.instrument("/api/machines", h.Machines)).Methods(http.MethodGet)
	api.HandleFunc("/machines/{id:[0-9]+}", h.instrument("/api/machines/{id}", h.Machine)).Methods(http.MethodGet)
	api.HandleFunc("/machines/{id:[0-9]+}", h.instrument("/api/machines/{id}", h.UpdateMachine)).Methods(http.MethodPut)
	api.HandleFunc("/machines/{id:[0-9]+}/oee", h.instrument("/api/machines/{id}/oee", h.OEE)).Methods(http.MethodGet)
	api.HandleFunc("/machines/{id:[0-9]+}/reliability", h.instrument("/api/machines/{id}/reliability", h.Reliability)).Methods(http.MethodGet)
	api.HandleFunc("/machines/{id:[0-9]+}/analytics", h.instrument("/api/machines/{id}/analytics", h.Analytics)).Methods(http.MethodGet)
	api.HandleFunc("/machines/{id:[0-9]+}/sensors", h.instrument("/api/machines/{id}/sensors", h.SensorStatistics)).Methods(http.MethodGet)
	api.HandleFunc("/machines/{id:[0-9]+}/anomalies", h.instrument("/api/machines/{id}/anomalies", h.SensorAnomalies)).Methods(http.MethodGet)
	api.HandleFunc("/efficiency-trend", h.instrument("/api/efficiency-trend", h.EfficiencyTrend)).Methods(http.MethodGet)
	api.HandleFunc("/status-distribution", h.instrument("/api/status-distribution", h.StatusDistribution)).Methods(http.MethodGet)
	api.HandleFunc("/alert-frequency", h.instrument("/api/alert-frequency", h.AlertFrequency)).Methods(http.MethodGet)
	api.HandleFunc("/alerts", h.instrument("/api/alerts", h.Alerts)).Methods(http.MethodGet)
	api.HandleFunc("/alerts", h.instrument("/api/alerts", h.CreateAlert)).Methods(http.MethodPost)
	api.HandleFunc("/alerts/{id:[0-9]+}/ack", h.instrument("/api/alerts/{id}/ack", h.AcknowledgeAlert)).Methods(http.MethodPost)
	api.HandleFunc("/maintenance", h.instrument("/api/maintenance", h.Tasks)).Methods(http.MethodGet)
	api.HandleFunc("/maintenance", h.instrument("/api/maintenance", h.CreateTask)).Methods(http.MethodPost)
	api.HandleFunc("/maintenance/{id:[0-9]+}", h.instrument("/api/maintenance/{id}", h.UpdateTask)).Methods(http.MethodPut)

	ch := r.PathPrefix("/charts").Subrouter()
	ch.Use(h.requireSession)
	ch.HandleFunc("/machines/{id:[0-9]+}/{kind:[a-z-]+}.png", h.instrument("/charts/machines/{id}/{kind}", h.MachineChart)).Methods(http.MethodGet)
	ch.HandleFunc("/{kind:[a-z-]+}.png", h.instrument("/charts/{kind}", h.Chart)).Methods(http.MethodGet)

	return r
}

// statusRecorder запоминает код ответа для метрик
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument считает запросы и длительность по шаблону маршрута
func (h *Handler) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(endpoint, r.Method))
		defer timer.ObserveDuration()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		metrics.RequestsTotal.WithLabelValues(endpoint, r.Method, strconv.Itoa(rec.status)).Inc()
	}
}

// fail сопоставляет ошибку с HTTP статусом; неожиданные ошибки логируются
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, errUnknownChart):
		h.respondError(w, "not found", http.StatusNotFound)
	case errors.Is(err, errBadRequest), errors.Is(err, analytics.ErrInvalidWindow):
		h.respondError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrInvalidTransition):
		h.respondError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, session.ErrNoSession):
		h.respondError(w, "authentication required", http.StatusUnauthorized)
	default:
		log.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		h.respondError(w, "internal server error", http.StatusInternalServerError)
	}
}

// respondJSON отправляет JSON ответ
func (h *Handler) respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("failed to encode response")
	}
}

// respondError отправляет ошибку в JSON формате
func (h *Handler) respondError(w http.ResponseWriter, message string, status int) {
	h.respondJSON(w, map[string]string{"error": message}, status)
}

// decodeJSON разбирает тело запроса, неизвестные поля запрещены
func decodeJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	return nil
}

// pathID числовой параметр пути
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", errBadRequest, name)
	}
	return id, nil
}

// queryInt целочисленный query-параметр со значением по умолчанию
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, name)
	}
	return v, nil
}

// queryID необязательный идентификатор; 0 если не задан
func queryID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", errBadRequest, name)
	}
	return id, nil
}

// listLimit параметр limit в пределах [1, LIST_LIMIT]
func (h *Handler) listLimit(r *http.Request) (int, error) {
	limit, err := queryInt(r, "limit", h.cfg.ListLimit)
	if err != nil {
		return 0, err
	}
	if limit < 1 || limit > h.cfg.ListLimit {
		return 0, fmt.Errorf("%w: limit must be between 1 and %d", errBadRequest, h.cfg.ListLimit)
	}
	return limit, nil
}
