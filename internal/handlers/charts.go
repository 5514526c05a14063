package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/apex/log"
	"github.com/gorilla/mux"

	"machinery-monitor/internal/cache"
	"machinery-monitor/internal/charts"
	"machinery-monitor/internal/metrics"
	"machinery-monitor/internal/store"
)

// Окна графиков по умолчанию, дни
const (
	defaultTrendDays   = 7
	defaultAlertDays   = 14
	defaultRankingDays = 30
	defaultSensorDays  = 7
)

// errUnknownChart неизвестный тип графика
var errUnknownChart = errors.New("unknown chart")

// chartRequest параметры одного графика после разбора запроса
type chartRequest struct {
	companyID int64
	machineID int64
	kind      string
	days      int
	opts      charts.Options
}

func (c chartRequest) cacheKey() string {
	return cache.Key(
		strconv.FormatInt(c.companyID, 10),
		c.kind,
		strconv.FormatInt(c.machineID, 10),
		strconv.Itoa(c.days),
		c.opts.Quality,
		c.opts.Theme,
	)
}

// chartDays окно по умолчанию; 0 для графиков без окна
func chartDays(kind string, machine bool) int {
	switch kind {
	case charts.KindEfficiencyTrend:
		return defaultTrendDays
	case charts.KindAlertFrequency:
		if !machine {
			return defaultAlertDays
		}
	case charts.KindEfficiencyRanking:
		if !machine {
			return defaultRankingDays
		}
	case charts.KindSensorOverlay:
		if machine {
			return defaultSensorDays
		}
	}
	return 0
}

// Chart обрабатывает GET /charts/{kind}.png
func (h *Handler) Chart(w http.ResponseWriter, r *http.Request) {
	h.serveChart(w, r, 0)
}

// MachineChart обрабатывает GET /charts/machines/{id}/{kind}.png
func (h *Handler) MachineChart(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.serveChart(w, r, id)
}

func (h *Handler) parseChart(r *http.Request, machineID int64) (chartRequest, error) {
	s := sessionFrom(r.Context())
	req := chartRequest{
		companyID: s.CompanyID,
		machineID: machineID,
		kind:      mux.Vars(r)["kind"],
	}

	// days проверяется и для графиков без окна, но в ключ кэша попадает только с окном
	q := r.URL.Query()
	def := chartDays(req.kind, machineID != 0)
	if def > 0 || q.Get("days") != "" {
		days, err := queryInt(r, "days", def)
		if err != nil {
			return req, err
		}
		if err := h.agg.ValidateWindow(days); err != nil {
			return req, err
		}
		if def > 0 {
			req.days = days
		}
	}

	req.opts = charts.Options{
		Quality: charts.QualityByName(orDefault(q.Get("quality"), h.cfg.ChartQuality)).Name,
		Theme:   charts.ThemeByName(orDefault(q.Get("theme"), h.cfg.ChartTheme)).Name,
		Days:    req.days,
	}
	return req, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (h *Handler) serveChart(w http.ResponseWriter, r *http.Request, machineID int64) {
	req, err := h.parseChart(r, machineID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	key := req.cacheKey()
	if h.chartCache != nil {
		if data, err := h.chartCache.Get(key); err == nil {
			metrics.CacheHits.Inc()
			writePNG(w, data)
			return
		} else if !errors.Is(err, cache.ErrMiss) {
			log.WithError(err).Warn("chart cache read failed")
		}
		metrics.CacheMisses.Inc()
	}

	data, err := h.renderChart(r, req)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound), errors.Is(err, errUnknownChart), errors.Is(err, errBadRequest):
		h.fail(w, r, err)
		return
	default:
		log.WithError(err).WithFields(log.Fields{
			"kind":       req.kind,
			"company_id": req.companyID,
			"machine_id": req.machineID,
		}).Error("chart rendering failed, serving placeholder")
		metrics.ChartPlaceholders.WithLabelValues(req.kind).Inc()

		data, err = h.renderer.Placeholder(req.opts)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writePNG(w, data)
		return
	}

	if h.chartCache != nil {
		if err := h.chartCache.Put(key, data); err != nil {
			log.WithError(err).Warn("chart cache write failed")
		}
	}
	if h.redis != nil {
		if _, err := h.redis.IncrementCounter(r.Context(), cache.ChartCounterKey); err != nil {
			log.WithError(err).Warn("failed to increment chart counter")
		}
	}
	writePNG(w, data)
}

// renderChart собирает агрегаты и рисует график нужного типа
func (h *Handler) renderChart(r *http.Request, req chartRequest) ([]byte, error) {
	ctx := r.Context()

	if req.machineID != 0 {
		switch req.kind {
		case charts.KindOEEGauge:
			oee, err := h.agg.OEE(ctx, req.companyID, req.machineID)
			if err != nil {
				return nil, err
			}
			return h.renderer.OEEGauge(oee.OEE, req.opts)
		case charts.KindSensorOverlay:
			series, err := h.agg.SensorSeries(ctx, req.companyID, req.machineID, req.days)
			if err != nil {
				return nil, err
			}
			return h.renderer.SensorOverlay(series, req.opts)
		case charts.KindEfficiencyTrend:
			mid := req.machineID
			trend, err := h.agg.EfficiencyTrend(ctx, req.companyID, &mid, req.days)
			if err != nil {
				return nil, err
			}
			return h.renderer.EfficiencyTrend(trend, req.opts)
		}
		return nil, fmt.Errorf("%w: %s", errUnknownChart, req.kind)
	}

	switch req.kind {
	case charts.KindEfficiencyTrend:
		trend, err := h.agg.EfficiencyTrend(ctx, req.companyID, nil, req.days)
		if err != nil {
			return nil, err
		}
		return h.renderer.EfficiencyTrend(trend, req.opts)
	case charts.KindStatusPie:
		counts, err := h.agg.StatusDistribution(ctx, req.companyID)
		if err != nil {
			return nil, err
		}
		return h.renderer.StatusPie(counts, req.opts)
	case charts.KindAlertFrequency:
		freq, err := h.agg.AlertFrequency(ctx, req.companyID, req.days)
		if err != nil {
			return nil, err
		}
		return h.renderer.AlertFrequency(freq, req.opts)
	case charts.KindStatusHeatmap:
		cells, err := h.agg.LocationStatus(ctx, req.companyID)
		if err != nil {
			return nil, err
		}
		return h.renderer.StatusHeatmap(cells, req.opts)
	case charts.KindEfficiencyRanking:
		effs, err := h.agg.MachineEfficiencies(ctx, req.companyID, req.days)
		if err != nil {
			return nil, err
		}
		return h.renderer.EfficiencyRanking(effs, req.opts)
	}
	return nil, fmt.Errorf("%w: %s", errUnknownChart, req.kind)
}

func writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=60")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.WithError(err).Warn("failed to write chart")
	}
}
