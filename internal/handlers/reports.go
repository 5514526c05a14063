package handlers

import (
	"fmt"
	"net/http"

	"machinery-monitor/internal/models"
	"machinery-monitor/internal/store"
)

// Summary обрабатывает GET /api/summary
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	sum, err := h.agg.Summary(r.Context(), s.CompanyID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, sum, http.StatusOK)
}

// Machines обрабатывает GET /api/machines?status=&q=&limit=
func (h *Handler) Machines(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	limit, err := h.listLimit(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	filter := models.MachineFilter{
		Status: models.MachineStatus(r.URL.Query().Get("status")),
		Query:  r.URL.Query().Get("q"),
		Limit:  limit,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		h.fail(w, r, fmt.Errorf("%w: unknown status %q", errBadRequest, filter.Status))
		return
	}

	machines, err := h.store.Machines(r.Context(), s.CompanyID, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, machines, http.StatusOK)
}

type machineDetail struct {
	Machine        models.Machine       `json:"machine"`
	Sensors        []models.SensorStats `json:"sensors"`
	LatestReadings []store.ReadingView  `json:"latest_readings"`
	OEE            models.OEE           `json:"oee"`
	Reliability    models.Reliability   `json:"reliability"`
}

// Machine обрабатывает GET /api/machines/{id}
func (h *Handler) Machine(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	ctx := r.Context()

	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	m, err := h.store.Machine(ctx, s.CompanyID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	detail := machineDetail{Machine: m}
	if detail.Sensors, err = h.agg.SensorStatistics(ctx, s.CompanyID, id); err != nil {
		h.fail(w, r, err)
		return
	}
	if detail.LatestReadings, err = h.store.LatestReadings(ctx, s.CompanyID, id, h.cfg.ReadingsDetail); err != nil {
		h.fail(w, r, err)
		return
	}
	if detail.OEE, err = h.agg.OEE(ctx, s.CompanyID, id); err != nil {
		h.fail(w, r, err)
		return
	}
	if detail.Reliability, err = h.agg.Reliability(ctx, s.CompanyID, id); err != nil {
		h.fail(w, r, err)
		return
	}

	h.respondJSON(w, detail, http.StatusOK)
}

// UpdateMachine обрабатывает PUT /api/machines/{id}
func (h *Handler) UpdateMachine(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var upd models.MachineUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		h.fail(w, r, err)
		return
	}
	if upd.Status == nil && upd.Location == nil {
		h.fail(w, r, fmt.Errorf("%w: nothing to update", errBadRequest))
		return
	}
	if upd.Status != nil && !upd.Status.Valid() {
		h.fail(w, r, fmt.Errorf("%w: unknown status %q", errBadRequest, *upd.Status))
		return
	}

	m, err := h.store.UpdateMachine(r.Context(), s.CompanyID, id, upd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, m, http.StatusOK)
}

// OEE обрабатывает GET /api/machines/{id}/oee
func (h *Handler) OEE(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	oee, err := h.agg.OEE(r.Context(), s.CompanyID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, oee, http.StatusOK)
}

// Reliability обрабатывает GET /api/machines/{id}/reliability
func (h *Handler) Reliability(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	rel, err := h.agg.Reliability(r.Context(), s.CompanyID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, rel, http.StatusOK)
}

// Analytics обрабатывает GET /api/machines/{id}/analytics
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.agg.Analytics(r.Context(), s.CompanyID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, res, http.StatusOK)
}

// SensorStatistics обрабатывает GET /api/machines/{id}/sensors
func (h *Handler) SensorStatistics(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	stats, err := h.agg.SensorStatistics(r.Context(), s.CompanyID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, stats, http.StatusOK)
}

// SensorAnomalies обрабатывает GET /api/machines/{id}/anomalies
func (h *Handler) SensorAnomalies(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.agg.SensorAnomalies(r.Context(), s.CompanyID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, res, http.StatusOK)
}

// EfficiencyTrend обрабатывает GET /api/efficiency-trend?machine_id=&days=
func (h *Handler) EfficiencyTrend(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	days, err := queryInt(r, "days", defaultTrendDays)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	machineID, err := queryID(r, "machine_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var mid *int64
	if machineID != 0 {
		mid = &machineID
	}

	trend, err := h.agg.EfficiencyTrend(r.Context(), s.CompanyID, mid, days)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, trend, http.StatusOK)
}

// StatusDistribution обрабатывает GET /api/status-distribution
func (h *Handler) StatusDistribution(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	dist, err := h.agg.StatusDistribution(r.Context(), s.CompanyID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, dist, http.StatusOK)
}

// AlertFrequency обрабатывает GET /api/alert-frequency?days=
func (h *Handler) AlertFrequency(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	days, err := queryInt(r, "days", defaultAlertDays)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	freq, err := h.agg.AlertFrequency(r.Context(), s.CompanyID, days)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, freq, http.StatusOK)
}
