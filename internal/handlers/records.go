package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"machinery-monitor/internal/models"
)

// Alerts обрабатывает GET /api/alerts?ack=&machine_id=&limit=
func (h *Handler) Alerts(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	limit, err := h.listLimit(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	machineID, err := queryID(r, "machine_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	filter := models.AlertFilter{MachineID: machineID, Limit: limit}
	if raw := r.URL.Query().Get("ack"); raw != "" {
		ack, err := strconv.ParseBool(raw)
		if err != nil {
			h.fail(w, r, fmt.Errorf("%w: ack must be a boolean", errBadRequest))
			return
		}
		filter.Acknowledged = &ack
	}

	alerts, err := h.store.Alerts(r.Context(), s.CompanyID, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, alerts, http.StatusOK)
}

type createAlertRequest struct {
	MachineID int64           `json:"machine_id"`
	Severity  models.Severity `json:"severity"`
	Message   string          `json:"message"`
}

// CreateAlert обрабатывает POST /api/alerts
func (h *Handler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	ctx := r.Context()

	var req createAlertRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if !req.Severity.Valid() {
		h.fail(w, r, fmt.Errorf("%w: severity must be info, warning or critical", errBadRequest))
		return
	}
	if req.MachineID <= 0 {
		h.fail(w, r, fmt.Errorf("%w: machine_id is required", errBadRequest))
		return
	}

	if _, err := h.store.Machine(ctx, s.CompanyID, req.MachineID); err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.store.CreateAlert(ctx, models.Alert{
		CompanyID: s.CompanyID,
		MachineID: req.MachineID,
		Severity:  req.Severity,
		Message:   req.Message,
		RaisedAt:  h.now(),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	alert, err := h.store.Alert(ctx, s.CompanyID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, alert, http.StatusCreated)
}

type ackRequest struct {
	Comment string `json:"comment"`
}

// AcknowledgeAlert обрабатывает POST /api/alerts/{id}/ack
func (h *Handler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req ackRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	alert, err := h.store.AcknowledgeAlert(r.Context(), s.CompanyID, id, models.AlertAck{
		By:      s.LoginID,
		Comment: req.Comment,
		At:      h.now(),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, alert, http.StatusOK)
}

// Tasks обрабатывает GET /api/maintenance?status=&machine_id=&limit=
func (h *Handler) Tasks(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	limit, err := h.listLimit(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	machineID, err := queryID(r, "machine_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	filter := models.TaskFilter{
		Status:    models.TaskStatus(r.URL.Query().Get("status")),
		MachineID: machineID,
		Limit:     limit,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		h.fail(w, r, fmt.Errorf("%w: unknown status %q", errBadRequest, filter.Status))
		return
	}

	tasks, err := h.store.Tasks(r.Context(), s.CompanyID, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, tasks, http.StatusOK)
}

type createTaskRequest struct {
	MachineID     int64           `json:"machine_id"`
	Description   string          `json:"description"`
	Priority      models.Priority `json:"priority"`
	Technician    string          `json:"technician"`
	ScheduledDate string          `json:"scheduled_date"`
}

// CreateTask обрабатывает POST /api/maintenance
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())
	ctx := r.Context()

	var req createTaskRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.MachineID <= 0 || req.Description == "" {
		h.fail(w, r, fmt.Errorf("%w: machine_id and description are required", errBadRequest))
		return
	}
	if req.Priority == "" {
		req.Priority = models.PriorityMedium
	}
	if !req.Priority.Valid() {
		h.fail(w, r, fmt.Errorf("%w: priority must be low, medium or high", errBadRequest))
		return
	}
	if req.ScheduledDate != "" {
		if _, err := time.Parse("2006-01-02", req.ScheduledDate); err != nil {
			h.fail(w, r, fmt.Errorf("%w: scheduled_date must be YYYY-MM-DD", errBadRequest))
			return
		}
	}

	if _, err := h.store.Machine(ctx, s.CompanyID, req.MachineID); err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.store.CreateTask(ctx, models.MaintenanceTask{
		CompanyID:     s.CompanyID,
		MachineID:     req.MachineID,
		Description:   req.Description,
		Priority:      req.Priority,
		Technician:    req.Technician,
		ScheduledDate: req.ScheduledDate,
		Status:        models.TaskOpen,
		CreatedAt:     h.now(),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	task, err := h.store.Task(ctx, s.CompanyID, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, task, http.StatusCreated)
}

// UpdateTask обрабатывает PUT /api/maintenance/{id}
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context())

	id, err := pathID(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var upd models.TaskUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		h.fail(w, r, err)
		return
	}
	if upd.Status == nil && upd.Technician == nil {
		h.fail(w, r, fmt.Errorf("%w: nothing to update", errBadRequest))
		return
	}
	if upd.Status != nil && !upd.Status.Valid() {
		h.fail(w, r, fmt.Errorf("%w: unknown status %q", errBadRequest, *upd.Status))
		return
	}

	task, err := h.store.UpdateTask(r.Context(), s.CompanyID, id, upd, h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respondJSON(w, task, http.StatusOK)
}
