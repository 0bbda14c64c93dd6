package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/docwatch/docwatch/internal/manager"
	"github.com/docwatch/docwatch/internal/models"
	"github.com/docwatch/docwatch/internal/repo"
)

// ScheduleDefaults fills omitted fields when creating a schedule.
type ScheduleDefaults struct {
	Frequency models.Frequency
	RunAt     models.TimeOfDay
}

// ScheduleHandler handles scan schedule CRUD and manual triggers.
type ScheduleHandler struct {
	Repo     *repo.ScheduleRepo
	Manager  *manager.Manager
	Defaults ScheduleDefaults
}

// writeError maps manager and store errors onto JSON responses.
func writeError(w http.ResponseWriter, err error) {
	var verr *manager.ValidationError
	switch {
	case errors.As(err, &verr):
		JSONValidationError(w, "validation failed", verr.Fields, http.StatusBadRequest)
	case errors.Is(err, manager.ErrNotFound):
		JSONError(w, "schedule not found", http.StatusNotFound)
	case errors.Is(err, repo.ErrStoreUnavailable):
		JSONError(w, ErrMessageStoreUnavailable, http.StatusServiceUnavailable)
	default:
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
	}
}

func scheduleID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	return id, err == nil
}

// ListSchedules returns paginated schedules (query: limit, offset). When both
// owner_id and subject_id are given it returns just that pair's schedule.
func (h *ScheduleHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	if owner, subject := r.URL.Query().Get("owner_id"), r.URL.Query().Get("subject_id"); owner != "" && subject != "" {
		s, err := h.Repo.GetByOwnerSubject(r.Context(), owner, subject)
		if err != nil {
			writeError(w, err)
			return
		}
		items := []models.Schedule{}
		if s != nil {
			items = append(items, *s)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"items": items,
			"total": len(items),
		})
		return
	}

	limit := 50
	offset := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}

	list, err := h.Repo.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	total, err := h.Repo.Count(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []models.Schedule{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items": list,
		"total": total,
	})
}

// GetSchedule returns one schedule by id.
func (h *ScheduleHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := scheduleID(r)
	if !ok {
		JSONError(w, "invalid schedule id", http.StatusBadRequest)
		return
	}

	s, err := h.Repo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if s == nil {
		JSONError(w, "schedule not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s)
}

// PutSchedule creates or replaces the schedule for one (owner, subject) pair.
// Body: {"owner_id": "...", "subject_id": "...", "frequency": "weekly",
// "time_of_day": "09:00", "recipient": "...", "subject_name": "...",
// "subject_context": "...", "enabled": true}.
func (h *ScheduleHandler) PutSchedule(w http.ResponseWriter, r *http.Request) {
	var input struct {
		OwnerID        string `json:"owner_id"`
		SubjectID      string `json:"subject_id"`
		Frequency      string `json:"frequency"`
		TimeOfDay      string `json:"time_of_day"`
		Recipient      string `json:"recipient"`
		SubjectName    string `json:"subject_name"`
		SubjectContext string `json:"subject_context"`
		Enabled        *bool  `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	cfg := manager.Config{
		Frequency:      h.Defaults.Frequency,
		RunAt:          h.Defaults.RunAt,
		Recipient:      input.Recipient,
		SubjectName:    input.SubjectName,
		SubjectContext: input.SubjectContext,
		Enabled:        true,
	}
	if input.Frequency != "" {
		cfg.Frequency = models.Frequency(input.Frequency)
	}
	if input.TimeOfDay != "" {
		at, err := models.ParseTimeOfDay(input.TimeOfDay)
		if err != nil {
			JSONValidationError(w, "validation failed", map[string]string{"time_of_day": "want HH:MM"}, http.StatusBadRequest)
			return
		}
		cfg.RunAt = at
	}
	if input.Enabled != nil {
		cfg.Enabled = *input.Enabled
	}

	s, err := h.Manager.CreateOrUpdate(r.Context(), input.OwnerID, input.SubjectID, cfg)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(s)
}

// EnableSchedule enables a schedule, resuming at its next natural slot.
func (h *ScheduleHandler) EnableSchedule(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, true)
}

// DisableSchedule disables a schedule; it stays stored but is never polled.
func (h *ScheduleHandler) DisableSchedule(w http.ResponseWriter, r *http.Request) {
	h.setEnabled(w, r, false)
}

func (h *ScheduleHandler) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	id, ok := scheduleID(r)
	if !ok {
		JSONError(w, "invalid schedule id", http.StatusBadRequest)
		return
	}

	s, err := h.Manager.SetEnabled(r.Context(), id, enabled)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s)
}

// TriggerSchedule fires the schedule once, outside the polling cadence.
// The scheduled next run is untouched.
func (h *ScheduleHandler) TriggerSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := scheduleID(r)
	if !ok {
		JSONError(w, "invalid schedule id", http.StatusBadRequest)
		return
	}

	res, err := h.Manager.TriggerNow(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	out := map[string]interface{}{
		"status":  res.Status(),
		"summary": res.Summary,
	}
	if err := res.Err(); err != nil {
		out["error"] = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// DeleteSchedule deletes a schedule.
func (h *ScheduleHandler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := scheduleID(r)
	if !ok {
		JSONError(w, "invalid schedule id", http.StatusBadRequest)
		return
	}

	if err := h.Manager.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
