package manager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docwatch/docwatch/internal/dispatch"
	"github.com/docwatch/docwatch/internal/models"
	"github.com/docwatch/docwatch/internal/recurrence"
)

// ErrNotFound is returned when the schedule id does not exist.
var ErrNotFound = errors.New("schedule not found")

// ValidationError rejects malformed schedule configuration. Fields maps field
// name to the reason it was rejected.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

// Store is the slice of the schedule store the manager writes through.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Schedule, error)
	Upsert(ctx context.Context, s *models.Schedule) (*models.Schedule, error)
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool, nextRun *time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Dispatcher runs one firing, used for TriggerNow.
type Dispatcher interface {
	Fire(ctx context.Context, s models.Schedule) dispatch.FireResult
}

// Config is the caller-supplied schedule configuration.
type Config struct {
	Frequency      models.Frequency `json:"frequency"`
	RunAt          models.TimeOfDay `json:"time_of_day"`
	Recipient      string           `json:"recipient"`
	SubjectName    string           `json:"subject_name"`
	SubjectContext string           `json:"subject_context"`
	Enabled        bool             `json:"enabled"`
}

// Manager is the create/update/enable/disable/delete surface for schedules.
type Manager struct {
	store      Store
	dispatcher Dispatcher
	now        func() time.Time
}

// New returns a Manager writing through store and firing via dispatcher.
func New(store Store, dispatcher Dispatcher) *Manager {
	return &Manager{store: store, dispatcher: dispatcher, now: time.Now}
}

// CreateOrUpdate validates cfg and upserts the schedule for (ownerID,
// subjectID), seeding the next run from now. Returns the persisted schedule.
func (m *Manager) CreateOrUpdate(ctx context.Context, ownerID, subjectID string, cfg Config) (*models.Schedule, error) {
	fields := make(map[string]string)
	if ownerID == "" {
		fields["owner_id"] = "required"
	}
	if subjectID == "" {
		fields["subject_id"] = "required"
	}
	if !cfg.Frequency.Valid() {
		fields["frequency"] = fmt.Sprintf("must be one of %s, %s, %s",
			models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly)
	}
	if !cfg.RunAt.Valid() {
		fields["time_of_day"] = "hour must be 0-23 and minute 0-59"
	}
	if cfg.Enabled && cfg.Recipient == "" {
		fields["recipient"] = "required when enabled"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	next := recurrence.NextRun(m.now(), cfg.RunAt, cfg.Frequency)
	s := &models.Schedule{
		ID:             models.ScheduleID(ownerID, subjectID),
		OwnerID:        ownerID,
		SubjectID:      subjectID,
		Enabled:        cfg.Enabled,
		Frequency:      cfg.Frequency,
		RunAt:          cfg.RunAt,
		Recipient:      cfg.Recipient,
		SubjectName:    cfg.SubjectName,
		SubjectContext: cfg.SubjectContext,
		NextRunAt:      &next,
	}
	return m.store.Upsert(ctx, s)
}

// SetEnabled toggles a schedule. Transitioning disabled->enabled recomputes
// the next run from now, so a long-disabled schedule resumes at its next
// natural slot instead of firing a backlog.
func (m *Manager) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) (*models.Schedule, error) {
	s, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNotFound
	}
	if enabled && s.Recipient == "" {
		return nil, &ValidationError{Fields: map[string]string{"recipient": "required when enabled"}}
	}

	var next *time.Time
	if enabled && !s.Enabled {
		n := recurrence.NextRun(m.now(), s.RunAt, s.Frequency)
		next = &n
	}
	if err := m.store.SetEnabled(ctx, id, enabled, next); err != nil {
		return nil, err
	}

	s.Enabled = enabled
	if next != nil {
		s.NextRunAt = next
	}
	return s, nil
}

// Delete removes a schedule. Hard removal, no soft delete.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	return m.store.Delete(ctx, id)
}

// TriggerNow fires the schedule once, outside the polling cadence, without
// touching its next run. Used for "send me a test notification now".
func (m *Manager) TriggerNow(ctx context.Context, id uuid.UUID) (dispatch.FireResult, error) {
	s, err := m.store.GetByID(ctx, id)
	if err != nil {
		return dispatch.FireResult{}, err
	}
	if s == nil {
		return dispatch.FireResult{}, ErrNotFound
	}
	if s.Recipient == "" {
		return dispatch.FireResult{}, &ValidationError{Fields: map[string]string{"recipient": "required"}}
	}
	return m.dispatcher.Fire(ctx, *s), nil
}
