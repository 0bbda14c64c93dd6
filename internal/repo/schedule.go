package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docwatch/docwatch/internal/models"
)

// ErrStoreUnavailable wraps every database failure so callers can treat the
// store as a single availability condition with errors.Is.
var ErrStoreUnavailable = errors.New("schedule store unavailable")

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}

const scheduleColumns = `id, owner_id, subject_id, enabled, frequency, run_hour, run_minute,
		recipient, subject_name, subject_context, next_run_at, in_flight,
		last_run_at, last_status, last_error, created_at, updated_at`

// ScheduleRepo persists scan schedules.
type ScheduleRepo struct {
	DB *sql.DB
}

// NewScheduleRepo returns a new ScheduleRepo.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo {
	return &ScheduleRepo{DB: db}
}

func scanSchedule(row interface{ Scan(...any) error }) (*models.Schedule, error) {
	s := &models.Schedule{}
	err := row.Scan(
		&s.ID, &s.OwnerID, &s.SubjectID, &s.Enabled, &s.Frequency, &s.RunAt.Hour, &s.RunAt.Minute,
		&s.Recipient, &s.SubjectName, &s.SubjectContext, &s.NextRunAt, &s.InFlight,
		&s.LastRunAt, &s.LastStatus, &s.LastError, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Count returns the total number of schedules.
func (r *ScheduleRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM scan_schedules").Scan(&n); err != nil {
		return 0, storeErr("count", err)
	}
	return n, nil
}

// List returns schedules, most recent first. limit/offset for pagination.
func (r *ScheduleRepo) List(ctx context.Context, limit, offset int) ([]models.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM scan_schedules
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`
	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, storeErr("list", err)
	}
	defer rows.Close()

	var list []models.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, storeErr("list scan", err)
		}
		list = append(list, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list rows", err)
	}
	return list, nil
}

// ListDue returns enabled, unclaimed schedules whose next run is at or before
// now. This is the only read path the scheduler loop uses.
func (r *ScheduleRepo) ListDue(ctx context.Context, now time.Time) ([]models.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM scan_schedules
		WHERE enabled = TRUE AND in_flight = FALSE
		  AND next_run_at IS NOT NULL AND next_run_at <= $1
		ORDER BY next_run_at
	`
	rows, err := r.DB.QueryContext(ctx, query, now)
	if err != nil {
		return nil, storeErr("list due", err)
	}
	defer rows.Close()

	var list []models.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, storeErr("list due scan", err)
		}
		list = append(list, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list due rows", err)
	}
	return list, nil
}

// GetByID returns one schedule by id, or nil when it does not exist.
func (r *ScheduleRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM scan_schedules
		WHERE id = $1
	`
	s, err := scanSchedule(r.DB.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get", err)
	}
	return s, nil
}

// GetByOwnerSubject returns the schedule for one (owner, subject) pair, or
// nil when the pair has none.
func (r *ScheduleRepo) GetByOwnerSubject(ctx context.Context, ownerID, subjectID string) (*models.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM scan_schedules
		WHERE owner_id = $1 AND subject_id = $2
	`
	s, err := scanSchedule(r.DB.QueryRowContext(ctx, query, ownerID, subjectID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get by owner subject", err)
	}
	return s, nil
}

// Upsert inserts the schedule or, when the (owner, subject) pair already has
// one, overwrites its configuration. Single-statement, so concurrent readers
// never observe a partial write. Returns the persisted schedule.
func (r *ScheduleRepo) Upsert(ctx context.Context, s *models.Schedule) (*models.Schedule, error) {
	query := `
		INSERT INTO scan_schedules
			(id, owner_id, subject_id, enabled, frequency, run_hour, run_minute,
			 recipient, subject_name, subject_context, next_run_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			frequency = EXCLUDED.frequency,
			run_hour = EXCLUDED.run_hour,
			run_minute = EXCLUDED.run_minute,
			recipient = EXCLUDED.recipient,
			subject_name = EXCLUDED.subject_name,
			subject_context = EXCLUDED.subject_context,
			next_run_at = EXCLUDED.next_run_at,
			updated_at = NOW()
		RETURNING ` + scheduleColumns
	out, err := scanSchedule(r.DB.QueryRowContext(ctx, query,
		s.ID, s.OwnerID, s.SubjectID, s.Enabled, s.Frequency, s.RunAt.Hour, s.RunAt.Minute,
		s.Recipient, s.SubjectName, s.SubjectContext, s.NextRunAt,
	))
	if err != nil {
		return nil, storeErr("upsert", err)
	}
	return out, nil
}

// SetEnabled toggles enabled. When nextRun is non-nil (the disabled->enabled
// transition) the next run is reseeded and any stale claim marker cleared.
func (r *ScheduleRepo) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool, nextRun *time.Time) error {
	var err error
	if nextRun != nil {
		_, err = r.DB.ExecContext(ctx,
			`UPDATE scan_schedules SET enabled = $1, next_run_at = $2, in_flight = FALSE, updated_at = NOW() WHERE id = $3`,
			enabled, *nextRun, id,
		)
	} else {
		_, err = r.DB.ExecContext(ctx,
			`UPDATE scan_schedules SET enabled = $1, updated_at = NOW() WHERE id = $2`,
			enabled, id,
		)
	}
	if err != nil {
		return storeErr("set enabled", err)
	}
	return nil
}

// Claim atomically marks a due schedule as in flight, but only if it is still
// enabled, unclaimed, and its stored next run matches what the caller read.
// Returns false when another poller got there first; that is not an error.
func (r *ScheduleRepo) Claim(ctx context.Context, id uuid.UUID, readNextRun time.Time) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE scan_schedules
		SET in_flight = TRUE, updated_at = NOW()
		WHERE id = $1 AND enabled = TRUE AND in_flight = FALSE AND next_run_at = $2
	`, id, readNextRun)
	if err != nil {
		return false, storeErr("claim", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("claim rows", err)
	}
	return n == 1, nil
}

// Complete releases a claim after a firing: records the outcome and advances
// the next run. Called on success and failure alike, so a failed notification
// waits for the next natural period instead of retrying on the next tick.
func (r *ScheduleRepo) Complete(ctx context.Context, id uuid.UUID, status, lastErr string, firedAt, nextRun time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE scan_schedules
		SET in_flight = FALSE, next_run_at = $2, last_run_at = $3, last_status = $4, last_error = $5, updated_at = NOW()
		WHERE id = $1
	`, id, nextRun, firedAt, status, lastErr)
	if err != nil {
		return storeErr("complete", err)
	}
	return nil
}

// ReleaseStale clears claim markers older than cutoff. A claim can leak when
// the process dies mid-firing or Complete hits a store outage; without this
// the schedule would never be polled again.
func (r *ScheduleRepo) ReleaseStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE scan_schedules
		SET in_flight = FALSE, updated_at = NOW()
		WHERE in_flight = TRUE AND updated_at < $1
	`, cutoff)
	if err != nil {
		return 0, storeErr("release stale", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("release stale rows", err)
	}
	return n, nil
}

// Delete removes a schedule by id.
func (r *ScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM scan_schedules WHERE id = $1`, id); err != nil {
		return storeErr("delete", err)
	}
	return nil
}
