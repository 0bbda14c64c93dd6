package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/docwatch/docwatch/internal/models"
)

var scheduleTestColumns = []string{
	"id", "owner_id", "subject_id", "enabled", "frequency", "run_hour", "run_minute",
	"recipient", "subject_name", "subject_context", "next_run_at", "in_flight",
	"last_run_at", "last_status", "last_error", "created_at", "updated_at",
}

func TestScheduleRepo_ListDue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	id := models.ScheduleID("acct-1", "doc-1")
	mock.ExpectQuery(`SELECT id, owner_id, subject_id, enabled, frequency`).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows(scheduleTestColumns).
			AddRow(id.String(), "acct-1", "doc-1", true, "weekly", 9, 0,
				"ops@example.com", "Privacy Policy", "legal", now.Add(-time.Minute), false,
				nil, "", "", now.Add(-time.Hour), now.Add(-time.Hour)))

	r := NewScheduleRepo(db)
	list, err := r.ListDue(context.Background(), now)
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 item, got %d", len(list))
	}
	s := list[0]
	if s.ID != id || s.Frequency != models.FrequencyWeekly || !s.Enabled {
		t.Errorf("unexpected schedule: %+v", s)
	}
	if s.NextRunAt == nil || !s.NextRunAt.Before(now) {
		t.Errorf("unexpected next_run_at: %v", s.NextRunAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestScheduleRepo_ListDue_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`SELECT id, owner_id, subject_id, enabled, frequency`).
		WithArgs(now).
		WillReturnRows(sqlmock.NewRows(scheduleTestColumns))

	r := NewScheduleRepo(db)
	list, err := r.ListDue(context.Background(), now)
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected empty list, got %d", len(list))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestScheduleRepo_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	id := models.ScheduleID("acct-1", "doc-1")
	mock.ExpectQuery(`SELECT id, owner_id, subject_id, enabled, frequency`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(scheduleTestColumns).
			AddRow(id.String(), "acct-1", "doc-1", true, "daily", 7, 30,
				"ops@example.com", "Privacy Policy", "", now.Add(time.Hour), false,
				nil, "", "", now, now))

	r := NewScheduleRepo(db)
	s, err := r.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if s == nil {
		t.Fatal("expected schedule, got nil")
	}
	if s.ID != id || s.RunAt.Hour != 7 || s.RunAt.Minute != 30 || s.Frequency != models.FrequencyDaily {
		t.Errorf("unexpected schedule: %+v", s)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestScheduleRepo_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	id := models.ScheduleID("acct-1", "missing")
	mock.ExpectQuery(`SELECT id, owner_id, subject_id, enabled, frequency`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(scheduleTestColumns))

	r := NewScheduleRepo(db)
	s, err := r.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if s != nil {
		t.Errorf("expected nil, got %+v", s)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestScheduleRepo_GetByOwnerSubject(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	id := models.ScheduleID("acct-1", "doc-1")
	mock.ExpectQuery(`SELECT id, owner_id, subject_id, enabled, frequency`).
		WithArgs("acct-1", "doc-1").
		WillReturnRows(sqlmock.NewRows(scheduleTestColumns).
			AddRow(id.String(), "acct-1", "doc-1", true, "monthly", 6, 0,
				"ops@example.com", "Privacy Policy", "", now.Add(time.Hour), false,
				nil, "", "", now, now))

	r := NewScheduleRepo(db)
	s, err := r.GetByOwnerSubject(context.Background(), "acct-1", "doc-1")
	if err != nil {
		t.Fatalf("GetByOwnerSubject: %v", err)
	}
	if s == nil || s.ID != id || s.Frequency != models.FrequencyMonthly {
		t.Errorf("unexpected schedule: %+v", s)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestScheduleRepo_GetByOwnerSubject_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, owner_id, subject_id, enabled, frequency`).
		WithArgs("acct-1", "missing").
		WillReturnRows(sqlmock.NewRows(scheduleTestColumns))

	r := NewScheduleRepo(db)
	s, err := r.GetByOwnerSubject(context.Background(), "acct-1", "missing")
	if err != nil {
		t.Fatalf("GetByOwnerSubject: %v", err)
	}
	if s != nil {
		t.Errorf("expected nil, got %+v", s)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestScheduleRepo_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	next := now.Add(24 * time.Hour)
	id := models.ScheduleID("acct-1", "doc-1")
	in := &models.Schedule{
		ID:          id,
		OwnerID:     "acct-1",
		SubjectID:   "doc-1",
		Enabled:     true,
		Frequency:   models.FrequencyWeekly,
		RunAt:       models.TimeOfDay{Hour: 9, Minute: 0},
		Recipient:   "ops@example.com",
		SubjectName: "Privacy Policy",
		NextRunAt:   &next,
	}

	mock.ExpectQuery(`INSERT INTO scan_schedules`).
		WithArgs(id, "acct-1", "doc-1", true, "weekly", 9, 0, "ops@example.com", "Privacy Policy", "", next).
		WillReturnRows(sqlmock.NewRows(scheduleTestColumns).
			AddRow(id.String(), "acct-1", "doc-1", true, "weekly", 9, 0,
				"ops@example.com", "Privacy Policy", "", next, false,
				nil, "", "", now, now))

	r := NewScheduleRepo(db)
	out, err := r.Upsert(context.Background(), in)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if out.ID != id || !out.Enabled || out.NextRunAt == nil || !out.NextRunAt.Equal(next) {
		t.Errorf("unexpected schedule: %+v", out)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestScheduleRepo_Claim(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	id := models.ScheduleID("acct-1", "doc-1")
	read := time.Now().Add(-time.Minute)
	mock.ExpectExec(`UPDATE scan_schedules\s+SET in_flight = TRUE`).
		WithArgs(id, read).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewScheduleRepo(db)
	claimed, err := r.Claim(context.Background(), id, read)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !claimed {
		t.Error("expected claim to succeed")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestScheduleRepo_Claim_Raced(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	id := models.ScheduleID("acct-1", "doc-1")
	read := time.Now().Add(-time.Minute)
	mock.ExpectExec(`UPDATE scan_schedules\s+SET in_flight = TRUE`).
		WithArgs(id, read).
		WillReturnResult(sqlmock.NewResult(0, 0))

	r := NewScheduleRepo(db)
	claimed, err := r.Claim(context.Background(), id, read)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if claimed {
		t.Error("expected claim to be lost, got success")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestScheduleRepo_Complete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	id := models.ScheduleID("acct-1", "doc-1")
	firedAt := time.Now()
	next := firedAt.Add(7 * 24 * time.Hour)
	mock.ExpectExec(`UPDATE scan_schedules\s+SET in_flight = FALSE, next_run_at`).
		WithArgs(id, next, firedAt, "ok", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewScheduleRepo(db)
	if err := r.Complete(context.Background(), id, "ok", "", firedAt, next); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestScheduleRepo_SetEnabled_Reseed(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	id := models.ScheduleID("acct-1", "doc-1")
	next := time.Now().Add(24 * time.Hour)
	mock.ExpectExec(`UPDATE scan_schedules SET enabled = \$1, next_run_at = \$2`).
		WithArgs(true, next, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewScheduleRepo(db)
	if err := r.SetEnabled(context.Background(), id, true, &next); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestScheduleRepo_SetEnabled_Disable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	id := models.ScheduleID("acct-1", "doc-1")
	mock.ExpectExec(`UPDATE scan_schedules SET enabled = \$1, updated_at`).
		WithArgs(false, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewScheduleRepo(db)
	if err := r.SetEnabled(context.Background(), id, false, nil); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestScheduleRepo_ReleaseStale(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	cutoff := time.Now().Add(-10 * time.Minute)
	mock.ExpectExec(`UPDATE scan_schedules\s+SET in_flight = FALSE, updated_at`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 2))

	r := NewScheduleRepo(db)
	n, err := r.ReleaseStale(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ReleaseStale: %v", err)
	}
	if n != 2 {
		t.Errorf("released = %d, want 2", n)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestScheduleRepo_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	id := models.ScheduleID("acct-1", "doc-1")
	mock.ExpectExec(`DELETE FROM scan_schedules WHERE id`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewScheduleRepo(db)
	if err := r.Delete(context.Background(), id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestScheduleRepo_StoreUnavailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, owner_id, subject_id, enabled, frequency`).
		WillReturnError(errors.New("connection refused"))

	r := NewScheduleRepo(db)
	_, err = r.ListDue(context.Background(), time.Now())
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
