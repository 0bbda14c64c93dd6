package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Frequency is how often a schedule fires.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Valid reports whether f is one of the three supported frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

// TimeOfDay is a local wall-clock hour and minute, e.g. 09:00.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses "HH:MM" (24-hour clock).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q, want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q, want HH:MM", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q, want HH:MM", s)
	}
	t := TimeOfDay{Hour: h, Minute: m}
	if !t.Valid() {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return t, nil
}

// Valid reports whether the hour and minute are in range.
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// MarshalJSON renders the time as "HH:MM".
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

// UnmarshalJSON accepts "HH:MM".
func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("invalid time of day %s", b)
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// scheduleNamespace seeds deterministic schedule IDs.
var scheduleNamespace = uuid.MustParse("8b27c6c2-1f0d-4a5e-9c3f-6f2f9f1d7a01")

// ScheduleID returns the stable ID for one (owner, subject) pair. The same
// pair always maps to the same ID, so a pair has at most one schedule.
func ScheduleID(ownerID, subjectID string) uuid.UUID {
	return uuid.NewSHA1(scheduleNamespace, []byte(ownerID+"/"+subjectID))
}

// Schedule represents a recurring scan-and-notify schedule for one subject.
// NextRunAt is advanced by the scheduler loop after every firing; the manager
// seeds it on creation and on re-enable but never hand-edits it otherwise.
type Schedule struct {
	ID             uuid.UUID  `json:"id"`
	OwnerID        string     `json:"owner_id"`
	SubjectID      string     `json:"subject_id"`
	Enabled        bool       `json:"enabled"`
	Frequency      Frequency  `json:"frequency"`
	RunAt          TimeOfDay  `json:"time_of_day"`
	Recipient      string     `json:"recipient"`
	SubjectName    string     `json:"subject_name"`
	SubjectContext string     `json:"subject_context,omitempty"`
	NextRunAt      *time.Time `json:"next_run_at,omitempty"`
	InFlight       bool       `json:"-"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
	LastStatus     string     `json:"last_status,omitempty"`
	LastError      string     `json:"last_error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
