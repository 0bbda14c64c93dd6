package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/docwatch/docwatch/internal/config"
	"github.com/docwatch/docwatch/internal/models"
)

var scheduleTestColumns = []string{
	"id", "owner_id", "subject_id", "enabled", "frequency", "run_hour", "run_minute",
	"recipient", "subject_name", "subject_context", "next_run_at", "in_flight",
	"last_run_at", "last_status", "last_error", "created_at", "updated_at",
}

func testConfig() config.Config {
	return config.Config{
		DefaultFrequency: "weekly",
		DefaultRunAt:     "09:00",
		ScannerURL:       "http://localhost:9090",
		Notifier:         "email",
		ScanTimeout:      time.Second,
		NotifyTimeout:    time.Second,
	}
}

// TestAPI_PutThenListSchedules is an integration test: it builds the full router
// with a sqlmock-backed DB, creates a schedule via PUT, then lists it back.
func TestAPI_PutThenListSchedules(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	id := models.ScheduleID("acct-1", "doc-1")

	// PUT /schedules: upsert returning the persisted row
	mock.ExpectQuery(`INSERT INTO scan_schedules`).
		WillReturnRows(sqlmock.NewRows(scheduleTestColumns).
			AddRow(id.String(), "acct-1", "doc-1", true, "daily", 8, 30,
				"ops@example.com", "Privacy Policy", "", now.Add(time.Hour), false,
				nil, "", "", now, now))

	// GET /schedules: List(50, 0) then Count
	mock.ExpectQuery(`SELECT id, owner_id, subject_id, enabled, frequency`).
		WithArgs(50, 0).
		WillReturnRows(sqlmock.NewRows(scheduleTestColumns).
			AddRow(id.String(), "acct-1", "doc-1", true, "daily", 8, 30,
				"ops@example.com", "Privacy Policy", "", now.Add(time.Hour), false,
				nil, "", "", now, now))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM scan_schedules`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	r := newRouter(db, testConfig())
	srv := httptest.NewServer(r)
	defer srv.Close()

	// 1) PUT /schedules
	putBody, _ := json.Marshal(map[string]interface{}{
		"owner_id":     "acct-1",
		"subject_id":   "doc-1",
		"frequency":    "daily",
		"time_of_day":  "08:30",
		"recipient":    "ops@example.com",
		"subject_name": "Privacy Policy",
	})
	putReq, _ := http.NewRequest("PUT", srv.URL+"/schedules", bytes.NewReader(putBody))
	putReq.Header.Set("Content-Type", "application/json")
	putResp, err := srv.Client().Do(putReq)
	if err != nil {
		t.Fatalf("put request: %v", err)
	}
	defer putResp.Body.Close()
	if putResp.StatusCode != http.StatusCreated {
		t.Fatalf("PUT /schedules status: got %d, want 201", putResp.StatusCode)
	}
	var created struct {
		ID        string `json:"id"`
		TimeOfDay string `json:"time_of_day"`
	}
	if err := json.NewDecoder(putResp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ID != id.String() || created.TimeOfDay != "08:30" {
		t.Errorf("unexpected created schedule: %+v", created)
	}

	// 2) GET /schedules
	listResp, err := http.Get(srv.URL + "/schedules")
	if err != nil {
		t.Fatalf("list request: %v", err)
	}
	defer listResp.Body.Close()
	if listResp.StatusCode != http.StatusOK {
		t.Fatalf("GET /schedules status: got %d, want 200", listResp.StatusCode)
	}
	var list struct {
		Items []struct {
			ID        string `json:"id"`
			Frequency string `json:"frequency"`
		} `json:"items"`
		Total int `json:"total"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if list.Total != 1 || len(list.Items) != 1 || list.Items[0].Frequency != "daily" {
		t.Errorf("unexpected list: %+v", list)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

// TestAPI_Health is a quick smoke test for the health endpoint.
func TestAPI_Health(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	r := newRouter(db, testConfig())
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /health status: got %d, want 200", resp.StatusCode)
	}
}

// TestAPI_Ready checks that /ready pings the DB and returns 200 when DB is reachable.
func TestAPI_Ready(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	mock.ExpectPing()

	r := newRouter(db, testConfig())
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ready")
	if err != nil {
		t.Fatalf("ready request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /ready status: got %d, want 200", resp.StatusCode)
	}
}

// TestAPI_Metrics checks the Prometheus endpoint serves.
func TestAPI_Metrics(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	r := newRouter(db, testConfig())
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /metrics status: got %d, want 200", resp.StatusCode)
	}
}
