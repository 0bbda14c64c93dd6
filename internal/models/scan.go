package models

import "time"

// ScanSummary is what the scheduler keeps from one scan engine run.
type ScanSummary struct {
	ItemsScanned int       `json:"items_scanned"`
	Violations   int       `json:"violations"`
	CompletedAt  time.Time `json:"completed_at"`
}
