package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/docwatch/docwatch/internal/models"
)

// Payload is the content of one scan notification.
type Payload struct {
	SubjectName string
	Summary     models.ScanSummary
	FiredAt     time.Time
}

// Notifier delivers a scan summary to a recipient. Failures are reported to
// the caller but not retried here.
type Notifier interface {
	Notify(ctx context.Context, recipient string, p Payload) error
}

// Subject is the one-line headline for a notification.
func (p Payload) Subject() string {
	return fmt.Sprintf("Scan report: %s", p.SubjectName)
}

// Body is the plain-text notification body.
func (p Payload) Body() string {
	return fmt.Sprintf(
		"Subject: %s\nItems scanned: %d\nViolations found: %d\nScan completed: %s\nFired: %s\n",
		p.SubjectName,
		p.Summary.ItemsScanned,
		p.Summary.Violations,
		p.Summary.CompletedAt.Format(time.RFC3339),
		p.FiredAt.Format(time.RFC3339),
	)
}
