package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/docwatch/docwatch/internal/models"
	"github.com/docwatch/docwatch/internal/notify"
	"github.com/docwatch/docwatch/internal/scanner"
)

// FireResult is the outcome of one firing. Collaborator failures live in the
// error fields; Fire itself never panics or errors across the boundary.
type FireResult struct {
	Summary   models.ScanSummary `json:"summary"`
	ScanErr   error              `json:"-"`
	NotifyErr error              `json:"-"`
}

// Status is the firing outcome label: ok, scan_failed, or notify_failed.
func (r FireResult) Status() string {
	switch {
	case r.ScanErr != nil:
		return "scan_failed"
	case r.NotifyErr != nil:
		return "notify_failed"
	default:
		return "ok"
	}
}

// Err returns the collaborator error, if any.
func (r FireResult) Err() error {
	if r.ScanErr != nil {
		return r.ScanErr
	}
	return r.NotifyErr
}

// Dispatcher orchestrates one firing: scan, build payload, notify. It holds
// no state between calls.
type Dispatcher struct {
	Scanner       scanner.Scanner
	Notifier      notify.Notifier
	ScanTimeout   time.Duration
	NotifyTimeout time.Duration
}

const (
	defaultScanTimeout   = 10 * time.Minute
	defaultNotifyTimeout = 30 * time.Second
)

// Fire runs the scan for s and delivers the summary to its recipient. Both
// collaborator calls are bounded by the dispatcher's timeouts.
func (d *Dispatcher) Fire(ctx context.Context, s models.Schedule) FireResult {
	var res FireResult

	summary, err := d.runScan(ctx, s)
	if err != nil {
		res.ScanErr = err
		return res
	}
	res.Summary = summary

	if err := d.sendNotify(ctx, s, summary); err != nil {
		res.NotifyErr = err
	}
	return res
}

func (d *Dispatcher) runScan(ctx context.Context, s models.Schedule) (summary models.ScanSummary, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("scan %s: panic: %v", s.SubjectID, rec)
		}
	}()

	timeout := d.ScanTimeout
	if timeout <= 0 {
		timeout = defaultScanTimeout
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	summary, err = d.Scanner.Scan(sctx, s.SubjectContext)
	if err != nil {
		err = fmt.Errorf("scan %s: %w", s.SubjectID, err)
	}
	return summary, err
}

func (d *Dispatcher) sendNotify(ctx context.Context, s models.Schedule, summary models.ScanSummary) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("notify %s: panic: %v", s.Recipient, rec)
		}
	}()

	timeout := d.NotifyTimeout
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	nctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p := notify.Payload{
		SubjectName: s.SubjectName,
		Summary:     summary,
		FiredAt:     time.Now(),
	}
	if err := d.Notifier.Notify(nctx, s.Recipient, p); err != nil {
		return fmt.Errorf("notify %s: %w", s.Recipient, err)
	}
	return nil
}
