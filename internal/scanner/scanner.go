package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docwatch/docwatch/internal/models"
)

// Scanner runs one scan of a subject. The engine behind it is a black box;
// the scheduler only needs the summary counts back.
type Scanner interface {
	Scan(ctx context.Context, subjectContext string) (models.ScanSummary, error)
}

// Client calls an external scan engine over HTTP.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a Client for the engine at baseURL. timeout bounds each
// scan request end to end.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Scan POSTs the subject context to the engine's /scan endpoint and returns
// the summary counts with a completion timestamp.
func (c *Client) Scan(ctx context.Context, subjectContext string) (models.ScanSummary, error) {
	body, _ := json.Marshal(map[string]string{"context": subjectContext})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/scan", bytes.NewReader(body))
	if err != nil {
		return models.ScanSummary{}, fmt.Errorf("scan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return models.ScanSummary{}, fmt.Errorf("scan engine: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.ScanSummary{}, fmt.Errorf("scan engine returned %d: %s", resp.StatusCode, msg)
	}

	var out struct {
		ItemsScanned int `json:"items_scanned"`
		Violations   int `json:"violations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.ScanSummary{}, fmt.Errorf("decode scan response: %w", err)
	}

	return models.ScanSummary{
		ItemsScanned: out.ItemsScanned,
		Violations:   out.Violations,
		CompletedAt:  time.Now(),
	}, nil
}
