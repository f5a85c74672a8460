package mesonet

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/okmeso/okmeso/internal/observability"
)

const (
	geoInfoPath = "api/siteinfo/from_all_active_with_geo_fields/format/csv/"
	dayPathFmt  = "dataMdfMts/dataController/getFile/%s%s/mts/DOWNLOAD/"
)

// Client fetches raw files from the Mesonet web interface with bounded
// retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	attempts   int
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a Mesonet download client. attempts is the total number
// of tries per file, matching the original data-source behavior of two.
func NewClient(baseURL string, timeout time.Duration, attempts int, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		attempts:   attempts,
		logger:     logger,
		metrics:    metrics,
	}
}

// FetchGeoInfo downloads the station metadata CSV.
func (c *Client) FetchGeoInfo(ctx context.Context) ([]byte, error) {
	return c.fetch(ctx, c.baseURL+geoInfoPath)
}

// FetchDay downloads the MTS file for one station and UTC day. Station IDs
// are lower-case in download URLs regardless of their metadata form.
func (c *Client) FetchDay(ctx context.Context, stid string, day time.Time) ([]byte, error) {
	path := fmt.Sprintf(dayPathFmt, day.Format("20060102"), lowerSTID(stid))
	start := time.Now()
	body, err := c.fetch(ctx, c.baseURL+path)
	c.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	return body, err
}

// fetch retrieves a URL, retrying transient failures with exponential backoff:
// start at 200ms, double each retry, cap at 5s.
func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	backoff := 200 * time.Millisecond
	const maxBackoff = 5 * time.Second

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			c.metrics.DownloadRetries.Inc()
			if !sleepWithContext(ctx, backoff) {
				return nil, ctx.Err()
			}
			backoff = nextBackoff(backoff, maxBackoff)
		}

		body, err := c.fetchOnce(ctx, url)
		if err == nil {
			c.metrics.FilesDownloaded.Inc()
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		c.logger.Warn("download attempt failed", "url", url, "attempt", attempt, "error", err)
	}

	c.metrics.DownloadFailures.Inc()
	return nil, fmt.Errorf("download %s after %d attempts: %w", url, c.attempts, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("mesonet returned status %d: %s", resp.StatusCode, body)
	}
	return io.ReadAll(resp.Body)
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
