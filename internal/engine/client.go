// Package engine keeps the go2rtc streaming engine in step with the stream
// registry through its HTTP API.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/smazurov/streamctl/internal/events"
	"github.com/smazurov/streamctl/internal/logging"
	"github.com/smazurov/streamctl/internal/metrics"
	"github.com/smazurov/streamctl/internal/streams"
	"github.com/smazurov/streamctl/internal/version"
)

// Defaults for a go2rtc instance on the same host.
const (
	DefaultURL            = "http://localhost:1984"
	DefaultHealthInterval = time.Second

	requestTimeout = 5 * time.Second
	healthTimeout  = 2 * time.Second
	maxErrorBody   = 512
)

// SourceFunc returns the entries the engine should serve.
type SourceFunc func(ctx context.Context) ([]streams.Entry, error)

// PreserveFunc returns engine stream names SyncAll must not delete.
type PreserveFunc func(ctx context.Context) ([]string, error)

// Client is an HTTP client for the go2rtc API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	source     SourceFunc
	preserve   PreserveFunc
	eventBus   *events.Bus
	logger     *slog.Logger

	// Health monitoring
	interval time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Options configures a Client.
type Options struct {
	// Source lists the desired entries for SyncAll. Required for syncing.
	Source SourceFunc
	// Preserve lists streams the engine serves that are not registry
	// entries. Optional.
	Preserve PreserveFunc
	// EventBus receives EngineStatusEvent on reachability changes.
	EventBus       *events.Bus
	HTTPClient     *http.Client
	HealthInterval time.Duration
}

// NewClient creates a go2rtc API client.
func NewClient(baseURL string, opts Options) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: requestTimeout}
	}
	if opts.HealthInterval <= 0 {
		opts.HealthInterval = DefaultHealthInterval
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: opts.HTTPClient,
		source:     opts.Source,
		preserve:   opts.Preserve,
		eventBus:   opts.EventBus,
		logger:     logging.GetLogger("engine"),
		interval:   opts.HealthInterval,
		stopChan:   make(chan struct{}),
	}
}

// PutStream creates or replaces a stream in the engine.
func (c *Client) PutStream(ctx context.Context, name, connectionString string) error {
	query := url.Values{}
	query.Set("name", name)
	query.Set("src", connectionString)

	err := c.do(ctx, http.MethodPut, query)
	metrics.RecordEngineSync(err)
	if err != nil {
		return fmt.Errorf("failed to put stream %s: %w", name, err)
	}
	c.logger.Debug("Put stream to engine", "name", name, "url", streams.RedactAddress(connectionString))
	return nil
}

// DeleteStream removes a stream from the engine. A missing stream is not an error.
func (c *Client) DeleteStream(ctx context.Context, name string) error {
	query := url.Values{}
	query.Set("src", name)

	err := c.do(ctx, http.MethodDelete, query)
	metrics.RecordEngineSync(err)
	if err != nil {
		return fmt.Errorf("failed to delete stream %s: %w", name, err)
	}
	c.logger.Debug("Deleted stream from engine", "name", name)
	return nil
}

// ListStreams returns the names of the streams the engine currently serves.
func (c *Client) ListStreams(ctx context.Context) ([]string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "")
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list streams: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to list streams, status: %d", resp.StatusCode)
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode stream list: %w", err)
	}
	names := make([]string, 0, len(body))
	for name := range body {
		names = append(names, name)
	}
	return names, nil
}

// Available reports whether the engine API answers.
func (c *Client) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "")
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// SyncAll makes the engine serve exactly the entries of the source: every
// entry is put and engine streams unknown to the source are deleted unless
// preserved.
// Failures of single streams are logged and counted, not returned.
func (c *Client) SyncAll(ctx context.Context) error {
	if c.source == nil {
		return fmt.Errorf("sync source not configured")
	}

	desired, err := c.source(ctx)
	if err != nil {
		return fmt.Errorf("failed to list registry entries: %w", err)
	}
	existing, err := c.ListStreams(ctx)
	if err != nil {
		return fmt.Errorf("failed to list existing streams: %w", err)
	}

	desiredMap := make(map[string]bool, len(desired))
	if c.preserve != nil {
		keep, err := c.preserve(ctx)
		if err != nil {
			return fmt.Errorf("failed to list preserved streams: %w", err)
		}
		for _, name := range keep {
			desiredMap[name] = true
		}
	}
	for _, entry := range desired {
		desiredMap[entry.Name] = true
		if err := c.PutStream(ctx, entry.Name, entry.ConnectionString); err != nil {
			c.logger.Error("Failed to sync stream", "name", entry.Name, "error", err)
		}
	}

	for _, name := range existing {
		if desiredMap[name] {
			continue
		}
		if err := c.DeleteStream(ctx, name); err != nil {
			c.logger.Error("Failed to delete stale stream", "name", name, "error", err)
		}
	}

	c.logger.Info("Synced streams with engine", "count", len(desired))
	return nil
}

// StartHealthMonitor polls the engine and runs SyncAll whenever it comes
// (back) online. Status changes are published on the event bus.
func (c *Client) StartHealthMonitor() {
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			<-c.stopChan
			cancel()
		}()

		wasDown := true
		for {
			select {
			case <-ticker.C:
				if c.Available(ctx) {
					if wasDown {
						c.logger.Info("Engine API is online, syncing all streams")
						c.publishStatus(true)
						if err := c.SyncAll(ctx); err != nil {
							c.logger.Error("Failed to sync streams", "error", err)
						}
					}
					wasDown = false
				} else {
					if !wasDown {
						c.logger.Warn("Engine API is unavailable")
						c.publishStatus(false)
					}
					wasDown = true
				}
			case <-c.stopChan:
				return
			}
		}
	}()
}

// Stop stops the health monitor. It is safe to call more than once.
func (c *Client) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	c.wg.Wait()
}

func (c *Client) publishStatus(online bool) {
	c.eventBus.Publish(events.EngineStatusEvent{
		Online:    online,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *Client) do(ctx context.Context, method string, query url.Values) error {
	req, err := c.newRequest(ctx, method, query.Encode())
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if method == http.MethodDelete && resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("engine returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, rawQuery string) (*http.Request, error) {
	target := c.baseURL + "/api/streams"
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", version.UserAgent())
	return req, nil
}
