// Package loki pushes analysis alerts to Grafana Loki as log lines.
package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"geointel/internal/alerting"
)

// DefaultJob is the job label attached to every stream.
const DefaultJob = "geointel"

// PushRequest is the Loki push API request body (v1).
type PushRequest struct {
	Streams []Stream `json:"streams"`
}

// Stream is a single stream with labels and log entries.
type Stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"` // [timestamp_ns, line]
}

var labelSanitize = regexp.MustCompile(`[^a-zA-Z0-9_\-:]`)

// Emitter pushes alerts to Loki. It satisfies telemetry.AlertEmitter.
type Emitter struct {
	url  string
	job  string
	http *http.Client
	now  func() time.Time
}

// Option configures an Emitter.
type Option func(*Emitter)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Emitter) { e.http = c }
}

// WithJob overrides the job label.
func WithJob(job string) Option {
	return func(e *Emitter) { e.job = job }
}

// NewEmitter returns an emitter for the Loki instance at baseURL (e.g. http://localhost:3100).
func NewEmitter(baseURL string, opts ...Option) (*Emitter, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("loki: base URL is empty")
	}
	e := &Emitter{
		url:  strings.TrimSuffix(baseURL, "/") + "/loki/api/v1/push",
		job:  DefaultJob,
		http: &http.Client{Timeout: 10 * time.Second},
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Emit pushes one alert. The line is the alert JSON; kind and severity become stream labels.
func (e *Emitter) Emit(ctx context.Context, alert alerting.Alert) error {
	line, err := json.Marshal(alert)
	if err != nil {
		return err
	}
	return e.push(ctx, e.now(), string(line), map[string]string{
		"kind":     alert.Kind,
		"severity": alert.Severity,
	})
}

func (e *Emitter) push(ctx context.Context, ts time.Time, line string, labels map[string]string) error {
	streamLabels := make(map[string]string, len(labels)+1)
	streamLabels["job"] = e.job
	for k, v := range labels {
		if s := labelSanitize.ReplaceAllString(strings.TrimSpace(v), "_"); s != "" {
			streamLabels[k] = s
		}
	}
	payload, err := json.Marshal(PushRequest{Streams: []Stream{{
		Stream: streamLabels,
		Values: [][]string{{strconv.FormatInt(ts.UnixNano(), 10), line}},
	}}})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.http.Do(req)
	if err != nil {
		return fmt.Errorf("loki: push: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("loki: push returned %s", resp.Status)
	}
	return nil
}
