// Package httpx performs JSON calls against the REST services the pipeline
// depends on and reports failures as domain.ServiceError.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"wellrag/internal/domain"
)

// maxErrorBody caps how much of a failed response ends up in an error.
const maxErrorBody = 512

// Request describes one JSON round trip.
type Request struct {
	Service string
	Op      string
	Method  string
	URL     string
	Header  http.Header
	Body    any
}

// NewClient returns an http.Client with the given timeout, or 30s when zero.
func NewClient(timeout time.Duration) *http.Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// Do sends r and decodes a 2xx JSON response into out when out is non-nil.
func Do(ctx context.Context, client *http.Client, r Request, out any) error {
	var body io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return fmt.Errorf("%s %s: encode request: %w", r.Service, r.Op, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrConfig, r.Service, r.Op, err)
	}
	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return &domain.ServiceError{Service: r.Service, Op: r.Op, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.ServiceError{Service: r.Service, Op: r.Op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.ServiceError{Service: r.Service, Op: r.Op, StatusCode: resp.StatusCode, Body: truncate(payload)}
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &domain.ServiceError{Service: r.Service, Op: r.Op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func truncate(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) > maxErrorBody {
		return string(b[:maxErrorBody]) + "..."
	}
	return string(b)
}
