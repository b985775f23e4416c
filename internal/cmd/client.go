package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

// postJSON posts body (marshaled as JSON, or nil for no body) to path under
// httpAddr and decodes the response into out (if non-nil).
func postJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("servo: encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, httpAddr+path, reader)
	if err != nil {
		return fmt.Errorf("servo: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("servo: calling %s: %w", httpAddr+path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("servo: %s %s: %s: %s", method, path, resp.Status, msg)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("servo: decoding response: %w", err)
	}
	return nil
}

// postJSONRaw is postJSON's sibling for endpoints whose response body isn't
// JSON (the CSV/HDF5 bytes from /data/export).
func postJSONRaw(ctx context.Context, method, path string, body any, out *[]byte) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("servo: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, httpAddr+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("servo: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("servo: calling %s: %w", httpAddr+path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("servo: reading response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("servo: %s %s: %s: %s", method, path, resp.Status, data)
	}
	*out = data
	return nil
}
