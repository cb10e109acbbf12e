package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Webhook forwards requests to a host notification bridge over HTTP:
//
//	POST   {base}/requests        {"request_id", "fire_at", "payload"}
//	DELETE {base}/requests/{id}
//
// The bridge answers 403 when notifications are not permitted.
type Webhook struct {
	baseURL string
	client  *http.Client
}

// NewWebhook creates a webhook gateway. A zero timeout uses 5s.
func NewWebhook(baseURL string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Webhook{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Schedule posts the request to the bridge.
func (w *Webhook) Schedule(ctx context.Context, requestID string, fireAt time.Time, payload Payload) (Handle, error) {
	body, err := json.Marshal(map[string]any{
		"request_id": requestID,
		"fire_at":    fireAt.UTC().Format(time.RFC3339),
		"payload":    payload,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/requests", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("webhook schedule: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: %s", ErrRejected, bytes.TrimSpace(respBody))
	case resp.StatusCode >= 400:
		return "", fmt.Errorf("webhook schedule status %d: %s", resp.StatusCode, respBody)
	}

	var result struct {
		Handle string `json:"handle"`
	}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &result); err != nil {
			return "", fmt.Errorf("decode response: %w", err)
		}
	}
	if result.Handle == "" {
		result.Handle = requestID
	}
	return Handle(result.Handle), nil
}

// Cancel deletes the request at the bridge. 404 means there was nothing to
// cancel.
func (w *Webhook) Cancel(ctx context.Context, requestID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, w.baseURL+"/requests/"+url.PathEscape(requestID), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook cancel: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode < 400 {
		return nil
	}
	data, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("webhook cancel status %d: %s", resp.StatusCode, data)
}
