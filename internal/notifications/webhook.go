package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookSender POSTs each Event as JSON to a fixed URL, adapted from
// CineVault's notifications webhook sender.
type WebhookSender struct {
	URL        string
	HTTPClient *http.Client
}

// NewWebhookSender creates a sender with a conservative default timeout —
// notification delivery must never stall the pipeline that produced it.
func NewWebhookSender(url string) *WebhookSender {
	return &WebhookSender{URL: url, HTTPClient: &http.Client{Timeout: 5 * time.Second}}
}

func (w *WebhookSender) Send(ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	resp, err := w.HTTPClient.Post(w.URL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: non-2xx status %d", resp.StatusCode)
	}
	return nil
}
