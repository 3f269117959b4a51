package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const userAgent = "stitch/0.1"

type ntfyNotifier struct {
	endpoint string
	client   *http.Client
}

// NewNtfy publishes messages to an ntfy topic URL.
func NewNtfy(endpoint string, timeout time.Duration) Notifier {
	return &ntfyNotifier{
		endpoint: strings.TrimSpace(endpoint),
		client:   &http.Client{Timeout: defaultTimeout(timeout)},
	}
}

func (n *ntfyNotifier) Notify(ctx context.Context, msg Message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.Body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.Title != "" {
		req.Header.Set("Title", msg.Title)
	}
	tags, priority := ntfyStyle(msg.Event)
	if tags != "" {
		req.Header.Set("Tags", tags)
	}
	if priority != "" {
		req.Header.Set("Priority", priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func ntfyStyle(event Event) (tags, priority string) {
	switch event {
	case EventMergeSucceeded:
		return "stitch,merge,white_check_mark", ""
	case EventMergeFailed:
		return "stitch,merge,x", "high"
	case EventMergeCancelled:
		return "stitch,merge,warning", ""
	case EventMergeStarted:
		return "stitch,merge", "low"
	case EventRetentionReaped:
		return "stitch,retention,wastebasket", "low"
	case EventTest:
		return "stitch,test", "low"
	}
	return "stitch", ""
}
