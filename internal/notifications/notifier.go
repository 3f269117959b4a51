package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stitch/internal/config"
)

// Event classifies a notification so transports can pick tags and priority.
type Event string

const (
	EventMergeStarted    Event = "merge_started"
	EventMergeSucceeded  Event = "merge_succeeded"
	EventMergeFailed     Event = "merge_failed"
	EventMergeCancelled  Event = "merge_cancelled"
	EventRetentionReaped Event = "retention_reaped"
	EventTest            Event = "test"
)

// Message is one notification.
type Message struct {
	Event Event
	Title string
	Body  string
}

// Notifier delivers a message.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// NewService builds the notifier for cfg: ntfy when a topic is configured,
// plus any extra notifiers. With nothing configured it returns a no-op.
func NewService(cfg *config.Config, extra ...Notifier) Notifier {
	var notifiers []Notifier
	if cfg != nil {
		if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
			notifiers = append(notifiers, NewNtfy(topic, cfg.NotifyTimeout()))
		}
	}
	notifiers = append(notifiers, extra...)
	return Fanout(notifiers...)
}

// Fanout returns a notifier that delivers to each non-nil notifier in order
// and joins their errors.
func Fanout(notifiers ...Notifier) Notifier {
	filtered := make([]Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n == nil {
			continue
		}
		if _, ok := n.(noopNotifier); ok {
			continue
		}
		filtered = append(filtered, n)
	}
	switch len(filtered) {
	case 0:
		return noopNotifier{}
	case 1:
		return filtered[0]
	}
	return fanout(filtered)
}

type fanout []Notifier

func (f fanout) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Noop returns a notifier that discards messages.
func Noop() Notifier {
	return noopNotifier{}
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, Message) error { return nil }

// IsNoop reports whether n discards everything.
func IsNoop(n Notifier) bool {
	_, ok := n.(noopNotifier)
	return n == nil || ok
}

// TestMessage is sent by `stitch test-notify`.
func TestMessage() Message {
	return Message{Event: EventTest, Title: "stitch - Test", Body: "Notification system test"}
}

// SucceededMessage reports a finished merge.
func SucceededMessage(output string, inputs int, size string) Message {
	body := fmt.Sprintf("Merged %d segments into %s", inputs, output)
	if size != "" {
		body += " (" + size + ")"
	}
	return Message{Event: EventMergeSucceeded, Title: "stitch - Merge complete", Body: body}
}

// FailedMessage reports a merge that did not produce output.
func FailedMessage(err error) Message {
	reason := "unknown error"
	if err != nil {
		reason = strings.TrimSpace(err.Error())
	}
	return Message{Event: EventMergeFailed, Title: "stitch - Merge failed", Body: reason}
}

// CancelledMessage reports a merge stopped by the user.
func CancelledMessage(output string) Message {
	return Message{Event: EventMergeCancelled, Title: "stitch - Merge cancelled", Body: "Cancelled while writing " + output}
}

func defaultTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return 10 * time.Second
	}
	return timeout
}
