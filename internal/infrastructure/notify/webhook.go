package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"factoryqc/internal/bootstrap/logging"
	"factoryqc/internal/errs"
	"factoryqc/internal/ports"
)

// WebhookNotifier POSTs alert notifications to an HTTP endpoint behind a
// circuit breaker, so a dead receiver stops costing a timeout per alert.
type WebhookNotifier struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[struct{}]
}

var _ ports.Notifier = (*WebhookNotifier)(nil)

type WebhookOptions struct {
	URL              string
	Timeout          time.Duration
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before a trial request.
	OpenTimeout time.Duration
	Client      *http.Client
}

func NewWebhookNotifier(opts WebhookOptions) *WebhookNotifier {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	threshold := opts.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "andon-webhook",
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn(context.Background(), "circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return &WebhookNotifier{url: opts.URL, client: client, breaker: breaker}
}

// State reports the breaker state (closed, half-open, open).
func (w *WebhookNotifier) State() string {
	return w.breaker.State().String()
}

func (w *WebhookNotifier) Notify(ctx context.Context, note ports.AlertNotification) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	payload, err := json.Marshal(note)
	if err != nil {
		return errs.Wrap(err, "marshal alert notification")
	}

	_, err = w.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, w.post(ctx, payload)
	})
	if err != nil {
		return errs.Wrap(err, "deliver webhook")
	}
	return nil
}

func (w *WebhookNotifier) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return errs.Wrap(err, "build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return errs.Wrap(err, "post webhook")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
