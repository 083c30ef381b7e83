package notify

import (
	"context"
	"errors"

	"factoryqc/internal/ports"
)

// Multi fans a notification out to every notifier and joins their errors.
type Multi []ports.Notifier

var _ ports.Notifier = Multi(nil)

func (m Multi) Notify(ctx context.Context, note ports.AlertNotification) error {
	var all []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, note); err != nil {
			all = append(all, err)
		}
	}
	return errors.Join(all...)
}

// Noop drops every notification.
type Noop struct{}

func (Noop) Notify(context.Context, ports.AlertNotification) error { return nil }
