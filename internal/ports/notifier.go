package ports

import (
	"context"
	"time"
)

const (
	AlertEventTriggered    = "triggered"
	AlertEventEscalated    = "escalated"
	AlertEventAcknowledged = "acknowledged"
	AlertEventResolved     = "resolved"
)

// AlertNotification is the payload published for an Andon lifecycle change.
type AlertNotification struct {
	Event           string    `json:"event"`
	AlertNumber     string    `json:"alert_number"`
	MachineCode     string    `json:"machine_code"`
	Status          string    `json:"status"`
	EscalationLevel int       `json:"escalation_level"`
	ConsecutiveNG   int       `json:"consecutive_ng"`
	Description     string    `json:"description,omitempty"`
	Assignee        string    `json:"assignee,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Notifier delivers alert notifications. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, n AlertNotification) error
}
