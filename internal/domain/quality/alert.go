package quality

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type AlertStatus string

const (
	AlertTriggered    AlertStatus = "triggered"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
)

const AlertTypeConsecutiveNG = "consecutive_ng"

const AlertNumberPrefix = "AND-"

func ParseAlertStatus(raw string) (AlertStatus, error) {
	switch s := AlertStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case AlertTriggered, AlertAcknowledged, AlertResolved:
		return s, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidStatus, raw)
	}
}

// IsOpen reports whether the alert still blocks a new trigger for its machine.
func (s AlertStatus) IsOpen() bool {
	return s == AlertTriggered || s == AlertAcknowledged
}

// CheckAcknowledge allows acknowledging only a freshly triggered alert.
func CheckAcknowledge(current AlertStatus) error {
	if current != AlertTriggered {
		return fmt.Errorf("%w: cannot acknowledge alert in status %s", ErrInvalidTransition, current)
	}
	return nil
}

// CheckResolve allows resolving from triggered or acknowledged.
func CheckResolve(current AlertStatus) error {
	if !current.IsOpen() {
		return fmt.Errorf("%w: cannot resolve alert in status %s", ErrInvalidTransition, current)
	}
	return nil
}

// ElapsedMinutes is (to - from) in minutes rounded to one decimal, never negative.
func ElapsedMinutes(from, to time.Time) float64 {
	if from.IsZero() || to.Before(from) {
		return 0
	}
	return Round(to.Sub(from).Minutes(), 1)
}

// EscalationLevel maps a streak to a level in [1, maxLevel].
func EscalationLevel(streak, threshold, maxLevel int) int {
	if threshold <= 0 {
		threshold = 1
	}
	if maxLevel <= 0 {
		maxLevel = 1
	}
	level := streak / threshold
	if level < 1 {
		level = 1
	}
	if level > maxLevel {
		level = maxLevel
	}
	return level
}

// AlertRef selects an alert either by numeric id or by alert number.
type AlertRef struct {
	ID     uint64
	Number string
}

func (r AlertRef) String() string {
	if r.Number != "" {
		return r.Number
	}
	return strconv.FormatUint(r.ID, 10)
}

// ParseAlertRef branches on the AND- prefix: prefixed refs are alert numbers,
// everything else must be a positive integer id.
func ParseAlertRef(raw string) (AlertRef, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return AlertRef{}, ErrAlertRefRequired
	}

	if strings.HasPrefix(strings.ToUpper(trimmed), AlertNumberPrefix) {
		number := strings.ToUpper(trimmed)
		if len(number) == len(AlertNumberPrefix) {
			return AlertRef{}, fmt.Errorf("%w: %q", ErrInvalidAlertRef, raw)
		}
		return AlertRef{Number: number}, nil
	}

	id, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil || id == 0 {
		return AlertRef{}, fmt.Errorf("%w: %q", ErrInvalidAlertRef, raw)
	}
	return AlertRef{ID: id}, nil
}

// FormatAlertNumber renders AND-YYYYMMDD-NNNN.
func FormatAlertNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("%s%s-%04d", AlertNumberPrefix, day.Format("20060102"), seq)
}
