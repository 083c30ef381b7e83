package quality

import (
	"fmt"
	"strings"
)

type PlanStatus string

const (
	PlanOpen       PlanStatus = "open"
	PlanInProgress PlanStatus = "in_progress"
	PlanDone       PlanStatus = "done"
)

func ParsePlanStatus(raw string) (PlanStatus, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")
	switch s := PlanStatus(normalized); s {
	case PlanOpen, PlanInProgress, PlanDone:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPlanStatus, raw)
	}
}
