package quality

import "errors"

var (
	ErrInvalidDisposition = errors.New("invalid disposition")
	ErrInvalidDefectType  = errors.New("invalid defect type")
	ErrInvalidShift       = errors.New("invalid shift")

	ErrAlertRefRequired  = errors.New("alert ref is required")
	ErrInvalidAlertRef   = errors.New("invalid alert ref")
	ErrInvalidTransition = errors.New("invalid alert state transition")
	ErrInvalidStatus     = errors.New("invalid alert status")

	ErrInvalidRange = errors.New("invalid date range")
	ErrInvalidDate  = errors.New("invalid date")

	ErrInvalidPlanStatus = errors.New("invalid action plan status")
)
