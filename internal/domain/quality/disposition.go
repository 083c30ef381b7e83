package quality

import (
	"fmt"
	"strings"
)

// Disposition is the quality outcome of one inspected unit.
type Disposition string

const (
	DispositionGood   Disposition = "GOOD"
	DispositionRework Disposition = "REWORK"
	DispositionScrap  Disposition = "SCRAP"
)

func ParseDisposition(raw string) (Disposition, error) {
	switch d := Disposition(strings.ToUpper(strings.TrimSpace(raw))); d {
	case DispositionGood, DispositionRework, DispositionScrap:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDisposition, raw)
	}
}

// IsDefect reports whether the unit needs a defect classification.
func (d Disposition) IsDefect() bool {
	return d == DispositionRework || d == DispositionScrap
}

// DefectType classifies a DefectDetail row.
type DefectType string

const (
	DefectTypeRework DefectType = "rework"
	DefectTypeScrap  DefectType = "scrap"
)

func ParseDefectType(raw string) (DefectType, error) {
	switch t := DefectType(strings.ToLower(strings.TrimSpace(raw))); t {
	case DefectTypeRework, DefectTypeScrap:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDefectType, raw)
	}
}

const maxShiftLength = 16

// NormalizeShift upper-cases a shift label. Empty is allowed and means "unspecified".
func NormalizeShift(raw string) (string, error) {
	shift := strings.ToUpper(strings.TrimSpace(raw))
	if len(shift) > maxShiftLength || strings.ContainsAny(shift, " \t\r\n") {
		return "", fmt.Errorf("%w: %q", ErrInvalidShift, raw)
	}
	return shift, nil
}
