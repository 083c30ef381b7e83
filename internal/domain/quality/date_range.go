package quality

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

const (
	RangeToday = "today"
	RangeMTD   = "mtd"
	RangeYTD   = "ytd"
)

// DateRange is an inclusive [From, To] window of YYYY-MM-DD dates.
type DateRange struct {
	From string
	To   string
}

func (r DateRange) String() string { return r.From + ".." + r.To }

func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return t, nil
}

// ResolveRange turns a shorthand (today/mtd/ytd) or explicit from/to into a DateRange.
// Explicit bounds override the shorthand; a missing bound defaults to the shorthand's.
func ResolveRange(shorthand, from, to string, now time.Time, fallback string) (DateRange, error) {
	key := strings.ToLower(strings.TrimSpace(shorthand))
	if key == "" {
		key = fallback
	}

	today := now.Format(DateLayout)
	var out DateRange
	switch key {
	case RangeToday:
		out = DateRange{From: today, To: today}
	case RangeMTD:
		out = DateRange{From: now.Format("2006-01") + "-01", To: today}
	case RangeYTD:
		out = DateRange{From: now.Format("2006") + "-01-01", To: today}
	default:
		return DateRange{}, fmt.Errorf("%w: unknown range %q", ErrInvalidRange, shorthand)
	}

	if f := strings.TrimSpace(from); f != "" {
		if _, err := ParseDate(f); err != nil {
			return DateRange{}, err
		}
		out.From = f
	}
	if t := strings.TrimSpace(to); t != "" {
		if _, err := ParseDate(t); err != nil {
			return DateRange{}, err
		}
		out.To = t
	}
	if out.From > out.To {
		return DateRange{}, fmt.Errorf("%w: from %s is after to %s", ErrInvalidRange, out.From, out.To)
	}
	return out, nil
}

// MonthsBack returns YYYY-MM keys from the oldest to the current month, inclusive.
func MonthsBack(now time.Time, months int) []string {
	if months <= 0 {
		months = 1
	}
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	out := make([]string, 0, months)
	for i := months - 1; i >= 0; i-- {
		out = append(out, first.AddDate(0, -i, 0).Format("2006-01"))
	}
	return out
}
