package quality

import (
	"errors"
	"testing"
	"time"
)

func TestParseDisposition(t *testing.T) {
	testCases := []struct {
		name    string
		raw     string
		want    Disposition
		wantErr bool
	}{
		{name: "upper", raw: "GOOD", want: DispositionGood},
		{name: "lower with spaces", raw: "  scrap ", want: DispositionScrap},
		{name: "mixed", raw: "Rework", want: DispositionRework},
		{name: "empty", raw: "", wantErr: true},
		{name: "unknown", raw: "NG", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDisposition(tc.raw)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidDisposition) {
					t.Fatalf("ParseDisposition(%q) error = %v, want ErrInvalidDisposition", tc.raw, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDisposition(%q) error = %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("ParseDisposition(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestCountersDerivedValues(t *testing.T) {
	c := Counters{Total: 200, Good: 180, Rework: 12, Scrap: 8, ReworkGood: 10, ReworkScrap: 2}

	if got := c.FinalGood(); got != 190 {
		t.Fatalf("FinalGood() = %d", got)
	}
	if got := c.FinalReject(); got != 10 {
		t.Fatalf("FinalReject() = %d", got)
	}
	if got := c.GoodPct(); got != 95 {
		t.Fatalf("GoodPct() = %v", got)
	}
	if got := c.RejectPct(); got != 5 {
		t.Fatalf("RejectPct() = %v", got)
	}
	if got := c.ReworkPct(); got != 6 {
		t.Fatalf("ReworkPct() = %v", got)
	}
	if got := c.FirstPassYield(); got != 90 {
		t.Fatalf("FirstPassYield() = %v", got)
	}
}

func TestPercentZeroTotal(t *testing.T) {
	c := Counters{Good: 3, Scrap: 2}
	if c.GoodPct() != 0 || c.RejectPct() != 0 || c.ReworkPct() != 0 || c.FirstPassYield() != 0 {
		t.Fatalf("zero total must yield 0 percentages, got good=%v reject=%v", c.GoodPct(), c.RejectPct())
	}
	if got := PPM(5, 0); got != 0 {
		t.Fatalf("PPM(5, 0) = %v", got)
	}
	if got := Percent(1, 3); got != 33.33 {
		t.Fatalf("Percent(1, 3) = %v", got)
	}
}

func TestCountersAdd(t *testing.T) {
	got := Counters{Total: 10, Good: 8, Scrap: 2}.Add(Counters{Total: 5, Good: 5})
	want := Counters{Total: 15, Good: 13, Scrap: 2}
	if got != want {
		t.Fatalf("Add() = %+v, want %+v", got, want)
	}
}

func TestCountConsecutiveScrap(t *testing.T) {
	g, r, s := DispositionGood, DispositionRework, DispositionScrap

	testCases := []struct {
		name        string
		newestFirst []Disposition
		window      int
		want        int
	}{
		{name: "three scrap after good", newestFirst: []Disposition{s, s, s, g}, window: 10, want: 3},
		{name: "good resets", newestFirst: []Disposition{g, s, s, s, g}, window: 10, want: 0},
		{name: "rework breaks run", newestFirst: []Disposition{s, r, s, s}, window: 10, want: 1},
		{name: "window caps run", newestFirst: []Disposition{s, s, s, s, s}, window: 4, want: 4},
		{name: "no events", newestFirst: nil, window: 10, want: 0},
		{name: "zero window uses default", newestFirst: []Disposition{s, s}, window: 0, want: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CountConsecutiveScrap(tc.newestFirst, tc.window); got != tc.want {
				t.Fatalf("CountConsecutiveScrap() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestAlertTransitions(t *testing.T) {
	if err := CheckAcknowledge(AlertTriggered); err != nil {
		t.Fatalf("CheckAcknowledge(triggered) error = %v", err)
	}
	for _, s := range []AlertStatus{AlertAcknowledged, AlertResolved} {
		if err := CheckAcknowledge(s); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("CheckAcknowledge(%s) error = %v", s, err)
		}
	}
	for _, s := range []AlertStatus{AlertTriggered, AlertAcknowledged} {
		if err := CheckResolve(s); err != nil {
			t.Fatalf("CheckResolve(%s) error = %v", s, err)
		}
	}
	if err := CheckResolve(AlertResolved); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("CheckResolve(resolved) error = %v", err)
	}
}

func TestParseAlertStatus(t *testing.T) {
	got, err := ParseAlertStatus(" Acknowledged ")
	if err != nil || got != AlertAcknowledged {
		t.Fatalf("ParseAlertStatus(Acknowledged) = %q, %v", got, err)
	}

	_, err = ParseAlertStatus("closed")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("ParseAlertStatus(closed) error = %v", err)
	}
	if errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("unknown status reported as a transition error: %v", err)
	}
}

func TestElapsedMinutes(t *testing.T) {
	base := time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)

	if got := ElapsedMinutes(base, base.Add(90*time.Second)); got != 1.5 {
		t.Fatalf("ElapsedMinutes(90s) = %v", got)
	}
	if got := ElapsedMinutes(base, base.Add(-time.Minute)); got != 0 {
		t.Fatalf("ElapsedMinutes(negative) = %v", got)
	}
	if got := ElapsedMinutes(base, base.Add(7*time.Minute+14*time.Second)); got != 7.2 {
		t.Fatalf("ElapsedMinutes(7m14s) = %v", got)
	}
}

func TestEscalationLevel(t *testing.T) {
	testCases := []struct {
		streak, threshold, max, want int
	}{
		{streak: 3, threshold: 3, max: 3, want: 1},
		{streak: 5, threshold: 3, max: 3, want: 1},
		{streak: 6, threshold: 3, max: 3, want: 2},
		{streak: 10, threshold: 3, max: 3, want: 3},
		{streak: 1, threshold: 3, max: 3, want: 1},
	}
	for _, tc := range testCases {
		if got := EscalationLevel(tc.streak, tc.threshold, tc.max); got != tc.want {
			t.Fatalf("EscalationLevel(%d,%d,%d) = %d, want %d", tc.streak, tc.threshold, tc.max, got, tc.want)
		}
	}
}

func TestParseAlertRef(t *testing.T) {
	testCases := []struct {
		name    string
		raw     string
		want    AlertRef
		wantErr error
	}{
		{name: "numeric id", raw: "42", want: AlertRef{ID: 42}},
		{name: "alert number", raw: "AND-20260304-0001", want: AlertRef{Number: "AND-20260304-0001"}},
		{name: "lowercase prefix", raw: "and-20260304-0002", want: AlertRef{Number: "AND-20260304-0002"}},
		{name: "empty", raw: " ", wantErr: ErrAlertRefRequired},
		{name: "bare prefix", raw: "AND-", wantErr: ErrInvalidAlertRef},
		{name: "zero id", raw: "0", wantErr: ErrInvalidAlertRef},
		{name: "garbage", raw: "alert-7", wantErr: ErrInvalidAlertRef},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseAlertRef(tc.raw)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("ParseAlertRef(%q) error = %v, want %v", tc.raw, err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAlertRef(%q) error = %v", tc.raw, err)
			}
			if got != tc.want {
				t.Fatalf("ParseAlertRef(%q) = %+v, want %+v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestFormatAlertNumber(t *testing.T) {
	day := time.Date(2026, 3, 4, 23, 59, 0, 0, time.UTC)
	if got := FormatAlertNumber(day, 7); got != "AND-20260304-0007" {
		t.Fatalf("FormatAlertNumber() = %q", got)
	}
}

func TestResolveRange(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		shorthand string
		from, to  string
		fallback  string
		want      DateRange
		wantErr   bool
	}{
		{name: "today default", fallback: RangeToday, want: DateRange{From: "2026-03-14", To: "2026-03-14"}},
		{name: "mtd", shorthand: "MTD", fallback: RangeToday, want: DateRange{From: "2026-03-01", To: "2026-03-14"}},
		{name: "ytd", shorthand: "ytd", fallback: RangeToday, want: DateRange{From: "2026-01-01", To: "2026-03-14"}},
		{name: "explicit overrides", shorthand: "today", from: "2026-02-01", to: "2026-02-28", fallback: RangeToday, want: DateRange{From: "2026-02-01", To: "2026-02-28"}},
		{name: "unknown shorthand", shorthand: "last-week", fallback: RangeToday, wantErr: true},
		{name: "bad date", from: "2026/02/01", fallback: RangeMTD, wantErr: true},
		{name: "inverted", from: "2026-03-10", to: "2026-03-01", fallback: RangeMTD, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveRange(tc.shorthand, tc.from, tc.to, now, tc.fallback)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ResolveRange() error = nil, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveRange() error = %v", err)
			}
			if got != tc.want {
				t.Fatalf("ResolveRange() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestMonthsBack(t *testing.T) {
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	got := MonthsBack(now, 4)
	want := []string{"2025-12", "2026-01", "2026-02", "2026-03"}
	if len(got) != len(want) {
		t.Fatalf("MonthsBack() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MonthsBack()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParsePlanStatus(t *testing.T) {
	if got, err := ParsePlanStatus("In-Progress"); err != nil || got != PlanInProgress {
		t.Fatalf("ParsePlanStatus(In-Progress) = %q, %v", got, err)
	}
	if _, err := ParsePlanStatus("cancelled"); !errors.Is(err, ErrInvalidPlanStatus) {
		t.Fatalf("ParsePlanStatus(cancelled) error = %v", err)
	}
}
