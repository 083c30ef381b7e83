package kpi

import (
	"context"
	"testing"
	"time"

	"factoryqc/internal/errs"
)

func (e *testEnv) recordAt(t *testing.T, machine, disposition, defectCode string, qty int64, at time.Time) {
	t.Helper()
	_, err := e.svc.RecordEvent(context.Background(), RecordEventInput{
		MachineCode:  machine,
		PartNumber:   "P-100",
		Disposition:  disposition,
		DefectCode:   defectCode,
		Quantity:     qty,
		OperatorName: "op1",
		InspectedAt:  &at,
	})
	if err != nil {
		t.Fatalf("RecordEvent(%s, %s, %d) error = %v", machine, disposition, qty, err)
	}
}

func TestParetoFallsBackThroughSources(t *testing.T) {
	env := setupEnv(t, DefaultSettings())
	ctx := context.Background()

	got, err := env.svc.Pareto(ctx, RangeInput{})
	if err != nil {
		t.Fatalf("Pareto(empty) error = %v", err)
	}
	if got.Source != ParetoSourceNone || got.Total != 0 {
		t.Fatalf("empty pareto = %+v", got)
	}
	if got.ByDefect == nil || got.ByCategory == nil || got.ByMachine == nil || got.ByMachinePart == nil {
		t.Fatalf("empty pareto slices must be non-nil: %+v", got)
	}
	if got.From != "2026-03-01" || got.To != "2026-03-04" {
		t.Fatalf("default window = %s..%s, want month to date", got.From, got.To)
	}

	// Summaries only: fan-out events carry no defect code.
	if _, err := env.svc.SubmitProduction(ctx, baseSubmission()); err != nil {
		t.Fatalf("SubmitProduction() error = %v", err)
	}
	got, err = env.svc.Pareto(ctx, RangeInput{})
	if err != nil {
		t.Fatalf("Pareto(summaries) error = %v", err)
	}
	if got.Source != ParetoSourceSummaries || got.Total != 10 {
		t.Fatalf("summaries pareto source=%s total=%d", got.Source, got.Total)
	}
	if len(got.ByMachinePart) != 1 || got.ByMachinePart[0].ScrapQty != 4 || got.ByMachinePart[0].ReworkQty != 6 {
		t.Fatalf("by_machine_part = %+v", got.ByMachinePart)
	}
	if got.ByMachinePart[0].CumulativePct != 100 || len(got.ByDefect) != 0 {
		t.Fatalf("summaries tier = %+v", got)
	}

	env.recordAt(t, "M-01", "SCRAP", "D01", 3, testStart)
	env.recordAt(t, "M-02", "REWORK", "D02", 1, testStart)
	got, err = env.svc.Pareto(ctx, RangeInput{})
	if err != nil {
		t.Fatalf("Pareto(events) error = %v", err)
	}
	if got.Source != ParetoSourceEvents || got.Total != 4 {
		t.Fatalf("events pareto source=%s total=%d", got.Source, got.Total)
	}
	if got.ByDefect[0].DefectCode != "D01" || got.ByDefect[0].Pct != 75 || got.ByDefect[1].CumulativePct != 100 {
		t.Fatalf("events by_defect = %+v", got.ByDefect)
	}
	if got.ByDefect[0].DefectName != "Scratch" || got.ByDefect[0].Category != "surface" {
		t.Fatalf("defect metadata = %+v", got.ByDefect[0])
	}

	in := baseSubmission()
	in.DefectItems = []DefectItemInput{
		{DefectCode: "D01", DefectType: "scrap", Quantity: 2},
		{DefectCode: "D02", DefectType: "rework", Quantity: 5},
		{DefectCode: "LEGACY-9", DefectType: "rework", Quantity: 3},
	}
	res, err := env.svc.SubmitProduction(ctx, in)
	if err != nil {
		t.Fatalf("SubmitProduction(defects) error = %v", err)
	}
	if len(res.Warnings) != 1 {
		t.Fatalf("unknown defect code warning missing: %v", res.Warnings)
	}

	got, err = env.svc.Pareto(ctx, RangeInput{})
	if err != nil {
		t.Fatalf("Pareto(details) error = %v", err)
	}
	if got.Source != ParetoSourceDefectDetails || got.Total != 10 {
		t.Fatalf("details pareto source=%s total=%d", got.Source, got.Total)
	}
	wantDefects := []struct {
		code string
		pct  float64
		cum  float64
	}{
		{code: "D02", pct: 50, cum: 50},
		{code: unclassifiedDefect, pct: 30, cum: 80},
		{code: "D01", pct: 20, cum: 100},
	}
	if len(got.ByDefect) != len(wantDefects) {
		t.Fatalf("by_defect = %+v", got.ByDefect)
	}
	for i, want := range wantDefects {
		d := got.ByDefect[i]
		if d.DefectCode != want.code || d.Pct != want.pct || d.CumulativePct != want.cum {
			t.Fatalf("by_defect[%d] = %+v, want %+v", i, d, want)
		}
	}
	if got.ByCategory[0].Key != "dimension" || got.ByCategory[1].Key != unclassifiedDefect || got.ByCategory[2].Key != "surface" {
		t.Fatalf("by_category = %+v", got.ByCategory)
	}
	if len(got.ByMachine) != 1 || got.ByMachine[0].Key != "M-01" || got.ByMachine[0].Name != "Press 1" {
		t.Fatalf("by_machine = %+v", got.ByMachine)
	}
}

func TestParetoDropsToSummariesWhenDetailsDeleted(t *testing.T) {
	env := setupEnv(t, DefaultSettings())
	ctx := context.Background()

	in := baseSubmission()
	in.DefectItems = []DefectItemInput{
		{DefectCode: "D01", DefectType: "scrap", Quantity: 4},
		{DefectCode: "D02", DefectType: "rework", Quantity: 6},
	}
	res, err := env.svc.SubmitProduction(ctx, in)
	if err != nil {
		t.Fatalf("SubmitProduction() error = %v", err)
	}

	got, err := env.svc.Pareto(ctx, RangeInput{})
	if err != nil {
		t.Fatalf("Pareto(details) error = %v", err)
	}
	if got.Source != ParetoSourceDefectDetails {
		t.Fatalf("source = %s, want %s", got.Source, ParetoSourceDefectDetails)
	}

	for _, d := range res.Defects {
		if err := env.svc.DeleteDefect(ctx, d.ID); err != nil {
			t.Fatalf("DeleteDefect(%d) error = %v", d.ID, err)
		}
	}

	got, err = env.svc.Pareto(ctx, RangeInput{})
	if err != nil {
		t.Fatalf("Pareto(after delete) error = %v", err)
	}
	if got.Source != ParetoSourceSummaries || got.Total != 10 {
		t.Fatalf("after delete source=%s total=%d, want %s total=10", got.Source, got.Total, ParetoSourceSummaries)
	}
	if len(got.ByDefect) != 0 || len(got.ByMachinePart) != 1 {
		t.Fatalf("summaries tier = %+v", got)
	}
}

func TestParetoPredicates(t *testing.T) {
	env := setupEnv(t, DefaultSettings())
	ctx := context.Background()

	in := baseSubmission()
	in.DefectItems = []DefectItemInput{
		{DefectCode: "D01", DefectType: "scrap", Quantity: 2},
		{DefectCode: "D02", DefectType: "rework", Quantity: 5},
	}
	if _, err := env.svc.SubmitProduction(ctx, in); err != nil {
		t.Fatalf("SubmitProduction() error = %v", err)
	}

	got, err := env.svc.Pareto(ctx, RangeInput{Category: "surface"})
	if err != nil {
		t.Fatalf("Pareto(category) error = %v", err)
	}
	if got.Source != ParetoSourceDefectDetails || got.Total != 2 || len(got.ByDefect) != 1 {
		t.Fatalf("category filter = %+v", got)
	}

	got, err = env.svc.Pareto(ctx, RangeInput{LineCode: "L1", Shift: "a"})
	if err != nil {
		t.Fatalf("Pareto(line, shift) error = %v", err)
	}
	if got.Total != 7 {
		t.Fatalf("line+shift total = %d", got.Total)
	}

	got, err = env.svc.Pareto(ctx, RangeInput{MachineCode: "M-02"})
	if err != nil {
		t.Fatalf("Pareto(machine) error = %v", err)
	}
	if got.Source != ParetoSourceNone {
		t.Fatalf("other machine source = %s", got.Source)
	}

	got, err = env.svc.Pareto(ctx, RangeInput{Range: "today", From: "2026-02-01", To: "2026-02-28"})
	if err != nil {
		t.Fatalf("Pareto(explicit) error = %v", err)
	}
	if got.From != "2026-02-01" || got.Source != ParetoSourceNone {
		t.Fatalf("explicit bounds must override the shorthand: %+v", got)
	}

	testCases := []RangeInput{
		{Range: "weekly"},
		{From: "2026-03-05", To: "2026-03-01"},
		{From: "2026/03/01"},
		{Shift: "night shift"},
	}
	for _, tc := range testCases {
		_, err := env.svc.Pareto(ctx, tc)
		assertKind(t, err, errs.KindValidation)
	}
}

func TestTrendZeroFillsMonthsAndDays(t *testing.T) {
	env := setupEnv(t, DefaultSettings())
	ctx := context.Background()

	env.recordAt(t, "M-01", "GOOD", "", 10, time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC))
	env.recordAt(t, "M-01", "GOOD", "", 8, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	env.recordAt(t, "M-01", "SCRAP", "D01", 2, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	if _, err := env.svc.CreateClaim(ctx, CreateClaimInput{
		ClaimNumber:  "C-1",
		ClaimDate:    "2026-03-03",
		CustomerName: "ACME",
		Quantity:     1,
	}); err != nil {
		t.Fatalf("CreateClaim() error = %v", err)
	}

	got, err := env.svc.Trend(ctx, 0)
	if err != nil {
		t.Fatalf("Trend() error = %v", err)
	}
	if len(got.Months) != 6 || got.Months[0].Period != "2025-10" || got.Months[5].Period != "2026-03" {
		t.Fatalf("months = %+v", got.Months)
	}
	if got.Months[0].Total != 0 || got.Months[0].FPYPct != 0 {
		t.Fatalf("empty month must be zero: %+v", got.Months[0])
	}
	if jan := got.Months[3]; jan.Period != "2026-01" || jan.Total != 10 || jan.FPYPct != 100 {
		t.Fatalf("january = %+v", jan)
	}
	march := got.Months[5]
	if march.Total != 10 || march.Scrap != 2 || march.ScrapPct != 20 || march.FPYPct != 80 {
		t.Fatalf("march = %+v", march)
	}

	if len(got.ClaimPPM) != 6 {
		t.Fatalf("claim ppm points = %d", len(got.ClaimPPM))
	}
	if p := got.ClaimPPM[5]; p.ClaimQty != 1 || p.Total != 10 || p.PPM != 100000 {
		t.Fatalf("march claim ppm = %+v", p)
	}
	if p := got.ClaimPPM[3]; p.PPM != 0 {
		t.Fatalf("january claim ppm = %+v", p)
	}

	if len(got.Daily) != 4 || got.Daily[0].Period != "2026-03-01" || got.Daily[3].Period != "2026-03-04" {
		t.Fatalf("daily = %+v", got.Daily)
	}
	if got.Daily[1].Total != 10 || got.Daily[0].Total != 0 {
		t.Fatalf("daily totals = %+v", got.Daily)
	}

	for _, months := range []int{-1, 37} {
		_, err := env.svc.Trend(ctx, months)
		assertKind(t, err, errs.KindValidation)
	}
}

func TestDashboardCombinesSources(t *testing.T) {
	env := setupEnv(t, DefaultSettings())
	ctx := context.Background()

	if _, err := env.svc.SubmitProduction(ctx, baseSubmission()); err != nil {
		t.Fatalf("SubmitProduction() error = %v", err)
	}
	env.record(t, "M-01", "GOOD", "")
	env.record(t, "M-01", "GOOD", "")
	env.scrap(t, "M-01", 3)

	got, err := env.svc.Dashboard(ctx, RangeInput{})
	if err != nil {
		t.Fatalf("Dashboard() error = %v", err)
	}
	if got.From != "2026-03-04" || got.To != "2026-03-04" {
		t.Fatalf("default window = %s..%s", got.From, got.To)
	}
	if got.Production.TotalProduced != 100 || got.Production.GoodPct != 95 || got.Production.FPYPct != 90 {
		t.Fatalf("production = %+v", got.Production)
	}
	if got.Inspections.Total != 5 || got.Inspections.Scrap != 3 || got.Inspections.ScrapPct != 60 {
		t.Fatalf("inspections = %+v", got.Inspections)
	}
	if got.OpenAlerts != 1 {
		t.Fatalf("open alerts = %d", got.OpenAlerts)
	}
	if got.ParetoSource != ParetoSourceEvents || len(got.TopDefects) != 1 || got.TopDefects[0].DefectCode != "D01" {
		t.Fatalf("pareto = %s %+v", got.ParetoSource, got.TopDefects)
	}

	other, err := env.svc.Dashboard(ctx, RangeInput{LineCode: "L2"})
	if err != nil {
		t.Fatalf("Dashboard(L2) error = %v", err)
	}
	if other.OpenAlerts != 0 || other.Production.TotalProduced != 0 || other.Inspections.Total != 0 {
		t.Fatalf("line filter leaked: %+v", other)
	}
}

func TestValuesOneRowPerMachinePart(t *testing.T) {
	env := setupEnv(t, DefaultSettings())
	ctx := context.Background()

	if _, err := env.svc.SubmitProduction(ctx, baseSubmission()); err != nil {
		t.Fatalf("SubmitProduction() error = %v", err)
	}
	second := baseSubmission()
	second.MachineCode = "M-02"
	second.PartNumber = "P-200"
	second.TotalProduced, second.GoodQty, second.ReworkQty, second.ScrapQty = 40, 40, 0, 0
	second.ReworkGoodQty, second.ReworkScrapQty = 0, 0
	if _, err := env.svc.SubmitProduction(ctx, second); err != nil {
		t.Fatalf("SubmitProduction() error = %v", err)
	}

	got, err := env.svc.Values(ctx, RangeInput{})
	if err != nil {
		t.Fatalf("Values() error = %v", err)
	}
	if len(got.Rows) != 2 || got.Rows[0].MachineCode != "M-01" || got.Rows[1].PartNumber != "P-200" {
		t.Fatalf("rows = %+v", got.Rows)
	}
	if got.Rows[1].GoodPct != 100 || got.Rows[0].RejectPct != 5 {
		t.Fatalf("row kpis = %+v", got.Rows)
	}

	got, err = env.svc.Values(ctx, RangeInput{MachineCode: "M-02"})
	if err != nil {
		t.Fatalf("Values(M-02) error = %v", err)
	}
	if len(got.Rows) != 1 || got.Rows[0].MachineName != "Press 2" {
		t.Fatalf("filtered rows = %+v", got.Rows)
	}

	got, err = env.svc.Values(ctx, RangeInput{Range: "ytd", To: "2026-02-28"})
	if err != nil {
		t.Fatalf("Values(ytd) error = %v", err)
	}
	if len(got.Rows) != 0 || got.Rows == nil {
		t.Fatalf("out of window rows = %+v", got.Rows)
	}
}
