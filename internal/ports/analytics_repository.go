package ports

import (
	"context"

	"factoryqc/internal/domain/quality"
)

// RangeFilter is the predicate list shared by the read-side queries.
// Empty fields add no predicate; From/To are inclusive YYYY-MM-DD bounds.
type RangeFilter struct {
	From        string
	To          string
	Shift       string
	LineCode    string
	MachineCode string
	Category    string
}

// ParetoRow is one (defect code, machine, part) bucket of defect quantity.
type ParetoRow struct {
	DefectCode  string
	DefectName  string
	Category    string
	MachineCode string
	MachineName string
	PartNumber  string
	Quantity    int64
}

// MachinePartDefects is the coarse tier: summary scrap and rework totals.
type MachinePartDefects struct {
	MachineCode string
	MachineName string
	PartNumber  string
	ScrapQty    int64
	ReworkQty   int64
}

type MachinePartTotals struct {
	MachineCode string
	MachineName string
	PartNumber  string
	Counters    quality.Counters
}

// PeriodTotals groups event quantities by a period key (YYYY-MM or YYYY-MM-DD).
type PeriodTotals struct {
	Period string
	Total  int64
	Good   int64
	Rework int64
	Scrap  int64
}

type PeriodQuantity struct {
	Period   string
	Quantity int64
}

type AnalyticsRepository interface {
	ParetoFromDefectDetails(ctx context.Context, filter RangeFilter) ([]ParetoRow, error)
	ParetoFromEvents(ctx context.Context, filter RangeFilter) ([]ParetoRow, error)
	ParetoFromSummaries(ctx context.Context, filter RangeFilter) ([]MachinePartDefects, error)

	SummaryTotals(ctx context.Context, filter RangeFilter) (quality.Counters, error)
	SummaryTotalsByMachinePart(ctx context.Context, filter RangeFilter) ([]MachinePartTotals, error)
	// EntryTotals sums single-entry inspection events (source=entry) by disposition.
	EntryTotals(ctx context.Context, filter RangeFilter) (PeriodTotals, error)

	MonthlyEventTotals(ctx context.Context, from, to string) ([]PeriodTotals, error)
	DailyEventTotals(ctx context.Context, from, to string) ([]PeriodTotals, error)
	MonthlyClaimQuantities(ctx context.Context, from, to string) ([]PeriodQuantity, error)
}
