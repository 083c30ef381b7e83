package kpi

import (
	"context"
	"errors"

	"factoryqc/internal/domain/quality"
)

const dashboardTopDefects = 5

// KPIView is a counter set with every derived percentage.
type KPIView struct {
	TotalProduced    int64   `json:"total_produced"`
	GoodQty          int64   `json:"good_qty"`
	ReworkQty        int64   `json:"rework_qty"`
	ScrapQty         int64   `json:"scrap_qty"`
	ReworkGoodQty    int64   `json:"rework_good_qty"`
	ReworkScrapQty   int64   `json:"rework_scrap_qty"`
	ReworkPendingQty int64   `json:"rework_pending_qty"`
	FinalGood        int64   `json:"final_good"`
	FinalReject      int64   `json:"final_reject"`
	GoodPct          float64 `json:"good_pct"`
	RejectPct        float64 `json:"reject_pct"`
	ReworkPct        float64 `json:"rework_pct"`
	ScrapPct         float64 `json:"scrap_pct"`
	FPYPct           float64 `json:"fpy_pct"`
}

func toKPIView(c quality.Counters) KPIView {
	return KPIView{
		TotalProduced:    c.Total,
		GoodQty:          c.Good,
		ReworkQty:        c.Rework,
		ScrapQty:         c.Scrap,
		ReworkGoodQty:    c.ReworkGood,
		ReworkScrapQty:   c.ReworkScrap,
		ReworkPendingQty: c.ReworkPending,
		FinalGood:        c.FinalGood(),
		FinalReject:      c.FinalReject(),
		GoodPct:          c.GoodPct(),
		RejectPct:        c.RejectPct(),
		ReworkPct:        c.ReworkPct(),
		ScrapPct:         c.ScrapPct(),
		FPYPct:           c.FirstPassYield(),
	}
}

type DashboardResult struct {
	From         string         `json:"from"`
	To           string         `json:"to"`
	Production   KPIView        `json:"production"`
	Inspections  TrendPoint     `json:"inspections"`
	OpenAlerts   int64          `json:"open_alerts"`
	ParetoSource string         `json:"pareto_source"`
	TopDefects   []ParetoDefect `json:"top_defects"`
}

type ValueRow struct {
	MachineCode string `json:"machine_code"`
	MachineName string `json:"machine_name"`
	PartNumber  string `json:"part_number"`
	KPIView
}

type ValuesResult struct {
	From string     `json:"from"`
	To   string     `json:"to"`
	Rows []ValueRow `json:"rows"`
}

// Dashboard aggregates production summaries and single inspections over the
// window, with the open alert count and the top defects. Default window is today.
func (s *Service) Dashboard(ctx context.Context, input RangeInput) (DashboardResult, error) {
	if err := checkContext(ctx); err != nil {
		return DashboardResult{}, err
	}
	if s.analytics == nil || s.alerts == nil {
		return DashboardResult{}, errors.New("analytics and alert repositories are required")
	}

	input.MachineCode = ""
	input.Category = ""
	filter, err := s.rangeFilter(input, quality.RangeToday)
	if err != nil {
		return DashboardResult{}, err
	}

	totals, err := s.analytics.SummaryTotals(ctx, filter)
	if err != nil {
		return DashboardResult{}, err
	}
	entries, err := s.analytics.EntryTotals(ctx, filter)
	if err != nil {
		return DashboardResult{}, err
	}
	open, err := s.alerts.CountOpenAlerts(ctx, filter.LineCode)
	if err != nil {
		return DashboardResult{}, err
	}
	pareto, err := s.pareto(ctx, filter)
	if err != nil {
		return DashboardResult{}, err
	}

	top := pareto.ByDefect
	if len(top) > dashboardTopDefects {
		top = top[:dashboardTopDefects]
	}
	return DashboardResult{
		From:         filter.From,
		To:           filter.To,
		Production:   toKPIView(totals),
		Inspections:  trendPoint(entries),
		OpenAlerts:   open,
		ParetoSource: pareto.Source,
		TopDefects:   top,
	}, nil
}

// Values returns one KPI row per machine and part. Default window is today.
func (s *Service) Values(ctx context.Context, input RangeInput) (ValuesResult, error) {
	if err := checkContext(ctx); err != nil {
		return ValuesResult{}, err
	}
	if s.analytics == nil {
		return ValuesResult{}, errors.New("analytics repository is required")
	}

	input.Category = ""
	filter, err := s.rangeFilter(input, quality.RangeToday)
	if err != nil {
		return ValuesResult{}, err
	}
	rows, err := s.analytics.SummaryTotalsByMachinePart(ctx, filter)
	if err != nil {
		return ValuesResult{}, err
	}

	out := ValuesResult{From: filter.From, To: filter.To, Rows: make([]ValueRow, 0, len(rows))}
	for _, row := range rows {
		out.Rows = append(out.Rows, ValueRow{
			MachineCode: row.MachineCode,
			MachineName: row.MachineName,
			PartNumber:  row.PartNumber,
			KPIView:     toKPIView(row.Counters),
		})
	}
	return out, nil
}
