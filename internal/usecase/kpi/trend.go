package kpi

import (
	"context"
	"errors"

	"factoryqc/internal/domain/quality"
	"factoryqc/internal/errs"
	"factoryqc/internal/ports"
)

const (
	defaultTrendMonths = 6
	maxTrendMonths     = 36
)

type TrendPoint struct {
	Period    string  `json:"period"`
	Total     int64   `json:"total"`
	Good      int64   `json:"good"`
	Rework    int64   `json:"rework"`
	Scrap     int64   `json:"scrap"`
	ReworkPct float64 `json:"rework_pct"`
	ScrapPct  float64 `json:"scrap_pct"`
	FPYPct    float64 `json:"fpy_pct"`
}

type ClaimPPMPoint struct {
	Month    string  `json:"month"`
	ClaimQty int64   `json:"claim_qty"`
	Total    int64   `json:"total"`
	PPM      float64 `json:"ppm"`
}

type TrendResult struct {
	Months   []TrendPoint    `json:"months"`
	ClaimPPM []ClaimPPMPoint `json:"claim_ppm"`
	Daily    []TrendPoint    `json:"daily"`
}

// Trend builds month buckets for the last monthsBack months (current month
// included) and a daily breakdown of the current month. Empty buckets are
// returned as zeros.
func (s *Service) Trend(ctx context.Context, monthsBack int) (TrendResult, error) {
	if err := checkContext(ctx); err != nil {
		return TrendResult{}, err
	}
	if s.analytics == nil {
		return TrendResult{}, errors.New("analytics repository is required")
	}
	if monthsBack == 0 {
		monthsBack = defaultTrendMonths
	}
	if monthsBack < 0 || monthsBack > maxTrendMonths {
		return TrendResult{}, errs.Validation("months must be between 1 and %d", maxTrendMonths)
	}

	now := s.now().In(s.settings.Location)
	months := quality.MonthsBack(now, monthsBack)
	from := months[0] + "-01"
	to := now.Format(quality.DateLayout)

	monthly, err := s.analytics.MonthlyEventTotals(ctx, from, to)
	if err != nil {
		return TrendResult{}, err
	}
	claims, err := s.analytics.MonthlyClaimQuantities(ctx, from, to)
	if err != nil {
		return TrendResult{}, err
	}
	monthStart := now.Format("2006-01") + "-01"
	daily, err := s.analytics.DailyEventTotals(ctx, monthStart, to)
	if err != nil {
		return TrendResult{}, err
	}

	byMonth := indexTotals(monthly)
	claimsByMonth := make(map[string]int64, len(claims))
	for _, c := range claims {
		claimsByMonth[c.Period] = c.Quantity
	}

	result := TrendResult{
		Months:   make([]TrendPoint, 0, len(months)),
		ClaimPPM: make([]ClaimPPMPoint, 0, len(months)),
	}
	for _, month := range months {
		totals := byMonth[month]
		totals.Period = month
		result.Months = append(result.Months, trendPoint(totals))

		claimQty := claimsByMonth[month]
		result.ClaimPPM = append(result.ClaimPPM, ClaimPPMPoint{
			Month:    month,
			ClaimQty: claimQty,
			Total:    totals.Total,
			PPM:      quality.PPM(claimQty, totals.Total),
		})
	}

	byDay := indexTotals(daily)
	first, _ := quality.ParseDate(monthStart)
	result.Daily = make([]TrendPoint, 0, now.Day())
	for day := 0; day < now.Day(); day++ {
		key := first.AddDate(0, 0, day).Format(quality.DateLayout)
		totals := byDay[key]
		totals.Period = key
		result.Daily = append(result.Daily, trendPoint(totals))
	}
	return result, nil
}

func indexTotals(rows []ports.PeriodTotals) map[string]ports.PeriodTotals {
	out := make(map[string]ports.PeriodTotals, len(rows))
	for _, row := range rows {
		out[row.Period] = row
	}
	return out
}

func trendPoint(t ports.PeriodTotals) TrendPoint {
	return TrendPoint{
		Period:    t.Period,
		Total:     t.Total,
		Good:      t.Good,
		Rework:    t.Rework,
		Scrap:     t.Scrap,
		ReworkPct: quality.Percent(t.Rework, t.Total),
		ScrapPct:  quality.Percent(t.Scrap, t.Total),
		FPYPct:    quality.Percent(t.Good, t.Total),
	}
}
