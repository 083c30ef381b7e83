package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"factoryqc/internal/domain/quality"
	"factoryqc/internal/ports"
)

// AnalyticsRepository runs the read-side aggregate queries. Every predicate is
// parameterized; RangeFilter fields map one to one onto WHERE clauses.
type AnalyticsRepository struct {
	db *gorm.DB
}

var _ ports.AnalyticsRepository = (*AnalyticsRepository)(nil)

func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

const sumDispositionSQL = "CAST(COALESCE(SUM(e.quantity), 0) AS BIGINT) AS total, " +
	"CAST(COALESCE(SUM(CASE WHEN e.disposition = 'GOOD' THEN e.quantity ELSE 0 END), 0) AS BIGINT) AS good, " +
	"CAST(COALESCE(SUM(CASE WHEN e.disposition = 'REWORK' THEN e.quantity ELSE 0 END), 0) AS BIGINT) AS rework, " +
	"CAST(COALESCE(SUM(CASE WHEN e.disposition = 'SCRAP' THEN e.quantity ELSE 0 END), 0) AS BIGINT) AS scrap"

func (r *AnalyticsRepository) ParetoFromDefectDetails(ctx context.Context, filter ports.RangeFilter) ([]ports.ParetoRow, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Table("defect_details AS d").
		Select("COALESCE(dc.code, '') AS defect_code, COALESCE(dc.name, '') AS defect_name, " +
			"COALESCE(dc.category, '') AS category, m.code AS machine_code, m.name AS machine_name, " +
			"s.part_number AS part_number, CAST(SUM(d.quantity) AS BIGINT) AS quantity").
		Joins("JOIN daily_production_summaries AS s ON s.id = d.summary_id").
		Joins("JOIN machines AS m ON m.id = s.machine_id").
		Joins("LEFT JOIN defect_codes AS dc ON dc.id = d.defect_code_id")
	query = applySummaryPredicates(db, query, filter)
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("dc.category = ?", category)
	}

	var rows []ports.ParetoRow
	if err := query.
		Group("dc.code, dc.name, dc.category, m.code, m.name, s.part_number").
		Having("SUM(d.quantity) > 0").
		Scan(&rows).Error; err != nil {
		return nil, storeError(err, "query pareto from defect details")
	}
	return rows, nil
}

func (r *AnalyticsRepository) ParetoFromEvents(ctx context.Context, filter ports.RangeFilter) ([]ports.ParetoRow, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Table("inspection_events AS e").
		Select("COALESCE(dc.code, '') AS defect_code, COALESCE(dc.name, '') AS defect_name, "+
			"COALESCE(dc.category, '') AS category, m.code AS machine_code, m.name AS machine_name, "+
			"e.part_number AS part_number, CAST(SUM(e.quantity) AS BIGINT) AS quantity").
		Joins("JOIN machines AS m ON m.id = e.machine_id").
		Joins("LEFT JOIN defect_codes AS dc ON dc.id = e.defect_code_id").
		Where("e.disposition IN ?", []string{string(quality.DispositionRework), string(quality.DispositionScrap)}).
		Where("e.defect_code_id IS NOT NULL")
	query = applyEventPredicates(db, query, filter)
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("dc.category = ?", category)
	}

	var rows []ports.ParetoRow
	if err := query.
		Group("dc.code, dc.name, dc.category, m.code, m.name, e.part_number").
		Having("SUM(e.quantity) > 0").
		Scan(&rows).Error; err != nil {
		return nil, storeError(err, "query pareto from inspection events")
	}
	return rows, nil
}

// ParetoFromSummaries ignores the category predicate: summaries carry no defect codes.
func (r *AnalyticsRepository) ParetoFromSummaries(ctx context.Context, filter ports.RangeFilter) ([]ports.MachinePartDefects, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Table("daily_production_summaries AS s").
		Select("m.code AS machine_code, m.name AS machine_name, s.part_number AS part_number, " +
			"CAST(SUM(s.scrap_qty) AS BIGINT) AS scrap_qty, CAST(SUM(s.rework_qty) AS BIGINT) AS rework_qty").
		Joins("JOIN machines AS m ON m.id = s.machine_id")
	query = applySummaryPredicates(db, query, filter)

	var rows []ports.MachinePartDefects
	if err := query.
		Group("m.code, m.name, s.part_number").
		Having("SUM(s.scrap_qty) + SUM(s.rework_qty) > 0").
		Scan(&rows).Error; err != nil {
		return nil, storeError(err, "query pareto from summaries")
	}
	return rows, nil
}

type summaryTotalsRow struct {
	MachineCode   string
	MachineName   string
	PartNumber    string
	Total         int64
	Good          int64
	Rework        int64
	Scrap         int64
	ReworkGood    int64
	ReworkScrap   int64
	ReworkPending int64
}

func (row summaryTotalsRow) counters() quality.Counters {
	return quality.Counters{
		Total:         row.Total,
		Good:          row.Good,
		Rework:        row.Rework,
		Scrap:         row.Scrap,
		ReworkGood:    row.ReworkGood,
		ReworkScrap:   row.ReworkScrap,
		ReworkPending: row.ReworkPending,
	}
}

const sumSummaryCountersSQL = "CAST(COALESCE(SUM(s.total_produced), 0) AS BIGINT) AS total, " +
	"CAST(COALESCE(SUM(s.good_qty), 0) AS BIGINT) AS good, " +
	"CAST(COALESCE(SUM(s.rework_qty), 0) AS BIGINT) AS rework, " +
	"CAST(COALESCE(SUM(s.scrap_qty), 0) AS BIGINT) AS scrap, " +
	"CAST(COALESCE(SUM(s.rework_good_qty), 0) AS BIGINT) AS rework_good, " +
	"CAST(COALESCE(SUM(s.rework_scrap_qty), 0) AS BIGINT) AS rework_scrap, " +
	"CAST(COALESCE(SUM(s.rework_pending_qty), 0) AS BIGINT) AS rework_pending"

func (r *AnalyticsRepository) SummaryTotals(ctx context.Context, filter ports.RangeFilter) (quality.Counters, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return quality.Counters{}, err
	}

	query := db.Table("daily_production_summaries AS s").
		Select(sumSummaryCountersSQL).
		Joins("JOIN machines AS m ON m.id = s.machine_id")
	query = applySummaryPredicates(db, query, filter)

	var row summaryTotalsRow
	if err := query.Scan(&row).Error; err != nil {
		return quality.Counters{}, storeError(err, "query summary totals")
	}
	return row.counters(), nil
}

func (r *AnalyticsRepository) SummaryTotalsByMachinePart(ctx context.Context, filter ports.RangeFilter) ([]ports.MachinePartTotals, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Table("daily_production_summaries AS s").
		Select("m.code AS machine_code, m.name AS machine_name, s.part_number AS part_number, " + sumSummaryCountersSQL).
		Joins("JOIN machines AS m ON m.id = s.machine_id")
	query = applySummaryPredicates(db, query, filter)

	var rows []summaryTotalsRow
	if err := query.
		Group("m.code, m.name, s.part_number").
		Order("m.code asc").
		Order("s.part_number asc").
		Scan(&rows).Error; err != nil {
		return nil, storeError(err, "query summary totals by machine and part")
	}

	items := make([]ports.MachinePartTotals, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.MachinePartTotals{
			MachineCode: row.MachineCode,
			MachineName: row.MachineName,
			PartNumber:  row.PartNumber,
			Counters:    row.counters(),
		})
	}
	return items, nil
}

func (r *AnalyticsRepository) EntryTotals(ctx context.Context, filter ports.RangeFilter) (ports.PeriodTotals, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.PeriodTotals{}, err
	}

	query := db.Table("inspection_events AS e").
		Select(sumDispositionSQL).
		Joins("JOIN machines AS m ON m.id = e.machine_id").
		Where("e.source = ?", ports.EventSourceEntry)
	query = applyEventPredicates(db, query, filter)

	var row ports.PeriodTotals
	if err := query.Scan(&row).Error; err != nil {
		return ports.PeriodTotals{}, storeError(err, "query entry totals")
	}
	row.Period = filter.From + ".." + filter.To
	return row, nil
}

func (r *AnalyticsRepository) MonthlyEventTotals(ctx context.Context, from, to string) ([]ports.PeriodTotals, error) {
	return r.periodEventTotals(ctx, "SUBSTR(e.event_date, 1, 7)", from, to)
}

func (r *AnalyticsRepository) DailyEventTotals(ctx context.Context, from, to string) ([]ports.PeriodTotals, error) {
	return r.periodEventTotals(ctx, "e.event_date", from, to)
}

func (r *AnalyticsRepository) periodEventTotals(ctx context.Context, periodExpr, from, to string) ([]ports.PeriodTotals, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []ports.PeriodTotals
	if err := db.Table("inspection_events AS e").
		Select(periodExpr+" AS period, "+sumDispositionSQL).
		Where("e.event_date BETWEEN ? AND ?", from, to).
		Group(periodExpr).
		Order(periodExpr + " asc").
		Scan(&rows).Error; err != nil {
		return nil, storeError(err, "query event totals by period")
	}
	return rows, nil
}

func (r *AnalyticsRepository) MonthlyClaimQuantities(ctx context.Context, from, to string) ([]ports.PeriodQuantity, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	const periodExpr = "SUBSTR(c.claim_date, 1, 7)"
	var rows []ports.PeriodQuantity
	if err := db.Table("customer_claims AS c").
		Select(periodExpr+" AS period, CAST(COALESCE(SUM(c.quantity), 0) AS BIGINT) AS quantity").
		Where("c.claim_date BETWEEN ? AND ?", from, to).
		Group(periodExpr).
		Order(periodExpr + " asc").
		Scan(&rows).Error; err != nil {
		return nil, storeError(err, "query claim quantities by month")
	}
	return rows, nil
}

// applySummaryPredicates expects aliases s (summaries) and m (machines).
func applySummaryPredicates(db *gorm.DB, query *gorm.DB, filter ports.RangeFilter) *gorm.DB {
	if filter.From != "" && filter.To != "" {
		query = query.Where("s.production_date BETWEEN ? AND ?", filter.From, filter.To)
	}
	if shift := strings.TrimSpace(filter.Shift); shift != "" {
		query = query.Where("s.shift = ?", shift)
	}
	if code := strings.TrimSpace(filter.MachineCode); code != "" {
		query = query.Where("m.code = ?", code)
	}
	if line := strings.TrimSpace(filter.LineCode); line != "" {
		query = query.Where("m.product_line_id IN (?)", lineSubquery(db, line))
	}
	return query
}

// applyEventPredicates expects aliases e (events) and m (machines).
func applyEventPredicates(db *gorm.DB, query *gorm.DB, filter ports.RangeFilter) *gorm.DB {
	if filter.From != "" && filter.To != "" {
		query = query.Where("e.event_date BETWEEN ? AND ?", filter.From, filter.To)
	}
	if shift := strings.TrimSpace(filter.Shift); shift != "" {
		query = query.Where("e.shift = ?", shift)
	}
	if code := strings.TrimSpace(filter.MachineCode); code != "" {
		query = query.Where("m.code = ?", code)
	}
	if line := strings.TrimSpace(filter.LineCode); line != "" {
		query = query.Where("e.product_line_id IN (?)", lineSubquery(db, line))
	}
	return query
}
