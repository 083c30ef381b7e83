package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"factoryqc/internal/domain/quality"
	"factoryqc/internal/infrastructure/persistence/gormdb/model"
	"factoryqc/internal/ports"
)

// ProductionRepository owns daily summaries and their defect details.
type ProductionRepository struct {
	db *gorm.DB
}

var _ ports.ProductionRepository = (*ProductionRepository)(nil)

func NewProductionRepository(db *gorm.DB) *ProductionRepository {
	return &ProductionRepository{db: db}
}

const summaryTable = "daily_production_summaries"

// accumulateColumns are added on conflict instead of overwritten.
var accumulateColumns = []string{
	"total_produced",
	"good_qty",
	"rework_qty",
	"scrap_qty",
	"rework_good_qty",
	"rework_scrap_qty",
	"rework_pending_qty",
}

// AccumulateSummary issues a single INSERT ... ON CONFLICT DO UPDATE that adds
// every counter to the stored row, so two writers can never lose an update.
func (r *ProductionRepository) AccumulateSummary(ctx context.Context, delta ports.SummaryDelta) (ports.ProductionSummary, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.ProductionSummary{}, err
	}

	row := model.DailyProductionSummary{
		ProductionDate:   delta.Key.ProductionDate,
		MachineID:        delta.Key.MachineID,
		PartNumber:       delta.Key.PartNumber,
		Shift:            delta.Key.Shift,
		TotalProduced:    delta.Counters.Total,
		GoodQty:          delta.Counters.Good,
		ReworkQty:        delta.Counters.Rework,
		ScrapQty:         delta.Counters.Scrap,
		ReworkGoodQty:    delta.Counters.ReworkGood,
		ReworkScrapQty:   delta.Counters.ReworkScrap,
		ReworkPendingQty: delta.Counters.ReworkPending,
		OperatorName:     delta.Operator,
		Notes:            delta.Notes,
		CreatedAt:        delta.At,
		UpdatedAt:        delta.At,
	}

	assignments := make(map[string]any, len(accumulateColumns)+3)
	for _, col := range accumulateColumns {
		assignments[col] = gorm.Expr(summaryTable + "." + col + " + excluded." + col)
	}
	assignments["operator_name"] = gorm.Expr(
		"CASE WHEN excluded.operator_name = '' THEN " + summaryTable + ".operator_name ELSE excluded.operator_name END",
	)
	assignments["notes"] = gorm.Expr(
		"CASE WHEN excluded.notes = '' THEN " + summaryTable + ".notes" +
			" WHEN " + summaryTable + ".notes = '' THEN excluded.notes" +
			" ELSE " + summaryTable + ".notes || ' | ' || excluded.notes END",
	)
	assignments["updated_at"] = gorm.Expr("excluded.updated_at")

	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "production_date"},
			{Name: "machine_id"},
			{Name: "part_number"},
			{Name: "shift"},
		},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&row).Error; err != nil {
		return ports.ProductionSummary{}, storeError(err, "accumulate production summary")
	}

	var stored model.DailyProductionSummary
	if err := db.Where(
		"production_date = ? AND machine_id = ? AND part_number = ? AND shift = ?",
		delta.Key.ProductionDate, delta.Key.MachineID, delta.Key.PartNumber, delta.Key.Shift,
	).Take(&stored).Error; err != nil {
		return ports.ProductionSummary{}, storeError(err, "reload production summary")
	}
	return r.withMachineCode(db, stored)
}

func (r *ProductionRepository) GetSummary(ctx context.Context, id uint64) (ports.ProductionSummary, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.ProductionSummary{}, err
	}

	row, err := getSummaryRow(forUpdate(ctx, db), id)
	if err != nil {
		return ports.ProductionSummary{}, err
	}
	return r.withMachineCode(db, row)
}

func (r *ProductionRepository) UpdateSummary(ctx context.Context, id uint64, patch ports.SummaryPatch, at time.Time) (ports.ProductionSummary, error) {
	var out ports.ProductionSummary
	err := inTx(ctx, r.db, func(db *gorm.DB) error {
		if _, err := getSummaryRow(db.Clauses(clause.Locking{Strength: "UPDATE"}), id); err != nil {
			return err
		}

		updates := map[string]any{"updated_at": at}
		setInt := func(col string, v *int64) {
			if v != nil {
				updates[col] = *v
			}
		}
		setInt("total_produced", patch.TotalProduced)
		setInt("good_qty", patch.GoodQty)
		setInt("rework_qty", patch.ReworkQty)
		setInt("scrap_qty", patch.ScrapQty)
		setInt("rework_good_qty", patch.ReworkGoodQty)
		setInt("rework_scrap_qty", patch.ReworkScrapQty)
		setInt("rework_pending_qty", patch.ReworkPendingQty)
		if patch.OperatorName != nil {
			updates["operator_name"] = *patch.OperatorName
		}
		if patch.Notes != nil {
			updates["notes"] = *patch.Notes
		}

		if err := db.Model(&model.DailyProductionSummary{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return storeError(err, "update production summary")
		}

		row, err := getSummaryRow(db, id)
		if err != nil {
			return err
		}
		out, err = r.withMachineCode(db, row)
		return err
	})
	if err != nil {
		return ports.ProductionSummary{}, err
	}
	return out, nil
}

func (r *ProductionRepository) DeleteSummary(ctx context.Context, id uint64) error {
	return inTx(ctx, r.db, func(db *gorm.DB) error {
		if _, err := getSummaryRow(db, id); err != nil {
			return err
		}
		if err := db.Where("summary_id = ?", id).Delete(&model.DefectDetail{}).Error; err != nil {
			return storeError(err, "delete defect details of summary")
		}
		if err := db.Where("id = ?", id).Delete(&model.DailyProductionSummary{}).Error; err != nil {
			return storeError(err, "delete production summary")
		}
		return nil
	})
}

func (r *ProductionRepository) CreateDefect(ctx context.Context, defect ports.DefectDetail) (ports.DefectDetail, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.DefectDetail{}, err
	}

	row := model.DefectDetail{
		SummaryID:     defect.SummaryID,
		DefectCodeID:  defect.DefectCodeID,
		DefectType:    string(defect.DefectType),
		Quantity:      defect.Quantity,
		MeasuredValue: defect.MeasuredValue,
		SpecValue:     defect.SpecValue,
		BinNumber:     defect.BinNumber,
		ReworkResult:  defect.ReworkResult,
		CreatedAt:     defect.CreatedAt,
		UpdatedAt:     defect.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.DefectDetail{}, storeError(err, "insert defect detail")
	}

	out := mapDefect(row)
	out.DefectCode = defect.DefectCode
	return out, nil
}

func (r *ProductionRepository) ListDefects(ctx context.Context, summaryID uint64) ([]ports.DefectDetail, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.DefectDetail
	if err := db.Where("summary_id = ?", summaryID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, storeError(err, "query defect details")
	}
	return r.mapDefects(db, rows)
}

func (r *ProductionRepository) GetDefect(ctx context.Context, id uint64) (ports.DefectDetail, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.DefectDetail{}, err
	}

	row, err := getDefectRow(db, id)
	if err != nil {
		return ports.DefectDetail{}, err
	}
	items, err := r.mapDefects(db, []model.DefectDetail{row})
	if err != nil {
		return ports.DefectDetail{}, err
	}
	return items[0], nil
}

// UpdateDefect overwrites the given defect fields. Parent summary counters are untouched.
func (r *ProductionRepository) UpdateDefect(ctx context.Context, id uint64, patch ports.DefectPatch, at time.Time) (ports.DefectDetail, error) {
	var out ports.DefectDetail
	err := inTx(ctx, r.db, func(db *gorm.DB) error {
		if _, err := getDefectRow(db, id); err != nil {
			return err
		}

		updates := map[string]any{"updated_at": at}
		if patch.SetDefectCode {
			updates["defect_code_id"] = patch.DefectCodeID
		}
		if patch.DefectType != nil {
			updates["defect_type"] = string(*patch.DefectType)
		}
		if patch.Quantity != nil {
			updates["quantity"] = *patch.Quantity
		}
		if patch.MeasuredValue != nil {
			updates["measured_value"] = *patch.MeasuredValue
		}
		if patch.SpecValue != nil {
			updates["spec_value"] = *patch.SpecValue
		}
		if patch.BinNumber != nil {
			updates["bin_number"] = *patch.BinNumber
		}
		if patch.ReworkResult != nil {
			updates["rework_result"] = *patch.ReworkResult
		}

		if err := db.Model(&model.DefectDetail{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return storeError(err, "update defect detail")
		}

		row, err := getDefectRow(db, id)
		if err != nil {
			return err
		}
		items, err := r.mapDefects(db, []model.DefectDetail{row})
		if err != nil {
			return err
		}
		out = items[0]
		return nil
	})
	if err != nil {
		return ports.DefectDetail{}, err
	}
	return out, nil
}

func (r *ProductionRepository) DeleteDefect(ctx context.Context, id uint64) error {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return err
	}

	result := db.Where("id = ?", id).Delete(&model.DefectDetail{})
	if result.Error != nil {
		return storeError(result.Error, "delete defect detail")
	}
	if result.RowsAffected == 0 {
		return ports.ErrDefectNotFound
	}
	return nil
}

func (r *ProductionRepository) withMachineCode(db *gorm.DB, row model.DailyProductionSummary) (ports.ProductionSummary, error) {
	codes, err := machineCodes(db.Session(&gorm.Session{NewDB: true}), []uint64{row.MachineID})
	if err != nil {
		return ports.ProductionSummary{}, err
	}
	out := mapSummary(row)
	out.MachineCode = codes[row.MachineID]
	return out, nil
}

func (r *ProductionRepository) mapDefects(db *gorm.DB, rows []model.DefectDetail) ([]ports.DefectDetail, error) {
	ids := make([]uint64, 0, len(rows))
	for _, row := range rows {
		if row.DefectCodeID != nil {
			ids = append(ids, *row.DefectCodeID)
		}
	}

	codes := map[uint64]string{}
	if len(ids) > 0 {
		var codeRows []model.DefectCode
		if err := db.Session(&gorm.Session{NewDB: true}).
			Select("id", "code").
			Where("id IN ?", uniqueIDs(ids)).
			Find(&codeRows).Error; err != nil {
			return nil, storeError(err, "query defect code names")
		}
		for _, c := range codeRows {
			codes[c.ID] = c.Code
		}
	}

	items := make([]ports.DefectDetail, 0, len(rows))
	for _, row := range rows {
		item := mapDefect(row)
		if row.DefectCodeID != nil {
			item.DefectCode = codes[*row.DefectCodeID]
		}
		items = append(items, item)
	}
	return items, nil
}

func getSummaryRow(db *gorm.DB, id uint64) (model.DailyProductionSummary, error) {
	var row model.DailyProductionSummary
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.DailyProductionSummary{}, ports.ErrSummaryNotFound
		}
		return model.DailyProductionSummary{}, storeError(err, "query production summary")
	}
	return row, nil
}

func getDefectRow(db *gorm.DB, id uint64) (model.DefectDetail, error) {
	var row model.DefectDetail
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.DefectDetail{}, ports.ErrDefectNotFound
		}
		return model.DefectDetail{}, storeError(err, "query defect detail")
	}
	return row, nil
}

func mapSummary(row model.DailyProductionSummary) ports.ProductionSummary {
	return ports.ProductionSummary{
		ID: row.ID,
		Key: ports.SummaryKey{
			ProductionDate: row.ProductionDate,
			MachineID:      row.MachineID,
			PartNumber:     row.PartNumber,
			Shift:          row.Shift,
		},
		Counters: quality.Counters{
			Total:         row.TotalProduced,
			Good:          row.GoodQty,
			Rework:        row.ReworkQty,
			Scrap:         row.ScrapQty,
			ReworkGood:    row.ReworkGoodQty,
			ReworkScrap:   row.ReworkScrapQty,
			ReworkPending: row.ReworkPendingQty,
		},
		Operator:  row.OperatorName,
		Notes:     row.Notes,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

func mapDefect(row model.DefectDetail) ports.DefectDetail {
	return ports.DefectDetail{
		ID:            row.ID,
		SummaryID:     row.SummaryID,
		DefectCodeID:  row.DefectCodeID,
		DefectType:    quality.DefectType(row.DefectType),
		Quantity:      row.Quantity,
		MeasuredValue: row.MeasuredValue,
		SpecValue:     row.SpecValue,
		BinNumber:     row.BinNumber,
		ReworkResult:  row.ReworkResult,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}
