package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"factoryqc/internal/domain/quality"
	"factoryqc/internal/infrastructure/persistence/gormdb/model"
	"factoryqc/internal/ports"
)

// EscalationRepository stores customer claims and action plans.
type EscalationRepository struct {
	db *gorm.DB
}

var (
	_ ports.ClaimRepository      = (*EscalationRepository)(nil)
	_ ports.ActionPlanRepository = (*EscalationRepository)(nil)
)

func NewEscalationRepository(db *gorm.DB) *EscalationRepository {
	return &EscalationRepository{db: db}
}

const defaultEscalationListLimit = 200

func (r *EscalationRepository) CreateClaim(ctx context.Context, claim ports.CustomerClaim) (ports.CustomerClaim, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.CustomerClaim{}, err
	}

	row := model.CustomerClaim{
		ClaimNumber:   claim.ClaimNumber,
		ClaimDate:     claim.ClaimDate,
		CustomerName:  claim.CustomerName,
		ProductLineID: claim.ProductLineID,
		DefectCodeID:  claim.DefectCodeID,
		PartNumber:    claim.PartNumber,
		Quantity:      claim.Quantity,
		Description:   claim.Description,
		Status:        claim.Status,
		CreatedAt:     claim.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.CustomerClaim{}, storeError(err, "insert customer claim")
	}

	out := mapClaim(row)
	out.ProductLineCode = claim.ProductLineCode
	out.DefectCode = claim.DefectCode
	return out, nil
}

func (r *EscalationRepository) ListClaims(ctx context.Context, filter ports.ClaimFilter) ([]ports.CustomerClaim, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.CustomerClaim{})
	if from := strings.TrimSpace(filter.From); from != "" {
		query = query.Where("claim_date >= ?", from)
	}
	if to := strings.TrimSpace(filter.To); to != "" {
		query = query.Where("claim_date <= ?", to)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultEscalationListLimit
	}

	var rows []model.CustomerClaim
	if err := query.Order("claim_date desc").Order("id desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, storeError(err, "query customer claims")
	}

	lineCodes := map[uint64]string{}
	defectCodes := map[uint64]string{}
	var lines []model.ProductLine
	if err := db.Session(&gorm.Session{NewDB: true}).Select("id", "code").Find(&lines).Error; err != nil {
		return nil, storeError(err, "query product line codes")
	}
	for _, l := range lines {
		lineCodes[l.ID] = l.Code
	}
	var codes []model.DefectCode
	if err := db.Session(&gorm.Session{NewDB: true}).Select("id", "code").Find(&codes).Error; err != nil {
		return nil, storeError(err, "query defect codes")
	}
	for _, c := range codes {
		defectCodes[c.ID] = c.Code
	}

	items := make([]ports.CustomerClaim, 0, len(rows))
	for _, row := range rows {
		item := mapClaim(row)
		if row.ProductLineID != nil {
			item.ProductLineCode = lineCodes[*row.ProductLineID]
		}
		if row.DefectCodeID != nil {
			item.DefectCode = defectCodes[*row.DefectCodeID]
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *EscalationRepository) CreateActionPlan(ctx context.Context, plan ports.ActionPlan) (ports.ActionPlan, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.ActionPlan{}, err
	}

	row := model.ActionPlan{
		SourceType: plan.SourceType,
		SourceID:   plan.SourceID,
		Title:      plan.Title,
		Owner:      plan.Owner,
		DueDate:    plan.DueDate,
		Status:     string(plan.Status),
		CreatedAt:  plan.CreatedAt,
		UpdatedAt:  plan.CreatedAt,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.ActionPlan{}, storeError(err, "insert action plan")
	}
	return mapPlan(row), nil
}

func (r *EscalationRepository) GetActionPlan(ctx context.Context, id uint64) (ports.ActionPlan, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.ActionPlan{}, err
	}
	row, err := getPlanRow(db, id)
	if err != nil {
		return ports.ActionPlan{}, err
	}
	return mapPlan(row), nil
}

func (r *EscalationRepository) UpdateActionPlan(ctx context.Context, id uint64, patch ports.ActionPlanPatch, at time.Time) (ports.ActionPlan, error) {
	var out ports.ActionPlan
	err := inTx(ctx, r.db, func(db *gorm.DB) error {
		if _, err := getPlanRow(db, id); err != nil {
			return err
		}

		updates := map[string]any{"updated_at": at}
		if patch.Title != nil {
			updates["title"] = *patch.Title
		}
		if patch.Owner != nil {
			updates["owner"] = *patch.Owner
		}
		if patch.DueDate != nil {
			updates["due_date"] = *patch.DueDate
		}
		if patch.Status != nil {
			updates["status"] = string(*patch.Status)
		}
		if err := db.Model(&model.ActionPlan{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return storeError(err, "update action plan")
		}

		row, err := getPlanRow(db, id)
		if err != nil {
			return err
		}
		out = mapPlan(row)
		return nil
	})
	if err != nil {
		return ports.ActionPlan{}, err
	}
	return out, nil
}

func (r *EscalationRepository) ListActionPlans(ctx context.Context, filter ports.ActionPlanFilter) ([]ports.ActionPlan, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.ActionPlan{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if sourceType := strings.TrimSpace(filter.SourceType); sourceType != "" {
		query = query.Where("source_type = ?", sourceType)
	}
	if sourceID := strings.TrimSpace(filter.SourceID); sourceID != "" {
		query = query.Where("source_id = ?", sourceID)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultEscalationListLimit
	}

	var rows []model.ActionPlan
	if err := query.Order("id desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, storeError(err, "query action plans")
	}

	items := make([]ports.ActionPlan, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapPlan(row))
	}
	return items, nil
}

func getPlanRow(db *gorm.DB, id uint64) (model.ActionPlan, error) {
	var row model.ActionPlan
	if err := db.Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.ActionPlan{}, ports.ErrPlanNotFound
		}
		return model.ActionPlan{}, storeError(err, "query action plan")
	}
	return row, nil
}

func mapClaim(row model.CustomerClaim) ports.CustomerClaim {
	return ports.CustomerClaim{
		ID:            row.ID,
		ClaimNumber:   row.ClaimNumber,
		ClaimDate:     row.ClaimDate,
		CustomerName:  row.CustomerName,
		ProductLineID: row.ProductLineID,
		DefectCodeID:  row.DefectCodeID,
		PartNumber:    row.PartNumber,
		Quantity:      row.Quantity,
		Description:   row.Description,
		Status:        row.Status,
		CreatedAt:     row.CreatedAt,
	}
}

func mapPlan(row model.ActionPlan) ports.ActionPlan {
	return ports.ActionPlan{
		ID:         row.ID,
		SourceType: row.SourceType,
		SourceID:   row.SourceID,
		Title:      row.Title,
		Owner:      row.Owner,
		DueDate:    row.DueDate,
		Status:     quality.PlanStatus(row.Status),
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}
}
