package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"factoryqc/internal/domain/quality"
	"factoryqc/internal/infrastructure/persistence/gormdb/model"
	"factoryqc/internal/ports"
)

type AlertRepository struct {
	db *gorm.DB
}

var _ ports.AlertRepository = (*AlertRepository)(nil)

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

const defaultAlertListLimit = 100

var openStatuses = []string{string(quality.AlertTriggered), string(quality.AlertAcknowledged)}

func (r *AlertRepository) CreateAlert(ctx context.Context, alert ports.AndonAlert) (ports.AndonAlert, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.AndonAlert{}, err
	}

	row := toAlertRow(alert)
	row.ID = 0
	if err := db.Create(&row).Error; err != nil {
		return ports.AndonAlert{}, storeError(err, "insert andon alert")
	}
	return r.one(db, row)
}

func (r *AlertRepository) GetAlertByID(ctx context.Context, id uint64) (ports.AndonAlert, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.AndonAlert{}, err
	}

	var row model.AndonAlert
	if err := forUpdate(ctx, db).Where("id = ?", id).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.AndonAlert{}, ports.ErrAlertNotFound
		}
		return ports.AndonAlert{}, storeError(err, "query andon alert by id")
	}
	return r.one(db, row)
}

func (r *AlertRepository) GetAlertByNumber(ctx context.Context, number string) (ports.AndonAlert, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.AndonAlert{}, err
	}

	var row model.AndonAlert
	if err := forUpdate(ctx, db).Where("alert_number = ?", strings.TrimSpace(number)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.AndonAlert{}, ports.ErrAlertNotFound
		}
		return ports.AndonAlert{}, storeError(err, "query andon alert by number")
	}
	return r.one(db, row)
}

func (r *AlertRepository) FindOpenAlert(ctx context.Context, machineID uint64, alertType string) (ports.AndonAlert, bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.AndonAlert{}, false, err
	}

	var rows []model.AndonAlert
	if err := forUpdate(ctx, db).
		Where("machine_id = ? AND alert_type = ? AND status IN ?", machineID, alertType, openStatuses).
		Order("triggered_at desc").
		Order("id desc").
		Limit(1).
		Find(&rows).Error; err != nil {
		return ports.AndonAlert{}, false, storeError(err, "query open andon alert")
	}
	if len(rows) == 0 {
		return ports.AndonAlert{}, false, nil
	}

	alert, err := r.one(db, rows[0])
	if err != nil {
		return ports.AndonAlert{}, false, err
	}
	return alert, true, nil
}

func (r *AlertRepository) UpdateAlert(ctx context.Context, alert ports.AndonAlert) (ports.AndonAlert, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.AndonAlert{}, err
	}

	row := toAlertRow(alert)
	result := db.Model(&model.AndonAlert{}).Where("id = ?", alert.ID).Updates(map[string]any{
		"status":             row.Status,
		"escalation_level":   row.EscalationLevel,
		"consecutive_ng":     row.ConsecutiveNG,
		"description":        row.Description,
		"assignee":           row.Assignee,
		"root_cause":         row.RootCause,
		"action_taken":       row.ActionTaken,
		"resolved_by":        row.ResolvedBy,
		"acknowledged_at":    row.AcknowledgedAt,
		"resolved_at":        row.ResolvedAt,
		"response_minutes":   row.ResponseMinutes,
		"resolution_minutes": row.ResolutionMinutes,
		"downtime_minutes":   row.DowntimeMinutes,
		"updated_at":         row.UpdatedAt,
	})
	if result.Error != nil {
		return ports.AndonAlert{}, storeError(result.Error, "update andon alert")
	}
	if result.RowsAffected == 0 {
		return ports.AndonAlert{}, ports.ErrAlertNotFound
	}

	var stored model.AndonAlert
	if err := db.Where("id = ?", alert.ID).Take(&stored).Error; err != nil {
		return ports.AndonAlert{}, storeError(err, "reload andon alert")
	}
	return r.one(db, stored)
}

func (r *AlertRepository) ListAlerts(ctx context.Context, filter ports.AlertFilter) ([]ports.AndonAlert, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	query := db.Model(&model.AndonAlert{})
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if filter.OpenOnly {
		query = query.Where("status IN ?", openStatuses)
	}
	if code := strings.TrimSpace(filter.MachineCode); code != "" {
		query = query.Where("machine_id IN (?)", machineSubquery(db, code))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAlertListLimit
	}

	var rows []model.AndonAlert
	if err := query.Order("triggered_at desc").Order("id desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, storeError(err, "query andon alerts")
	}

	ids := make([]uint64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.MachineID)
	}
	codes, err := machineCodes(db.Session(&gorm.Session{NewDB: true}), ids)
	if err != nil {
		return nil, err
	}

	items := make([]ports.AndonAlert, 0, len(rows))
	for _, row := range rows {
		item := mapAlert(row)
		item.MachineCode = codes[row.MachineID]
		items = append(items, item)
	}
	return items, nil
}

func (r *AlertRepository) CountOpenAlerts(ctx context.Context, lineCode string) (int64, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return 0, err
	}

	query := db.Model(&model.AndonAlert{}).Where("status IN ?", openStatuses)
	if code := strings.TrimSpace(lineCode); code != "" {
		machines := db.Session(&gorm.Session{NewDB: true}).
			Model(&model.Machine{}).
			Select("id").
			Where("product_line_id IN (?)", lineSubquery(db, code))
		query = query.Where("machine_id IN (?)", machines)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, storeError(err, "count open andon alerts")
	}
	return count, nil
}

func (r *AlertRepository) one(db *gorm.DB, row model.AndonAlert) (ports.AndonAlert, error) {
	codes, err := machineCodes(db.Session(&gorm.Session{NewDB: true}), []uint64{row.MachineID})
	if err != nil {
		return ports.AndonAlert{}, err
	}
	out := mapAlert(row)
	out.MachineCode = codes[row.MachineID]
	return out, nil
}

func toAlertRow(alert ports.AndonAlert) model.AndonAlert {
	return model.AndonAlert{
		ID:                alert.ID,
		AlertNumber:       alert.AlertNumber,
		MachineID:         alert.MachineID,
		AlertType:         alert.AlertType,
		Status:            string(alert.Status),
		EscalationLevel:   alert.EscalationLevel,
		ConsecutiveNG:     alert.ConsecutiveNG,
		Description:       alert.Description,
		Assignee:          alert.Assignee,
		RootCause:         alert.RootCause,
		ActionTaken:       alert.ActionTaken,
		ResolvedBy:        alert.ResolvedBy,
		TriggeredAt:       alert.TriggeredAt,
		AcknowledgedAt:    alert.AcknowledgedAt,
		ResolvedAt:        alert.ResolvedAt,
		ResponseMinutes:   alert.ResponseMinutes,
		ResolutionMinutes: alert.ResolutionMinutes,
		DowntimeMinutes:   alert.DowntimeMinutes,
		UpdatedAt:         alert.UpdatedAt,
	}
}

func mapAlert(row model.AndonAlert) ports.AndonAlert {
	return ports.AndonAlert{
		ID:                row.ID,
		AlertNumber:       row.AlertNumber,
		MachineID:         row.MachineID,
		AlertType:         row.AlertType,
		Status:            quality.AlertStatus(row.Status),
		EscalationLevel:   row.EscalationLevel,
		ConsecutiveNG:     row.ConsecutiveNG,
		Description:       row.Description,
		Assignee:          row.Assignee,
		RootCause:         row.RootCause,
		ActionTaken:       row.ActionTaken,
		ResolvedBy:        row.ResolvedBy,
		TriggeredAt:       row.TriggeredAt,
		AcknowledgedAt:    row.AcknowledgedAt,
		ResolvedAt:        row.ResolvedAt,
		ResponseMinutes:   row.ResponseMinutes,
		ResolutionMinutes: row.ResolutionMinutes,
		DowntimeMinutes:   row.DowntimeMinutes,
		UpdatedAt:         row.UpdatedAt,
	}
}
