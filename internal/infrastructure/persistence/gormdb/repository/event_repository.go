package repository

import (
	"context"

	"gorm.io/gorm"

	"factoryqc/internal/domain/quality"
	"factoryqc/internal/infrastructure/persistence/gormdb/model"
	"factoryqc/internal/ports"
)

type EventRepository struct {
	db *gorm.DB
}

var _ ports.EventRepository = (*EventRepository)(nil)

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) CreateEvent(ctx context.Context, event ports.InspectionEvent) (ports.InspectionEvent, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.InspectionEvent{}, err
	}

	row := model.InspectionEvent{
		MachineID:     event.MachineID,
		PartNumber:    event.PartNumber,
		LotNumber:     event.LotNumber,
		Quantity:      event.Quantity,
		Disposition:   string(event.Disposition),
		DefectCodeID:  event.DefectCodeID,
		ProductLineID: event.ProductLineID,
		MeasuredValue: event.MeasuredValue,
		SpecValue:     event.SpecValue,
		OperatorName:  event.OperatorName,
		Shift:         event.Shift,
		TotalProduced: event.TotalProduced,
		Source:        event.Source,
		SummaryID:     event.SummaryID,
		InspectedAt:   event.InspectedAt,
		EventDate:     event.EventDate,
	}
	if err := db.Create(&row).Error; err != nil {
		return ports.InspectionEvent{}, storeError(err, "insert inspection event")
	}

	out := mapEvent(row)
	out.MachineCode = event.MachineCode
	return out, nil
}

func (r *EventRepository) RecentDispositions(ctx context.Context, machineID uint64, limit int) ([]quality.Disposition, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = quality.DefaultStreakWindow
	}

	var values []string
	if err := db.Model(&model.InspectionEvent{}).
		Where("machine_id = ?", machineID).
		Order("inspected_at desc").
		Order("id desc").
		Limit(limit).
		Pluck("disposition", &values).Error; err != nil {
		return nil, storeError(err, "query recent dispositions")
	}

	out := make([]quality.Disposition, 0, len(values))
	for _, v := range values {
		out = append(out, quality.Disposition(v))
	}
	return out, nil
}

func mapEvent(row model.InspectionEvent) ports.InspectionEvent {
	return ports.InspectionEvent{
		ID:            row.ID,
		MachineID:     row.MachineID,
		PartNumber:    row.PartNumber,
		LotNumber:     row.LotNumber,
		Quantity:      row.Quantity,
		Disposition:   quality.Disposition(row.Disposition),
		DefectCodeID:  row.DefectCodeID,
		ProductLineID: row.ProductLineID,
		MeasuredValue: row.MeasuredValue,
		SpecValue:     row.SpecValue,
		OperatorName:  row.OperatorName,
		Shift:         row.Shift,
		TotalProduced: row.TotalProduced,
		Source:        row.Source,
		SummaryID:     row.SummaryID,
		InspectedAt:   row.InspectedAt,
		EventDate:     row.EventDate,
	}
}
