package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"factoryqc/internal/infrastructure/persistence/gormdb/model"
	"factoryqc/internal/ports"
)

type MasterDataRepository struct {
	db *gorm.DB
}

var _ ports.MasterDataRepository = (*MasterDataRepository)(nil)

func NewMasterDataRepository(db *gorm.DB) *MasterDataRepository {
	return &MasterDataRepository{db: db}
}

func (r *MasterDataRepository) FindMachineByCode(ctx context.Context, code string) (ports.Machine, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.Machine{}, err
	}

	var row model.Machine
	if err := db.Where("code = ?", strings.TrimSpace(code)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.Machine{}, ports.ErrMachineNotFound
		}
		return ports.Machine{}, storeError(err, "query machine by code")
	}

	lines, err := r.lineCodes(db)
	if err != nil {
		return ports.Machine{}, err
	}
	return mapMachine(row, lines), nil
}

func (r *MasterDataRepository) FindDefectCodeByCode(ctx context.Context, code string) (ports.DefectCode, bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.DefectCode{}, false, err
	}

	var row model.DefectCode
	if err := db.Where("code = ?", strings.TrimSpace(code)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.DefectCode{}, false, nil
		}
		return ports.DefectCode{}, false, storeError(err, "query defect code")
	}
	return mapDefectCode(row), true, nil
}

func (r *MasterDataRepository) FindProductLineByCode(ctx context.Context, code string) (ports.ProductLine, bool, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.ProductLine{}, false, err
	}

	var row model.ProductLine
	if err := db.Where("code = ?", strings.TrimSpace(code)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.ProductLine{}, false, nil
		}
		return ports.ProductLine{}, false, storeError(err, "query product line")
	}
	return ports.ProductLine{ID: row.ID, Code: row.Code, Name: row.Name}, true, nil
}

func (r *MasterDataRepository) ListMachines(ctx context.Context) ([]ports.Machine, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.Machine
	if err := db.Order("code asc").Find(&rows).Error; err != nil {
		return nil, storeError(err, "query machines")
	}
	lines, err := r.lineCodes(db)
	if err != nil {
		return nil, err
	}

	items := make([]ports.Machine, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapMachine(row, lines))
	}
	return items, nil
}

func (r *MasterDataRepository) ListDefectCodes(ctx context.Context) ([]ports.DefectCode, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.DefectCode
	if err := db.Order("category asc, code asc").Find(&rows).Error; err != nil {
		return nil, storeError(err, "query defect codes")
	}

	items := make([]ports.DefectCode, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapDefectCode(row))
	}
	return items, nil
}

func (r *MasterDataRepository) ListProductLines(ctx context.Context) ([]ports.ProductLine, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return nil, err
	}

	var rows []model.ProductLine
	if err := db.Order("code asc").Find(&rows).Error; err != nil {
		return nil, storeError(err, "query product lines")
	}

	items := make([]ports.ProductLine, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.ProductLine{ID: row.ID, Code: row.Code, Name: row.Name})
	}
	return items, nil
}

func (r *MasterDataRepository) UpsertProductLine(ctx context.Context, line ports.ProductLine) (ports.ProductLine, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.ProductLine{}, err
	}

	row := model.ProductLine{Code: line.Code, Name: line.Name}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name"}),
	}).Create(&row).Error; err != nil {
		return ports.ProductLine{}, storeError(err, "upsert product line")
	}

	var stored model.ProductLine
	if err := db.Where("code = ?", line.Code).Take(&stored).Error; err != nil {
		return ports.ProductLine{}, storeError(err, "reload product line")
	}
	return ports.ProductLine{ID: stored.ID, Code: stored.Code, Name: stored.Name}, nil
}

func (r *MasterDataRepository) UpsertMachine(ctx context.Context, machine ports.Machine) (ports.Machine, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.Machine{}, err
	}

	row := model.Machine{
		Code:          machine.Code,
		Name:          machine.Name,
		ProductLineID: machine.ProductLineID,
		Active:        machine.Active,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "product_line_id", "active"}),
	}).Create(&row).Error; err != nil {
		return ports.Machine{}, storeError(err, "upsert machine")
	}

	var stored model.Machine
	if err := db.Where("code = ?", machine.Code).Take(&stored).Error; err != nil {
		return ports.Machine{}, storeError(err, "reload machine")
	}
	lines, err := r.lineCodes(db)
	if err != nil {
		return ports.Machine{}, err
	}
	return mapMachine(stored, lines), nil
}

func (r *MasterDataRepository) UpsertDefectCode(ctx context.Context, code ports.DefectCode) (ports.DefectCode, error) {
	db, err := dbFromContext(ctx, r.db)
	if err != nil {
		return ports.DefectCode{}, err
	}

	row := model.DefectCode{Code: code.Code, Name: code.Name, Category: code.Category}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "category"}),
	}).Create(&row).Error; err != nil {
		return ports.DefectCode{}, storeError(err, "upsert defect code")
	}

	var stored model.DefectCode
	if err := db.Where("code = ?", code.Code).Take(&stored).Error; err != nil {
		return ports.DefectCode{}, storeError(err, "reload defect code")
	}
	return mapDefectCode(stored), nil
}

func (r *MasterDataRepository) lineCodes(db *gorm.DB) (map[uint64]string, error) {
	var rows []model.ProductLine
	if err := db.Session(&gorm.Session{NewDB: true}).Select("id", "code").Find(&rows).Error; err != nil {
		return nil, storeError(err, "query product line codes")
	}
	out := make(map[uint64]string, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Code
	}
	return out, nil
}

func mapMachine(row model.Machine, lines map[uint64]string) ports.Machine {
	out := ports.Machine{
		ID:            row.ID,
		Code:          row.Code,
		Name:          row.Name,
		ProductLineID: row.ProductLineID,
		Active:        row.Active,
	}
	if row.ProductLineID != nil {
		out.ProductLineCode = lines[*row.ProductLineID]
	}
	return out
}

func mapDefectCode(row model.DefectCode) ports.DefectCode {
	return ports.DefectCode{ID: row.ID, Code: row.Code, Name: row.Name, Category: row.Category}
}
