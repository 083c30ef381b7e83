package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyProductionSummary is one accumulation row per (date, machine, part, shift).
// Percentages are derived on read and never stored.
type DailyProductionSummary struct {
	ID               uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	ProductionDate   string    `gorm:"column:production_date;type:text;not null;uniqueIndex:ux_summary_key,priority:1"`
	MachineID        uint64    `gorm:"column:machine_id;not null;uniqueIndex:ux_summary_key,priority:2"`
	PartNumber       string    `gorm:"column:part_number;type:text;not null;uniqueIndex:ux_summary_key,priority:3"`
	Shift            string    `gorm:"column:shift;type:text;not null;uniqueIndex:ux_summary_key,priority:4"`
	TotalProduced    int64     `gorm:"column:total_produced;not null"`
	GoodQty          int64     `gorm:"column:good_qty;not null"`
	ReworkQty        int64     `gorm:"column:rework_qty;not null"`
	ScrapQty         int64     `gorm:"column:scrap_qty;not null"`
	ReworkGoodQty    int64     `gorm:"column:rework_good_qty;not null"`
	ReworkScrapQty   int64     `gorm:"column:rework_scrap_qty;not null"`
	ReworkPendingQty int64     `gorm:"column:rework_pending_qty;not null"`
	OperatorName     string    `gorm:"column:operator_name;type:text;not null"`
	Notes            string    `gorm:"column:notes;type:text;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;not null"`
	UpdatedAt        time.Time `gorm:"column:updated_at;not null"`
}

func (DailyProductionSummary) TableName() string {
	return "daily_production_summaries"
}

type DefectDetail struct {
	ID            uint64              `gorm:"column:id;primaryKey;autoIncrement"`
	SummaryID     uint64              `gorm:"column:summary_id;not null;index"`
	DefectCodeID  *uint64             `gorm:"column:defect_code_id;index"`
	DefectType    string              `gorm:"column:defect_type;type:text;not null"`
	Quantity      int64               `gorm:"column:quantity;not null"`
	MeasuredValue decimal.NullDecimal `gorm:"column:measured_value;type:numeric(14,4)"`
	SpecValue     decimal.NullDecimal `gorm:"column:spec_value;type:numeric(14,4)"`
	BinNumber     string              `gorm:"column:bin_number;type:text;not null"`
	ReworkResult  string              `gorm:"column:rework_result;type:text;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;not null"`
}

func (DefectDetail) TableName() string {
	return "defect_details"
}
