package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type InspectionEvent struct {
	ID            uint64              `gorm:"column:id;primaryKey;autoIncrement"`
	MachineID     uint64              `gorm:"column:machine_id;not null;index:idx_events_machine_time,priority:1"`
	PartNumber    string              `gorm:"column:part_number;type:text;not null"`
	LotNumber     string              `gorm:"column:lot_number;type:text;not null"`
	Quantity      int64               `gorm:"column:quantity;not null"`
	Disposition   string              `gorm:"column:disposition;type:text;not null"`
	DefectCodeID  *uint64             `gorm:"column:defect_code_id;index"`
	ProductLineID *uint64             `gorm:"column:product_line_id;index"`
	MeasuredValue decimal.NullDecimal `gorm:"column:measured_value;type:numeric(14,4)"`
	SpecValue     decimal.NullDecimal `gorm:"column:spec_value;type:numeric(14,4)"`
	OperatorName  string              `gorm:"column:operator_name;type:text;not null"`
	Shift         string              `gorm:"column:shift;type:text;not null"`
	TotalProduced int64               `gorm:"column:total_produced;not null"`
	Source        string              `gorm:"column:source;type:text;not null"`
	SummaryID     *uint64             `gorm:"column:summary_id;index"`
	InspectedAt   time.Time           `gorm:"column:inspected_at;not null;index:idx_events_machine_time,priority:2"`
	EventDate     string              `gorm:"column:event_date;type:text;not null;index"`
}

func (InspectionEvent) TableName() string {
	return "inspection_events"
}
