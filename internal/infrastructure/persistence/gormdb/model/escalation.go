package model

import "time"

type CustomerClaim struct {
	ID            uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	ClaimNumber   string    `gorm:"column:claim_number;type:text;not null;uniqueIndex"`
	ClaimDate     string    `gorm:"column:claim_date;type:text;not null;index"`
	CustomerName  string    `gorm:"column:customer_name;type:text;not null"`
	ProductLineID *uint64   `gorm:"column:product_line_id;index"`
	DefectCodeID  *uint64   `gorm:"column:defect_code_id;index"`
	PartNumber    string    `gorm:"column:part_number;type:text;not null"`
	Quantity      int64     `gorm:"column:quantity;not null"`
	Description   string    `gorm:"column:description;type:text;not null"`
	Status        string    `gorm:"column:status;type:text;not null"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
}

func (CustomerClaim) TableName() string {
	return "customer_claims"
}

type ActionPlan struct {
	ID         uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	SourceType string    `gorm:"column:source_type;type:text;not null;index:idx_plans_source,priority:1"`
	SourceID   string    `gorm:"column:source_id;type:text;not null;index:idx_plans_source,priority:2"`
	Title      string    `gorm:"column:title;type:text;not null"`
	Owner      string    `gorm:"column:owner;type:text;not null"`
	DueDate    string    `gorm:"column:due_date;type:text;not null"`
	Status     string    `gorm:"column:status;type:text;not null;index"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at;not null"`
}

func (ActionPlan) TableName() string {
	return "action_plans"
}
