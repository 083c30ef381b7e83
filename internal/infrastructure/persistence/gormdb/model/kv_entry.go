package model

type KVEntry struct {
	Key       string `gorm:"column:key;type:text;primaryKey"`
	Value     string `gorm:"column:value;type:text;not null"`
	UpdatedAt string `gorm:"column:updated_at;type:text;not null"`
}

func (KVEntry) TableName() string {
	return "kv_entries"
}

// All lists every model in migration order.
func All() []any {
	return []any{
		&ProductLine{},
		&Machine{},
		&DefectCode{},
		&InspectionEvent{},
		&DailyProductionSummary{},
		&DefectDetail{},
		&AndonAlert{},
		&CustomerClaim{},
		&ActionPlan{},
		&KVEntry{},
	}
}
