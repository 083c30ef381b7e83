package model

import "time"

// AndonAlert allows at most one open (triggered or acknowledged) alert per
// machine and alert type, enforced by idx_alerts_one_open.
type AndonAlert struct {
	ID                uint64     `gorm:"column:id;primaryKey;autoIncrement"`
	AlertNumber       string     `gorm:"column:alert_number;type:text;not null;uniqueIndex"`
	MachineID         uint64     `gorm:"column:machine_id;not null;index:idx_alerts_machine_status,priority:1;uniqueIndex:idx_alerts_one_open,priority:1,where:status <> 'resolved'"`
	AlertType         string     `gorm:"column:alert_type;type:text;not null;uniqueIndex:idx_alerts_one_open,priority:2"`
	Status            string     `gorm:"column:status;type:text;not null;index:idx_alerts_machine_status,priority:2"`
	EscalationLevel   int        `gorm:"column:escalation_level;not null"`
	ConsecutiveNG     int        `gorm:"column:consecutive_ng;not null"`
	Description       string     `gorm:"column:description;type:text;not null"`
	Assignee          string     `gorm:"column:assignee;type:text;not null"`
	RootCause         string     `gorm:"column:root_cause;type:text;not null"`
	ActionTaken       string     `gorm:"column:action_taken;type:text;not null"`
	ResolvedBy        string     `gorm:"column:resolved_by;type:text;not null"`
	TriggeredAt       time.Time  `gorm:"column:triggered_at;not null;index"`
	AcknowledgedAt    *time.Time `gorm:"column:acknowledged_at"`
	ResolvedAt        *time.Time `gorm:"column:resolved_at"`
	ResponseMinutes   *float64   `gorm:"column:response_minutes"`
	ResolutionMinutes *float64   `gorm:"column:resolution_minutes"`
	DowntimeMinutes   *float64   `gorm:"column:downtime_minutes"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;not null"`
}

func (AndonAlert) TableName() string {
	return "andon_alerts"
}
