package ports

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"factoryqc/internal/domain/quality"
)

var (
	ErrMachineNotFound = errors.New("machine not found")
	ErrSummaryNotFound = errors.New("production summary not found")
	ErrDefectNotFound  = errors.New("defect detail not found")
	ErrAlertNotFound   = errors.New("andon alert not found")
	ErrPlanNotFound    = errors.New("action plan not found")
)

const (
	EventSourceEntry      = "entry"
	EventSourceProduction = "production"
)

type Machine struct {
	ID              uint64
	Code            string
	Name            string
	ProductLineID   *uint64
	ProductLineCode string
	Active          bool
}

type DefectCode struct {
	ID       uint64
	Code     string
	Name     string
	Category string
}

type ProductLine struct {
	ID   uint64
	Code string
	Name string
}

type InspectionEvent struct {
	ID            uint64
	MachineID     uint64
	MachineCode   string
	PartNumber    string
	LotNumber     string
	Quantity      int64
	Disposition   quality.Disposition
	DefectCodeID  *uint64
	ProductLineID *uint64
	MeasuredValue decimal.NullDecimal
	SpecValue     decimal.NullDecimal
	OperatorName  string
	Shift         string
	TotalProduced int64
	Source        string
	SummaryID     *uint64
	InspectedAt   time.Time
	EventDate     string
}

// SummaryKey identifies one accumulation row.
type SummaryKey struct {
	ProductionDate string
	MachineID      uint64
	PartNumber     string
	Shift          string
}

type ProductionSummary struct {
	ID          uint64
	Key         SummaryKey
	MachineCode string
	Counters    quality.Counters
	Operator    string
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type SummaryDelta struct {
	Key      SummaryKey
	Counters quality.Counters
	Operator string
	Notes    string
	At       time.Time
}

// SummaryPatch overwrites only the non-nil fields.
type SummaryPatch struct {
	TotalProduced    *int64
	GoodQty          *int64
	ReworkQty        *int64
	ScrapQty         *int64
	ReworkGoodQty    *int64
	ReworkScrapQty   *int64
	ReworkPendingQty *int64
	OperatorName     *string
	Notes            *string
}

func (p SummaryPatch) IsEmpty() bool {
	return p.TotalProduced == nil && p.GoodQty == nil && p.ReworkQty == nil && p.ScrapQty == nil &&
		p.ReworkGoodQty == nil && p.ReworkScrapQty == nil && p.ReworkPendingQty == nil &&
		p.OperatorName == nil && p.Notes == nil
}

type DefectDetail struct {
	ID            uint64
	SummaryID     uint64
	DefectCodeID  *uint64
	DefectCode    string
	DefectType    quality.DefectType
	Quantity      int64
	MeasuredValue decimal.NullDecimal
	SpecValue     decimal.NullDecimal
	BinNumber     string
	ReworkResult  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type DefectPatch struct {
	// SetDefectCode applies DefectCodeID, which may be nil to clear the link.
	SetDefectCode bool
	DefectCodeID  *uint64
	DefectType    *quality.DefectType
	Quantity      *int64
	MeasuredValue *decimal.NullDecimal
	SpecValue     *decimal.NullDecimal
	BinNumber     *string
	ReworkResult  *string
}

type AndonAlert struct {
	ID                uint64
	AlertNumber       string
	MachineID         uint64
	MachineCode       string
	AlertType         string
	Status            quality.AlertStatus
	EscalationLevel   int
	ConsecutiveNG     int
	Description       string
	Assignee          string
	RootCause         string
	ActionTaken       string
	ResolvedBy        string
	TriggeredAt       time.Time
	AcknowledgedAt    *time.Time
	ResolvedAt        *time.Time
	ResponseMinutes   *float64
	ResolutionMinutes *float64
	DowntimeMinutes   *float64
	UpdatedAt         time.Time
}

type AlertFilter struct {
	Status      string
	MachineCode string
	OpenOnly    bool
	Limit       int
}

type CustomerClaim struct {
	ID              uint64
	ClaimNumber     string
	ClaimDate       string
	CustomerName    string
	ProductLineID   *uint64
	ProductLineCode string
	DefectCodeID    *uint64
	DefectCode      string
	PartNumber      string
	Quantity        int64
	Description     string
	Status          string
	CreatedAt       time.Time
}

type ClaimFilter struct {
	From  string
	To    string
	Limit int
}

type ActionPlan struct {
	ID         uint64
	SourceType string
	SourceID   string
	Title      string
	Owner      string
	DueDate    string
	Status     quality.PlanStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ActionPlanFilter struct {
	Status     string
	SourceType string
	SourceID   string
	Limit      int
}

type ActionPlanPatch struct {
	Title   *string
	Owner   *string
	DueDate *string
	Status  *quality.PlanStatus
}

type MasterDataRepository interface {
	FindMachineByCode(ctx context.Context, code string) (Machine, error)
	FindDefectCodeByCode(ctx context.Context, code string) (DefectCode, bool, error)
	FindProductLineByCode(ctx context.Context, code string) (ProductLine, bool, error)
	ListMachines(ctx context.Context) ([]Machine, error)
	ListDefectCodes(ctx context.Context) ([]DefectCode, error)
	ListProductLines(ctx context.Context) ([]ProductLine, error)
	UpsertProductLine(ctx context.Context, line ProductLine) (ProductLine, error)
	UpsertMachine(ctx context.Context, machine Machine) (Machine, error)
	UpsertDefectCode(ctx context.Context, code DefectCode) (DefectCode, error)
}

// EventRepository is the append-only inspection event log.
type EventRepository interface {
	CreateEvent(ctx context.Context, event InspectionEvent) (InspectionEvent, error)
	// RecentDispositions returns up to limit dispositions for the machine, newest first.
	RecentDispositions(ctx context.Context, machineID uint64, limit int) ([]quality.Disposition, error)
}

type ProductionRepository interface {
	// AccumulateSummary adds delta to the row for delta.Key, creating it when absent.
	AccumulateSummary(ctx context.Context, delta SummaryDelta) (ProductionSummary, error)
	GetSummary(ctx context.Context, id uint64) (ProductionSummary, error)
	UpdateSummary(ctx context.Context, id uint64, patch SummaryPatch, at time.Time) (ProductionSummary, error)
	// DeleteSummary removes the defect details first, then the summary.
	DeleteSummary(ctx context.Context, id uint64) error

	CreateDefect(ctx context.Context, defect DefectDetail) (DefectDetail, error)
	ListDefects(ctx context.Context, summaryID uint64) ([]DefectDetail, error)
	GetDefect(ctx context.Context, id uint64) (DefectDetail, error)
	UpdateDefect(ctx context.Context, id uint64, patch DefectPatch, at time.Time) (DefectDetail, error)
	DeleteDefect(ctx context.Context, id uint64) error
}

type AlertRepository interface {
	CreateAlert(ctx context.Context, alert AndonAlert) (AndonAlert, error)
	GetAlertByID(ctx context.Context, id uint64) (AndonAlert, error)
	GetAlertByNumber(ctx context.Context, number string) (AndonAlert, error)
	FindOpenAlert(ctx context.Context, machineID uint64, alertType string) (AndonAlert, bool, error)
	UpdateAlert(ctx context.Context, alert AndonAlert) (AndonAlert, error)
	ListAlerts(ctx context.Context, filter AlertFilter) ([]AndonAlert, error)
	CountOpenAlerts(ctx context.Context, lineCode string) (int64, error)
}

type ClaimRepository interface {
	CreateClaim(ctx context.Context, claim CustomerClaim) (CustomerClaim, error)
	ListClaims(ctx context.Context, filter ClaimFilter) ([]CustomerClaim, error)
}

type ActionPlanRepository interface {
	CreateActionPlan(ctx context.Context, plan ActionPlan) (ActionPlan, error)
	GetActionPlan(ctx context.Context, id uint64) (ActionPlan, error)
	UpdateActionPlan(ctx context.Context, id uint64, patch ActionPlanPatch, at time.Time) (ActionPlan, error)
	ListActionPlans(ctx context.Context, filter ActionPlanFilter) ([]ActionPlan, error)
}
