package kpi

import (
	"time"

	"github.com/shopspring/decimal"

	"factoryqc/internal/ports"
)

type EventView struct {
	ID            uint64              `json:"id"`
	MachineCode   string              `json:"machine_code"`
	PartNumber    string              `json:"part_number"`
	LotNumber     string              `json:"lot_number,omitempty"`
	Quantity      int64               `json:"quantity"`
	Disposition   string              `json:"disposition"`
	DefectCode    string              `json:"defect_code,omitempty"`
	MeasuredValue decimal.NullDecimal `json:"measured_value"`
	SpecValue     decimal.NullDecimal `json:"spec_value"`
	OperatorName  string              `json:"operator_name"`
	Shift         string              `json:"shift,omitempty"`
	TotalProduced int64               `json:"total_produced"`
	Source        string              `json:"source"`
	SummaryID     *uint64             `json:"summary_id,omitempty"`
	InspectedAt   time.Time           `json:"inspected_at"`
	EventDate     string              `json:"event_date"`
}

// SummaryView is a production summary with its derived KPIs.
type SummaryView struct {
	ID               uint64    `json:"id"`
	ProductionDate   string    `json:"production_date"`
	MachineCode      string    `json:"machine_code"`
	PartNumber       string    `json:"part_number"`
	Shift            string    `json:"shift"`
	TotalProduced    int64     `json:"total_produced"`
	GoodQty          int64     `json:"good_qty"`
	ReworkQty        int64     `json:"rework_qty"`
	ScrapQty         int64     `json:"scrap_qty"`
	ReworkGoodQty    int64     `json:"rework_good_qty"`
	ReworkScrapQty   int64     `json:"rework_scrap_qty"`
	ReworkPendingQty int64     `json:"rework_pending_qty"`
	FinalGood        int64     `json:"final_good"`
	FinalReject      int64     `json:"final_reject"`
	GoodPct          float64   `json:"good_pct"`
	RejectPct        float64   `json:"reject_pct"`
	ReworkPct        float64   `json:"rework_pct"`
	OperatorName     string    `json:"operator_name"`
	Notes            string    `json:"notes"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type DefectView struct {
	ID            uint64              `json:"id"`
	SummaryID     uint64              `json:"summary_id"`
	DefectCode    string              `json:"defect_code,omitempty"`
	DefectType    string              `json:"defect_type"`
	Quantity      int64               `json:"quantity"`
	MeasuredValue decimal.NullDecimal `json:"measured_value"`
	SpecValue     decimal.NullDecimal `json:"spec_value"`
	BinNumber     string              `json:"bin_number,omitempty"`
	ReworkResult  string              `json:"rework_result,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

type AlertView struct {
	ID                uint64     `json:"id"`
	AlertNumber       string     `json:"alert_number"`
	MachineCode       string     `json:"machine_code"`
	AlertType         string     `json:"alert_type"`
	Status            string     `json:"status"`
	EscalationLevel   int        `json:"escalation_level"`
	ConsecutiveNG     int        `json:"consecutive_ng"`
	Description       string     `json:"description"`
	Assignee          string     `json:"assignee,omitempty"`
	RootCause         string     `json:"root_cause,omitempty"`
	ActionTaken       string     `json:"action_taken,omitempty"`
	ResolvedBy        string     `json:"resolved_by,omitempty"`
	TriggeredAt       time.Time  `json:"triggered_at"`
	AcknowledgedAt    *time.Time `json:"acknowledged_at,omitempty"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
	ResponseMinutes   *float64   `json:"response_minutes,omitempty"`
	ResolutionMinutes *float64   `json:"resolution_minutes,omitempty"`
	DowntimeMinutes   *float64   `json:"downtime_minutes,omitempty"`
}

type ClaimView struct {
	ID              uint64    `json:"id"`
	ClaimNumber     string    `json:"claim_number"`
	ClaimDate       string    `json:"claim_date"`
	CustomerName    string    `json:"customer_name"`
	ProductLineCode string    `json:"product_line_code,omitempty"`
	DefectCode      string    `json:"defect_code,omitempty"`
	PartNumber      string    `json:"part_number,omitempty"`
	Quantity        int64     `json:"quantity"`
	Description     string    `json:"description,omitempty"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

type ActionPlanView struct {
	ID         uint64    `json:"id"`
	SourceType string    `json:"source_type"`
	SourceID   string    `json:"source_id"`
	Title      string    `json:"title"`
	Owner      string    `json:"owner"`
	DueDate    string    `json:"due_date,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type MachineView struct {
	ID              uint64 `json:"id"`
	Code            string `json:"code"`
	Name            string `json:"name"`
	ProductLineCode string `json:"product_line_code,omitempty"`
	Active          bool   `json:"active"`
}

type DefectCodeView struct {
	ID       uint64 `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type ProductLineView struct {
	ID   uint64 `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

func toEventView(e ports.InspectionEvent, defectCode string) EventView {
	return EventView{
		ID:            e.ID,
		MachineCode:   e.MachineCode,
		PartNumber:    e.PartNumber,
		LotNumber:     e.LotNumber,
		Quantity:      e.Quantity,
		Disposition:   string(e.Disposition),
		DefectCode:    defectCode,
		MeasuredValue: e.MeasuredValue,
		SpecValue:     e.SpecValue,
		OperatorName:  e.OperatorName,
		Shift:         e.Shift,
		TotalProduced: e.TotalProduced,
		Source:        e.Source,
		SummaryID:     e.SummaryID,
		InspectedAt:   e.InspectedAt,
		EventDate:     e.EventDate,
	}
}

func toSummaryView(s ports.ProductionSummary) SummaryView {
	c := s.Counters
	return SummaryView{
		ID:               s.ID,
		ProductionDate:   s.Key.ProductionDate,
		MachineCode:      s.MachineCode,
		PartNumber:       s.Key.PartNumber,
		Shift:            s.Key.Shift,
		TotalProduced:    c.Total,
		GoodQty:          c.Good,
		ReworkQty:        c.Rework,
		ScrapQty:         c.Scrap,
		ReworkGoodQty:    c.ReworkGood,
		ReworkScrapQty:   c.ReworkScrap,
		ReworkPendingQty: c.ReworkPending,
		FinalGood:        c.FinalGood(),
		FinalReject:      c.FinalReject(),
		GoodPct:          c.GoodPct(),
		RejectPct:        c.RejectPct(),
		ReworkPct:        c.ReworkPct(),
		OperatorName:     s.Operator,
		Notes:            s.Notes,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

func toDefectView(d ports.DefectDetail) DefectView {
	return DefectView{
		ID:            d.ID,
		SummaryID:     d.SummaryID,
		DefectCode:    d.DefectCode,
		DefectType:    string(d.DefectType),
		Quantity:      d.Quantity,
		MeasuredValue: d.MeasuredValue,
		SpecValue:     d.SpecValue,
		BinNumber:     d.BinNumber,
		ReworkResult:  d.ReworkResult,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func toDefectViews(items []ports.DefectDetail) []DefectView {
	out := make([]DefectView, 0, len(items))
	for _, d := range items {
		out = append(out, toDefectView(d))
	}
	return out
}

func toAlertView(a ports.AndonAlert) AlertView {
	return AlertView{
		ID:                a.ID,
		AlertNumber:       a.AlertNumber,
		MachineCode:       a.MachineCode,
		AlertType:         a.AlertType,
		Status:            string(a.Status),
		EscalationLevel:   a.EscalationLevel,
		ConsecutiveNG:     a.ConsecutiveNG,
		Description:       a.Description,
		Assignee:          a.Assignee,
		RootCause:         a.RootCause,
		ActionTaken:       a.ActionTaken,
		ResolvedBy:        a.ResolvedBy,
		TriggeredAt:       a.TriggeredAt,
		AcknowledgedAt:    a.AcknowledgedAt,
		ResolvedAt:        a.ResolvedAt,
		ResponseMinutes:   a.ResponseMinutes,
		ResolutionMinutes: a.ResolutionMinutes,
		DowntimeMinutes:   a.DowntimeMinutes,
	}
}

func toClaimView(c ports.CustomerClaim) ClaimView {
	return ClaimView{
		ID:              c.ID,
		ClaimNumber:     c.ClaimNumber,
		ClaimDate:       c.ClaimDate,
		CustomerName:    c.CustomerName,
		ProductLineCode: c.ProductLineCode,
		DefectCode:      c.DefectCode,
		PartNumber:      c.PartNumber,
		Quantity:        c.Quantity,
		Description:     c.Description,
		Status:          c.Status,
		CreatedAt:       c.CreatedAt,
	}
}

func toActionPlanView(p ports.ActionPlan) ActionPlanView {
	return ActionPlanView{
		ID:         p.ID,
		SourceType: p.SourceType,
		SourceID:   p.SourceID,
		Title:      p.Title,
		Owner:      p.Owner,
		DueDate:    p.DueDate,
		Status:     string(p.Status),
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}
