package kpi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"factoryqc/internal/bootstrap/logging"
	"factoryqc/internal/domain/quality"
	"factoryqc/internal/errs"
	"factoryqc/internal/metrics"
	"factoryqc/internal/ports"
	"factoryqc/internal/validation"
)

type DefectItemInput struct {
	DefectCode    string              `json:"defect_code" validate:"max=64"`
	DefectType    string              `json:"defect_type" validate:"required"`
	Quantity      int64               `json:"quantity" validate:"gte=0"`
	MeasuredValue decimal.NullDecimal `json:"measured_value"`
	SpecValue     decimal.NullDecimal `json:"spec_value"`
	BinNumber     string              `json:"bin_number" validate:"max=64"`
	ReworkResult  string              `json:"rework_result" validate:"max=255"`
}

type SubmitProductionInput struct {
	ProductionDate   string            `json:"production_date" validate:"ymd"`
	MachineCode      string            `json:"machine_code" validate:"required,max=64"`
	PartNumber       string            `json:"part_number" validate:"required,max=128"`
	Shift            string            `json:"shift"`
	TotalProduced    int64             `json:"total_produced" validate:"gte=0"`
	GoodQty          int64             `json:"good_qty" validate:"gte=0"`
	ReworkQty        int64             `json:"rework_qty" validate:"gte=0"`
	ScrapQty         int64             `json:"scrap_qty" validate:"gte=0"`
	ReworkGoodQty    int64             `json:"rework_good_qty" validate:"gte=0"`
	ReworkScrapQty   int64             `json:"rework_scrap_qty" validate:"gte=0"`
	ReworkPendingQty int64             `json:"rework_pending_qty" validate:"gte=0"`
	OperatorName     string            `json:"operator_name" validate:"max=128"`
	Notes            string            `json:"notes" validate:"max=2000"`
	DefectItems      []DefectItemInput `json:"defect_items" validate:"dive"`
}

func (in SubmitProductionInput) counters() quality.Counters {
	return quality.Counters{
		Total:         in.TotalProduced,
		Good:          in.GoodQty,
		Rework:        in.ReworkQty,
		Scrap:         in.ScrapQty,
		ReworkGood:    in.ReworkGoodQty,
		ReworkScrap:   in.ReworkScrapQty,
		ReworkPending: in.ReworkPendingQty,
	}
}

type SubmitProductionResult struct {
	Summary  SummaryView  `json:"summary"`
	Defects  []DefectView `json:"defects"`
	Events   []EventView  `json:"events"`
	Warnings []string     `json:"warnings,omitempty"`
}

// SubmitProduction adds one production report to its daily summary key. The
// counters, the defect rows and the fan-out events share one transaction.
func (s *Service) SubmitProduction(ctx context.Context, input SubmitProductionInput) (SubmitProductionResult, error) {
	if err := checkContext(ctx); err != nil {
		return SubmitProductionResult{}, err
	}
	if err := s.requireWrite(); err != nil {
		return SubmitProductionResult{}, err
	}
	if s.production == nil || s.events == nil {
		return SubmitProductionResult{}, errors.New("production and event repositories are required")
	}

	trimProductionInput(&input)
	if err := validation.Struct(input); err != nil {
		return SubmitProductionResult{}, err
	}
	shift, err := quality.NormalizeShift(input.Shift)
	if err != nil {
		return SubmitProductionResult{}, invalid(err)
	}
	defectTypes := make([]quality.DefectType, 0, len(input.DefectItems))
	for i, item := range input.DefectItems {
		t, err := quality.ParseDefectType(item.DefectType)
		if err != nil {
			return SubmitProductionResult{}, invalid(errs.Wrapf(err, "defect_items[%d]", i))
		}
		defectTypes = append(defectTypes, t)
	}

	now := s.now()
	productionDate := input.ProductionDate
	if productionDate == "" {
		productionDate = s.today(now)
	}

	machine, err := s.machineByCode(ctx, input.MachineCode)
	if err != nil {
		return SubmitProductionResult{}, err
	}

	key := ports.SummaryKey{
		ProductionDate: productionDate,
		MachineID:      machine.ID,
		PartNumber:     input.PartNumber,
		Shift:          shift,
	}
	counters := input.counters()

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "usecase.kpi"),
		slog.String("machine_code", machine.Code),
		slog.String("production_date", productionDate),
	)

	var result SubmitProductionResult
	if counters.Good+counters.Rework+counters.Scrap > counters.Total {
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"good+rework+scrap (%d) exceeds total_produced (%d)",
			counters.Good+counters.Rework+counters.Scrap, counters.Total,
		))
	}

	unlock := s.summaryLocks.Lock(summaryLockKey(key))
	defer unlock()

	err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
		summary, err := s.production.AccumulateSummary(txCtx, ports.SummaryDelta{
			Key:      key,
			Counters: counters,
			Operator: input.OperatorName,
			Notes:    input.Notes,
			At:       now,
		})
		if err != nil {
			return err
		}
		result.Summary = toSummaryView(summary)

		result.Defects = make([]DefectView, 0, len(input.DefectItems))
		for i, item := range input.DefectItems {
			detail := ports.DefectDetail{
				SummaryID:     summary.ID,
				DefectType:    defectTypes[i],
				Quantity:      item.Quantity,
				MeasuredValue: item.MeasuredValue,
				SpecValue:     item.SpecValue,
				BinNumber:     item.BinNumber,
				ReworkResult:  item.ReworkResult,
				CreatedAt:     now,
			}
			if detail.Quantity == 0 {
				detail.Quantity = 1
			}
			if item.DefectCode != "" {
				code, ok, err := s.master.FindDefectCodeByCode(txCtx, item.DefectCode)
				if err != nil {
					return err
				}
				if ok {
					detail.DefectCodeID = &code.ID
					detail.DefectCode = code.Code
				} else {
					result.Warnings = append(result.Warnings, fmt.Sprintf("defect_items[%d]: unknown defect code %q stored as null", i, item.DefectCode))
				}
			}
			created, err := s.production.CreateDefect(txCtx, detail)
			if err != nil {
				return err
			}
			result.Defects = append(result.Defects, toDefectView(created))
		}

		result.Events = make([]EventView, 0, 3)
		for _, bucket := range fanOutBuckets(counters) {
			summaryID := summary.ID
			event, err := s.events.CreateEvent(txCtx, ports.InspectionEvent{
				MachineID:     machine.ID,
				MachineCode:   machine.Code,
				PartNumber:    input.PartNumber,
				Quantity:      bucket.quantity,
				Disposition:   bucket.disposition,
				ProductLineID: machine.ProductLineID,
				OperatorName:  input.OperatorName,
				Shift:         shift,
				TotalProduced: counters.Total,
				Source:        ports.EventSourceProduction,
				SummaryID:     &summaryID,
				InspectedAt:   now,
				EventDate:     productionDate,
			})
			if err != nil {
				return err
			}
			result.Events = append(result.Events, toEventView(event, ""))
		}
		return nil
	})
	if err != nil {
		metrics.ProductionSubmissions.WithLabelValues("failed").Inc()
		logging.Error(logCtx, "production submission rolled back", slog.Any("err", errs.Loggable(err)))
		return SubmitProductionResult{}, err
	}

	metrics.ProductionSubmissions.WithLabelValues("accumulated").Inc()
	for _, bucket := range fanOutBuckets(counters) {
		metrics.InspectionUnits.WithLabelValues(string(bucket.disposition), ports.EventSourceProduction).Add(float64(bucket.quantity))
	}
	logging.Info(logCtx, "production accumulated",
		slog.Uint64("summary_id", result.Summary.ID),
		slog.Int64("total_produced", result.Summary.TotalProduced),
		slog.Int("defects", len(result.Defects)),
	)
	return result, nil
}

type dispositionBucket struct {
	disposition quality.Disposition
	quantity    int64
}

// fanOutBuckets lists the non-zero disposition counts of one submission.
func fanOutBuckets(c quality.Counters) []dispositionBucket {
	all := []dispositionBucket{
		{disposition: quality.DispositionGood, quantity: c.Good},
		{disposition: quality.DispositionRework, quantity: c.Rework},
		{disposition: quality.DispositionScrap, quantity: c.Scrap},
	}
	out := all[:0]
	for _, b := range all {
		if b.quantity > 0 {
			out = append(out, b)
		}
	}
	return out
}

func summaryLockKey(key ports.SummaryKey) string {
	return fmt.Sprintf("%s|%d|%s|%s", key.ProductionDate, key.MachineID, key.PartNumber, key.Shift)
}

func trimProductionInput(in *SubmitProductionInput) {
	in.ProductionDate = strings.TrimSpace(in.ProductionDate)
	in.MachineCode = strings.TrimSpace(in.MachineCode)
	in.PartNumber = strings.TrimSpace(in.PartNumber)
	in.OperatorName = strings.TrimSpace(in.OperatorName)
	in.Notes = strings.TrimSpace(in.Notes)
	for i := range in.DefectItems {
		in.DefectItems[i].DefectCode = strings.TrimSpace(in.DefectItems[i].DefectCode)
		in.DefectItems[i].BinNumber = strings.TrimSpace(in.DefectItems[i].BinNumber)
		in.DefectItems[i].ReworkResult = strings.TrimSpace(in.DefectItems[i].ReworkResult)
	}
}
