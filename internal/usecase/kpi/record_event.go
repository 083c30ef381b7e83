package kpi

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"factoryqc/internal/bootstrap/logging"
	"factoryqc/internal/domain/quality"
	"factoryqc/internal/errs"
	"factoryqc/internal/metrics"
	"factoryqc/internal/ports"
	"factoryqc/internal/validation"
)

type RecordEventInput struct {
	MachineCode     string              `json:"machine_code" validate:"required,max=64"`
	PartNumber      string              `json:"part_number" validate:"required,max=128"`
	LotNumber       string              `json:"lot_number" validate:"max=128"`
	Quantity        int64               `json:"quantity" validate:"gte=0"`
	Disposition     string              `json:"disposition" validate:"required"`
	DefectCode      string              `json:"defect_code" validate:"max=64"`
	ProductLineCode string              `json:"product_line_code" validate:"max=64"`
	MeasuredValue   decimal.NullDecimal `json:"measured_value"`
	SpecValue       decimal.NullDecimal `json:"spec_value"`
	OperatorName    string              `json:"operator_name" validate:"required,max=128"`
	Shift           string              `json:"shift"`
	InspectedAt     *time.Time          `json:"inspected_at"`
}

type RecordEventResult struct {
	Event          EventView  `json:"event"`
	ConsecutiveNG  int        `json:"consecutive_ng"`
	AndonTriggered bool       `json:"andon_triggered"`
	Alert          *AlertView `json:"alert,omitempty"`
	Warnings       []string   `json:"warnings,omitempty"`
}

// RecordEvent appends one inspection event. A SCRAP event re-evaluates the
// machine streak after the insert has committed.
func (s *Service) RecordEvent(ctx context.Context, input RecordEventInput) (RecordEventResult, error) {
	if err := checkContext(ctx); err != nil {
		return RecordEventResult{}, err
	}
	if err := s.requireWrite(); err != nil {
		return RecordEventResult{}, err
	}
	if s.events == nil {
		return RecordEventResult{}, errors.New("event repository is required")
	}

	trimEventInput(&input)
	if err := validation.Struct(input); err != nil {
		return RecordEventResult{}, err
	}

	disposition, err := quality.ParseDisposition(input.Disposition)
	if err != nil {
		return RecordEventResult{}, invalid(err)
	}
	if disposition.IsDefect() && input.DefectCode == "" {
		return RecordEventResult{}, errs.Validation("defect_code is required for %s", disposition)
	}
	shift, err := quality.NormalizeShift(input.Shift)
	if err != nil {
		return RecordEventResult{}, invalid(err)
	}
	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}

	inspectedAt := s.now()
	if input.InspectedAt != nil && !input.InspectedAt.IsZero() {
		inspectedAt = input.InspectedAt.UTC()
	}

	logCtx := logging.WithAttrs(ctx,
		slog.String("component", "usecase.kpi"),
		slog.String("machine_code", input.MachineCode),
	)

	var (
		created    ports.InspectionEvent
		defectCode string
	)
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		machine, err := s.machineByCode(txCtx, input.MachineCode)
		if err != nil {
			return err
		}

		event := ports.InspectionEvent{
			MachineID:     machine.ID,
			MachineCode:   machine.Code,
			PartNumber:    input.PartNumber,
			LotNumber:     input.LotNumber,
			Quantity:      quantity,
			Disposition:   disposition,
			ProductLineID: machine.ProductLineID,
			MeasuredValue: input.MeasuredValue,
			SpecValue:     input.SpecValue,
			OperatorName:  input.OperatorName,
			Shift:         shift,
			Source:        ports.EventSourceEntry,
			InspectedAt:   inspectedAt,
			EventDate:     s.today(inspectedAt),
		}

		if input.DefectCode != "" {
			code, ok, err := s.master.FindDefectCodeByCode(txCtx, input.DefectCode)
			if err != nil {
				return err
			}
			if ok {
				event.DefectCodeID = &code.ID
				defectCode = code.Code
			} else {
				logging.Warn(logCtx, "unknown defect code stored as null", slog.String("defect_code", input.DefectCode))
			}
		}
		if input.ProductLineCode != "" {
			line, ok, err := s.master.FindProductLineByCode(txCtx, input.ProductLineCode)
			if err != nil {
				return err
			}
			if ok {
				event.ProductLineID = &line.ID
			} else {
				event.ProductLineID = nil
			}
		}

		created, err = s.events.CreateEvent(txCtx, event)
		return err
	}); err != nil {
		return RecordEventResult{}, err
	}

	metrics.InspectionUnits.WithLabelValues(string(disposition), ports.EventSourceEntry).Add(float64(quantity))
	logging.Info(logCtx, "inspection event recorded",
		slog.Uint64("event_id", created.ID),
		slog.String("disposition", string(disposition)),
		slog.Int64("quantity", quantity),
	)

	result := RecordEventResult{Event: toEventView(created, defectCode)}
	if disposition != quality.DispositionScrap {
		return result, nil
	}

	outcome, err := s.evaluateStreak(ctx, created.MachineID, created.MachineCode)
	result.ConsecutiveNG = outcome.streak
	result.AndonTriggered = outcome.streak >= s.settings.StreakThreshold
	if err != nil {
		logging.Error(logCtx, "andon evaluation failed after event commit",
			slog.Uint64("event_id", created.ID),
			slog.Any("err", errs.Loggable(err)),
		)
		result.Warnings = append(result.Warnings, "andon evaluation failed: "+err.Error())
		return result, nil
	}
	if outcome.alert != nil {
		view := toAlertView(*outcome.alert)
		result.Alert = &view
	}
	return result, nil
}

func trimEventInput(in *RecordEventInput) {
	in.MachineCode = strings.TrimSpace(in.MachineCode)
	in.PartNumber = strings.TrimSpace(in.PartNumber)
	in.LotNumber = strings.TrimSpace(in.LotNumber)
	in.Disposition = strings.TrimSpace(in.Disposition)
	in.DefectCode = strings.TrimSpace(in.DefectCode)
	in.ProductLineCode = strings.TrimSpace(in.ProductLineCode)
	in.OperatorName = strings.TrimSpace(in.OperatorName)
}
