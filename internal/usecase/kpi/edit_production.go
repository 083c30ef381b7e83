package kpi

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"factoryqc/internal/bootstrap/logging"
	"factoryqc/internal/domain/quality"
	"factoryqc/internal/errs"
	"factoryqc/internal/ports"
	"factoryqc/internal/validation"
)

type SummaryDetailView struct {
	SummaryView
	Defects []DefectView `json:"defects"`
}

// UpdateSummaryInput overwrites the provided fields only. Counters are set,
// not added.
type UpdateSummaryInput struct {
	ID               uint64  `json:"-"`
	TotalProduced    *int64  `json:"total_produced" validate:"omitempty,gte=0"`
	GoodQty          *int64  `json:"good_qty" validate:"omitempty,gte=0"`
	ReworkQty        *int64  `json:"rework_qty" validate:"omitempty,gte=0"`
	ScrapQty         *int64  `json:"scrap_qty" validate:"omitempty,gte=0"`
	ReworkGoodQty    *int64  `json:"rework_good_qty" validate:"omitempty,gte=0"`
	ReworkScrapQty   *int64  `json:"rework_scrap_qty" validate:"omitempty,gte=0"`
	ReworkPendingQty *int64  `json:"rework_pending_qty" validate:"omitempty,gte=0"`
	OperatorName     *string `json:"operator_name" validate:"omitempty,max=128"`
	Notes            *string `json:"notes" validate:"omitempty,max=2000"`
}

func (in UpdateSummaryInput) patch() ports.SummaryPatch {
	return ports.SummaryPatch{
		TotalProduced:    in.TotalProduced,
		GoodQty:          in.GoodQty,
		ReworkQty:        in.ReworkQty,
		ScrapQty:         in.ScrapQty,
		ReworkGoodQty:    in.ReworkGoodQty,
		ReworkScrapQty:   in.ReworkScrapQty,
		ReworkPendingQty: in.ReworkPendingQty,
		OperatorName:     trimmedPtr(in.OperatorName),
		Notes:            trimmedPtr(in.Notes),
	}
}

// UpdateDefectInput edits one defect row. An empty defect_code clears the link.
type UpdateDefectInput struct {
	ID            uint64               `json:"-"`
	DefectCode    *string              `json:"defect_code" validate:"omitempty,max=64"`
	DefectType    *string              `json:"defect_type"`
	Quantity      *int64               `json:"quantity" validate:"omitempty,gte=1"`
	MeasuredValue *decimal.NullDecimal `json:"measured_value"`
	SpecValue     *decimal.NullDecimal `json:"spec_value"`
	BinNumber     *string              `json:"bin_number" validate:"omitempty,max=64"`
	ReworkResult  *string              `json:"rework_result" validate:"omitempty,max=255"`
}

func (s *Service) GetSummary(ctx context.Context, id uint64) (SummaryDetailView, error) {
	if err := checkContext(ctx); err != nil {
		return SummaryDetailView{}, err
	}
	if s.production == nil {
		return SummaryDetailView{}, errors.New("production repository is required")
	}

	summary, err := s.production.GetSummary(ctx, id)
	if err != nil {
		return SummaryDetailView{}, summaryError(err, id)
	}
	defects, err := s.production.ListDefects(ctx, id)
	if err != nil {
		return SummaryDetailView{}, err
	}
	return SummaryDetailView{SummaryView: toSummaryView(summary), Defects: toDefectViews(defects)}, nil
}

func (s *Service) UpdateSummary(ctx context.Context, input UpdateSummaryInput) (SummaryView, error) {
	if err := checkContext(ctx); err != nil {
		return SummaryView{}, err
	}
	if s.uow == nil || s.production == nil {
		return SummaryView{}, errors.New("production repository and unit of work are required")
	}
	if err := validation.Struct(input); err != nil {
		return SummaryView{}, err
	}
	patch := input.patch()
	if patch.IsEmpty() {
		return SummaryView{}, errs.Validation("no fields to update")
	}

	// the key lock is taken before the transaction, in the same order as SubmitProduction
	current, err := s.production.GetSummary(ctx, input.ID)
	if err != nil {
		return SummaryView{}, summaryError(err, input.ID)
	}
	unlock := s.summaryLocks.Lock(summaryLockKey(current.Key))
	defer unlock()

	var updated ports.ProductionSummary
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		updated, err = s.production.UpdateSummary(txCtx, input.ID, patch, s.now())
		if err != nil {
			return summaryError(err, input.ID)
		}
		return nil
	}); err != nil {
		return SummaryView{}, err
	}

	logging.Info(logging.WithAttrs(ctx, slog.String("component", "usecase.kpi")), "production summary updated",
		slog.Uint64("summary_id", updated.ID),
	)
	return toSummaryView(updated), nil
}

// DeleteSummary removes the summary and its defect rows. Fan-out events stay in
// the append-only log.
func (s *Service) DeleteSummary(ctx context.Context, id uint64) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if s.uow == nil || s.production == nil {
		return errors.New("production repository and unit of work are required")
	}

	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.production.GetSummary(txCtx, id); err != nil {
			return summaryError(err, id)
		}
		if err := s.production.DeleteSummary(txCtx, id); err != nil {
			return summaryError(err, id)
		}
		return nil
	}); err != nil {
		return err
	}

	logging.Info(logging.WithAttrs(ctx, slog.String("component", "usecase.kpi")), "production summary deleted",
		slog.Uint64("summary_id", id),
	)
	return nil
}

// ListDefects returns an empty list for an unknown summary id.
func (s *Service) ListDefects(ctx context.Context, summaryID uint64) ([]DefectView, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if s.production == nil {
		return nil, errors.New("production repository is required")
	}

	items, err := s.production.ListDefects(ctx, summaryID)
	if err != nil {
		return nil, err
	}
	return toDefectViews(items), nil
}

func (s *Service) GetDefect(ctx context.Context, id uint64) (DefectView, error) {
	if err := checkContext(ctx); err != nil {
		return DefectView{}, err
	}
	if s.production == nil {
		return DefectView{}, errors.New("production repository is required")
	}

	item, err := s.production.GetDefect(ctx, id)
	if err != nil {
		return DefectView{}, defectError(err, id)
	}
	return toDefectView(item), nil
}

// UpdateDefect edits one defect row; the parent summary counters are untouched.
func (s *Service) UpdateDefect(ctx context.Context, input UpdateDefectInput) (DefectView, error) {
	if err := checkContext(ctx); err != nil {
		return DefectView{}, err
	}
	if err := s.requireWrite(); err != nil {
		return DefectView{}, err
	}
	if s.production == nil {
		return DefectView{}, errors.New("production repository is required")
	}
	if err := validation.Struct(input); err != nil {
		return DefectView{}, err
	}
	if input.Quantity != nil && *input.Quantity < 1 {
		return DefectView{}, errs.Validation("quantity must be >= 1")
	}

	patch := ports.DefectPatch{
		Quantity:      input.Quantity,
		MeasuredValue: input.MeasuredValue,
		SpecValue:     input.SpecValue,
		BinNumber:     trimmedPtr(input.BinNumber),
		ReworkResult:  trimmedPtr(input.ReworkResult),
	}
	if input.DefectType != nil {
		t, err := quality.ParseDefectType(*input.DefectType)
		if err != nil {
			return DefectView{}, invalid(err)
		}
		patch.DefectType = &t
	}

	var updated ports.DefectDetail
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if input.DefectCode != nil {
			patch.SetDefectCode = true
			if code := strings.TrimSpace(*input.DefectCode); code != "" {
				found, ok, err := s.master.FindDefectCodeByCode(txCtx, code)
				if err != nil {
					return err
				}
				if !ok {
					return errs.Validation("unknown defect code %q", code)
				}
				patch.DefectCodeID = &found.ID
			}
		}

		var err error
		updated, err = s.production.UpdateDefect(txCtx, input.ID, patch, s.now())
		if err != nil {
			return defectError(err, input.ID)
		}
		return nil
	}); err != nil {
		return DefectView{}, err
	}
	return toDefectView(updated), nil
}

func (s *Service) DeleteDefect(ctx context.Context, id uint64) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if s.uow == nil || s.production == nil {
		return errors.New("production repository and unit of work are required")
	}

	return s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.production.DeleteDefect(txCtx, id); err != nil {
			return defectError(err, id)
		}
		return nil
	})
}

func summaryError(err error, id uint64) error {
	if errors.Is(err, ports.ErrSummaryNotFound) {
		return notFound(err, "summary %d", id)
	}
	return err
}

func defectError(err error, id uint64) error {
	if errors.Is(err, ports.ErrDefectNotFound) {
		return notFound(err, "defect %d", id)
	}
	return err
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	return &trimmed
}
