package kpi

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"factoryqc/internal/bootstrap/logging"
	"factoryqc/internal/errs"
	"factoryqc/internal/ports"
	"factoryqc/internal/validation"
)

const defaultClaimStatus = "open"

type CreateClaimInput struct {
	ClaimNumber     string `json:"claim_number" validate:"required,max=64"`
	ClaimDate       string `json:"claim_date" validate:"ymd"`
	CustomerName    string `json:"customer_name" validate:"required,max=255"`
	ProductLineCode string `json:"product_line_code" validate:"max=64"`
	DefectCode      string `json:"defect_code" validate:"max=64"`
	PartNumber      string `json:"part_number" validate:"max=128"`
	Quantity        int64  `json:"quantity" validate:"gte=1"`
	Description     string `json:"description" validate:"max=4000"`
	Status          string `json:"status" validate:"max=32"`
}

type ListClaimsInput struct {
	From  string
	To    string
	Limit int
}

// CreateClaim records a customer claim. Claims feed the monthly claim PPM.
func (s *Service) CreateClaim(ctx context.Context, input CreateClaimInput) (ClaimView, error) {
	if err := checkContext(ctx); err != nil {
		return ClaimView{}, err
	}
	if err := s.requireWrite(); err != nil {
		return ClaimView{}, err
	}
	if s.claims == nil {
		return ClaimView{}, errors.New("claim repository is required")
	}

	input.ClaimNumber = strings.TrimSpace(input.ClaimNumber)
	input.ClaimDate = strings.TrimSpace(input.ClaimDate)
	input.CustomerName = strings.TrimSpace(input.CustomerName)
	input.ProductLineCode = strings.TrimSpace(input.ProductLineCode)
	input.DefectCode = strings.TrimSpace(input.DefectCode)
	input.PartNumber = strings.TrimSpace(input.PartNumber)
	input.Status = strings.ToLower(strings.TrimSpace(input.Status))
	if err := validation.Struct(input); err != nil {
		return ClaimView{}, err
	}

	now := s.now()
	claim := ports.CustomerClaim{
		ClaimNumber:  input.ClaimNumber,
		ClaimDate:    input.ClaimDate,
		CustomerName: input.CustomerName,
		PartNumber:   input.PartNumber,
		Quantity:     input.Quantity,
		Description:  strings.TrimSpace(input.Description),
		Status:       input.Status,
		CreatedAt:    now,
	}
	if claim.ClaimDate == "" {
		claim.ClaimDate = s.today(now)
	}
	if claim.Status == "" {
		claim.Status = defaultClaimStatus
	}

	var created ports.CustomerClaim
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		if input.ProductLineCode != "" {
			line, ok, err := s.master.FindProductLineByCode(txCtx, input.ProductLineCode)
			if err != nil {
				return err
			}
			if !ok {
				return errs.Validation("unknown product line %q", input.ProductLineCode)
			}
			claim.ProductLineID = &line.ID
			claim.ProductLineCode = line.Code
		}
		if input.DefectCode != "" {
			code, ok, err := s.master.FindDefectCodeByCode(txCtx, input.DefectCode)
			if err != nil {
				return err
			}
			if !ok {
				return errs.Validation("unknown defect code %q", input.DefectCode)
			}
			claim.DefectCodeID = &code.ID
			claim.DefectCode = code.Code
		}

		var err error
		created, err = s.claims.CreateClaim(txCtx, claim)
		return err
	}); err != nil {
		return ClaimView{}, err
	}

	logging.Info(logging.WithAttrs(ctx, slog.String("component", "usecase.kpi")), "customer claim recorded",
		slog.String("claim_number", created.ClaimNumber),
		slog.Int64("quantity", created.Quantity),
	)
	return toClaimView(created), nil
}

func (s *Service) ListClaims(ctx context.Context, input ListClaimsInput) ([]ClaimView, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if s.claims == nil {
		return nil, errors.New("claim repository is required")
	}

	filter := ports.ClaimFilter{
		From:  strings.TrimSpace(input.From),
		To:    strings.TrimSpace(input.To),
		Limit: input.Limit,
	}
	if err := validation.Struct(struct {
		From string `json:"from" validate:"ymd"`
		To   string `json:"to" validate:"ymd"`
	}{From: filter.From, To: filter.To}); err != nil {
		return nil, err
	}

	items, err := s.claims.ListClaims(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]ClaimView, 0, len(items))
	for _, item := range items {
		out = append(out, toClaimView(item))
	}
	return out, nil
}
