package kpi

import (
	"context"
	"errors"
	"strings"

	"factoryqc/internal/domain/quality"
	"factoryqc/internal/errs"
	"factoryqc/internal/ports"
	"factoryqc/internal/validation"
)

type CreateActionPlanInput struct {
	SourceType string `json:"source_type" validate:"required,oneof=andon claim pareto manual"`
	SourceID   string `json:"source_id" validate:"max=64"`
	Title      string `json:"title" validate:"required,max=255"`
	Owner      string `json:"owner" validate:"required,max=128"`
	DueDate    string `json:"due_date" validate:"ymd"`
	Status     string `json:"status"`
}

type UpdateActionPlanInput struct {
	ID      uint64  `json:"-"`
	Title   *string `json:"title" validate:"omitempty,max=255"`
	Owner   *string `json:"owner" validate:"omitempty,max=128"`
	DueDate *string `json:"due_date" validate:"omitempty,ymd"`
	Status  *string `json:"status"`
}

type ListActionPlansInput struct {
	Status     string
	SourceType string
	SourceID   string
	Limit      int
}

func (s *Service) CreateActionPlan(ctx context.Context, input CreateActionPlanInput) (ActionPlanView, error) {
	if err := checkContext(ctx); err != nil {
		return ActionPlanView{}, err
	}
	if s.uow == nil || s.plans == nil {
		return ActionPlanView{}, errors.New("action plan repository and unit of work are required")
	}

	input.SourceType = strings.ToLower(strings.TrimSpace(input.SourceType))
	input.SourceID = strings.TrimSpace(input.SourceID)
	input.Title = strings.TrimSpace(input.Title)
	input.Owner = strings.TrimSpace(input.Owner)
	input.DueDate = strings.TrimSpace(input.DueDate)
	if err := validation.Struct(input); err != nil {
		return ActionPlanView{}, err
	}
	status := quality.PlanOpen
	if strings.TrimSpace(input.Status) != "" {
		parsed, err := quality.ParsePlanStatus(input.Status)
		if err != nil {
			return ActionPlanView{}, invalid(err)
		}
		status = parsed
	}

	now := s.now()
	var created ports.ActionPlan
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		created, err = s.plans.CreateActionPlan(txCtx, ports.ActionPlan{
			SourceType: input.SourceType,
			SourceID:   input.SourceID,
			Title:      input.Title,
			Owner:      input.Owner,
			DueDate:    input.DueDate,
			Status:     status,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		return err
	}); err != nil {
		return ActionPlanView{}, err
	}
	return toActionPlanView(created), nil
}

func (s *Service) UpdateActionPlan(ctx context.Context, input UpdateActionPlanInput) (ActionPlanView, error) {
	if err := checkContext(ctx); err != nil {
		return ActionPlanView{}, err
	}
	if s.uow == nil || s.plans == nil {
		return ActionPlanView{}, errors.New("action plan repository and unit of work are required")
	}
	if err := validation.Struct(input); err != nil {
		return ActionPlanView{}, err
	}

	patch := ports.ActionPlanPatch{
		Title:   trimmedPtr(input.Title),
		Owner:   trimmedPtr(input.Owner),
		DueDate: trimmedPtr(input.DueDate),
	}
	if input.Status != nil {
		status, err := quality.ParsePlanStatus(*input.Status)
		if err != nil {
			return ActionPlanView{}, invalid(err)
		}
		patch.Status = &status
	}
	if patch.Title == nil && patch.Owner == nil && patch.DueDate == nil && patch.Status == nil {
		return ActionPlanView{}, errs.Validation("no fields to update")
	}
	if patch.Title != nil && *patch.Title == "" {
		return ActionPlanView{}, errs.Validation("title cannot be empty")
	}

	var updated ports.ActionPlan
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		updated, err = s.plans.UpdateActionPlan(txCtx, input.ID, patch, s.now())
		if errors.Is(err, ports.ErrPlanNotFound) {
			return notFound(err, "action plan %d", input.ID)
		}
		return err
	}); err != nil {
		return ActionPlanView{}, err
	}
	return toActionPlanView(updated), nil
}

func (s *Service) ListActionPlans(ctx context.Context, input ListActionPlansInput) ([]ActionPlanView, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if s.plans == nil {
		return nil, errors.New("action plan repository is required")
	}

	filter := ports.ActionPlanFilter{
		SourceType: strings.ToLower(strings.TrimSpace(input.SourceType)),
		SourceID:   strings.TrimSpace(input.SourceID),
		Limit:      input.Limit,
	}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := quality.ParsePlanStatus(raw)
		if err != nil {
			return nil, invalid(err)
		}
		filter.Status = string(status)
	}

	items, err := s.plans.ListActionPlans(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]ActionPlanView, 0, len(items))
	for _, item := range items {
		out = append(out, toActionPlanView(item))
	}
	return out, nil
}
