package kpi

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"factoryqc/internal/bootstrap/logging"
	"factoryqc/internal/domain/quality"
	"factoryqc/internal/errs"
	"factoryqc/internal/metrics"
	"factoryqc/internal/ports"
	"factoryqc/internal/validation"
)

type AcknowledgeInput struct {
	Ref      string `json:"-"`
	Assignee string `json:"assignee" validate:"required,max=128"`
}

type ResolveInput struct {
	Ref         string `json:"-"`
	RootCause   string `json:"root_cause" validate:"max=2000"`
	ActionTaken string `json:"action_taken" validate:"max=2000"`
	ResolvedBy  string `json:"resolved_by" validate:"required,max=128"`
}

type ListAlertsInput struct {
	Status      string
	MachineCode string
	OpenOnly    bool
	Limit       int
}

// Acknowledge moves a triggered alert to acknowledged and records the response time.
func (s *Service) Acknowledge(ctx context.Context, input AcknowledgeInput) (AlertView, error) {
	if err := checkContext(ctx); err != nil {
		return AlertView{}, err
	}
	if err := s.requireAlerts(); err != nil {
		return AlertView{}, err
	}

	ref, err := quality.ParseAlertRef(input.Ref)
	if err != nil {
		return AlertView{}, invalid(err)
	}
	input.Assignee = strings.TrimSpace(input.Assignee)
	if err := validation.Struct(input); err != nil {
		return AlertView{}, err
	}

	var updated ports.AndonAlert
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		alert, err := s.loadAlert(txCtx, ref)
		if err != nil {
			return err
		}
		if err := quality.CheckAcknowledge(alert.Status); err != nil {
			return errs.As(errs.KindInvalidState, errs.Wrapf(err, "alert %s", ref))
		}

		now := s.now()
		response := quality.ElapsedMinutes(alert.TriggeredAt, now)
		alert.Status = quality.AlertAcknowledged
		alert.Assignee = input.Assignee
		alert.AcknowledgedAt = &now
		alert.ResponseMinutes = &response
		alert.UpdatedAt = now

		updated, err = s.alerts.UpdateAlert(txCtx, alert)
		return err
	}); err != nil {
		return AlertView{}, err
	}

	if updated.ResponseMinutes != nil {
		metrics.AndonResponseMinutes.Observe(*updated.ResponseMinutes)
	}
	logging.Info(logging.WithAttrs(ctx, slog.String("component", "usecase.kpi")), "andon alert acknowledged",
		slog.String("alert_number", updated.AlertNumber),
		slog.String("assignee", updated.Assignee),
	)
	s.notifyBestEffort(ctx, ports.AlertEventAcknowledged, updated)
	return toAlertView(updated), nil
}

// Resolve closes an open alert. Resolution and downtime are both measured from
// the trigger; assignee falls back to the resolver when nobody acknowledged.
func (s *Service) Resolve(ctx context.Context, input ResolveInput) (AlertView, error) {
	if err := checkContext(ctx); err != nil {
		return AlertView{}, err
	}
	if err := s.requireAlerts(); err != nil {
		return AlertView{}, err
	}

	ref, err := quality.ParseAlertRef(input.Ref)
	if err != nil {
		return AlertView{}, invalid(err)
	}
	input.RootCause = strings.TrimSpace(input.RootCause)
	input.ActionTaken = strings.TrimSpace(input.ActionTaken)
	input.ResolvedBy = strings.TrimSpace(input.ResolvedBy)
	if err := validation.Struct(input); err != nil {
		return AlertView{}, err
	}

	var updated ports.AndonAlert
	if err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		alert, err := s.loadAlert(txCtx, ref)
		if err != nil {
			return err
		}
		if err := quality.CheckResolve(alert.Status); err != nil {
			return errs.As(errs.KindInvalidState, errs.Wrapf(err, "alert %s", ref))
		}

		now := s.now()
		resolution := quality.ElapsedMinutes(alert.TriggeredAt, now)
		downtime := resolution
		alert.Status = quality.AlertResolved
		alert.ResolvedAt = &now
		alert.ResolutionMinutes = &resolution
		alert.DowntimeMinutes = &downtime
		alert.RootCause = input.RootCause
		alert.ActionTaken = input.ActionTaken
		alert.ResolvedBy = input.ResolvedBy
		if alert.Assignee == "" {
			alert.Assignee = input.ResolvedBy
		}
		alert.UpdatedAt = now

		updated, err = s.alerts.UpdateAlert(txCtx, alert)
		return err
	}); err != nil {
		return AlertView{}, err
	}

	logging.Info(logging.WithAttrs(ctx, slog.String("component", "usecase.kpi")), "andon alert resolved",
		slog.String("alert_number", updated.AlertNumber),
		slog.String("resolved_by", updated.ResolvedBy),
	)
	s.notifyBestEffort(ctx, ports.AlertEventResolved, updated)
	return toAlertView(updated), nil
}

func (s *Service) GetAlert(ctx context.Context, rawRef string) (AlertView, error) {
	if err := checkContext(ctx); err != nil {
		return AlertView{}, err
	}
	if s.alerts == nil {
		return AlertView{}, errors.New("alert repository is required")
	}

	ref, err := quality.ParseAlertRef(rawRef)
	if err != nil {
		return AlertView{}, invalid(err)
	}
	alert, err := s.loadAlert(ctx, ref)
	if err != nil {
		return AlertView{}, err
	}
	return toAlertView(alert), nil
}

func (s *Service) ListAlerts(ctx context.Context, input ListAlertsInput) ([]AlertView, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if s.alerts == nil {
		return nil, errors.New("alert repository is required")
	}

	filter := ports.AlertFilter{
		MachineCode: strings.TrimSpace(input.MachineCode),
		OpenOnly:    input.OpenOnly,
		Limit:       input.Limit,
	}
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := quality.ParseAlertStatus(raw)
		if err != nil {
			return nil, invalid(err)
		}
		filter.Status = string(status)
	}
	if filter.Limit < 0 {
		return nil, errs.Validation("limit must be >= 0")
	}

	items, err := s.alerts.ListAlerts(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]AlertView, 0, len(items))
	for _, item := range items {
		out = append(out, toAlertView(item))
	}
	return out, nil
}

func (s *Service) loadAlert(ctx context.Context, ref quality.AlertRef) (ports.AndonAlert, error) {
	var (
		alert ports.AndonAlert
		err   error
	)
	if ref.Number != "" {
		alert, err = s.alerts.GetAlertByNumber(ctx, ref.Number)
	} else {
		alert, err = s.alerts.GetAlertByID(ctx, ref.ID)
	}
	if err != nil {
		if errors.Is(err, ports.ErrAlertNotFound) {
			return ports.AndonAlert{}, notFound(err, "alert %s", ref)
		}
		return ports.AndonAlert{}, err
	}
	return alert, nil
}

func (s *Service) requireAlerts() error {
	if s.uow == nil {
		return errors.New("kpi unit of work is required")
	}
	if s.alerts == nil {
		return errors.New("alert repository is required")
	}
	return nil
}

// notifyBestEffort publishes a lifecycle change; failures are counted and logged only.
func (s *Service) notifyBestEffort(ctx context.Context, event string, alert ports.AndonAlert) {
	metrics.AndonAlerts.WithLabelValues(event).Inc()
	if s.notifier == nil {
		return
	}

	err := s.notifier.Notify(ctx, ports.AlertNotification{
		Event:           event,
		AlertNumber:     alert.AlertNumber,
		MachineCode:     alert.MachineCode,
		Status:          string(alert.Status),
		EscalationLevel: alert.EscalationLevel,
		ConsecutiveNG:   alert.ConsecutiveNG,
		Description:     alert.Description,
		Assignee:        alert.Assignee,
		OccurredAt:      s.now(),
	})
	if err != nil {
		metrics.NotificationFailures.Inc()
		logging.Warn(logging.WithAttrs(ctx, slog.String("component", "usecase.kpi")), "andon notification failed",
			slog.String("event", event),
			slog.String("alert_number", alert.AlertNumber),
			slog.Any("err", errs.Loggable(err)),
		)
	}
}
