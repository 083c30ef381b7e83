package kpi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"factoryqc/internal/bootstrap/logging"
	"factoryqc/internal/domain/quality"
	"factoryqc/internal/errs"
	"factoryqc/internal/ports"
)

// ConsecutiveScrap returns the contiguous SCRAP run at the head of the
// machine's most recent events. A non-positive window uses the configured one.
func (s *Service) ConsecutiveScrap(ctx context.Context, machineCode string, window int) (int, error) {
	if err := checkContext(ctx); err != nil {
		return 0, err
	}
	if s.events == nil || s.master == nil {
		return 0, errors.New("event and master data repositories are required")
	}

	machine, err := s.machineByCode(ctx, machineCode)
	if err != nil {
		return 0, err
	}
	return s.countStreak(ctx, machine.ID, window)
}

func (s *Service) countStreak(ctx context.Context, machineID uint64, window int) (int, error) {
	if window <= 0 {
		window = s.settings.StreakWindow
	}
	recent, err := s.events.RecentDispositions(ctx, machineID, window)
	if err != nil {
		return 0, err
	}
	return quality.CountConsecutiveScrap(recent, window), nil
}

type streakOutcome struct {
	streak    int
	alert     *ports.AndonAlert
	event     string
	inserting bool
}

// evaluateStreak re-reads the machine streak and, at or above the threshold,
// either opens a new alert or raises the open one. The per-machine lock spans
// the open-alert check and the insert within this process; idx_alerts_one_open
// covers writers in other processes.
func (s *Service) evaluateStreak(ctx context.Context, machineID uint64, machineCode string) (streakOutcome, error) {
	if s.alerts == nil {
		return streakOutcome{}, errors.New("alert repository is required")
	}

	unlock := s.machineLocks.Lock(fmt.Sprintf("machine:%d", machineID))
	defer unlock()

	var (
		out streakOutcome
		err error
	)
	for attempt := 0; ; attempt++ {
		out = streakOutcome{}
		err = s.uow.WithTx(ctx, func(txCtx context.Context) error {
			return s.applyStreak(txCtx, machineID, machineCode, &out)
		})
		// Another writer opened an alert between our lookup and insert. The
		// second pass finds it and raises it instead.
		if err != nil && out.inserting && attempt == 0 && errs.Is(err, errs.KindIntegrity) {
			logging.Info(logging.WithAttrs(ctx, slog.String("component", "usecase.kpi")), "open alert inserted concurrently, re-evaluating",
				slog.String("machine_code", machineCode))
			continue
		}
		break
	}
	if err != nil {
		return streakOutcome{streak: out.streak}, err
	}

	if out.alert != nil && out.event != "" {
		s.notifyBestEffort(ctx, out.event, *out.alert)
	}
	return out, nil
}

func (s *Service) applyStreak(ctx context.Context, machineID uint64, machineCode string, out *streakOutcome) error {
	streak, err := s.countStreak(ctx, machineID, s.settings.StreakWindow)
	if err != nil {
		return err
	}
	out.streak = streak
	if streak < s.settings.StreakThreshold {
		return nil
	}

	open, found, err := s.alerts.FindOpenAlert(ctx, machineID, quality.AlertTypeConsecutiveNG)
	if err != nil {
		return err
	}
	if found {
		updated, changed, escalated, err := s.raiseOpenAlert(ctx, open, streak)
		if err != nil {
			return err
		}
		if changed {
			out.alert = &updated
		}
		if escalated {
			out.event = ports.AlertEventEscalated
		}
		return nil
	}

	out.inserting = true
	created, err := s.triggerAlert(ctx, machineID, machineCode, streak)
	if err != nil {
		return err
	}
	out.alert = &created
	out.event = ports.AlertEventTriggered
	return nil
}

// triggerAlert creates a triggered consecutive_ng alert numbered from the
// plant-local daily sequence.
func (s *Service) triggerAlert(ctx context.Context, machineID uint64, machineCode string, streak int) (ports.AndonAlert, error) {
	if s.kv == nil {
		return ports.AndonAlert{}, errors.New("key-value store is required for alert numbering")
	}

	now := s.now()
	day := now.In(s.settings.Location)
	seq, err := s.kv.Incr(ctx, alertSequenceKey(day.Format("20060102")))
	if err != nil {
		return ports.AndonAlert{}, errs.Wrap(err, "allocate alert number")
	}

	created, err := s.alerts.CreateAlert(ctx, ports.AndonAlert{
		AlertNumber:     quality.FormatAlertNumber(day, seq),
		MachineID:       machineID,
		MachineCode:     machineCode,
		AlertType:       quality.AlertTypeConsecutiveNG,
		Status:          quality.AlertTriggered,
		EscalationLevel: 1,
		ConsecutiveNG:   streak,
		Description:     streakDescription(machineCode, streak),
		TriggeredAt:     now,
		UpdatedAt:       now,
	})
	if err != nil {
		return ports.AndonAlert{}, err
	}

	logging.Warn(logging.WithAttrs(ctx, slog.String("component", "usecase.kpi")), "andon alert triggered",
		slog.String("alert_number", created.AlertNumber),
		slog.String("machine_code", machineCode),
		slog.Int("consecutive_ng", streak),
	)
	return created, nil
}

// raiseOpenAlert folds a further threshold crossing into the open alert:
// consecutive_ng keeps the maximum and the level never goes down.
func (s *Service) raiseOpenAlert(ctx context.Context, open ports.AndonAlert, streak int) (ports.AndonAlert, bool, bool, error) {
	level := quality.EscalationLevel(streak, s.settings.StreakThreshold, s.settings.MaxEscalation)
	if level < open.EscalationLevel {
		level = open.EscalationLevel
	}
	consecutive := open.ConsecutiveNG
	if streak > consecutive {
		consecutive = streak
	}
	if level == open.EscalationLevel && consecutive == open.ConsecutiveNG {
		return open, false, false, nil
	}

	escalated := level > open.EscalationLevel
	open.EscalationLevel = level
	open.ConsecutiveNG = consecutive
	open.Description = streakDescription(open.MachineCode, consecutive)
	open.UpdatedAt = s.now()
	updated, err := s.alerts.UpdateAlert(ctx, open)
	if err != nil {
		return ports.AndonAlert{}, false, false, err
	}
	if escalated {
		logging.Warn(logging.WithAttrs(ctx, slog.String("component", "usecase.kpi")), "andon alert escalated",
			slog.String("alert_number", updated.AlertNumber),
			slog.Int("escalation_level", level),
			slog.Int("consecutive_ng", consecutive),
		)
	}
	return updated, true, escalated, nil
}

func streakDescription(machineCode string, streak int) string {
	return fmt.Sprintf("%d consecutive SCRAP inspections on machine %s", streak, machineCode)
}

func alertSequenceKey(day string) string {
	return "andon:seq:" + day
}

func (s *Service) machineByCode(ctx context.Context, code string) (ports.Machine, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return ports.Machine{}, errs.Validation("machine_code is required")
	}
	machine, err := s.master.FindMachineByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ports.ErrMachineNotFound) {
			return ports.Machine{}, notFound(err, "machine %s", code)
		}
		return ports.Machine{}, err
	}
	return machine, nil
}
