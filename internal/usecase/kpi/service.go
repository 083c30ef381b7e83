package kpi

import (
	"context"
	"errors"
	"time"

	"factoryqc/internal/errs"
	"factoryqc/internal/ports"
)

// Settings are the tunables of the streak detector and alert manager.
type Settings struct {
	StreakThreshold int
	StreakWindow    int
	MaxEscalation   int
	Location        *time.Location
}

func DefaultSettings() Settings {
	return Settings{
		StreakThreshold: 3,
		StreakWindow:    10,
		MaxEscalation:   3,
		Location:        time.UTC,
	}
}

// Dependencies groups the ports the service drives. Notifier and Clock are optional.
type Dependencies struct {
	Events     ports.EventRepository
	Production ports.ProductionRepository
	Alerts     ports.AlertRepository
	MasterData ports.MasterDataRepository
	Analytics  ports.AnalyticsRepository
	Claims     ports.ClaimRepository
	Plans      ports.ActionPlanRepository
	UnitOfWork ports.UnitOfWork
	KV         ports.KeyValueStore
	Notifier   ports.Notifier
	Clock      func() time.Time
}

// Service implements event ingestion, accumulation, streak detection, the
// Andon lifecycle and the analytics views.
type Service struct {
	events     ports.EventRepository
	production ports.ProductionRepository
	alerts     ports.AlertRepository
	master     ports.MasterDataRepository
	analytics  ports.AnalyticsRepository
	claims     ports.ClaimRepository
	plans      ports.ActionPlanRepository
	uow        ports.UnitOfWork
	kv         ports.KeyValueStore
	notifier   ports.Notifier
	clock      func() time.Time
	settings   Settings

	summaryLocks *keyedLock
	machineLocks *keyedLock
}

func NewService(deps Dependencies, settings Settings) *Service {
	defaults := DefaultSettings()
	if settings.StreakThreshold <= 0 {
		settings.StreakThreshold = defaults.StreakThreshold
	}
	if settings.StreakWindow <= 0 {
		settings.StreakWindow = defaults.StreakWindow
	}
	if settings.MaxEscalation <= 0 {
		settings.MaxEscalation = defaults.MaxEscalation
	}
	if settings.Location == nil {
		settings.Location = defaults.Location
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Service{
		events:       deps.Events,
		production:   deps.Production,
		alerts:       deps.Alerts,
		master:       deps.MasterData,
		analytics:    deps.Analytics,
		claims:       deps.Claims,
		plans:        deps.Plans,
		uow:          deps.UnitOfWork,
		kv:           deps.KV,
		notifier:     deps.Notifier,
		clock:        clock,
		settings:     settings,
		summaryLocks: newKeyedLock(),
		machineLocks: newKeyedLock(),
	}
}

func (s *Service) Settings() Settings { return s.settings }

// now returns the clock time in UTC; stored timestamps are always UTC.
func (s *Service) now() time.Time {
	return s.clock().UTC()
}

// today is the plant-local calendar date.
func (s *Service) today(at time.Time) string {
	return at.In(s.settings.Location).Format("2006-01-02")
}

func checkContext(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}
	return nil
}

func (s *Service) requireWrite() error {
	if s.uow == nil {
		return errors.New("kpi unit of work is required")
	}
	if s.master == nil {
		return errors.New("master data repository is required")
	}
	return nil
}

// notFound keeps the sentinel in the chain and marks it not_found.
func notFound(err error, format string, args ...any) error {
	return errs.As(errs.KindNotFound, errs.Wrapf(err, format, args...))
}

func invalid(err error) error {
	return errs.As(errs.KindValidation, err)
}
