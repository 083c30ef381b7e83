package bootstrap

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"factoryqc/internal/bootstrap/config"
	"factoryqc/internal/bootstrap/database"
	"factoryqc/internal/bootstrap/logging"
	"factoryqc/internal/httpapi"
	"factoryqc/internal/infrastructure/kv"
	"factoryqc/internal/infrastructure/notify"
	"factoryqc/internal/infrastructure/persistence/gormdb/repository"
	"factoryqc/internal/infrastructure/persistence/gormdb/uow"
	"factoryqc/internal/ports"
	"factoryqc/internal/usecase/kpi"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideLogger),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(repository.NewEventRepository, fx.As(new(ports.EventRepository))),
		fx.Annotate(repository.NewProductionRepository, fx.As(new(ports.ProductionRepository))),
		fx.Annotate(repository.NewAlertRepository, fx.As(new(ports.AlertRepository))),
		fx.Annotate(repository.NewMasterDataRepository, fx.As(new(ports.MasterDataRepository))),
		fx.Annotate(repository.NewAnalyticsRepository, fx.As(new(ports.AnalyticsRepository))),
		fx.Annotate(
			repository.NewEscalationRepository,
			fx.As(new(ports.ClaimRepository)),
			fx.As(new(ports.ActionPlanRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			uow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(
		fx.Annotate(
			kv.NewStore,
			fx.As(new(ports.KeyValueStore)),
		),
	),
	fx.Provide(provideClock),
	fx.Provide(provideNotifier),
	fx.Provide(provideService),
	fx.Provide(provideHTTPHandler),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

// provideLogger replaces the process default with the configured level and format.
func provideLogger(cfg config.Config) *slog.Logger {
	logger := logging.New(os.Stderr, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logger = logger.With(slog.String("app", cfg.App.Name))
	logging.SetDefault(logger)
	return logger
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB, logger *slog.Logger) *App {
	return &App{
		Config: cfg,
		DB:     db,
		Logger: logger,
	}
}

func provideClock() func() time.Time {
	return time.Now
}

// provideNotifier fans alerts out to the enabled sinks. With none enabled the
// service gets a no-op notifier.
func provideNotifier(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.Notifier, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	var sinks notify.Multi
	if cfg.Notify.NATS.Enabled {
		nc, err := notify.ConnectNATS(cfg.Notify.NATS.URL, cfg.App.Name)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				return nc.Drain()
			},
		})
		sinks = append(sinks, notify.NewNATSNotifier(nc, cfg.Notify.NATS.Subject))
		logging.Info(logCtx, "nats alert notifier enabled", slog.String("subject", cfg.Notify.NATS.Subject))
	}
	if cfg.Notify.Webhook.Enabled {
		sinks = append(sinks, notify.NewWebhookNotifier(notify.WebhookOptions{
			URL:              cfg.Notify.Webhook.URL,
			Timeout:          cfg.Notify.Webhook.Timeout,
			FailureThreshold: cfg.Notify.Webhook.FailureThreshold,
		}))
		logging.Info(logCtx, "webhook alert notifier enabled", slog.String("url", cfg.Notify.Webhook.URL))
	}

	if len(sinks) == 0 {
		return notify.Noop{}, nil
	}
	return sinks, nil
}

type serviceParams struct {
	fx.In

	Config     config.Config
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

func provideService(p serviceParams) *kpi.Service {
	return kpi.NewService(kpi.Dependencies{
		Events:     p.Events,
		Production: p.Production,
		Alerts:     p.Alerts,
		MasterData: p.MasterData,
		Analytics:  p.Analytics,
		Claims:     p.Claims,
		Plans:      p.Plans,
		UnitOfWork: p.UnitOfWork,
		KV:         p.KV,
		Notifier:   p.Notifier,
		Clock:      p.Clock,
	}, kpi.Settings{
		StreakThreshold: p.Config.Andon.Threshold,
		StreakWindow:    p.Config.Andon.Window,
		MaxEscalation:   p.Config.Andon.MaxEscalation,
		Location:        p.Config.Location(),
	})
}

func provideHTTPHandler(cfg config.Config, svc *kpi.Service) http.Handler {
	return httpapi.NewHandler(svc, httpapi.Options{
		Diagnostic:         cfg.App.Diagnostic,
		CORSOrigins:        cfg.HTTP.CORSOrigins,
		WriteRatePerMinute: cfg.HTTP.WriteRatePerMinute,
	})
}
