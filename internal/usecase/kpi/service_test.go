package kpi

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"factoryqc/internal/errs"
	"factoryqc/internal/infrastructure/kv"
	"factoryqc/internal/infrastructure/persistence/gormdb/model"
	"factoryqc/internal/infrastructure/persistence/gormdb/repository"
	"factoryqc/internal/infrastructure/persistence/gormdb/uow"
	"factoryqc/internal/ports"
)

var testStart = time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []ports.AlertNotification
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg ports.AlertNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return n.err
}

func (n *recordingNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, msg := range n.sent {
		out = append(out, msg.Event)
	}
	return out
}

type testEnv struct {
	svc      *Service
	db       *gorm.DB
	clock    *testClock
	notifier *recordingNotifier
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "kpi.sqlite") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

func setupEnv(t *testing.T, settings Settings) *testEnv {
	t.Helper()
	return setupEnvWith(t, settings, nil)
}

// setupEnvWith lets a test swap dependencies before the service is built.
func setupEnvWith(t *testing.T, settings Settings, wrap func(*Dependencies)) *testEnv {
	t.Helper()

	db := openTestDB(t)
	clock := &testClock{now: testStart}
	notifier := &recordingNotifier{}
	escalation := repository.NewEscalationRepository(db)

	deps := Dependencies{
		Events:     repository.NewEventRepository(db),
		Production: repository.NewProductionRepository(db),
		Alerts:     repository.NewAlertRepository(db),
		MasterData: repository.NewMasterDataRepository(db),
		Analytics:  repository.NewAnalyticsRepository(db),
		Claims:     escalation,
		Plans:      escalation,
		UnitOfWork: uow.NewUnitOfWork(db),
		KV:         kv.NewStore(db),
		Notifier:   notifier,
		Clock:      clock.Now,
	}
	if wrap != nil {
		wrap(&deps)
	}
	svc := NewService(deps, settings)

	env := &testEnv{svc: svc, db: db, clock: clock, notifier: notifier}
	env.seed(t)
	return env
}

func (e *testEnv) seed(t *testing.T) {
	t.Helper()

	_, err := e.svc.SeedMasterData(context.Background(), MasterDataSeed{
		ProductLines: []SeedProductLine{{Code: "L1", Name: "Line 1"}, {Code: "L2", Name: "Line 2"}},
		Machines: []SeedMachine{
			{Code: "M-01", Name: "Press 1", ProductLine: "L1"},
			{Code: "M-02", Name: "Press 2", ProductLine: "L2"},
		},
		DefectCodes: []SeedDefectCode{
			{Code: "D01", Name: "Scratch", Category: "surface"},
			{Code: "D02", Name: "Oversize", Category: "dimension"},
		},
	})
	if err != nil {
		t.Fatalf("SeedMasterData() error = %v", err)
	}
}

func (e *testEnv) record(t *testing.T, machine, disposition, defectCode string) RecordEventResult {
	t.Helper()

	res, err := e.svc.RecordEvent(context.Background(), RecordEventInput{
		MachineCode:  machine,
		PartNumber:   "P-100",
		Disposition:  disposition,
		DefectCode:   defectCode,
		OperatorName: "op1",
		Shift:        "a",
	})
	if err != nil {
		t.Fatalf("RecordEvent(%s, %s) error = %v", machine, disposition, err)
	}
	return res
}

func (e *testEnv) scrap(t *testing.T, machine string, n int) RecordEventResult {
	t.Helper()
	var last RecordEventResult
	for i := 0; i < n; i++ {
		last = e.record(t, machine, "SCRAP", "D01")
	}
	return last
}

func assertKind(t *testing.T, err error, want errs.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("error = nil, want kind %s", want)
	}
	if got := errs.KindOf(err); got != want {
		t.Fatalf("error kind = %s, want %s (err=%v)", got, want, err)
	}
}

func TestNewServiceFillsDefaults(t *testing.T) {
	svc := NewService(Dependencies{}, Settings{})
	got := svc.Settings()
	if got.StreakThreshold != 3 || got.StreakWindow != 10 || got.MaxEscalation != 3 || got.Location != time.UTC {
		t.Fatalf("Settings() = %+v", got)
	}
}

func TestServiceRequiresDependencies(t *testing.T) {
	svc := NewService(Dependencies{}, DefaultSettings())
	if _, err := svc.RecordEvent(context.Background(), RecordEventInput{}); err == nil {
		t.Fatalf("RecordEvent() without repositories error = nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Pareto(ctx, RangeInput{}); err == nil {
		t.Fatalf("Pareto() with canceled context error = nil")
	}
}

func TestTodayUsesPlantTimezone(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	svc := NewService(Dependencies{}, Settings{Location: loc})

	at := time.Date(2026, 3, 4, 20, 0, 0, 0, time.UTC)
	if got := svc.today(at); got != "2026-03-05" {
		t.Fatalf("today() = %q, want 2026-03-05", got)
	}
}
