package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"factoryqc/internal/domain/quality"
	"factoryqc/internal/errs"
	"factoryqc/internal/infrastructure/persistence/gormdb/model"
	"factoryqc/internal/ports"
)

var baseTime = time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "repo.sqlite") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
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

func seedMachines(t *testing.T, db *gorm.DB) (ports.Machine, ports.Machine) {
	t.Helper()
	ctx := context.Background()
	master := NewMasterDataRepository(db)

	l1, err := master.UpsertProductLine(ctx, ports.ProductLine{Code: "L1", Name: "Line 1"})
	if err != nil {
		t.Fatalf("UpsertProductLine() error = %v", err)
	}
	l2, err := master.UpsertProductLine(ctx, ports.ProductLine{Code: "L2", Name: "Line 2"})
	if err != nil {
		t.Fatalf("UpsertProductLine() error = %v", err)
	}
	m1, err := master.UpsertMachine(ctx, ports.Machine{Code: "M-01", Name: "Press 1", ProductLineID: &l1.ID, Active: true})
	if err != nil {
		t.Fatalf("UpsertMachine() error = %v", err)
	}
	m2, err := master.UpsertMachine(ctx, ports.Machine{Code: "M-02", Name: "Press 2", ProductLineID: &l2.ID, Active: true})
	if err != nil {
		t.Fatalf("UpsertMachine() error = %v", err)
	}
	return m1, m2
}

func TestMasterDataLookups(t *testing.T) {
	db := setupDB(t)
	m1, _ := seedMachines(t, db)
	master := NewMasterDataRepository(db)
	ctx := context.Background()

	got, err := master.FindMachineByCode(ctx, "M-01")
	if err != nil {
		t.Fatalf("FindMachineByCode() error = %v", err)
	}
	if got.ID != m1.ID || got.ProductLineCode != "L1" {
		t.Fatalf("FindMachineByCode() = %+v", got)
	}

	if _, err := master.FindMachineByCode(ctx, "M-99"); !errors.Is(err, ports.ErrMachineNotFound) {
		t.Fatalf("FindMachineByCode(missing) error = %v", err)
	}
	if _, ok, err := master.FindDefectCodeByCode(ctx, "D-99"); err != nil || ok {
		t.Fatalf("FindDefectCodeByCode(missing) ok=%v err=%v", ok, err)
	}
}

func TestAccumulateSummaryAddsCounters(t *testing.T) {
	db := setupDB(t)
	m1, _ := seedMachines(t, db)
	repo := NewProductionRepository(db)
	ctx := context.Background()

	key := ports.SummaryKey{ProductionDate: "2026-03-04", MachineID: m1.ID, PartNumber: "P-100", Shift: "A"}
	first, err := repo.AccumulateSummary(ctx, ports.SummaryDelta{
		Key:      key,
		Counters: quality.Counters{Total: 10, Good: 8, Scrap: 2},
		Operator: "op1",
		Notes:    "first",
		At:       baseTime,
	})
	if err != nil {
		t.Fatalf("AccumulateSummary() error = %v", err)
	}
	second, err := repo.AccumulateSummary(ctx, ports.SummaryDelta{
		Key:      key,
		Counters: quality.Counters{Total: 5, Good: 4, Rework: 1, ReworkGood: 1},
		At:       baseTime.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("AccumulateSummary(second) error = %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("summary ids differ: %d vs %d", first.ID, second.ID)
	}
	want := quality.Counters{Total: 15, Good: 12, Rework: 1, Scrap: 2, ReworkGood: 1}
	if second.Counters != want {
		t.Fatalf("counters = %+v, want %+v", second.Counters, want)
	}
	if second.Operator != "op1" || second.Notes != "first" {
		t.Fatalf("blank operator/notes must keep stored values: %q %q", second.Operator, second.Notes)
	}
	if second.MachineCode != "M-01" {
		t.Fatalf("machine code = %q", second.MachineCode)
	}

	if _, err := repo.GetSummary(ctx, 999); !errors.Is(err, ports.ErrSummaryNotFound) {
		t.Fatalf("GetSummary(missing) error = %v", err)
	}
}

func TestRecentDispositionsNewestFirst(t *testing.T) {
	db := setupDB(t)
	m1, m2 := seedMachines(t, db)
	repo := NewEventRepository(db)
	ctx := context.Background()

	create := func(machine ports.Machine, d quality.Disposition, at time.Time) {
		t.Helper()
		if _, err := repo.CreateEvent(ctx, ports.InspectionEvent{
			MachineID:    machine.ID,
			MachineCode:  machine.Code,
			PartNumber:   "P-100",
			Quantity:     1,
			Disposition:  d,
			OperatorName: "op1",
			Source:       ports.EventSourceEntry,
			InspectedAt:  at,
			EventDate:    at.Format(quality.DateLayout),
		}); err != nil {
			t.Fatalf("CreateEvent() error = %v", err)
		}
	}
	create(m1, quality.DispositionGood, baseTime)
	create(m1, quality.DispositionScrap, baseTime.Add(time.Minute))
	create(m2, quality.DispositionGood, baseTime.Add(2*time.Minute))
	create(m1, quality.DispositionScrap, baseTime.Add(time.Minute))

	got, err := repo.RecentDispositions(ctx, m1.ID, 2)
	if err != nil {
		t.Fatalf("RecentDispositions() error = %v", err)
	}
	if len(got) != 2 || got[0] != quality.DispositionScrap || got[1] != quality.DispositionScrap {
		t.Fatalf("RecentDispositions() = %v", got)
	}

	got, err = repo.RecentDispositions(ctx, m1.ID, 0)
	if err != nil {
		t.Fatalf("RecentDispositions(default) error = %v", err)
	}
	if len(got) != 3 || got[2] != quality.DispositionGood {
		t.Fatalf("RecentDispositions(default) = %v", got)
	}
}

func TestAlertRepositoryOpenLookups(t *testing.T) {
	db := setupDB(t)
	m1, m2 := seedMachines(t, db)
	repo := NewAlertRepository(db)
	ctx := context.Background()

	newAlert := func(number string, machine ports.Machine) ports.AndonAlert {
		t.Helper()
		created, err := repo.CreateAlert(ctx, ports.AndonAlert{
			AlertNumber:     number,
			MachineID:       machine.ID,
			AlertType:       quality.AlertTypeConsecutiveNG,
			Status:          quality.AlertTriggered,
			EscalationLevel: 1,
			ConsecutiveNG:   3,
			TriggeredAt:     baseTime,
			UpdatedAt:       baseTime,
		})
		if err != nil {
			t.Fatalf("CreateAlert(%s) error = %v", number, err)
		}
		return created
	}

	a1 := newAlert("AND-20260304-0001", m1)
	newAlert("AND-20260304-0002", m2)

	if a1.MachineCode != "M-01" {
		t.Fatalf("machine code = %q", a1.MachineCode)
	}
	_, err := repo.CreateAlert(ctx, ports.AndonAlert{
		AlertNumber: "AND-20260304-0001",
		MachineID:   m1.ID,
		AlertType:   quality.AlertTypeConsecutiveNG,
		Status:      quality.AlertTriggered,
		TriggeredAt: baseTime,
		UpdatedAt:   baseTime,
	})
	if errs.KindOf(err) != errs.KindIntegrity {
		t.Fatalf("duplicate alert number kind = %s (err=%v)", errs.KindOf(err), err)
	}

	open, ok, err := repo.FindOpenAlert(ctx, m1.ID, quality.AlertTypeConsecutiveNG)
	if err != nil || !ok || open.ID != a1.ID {
		t.Fatalf("FindOpenAlert() = %+v ok=%v err=%v", open, ok, err)
	}

	count, err := repo.CountOpenAlerts(ctx, "L1")
	if err != nil || count != 1 {
		t.Fatalf("CountOpenAlerts(L1) = %d, %v", count, err)
	}
	count, err = repo.CountOpenAlerts(ctx, "")
	if err != nil || count != 2 {
		t.Fatalf("CountOpenAlerts() = %d, %v", count, err)
	}

	resolvedAt := baseTime.Add(10 * time.Minute)
	a1.Status = quality.AlertResolved
	a1.ResolvedAt = &resolvedAt
	a1.UpdatedAt = resolvedAt
	if _, err := repo.UpdateAlert(ctx, a1); err != nil {
		t.Fatalf("UpdateAlert() error = %v", err)
	}
	if _, ok, err := repo.FindOpenAlert(ctx, m1.ID, quality.AlertTypeConsecutiveNG); err != nil || ok {
		t.Fatalf("FindOpenAlert() after resolve ok=%v err=%v", ok, err)
	}

	list, err := repo.ListAlerts(ctx, ports.AlertFilter{MachineCode: "M-02", OpenOnly: true})
	if err != nil || len(list) != 1 || list[0].MachineCode != "M-02" {
		t.Fatalf("ListAlerts() = %+v, %v", list, err)
	}

	if _, err := repo.GetAlertByNumber(ctx, "AND-20990101-0001"); !errors.Is(err, ports.ErrAlertNotFound) {
		t.Fatalf("GetAlertByNumber(missing) error = %v", err)
	}
	missing := a1
	missing.ID = 999
	if _, err := repo.UpdateAlert(ctx, missing); !errors.Is(err, ports.ErrAlertNotFound) {
		t.Fatalf("UpdateAlert(missing) error = %v", err)
	}
}

func TestAlertRepositoryOneOpenAlertPerMachine(t *testing.T) {
	db := setupDB(t)
	m1, _ := seedMachines(t, db)
	repo := NewAlertRepository(db)
	ctx := context.Background()

	alert := func(number string, status quality.AlertStatus) ports.AndonAlert {
		return ports.AndonAlert{
			AlertNumber:     number,
			MachineID:       m1.ID,
			AlertType:       quality.AlertTypeConsecutiveNG,
			Status:          status,
			EscalationLevel: 1,
			ConsecutiveNG:   3,
			TriggeredAt:     baseTime,
			UpdatedAt:       baseTime,
		}
	}

	first, err := repo.CreateAlert(ctx, alert("AND-20260304-0001", quality.AlertAcknowledged))
	if err != nil {
		t.Fatalf("CreateAlert(first) error = %v", err)
	}
	_, err = repo.CreateAlert(ctx, alert("AND-20260304-0002", quality.AlertTriggered))
	if errs.KindOf(err) != errs.KindIntegrity {
		t.Fatalf("second open alert kind = %s (err=%v)", errs.KindOf(err), err)
	}

	resolvedAt := baseTime.Add(time.Minute)
	first.Status = quality.AlertResolved
	first.ResolvedAt = &resolvedAt
	first.UpdatedAt = resolvedAt
	if _, err := repo.UpdateAlert(ctx, first); err != nil {
		t.Fatalf("UpdateAlert() error = %v", err)
	}
	if _, err := repo.CreateAlert(ctx, alert("AND-20260304-0003", quality.AlertTriggered)); err != nil {
		t.Fatalf("CreateAlert() after resolve error = %v", err)
	}
	if _, err := repo.CreateAlert(ctx, alert("AND-20260304-0004", quality.AlertResolved)); err != nil {
		t.Fatalf("CreateAlert(resolved) error = %v", err)
	}
}
