package kv

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"factoryqc/internal/errs"
	"factoryqc/internal/infrastructure/persistence/gormdb/model"
	"factoryqc/internal/infrastructure/persistence/gormdb/uow"
)

func setupStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "kv.sqlite") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&model.KVEntry{}); err != nil {
		t.Fatalf("auto migrate kv_entries: %v", err)
	}
	return NewStore(db), db
}

func TestStoreSetGetDelete(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "andon:last:M-01", "AND-20260304-0001", 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Set(ctx, " andon:last:M-01 ", "AND-20260304-0002", 0); err != nil {
		t.Fatalf("Set(update) error = %v", err)
	}

	value, found, err := store.Get(ctx, "andon:last:M-01")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !found || value != "AND-20260304-0002" {
		t.Fatalf("Get() = %q, found=%v", value, found)
	}

	if err := store.Delete(ctx, "andon:last:M-01"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	_, found, err = store.Get(ctx, "andon:last:M-01")
	if err != nil || found {
		t.Fatalf("Get() after delete found=%v err=%v", found, err)
	}

	if _, _, err := store.Get(ctx, "  "); errs.KindOf(err) != errs.KindValidation {
		t.Fatalf("Get(blank) error = %v", err)
	}
}

func TestStoreIncrSequence(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := store.Incr(ctx, "andon:seq:20260304")
		if err != nil {
			t.Fatalf("Incr() error = %v", err)
		}
		if got != want {
			t.Fatalf("Incr() = %d, want %d", got, want)
		}
	}

	got, err := store.Incr(ctx, "andon:seq:20260305")
	if err != nil {
		t.Fatalf("Incr(next day) error = %v", err)
	}
	if got != 1 {
		t.Fatalf("Incr(next day) = %d, want 1", got)
	}

	if err := store.Set(ctx, "andon:seq:broken", "abc", 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := store.Incr(ctx, "andon:seq:broken"); err == nil {
		t.Fatalf("Incr(non-integer) error = nil")
	}
}

func TestStoreIncrRollsBackWithCaller(t *testing.T) {
	store, db := setupStore(t)
	ctx := context.Background()
	unit := uow.NewUnitOfWork(db)

	errAbort := errors.New("abort")
	err := unit.WithTx(ctx, func(txCtx context.Context) error {
		got, err := store.Incr(txCtx, "andon:seq:20260304")
		if err != nil {
			return err
		}
		if got != 1 {
			t.Fatalf("Incr() inside tx = %d", got)
		}
		return errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("WithTx() error = %v", err)
	}

	got, err := store.Incr(ctx, "andon:seq:20260304")
	if err != nil {
		t.Fatalf("Incr() error = %v", err)
	}
	if got != 1 {
		t.Fatalf("sequence survived a rollback: %d", got)
	}
}

func TestStoreRejectsCanceledContext(t *testing.T) {
	store, _ := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := store.Incr(ctx, "k"); err == nil {
		t.Fatalf("Incr(canceled) error = nil")
	}
}
