package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"factoryqc/internal/errs"
	"factoryqc/internal/infrastructure/persistence/gormdb/model"
	"factoryqc/internal/ports"
)

// dbFromContext returns the transaction carried by ctx, or base bound to ctx.
func dbFromContext(ctx context.Context, base *gorm.DB) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := ports.TxFromContext(ctx)
	if tx == nil {
		return base.WithContext(ctx), nil
	}

	gormTx, ok := tx.(*gorm.DB)
	if !ok || gormTx == nil {
		return nil, fmt.Errorf("invalid tx in context: %T", tx)
	}
	return gormTx.WithContext(ctx), nil
}

// inTx runs fn inside the ctx transaction, opening one when ctx has none.
func inTx(ctx context.Context, base *gorm.DB, fn func(db *gorm.DB) error) error {
	if ports.InTx(ctx) {
		db, err := dbFromContext(ctx, base)
		if err != nil {
			return err
		}
		return fn(db)
	}
	return base.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx)
	})
}

// forUpdate adds a row lock when running inside a transaction.
// Dialects without row locks (sqlite) drop the clause.
func forUpdate(ctx context.Context, db *gorm.DB) *gorm.DB {
	if !ports.InTx(ctx) {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

// storeError wraps a driver failure with a kind: unique violations are
// integrity errors, everything else from the store is transient.
func storeError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errs.KindOf(err) != errs.KindUnknown {
		return errs.Wrap(err, msg)
	}
	if isUniqueViolation(err) {
		return errs.As(errs.KindIntegrity, errs.Wrap(err, msg))
	}
	return errs.As(errs.KindTransient, errs.Wrap(err, msg))
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "unique constraint") ||
		strings.Contains(text, "duplicate key") ||
		strings.Contains(text, "sqlstate 23505")
}

func machineCodes(db *gorm.DB, ids []uint64) (map[uint64]string, error) {
	out := make(map[uint64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []model.Machine
	if err := db.Select("id", "code").Where("id IN ?", uniqueIDs(ids)).Find(&rows).Error; err != nil {
		return nil, storeError(err, "query machine codes")
	}
	for _, row := range rows {
		out[row.ID] = row.Code
	}
	return out, nil
}

func uniqueIDs(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func lineSubquery(db *gorm.DB, lineCode string) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).Model(&model.ProductLine{}).Select("id").Where("code = ?", lineCode)
}

func machineSubquery(db *gorm.DB, machineCode string) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).Model(&model.Machine{}).Select("id").Where("code = ?", machineCode)
}
