package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"factoryqc/internal/errs"
	"factoryqc/internal/infrastructure/persistence/gormdb/model"
	"factoryqc/internal/ports"
)

// Store is a KeyValueStore over the kv_entries table. It joins the
// transaction carried by ctx so counters commit with the caller's writes.
type Store struct {
	db *gorm.DB
}

var _ ports.KeyValueStore = (*Store)(nil)

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) conn(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}
	if tx, ok := ports.TxFromContext(ctx).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx), nil
	}
	return s.db.WithContext(ctx), nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return "", false, err
	}

	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return "", false, errs.Validation("key is required")
	}

	var row model.KVEntry
	if err := db.Where("key = ?", trimmedKey).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, errs.As(errs.KindTransient, errs.Wrap(err, "query kv entry"))
	}

	return row.Value, true, nil
}

// Set upserts key. The ttl is accepted for interface parity and not enforced.
func (s *Store) Set(ctx context.Context, key string, value string, _ time.Duration) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return errs.Validation("key is required")
	}

	row := model.KVEntry{
		Key:       trimmedKey,
		Value:     value,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}

	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      row.Value,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error; err != nil {
		return errs.As(errs.KindTransient, errs.Wrap(err, "upsert kv entry"))
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return errs.Validation("key is required")
	}

	if err := db.Where("key = ?", trimmedKey).Delete(&model.KVEntry{}).Error; err != nil {
		return errs.As(errs.KindTransient, errs.Wrap(err, "delete kv entry"))
	}
	return nil
}

// Incr bumps an integer counter in one statement and reads it back.
func (s *Store) Incr(ctx context.Context, key string) (int64, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}

	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return 0, errs.Validation("key is required")
	}

	row := model.KVEntry{
		Key:       trimmedKey,
		Value:     "1",
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}

	var value int64
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key"}},
			DoUpdates: clause.Assignments(map[string]any{
				"value":      gorm.Expr("CAST(CAST(kv_entries.value AS INTEGER) + 1 AS TEXT)"),
				"updated_at": row.UpdatedAt,
			}),
		}).Create(&row).Error; err != nil {
			return errs.Wrap(err, "increment kv counter")
		}

		var stored model.KVEntry
		if err := tx.Where("key = ?", trimmedKey).Take(&stored).Error; err != nil {
			return errs.Wrap(err, "read kv counter")
		}
		parsed, err := strconv.ParseInt(strings.TrimSpace(stored.Value), 10, 64)
		if err != nil {
			return fmt.Errorf("kv counter %q holds non-integer value %q", trimmedKey, stored.Value)
		}
		value = parsed
		return nil
	})
	if err != nil {
		return 0, errs.As(errs.KindTransient, err)
	}
	return value, nil
}
