package uow

import (
	"context"

	"gorm.io/gorm"

	"factoryqc/internal/errs"
	"factoryqc/internal/ports"
)

// UnitOfWork implements ports.UnitOfWork with gorm. Nested calls join the
// transaction already carried by ctx.
type UnitOfWork struct {
	db *gorm.DB
}

var _ ports.UnitOfWork = (*UnitOfWork)(nil)

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ports.InTx(ctx) {
		return fn(ctx)
	}

	var fnErr error
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(ports.WithTxContext(ctx, tx))
		return fnErr
	})
	if err != nil && fnErr == nil {
		// begin or commit failed; the callback itself succeeded
		return errs.As(errs.KindTransient, errs.Wrap(err, "commit transaction"))
	}
	return err
}
