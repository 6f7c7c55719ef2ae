package model

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

const (
	DefaultEpochPK  = 1
	DefaultMinEpoch = 1
)

// LogicEpoch is a single row counter, bumped in a transaction to generate
// increasing epochs.
type LogicEpoch struct {
	Model
	Epoch int64 `gorm:"type:bigint not null default 1"`
}

// InitializeEpoch inserts the counter row if it does not exist.
func InitializeEpoch(ctx context.Context, db *gorm.DB) error {
	var logicEp LogicEpoch
	err := db.WithContext(ctx).First(&logicEp, DefaultEpochPK).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return db.WithContext(ctx).Create(&LogicEpoch{
		Model: Model{SeqID: DefaultEpochPK},
		Epoch: DefaultMinEpoch,
	}).Error
}

// GenEpoch bumps and returns the counter. It must be called inside a
// transaction if the result is used together with other writes.
func GenEpoch(ctx context.Context, tx *gorm.DB) (int64, error) {
	// (1) update epoch = epoch + 1
	if err := tx.WithContext(ctx).Model(&LogicEpoch{}).
		Where("seq_id = ?", DefaultEpochPK).
		Update("epoch", gorm.Expr("epoch + ?", 1)).Error; err != nil {
		return 0, err
	}

	// (2) select epoch
	var logicEp LogicEpoch
	if err := tx.WithContext(ctx).First(&logicEp, DefaultEpochPK).Error; err != nil {
		return 0, err
	}
	return logicEp.Epoch, nil
}
