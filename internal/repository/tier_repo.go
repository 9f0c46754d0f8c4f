package repository

import (
	"context"
	"errors"

	"aichat/internal/model"

	"gorm.io/gorm"
)

var ErrTierNotFound = errors.New("订阅档位不存在")

type TierRepository struct {
	db *gorm.DB
}

func NewTierRepository(db *gorm.DB) *TierRepository {
	return &TierRepository{db: db}
}

func (r *TierRepository) List(ctx context.Context) ([]*model.Tier, error) {
	var tiers []*model.Tier
	err := r.db.WithContext(ctx).Order("tier_id ASC").Find(&tiers).Error
	return tiers, err
}

func (r *TierRepository) GetByID(ctx context.Context, tierID int64) (*model.Tier, error) {
	var tier model.Tier
	err := r.db.WithContext(ctx).Where("tier_id = ?", tierID).First(&tier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTierNotFound
		}
		return nil, err
	}
	return &tier, nil
}

func (r *TierRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Tier{}).Count(&count).Error
	return count, err
}

func (r *TierRepository) Create(ctx context.Context, tier *model.Tier) error {
	return r.db.WithContext(ctx).Create(tier).Error
}
