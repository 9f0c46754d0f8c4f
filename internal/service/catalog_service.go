package service

import (
	"context"

	"aichat/internal/model"
	"aichat/internal/repository"

	"gorm.io/gorm"
)

// CatalogService 订阅档位与 AI 分类的只读目录
type CatalogService struct {
	tierRepo *repository.TierRepository
	listRepo *repository.ListRepository
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{
		tierRepo: repository.NewTierRepository(db),
		listRepo: repository.NewListRepository(db),
	}
}

// ListTiers 按 tier_id 升序
func (s *CatalogService) ListTiers(ctx context.Context) ([]*model.Tier, error) {
	return s.tierRepo.List(ctx)
}

func (s *CatalogService) GetTier(ctx context.Context, tierID int64) (*model.Tier, error) {
	return s.tierRepo.GetByID(ctx, tierID)
}

func (s *CatalogService) ListLists(ctx context.Context) ([]*model.List, error) {
	return s.listRepo.List(ctx)
}
