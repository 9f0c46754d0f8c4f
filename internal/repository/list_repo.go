package repository

import (
	"context"
	"errors"

	"aichat/internal/model"

	"gorm.io/gorm"
)

var ErrListNotFound = errors.New("分类不存在")

type ListRepository struct {
	db *gorm.DB
}

func NewListRepository(db *gorm.DB) *ListRepository {
	return &ListRepository{db: db}
}

func (r *ListRepository) List(ctx context.Context) ([]*model.List, error) {
	var lists []*model.List
	err := r.db.WithContext(ctx).Order("id ASC").Find(&lists).Error
	return lists, err
}

func (r *ListRepository) GetByID(ctx context.Context, id int64) (*model.List, error) {
	var list model.List
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&list).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrListNotFound
		}
		return nil, err
	}
	return &list, nil
}

func (r *ListRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.List{}).Count(&count).Error
	return count, err
}

func (r *ListRepository) Create(ctx context.Context, list *model.List) error {
	return r.db.WithContext(ctx).Create(list).Error
}
