package repository

import (
	"context"
	"errors"
	"time"

	"aichat/internal/model"

	"gorm.io/gorm"
)

var ErrMessageNotFound = errors.New("消息不存在")

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Create(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// UpdateResponse 两段式写入的第二段：补写 AI 回复
func (r *MessageRepository) UpdateResponse(ctx context.Context, id int64, response string) error {
	result := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("id = ?", id).
		Update("ai_response", response)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*model.Message, error) {
	var msg model.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// ListByUserAndList 单用户单分类的聊天记录，按时间正序
func (r *MessageRepository) ListByUserAndList(ctx context.Context, userID, listaID int64) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND lista_id = ?", userID, listaID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}

// ListUnanswered 查找超过时限仍没有 AI 回复的消息（第二段写入失败的残留）
func (r *MessageRepository) ListUnanswered(ctx context.Context, beforeTime time.Time, limit int) ([]*model.Message, error) {
	var messages []*model.Message
	err := r.db.WithContext(ctx).
		Where("ai_response = '' AND created_at < ?", beforeTime).
		Order("created_at ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *MessageRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
