package repository

import (
	"context"
	"errors"
	"time"

	"aichat/internal/model"

	"gorm.io/gorm"
)

var (
	ErrUserNotFound          = errors.New("用户不存在")
	ErrEmailExists           = errors.New("邮箱已注册")
	ErrPaymentStatusConflict = errors.New("支付状态已变更")
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByEmail 邮箱查找，不区分大小写
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetByResetToken 按未过期的重置令牌查找
func (r *UserRepository) GetByResetToken(ctx context.Context, token string, now time.Time) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("reset_token = ? AND reset_token_expires > ?", token, now).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Update 部分字段合并更新（last write wins），返回更新后的记录
func (r *UserRepository) Update(ctx context.Context, tx *gorm.DB, id int64, fields map[string]interface{}) (*model.User, error) {
	if tx == nil {
		tx = r.db
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}

	err := tx.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(fields).Error
	if err != nil {
		return nil, err
	}

	var user model.User
	if err := tx.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// DebitClamped 扣减回复次数，单条条件 UPDATE，原子执行且下限为 0。
// 扣减量大于余额时余额直接归零，不会出现负数
func (r *UserRepository) DebitClamped(ctx context.Context, tx *gorm.DB, id int64, qty int64) error {
	if tx == nil {
		tx = r.db
	}

	return tx.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("responses_available",
			gorm.Expr("CASE WHEN responses_available > ? THEN responses_available - ? ELSE 0 END", qty, qty)).
		Error
}

// SetBalance 余额绝对值设置（续期 / 入账）
func (r *UserRepository) SetBalance(ctx context.Context, tx *gorm.DB, id int64, balance int64) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("responses_available", balance)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// UpdatePaymentStatus 带状态前置条件的支付状态迁移，并发下只有一个写入者成功
func (r *UserRepository) UpdatePaymentStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string) error {
	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND payment_status = ?", id, fromStatus).
		Update("payment_status", toStatus)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrPaymentStatusConflict
	}
	return nil
}

// ListAll 对账任务全量遍历用
func (r *UserRepository) ListAll(ctx context.Context) ([]*model.User, error) {
	var users []*model.User
	err := r.db.WithContext(ctx).Order("id ASC").Find(&users).Error
	return users, err
}
