package repository

import (
	"context"
	"testing"
	"time"

	"aichat/internal/infrastructure/database"
	"aichat/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newTestUser(t *testing.T, db *gorm.DB, balance int64) *model.User {
	t.Helper()
	user := &model.User{
		Name:               "张三",
		Email:              "zhangsan@example.com",
		Password:           "hashed",
		Verified:           true,
		ResponsesAvailable: balance,
		TierID:             4,
		PaymentStatus:      model.PaymentStatusCurrent,
	}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), user))
	return user
}

func TestUserRepository_DebitClamped(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newTestUser(t, db, 5)

	require.NoError(t, repo.DebitClamped(ctx, nil, user.ID, 2))
	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.ResponsesAvailable)

	// 扣减量大于余额时归零，不出现负数
	require.NoError(t, repo.DebitClamped(ctx, nil, user.ID, 10))
	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.ResponsesAvailable)

	// 余额已为 0 时再扣仍是 0
	require.NoError(t, repo.DebitClamped(ctx, nil, user.ID, 1))
	got, err = repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.ResponsesAvailable)
}

func TestUserRepository_UpdatePaymentStatus(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newTestUser(t, db, 5)

	err := repo.UpdatePaymentStatus(ctx, nil, user.ID, model.PaymentStatusCurrent, model.PaymentStatusOverdue)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusOverdue, got.PaymentStatus)

	// 前置状态不匹配时报冲突
	err = repo.UpdatePaymentStatus(ctx, nil, user.ID, model.PaymentStatusCurrent, model.PaymentStatusOverdue)
	assert.ErrorIs(t, err, ErrPaymentStatusConflict)

	// 用户不存在
	err = repo.UpdatePaymentStatus(ctx, nil, 99999, model.PaymentStatusCurrent, model.PaymentStatusOverdue)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	newTestUser(t, db, 5)

	// 邮箱匹配不区分大小写
	got, err := repo.GetByEmail(ctx, "ZhangSan@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "zhangsan@example.com", got.Email)

	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_GetByResetToken(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := newTestUser(t, db, 5)
	now := time.Now()

	expires := now.Add(time.Hour)
	_, err := repo.Update(ctx, nil, user.ID, map[string]interface{}{
		"reset_token":         "abc123",
		"reset_token_expires": expires,
	})
	require.NoError(t, err)

	got, err := repo.GetByResetToken(ctx, "abc123", now)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	// 过期令牌视为不存在
	_, err = repo.GetByResetToken(ctx, "abc123", now.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = repo.GetByResetToken(ctx, "wrong", now)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMessageRepository_ListUnanswered(t *testing.T) {
	db := newTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()

	user := newTestUser(t, db, 5)

	answered := &model.Message{UserID: user.ID, ListaID: 1, Content: "问题一"}
	require.NoError(t, repo.Create(ctx, answered))
	require.NoError(t, repo.UpdateResponse(ctx, answered.ID, "回答一"))

	pending := &model.Message{UserID: user.ID, ListaID: 1, Content: "问题二"}
	require.NoError(t, repo.Create(ctx, pending))

	got, err := repo.ListUnanswered(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pending.ID, got[0].ID)
	assert.False(t, got[0].Answered())
}

func TestMessageRepository_UpdateResponseNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewMessageRepository(db)

	err := repo.UpdateResponse(context.Background(), 99999, "回答")
	assert.ErrorIs(t, err, ErrMessageNotFound)
}
