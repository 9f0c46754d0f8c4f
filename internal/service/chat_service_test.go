package service

import (
	"context"
	"testing"

	"aichat/internal/config"
	"aichat/internal/infrastructure/ai"
	"aichat/internal/infrastructure/database"
	"aichat/internal/model"
	"aichat/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// spyAIClient 记录调用并返回预设回复
type spyAIClient struct {
	calls    int
	response *ai.Response
	err      error
}

func (s *spyAIClient) Ask(ctx context.Context, req *ai.Request) (*ai.Response, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 内存库每个连接各自独立，限制为单连接以共享同一数据库
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.Seed(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, user *model.User) *model.User {
	t.Helper()
	require.NoError(t, repository.NewUserRepository(db).Create(context.Background(), user))
	return user
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Kafka.Topic.BillingEvents = "billing_events"
	cfg.Kafka.Topic.ChatEvents = "chat_events"
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.WebhookSecret = "webhook-secret"
	return cfg
}

func TestSendMessage_DebitsByAIAmount(t *testing.T) {
	db := newTestDB(t)
	spy := &spyAIClient{response: &ai.Response{Output: "resposta", Subtrair: 1}}
	svc := NewChatService(db, nil, spy, testConfig())
	ctx := context.Background()

	user := createUser(t, db, &model.User{
		Name: "李四", Email: "lisi@example.com", Password: "x",
		Verified: true, ResponsesAvailable: 5, TierID: 4,
		PaymentStatus: model.PaymentStatusCurrent,
	})

	result, err := svc.SendMessage(ctx, &SendMessageRequest{
		UserID: user.ID, ListaID: 1, Content: "oi",
	})
	require.NoError(t, err)
	assert.Equal(t, "resposta", result.AIResponse)
	assert.Equal(t, "resposta", result.UserMessage.AIResponse)
	assert.Equal(t, 1, spy.calls)

	got, err := repository.NewUserRepository(db).GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.ResponsesAvailable)

	// 扣费流水与发件箱事件同事务落库
	var transCount, outboxCount int64
	db.Model(&model.CreditTransaction{}).Where("user_id = ?", user.ID).Count(&transCount)
	db.Model(&model.OutboxMessage{}).Where("topic = ?", "chat_events").Count(&outboxCount)
	assert.Equal(t, int64(1), transCount)
	assert.Equal(t, int64(1), outboxCount)
}

func TestSendMessage_NoSubtrairNoDebit(t *testing.T) {
	db := newTestDB(t)
	spy := &spyAIClient{response: &ai.Response{Output: "resposta"}}
	svc := NewChatService(db, nil, spy, testConfig())
	ctx := context.Background()

	user := createUser(t, db, &model.User{
		Name: "李四", Email: "lisi@example.com", Password: "x",
		Verified: true, ResponsesAvailable: 5, TierID: 4,
		PaymentStatus: model.PaymentStatusCurrent,
	})

	_, err := svc.SendMessage(ctx, &SendMessageRequest{
		UserID: user.ID, ListaID: 1, Content: "oi",
	})
	require.NoError(t, err)

	got, err := repository.NewUserRepository(db).GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.ResponsesAvailable)

	var transCount int64
	db.Model(&model.CreditTransaction{}).Where("user_id = ?", user.ID).Count(&transCount)
	assert.Equal(t, int64(0), transCount)
}

func TestSendMessage_InsufficientCredit(t *testing.T) {
	db := newTestDB(t)
	spy := &spyAIClient{response: &ai.Response{Output: "resposta", Subtrair: 1}}
	svc := NewChatService(db, nil, spy, testConfig())
	ctx := context.Background()

	user := createUser(t, db, &model.User{
		Name: "李四", Email: "lisi@example.com", Password: "x",
		Verified: true, ResponsesAvailable: 0, TierID: 4,
		PaymentStatus: model.PaymentStatusCurrent,
	})

	_, err := svc.SendMessage(ctx, &SendMessageRequest{
		UserID: user.ID, ListaID: 1, Content: "oi",
	})
	assert.ErrorIs(t, err, ErrInsufficientCredit)

	// 余额不足时不调 AI、不落消息
	assert.Equal(t, 0, spy.calls)
	var msgCount int64
	db.Model(&model.Message{}).Where("user_id = ?", user.ID).Count(&msgCount)
	assert.Equal(t, int64(0), msgCount)
}

func TestSendMessage_DebitClampedAtZero(t *testing.T) {
	db := newTestDB(t)
	spy := &spyAIClient{response: &ai.Response{Output: "resposta", Subtrair: 10}}
	svc := NewChatService(db, nil, spy, testConfig())
	ctx := context.Background()

	user := createUser(t, db, &model.User{
		Name: "李四", Email: "lisi@example.com", Password: "x",
		Verified: true, ResponsesAvailable: 3, TierID: 4,
		PaymentStatus: model.PaymentStatusCurrent,
	})

	_, err := svc.SendMessage(ctx, &SendMessageRequest{
		UserID: user.ID, ListaID: 1, Content: "oi",
	})
	require.NoError(t, err)

	got, err := repository.NewUserRepository(db).GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.ResponsesAvailable)
}

func TestSendMessage_AIFailureNoSideEffects(t *testing.T) {
	db := newTestDB(t)
	spy := &spyAIClient{err: ai.ErrUpstream}
	svc := NewChatService(db, nil, spy, testConfig())
	ctx := context.Background()

	user := createUser(t, db, &model.User{
		Name: "李四", Email: "lisi@example.com", Password: "x",
		Verified: true, ResponsesAvailable: 5, TierID: 4,
		PaymentStatus: model.PaymentStatusCurrent,
	})

	_, err := svc.SendMessage(ctx, &SendMessageRequest{
		UserID: user.ID, ListaID: 1, Content: "oi",
	})
	assert.ErrorIs(t, err, ai.ErrUpstream)

	got, err := repository.NewUserRepository(db).GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.ResponsesAvailable)

	var msgCount int64
	db.Model(&model.Message{}).Where("user_id = ?", user.ID).Count(&msgCount)
	assert.Equal(t, int64(0), msgCount)
}

func TestSendMessage_UserNotFound(t *testing.T) {
	db := newTestDB(t)
	spy := &spyAIClient{response: &ai.Response{Output: "resposta"}}
	svc := NewChatService(db, nil, spy, testConfig())

	_, err := svc.SendMessage(context.Background(), &SendMessageRequest{
		UserID: 99999, ListaID: 1, Content: "oi",
	})
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
	assert.Equal(t, 0, spy.calls)
}

func TestHistory_FilteredByList(t *testing.T) {
	db := newTestDB(t)
	spy := &spyAIClient{response: &ai.Response{Output: "resposta", Subtrair: 1}}
	svc := NewChatService(db, nil, spy, testConfig())
	ctx := context.Background()

	user := createUser(t, db, &model.User{
		Name: "李四", Email: "lisi@example.com", Password: "x",
		Verified: true, ResponsesAvailable: 10, TierID: 4,
		PaymentStatus: model.PaymentStatusCurrent,
	})

	for _, listaID := range []int64{1, 1, 2} {
		_, err := svc.SendMessage(ctx, &SendMessageRequest{
			UserID: user.ID, ListaID: listaID, Content: "oi",
		})
		require.NoError(t, err)
	}

	messages, err := svc.History(ctx, user.ID, 1)
	require.NoError(t, err)
	assert.Len(t, messages, 2)

	messages, err = svc.History(ctx, user.ID, 2)
	require.NoError(t, err)
	assert.Len(t, messages, 1)

	_, err = svc.History(ctx, 99999, 1)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}
