package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"aichat/internal/config"
	"aichat/internal/infrastructure/ai"
	"aichat/internal/infrastructure/lock"
	"aichat/internal/model"
	"aichat/internal/repository"
	"aichat/pkg/idgen"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrInsufficientCredit = errors.New("回复次数不足")

// ChatService 单条消息的计费发送流程：
// 余额校验 -> 调用外部 AI -> 两段式落库 -> 按 AI 返回的扣减量原子扣费。
// redisClient 为 nil 时不加聊天锁（单机部署 / 测试）
type ChatService struct {
	db              *gorm.DB
	redisClient     *redis.Client
	aiClient        ai.Client
	cfg             *config.Config
	userRepo        *repository.UserRepository
	messageRepo     *repository.MessageRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewChatService(db *gorm.DB, redisClient *redis.Client, aiClient ai.Client, cfg *config.Config) *ChatService {
	return &ChatService{
		db:              db,
		redisClient:     redisClient,
		aiClient:        aiClient,
		cfg:             cfg,
		userRepo:        repository.NewUserRepository(db),
		messageRepo:     repository.NewMessageRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

type SendMessageRequest struct {
	UserID  int64  `json:"user_id"`
	ListaID int64  `json:"lista_id"`
	Content string `json:"content"`
}

type SendMessageResult struct {
	UserMessage *model.Message `json:"user_message"`
	AIResponse  string         `json:"ai_response"`
}

// SendMessage 发送一条消息并扣费。
// 前置校验失败（用户不存在、余额为 0）时不产生任何副作用；
// AI 调用失败时不落消息、不扣费；两段写入的第二段失败会留下
// 无回复的消息记录，由清理任务上报，不回滚
func (s *ChatService) SendMessage(ctx context.Context, req *SendMessageRequest) (*SendMessageResult, error) {
	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	if user.ResponsesAvailable <= 0 {
		return nil, ErrInsufficientCredit
	}

	// 同一用户的并发发送串行化，锁内重读余额
	if s.redisClient != nil {
		chatLock := lock.NewChatLock(s.redisClient, req.UserID, uuid.NewString())
		if err := chatLock.Lock(ctx, 100*time.Millisecond, 50); err != nil {
			return nil, fmt.Errorf("系统繁忙，请稍后重试: %w", err)
		}
		defer chatLock.Unlock(ctx)

		user, err = s.userRepo.GetByID(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		if user.ResponsesAvailable <= 0 {
			return nil, ErrInsufficientCredit
		}
	}

	aiResp, err := s.aiClient.Ask(ctx, &ai.Request{
		Message: req.Content,
		UserID:  user.ID,
		ListaID: req.ListaID,
	})
	if err != nil {
		return nil, err
	}

	// 两段式写入：先落用户内容，再补写 AI 回复
	msg := &model.Message{
		UserID:  user.ID,
		ListaID: req.ListaID,
		Content: req.Content,
	}
	if err := s.messageRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("保存消息失败: %w", err)
	}

	if err := s.messageRepo.UpdateResponse(ctx, msg.ID, aiResp.Output); err != nil {
		// 消息已落库但回复缺失，这条残留由清理任务上报
		return nil, fmt.Errorf("写入 AI 回复失败: %w", err)
	}
	msg.AIResponse = aiResp.Output

	// 扣减量由 AI 侧决定，缺省或 0 表示本轮不扣费
	if aiResp.Subtrair > 0 {
		if err := s.debit(ctx, user, msg, aiResp.Subtrair); err != nil {
			return nil, err
		}
	}

	return &SendMessageResult{
		UserMessage: msg,
		AIResponse:  aiResp.Output,
	}, nil
}

// debit 扣费事务：条件 UPDATE（下限 0）+ 流水 + 发件箱事件
func (s *ChatService) debit(ctx context.Context, user *model.User, msg *model.Message, qty int64) error {
	balanceBefore := user.ResponsesAvailable
	balanceAfter := balanceBefore - qty
	if balanceAfter < 0 {
		balanceAfter = 0
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.DebitClamped(ctx, tx, user.ID, qty); err != nil {
			return fmt.Errorf("扣减余额失败: %w", err)
		}

		trans := &model.CreditTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			UserID:        user.ID,
			MessageID:     msg.ID,
			Amount:        balanceAfter - balanceBefore,
			Type:          model.TransactionTypeDebit,
			BalanceBefore: balanceBefore,
			BalanceAfter:  balanceAfter,
			Remark:        fmt.Sprintf("聊天扣减-lista:%d", msg.ListaID),
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"event":         model.EventCreditDebited,
			"user_id":       user.ID,
			"message_id":    msg.ID,
			"amount":        qty,
			"balance_after": balanceAfter,
		})
		outboxMsg := &model.OutboxMessage{
			MessageKey: trans.TransactionNo,
			Topic:      s.cfg.Kafka.Topic.ChatEvents,
			Payload:    string(payload),
			Status:     model.OutboxStatusPending,
		}
		if err := s.outboxRepo.Create(ctx, tx, outboxMsg); err != nil {
			return fmt.Errorf("写入事件失败: %w", err)
		}

		return nil
	})
}

// History 单分类的聊天记录
func (s *ChatService) History(ctx context.Context, userID, listaID int64) ([]*model.Message, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.messageRepo.ListByUserAndList(ctx, userID, listaID)
}

// SweepUnanswered 上报长时间缺失 AI 回复的消息，返回数量
func (s *ChatService) SweepUnanswered(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	messages, err := s.messageRepo.ListUnanswered(ctx, time.Now().Add(-olderThan), limit)
	if err != nil {
		return 0, err
	}
	for _, msg := range messages {
		log.Printf("[ChatService] 消息缺失 AI 回复: id=%d, userID=%d, createdAt=%s",
			msg.ID, msg.UserID, msg.CreatedAt.Format(time.RFC3339))
	}
	return len(messages), nil
}
