package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aichat/internal/config"
	"aichat/internal/model"
	"aichat/internal/repository"
	"aichat/pkg/idgen"

	"github.com/hashicorp/go-multierror"
	"gorm.io/gorm"
)

// BillingService 订阅计费：周期对账（续期 / 欠费标记）与外部计费系统入账
type BillingService struct {
	db              *gorm.DB
	cfg             *config.Config
	userRepo        *repository.UserRepository
	tierRepo        *repository.TierRepository
	transactionRepo *repository.TransactionRepository
	outboxRepo      *repository.OutboxRepository
}

func NewBillingService(db *gorm.DB, cfg *config.Config) *BillingService {
	return &BillingService{
		db:              db,
		cfg:             cfg,
		userRepo:        repository.NewUserRepository(db),
		tierRepo:        repository.NewTierRepository(db),
		transactionRepo: repository.NewTransactionRepository(db),
		outboxRepo:      repository.NewOutboxRepository(db),
	}
}

// ReconcileResult 对账批次结果
type ReconcileResult struct {
	Processed int `json:"processed"`     // 遍历的账户数
	Updated   int `json:"updated_users"` // 实际发生写入的账户数
	Failed    int `json:"failed"`        // 处理失败的账户数
}

// ReconcileAll 对全部账户重算欠费状态并执行月度续期。
// 单个账户失败只记入错误集合，批次继续；返回的 error 是汇总后的
// multierror，result 始终可用
func (s *BillingService) ReconcileAll(ctx context.Context, now time.Time) (*ReconcileResult, error) {
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询用户列表失败: %w", err)
	}

	result := &ReconcileResult{}
	var errs *multierror.Error

	for _, user := range users {
		result.Processed++
		changed, err := s.reconcileUser(ctx, user, now)
		if err != nil {
			result.Failed++
			errs = multierror.Append(errs, fmt.Errorf("用户 %d: %w", user.ID, err))
			continue
		}
		if changed {
			result.Updated++
		}
	}

	return result, errs.ErrorOrNil()
}

// reconcileUser 单账户对账。
// 锚点：免费档取注册时间，付费档取最近付款时间，两者均空时取 now；
// 超过 overdue_day 天标记欠费；处于 [renewal_day, overdue_day) 窗口
// 且状态仍为 current 时按档位上限重置余额（绝对值设置，窗口内重复
// 执行收敛到同一状态）
func (s *BillingService) reconcileUser(ctx context.Context, user *model.User, now time.Time) (bool, error) {
	anchor := s.anchorDate(user, now)
	days := int(now.Sub(anchor).Hours() / 24)

	changed := false

	if days >= s.cfg.Billing.RenewalDay && days < s.cfg.Billing.OverdueDay &&
		user.PaymentStatus == model.PaymentStatusCurrent {
		if err := s.renew(ctx, user, days); err != nil {
			return changed, err
		}
		changed = true
	}

	newStatus := model.PaymentStatusCurrent
	if days > s.cfg.Billing.OverdueDay {
		newStatus = model.PaymentStatusOverdue
	}

	if newStatus != user.PaymentStatus {
		if err := s.transitionStatus(ctx, user, newStatus, days); err != nil {
			// 并发写入者已完成同一迁移，视为无变化
			if errors.Is(err, repository.ErrPaymentStatusConflict) {
				return changed, nil
			}
			return changed, err
		}
		changed = true
	}

	return changed, nil
}

// anchorDate 计算续期/欠费窗口的锚点时间
func (s *BillingService) anchorDate(user *model.User, now time.Time) time.Time {
	if user.TierID == s.cfg.Billing.FreeTierID {
		if user.CreatedAt.IsZero() {
			return now
		}
		return user.CreatedAt
	}
	if user.LastPayment == nil || user.LastPayment.IsZero() {
		return now
	}
	return *user.LastPayment
}

// renew 月度续期：余额重置为档位上限
func (s *BillingService) renew(ctx context.Context, user *model.User, days int) error {
	tier, err := s.tierRepo.GetByID(ctx, user.TierID)
	if err != nil {
		return fmt.Errorf("查询档位失败: %w", err)
	}

	balanceBefore := user.ResponsesAvailable

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.SetBalance(ctx, tx, user.ID, tier.ResponsesLimit); err != nil {
			return fmt.Errorf("重置余额失败: %w", err)
		}

		trans := &model.CreditTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			UserID:        user.ID,
			Amount:        tier.ResponsesLimit - balanceBefore,
			Type:          model.TransactionTypeRenewal,
			BalanceBefore: balanceBefore,
			BalanceAfter:  tier.ResponsesLimit,
			Remark:        fmt.Sprintf("月度续期-tier:%d-第%d天", tier.TierID, days),
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		return s.writeBillingEvent(ctx, tx, trans.TransactionNo, map[string]interface{}{
			"event":         model.EventAccountRenewed,
			"user_id":       user.ID,
			"tier_id":       tier.TierID,
			"balance_after": tier.ResponsesLimit,
		})
	})
}

// transitionStatus 支付状态迁移，带前置状态条件
func (s *BillingService) transitionStatus(ctx context.Context, user *model.User, toStatus string, days int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.UpdatePaymentStatus(ctx, tx, user.ID, user.PaymentStatus, toStatus); err != nil {
			return err
		}

		if toStatus == model.PaymentStatusOverdue {
			key := fmt.Sprintf("user-%d", user.ID)
			return s.writeBillingEvent(ctx, tx, key, map[string]interface{}{
				"event":        model.EventAccountOverdue,
				"user_id":      user.ID,
				"days_elapsed": days,
			})
		}
		return nil
	})
}

// ApplyPayment 外部计费系统入账：余额设为 credits（绝对值，不累加），
// 付款时间取 now，状态恢复 current
func (s *BillingService) ApplyPayment(ctx context.Context, userID, credits int64, now time.Time) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	balanceBefore := user.ResponsesAvailable

	var updated *model.User
	err = s.db.Transaction(func(tx *gorm.DB) error {
		updated, err = s.userRepo.Update(ctx, tx, userID, map[string]interface{}{
			"last_payment":        now,
			"payment_status":      model.PaymentStatusCurrent,
			"responses_available": credits,
		})
		if err != nil {
			return fmt.Errorf("更新账户失败: %w", err)
		}

		trans := &model.CreditTransaction{
			TransactionNo: idgen.GenerateTransactionNo(),
			UserID:        userID,
			Amount:        credits - balanceBefore,
			Type:          model.TransactionTypePayment,
			BalanceBefore: balanceBefore,
			BalanceAfter:  credits,
			Remark:        "外部计费入账",
		}
		if err := s.transactionRepo.Create(ctx, tx, trans); err != nil {
			return fmt.Errorf("记录流水失败: %w", err)
		}

		return s.writeBillingEvent(ctx, tx, trans.TransactionNo, map[string]interface{}{
			"event":         model.EventPaymentReceived,
			"user_id":       userID,
			"credits":       credits,
			"balance_after": credits,
		})
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (s *BillingService) writeBillingEvent(ctx context.Context, tx *gorm.DB, key string, payload map[string]interface{}) error {
	body, _ := json.Marshal(payload)
	msg := &model.OutboxMessage{
		MessageKey: key,
		Topic:      s.cfg.Kafka.Topic.BillingEvents,
		Payload:    string(body),
		Status:     model.OutboxStatusPending,
	}
	if err := s.outboxRepo.Create(ctx, tx, msg); err != nil {
		return fmt.Errorf("写入事件失败: %w", err)
	}
	return nil
}
