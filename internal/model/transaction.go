package model

import (
	"time"
)

// 额度变动类型
const (
	TransactionTypeDebit   = "DEBIT"   // 聊天扣减
	TransactionTypeRenewal = "RENEWAL" // 月度续期重置
	TransactionTypePayment = "PAYMENT" // 外部计费系统入账
)

// CreditTransaction 额度流水表
// 只追加，不修改，不删除；每次余额变动记录变动前后余额，便于对账
type CreditTransaction struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"transaction_no"`
	UserID        int64     `gorm:"index;not null" json:"user_id"`
	MessageID     int64     `gorm:"index" json:"message_id"` // 扣减流水关联的消息，其余为 0
	Amount        int64     `gorm:"not null" json:"amount"`  // 正数入账，负数扣减
	Type          string    `gorm:"type:varchar(20);not null" json:"type"`
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`
	Remark        string    `gorm:"type:varchar(256)" json:"remark"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (CreditTransaction) TableName() string {
	return "credit_transaction"
}
