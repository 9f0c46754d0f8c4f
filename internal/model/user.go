package model

import (
	"time"
)

// 支付状态
const (
	PaymentStatusCurrent = "current" // 正常
	PaymentStatusOverdue = "overdue" // 欠费（超过宽限期未续费）
)

// User 用户表
// responses_available 是整个订阅计费的核心字段：每次 AI 回复按扣减量递减，
// 扣减后不允许为负数
type User struct {
	ID                 int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name               string     `gorm:"type:varchar(128);not null" json:"name"`
	Email              string     `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	Phone              string     `gorm:"type:varchar(32);not null" json:"phone"`
	Password           string     `gorm:"type:varchar(128);not null" json:"-"` // bcrypt 哈希
	Verified           bool       `gorm:"not null;default:false" json:"verified"`
	ResetToken         string     `gorm:"type:varchar(64);index" json:"-"`
	ResetTokenExpires  *time.Time `json:"-"`
	ResponsesAvailable int64      `gorm:"not null;default:0" json:"responses_available"` // 剩余回复次数
	TierID             int64      `gorm:"not null;default:4" json:"tier_id"`             // 订阅档位
	PaymentStatus      string     `gorm:"type:varchar(20);not null;default:current" json:"payment_status"`
	LastPayment        *time.Time `json:"last_payment"` // 最近一次付款时间，免费档为空
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
