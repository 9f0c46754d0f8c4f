package model

// Tier 订阅档位表
// 种子数据写入后只读，tier_id=4 固定为免费档
type Tier struct {
	TierID         int64  `gorm:"primaryKey" json:"tier_id"`
	Title          string `gorm:"column:titulo;type:varchar(64);not null" json:"titulo"`
	ResponsesLimit int64  `gorm:"not null" json:"responses_limit"` // 每月回复次数上限
	Price          int64  `gorm:"column:valor;not null" json:"valor"` // 价格（最小货币单位）
	Link           string `gorm:"type:varchar(256);not null" json:"link"` // 购买跳转链接
	Check1         string `gorm:"type:varchar(8);default:sim" json:"check1"`
	Check2         string `gorm:"type:varchar(8);default:sim" json:"check2"`
	Check3         string `gorm:"type:varchar(8);default:não" json:"check3"`
}

func (Tier) TableName() string {
	return "tiers"
}
