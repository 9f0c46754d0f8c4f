package model

// List AI 助手分类表（每条消息归属一个分类）
type List struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Title       string `gorm:"type:varchar(128);not null" json:"title"`
	Description string `gorm:"type:text;not null" json:"description"`
	ImageURL    string `gorm:"type:varchar(512)" json:"image_url"`
	Tag         string `gorm:"type:varchar(64)" json:"tag"`
}

func (List) TableName() string {
	return "lists"
}
