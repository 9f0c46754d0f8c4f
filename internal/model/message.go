package model

import (
	"time"
)

// Message 聊天记录表
// 两段式写入：先落用户内容，拿到 AI 回复后再更新 ai_response。
// ai_response 为空串表示回复尚未写入（或第二段写入失败），读取方需容忍
type Message struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64     `gorm:"index;not null" json:"user_id"`
	ListaID    int64     `gorm:"column:lista_id;index;not null" json:"lista_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	AIResponse string    `gorm:"column:ai_response;type:text" json:"ai_response"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

// Answered AI 回复是否已写入
func (m *Message) Answered() bool {
	return m.AIResponse != ""
}
