package models

import "time"

type Chat struct {
	Base
	IsGroup       bool       `gorm:"column:is_group" json:"is_group"`
	Name          string     `gorm:"column:name" json:"name"`
	LastMessage   string     `gorm:"column:last_message" json:"last_message"`
	LastMessageAt *time.Time `gorm:"column:last_message_at" json:"last_message_at,omitempty"`
}

func (Chat) TableName() string {
	return "chats"
}

type ChatParticipant struct {
	Base
	ChatID string `gorm:"column:chat_id;uniqueIndex:idx_chat_participants_chat_user" json:"chat_id"`
	UserID string `gorm:"column:user_id;uniqueIndex:idx_chat_participants_chat_user;index" json:"user_id"`
}

func (ChatParticipant) TableName() string {
	return "chat_participants"
}

type Message struct {
	Base
	ChatID   string     `gorm:"column:chat_id;index" json:"chat_id"`
	SenderID string     `gorm:"column:sender_id" json:"sender_id"`
	Content  string     `gorm:"column:content" json:"content"`
	ImageURL string     `gorm:"column:image_url" json:"image_url"`
	ReadAt   *time.Time `gorm:"column:read_at" json:"read_at,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}
