package models

import (
	"time"

	"gorm.io/gorm"
)

// Message представляет личное сообщение между двумя пользователями.
// Сообщение никогда не удаляется физически: каждая сторона помечает
// свою копию через SenderDeletedAt/RecipientDeletedAt, поэтому возможно
// восстановление из корзины. Записи, удалённые обеими сторонами, чистит
// внешний джоб.
type Message struct {
	ID                 int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	SenderID           int64      `gorm:"column:sender_id;index" json:"sender_id"`
	RecipientID        int64      `gorm:"column:recipient_id;index" json:"recipient_id"`
	Subject            string     `gorm:"size:120" json:"subject"`
	Body               string     `gorm:"type:text;not null" json:"body"`
	ParentID           *int64     `gorm:"column:parent_id;index" json:"parent_id,omitempty"`
	SentAt             time.Time  `gorm:"autoCreateTime" json:"sent_at"`
	ReadAt             *time.Time `json:"read_at,omitempty"`
	RepliedAt          *time.Time `json:"replied_at,omitempty"`
	SenderDeletedAt    *time.Time `json:"sender_deleted_at,omitempty"`
	RecipientDeletedAt *time.Time `json:"recipient_deleted_at,omitempty"`
}

func (Message) TableName() string {
	return "messages"
}

// IsNew сообщает, прочитано ли сообщение получателем
func (m *Message) IsNew() bool {
	return m.ReadAt == nil
}

// Replied сообщает, был ли дан ответ на сообщение
func (m *Message) Replied() bool {
	return m.RepliedAt != nil
}

// InboxFor - scope входящих: пользователь получатель и не удалял сообщение
func InboxFor(userID int64) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("recipient_id = ? AND recipient_deleted_at IS NULL", userID)
	}
}

// OutboxFor - scope исходящих: пользователь отправитель и не удалял сообщение
func OutboxFor(userID int64) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where("sender_id = ? AND sender_deleted_at IS NULL", userID)
	}
}

// TrashFor - scope корзины: сообщения, удалённые пользователем с его стороны
func TrashFor(userID int64) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Where(
			"(recipient_id = ? AND recipient_deleted_at IS NOT NULL) OR (sender_id = ? AND sender_deleted_at IS NOT NULL)",
			userID, userID,
		)
	}
}
