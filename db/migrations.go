package db

import (
	"fmt"

	"gorm.io/gorm"
)

// EnsureMessageIndexes создает составные индексы под выборки inbox/outbox/trash
// (AutoMigrate покрывает только одиночные индексы из тегов модели)
func EnsureMessageIndexes(db *gorm.DB) error {
	indexes := map[string]string{
		"idx_messages_recipient_sent": "CREATE INDEX IF NOT EXISTS idx_messages_recipient_sent ON messages (recipient_id, sent_at)",
		"idx_messages_sender_sent":    "CREATE INDEX IF NOT EXISTS idx_messages_sender_sent ON messages (sender_id, sent_at)",
	}
	for name, createIndexSQL := range indexes {
		if err := db.Exec(createIndexSQL).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", name, err)
		}
	}
	return nil
}
