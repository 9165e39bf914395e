package services

import (
	"context"
	"errors"
	"fmt"
	"messenger/db"
	"messenger/models"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ErrMessageNotFound возвращается и когда сообщения нет, и когда пользователь
// не является его участником - чужие сообщения неотличимы от несуществующих
var ErrMessageNotFound = errors.New("message not found")

const quoteLineWidth = 55

type MessageService struct{}

func NewMessageService() *MessageService {
	return &MessageService{}
}

// Compose создает по одной копии сообщения на каждого получателя. Если задан
// parent, все копии привязываются к нему и на нем проставляется RepliedAt.
// Каждому получателю инкрементируется счетчик непрочитанных и публикуется
// уведомление message_received.
func (s *MessageService) Compose(ctx context.Context, senderID int64, recipients []models.User, subject, body string, parent *models.Message) ([]models.Message, error) {
	if len(recipients) == 0 {
		return nil, errors.New("no recipients")
	}

	now := time.Now()
	sent := make([]models.Message, 0, len(recipients))
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		for _, recipient := range recipients {
			msg := models.Message{
				SenderID:    senderID,
				RecipientID: recipient.ID,
				Subject:     subject,
				Body:        body,
				SentAt:      now,
			}
			if parent != nil {
				msg.ParentID = &parent.ID
			}
			if err := tx.Create(&msg).Error; err != nil {
				return fmt.Errorf("failed to create message: %w", err)
			}
			sent = append(sent, msg)
		}
		if parent != nil {
			parent.RepliedAt = &now
			if err := tx.Save(parent).Error; err != nil {
				return fmt.Errorf("failed to mark parent replied: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, msg := range sent {
		_ = IncrementUnread(msg.RecipientID, 1)
		Notify(ctx, EventMessageReceived, msg.RecipientID, &msg)
	}
	return sent, nil
}

// Inbox возвращает входящие пользователя, новые сверху
func (s *MessageService) Inbox(ctx context.Context, userID int64) ([]models.Message, error) {
	var messages []models.Message
	err := db.GetReadOnlyDB(ctx).Scopes(models.InboxFor(userID)).Order("sent_at DESC").Find(&messages).Error
	return messages, err
}

// Outbox возвращает отправленные пользователем сообщения
func (s *MessageService) Outbox(ctx context.Context, userID int64) ([]models.Message, error) {
	var messages []models.Message
	err := db.GetReadOnlyDB(ctx).Scopes(models.OutboxFor(userID)).Order("sent_at DESC").Find(&messages).Error
	return messages, err
}

// Trash возвращает сообщения, удаленные пользователем со своей стороны
func (s *MessageService) Trash(ctx context.Context, userID int64) ([]models.Message, error) {
	var messages []models.Message
	err := db.GetReadOnlyDB(ctx).Scopes(models.TrashFor(userID)).Order("sent_at DESC").Find(&messages).Error
	return messages, err
}

// Get возвращает сообщение, если пользователь его отправитель или получатель
func (s *MessageService) Get(ctx context.Context, messageID, userID int64) (*models.Message, error) {
	var msg models.Message
	err := db.GetReadOnlyDB(ctx).First(&msg, messageID).Error
	if err != nil {
		return nil, ErrMessageNotFound
	}
	if msg.SenderID != userID && msg.RecipientID != userID {
		return nil, ErrMessageNotFound
	}
	return &msg, nil
}

// MarkRead проставляет ReadAt при первом просмотре сообщения получателем
// и списывает его из счетчика непрочитанных
func (s *MessageService) MarkRead(ctx context.Context, msg *models.Message, userID int64) error {
	if msg.RecipientID != userID || msg.ReadAt != nil {
		return nil
	}
	now := time.Now()
	msg.ReadAt = &now
	if err := db.GetWriteDB(ctx).Save(msg).Error; err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	_ = IncrementUnread(userID, -1)
	return nil
}

// Delete помечает сообщение удаленным для той стороны (или сторон), которой
// является пользователь. Если пользователь ни отправитель, ни получатель -
// ErrMessageNotFound.
func (s *MessageService) Delete(ctx context.Context, messageID, userID int64) (*models.Message, error) {
	var msg models.Message
	if err := db.GetReadOnlyDB(ctx).First(&msg, messageID).Error; err != nil {
		return nil, ErrMessageNotFound
	}

	now := time.Now()
	deleted := false
	if msg.SenderID == userID {
		msg.SenderDeletedAt = &now
		deleted = true
	}
	if msg.RecipientID == userID {
		msg.RecipientDeletedAt = &now
		deleted = true
	}
	if !deleted {
		return nil, ErrMessageNotFound
	}

	if err := db.GetWriteDB(ctx).Save(&msg).Error; err != nil {
		return nil, fmt.Errorf("failed to delete message: %w", err)
	}
	Notify(ctx, EventMessageDeleted, userID, &msg)
	return &msg, nil
}

// Undelete восстанавливает сообщение из корзины, снимая отметку удаления
// со стороны пользователя
func (s *MessageService) Undelete(ctx context.Context, messageID, userID int64) (*models.Message, error) {
	var msg models.Message
	if err := db.GetReadOnlyDB(ctx).First(&msg, messageID).Error; err != nil {
		return nil, ErrMessageNotFound
	}

	undeleted := false
	if msg.SenderID == userID {
		msg.SenderDeletedAt = nil
		undeleted = true
	}
	if msg.RecipientID == userID {
		msg.RecipientDeletedAt = nil
		undeleted = true
	}
	if !undeleted {
		return nil, ErrMessageNotFound
	}

	if err := db.GetWriteDB(ctx).Save(&msg).Error; err != nil {
		return nil, fmt.Errorf("failed to undelete message: %w", err)
	}
	Notify(ctx, EventMessageRecovered, userID, &msg)
	return &msg, nil
}

// ReplySubject строит тему ответа
func ReplySubject(subject string) string {
	return "Re: " + subject
}

// FormatQuote оформляет тело родительского сообщения как цитату:
// переносит строки до 55 символов и добавляет "> " в начало каждой
func FormatQuote(sender, body string) string {
	var quoted []string
	for _, line := range strings.Split(body, "\n") {
		for _, wrapped := range wrapLine(line, quoteLineWidth) {
			quoted = append(quoted, "> "+wrapped)
		}
	}
	return fmt.Sprintf("%s wrote:\n%s", sender, strings.Join(quoted, "\n"))
}

func wrapLine(line string, width int) []string {
	words := strings.Fields(line)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) > width {
			lines = append(lines, current)
			current = word
			continue
		}
		current += " " + word
	}
	return append(lines, current)
}
