package services

import (
	"context"
	"log"
	"messenger/models"
	"time"
)

const notifySubjectLimit = 100

// Notify публикует событие о сообщении для пользователя userID.
// Если брокер не сконфигурирован, уведомления молча отключены -
// переписка работает и без них.
func Notify(ctx context.Context, event string, userID int64, msg *models.Message) {
	if rabbitChannel == nil {
		return
	}
	subject := msg.Subject
	if len(subject) > notifySubjectLimit {
		subject = subject[:notifySubjectLimit] + "..."
	}
	err := PublishNotification(ctx, NotificationEvent{
		UserID:    userID,
		Event:     event,
		MessageID: msg.ID,
		SenderID:  msg.SenderID,
		Subject:   subject,
		CreatedAt: time.Now(),
	})
	if err != nil {
		log.Printf("Failed to publish %s notification: %v", event, err)
	}
}
