package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// Счетчик непрочитанных живет в Redis и является денормализацией поверх
// messages.read_at: при рассинхроне его можно пересчитать через SyncUnread.
// Все операции no-op, если Redis не инициализирован - фича деградирует,
// но переписка продолжает работать.

const (
	counterTTL        = 24 * time.Hour
	unreadCounterType = "unread_messages"
)

// Lua скрипт для атомарного инкремента с ограничением снизу нулем
var incrementUnreadScript = `
	local v = redis.call('INCRBY', KEYS[1], ARGV[1])
	if v < 0 then
		redis.call('SET', KEYS[1], 0)
		v = 0
	end
	redis.call('EXPIRE', KEYS[1], ARGV[2])
	return v
`

var incrementUnreadSHA string

func loadCounterScripts() {
	if RedisClient == nil {
		return
	}
	var err error
	incrementUnreadSHA, err = RedisClient.ScriptLoad(context.Background(), incrementUnreadScript).Result()
	if err != nil {
		log.Printf("Warning: failed to load unread counter script: %v", err)
	}
}

func unreadCounterKey(userID int64) string {
	return fmt.Sprintf("counter:%d:%s", userID, unreadCounterType)
}

// IncrementUnread сдвигает счетчик непрочитанных пользователя на delta
func IncrementUnread(userID int64, delta int64) error {
	if RedisClient == nil {
		return nil
	}
	ctx := context.Background()
	key := unreadCounterKey(userID)

	if incrementUnreadSHA != "" {
		_, err := RedisClient.EvalSha(ctx, incrementUnreadSHA, []string{key}, delta, int(counterTTL.Seconds())).Result()
		if err == nil {
			return nil
		}
		log.Printf("Warning: unread counter script failed, falling back: %v", err)
	}

	// Fallback без клампа к нулю
	if err := RedisClient.IncrBy(ctx, key, delta).Err(); err != nil {
		return fmt.Errorf("failed to increment unread counter: %w", err)
	}
	return RedisClient.Expire(ctx, key, counterTTL).Err()
}

// UnreadCount возвращает число непрочитанных сообщений пользователя
func UnreadCount(ctx context.Context, userID int64) (int64, error) {
	if RedisClient == nil {
		return 0, nil
	}
	count, err := RedisClient.Get(ctx, unreadCounterKey(userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get unread counter: %w", err)
	}
	return count, nil
}

// ResetUnread сбрасывает счетчик в ноль
func ResetUnread(ctx context.Context, userID int64) error {
	if RedisClient == nil {
		return nil
	}
	return RedisClient.Set(ctx, unreadCounterKey(userID), 0, counterTTL).Err()
}

// SyncUnread выставляет счетчику точное значение (сверка с базой)
func SyncUnread(ctx context.Context, userID int64, value int64) error {
	if RedisClient == nil {
		return nil
	}
	return RedisClient.Set(ctx, unreadCounterKey(userID), value, counterTTL).Err()
}
