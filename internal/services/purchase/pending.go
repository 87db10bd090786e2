package purchase

import (
	"context"
	"fmt"
	"time"

	"github.com/glebknyazev/vpn-miniapp/internal/models"
)

// Cache описывает методы кеша, используемые хранилищем отложенных покупок.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// PendingTTL ограничивает жизнь отложенной покупки одним циклом пополнения.
const PendingTTL = time.Hour

// RedisPendingStore хранит отложенные покупки в Redis, по одной на
// пользователя; TTL гарантирует, что intent не переживёт цикл пополнения.
type RedisPendingStore struct {
	cache Cache
}

// NewPendingStore создает хранилище отложенных покупок поверх кеша.
func NewPendingStore(cache Cache) *RedisPendingStore {
	return &RedisPendingStore{cache: cache}
}

func pendingKey(telegramID int64) string {
	return fmt.Sprintf("pending:%d", telegramID)
}

// Set сохраняет отложенную покупку, перезаписывая предыдущую.
func (s *RedisPendingStore) Set(ctx context.Context, telegramID int64, action models.PendingAction) error {
	return s.cache.Set(ctx, pendingKey(telegramID), action, PendingTTL)
}

// Get возвращает отложенную покупку пользователя.
func (s *RedisPendingStore) Get(ctx context.Context, telegramID int64) (*models.PendingAction, bool, error) {
	var action models.PendingAction
	found, err := s.cache.Get(ctx, pendingKey(telegramID), &action)
	if err != nil || !found {
		return nil, false, err
	}
	return &action, true, nil
}

// Clear удаляет отложенную покупку.
func (s *RedisPendingStore) Clear(ctx context.Context, telegramID int64) error {
	return s.cache.Invalidate(ctx, pendingKey(telegramID))
}
