// Package devices — pull-through кеш устройств пользователя поверх
// VPN-бэкенда. Список читается из бэкенда и кешируется в Redis на короткий
// срок; удаление инвалидирует кеш и пишет запись в историю операций.
package devices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebknyazev/vpn-miniapp/internal/models"
)

// ErrNoDevices возвращается, когда ни у одного устройства нет ключа подписки.
var ErrNoDevices = errors.New("no devices with a subscription key")

// ListTTL — срок жизни кешированного списка устройств.
const ListTTL = 2 * time.Minute

// Cache описывает методы кеша, используемые репозиторием устройств.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// BackendClient определяет используемые методы клиента VPN-бэкенда.
type BackendClient interface {
	ListDevices(ctx context.Context, telegramID int64) ([]models.Device, error)
	DeleteDevice(ctx context.Context, telegramID, deviceID int64) error
}

// Ledger добавляет записи в историю операций.
type Ledger interface {
	AppendLedgerEntry(ctx context.Context, entry models.LedgerEntry) (int64, error)
}

// Service — репозиторий устройств пользователя.
type Service struct {
	backend BackendClient
	cache   Cache
	ledger  Ledger
	log     *slog.Logger
}

// New создает новый экземпляр Service.
func New(backendClient BackendClient, cache Cache, ledger Ledger, log *slog.Logger) *Service {
	return &Service{
		backend: backendClient,
		cache:   cache,
		ledger:  ledger,
		log:     log,
	}
}

func listKey(telegramID int64) string {
	return fmt.Sprintf("devices:%d", telegramID)
}

// List возвращает устройства пользователя, сначала из кеша.
// Ошибка кеша не фатальна: список читается напрямую из бэкенда.
func (s *Service) List(ctx context.Context, telegramID int64) ([]models.Device, error) {
	const op = "devices.List"
	log := s.log.With(slog.String("op", op), slog.Int64("telegram_id", telegramID))

	var cached []models.Device
	found, err := s.cache.Get(ctx, listKey(telegramID), &cached)
	if err != nil {
		log.Warn("failed to read devices cache", slog.Any("err", err))
	}
	if found {
		return cached, nil
	}

	list, err := s.backend.ListDevices(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Set(ctx, listKey(telegramID), list, ListTTL); err != nil {
		log.Warn("failed to cache devices", slog.Any("err", err))
	}
	return list, nil
}

// SubscriptionURL возвращает ключ подписки устройства. При deviceID == 0
// берётся первое устройство с непустым ключом.
func (s *Service) SubscriptionURL(ctx context.Context, telegramID, deviceID int64) (string, error) {
	const op = "devices.SubscriptionURL"

	list, err := s.List(ctx, telegramID)
	if err != nil {
		return "", err
	}
	for _, d := range list {
		if d.KeyConfig == "" {
			continue
		}
		if deviceID == 0 || d.ID == deviceID {
			return d.KeyConfig, nil
		}
	}
	return "", fmt.Errorf("%s: %w", op, ErrNoDevices)
}

// Remove удаляет устройство на бэкенде, инвалидирует кеш и пишет запись
// в историю. Ошибка бэкенда не трогает ни кеш, ни историю.
func (s *Service) Remove(ctx context.Context, telegramID, deviceID int64) error {
	const op = "devices.Remove"
	log := s.log.With(slog.String("op", op), slog.Int64("telegram_id", telegramID))

	if err := s.backend.DeleteDevice(ctx, telegramID, deviceID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.cache.Invalidate(ctx, listKey(telegramID)); err != nil {
		log.Warn("failed to invalidate devices cache", slog.Any("err", err))
	}

	entry := models.LedgerEntry{
		TelegramID: telegramID,
		Kind:       models.LedgerDeviceDel,
		Title:      "Удаление устройства",
		Amount:     0,
	}
	if _, err := s.ledger.AppendLedgerEntry(ctx, entry); err != nil {
		log.Error("failed to append ledger entry", slog.Any("err", err))
	}

	log.Info("device removed", slog.Int64("device_id", deviceID))
	return nil
}
