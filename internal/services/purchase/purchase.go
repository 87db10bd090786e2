// Package purchase реализует оркестрацию покупки: расчёт цены, проверку
// баланса, отложенную покупку на время пополнения и её повтор после
// возврата из оплаты. Баланс никогда не списывается спекулятивно —
// запись в леджер делается только по подтверждённому ответу бэкенда.
package purchase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glebknyazev/vpn-miniapp/internal/backend"
	"github.com/glebknyazev/vpn-miniapp/internal/models"
	"github.com/glebknyazev/vpn-miniapp/internal/services/pricing"
)

// Status — исход попытки покупки.
type Status string

const (
	// StatusActivated — подписка создана и активирована.
	StatusActivated Status = "activated"
	// StatusInsufficientFunds — не хватает средств, intent отложен.
	StatusInsufficientFunds Status = "insufficient_funds"
	// StatusFailed — бэкенд отклонил покупку.
	StatusFailed Status = "failed"
	// StatusIdle — нечего возобновлять: отложенной покупки нет.
	StatusIdle Status = "idle"
)

// Outcome — результат AttemptPurchase/ResumeAfterTopUp.
type Outcome struct {
	Status  Status          `json:"status"`
	Deficit int             `json:"deficit,omitempty"` // Сколько не хватает до цены, ₽
	Reason  string          `json:"reason,omitempty"`  // Причина отказа бэкенда
	Account *models.Account `json:"account,omitempty"` // Обновлённый снимок после активации
}

// BackendClient определяет используемые методы клиента VPN-бэкенда.
type BackendClient interface {
	CreateSubscription(ctx context.Context, req backend.CreateSubscriptionRequest) (*backend.CreateSubscriptionResponse, error)
	GetUserInfo(ctx context.Context, telegramID int64) (*models.Account, error)
}

// PendingStore хранит не более одной отложенной покупки на пользователя.
type PendingStore interface {
	// Set сохраняет отложенную покупку, перезаписывая предыдущую.
	Set(ctx context.Context, telegramID int64, action models.PendingAction) error
	// Get возвращает отложенную покупку, found=false если её нет.
	Get(ctx context.Context, telegramID int64) (*models.PendingAction, bool, error)
	// Clear удаляет отложенную покупку.
	Clear(ctx context.Context, telegramID int64) error
}

// Ledger добавляет записи истории операций.
type Ledger interface {
	AppendLedgerEntry(ctx context.Context, entry models.LedgerEntry) (int64, error)
}

// Service — оркестратор покупок.
type Service struct {
	backend BackendClient
	pending PendingStore
	ledger  Ledger
	log     *slog.Logger
}

// New создает новый экземпляр Service.
func New(backendClient BackendClient, pending PendingStore, ledger Ledger, log *slog.Logger) *Service {
	return &Service{
		backend: backendClient,
		pending: pending,
		ledger:  ledger,
		log:     log,
	}
}

// NewVPNIntent собирает отложенную покупку VPN-плана.
func NewVPNIntent(plan models.Plan, useAutoPay bool, paymentMethodID string) models.PendingAction {
	return models.PendingAction{
		Kind:            models.ActionVPNPurchase,
		VPN:             &models.VPNPurchase{Plan: plan},
		Price:           ComputePrice(models.PendingAction{Kind: models.ActionVPNPurchase, VPN: &models.VPNPurchase{Plan: plan}}),
		Name:            fmt.Sprintf("VPN (%s)", plan.Duration),
		UseAutoPay:      useAutoPay,
		PaymentMethodID: paymentMethodID,
	}
}

// NewWhitelistIntent собирает отложенную покупку whitelist-обхода.
// В названии и цене используется клампованный объём.
func NewWhitelistIntent(gb int, useAutoPay bool, paymentMethodID string) models.PendingAction {
	clamped := pricing.ClampGB(gb)
	return models.PendingAction{
		Kind:            models.ActionWhitelistPurchase,
		Whitelist:       &models.WhitelistPurchase{GB: clamped},
		Price:           pricing.WhitelistPrice(clamped),
		Name:            fmt.Sprintf("Whitelist (%d ГБ)", clamped),
		UseAutoPay:      useAutoPay,
		PaymentMethodID: paymentMethodID,
	}
}

// ComputePrice возвращает цену intent'а: для VPN-плана — цену плана
// (0 для пробного), для whitelist — тариф с клампованным объёмом.
func ComputePrice(action models.PendingAction) int {
	switch action.Kind {
	case models.ActionVPNPurchase:
		if action.VPN == nil || action.VPN.Plan.IsTrial {
			return 0
		}
		return action.VPN.Plan.Price
	case models.ActionWhitelistPurchase:
		if action.Whitelist == nil {
			return 0
		}
		return pricing.WhitelistPrice(action.Whitelist.GB)
	default:
		return 0
	}
}

// AttemptPurchase выполняет попытку покупки для аккаунта.
//
// Пробный план активируется в обход проверки баланса, но отклоняется до
// любого сетевого вызова, если trial уже использован. При нехватке средств
// intent сохраняется как отложенная покупка и возвращается дефицит.
// Сетевые ошибки возвращаются как error: состояние не меняется, повтор
// только по явному действию пользователя.
func (s *Service) AttemptPurchase(ctx context.Context, account *models.Account, action models.PendingAction) (Outcome, error) {
	const op = "purchase.AttemptPurchase"
	log := s.log.With(slog.String("op", op), slog.Int64("telegram_id", account.TelegramID))

	isTrial := action.Kind == models.ActionVPNPurchase && action.VPN != nil && action.VPN.Plan.IsTrial
	if isTrial && account.TrialUsed {
		log.Info("trial already used, rejecting before any network call")
		return Outcome{Status: StatusFailed, Reason: "пробный период уже использован"}, nil
	}

	price := ComputePrice(action)

	if !isTrial && account.Balance < price {
		deficit := price - account.Balance
		action.Price = price
		if err := s.pending.Set(ctx, account.TelegramID, action); err != nil {
			return Outcome{}, fmt.Errorf("%s: %w", op, err)
		}
		log.Info("insufficient funds, purchase deferred",
			slog.Int("price", price), slog.Int("deficit", deficit))
		return Outcome{Status: StatusInsufficientFunds, Deficit: deficit}, nil
	}

	req, err := buildCreateRequest(account.ID, action, price)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.backend.CreateSubscription(ctx, req)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}
	if !res.Success {
		log.Info("backend rejected purchase", slog.String("reason", res.Error))
		return Outcome{Status: StatusFailed, Reason: res.Error}, nil
	}

	entry := models.LedgerEntry{
		TelegramID: account.TelegramID,
		Kind:       models.LedgerPurchase,
		Title:      action.Name,
		Amount:     -price,
	}
	if isTrial {
		entry.Kind = models.LedgerTrial
		entry.Title = "Активация пробного периода"
		entry.Amount = 0
	}
	if _, err := s.ledger.AppendLedgerEntry(ctx, entry); err != nil {
		log.Error("failed to append ledger entry", slog.Any("err", err))
	}

	// Терминальный успех: отложенная покупка потребляется ровно один раз.
	if err := s.pending.Clear(ctx, account.TelegramID); err != nil {
		log.Error("failed to clear pending action", slog.Any("err", err))
	}

	fresh, err := s.backend.GetUserInfo(ctx, account.TelegramID)
	if err != nil {
		log.Error("failed to refresh account after activation", slog.Any("err", err))
		fresh = account
	}

	log.Info("purchase activated", slog.String("name", action.Name), slog.Int("price", price))
	return Outcome{Status: StatusActivated, Account: fresh}, nil
}

// ResumeAfterTopUp повторяет отложенную покупку после возврата из
// пополнения. Баланс перечитывается с бэкенда; если средств по-прежнему
// не хватает, intent остаётся отложенным. Повторный вызов после успешной
// активации идемпотентен: отложенной покупки уже нет, возвращается Idle.
func (s *Service) ResumeAfterTopUp(ctx context.Context, telegramID int64) (Outcome, error) {
	const op = "purchase.ResumeAfterTopUp"

	action, found, err := s.pending.Get(ctx, telegramID)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return Outcome{Status: StatusIdle}, nil
	}

	account, err := s.backend.GetUserInfo(ctx, telegramID)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s: %w", op, err)
	}

	return s.AttemptPurchase(ctx, account, *action)
}

// Cancel явно отменяет отложенную покупку без побочных эффектов.
func (s *Service) Cancel(ctx context.Context, telegramID int64) error {
	const op = "purchase.Cancel"
	if err := s.pending.Clear(ctx, telegramID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("pending purchase cancelled", slog.Int64("telegram_id", telegramID))
	return nil
}

// buildCreateRequest разворачивает intent в запрос к бэкенду.
// Switch по Kind исчерпывающий: неизвестный тег — ошибка, а не молчаливый пропуск.
func buildCreateRequest(userID int64, action models.PendingAction, price int) (backend.CreateSubscriptionRequest, error) {
	switch action.Kind {
	case models.ActionVPNPurchase:
		if action.VPN == nil {
			return backend.CreateSubscriptionRequest{}, fmt.Errorf("vpn intent without plan")
		}
		days := action.VPN.Plan.Days
		if days == 0 {
			days = 1
		}
		return backend.CreateSubscriptionRequest{
			UserID:          userID,
			Days:            days,
			Type:            "vpn",
			IsTrial:         action.VPN.Plan.IsTrial,
			Price:           price,
			UseAutoPay:      action.UseAutoPay,
			PaymentMethodID: action.PaymentMethodID,
		}, nil
	case models.ActionWhitelistPurchase:
		if action.Whitelist == nil {
			return backend.CreateSubscriptionRequest{}, fmt.Errorf("whitelist intent without payload")
		}
		return backend.CreateSubscriptionRequest{
			UserID:          userID,
			Days:            30,
			Type:            "whitelist",
			WhitelistGB:     pricing.ClampGB(action.Whitelist.GB),
			Price:           price,
			UseAutoPay:      action.UseAutoPay,
			PaymentMethodID: action.PaymentMethodID,
		}, nil
	default:
		return backend.CreateSubscriptionRequest{}, fmt.Errorf("unknown pending action kind: %s", action.Kind)
	}
}
