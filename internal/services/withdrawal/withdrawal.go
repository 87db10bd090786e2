// Package withdrawal реализует пошаговый вывод реферального баланса:
// сумма -> метод -> реквизиты -> подтверждение. Переходы вперёд проходят
// валидацию текущего шага, назад разрешены с шагов 2 и 3. Реферальный
// баланс списывается бэкендом только после подтверждённой отправки.
package withdrawal

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/glebknyazev/vpn-miniapp/internal/backend"
	"github.com/glebknyazev/vpn-miniapp/internal/models"
)

// CardCooldown — минимальный интервал между выводами на карту.
const CardCooldown = 24 * time.Hour

// ValidationError — клиентская ошибка валидации шага: переход блокируется,
// сообщение показывается пользователю, на бэкенд ничего не уходит.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Cache описывает методы кеша для хранения состояния машины.
type Cache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// BackendClient определяет используемый метод клиента VPN-бэкенда.
type BackendClient interface {
	Withdraw(ctx context.Context, req backend.WithdrawRequest) (*backend.WithdrawResponse, error)
}

// Store — персистентные операции вывода: заявки, отметки кулдауна, леджер.
type Store interface {
	CreateWithdrawalTicket(ctx context.Context, ticket models.WithdrawalTicket) error
	LastCardWithdraw(ctx context.Context, telegramID int64) (time.Time, bool, error)
	StampCardWithdraw(ctx context.Context, telegramID int64, at time.Time) error
	AppendLedgerEntry(ctx context.Context, entry models.LedgerEntry) (int64, error)
}

// TicketPublisher публикует заявки на асинхронный вывод в очередь.
type TicketPublisher interface {
	Publish(ticket models.WithdrawalTicket) error
}

// Input — данные, передаваемые машине на очередном шаге.
type Input struct {
	Amount     float64               `json:"amount,omitempty"`
	Method     models.WithdrawMethod `json:"method,omitempty"`
	Phone      string                `json:"phone,omitempty"`
	Bank       string                `json:"bank,omitempty"`
	CryptoNet  string                `json:"crypto_net,omitempty"`
	CryptoAddr string                `json:"crypto_addr,omitempty"`
}

// Service — машина вывода средств.
type Service struct {
	cache     Cache
	backend   BackendClient
	store     Store
	publisher TicketPublisher
	log       *slog.Logger
	now       func() time.Time
}

// New создает новый экземпляр Service.
func New(cache Cache, backendClient BackendClient, store Store, publisher TicketPublisher, log *slog.Logger) *Service {
	return &Service{
		cache:     cache,
		backend:   backendClient,
		store:     store,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

func stateKey(telegramID int64) string {
	return fmt.Sprintf("withdraw:%d", telegramID)
}

// State возвращает текущее состояние машины пользователя, по умолчанию шаг 1.
func (s *Service) State(ctx context.Context, telegramID int64) (models.WithdrawState, error) {
	const op = "withdrawal.State"

	var state models.WithdrawState
	found, err := s.cache.Get(ctx, stateKey(telegramID), &state)
	if err != nil {
		return models.WithdrawState{}, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		state = models.WithdrawState{Step: models.WithdrawStepAmount}
	}
	return state, nil
}

func (s *Service) save(ctx context.Context, telegramID int64, state models.WithdrawState) error {
	// Без TTL: машина живёт до явного сброса.
	return s.cache.Set(ctx, stateKey(telegramID), state, 0)
}

// Next продвигает машину на один шаг вперёд, проходя валидацию текущего
// шага. При ошибке валидации или отказе бэкенда состояние не меняется.
func (s *Service) Next(ctx context.Context, account *models.Account, input Input) (models.WithdrawState, error) {
	const op = "withdrawal.Next"
	log := s.log.With(slog.String("op", op), slog.Int64("telegram_id", account.TelegramID))

	state, err := s.State(ctx, account.TelegramID)
	if err != nil {
		return models.WithdrawState{}, err
	}

	switch state.Step {
	case models.WithdrawStepAmount:
		if input.Amount <= 0 {
			return state, &ValidationError{Msg: "Введите сумму"}
		}
		if input.Amount > float64(account.ReferralEarned) {
			return state, &ValidationError{Msg: "Недостаточно средств на реферальном балансе"}
		}
		state.Amount = input.Amount
		state.Step = models.WithdrawStepMethod

	case models.WithdrawStepMethod:
		if input.Method == "" {
			return state, &ValidationError{Msg: "Выберите метод"}
		}
		if state.Amount < models.MinWithdrawAmount(input.Method) {
			return state, &ValidationError{Msg: "Минимальная сумма вывода на карту/крипто - 1₽"}
		}
		state.Method = input.Method
		state.Step = models.WithdrawStepDetails

	case models.WithdrawStepDetails:
		if err := s.submit(ctx, account, &state, input); err != nil {
			return state, err
		}
		state.Step = models.WithdrawStepConfirmed
		log.Info("withdrawal confirmed",
			slog.String("method", string(state.Method)), slog.Float64("amount", state.Amount))

	case models.WithdrawStepConfirmed:
		// Терминальный шаг, выход только через явный Reset.
		return state, nil
	}

	if err := s.save(ctx, account.TelegramID, state); err != nil {
		return models.WithdrawState{}, fmt.Errorf("%s: %w", op, err)
	}
	return state, nil
}

// Back возвращает машину на предыдущий шаг; разрешены переходы 2->1 и 3->2.
func (s *Service) Back(ctx context.Context, telegramID int64) (models.WithdrawState, error) {
	const op = "withdrawal.Back"

	state, err := s.State(ctx, telegramID)
	if err != nil {
		return models.WithdrawState{}, err
	}
	if state.Step == models.WithdrawStepMethod || state.Step == models.WithdrawStepDetails {
		state.Step--
		if err := s.save(ctx, telegramID, state); err != nil {
			return models.WithdrawState{}, fmt.Errorf("%s: %w", op, err)
		}
	}
	return state, nil
}

// Reset сбрасывает машину к шагу 1 с очищенными полями.
func (s *Service) Reset(ctx context.Context, telegramID int64) error {
	const op = "withdrawal.Reset"
	if err := s.cache.Invalidate(ctx, stateKey(telegramID)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// submit валидирует реквизиты метода и отправляет вывод на бэкенд.
// Побочные эффекты (леджер, заявка, отметка кулдауна) применяются только
// после подтверждённого ответа.
func (s *Service) submit(ctx context.Context, account *models.Account, state *models.WithdrawState, input Input) error {
	const op = "withdrawal.submit"

	req := backend.WithdrawRequest{
		TelegramID: account.TelegramID,
		Amount:     state.Amount,
		Method:     string(state.Method),
	}

	switch state.Method {
	case models.WithdrawCard:
		if input.Phone == "" || input.Bank == "" {
			return &ValidationError{Msg: "Заполните все поля"}
		}
		if err := s.checkCardCooldown(ctx, account.TelegramID); err != nil {
			return err
		}
		state.Phone, state.Bank = input.Phone, input.Bank
		req.Phone, req.Bank = input.Phone, input.Bank
	case models.WithdrawCrypto:
		if input.CryptoNet == "" || input.CryptoAddr == "" {
			return &ValidationError{Msg: "Заполните все поля"}
		}
		state.CryptoNet, state.CryptoAddr = input.CryptoNet, input.CryptoAddr
		req.CryptoNet, req.CryptoAddr = input.CryptoNet, input.CryptoAddr
	case models.WithdrawBalance:
		// Реквизиты не нужны.
	}

	res, err := s.backend.Withdraw(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !res.Success {
		return fmt.Errorf("%s: %s", op, res.Error)
	}

	switch state.Method {
	case models.WithdrawBalance:
		entry := models.LedgerEntry{
			TelegramID: account.TelegramID,
			Kind:       models.LedgerRefOut,
			Title:      "Вывод на баланс",
			Amount:     int(math.Round(state.Amount)),
		}
		if _, err := s.store.AppendLedgerEntry(ctx, entry); err != nil {
			s.log.Error("failed to append ledger entry", slog.Any("err", err))
		}
	case models.WithdrawCard, models.WithdrawCrypto:
		ticket := models.WithdrawalTicket{
			ID:         uuid.NewString(),
			TelegramID: account.TelegramID,
			Amount:     state.Amount,
			Method:     state.Method,
			Phone:      state.Phone,
			Bank:       state.Bank,
			CryptoNet:  state.CryptoNet,
			CryptoAddr: state.CryptoAddr,
			CreatedAt:  s.now(),
		}
		if err := s.store.CreateWithdrawalTicket(ctx, ticket); err != nil {
			s.log.Error("failed to persist withdrawal ticket", slog.Any("err", err))
		}
		if err := s.publisher.Publish(ticket); err != nil {
			s.log.Error("failed to publish withdrawal ticket", slog.Any("err", err))
		}

		title := "Заявка на вывод (Карта)"
		if state.Method == models.WithdrawCrypto {
			title = "Заявка на вывод (Crypto)"
		}
		entry := models.LedgerEntry{
			TelegramID: account.TelegramID,
			Kind:       models.LedgerRefReq,
			Title:      title,
			Amount:     0,
		}
		if _, err := s.store.AppendLedgerEntry(ctx, entry); err != nil {
			s.log.Error("failed to append ledger entry", slog.Any("err", err))
		}

		if state.Method == models.WithdrawCard {
			if err := s.store.StampCardWithdraw(ctx, account.TelegramID, s.now()); err != nil {
				s.log.Error("failed to stamp card withdrawal", slog.Any("err", err))
			}
		}
	}

	return nil
}

func (s *Service) checkCardCooldown(ctx context.Context, telegramID int64) error {
	const op = "withdrawal.checkCardCooldown"

	last, found, err := s.store.LastCardWithdraw(ctx, telegramID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		return nil
	}
	elapsed := s.now().Sub(last)
	if elapsed < CardCooldown {
		wait := CardCooldown - elapsed
		hours := int(math.Ceil(wait.Hours()))
		return &ValidationError{
			Msg: fmt.Sprintf("Вывод на карту доступен не чаще 1 раза в 24 часа. Подождите ещё %d ч.", hours),
		}
	}
	return nil
}
