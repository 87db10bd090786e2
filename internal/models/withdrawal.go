package models

import "time"

// WithdrawMethod — способ вывода реферального баланса.
type WithdrawMethod string

const (
	// WithdrawBalance — зачисление на баланс счёта, мгновенное.
	WithdrawBalance WithdrawMethod = "balance"
	// WithdrawCard — вывод на карту, заявка, не чаще раза в 24 часа.
	WithdrawCard WithdrawMethod = "card"
	// WithdrawCrypto — вывод на криптокошелёк, заявка.
	WithdrawCrypto WithdrawMethod = "crypto"
)

// MinWithdrawAmount возвращает минимальную сумму вывода для метода, ₽.
func MinWithdrawAmount(m WithdrawMethod) float64 {
	switch m {
	case WithdrawCard, WithdrawCrypto:
		return 1
	default:
		return 0
	}
}

// Шаги машины вывода средств, линейные с разрешённым возвратом 2->1 и 3->2.
const (
	WithdrawStepAmount    = 1
	WithdrawStepMethod    = 2
	WithdrawStepDetails   = 3
	WithdrawStepConfirmed = 4
)

// WithdrawState — состояние пошагового вывода средств одного пользователя.
// Поля заполняются по мере прохождения шагов и очищаются при сбросе.
type WithdrawState struct {
	Step       int            `json:"step"`
	Amount     float64        `json:"amount"`
	Method     WithdrawMethod `json:"method,omitempty"`
	Phone      string         `json:"phone,omitempty"`
	Bank       string         `json:"bank,omitempty"`
	CryptoNet  string         `json:"crypto_net,omitempty"`
	CryptoAddr string         `json:"crypto_addr,omitempty"`
}

// WithdrawalTicket — заявка на асинхронный вывод (карта или крипта),
// публикуется в очередь для обработки оператором.
type WithdrawalTicket struct {
	ID         string         `json:"id"`
	TelegramID int64          `json:"telegram_id"`
	Amount     float64        `json:"amount"`
	Method     WithdrawMethod `json:"method"`
	Phone      string         `json:"phone,omitempty"`
	Bank       string         `json:"bank,omitempty"`
	CryptoNet  string         `json:"crypto_net,omitempty"`
	CryptoAddr string         `json:"crypto_addr,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
