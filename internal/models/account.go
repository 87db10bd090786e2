// Package models содержит доменные структуры мини-приложения: аккаунт,
// тарифные планы, способы оплаты, отложенные покупки и устройства.
// Структуры используются в бизнес-логике и при обмене с хранилищем и бэкендом.
package models

// Account представляет снимок аккаунта пользователя, полученный от бэкенда.
// Баланс в рублях без копеек, изменяется только по подтверждённым ответам
// бэкенда (леджерная модель), клиент его никогда не мутирует самостоятельно.
type Account struct {
	ID             int64  `json:"id"`              // Внутренний идентификатор на бэкенде
	TelegramID     int64  `json:"telegram_id"`     // Идентификатор Telegram, неизменяемый
	Username       string `json:"username"`        // Имя пользователя
	FullName       string `json:"full_name"`       // Отображаемое имя
	Balance        int    `json:"balance"`         // Баланс счёта, ₽
	TrialUsed      bool   `json:"trial_used"`      // Флаг использованного пробного периода, только false -> true
	ReferralsCount int    `json:"referrals_count"` // Количество рефералов
	ReferralEarned int    `json:"referral_earned"` // Реферальный баланс, ₽
}
