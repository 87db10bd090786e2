package models

import "time"

// Виды записей леджера, совпадают с типами истории мини-приложения.
const (
	LedgerDeposit   = "deposit"   // Пополнение баланса
	LedgerPurchase  = "buy_dev"   // Покупка подписки, сумма отрицательная
	LedgerTrial     = "trial"     // Активация пробного периода, сумма 0
	LedgerRefOut    = "ref_out"   // Вывод рефералки на баланс
	LedgerRefReq    = "ref_req"   // Заявка на вывод, сумма 0
	LedgerDeviceDel = "device_del"
)

// LedgerEntry — запись истории операций. Единственный путь изменения
// видимого клиенту баланса: записи добавляются только по подтверждённым
// ответам бэкенда, никогда спекулятивно.
type LedgerEntry struct {
	ID         int64     `json:"id"`
	TelegramID int64     `json:"telegram_id"`
	Kind       string    `json:"type"`
	Title      string    `json:"title"`
	Amount     int       `json:"amount"` // ₽, отрицательная для списаний
	CreatedAt  time.Time `json:"date"`
}
