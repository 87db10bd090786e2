// Package pricing содержит чистые расчёты цен: стоимость whitelist-обхода
// и итоговую сумму пополнения с учётом комиссии способа оплаты.
// Клампинг объёма трафика выполняется только здесь, все вызывающие стороны
// обязаны пользоваться этим пакетом, а не считать сами.
package pricing

import (
	"fmt"
	"strings"

	"github.com/glebknyazev/vpn-miniapp/internal/models"
)

// Параметры тарификации whitelist-обхода: абонентская плата плюс цена за ГБ.
const (
	WhitelistSubscriptionFee = 100 // ₽
	WhitelistPerGBRate       = 15  // ₽/ГБ
	WhitelistMinGB           = 5
	WhitelistMaxGB           = 500
)

// ClampGB приводит объём трафика к допустимому диапазону [5, 500].
// Клампованное значение авторитетно для биллинга, даже если пользователь
// ввёл значение вне диапазона.
func ClampGB(gb int) int {
	if gb < WhitelistMinGB {
		return WhitelistMinGB
	}
	if gb > WhitelistMaxGB {
		return WhitelistMaxGB
	}
	return gb
}

// WhitelistPrice возвращает стоимость whitelist-обхода для объёма gb, ₽.
func WhitelistPrice(gb int) int {
	return WhitelistSubscriptionFee + ClampGB(gb)*WhitelistPerGBRate
}

// ResolveFeePercent возвращает действующую комиссию способа оплаты.
// Если у метода есть варианты и выбран один из них, комиссия варианта
// замещает базовую комиссию метода.
func ResolveFeePercent(method models.PaymentMethod, variantID string) float64 {
	if len(method.Variants) > 0 && variantID != "" {
		for _, v := range method.Variants {
			if v.ID == variantID {
				return v.FeePercent
			}
		}
	}
	return method.FeePercent
}

// PaymentTotal возвращает сумму к оплате: base + base*fee/100.
// Возвращаемое значение не усекается — именно оно уходит на бэкенд.
func PaymentTotal(baseAmount int, method models.PaymentMethod, variantID string) float64 {
	fee := ResolveFeePercent(method, variantID)
	return float64(baseAmount) + float64(baseAmount)*fee/100
}

// FeeDisplay форматирует сумму комиссии для показа пользователю:
// не более одного знака после запятой, хвост ".0" убирается.
// Считается от того же резолвленного процента, что и PaymentTotal,
// чтобы показанная комиссия не могла разойтись с списываемой суммой.
func FeeDisplay(baseAmount int, method models.PaymentMethod, variantID string) string {
	fee := PaymentTotal(baseAmount, method, variantID) - float64(baseAmount)
	s := fmt.Sprintf("%.1f", fee)
	return strings.TrimSuffix(s, ".0")
}
