package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/glebknyazev/vpn-miniapp/internal/models"
)

func TestWhitelistPrice(t *testing.T) {
	tests := []struct {
		name     string
		gb       int
		expected int
	}{
		{"ниже минимума клампуется до 5 ГБ", 3, 175},
		{"обычный объём", 10, 250},
		{"верхняя граница", 500, 7600},
		{"выше максимума клампуется до 500 ГБ", 600, 7600},
		{"ноль клампуется до минимума", 0, 175},
		{"нижняя граница", 5, 175},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, WhitelistPrice(tt.gb))
		})
	}
}

func TestWhitelistPrice_FullRange(t *testing.T) {
	for gb := 0; gb <= 1000; gb++ {
		clamped := gb
		if clamped < 5 {
			clamped = 5
		}
		if clamped > 500 {
			clamped = 500
		}
		assert.Equal(t, 100+clamped*15, WhitelistPrice(gb), "gb=%d", gb)
	}
}

func TestClampGB(t *testing.T) {
	assert.Equal(t, 5, ClampGB(-10))
	assert.Equal(t, 5, ClampGB(5))
	assert.Equal(t, 42, ClampGB(42))
	assert.Equal(t, 500, ClampGB(500))
	assert.Equal(t, 500, ClampGB(100000))
}

func TestPaymentTotal(t *testing.T) {
	sbp := models.PaymentMethod{
		ID:         "sbp",
		Name:       "СБП",
		FeePercent: 5,
		Variants: []models.Variant{
			{ID: "platega", Name: "Platega", FeePercent: 0},
			{ID: "yookassa", Name: "YooKassa", FeePercent: 0},
		},
	}
	card := models.PaymentMethod{ID: "card", Name: "Банковская карта", FeePercent: 2.5}

	tests := []struct {
		name      string
		base      int
		method    models.PaymentMethod
		variantID string
		expected  float64
	}{
		{"выбранный вариант замещает базовую комиссию", 1000, sbp, "platega", 1000},
		{"второй вариант тоже без комиссии", 1000, sbp, "yookassa", 1000},
		{"без выбранного варианта действует базовая комиссия", 1000, sbp, "", 1050},
		{"неизвестный вариант откатывается к базовой комиссии", 1000, sbp, "unknown", 1050},
		{"метод без вариантов", 1000, card, "", 1025},
		{"дробная комиссия не усекается", 99, card, "", 99 + 99*2.5/100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, PaymentTotal(tt.base, tt.method, tt.variantID), 1e-9)
		})
	}
}

func TestFeeDisplay(t *testing.T) {
	card := models.PaymentMethod{ID: "card", FeePercent: 2.5}
	free := models.PaymentMethod{ID: "crypto", FeePercent: 0}

	// 1000 * 2.5% = 25.0 -> ".0" убирается
	assert.Equal(t, "25", FeeDisplay(1000, card, ""))
	// 99 * 2.5% = 2.475 -> один знак после запятой
	assert.Equal(t, "2.5", FeeDisplay(99, card, ""))
	assert.Equal(t, "0", FeeDisplay(500, free, ""))
}
