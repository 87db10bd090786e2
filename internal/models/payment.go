package models

// Variant представляет под-вариант способа оплаты (конкретного провайдера),
// комиссия которого замещает комиссию родительского метода после выбора.
type Variant struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	FeePercent float64 `json:"fee_percent"`
}

// PaymentMethod представляет способ оплаты пополнения с базовой комиссией
// и необязательным списком вариантов.
type PaymentMethod struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	FeePercent float64   `json:"fee_percent"`
	Variants   []Variant `json:"variants,omitempty"`
}

// PaymentMethods возвращает каталог способов оплаты по умолчанию.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		{ID: "card", Name: "Банковская карта", FeePercent: 0},
		{ID: "sbp", Name: "СБП", FeePercent: 0, Variants: []Variant{
			{ID: "platega", Name: "Platega", FeePercent: 0},
			{ID: "yookassa", Name: "YooKassa", FeePercent: 0},
		}},
		{ID: "crypto", Name: "Криптовалюта", FeePercent: 0},
	}
}

// FindPaymentMethod ищет способ оплаты по идентификатору.
func FindPaymentMethod(methods []PaymentMethod, id string) (PaymentMethod, bool) {
	for _, m := range methods {
		if m.ID == id {
			return m, true
		}
	}
	return PaymentMethod{}, false
}

// ProviderKey возвращает ключ платёжного провайдера для выбранного метода
// и варианта: криптовалюта идёт через Heleket, СБП через Platega — только
// при явно выбранном варианте, всё остальное через YooKassa.
func ProviderKey(methodID, variantID string) string {
	switch {
	case methodID == "crypto":
		return "heleket"
	case methodID == "sbp" && variantID == "platega":
		return "platega"
	default:
		return "yookassa"
	}
}

// PresetAmounts — предустановленные суммы пополнения, ₽.
var PresetAmounts = []int{100, 250, 500, 1000, 2000, 5000}
