package models

// ActionKind — тег отложенной покупки.
type ActionKind string

const (
	// ActionVPNPurchase — покупка VPN-плана.
	ActionVPNPurchase ActionKind = "vpn"
	// ActionWhitelistPurchase — покупка обхода белых списков.
	ActionWhitelistPurchase ActionKind = "whitelist"
)

// VPNPurchase — параметры покупки VPN-плана.
type VPNPurchase struct {
	Plan Plan `json:"plan"`
}

// WhitelistPurchase — параметры покупки whitelist-обхода. GB хранится как
// введён пользователем; при расчётах всегда применяется клампинг в pricing.
type WhitelistPurchase struct {
	GB int `json:"gb"`
}

// PendingAction — отложенная покупка, сохраняемая на время одного цикла
// пополнения баланса. Ровно одно из полей полезной нагрузки заполнено,
// в соответствии с Kind. Новый intent перезаписывает старый, запись
// очищается ровно один раз: при успешном повторе или явной отмене.
type PendingAction struct {
	Kind            ActionKind         `json:"kind"`
	VPN             *VPNPurchase       `json:"vpn,omitempty"`
	Whitelist       *WhitelistPurchase `json:"whitelist,omitempty"`
	Price           int                `json:"price"` // Цена на момент intent'а, ₽
	Name            string             `json:"name"`  // Отображаемое название покупки
	UseAutoPay      bool               `json:"use_auto_pay,omitempty"`
	PaymentMethodID string             `json:"payment_method_id,omitempty"`
}
