package backend

// CreateSubscriptionRequest — запрос на создание подписки на бэкенде.
type CreateSubscriptionRequest struct {
	UserID          int64  `json:"user_id"`
	Days            int    `json:"days"`
	Type            string `json:"type"` // vpn | whitelist
	IsTrial         bool   `json:"is_trial,omitempty"`
	WhitelistGB     int    `json:"whitelist_gb,omitempty"`
	Price           int    `json:"price"`
	UseAutoPay      bool   `json:"use_auto_pay,omitempty"`
	PaymentMethodID string `json:"payment_method_id,omitempty"`
}

// CreateSubscriptionResponse — ответ бэкенда на создание подписки.
type CreateSubscriptionResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// CreatePaymentRequest — запрос на создание платежа пополнения.
type CreatePaymentRequest struct {
	UserID            int64   `json:"user_id"`
	Amount            float64 `json:"amount"`
	Method            string  `json:"method"` // yookassa | heleket | platega
	Provider          string  `json:"provider,omitempty"`
	SavePaymentMethod bool    `json:"save_payment_method,omitempty"`
}

// CreatePaymentResponse — ответ провайдера платежа. Бэкенд возвращает ссылку
// подтверждения в одном из двух полей в зависимости от провайдера.
type CreatePaymentResponse struct {
	ConfirmationURL    string `json:"confirmation_url,omitempty"`
	PaymentURL         string `json:"payment_url,omitempty"`
	PaymentMethodID    string `json:"payment_method_id,omitempty"`
	PaymentMethodSaved bool   `json:"payment_method_saved,omitempty"`
}

// PayURL возвращает ссылку оплаты независимо от провайдера.
func (r *CreatePaymentResponse) PayURL() string {
	if r.ConfirmationURL != "" {
		return r.ConfirmationURL
	}
	return r.PaymentURL
}

// WithdrawRequest — запрос на вывод реферального баланса.
type WithdrawRequest struct {
	TelegramID int64   `json:"telegram_id"`
	Amount     float64 `json:"amount"`
	Method     string  `json:"method"` // balance | card | crypto
	Phone      string  `json:"phone,omitempty"`
	Bank       string  `json:"bank,omitempty"`
	CryptoNet  string  `json:"crypto_net,omitempty"`
	CryptoAddr string  `json:"crypto_addr,omitempty"`
}

// WithdrawResponse — ответ бэкенда на вывод средств.
type WithdrawResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}
