package models

// Device представляет устройство пользователя. KeyConfig — выданный бэкендом
// URL подписки (не более одного активного на устройство); пустая строка
// означает отсутствие привязанного ключа.
type Device struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Added     string `json:"added"`
	KeyConfig string `json:"key_config,omitempty"`
}
