// Package backend реализует HTTP-клиент авторитетного VPN-бэкенда:
// создание подписок и платежей, вывод средств, данные пользователя и
// устройства. Все мутации баланса происходят только на бэкенде,
// клиент лишь читает подтверждённые состояния.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/glebknyazev/vpn-miniapp/internal/models"
)

// Client — клиент VPN-бэкенда.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт новый клиент бэкенда.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	if result == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

// CreateSubscription отправляет запрос на создание подписки.
func (c *Client) CreateSubscription(ctx context.Context, reqParams CreateSubscriptionRequest) (*CreateSubscriptionResponse, error) {
	const op = "backend.CreateSubscription"
	req, err := c.newRequest(ctx, http.MethodPost, "/subscription/create", reqParams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var res CreateSubscriptionResponse
	if err := c.do(req, &res); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &res, nil
}

// CreatePayment отправляет запрос на создание платежа пополнения.
func (c *Client) CreatePayment(ctx context.Context, reqParams CreatePaymentRequest) (*CreatePaymentResponse, error) {
	const op = "backend.CreatePayment"
	req, err := c.newRequest(ctx, http.MethodPost, "/payment/create", reqParams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var res CreatePaymentResponse
	if err := c.do(req, &res); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &res, nil
}

// Withdraw отправляет запрос на вывод реферального баланса.
func (c *Client) Withdraw(ctx context.Context, reqParams WithdrawRequest) (*WithdrawResponse, error) {
	const op = "backend.Withdraw"
	req, err := c.newRequest(ctx, http.MethodPost, "/user/withdraw", reqParams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var res WithdrawResponse
	if err := c.do(req, &res); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &res, nil
}

// GetUserInfo возвращает актуальный снимок аккаунта по telegram id.
func (c *Client) GetUserInfo(ctx context.Context, telegramID int64) (*models.Account, error) {
	const op = "backend.GetUserInfo"
	q := url.Values{"telegram_id": {strconv.FormatInt(telegramID, 10)}}
	req, err := c.newRequest(ctx, http.MethodGet, "/user/info?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var res models.Account
	if err := c.do(req, &res); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &res, nil
}

// ListDevices возвращает устройства пользователя вместе с ключами подписки.
func (c *Client) ListDevices(ctx context.Context, telegramID int64) ([]models.Device, error) {
	const op = "backend.ListDevices"
	q := url.Values{"telegram_id": {strconv.FormatInt(telegramID, 10)}}
	req, err := c.newRequest(ctx, http.MethodGet, "/user/devices?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var res []models.Device
	if err := c.do(req, &res); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

// DeleteDevice удаляет устройство; связанный ключ подписки становится
// недействительным на стороне бэкенда.
func (c *Client) DeleteDevice(ctx context.Context, telegramID, deviceID int64) error {
	const op = "backend.DeleteDevice"
	q := url.Values{"telegram_id": {strconv.FormatInt(telegramID, 10)}}
	path := fmt.Sprintf("/user/devices/%d?%s", deviceID, q.Encode())
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	var res struct {
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
	}
	if err := c.do(req, &res); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !res.Success {
		return fmt.Errorf("%s: %s", op, res.Error)
	}
	return nil
}
