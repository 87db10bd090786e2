// Package create обрабатывает создание платежа пополнения баланса.
package create

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/glebknyazev/vpn-miniapp/internal/backend"
	"github.com/glebknyazev/vpn-miniapp/internal/http/middlewarectx"
	"github.com/glebknyazev/vpn-miniapp/internal/http/response"
	"github.com/glebknyazev/vpn-miniapp/internal/lib/sl"
	"github.com/glebknyazev/vpn-miniapp/internal/models"
	"github.com/glebknyazev/vpn-miniapp/internal/services/pricing"
)

// Request представляет запрос на пополнение баланса.
type Request struct {
	Amount            int    `json:"amount" validate:"required,gt=0"`
	MethodID          string `json:"method_id" validate:"required"`
	VariantID         string `json:"variant_id,omitempty"`
	SavePaymentMethod bool   `json:"save_payment_method,omitempty"`
}

// ProviderClient определяет используемый метод клиента VPN-бэкенда.
type ProviderClient interface {
	CreatePayment(ctx context.Context, req backend.CreatePaymentRequest) (*backend.CreatePaymentResponse, error)
}

// Handler обрабатывает запросы на пополнение баланса.
type Handler struct {
	log      *slog.Logger
	provider ProviderClient
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, provider ProviderClient) *Handler {
	return &Handler{
		log:      log,
		provider: provider,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Создать платеж пополнения
// @Description Считает итог с комиссией выбранного способа оплаты и создает платеж у провайдера
// @Tags TopUp
// @Accept  json
// @Produce  json
// @Param request body Request true "Параметры пополнения"
// @Success 200 {object} response.Response "Ссылка оплаты и итоговая сумма"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON или неизвестный способ оплаты"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Ошибка провайдера платежа"
// @Router /topup/create [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.topup.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	telegramID, ok := middlewarectx.TelegramIDFromContext(r.Context())
	if !ok {
		log.Error("telegram id not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	method, found := models.FindPaymentMethod(models.PaymentMethods(), req.MethodID)
	if !found {
		log.Error("unknown payment method", slog.String("method_id", req.MethodID))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("unknown payment method"))
		return
	}

	// Итог с комиссией уходит провайдеру неокруглённым, обрезка только
	// в отображаемой строке.
	total := pricing.PaymentTotal(req.Amount, method, req.VariantID)
	provider := models.ProviderKey(req.MethodID, req.VariantID)

	paymentResp, err := h.provider.CreatePayment(r.Context(), backend.CreatePaymentRequest{
		UserID:            telegramID,
		Amount:            total,
		Method:            provider,
		SavePaymentMethod: req.SavePaymentMethod,
	})
	if err != nil {
		log.Error("failed to create payment", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("payment provider error"))
		return
	}

	log.Info("payment created",
		slog.String("provider", provider), slog.Float64("total", total))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"pay_url":     paymentResp.PayURL(),
		"amount":      req.Amount,
		"total":       total,
		"fee_percent": pricing.ResolveFeePercent(method, req.VariantID),
		"fee_display": pricing.FeeDisplay(req.Amount, method, req.VariantID),
		"provider":    provider,
	}))
}
