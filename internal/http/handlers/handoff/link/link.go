// Package link выдаёт зашифрованную deep-link подписки и ссылку на
// промежуточную страницу перенаправления.
package link

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/glebknyazev/vpn-miniapp/internal/config"
	"github.com/glebknyazev/vpn-miniapp/internal/http/middlewarectx"
	"github.com/glebknyazev/vpn-miniapp/internal/http/response"
	"github.com/glebknyazev/vpn-miniapp/internal/lib/sl"
	"github.com/glebknyazev/vpn-miniapp/internal/services/devices"
	"github.com/glebknyazev/vpn-miniapp/internal/services/handoff"
)

// Devices определяет используемый метод репозитория устройств.
type Devices interface {
	SubscriptionURL(ctx context.Context, telegramID, deviceID int64) (string, error)
}

// Encoder определяет используемый метод шифрования ссылок.
type Encoder interface {
	EncodedLink(ctx context.Context, subscriptionURL string) (string, error)
}

// Handler обрабатывает запросы зашифрованной ссылки подписки.
type Handler struct {
	log     *slog.Logger
	devices Devices
	encoder Encoder
	cfg     config.Handoff
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, devicesService Devices, encoder Encoder, cfg config.Handoff) *Handler {
	return &Handler{
		log:     log,
		devices: devicesService,
		encoder: encoder,
		cfg:     cfg,
	}
}

// ServeHTTP godoc
// @Summary Зашифрованная ссылка подписки
// @Description Шифрует ключ подписки устройства и возвращает ссылку на страницу перенаправления; при отказе обеих стратегий шифрования возвращает исходную ссылку для ручного копирования
// @Tags Handoff
// @Produce  json
// @Param device_id query int false "Идентификатор устройства; 0 — первое устройство с ключом"
// @Success 200 {object} response.Response "Ссылки для передачи в приложение"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 404 {object} response.ErrorResponse "Нет устройств с ключом подписки"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /handoff/link [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.handoff.link"
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

	var deviceID int64
	if idStr := r.URL.Query().Get("device_id"); idStr != "" {
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			log.Error("invalid device id format", sl.Err(err))
			w.WriteHeader(http.StatusBadRequest)
			render.JSON(w, r, response.Error("invalid device id"))
			return
		}
		deviceID = id
	}

	originalURL, err := h.devices.SubscriptionURL(r.Context(), telegramID, deviceID)
	if err != nil {
		if errors.Is(err, devices.ErrNoDevices) {
			log.Info("no devices with a subscription key")
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error("no devices with a subscription key"))
			return
		}
		log.Error("failed to resolve subscription url", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	encoded, err := h.encoder.EncodedLink(r.Context(), originalURL)
	if err != nil {
		// Обе стратегии шифрования не сработали: отдаём исходную ссылку
		// для ручного копирования, активация не блокируется.
		if errors.Is(err, handoff.ErrEncodingFailed) {
			log.Warn("credential encoding failed, degrading to plaintext")
			render.JSON(w, r, response.StatusOKWithData(map[string]any{
				"original_url": originalURL,
				"encrypted":    false,
			}))
			return
		}
		log.Error("failed to encode link", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	redirectURL := handoff.RedirectURL(h.cfg.AppOrigin, h.cfg.RedirectPath, encoded, originalURL)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"encoded_link": encoded,
		"redirect_url": redirectURL,
		"original_url": originalURL,
		"encrypted":    true,
	}))
}
