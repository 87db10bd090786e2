// Package list возвращает устройства пользователя.
package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/glebknyazev/vpn-miniapp/internal/http/middlewarectx"
	"github.com/glebknyazev/vpn-miniapp/internal/http/response"
	"github.com/glebknyazev/vpn-miniapp/internal/lib/sl"
	"github.com/glebknyazev/vpn-miniapp/internal/models"
)

// Service определяет используемый метод репозитория устройств.
type Service interface {
	List(ctx context.Context, telegramID int64) ([]models.Device, error)
}

// Handler обрабатывает запросы списка устройств.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

// ServeHTTP godoc
// @Summary Список устройств
// @Description Возвращает устройства пользователя вместе с ключами подписки
// @Tags Devices
// @Produce  json
// @Success 200 {object} response.Response "Список устройств"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /devices [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.devices.list"
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

	devices, err := h.service.List(r.Context(), telegramID)
	if err != nil {
		log.Error("failed to list devices", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"devices": devices,
	}))
}
