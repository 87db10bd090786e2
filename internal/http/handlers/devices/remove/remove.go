// Package remove удаляет устройство пользователя.
package remove

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/glebknyazev/vpn-miniapp/internal/http/middlewarectx"
	"github.com/glebknyazev/vpn-miniapp/internal/http/response"
	"github.com/glebknyazev/vpn-miniapp/internal/lib/sl"
)

// Service определяет используемый метод репозитория устройств.
type Service interface {
	Remove(ctx context.Context, telegramID, deviceID int64) error
}

// Handler обрабатывает удаление устройства.
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
// @Summary Удалить устройство
// @Description Удаляет устройство на бэкенде; связанный ключ подписки становится недействительным
// @Tags Devices
// @Produce  json
// @Param id path int true "Идентификатор устройства"
// @Success 200 {object} response.Response "Устройство удалено"
// @Failure 400 {object} response.ErrorResponse "Некорректный идентификатор"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /devices/{id} [delete]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.devices.remove"
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

	idStr := chi.URLParam(r, "id")
	deviceID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		log.Error("invalid device id format", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid device id"))
		return
	}

	if err := h.service.Remove(r.Context(), telegramID, deviceID); err != nil {
		log.Error("failed to remove device", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to remove device"))
		return
	}

	log.Info("device removed", slog.Int64("device_id", deviceID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"removed": true,
	}))
}
