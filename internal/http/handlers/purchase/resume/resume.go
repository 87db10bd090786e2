// Package resume повторяет отложенную покупку после возврата из пополнения.
package resume

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/glebknyazev/vpn-miniapp/internal/http/middlewarectx"
	"github.com/glebknyazev/vpn-miniapp/internal/http/response"
	"github.com/glebknyazev/vpn-miniapp/internal/lib/sl"
	"github.com/glebknyazev/vpn-miniapp/internal/services/purchase"
)

// Service определяет используемый метод оркестратора покупок.
type Service interface {
	ResumeAfterTopUp(ctx context.Context, telegramID int64) (purchase.Outcome, error)
}

// Handler обрабатывает запросы на возобновление покупки.
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
// @Summary Возобновить отложенную покупку
// @Description Повторяет отложенную покупку после пополнения; если отложенной покупки нет, возвращает статус idle
// @Tags Purchase
// @Produce  json
// @Success 200 {object} response.Response "Исход покупки"
// @Failure 401 {object} response.ErrorResponse "Пользователь не авторизован"
// @Failure 500 {object} response.ErrorResponse "Ошибка сервера"
// @Router /purchase/resume [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.purchase.resume"
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

	outcome, err := h.service.ResumeAfterTopUp(r.Context(), telegramID)
	if err != nil {
		log.Error("failed to resume purchase", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	log.Info("purchase resumed", slog.String("status", string(outcome.Status)))
	render.JSON(w, r, response.StatusOKWithData(outcome))
}
